package connection

import (
	"context"

	"fingerprint.gateman.io/infrastructure/database/connection/cache"
	"fingerprint.gateman.io/infrastructure/database/connection/datastore"
)

// ConnectToDatabase opens mongo and redis when they are configured. Both are
// optional; the fingerprint store keeps working on local files without them.
func ConnectToDatabase(ctx context.Context) {
	datastore.ConnectToDatabase(ctx)
	cache.ConnectToCache()
}
