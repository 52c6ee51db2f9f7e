package repository

import (
	"sync"

	"fingerprint.gateman.io/entities"
	"fingerprint.gateman.io/infrastructure/database/connection/datastore"
	"fingerprint.gateman.io/infrastructure/database/repository/mongo"
)

var fingerprintOnce = sync.Once{}

var fingerprintRepository *mongo.MongoRepository[entities.FingerprintTemplate]

// FingerprintRepo returns nil when mongo was never connected.
func FingerprintRepo() *mongo.MongoRepository[entities.FingerprintTemplate] {
	fingerprintOnce.Do(func() {
		if datastore.FingerprintModel == nil {
			return
		}
		fingerprintRepository = &mongo.MongoRepository[entities.FingerprintTemplate]{Model: datastore.FingerprintModel}
	})
	return fingerprintRepository
}
