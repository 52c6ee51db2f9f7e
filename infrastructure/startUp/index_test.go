package startup

import (
	"encoding/json"
	"testing"
	"time"

	"fingerprint.gateman.io/infrastructure/biometric/config"
	queue_tasks "fingerprint.gateman.io/infrastructure/message_queue/tasks"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestScheduledSyncInterval(t *testing.T) {
	tests := []struct {
		name     string
		interval time.Duration
		floor    time.Duration
		want     string
	}{
		{"configured interval", 5 * time.Minute, time.Minute, "@every 5m0s"},
		{"clamped to floor", 10 * time.Second, time.Minute, "@every 1m0s"},
		{"equal to floor", time.Minute, time.Minute, "@every 1m0s"},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			task, err := scheduledSync(config.StoreConfig{SyncInterval: tc.interval, MinSyncInterval: tc.floor})
			require.NoError(t, err)
			assert.Equal(t, tc.want, task.Cronspec)
			assert.Equal(t, queue_tasks.HandleTemplateSyncTaskName, task.Task.Name)

			var payload queue_tasks.TemplateSyncPayload
			require.NoError(t, json.Unmarshal(task.Task.Payload, &payload))
			assert.Equal(t, "scheduled", payload.Reason)
		})
	}
}
