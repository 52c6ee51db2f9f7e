package queue_tasks

import (
	"context"
	"encoding/json"
	"errors"

	"fingerprint.gateman.io/infrastructure/database/store"
	"fingerprint.gateman.io/infrastructure/logger"
	mq_types "fingerprint.gateman.io/infrastructure/message_queue/types"
	"github.com/hibiken/asynq"
)

var HandleTemplateSyncTaskName mq_types.Queues = "fingerprint_template_sync"

type TemplateSyncPayload struct {
	Reason string
}

type TemplateSyncer interface {
	Sync(ctx context.Context) (int, error)
}

// NewTemplateSyncTask pushes locally queued templates to the remote store.
// A store without a remote acknowledges the task instead of retrying.
func NewTemplateSyncTask(syncer TemplateSyncer) func(ctx context.Context, t *asynq.Task) error {
	return func(ctx context.Context, t *asynq.Task) error {
		var payload TemplateSyncPayload
		if len(t.Payload()) > 0 {
			if err := json.Unmarshal(t.Payload(), &payload); err != nil {
				logger.Error("an error occured while unmarshalling template sync payload", logger.LoggerOptions{
					Key:  "error",
					Data: err.Error(),
				})
				return err
			}
		}
		synced, err := syncer.Sync(ctx)
		if errors.Is(err, store.ErrNoRemote) {
			return nil
		}
		if err != nil {
			return err
		}
		logger.Info("template sync task completed", logger.LoggerOptions{Key: "synced", Data: synced}, logger.LoggerOptions{Key: "reason", Data: payload.Reason})
		return nil
	}
}
