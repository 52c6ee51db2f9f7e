package asynq

import (
	"os"
	"time"

	"fingerprint.gateman.io/infrastructure/logger"
	mq_types "fingerprint.gateman.io/infrastructure/message_queue/types"
	"github.com/hibiken/asynq"
)

type AsynqBroker struct {
	Client   *asynq.Client
	Handlers map[mq_types.Queues]asynq.HandlerFunc
	Periodic []mq_types.PeriodicTask
}

func redisConnOpt() asynq.RedisClientOpt {
	return asynq.RedisClientOpt{
		Addr:     os.Getenv("REDIS_ADDR"),
		Password: os.Getenv("REDIS_PASSWORD"),
	}
}

func taskOptions(task mq_types.QueueTask) []asynq.Option {
	if task.TimeOut == 0 {
		task.TimeOut = 60
	}
	if task.MaxRetry == 0 {
		task.MaxRetry = 10
	}
	if task.Priority == "" {
		task.Priority = mq_types.Low
	}
	return []asynq.Option{
		asynq.ProcessIn(time.Duration(task.ProcessIn) * time.Second),
		asynq.MaxRetry(task.MaxRetry),
		asynq.Timeout(time.Second * time.Duration(task.TimeOut)),
		asynq.Queue(string(task.Priority)),
	}
}

// Start blocks while serving the registered handlers.
func (aq *AsynqBroker) Start() {
	aq.Client = asynq.NewClient(redisConnOpt())

	if len(aq.Periodic) > 0 {
		scheduler := asynq.NewScheduler(redisConnOpt(), nil)
		for _, p := range aq.Periodic {
			if _, err := scheduler.Register(p.Cronspec, asynq.NewTask(string(p.Task.Name), p.Task.Payload), taskOptions(p.Task)...); err != nil {
				logger.Error("could not register periodic task", logger.LoggerOptions{Key: "task", Data: string(p.Task.Name)}, logger.LoggerOptions{Key: "error", Data: err.Error()})
			}
		}
		go func() {
			if err := scheduler.Run(); err != nil {
				logger.Error("asynq scheduler stopped", logger.LoggerOptions{Key: "error", Data: err.Error()})
			}
		}()
	}

	srv := asynq.NewServer(
		redisConnOpt(),
		asynq.Config{
			Concurrency: 10,
			Queues: map[string]int{
				string(mq_types.High):   7,
				string(mq_types.Medium): 2,
				string(mq_types.Low):    1,
			},
		},
	)

	mux := asynq.NewServeMux()
	for name, handler := range aq.Handlers {
		mux.HandleFunc(string(name), handler)
	}

	if err := srv.Run(mux); err != nil {
		logger.Error("asynq server stopped", logger.LoggerOptions{Key: "error", Data: err.Error()})
	}
}

func (aq *AsynqBroker) Enqueue(task mq_types.QueueTask) {
	if aq.Client == nil {
		logger.Warning("task dropped, queue not started", logger.LoggerOptions{Key: "task", Data: string(task.Name)})
		return
	}
	if _, err := aq.Client.Enqueue(asynq.NewTask(string(task.Name), task.Payload), taskOptions(task)...); err != nil {
		logger.Error("could not enqueue task", logger.LoggerOptions{Key: "task", Data: string(task.Name)}, logger.LoggerOptions{Key: "error", Data: err.Error()})
	}
}
