package startup

import (
	"context"
	"encoding/json"
	"fmt"

	"fingerprint.gateman.io/application/controller"
	"fingerprint.gateman.io/application/repository"
	fingerprint_usecase "fingerprint.gateman.io/application/usecases/fingerprint"
	"fingerprint.gateman.io/infrastructure/biometric/config"
	"fingerprint.gateman.io/infrastructure/biometric/extractor"
	"fingerprint.gateman.io/infrastructure/biometric/similarity"
	"fingerprint.gateman.io/infrastructure/database/connection"
	redisConn "fingerprint.gateman.io/infrastructure/database/connection/cache"
	"fingerprint.gateman.io/infrastructure/database/connection/datastore"
	"fingerprint.gateman.io/infrastructure/database/repository/cache"
	"fingerprint.gateman.io/infrastructure/database/store"
	fileupload "fingerprint.gateman.io/infrastructure/file_upload"
	"fingerprint.gateman.io/infrastructure/logger"
	messagequeue "fingerprint.gateman.io/infrastructure/message_queue"
	"fingerprint.gateman.io/infrastructure/message_queue/asynq"
	queue_tasks "fingerprint.gateman.io/infrastructure/message_queue/tasks"
	mq_types "fingerprint.gateman.io/infrastructure/message_queue/types"
	hibiken "github.com/hibiken/asynq"
)

// Services holds everything the HTTP server and the queue worker share.
type Services struct {
	Config     config.MatchingConfig
	Store      *store.FingerprintStore
	Controller *controller.FingerprintController
	// UseQueue is true when asynq owns template sync.
	UseQueue bool

	cancel context.CancelFunc
}

// Used to start services such as loggers, databases, queues, etc.
func StartServices() (*Services, error) {
	logger.InitializeLogger()

	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("loading matching config: %w", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	connection.ConnectToDatabase(ctx)
	fileupload.InitialiseFileUploader(ctx)

	opts := []store.Option{}
	if repo := repository.FingerprintRepo(); repo != nil {
		opts = append(opts, store.WithRemote(store.MongoRemote{Repo: repo}))
	}
	_, cacheErr := redisConn.GetInstance()
	if cacheErr == nil {
		opts = append(opts, store.WithCountCache(store.RedisCountCache{Repo: &cache.RedisRepository{}, TTL: cfg.Store.CountCacheTTL}))
	}

	templates, err := store.New(cfg.Store, cfg.Enrollment.MaxEnrollments, opts...)
	if err != nil {
		cancel()
		return nil, err
	}
	loaded, err := templates.Load(ctx)
	if err != nil {
		cancel()
		return nil, fmt.Errorf("loading templates: %w", err)
	}
	logger.Info("fingerprint templates loaded", logger.LoggerOptions{Key: "count", Data: loaded}, logger.LoggerOptions{Key: "path", Data: cfg.Store.LocalDataPath})

	serviceOpts := []fingerprint_usecase.Option{}
	if cfg.Store.StoreOriginalImage && fileupload.FileUploader != nil {
		serviceOpts = append(serviceOpts, fingerprint_usecase.WithArchive(fileupload.FileUploader))
	}

	useQueue := cacheErr == nil
	if useQueue {
		registerTasks(cfg, templates)
		serviceOpts = append(serviceOpts, fingerprint_usecase.WithQueue(messagequeue.TaskQueue))
	} else {
		templates.StartBackgroundSync(ctx)
	}

	service := fingerprint_usecase.NewService(cfg, extractor.New(cfg), templates, similarity.NewEngine(cfg.Similarity), serviceOpts...)

	return &Services{
		Config:     cfg,
		Store:      templates,
		Controller: controller.NewFingerprintController(service),
		UseQueue:   useQueue,
		cancel:     cancel,
	}, nil
}

func registerTasks(cfg config.MatchingConfig, templates *store.FingerprintStore) {
	broker, ok := messagequeue.TaskQueue.(*asynq.AsynqBroker)
	if !ok {
		return
	}
	broker.Handlers = map[mq_types.Queues]hibiken.HandlerFunc{
		queue_tasks.HandleTemplateSyncTaskName: queue_tasks.NewTemplateSyncTask(templates),
	}
	task, err := scheduledSync(cfg.Store)
	if err != nil {
		logger.Error("could not schedule template sync", logger.LoggerOptions{Key: "error", Data: err.Error()})
		return
	}
	broker.Periodic = []mq_types.PeriodicTask{task}
}

// scheduledSync builds the periodic sync task. The interval never drops
// under MinSyncInterval, whatever the config says.
func scheduledSync(cfg config.StoreConfig) (mq_types.PeriodicTask, error) {
	payload, err := json.Marshal(queue_tasks.TemplateSyncPayload{Reason: "scheduled"})
	if err != nil {
		return mq_types.PeriodicTask{}, fmt.Errorf("encoding sync payload: %w", err)
	}
	return mq_types.PeriodicTask{
		Cronspec: fmt.Sprintf("@every %s", max(cfg.SyncInterval, cfg.MinSyncInterval)),
		Task: mq_types.QueueTask{
			Name:    queue_tasks.HandleTemplateSyncTaskName,
			Payload: payload,
		},
	}, nil
}

// Used to clean up after services that have been shutdown.
func CleanUpServices(s *Services) {
	if s != nil && s.cancel != nil {
		s.cancel()
	}
	datastore.CleanUp()
}
