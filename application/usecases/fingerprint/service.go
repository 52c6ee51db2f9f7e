package fingerprint_usecase

import (
	"context"
	"time"

	"fingerprint.gateman.io/entities"
	"fingerprint.gateman.io/infrastructure/biometric/config"
	"fingerprint.gateman.io/infrastructure/biometric/matcher"
	"fingerprint.gateman.io/infrastructure/biometric/types"
	file_upload_types "fingerprint.gateman.io/infrastructure/file_upload/types"
	mq_types "fingerprint.gateman.io/infrastructure/message_queue/types"
)

type Extractor interface {
	Extract(data []byte) (*types.Template, error)
}

// TemplateRepository is the template store plus the record level access the
// service needs for status, archiving and sync.
type TemplateRepository interface {
	types.TemplateStore
	Save(ctx context.Context, rec entities.FingerprintTemplate) (bool, int, error)
	Records(staffID string) []entities.FingerprintTemplate
	Sync(ctx context.Context) (int, error)
	PendingCount() int
}

type Service struct {
	cfg       config.MatchingConfig
	extractor Extractor
	store     TemplateRepository
	matcher   *matcher.Matcher
	archive   file_upload_types.FileUploaderType
	queue     mq_types.TaskQueueBroker
	now       func() time.Time
}

type Option func(*Service)

// WithArchive enables raw scan archiving when StoreOriginalImage is set.
func WithArchive(a file_upload_types.FileUploaderType) Option {
	return func(s *Service) { s.archive = a }
}

// WithQueue hands sync requests to the task queue instead of running them
// inline.
func WithQueue(q mq_types.TaskQueueBroker) Option {
	return func(s *Service) { s.queue = q }
}

func NewService(cfg config.MatchingConfig, extractor Extractor, store TemplateRepository, scorer matcher.Scorer, opts ...Option) *Service {
	s := &Service{
		cfg:       cfg,
		extractor: extractor,
		store:     store,
		matcher:   matcher.New(cfg.Matcher, scorer),
		now:       time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}
