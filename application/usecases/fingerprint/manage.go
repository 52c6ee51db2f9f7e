package fingerprint_usecase

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"fingerprint.gateman.io/infrastructure/biometric/quality"
	"fingerprint.gateman.io/infrastructure/logger"
	queue_tasks "fingerprint.gateman.io/infrastructure/message_queue/tasks"
	mq_types "fingerprint.gateman.io/infrastructure/message_queue/types"
)

func (s *Service) Status(ctx context.Context, staffID string) (*TemplateStatus, error) {
	records := s.store.Records(staffID)
	status, remaining := s.enrollmentStatus(len(records))
	out := &TemplateStatus{
		StaffID:          staffID,
		TemplateCount:    len(records),
		EnrollmentStatus: status,
		Remaining:        remaining,
		MinEnrollments:   s.cfg.Enrollment.MinEnrollments,
		MaxEnrollments:   s.cfg.Enrollment.MaxEnrollments,
		Templates:        make([]TemplateSummary, 0, len(records)),
	}
	for _, rec := range records {
		summary := TemplateSummary{
			ID:            rec.ID,
			CreatedAt:     rec.CreatedAt,
			Quality:       rec.Template.Quality,
			MinutiaeCount: len(rec.Template.Minutiae),
			KeypointCount: len(rec.Template.Keypoints),
			Degraded:      rec.Template.Degraded,
			Synced:        rec.Synced,
		}
		if rec.ImageKey != nil && s.archive != nil {
			summary.ImageURL, _ = s.archive.GenerateDownloadURL(ctx, *rec.ImageKey)
		}
		out.Templates = append(out.Templates, summary)
	}
	return out, nil
}

// Delete removes every template of a subject along with archived scans.
func (s *Service) Delete(ctx context.Context, staffID string) (int, error) {
	deleted, err := s.store.DeleteAll(ctx, staffID)
	if s.archive != nil {
		if _, archiveErr := s.archive.DeletePrefix(ctx, staffID+"/"); archiveErr != nil {
			logger.Warning("archived scans not removed", logger.LoggerOptions{Key: "staffId", Data: staffID}, logger.LoggerOptions{Key: "error", Data: archiveErr.Error()})
		}
	}
	if err != nil {
		return deleted, err
	}
	logger.Info("fingerprint templates deleted", logger.LoggerOptions{Key: "staffId", Data: staffID}, logger.LoggerOptions{Key: "count", Data: deleted})
	return deleted, nil
}

// Quality extracts a scan and reports how it rates without storing it.
func (s *Service) Quality(ctx context.Context, image []byte) (*QualityOutcome, error) {
	tpl, err := s.extractor.Extract(image)
	if err != nil {
		return nil, err
	}
	return &QualityOutcome{
		Report:         quality.Assess(tpl),
		MinutiaeCount:  len(tpl.Minutiae),
		KeypointCount:  len(tpl.Keypoints),
		Degraded:       tpl.Degraded,
		DegradedReason: tpl.DegradedReason,
		Template:       tpl.Quality,
		Strategy:       tpl.Strategy,
		Enrollable:     s.enrollable(tpl) == nil,
	}, nil
}

// Sync pushes pending templates to the remote store. With a task queue the
// push is queued and only the pending count is reported.
func (s *Service) Sync(ctx context.Context) (*SyncOutcome, error) {
	if s.queue != nil {
		payload, err := json.Marshal(queue_tasks.TemplateSyncPayload{Reason: "manual"})
		if err != nil {
			return nil, fmt.Errorf("encoding sync request: %w", err)
		}
		s.queue.Enqueue(mq_types.QueueTask{
			Name:     queue_tasks.HandleTemplateSyncTaskName,
			Payload:  payload,
			Priority: mq_types.High,
		})
		return &SyncOutcome{Queued: true, Pending: s.store.PendingCount()}, nil
	}
	synced, err := s.store.Sync(ctx)
	out := &SyncOutcome{Synced: synced, Pending: s.store.PendingCount()}
	if err != nil && !errors.Is(err, context.Canceled) {
		return out, err
	}
	return out, nil
}
