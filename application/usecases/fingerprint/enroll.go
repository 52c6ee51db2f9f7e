package fingerprint_usecase

import (
	"context"
	"errors"
	"fmt"

	"fingerprint.gateman.io/application/constants"
	"fingerprint.gateman.io/application/utils"
	"fingerprint.gateman.io/entities"
	"fingerprint.gateman.io/infrastructure/biometric/fusion"
	"fingerprint.gateman.io/infrastructure/biometric/types"
	"fingerprint.gateman.io/infrastructure/logger"
)

// enrollable rejects templates too sparse to be useful as a reference.
func (s *Service) enrollable(tpl *types.Template) error {
	cfg := s.cfg.Enrollment
	switch {
	case tpl.Degraded:
		return fmt.Errorf("%w: %s", types.ErrLowQuality, tpl.DegradedReason)
	case len(tpl.Minutiae) < cfg.MinMinutiae:
		return fmt.Errorf("%w: %d minutiae, need %d", types.ErrLowQuality, len(tpl.Minutiae), cfg.MinMinutiae)
	case len(tpl.Keypoints) < cfg.MinKeypoints:
		return fmt.Errorf("%w: %d keypoints, need %d", types.ErrLowQuality, len(tpl.Keypoints), cfg.MinKeypoints)
	}
	return nil
}

func (s *Service) enrollmentStatus(count int) (string, int) {
	remaining := max(s.cfg.Enrollment.MaxEnrollments-count, 0)
	if count >= s.cfg.Enrollment.MinEnrollments {
		return constants.ENROLLMENT_COMPLETE, remaining
	}
	return constants.ENROLLMENT_INCOMPLETE, remaining
}

func (s *Service) checkLimit(ctx context.Context, staffID string) error {
	count, err := s.store.Count(ctx, staffID)
	if err != nil {
		return err
	}
	if count >= s.cfg.Enrollment.MaxEnrollments {
		return fmt.Errorf("%w: %s already has %d templates", types.ErrEnrollmentLimit, staffID, count)
	}
	return nil
}

// Enroll extracts one scan and stores it as a new reference template.
func (s *Service) Enroll(ctx context.Context, staffID string, image []byte) (*EnrollResult, error) {
	if err := s.checkLimit(ctx, staffID); err != nil {
		return nil, err
	}
	tpl, err := s.extractor.Extract(image)
	if err != nil {
		return nil, err
	}
	if err := s.enrollable(tpl); err != nil {
		return nil, err
	}
	return s.save(ctx, staffID, tpl, image)
}

// EnrollMulti fuses several scans of one finger into a single master
// template before storing it.
func (s *Service) EnrollMulti(ctx context.Context, staffID string, images [][]byte) (*EnrollResult, error) {
	if err := s.checkLimit(ctx, staffID); err != nil {
		return nil, err
	}
	scans := make([]*types.Template, 0, len(images))
	for i, image := range images {
		tpl, err := s.extractor.Extract(image)
		if err != nil {
			return nil, fmt.Errorf("scan %d: %w", i+1, err)
		}
		if tpl.Degraded {
			logger.Warning("skipping degraded scan in fusion", logger.LoggerOptions{Key: "scan", Data: i + 1}, logger.LoggerOptions{Key: "reason", Data: tpl.DegradedReason})
			continue
		}
		scans = append(scans, tpl)
	}
	if len(scans) < s.cfg.Fusion.MinScans {
		return nil, fmt.Errorf("%w: only %d usable scans", types.ErrLowQuality, len(scans))
	}
	master, err := fusion.Fuse(scans, s.cfg.Fusion)
	if err != nil {
		return nil, err
	}
	if err := s.enrollable(master); err != nil {
		return nil, err
	}
	result, err := s.save(ctx, staffID, master, nil)
	if err != nil {
		return nil, err
	}
	result.ScansFused = len(scans)
	return result, nil
}

func (s *Service) save(ctx context.Context, staffID string, tpl *types.Template, image []byte) (*EnrollResult, error) {
	rec := entities.FingerprintTemplate{
		ID:       utils.GenerateUULDString(),
		StaffID:  staffID,
		Template: *tpl,
	}
	if image != nil && s.cfg.Store.StoreOriginalImage && s.archive != nil {
		key := fmt.Sprintf("%s/%s", staffID, rec.ID)
		if err := s.archive.UploadFile(ctx, key, image, "application/octet-stream"); err != nil {
			logger.Warning("raw scan not archived", logger.LoggerOptions{Key: "staffId", Data: staffID})
		} else {
			rec.ImageKey = &key
		}
	}

	_, count, err := s.store.Save(ctx, rec)
	if err != nil {
		if rec.ImageKey != nil {
			s.archive.DeleteFile(ctx, *rec.ImageKey)
		}
		if errors.Is(err, types.ErrEnrollmentLimit) {
			return nil, fmt.Errorf("%w: %s already has %d templates", types.ErrEnrollmentLimit, staffID, count)
		}
		return nil, err
	}
	status, remaining := s.enrollmentStatus(count)
	logger.Info("fingerprint enrolled", logger.LoggerOptions{Key: "staffId", Data: staffID}, logger.LoggerOptions{Key: "count", Data: count})
	return &EnrollResult{
		Success:       true,
		StaffID:       staffID,
		TemplateID:    rec.ID,
		EnrollCount:   count,
		EnrollStatus:  status,
		Remaining:     remaining,
		MinutiaeCount: len(tpl.Minutiae),
		KeypointCount: len(tpl.Keypoints),
		Quality:       tpl.Quality,
	}, nil
}
