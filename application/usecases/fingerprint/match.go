package fingerprint_usecase

import (
	"context"

	"fingerprint.gateman.io/infrastructure/biometric/types"
	"fingerprint.gateman.io/infrastructure/logger"
)

// Match identifies the probe among every enrolled subject. Finding nobody
// is a normal outcome, not an error.
func (s *Service) Match(ctx context.Context, image []byte, threshold float64) (*MatchOutcome, error) {
	started := s.now()
	probe, err := s.extractor.Extract(image)
	if err != nil {
		return nil, err
	}
	all, err := s.store.ListAll(ctx)
	if err != nil {
		return nil, err
	}
	population, err := s.matcher.MatchPopulation(ctx, probe, all, threshold)
	if err != nil {
		return nil, err
	}

	outcome := &MatchOutcome{
		Confidence:        types.ConfidenceNone,
		Threshold:         s.threshold(threshold),
		Ambiguous:         population.Ambiguous,
		SubjectsCompared:  population.SubjectsCompared,
		FailedComparisons: population.FailedComparisons,
		Candidates:        population.Candidates,
		ProbeQuality:      probe.QualityRatio(),
	}
	if best := population.Best; best != nil {
		outcome.Score = best.Score
		outcome.Threshold = best.EffectiveThreshold
		if best.Matched {
			outcome.Matched = true
			outcome.StaffID = best.StaffID
			outcome.Confidence = best.Confidence
		}
	}
	outcome.ElapsedMS = s.now().Sub(started).Milliseconds()
	logger.Info("fingerprint match completed", logger.LoggerOptions{Key: "matched", Data: outcome.Matched}, logger.LoggerOptions{Key: "score", Data: outcome.Score})
	return outcome, nil
}

// Verify checks the probe against one claimed subject.
func (s *Service) Verify(ctx context.Context, staffID string, image []byte, threshold float64) (*VerifyOutcome, error) {
	started := s.now()
	probe, err := s.extractor.Extract(image)
	if err != nil {
		return nil, err
	}
	templates, err := s.store.ListTemplates(ctx, staffID)
	if err != nil {
		return nil, err
	}
	result, err := s.matcher.MatchSubject(probe, staffID, templates, threshold)
	if err != nil {
		return nil, err
	}
	return &VerifyOutcome{
		MatchResult:  result,
		ProbeQuality: probe.QualityRatio(),
		ElapsedMS:    s.now().Sub(started).Milliseconds(),
	}, nil
}

func (s *Service) threshold(requested float64) float64 {
	if requested > 0 {
		return requested
	}
	return s.cfg.Matcher.Threshold
}
