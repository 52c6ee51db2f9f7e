package matcher

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"

	"fingerprint.gateman.io/infrastructure/biometric/config"
	"fingerprint.gateman.io/infrastructure/biometric/types"
	"fingerprint.gateman.io/infrastructure/logger"
	"github.com/emirpasic/gods/trees/binaryheap"
	"golang.org/x/sync/errgroup"
)

// Scorer returns the final similarity of a probe against one candidate.
type Scorer interface {
	Score(probe, candidate *types.Template) (float64, error)
}

type Matcher struct {
	cfg    config.MatcherConfig
	scorer Scorer
}

func New(cfg config.MatcherConfig, scorer Scorer) *Matcher {
	return &Matcher{cfg: cfg, scorer: scorer}
}

// CheckProbe rejects probes that are degraded or fall under the minimum
// quality ratio.
func (m *Matcher) CheckProbe(probe *types.Template) error {
	if probe == nil {
		return fmt.Errorf("%w: empty probe", types.ErrLowQuality)
	}
	if probe.Degraded {
		return fmt.Errorf("%w: %s", types.ErrLowQuality, probe.DegradedReason)
	}
	if probe.QualityRatio() < m.cfg.ProbeMinQuality {
		return fmt.Errorf("%w: quality %.2f below %.2f", types.ErrLowQuality, probe.QualityRatio(), m.cfg.ProbeMinQuality)
	}
	return nil
}

// AdjustedThreshold lowers the base threshold for subjects with several
// high quality templates and raises it for poorly enrolled ones. A single
// template under PoorTemplateQuality is enough to raise it, whatever the
// quality of the others.
func (m *Matcher) AdjustedThreshold(base float64, templates []*types.Template) float64 {
	if len(templates) == 0 {
		return base
	}
	total, weakest := 0.0, 1.0
	for _, t := range templates {
		q := t.QualityRatio()
		total += q
		weakest = min(weakest, q)
	}
	mean := total / float64(len(templates))
	switch {
	case mean < m.cfg.LowQualityMean || weakest < m.cfg.PoorTemplateQuality:
		return base * m.cfg.RaiseFactor
	case len(templates) >= m.cfg.LowerMinTemplates && mean >= m.cfg.HighQualityMean:
		return base * m.cfg.LowerFactor
	}
	return base
}

func (m *Matcher) Confidence(score, threshold float64) types.Confidence {
	switch {
	case score < threshold:
		return types.ConfidenceNone
	case score > threshold*m.cfg.HighConfidenceRatio:
		return types.ConfidenceHigh
	case score > threshold*m.cfg.MediumConfidenceRatio:
		return types.ConfidenceMedium
	}
	return types.ConfidenceLow
}

// MatchSubject scores the probe against every template of one subject and
// decides on the best of them. A zero threshold means the configured one.
// Templates that fail to compare are skipped and counted in the result's
// FailedComparisons.
func (m *Matcher) MatchSubject(probe *types.Template, staffID string, templates []*types.Template, threshold float64) (types.MatchResult, error) {
	if threshold <= 0 {
		threshold = m.cfg.Threshold
	}
	result := types.MatchResult{
		StaffID:       staffID,
		TemplateIndex: -1,
		TemplateCount: len(templates),
		BaseThreshold: threshold,
		Confidence:    types.ConfidenceNone,
		State:         types.StateInit,
	}
	if probe == nil {
		return result, fmt.Errorf("%w: empty probe", types.ErrLowQuality)
	}
	result.State = types.StateFeatureExtracted

	if err := m.CheckProbe(probe); err != nil {
		result.State = types.StateRejectedQuality
		return result, err
	}
	result.State = types.StateQualityChecked

	if len(templates) == 0 {
		return result, fmt.Errorf("%w: %s", types.ErrNoTemplatesForSubject, staffID)
	}

	var lastErr error
	for i, t := range templates {
		score, err := m.scorer.Score(probe, t)
		if err != nil {
			lastErr = err
			result.FailedComparisons++
			logger.Warning("template comparison failed", logger.LoggerOptions{Key: "staffId", Data: staffID})
			continue
		}
		if result.TemplateIndex < 0 || score > result.Score {
			result.Score, result.TemplateIndex = score, i
		}
	}
	if result.TemplateIndex < 0 {
		return result, fmt.Errorf("comparing against %s: %w", staffID, lastErr)
	}
	result.State = types.StateScored

	result.EffectiveThreshold = m.AdjustedThreshold(threshold, templates)
	if result.Score >= result.EffectiveThreshold {
		result.Matched = true
		result.State = types.StateAccepted
		result.Confidence = m.Confidence(result.Score, result.EffectiveThreshold)
	} else {
		result.State = types.StateRejectedScore
	}
	return result, nil
}

func groupBySubject(all []types.SubjectTemplate) ([]string, map[string][]*types.Template) {
	order := []string{}
	groups := map[string][]*types.Template{}
	for _, st := range all {
		if _, ok := groups[st.StaffID]; !ok {
			order = append(order, st.StaffID)
		}
		groups[st.StaffID] = append(groups[st.StaffID], st.Template)
	}
	return order, groups
}

func byScoreDesc(a, b interface{}) int {
	sa, sb := a.(types.MatchResult).Score, b.(types.MatchResult).Score
	switch {
	case sa > sb:
		return -1
	case sa < sb:
		return 1
	}
	return 0
}

// MatchPopulation runs MatchSubject for every enrolled subject on a bounded
// worker pool. FailedComparisons counts template comparisons: each template
// that failed to score, and every template of a subject whose matching
// panicked.
func (m *Matcher) MatchPopulation(ctx context.Context, probe *types.Template, all []types.SubjectTemplate, threshold float64) (*types.PopulationResult, error) {
	if err := m.CheckProbe(probe); err != nil {
		return nil, err
	}
	order, groups := groupBySubject(all)
	out := &types.PopulationResult{Candidates: []types.MatchResult{}}
	if len(order) == 0 {
		return out, nil
	}

	var (
		mu      sync.Mutex
		failed  atomic.Int64
		results = make([]types.MatchResult, 0, len(order))
	)
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(m.cfg.Workers)
	for _, staffID := range order {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			defer func() {
				if r := recover(); r != nil {
					failed.Add(int64(len(groups[staffID])))
					logger.Error("panic while matching subject", logger.LoggerOptions{Key: "staffId", Data: staffID}, logger.LoggerOptions{Key: "panic", Data: fmt.Sprint(r)})
				}
			}()
			res, err := m.MatchSubject(probe, staffID, groups[staffID], threshold)
			failed.Add(int64(res.FailedComparisons))
			if err != nil {
				return nil
			}
			mu.Lock()
			results = append(results, res)
			mu.Unlock()
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	out.SubjectsCompared = len(results)
	out.FailedComparisons = int(failed.Load())

	heap := binaryheap.NewWith(byScoreDesc)
	for _, r := range results {
		heap.Push(r)
	}
	for len(out.Candidates) < m.cfg.TopCandidates {
		v, ok := heap.Pop()
		if !ok {
			break
		}
		out.Candidates = append(out.Candidates, v.(types.MatchResult))
	}
	if len(out.Candidates) == 0 {
		return out, nil
	}

	best := out.Candidates[0]
	if best.Matched && len(out.Candidates) > 1 && best.Score-out.Candidates[1].Score <= m.cfg.AmbiguityGap {
		best.Confidence = types.ConfidenceLow
		out.Ambiguous = true
		out.Candidates[0] = best
	}
	out.Best = &best
	return out, nil
}
