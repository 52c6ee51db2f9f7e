package similarity

import (
	"math"

	"fingerprint.gateman.io/infrastructure/biometric/config"
	"fingerprint.gateman.io/infrastructure/biometric/minutiae"
	"fingerprint.gateman.io/infrastructure/biometric/types"
)

func pairCost(a, b types.Minutia, cfg config.SimilarityConfig) float64 {
	dist := math.Hypot(float64(a.X-b.X), float64(a.Y-b.Y))
	cost := 0.7*math.Min(dist/cfg.MinutiaeDistanceNorm, 1) + 0.2*minutiae.CircularDiff(a.Direction, b.Direction)/180
	if a.Type != b.Type {
		cost += 0.1
	}
	return cost
}

// MinutiaeSimilarity scores the optimal one to one pairing of two minutiae
// sets.
func MinutiaeSimilarity(p, c []types.Minutia, cfg config.SimilarityConfig) float64 {
	if len(p) == 0 || len(c) == 0 {
		return 0
	}
	cost := make([][]float64, len(p))
	for i := range p {
		cost[i] = make([]float64, len(c))
		for j := range c {
			cost[i][j] = pairCost(p[i], c[j], cfg)
		}
	}
	good := 0
	goodCost := 0.0
	for i, j := range Assign(cost) {
		if j < 0 {
			continue
		}
		if cost[i][j] < cfg.GoodMatchCost {
			good++
			goodCost += cost[i][j]
		}
	}
	larger := math.Max(float64(len(p)), float64(len(c)))
	smaller := math.Min(float64(len(p)), float64(len(c)))
	score := 0.6*float64(good)/larger + 0.2*smaller/larger
	if good > 0 {
		score += 0.2 * (1 - goodCost/float64(good))
	}
	return clamp(score)
}
