package similarity

import (
	"math"

	"fingerprint.gateman.io/infrastructure/biometric/types"
	"gonum.org/v1/gonum/stat"
)

// HashSimilarity is 1 minus the normalised Hamming distance over the shared
// prefix of both hashes.
func HashSimilarity(a, b types.BitString) float64 {
	n := a.Length
	if b.Length < n {
		n = b.Length
	}
	if n <= 0 {
		return 0
	}
	return 1 - float64(types.HammingPrefix(a, b, n))/float64(n)
}

// channelSimilarity maps the Pearson correlation of two channels to [0,1].
// A constant channel has no correlation, so the mean absolute difference
// over scale is used instead.
func channelSimilarity(x, y []float64, scale float64) float64 {
	c := stat.Correlation(x, y, nil)
	if !math.IsNaN(c) && !math.IsInf(c, 0) {
		return clamp((c + 1) / 2)
	}
	diff := 0.0
	for i := range x {
		diff += math.Abs(x[i] - y[i])
	}
	return clamp(1 - diff/float64(len(x))/scale)
}

func TextureSimilarity(a, b *types.TextureGrid) float64 {
	if a == nil || b == nil {
		return 0
	}
	n := types.TextureGridSize * types.TextureGridSize
	am, as := make([]float64, 0, n), make([]float64, 0, n)
	bm, bs := make([]float64, 0, n), make([]float64, 0, n)
	for y := 0; y < types.TextureGridSize; y++ {
		for x := 0; x < types.TextureGridSize; x++ {
			am, as = append(am, a[y][x].Mean), append(as, a[y][x].StdDev)
			bm, bs = append(bm, b[y][x].Mean), append(bs, b[y][x].StdDev)
		}
	}
	return (channelSimilarity(am, bm, 255) + channelSimilarity(as, bs, 128)) / 2
}

// PatternSimilarity compares ridge density and orientation. Orientation is
// compared through cos/sin of the doubled angle so that 0 and π agree.
func PatternSimilarity(a, b *types.PatternGrid) float64 {
	if a == nil || b == nil {
		return 0
	}
	n := types.PatternGridSize * types.PatternGridSize
	channels := [6][]float64{}
	for i := range channels {
		channels[i] = make([]float64, 0, n)
	}
	for y := 0; y < types.PatternGridSize; y++ {
		for x := 0; x < types.PatternGridSize; x++ {
			ca, cb := a[y][x], b[y][x]
			channels[0] = append(channels[0], ca.RidgeDensity)
			channels[1] = append(channels[1], cb.RidgeDensity)
			channels[2] = append(channels[2], math.Cos(2*ca.DominantAngle))
			channels[3] = append(channels[3], math.Cos(2*cb.DominantAngle))
			channels[4] = append(channels[4], math.Sin(2*ca.DominantAngle))
			channels[5] = append(channels[5], math.Sin(2*cb.DominantAngle))
		}
	}
	return (channelSimilarity(channels[0], channels[1], 1) +
		channelSimilarity(channels[2], channels[3], 2) +
		channelSimilarity(channels[4], channels[5], 2)) / 3
}

func clamp(v float64) float64 {
	switch {
	case math.IsNaN(v), v < 0:
		return 0
	case v > 1:
		return 1
	}
	return v
}
