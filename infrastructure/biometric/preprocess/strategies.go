package preprocess

import (
	"math"

	"fingerprint.gateman.io/infrastructure/biometric/config"
	"gocv.io/x/gocv"
)

// BinarizationResult is what one thresholding strategy produced.
type BinarizationResult struct {
	Name       string
	Mask       gocv.Mat
	Foreground float64 // fraction of ridge pixels
	Err        error
}

type Strategy struct {
	Name  string
	Apply func(src gocv.Mat, dst *gocv.Mat) error
}

const adaptiveStrategy = "adaptive"

// Strategies returns the binarization methods in the order they are tried.
// Every strategy marks dark ridges as foreground.
func Strategies(cfg config.PreprocessConfig) []Strategy {
	return []Strategy{
		{Name: "otsu", Apply: func(src gocv.Mat, dst *gocv.Mat) error {
			gocv.Threshold(src, dst, 0, 255, gocv.ThresholdBinaryInv|gocv.ThresholdOtsu)
			return nil
		}},
		{Name: adaptiveStrategy, Apply: func(src gocv.Mat, dst *gocv.Mat) error {
			gocv.AdaptiveThreshold(src, dst, 255, gocv.AdaptiveThresholdGaussian, gocv.ThresholdBinaryInv, cfg.AdaptiveBlock, float32(cfg.AdaptiveC))
			return nil
		}},
		{Name: "fixed", Apply: func(src gocv.Mat, dst *gocv.Mat) error {
			gocv.Threshold(src, dst, float32(cfg.FixedThreshold), 255, gocv.ThresholdBinaryInv)
			return nil
		}},
	}
}

// Accepted reports whether a foreground fraction looks like a ridge map
// rather than a near empty or near full mask.
func Accepted(foreground, low, high float64) bool {
	return foreground >= low && foreground <= high
}

// SelectResult picks the accepted candidate closest to the centre of the
// ridge density band. When nothing is accepted the adaptive result wins,
// and failing that the first result without an error.
func SelectResult(results []BinarizationResult, low, high float64) int {
	centre := (low + high) / 2
	best := -1
	bestDist := math.Inf(1)
	for i, r := range results {
		if r.Err != nil || !Accepted(r.Foreground, low, high) {
			continue
		}
		if d := math.Abs(r.Foreground - centre); d < bestDist {
			best, bestDist = i, d
		}
	}
	if best >= 0 {
		return best
	}
	for i, r := range results {
		if r.Err == nil && r.Name == adaptiveStrategy {
			return i
		}
	}
	for i, r := range results {
		if r.Err == nil {
			return i
		}
	}
	return -1
}
