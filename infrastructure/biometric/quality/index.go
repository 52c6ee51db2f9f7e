package quality

import (
	"fmt"
	"math"

	"fingerprint.gateman.io/infrastructure/biometric/types"
)

const (
	LabelExcellent = "Excellent"
	LabelGood      = "Good"
	LabelAverage   = "Average"
	LabelPoor      = "Poor"
	LabelVeryPoor  = "Very Poor"
)

type band struct {
	min   int
	score float64
}

var (
	minutiaeBands = []band{{40, 0.3}, {25, 0.2}, {15, 0.1}}
	keypointBands = []band{{100, 0.3}, {50, 0.2}, {25, 0.1}}
)

const entropySample = 10

type Report struct {
	Score         float64  `json:"score"`
	Label         string   `json:"label"`
	MinutiaeScore float64  `json:"minutiaeScore"`
	KeypointScore float64  `json:"keypointScore"`
	Entropy       float64  `json:"entropy"`
	Factors       []string `json:"factors"`
}

func bandScore(count int, bands []band) float64 {
	for _, b := range bands {
		if count >= b.min {
			return b.score
		}
	}
	return 0
}

// DescriptorEntropy is the Shannon entropy of a 16 bin histogram over the
// byte values of the first descriptors, normalised to [0,1].
func DescriptorEntropy(descs []types.Descriptor) float64 {
	var hist [16]int
	total := 0
	for i, d := range descs {
		if i == entropySample {
			break
		}
		for _, v := range d {
			hist[v>>4]++
			total++
		}
	}
	if total == 0 {
		return 0
	}
	entropy := 0.0
	for _, c := range hist {
		if c == 0 {
			continue
		}
		p := float64(c) / float64(total)
		entropy -= p * math.Log2(p)
	}
	return entropy / 4
}

func Label(score float64) string {
	switch {
	case score >= 0.8:
		return LabelExcellent
	case score >= 0.6:
		return LabelGood
	case score >= 0.4:
		return LabelAverage
	case score >= 0.2:
		return LabelPoor
	}
	return LabelVeryPoor
}

// Assess rates a template with a fixed rubric. The result only depends on
// the template's features.
func Assess(t *types.Template) Report {
	r := Report{Factors: []string{}}
	if t == nil {
		r.Label = Label(0)
		return r
	}
	r.MinutiaeScore = bandScore(len(t.Minutiae), minutiaeBands)
	r.KeypointScore = bandScore(len(t.Keypoints), keypointBands)
	r.Entropy = DescriptorEntropy(t.Descriptors)
	r.Score = r.MinutiaeScore + r.KeypointScore

	r.Factors = append(r.Factors, fmt.Sprintf("%d minutiae", len(t.Minutiae)), fmt.Sprintf("%d keypoints", len(t.Keypoints)))
	switch {
	case r.Entropy > 0.7:
		r.Score += 0.2
		r.Factors = append(r.Factors, "high descriptor diversity")
	case r.Entropy > 0.5:
		r.Score += 0.1
		r.Factors = append(r.Factors, "moderate descriptor diversity")
	default:
		r.Factors = append(r.Factors, "low descriptor diversity")
	}
	if t.Texture != nil {
		r.Score += 0.1
	}
	if t.Pattern != nil {
		r.Score += 0.1
	}
	if t.Degraded {
		r.Factors = append(r.Factors, "degraded extraction: "+t.DegradedReason)
	}
	// band sums are multiples of 0.1; rounding keeps label edges exact
	r.Score = math.Min(math.Round(r.Score*1e6)/1e6, 1)
	r.Label = Label(r.Score)
	return r
}

// TemplateQuality converts a report into the sub scores stored on the
// template, all on a 0..100 scale.
func TemplateQuality(r Report, contrast float64) types.TemplateQuality {
	return types.TemplateQuality{
		Score:         r.Score * 100,
		Contrast:      contrast * 100,
		FeatureCount:  r.KeypointScore / 0.3 * 100,
		MinutiaeCount: r.MinutiaeScore / 0.3 * 100,
		Label:         r.Label,
	}
}
