package similarity

import (
	"math"

	"fingerprint.gateman.io/infrastructure/biometric/config"
	"fingerprint.gateman.io/infrastructure/biometric/types"
)

type Engine struct {
	cfg config.SimilarityConfig
}

func NewEngine(cfg config.SimilarityConfig) *Engine {
	return &Engine{cfg: cfg}
}

// Enhance compresses scores below the knee and expands those above it,
// capped at 1. The curve is continuous at the knee.
func Enhance(raw float64, cfg config.SimilarityConfig) float64 {
	if raw < cfg.Knee {
		return clamp(raw * cfg.LowGain)
	}
	return math.Min(cfg.Knee*cfg.LowGain+(raw-cfg.Knee)*cfg.HighGain, 1)
}

// Compare computes every sub score of probe p against candidate c.
func (e *Engine) Compare(p, c *types.Template) (types.SimilarityBreakdown, error) {
	b := types.SimilarityBreakdown{Hash: HashSimilarity(p.Hash, c.Hash)}

	// Legacy or degraded candidates without spatial features would score
	// zero on most channels; compare on the hash alone and scale it down.
	if p.HasKeypoints() && p.HasMinutiae() && (!c.HasKeypoints() || !c.HasMinutiae()) {
		b.HashOnly = true
		b.Raw = b.Hash * e.cfg.DegradedHashScale
		b.Final = b.Raw
		return b, nil
	}

	desc, err := DescriptorSimilarity(p, c, e.cfg)
	if err != nil {
		return b, err
	}
	b.Descriptors = desc
	b.Minutiae = MinutiaeSimilarity(p.Minutiae, c.Minutiae, e.cfg)
	b.Texture = TextureSimilarity(p.Texture, c.Texture)
	b.Pattern = PatternSimilarity(p.Pattern, c.Pattern)

	b.Raw = clamp(e.cfg.HashWeight*b.Hash +
		e.cfg.DescriptorWeight*b.Descriptors +
		e.cfg.MinutiaeWeight*b.Minutiae +
		e.cfg.TextureWeight*b.Texture +
		e.cfg.PatternWeight*b.Pattern)
	b.Final = Enhance(b.Raw, e.cfg)
	return b, nil
}

// Score returns the final enhanced similarity of p against c.
func (e *Engine) Score(p, c *types.Template) (float64, error) {
	b, err := e.Compare(p, c)
	if err != nil {
		return 0, err
	}
	return b.Final, nil
}
