package extractor

import (
	"errors"
	"image"

	"fingerprint.gateman.io/infrastructure/biometric/config"
	"fingerprint.gateman.io/infrastructure/biometric/features"
	"fingerprint.gateman.io/infrastructure/biometric/imageio"
	"fingerprint.gateman.io/infrastructure/biometric/minutiae"
	"fingerprint.gateman.io/infrastructure/biometric/preprocess"
	"fingerprint.gateman.io/infrastructure/biometric/quality"
	"fingerprint.gateman.io/infrastructure/biometric/types"
	"fingerprint.gateman.io/infrastructure/logger"
)

type Extractor struct {
	cfg        config.MatchingConfig
	preprocess *preprocess.Preprocessor
}

func New(cfg config.MatchingConfig) *Extractor {
	return &Extractor{cfg: cfg, preprocess: preprocess.New(cfg.Preprocess)}
}

// Extract decodes raw scan bytes and builds a template from them.
func (e *Extractor) Extract(data []byte) (*types.Template, error) {
	img, err := imageio.Decode(data)
	if err != nil {
		return nil, err
	}
	return e.ExtractImage(img)
}

// ExtractImage never fabricates features. When a stage comes back empty the
// template is marked degraded and extraction carries on with the rest.
func (e *Extractor) ExtractImage(img *image.Gray) (*types.Template, error) {
	pre, err := e.preprocess.Run(img)
	if err != nil {
		return nil, err
	}

	tpl := &types.Template{
		Width:    pre.Skeleton.Width,
		Height:   pre.Skeleton.Height,
		Strategy: pre.Strategy,
	}
	tpl.Minutiae = minutiae.Extract(pre.Skeleton, e.cfg.Extraction)

	kps, descs, err := features.Keypoints(pre.Skeleton, e.cfg.Extraction)
	switch {
	case errors.Is(err, types.ErrNoFeaturesExtracted):
	case err != nil:
		logger.Warning("keypoint extraction failed", logger.LoggerOptions{Key: "error", Data: err.Error()})
	default:
		tpl.Keypoints, tpl.Descriptors = kps, descs
	}

	if tpl.Hash, err = features.Hash(pre.Enhanced, e.cfg.Extraction.HashGrid); err != nil {
		logger.Warning("perceptual hash failed", logger.LoggerOptions{Key: "error", Data: err.Error()})
	}
	tpl.Texture = features.Texture(pre.Enhanced)
	if tpl.Pattern, err = features.Pattern(pre.Enhanced, pre.Skeleton); err != nil {
		logger.Warning("orientation pattern failed", logger.LoggerOptions{Key: "error", Data: err.Error()})
	}

	switch {
	case !tpl.HasKeypoints() && !tpl.HasMinutiae():
		tpl.Degraded, tpl.DegradedReason = true, "no keypoints or minutiae extracted"
	case !tpl.HasKeypoints():
		tpl.Degraded, tpl.DegradedReason = true, "no keypoints extracted"
	case !tpl.HasMinutiae():
		tpl.Degraded, tpl.DegradedReason = true, "no minutiae extracted"
	}
	if tpl.Degraded {
		logger.Warning("degraded fingerprint template", logger.LoggerOptions{Key: "reason", Data: tpl.DegradedReason})
	}

	tpl.Quality = quality.TemplateQuality(quality.Assess(tpl), pre.Contrast)
	return tpl, nil
}
