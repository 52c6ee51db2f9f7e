package config

import (
	"errors"
	"fmt"
	"math"
	"os"
	"strconv"
	"time"

	"fingerprint.gateman.io/infrastructure/logger"
	"github.com/BurntSushi/toml"
	"github.com/mcuadros/go-defaults"
)

type PreprocessConfig struct {
	WorkingSize    int     `toml:"working_size" default:"500"`
	LowContrastStd float64 `toml:"low_contrast_std" default:"5"`
	ClaheClip      float64 `toml:"clahe_clip" default:"3.0"`
	ClaheTile      int     `toml:"clahe_tile" default:"8"`
	ClaheBlend     float64 `toml:"clahe_blend" default:"0.7"`
	AdaptiveBlock  int     `toml:"adaptive_block" default:"25"`
	AdaptiveC      float64 `toml:"adaptive_c" default:"5"`
	FixedThreshold float64 `toml:"fixed_threshold" default:"127"`
	RidgeBandLow   float64 `toml:"ridge_band_low" default:"0.15"`
	RidgeBandHigh  float64 `toml:"ridge_band_high" default:"0.70"`
	MinRidgePixels int     `toml:"min_ridge_pixels" default:"1000"`
}

type ExtractionConfig struct {
	MaxKeypoints        int     `toml:"max_keypoints" default:"1000"`
	MaxDescriptors      int     `toml:"max_descriptors" default:"1000"`
	MaxMinutiae         int     `toml:"max_minutiae" default:"100"`
	BorderMargin        int     `toml:"border_margin" default:"10"`
	MinMinutiaeDistance float64 `toml:"min_minutiae_distance" default:"8"`
	DirectionTraceSteps int     `toml:"direction_trace_steps" default:"6"`
	ORBScaleFactor      float64 `toml:"orb_scale_factor" default:"1.2"`
	ORBLevels           int     `toml:"orb_levels" default:"8"`
	HashGrid            int     `toml:"hash_grid" default:"32"`
}

type SimilarityConfig struct {
	HashWeight             float64 `toml:"hash_weight" default:"0.1"`
	DescriptorWeight       float64 `toml:"descriptor_weight" default:"0.4"`
	MinutiaeWeight         float64 `toml:"minutiae_weight" default:"0.4"`
	TextureWeight          float64 `toml:"texture_weight" default:"0.05"`
	PatternWeight          float64 `toml:"pattern_weight" default:"0.05"`
	LoweRatio              float64 `toml:"lowe_ratio" default:"0.8"`
	DescriptorDistanceNorm float64 `toml:"descriptor_distance_norm" default:"64"`
	RansacThreshold        float64 `toml:"ransac_threshold" default:"5.0"`
	MinutiaeDistanceNorm   float64 `toml:"minutiae_distance_norm" default:"30"`
	GoodMatchCost          float64 `toml:"good_match_cost" default:"0.25"`
	Knee                   float64 `toml:"knee" default:"0.4"`
	LowGain                float64 `toml:"low_gain" default:"0.9"`
	HighGain               float64 `toml:"high_gain" default:"1.5"`
	DegradedHashScale      float64 `toml:"degraded_hash_scale" default:"0.4"`
}

type MatcherConfig struct {
	Threshold             float64 `toml:"threshold" default:"0.36"`
	ProbeMinQuality       float64 `toml:"probe_min_quality" default:"0.2"`
	HighQualityMean       float64 `toml:"high_quality_mean" default:"0.7"`
	LowQualityMean        float64 `toml:"low_quality_mean" default:"0.5"`
	PoorTemplateQuality   float64 `toml:"poor_template_quality" default:"0.4"`
	LowerFactor           float64 `toml:"lower_factor" default:"0.9"`
	RaiseFactor           float64 `toml:"raise_factor" default:"1.1"`
	LowerMinTemplates     int     `toml:"lower_min_templates" default:"3"`
	HighConfidenceRatio   float64 `toml:"high_confidence_ratio" default:"1.2"`
	MediumConfidenceRatio float64 `toml:"medium_confidence_ratio" default:"1.1"`
	AmbiguityGap          float64 `toml:"ambiguity_gap" default:"0.1"`
	Workers               int     `toml:"workers" default:"8"`
	TopCandidates         int     `toml:"top_candidates" default:"5"`
}

type EnrollmentConfig struct {
	MinEnrollments int `toml:"min_enrollments" default:"2"`
	MaxEnrollments int `toml:"max_enrollments" default:"5"`
	MinMinutiae    int `toml:"min_minutiae" default:"10"`
	MinKeypoints   int `toml:"min_keypoints" default:"50"`
}

type FusionConfig struct {
	Radius         float64 `toml:"radius" default:"6"`
	KeypointBucket float64 `toml:"keypoint_bucket" default:"8"`
	MinScans       int     `toml:"min_scans" default:"2"`
}

type StoreConfig struct {
	LocalDataPath      string        `toml:"local_data_path" default:"fingerprint_data"`
	SyncInterval       time.Duration `toml:"sync_interval" default:"300s"`
	MinSyncInterval    time.Duration `toml:"min_sync_interval" default:"60s"`
	CountCacheTTL      time.Duration `toml:"count_cache_ttl" default:"60s"`
	StoreOriginalImage bool          `toml:"store_original_image" default:"false"`
}

// MatchingConfig gathers every tunable used by extraction and matching.
type MatchingConfig struct {
	Preprocess PreprocessConfig `toml:"preprocess"`
	Extraction ExtractionConfig `toml:"extraction"`
	Similarity SimilarityConfig `toml:"similarity"`
	Matcher    MatcherConfig    `toml:"matcher"`
	Enrollment EnrollmentConfig `toml:"enrollment"`
	Fusion     FusionConfig     `toml:"fusion"`
	Store      StoreConfig      `toml:"store"`
}

func Default() MatchingConfig {
	cfg := MatchingConfig{}
	defaults.SetDefaults(&cfg)
	return cfg
}

// Load builds the config from defaults, the optional TOML file named by
// MATCHING_CONFIG_FILE and finally the flat environment overrides.
func Load() (MatchingConfig, error) {
	cfg := Default()
	if path := os.Getenv("MATCHING_CONFIG_FILE"); path != "" {
		if _, err := toml.DecodeFile(path, &cfg); err != nil {
			return cfg, fmt.Errorf("reading matching config %s: %w", path, err)
		}
		logger.Info("matching config file loaded", logger.LoggerOptions{Key: "path", Data: path})
	}
	if err := cfg.applyEnv(os.Getenv); err != nil {
		return cfg, err
	}
	if cfg.Store.SyncInterval < cfg.Store.MinSyncInterval {
		cfg.Store.SyncInterval = cfg.Store.MinSyncInterval
	}
	return cfg, cfg.Validate()
}

func (cfg *MatchingConfig) applyEnv(getenv func(string) string) error {
	floats := map[string]*float64{
		"MATCH_THRESHOLD": &cfg.Matcher.Threshold,
	}
	ints := map[string]*int{
		"MIN_ENROLLMENTS": &cfg.Enrollment.MinEnrollments,
		"MAX_ENROLLMENTS": &cfg.Enrollment.MaxEnrollments,
		"MAX_KEYPOINTS":   &cfg.Extraction.MaxKeypoints,
		"MAX_MINUTIAE":    &cfg.Extraction.MaxMinutiae,
		"MAX_DESCRIPTORS": &cfg.Extraction.MaxDescriptors,
		"MATCH_WORKERS":   &cfg.Matcher.Workers,
	}
	for key, dst := range floats {
		if raw := getenv(key); raw != "" {
			v, err := strconv.ParseFloat(raw, 64)
			if err != nil {
				return fmt.Errorf("invalid %s %q: %w", key, raw, err)
			}
			*dst = v
		}
	}
	for key, dst := range ints {
		if raw := getenv(key); raw != "" {
			v, err := strconv.Atoi(raw)
			if err != nil {
				return fmt.Errorf("invalid %s %q: %w", key, raw, err)
			}
			*dst = v
		}
	}
	if raw := getenv("LOCAL_DATA_PATH"); raw != "" {
		cfg.Store.LocalDataPath = raw
	}
	if raw := getenv("SYNC_INTERVAL_SECONDS"); raw != "" {
		v, err := strconv.Atoi(raw)
		if err != nil {
			return fmt.Errorf("invalid SYNC_INTERVAL_SECONDS %q: %w", raw, err)
		}
		cfg.Store.SyncInterval = time.Duration(v) * time.Second
	}
	if raw := getenv("STORE_ORIGINAL_IMAGE"); raw != "" {
		cfg.Store.StoreOriginalImage = raw == "true" || raw == "1"
	}
	return nil
}

func (cfg MatchingConfig) Validate() error {
	var errs []error
	if cfg.Matcher.Threshold <= 0 || cfg.Matcher.Threshold >= 1 {
		errs = append(errs, fmt.Errorf("match threshold must be in (0,1), got %v", cfg.Matcher.Threshold))
	}
	if cfg.Enrollment.MinEnrollments < 1 || cfg.Enrollment.MaxEnrollments < cfg.Enrollment.MinEnrollments {
		errs = append(errs, fmt.Errorf("enrollment bounds [%d,%d] are invalid", cfg.Enrollment.MinEnrollments, cfg.Enrollment.MaxEnrollments))
	}
	s := cfg.Similarity
	if sum := s.HashWeight + s.DescriptorWeight + s.MinutiaeWeight + s.TextureWeight + s.PatternWeight; math.Abs(sum-1) > 1e-6 {
		errs = append(errs, fmt.Errorf("similarity weights must sum to 1, got %v", sum))
	}
	if s.Knee <= 0 || s.Knee >= 1 || s.LowGain <= 0 || s.HighGain <= 0 {
		errs = append(errs, errors.New("enhancement curve parameters must be positive with knee in (0,1)"))
	}
	if cfg.Preprocess.RidgeBandLow >= cfg.Preprocess.RidgeBandHigh {
		errs = append(errs, errors.New("ridge density band is empty"))
	}
	if cfg.Preprocess.AdaptiveBlock%2 == 0 {
		errs = append(errs, errors.New("adaptive block size must be odd"))
	}
	if cfg.Extraction.MaxKeypoints <= 0 || cfg.Extraction.MaxMinutiae <= 0 {
		errs = append(errs, errors.New("feature caps must be positive"))
	}
	if cfg.Matcher.Workers <= 0 {
		errs = append(errs, errors.New("match workers must be positive"))
	}
	return errors.Join(errs...)
}
