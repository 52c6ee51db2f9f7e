package features

import (
	"fmt"

	"fingerprint.gateman.io/infrastructure/biometric/config"
	"fingerprint.gateman.io/infrastructure/biometric/preprocess"
	"fingerprint.gateman.io/infrastructure/biometric/types"
	"fingerprint.gateman.io/infrastructure/logger"
	"gocv.io/x/gocv"
)

// Keypoints runs ORB on the ridge map. When the primary detector finds
// nothing a permissive second configuration (lower FAST threshold, smaller
// patches) is tried before giving up.
func Keypoints(skel *types.Binary, cfg config.ExtractionConfig) ([]types.Keypoint, []types.Descriptor, error) {
	mat, err := preprocess.BinaryToMat(skel)
	if err != nil {
		return nil, nil, fmt.Errorf("converting skeleton: %w", err)
	}
	defer mat.Close()

	primary := gocv.NewORBWithParams(cfg.MaxKeypoints, float32(cfg.ORBScaleFactor), cfg.ORBLevels, 31, 0, 2, gocv.ORBScoreTypeHarris, 31, 20)
	defer primary.Close()
	kps, descs := detect(primary, mat)
	if len(kps) == 0 {
		logger.Info("primary keypoint detector found nothing, retrying with permissive detector")
		secondary := gocv.NewORBWithParams(cfg.MaxKeypoints, float32(cfg.ORBScaleFactor), cfg.ORBLevels, 15, 0, 2, gocv.ORBScoreTypeFAST, 15, 5)
		defer secondary.Close()
		kps, descs = detect(secondary, mat)
	}
	if len(kps) == 0 {
		return nil, nil, types.ErrNoFeaturesExtracted
	}

	limit := cfg.MaxKeypoints
	if cfg.MaxDescriptors < limit {
		limit = cfg.MaxDescriptors
	}
	if len(kps) > limit {
		kps, descs = kps[:limit], descs[:limit]
	}
	return kps, descs, nil
}

func detect(orb gocv.ORB, img gocv.Mat) ([]types.Keypoint, []types.Descriptor) {
	mask := gocv.NewMat()
	defer mask.Close()
	raw, desc := orb.DetectAndCompute(img, mask)
	defer desc.Close()
	if desc.Empty() || desc.Cols() != types.DescriptorSize || desc.Rows() != len(raw) {
		return nil, nil
	}
	data := desc.ToBytes()
	kps := make([]types.Keypoint, len(raw))
	descs := make([]types.Descriptor, len(raw))
	for i, kp := range raw {
		kps[i] = types.Keypoint{X: kp.X, Y: kp.Y, Scale: kp.Size, Orientation: kp.Angle, Strength: kp.Response}
		d := make(types.Descriptor, types.DescriptorSize)
		copy(d, data[i*types.DescriptorSize:(i+1)*types.DescriptorSize])
		descs[i] = d
	}
	return kps, descs
}
