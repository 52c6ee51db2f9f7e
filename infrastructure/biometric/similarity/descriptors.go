package similarity

import (
	"fmt"
	"math"

	"fingerprint.gateman.io/infrastructure/biometric/config"
	"fingerprint.gateman.io/infrastructure/biometric/types"
	"gocv.io/x/gocv"
)

const minHomographyMatches = 4

func descriptorMat(descs []types.Descriptor) (gocv.Mat, error) {
	flat := make([]byte, 0, len(descs)*types.DescriptorSize)
	for _, d := range descs {
		if len(d) != types.DescriptorSize {
			return gocv.NewMat(), fmt.Errorf("descriptor of %d bytes, want %d", len(d), types.DescriptorSize)
		}
		flat = append(flat, d...)
	}
	return gocv.NewMatFromBytes(len(descs), types.DescriptorSize, gocv.MatTypeCV8UC1, flat)
}

func pointMat(points [][2]float64) gocv.Mat {
	m := gocv.NewMatWithSize(len(points), 1, gocv.MatTypeCV64FC2)
	for i, p := range points {
		m.SetDoubleAt(i, 0, p[0])
		m.SetDoubleAt(i, 1, p[1])
	}
	return m
}

// DescriptorSimilarity combines the ratio-test match rate, the mean match
// distance and the RANSAC homography inlier rate of two keypoint sets.
func DescriptorSimilarity(p, c *types.Template, cfg config.SimilarityConfig) (float64, error) {
	if !p.HasKeypoints() || !c.HasKeypoints() {
		return 0, nil
	}
	query, err := descriptorMat(p.Descriptors)
	if err != nil {
		return 0, err
	}
	defer query.Close()
	train, err := descriptorMat(c.Descriptors)
	if err != nil {
		return 0, err
	}
	defer train.Close()

	matcher := gocv.NewBFMatcherWithParams(gocv.NormHamming, false)
	defer matcher.Close()

	var good []gocv.DMatch
	for _, pair := range matcher.KnnMatch(query, train, 2) {
		if len(pair) < 2 {
			continue
		}
		if pair[0].Distance < cfg.LoweRatio*pair[1].Distance {
			good = append(good, pair[0])
		}
	}
	if len(good) == 0 {
		return 0, nil
	}

	smaller := math.Min(float64(len(p.Keypoints)), float64(len(c.Keypoints)))
	matchRatio := math.Min(float64(len(good))/smaller, 1)

	total := 0.0
	for _, m := range good {
		total += m.Distance
	}
	distanceScore := clamp(1 - total/float64(len(good))/cfg.DescriptorDistanceNorm)

	geometric := 0.0
	if len(good) >= minHomographyMatches {
		geometric = inlierRatio(p, c, good, cfg.RansacThreshold)
	}
	return clamp(0.4*matchRatio + 0.3*distanceScore + 0.3*geometric), nil
}

func inlierRatio(p, c *types.Template, matches []gocv.DMatch, threshold float64) float64 {
	srcPts := make([][2]float64, len(matches))
	dstPts := make([][2]float64, len(matches))
	for i, m := range matches {
		srcPts[i] = [2]float64{p.Keypoints[m.QueryIdx].X, p.Keypoints[m.QueryIdx].Y}
		dstPts[i] = [2]float64{c.Keypoints[m.TrainIdx].X, c.Keypoints[m.TrainIdx].Y}
	}
	src := pointMat(srcPts)
	defer src.Close()
	dst := pointMat(dstPts)
	defer dst.Close()
	mask := gocv.NewMat()
	defer mask.Close()

	h := gocv.FindHomography(src, &dst, gocv.HomographyMethodRANSAC, threshold, &mask, 2000, 0.995)
	defer h.Close()
	if h.Empty() || mask.Empty() {
		return 0
	}
	return float64(gocv.CountNonZero(mask)) / float64(len(matches))
}
