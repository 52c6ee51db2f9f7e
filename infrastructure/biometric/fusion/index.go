package fusion

import (
	"fmt"
	"math"
	"sort"

	"fingerprint.gateman.io/infrastructure/biometric/config"
	"fingerprint.gateman.io/infrastructure/biometric/quality"
	"fingerprint.gateman.io/infrastructure/biometric/types"
)

const Strategy = "fused"

// Fuse merges several scans of the same finger into one master template.
// Minutiae only survive when seen in at least MinScans different scans.
// Keypoints and descriptors come from the best quality scan so that they
// stay index aligned.
func Fuse(templates []*types.Template, cfg config.FusionConfig) (*types.Template, error) {
	scans := make([]*types.Template, 0, len(templates))
	for _, t := range templates {
		if t != nil {
			scans = append(scans, t)
		}
	}
	if len(scans) < cfg.MinScans || len(scans) == 0 {
		return nil, fmt.Errorf("fusion needs at least %d scans, got %d", cfg.MinScans, len(scans))
	}

	best := scans[0]
	for _, t := range scans[1:] {
		if t.Quality.Score > best.Quality.Score {
			best = t
		}
	}

	master := &types.Template{
		Hash:     VoteHash(scans),
		Minutiae: ClusterMinutiae(scans, cfg.Radius, cfg.MinScans),
		Texture:  averageTexture(scans),
		Pattern:  averagePattern(scans),
		Width:    best.Width,
		Height:   best.Height,
		Strategy: Strategy,
	}
	master.Keypoints, master.Descriptors = bucketKeypoints(best, cfg.KeypointBucket)

	if !master.HasMinutiae() || !master.HasKeypoints() {
		master.Degraded, master.DegradedReason = true, "fused scans share too few features"
	}
	contrast := 0.0
	for _, t := range scans {
		contrast += t.Quality.Contrast
	}
	master.Quality = quality.TemplateQuality(quality.Assess(master), contrast/float64(len(scans))/100)
	return master, nil
}

// VoteHash sets each bit by majority over the scans that carry it; ties
// resolve to 1.
func VoteHash(scans []*types.Template) types.BitString {
	length := 0
	for _, t := range scans {
		length = max(length, t.Hash.Length)
	}
	out := types.NewBitString(length)
	for i := 0; i < length; i++ {
		ones, votes := 0, 0
		for _, t := range scans {
			if i >= t.Hash.Length {
				continue
			}
			votes++
			if t.Hash.Get(i) {
				ones++
			}
		}
		out.Set(i, votes > 0 && 2*ones >= votes)
	}
	return out
}

type tagged struct {
	m    types.Minutia
	scan int
}

// ClusterMinutiae greedily groups minutiae lying within radius of a seed.
// Clusters seen in fewer than minScans distinct scans are dropped.
func ClusterMinutiae(scans []*types.Template, radius float64, minScans int) []types.Minutia {
	pool := []tagged{}
	for i, t := range scans {
		for _, m := range t.Minutiae {
			pool = append(pool, tagged{m: m, scan: i})
		}
	}
	used := make([]bool, len(pool))
	out := []types.Minutia{}
	for i, seed := range pool {
		if used[i] {
			continue
		}
		members := []types.Minutia{}
		seen := map[int]bool{}
		for j := i; j < len(pool); j++ {
			if used[j] {
				continue
			}
			c := pool[j]
			if math.Hypot(float64(c.m.X-seed.m.X), float64(c.m.Y-seed.m.Y)) > radius {
				continue
			}
			used[j] = true
			members = append(members, c.m)
			seen[c.scan] = true
		}
		if len(seen) < minScans {
			continue
		}
		out = append(out, merge(members))
	}
	return out
}

func merge(members []types.Minutia) types.Minutia {
	var sx, sy, sin, cos float64
	endings := 0
	for _, m := range members {
		sx += float64(m.X)
		sy += float64(m.Y)
		rad := m.Direction * math.Pi / 180
		sin += math.Sin(rad)
		cos += math.Cos(rad)
		if m.Type == types.Ending {
			endings++
		}
	}
	n := float64(len(members))
	kind := types.Bifurcation
	if 2*endings >= len(members) {
		kind = types.Ending
	}
	dir := math.Atan2(sin, cos) * 180 / math.Pi
	if dir < 0 {
		dir += 360
	}
	return types.Minutia{
		X:         int(math.Round(sx / n)),
		Y:         int(math.Round(sy / n)),
		Type:      kind,
		Direction: dir,
	}
}

// bucketKeypoints keeps the strongest keypoint per grid bucket along with
// its descriptor.
func bucketKeypoints(t *types.Template, bucket float64) ([]types.Keypoint, []types.Descriptor) {
	if !t.HasKeypoints() || bucket <= 0 {
		return t.Keypoints, t.Descriptors
	}
	type cell struct{ x, y int }
	strongest := map[cell]int{}
	n := min(len(t.Keypoints), len(t.Descriptors))
	for i := 0; i < n; i++ {
		kp := t.Keypoints[i]
		key := cell{int(kp.X / bucket), int(kp.Y / bucket)}
		if j, ok := strongest[key]; !ok || kp.Strength > t.Keypoints[j].Strength {
			strongest[key] = i
		}
	}
	idx := make([]int, 0, len(strongest))
	for _, i := range strongest {
		idx = append(idx, i)
	}
	sort.Ints(idx)
	kps := make([]types.Keypoint, len(idx))
	descs := make([]types.Descriptor, len(idx))
	for k, i := range idx {
		kps[k] = t.Keypoints[i]
		descs[k] = append(types.Descriptor(nil), t.Descriptors[i]...)
	}
	return kps, descs
}

func averageTexture(scans []*types.Template) *types.TextureGrid {
	var out types.TextureGrid
	n := 0
	for _, t := range scans {
		if t.Texture == nil {
			continue
		}
		n++
		for y := range out {
			for x := range out[y] {
				out[y][x].Mean += t.Texture[y][x].Mean
				out[y][x].StdDev += t.Texture[y][x].StdDev
			}
		}
	}
	if n == 0 {
		return nil
	}
	for y := range out {
		for x := range out[y] {
			out[y][x].Mean /= float64(n)
			out[y][x].StdDev /= float64(n)
		}
	}
	return &out
}

// averagePattern averages densities and takes the axial mean of the ridge
// angles, which live in [0,π).
func averagePattern(scans []*types.Template) *types.PatternGrid {
	var out types.PatternGrid
	var sin, cos [types.PatternGridSize][types.PatternGridSize]float64
	n := 0
	for _, t := range scans {
		if t.Pattern == nil {
			continue
		}
		n++
		for y := range out {
			for x := range out[y] {
				c := t.Pattern[y][x]
				out[y][x].RidgeDensity += c.RidgeDensity
				sin[y][x] += math.Sin(2 * c.DominantAngle)
				cos[y][x] += math.Cos(2 * c.DominantAngle)
			}
		}
	}
	if n == 0 {
		return nil
	}
	for y := range out {
		for x := range out[y] {
			out[y][x].RidgeDensity /= float64(n)
			angle := math.Atan2(sin[y][x], cos[y][x]) / 2
			if angle < 0 {
				angle += math.Pi
			}
			out[y][x].DominantAngle = math.Mod(angle, math.Pi)
		}
	}
	return &out
}
