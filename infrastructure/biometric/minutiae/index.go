package minutiae

import (
	"math"

	"fingerprint.gateman.io/infrastructure/biometric/config"
	"fingerprint.gateman.io/infrastructure/biometric/types"
)

// clockwise 8-neighbourhood offsets starting north
var ring = [8][2]int{{0, -1}, {1, -1}, {1, 0}, {1, 1}, {0, 1}, {-1, 1}, {-1, 0}, {-1, -1}}

// CrossingNumber is half the number of 0/1 transitions around (x,y).
func CrossingNumber(skel *types.Binary, x, y int) int {
	sum := 0
	for k := 0; k < 8; k++ {
		a := skel.At(x+ring[k][0], y+ring[k][1])
		b := skel.At(x+ring[(k+1)%8][0], y+ring[(k+1)%8][1])
		if a != b {
			sum++
		}
	}
	return sum / 2
}

// Extract finds ridge endings and bifurcations on a skeleton.
func Extract(skel *types.Binary, cfg config.ExtractionConfig) []types.Minutia {
	candidates := []types.Minutia{}
	margin := cfg.BorderMargin
	for y := margin; y < skel.Height-margin; y++ {
		for x := margin; x < skel.Width-margin; x++ {
			if skel.At(x, y) == 0 {
				continue
			}
			var kind types.MinutiaType
			switch CrossingNumber(skel, x, y) {
			case 1:
				kind = types.Ending
			case 3:
				kind = types.Bifurcation
			default:
				continue
			}
			candidates = append(candidates, types.Minutia{
				X: x, Y: y, Type: kind,
				Direction: direction(skel, x, y, kind, cfg.DirectionTraceSteps),
			})
		}
	}
	kept := merge(candidates, cfg.MinMinutiaeDistance)
	return limit(kept, cfg.MaxMinutiae)
}

// merge keeps the first point of every group closer than minDist.
func merge(points []types.Minutia, minDist float64) []types.Minutia {
	kept := make([]types.Minutia, 0, len(points))
	for _, p := range points {
		near := false
		for _, k := range kept {
			if math.Hypot(float64(p.X-k.X), float64(p.Y-k.Y)) < minDist {
				near = true
				break
			}
		}
		if !near {
			kept = append(kept, p)
		}
	}
	return kept
}

// limit thins an oversized set by taking every k-th point in scan order so
// the survivors stay spread over the whole print.
func limit(points []types.Minutia, max int) []types.Minutia {
	if max <= 0 || len(points) <= max {
		return points
	}
	out := make([]types.Minutia, 0, max)
	step := float64(len(points)) / float64(max)
	for i := 0; i < max; i++ {
		out = append(out, points[int(float64(i)*step)])
	}
	return out
}

type point struct{ x, y int }

// direction returns the minutia angle in degrees, pointing away from the
// ridge body. Bifurcations use the bisector of the two closest branches.
func direction(skel *types.Binary, x, y int, kind types.MinutiaType, steps int) float64 {
	starts := branchStarts(skel, x, y)
	if len(starts) == 0 {
		return 0
	}
	visited := map[point]bool{{x, y}: true}
	for _, s := range starts {
		visited[s] = true
	}
	ends := make([]point, len(starts))
	for i, s := range starts {
		ends[i] = trace(skel, s, visited, steps)
	}
	if kind == types.Ending || len(ends) < 2 {
		return angle(float64(x-ends[0].x), float64(y-ends[0].y))
	}
	branchAngles := make([]float64, len(ends))
	for i, e := range ends {
		branchAngles[i] = math.Atan2(float64(e.y-y), float64(e.x-x))
	}
	bi, bj := 0, 1
	smallest := math.Inf(1)
	for i := 0; i < len(branchAngles); i++ {
		for j := i + 1; j < len(branchAngles); j++ {
			if d := angularGap(branchAngles[i], branchAngles[j]); d < smallest {
				smallest, bi, bj = d, i, j
			}
		}
	}
	sx := math.Cos(branchAngles[bi]) + math.Cos(branchAngles[bj])
	sy := math.Sin(branchAngles[bi]) + math.Sin(branchAngles[bj])
	return angle(sx, sy)
}

// branchStarts returns the first pixel of each foreground run around (x,y).
func branchStarts(skel *types.Binary, x, y int) []point {
	starts := []point{}
	for k := 0; k < 8; k++ {
		prev := ring[(k+7)%8]
		cur := ring[k]
		if skel.At(x+cur[0], y+cur[1]) != 0 && skel.At(x+prev[0], y+prev[1]) == 0 {
			starts = append(starts, point{x + cur[0], y + cur[1]})
		}
	}
	return starts
}

func trace(skel *types.Binary, from point, visited map[point]bool, steps int) point {
	cur := from
	for i := 0; i < steps; i++ {
		moved := false
		for _, o := range ring {
			n := point{cur.x + o[0], cur.y + o[1]}
			if skel.At(n.x, n.y) != 0 && !visited[n] {
				visited[n] = true
				cur = n
				moved = true
				break
			}
		}
		if !moved {
			break
		}
	}
	return cur
}

func angularGap(a, b float64) float64 {
	d := math.Abs(a - b)
	if d > math.Pi {
		d = 2*math.Pi - d
	}
	return d
}

func angle(dx, dy float64) float64 {
	deg := math.Atan2(dy, dx) * 180 / math.Pi
	if deg < 0 {
		deg += 360
	}
	return deg
}

// CircularDiff is the absolute difference between two directions in
// degrees, in [0,180].
func CircularDiff(a, b float64) float64 {
	d := math.Mod(math.Abs(a-b), 360)
	if d > 180 {
		d = 360 - d
	}
	return d
}
