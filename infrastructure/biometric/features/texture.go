package features

import (
	"fmt"
	"image"
	"math"

	"fingerprint.gateman.io/infrastructure/biometric/types"
	"gocv.io/x/gocv"
	"gonum.org/v1/gonum/stat"
)

func cellBounds(i, n, size int) (int, int) {
	return i * size / n, (i + 1) * size / n
}

// Texture splits the image into a fixed 8x8 grid of mean and standard
// deviation, whatever its resolution.
func Texture(img *image.Gray) *types.TextureGrid {
	grid := &types.TextureGrid{}
	b := img.Bounds()
	w, h := b.Dx(), b.Dy()
	values := make([]float64, 0, (w/types.TextureGridSize+1)*(h/types.TextureGridSize+1))
	for gy := 0; gy < types.TextureGridSize; gy++ {
		y0, y1 := cellBounds(gy, types.TextureGridSize, h)
		for gx := 0; gx < types.TextureGridSize; gx++ {
			x0, x1 := cellBounds(gx, types.TextureGridSize, w)
			values = values[:0]
			for y := y0; y < y1; y++ {
				for x := x0; x < x1; x++ {
					values = append(values, float64(img.GrayAt(b.Min.X+x, b.Min.Y+y).Y))
				}
			}
			if len(values) == 0 {
				continue
			}
			mean, std := stat.MeanStdDev(values, nil)
			if math.IsNaN(std) {
				std = 0
			}
			grid[gy][gx] = types.TextureCell{Mean: mean, StdDev: std}
		}
	}
	return grid
}

// Pattern computes ridge density from the skeleton and the dominant ridge
// orientation from Sobel gradients of the enhanced image, on a 4x4 grid.
func Pattern(img *image.Gray, skel *types.Binary) (*types.PatternGrid, error) {
	src, err := gocv.ImageGrayToMatGray(img)
	if err != nil {
		return nil, fmt.Errorf("pattern: %w", err)
	}
	defer src.Close()
	gxMat, gyMat := gocv.NewMat(), gocv.NewMat()
	defer gxMat.Close()
	defer gyMat.Close()
	gocv.Sobel(src, &gxMat, gocv.MatTypeCV64F, 1, 0, 3, 1, 0, gocv.BorderDefault)
	gocv.Sobel(src, &gyMat, gocv.MatTypeCV64F, 0, 1, 3, 1, 0, gocv.BorderDefault)
	gx, err := gxMat.DataPtrFloat64()
	if err != nil {
		return nil, fmt.Errorf("pattern: %w", err)
	}
	gy, err := gyMat.DataPtrFloat64()
	if err != nil {
		return nil, fmt.Errorf("pattern: %w", err)
	}
	return PatternFromGradients(gx, gy, src.Cols(), src.Rows(), skel), nil
}

// PatternFromGradients fills the pattern grid from row-major gradient
// planes. Orientation uses the doubled angle average so that opposite
// gradients on either side of a ridge reinforce instead of cancelling.
func PatternFromGradients(gx, gy []float64, w, h int, skel *types.Binary) *types.PatternGrid {
	grid := &types.PatternGrid{}
	for cy := 0; cy < types.PatternGridSize; cy++ {
		y0, y1 := cellBounds(cy, types.PatternGridSize, h)
		for cx := 0; cx < types.PatternGridSize; cx++ {
			x0, x1 := cellBounds(cx, types.PatternGridSize, w)
			var sxx, sxy float64
			ridge, total := 0, 0
			for y := y0; y < y1; y++ {
				for x := x0; x < x1; x++ {
					i := y*w + x
					sxx += gx[i]*gx[i] - gy[i]*gy[i]
					sxy += 2 * gx[i] * gy[i]
					total++
					if skel != nil && skel.At(x*skel.Width/w, y*skel.Height/h) != 0 {
						ridge++
					}
				}
			}
			cell := types.PatternCell{}
			if total > 0 {
				cell.RidgeDensity = float64(ridge) / float64(total)
			}
			// gradient orientation, rotated a quarter turn to follow the ridge
			theta := 0.5*math.Atan2(sxy, sxx) + math.Pi/2
			cell.DominantAngle = math.Mod(theta+math.Pi, math.Pi)
			grid[cy][cx] = cell
		}
	}
	return grid
}
