package preprocess

import (
	"image"
	"image/color"
	"math"
	"math/rand"
	"testing"

	"fingerprint.gateman.io/infrastructure/biometric/config"
	"fingerprint.gateman.io/infrastructure/biometric/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func ridgeImage(size int) *image.Gray {
	img := image.NewGray(image.Rect(0, 0, size, size))
	cx, cy := float64(size)/2, float64(size)/2
	for y := 0; y < size; y++ {
		for x := 0; x < size; x++ {
			r := math.Hypot(float64(x)-cx, float64(y)-cy)
			v := 128 + 100*math.Sin(r/2.5)
			img.SetGray(x, y, color.Gray{Y: uint8(v)})
		}
	}
	return img
}

func TestThinBar(t *testing.T) {
	b := types.NewBinary(50, 20)
	for y := 9; y <= 11; y++ {
		for x := 5; x <= 44; x++ {
			b.Set(x, y, 1)
		}
	}
	thin := Thin(b)
	for x := 10; x <= 40; x++ {
		col := 0
		for y := 0; y < 20; y++ {
			col += int(thin.At(x, y))
		}
		assert.Equal(t, 1, col, "column %d", x)
	}
}

func TestThinKeepsSinglePixelLine(t *testing.T) {
	b := types.NewBinary(30, 5)
	for x := 3; x < 27; x++ {
		b.Set(x, 2, 1)
	}
	thin := Thin(b)
	for x := 4; x < 26; x++ {
		assert.Equal(t, uint8(1), thin.At(x, 2))
	}
}

func TestSelectResult(t *testing.T) {
	tests := []struct {
		name    string
		results []BinarizationResult
		want    int
	}{
		{
			name: "closest to band centre wins",
			results: []BinarizationResult{
				{Name: "otsu", Foreground: 0.2},
				{Name: "adaptive", Foreground: 0.45},
				{Name: "fixed", Foreground: 0.6},
			},
			want: 1,
		},
		{
			name: "degenerate masks rejected",
			results: []BinarizationResult{
				{Name: "otsu", Foreground: 0.01},
				{Name: "adaptive", Foreground: 0.95},
				{Name: "fixed", Foreground: 0.3},
			},
			want: 2,
		},
		{
			name: "adaptive when nothing accepted",
			results: []BinarizationResult{
				{Name: "otsu", Foreground: 0.99},
				{Name: "adaptive", Foreground: 0.01},
				{Name: "fixed", Foreground: 0.0},
			},
			want: 1,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, SelectResult(tt.results, 0.15, 0.70))
		})
	}
}

func TestRunRidgeImage(t *testing.T) {
	cfg := config.Default().Preprocess
	res, err := New(cfg).Run(ridgeImage(320))
	require.NoError(t, err)
	assert.Equal(t, cfg.WorkingSize, res.Skeleton.Width)
	assert.Equal(t, cfg.WorkingSize, res.Skeleton.Height)
	assert.True(t, res.Skeletonized)
	assert.GreaterOrEqual(t, res.Skeleton.Count(), cfg.MinRidgePixels)
	assert.Equal(t, cfg.WorkingSize, res.Enhanced.Bounds().Dx())
}

func TestRunNeverFailsOnFlatOrNoisyInput(t *testing.T) {
	cfg := config.Default().Preprocess
	flat := image.NewGray(image.Rect(0, 0, 200, 200))
	for i := range flat.Pix {
		flat.Pix[i] = 128
	}
	noisy := image.NewGray(image.Rect(0, 0, 200, 200))
	rng := rand.New(rand.NewSource(7))
	for i := range noisy.Pix {
		noisy.Pix[i] = uint8(rng.Intn(256))
	}
	for _, img := range []*image.Gray{flat, noisy} {
		res, err := New(cfg).Run(img)
		require.NoError(t, err)
		require.NotNil(t, res.Skeleton)
		assert.Equal(t, cfg.WorkingSize, res.Skeleton.Width)
		assert.NotEmpty(t, res.Strategy)
	}
}
