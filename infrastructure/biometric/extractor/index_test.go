package extractor

import (
	"bytes"
	"image"
	"image/color"
	"image/png"
	"math"
	"math/rand"
	"testing"

	"fingerprint.gateman.io/infrastructure/biometric/config"
	"fingerprint.gateman.io/infrastructure/biometric/similarity"
	"fingerprint.gateman.io/infrastructure/biometric/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// printLike draws warped concentric ridges with speckle so the skeleton has
// breaks and forks.
func printLike(size int, seed int64) *image.Gray {
	rng := rand.New(rand.NewSource(seed))
	img := image.NewGray(image.Rect(0, 0, size, size))
	cx, cy := float64(size)/2, float64(size)/2
	for y := 0; y < size; y++ {
		for x := 0; x < size; x++ {
			dx, dy := float64(x)-cx, float64(y)-cy
			r := math.Hypot(dx, dy)
			theta := math.Atan2(dy, dx)
			v := 128 + 90*math.Sin(r/3+2*math.Sin(3*theta)) + rng.NormFloat64()*25
			img.SetGray(x, y, color.Gray{Y: uint8(math.Max(0, math.Min(255, v)))})
		}
	}
	return img
}

func noise(size int, seed int64) *image.Gray {
	rng := rand.New(rand.NewSource(seed))
	img := image.NewGray(image.Rect(0, 0, size, size))
	rng.Read(img.Pix)
	return img
}

func encode(t *testing.T, img image.Image) []byte {
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, img))
	return buf.Bytes()
}

func TestExtractIdenticalScansMatch(t *testing.T) {
	cfg := config.Default()
	ex := New(cfg)
	data := encode(t, printLike(400, 1))

	a, err := ex.Extract(data)
	require.NoError(t, err)
	b, err := ex.Extract(data)
	require.NoError(t, err)

	assert.False(t, a.Degraded, a.DegradedReason)
	assert.True(t, a.HasMinutiae())
	assert.True(t, a.HasKeypoints())
	assert.Equal(t, len(a.Keypoints), len(a.Descriptors))
	assert.Equal(t, 1088, a.Hash.Length)
	assert.Equal(t, cfg.Preprocess.WorkingSize, a.Width)

	score, err := similarity.NewEngine(cfg.Similarity).Score(a, b)
	require.NoError(t, err)
	assert.GreaterOrEqual(t, score, 0.9)
}

func TestExtractNoiseDoesNotMatch(t *testing.T) {
	cfg := config.Default()
	ex := New(cfg)

	a, err := ex.ExtractImage(noise(500, 7))
	require.NoError(t, err)
	b, err := ex.ExtractImage(noise(500, 8))
	require.NoError(t, err)

	score, err := similarity.NewEngine(cfg.Similarity).Score(a, b)
	require.NoError(t, err)
	assert.Less(t, score, cfg.Matcher.Threshold)
}

func TestExtractFlatImageIsDegraded(t *testing.T) {
	cfg := config.Default()
	flat := image.NewGray(image.Rect(0, 0, 200, 200))
	for i := range flat.Pix {
		flat.Pix[i] = 200
	}

	tpl, err := New(cfg).ExtractImage(flat)
	require.NoError(t, err)
	assert.True(t, tpl.Degraded)
	assert.NotEmpty(t, tpl.DegradedReason)
	assert.Empty(t, tpl.Minutiae)
	assert.Less(t, tpl.QualityRatio(), cfg.Matcher.ProbeMinQuality+0.3)
}

func TestExtractRejectsUndecodableBytes(t *testing.T) {
	_, err := New(config.Default()).Extract([]byte("not an image"))
	assert.ErrorIs(t, err, types.ErrImageDecodeFailure)
}
