package imageio

import (
	"bytes"
	"errors"
	"image"
	"image/color"
	"image/png"
	"testing"

	"fingerprint.gateman.io/infrastructure/biometric/types"
	"github.com/jtejido/go-wsq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func encodePNG(t *testing.T, img image.Image) []byte {
	t.Helper()
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, img))
	return buf.Bytes()
}

func TestDecodePNG(t *testing.T) {
	src := image.NewRGBA(image.Rect(0, 0, 64, 48))
	for y := 0; y < 48; y++ {
		for x := 0; x < 64; x++ {
			src.Set(x, y, color.RGBA{R: uint8(x * 4), G: uint8(x * 4), B: uint8(x * 4), A: 255})
		}
	}
	gray, err := Decode(encodePNG(t, src))
	require.NoError(t, err)
	assert.Equal(t, 64, gray.Bounds().Dx())
	assert.Equal(t, 48, gray.Bounds().Dy())
	assert.Less(t, gray.GrayAt(1, 10).Y, gray.GrayAt(60, 10).Y)
}

func TestDecodePGM(t *testing.T) {
	header := []byte("P5\n20 20\n255\n")
	pix := bytes.Repeat([]byte{200}, 400)
	gray, err := Decode(append(header, pix...))
	require.NoError(t, err)
	assert.Equal(t, 20, gray.Bounds().Dx())
	assert.InDelta(t, 200, int(gray.GrayAt(5, 5).Y), 1)
}

func TestDecodeWSQ(t *testing.T) {
	const side = 256
	src := image.NewGray(image.Rect(0, 0, side, side))
	for y := 0; y < side; y++ {
		for x := 0; x < side; x++ {
			ridge := 0
			if (x+y)%8 < 4 {
				ridge = 40
			}
			src.SetGray(x, y, color.Gray{Y: uint8(20 + x*3/4 + ridge)})
		}
	}
	var buf bytes.Buffer
	require.NoError(t, wsq.Encode(&buf, src, &wsq.Options{Bitrate: wsq.DefaultBitrate}))
	require.True(t, isWSQ(buf.Bytes()))

	gray, err := Decode(buf.Bytes())
	require.NoError(t, err)
	assert.Equal(t, side, gray.Bounds().Dx())
	assert.Equal(t, side, gray.Bounds().Dy())

	band := func(x0, x1 int) int {
		total := 0
		for y := 0; y < side; y++ {
			for x := x0; x < x1; x++ {
				total += int(gray.GrayAt(x, y).Y)
			}
		}
		return total / ((x1 - x0) * side)
	}
	assert.Less(t, band(0, 32), band(side-32, side))
}

func TestDecodeFailures(t *testing.T) {
	tests := []struct {
		name string
		data []byte
	}{
		{"empty", nil},
		{"garbage", []byte("definitely not an image")},
		{"corrupt wsq", []byte{0xFF, 0xA0, 0x00, 0x00, 0x00}},
		{"too small", encodePNG(t, image.NewGray(image.Rect(0, 0, 4, 4)))},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Decode(tt.data)
			assert.True(t, errors.Is(err, types.ErrImageDecodeFailure))
		})
	}
}

func TestToGrayShrinksLargeScans(t *testing.T) {
	gray := ToGray(image.NewGray(image.Rect(0, 0, 4000, 1000)))
	assert.Equal(t, maxSide, gray.Bounds().Dx())
	assert.Equal(t, 500, gray.Bounds().Dy())
}
