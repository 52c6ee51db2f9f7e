package imageio

import (
	"bytes"
	"fmt"
	"image"
	_ "image/jpeg"
	_ "image/png"

	"fingerprint.gateman.io/infrastructure/biometric/types"
	"github.com/disintegration/gift"
	"github.com/jtejido/go-wsq"
	"github.com/spakin/netpbm"
)

// Scans larger than this on either side are downscaled before any OpenCV
// work; the preprocessor resizes to its working size anyway.
const maxSide = 2000

// Decode turns raw scan bytes (png, jpeg, netpbm, wsq) into a grayscale
// raster.
func Decode(data []byte) (*image.Gray, error) {
	if len(data) == 0 {
		return nil, fmt.Errorf("%w: empty payload", types.ErrImageDecodeFailure)
	}
	img, err := decode(data)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", types.ErrImageDecodeFailure, err)
	}
	b := img.Bounds()
	if b.Dx() < 16 || b.Dy() < 16 {
		return nil, fmt.Errorf("%w: image %dx%d is too small", types.ErrImageDecodeFailure, b.Dx(), b.Dy())
	}
	return ToGray(img), nil
}

// wsq does not register itself with the image package, so its start of
// image marker is sniffed here.
func isWSQ(data []byte) bool {
	return len(data) > 1 && data[0] == 0xFF && data[1] == 0xA0
}

func decode(data []byte) (image.Image, error) {
	if data[0] == 'P' && len(data) > 1 && data[1] >= '1' && data[1] <= '7' {
		return netpbm.Decode(bytes.NewReader(data), nil)
	}
	if isWSQ(data) {
		return decodeWSQ(data)
	}
	img, _, err := image.Decode(bytes.NewReader(data))
	return img, err
}

// decodeWSQ turns a decoder panic on malformed input into an error.
func decodeWSQ(data []byte) (img image.Image, err error) {
	defer func() {
		if r := recover(); r != nil {
			img, err = nil, fmt.Errorf("malformed wsq stream: %v", r)
		}
	}()
	return wsq.Decode(bytes.NewReader(data))
}

// ToGray converts any image to 8 bit grayscale, shrinking oversized scans.
func ToGray(img image.Image) *image.Gray {
	filters := []gift.Filter{gift.Grayscale()}
	b := img.Bounds()
	if b.Dx() > maxSide || b.Dy() > maxSide {
		if b.Dx() >= b.Dy() {
			filters = append(filters, gift.Resize(maxSide, 0, gift.LinearResampling))
		} else {
			filters = append(filters, gift.Resize(0, maxSide, gift.LinearResampling))
		}
	}
	g := gift.New(filters...)
	dst := image.NewGray(g.Bounds(b))
	g.Draw(dst, img)
	return dst
}
