package features

import (
	"fmt"
	"image"

	"fingerprint.gateman.io/infrastructure/biometric/types"
	"github.com/corona10/goimagehash"
)

const perceptionBits = 64

// Hash concatenates a grid average hash with the 64 bit DCT perception hash.
func Hash(img image.Image, grid int) (types.BitString, error) {
	avg, err := goimagehash.ExtAverageHash(img, grid, grid)
	if err != nil {
		return types.BitString{}, fmt.Errorf("average hash: %w", err)
	}
	dct, err := goimagehash.PerceptionHash(img)
	if err != nil {
		return types.BitString{}, fmt.Errorf("perception hash: %w", err)
	}

	avgBits := grid * grid
	out := types.NewBitString(avgBits + perceptionBits)
	for i, word := range avg.GetHash() {
		n := 64
		if rem := avgBits - i*64; rem < 64 {
			n = rem
		}
		if n <= 0 {
			break
		}
		out.AppendUint64(i*64, word, n)
	}
	out.AppendUint64(avgBits, dct.GetHash(), perceptionBits)
	return out, nil
}
