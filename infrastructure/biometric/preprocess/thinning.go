package preprocess

import "fingerprint.gateman.io/infrastructure/biometric/types"

// neighbours returns P2..P9 clockwise starting north.
func neighbours(b *types.Binary, x, y int) [8]uint8 {
	return [8]uint8{
		b.At(x, y-1), b.At(x+1, y-1), b.At(x+1, y), b.At(x+1, y+1),
		b.At(x, y+1), b.At(x-1, y+1), b.At(x-1, y), b.At(x-1, y-1),
	}
}

// Thin reduces ridges to one pixel width using Zhang-Suen thinning.
func Thin(src *types.Binary) *types.Binary {
	img := src.Clone()
	for i := range img.Pix {
		if img.Pix[i] != 0 {
			img.Pix[i] = 1
		}
	}
	marked := make([]int, 0, 1024)
	for {
		changed := false
		for pass := 0; pass < 2; pass++ {
			marked = marked[:0]
			for y := 1; y < img.Height-1; y++ {
				for x := 1; x < img.Width-1; x++ {
					if img.Pix[y*img.Width+x] == 0 {
						continue
					}
					p := neighbours(img, x, y)
					count := 0
					transitions := 0
					for k := 0; k < 8; k++ {
						count += int(p[k])
						if p[k] == 0 && p[(k+1)%8] == 1 {
							transitions++
						}
					}
					if count < 2 || count > 6 || transitions != 1 {
						continue
					}
					// p[0]=P2 p[2]=P4 p[4]=P6 p[6]=P8
					if pass == 0 {
						if p[0]*p[2]*p[4] != 0 || p[2]*p[4]*p[6] != 0 {
							continue
						}
					} else {
						if p[0]*p[2]*p[6] != 0 || p[0]*p[4]*p[6] != 0 {
							continue
						}
					}
					marked = append(marked, y*img.Width+x)
				}
			}
			for _, idx := range marked {
				img.Pix[idx] = 0
			}
			if len(marked) > 0 {
				changed = true
			}
		}
		if !changed {
			return img
		}
	}
}
