package preprocess

import (
	"fmt"
	"image"
	"math"

	"fingerprint.gateman.io/infrastructure/biometric/config"
	"fingerprint.gateman.io/infrastructure/biometric/imageio"
	"fingerprint.gateman.io/infrastructure/biometric/types"
	"fingerprint.gateman.io/infrastructure/logger"
	"gocv.io/x/gocv"
)

type Result struct {
	// Skeleton holds one pixel wide ridges, or the fallback threshold mask
	// when Skeletonized is false.
	Skeleton     *types.Binary
	Enhanced     *image.Gray
	Strategy     string
	Skeletonized bool
	Contrast     float64 // stddev of the enhanced image scaled to [0,1]
}

type Preprocessor struct {
	cfg config.PreprocessConfig
}

func New(cfg config.PreprocessConfig) *Preprocessor {
	return &Preprocessor{cfg: cfg}
}

// Run turns a grayscale scan into a ridge skeleton at the working size.
// Only a failure to hand the raster to OpenCV is returned as an error; poor
// images always yield some binary mask.
func (p *Preprocessor) Run(img *image.Gray) (*Result, error) {
	src, err := gocv.ImageGrayToMatGray(img)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", types.ErrImageDecodeFailure, err)
	}
	defer src.Close()

	size := image.Pt(p.cfg.WorkingSize, p.cfg.WorkingSize)
	resized := gocv.NewMat()
	defer resized.Close()
	gocv.Resize(src, &resized, size, 0, 0, gocv.InterpolationArea)

	if stdDev(resized) < p.cfg.LowContrastStd {
		gocv.Normalize(resized, &resized, 0, 255, gocv.NormMinMax)
	}

	denoised := p.denoise(resized)
	defer denoised.Close()
	enhanced := p.enhance(denoised)
	defer enhanced.Close()

	result := &Result{
		Enhanced: matToGray(enhanced),
		Contrast: math.Min(stdDev(enhanced)/128, 1),
	}

	mask, name := p.binarize(enhanced)
	defer mask.Close()
	p.clean(&mask)

	binary := matToBinary(mask)
	if float64(binary.Count()) > 0.5*float64(len(binary.Pix)) {
		binary = binary.Invert()
	}

	skeleton := Thin(binary)
	if skeleton.Count() >= p.cfg.MinRidgePixels {
		result.Skeleton, result.Strategy, result.Skeletonized = skeleton, name, true
		return result, nil
	}

	skeleton = Thin(binary.Invert())
	if skeleton.Count() >= p.cfg.MinRidgePixels {
		logger.Debug("skeleton recovered after inversion", logger.LoggerOptions{Key: "strategy", Data: name})
		result.Skeleton, result.Strategy, result.Skeletonized = skeleton, name+"+inverted", true
		return result, nil
	}

	logger.Warning("skeleton too sparse, falling back to plain adaptive threshold 🥲", logger.LoggerOptions{
		Key: "ridgePixels", Data: skeleton.Count(),
	})
	fallback := gocv.NewMat()
	defer fallback.Close()
	gocv.AdaptiveThreshold(resized, &fallback, 255, gocv.AdaptiveThresholdGaussian, gocv.ThresholdBinaryInv, p.cfg.AdaptiveBlock, float32(p.cfg.AdaptiveC))
	result.Skeleton, result.Strategy, result.Skeletonized = matToBinary(fallback), "fallback_adaptive", false
	return result, nil
}

// denoise keeps whichever of bilateral or gaussian smoothing preserves more
// contrast.
func (p *Preprocessor) denoise(src gocv.Mat) gocv.Mat {
	bilateral := gocv.NewMat()
	gocv.BilateralFilter(src, &bilateral, 9, 75, 75)
	gaussian := gocv.NewMat()
	gocv.GaussianBlur(src, &gaussian, image.Pt(5, 5), 0, 0, gocv.BorderDefault)
	if stdDev(bilateral) >= stdDev(gaussian) {
		gaussian.Close()
		return bilateral
	}
	bilateral.Close()
	return gaussian
}

// enhance blends local (CLAHE) and global histogram equalisation.
func (p *Preprocessor) enhance(src gocv.Mat) gocv.Mat {
	clahe := gocv.NewCLAHEWithParams(p.cfg.ClaheClip, image.Pt(p.cfg.ClaheTile, p.cfg.ClaheTile))
	defer clahe.Close()
	local := gocv.NewMat()
	defer local.Close()
	clahe.Apply(src, &local)

	global := gocv.NewMat()
	defer global.Close()
	gocv.EqualizeHist(src, &global)

	out := gocv.NewMat()
	gocv.AddWeighted(local, p.cfg.ClaheBlend, global, 1-p.cfg.ClaheBlend, 0, &out)
	return out
}

func (p *Preprocessor) binarize(src gocv.Mat) (gocv.Mat, string) {
	strategies := Strategies(p.cfg)
	results := make([]BinarizationResult, 0, len(strategies))
	total := float64(src.Rows() * src.Cols())
	for _, s := range strategies {
		mask := gocv.NewMat()
		err := s.Apply(src, &mask)
		r := BinarizationResult{Name: s.Name, Mask: mask, Err: err}
		if err == nil {
			r.Foreground = float64(gocv.CountNonZero(mask)) / total
		}
		results = append(results, r)
	}
	chosen := SelectResult(results, p.cfg.RidgeBandLow, p.cfg.RidgeBandHigh)
	for i := range results {
		if i != chosen {
			results[i].Mask.Close()
		}
	}
	if chosen < 0 {
		return gocv.NewMatWithSize(src.Rows(), src.Cols(), gocv.MatTypeCV8UC1), "none"
	}
	logger.Debug("binarization strategy selected", logger.LoggerOptions{
		Key: "strategy", Data: results[chosen].Name,
	}, logger.LoggerOptions{
		Key: "foreground", Data: results[chosen].Foreground,
	})
	return results[chosen].Mask, results[chosen].Name
}

// clean closes small gaps then removes specks.
func (p *Preprocessor) clean(mask *gocv.Mat) {
	kernel := gocv.GetStructuringElement(gocv.MorphRect, image.Pt(3, 3))
	defer kernel.Close()
	closed := gocv.NewMat()
	defer closed.Close()
	gocv.MorphologyEx(*mask, &closed, gocv.MorphClose, kernel)
	gocv.MorphologyEx(closed, mask, gocv.MorphOpen, kernel)
}

func stdDev(m gocv.Mat) float64 {
	mean := gocv.NewMat()
	defer mean.Close()
	std := gocv.NewMat()
	defer std.Close()
	gocv.MeanStdDev(m, &mean, &std)
	return std.GetDoubleAt(0, 0)
}

func matToBinary(m gocv.Mat) *types.Binary {
	b := types.NewBinary(m.Cols(), m.Rows())
	data := m.ToBytes()
	for i := range b.Pix {
		if data[i] != 0 {
			b.Pix[i] = 1
		}
	}
	return b
}

func matToGray(m gocv.Mat) *image.Gray {
	img, err := m.ToImage()
	if err != nil {
		return image.NewGray(image.Rect(0, 0, m.Cols(), m.Rows()))
	}
	if g, ok := img.(*image.Gray); ok {
		return g
	}
	return imageio.ToGray(img)
}

// BinaryToMat copies a binary raster into an 8 bit single channel Mat with
// foreground at 255.
func BinaryToMat(b *types.Binary) (gocv.Mat, error) {
	data := make([]byte, len(b.Pix))
	for i, p := range b.Pix {
		if p != 0 {
			data[i] = 255
		}
	}
	return gocv.NewMatFromBytes(b.Height, b.Width, gocv.MatTypeCV8UC1, data)
}
