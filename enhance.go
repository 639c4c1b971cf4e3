package eink

import (
	"math"

	"github.com/disintegration/gift"
)

const (
	unsharpSigma     = 1.0
	unsharpAmount    = 1.2
	unsharpThreshold = 2.0 / 255
	lineBoostLevel   = 128
)

// EnhanceUI prepares the sharp (no-dither) track: contrast, saturation,
// gamma, a sharpness boost and an unsharp mask.
func EnhanceUI(src *Raster, s Settings) *Raster {
	img := src
	if s.UILineBoost {
		img = boostLines(img)
	}
	img = toneAdjust(img, s)
	return filterRaster(img, append(sharpness(s.SharpnessUI),
		gift.UnsharpMask(unsharpSigma, unsharpAmount, unsharpThreshold))...)
}

// EnhancePhoto prepares the dithered track. No unsharp mask; dithering
// already amplifies local contrast.
func EnhancePhoto(src *Raster, s Settings) *Raster {
	img := toneAdjust(src, s)
	if f := sharpness(s.SharpnessPhoto); len(f) > 0 {
		img = filterRaster(img, f...)
	}
	return img
}

func toneAdjust(src *Raster, s Settings) *Raster {
	var filters []gift.Filter
	if c := factorPercent(s.Contrast, -100, 100); c != 0 {
		filters = append(filters, gift.Contrast(c))
	}
	if c := factorPercent(s.Saturation, -100, 500); c != 0 {
		filters = append(filters, gift.Saturation(c))
	}
	out := src
	if len(filters) > 0 {
		out = filterRaster(src, filters...)
	}
	if lut, ok := gammaLUT(s.Gamma); ok {
		if out == src {
			out = src.Clone()
		}
		for i, v := range out.Pix {
			out.Pix[i] = lut[v]
		}
	}
	return out
}

// factorPercent maps an enhancement factor (1 = identity) to gift's
// percentage scale.
func factorPercent(f, lo, hi float64) float32 {
	if math.IsNaN(f) {
		return 0
	}
	return float32(max(lo, min(hi, (f-1)*100)))
}

// gammaLUT returns false when the correction is a no-op or undefined.
func gammaLUT(gamma float64) (lut [256]uint8, ok bool) {
	if math.Abs(gamma-1) < 1e-3 || !(gamma > 0) {
		return lut, false
	}
	inv := 1 / gamma
	for v := range 256 {
		lut[v] = clampU8(int(math.Pow(float64(v)/255, inv)*255 + 0.5))
	}
	return lut, true
}

// sharpness blends the image with its 3x3 smoothed version:
// out = smooth + f*(orig-smooth). Folded into one convolution whose
// weights always sum to 13.
func sharpness(f float64) []gift.Filter {
	if math.Abs(f-1) < 1e-3 || math.IsNaN(f) {
		return nil
	}
	o := float32(1 - f)
	c := float32(8*f + 5)
	kernel := []float32{
		o, o, o,
		o, c, o,
		o, o, o,
	}
	return []gift.Filter{gift.Convolution(kernel, true, false, false, 0)}
}

// boostLines grows dark strokes by one pixel and multiplies them back in,
// so thin graph axes survive quantization.
func boostLines(src *Raster) *Raster {
	thick := filterMask(src.Luma(), gift.Minimum(3, false))
	out := src.Clone()
	for i, m := range thick.Pix {
		if m >= lineBoostLevel {
			continue
		}
		off := i * 3
		for c := range 3 {
			out.Pix[off+c] = uint8(int(out.Pix[off+c]) * int(m) / 255)
		}
	}
	return out
}
