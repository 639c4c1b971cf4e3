package eink

import (
	"fmt"
	"image"
	"strings"

	"github.com/disintegration/gift"
)

// RenderMode selects the whole-frame strategy.
type RenderMode string

const (
	// RenderRegional is the mask-driven composite.
	RenderRegional RenderMode = "regional"
	// RenderDither is Floyd-Steinberg over the photo-enhanced frame.
	RenderDither RenderMode = "dither"
	// RenderFlat is no-dither quantization of the UI-enhanced frame.
	RenderFlat RenderMode = "flat"
)

// ParseRenderMode accepts the mode names and the boolean spellings of the
// dither switch ("true" => dither, "false"/"none" => flat). Anything else
// is regional.
func ParseRenderMode(s string) RenderMode {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "dither", "true", "fs":
		return RenderDither
	case "flat", "false", "none":
		return RenderFlat
	default:
		return RenderRegional
	}
}

const tintCut = 32

// Composition is the result of one regional conversion with every layer
// that went into it.
type Composition struct {
	Image *Raster
	Masks *Masks

	UI       *Raster // UI-enhanced source
	Sharp    *Raster // no-dither (plus tinted panels) quantization of UI
	Halftone *Raster // black/white ordered halftone
	Photo    *Raster // dithered photo track

	PaletteFit *Mask
	HighError  *Mask
	Tinted     *Mask
	Safe       *Mask // where the sharp track was painted
}

// Convert runs the regional pipeline and returns only the final raster.
func Convert(src *Raster, s Settings) (*Raster, error) {
	c, err := Compose(src, s)
	if err != nil {
		return nil, err
	}
	return c.Image, nil
}

// Render converts src with the requested whole-frame mode.
func Render(src *Raster, s Settings, mode RenderMode) (*Raster, error) {
	if err := checkRaster(src, "render"); err != nil {
		return nil, err
	}
	switch mode {
	case RenderDither:
		return FloydSteinberg(EnhancePhoto(src, s)), nil
	case RenderFlat:
		return Quantize(EnhanceUI(src, s)), nil
	default:
		return Convert(src, s)
	}
}

// Compose classifies src, renders the sharp, halftone and photo tracks and
// layers them:
//
//  1. photo track everywhere
//  2. sharp track where safe = max(edge, paletteFit - highError); the
//     pre-blur edge counts too so one-pixel strokes are kept
//  3. photo track again wherever texture was detected
//
// Every selection is hard, so each output pixel is an ink.
func Compose(src *Raster, s Settings) (*Composition, error) {
	if err := checkRaster(src, "compose"); err != nil {
		return nil, err
	}
	masks := BuildMasks(src, s)
	c := &Composition{Masks: masks}

	c.UI = EnhanceUI(src, s)
	sharp := Quantize(c.UI)
	c.PaletteFit = paletteFitMask(c.UI, sharp, s.UIPaletteThreshold)
	c.HighError = highErrorMask(c.UI, sharp, s.HighErrorThreshold)

	c.Tinted = subtractMask(tintedFlatRegions(c.UI, masks.Flat, s), masks.Edge)
	c.PaletteFit = lighterMask(c.PaletteFit, c.Tinted)
	c.Sharp = selectRaster(OrderedTwoColor(c.UI), sharp, c.Tinted)

	c.Halftone = BWHalftone(src)
	ui := selectRaster(c.Halftone, c.Sharp, masks.MidGray)

	mode, _ := ParsePhotoMode(string(s.PhotoMode))
	c.Photo = DitherPhoto(EnhancePhoto(masks.Smoothed, s), masks.Flat, mode)

	if s.MaskMode == MaskLegacy {
		c.Safe = masks.Edge
		mix := selectRaster(c.Photo, ui, invertMask(masks.Edge))
		c.Image = selectRaster(c.Sharp, mix, masks.Edge)
		return c, nil
	}

	c.Safe = lighterMask(lighterMask(masks.EdgeHard, masks.Edge), subtractMask(c.PaletteFit, c.HighError))
	out := c.Photo.Clone()
	paint(out, ui, c.Safe)
	paint(out, c.Photo, masks.Texture)
	c.Image = out
	return c, nil
}

func checkRaster(src *Raster, op string) error {
	if src == nil {
		return imageError(op, image.Point{}, ErrNilImage)
	}
	if src.W <= 0 || src.H <= 0 {
		return imageError(op, image.Pt(src.W, src.H), ErrEmptyImage)
	}
	if len(src.Pix) != src.W*src.H*3 {
		return imageError(op, image.Pt(src.W, src.H), fmt.Errorf("%w: %d bytes", ErrMismatch, len(src.Pix)))
	}
	return nil
}

// paletteFitMask marks pixels whose nearest ink is within thr squared
// distance of the enhanced source.
func paletteFitMask(ui, quant *Raster, thr int) *Mask {
	out := NewMask(ui.W, ui.H)
	for i := range out.Pix {
		off := i * 3
		d := 0
		for c := range 3 {
			v := int(ui.Pix[off+c]) - int(quant.Pix[off+c])
			d += v * v
		}
		if d <= thr {
			out.Pix[i] = 255
		}
	}
	return out
}

// highErrorMask marks pixels where the no-dither quantization drifts too far
// in brightness from its source. Median and blur remove isolated hits.
func highErrorMask(ui, quant *Raster, thr int) *Mask {
	a, b := ui.Luma(), quant.Luma()
	diff := NewMask(ui.W, ui.H)
	for i := range diff.Pix {
		diff.Pix[i] = uint8(max(int(a.Pix[i])-int(b.Pix[i]), int(b.Pix[i])-int(a.Pix[i])))
	}
	diff = filterMask(diff, gift.Median(3, false), gift.GaussianBlur(1))
	return thresholdMask(diff, thr+1)
}

// tintedFlatRegions finds saturated, bright flat panels (pastel cards,
// colored headers). They get a two-ink halftone instead of a hard snap.
func tintedFlatRegions(ui *Raster, flat *Mask, s Settings) *Mask {
	sat, val := hsvPlanes(ui)
	tinted := multiplyMask(thresholdMask(sat, s.UITintSaturation), thresholdMask(val, s.UITintMinValue))
	tinted = multiplyMask(tinted, flat)
	tinted = filterMask(tinted, gift.Maximum(3, false), gift.GaussianBlur(1))
	return thresholdMask(tinted, tintCut)
}
