package eink

import (
	"github.com/makeworld-the-better-one/dither/v2"
)

// bayer8 is the 8x8 Bayer index matrix, values 0..63.
var bayer8 = [8][8]uint8{
	{0, 48, 12, 60, 3, 51, 15, 63},
	{32, 16, 44, 28, 35, 19, 47, 31},
	{8, 56, 4, 52, 11, 59, 7, 55},
	{40, 24, 36, 20, 43, 27, 39, 23},
	{2, 50, 14, 62, 1, 49, 13, 61},
	{34, 18, 46, 30, 33, 17, 45, 29},
	{10, 58, 6, 54, 9, 57, 5, 53},
	{42, 26, 38, 22, 41, 25, 37, 21},
}

// Stucki weights over 42 for dx = -2..2 on the next two rows.
var (
	stuckiRow1 = [5]int{2, 4, 8, 4, 2}
	stuckiRow2 = [5]int{1, 2, 4, 2, 1}
)

const stuckiDiv = 42.0

// BayerThreshold is the ordered-dither threshold of pixel (x, y), in (0, 1).
func BayerThreshold(x, y int) float64 {
	return (float64(bayer8[y&7][x&7]) + 8) / 72.0
}

// Quantize maps every pixel to its nearest ink without dithering.
func Quantize(src *Raster) *Raster {
	out := NewRaster(src.W, src.H)
	for i := 0; i < len(src.Pix); i += 3 {
		p := Palette[NearestColor(src.Pix[i], src.Pix[i+1], src.Pix[i+2])]
		out.Pix[i], out.Pix[i+1], out.Pix[i+2] = p[0], p[1], p[2]
	}
	return out
}

// OrderedTwoColor halftones each pixel between its two nearest inks using
// the least-squares mix ratio against an 8x8 Bayer threshold.
func OrderedTwoColor(src *Raster) *Raster {
	out := NewRaster(src.W, src.H)
	for y := range src.H {
		for x := range src.W {
			r, g, b := src.RGB(x, y)
			a, bi := NearestTwo(r, g, b)
			ink := bi
			if MixRatio(r, g, b, a, bi) >= BayerThreshold(x, y) {
				ink = a
			}
			p := Palette[ink]
			out.SetRGB(x, y, p[0], p[1], p[2])
		}
	}
	return out
}

// BWHalftone is a black/white ordered halftone of the luma channel, used to
// render neutral mid-tones.
func BWHalftone(src *Raster) *Raster {
	gray := src.Luma()
	out := NewRaster(src.W, src.H)
	for y := range src.H {
		for x := range src.W {
			t := int((float64(bayer8[y&7][x&7]) + 0.5) * 4)
			if int(gray.Value(x, y)) > t {
				out.SetRGB(x, y, 255, 255, 255)
			}
		}
	}
	return out
}

// Stucki is serpentine error diffusion to the inks. Odd rows run right to
// left with the kernel mirrored. It works on its own copy of src.
func Stucki(src *Raster) *Raster {
	w, h := src.W, src.H
	work := src.Clone()
	out := NewRaster(w, h)
	for y := range h {
		flip := y%2 == 1
		for i := range w {
			x := i
			if flip {
				x = w - 1 - i
			}
			or, og, ob := work.RGB(x, y)
			p := Palette[NearestColor(or, og, ob)]
			out.SetRGB(x, y, p[0], p[1], p[2])
			errs := [3]int{int(or) - int(p[0]), int(og) - int(p[1]), int(ob) - int(p[2])}
			if errs == [3]int{} {
				continue
			}
			diffuse(work, x, y, errs, flip)
		}
	}
	return out
}

func diffuse(work *Raster, x, y int, errs [3]int, flip bool) {
	for dx := -2; dx <= 2; dx++ {
		nx := x + dx
		if flip {
			nx = x - dx
		}
		if nx < 0 || nx >= work.W {
			continue
		}
		for row, kernel := range [2]*[5]int{&stuckiRow1, &stuckiRow2} {
			ny := y + row + 1
			if ny >= work.H {
				continue
			}
			f := float64(kernel[dx+2]) / stuckiDiv
			off := pixOffset(work.W, nx, ny)
			for c := range 3 {
				work.Pix[off+c] = clampU8(int(work.Pix[off+c]) + int(float64(errs[c])*f))
			}
		}
	}
}

// FloydSteinberg quantizes with the dither library's canonical
// Floyd-Steinberg matrix (7/16, 3/16, 5/16, 1/16).
func FloydSteinberg(src *Raster) *Raster {
	d := dither.NewDitherer(ColorPalette())
	d.Matrix = dither.FloydSteinberg
	return rasterFromRGBA(d.DitherCopy(src.RGBA()))
}

// DitherPhoto renders the photo track in the selected mode. Hybrid uses the
// ordered halftone inside flat regions and Stucki elsewhere.
func DitherPhoto(src *Raster, flat *Mask, mode PhotoMode) *Raster {
	switch mode {
	case PhotoFS:
		return FloydSteinberg(src)
	case PhotoStucki:
		return Stucki(src)
	case PhotoOrdered:
		return OrderedTwoColor(src)
	default:
		return selectRaster(OrderedTwoColor(src), Stucki(src), flat)
	}
}
