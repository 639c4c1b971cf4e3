package eink

import (
	"github.com/disintegration/gift"
	"github.com/lucasb-eyer/go-colorful"
)

// hardSelect is the cut used whenever a soft mask acts as a boolean selector.
const hardSelect = 128

const maxTextureRadius = 16

// findEdges is the classic 3x3 "find edges" Laplacian; negative responses
// are clipped by the filter.
var findEdges = []float32{
	-1, -1, -1,
	-1, 8, -1,
	-1, -1, -1,
}

// Masks is the region classification of one source image. Soft masks are
// blurred for compositing; the *Hard masks are the pre-blur binary regions.
type Masks struct {
	Edge    *Mask // text and line strokes
	Texture *Mask // dense detail: photos, foliage
	Flat    *Mask // low gradient: sky, panels (binary)
	MidGray *Mask // neutral mid-tones

	EdgeHard    *Mask
	TextureHard *Mask

	// Smoothed is the source with flat regions median filtered. Only the photo
	// track consumes it.
	Smoothed *Raster
}

// BuildMasks classifies src. Edge and texture regions are disjoint by
// construction and the flat mask excludes both.
func BuildMasks(src *Raster, s Settings) *Masks {
	w, h := src.W, src.H
	gray := src.Luma()
	edges := filterMask(gray, gift.Convolution(findEdges, false, false, false, 0))
	legacy := s.MaskMode == MaskLegacy

	m := &Masks{}
	if legacy {
		m.TextureHard = NewMask(w, h)
		m.Texture = NewMask(w, h)
	} else {
		m.TextureHard = textureMask(gray, s)
		m.Texture = blurMask(m.TextureHard, s.MaskBlur)
	}

	edgeHard := subtractMask(thresholdMask(edges, s.EdgeThreshold), m.TextureHard)
	if s.EdgeDespeckle && !legacy {
		edgeHard = filterMask(edgeHard, gift.Minimum(3, false), gift.Maximum(3, false))
	}
	m.EdgeHard = edgeHard
	m.Edge = blurMask(edgeHard, s.MaskBlur)

	flat := thresholdBelow(filterMask(edges, gift.GaussianBlur(1)), s.SkyGradientThreshold)
	if !legacy {
		for range max(0, min(s.FlatGrow, maxTextureRadius)) {
			flat = filterMask(flat, gift.Maximum(3, false))
		}
	}
	flat = subtractMask(flat, m.EdgeHard)
	m.Flat = subtractMask(flat, m.TextureHard)

	m.MidGray = midToneMask(src, s, m.TextureHard)
	m.Smoothed = smoothFlat(src, m.Flat, s.SmoothStrength)
	return m
}

// textureMask marks neighbourhoods dense in pixels that sit strictly between
// a darker and a brighter 3x3 neighbour. Text and rules are two-toned: every
// pixel is its own local minimum or maximum, so however tightly set, a page
// of text never counts. Photographic detail has intermediate tones
// everywhere. The opening drops dense blobs narrower than the window.
func textureMask(gray *Mask, s Settings) *Mask {
	r := clampInt(s.TextureRadius, 0, maxTextureRadius)
	active := intermediateTones(gray, max(1, s.EdgeThreshold/2))
	if r == 0 {
		return thresholdMask(active, s.TextureDensityThreshold)
	}
	k := 2*r + 1
	dense := thresholdMask(filterMask(active, gift.Mean(k, false)), s.TextureDensityThreshold)
	return filterMask(dense, gift.Minimum(k, false), gift.Maximum(k, false), gift.Maximum(k, false))
}

// intermediateTones is 255 where a pixel is at least tol above its darkest
// and tol below its brightest 3x3 neighbour.
func intermediateTones(gray *Mask, tol int) *Mask {
	lo := filterMask(gray, gift.Minimum(3, false))
	hi := filterMask(gray, gift.Maximum(3, false))
	out := NewMask(gray.W, gray.H)
	for i, v := range gray.Pix {
		if int(v)-int(lo.Pix[i]) >= tol && int(hi.Pix[i])-int(v) >= tol {
			out.Pix[i] = 255
		}
	}
	return out
}

// midToneMask selects low-saturation pixels with HSV value in
// [MidLMin, MidLMax), outside texture regions.
func midToneMask(src *Raster, s Settings, texture *Mask) *Mask {
	sat, val := hsvPlanes(src)
	band := subtractMask(thresholdMask(val, s.MidLMin), thresholdMask(val, s.MidLMax))
	lowSat := thresholdBelow(sat, s.MidSMax)
	mid := subtractMask(multiplyMask(band, lowSat), texture)
	return blurMask(mid, s.MaskBlur)
}

func smoothFlat(src *Raster, flat *Mask, strength int) *Raster {
	if strength <= 0 {
		return src.Clone()
	}
	k := 3
	if strength > 1 {
		k = 5
	}
	median := filterRaster(src, gift.Median(k, false))
	return selectRaster(median, src, flat)
}

// hsvPlanes returns the HSV saturation and value channels scaled to 0..255.
func hsvPlanes(src *Raster) (sat, val *Mask) {
	sat = NewMask(src.W, src.H)
	val = NewMask(src.W, src.H)
	for i := range sat.Pix {
		off := i * 3
		c := colorful.Color{
			R: float64(src.Pix[off]) / 255.0,
			G: float64(src.Pix[off+1]) / 255.0,
			B: float64(src.Pix[off+2]) / 255.0,
		}
		_, s, v := c.Hsv()
		sat.Pix[i] = clampU8(int(s*255 + 0.5))
		val.Pix[i] = clampU8(int(v*255 + 0.5))
	}
	return sat, val
}

// ============ Mask arithmetic ============

// thresholdMask: 255 where m >= t.
func thresholdMask(m *Mask, t int) *Mask {
	out := NewMask(m.W, m.H)
	for i, v := range m.Pix {
		if int(v) >= t {
			out.Pix[i] = 255
		}
	}
	return out
}

// thresholdBelow: 255 where m < t.
func thresholdBelow(m *Mask, t int) *Mask {
	out := NewMask(m.W, m.H)
	for i, v := range m.Pix {
		if int(v) < t {
			out.Pix[i] = 255
		}
	}
	return out
}

func subtractMask(a, b *Mask) *Mask {
	out := NewMask(a.W, a.H)
	for i := range out.Pix {
		out.Pix[i] = uint8(max(0, int(a.Pix[i])-int(b.Pix[i])))
	}
	return out
}

func multiplyMask(a, b *Mask) *Mask {
	out := NewMask(a.W, a.H)
	for i := range out.Pix {
		out.Pix[i] = uint8(int(a.Pix[i]) * int(b.Pix[i]) / 255)
	}
	return out
}

func lighterMask(a, b *Mask) *Mask {
	out := NewMask(a.W, a.H)
	for i := range out.Pix {
		out.Pix[i] = max(a.Pix[i], b.Pix[i])
	}
	return out
}

func invertMask(m *Mask) *Mask {
	out := NewMask(m.W, m.H)
	for i, v := range m.Pix {
		out.Pix[i] = 255 - v
	}
	return out
}

func blurMask(m *Mask, sigma int) *Mask {
	if sigma <= 0 {
		return m.Clone()
	}
	return filterMask(m, gift.GaussianBlur(float32(sigma)))
}

// selectRaster picks a where sel is hard-selected and b elsewhere.
func selectRaster(a, b *Raster, sel *Mask) *Raster {
	out := b.Clone()
	paint(out, a, sel)
	return out
}

// paint copies src into dst wherever sel is hard-selected.
func paint(dst, src *Raster, sel *Mask) {
	for i, v := range sel.Pix {
		if v < hardSelect {
			continue
		}
		off := i * 3
		dst.Pix[off] = src.Pix[off]
		dst.Pix[off+1] = src.Pix[off+1]
		dst.Pix[off+2] = src.Pix[off+2]
	}
}
