package eink

import (
	"image"
	"image/color"
	"image/draw"

	"golang.org/x/image/font"
	"golang.org/x/image/font/basicfont"
	"golang.org/x/image/math/fixed"
	"gonum.org/v1/gonum/stat"
)

// MaskLayer is one named mask with the flat color the overlay paints it in.
type MaskLayer struct {
	Name  string
	Color color.RGBA
	Mask  *Mask
}

var (
	overlayEdge    = color.RGBA{255, 0, 0, 255}
	overlayMid     = color.RGBA{0, 255, 0, 255}
	overlayFlat    = color.RGBA{0, 0, 255, 255}
	overlayTexture = color.RGBA{255, 0, 255, 255}
)

// Layers lists the soft masks in overlay paint order, bottom -> top.
func (m *Masks) Layers() []MaskLayer {
	return []MaskLayer{
		{Name: "edge", Color: overlayEdge, Mask: m.Edge},
		{Name: "midtone", Color: overlayMid, Mask: m.MidGray},
		{Name: "flat", Color: overlayFlat, Mask: m.Flat},
		{Name: "texture", Color: overlayTexture, Mask: m.Texture},
	}
}

func (m *Masks) GrayLayers() []*image.Gray {
	layers := m.Layers()
	out := make([]*image.Gray, len(layers))
	for i, l := range layers {
		out[i] = l.Mask.Clone().Gray()
	}
	return out
}

// RGBALayers renders every mask as its overlay color with the mask as alpha.
func (m *Masks) RGBALayers() []*image.NRGBA {
	layers := m.Layers()
	out := make([]*image.NRGBA, len(layers))
	for i, l := range layers {
		layer := image.NewNRGBA(image.Rect(0, 0, l.Mask.W, l.Mask.H))
		for y := range l.Mask.H {
			for x := range l.Mask.W {
				layer.SetNRGBA(x, y, color.NRGBA{R: l.Color.R, G: l.Color.G, B: l.Color.B, A: l.Mask.Value(x, y)})
			}
		}
		out[i] = layer
	}
	return out
}

// Coverage is the mean strength of every mask in [0,1], keyed by layer name.
func (m *Masks) Coverage() map[string]float64 {
	out := make(map[string]float64, 4)
	for _, l := range m.Layers() {
		vals := make([]float64, len(l.Mask.Pix))
		for i, v := range l.Mask.Pix {
			vals[i] = float64(v) / 255.0
		}
		out[l.Name] = stat.Mean(vals, nil)
	}
	return out
}

// DebugOverlay paints each mask of c in its flat color over the composite,
// with later layers on top. legend adds a key in the top-left corner.
func DebugOverlay(c *Composition, legend bool) *Raster {
	out := c.Image.Clone()
	for _, l := range c.Masks.Layers() {
		fill := NewRaster(out.W, out.H)
		for i := 0; i < len(fill.Pix); i += 3 {
			fill.Pix[i], fill.Pix[i+1], fill.Pix[i+2] = l.Color.R, l.Color.G, l.Color.B
		}
		paint(out, fill, l.Mask)
	}
	if legend {
		out = drawLegend(out, c.Masks.Layers())
	}
	return out
}

const (
	legendLineHeight = 13
	legendWidth      = 64
)

func drawLegend(r *Raster, layers []MaskLayer) *Raster {
	img := r.RGBA()
	h := len(layers)*legendLineHeight + 4
	draw.Draw(img, image.Rect(0, 0, legendWidth, h),
		&image.Uniform{color.RGBA{255, 255, 255, 255}}, image.Point{}, draw.Src)
	for i, l := range layers {
		d := &font.Drawer{
			Dst:  img,
			Src:  image.NewUniform(l.Color),
			Face: basicfont.Face7x13,
			Dot:  fixed.Point26_6{X: fixed.I(2), Y: fixed.I((i + 1) * legendLineHeight)},
		}
		d.DrawString(l.Name)
	}
	return rasterFromRGBA(img)
}
