// Package eink recolors RGB images for 7-ink color e-paper panels. Text and
// flat UI stay crisp while photos and gradients are dithered, each region
// routed by a set of derived masks.
package eink

import (
	"fmt"
	"image"
	"image/color"
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"
	"io"

	"github.com/disintegration/gift"
	_ "golang.org/x/image/bmp"
	_ "golang.org/x/image/webp"
)

// Raster is an opaque 8-bit RGB image stored row-major without padding.
// It implements image.Image and draw.Image.
type Raster struct {
	W, H int
	Pix  []uint8 // Interleaved RGB, len = W*H*3
}

// Mask is a single-channel 0..255 selector the size of a Raster.
type Mask struct {
	W, H int
	Pix  []uint8 // len = W*H
}

func NewRaster(w, h int) *Raster {
	return &Raster{W: w, H: h, Pix: make([]uint8, w*h*3)}
}

func NewMask(w, h int) *Mask {
	return &Mask{W: w, H: h, Pix: make([]uint8, w*h)}
}

func pixOffset(w, x, y int) int {
	return (y*w + x) * 3
}

func maskOffset(w, x, y int) int {
	return y*w + x
}

// ============ Raster ============

func (r *Raster) ColorModel() color.Model { return color.RGBAModel }

func (r *Raster) Bounds() image.Rectangle { return image.Rect(0, 0, r.W, r.H) }

func (r *Raster) At(x, y int) color.Color {
	if x < 0 || y < 0 || x >= r.W || y >= r.H {
		return color.RGBA{}
	}
	off := pixOffset(r.W, x, y)
	return color.RGBA{r.Pix[off], r.Pix[off+1], r.Pix[off+2], 255}
}

// Set stores the straight (non-premultiplied) color channels of c and drops alpha.
func (r *Raster) Set(x, y int, c color.Color) {
	if x < 0 || y < 0 || x >= r.W || y >= r.H {
		return
	}
	n := color.NRGBAModel.Convert(c).(color.NRGBA)
	r.SetRGB(x, y, n.R, n.G, n.B)
}

func (r *Raster) RGB(x, y int) (uint8, uint8, uint8) {
	off := pixOffset(r.W, x, y)
	return r.Pix[off], r.Pix[off+1], r.Pix[off+2]
}

func (r *Raster) SetRGB(x, y int, cr, cg, cb uint8) {
	off := pixOffset(r.W, x, y)
	r.Pix[off] = cr
	r.Pix[off+1] = cg
	r.Pix[off+2] = cb
}

func (r *Raster) Clone() *Raster {
	out := &Raster{W: r.W, H: r.H, Pix: make([]uint8, len(r.Pix))}
	copy(out.Pix, r.Pix)
	return out
}

// RGBA returns an opaque copy usable by image/draw based libraries.
func (r *Raster) RGBA() *image.RGBA {
	out := image.NewRGBA(r.Bounds())
	for i, j := 0, 0; i < len(r.Pix); i, j = i+3, j+4 {
		out.Pix[j] = r.Pix[i]
		out.Pix[j+1] = r.Pix[i+1]
		out.Pix[j+2] = r.Pix[i+2]
		out.Pix[j+3] = 255
	}
	return out
}

// Luma returns the ITU-R 601 grayscale of r.
func (r *Raster) Luma() *Mask {
	g := newFilter(gift.Grayscale())
	out := image.NewGray(r.Bounds())
	g.Draw(out, r.RGBA())
	return maskFromGray(out)
}

func rasterFromRGBA(img *image.RGBA) *Raster {
	b := img.Bounds()
	w, h := b.Dx(), b.Dy()
	out := NewRaster(w, h)
	for y := range h {
		row := img.Pix[(y)*img.Stride:]
		for x := range w {
			off := pixOffset(w, x, y)
			out.Pix[off] = row[x*4]
			out.Pix[off+1] = row[x*4+1]
			out.Pix[off+2] = row[x*4+2]
		}
	}
	return out
}

// ============ Mask ============

// Gray exposes m as an *image.Gray sharing the same pixels.
func (m *Mask) Gray() *image.Gray {
	return &image.Gray{Pix: m.Pix, Stride: m.W, Rect: image.Rect(0, 0, m.W, m.H)}
}

func (m *Mask) Value(x, y int) uint8 {
	return m.Pix[maskOffset(m.W, x, y)]
}

// Hard reports whether the pixel counts as selected when m is used as a
// boolean selector.
func (m *Mask) Hard(x, y int) bool {
	return m.Pix[maskOffset(m.W, x, y)] >= hardSelect
}

func (m *Mask) Clone() *Mask {
	out := &Mask{W: m.W, H: m.H, Pix: make([]uint8, len(m.Pix))}
	copy(out.Pix, m.Pix)
	return out
}

func maskFromGray(g *image.Gray) *Mask {
	b := g.Bounds()
	w, h := b.Dx(), b.Dy()
	if g.Stride == w && b.Min == (image.Point{}) && len(g.Pix) == w*h {
		return &Mask{W: w, H: h, Pix: g.Pix}
	}
	out := NewMask(w, h)
	for y := range h {
		copy(out.Pix[y*w:(y+1)*w], g.Pix[g.PixOffset(b.Min.X, b.Min.Y+y):])
	}
	return out
}

// ============ Input normalization ============

// Normalize converts any decoded image (paletted, gray, RGBA, YCbCr, ...)
// into an opaque Raster. Alpha is discarded, not composited.
func Normalize(img image.Image) (*Raster, error) {
	if img == nil {
		return nil, imageError("normalize", image.Point{}, ErrNilImage)
	}
	bounds := img.Bounds()
	w, h := bounds.Dx(), bounds.Dy()
	if w <= 0 || h <= 0 {
		return nil, imageError("normalize", bounds.Size(), ErrEmptyImage)
	}
	if r, ok := img.(*Raster); ok {
		return r.Clone(), nil
	}
	out := NewRaster(w, h)
	switch src := img.(type) {
	case *image.NRGBA:
		for y := range h {
			for x := range w {
				i := src.PixOffset(bounds.Min.X+x, bounds.Min.Y+y)
				out.SetRGB(x, y, src.Pix[i], src.Pix[i+1], src.Pix[i+2])
			}
		}
	default:
		for y := range h {
			for x := range w {
				out.Set(x, y, img.At(bounds.Min.X+x, bounds.Min.Y+y))
			}
		}
	}
	return out, nil
}

// Decode reads any registered format (png, jpeg, gif, bmp, webp) and
// normalizes it. The returned string is the format name.
func Decode(rd io.Reader) (*Raster, string, error) {
	img, format, err := image.Decode(rd)
	if err != nil {
		return nil, "", imageError("decode", image.Point{}, fmt.Errorf("%w: %w", ErrDecode, err))
	}
	r, err := Normalize(img)
	if err != nil {
		return nil, format, err
	}
	return r, format, nil
}

// ============ gift helpers ============

// newFilter builds a single-threaded gift pipeline; one conversion never
// fans out across goroutines.
func newFilter(filters ...gift.Filter) *gift.GIFT {
	g := gift.New(filters...)
	g.SetParallelization(false)
	return g
}

func filterRaster(src *Raster, filters ...gift.Filter) *Raster {
	g := newFilter(filters...)
	in := src.RGBA()
	out := image.NewRGBA(g.Bounds(in.Bounds()))
	g.Draw(out, in)
	return rasterFromRGBA(out)
}

func filterMask(m *Mask, filters ...gift.Filter) *Mask {
	g := newFilter(filters...)
	in := m.Gray()
	out := image.NewGray(g.Bounds(in.Bounds()))
	g.Draw(out, in)
	return maskFromGray(out)
}

func clampInt(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

func clampU8(v int) uint8 {
	return uint8(clampInt(v, 0, 255))
}
