package eink

import (
	"image"
	"image/color"
	"image/draw"
	"math/rand/v2"
	"testing"

	"golang.org/x/image/font"
	"golang.org/x/image/font/basicfont"
	"golang.org/x/image/math/fixed"
)

func noise(w, h int, seed uint64) *Raster {
	rng := rand.New(rand.NewPCG(seed, seed+1))
	img := NewRaster(w, h)
	for i := range img.Pix {
		img.Pix[i] = uint8(rng.IntN(256))
	}
	return img
}

// ruled is a white page with a black horizontal rule every eighth row.
func ruled(w, h int) *Raster {
	img := uniform(w, h, 255, 255, 255)
	for y := 4; y < h; y += 8 {
		for x := range w {
			img.SetRGB(x, y, 0, 0, 0)
		}
	}
	return img
}

// textPage renders lines of 7x13 bitmap text in fg on a bg page.
func textPage(w, h int, fg, bg color.RGBA, lines ...string) *Raster {
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	draw.Draw(img, img.Bounds(), image.NewUniform(bg), image.Point{}, draw.Src)
	for i, line := range lines {
		d := &font.Drawer{
			Dst:  img,
			Src:  image.NewUniform(fg),
			Face: basicfont.Face7x13,
			Dot:  fixed.P(4, 13*(i+1)),
		}
		d.DrawString(line)
	}
	r, err := Normalize(img)
	if err != nil {
		panic(err)
	}
	return r
}

func countHard(m *Mask) int {
	n := 0
	for _, v := range m.Pix {
		if v >= hardSelect {
			n++
		}
	}
	return n
}

func TestMasksSolidBlack(t *testing.T) {
	m := BuildMasks(uniform(4, 4, 0, 0, 0), DefaultSettings())
	for i := range m.Flat.Pix {
		if m.Edge.Pix[i] != 0 || m.Texture.Pix[i] != 0 || m.MidGray.Pix[i] != 0 {
			t.Fatalf("pixel %d: edge=%d texture=%d mid=%d, want 0", i, m.Edge.Pix[i], m.Texture.Pix[i], m.MidGray.Pix[i])
		}
		if m.Flat.Pix[i] != 255 {
			t.Fatalf("pixel %d: flat=%d, want 255", i, m.Flat.Pix[i])
		}
	}
}

func TestMasksRegionsDisjoint(t *testing.T) {
	s := DefaultSettings()
	for _, despeckle := range []bool{false, true} {
		s.EdgeDespeckle = despeckle
		for _, src := range []*Raster{noise(40, 30, 1), ruled(40, 30), gradient(40, 30)} {
			m := BuildMasks(src, s)
			for i := range m.Flat.Pix {
				e, tx, f := m.EdgeHard.Pix[i] >= hardSelect, m.TextureHard.Pix[i] >= hardSelect, m.Flat.Pix[i] >= hardSelect
				if e && tx {
					t.Fatalf("pixel %d is both edge and texture", i)
				}
				if f && (e || tx) {
					t.Fatalf("pixel %d is flat and edge=%v texture=%v", i, e, tx)
				}
			}
		}
	}
}

func TestMasksRuledPageIsNotTexture(t *testing.T) {
	m := BuildMasks(ruled(48, 48), DefaultSettings())
	if n := countHard(m.TextureHard); n != 0 {
		t.Errorf("%d texture pixels on a ruled page", n)
	}
	if countHard(m.EdgeHard) == 0 {
		t.Error("rules produced no edges")
	}
	if countHard(m.Flat) == 0 {
		t.Error("white space between rules should be flat")
	}
}

func TestMasksTextIsNotTexture(t *testing.T) {
	black := color.RGBA{0, 0, 0, 255}
	white := color.RGBA{255, 255, 255, 255}
	tests := []struct {
		name string
		src  *Raster
	}{
		{"label", textPage(200, 40, black, white, "Living room 21.5C")},
		{"dense page", textPage(400, 140, black, white,
			"The quick brown fox jumps over the lazy dog 0123456789",
			"SPHINX OF BLACK QUARTZ, JUDGE MY VOW. 42% 17:05 -3.5C",
			"Pack my box with five dozen liquor jugs #@&*()[]{}<>",
			"The quick brown fox jumps over the lazy dog 0123456789",
			"SPHINX OF BLACK QUARTZ, JUDGE MY VOW. 42% 17:05 -3.5C",
			"Pack my box with five dozen liquor jugs #@&*()[]{}<>",
			"The quick brown fox jumps over the lazy dog 0123456789",
			"SPHINX OF BLACK QUARTZ, JUDGE MY VOW. 42% 17:05 -3.5C",
			"Pack my box with five dozen liquor jugs #@&*()[]{}<>",
			"The quick brown fox jumps over the lazy dog 0123456789",
		)},
		{"white on blue", textPage(200, 40, white, color.RGBA{30, 60, 200, 255}, "Outside 8C", "Wind 12 km/h")},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			for _, radius := range []int{0, 2, 3, 4} {
				s := DefaultSettings()
				s.TextureRadius = radius
				m := BuildMasks(tt.src, s)
				if n := countHard(m.TextureHard); n != 0 {
					t.Errorf("radius %d: %d text pixels classified as texture", radius, n)
				}
				if countHard(m.EdgeHard) == 0 {
					t.Errorf("radius %d: text produced no edges", radius)
				}
			}
		})
	}
}

func TestIntermediateTones(t *testing.T) {
	m := &Mask{W: 5, H: 1, Pix: []uint8{0, 255, 0, 100, 200}}
	got := intermediateTones(m, 13)
	want := []uint8{0, 0, 0, 255, 0}
	if string(got.Pix) != string(want) {
		t.Errorf("intermediateTones = %v, want %v", got.Pix, want)
	}
}

func TestMasksNoiseIsTexture(t *testing.T) {
	m := BuildMasks(noise(48, 48, 7), DefaultSettings())
	if n := countHard(m.TextureHard); n < 48*48/2 {
		t.Errorf("only %d of %d noise pixels are texture", n, 48*48)
	}
}

func TestMasksMidGray(t *testing.T) {
	s := DefaultSettings()
	s.MaskBlur = 0
	tests := []struct {
		name    string
		r, g, b uint8
		want    bool
	}{
		{"mid gray", 128, 128, 128, true},
		{"dark gray", 40, 40, 40, false},
		{"light gray", 230, 230, 230, false},
		{"mid red", 150, 20, 20, false},
	}
	for _, tt := range tests {
		m := BuildMasks(uniform(6, 6, tt.r, tt.g, tt.b), s)
		if got := m.MidGray.Hard(3, 3); got != tt.want {
			t.Errorf("%s: mid gray = %v, want %v", tt.name, got, tt.want)
		}
	}
}

func TestMasksLegacyHasNoTexture(t *testing.T) {
	s := DefaultSettings()
	s.MaskMode = MaskLegacy
	m := BuildMasks(noise(32, 32, 3), s)
	if n := countHard(m.TextureHard); n != 0 {
		t.Errorf("legacy mode produced %d texture pixels", n)
	}
}

func TestSmoothFlatKeepsEdges(t *testing.T) {
	src := noise(16, 16, 9)
	none := NewMask(16, 16)
	if out := smoothFlat(src, none, 2); string(out.Pix) != string(src.Pix) {
		t.Error("pixels outside the flat mask must not be smoothed")
	}
	if out := smoothFlat(src, none, 0); &out.Pix[0] == &src.Pix[0] {
		t.Error("smoothFlat must return a copy")
	}
}

func TestMaskArithmetic(t *testing.T) {
	a := &Mask{W: 4, H: 1, Pix: []uint8{0, 100, 200, 255}}
	b := &Mask{W: 4, H: 1, Pix: []uint8{255, 50, 100, 0}}

	check := func(name string, got *Mask, want []uint8) {
		t.Helper()
		if string(got.Pix) != string(want) {
			t.Errorf("%s = %v, want %v", name, got.Pix, want)
		}
	}
	check("threshold", thresholdMask(a, 128), []uint8{0, 0, 255, 255})
	check("below", thresholdBelow(a, 128), []uint8{255, 255, 0, 0})
	check("subtract", subtractMask(a, b), []uint8{0, 50, 100, 255})
	check("multiply", multiplyMask(a, b), []uint8{0, 19, 78, 0})
	check("lighter", lighterMask(a, b), []uint8{255, 100, 200, 255})
	check("invert", invertMask(a), []uint8{255, 155, 55, 0})
	check("no blur", blurMask(a, 0), a.Pix)
}
