package eink

import (
	"math"
	"testing"
)

func TestDebugOverlayColors(t *testing.T) {
	c, err := Compose(dashboard(64, 48), DefaultSettings())
	if err != nil {
		t.Fatal(err)
	}
	out := DebugOverlay(c, false)
	m := c.Masks
	for y := range out.H {
		for x := range out.W {
			r, g, b := out.RGB(x, y)
			got := [3]uint8{r, g, b}
			var want [3]uint8
			switch {
			case m.Texture.Hard(x, y):
				want = [3]uint8{255, 0, 255}
			case m.Flat.Hard(x, y):
				want = [3]uint8{0, 0, 255}
			case m.MidGray.Hard(x, y):
				want = [3]uint8{0, 255, 0}
			case m.Edge.Hard(x, y):
				want = [3]uint8{255, 0, 0}
			default:
				cr, cg, cb := c.Image.RGB(x, y)
				want = [3]uint8{cr, cg, cb}
			}
			if got != want {
				t.Fatalf("(%d,%d) = %v, want %v", x, y, got, want)
			}
		}
	}
}

func TestDebugOverlayLegend(t *testing.T) {
	c, err := Compose(uniform(80, 60, 0, 0, 0), DefaultSettings())
	if err != nil {
		t.Fatal(err)
	}
	plain := DebugOverlay(c, false)
	out := DebugOverlay(c, true)
	if out.W != plain.W || out.H != plain.H {
		t.Fatalf("legend changed the size to %dx%d", out.W, out.H)
	}
	if r, g, b := out.RGB(legendWidth-1, 1); r != 255 || g != 255 || b != 255 {
		t.Errorf("legend background = %d,%d,%d, want white", r, g, b)
	}
	if r, g, b := out.RGB(79, 59); [3]uint8{r, g, b} != [3]uint8(plain.Pix[len(plain.Pix)-3:]) {
		t.Error("legend drew outside its box")
	}
	// Every overlay color appears in the legend text.
	seen := map[[3]uint8]bool{}
	for y := range len(c.Masks.Layers())*legendLineHeight + 4 {
		for x := range legendWidth {
			r, g, b := out.RGB(x, y)
			seen[[3]uint8{r, g, b}] = true
		}
	}
	for _, l := range c.Masks.Layers() {
		if !seen[[3]uint8{l.Color.R, l.Color.G, l.Color.B}] {
			t.Errorf("legend has no %s text", l.Name)
		}
	}
}

func TestMaskCoverage(t *testing.T) {
	m := BuildMasks(uniform(10, 10, 0, 0, 0), DefaultSettings())
	cov := m.Coverage()
	want := map[string]float64{"edge": 0, "midtone": 0, "flat": 1, "texture": 0}
	for name, v := range want {
		if math.Abs(cov[name]-v) > 1e-9 {
			t.Errorf("coverage[%s] = %v, want %v", name, cov[name], v)
		}
	}
}

func TestMaskLayers(t *testing.T) {
	m := BuildMasks(dashboard(32, 24), DefaultSettings())
	grays := m.GrayLayers()
	colored := m.RGBALayers()
	layers := m.Layers()
	if len(grays) != len(layers) || len(colored) != len(layers) {
		t.Fatalf("got %d gray and %d colored layers for %d masks", len(grays), len(colored), len(layers))
	}
	for i, l := range layers {
		g := grays[i]
		if g.Bounds().Dx() != 32 || g.Bounds().Dy() != 24 {
			t.Fatalf("%s layer bounds = %v", l.Name, g.Bounds())
		}
		g.Pix[0] = ^g.Pix[0]
		if l.Mask.Pix[0] == g.Pix[0] {
			t.Errorf("%s gray layer shares pixels with the mask", l.Name)
		}
		if a := colored[i].NRGBAAt(5, 5).A; a != l.Mask.Value(5, 5) {
			t.Errorf("%s colored alpha = %d, want %d", l.Name, a, l.Mask.Value(5, 5))
		}
	}
}
