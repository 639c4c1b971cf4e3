package eink

import (
	"image/color"

	"gonum.org/v1/gonum/mat"
)

// Ink indices. Black and White must stay at 0 and 1; the neutral
// short-circuit relies on it.
const (
	Black = iota
	White
	Red
	Yellow
	Green
	Blue
	Orange

	NumInks
)

// Palette is the fixed ink table of 7-color e-paper panels.
var Palette = [NumInks][3]uint8{
	{0, 0, 0},
	{255, 255, 255},
	{255, 0, 0},
	{255, 255, 0},
	{0, 255, 0},
	{0, 0, 255},
	{255, 165, 0},
}

var inkNames = [NumInks]string{"black", "white", "red", "yellow", "green", "blue", "orange"}

const (
	mixEpsilon     = 1e-6
	neutralSpread  = 12
	neutralWhiteLu = 200.0
)

// mixTable caches, for every ordered ink pair (a, b), the segment
// direction a-b and its squared length.
var mixTable = buildMixTable()

type mixPair struct {
	dir [3]float64
	den float64
}

func buildMixTable() (t [NumInks][NumInks]mixPair) {
	for a := range NumInks {
		for b := range NumInks {
			d := mat.NewVecDense(3, nil)
			for c := range 3 {
				d.SetVec(c, float64(Palette[a][c])-float64(Palette[b][c]))
			}
			t[a][b] = mixPair{
				dir: [3]float64{d.AtVec(0), d.AtVec(1), d.AtVec(2)},
				den: max(mat.Dot(d, d), mixEpsilon),
			}
		}
	}
	return t
}

func InkName(i int) string {
	if i < 0 || i >= NumInks {
		return "unknown"
	}
	return inkNames[i]
}

func Ink(i int) color.RGBA {
	p := Palette[i]
	return color.RGBA{p[0], p[1], p[2], 255}
}

// ColorPalette returns the inks as a color.Palette in index order.
func ColorPalette() color.Palette {
	out := make(color.Palette, NumInks)
	for i := range NumInks {
		out[i] = Ink(i)
	}
	return out
}

// IsNeutral reports a grayish pixel: channel spread within
// max(12, 10% of the brightest channel).
func IsNeutral(r, g, b uint8) bool {
	hi := max(r, g, b)
	lo := min(r, g, b)
	return int(hi)-int(lo) <= max(neutralSpread, int(0.1*float64(hi)))
}

func luminance(r, g, b uint8) float64 {
	return 0.2126*float64(r) + 0.7152*float64(g) + 0.0722*float64(b)
}

func nearestBW(r, g, b uint8) int {
	if luminance(r, g, b) >= neutralWhiteLu {
		return White
	}
	return Black
}

func distSq(r, g, b uint8, ink int) int {
	p := Palette[ink]
	dr := int(r) - int(p[0])
	dg := int(g) - int(p[1])
	db := int(b) - int(p[2])
	return dr*dr + dg*dg + db*db
}

// NearestColor returns the ink closest to (r,g,b). Neutral pixels only
// choose between black and white so gray UI never picks up a colored ink.
func NearestColor(r, g, b uint8) int {
	if IsNeutral(r, g, b) {
		return nearestBW(r, g, b)
	}
	best := 0
	bestD := distSq(r, g, b, 0)
	for i := 1; i < NumInks; i++ {
		if d := distSq(r, g, b, i); d < bestD {
			bestD = d
			best = i
		}
	}
	return best
}

// NearestTwo returns the two closest inks, closest first. Neutral pixels
// always get (Black, White).
func NearestTwo(r, g, b uint8) (int, int) {
	if IsNeutral(r, g, b) {
		return Black, White
	}
	first, second := -1, -1
	firstD, secondD := int(^uint(0)>>1), int(^uint(0)>>1)
	for i := range NumInks {
		d := distSq(r, g, b, i)
		if d < firstD {
			second, secondD = first, firstD
			first, firstD = i, d
		} else if d < secondD {
			second, secondD = i, d
		}
	}
	return first, second
}

// MixRatio solves min over alpha of |rgb - (alpha*A + (1-alpha)*B)|^2 and
// clamps the result to [0,1]. 1 means pure ink a, 0 pure ink b.
func MixRatio(r, g, b uint8, a, bi int) float64 {
	p := &mixTable[a][bi]
	base := Palette[bi]
	num := p.dir[0]*(float64(r)-float64(base[0])) +
		p.dir[1]*(float64(g)-float64(base[1])) +
		p.dir[2]*(float64(b)-float64(base[2]))
	return max(0, min(1, num/p.den))
}
