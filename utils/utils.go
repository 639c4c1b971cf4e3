package utils

import (
	"fmt"
	"image"
	"image/color"
	"math"
	"slices"

	"github.com/cenkalti/dominantcolor"
	"github.com/disintegration/imaging"
	"github.com/lucasb-eyer/go-colorful"
	"github.com/muesli/clusters"
	"github.com/muesli/kmeans"
	"golang.org/x/image/draw"

	eink "github.com/rjgrandy/eink-proxy"
	"github.com/rjgrandy/eink-proxy/internal/logging"
)

type PaletteMethod int

const (
	PaletteMethodDominantColor PaletteMethod = iota
	PaletteMethodKMeans
)

func (m PaletteMethod) String() string {
	switch m {
	case PaletteMethodKMeans:
		return "kmeans"
	default:
		return "dominantcolor"
	}
}

// ParsePaletteMethod accepts the String() names; anything else is dominantcolor.
func ParsePaletteMethod(s string) PaletteMethod {
	if s == PaletteMethodKMeans.String() {
		return PaletteMethodKMeans
	}
	return PaletteMethodDominantColor
}

// WeightedColor is a source color with its share of the image.
type WeightedColor struct {
	Col    colorful.Color
	Weight float64
}

// ============ Source colors ============

// SourceColors returns up to k visually distinct dominant colors of img,
// strongest first.
func SourceColors(img image.Image, k int, method PaletteMethod) []WeightedColor {
	switch method {
	case PaletteMethodKMeans:
		p := kmeansColors(img, k)
		if len(p) != 0 {
			return p
		}
		logging.Warn("kmeans found no clusters, falling back to dominantcolor")
		return dominantColors(img, k)
	default:
		return dominantColors(img, k)
	}
}

func dominantColors(img image.Image, k int) []WeightedColor {
	if k <= 0 {
		return nil
	}
	candidates := dominantcolor.FindWeight(img, max(24, k*8))
	weighted := make([]WeightedColor, 0, len(candidates))
	for _, c := range candidates {
		col, _ := colorful.MakeColor(c.RGBA)
		weighted = append(weighted, WeightedColor{Col: col.Clamped(), Weight: c.Weight})
	}
	return SelectDiverse(weighted, k)
}

const maxKMeansSamples = 12000

func kmeansColors(img image.Image, k int) []WeightedColor {
	b := img.Bounds()
	width, height := b.Dx(), b.Dy()
	if k <= 0 || width == 0 || height == 0 {
		return nil
	}

	step := 1
	if width*height > maxKMeansSamples {
		step = int(math.Sqrt(float64(width*height)/maxKMeansSamples)) + 1
	}
	dataset := make(clusters.Observations, 0, min(width*height, maxKMeansSamples))
	for y := b.Min.Y; y < b.Max.Y; y += step {
		for x := b.Min.X; x < b.Max.X; x += step {
			r16, g16, b16, _ := img.At(x, y).RGBA()
			dataset = append(dataset, clusters.Coordinates{
				float64(r16) / 0xffff,
				float64(g16) / 0xffff,
				float64(b16) / 0xffff,
			})
		}
	}

	cc, err := kmeans.New().Partition(dataset, min(k*4, len(dataset)))
	if err != nil {
		logging.Debug("kmeans partition: %v", err)
		return nil
	}
	total := float64(len(dataset))
	weighted := make([]WeightedColor, 0, len(cc))
	for _, c := range cc {
		if len(c.Center) < 3 || len(c.Observations) == 0 {
			continue
		}
		col := colorful.Color{R: c.Center[0], G: c.Center[1], B: c.Center[2]}.Clamped()
		weighted = append(weighted, WeightedColor{Col: col, Weight: float64(len(c.Observations)) / total})
	}
	return SelectDiverse(weighted, k)
}

// SelectDiverse greedily picks k candidates, seeded by the heaviest, each
// next one maximizing Lab distance to the picked set scaled by its weight.
// The result is sorted by weight, heaviest first.
func SelectDiverse(cands []WeightedColor, k int) []WeightedColor {
	k = min(k, len(cands))
	if k <= 0 {
		return nil
	}
	labs := make([][3]float64, len(cands))
	maxW := 1e-6
	for i, c := range cands {
		l, a, b := c.Col.Lab()
		labs[i] = [3]float64{l, a, b}
		maxW = max(maxW, c.Weight)
	}

	picked := []int{0}
	for i, c := range cands {
		if c.Weight > cands[picked[0]].Weight {
			picked[0] = i
		}
	}
	used := make([]bool, len(cands))
	used[picked[0]] = true

	for len(picked) < k {
		best, bestScore := -1, -1.0
		for i := range cands {
			if used[i] {
				continue
			}
			minD := math.MaxFloat64
			for _, p := range picked {
				d0, d1, d2 := labs[i][0]-labs[p][0], labs[i][1]-labs[p][1], labs[i][2]-labs[p][2]
				minD = min(minD, d0*d0+d1*d1+d2*d2)
			}
			score := math.Sqrt(minD) * (0.55 + 0.45*math.Sqrt(max(0, cands[i].Weight)/maxW))
			if score > bestScore {
				best, bestScore = i, score
			}
		}
		if best < 0 {
			break
		}
		used[best] = true
		picked = append(picked, best)
	}

	out := make([]WeightedColor, len(picked))
	for i, p := range picked {
		out[i] = cands[p]
	}
	slices.SortStableFunc(out, func(a, b WeightedColor) int {
		switch {
		case a.Weight > b.Weight:
			return -1
		case a.Weight < b.Weight:
			return 1
		}
		return 0
	})
	return out
}

// SortByBrightness orders colors from darkest to brightest by linear luminance.
func SortByBrightness(colors []WeightedColor) {
	slices.SortStableFunc(colors, func(a, b WeightedColor) int {
		ya, yb := linearLuma(a.Col), linearLuma(b.Col)
		switch {
		case ya < yb:
			return -1
		case ya > yb:
			return 1
		}
		return 0
	})
}

func linearLuma(c colorful.Color) float64 {
	r, g, b := c.LinearRgb()
	return 0.2126*r + 0.7152*g + 0.0722*b
}

// ============ Ink fit ============

// InkMatch is one source color against the ink the no-dither track would
// print for it.
type InkMatch struct {
	Source WeightedColor
	Ink    int
	DistSq int
}

// Representable reports whether the source color can stay sharp, i.e. its
// nearest ink lies within thr squared RGB distance.
func (m InkMatch) Representable(thr int) bool {
	return m.DistSq <= thr
}

func (m InkMatch) String() string {
	return fmt.Sprintf("%s %5.1f%% -> %-6s dist2=%d", m.Source.Col.Hex(), m.Source.Weight*100, eink.InkName(m.Ink), m.DistSq)
}

// InkFit matches each dominant color of img to its nearest ink.
func InkFit(img image.Image, k int, method PaletteMethod) []InkMatch {
	colors := SourceColors(img, k, method)
	out := make([]InkMatch, len(colors))
	for i, c := range colors {
		r, g, b := c.Col.RGB255()
		ink := eink.NearestColor(r, g, b)
		p := eink.Palette[ink]
		dr, dg, db := int(r)-int(p[0]), int(g)-int(p[1]), int(b)-int(p[2])
		out[i] = InkMatch{Source: c, Ink: ink, DistSq: dr*dr + dg*dg + db*db}
	}
	return out
}

// ============ Image I/O ============

// ReadImage decodes a file, honoring the EXIF orientation of photos, and
// normalizes it to a raster.
func ReadImage(path string) (*eink.Raster, error) {
	img, err := imaging.Open(path, imaging.AutoOrientation(true))
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", path, err)
	}
	return eink.Normalize(img)
}

// SaveImage encodes img in the format implied by the file extension.
func SaveImage(img image.Image, filename string) error {
	return imaging.Save(img, filename)
}

func SaveGrayImages(images []*image.Gray, names []string, dir string) error {
	for i, img := range images {
		if err := SaveImage(img, layerPath(dir, "mask", names, i)); err != nil {
			return err
		}
	}
	return nil
}

func SaveRgbaImages(images []*image.NRGBA, names []string, dir string) error {
	for i, img := range images {
		if err := SaveImage(img, layerPath(dir, "layer", names, i)); err != nil {
			return err
		}
	}
	return nil
}

func layerPath(dir, prefix string, names []string, i int) string {
	name := fmt.Sprintf("%02d", i)
	if i < len(names) {
		name = names[i]
	}
	return fmt.Sprintf("%s/%s_%s.png", dir, prefix, name)
}

// FitPanel scales img with Catmull-Rom to fit inside w x h, keeping the
// aspect ratio, and centers it on a white panel.
func FitPanel(img image.Image, w, h int) *image.NRGBA {
	canvas := image.NewNRGBA(image.Rect(0, 0, w, h))
	draw.Draw(canvas, canvas.Bounds(), image.White, image.Point{}, draw.Src)

	src := img.Bounds()
	if src.Empty() || w <= 0 || h <= 0 {
		return canvas
	}
	scale := min(float64(w)/float64(src.Dx()), float64(h)/float64(src.Dy()))
	nw := max(1, int(math.Floor(float64(src.Dx())*scale)))
	nh := max(1, int(math.Floor(float64(src.Dy())*scale)))
	at := image.Pt((w-nw)/2, (h-nh)/2)
	draw.CatmullRom.Scale(canvas, image.Rectangle{Min: at, Max: at.Add(image.Pt(nw, nh))}, img, src, draw.Over, nil)
	return canvas
}

// SaveInkSwatch writes one tile per match: the source color on top and the
// ink it maps to below.
func SaveInkSwatch(matches []InkMatch, tileSize int, filename string) error {
	if len(matches) == 0 {
		return fmt.Errorf("empty palette")
	}
	if tileSize <= 0 {
		tileSize = 64
	}
	img := image.NewRGBA(image.Rect(0, 0, tileSize*len(matches), tileSize*2))
	for i, m := range matches {
		r, g, b := m.Source.Col.RGB255()
		x0 := i * tileSize
		top := image.Rect(x0, 0, x0+tileSize, tileSize)
		bottom := top.Add(image.Pt(0, tileSize))
		draw.Draw(img, top, image.NewUniform(color.RGBA{r, g, b, 255}), image.Point{}, draw.Src)
		draw.Draw(img, bottom, image.NewUniform(eink.Ink(m.Ink)), image.Point{}, draw.Src)
	}
	return SaveImage(img, filename)
}
