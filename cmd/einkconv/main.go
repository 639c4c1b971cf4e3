// Command einkconv converts images for 7-ink color e-paper panels.
package main

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"text/tabwriter"

	"github.com/urfave/cli/v2"
	"golang.org/x/sync/errgroup"

	eink "github.com/rjgrandy/eink-proxy"
	"github.com/rjgrandy/eink-proxy/internal/logging"
	"github.com/rjgrandy/eink-proxy/utils"
)

func main() {
	if err := newApp().Run(os.Args); err != nil {
		logging.Error("%v", err)
		os.Exit(1)
	}
}

func newApp() *cli.App {
	return &cli.App{
		Name:  "einkconv",
		Usage: "recolor images for 7-ink e-paper",
		Flags: append([]cli.Flag{
			&cli.StringFlag{
				Name:    "log-level",
				EnvVars: []string{"LOG_LEVEL"},
				Value:   logging.LevelInfo,
				Usage:   "debug, info, warn or error",
			},
		}, tuningFlags()...),
		Before: func(c *cli.Context) error {
			if err := logging.SetLevel(c.String("log-level")); err != nil {
				return cli.Exit(err.Error(), 2)
			}
			return nil
		},
		Commands: []*cli.Command{
			convertCommand(),
			masksCommand(),
			reportCommand(),
			settingsCommand(),
		},
	}
}

var sizeFlags = []cli.Flag{
	&cli.IntFlag{Name: "width", EnvVars: []string{"PANEL_WIDTH"}, Usage: "fit the input into this panel width before converting"},
	&cli.IntFlag{Name: "height", EnvVars: []string{"PANEL_HEIGHT"}, Usage: "fit the input into this panel height before converting"},
}

func convertCommand() *cli.Command {
	return &cli.Command{
		Name:      "convert",
		Usage:     "convert images to the ink palette",
		ArgsUsage: "FILE...",
		Flags: append([]cli.Flag{
			&cli.StringFlag{Name: "out", Aliases: []string{"o"}, Value: ".", Usage: "output directory"},
			&cli.StringFlag{Name: "mode", EnvVars: []string{"RENDER_MODE"}, Value: string(eink.RenderRegional), Usage: "regional, dither or flat"},
			&cli.IntFlag{Name: "workers", Aliases: []string{"j"}, Value: runtime.NumCPU(), Usage: "concurrent conversions"},
		}, sizeFlags...),
		Action: runConvert,
	}
}

func runConvert(c *cli.Context) error {
	if c.NArg() == 0 {
		return cli.Exit("at least one input file is required", 1)
	}
	base, err := baseSettings(c)
	if err != nil {
		return cli.Exit(err.Error(), 1)
	}
	store := eink.NewSettingsStore(base)
	mode := eink.ParseRenderMode(c.String("mode"))
	outDir := c.String("out")
	if err := os.MkdirAll(outDir, 0o755); err != nil {
		return cli.Exit(err.Error(), 1)
	}

	var g errgroup.Group
	g.SetLimit(max(1, c.Int("workers")))
	for _, in := range c.Args().Slice() {
		g.Go(func() error {
			out := filepath.Join(outDir, strings.TrimSuffix(filepath.Base(in), filepath.Ext(in))+"_eink.png")
			if err := convertFile(c, store.Snapshot(), mode, in, out); err != nil {
				return fmt.Errorf("error converting [%v]: %w", in, err)
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return cli.Exit(err.Error(), 1)
	}
	return nil
}

func convertFile(c *cli.Context, s eink.Settings, mode eink.RenderMode, in, out string) error {
	src, err := loadPanel(c, in)
	if err != nil {
		return err
	}
	s = sized(c, s, src.Bounds().Size())
	logging.Debug("converting %s (%dx%d, mode %s, photo %s)", in, src.W, src.H, mode, s.PhotoMode)
	img, err := eink.Render(src, s, mode)
	if err != nil {
		return err
	}
	if err := utils.SaveImage(img, out); err != nil {
		return err
	}
	logging.Info("wrote %s", out)
	return nil
}

// loadPanel reads a file and, when a panel size is given, letterboxes it.
func loadPanel(c *cli.Context, path string) (*eink.Raster, error) {
	src, err := utils.ReadImage(path)
	if err != nil {
		return nil, err
	}
	w, h := c.Int("width"), c.Int("height")
	if w <= 0 || h <= 0 {
		return src, nil
	}
	return eink.Normalize(utils.FitPanel(src, w, h))
}

func masksCommand() *cli.Command {
	return &cli.Command{
		Name:      "masks",
		Usage:     "write the region masks painted over the conversion",
		ArgsUsage: "FILE",
		Flags: append([]cli.Flag{
			&cli.StringFlag{Name: "out", Aliases: []string{"o"}, Value: "masks.png", Usage: "overlay output file"},
			&cli.BoolFlag{Name: "legend", Value: true, Usage: "draw the color key"},
			&cli.StringFlag{Name: "layers", Usage: "also write every mask to this directory"},
		}, sizeFlags...),
		Action: func(c *cli.Context) error {
			if c.NArg() != 1 {
				return cli.Exit("exactly one input file is required", 1)
			}
			src, err := loadPanel(c, c.Args().First())
			if err != nil {
				return cli.Exit(err.Error(), 1)
			}
			base, err := baseSettings(c)
			if err != nil {
				return cli.Exit(err.Error(), 1)
			}
			comp, err := eink.Compose(src, sized(c, base, src.Bounds().Size()))
			if err != nil {
				return cli.Exit(err.Error(), 1)
			}
			for name, v := range comp.Masks.Coverage() {
				logging.Debug("%s coverage %.1f%%", name, v*100)
			}
			if err := utils.SaveImage(eink.DebugOverlay(comp, c.Bool("legend")), c.String("out")); err != nil {
				return cli.Exit(err.Error(), 1)
			}
			if dir := c.String("layers"); dir != "" {
				if err := writeLayers(comp.Masks, dir); err != nil {
					return cli.Exit(err.Error(), 1)
				}
			}
			return nil
		},
	}
}

func writeLayers(m *eink.Masks, dir string) error {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return err
	}
	var names []string
	for _, l := range m.Layers() {
		names = append(names, l.Name)
	}
	if err := utils.SaveGrayImages(m.GrayLayers(), names, dir); err != nil {
		return err
	}
	return utils.SaveRgbaImages(m.RGBALayers(), names, dir)
}

func reportCommand() *cli.Command {
	return &cli.Command{
		Name:      "report",
		Usage:     "list the dominant colors of an image and the inks they map to",
		ArgsUsage: "FILE",
		Flags: []cli.Flag{
			&cli.IntFlag{Name: "colors", Aliases: []string{"k"}, Value: eink.NumInks, Usage: "number of dominant colors"},
			&cli.StringFlag{Name: "method", Value: utils.PaletteMethodDominantColor.String(), Usage: "dominantcolor or kmeans"},
			&cli.StringFlag{Name: "swatch", Usage: "write a source/ink swatch PNG"},
		},
		Action: func(c *cli.Context) error {
			if c.NArg() != 1 {
				return cli.Exit("exactly one input file is required", 1)
			}
			src, err := utils.ReadImage(c.Args().First())
			if err != nil {
				return cli.Exit(err.Error(), 1)
			}
			base, err := baseSettings(c)
			if err != nil {
				return cli.Exit(err.Error(), 1)
			}
			matches := utils.InkFit(src, c.Int("colors"), utils.ParsePaletteMethod(c.String("method")))
			w := c.App.Writer
			for _, m := range matches {
				state := "sharp"
				if !m.Representable(base.UIPaletteThreshold) {
					state = "dithered"
				}
				fmt.Fprintf(w, "%s  %s\n", m, state)
			}
			if path := c.String("swatch"); path != "" && len(matches) > 0 {
				if err := utils.SaveInkSwatch(matches, 64, path); err != nil {
					return cli.Exit(err.Error(), 1)
				}
			}
			return nil
		},
	}
}

func settingsCommand() *cli.Command {
	return &cli.Command{
		Name:  "settings",
		Usage: "print the effective settings",
		Action: func(c *cli.Context) error {
			s, err := baseSettings(c)
			if err != nil {
				return cli.Exit(err.Error(), 1)
			}
			printSettings(c.App.Writer, s)
			return nil
		},
	}
}

func printSettings(w io.Writer, s eink.Settings) {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	defer tw.Flush()
	rows := []struct {
		name string
		v    any
	}{
		{"contrast", s.Contrast},
		{"saturation", s.Saturation},
		{"sharpness_ui", s.SharpnessUI},
		{"sharpness_photo", s.SharpnessPhoto},
		{"gamma", s.Gamma},
		{"edge_threshold", s.EdgeThreshold},
		{"mid_l_min", s.MidLMin},
		{"mid_l_max", s.MidLMax},
		{"mid_s_max", s.MidSMax},
		{"mask_blur", s.MaskBlur},
		{"sky_gradient_threshold", s.SkyGradientThreshold},
		{"smooth_strength", s.SmoothStrength},
		{"texture_density_threshold", s.TextureDensityThreshold},
		{"texture_radius", s.TextureRadius},
		{"ui_palette_threshold", s.UIPaletteThreshold},
		{"ui_tint_saturation", s.UITintSaturation},
		{"ui_tint_min_value", s.UITintMinValue},
		{"high_error_threshold", s.HighErrorThreshold},
		{"flat_grow", s.FlatGrow},
		{"edge_despeckle", s.EdgeDespeckle},
		{"ui_line_boost", s.UILineBoost},
		{"photo_mode", s.PhotoMode},
		{"mask_mode", s.MaskMode},
	}
	for _, r := range rows {
		fmt.Fprintf(tw, "%s\t%v\n", r.name, r.v)
	}
}
