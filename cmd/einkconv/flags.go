package main

import (
	"fmt"
	"image"

	"github.com/urfave/cli/v2"

	eink "github.com/rjgrandy/eink-proxy"
)

// settingFlag binds one Settings field to a flag and its environment variable.
type settingFlag struct {
	flag  cli.Flag
	apply func(c *cli.Context, s *eink.Settings)
}

func floatSetting(name, env, usage string, def float64, field func(*eink.Settings) *float64) settingFlag {
	return settingFlag{
		flag: &cli.Float64Flag{Name: name, EnvVars: []string{env}, Value: def, Usage: usage, Category: "tuning"},
		apply: func(c *cli.Context, s *eink.Settings) {
			*field(s) = c.Float64(name)
		},
	}
}

func intSetting(name, env, usage string, def int, field func(*eink.Settings) *int) settingFlag {
	return settingFlag{
		flag: &cli.IntFlag{Name: name, EnvVars: []string{env}, Value: def, Usage: usage, Category: "tuning"},
		apply: func(c *cli.Context, s *eink.Settings) {
			*field(s) = c.Int(name)
		},
	}
}

func boolSetting(name, env, usage string, field func(*eink.Settings) *bool) settingFlag {
	return settingFlag{
		flag: &cli.BoolFlag{Name: name, EnvVars: []string{env}, Usage: usage, Category: "tuning"},
		apply: func(c *cli.Context, s *eink.Settings) {
			*field(s) = c.Bool(name)
		},
	}
}

func settingFlags() []settingFlag {
	d := eink.DefaultSettings()
	return []settingFlag{
		floatSetting("contrast", "CONTRAST", "contrast factor, 1 = unchanged", d.Contrast, func(s *eink.Settings) *float64 { return &s.Contrast }),
		floatSetting("saturation", "SATURATION", "saturation factor, 1 = unchanged", d.Saturation, func(s *eink.Settings) *float64 { return &s.Saturation }),
		floatSetting("sharpness-ui", "SHARPNESS_UI", "sharpness factor of the UI track", d.SharpnessUI, func(s *eink.Settings) *float64 { return &s.SharpnessUI }),
		floatSetting("sharpness-photo", "SHARPNESS_PHOTO", "sharpness factor of the photo track", d.SharpnessPhoto, func(s *eink.Settings) *float64 { return &s.SharpnessPhoto }),
		floatSetting("gamma", "GAMMA", "gamma exponent", d.Gamma, func(s *eink.Settings) *float64 { return &s.Gamma }),
		intSetting("edge-threshold", "EDGE_THR", "edge strength counted as a UI stroke", d.EdgeThreshold, func(s *eink.Settings) *int { return &s.EdgeThreshold }),
		intSetting("mid-l-min", "MID_L_MIN", "lower value bound of the mid-tone mask", d.MidLMin, func(s *eink.Settings) *int { return &s.MidLMin }),
		intSetting("mid-l-max", "MID_L_MAX", "upper value bound of the mid-tone mask", d.MidLMax, func(s *eink.Settings) *int { return &s.MidLMax }),
		intSetting("mid-s-max", "MID_S_MAX", "saturation below which a mid-tone is neutral", d.MidSMax, func(s *eink.Settings) *int { return &s.MidSMax }),
		intSetting("mask-blur", "MASK_BLUR", "gaussian sigma of the soft masks", d.MaskBlur, func(s *eink.Settings) *int { return &s.MaskBlur }),
		intSetting("sky-gradient-threshold", "SKY_GRAD_THR", "gradient below which a pixel is flat", d.SkyGradientThreshold, func(s *eink.Settings) *int { return &s.SkyGradientThreshold }),
		intSetting("smooth-strength", "SMOOTH_STRENGTH", "median smoothing of flat regions (0-2)", d.SmoothStrength, func(s *eink.Settings) *int { return &s.SmoothStrength }),
		intSetting("texture-density-threshold", "TEXTURE_DENSITY_THR", "share of intermediate-tone pixels above which a region is texture", d.TextureDensityThreshold, func(s *eink.Settings) *int { return &s.TextureDensityThreshold }),
		intSetting("texture-radius", "TEXTURE_RADIUS", "half size of the texture density window", d.TextureRadius, func(s *eink.Settings) *int { return &s.TextureRadius }),
		intSetting("ui-palette-threshold", "UI_PALETTE_THR", "squared ink distance that may stay sharp", d.UIPaletteThreshold, func(s *eink.Settings) *int { return &s.UIPaletteThreshold }),
		intSetting("ui-tint-saturation", "UI_TINT_SAT", "minimum saturation of a tinted panel", d.UITintSaturation, func(s *eink.Settings) *int { return &s.UITintSaturation }),
		intSetting("ui-tint-min-value", "UI_TINT_MIN_V", "minimum value of a tinted panel", d.UITintMinValue, func(s *eink.Settings) *int { return &s.UITintMinValue }),
		intSetting("high-error-threshold", "HIGH_ERROR_THR", "quantization error sent to the dithered layer", d.HighErrorThreshold, func(s *eink.Settings) *int { return &s.HighErrorThreshold }),
		intSetting("flat-grow", "FLAT_GROW", "3x3 dilations of the flat mask", d.FlatGrow, func(s *eink.Settings) *int { return &s.FlatGrow }),
		boolSetting("edge-despeckle", "EDGE_DESPECKLE", "open the edge mask to drop specks", func(s *eink.Settings) *bool { return &s.EdgeDespeckle }),
		boolSetting("ui-line-boost", "UI_LINE_BOOST", "thicken thin dark lines", func(s *eink.Settings) *bool { return &s.UILineBoost }),
		{
			flag: &cli.StringFlag{Name: "photo-mode", EnvVars: []string{"PHOTO_MODE"}, Value: string(d.PhotoMode), Usage: "hybrid, fs, stucki or ordered", Category: "tuning"},
			apply: func(c *cli.Context, s *eink.Settings) {
				s.PhotoMode = eink.PhotoMode(c.String("photo-mode"))
			},
		},
		{
			flag: &cli.StringFlag{Name: "mask-mode", EnvVars: []string{"MASK_MODE"}, Value: string(d.MaskMode), Usage: "texture or legacy", Category: "tuning"},
			apply: func(c *cli.Context, s *eink.Settings) {
				s.MaskMode = eink.MaskMode(c.String("mask-mode"))
			},
		},
	}
}

func tuningFlags() []cli.Flag {
	sf := settingFlags()
	out := make([]cli.Flag, len(sf))
	for i, f := range sf {
		out[i] = f.flag
	}
	return out
}

// baseSettings applies every flag the user set on the command line or
// through the environment on top of the defaults.
func baseSettings(c *cli.Context) (eink.Settings, error) {
	s := eink.DefaultSettings()
	for _, f := range settingFlags() {
		if c.IsSet(f.flag.Names()[0]) {
			f.apply(c, &s)
		}
	}
	if err := s.Validate(); err != nil {
		return s, fmt.Errorf("invalid settings: %w", err)
	}
	return s, nil
}

// sized rescales the window-based tunables the user left unset to the
// frame size.
func sized(c *cli.Context, s eink.Settings, size image.Point) eink.Settings {
	scaled := eink.SettingsForSize(size)
	if !c.IsSet("texture-radius") {
		s.TextureRadius = scaled.TextureRadius
	}
	if !c.IsSet("mask-blur") {
		s.MaskBlur = scaled.MaskBlur
	}
	return s
}
