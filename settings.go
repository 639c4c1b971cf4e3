package eink

import (
	"errors"
	"fmt"
	"image"
	"strings"
	"sync/atomic"
)

// PhotoMode selects the dither engine of the photo track.
type PhotoMode string

const (
	PhotoHybrid  PhotoMode = "hybrid"
	PhotoFS      PhotoMode = "fs"
	PhotoStucki  PhotoMode = "stucki"
	PhotoOrdered PhotoMode = "ordered"
)

// ParsePhotoMode is case-insensitive. Unknown names fall back to hybrid
// with ok = false so callers can warn.
func ParsePhotoMode(s string) (PhotoMode, bool) {
	switch m := PhotoMode(strings.ToLower(strings.TrimSpace(s))); m {
	case PhotoHybrid, PhotoFS, PhotoStucki, PhotoOrdered:
		return m, true
	default:
		return PhotoHybrid, false
	}
}

// MaskMode selects the region classifier variant.
type MaskMode string

const (
	// MaskTexture is the reference classifier: texture and high-error aware.
	MaskTexture MaskMode = "texture"
	// MaskLegacy is the earlier edge/mid-gray/flat classifier. Lower fidelity
	// on photos embedded in dashboards.
	MaskLegacy MaskMode = "legacy"
)

func ParseMaskMode(s string) (MaskMode, bool) {
	switch m := MaskMode(strings.ToLower(strings.TrimSpace(s))); m {
	case MaskTexture, MaskLegacy:
		return m, true
	default:
		return MaskTexture, false
	}
}

// Settings is one immutable snapshot of every tunable. It is passed by value;
// a running conversion never observes later changes.
type Settings struct {
	// Contrast factor, 1 = unchanged.
	// Ideal start: 1.1-1.3. Higher crushes mid-tones toward black/white inks.
	Contrast float64
	// Saturation factor, 1 = unchanged.
	// Ideal start: 1.1-1.3. Higher pushes pastel UI toward the colored inks.
	Saturation float64
	// Sharpness factor of the UI track, 1 = unchanged.
	// Ideal start: 1.5-2.5.
	SharpnessUI float64
	// Sharpness factor of the photo track. Keep at 1 (off) or close to it;
	// sharpened photos turn into dither noise.
	SharpnessPhoto float64
	// Gamma exponent, output = (v/255)^(1/Gamma). Within 1e-3 of 1 it is skipped.
	Gamma float64
	// Edge strength (0-255) of the find-edges map counted as a UI stroke.
	// Ideal start: 20-32. Lower => more pixels forced sharp.
	EdgeThreshold int
	// Value band [MidLMin, MidLMax) of the mid-tone/neutral mask.
	MidLMin int
	MidLMax int
	// Saturation (0-255) below which a mid-tone pixel counts as neutral.
	MidSMax int
	// Gaussian sigma applied to soft masks. 0 disables blurring.
	MaskBlur int
	// Blurred gradient below which a pixel is "flat" (sky, panels).
	// Ideal start: 10-18.
	SkyGradientThreshold int
	// Median pre-smoothing of flat regions: 0 off, 1 => 3x3, 2+ => 5x5.
	SmoothStrength int
	// Share (0-255) of intermediate-tone pixels in the density window above
	// which the region is texture/photo. A pixel is intermediate when it is at
	// least EdgeThreshold/2 away from both its darkest and brightest neighbour.
	// Ideal start: 96-128. Too low bleeds photo borders into surrounding UI.
	TextureDensityThreshold int
	// Half size of the density window and of the texture dilation.
	// Ideal start: 2-4.
	TextureRadius int
	// Squared RGB distance to the nearest ink under which a pixel is already
	// representable and can stay sharp. Ideal start: 1200-2400.
	UIPaletteThreshold int
	// Minimum HSV saturation (0-255) of a tinted flat UI panel.
	UITintSaturation int
	// Minimum HSV value (0-255) of a tinted flat UI panel.
	UITintMinValue int
	// Gray difference between the UI track and its no-dither quantization
	// above which a pixel is sent to the dithered layer. Empirically tuned.
	HighErrorThreshold int
	// Number of 3x3 dilations applied to the flat mask.
	FlatGrow int
	// Open (erode then dilate) the edge mask to remove isolated specks.
	EdgeDespeckle bool
	// Thicken and darken thin dark lines before UI quantization.
	UILineBoost bool
	PhotoMode   PhotoMode
	MaskMode    MaskMode
}

func DefaultSettings() Settings {
	return Settings{
		Contrast:                1.25,
		Saturation:              1.2,
		SharpnessUI:             2.0,
		SharpnessPhoto:          1.0,
		Gamma:                   0.95,
		EdgeThreshold:           26,
		MidLMin:                 70,
		MidLMax:                 200,
		MidSMax:                 90,
		MaskBlur:                2,
		SkyGradientThreshold:    14,
		SmoothStrength:          1,
		TextureDensityThreshold: 112,
		TextureRadius:           3,
		UIPaletteThreshold:      1800,
		UITintSaturation:        35,
		UITintMinValue:          120,
		HighErrorThreshold:      45,
		FlatGrow:                1,
		PhotoMode:               PhotoHybrid,
		MaskMode:                MaskTexture,
	}
}

// SettingsForSize scales the window-based tunables with the frame size.
// The defaults are tuned for 800x480 panels.
func SettingsForSize(size image.Point) Settings {
	s := DefaultSettings()
	if size.X <= 0 || size.Y <= 0 {
		return s
	}
	pixels := size.X * size.Y
	switch {
	case pixels <= 400*300:
		s.TextureRadius = 2
		s.MaskBlur = 1
	case pixels > 1600*1200:
		s.TextureRadius = 4
		s.MaskBlur = 3
	}
	return s
}

// Validate is meant for the boundary that accepts user input. The pipeline
// itself tolerates any value.
func (s Settings) Validate() error {
	var errs []error
	if s.Gamma <= 0 {
		errs = append(errs, fmt.Errorf("gamma must be positive, got %v", s.Gamma))
	}
	if s.Contrast < 0 || s.Saturation < 0 {
		errs = append(errs, errors.New("contrast and saturation must not be negative"))
	}
	for _, f := range []struct {
		name string
		v    int
	}{
		{"edge_threshold", s.EdgeThreshold},
		{"mid_l_min", s.MidLMin},
		{"mid_l_max", s.MidLMax},
		{"mid_s_max", s.MidSMax},
		{"sky_gradient_threshold", s.SkyGradientThreshold},
		{"texture_density_threshold", s.TextureDensityThreshold},
		{"ui_tint_saturation", s.UITintSaturation},
		{"ui_tint_min_value", s.UITintMinValue},
		{"high_error_threshold", s.HighErrorThreshold},
	} {
		if f.v < 0 || f.v > 255 {
			errs = append(errs, fmt.Errorf("%s must be in [0,255], got %d", f.name, f.v))
		}
	}
	if s.MidLMin > s.MidLMax {
		errs = append(errs, fmt.Errorf("mid_l_min %d above mid_l_max %d", s.MidLMin, s.MidLMax))
	}
	if s.MaskBlur < 0 || s.SmoothStrength < 0 || s.TextureRadius < 0 || s.FlatGrow < 0 || s.UIPaletteThreshold < 0 {
		errs = append(errs, errors.New("blur, smoothing, radius, grow and palette threshold must not be negative"))
	}
	if _, ok := ParsePhotoMode(string(s.PhotoMode)); !ok {
		errs = append(errs, fmt.Errorf("unknown photo mode %q", s.PhotoMode))
	}
	if _, ok := ParseMaskMode(string(s.MaskMode)); !ok {
		errs = append(errs, fmt.Errorf("unknown mask mode %q", s.MaskMode))
	}
	return errors.Join(errs...)
}

// SettingsStore owns the single writable copy of the settings and hands out
// snapshots. Updates replace the whole value.
type SettingsStore struct {
	p atomic.Pointer[Settings]
}

func NewSettingsStore(s Settings) *SettingsStore {
	st := &SettingsStore{}
	st.Store(s)
	return st
}

func (st *SettingsStore) Snapshot() Settings {
	if p := st.p.Load(); p != nil {
		return *p
	}
	return DefaultSettings()
}

func (st *SettingsStore) Store(s Settings) {
	st.p.Store(&s)
}

// Update applies fn to a copy of the current snapshot and publishes it.
// Concurrent updates are serialized by compare-and-swap.
func (st *SettingsStore) Update(fn func(*Settings)) Settings {
	for {
		old := st.p.Load()
		next := DefaultSettings()
		if old != nil {
			next = *old
		}
		fn(&next)
		if st.p.CompareAndSwap(old, &next) {
			return next
		}
	}
}
