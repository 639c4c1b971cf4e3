package eink

import (
	"image"
	"strings"
	"sync"
	"testing"
)

func TestDefaultSettingsValid(t *testing.T) {
	if err := DefaultSettings().Validate(); err != nil {
		t.Fatalf("defaults invalid: %v", err)
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		modify func(*Settings)
		want   string
	}{
		{"zero gamma", func(s *Settings) { s.Gamma = 0 }, "gamma"},
		{"negative contrast", func(s *Settings) { s.Contrast = -1 }, "contrast"},
		{"edge threshold range", func(s *Settings) { s.EdgeThreshold = 300 }, "edge_threshold"},
		{"inverted band", func(s *Settings) { s.MidLMin, s.MidLMax = 150, 100 }, "mid_l_min 150 above"},
		{"negative radius", func(s *Settings) { s.TextureRadius = -1 }, "radius"},
		{"photo mode", func(s *Settings) { s.PhotoMode = "sepia" }, `unknown photo mode "sepia"`},
		{"mask mode", func(s *Settings) { s.MaskMode = "magic" }, `unknown mask mode "magic"`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := DefaultSettings()
			tt.modify(&s)
			err := s.Validate()
			if err == nil || !strings.Contains(err.Error(), tt.want) {
				t.Errorf("Validate() = %v, want error containing %q", err, tt.want)
			}
		})
	}
}

func TestValidateJoinsErrors(t *testing.T) {
	s := DefaultSettings()
	s.Gamma = -1
	s.HighErrorThreshold = 999
	err := s.Validate()
	if err == nil {
		t.Fatal("expected errors")
	}
	msg := err.Error()
	if !strings.Contains(msg, "gamma") || !strings.Contains(msg, "high_error_threshold") {
		t.Errorf("joined error missing a field: %v", msg)
	}
	if strings.Index(msg, "gamma") > strings.Index(msg, "high_error_threshold") {
		t.Error("errors should be reported in field order")
	}
}

func TestParseModes(t *testing.T) {
	tests := []struct {
		in   string
		want PhotoMode
		ok   bool
	}{
		{"hybrid", PhotoHybrid, true},
		{" FS ", PhotoFS, true},
		{"Stucki", PhotoStucki, true},
		{"ordered", PhotoOrdered, true},
		{"bogus", PhotoHybrid, false},
		{"", PhotoHybrid, false},
	}
	for _, tt := range tests {
		if got, ok := ParsePhotoMode(tt.in); got != tt.want || ok != tt.ok {
			t.Errorf("ParsePhotoMode(%q) = %q,%v want %q,%v", tt.in, got, ok, tt.want, tt.ok)
		}
	}
	if m, ok := ParseMaskMode("LEGACY"); m != MaskLegacy || !ok {
		t.Errorf("ParseMaskMode(LEGACY) = %q,%v", m, ok)
	}
	if m, ok := ParseMaskMode("?"); m != MaskTexture || ok {
		t.Errorf("ParseMaskMode(?) = %q,%v", m, ok)
	}
	for in, want := range map[string]RenderMode{"true": RenderDither, "none": RenderFlat, "FLAT": RenderFlat, "": RenderRegional} {
		if got := ParseRenderMode(in); got != want {
			t.Errorf("ParseRenderMode(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestSettingsForSize(t *testing.T) {
	def := DefaultSettings()
	tests := []struct {
		size         image.Point
		radius, blur int
	}{
		{image.Pt(800, 480), def.TextureRadius, def.MaskBlur},
		{image.Pt(400, 300), 2, 1},
		{image.Pt(2000, 1500), 4, 3},
		{image.Pt(0, 0), def.TextureRadius, def.MaskBlur},
	}
	for _, tt := range tests {
		s := SettingsForSize(tt.size)
		if s.TextureRadius != tt.radius || s.MaskBlur != tt.blur {
			t.Errorf("SettingsForSize(%v) radius,blur = %d,%d want %d,%d", tt.size, s.TextureRadius, s.MaskBlur, tt.radius, tt.blur)
		}
	}
}

func TestSettingsStoreSnapshotIsolation(t *testing.T) {
	st := NewSettingsStore(DefaultSettings())
	snap := st.Snapshot()
	st.Update(func(s *Settings) { s.EdgeThreshold = 40 })
	if snap.EdgeThreshold != DefaultSettings().EdgeThreshold {
		t.Error("an update leaked into an earlier snapshot")
	}
	if got := st.Snapshot().EdgeThreshold; got != 40 {
		t.Errorf("EdgeThreshold = %d after update, want 40", got)
	}

	var zero SettingsStore
	if zero.Snapshot() != DefaultSettings() {
		t.Error("zero store should hand out defaults")
	}
}

func TestSettingsStoreConcurrentUpdates(t *testing.T) {
	st := NewSettingsStore(DefaultSettings())
	start := st.Snapshot().FlatGrow
	var wg sync.WaitGroup
	for range 50 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			st.Update(func(s *Settings) { s.FlatGrow++ })
			_ = st.Snapshot()
		}()
	}
	wg.Wait()
	if got := st.Snapshot().FlatGrow; got != start+50 {
		t.Errorf("FlatGrow = %d, want %d", got, start+50)
	}
}
