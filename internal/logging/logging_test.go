package logging

import (
	"bytes"
	"os"
	"strings"
	"testing"
)

func TestSetLevel(t *testing.T) {
	defer SetLevel(LevelInfo)
	for _, lvl := range []string{"debug", "info", "WARN", " error "} {
		if err := SetLevel(lvl); err != nil {
			t.Errorf("SetLevel(%q): %v", lvl, err)
		}
	}
	if Level() != LevelError {
		t.Errorf("Level() = %q, want error", Level())
	}
	if err := SetLevel("invalid"); err == nil {
		t.Error("SetLevel(invalid) should fail")
	}
	if Level() != LevelError {
		t.Errorf("invalid level changed the level to %q", Level())
	}
}

func TestFiltering(t *testing.T) {
	var buf bytes.Buffer
	SetOutput(&buf)
	defer SetOutput(os.Stderr)
	defer SetLevel(LevelInfo)

	SetLevel(LevelWarn)
	Debug("debug %d", 1)
	Info("info %d", 2)
	Warn("warn %d", 3)
	Error("error %d", 4)

	out := buf.String()
	for _, want := range []string{"[WARN] warn 3", "[ERROR] error 4"} {
		if !strings.Contains(out, want) {
			t.Errorf("output missing %q:\n%s", want, out)
		}
	}
	for _, unwanted := range []string{"debug 1", "info 2"} {
		if strings.Contains(out, unwanted) {
			t.Errorf("output should not contain %q:\n%s", unwanted, out)
		}
	}
	if Enabled(LevelInfo) || !Enabled(LevelError) || Enabled("bogus") {
		t.Error("Enabled disagrees with the warn level")
	}
}
