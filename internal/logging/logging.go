// Package logging is the leveled logger shared by the conversion tools.
package logging

import (
	"fmt"
	"io"
	"log"
	"os"
	"strings"
	"sync/atomic"
)

// Log level constants
const (
	LevelDebug = "debug"
	LevelInfo  = "info"
	LevelWarn  = "warn"
	LevelError = "error"
)

var levels = []string{LevelDebug, LevelInfo, LevelWarn, LevelError}

var (
	current atomic.Int32
	std     = log.New(os.Stderr, "", log.LstdFlags)
)

func init() {
	current.Store(1)
}

// SetLevel sets the global logging level. Unknown names return an error
// and leave the level unchanged.
func SetLevel(level string) error {
	i := levelIndex(strings.ToLower(strings.TrimSpace(level)))
	if i < 0 {
		return fmt.Errorf("unknown log level %q", level)
	}
	current.Store(int32(i))
	return nil
}

// Level returns the name of the active level.
func Level() string {
	return levels[current.Load()]
}

// SetOutput redirects every message.
func SetOutput(w io.Writer) {
	std.SetOutput(w)
}

func Debug(format string, args ...any) {
	logf(LevelDebug, format, args...)
}

func Info(format string, args ...any) {
	logf(LevelInfo, format, args...)
}

func Warn(format string, args ...any) {
	logf(LevelWarn, format, args...)
}

func Error(format string, args ...any) {
	logf(LevelError, format, args...)
}

// Enabled reports whether messages of level are currently written.
func Enabled(level string) bool {
	i := levelIndex(level)
	return i >= 0 && int32(i) >= current.Load()
}

func logf(level, format string, args ...any) {
	if !Enabled(level) {
		return
	}
	std.Printf("["+strings.ToUpper(level)+"] "+format, args...)
}

func levelIndex(level string) int {
	for i, l := range levels {
		if l == level {
			return i
		}
	}
	return -1
}
