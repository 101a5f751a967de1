// Package sysutil holds process-level helpers shared by the binaries:
// logger setup, env flag parsing and filesystem preparation.
package sysutil

import (
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// ParseLevel maps a LOG_LEVEL value to a zerolog level. Matching ignores
// case and surrounding space, "warning" is accepted for warn, and anything
// unknown (including "") is info. Trace and disabled are not offered.
func ParseLevel(s string) zerolog.Level {
	s = strings.ToLower(strings.TrimSpace(s))
	if s == "warning" {
		s = "warn"
	}
	lvl, err := zerolog.ParseLevel(s)
	if err != nil || lvl < zerolog.DebugLevel || lvl > zerolog.PanicLevel {
		return zerolog.InfoLevel
	}
	return lvl
}

// SetupLogger sets the global level and installs the global logger writing
// to w. pretty selects the console writer used in development and by the
// CLI.
func SetupLogger(w io.Writer, level string, pretty bool) zerolog.Logger {
	zerolog.SetGlobalLevel(ParseLevel(level))
	zerolog.TimeFieldFormat = time.RFC3339Nano
	if pretty {
		w = zerolog.ConsoleWriter{Out: w, TimeFormat: time.Kitchen}
	}
	log.Logger = zerolog.New(w).With().Timestamp().Logger()
	return log.Logger
}

// IsTruthy reports whether a flag-like env value is set: "1", "true",
// "yes", "y" or "on", in any case.
func IsTruthy(v string) bool {
	switch strings.ToLower(strings.TrimSpace(v)) {
	case "1", "true", "yes", "y", "on":
		return true
	default:
		return false
	}
}

// FirstNonEmpty returns the first value that is not blank, untrimmed.
func FirstNonEmpty(vals ...string) string {
	for _, v := range vals {
		if strings.TrimSpace(v) != "" {
			return v
		}
	}
	return ""
}

// EnsureDir creates dir (and parents) if it does not exist yet.
func EnsureDir(dir string) error {
	if dir == "" || dir == "." {
		return nil
	}
	return os.MkdirAll(dir, 0o755)
}

// EnsureParentDir creates the directory holding file, e.g. for DB_PATH.
func EnsureParentDir(file string) error {
	return EnsureDir(filepath.Dir(file))
}
