package logger

import (
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/Adam-Cosner/monitord/internal/config"
	lj "gopkg.in/natefinch/lumberjack.v2"
)

// LevelTrace sits below slog's debug; the config level "trace" maps here so
// the handlers pass everything through.
const LevelTrace = slog.LevelDebug - 4

// ParseLevel maps a config level string to a slog level. Unknown strings
// fall back to info; config validation rejects them before we get here.
func ParseLevel(s string) slog.Level {
	switch strings.ToLower(s) {
	case "trace":
		return LevelTrace
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// New builds the daemon logger: colored text on stderr, and when cfg.Dir is
// set, JSON records in a lumberjack-rotated file alongside it. The returned
// closer owns the file writer; callers close it on shutdown.
func New(cfg config.LogConfig) (*slog.Logger, io.Closer, error) {
	level := ParseLevel(cfg.Level)
	opts := &slog.HandlerOptions{Level: level}

	console := NewColorTextHandler(os.Stderr, opts, true)
	if cfg.Dir == "" {
		return slog.New(console), nopCloser{}, nil
	}

	if err := os.MkdirAll(cfg.Dir, 0o755); err != nil {
		return nil, nil, err
	}
	file := &lj.Logger{
		Filename:   filepath.Join(cfg.Dir, "monitord.log"),
		MaxSize:    valOr(cfg.MaxSizeMB, 10),
		MaxBackups: valOr(cfg.MaxBackups, 3),
		MaxAge:     valOr(cfg.MaxAgeDays, 7),
		Compress:   cfg.Compress,
	}
	h := newTeeHandler(console, slog.NewJSONHandler(file, opts))
	return slog.New(h), file, nil
}

func valOr(v, def int) int {
	if v <= 0 {
		return def
	}
	return v
}

type nopCloser struct{}

func (nopCloser) Close() error { return nil }
