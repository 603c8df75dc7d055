package logger

import (
	"bytes"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/Adam-Cosner/monitord/internal/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseLevel(t *testing.T) {
	cases := map[string]slog.Level{
		"trace": LevelTrace,
		"debug": slog.LevelDebug,
		"info":  slog.LevelInfo,
		"warn":  slog.LevelWarn,
		"error": slog.LevelError,
		"WARN":  slog.LevelWarn,
		"bogus": slog.LevelInfo,
	}
	for in, want := range cases {
		assert.Equal(t, want, ParseLevel(in), "level %q", in)
	}
}

func TestColorTextHandlerColorsByLevel(t *testing.T) {
	var buf bytes.Buffer
	h := NewColorTextHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug}, false)
	log := slog.New(h)

	log.Info("hello")
	assert.Contains(t, buf.String(), "\033[32m")
	assert.Contains(t, buf.String(), "hello")

	buf.Reset()
	log.Error("boom")
	assert.Contains(t, buf.String(), "\033[31m")
}

func TestNewWithoutDirLogsToConsoleOnly(t *testing.T) {
	log, closer, err := New(config.LogConfig{Level: "info"})
	require.NoError(t, err)
	defer func() { _ = closer.Close() }()
	require.NotNil(t, log)
	log.Info("console only")
}

func TestNewWithDirWritesRotatedFile(t *testing.T) {
	dir := t.TempDir()
	log, closer, err := New(config.LogConfig{Level: "debug", Dir: dir})
	require.NoError(t, err)
	defer func() { _ = closer.Close() }()

	log.Debug("to file", "k", "v")

	data, err := os.ReadFile(filepath.Join(dir, "monitord.log"))
	require.NoError(t, err)
	assert.True(t, strings.Contains(string(data), `"msg"`), "file output should be JSON")
	assert.Contains(t, string(data), "to file")
}

func TestTeeHandlerRespectsPerHandlerLevels(t *testing.T) {
	var a, b bytes.Buffer
	ha := slog.NewTextHandler(&a, &slog.HandlerOptions{Level: slog.LevelDebug})
	hb := slog.NewTextHandler(&b, &slog.HandlerOptions{Level: slog.LevelError})
	log := slog.New(newTeeHandler(ha, hb))

	log.Debug("quiet")
	assert.Contains(t, a.String(), "quiet")
	assert.Empty(t, b.String())

	log.Error("loud")
	assert.Contains(t, a.String(), "loud")
	assert.Contains(t, b.String(), "loud")
}
