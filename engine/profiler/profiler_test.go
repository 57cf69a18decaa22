package profiler

import (
	"bytes"
	"log/slog"
	"testing"
	"time"

	"github.com/Carmen-Shannon/oxy-rootmotion/internal/logging"
	"github.com/stretchr/testify/assert"
)

func TestProfiler_LogsAfterInterval(t *testing.T) {
	var buf bytes.Buffer
	p := NewProfiler(logging.NewWithWriter(&buf, slog.LevelInfo), 0)

	assert.True(t, p.Tick())
	assert.Contains(t, buf.String(), "passes_per_sec=")
	assert.Contains(t, buf.String(), "heap_mb=")
}

func TestProfiler_WaitsForInterval(t *testing.T) {
	var buf bytes.Buffer
	p := NewProfiler(logging.NewWithWriter(&buf, slog.LevelInfo), time.Hour)

	for range 10 {
		assert.False(t, p.Tick())
	}
	assert.Empty(t, buf.String())
}

func TestProfiler_NilLogger(t *testing.T) {
	p := NewProfiler(nil, -1)
	assert.Equal(t, DefaultInterval, p.updateInterval)
	assert.NotPanics(t, func() { p.Tick() })
}
