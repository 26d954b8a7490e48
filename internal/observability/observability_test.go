package observability

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseLevel(t *testing.T) {
	assert.Equal(t, slog.LevelDebug, parseLevel("debug"))
	assert.Equal(t, slog.LevelWarn, parseLevel("WARN"))
	assert.Equal(t, slog.LevelWarn, parseLevel("warning"))
	assert.Equal(t, slog.LevelError, parseLevel("error"))
	assert.Equal(t, slog.LevelInfo, parseLevel("info"))
	assert.Equal(t, slog.LevelInfo, parseLevel("bogus"))
}

func TestNewLogger_JSON(t *testing.T) {
	var buf bytes.Buffer
	logger := newLogger(&buf, "info", "json")

	logger.Debug("hidden")
	logger.Info("spot parsed", "category", "DX")

	var entry map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	assert.Equal(t, "spot parsed", entry["msg"])
	assert.Equal(t, "DX", entry["category"])
}

func TestNewLogger_Text(t *testing.T) {
	var buf bytes.Buffer
	logger := newLogger(&buf, "debug", "text")

	logger.Debug("unrecognized line", "line", "login:")

	assert.Contains(t, buf.String(), "level=DEBUG")
	assert.Contains(t, buf.String(), `msg="unrecognized line"`)
}

func TestNewMetricsForTesting(t *testing.T) {
	m := NewMetricsForTesting()

	m.SpotsByCategory.WithLabelValues("DX", "dxspider").Inc()
	m.SpotsByCategory.WithLabelValues("DX", "dxspider").Inc()
	m.MalformedFields.WithLabelValues("DX", "frequency").Inc()
	m.UnrecognizedLines.Inc()

	assert.Equal(t, 2.0, testutil.ToFloat64(m.SpotsByCategory.WithLabelValues("DX", "dxspider")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.MalformedFields.WithLabelValues("DX", "frequency")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.UnrecognizedLines))

	// Unregistered metrics can be registered into a private registry.
	reg := prometheus.NewRegistry()
	require.NoError(t, reg.Register(m.LinesConsumed))
}
