package utils

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestLogger(format string) (*Logger, *bytes.Buffer) {
	buf := &bytes.Buffer{}
	logger := NewLogger()
	logger.SetOutput(buf)
	logger.SetFormat(format)
	logger.SetLevel(DEBUG)
	return logger, buf
}

func TestLoggerTextFormat(t *testing.T) {
	logger, buf := newTestLogger("text")

	logger.Info("dataset loaded", String("path", "data.csv"), Int("rows", 1200))

	out := buf.String()
	assert.Contains(t, out, "INFO")
	assert.Contains(t, out, "dataset loaded")
	assert.Contains(t, out, "path=data.csv")
	assert.Contains(t, out, "rows=1200")
}

func TestLoggerJSONFormat(t *testing.T) {
	logger, buf := newTestLogger("json")

	logger.Warn("strategy failed", String("strategy", "mean"), Float("ks", 0.41))

	var entry map[string]interface{}
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	assert.Equal(t, "WARN", entry["level"])
	assert.Equal(t, "strategy failed", entry["message"])
	assert.Equal(t, "pricecast", entry["service"])
}

func TestLoggerLevelFiltering(t *testing.T) {
	logger, buf := newTestLogger("text")
	logger.SetLevel(WARN)

	logger.Debug("hidden")
	logger.Info("also hidden")
	logger.Warn("visible")

	out := buf.String()
	assert.NotContains(t, out, "hidden")
	assert.Contains(t, out, "visible")
}

func TestLoggerStageAndRunFields(t *testing.T) {
	logger, buf := newTestLogger("text")

	logger.Info("stage done", Stage("impute"), RunID("run-7"))

	out := buf.String()
	assert.Contains(t, out, "impute")
	assert.Contains(t, out, "run-7")
}

func TestFieldLoggerCarriesFields(t *testing.T) {
	logger, buf := newTestLogger("text")
	fl := logger.WithFields(RunID("run-9"))

	fl.Info("first")
	fl.Info("second")

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	require.Len(t, lines, 2)
	for _, line := range lines {
		assert.Contains(t, line, "run-9")
	}
}

func TestLoggerErrorField(t *testing.T) {
	logger, buf := newTestLogger("text")

	logger.Error("run failed", assert.AnError)

	out := buf.String()
	assert.Contains(t, out, "ERROR")
	assert.Contains(t, out, assert.AnError.Error())
}

func TestParseLogLevel(t *testing.T) {
	assert.Equal(t, "DEBUG", DEBUG.String())
	assert.Equal(t, "INFO", INFO.String())
	assert.Equal(t, "WARN", WARN.String())
	assert.Equal(t, "ERROR", ERROR.String())
}
