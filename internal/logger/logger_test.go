package logger

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/dev-fuadhasan/openapi/internal/config"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoggerBuilder_Default(t *testing.T) {
	logger, err := NewLoggerBuilder().Build()
	require.NoError(t, err)
	require.NotNil(t, logger)

	cfg := logger.GetConfig()
	assert.Equal(t, zerolog.InfoLevel, cfg.Level)
	assert.Equal(t, FormatConsole, cfg.Format)
	assert.True(t, cfg.EnableConsole)
	assert.False(t, cfg.EnableFile)
}

func TestLoggerBuilder_JSONConsoleOutput(t *testing.T) {
	var buf bytes.Buffer

	logger, err := NewLoggerBuilder().
		WithFormat(FormatJSON).
		WithLevel(zerolog.WarnLevel).
		WithConsoleOutput(&buf).
		Build()
	require.NoError(t, err)

	logger.GetZerolog().Info().Msg("dropped")
	logger.GetZerolog().Warn().Str("target", "example.com").Msg("kept")

	out := buf.String()
	assert.NotContains(t, out, "dropped")
	assert.Contains(t, out, `"target":"example.com"`)
	assert.Contains(t, out, `"message":"kept"`)
}

func TestLoggerBuilder_ConsoleOutputWithoutTerminal(t *testing.T) {
	for _, format := range []LogFormat{FormatConsole, FormatText} {
		t.Run(string(format), func(t *testing.T) {
			var buf bytes.Buffer
			logger, err := NewLoggerBuilder().
				WithFormat(format).
				WithConsoleOutput(&buf).
				Build()
			require.NoError(t, err)

			logger.GetZerolog().Info().Str("target", "example.com").Msg("scan started")

			out := buf.String()
			assert.Contains(t, out, "target=example.com")
			assert.Contains(t, out, "scan started")
			assert.NotContains(t, out, "\x1b[")
		})
	}
}

func TestLoggerBuilder_FileLogging(t *testing.T) {
	logFile := filepath.Join(t.TempDir(), "openapi.log")

	logger, err := NewLoggerBuilder().
		WithLevel(zerolog.DebugLevel).
		WithFormat(FormatJSON).
		WithFile(logFile, 1, 1).
		WithConsole(false).
		Build()
	require.NoError(t, err)
	defer logger.Close()

	logger.GetZerolog().Debug().Msg("probe finished")

	content, err := os.ReadFile(logFile)
	require.NoError(t, err)
	assert.Contains(t, string(content), `"level":"debug"`)
	assert.Contains(t, string(content), `"message":"probe finished"`)
}

func TestLoggerBuilder_WithScanID(t *testing.T) {
	logDir := t.TempDir()
	logFile := filepath.Join(logDir, "openapi.log")
	scanID := "scan-42"

	logger, err := NewLoggerBuilder().
		WithFile(logFile, 1, 1).
		WithScanID(scanID).
		WithConsole(false).
		Build()
	require.NoError(t, err)
	defer logger.Close()

	logger.GetZerolog().Info().Msg("scan started")

	expectedPath := filepath.Join(logDir, "scans", scanID, "openapi.log")
	content, err := os.ReadFile(expectedPath)
	require.NoError(t, err, "log file should be created in the scan directory")
	assert.Contains(t, string(content), "scan_id=scan-42")
}

func TestLoggerBuilder_Validation(t *testing.T) {
	_, err := NewLoggerBuilder().WithFile("", 1, 1).WithConsole(false).Build()
	assert.Error(t, err, "no writers configured")

	_, err = NewLoggerBuilder().WithFile(filepath.Join(t.TempDir(), "x.log"), 0, 1).Build()
	assert.Error(t, err)
}

func TestNew_FromLogConfig(t *testing.T) {
	cfg := config.NewDefaultLogConfig()
	cfg.LogLevel = "debug"
	cfg.LogFormat = "json"
	cfg.LogFile = filepath.Join(t.TempDir(), "app.log")

	logger, err := New(cfg)
	require.NoError(t, err)
	defer logger.Close()

	got := logger.GetConfig()
	assert.Equal(t, zerolog.DebugLevel, got.Level)
	assert.Equal(t, FormatJSON, got.Format)
	assert.True(t, got.EnableFile)
}

func TestNew_InvalidLevel(t *testing.T) {
	cfg := config.NewDefaultLogConfig()
	cfg.LogLevel = "chatty"

	_, err := New(cfg)
	assert.Error(t, err)
}

func TestParseFormat(t *testing.T) {
	p := NewLogFormatParser()
	assert.Equal(t, FormatJSON, p.ParseFormat("JSON"))
	assert.Equal(t, FormatText, p.ParseFormat("text"))
	assert.Equal(t, FormatConsole, p.ParseFormat("anything"))
}
