package logger

import (
	"github.com/dev-fuadhasan/openapi/internal/config"
	"github.com/rs/zerolog"
)

// LoggerConfig is the resolved logger setup. File output for a scan goes to
// scans/<ScanID>/ beside FilePath when ScanID is set.
type LoggerConfig struct {
	Level         zerolog.Level
	Format        LogFormat
	EnableConsole bool
	EnableFile    bool
	FilePath      string
	MaxSizeMB     int
	MaxBackups    int
	ScanID        string
}

// LogFormat names how events are rendered
type LogFormat string

const (
	FormatJSON    LogFormat = "json"
	FormatConsole LogFormat = "console"
	FormatText    LogFormat = "text"
)

func DefaultLoggerConfig() LoggerConfig {
	return LoggerConfig{
		Level:         zerolog.InfoLevel,
		Format:        FormatConsole,
		EnableConsole: true,
		MaxSizeMB:     config.DefaultMaxLogSizeMB,
		MaxBackups:    config.DefaultMaxLogBackups,
	}
}
