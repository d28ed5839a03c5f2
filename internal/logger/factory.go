package logger

import (
	"io"
	"os"
	"path/filepath"

	"gopkg.in/natefinch/lumberjack.v2"
)

// WriterFactory creates the console and rotating file sinks
type WriterFactory struct {
	console io.Writer
}

// NewWriterFactory creates a factory writing console output to stderr
func NewWriterFactory() *WriterFactory {
	return &WriterFactory{console: os.Stderr}
}

func (wf *WriterFactory) CreateConsoleWriter(format LogFormat) io.Writer {
	return formatWriter(format, wf.console)
}

// CreateFileWriter creates a rotating file writer. The returned closer
// releases the underlying file.
func (wf *WriterFactory) CreateFileWriter(config LoggerConfig) (io.Writer, io.Closer) {
	finalPath := scanLogPath(config)

	if err := os.MkdirAll(filepath.Dir(finalPath), 0o755); err != nil {
		finalPath = config.FilePath
	}

	rotator := &lumberjack.Logger{
		Filename:   finalPath,
		MaxSize:    config.MaxSizeMB,
		LocalTime:  true,
		MaxBackups: config.MaxBackups,
	}
	return formatWriter(config.Format, rotator), rotator
}

func scanLogPath(config LoggerConfig) string {
	if config.ScanID == "" {
		return config.FilePath
	}
	return filepath.Join(filepath.Dir(config.FilePath), "scans", config.ScanID, filepath.Base(config.FilePath))
}
