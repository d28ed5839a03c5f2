package urlhandler

import (
	"bufio"
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/rs/zerolog"
)

// Custom errors for file operations
var (
	ErrFileNotFound = errors.New("input file not found")
	ErrFileEmpty    = errors.New("input file is empty or contains no valid domains")
	ErrReadingFile  = errors.New("error reading input file")
)

// ReadTargetsFromFile reads one domain per line, skipping blanks and lines
// starting with '#'. Lines that fail domain validation are logged and
// skipped; duplicates are dropped.
func ReadTargetsFromFile(filePath string, logger zerolog.Logger) ([]*Target, error) {
	fileLogger := logger.With().Str("file_path", filePath).Logger()

	info, err := os.Stat(filePath)
	if os.IsNotExist(err) {
		return nil, fmt.Errorf("%w: %s", ErrFileNotFound, filePath)
	}
	if err != nil {
		return nil, fmt.Errorf("%w: %s (cause: %v)", ErrReadingFile, filePath, err)
	}
	if info.IsDir() {
		return nil, fmt.Errorf("input path is a directory, not a file: %s", filePath)
	}

	file, err := os.Open(filePath)
	if err != nil {
		return nil, fmt.Errorf("%w: %s (cause: %v)", ErrReadingFile, filePath, err)
	}
	defer file.Close()

	var targets []*Target
	seen := make(map[string]struct{})
	lineNumber := 0
	skipped := 0

	scanner := bufio.NewScanner(file)
	for scanner.Scan() {
		lineNumber++
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}

		target, err := NewTarget(line)
		if err != nil {
			fileLogger.Warn().Err(err).Int("line", lineNumber).Str("input", line).Msg("Skipping invalid domain")
			skipped++
			continue
		}
		if _, dup := seen[target.Domain]; dup {
			continue
		}
		seen[target.Domain] = struct{}{}
		targets = append(targets, target)
	}

	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("%w: %s (scan error: %v)", ErrReadingFile, filePath, err)
	}

	fileLogger.Info().
		Int("lines", lineNumber).
		Int("targets", len(targets)).
		Int("skipped", skipped).
		Msg("Finished reading targets file")

	if len(targets) == 0 {
		return nil, fmt.Errorf("%w: %s", ErrFileEmpty, filePath)
	}
	return targets, nil
}
