package logging

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/rs/zerolog"
)

var (
	debugLogger = zerolog.Nop()
	logFile     *os.File
)

// InitLogger initializes the debug logger to write to a file next to the executable
func InitLogger(level string) error {
	exePath, err := os.Executable()
	if err != nil {
		return fmt.Errorf("failed to get executable path: %w", err)
	}

	exeDir := filepath.Dir(exePath)
	logPath := filepath.Join(exeDir, fmt.Sprintf("home-assistant-debug-%s.log", time.Now().Format("2006-01-02")))

	f, err := os.OpenFile(logPath, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0644)
	if err != nil {
		return fmt.Errorf("failed to open log file: %w", err)
	}
	logFile = f

	return Setup(f, level)
}

// Setup points the logger at w. Used directly by tests and the one-shot CLI.
func Setup(w io.Writer, level string) error {
	lvl := zerolog.InfoLevel
	if level != "" {
		parsed, err := zerolog.ParseLevel(level)
		if err != nil {
			return fmt.Errorf("invalid log level %q: %w", level, err)
		}
		lvl = parsed
	}

	zerolog.TimeFieldFormat = time.RFC3339Nano
	debugLogger = zerolog.New(w).Level(lvl).With().Timestamp().Logger()
	debugLogger.Info().Msg("=== Home Assistant Debug Log Started ===")
	return nil
}

// Debug logs a debug message
func Debug(format string, v ...interface{}) {
	debugLogger.Debug().Msgf(format, v...)
}

// Info logs an info message
func Info(format string, v ...interface{}) {
	debugLogger.Info().Msgf(format, v...)
}

// Warn logs a warning message
func Warn(format string, v ...interface{}) {
	debugLogger.Warn().Msgf(format, v...)
}

// Error logs an error message
func Error(format string, v ...interface{}) {
	debugLogger.Error().Msgf(format, v...)
}

// Close closes the log file
func Close() {
	debugLogger.Info().Msg("=== Home Assistant Debug Log Ended ===")
	debugLogger = zerolog.Nop()
	if logFile != nil {
		logFile.Close()
		logFile = nil
	}
}
