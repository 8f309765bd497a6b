// Package logger builds the CLI logger from configuration.
package logger

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/heoskit/heos/internal/config"
	"github.com/sirupsen/logrus"
	"gopkg.in/natefinch/lumberjack.v2"
)

// TimestampFormat is used by both formatters.
const TimestampFormat = "2006-01-02 15:04:05.000"

// New returns a logger configured by cfg. An unknown level falls back to
// info with a warning.
func New(cfg *config.LogConfig) (*logrus.Logger, error) {
	if cfg == nil {
		return nil, fmt.Errorf("log config cannot be nil")
	}

	log := logrus.New()

	if err := setOutput(log, cfg); err != nil {
		return nil, fmt.Errorf("failed to set log output: %w", err)
	}
	if err := setFormatter(log, cfg); err != nil {
		return nil, fmt.Errorf("failed to set log formatter: %w", err)
	}

	level, err := logrus.ParseLevel(cfg.Level)
	if err != nil {
		level = logrus.InfoLevel
		log.Warnf("Invalid log level '%s', using 'info' as default", cfg.Level)
	}
	log.SetLevel(level)
	log.SetReportCaller(cfg.Caller)

	return log, nil
}

func setFormatter(log *logrus.Logger, cfg *config.LogConfig) error {
	switch strings.ToLower(cfg.Format) {
	case "json":
		log.SetFormatter(&logrus.JSONFormatter{
			TimestampFormat: TimestampFormat,
			FieldMap: logrus.FieldMap{
				logrus.FieldKeyTime:  "timestamp",
				logrus.FieldKeyLevel: "level",
				logrus.FieldKeyMsg:   "message",
			},
		})
	case "text", "":
		log.SetFormatter(&logrus.TextFormatter{
			TimestampFormat: TimestampFormat,
			FullTimestamp:   true,
		})
	default:
		return fmt.Errorf("unsupported log format: %s", cfg.Format)
	}
	return nil
}

func setOutput(log *logrus.Logger, cfg *config.LogConfig) error {
	switch strings.ToLower(cfg.Output) {
	case "stderr", "":
		log.SetOutput(os.Stderr)
	case "stdout":
		log.SetOutput(os.Stdout)
	case "file":
		if cfg.FilePath == "" {
			return fmt.Errorf("file path is required when output is file")
		}
		if err := os.MkdirAll(filepath.Dir(cfg.FilePath), 0o755); err != nil {
			return fmt.Errorf("failed to create log directory: %w", err)
		}
		log.SetOutput(&lumberjack.Logger{
			Filename:   cfg.FilePath,
			MaxSize:    cfg.MaxSize,
			MaxBackups: cfg.MaxBackups,
			MaxAge:     cfg.MaxAge,
			Compress:   cfg.Compress,
		})
	default:
		return fmt.Errorf("unsupported log output: %s", cfg.Output)
	}
	return nil
}
