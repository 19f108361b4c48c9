package config

import (
	"io"
	"log"
	"os"
	"path/filepath"
	"strings"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// LogWriter is the writer used for application and database logs.
var LogWriter io.Writer = os.Stdout

// LogFilePath returns the default path to the backend log file.
func LogFilePath() string {
	return filepath.Join("logs", "permit-api.log")
}

// InitLogging prepares the log file, points the standard logger and LogWriter at
// it, and returns a zap logger writing to the same destination.
func InitLogging(cfg LoggingConfig) (*zap.Logger, *os.File) {
	path := cfg.File
	if path == "" {
		path = LogFilePath()
	}

	var logFile *os.File
	if err := os.MkdirAll(filepath.Dir(path), os.ModePerm); err != nil {
		log.Printf("Warning: Failed to create logs directory: %v", err)
	} else if f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644); err != nil {
		log.Printf("Warning: Failed to open log file: %v", err)
	} else {
		logFile = f
	}

	if logFile != nil {
		LogWriter = io.MultiWriter(os.Stdout, logFile)
	} else {
		LogWriter = os.Stdout
	}
	log.SetOutput(LogWriter)

	return NewLogger(cfg, zapcore.AddSync(LogWriter)), logFile
}

// NewLogger builds a zap logger for the configured level and encoding.
func NewLogger(cfg LoggingConfig, sink zapcore.WriteSyncer) *zap.Logger {
	level := zapcore.InfoLevel
	switch strings.ToLower(cfg.Level) {
	case "debug":
		level = zapcore.DebugLevel
	case "warn":
		level = zapcore.WarnLevel
	case "error":
		level = zapcore.ErrorLevel
	}

	var encoder zapcore.Encoder
	if cfg.Format == "json" {
		encoder = zapcore.NewJSONEncoder(zap.NewProductionEncoderConfig())
	} else {
		encoder = zapcore.NewConsoleEncoder(zap.NewDevelopmentEncoderConfig())
	}

	return zap.New(zapcore.NewCore(encoder, sink, level), zap.AddCaller())
}
