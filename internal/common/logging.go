package common

import (
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/sirupsen/logrus"
	"gopkg.in/natefinch/lumberjack.v2"
)

// LogOptions mirrors the logs section of the configuration file.
type LogOptions struct {
	Directory  string
	FileName   string
	MaxSizeMB  int
	MaxAgeDays int
	MaxBackups int
	Compress   bool
	Level      string
}

var logger = newDefaultLogger()

func newDefaultLogger() *logrus.Logger {
	l := logrus.New()
	l.SetOutput(os.Stderr)
	l.SetFormatter(&logrus.TextFormatter{FullTimestamp: true, TimestampFormat: "2006-01-02 15:04:05.000000"})
	l.SetLevel(logrus.InfoLevel)
	return l
}

// Logger returns the process logger. Packages take a logrus.FieldLogger so
// tests can hand in their own.
func Logger() *logrus.Logger {
	return logger
}

// Logf writes a one-line notice at info level.
func Logf(format string, args ...interface{}) {
	logger.Infof(format, args...)
}

func Fatalf(format string, args ...interface{}) {
	logger.Fatalf(format, args...)
}

// SetupLogging points the process logger at stderr plus a size-rotated log
// file. It returns the rotator so callers can close it on exit; a nil rotator
// means file logging is disabled (empty directory).
func SetupLogging(opts LogOptions) (io.Closer, error) {
	level := logrus.InfoLevel
	if opts.Level != "" {
		lvl, err := logrus.ParseLevel(opts.Level)
		if err != nil {
			return nil, fmt.Errorf("log level: %w", err)
		}
		level = lvl
	}
	logger.SetLevel(level)
	if opts.Directory == "" {
		logger.SetOutput(os.Stderr)
		return nil, nil
	}
	if err := os.MkdirAll(opts.Directory, 0o755); err != nil {
		return nil, fmt.Errorf("create log dir: %w", err)
	}
	name := opts.FileName
	if name == "" {
		name = "maskgate.log"
	}
	rotator := &lumberjack.Logger{
		Filename:   filepath.Join(opts.Directory, name),
		MaxSize:    opts.MaxSizeMB,
		MaxAge:     opts.MaxAgeDays,
		MaxBackups: opts.MaxBackups,
		Compress:   opts.Compress,
	}
	logger.SetOutput(io.MultiWriter(os.Stderr, rotator))
	return rotator, nil
}
