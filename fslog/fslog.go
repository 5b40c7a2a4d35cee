// Package fslog initialises the process-wide logging sink. It is called
// exactly once by the CLI layer; everything downstream receives the
// resulting FieldLogger explicitly.
package fslog

import (
	"io"
	"os"

	"github.com/sirupsen/logrus"
	"gopkg.in/natefinch/lumberjack.v2"
)

// Options controls logging setup.
type Options struct {
	File       string // log to this file as well as stderr
	MaxSize    int    // megabytes before the log file is rotated
	MaxBackups int    // old log files to retain
	Verbose    bool   // enable debug level
	Quiet      bool   // errors only
}

// DefaultOptions are the options used when no flags are given.
var DefaultOptions = Options{
	MaxSize:    10,
	MaxBackups: 3,
}

// New builds a configured logrus logger.
func New(opt Options) *logrus.Logger {
	logger := logrus.New()
	logger.SetFormatter(&logrus.TextFormatter{
		FullTimestamp:   true,
		TimestampFormat: "2006/01/02 15:04:05",
	})
	switch {
	case opt.Quiet:
		logger.SetLevel(logrus.ErrorLevel)
	case opt.Verbose:
		logger.SetLevel(logrus.DebugLevel)
	default:
		logger.SetLevel(logrus.InfoLevel)
	}
	if opt.File != "" {
		rotated := &lumberjack.Logger{
			Filename:   opt.File,
			MaxSize:    opt.MaxSize,
			MaxBackups: opt.MaxBackups,
		}
		logger.SetOutput(io.MultiWriter(os.Stderr, rotated))
	} else {
		logger.SetOutput(os.Stderr)
	}
	return logger
}

// Discard returns a logger that swallows everything, for tests.
func Discard() *logrus.Logger {
	logger := logrus.New()
	logger.SetOutput(io.Discard)
	return logger
}
