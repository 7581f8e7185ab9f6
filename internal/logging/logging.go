// Package logging configures the process-wide logrus logger.
package logging

import (
	"fmt"
	"io"
	"os"
	"path"
	"runtime"
	"strings"
	"sync"

	formatter "github.com/antonfisher/nested-logrus-formatter"
	"github.com/sirupsen/logrus"
	"gopkg.in/natefinch/lumberjack.v2"
)

const pkgPath = "github.com/ayusman/kaiplay/internal/logging"

var (
	logger = logrus.New()
	once   sync.Once
)

type Fields = logrus.Fields

// Options controls logger setup.
type Options struct {
	Level string
	// File enables a rotating log file when non-empty.
	File       string
	MaxSizeMB  int
	MaxAgeDays int
	NoColors   bool
}

// Setup configures the shared logger. Only the first call has any effect.
func Setup(opts Options) *logrus.Logger {
	once.Do(func() {
		level, err := logrus.ParseLevel(opts.Level)
		if err != nil {
			level = logrus.InfoLevel
		}
		logger.SetLevel(level)

		logger.SetFormatter(&formatter.Formatter{
			NoColors:        opts.NoColors,
			TimestampFormat: "02 Jan 06 - 15:04:05",
			HideKeys:        false,
			CallerFirst:     true,
			CustomCallerFormatter: formatCaller,
		})

		writers := []io.Writer{os.Stderr}
		if opts.File != "" {
			writers = append(writers, &lumberjack.Logger{
				Filename:   opts.File,
				LocalTime:  true,
				Compress:   true,
				MaxSize:    max(opts.MaxSizeMB, 1),
				MaxAge:     opts.MaxAgeDays,
				MaxBackups: 3,
			})
		}

		logger.SetOutput(io.MultiWriter(writers...))
		logger.SetReportCaller(true)
	})

	return logger
}

func formatCaller(f *runtime.Frame) string {
	c := callerOf(f)
	s := strings.Split(c.Function, ".")
	funcName := s[len(s)-1]
	return fmt.Sprintf(" [%s:%d][%s()]", path.Base(c.File), c.Line, funcName)
}

// callerOf returns the first frame above the helpers in this file. logrus
// stops at the first frame outside itself, which is always a helper here.
func callerOf(f *runtime.Frame) runtime.Frame {
	if !isHelper(*f) {
		return *f
	}
	pcs := make([]uintptr, 32)
	frames := runtime.CallersFrames(pcs[:runtime.Callers(2, pcs)])
	seen := false
	for {
		fr, more := frames.Next()
		if isHelper(fr) {
			seen = true
		} else if seen && !isLogrus(fr) {
			return fr
		}
		if !more {
			return *f
		}
	}
}

func isHelper(f runtime.Frame) bool {
	return strings.HasPrefix(f.Function, pkgPath+".") && path.Base(f.File) == "logging.go"
}

func isLogrus(f runtime.Frame) bool {
	return strings.HasPrefix(f.Function, "github.com/sirupsen/logrus.") ||
		strings.HasPrefix(f.Function, "github.com/antonfisher/nested-logrus-formatter.")
}

// Logger returns the shared logger.
func Logger() *logrus.Logger {
	return logger
}

func Debug(fields Fields, msg string) {
	if fields == nil {
		fields = Fields{}
	}
	logger.WithFields(fields).Debug(msg)
}

func Info(fields Fields, msg string) {
	if fields == nil {
		fields = Fields{}
	}
	logger.WithFields(fields).Info(msg)
}

func Warn(fields Fields, msg string) {
	if fields == nil {
		fields = Fields{}
	}
	logger.WithFields(fields).Warn(msg)
}

func Error(fields Fields, msg string) {
	if fields == nil {
		fields = Fields{}
	}
	logger.WithFields(fields).Error(msg)
}

// Writer returns a pipe whose lines are logged at warn level with fields.
// The caller closes it.
func Writer(fields Fields) *io.PipeWriter {
	if fields == nil {
		fields = Fields{}
	}
	return logger.WithFields(fields).WriterLevel(logrus.WarnLevel)
}
