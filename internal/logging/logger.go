// Package logging builds the process-wide structured logger: JSON output
// to stdout, mirrored to a rotating-by-process-lifetime file under the
// configured log directory, with an optional second file capturing
// trace-level output for deep debugging sessions.
package logging

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/sirupsen/logrus"
)

// Options controls where and how verbosely the logger writes.
type Options struct {
	LogPath              string
	Verbose              bool
	EnableTraceLevelFile bool
}

// New builds the root logger. A failure to open the log file falls back
// to stdout-only logging with a warning rather than refusing to start.
func New(opts Options) (*logrus.Logger, error) {
	logger := logrus.New()
	logger.SetFormatter(&logrus.JSONFormatter{
		TimestampFormat: "2006-01-02T15:04:05.000Z07:00",
	})

	level := logrus.InfoLevel
	if opts.Verbose {
		level = logrus.DebugLevel
	}
	logger.SetLevel(level)
	logger.SetOutput(os.Stdout)

	if opts.LogPath == "" {
		return logger, nil
	}

	if err := os.MkdirAll(opts.LogPath, 0o755); err != nil {
		logger.Warnf("failed creating log directory %q, logging to stdout only: %v", opts.LogPath, err)
		return logger, nil
	}

	stamp := time.Now().UTC().Format("20060102T150405Z")
	mainPath := filepath.Join(opts.LogPath, fmt.Sprintf("radcam-manager-%s.log", stamp))
	file, err := os.OpenFile(mainPath, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		logger.Warnf("failed opening log file %q, logging to stdout only: %v", mainPath, err)
		return logger, nil
	}
	logger.AddHook(&writerHook{writer: file, levels: logrus.AllLevels, formatter: logger.Formatter})

	if opts.EnableTraceLevelFile {
		logger.SetLevel(logrus.TraceLevel)
		tracePath := filepath.Join(opts.LogPath, fmt.Sprintf("radcam-manager-trace-%s.log", stamp))
		traceFile, err := os.OpenFile(tracePath, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
		if err != nil {
			logger.Warnf("failed opening trace log file %q: %v", tracePath, err)
		} else {
			logger.AddHook(&writerHook{writer: traceFile, levels: []logrus.Level{logrus.TraceLevel}, formatter: logger.Formatter})
		}
	}

	return logger, nil
}

// writerHook mirrors log entries to an arbitrary io.Writer; logrus only
// writes to a single primary output, so stdout plus a file both need one
// of these.
type writerHook struct {
	writer    *os.File
	levels    []logrus.Level
	formatter logrus.Formatter
}

func (h *writerHook) Levels() []logrus.Level { return h.levels }

func (h *writerHook) Fire(entry *logrus.Entry) error {
	line, err := h.formatter.Format(entry)
	if err != nil {
		return err
	}
	_, err = h.writer.Write(line)
	return err
}
