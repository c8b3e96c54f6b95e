// Package logging builds the structured logrus loggers shared by every converge component.
//
// Components never log through a package-level logger. They accept a
// logrus.FieldLogger and tag every entry with a "source" field so that
// captured records can be filtered per component (see the logcapture package).
package logging

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/sirupsen/logrus"
)

// SourceField is the entry field carrying the emitting component.
const SourceField = "source"

// Source names used by the core components.
const (
	SourceWait    = "converge/wait"
	SourceRetry   = "converge/retry"
	SourceMonitor = "converge/monitor"
	SourceTracker = "converge/tracker"
	SourcePerf    = "converge/perf"
)

// Format selects the logrus formatter.
type Format string

const (
	// FormatText renders human readable key=value lines.
	FormatText Format = "text"
	// FormatJSON renders one JSON object per entry.
	FormatJSON Format = "json"
)

// Options configures New.
type Options struct {
	// Level is a logrus level name such as "info" or "debug". Empty means info.
	Level string
	// Format is the output format. Empty means text.
	Format Format
	// Output is the destination. Nil means os.Stderr.
	Output io.Writer
}

// New creates a logger from the given options.
func New(opts Options) (*logrus.Logger, error) {
	logger := logrus.New()

	output := opts.Output
	if output == nil {
		output = os.Stderr
	}

	logger.SetOutput(output)

	level := logrus.InfoLevel

	if opts.Level != "" {
		parsed, err := logrus.ParseLevel(strings.TrimSpace(opts.Level))
		if err != nil {
			return nil, fmt.Errorf("parse log level %q: %w", opts.Level, err)
		}

		level = parsed
	}

	logger.SetLevel(level)

	switch opts.Format {
	case FormatJSON:
		logger.SetFormatter(&logrus.JSONFormatter{})
	case FormatText, "":
		logger.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownFormat, opts.Format)
	}

	return logger, nil
}

// Discard returns a logger that drops everything. Components fall back to it
// when no logger is supplied.
func Discard() *logrus.Logger {
	logger := logrus.New()
	logger.SetOutput(io.Discard)

	return logger
}

// ForSource tags a logger with the given component source.
// A nil logger yields a discarding one.
func ForSource(logger logrus.FieldLogger, source string) logrus.FieldLogger {
	if logger == nil {
		logger = Discard()
	}

	return logger.WithField(SourceField, source)
}
