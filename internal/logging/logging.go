// Package logging is the structured logging facade every other logfilt
// package calls into: logging.Scanner(...), logging.Worker(...),
// logging.Pipeline(...), mirroring the component-tagged global functions of
// a hand-rolled debug logger, but backed by logrus so entries carry levels
// and structured fields instead of a single enable/disable switch.
//
// Default level is Warn. SetVerbose(true) (wired to -v / LOGFILT_DEBUG=1)
// raises it to Debug.
package logging

import (
	"io"
	"os"

	"github.com/sirupsen/logrus"
)

var log = newDefault()

func newDefault() *logrus.Logger {
	l := logrus.New()
	l.SetLevel(logrus.WarnLevel)
	l.SetOutput(os.Stderr)
	l.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})

	if v := os.Getenv("LOGFILT_DEBUG"); v == "1" || v == "true" {
		l.SetLevel(logrus.DebugLevel)
	}
	return l
}

// SetVerbose raises or lowers the global log level between Debug and Warn.
func SetVerbose(verbose bool) {
	if verbose {
		log.SetLevel(logrus.DebugLevel)
		return
	}
	log.SetLevel(logrus.WarnLevel)
}

// SetOutput redirects where log entries are written. Tests use this to
// capture output; the CLI uses it to redirect to a log file.
func SetOutput(w io.Writer) {
	log.SetOutput(w)
}

// SetJSON switches the formatter between text (default) and JSON, for
// environments that consume logfilt's logs as structured events.
func SetJSON(enabled bool) {
	if enabled {
		log.SetFormatter(&logrus.JSONFormatter{})
		return
	}
	log.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
}

func component(name string) *logrus.Entry {
	return log.WithField("component", name)
}

// Scanner logs a debug-level message from the file scanner (C6).
func Scanner(format string, args ...interface{}) {
	component("scanner").Debugf(format, args...)
}

// Worker logs a debug-level message from a pipeline worker (C8).
func Worker(format string, args ...interface{}) {
	component("worker").Debugf(format, args...)
}

// Pipeline logs a debug-level message from the pipeline orchestrator (C9).
func Pipeline(format string, args ...interface{}) {
	component("pipeline").Debugf(format, args...)
}

// Writer logs a debug-level message from the output writer (C10).
func Writer(format string, args ...interface{}) {
	component("writer").Debugf(format, args...)
}

// Infof logs an info-level message with no component tag, for top-level
// CLI progress messages.
func Infof(format string, args ...interface{}) {
	log.Infof(format, args...)
}

// Warnf logs a warn-level message — the default-visible severity for
// recoverable per-file/per-record errors.
func Warnf(format string, args ...interface{}) {
	log.Warnf(format, args...)
}

// Errorf logs an error-level message, for fatal conditions about to abort
// the pipeline.
func Errorf(format string, args ...interface{}) {
	log.Errorf(format, args...)
}

// WithField returns a logrus.Entry pre-populated with one field, for
// call sites that want structured context (e.g. path, records_matched)
// attached to a single log line rather than formatted into the message.
func WithField(key string, value interface{}) *logrus.Entry {
	return log.WithField(key, value)
}
