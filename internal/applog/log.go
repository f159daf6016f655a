// Package applog configures the shared logrus logger used across every
// component, the way the teacher's main.go configures the stdlib log
// package's output and flags in one place.
package applog

import (
	"os"

	"github.com/sirupsen/logrus"
)

// New builds a logrus.Logger at the given level, writing structured
// text to stdout. Unrecognized levels fall back to Info with a warning,
// matching spec.md's --log-level contract.
func New(level string) *logrus.Logger {
	l := logrus.New()
	l.SetOutput(os.Stdout)
	l.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})

	parsed, err := logrus.ParseLevel(level)
	if err != nil {
		l.Warnf("invalid log level %q, defaulting to info", level)
		parsed = logrus.InfoLevel
	}
	l.SetLevel(parsed)
	return l
}

// Component returns a child logger tagged with a "component" field, the
// structured-logging equivalent of the teacher's per-file log prefixes.
func Component(l logrus.FieldLogger, name string) logrus.FieldLogger {
	return l.WithField("component", name)
}
