package logger

import (
	"io"
	"os"
	"strings"

	"github.com/sirupsen/logrus"

	cfg "github.com/ubc-iui/emdat-sweep/config"
)

// New returns a text logger. level is one of debug, info, warn, error
// (default info). QUIET verbosity caps output at warnings and VERBOSE forces
// debug regardless of level.
func New(level string, verbosity cfg.Verbosity) *logrus.Logger {
	return NewWithOutput(os.Stdout, level, verbosity)
}

func NewWithOutput(w io.Writer, level string, verbosity cfg.Verbosity) *logrus.Logger {
	l := logrus.New()
	l.SetOutput(w)
	l.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})

	lvl, err := logrus.ParseLevel(strings.ToLower(level))
	if err != nil {
		lvl = logrus.InfoLevel
	}
	switch verbosity {
	case cfg.Quiet:
		if lvl > logrus.WarnLevel {
			lvl = logrus.WarnLevel
		}
	case cfg.Verbose:
		lvl = logrus.DebugLevel
	}
	l.SetLevel(lvl)
	return l
}
