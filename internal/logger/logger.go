package logger

import (
	"fmt"
	"io"
	"os"

	"github.com/sirupsen/logrus"
)

// Logger is the process-wide logger, set up by Init.
var Logger = logrus.New()

// New creates a logger writing to w at the given level. format is "text"
// or "json".
func New(w io.Writer, level, format string) (*logrus.Logger, error) {
	l := logrus.New()
	l.SetOutput(w)

	lvl, err := logrus.ParseLevel(level)
	if err != nil {
		return nil, fmt.Errorf("invalid log level %q: %w", level, err)
	}
	l.SetLevel(lvl)

	switch format {
	case "", "text":
		l.SetFormatter(&logrus.TextFormatter{
			FullTimestamp: true,
		})
	case "json":
		l.SetFormatter(&logrus.JSONFormatter{})
	default:
		return nil, fmt.Errorf("unsupported log format %q", format)
	}
	return l, nil
}

// Init replaces Logger with one configured from level and format, writing
// to stderr so that command output on stdout stays clean.
func Init(level, format string) error {
	l, err := New(os.Stderr, level, format)
	if err != nil {
		return err
	}
	Logger = l
	return nil
}
