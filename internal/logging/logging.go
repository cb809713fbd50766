// Package logging builds the logrus loggers used by the binaries.
package logging

import (
	"io"
	"os"

	"github.com/mattn/go-isatty"
	"github.com/sirupsen/logrus"
)

// New returns a logger writing to w at the named level. Colors are only
// enabled when w is a terminal.
func New(w io.Writer, level string) (*logrus.Logger, error) {
	lvl, err := logrus.ParseLevel(level)
	if err != nil {
		return nil, err
	}

	tty := false
	if f, ok := w.(*os.File); ok {
		tty = isatty.IsTerminal(f.Fd()) || isatty.IsCygwinTerminal(f.Fd())
	}

	logger := logrus.New()
	logger.Out = w
	logger.Level = lvl
	logger.Formatter = &logrus.TextFormatter{
		ForceColors:      tty,
		DisableColors:    !tty,
		FullTimestamp:    true,
		QuoteEmptyFields: true,
	}
	return logger, nil
}
