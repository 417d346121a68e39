// Package logging builds the process logger.
package logging

import (
	"fmt"
	"io"
	"strings"

	"github.com/sirupsen/logrus"
)

// Levels lists the accepted --log-level values.
var Levels = []string{"debug", "info", "warn", "error"}

// New returns a text logger writing to out at the given level.
func New(level string, out io.Writer) (*logrus.Logger, error) {
	lvl, err := ParseLevel(level)
	if err != nil {
		return nil, err
	}
	l := logrus.New()
	l.SetOutput(out)
	l.SetLevel(lvl)
	l.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	return l, nil
}

// ParseLevel accepts the values in Levels, case-insensitively.
func ParseLevel(level string) (logrus.Level, error) {
	switch strings.ToLower(level) {
	case "", "info":
		return logrus.InfoLevel, nil
	case "debug":
		return logrus.DebugLevel, nil
	case "warn", "warning":
		return logrus.WarnLevel, nil
	case "error":
		return logrus.ErrorLevel, nil
	}
	return 0, fmt.Errorf("unknown log level %q (want one of %s)", level, strings.Join(Levels, ", "))
}
