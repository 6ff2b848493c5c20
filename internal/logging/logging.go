// Package logging builds the process logger.
package logging

import (
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/sirupsen/logrus"
)

// New returns a logger writing to w at level ("debug", "info", ...) in
// format "text" or "json".
func New(level, format string, w io.Writer, noColor bool) (*logrus.Logger, error) {
	logger := logrus.New()
	logger.SetOutput(w)

	lvl, err := logrus.ParseLevel(strings.TrimSpace(level))
	if err != nil {
		return nil, fmt.Errorf("invalid log level %q: %w", level, err)
	}
	logger.SetLevel(lvl)

	switch strings.ToLower(format) {
	case "json":
		logger.SetFormatter(&logrus.JSONFormatter{TimestampFormat: time.RFC3339})
	case "", "text":
		logger.SetFormatter(&logrus.TextFormatter{
			DisableColors:   noColor,
			FullTimestamp:   true,
			TimestampFormat: "15:04:05",
		})
	default:
		return nil, fmt.Errorf("unknown log format %q — supported: text, json", format)
	}
	return logger, nil
}

// Discard returns a logger that drops everything.
func Discard() *logrus.Logger {
	logger := logrus.New()
	logger.SetOutput(io.Discard)
	return logger
}
