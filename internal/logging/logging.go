// Package logging configures the process-wide logrus logger.
package logging

import (
	"io"
	"os"

	"github.com/sirupsen/logrus"
)

// Setup applies level and format ("text" or "json") to the standard logger
// and returns it. An unknown level falls back to info.
func Setup(level, format string) *logrus.Logger {
	return configure(logrus.StandardLogger(), level, format, os.Stdout)
}

func configure(l *logrus.Logger, level, format string, out io.Writer) *logrus.Logger {
	l.SetOutput(out)

	if format == "json" {
		l.SetFormatter(&logrus.JSONFormatter{})
	} else {
		l.SetFormatter(&logrus.TextFormatter{
			FullTimestamp:   true,
			TimestampFormat: "2006-01-02 15:04:05",
			PadLevelText:    true,
		})
	}

	logLevel, err := logrus.ParseLevel(level)
	if err != nil {
		l.WithField("level", level).Warn("invalid log level, defaulting to info")
		logLevel = logrus.InfoLevel
	}
	l.SetLevel(logLevel)
	return l
}
