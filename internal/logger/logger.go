package logger

import (
	"io"
	"os"
	"strings"

	"github.com/sirupsen/logrus"
)

type Options struct {
	Level  string    // trace|debug|info|warn|error, default info
	Format string    // json|text, default json
	Output io.Writer // default os.Stdout
}

// New builds a logger from LOG_LEVEL and LOG_FORMAT.
func New() *logrus.Logger {
	return NewWithOptions(Options{
		Level:  os.Getenv("LOG_LEVEL"),
		Format: os.Getenv("LOG_FORMAT"),
	})
}

func NewWithOptions(o Options) *logrus.Logger {
	l := logrus.New()
	if o.Output == nil {
		o.Output = os.Stdout
	}
	l.SetOutput(o.Output)

	switch strings.ToLower(strings.TrimSpace(o.Format)) {
	case "text":
		l.SetFormatter(&logrus.TextFormatter{FullTimestamp: true, DisableColors: true})
	default:
		l.SetFormatter(&logrus.JSONFormatter{})
	}

	l.SetLevel(ParseLevel(o.Level))
	return l
}

// ParseLevel maps a level name to logrus, falling back to info.
func ParseLevel(level string) logrus.Level {
	switch strings.ToLower(strings.TrimSpace(level)) {
	case "trace":
		return logrus.TraceLevel
	case "debug":
		return logrus.DebugLevel
	case "warn", "warning":
		return logrus.WarnLevel
	case "error":
		return logrus.ErrorLevel
	default:
		return logrus.InfoLevel
	}
}
