package logging

import (
	"io"
	"os"
	"strings"

	"github.com/sirupsen/logrus"
)

// New builds the process logger. LOG_LEVEL picks the level (default info),
// LOG_FORMAT=json switches to JSON output for log collectors.
func New() *logrus.Logger {
	return NewWithEnv(os.LookupEnv, os.Stdout)
}

// NewWithEnv is New with an injectable environment and output.
func NewWithEnv(lookup func(string) (string, bool), out io.Writer) *logrus.Logger {
	log := logrus.New()

	levelName, ok := lookup("LOG_LEVEL")
	if !ok {
		levelName = "info"
	}
	level, err := logrus.ParseLevel(levelName)
	if err != nil {
		level = logrus.InfoLevel
	}
	log.SetLevel(level)

	format, _ := lookup("LOG_FORMAT")
	if strings.ToLower(format) == "json" {
		log.SetFormatter(&logrus.JSONFormatter{})
	} else {
		log.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	}
	log.SetOutput(out)
	return log
}

// Discard returns a logger that drops everything. Components use it when
// constructed without one.
func Discard() *logrus.Logger {
	log := logrus.New()
	log.SetOutput(io.Discard)
	log.SetLevel(logrus.PanicLevel)
	return log
}
