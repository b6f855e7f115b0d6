package config

import (
	"io"
	"os"

	log "github.com/sirupsen/logrus"
)

// NewLogger builds a logger writing to stderr with the configured level
// and format. An unknown level falls back to info.
func NewLogger(c Config) *log.Logger {
	return newLogger(c, os.Stderr)
}

func newLogger(c Config, w io.Writer) *log.Logger {
	logger := log.New()
	logger.SetOutput(w)
	level, err := log.ParseLevel(c.LogLevel)
	if err != nil {
		level = log.InfoLevel
	}
	logger.SetLevel(level)
	if c.LogFormat == "json" {
		logger.SetFormatter(&log.JSONFormatter{})
	} else {
		logger.SetFormatter(&log.TextFormatter{FullTimestamp: true})
	}
	return logger
}
