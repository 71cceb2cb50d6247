package main

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/ausocean/utils/logging"
	"gopkg.in/natefinch/lumberjack.v2"

	"github.com/san-kum/liepid/internal/config"
)

const logSuppress = false

var logLevels = map[string]int8{
	"debug":   logging.Debug,
	"info":    logging.Info,
	"warning": logging.Warning,
	"error":   logging.Error,
}

// newLogger returns a JSON logger writing to a rotated file, or to stderr when
// no file is configured.
func newLogger(lc config.LogConfig) (logging.Logger, io.Closer, error) {
	level, ok := logLevels[strings.ToLower(lc.Level)]
	if !ok {
		return nil, nil, fmt.Errorf("unknown log level: %q", lc.Level)
	}

	if lc.File == "" {
		return logging.New(level, os.Stderr, logSuppress), io.NopCloser(os.Stderr), nil
	}

	fileLog := &lumberjack.Logger{
		Filename:   lc.File,
		MaxSize:    lc.MaxSize, // MB.
		MaxBackups: lc.MaxBackups,
		MaxAge:     lc.MaxAge, // Days.
	}
	return logging.New(level, fileLog, logSuppress), fileLog, nil
}
