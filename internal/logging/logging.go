// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

// Package logging holds the process logger.
package logging

import (
	"fmt"
	"io"
	"os"
	"sync"
	"time"

	"github.com/rs/zerolog"
)

var (
	mu     sync.RWMutex
	logger = New(os.Stderr)
)

// New returns a console logger writing to w.
func New(w io.Writer) zerolog.Logger {
	output := zerolog.ConsoleWriter{Out: w, TimeFormat: time.RFC3339}
	return zerolog.New(output).With().Timestamp().Logger()
}

// Logger returns the process logger.
func Logger() zerolog.Logger {
	mu.RLock()
	defer mu.RUnlock()
	return logger
}

// For returns the process logger tagged with a component name.
func For(component string) zerolog.Logger {
	l := Logger()
	return l.With().Str("component", component).Logger()
}

// SetLevel parses a level name such as "debug" or "warn" and makes it the
// global zerolog level. Loggers derived earlier follow it too, since the
// global level is checked on every event.
func SetLevel(level string) error {
	lvl, err := zerolog.ParseLevel(level)
	if err != nil {
		return fmt.Errorf("log level %q: %w", level, err)
	}
	zerolog.SetGlobalLevel(lvl)
	return nil
}

// Level returns the level set by SetLevel.
func Level() zerolog.Level {
	return zerolog.GlobalLevel()
}

// SetOutput redirects the process logger.
func SetOutput(w io.Writer) {
	mu.Lock()
	defer mu.Unlock()
	logger = New(w)
}
