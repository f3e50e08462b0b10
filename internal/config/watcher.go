// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package config

import (
	"context"
	"fmt"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/rs/zerolog"
)

const reloadDelay = 100 * time.Millisecond

// Watcher reloads the config file when it changes on disk. A reload that
// fails validation is logged and the previous configuration stays.
type Watcher struct {
	path    string
	changed map[string]bool
	flags   func(*Config)
	log     zerolog.Logger

	mu       sync.Mutex
	debounce *time.Timer
}

// NewWatcher watches path. changed and flags are the command-line layer
// reapplied on every reload.
func NewWatcher(path string, changed map[string]bool, flags func(*Config), log zerolog.Logger) *Watcher {
	return &Watcher{
		path:    path,
		changed: changed,
		flags:   flags,
		log:     log.With().Str("component", "config").Logger(),
	}
}

// Run blocks until ctx is done, calling onChange with every valid reload.
// old is the global configuration the reload replaces, nil if none was
// set. The directory is watched rather than the file so editors that
// replace the file on save are seen.
func (w *Watcher) Run(ctx context.Context, onChange func(old, cfg *Config)) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("config watcher: %w", err)
	}
	defer watcher.Close()

	dir, name := filepath.Split(w.path)
	if dir == "" {
		dir = "."
	}
	if err := watcher.Add(dir); err != nil {
		return fmt.Errorf("config watcher: watch %s: %w", dir, err)
	}
	w.log.Info().Str("path", w.path).Msg("watching config")

	defer func() {
		w.mu.Lock()
		if w.debounce != nil {
			w.debounce.Stop()
		}
		w.mu.Unlock()
	}()

	for {
		select {
		case <-ctx.Done():
			return nil

		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if filepath.Base(event.Name) != name {
				continue
			}
			if event.Op&(fsnotify.Write|fsnotify.Create) == 0 {
				continue
			}
			w.schedule(ctx, onChange)

		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			w.log.Warn().Err(err).Msg("watch error")
		}
	}
}

func (w *Watcher) schedule(ctx context.Context, onChange func(old, cfg *Config)) {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.debounce != nil {
		w.debounce.Stop()
	}
	w.debounce = time.AfterFunc(reloadDelay, func() {
		if ctx.Err() != nil {
			return
		}
		cfg, err := Build(w.path, w.changed, w.flags)
		if err != nil {
			w.log.Warn().Err(err).Msg("reload rejected, keeping previous config")
			return
		}
		old := Get()
		Replace(cfg)
		w.log.Info().Msg("config reloaded")
		onChange(old, cfg)
	})
}
