// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

// Package sched runs the pipeline's periodic tasks. Each task declares its
// cadence and runs on its own ticker; a slow run delays only that task.
package sched

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"
)

// ErrFatal marks a task error that must stop the whole scheduler. Any other
// error is logged and the task runs again on its next tick.
var ErrFatal = errors.New("sched: fatal")

// Fatal wraps err so the scheduler stops on it.
func Fatal(err error) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%w: %w", ErrFatal, err)
}

// Task is one periodic job. Every zero means Run is called once and is
// expected to block until ctx is done (event loops such as a serial reader).
type Task struct {
	Name  string
	Every time.Duration
	Run   func(ctx context.Context) error
}

// TaskStats counts runs and failures of one task.
type TaskStats struct {
	Runs     uint64        `json:"runs"`
	Failures uint64        `json:"failures"`
	LastErr  string        `json:"last_error,omitempty"`
	Slowest  time.Duration `json:"slowest"`
}

// Scheduler owns a fixed set of tasks.
type Scheduler struct {
	tasks []Task
	log   zerolog.Logger

	mu    sync.Mutex
	stats map[string]*TaskStats
}

// New creates a scheduler. Task names must be unique.
func New(log zerolog.Logger, tasks ...Task) (*Scheduler, error) {
	s := &Scheduler{
		log:   log.With().Str("component", "sched").Logger(),
		stats: make(map[string]*TaskStats, len(tasks)),
	}
	for _, t := range tasks {
		if t.Run == nil {
			return nil, fmt.Errorf("sched: task %q has no Run", t.Name)
		}
		if t.Every < 0 {
			return nil, fmt.Errorf("sched: task %q has negative interval", t.Name)
		}
		if _, dup := s.stats[t.Name]; dup {
			return nil, fmt.Errorf("sched: duplicate task %q", t.Name)
		}
		s.stats[t.Name] = &TaskStats{}
		s.tasks = append(s.tasks, t)
	}
	return s, nil
}

// Run starts every task and blocks until ctx is done or a task fails
// with ErrFatal. It returns nil on a clean shutdown.
func (s *Scheduler) Run(ctx context.Context) error {
	g, ctx := errgroup.WithContext(ctx)
	for _, t := range s.tasks {
		t := t
		g.Go(func() error {
			s.log.Info().Str("task", t.Name).Dur("every", t.Every).Msg("task started")
			defer s.log.Info().Str("task", t.Name).Msg("task stopped")
			if t.Every == 0 {
				return s.runOnce(ctx, t)
			}
			return s.loop(ctx, t)
		})
	}
	err := g.Wait()
	if errors.Is(err, context.Canceled) {
		return nil
	}
	return err
}

func (s *Scheduler) loop(ctx context.Context, t Task) error {
	ticker := time.NewTicker(t.Every)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			if err := s.runOnce(ctx, t); err != nil {
				return err
			}
		}
	}
}

// runOnce runs t and records the outcome. Only fatal errors are returned.
func (s *Scheduler) runOnce(ctx context.Context, t Task) error {
	start := time.Now()
	err := t.Run(ctx)
	elapsed := time.Since(start)

	s.mu.Lock()
	st := s.stats[t.Name]
	st.Runs++
	if elapsed > st.Slowest {
		st.Slowest = elapsed
	}
	if err != nil && ctx.Err() == nil {
		st.Failures++
		st.LastErr = err.Error()
	}
	s.mu.Unlock()

	switch {
	case err == nil, ctx.Err() != nil:
		return nil
	case errors.Is(err, ErrFatal):
		s.log.Error().Err(err).Str("task", t.Name).Msg("fatal task error")
		return err
	default:
		s.log.Error().Err(err).Str("task", t.Name).Msg("task failed")
		return nil
	}
}

// Stats returns a copy of the per-task counters.
func (s *Scheduler) Stats() map[string]TaskStats {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make(map[string]TaskStats, len(s.stats))
	for name, st := range s.stats {
		out[name] = *st
	}
	return out
}
