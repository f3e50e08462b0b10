// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

// Package render turns queued symbols into output: characters on a serial
// stream, tone bursts on a buzzer and pulses on an indicator light. Each
// renderer drains its own copy of the queue through the pipeline
// coordinator and is driven by a scheduler Tick.
package render

import (
	"context"
	"errors"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog"
	"periph.io/x/conn/v3/physic"

	"github.com/relabs-tech/tilt_morse/internal/morse"
	"github.com/relabs-tech/tilt_morse/internal/pipeline"
)

var (
	ErrBusy         = errors.New("render: rendering in progress")
	ErrLineOverflow = errors.New("render: line exceeds buffer")
)

// Tone is a buzzer-like output. Stop must leave the output silent.
type Tone interface {
	Play(f physic.Frequency) error
	Stop() error
}

// Light is a binary indicator output.
type Light interface {
	Set(on bool) error
}

// Queue is the part of the pipeline coordinator renderers use.
type Queue interface {
	DrainFor(id pipeline.ConsumerID) (pipeline.Batch, bool, error)
	Preempted(b pipeline.Batch) bool
	Complete(id pipeline.ConsumerID, b pipeline.Batch, rendered int, err error) error
	OverrideActive() bool
}

// SleepFunc waits for d or until ctx is done.
type SleepFunc func(ctx context.Context, d time.Duration) error

// Sleep is the wall-clock SleepFunc.
func Sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

// timingTable holds the active timing table. It is swapped on config
// reload while renderers keep running.
type timingTable struct {
	p atomic.Pointer[morse.Timing]
}

// SetTiming replaces the timing table used from the next symbol on.
func (t *timingTable) SetTiming(tm morse.Timing) {
	t.p.Store(&tm)
}

// Timing returns the active timing table.
func (t *timingTable) Timing() morse.Timing {
	if p := t.p.Load(); p != nil {
		return *p
	}
	return morse.DefaultTiming()
}

// pulser renders one symbol batch as on/off pulses. Audio and visual share
// it so both follow the same table.
type pulser struct {
	timingTable
	id    pipeline.ConsumerID
	queue Queue
	sleep SleepFunc
	busy  atomic.Bool
	log   zerolog.Logger
}

func (p *pulser) init(id pipeline.ConsumerID, q Queue, tm morse.Timing, sleep SleepFunc, log zerolog.Logger) {
	if sleep == nil {
		sleep = Sleep
	}
	if tm == (morse.Timing{}) {
		tm = morse.DefaultTiming()
	}
	p.id, p.queue, p.sleep, p.log = id, q, sleep, log
	p.SetTiming(tm)
}

// Busy reports whether a render cycle is in progress.
func (p *pulser) Busy() bool {
	return p.busy.Load()
}

// render plays b through set. It stops before a symbol if an override
// started after b was drained, and aborts on a symbol with no timing.
// Returns the number of symbols fully rendered.
func (p *pulser) render(ctx context.Context, b pipeline.Batch, set func(on bool) error) (int, error) {
	for i, s := range b.Symbols {
		if p.queue.Preempted(b) {
			p.log.Warn().Int("dropped", len(b.Symbols)-i).Msg("batch preempted by alarm")
			return i, nil
		}
		pulses, err := p.Timing().Pulses(s)
		if err != nil {
			p.log.Error().Err(err).Int("index", i).Msg("aborting batch")
			return i, err
		}
		if err := p.play(ctx, pulses, set); err != nil {
			return i, err
		}
		p.log.Debug().Stringer("symbol", s).Msg("rendered")
	}
	return len(b.Symbols), nil
}

func (p *pulser) play(ctx context.Context, pulses []morse.Pulse, set func(on bool) error) error {
	for _, pl := range pulses {
		if err := set(pl.On); err != nil {
			return err
		}
		if err := p.sleep(ctx, pl.D); err != nil {
			if pl.On {
				_ = set(false)
			}
			return err
		}
	}
	return nil
}

// cycle drains one batch and reports it back to the coordinator. A tick
// that finds the renderer busy is skipped.
func (p *pulser) cycle(ctx context.Context, run func(pipeline.Batch) (int, error)) error {
	if !p.busy.CompareAndSwap(false, true) {
		p.log.Debug().Msg("busy, skipping tick")
		return nil
	}
	defer p.busy.Store(false)

	b, ok, err := p.queue.DrainFor(p.id)
	if err != nil || !ok {
		return err
	}
	n, rerr := run(b)
	if err := p.queue.Complete(p.id, b, n, rerr); err != nil {
		return err
	}
	if rerr != nil && !errors.Is(rerr, context.Canceled) {
		return rerr
	}
	return nil
}
