// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package render

import (
	"context"
	"fmt"
	"io"

	"github.com/rs/zerolog"

	"github.com/relabs-tech/tilt_morse/internal/morse"
	"github.com/relabs-tech/tilt_morse/internal/pipeline"
)

// lineCap is the serial line buffer: one character plus CR LF, with room
// to spare.
const lineCap = 8

// line is a fixed-capacity output buffer with checked appends.
type line struct {
	buf [lineCap]byte
	n   int
}

func (l *line) reset() { l.n = 0 }

func (l *line) append(p ...byte) error {
	if l.n+len(p) > len(l.buf) {
		return fmt.Errorf("%w: %d+%d > %d", ErrLineOverflow, l.n, len(p), len(l.buf))
	}
	l.n += copy(l.buf[l.n:], p)
	return nil
}

func (l *line) bytes() []byte { return l.buf[:l.n] }

// Dispatcher writes each queued symbol to a character stream as one line,
// "<char>\r\n". A WORD_GAP after a DOT or DASH gets an extra blank line,
// and an alarm that interrupts a letter is preceded by two.
type Dispatcher struct {
	queue Queue
	w     io.Writer
	log   zerolog.Logger

	ln   line
	prev morse.Symbol // last symbol written
}

// NewDispatcher creates the serial dispatcher for consumer pipeline.Serial.
func NewDispatcher(q Queue, w io.Writer, log zerolog.Logger) *Dispatcher {
	return &Dispatcher{
		queue: q,
		w:     w,
		log:   log.With().Str("component", "dispatcher").Logger(),
	}
}

// Tick writes everything queued for the serial sink. A write error ends
// the batch and is returned; the remaining symbols are not retried.
func (d *Dispatcher) Tick(ctx context.Context) error {
	b, ok, err := d.queue.DrainFor(pipeline.Serial)
	if err != nil || !ok {
		return err
	}
	n, werr := d.dispatch(ctx, b)
	if err := d.queue.Complete(pipeline.Serial, b, n, werr); err != nil {
		return err
	}
	return werr
}

func (d *Dispatcher) dispatch(ctx context.Context, b pipeline.Batch) (int, error) {
	if b.Override && d.prev.IsMark() {
		for i := 0; i < 2; i++ {
			if err := d.writeLine(' '); err != nil {
				return 0, err
			}
		}
		d.prev = morse.WordGap
	}

	for i, s := range b.Symbols {
		if err := ctx.Err(); err != nil {
			return i, err
		}
		if d.queue.Preempted(b) {
			d.log.Warn().Int("dropped", len(b.Symbols)-i).Msg("batch preempted by alarm")
			return i, nil
		}
		c, ok := s.Char()
		if !ok {
			return i, fmt.Errorf("serial: %w: %s", morse.ErrUnrecognized, s)
		}
		if err := d.writeLine(c); err != nil {
			return i, err
		}
		if s == morse.WordGap && d.prev.IsMark() {
			if err := d.writeLine(' '); err != nil {
				return i, err
			}
		}
		d.prev = s
		d.log.Debug().Stringer("symbol", s).Msg("dispatched")
	}
	return len(b.Symbols), nil
}

func (d *Dispatcher) writeLine(c byte) error {
	d.ln.reset()
	if err := d.ln.append(c, '\r', '\n'); err != nil {
		return err
	}
	if _, err := d.w.Write(d.ln.bytes()); err != nil {
		return fmt.Errorf("serial write: %w", err)
	}
	return nil
}
