// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package morse

import (
	"errors"
	"fmt"
	"time"
)

// Timing is the renderer timing table. Both the audio and visual renderers
// derive their on/off pattern from it, so they stay in step.
type Timing struct {
	Dot     time.Duration // mark length for DOT
	Dash    time.Duration // mark length for DASH
	Gap     time.Duration // off time after every mark
	WordGap time.Duration // pause rendered for WORD_GAP

	// LinePause is the short pause for CR/LF in inbound serial text.
	LinePause time.Duration
}

// Named presets. "reference" is the cadence of the device firmware.
var presets = map[string]Timing{
	"reference": {Dot: 100 * time.Millisecond, Dash: 300 * time.Millisecond, Gap: 100 * time.Millisecond, WordGap: 700 * time.Millisecond, LinePause: 50 * time.Millisecond},
	"slow":      {Dot: 200 * time.Millisecond, Dash: 600 * time.Millisecond, Gap: 200 * time.Millisecond, WordGap: 1400 * time.Millisecond, LinePause: 100 * time.Millisecond},
	"fast":      {Dot: 60 * time.Millisecond, Dash: 180 * time.Millisecond, Gap: 60 * time.Millisecond, WordGap: 420 * time.Millisecond, LinePause: 30 * time.Millisecond},
}

// DefaultTiming returns the reference timing table (100/300/100/700 ms).
func DefaultTiming() Timing {
	return presets["reference"]
}

// Preset looks up a named timing table.
func Preset(name string) (Timing, bool) {
	t, ok := presets[name]
	return t, ok
}

// Validate checks that a DASH is distinguishable from a DOT and that the
// word gap is longer than the inter-symbol gap.
func (t Timing) Validate() error {
	if t.Dot <= 0 || t.Dash <= 0 || t.Gap <= 0 || t.WordGap <= 0 {
		return errors.New("timing: all durations must be positive")
	}
	if t.Dash <= t.Dot {
		return fmt.Errorf("timing: dash (%s) must be longer than dot (%s)", t.Dash, t.Dot)
	}
	if t.WordGap <= t.Gap {
		return fmt.Errorf("timing: word gap (%s) must be longer than gap (%s)", t.WordGap, t.Gap)
	}
	if t.LinePause < 0 {
		return errors.New("timing: line pause must not be negative")
	}
	return nil
}

// Pulse is one segment of a rendered pattern: output on or off for D.
type Pulse struct {
	On bool
	D  time.Duration
}

// ErrUnrecognized is returned for content that has no timing entry.
var ErrUnrecognized = errors.New("morse: unrecognized symbol")

// Pulses returns the on/off pattern for one symbol.
//
//	DOT      on Dot,  off Gap
//	DASH     on Dash, off Gap
//	WORD_GAP off WordGap
func (t Timing) Pulses(s Symbol) ([]Pulse, error) {
	switch s {
	case Dot:
		return []Pulse{{On: true, D: t.Dot}, {On: false, D: t.Gap}}, nil
	case Dash:
		return []Pulse{{On: true, D: t.Dash}, {On: false, D: t.Gap}}, nil
	case WordGap:
		return []Pulse{{On: false, D: t.WordGap}}, nil
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnrecognized, s)
	}
}

// Timeline concatenates the pulses of a symbol sequence.
func (t Timing) Timeline(symbols []Symbol) ([]Pulse, error) {
	var out []Pulse
	for _, s := range symbols {
		p, err := t.Pulses(s)
		if err != nil {
			return nil, err
		}
		out = append(out, p...)
	}
	return out, nil
}

// Recognize turns measured pulse durations back into symbols. Marks shorter
// than the DOT/DASH midpoint are DOTs. Off time beyond the trailing
// inter-symbol gap is counted in word gaps, rounded to the nearest whole one.
func (t Timing) Recognize(pulses []Pulse) []Symbol {
	markSplit := (t.Dot + t.Dash) / 2

	var out []Symbol
	afterMark := false
	i := 0
	for i < len(pulses) {
		on := pulses[i].On
		var d time.Duration
		for i < len(pulses) && pulses[i].On == on {
			d += pulses[i].D
			i++
		}

		if on {
			if d < markSplit {
				out = append(out, Dot)
			} else {
				out = append(out, Dash)
			}
			afterMark = true
			continue
		}

		extra := d
		if afterMark {
			extra -= t.Gap
		}
		afterMark = false
		if extra <= 0 {
			continue
		}
		n := int((extra + t.WordGap/2) / t.WordGap)
		for ; n > 0; n-- {
			out = append(out, WordGap)
		}
	}
	return out
}
