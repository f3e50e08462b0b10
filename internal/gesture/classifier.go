// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

// Package gesture turns orientation samples into Morse symbols.
//
// Tilting right past the DASH band gives DASH, the mirrored left band gives
// DOT and a vertical shake gives WORD_GAP. Every band has a wider release
// band so a hand resting near an edge does not flicker between symbols.
package gesture

import (
	"fmt"
	"math"
	"sync/atomic"

	"github.com/relabs-tech/tilt_morse/internal/morse"
	"github.com/relabs-tech/tilt_morse/internal/orientation"
)

// Bands configures the classifier. Angles are roll in degrees, shake
// thresholds are vertical acceleration magnitude in g.
type Bands struct {
	DashLow  float64
	DashHigh float64

	// ReleaseMargin widens the tilt bands on both sides for release.
	ReleaseMargin float64

	ShakeG        float64 // enter WORD_GAP above this
	ShakeReleaseG float64 // leave WORD_GAP below this
}

// DefaultBands mirror the reference firmware (±[60°,120°], 1.25 g) with a
// 10° / 0.1 g release band added.
func DefaultBands() Bands {
	return Bands{
		DashLow:       60,
		DashHigh:      120,
		ReleaseMargin: 10,
		ShakeG:        1.25,
		ShakeReleaseG: 1.15,
	}
}

// Validate checks band ordering.
func (b Bands) Validate() error {
	if !(b.DashLow < b.DashHigh) {
		return fmt.Errorf("gesture: dash_low (%.1f) must be below dash_high (%.1f)", b.DashLow, b.DashHigh)
	}
	if b.DashLow <= 0 || b.DashHigh > 180 {
		return fmt.Errorf("gesture: dash band [%.1f, %.1f] must lie within (0, 180]", b.DashLow, b.DashHigh)
	}
	if b.ReleaseMargin < 0 || b.ReleaseMargin >= b.DashLow {
		return fmt.Errorf("gesture: release margin %.1f must be in [0, dash_low)", b.ReleaseMargin)
	}
	if b.ShakeG <= 0 {
		return fmt.Errorf("gesture: shake threshold must be positive, got %.2f", b.ShakeG)
	}
	if b.ShakeReleaseG <= 0 || b.ShakeReleaseG > b.ShakeG {
		return fmt.Errorf("gesture: shake release %.2f must be in (0, %.2f]", b.ShakeReleaseG, b.ShakeG)
	}
	return nil
}

// Classifier maps samples to symbols with hysteresis. Classify must be
// called from a single goroutine; SetBands may be called from any.
type Classifier struct {
	bands   atomic.Pointer[Bands]
	current morse.Symbol
}

// NewClassifier returns a classifier in the neutral state.
func NewClassifier(b Bands) *Classifier {
	c := &Classifier{}
	c.bands.Store(&b)
	return c
}

// SetBands swaps the band configuration. The latched symbol is kept and
// re-evaluated against the new bands on the next sample.
func (c *Classifier) SetBands(b Bands) {
	c.bands.Store(&b)
}

// Bands returns the active configuration.
func (c *Classifier) Bands() Bands {
	return *c.bands.Load()
}

// Current returns the latched symbol.
func (c *Classifier) Current() morse.Symbol {
	return c.current
}

// Classify returns the symbol for s. A latched symbol is held until the
// sample leaves its release band.
func (c *Classifier) Classify(s orientation.Sample) morse.Symbol {
	b := c.bands.Load()

	if c.holds(b, s) {
		// a tilt entry still wins over a held shake
		if c.current == morse.WordGap {
			if t := enterTilt(b, s.Roll); t != morse.None {
				c.current = t
			}
		}
		return c.current
	}

	c.current = enter(b, s)
	return c.current
}

// holds reports whether the latched symbol is still inside its release band.
func (c *Classifier) holds(b *Bands, s orientation.Sample) bool {
	lo, hi := b.DashLow-b.ReleaseMargin, b.DashHigh+b.ReleaseMargin
	switch c.current {
	case morse.Dash:
		return s.Roll >= lo && s.Roll <= hi
	case morse.Dot:
		return s.Roll >= -hi && s.Roll <= -lo
	case morse.WordGap:
		return math.Abs(s.VerticalAccel) >= b.ShakeReleaseG
	default:
		return false
	}
}

func enter(b *Bands, s orientation.Sample) morse.Symbol {
	if t := enterTilt(b, s.Roll); t != morse.None {
		return t
	}
	if math.Abs(s.VerticalAccel) > b.ShakeG {
		return morse.WordGap
	}
	return morse.None
}

func enterTilt(b *Bands, roll float64) morse.Symbol {
	switch {
	case roll > b.DashLow && roll < b.DashHigh:
		return morse.Dash
	case roll < -b.DashLow && roll > -b.DashHigh:
		return morse.Dot
	default:
		return morse.None
	}
}
