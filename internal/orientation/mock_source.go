// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package orientation

import (
	"strings"
	"time"
)

// Step holds one sample for a period of time.
type Step struct {
	Sample Sample
	Hold   time.Duration
}

var (
	neutral   = Sample{Roll: 0, VerticalAccel: 1}
	tiltRight = Sample{Roll: 90, VerticalAccel: 0}
	tiltLeft  = Sample{Roll: -90, VerticalAccel: 0}
	shake     = Sample{Roll: 0, VerticalAccel: 1.6}
)

// Script builds the gestures that key text: left tilt for '.', right tilt
// for '-', a shake after each letter and a second shake after each word.
// Tokens are in the converter's form (".- -...  -.-.").
func Script(tokens string, hold time.Duration) []Step {
	var steps []Step
	add := func(s Sample) {
		steps = append(steps, Step{Sample: s, Hold: hold}, Step{Sample: neutral, Hold: hold})
	}
	for i, word := range strings.Split(tokens, "  ") {
		if i > 0 {
			add(shake)
		}
		for _, tok := range strings.Fields(word) {
			for _, c := range tok {
				switch c {
				case '.':
					add(tiltLeft)
				case '-':
					add(tiltRight)
				}
			}
			add(shake)
		}
	}
	if len(steps) == 0 {
		steps = append(steps, Step{Sample: neutral, Hold: hold})
	}
	return steps
}

type mockSource struct {
	steps []Step
	total time.Duration
	start time.Time
	now   func() time.Time
}

// NewMockSource creates a mock orientation source that replays a gesture
// script in a loop.
func NewMockSource(steps []Step) Source {
	return newMockSource(steps, time.Now)
}

func newMockSource(steps []Step, now func() time.Time) *mockSource {
	m := &mockSource{steps: steps, now: now, start: now()}
	for _, s := range steps {
		m.total += s.Hold
	}
	return m
}

func (m *mockSource) Next() (Sample, error) {
	if m.total <= 0 {
		return neutral, nil
	}
	elapsed := m.now().Sub(m.start) % m.total
	for _, s := range m.steps {
		if elapsed < s.Hold {
			return s.Sample, nil
		}
		elapsed -= s.Hold
	}
	return m.steps[len(m.steps)-1].Sample, nil
}
