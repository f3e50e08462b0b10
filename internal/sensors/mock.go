// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package sensors

import (
	"sync/atomic"

	"github.com/rs/zerolog"
	"periph.io/x/conn/v3/physic"
)

// MockLight logs state changes instead of driving a pin.
type MockLight struct {
	on  atomic.Bool
	log zerolog.Logger
}

func NewMockLight(log zerolog.Logger) *MockLight {
	return &MockLight{log: log.With().Str("component", "mock-led").Logger()}
}

func (m *MockLight) Set(on bool) error {
	if m.on.Swap(on) != on {
		m.log.Debug().Bool("on", on).Msg("led")
	}
	return nil
}

// On reports the current state.
func (m *MockLight) On() bool { return m.on.Load() }

// MockTone logs tones instead of driving a buzzer.
type MockTone struct {
	freq atomic.Int64
	log  zerolog.Logger
}

func NewMockTone(log zerolog.Logger) *MockTone {
	return &MockTone{log: log.With().Str("component", "mock-buzzer").Logger()}
}

func (m *MockTone) Play(f physic.Frequency) error {
	m.freq.Store(int64(f))
	m.log.Debug().Stringer("freq", f).Msg("tone")
	return nil
}

func (m *MockTone) Stop() error {
	m.freq.Store(0)
	return nil
}

// Frequency returns the tone playing, or 0 when silent.
func (m *MockTone) Frequency() physic.Frequency { return physic.Frequency(m.freq.Load()) }
