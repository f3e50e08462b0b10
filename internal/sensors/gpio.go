// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package sensors

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"periph.io/x/conn/v3/gpio"
	"periph.io/x/conn/v3/gpio/gpioreg"
	"periph.io/x/conn/v3/physic"
	"periph.io/x/host/v3"
)

var (
	hostOnce sync.Once
	hostErr  error
)

// initHost loads the periph drivers once per process.
func initHost() error {
	hostOnce.Do(func() {
		if _, err := host.Init(); err != nil {
			hostErr = fmt.Errorf("periph host init: %w", err)
		}
	})
	return hostErr
}

func pinByName(role, name string) (gpio.PinIO, error) {
	if err := initHost(); err != nil {
		return nil, fmt.Errorf("%s: %w", role, err)
	}
	p := gpioreg.ByName(name)
	if p == nil {
		return nil, fmt.Errorf("%s: pin %q not found", role, name)
	}
	return p, nil
}

// LED drives an indicator light on a GPIO pin.
type LED struct {
	pin gpio.PinOut
}

// OpenLED claims pin name for the light and turns it off.
func OpenLED(name string) (*LED, error) {
	p, err := pinByName("led", name)
	if err != nil {
		return nil, err
	}
	return NewLED(p)
}

// NewLED wraps an already resolved pin.
func NewLED(p gpio.PinOut) (*LED, error) {
	if err := p.Out(gpio.Low); err != nil {
		return nil, fmt.Errorf("led: %s: %w", p, err)
	}
	return &LED{pin: p}, nil
}

// Set turns the light on or off.
func (l *LED) Set(on bool) error {
	return l.pin.Out(gpio.Level(on))
}

// Buzzer drives a piezo buzzer with a half duty cycle PWM signal.
type Buzzer struct {
	pin gpio.PinOut
}

// OpenBuzzer claims pin name for the buzzer and silences it.
func OpenBuzzer(name string) (*Buzzer, error) {
	p, err := pinByName("buzzer", name)
	if err != nil {
		return nil, err
	}
	return NewBuzzer(p)
}

// NewBuzzer wraps an already resolved pin.
func NewBuzzer(p gpio.PinOut) (*Buzzer, error) {
	b := &Buzzer{pin: p}
	if err := b.Stop(); err != nil {
		return nil, fmt.Errorf("buzzer: %s: %w", p, err)
	}
	return b, nil
}

// Play sounds f until Stop.
func (b *Buzzer) Play(f physic.Frequency) error {
	if f <= 0 {
		return b.Stop()
	}
	return b.pin.PWM(gpio.DutyHalf, f)
}

// Stop silences the buzzer.
func (b *Buzzer) Stop() error {
	return b.pin.Out(gpio.Low)
}

// Button is an active-low push button with an internal pull-up.
type Button struct {
	pin      gpio.PinIn
	debounce time.Duration
	log      zerolog.Logger
}

// OpenButton claims pin name as a falling-edge input.
func OpenButton(name string, log zerolog.Logger) (*Button, error) {
	p, err := pinByName("button", name)
	if err != nil {
		return nil, err
	}
	return NewButton(p, log)
}

// NewButton wraps an already resolved pin.
func NewButton(p gpio.PinIn, log zerolog.Logger) (*Button, error) {
	if err := p.In(gpio.PullUp, gpio.FallingEdge); err != nil {
		return nil, fmt.Errorf("button: %s: %w", p, err)
	}
	return &Button{
		pin:      p,
		debounce: 200 * time.Millisecond,
		log:      log.With().Str("component", "button").Str("pin", p.Name()).Logger(),
	}, nil
}

// Watch calls onPress once per press until ctx is done. Edges that
// arrive within the debounce window of the last press are ignored.
func (b *Button) Watch(ctx context.Context, onPress func()) error {
	var last time.Time
	for ctx.Err() == nil {
		if !b.pin.WaitForEdge(100 * time.Millisecond) {
			continue
		}
		if b.pin.Read() != gpio.Low {
			continue
		}
		now := time.Now()
		if !last.IsZero() && now.Sub(last) < b.debounce {
			continue
		}
		last = now
		b.log.Info().Msg("pressed")
		onPress()
	}
	return nil
}
