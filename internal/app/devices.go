// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package app

import (
	"context"
	"errors"
	"io"
	"time"

	"github.com/rs/zerolog"

	"github.com/relabs-tech/tilt_morse/internal/config"
	"github.com/relabs-tech/tilt_morse/internal/morse"
	"github.com/relabs-tech/tilt_morse/internal/orientation"
	"github.com/relabs-tech/tilt_morse/internal/render"
	"github.com/relabs-tech/tilt_morse/internal/sensors"
)

// MockText is keyed in a loop by the mock gesture source.
const MockText = "SOS TILT"

// mockHold is how long each scripted gesture is held.
const mockHold = 400 * time.Millisecond

// Trigger delivers alarm requests, e.g. a push button.
type Trigger interface {
	Watch(ctx context.Context, onPress func()) error
}

// Devices are the collaborators the beacon drives.
type Devices struct {
	Source  orientation.Source
	Light   render.Light
	Tone    render.Tone
	Serial  io.Writer
	Inbound io.Reader // nil disables inbound playback
	Trigger Trigger   // nil without a button
	Screen  Screen    // nil without a display

	closers []io.Closer
}

// Close releases every opened device, last opened first.
func (d *Devices) Close() error {
	var errs []error
	for i := len(d.closers) - 1; i >= 0; i-- {
		if err := d.closers[i].Close(); err != nil {
			errs = append(errs, err)
		}
	}
	d.closers = nil
	return errors.Join(errs...)
}

// OpenDevices opens the hardware named by cfg. In mock mode the gesture
// source is scripted, LED and buzzer only log and the serial sink is out.
// Any failure is fatal and closes what was already opened.
func OpenDevices(cfg *config.Config, out io.Writer, log zerolog.Logger) (_ *Devices, err error) {
	d := &Devices{}
	defer func() {
		if err != nil {
			d.Close()
		}
	}()

	if cfg.Mock {
		log.Info().Str("text", MockText).Msg("using mock devices")
		d.Source = orientation.NewMockSource(orientation.Script(morse.EncodeText(MockText), mockHold))
		d.Light = sensors.NewMockLight(log)
		d.Tone = sensors.NewMockTone(log)
		d.Serial = out
		return d, nil
	}

	if d.Source, err = sensors.NewIMUSource(cfg.IMUSPIDevice, cfg.IMUCSPin, log); err != nil {
		return nil, err
	}
	if d.Light, err = sensors.OpenLED(cfg.LEDPin); err != nil {
		return nil, err
	}
	if d.Tone, err = sensors.OpenBuzzer(cfg.BuzzerPin); err != nil {
		return nil, err
	}
	if d.Trigger, err = sensors.OpenButton(cfg.ButtonPin, log); err != nil {
		return nil, err
	}

	port, err := sensors.OpenSerial(cfg.SerialPort, cfg.SerialBaud)
	if err != nil {
		return nil, err
	}
	d.closers = append(d.closers, port)
	d.Serial = port
	if cfg.SerialInbound {
		d.Inbound = port
	}

	if cfg.DisplayEnabled {
		screen, bus, err := sensors.OpenDisplay(cfg.DisplayI2CBus)
		if err != nil {
			return nil, err
		}
		d.closers = append(d.closers, bus)
		d.Screen = screen
	}

	log.Info().
		Str("imu", cfg.IMUSPIDevice).
		Str("serial", cfg.SerialPort).
		Int("baud", cfg.SerialBaud).
		Bool("display", cfg.DisplayEnabled).
		Msg("devices ready")
	return d, nil
}
