// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package main

import (
	"time"

	pflag "github.com/spf13/pflag"

	"github.com/relabs-tech/tilt_morse/internal/config"
)

// configFlags registers one flag per configuration key and remembers how
// to copy each value into a Config. Only flags set on the command line are
// copied, so they win over file and environment.
type configFlags struct {
	fs     *pflag.FlagSet
	preset *string
	apply  map[string]func(*config.Config)
}

func newConfigFlags(fs *pflag.FlagSet) *configFlags {
	d := config.DefaultConfig()
	f := &configFlags{fs: fs, apply: make(map[string]func(*config.Config))}

	f.floatVar("dash-low", d.DashLow, "lower edge of the tilt band, degrees", func(c *config.Config, v float64) { c.DashLow = v })
	f.floatVar("dash-high", d.DashHigh, "upper edge of the tilt band, degrees", func(c *config.Config, v float64) { c.DashHigh = v })
	f.floatVar("release-margin", d.ReleaseMargin, "hysteresis margin around the tilt band, degrees", func(c *config.Config, v float64) { c.ReleaseMargin = v })
	f.floatVar("shake-g", d.ShakeG, "vertical acceleration that starts a shake, g", func(c *config.Config, v float64) { c.ShakeG = v })
	f.floatVar("shake-release-g", d.ShakeReleaseG, "vertical acceleration that ends a shake, g", func(c *config.Config, v float64) { c.ShakeReleaseG = v })

	f.preset = fs.String("preset", d.TimingPreset, "timing preset: reference, slow or fast")
	f.durationVar("dot", d.Dot, "dot tone length", func(c *config.Config, v time.Duration) { c.Dot = v })
	f.durationVar("dash", d.Dash, "dash tone length", func(c *config.Config, v time.Duration) { c.Dash = v })
	f.durationVar("gap", d.Gap, "silence after each mark", func(c *config.Config, v time.Duration) { c.Gap = v })
	f.durationVar("word-gap", d.WordGap, "silence for a letter gap", func(c *config.Config, v time.Duration) { c.WordGap = v })
	f.durationVar("line-pause", d.LinePause, "pause for CR/LF in inbound text", func(c *config.Config, v time.Duration) { c.LinePause = v })

	f.durationVar("classifier-interval", d.ClassifierInterval, "orientation polling period", func(c *config.Config, v time.Duration) { c.ClassifierInterval = v })
	f.durationVar("dispatcher-interval", d.DispatcherInterval, "serial dispatch period", func(c *config.Config, v time.Duration) { c.DispatcherInterval = v })
	f.durationVar("audio-interval", d.AudioInterval, "audio renderer period", func(c *config.Config, v time.Duration) { c.AudioInterval = v })
	f.durationVar("visual-interval", d.VisualInterval, "LED renderer period", func(c *config.Config, v time.Duration) { c.VisualInterval = v })

	f.intVar("capacity", d.QueueCapacity, "symbol queue capacity per consumer", func(c *config.Config, v int) { c.QueueCapacity = v })
	f.intVar("frequency", d.ToneFrequencyHz, "symbol tone frequency, Hz", func(c *config.Config, v int) { c.ToneFrequencyHz = v })
	f.boolVar("melody", d.Melody, "play the alarm melody before SOS", func(c *config.Config, v bool) { c.Melody = v })

	f.stringVar("serial-port", d.SerialPort, "serial character sink", func(c *config.Config, v string) { c.SerialPort = v })
	f.intVar("baud", d.SerialBaud, "serial baud rate", func(c *config.Config, v int) { c.SerialBaud = v })
	f.boolVar("inbound", d.SerialInbound, "play Morse text received on the serial port", func(c *config.Config, v bool) { c.SerialInbound = v })

	f.boolVar("mock", d.Mock, "run with scripted gestures and logging sinks", func(c *config.Config, v bool) { c.Mock = v })
	f.stringVar("imu-spi", d.IMUSPIDevice, "MPU9250 SPI device", func(c *config.Config, v string) { c.IMUSPIDevice = v })
	f.stringVar("imu-cs", d.IMUCSPin, "MPU9250 chip select pin", func(c *config.Config, v string) { c.IMUCSPin = v })
	f.stringVar("led-pin", d.LEDPin, "LED pin", func(c *config.Config, v string) { c.LEDPin = v })
	f.stringVar("buzzer-pin", d.BuzzerPin, "buzzer PWM pin", func(c *config.Config, v string) { c.BuzzerPin = v })
	f.stringVar("button-pin", d.ButtonPin, "SOS button pin", func(c *config.Config, v string) { c.ButtonPin = v })

	f.stringVar("mqtt-broker", d.MQTTBroker, "MQTT broker for the event mirror, e.g. tcp://localhost:1883", func(c *config.Config, v string) { c.MQTTBroker = v })
	f.stringVar("mqtt-client-id", d.MQTTClientID, "MQTT client id", func(c *config.Config, v string) { c.MQTTClientID = v })
	f.stringVar("mqtt-prefix", d.MQTTTopicPrefix, "MQTT topic prefix", func(c *config.Config, v string) { c.MQTTTopicPrefix = v })

	f.stringVar("web-addr", d.WebAddr, "status server address, empty to disable", func(c *config.Config, v string) { c.WebAddr = v })
	f.boolVar("display", d.DisplayEnabled, "show the transcript on an SSD1306 OLED", func(c *config.Config, v bool) { c.DisplayEnabled = v })
	f.stringVar("i2c-bus", d.DisplayI2CBus, "I2C bus of the OLED", func(c *config.Config, v string) { c.DisplayI2CBus = v })

	f.stringVar("log-level", d.LogLevel, "trace, debug, info, warn or error", func(c *config.Config, v string) { c.LogLevel = v })

	return f
}

// changedFlags returns the names of the flags set on the command line.
func changedFlags(fs *pflag.FlagSet) map[string]bool {
	changed := map[string]bool{}
	fs.Visit(func(fl *pflag.Flag) { changed[fl.Name] = true })
	return changed
}

// applier returns the flag layer for config.Build. The preset goes first
// so explicit durations override it.
func (f *configFlags) applier(changed map[string]bool) func(*config.Config) {
	return func(c *config.Config) {
		if changed["preset"] {
			_ = c.ApplyPreset(*f.preset) // checked before Build
		}
		for name := range changed {
			if set, ok := f.apply[name]; ok {
				set(c)
			}
		}
	}
}

func (f *configFlags) floatVar(name string, def float64, usage string, set func(*config.Config, float64)) {
	v := f.fs.Float64(name, def, usage)
	f.apply[name] = func(c *config.Config) { set(c, *v) }
}

func (f *configFlags) intVar(name string, def int, usage string, set func(*config.Config, int)) {
	v := f.fs.Int(name, def, usage)
	f.apply[name] = func(c *config.Config) { set(c, *v) }
}

func (f *configFlags) boolVar(name string, def bool, usage string, set func(*config.Config, bool)) {
	v := f.fs.Bool(name, def, usage)
	f.apply[name] = func(c *config.Config) { set(c, *v) }
}

func (f *configFlags) stringVar(name, def, usage string, set func(*config.Config, string)) {
	v := f.fs.String(name, def, usage)
	f.apply[name] = func(c *config.Config) { set(c, *v) }
}

func (f *configFlags) durationVar(name string, def time.Duration, usage string, set func(*config.Config, time.Duration)) {
	v := f.fs.Duration(name, def, usage)
	f.apply[name] = func(c *config.Config) { set(c, *v) }
}
