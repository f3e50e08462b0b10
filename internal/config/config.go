// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package config

import (
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/relabs-tech/tilt_morse/internal/gesture"
	"github.com/relabs-tech/tilt_morse/internal/morse"
	"github.com/relabs-tech/tilt_morse/internal/pipeline"
)

// ErrInvalid is wrapped by every validation failure.
var ErrInvalid = errors.New("config: invalid")

// Config holds all application configuration values.
type Config struct {
	// Classifier bands
	DashLow       float64 // degrees
	DashHigh      float64 // degrees
	ReleaseMargin float64 // degrees
	ShakeG        float64
	ShakeReleaseG float64

	// Timing table
	TimingPreset string
	Dot          time.Duration
	Dash         time.Duration
	Gap          time.Duration
	WordGap      time.Duration
	LinePause    time.Duration

	// Cadences
	ClassifierInterval time.Duration
	DispatcherInterval time.Duration
	AudioInterval      time.Duration
	VisualInterval     time.Duration

	QueueCapacity int

	// Audio
	ToneFrequencyHz int
	Melody          bool

	// Serial sink
	SerialPort    string
	SerialBaud    int
	SerialInbound bool // play Morse text received on the port

	// Hardware. Mock replaces every device with a software stand-in.
	Mock         bool
	IMUSPIDevice string
	IMUCSPin     string
	LEDPin       string
	BuzzerPin    string
	ButtonPin    string

	// MQTT event mirror; empty broker disables it
	MQTTBroker      string
	MQTTClientID    string
	MQTTTopicPrefix string

	// Status web server; empty address disables it
	WebAddr string

	// Transcript display, SSD1306 at 0x3C
	DisplayEnabled bool
	DisplayI2CBus  string

	LogLevel string
}

// DefaultConfig returns the reference device configuration.
func DefaultConfig() *Config {
	tm := morse.DefaultTiming()
	b := gesture.DefaultBands()
	return &Config{
		DashLow:       b.DashLow,
		DashHigh:      b.DashHigh,
		ReleaseMargin: b.ReleaseMargin,
		ShakeG:        b.ShakeG,
		ShakeReleaseG: b.ShakeReleaseG,

		TimingPreset: "reference",
		Dot:          tm.Dot,
		Dash:         tm.Dash,
		Gap:          tm.Gap,
		WordGap:      tm.WordGap,
		LinePause:    tm.LinePause,

		ClassifierInterval: 50 * time.Millisecond,
		DispatcherInterval: 500 * time.Millisecond,
		AudioInterval:      100 * time.Millisecond,
		VisualInterval:     200 * time.Millisecond,

		QueueCapacity: pipeline.DefaultCapacity,

		ToneFrequencyHz: 1000,
		Melody:          true,

		SerialPort:    "/dev/ttyUSB0",
		SerialBaud:    9600,
		SerialInbound: true,

		IMUSPIDevice: "/dev/spidev0.0",
		IMUCSPin:     "GPIO8",
		LEDPin:       "GPIO17",
		BuzzerPin:    "GPIO18",
		ButtonPin:    "GPIO27",

		MQTTClientID:    "tilt-morse",
		MQTTTopicPrefix: "tiltmorse",

		WebAddr: ":8080",

		LogLevel: "info",
	}
}

// Bands returns the classifier configuration.
func (c *Config) Bands() gesture.Bands {
	return gesture.Bands{
		DashLow:       c.DashLow,
		DashHigh:      c.DashHigh,
		ReleaseMargin: c.ReleaseMargin,
		ShakeG:        c.ShakeG,
		ShakeReleaseG: c.ShakeReleaseG,
	}
}

// Timing returns the renderer timing table.
func (c *Config) Timing() morse.Timing {
	return morse.Timing{
		Dot:       c.Dot,
		Dash:      c.Dash,
		Gap:       c.Gap,
		WordGap:   c.WordGap,
		LinePause: c.LinePause,
	}
}

// ApplyPreset copies the named timing table (reference, slow, fast) into c.
func (c *Config) ApplyPreset(name string) error {
	tm, ok := morse.Preset(name)
	if !ok {
		return fmt.Errorf("%w: unknown timing preset %q", ErrInvalid, name)
	}
	c.TimingPreset = name
	c.Dot, c.Dash, c.Gap, c.WordGap, c.LinePause = tm.Dot, tm.Dash, tm.Gap, tm.WordGap, tm.LinePause
	return nil
}

// Validate checks the combined configuration.
func (c *Config) Validate() error {
	if err := c.Bands().Validate(); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalid, err)
	}
	if err := c.Timing().Validate(); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalid, err)
	}
	for name, d := range map[string]time.Duration{
		"classifier": c.ClassifierInterval,
		"dispatcher": c.DispatcherInterval,
		"audio":      c.AudioInterval,
		"visual":     c.VisualInterval,
	} {
		if d <= 0 {
			return fmt.Errorf("%w: %s cadence must be positive", ErrInvalid, name)
		}
	}
	if c.QueueCapacity < morse.AlarmLen {
		return fmt.Errorf("%w: queue capacity %d below alarm length %d", ErrInvalid, c.QueueCapacity, morse.AlarmLen)
	}
	if c.ToneFrequencyHz <= 0 {
		return fmt.Errorf("%w: tone frequency must be positive", ErrInvalid)
	}
	if !c.Mock {
		if c.SerialPort == "" {
			return fmt.Errorf("%w: serial port is required", ErrInvalid)
		}
		if c.SerialBaud <= 0 {
			return fmt.Errorf("%w: serial baud is required", ErrInvalid)
		}
		if c.IMUSPIDevice == "" {
			return fmt.Errorf("%w: IMU SPI device is required", ErrInvalid)
		}
		if c.LEDPin == "" || c.BuzzerPin == "" || c.ButtonPin == "" {
			return fmt.Errorf("%w: LED, buzzer and button pins are required", ErrInvalid)
		}
	}
	return nil
}

// Build layers configuration sources. Defaults come first, then the TOML
// file at path (if any), then TILTMORSE_* environment variables, then
// flags. Keys in changed were set on the command line and are skipped by
// the file and environment layers; flags applies their values.
func Build(path string, changed map[string]bool, flags func(*Config)) (*Config, error) {
	cfg := DefaultConfig()
	if path != "" {
		fc, err := LoadFile(path)
		if err != nil {
			return nil, fmt.Errorf("config file %s: %w", path, err)
		}
		if err := ApplyFile(cfg, fc, changed); err != nil {
			return nil, fmt.Errorf("config file %s: %w", path, err)
		}
	}
	if err := ApplyEnv(cfg, changed); err != nil {
		return nil, fmt.Errorf("config env: %w", err)
	}
	if flags != nil {
		flags(cfg)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Load reads the configuration file and returns a validated Config.
func Load(path string) (*Config, error) {
	return Build(path, nil, nil)
}

var (
	globalConfig *Config
	configOnce   sync.Once
	configMu     sync.RWMutex
)

// InitGlobal initializes the global configuration from file. Only the
// first call has any effect.
func InitGlobal(path string) error {
	var err error
	configOnce.Do(func() {
		var cfg *Config
		cfg, err = Load(path)
		if err == nil {
			Replace(cfg)
		}
	})
	return err
}

// Replace swaps the global configuration, e.g. after a reload.
func Replace(cfg *Config) {
	configMu.Lock()
	defer configMu.Unlock()
	globalConfig = cfg
}

// Get returns the global configuration, or nil before InitGlobal/Replace.
func Get() *Config {
	configMu.RLock()
	defer configMu.RUnlock()
	return globalConfig
}
