// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package config

import (
	"os"
	"path/filepath"
	"time"

	toml "github.com/pelletier/go-toml/v2"
)

// FileConfig mirrors Config as TOML sections. Durations are strings
// ("100ms"); optional booleans are pointers so false can be told apart
// from unset.
type FileConfig struct {
	Classifier struct {
		DashLow       float64  `toml:"dash_low"`
		DashHigh      float64  `toml:"dash_high"`
		ReleaseMargin *float64 `toml:"release_margin"`
		ShakeG        float64  `toml:"shake_g"`
		ShakeReleaseG float64  `toml:"shake_release_g"`
	} `toml:"classifier"`

	Timing struct {
		Preset    string `toml:"preset"`
		Dot       string `toml:"dot"`
		Dash      string `toml:"dash"`
		Gap       string `toml:"gap"`
		WordGap   string `toml:"word_gap"`
		LinePause string `toml:"line_pause"`
	} `toml:"timing"`

	Cadence struct {
		Classifier string `toml:"classifier"`
		Dispatcher string `toml:"dispatcher"`
		Audio      string `toml:"audio"`
		Visual     string `toml:"visual"`
	} `toml:"cadence"`

	Queue struct {
		Capacity int `toml:"capacity"`
	} `toml:"queue"`

	Audio struct {
		FrequencyHz   int   `toml:"frequency_hz"`
		MelodyEnabled *bool `toml:"melody_enabled"`
	} `toml:"audio"`

	Serial struct {
		Port    string `toml:"port"`
		Baud    int    `toml:"baud"`
		Inbound *bool  `toml:"inbound"`
	} `toml:"serial"`

	Hardware struct {
		Mock         *bool  `toml:"mock"`
		IMUSPIDevice string `toml:"imu_spi_device"`
		IMUCSPin     string `toml:"imu_cs_pin"`
		LEDPin       string `toml:"led_pin"`
		BuzzerPin    string `toml:"buzzer_pin"`
		ButtonPin    string `toml:"button_pin"`
	} `toml:"hardware"`

	MQTT struct {
		Broker      string `toml:"broker"`
		ClientID    string `toml:"client_id"`
		TopicPrefix string `toml:"topic_prefix"`
	} `toml:"mqtt"`

	Web struct {
		Addr string `toml:"addr"`
	} `toml:"web"`

	Display struct {
		Enabled *bool  `toml:"enabled"`
		I2CBus  string `toml:"i2c_bus"`
	} `toml:"display"`

	Log struct {
		Level string `toml:"level"`
	} `toml:"log"`
}

// LoadFile reads and parses a TOML config file.
func LoadFile(path string) (FileConfig, error) {
	var fc FileConfig
	b, err := os.ReadFile(path)
	if err != nil {
		return fc, err
	}
	if err := toml.Unmarshal(b, &fc); err != nil {
		return fc, err
	}
	return fc, nil
}

// DefaultPath returns ~/.tilt_morse/config.toml, or "" without a home dir.
func DefaultPath() string {
	if h, err := os.UserHomeDir(); err == nil {
		return filepath.Join(h, ".tilt_morse", "config.toml")
	}
	return ""
}

// FileExists checks if a file exists at the given path.
func FileExists(p string) bool {
	_, err := os.Stat(p)
	return err == nil
}

// ApplyFile applies fc onto cfg, skipping keys set by flags.
func ApplyFile(cfg *Config, fc FileConfig, changed map[string]bool) error {
	s := newConfigSetter(changed)

	s.setFloat("dash-low", fc.Classifier.DashLow, &cfg.DashLow)
	s.setFloat("dash-high", fc.Classifier.DashHigh, &cfg.DashHigh)
	if fc.Classifier.ReleaseMargin != nil && !changed["release-margin"] {
		cfg.ReleaseMargin = *fc.Classifier.ReleaseMargin
	}
	s.setFloat("shake-g", fc.Classifier.ShakeG, &cfg.ShakeG)
	s.setFloat("shake-release-g", fc.Classifier.ShakeReleaseG, &cfg.ShakeReleaseG)

	if fc.Timing.Preset != "" && !changed["preset"] {
		if err := cfg.ApplyPreset(fc.Timing.Preset); err != nil {
			return err
		}
	}
	for _, d := range []struct {
		flag, value string
		dst         *time.Duration
	}{
		{"dot", fc.Timing.Dot, &cfg.Dot},
		{"dash", fc.Timing.Dash, &cfg.Dash},
		{"gap", fc.Timing.Gap, &cfg.Gap},
		{"word-gap", fc.Timing.WordGap, &cfg.WordGap},
		{"line-pause", fc.Timing.LinePause, &cfg.LinePause},
		{"classifier-interval", fc.Cadence.Classifier, &cfg.ClassifierInterval},
		{"dispatcher-interval", fc.Cadence.Dispatcher, &cfg.DispatcherInterval},
		{"audio-interval", fc.Cadence.Audio, &cfg.AudioInterval},
		{"visual-interval", fc.Cadence.Visual, &cfg.VisualInterval},
	} {
		if err := s.setDuration(d.flag, d.value, d.dst); err != nil {
			return err
		}
	}

	s.setInt("capacity", fc.Queue.Capacity, &cfg.QueueCapacity)
	s.setInt("frequency", fc.Audio.FrequencyHz, &cfg.ToneFrequencyHz)
	s.setBool("melody", fc.Audio.MelodyEnabled, &cfg.Melody)

	s.setString("serial-port", fc.Serial.Port, &cfg.SerialPort)
	s.setInt("baud", fc.Serial.Baud, &cfg.SerialBaud)
	s.setBool("inbound", fc.Serial.Inbound, &cfg.SerialInbound)

	s.setBool("mock", fc.Hardware.Mock, &cfg.Mock)
	s.setString("imu-spi", fc.Hardware.IMUSPIDevice, &cfg.IMUSPIDevice)
	s.setString("imu-cs", fc.Hardware.IMUCSPin, &cfg.IMUCSPin)
	s.setString("led-pin", fc.Hardware.LEDPin, &cfg.LEDPin)
	s.setString("buzzer-pin", fc.Hardware.BuzzerPin, &cfg.BuzzerPin)
	s.setString("button-pin", fc.Hardware.ButtonPin, &cfg.ButtonPin)

	s.setString("mqtt-broker", fc.MQTT.Broker, &cfg.MQTTBroker)
	s.setString("mqtt-client-id", fc.MQTT.ClientID, &cfg.MQTTClientID)
	s.setString("mqtt-prefix", fc.MQTT.TopicPrefix, &cfg.MQTTTopicPrefix)

	s.setString("web-addr", fc.Web.Addr, &cfg.WebAddr)

	s.setBool("display", fc.Display.Enabled, &cfg.DisplayEnabled)
	s.setString("i2c-bus", fc.Display.I2CBus, &cfg.DisplayI2CBus)

	s.setString("log-level", fc.Log.Level, &cfg.LogLevel)
	return nil
}
