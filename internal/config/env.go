// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package config

import "os"

// ApplyEnv applies TILTMORSE_* environment variables onto cfg, skipping
// keys set by flags.
func ApplyEnv(cfg *Config, changed map[string]bool) error {
	s := newConfigSetter(changed)

	if p := os.Getenv("TILTMORSE_TIMING_PRESET"); p != "" && !changed["preset"] {
		if err := cfg.ApplyPreset(p); err != nil {
			return err
		}
	}

	floats := []struct {
		flag, env string
		dst       *float64
	}{
		{"dash-low", "TILTMORSE_DASH_LOW", &cfg.DashLow},
		{"dash-high", "TILTMORSE_DASH_HIGH", &cfg.DashHigh},
		{"shake-g", "TILTMORSE_SHAKE_G", &cfg.ShakeG},
		{"shake-release-g", "TILTMORSE_SHAKE_RELEASE_G", &cfg.ShakeReleaseG},
	}
	for _, f := range floats {
		if err := s.setFloatFromString(f.flag, os.Getenv(f.env), f.dst); err != nil {
			return err
		}
	}

	if err := s.setIntFromString("capacity", os.Getenv("TILTMORSE_QUEUE_CAPACITY"), &cfg.QueueCapacity); err != nil {
		return err
	}
	if err := s.setIntFromString("baud", os.Getenv("TILTMORSE_SERIAL_BAUD"), &cfg.SerialBaud); err != nil {
		return err
	}
	if err := s.setBoolFromString("mock", os.Getenv("TILTMORSE_MOCK"), &cfg.Mock); err != nil {
		return err
	}

	s.setString("serial-port", os.Getenv("TILTMORSE_SERIAL_PORT"), &cfg.SerialPort)
	s.setString("mqtt-broker", os.Getenv("TILTMORSE_MQTT_BROKER"), &cfg.MQTTBroker)
	s.setString("web-addr", os.Getenv("TILTMORSE_WEB_ADDR"), &cfg.WebAddr)
	s.setString("log-level", os.Getenv("TILTMORSE_LOG_LEVEL"), &cfg.LogLevel)
	return nil
}
