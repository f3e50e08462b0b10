// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package imu

// AccelLSBPerG is the accelerometer scale at the ±2g range the sensor
// comes up in after reset.
const AccelLSBPerG = 16384.0

// Raw is a single raw accelerometer sample in sensor counts.
type Raw struct {
	Source string `json:"source"`

	Ax int16 `json:"ax"`
	Ay int16 `json:"ay"`
	Az int16 `json:"az"`
}

// G returns the sample in units of standard gravity.
func (r Raw) G() (ax, ay, az float64) {
	return float64(r.Ax) / AccelLSBPerG, float64(r.Ay) / AccelLSBPerG, float64(r.Az) / AccelLSBPerG
}

// RawSource yields raw samples from a device.
type RawSource interface {
	ReadRaw() (Raw, error)
}
