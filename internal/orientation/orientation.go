// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package orientation

import (
	"math"
)

// Sample is the canonical orientation reading fed to the gesture classifier.
type Sample struct {
	Roll          float64 `json:"roll"`           // degrees, positive = tilted right
	Pitch         float64 `json:"pitch"`          // degrees
	VerticalAccel float64 `json:"vertical_accel"` // g along the board Z axis
}

// Source is anything that can provide samples over time: the IMU, the
// scripted mock, a replay.
type Source interface {
	Next() (Sample, error)
}

// SampleFromAccel computes roll and pitch from accelerometer data only.
// Inputs are in g; the vertical component is passed through for shake
// detection.
//
// Uses simple tilt formulas:
//
//	roll  = atan2(ay, az)
//	pitch = atan2(-ax, sqrt(ay² + az²))
func SampleFromAccel(ax, ay, az float64) Sample {
	rollRad := math.Atan2(ay, az)
	pitchRad := math.Atan2(-ax, math.Sqrt(ay*ay+az*az))

	return Sample{
		Roll:          rollRad * 180.0 / math.Pi,
		Pitch:         pitchRad * 180.0 / math.Pi,
		VerticalAccel: az,
	}
}
