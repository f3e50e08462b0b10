// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package sensors

import (
	"fmt"

	"github.com/rs/zerolog"
	"periph.io/x/conn/v3/gpio/gpioreg"
	"periph.io/x/devices/v3/mpu9250"

	"github.com/relabs-tech/tilt_morse/internal/imu"
	"github.com/relabs-tech/tilt_morse/internal/orientation"
)

// accelReader is the part of the MPU9250 driver the source uses.
type accelReader interface {
	GetAccelerationX() (int16, error)
	GetAccelerationY() (int16, error)
	GetAccelerationZ() (int16, error)
}

var _ imu.RawSource = (*IMUSource)(nil)

// IMUSource reads the accelerometer of an MPU9250 and turns it into
// orientation samples.
type IMUSource struct {
	name string
	dev  accelReader
}

// NewIMUSource initializes an MPU9250 over SPI. Any failure is fatal to
// the caller; self-test and calibration problems are only logged.
func NewIMUSource(spiDev, csPin string, log zerolog.Logger) (*IMUSource, error) {
	const name = "gesture"
	if err := initHost(); err != nil {
		return nil, fmt.Errorf("%s IMU: %w", name, err)
	}

	cs := gpioreg.ByName(csPin)
	if cs == nil {
		return nil, fmt.Errorf("%s IMU: CS pin %q not found", name, csPin)
	}

	tr, err := mpu9250.NewSpiTransport(spiDev, cs)
	if err != nil {
		return nil, fmt.Errorf("%s IMU: SPI transport (%s): %w", name, spiDev, err)
	}

	dev, err := mpu9250.New(tr)
	if err != nil {
		return nil, fmt.Errorf("%s IMU: device creation: %w", name, err)
	}
	if err := dev.Init(); err != nil {
		return nil, fmt.Errorf("%s IMU: initialization: %w", name, err)
	}

	log = log.With().Str("component", "imu").Logger()
	if res, err := dev.SelfTest(); err != nil {
		log.Warn().Err(err).Msg("self-test failed")
	} else {
		log.Info().
			Float64("accel_dev_x", res.AccelDeviation.X).
			Float64("accel_dev_y", res.AccelDeviation.Y).
			Float64("accel_dev_z", res.AccelDeviation.Z).
			Msg("self-test passed")
	}
	if err := dev.Calibrate(); err != nil {
		log.Warn().Err(err).Msg("calibration failed")
	} else {
		log.Info().Msg("calibration complete")
	}

	return &IMUSource{name: name, dev: dev}, nil
}

// ReadRaw reads one accelerometer sample.
func (s *IMUSource) ReadRaw() (imu.Raw, error) {
	ax, err := s.dev.GetAccelerationX()
	if err != nil {
		return imu.Raw{}, fmt.Errorf("%s IMU accel X: %w", s.name, err)
	}
	ay, err := s.dev.GetAccelerationY()
	if err != nil {
		return imu.Raw{}, fmt.Errorf("%s IMU accel Y: %w", s.name, err)
	}
	az, err := s.dev.GetAccelerationZ()
	if err != nil {
		return imu.Raw{}, fmt.Errorf("%s IMU accel Z: %w", s.name, err)
	}
	return imu.Raw{Source: s.name, Ax: ax, Ay: ay, Az: az}, nil
}

// Next implements orientation.Source.
func (s *IMUSource) Next() (orientation.Sample, error) {
	raw, err := s.ReadRaw()
	if err != nil {
		return orientation.Sample{}, err
	}
	return orientation.SampleFromAccel(raw.G()), nil
}
