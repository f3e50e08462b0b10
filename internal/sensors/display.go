// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package sensors

import (
	"fmt"
	"io"

	"periph.io/x/conn/v3/i2c/i2creg"
	"periph.io/x/devices/v3/ssd1306"
)

// OpenDisplay opens a 128x64 SSD1306 OLED on the named I2C bus ("" for the
// first one). The bus must be closed by the caller.
func OpenDisplay(bus string) (*ssd1306.Dev, io.Closer, error) {
	if err := initHost(); err != nil {
		return nil, nil, fmt.Errorf("display: %w", err)
	}
	b, err := i2creg.Open(bus)
	if err != nil {
		return nil, nil, fmt.Errorf("display: open I2C bus %q: %w", bus, err)
	}
	opts := ssd1306.DefaultOpts
	dev, err := ssd1306.NewI2C(b, &opts)
	if err != nil {
		b.Close()
		return nil, nil, fmt.Errorf("display: init: %w", err)
	}
	return dev, b, nil
}
