// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package render

import (
	"context"

	"github.com/rs/zerolog"

	"github.com/relabs-tech/tilt_morse/internal/morse"
	"github.com/relabs-tech/tilt_morse/internal/pipeline"
)

// VisualOptions configures a Visual renderer.
type VisualOptions struct {
	Timing morse.Timing
	Sleep  SleepFunc
	Logger zerolog.Logger
}

// Visual blinks a light with the same timing as Audio.
type Visual struct {
	pulser
	light Light
}

// NewVisual creates the visual renderer for consumer pipeline.Visual.
func NewVisual(q Queue, light Light, opts VisualOptions) *Visual {
	v := &Visual{light: light}
	v.init(pipeline.Visual, q, opts.Timing, opts.Sleep, opts.Logger.With().Str("component", "visual").Logger())
	return v
}

// Tick renders whatever is queued for the light.
func (v *Visual) Tick(ctx context.Context) error {
	return v.cycle(ctx, func(b pipeline.Batch) (int, error) {
		n, err := v.render(ctx, b, v.light.Set)
		if err != nil {
			_ = v.light.Set(false)
		}
		return n, err
	})
}
