// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package app

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/relabs-tech/tilt_morse/internal/gesture"
	"github.com/relabs-tech/tilt_morse/internal/morse"
	"github.com/relabs-tech/tilt_morse/internal/orientation"
)

// RunMockConsole samples src every interval and prints each symbol the
// classifier and debounce filter let through, with the decoded letters.
// Nothing is queued or rendered. It returns when ctx is done or src
// fails.
func RunMockConsole(ctx context.Context, w io.Writer, src orientation.Source, bands gesture.Bands, every time.Duration) error {
	if err := bands.Validate(); err != nil {
		return err
	}
	classifier := gesture.NewClassifier(bands)
	var debounce gesture.Debouncer
	transcript := morse.NewTranscript(transcriptLimit)

	ticker := time.NewTicker(every)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
		}

		s, err := src.Next()
		if err != nil {
			return err
		}
		sym := classifier.Classify(s)
		if !debounce.Accept(sym) {
			continue
		}

		line := fmt.Sprintf("ROLL=%7.2f  AZ=%5.2f  %-8s", s.Roll, s.VerticalAccel, sym)
		if c, ok := transcript.Push(sym); ok {
			line += fmt.Sprintf("  %q  text=%q", c, transcript.Text())
		}
		fmt.Fprintln(w, line)
	}
}
