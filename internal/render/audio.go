// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package render

import (
	"context"
	"fmt"

	"github.com/rs/zerolog"
	"periph.io/x/conn/v3/physic"

	"github.com/relabs-tech/tilt_morse/internal/morse"
	"github.com/relabs-tech/tilt_morse/internal/pipeline"
)

// MaxInbound is the longest inbound text message PlayText accepts.
const MaxInbound = 64

// DefaultFrequency is the symbol tone.
const DefaultFrequency = 1000 * physic.Hertz

// AudioOptions configures an Audio renderer.
type AudioOptions struct {
	Timing    morse.Timing
	Frequency physic.Frequency
	Melody    *Melody // nil disables the alarm melody
	Sleep     SleepFunc
	Logger    zerolog.Logger
}

// Audio renders symbols as tone bursts.
type Audio struct {
	pulser
	tone   Tone
	freq   physic.Frequency
	melody *Melody

	// melodyEpoch is the last override epoch the melody played for.
	// Only touched while busy is held.
	melodyEpoch uint64
}

// NewAudio creates the audio renderer for consumer pipeline.Audio.
func NewAudio(q Queue, tone Tone, opts AudioOptions) *Audio {
	if opts.Frequency == 0 {
		opts.Frequency = DefaultFrequency
	}
	a := &Audio{tone: tone, freq: opts.Frequency, melody: opts.Melody}
	a.init(pipeline.Audio, q, opts.Timing, opts.Sleep, opts.Logger.With().Str("component", "audio").Logger())
	return a
}

// Tick renders whatever is queued for audio. On the first alarm batch of
// an override the melody plays before the alarm tones.
func (a *Audio) Tick(ctx context.Context) error {
	return a.cycle(ctx, func(b pipeline.Batch) (int, error) {
		if b.Override && a.melody != nil && b.Epoch != a.melodyEpoch {
			a.melodyEpoch = b.Epoch
			if err := a.playMelody(ctx); err != nil {
				return 0, err
			}
		}
		return a.render(ctx, b, a.set)
	})
}

func (a *Audio) set(on bool) error {
	if on {
		return a.tone.Play(a.freq)
	}
	return a.tone.Stop()
}

func (a *Audio) playMelody(ctx context.Context) error {
	m := a.melody
	a.log.Info().Str("melody", m.Name).Dur("duration", m.Duration()).Msg("playing alarm melody")
	defer a.tone.Stop()

	for _, n := range m.Notes {
		if err := a.tone.Play(n.Freq); err != nil {
			return fmt.Errorf("melody note %s: %w", n.Freq, err)
		}
		if err := a.sleep(ctx, m.Length(n)); err != nil {
			return err
		}
		if err := a.tone.Stop(); err != nil {
			return err
		}
		if err := a.sleep(ctx, m.Rest(n)); err != nil {
			return err
		}
	}
	return nil
}

// PlayText plays a Morse message received as text: '.' a short tone, '-' a
// long tone, CR or LF a short pause. Any other character ends the message.
// Text that does not start with a mark is ignored. It fails with ErrBusy
// while symbols are being rendered, and stops early if an alarm starts.
// Returns the number of characters played.
func (a *Audio) PlayText(ctx context.Context, text string) (int, error) {
	if len(text) > MaxInbound {
		return 0, fmt.Errorf("%w: %d bytes, max %d", ErrLineOverflow, len(text), MaxInbound)
	}
	if text == "" || (text[0] != '.' && text[0] != '-') {
		return 0, nil
	}
	if !a.busy.CompareAndSwap(false, true) {
		return 0, ErrBusy
	}
	defer a.busy.Store(false)

	tm := a.Timing()
	for i := 0; i < len(text); i++ {
		if a.queue.OverrideActive() {
			a.log.Warn().Int("played", i).Msg("inbound message cut by alarm")
			return i, nil
		}
		switch c := text[i]; c {
		case '.', '-':
			s, _ := morse.FromChar(c)
			pulses, err := tm.Pulses(s)
			if err != nil {
				return i, err
			}
			if err := a.play(ctx, pulses, a.set); err != nil {
				return i, err
			}
		case '\r', '\n':
			if err := a.sleep(ctx, tm.LinePause); err != nil {
				return i, err
			}
		default:
			a.log.Debug().Int("index", i).Msgf("stopping at %q", c)
			return i, nil
		}
	}
	return len(text), nil
}
