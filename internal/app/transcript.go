// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package app

import (
	"sync"

	"github.com/rs/zerolog"

	"github.com/relabs-tech/tilt_morse/internal/morse"
	"github.com/relabs-tech/tilt_morse/internal/pipeline"
)

const transcriptLimit = 64

// TranscriptSnapshot is what the display, the status API and the MQTT
// mirror show of the keyed text.
type TranscriptSnapshot struct {
	State   pipeline.State `json:"state"`
	Text    string         `json:"text"`
	Pending string         `json:"pending"`
}

// transcriptLog follows the coordinator's events and decodes the symbol
// stream into letters.
type transcriptLog struct {
	mu    sync.Mutex
	t     *morse.Transcript
	state pipeline.State
	log   zerolog.Logger
}

func newTranscriptLog(log zerolog.Logger) *transcriptLog {
	return &transcriptLog{
		t:   morse.NewTranscript(transcriptLimit),
		log: log.With().Str("component", "transcript").Logger(),
	}
}

func (l *transcriptLog) observe(ev pipeline.Event) {
	l.mu.Lock()
	defer l.mu.Unlock()

	switch ev.Kind {
	case pipeline.EventState:
		l.state = ev.State
	case pipeline.EventSymbol:
		l.push(ev.Symbol)
	case pipeline.EventOverrideStarted:
		l.state = ev.State
		// close whatever letter was being keyed before the alarm
		if l.t.Pending() != "" {
			l.push(morse.WordGap)
		}
		for _, s := range morse.AlarmSequence() {
			l.push(s)
		}
	}
}

func (l *transcriptLog) push(s morse.Symbol) {
	if c, ok := l.t.Push(s); ok && c != ' ' {
		l.log.Info().Str("letter", string(c)).Str("text", l.t.Text()).Msg("decoded")
	}
}

func (l *transcriptLog) snapshot() TranscriptSnapshot {
	l.mu.Lock()
	defer l.mu.Unlock()
	return TranscriptSnapshot{State: l.state, Text: l.t.Text(), Pending: l.t.Pending()}
}
