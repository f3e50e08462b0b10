// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package pipeline

import (
	"fmt"
	"time"

	"github.com/relabs-tech/tilt_morse/internal/morse"
)

// State is the pipeline-wide state.
//
//	IDLE -> CLASSIFYING -> SYMBOL_READY -> RENDERING -> IDLE
//	ANY  -> OVERRIDE_ACTIVE -> IDLE
type State int

const (
	StateIdle State = iota
	StateClassifying
	StateSymbolReady
	StateRendering
	StateOverrideActive
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "IDLE"
	case StateClassifying:
		return "CLASSIFYING"
	case StateSymbolReady:
		return "SYMBOL_READY"
	case StateRendering:
		return "RENDERING"
	case StateOverrideActive:
		return "OVERRIDE_ACTIVE"
	default:
		return fmt.Sprintf("State(%d)", int(s))
	}
}

// MarshalText encodes the state by name.
func (s State) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// ConsumerID names a renderer that owns a copy of the symbol queue.
type ConsumerID string

const (
	Serial ConsumerID = "serial"
	Audio  ConsumerID = "audio"
	Visual ConsumerID = "visual"
)

// Batch is what a consumer takes from its queue in one drain.
type Batch struct {
	Consumer   ConsumerID     `json:"consumer"`
	Epoch      uint64         `json:"epoch"`
	Override   bool           `json:"override"`
	OverrideID string         `json:"override_id,omitempty"`
	Symbols    []morse.Symbol `json:"symbols"`
}

// Override describes one alarm request.
type Override struct {
	ID          string    `json:"id"`
	Epoch       uint64    `json:"epoch"`
	RequestedAt time.Time `json:"requested_at"`
}

// EventKind classifies pipeline events.
type EventKind string

const (
	EventSymbol            EventKind = "symbol"
	EventState             EventKind = "state"
	EventOverflow          EventKind = "overflow"
	EventOverrideStarted   EventKind = "override_started"
	EventOverrideIgnored   EventKind = "override_ignored"
	EventOverrideFulfilled EventKind = "override_fulfilled"
)

// Event is published to subscribers after the coordinator lock is released.
// Seq is assigned under the lock and increases by one per event.
type Event struct {
	Seq        uint64       `json:"seq"`
	Kind       EventKind    `json:"kind"`
	Time       time.Time    `json:"time"`
	Symbol     morse.Symbol `json:"symbol,omitempty"`
	From       State        `json:"from,omitempty"`
	State      State        `json:"state"`
	OverrideID string       `json:"override_id,omitempty"`
	Consumer   ConsumerID   `json:"consumer,omitempty"`
}

// ConsumerStats tracks one consumer's queue.
type ConsumerStats struct {
	Required bool   `json:"required"`
	Queued   int    `json:"queued"`
	InFlight bool   `json:"in_flight"`
	Sent     uint64 `json:"sent"`
	Dropped  uint64 `json:"dropped"`
	Rendered uint64 `json:"rendered"`
}

// Stats is a snapshot of the coordinator counters.
type Stats struct {
	State      State  `json:"state"`
	LastSymbol string `json:"last_symbol"`
	Capacity   int    `json:"capacity"`

	Accepted   uint64 `json:"accepted"`
	Suppressed uint64 `json:"suppressed"`
	Overflowed uint64 `json:"overflowed"`

	OverridesRequested uint64 `json:"overrides_requested"`
	OverridesIgnored   uint64 `json:"overrides_ignored"`
	OverridesFulfilled uint64 `json:"overrides_fulfilled"`
	OverrideActive     bool   `json:"override_active"`
	OverrideID         string `json:"override_id,omitempty"`

	Consumers map[ConsumerID]ConsumerStats `json:"consumers"`
}
