// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

// Package morse holds the symbol alphabet shared by the gesture pipeline,
// the timing table the renderers follow and the reference text table used
// to turn symbol streams back into letters.
package morse

import "fmt"

// Symbol is one unit of Morse output.
type Symbol uint8

const (
	None Symbol = iota // no symbol this cycle; never queued
	Dot
	Dash
	WordGap
)

// String returns a readable name for logs.
func (s Symbol) String() string {
	switch s {
	case None:
		return "NONE"
	case Dot:
		return "DOT"
	case Dash:
		return "DASH"
	case WordGap:
		return "WORD_GAP"
	default:
		return fmt.Sprintf("Symbol(%d)", uint8(s))
	}
}

// Char returns the character written to the serial sink for s.
// ok is false for None and unknown values.
func (s Symbol) Char() (c byte, ok bool) {
	switch s {
	case Dot:
		return '.', true
	case Dash:
		return '-', true
	case WordGap:
		return ' ', true
	default:
		return 0, false
	}
}

// IsMark reports whether s is a keyed element (DOT or DASH).
func (s Symbol) IsMark() bool {
	return s == Dot || s == Dash
}

// Valid reports whether s may be queued.
func (s Symbol) Valid() bool {
	return s == Dot || s == Dash || s == WordGap
}

// FromChar maps a serial character back to a symbol.
func FromChar(c byte) (Symbol, bool) {
	switch c {
	case '.':
		return Dot, true
	case '-':
		return Dash, true
	case ' ':
		return WordGap, true
	default:
		return None, false
	}
}

// alarm is the fixed SOS sequence: ". . . gap - - - gap . . . gap gap".
var alarm = [...]Symbol{
	Dot, Dot, Dot, WordGap,
	Dash, Dash, Dash, WordGap,
	Dot, Dot, Dot, WordGap,
	WordGap,
}

// AlarmSequence returns a fresh copy of the SOS override sequence.
func AlarmSequence() []Symbol {
	out := make([]Symbol, len(alarm))
	copy(out, alarm[:])
	return out
}

// AlarmLen is the number of symbols in the alarm sequence.
const AlarmLen = len(alarm)

// MarshalText encodes the symbol by name so events read well as JSON.
func (s Symbol) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}
