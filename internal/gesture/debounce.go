// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package gesture

import "github.com/relabs-tech/tilt_morse/internal/morse"

// Debouncer passes a symbol only on a change of classification, so a held
// gesture produces one symbol instead of one per poll.
//
// NONE is never passed on; it clears the memory so the same gesture made
// twice (with a return to neutral in between) yields two symbols.
// Not safe for concurrent use; the owner serialises access.
type Debouncer struct {
	last morse.Symbol
}

// Accept reports whether s should be queued and records it.
func (d *Debouncer) Accept(s morse.Symbol) bool {
	if s == morse.None {
		d.last = morse.None
		return false
	}
	if s == d.last {
		return false
	}
	d.last = s
	return true
}

// Last returns the most recently accepted symbol, or NONE after neutral.
func (d *Debouncer) Last() morse.Symbol {
	return d.last
}

// Reset forgets the last symbol.
func (d *Debouncer) Reset() {
	d.last = morse.None
}
