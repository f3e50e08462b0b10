// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package render

import (
	"time"

	"periph.io/x/conn/v3/physic"
)

// Note is one melody note. Value is the note value: 2 half, 4 quarter,
// 8 eighth.
type Note struct {
	Freq  physic.Frequency
	Value int
}

// Melody is a tune played once when the alarm starts.
type Melody struct {
	Name  string
	Whole time.Duration // length of a whole note
	Notes []Note
}

const (
	noteC5  = 523 * physic.Hertz
	noteC6  = 1047 * physic.Hertz
	noteF5  = 698 * physic.Hertz
	noteF6  = 1397 * physic.Hertz
	noteG5  = 784 * physic.Hertz
	noteA5  = 880 * physic.Hertz
	noteAS4 = 466 * physic.Hertz
	noteAS5 = 932 * physic.Hertz
)

// DefaultMelody is the Star Wars main theme.
var DefaultMelody = Melody{
	Name:  "star_wars",
	Whole: time.Second,
	Notes: []Note{
		{noteAS4, 8}, {noteAS4, 8}, {noteAS4, 8},
		{noteF5, 2}, {noteC6, 2},
		{noteAS5, 8}, {noteA5, 8}, {noteG5, 8}, {noteF6, 2}, {noteC6, 4},
		{noteAS5, 8}, {noteA5, 8}, {noteG5, 8}, {noteF6, 2}, {noteC6, 4},
		{noteAS5, 8}, {noteA5, 8}, {noteAS5, 8}, {noteG5, 2}, {noteC5, 8}, {noteC5, 8}, {noteC5, 8},
		{noteF5, 2}, {noteC6, 2},
		{noteAS5, 8}, {noteA5, 8}, {noteG5, 8}, {noteF6, 2}, {noteC6, 4},
	},
}

// restPercent is the silence after each note, relative to its length.
const restPercent = 30

// Rest returns the silence after n.
func (m Melody) Rest(n Note) time.Duration {
	return m.Length(n) * restPercent / 100
}

// Length returns how long n sounds.
func (m Melody) Length(n Note) time.Duration {
	if n.Value <= 0 {
		return 0
	}
	return m.Whole / time.Duration(n.Value)
}

// Duration is the total play time including rests.
func (m Melody) Duration() time.Duration {
	var d time.Duration
	for _, n := range m.Notes {
		d += m.Length(n) + m.Rest(n)
	}
	return d
}
