// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package app

import (
	"image"

	"github.com/rs/zerolog"
	"golang.org/x/image/font"
	"golang.org/x/image/font/basicfont"
	"golang.org/x/image/math/fixed"
	"periph.io/x/devices/v3/ssd1306/image1bit"
)

const (
	lineHeight   = 13 // basicfont.Face7x13
	charsPerLine = 18 // 128 px / 7 px
	textLines    = 2
)

// Screen is the part of the SSD1306 driver the display draws on.
type Screen interface {
	Bounds() image.Rectangle
	Draw(r image.Rectangle, src image.Image, sp image.Point) error
}

// TranscriptDisplay shows the pipeline state, the tail of the decoded text
// and the letter being keyed on a 128x64 OLED.
type TranscriptDisplay struct {
	screen Screen
	log    zerolog.Logger

	last  TranscriptSnapshot
	drawn bool
}

// NewTranscriptDisplay draws on screen.
func NewTranscriptDisplay(screen Screen, log zerolog.Logger) *TranscriptDisplay {
	return &TranscriptDisplay{screen: screen, log: log.With().Str("component", "display").Logger()}
}

// Show redraws the screen if snap differs from what is shown.
func (d *TranscriptDisplay) Show(snap TranscriptSnapshot) error {
	if d.drawn && snap == d.last {
		return nil
	}
	img := renderTranscript(d.screen.Bounds(), snap)
	if err := d.screen.Draw(d.screen.Bounds(), img, image.Point{}); err != nil {
		return err
	}
	d.last, d.drawn = snap, true
	d.log.Debug().Str("text", snap.Text).Msg("display updated")
	return nil
}

// renderTranscript lays out:
//
//	line 1  pipeline state
//	2-3     last characters of the decoded text
//	4       "> " and the marks of the letter in progress
func renderTranscript(bounds image.Rectangle, snap TranscriptSnapshot) *image1bit.VerticalLSB {
	img := image1bit.NewVerticalLSB(bounds)
	drawer := &font.Drawer{
		Dst:  img,
		Src:  &image.Uniform{image1bit.On},
		Face: basicfont.Face7x13,
	}

	lines := []string{snap.State.String()}
	lines = append(lines, wrapTail(snap.Text, charsPerLine, textLines)...)
	for len(lines) < 1+textLines {
		lines = append(lines, "")
	}
	lines = append(lines, "> "+snap.Pending)

	for i, l := range lines {
		drawer.Dot = fixed.P(0, lineHeight*(i+1)-2)
		drawer.DrawString(l)
	}
	return img
}

// wrapTail splits the last width*rows characters of s into rows of width.
func wrapTail(s string, width, rows int) []string {
	if n := width * rows; len(s) > n {
		s = s[len(s)-n:]
	}
	var out []string
	for len(s) > width {
		out = append(out, s[:width])
		s = s[width:]
	}
	if s != "" {
		out = append(out, s)
	}
	return out
}
