// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package morse

import "strings"

// Unknown is returned for tokens with no table entry.
const Unknown = '?'

var codes = map[byte]string{
	'A': ".-", 'B': "-...", 'C': "-.-.", 'D': "-..", 'E': ".",
	'F': "..-.", 'G': "--.", 'H': "....", 'I': "..", 'J': ".---",
	'K': "-.-", 'L': ".-..", 'M': "--", 'N': "-.", 'O': "---",
	'P': ".--.", 'Q': "--.-", 'R': ".-.", 'S': "...", 'T': "-",
	'U': "..-", 'V': "...-", 'W': ".--", 'X': "-..-", 'Y': "-.--",
	'Z': "--..",
	'1': ".----", '2': "..---", '3': "...--", '4': "....-", '5': ".....",
	'6': "-....", '7': "--...", '8': "---..", '9': "----.", '0': "-----",
}

// letters is the inverse of codes, built once.
var letters = func() map[string]byte {
	m := make(map[string]byte, len(codes))
	for c, tok := range codes {
		m[tok] = c
	}
	return m
}()

// DecodeToken returns the letter for an exact dot/dash token, or Unknown.
func DecodeToken(tok string) byte {
	if c, ok := letters[tok]; ok {
		return c
	}
	return Unknown
}

// Decode translates space separated tokens. A run of two or more spaces
// between tokens is a word boundary and becomes one space in the output.
// Unknown tokens decode to '?' and decoding continues.
func Decode(text string) string {
	var b strings.Builder
	pendingSpace := false
	wrote := false
	for _, field := range strings.Split(strings.TrimRight(text, "\r\n"), " ") {
		if field == "" {
			pendingSpace = wrote
			continue
		}
		if pendingSpace {
			b.WriteByte(' ')
			pendingSpace = false
		}
		b.WriteByte(DecodeToken(field))
		wrote = true
	}
	return b.String()
}

// Code returns the dot/dash token for a letter or digit (case-insensitive).
func Code(c byte) (string, bool) {
	if c >= 'a' && c <= 'z' {
		c -= 'a' - 'A'
	}
	tok, ok := codes[c]
	return tok, ok
}

// Encode returns the symbols for one character followed by the WORD_GAP
// that closes the letter.
func Encode(c byte) ([]Symbol, bool) {
	tok, ok := Code(c)
	if !ok {
		return nil, false
	}
	out := make([]Symbol, 0, len(tok)+1)
	for i := 0; i < len(tok); i++ {
		s, _ := FromChar(tok[i])
		out = append(out, s)
	}
	return append(out, WordGap), true
}

// EncodeText renders text in the converter's token form: letters separated
// by one space, words by two. Characters without a code are skipped.
func EncodeText(text string) string {
	var words []string
	for _, w := range strings.Fields(text) {
		var toks []string
		for i := 0; i < len(w); i++ {
			if tok, ok := Code(w[i]); ok {
				toks = append(toks, tok)
			}
		}
		if len(toks) > 0 {
			words = append(words, strings.Join(toks, " "))
		}
	}
	return strings.Join(words, "  ")
}
