// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package morse

// maxToken bounds a single letter; the longest table entry has five marks.
const maxToken = 8

// Transcript groups a live symbol stream into letters. One WORD_GAP closes
// a letter, a second consecutive WORD_GAP closes the word.
// Not safe for concurrent use.
type Transcript struct {
	token [maxToken]byte
	n     int
	over  bool // token exceeded maxToken; decodes to Unknown
	gaps  int

	text  []byte
	limit int
}

// NewTranscript keeps at most limit decoded characters (oldest dropped).
func NewTranscript(limit int) *Transcript {
	if limit <= 0 {
		limit = 64
	}
	return &Transcript{limit: limit, text: make([]byte, 0, limit)}
}

// Push feeds one symbol. When it completes a letter or a word boundary the
// produced character is returned with ok set.
func (t *Transcript) Push(s Symbol) (c byte, ok bool) {
	switch s {
	case Dot, Dash:
		ch, _ := s.Char()
		if t.n < maxToken {
			t.token[t.n] = ch
			t.n++
		} else {
			t.over = true
		}
		t.gaps = 0
		return 0, false

	case WordGap:
		if t.n > 0 || t.over {
			c = Unknown
			if !t.over {
				c = DecodeToken(string(t.token[:t.n]))
			}
			t.n, t.over = 0, false
			t.gaps = 1
			t.append(c)
			return c, true
		}
		if t.gaps == 1 {
			t.gaps = 2
			t.append(' ')
			return ' ', true
		}
		return 0, false

	default:
		return 0, false
	}
}

// Pending returns the marks of the letter in progress.
func (t *Transcript) Pending() string {
	return string(t.token[:t.n])
}

// Text returns the decoded characters kept so far.
func (t *Transcript) Text() string {
	return string(t.text)
}

// Reset clears the letter in progress and the decoded text.
func (t *Transcript) Reset() {
	t.n, t.over, t.gaps = 0, false, 0
	t.text = t.text[:0]
}

func (t *Transcript) append(c byte) {
	if len(t.text) == t.limit {
		copy(t.text, t.text[1:])
		t.text = t.text[:len(t.text)-1]
	}
	t.text = append(t.text, c)
}
