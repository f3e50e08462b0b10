package morse

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAlarmSequence(t *testing.T) {
	seq := AlarmSequence()
	require.Len(t, seq, AlarmLen)

	var chars []byte
	for _, s := range seq {
		c, ok := s.Char()
		require.True(t, ok)
		chars = append(chars, c)
	}
	assert.Equal(t, "... --- ...  ", string(chars))

	// callers get their own copy
	seq[0] = Dash
	assert.Equal(t, Dot, AlarmSequence()[0])
}

func TestSymbolChar(t *testing.T) {
	tests := []struct {
		sym  Symbol
		char byte
		ok   bool
	}{
		{Dot, '.', true},
		{Dash, '-', true},
		{WordGap, ' ', true},
		{None, 0, false},
		{Symbol(42), 0, false},
	}
	for _, tt := range tests {
		t.Run(tt.sym.String(), func(t *testing.T) {
			c, ok := tt.sym.Char()
			assert.Equal(t, tt.ok, ok)
			assert.Equal(t, tt.char, c)
			if ok {
				back, ok := FromChar(c)
				require.True(t, ok)
				assert.Equal(t, tt.sym, back)
			}
		})
	}
}

func TestDecode(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{"sos", "... --- ...", "SOS"},
		{"word boundary", ".... ..  - .... . .-. .", "HI THERE"},
		{"digits", ".---- ..--- -----", "120"},
		{"malformed token continues", ". . _ _", "EE??"},
		{"unknown long token", "......", "?"},
		{"leading and trailing spaces", "  .-  ", "A"},
		{"trailing newline", "-.-\r\n", "K"},
		{"empty", "", ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Decode(tt.in))
		})
	}
}

func TestDecodeTokenIsIdempotent(t *testing.T) {
	for c, tok := range codes {
		assert.Equal(t, c, DecodeToken(tok))
		assert.Equal(t, DecodeToken(tok), DecodeToken(tok))
	}
	for _, tok := range []string{"", "_", "......", ".-.-.-.-", "x"} {
		assert.Equal(t, byte(Unknown), DecodeToken(tok))
		assert.Equal(t, byte(Unknown), DecodeToken(tok))
	}
}

func TestEncodeText(t *testing.T) {
	assert.Equal(t, "... --- ...", EncodeText("sos"))
	assert.Equal(t, ".... ..  - ....", EncodeText("hi th"))
	assert.Equal(t, "SOS", Decode(EncodeText("SOS")))
}

func TestTimingPulses(t *testing.T) {
	tm := DefaultTiming()
	require.NoError(t, tm.Validate())

	p, err := tm.Pulses(Dash)
	require.NoError(t, err)
	assert.Equal(t, []Pulse{{On: true, D: 300 * time.Millisecond}, {On: false, D: 100 * time.Millisecond}}, p)

	p, err = tm.Pulses(WordGap)
	require.NoError(t, err)
	assert.Equal(t, []Pulse{{On: false, D: 700 * time.Millisecond}}, p)

	_, err = tm.Pulses(None)
	require.ErrorIs(t, err, ErrUnrecognized)
}

func TestTimingValidate(t *testing.T) {
	tm := DefaultTiming()
	tm.Dash = tm.Dot
	assert.Error(t, tm.Validate())

	tm = DefaultTiming()
	tm.WordGap = tm.Gap
	assert.Error(t, tm.Validate())

	tm = DefaultTiming()
	tm.Dot = 0
	assert.Error(t, tm.Validate())
}

// Encoding a letter, rendering it through the timing table and recognising
// the durations again must give back the same letter.
func TestRoundTripThroughTiming(t *testing.T) {
	for _, name := range []string{"reference", "slow", "fast"} {
		tm, ok := Preset(name)
		require.True(t, ok)

		for c := range codes {
			syms, ok := Encode(c)
			require.True(t, ok)

			pulses, err := tm.Timeline(syms)
			require.NoError(t, err)

			// 10% jitter on every pulse stays within tolerance
			for i := range pulses {
				if i%2 == 0 {
					pulses[i].D += pulses[i].D / 10
				} else {
					pulses[i].D -= pulses[i].D / 10
				}
			}

			got := tm.Recognize(pulses)
			require.Equal(t, syms, got, "preset %s letter %c", name, c)

			tr := NewTranscript(8)
			var letter byte
			for _, s := range got {
				if ch, ok := tr.Push(s); ok {
					letter = ch
				}
			}
			assert.Equal(t, c, letter, "preset %s", name)
		}
	}
}

func TestRecognizeWordGaps(t *testing.T) {
	tm := DefaultTiming()
	syms := []Symbol{Dot, WordGap, WordGap, Dash, WordGap}
	pulses, err := tm.Timeline(syms)
	require.NoError(t, err)
	assert.Equal(t, syms, tm.Recognize(pulses))

	// leading silence has no preceding mark gap
	lead := append([]Pulse{{On: false, D: tm.WordGap}}, pulses...)
	assert.Equal(t, append([]Symbol{WordGap}, syms...), tm.Recognize(lead))
}

func TestTranscript(t *testing.T) {
	tr := NewTranscript(32)
	for _, s := range AlarmSequence() {
		tr.Push(s)
	}
	assert.Equal(t, "SOS ", tr.Text())
	assert.Empty(t, tr.Pending())

	tr.Push(Dot)
	tr.Push(Dash)
	assert.Equal(t, ".-", tr.Pending())

	// a third gap after a word boundary adds nothing
	tr.Reset()
	for _, s := range []Symbol{Dash, WordGap, WordGap, WordGap} {
		tr.Push(s)
	}
	assert.Equal(t, "T ", tr.Text())
}

func TestTranscriptBounds(t *testing.T) {
	tr := NewTranscript(3)
	for i := 0; i < 5; i++ {
		tr.Push(Dot)
		tr.Push(WordGap)
	}
	assert.Equal(t, "EEE", tr.Text())

	tr.Reset()
	for i := 0; i < maxToken+4; i++ {
		tr.Push(Dot)
	}
	c, ok := tr.Push(WordGap)
	require.True(t, ok)
	assert.Equal(t, byte(Unknown), c)
}
