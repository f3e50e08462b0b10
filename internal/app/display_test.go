package app

import (
	"context"
	"errors"
	"image"
	"strings"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"periph.io/x/devices/v3/ssd1306/image1bit"

	"github.com/relabs-tech/tilt_morse/internal/gesture"
	"github.com/relabs-tech/tilt_morse/internal/pipeline"
)

type fakeScreen struct {
	draws int
	last  image.Image
	err   error
}

func (s *fakeScreen) Bounds() image.Rectangle { return image.Rect(0, 0, 128, 64) }

func (s *fakeScreen) Draw(_ image.Rectangle, src image.Image, _ image.Point) error {
	if s.err != nil {
		return s.err
	}
	s.draws++
	s.last = src
	return nil
}

func litRows(img image.Image, y0, y1 int) int {
	n := 0
	for y := y0; y < y1; y++ {
		for x := 0; x < 128; x++ {
			if img.At(x, y) == image1bit.On {
				n++
			}
		}
	}
	return n
}

func TestTranscriptDisplayRedrawsOnChange(t *testing.T) {
	screen := &fakeScreen{}
	d := NewTranscriptDisplay(screen, zerolog.Nop())

	snap := TranscriptSnapshot{State: pipeline.StateIdle}
	require.NoError(t, d.Show(snap))
	require.NoError(t, d.Show(snap))
	assert.Equal(t, 1, screen.draws)

	snap.Text = "SOS"
	require.NoError(t, d.Show(snap))
	assert.Equal(t, 2, screen.draws)

	screen.err = errors.New("i2c nack")
	snap.Pending = ".-"
	assert.Error(t, d.Show(snap))
	screen.err = nil
	require.NoError(t, d.Show(snap), "a failed draw is retried")
	assert.Equal(t, 3, screen.draws)
}

func TestRenderTranscriptLayout(t *testing.T) {
	b := image.Rect(0, 0, 128, 64)

	blank := renderTranscript(b, TranscriptSnapshot{State: pipeline.StateIdle})
	assert.NotZero(t, litRows(blank, 0, lineHeight), "state line")
	assert.Zero(t, litRows(blank, lineHeight, 3*lineHeight), "no text yet")

	full := renderTranscript(b, TranscriptSnapshot{State: pipeline.StateRendering, Text: "HELLO WORLD", Pending: "-.-"})
	assert.NotZero(t, litRows(full, lineHeight, 2*lineHeight))
	assert.Greater(t, litRows(full, 3*lineHeight, 64), litRows(blank, 3*lineHeight, 64), "pending marks")
}

func TestWrapTail(t *testing.T) {
	assert.Nil(t, wrapTail("", 4, 2))
	assert.Equal(t, []string{"abc"}, wrapTail("abc", 4, 2))
	assert.Equal(t, []string{"abcd", "ef"}, wrapTail("abcdef", 4, 2))
	assert.Equal(t, []string{"cdef", "ghij"}, wrapTail("abcdefghij", 4, 2))
}

func TestRunMockConsole(t *testing.T) {
	out := &syncBuffer{}
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() {
		done <- RunMockConsole(ctx, out, scriptSource("... ---"), gesture.DefaultBands(), time.Millisecond)
	}()

	require.Eventually(t, func() bool {
		return strings.Contains(out.String(), `text="SO"`)
	}, 2*time.Second, 5*time.Millisecond)
	cancel()
	require.NoError(t, <-done)

	lines := strings.Split(strings.TrimSpace(out.String()), "\n")
	require.Len(t, lines, 8)
	assert.Contains(t, lines[0], "DOT")
	assert.Contains(t, lines[3], "WORD_GAP")
	assert.Contains(t, lines[3], "'S'")
}

func TestRunMockConsoleRejectsBadBands(t *testing.T) {
	bands := gesture.DefaultBands()
	bands.DashLow = bands.DashHigh
	err := RunMockConsole(context.Background(), &syncBuffer{}, &seqSource{}, bands, time.Millisecond)
	assert.Error(t, err)
}
