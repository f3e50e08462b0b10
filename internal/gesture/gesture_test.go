package gesture

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/relabs-tech/tilt_morse/internal/morse"
	"github.com/relabs-tech/tilt_morse/internal/orientation"
)

func roll(deg float64) orientation.Sample {
	return orientation.Sample{Roll: deg, VerticalAccel: 1}
}

func TestClassifyReferenceScenario(t *testing.T) {
	c := NewClassifier(Bands{DashLow: 60, DashHigh: 120, ReleaseMargin: 5, ShakeG: 1.25, ShakeReleaseG: 1.2})
	assert.Equal(t, morse.Dash, c.Classify(roll(90)))
}

// Inside the DASH band is DASH, inside the mirrored band is DOT, anywhere
// else is NONE, for every valid band configuration.
func TestClassifyBandsProperty(t *testing.T) {
	configs := [][2]float64{
		{60, 120}, {75, 105}, {45, 135}, {10, 20}, {1, 180}, {89, 91},
	}
	for _, cfg := range configs {
		b := Bands{DashLow: cfg[0], DashHigh: cfg[1], ReleaseMargin: 0.5, ShakeG: 1.5, ShakeReleaseG: 1.4}
		require.NoError(t, b.Validate())

		for deg := -180.0; deg <= 180.0; deg += 0.25 {
			c := NewClassifier(b)
			got := c.Classify(roll(deg))

			switch {
			case deg > b.DashLow && deg < b.DashHigh:
				assert.Equal(t, morse.Dash, got, "bands %v roll %.2f", cfg, deg)
			case deg < -b.DashLow && deg > -b.DashHigh:
				assert.Equal(t, morse.Dot, got, "bands %v roll %.2f", cfg, deg)
			case deg < b.DashLow && deg > -b.DashLow, deg > b.DashHigh, deg < -b.DashHigh:
				assert.Equal(t, morse.None, got, "bands %v roll %.2f", cfg, deg)
			}
		}
	}
}

func TestClassifyHysteresis(t *testing.T) {
	c := NewClassifier(Bands{DashLow: 60, DashHigh: 120, ReleaseMargin: 10, ShakeG: 1.25, ShakeReleaseG: 1.15})

	// hovering around the enter edge does not flicker once latched
	seq := []float64{61, 59, 61, 55, 52}
	for _, deg := range seq {
		assert.Equal(t, morse.Dash, c.Classify(roll(deg)), "roll %.0f", deg)
	}
	assert.Equal(t, morse.Dash, c.Current())
	// crossing the release edge returns to neutral
	assert.Equal(t, morse.None, c.Classify(roll(49)))
	// and 59 does not re-enter from neutral
	assert.Equal(t, morse.None, c.Classify(roll(59)))

	// DOT releases on the mirrored side
	assert.Equal(t, morse.Dot, c.Classify(roll(-100)))
	assert.Equal(t, morse.Dot, c.Classify(roll(-125)))
	assert.Equal(t, morse.None, c.Classify(roll(-131)))
}

func TestClassifyShake(t *testing.T) {
	c := NewClassifier(DefaultBands())

	assert.Equal(t, morse.WordGap, c.Classify(orientation.Sample{VerticalAccel: 1.4}))
	assert.Equal(t, morse.WordGap, c.Classify(orientation.Sample{VerticalAccel: -1.2}))
	assert.Equal(t, morse.None, c.Classify(orientation.Sample{VerticalAccel: 1.0}))
	assert.Equal(t, morse.WordGap, c.Classify(orientation.Sample{VerticalAccel: -1.3}))

	// a tilt entry wins over a held shake
	assert.Equal(t, morse.Dash, c.Classify(orientation.Sample{Roll: 90, VerticalAccel: 1.2}))
}

func TestSetBands(t *testing.T) {
	c := NewClassifier(DefaultBands())
	assert.Equal(t, morse.None, c.Classify(roll(50)))

	b := DefaultBands()
	b.DashLow, b.ReleaseMargin = 45, 5
	c.SetBands(b)
	assert.Equal(t, 45.0, c.Bands().DashLow)
	assert.Equal(t, morse.Dash, c.Classify(roll(50)))
}

func TestBandsValidate(t *testing.T) {
	require.NoError(t, DefaultBands().Validate())

	tests := []struct {
		name string
		mod  func(*Bands)
	}{
		{"low not below high", func(b *Bands) { b.DashLow = b.DashHigh }},
		{"beyond 180", func(b *Bands) { b.DashHigh = 190 }},
		{"negative margin", func(b *Bands) { b.ReleaseMargin = -1 }},
		{"margin crosses zero", func(b *Bands) { b.ReleaseMargin = b.DashLow }},
		{"zero shake", func(b *Bands) { b.ShakeG = 0 }},
		{"release above enter", func(b *Bands) { b.ShakeReleaseG = b.ShakeG + 0.1 }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			b := DefaultBands()
			tt.mod(&b)
			assert.Error(t, b.Validate())
		})
	}
}

func TestDebouncer(t *testing.T) {
	var d Debouncer

	assert.True(t, d.Accept(morse.Dash))
	assert.False(t, d.Accept(morse.Dash), "held gesture is one symbol")
	assert.Equal(t, morse.Dash, d.Last())

	assert.True(t, d.Accept(morse.Dot))
	assert.False(t, d.Accept(morse.None))
	assert.Equal(t, morse.None, d.Last())

	// same gesture after returning to neutral counts again
	assert.True(t, d.Accept(morse.Dot))

	d.Reset()
	assert.True(t, d.Accept(morse.Dot))
}
