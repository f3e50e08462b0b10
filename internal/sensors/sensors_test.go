package sensors

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"periph.io/x/conn/v3/gpio"
	"periph.io/x/conn/v3/gpio/gpiotest"
	"periph.io/x/conn/v3/physic"
)

type fakeAccel struct {
	x, y, z int16
	err     error
}

func (f fakeAccel) GetAccelerationX() (int16, error) { return f.x, f.err }
func (f fakeAccel) GetAccelerationY() (int16, error) { return f.y, nil }
func (f fakeAccel) GetAccelerationZ() (int16, error) { return f.z, nil }

func TestIMUSourceNext(t *testing.T) {
	src := &IMUSource{name: "test", dev: fakeAccel{y: 16384}}
	s, err := src.Next()
	require.NoError(t, err)
	assert.InDelta(t, 90, s.Roll, 1e-9)
	assert.InDelta(t, 0, s.VerticalAccel, 1e-9)

	src = &IMUSource{name: "test", dev: fakeAccel{z: 16384}}
	raw, err := src.ReadRaw()
	require.NoError(t, err)
	_, _, az := raw.G()
	assert.InDelta(t, 1, az, 1e-9)

	src = &IMUSource{name: "test", dev: fakeAccel{err: errors.New("spi")}}
	_, err = src.Next()
	assert.ErrorContains(t, err, "test IMU accel X")
}

func TestLED(t *testing.T) {
	p := &gpiotest.Pin{N: "LED", L: gpio.High}
	led, err := NewLED(p)
	require.NoError(t, err)
	assert.Equal(t, gpio.Low, p.L, "off after open")

	require.NoError(t, led.Set(true))
	assert.Equal(t, gpio.High, p.L)
	require.NoError(t, led.Set(false))
	assert.Equal(t, gpio.Low, p.L)
}

func TestBuzzer(t *testing.T) {
	p := &gpiotest.Pin{N: "BUZZ"}
	b, err := NewBuzzer(p)
	require.NoError(t, err)

	require.NoError(t, b.Play(1000*physic.Hertz))
	assert.Equal(t, gpio.DutyHalf, p.D)
	assert.Equal(t, 1000*physic.Hertz, p.F)

	require.NoError(t, b.Stop())
	assert.Equal(t, gpio.Low, p.L)
}

func TestButtonDebounce(t *testing.T) {
	p := &gpiotest.Pin{N: "BTN", EdgesChan: make(chan gpio.Level, 4)}
	btn, err := NewButton(p, zerolog.Nop())
	require.NoError(t, err)
	assert.Equal(t, gpio.PullUp, p.P)

	var presses atomic.Int32
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- btn.Watch(ctx, func() { presses.Add(1) }) }()

	// contact bounce: three edges in quick succession
	p.EdgesChan <- gpio.Low
	p.EdgesChan <- gpio.Low
	p.EdgesChan <- gpio.Low
	require.Eventually(t, func() bool { return presses.Load() == 1 }, time.Second, 5*time.Millisecond)

	time.Sleep(btn.debounce + 50*time.Millisecond)
	p.EdgesChan <- gpio.Low
	require.Eventually(t, func() bool { return presses.Load() == 2 }, time.Second, 5*time.Millisecond)

	cancel()
	assert.NoError(t, <-done)
}

func TestMockSinks(t *testing.T) {
	l := NewMockLight(zerolog.Nop())
	require.NoError(t, l.Set(true))
	assert.True(t, l.On())

	tone := NewMockTone(zerolog.Nop())
	require.NoError(t, tone.Play(440*physic.Hertz))
	assert.Equal(t, 440*physic.Hertz, tone.Frequency())
	require.NoError(t, tone.Stop())
	assert.Zero(t, tone.Frequency())
}
