package sched

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewValidatesTasks(t *testing.T) {
	noop := func(context.Context) error { return nil }

	tests := []struct {
		name  string
		tasks []Task
	}{
		{"missing run", []Task{{Name: "a", Every: time.Second}}},
		{"negative interval", []Task{{Name: "a", Every: -1, Run: noop}}},
		{"duplicate", []Task{{Name: "a", Every: time.Second, Run: noop}, {Name: "a", Every: time.Second, Run: noop}}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := New(zerolog.Nop(), tt.tasks...)
			assert.Error(t, err)
		})
	}
}

func TestRunTicksUntilCancelled(t *testing.T) {
	var fast, failing atomic.Int32
	s, err := New(zerolog.Nop(),
		Task{Name: "fast", Every: 5 * time.Millisecond, Run: func(context.Context) error {
			fast.Add(1)
			return nil
		}},
		Task{Name: "failing", Every: 5 * time.Millisecond, Run: func(context.Context) error {
			failing.Add(1)
			return errors.New("sink unplugged")
		}},
	)
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- s.Run(ctx) }()

	require.Eventually(t, func() bool {
		return fast.Load() >= 3 && failing.Load() >= 3
	}, 2*time.Second, 5*time.Millisecond, "a failing task keeps running")

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("scheduler did not stop")
	}

	st := s.Stats()
	assert.GreaterOrEqual(t, st["failing"].Failures, uint64(3))
	assert.Equal(t, "sink unplugged", st["failing"].LastErr)
	assert.Zero(t, st["fast"].Failures)
}

func TestFatalStopsEverything(t *testing.T) {
	boom := errors.New("sensor gone")
	var other atomic.Int32

	s, err := New(zerolog.Nop(),
		Task{Name: "sensor", Every: 5 * time.Millisecond, Run: func(context.Context) error {
			return Fatal(boom)
		}},
		Task{Name: "reader", Run: func(ctx context.Context) error {
			other.Add(1)
			<-ctx.Done()
			return ctx.Err()
		}},
	)
	require.NoError(t, err)

	err = s.Run(context.Background())
	require.ErrorIs(t, err, ErrFatal)
	assert.ErrorIs(t, err, boom)
	assert.EqualValues(t, 1, other.Load())
}

func TestFatalNil(t *testing.T) {
	assert.NoError(t, Fatal(nil))
}
