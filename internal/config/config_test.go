package config

import (
	"context"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const sampleTOML = `
[classifier]
dash_low = 75.0
dash_high = 105.0
release_margin = 0.0

[timing]
preset = "slow"
gap = "150ms"

[cadence]
audio = "50ms"

[queue]
capacity = 20

[audio]
melody_enabled = false

[hardware]
mock = true

[mqtt]
broker = "tcp://localhost:1883"

[log]
level = "debug"
`

func writeFile(t *testing.T, dir, body string) string {
	t.Helper()
	p := filepath.Join(dir, "config.toml")
	require.NoError(t, os.WriteFile(p, []byte(body), 0o644))
	return p
}

func TestDefaultConfigIsValid(t *testing.T) {
	cfg := DefaultConfig()
	require.NoError(t, cfg.Validate())
	assert.Equal(t, 60.0, cfg.DashLow)
	assert.Equal(t, 100*time.Millisecond, cfg.Dot)
	assert.Equal(t, 15, cfg.QueueCapacity)
}

func TestLoadFile(t *testing.T) {
	p := writeFile(t, t.TempDir(), sampleTOML)

	cfg, err := Load(p)
	require.NoError(t, err)

	assert.Equal(t, 75.0, cfg.DashLow)
	assert.Equal(t, 105.0, cfg.DashHigh)
	assert.Zero(t, cfg.ReleaseMargin)
	assert.Equal(t, "slow", cfg.TimingPreset)
	assert.Equal(t, 200*time.Millisecond, cfg.Dot, "from preset")
	assert.Equal(t, 150*time.Millisecond, cfg.Gap, "explicit value beats preset")
	assert.Equal(t, 50*time.Millisecond, cfg.AudioInterval)
	assert.Equal(t, 20, cfg.QueueCapacity)
	assert.False(t, cfg.Melody)
	assert.True(t, cfg.Mock)
	assert.Equal(t, "tcp://localhost:1883", cfg.MQTTBroker)
	assert.Equal(t, "debug", cfg.LogLevel)

	b := cfg.Bands()
	assert.Equal(t, 75.0, b.DashLow)
	assert.Equal(t, cfg.Gap, cfg.Timing().Gap)
}

func TestPrecedence(t *testing.T) {
	p := writeFile(t, t.TempDir(), sampleTOML)
	t.Setenv("TILTMORSE_DASH_LOW", "70")
	t.Setenv("TILTMORSE_QUEUE_CAPACITY", "30")
	t.Setenv("TILTMORSE_LOG_LEVEL", "warn")

	changed := map[string]bool{"log-level": true}
	cfg, err := Build(p, changed, func(c *Config) { c.LogLevel = "error" })
	require.NoError(t, err)

	assert.Equal(t, 70.0, cfg.DashLow, "env beats file")
	assert.Equal(t, 30, cfg.QueueCapacity)
	assert.Equal(t, "error", cfg.LogLevel, "flag beats env and file")
}

func TestLoadRejectsInvalid(t *testing.T) {
	tests := []struct {
		name string
		body string
	}{
		{"inverted band", "[classifier]\ndash_low = 120.0\ndash_high = 60.0\n[hardware]\nmock = true\n"},
		{"unknown preset", "[timing]\npreset = \"warp\"\n"},
		{"dash not longer than dot", "[timing]\ndot = \"300ms\"\ndash = \"300ms\"\n[hardware]\nmock = true\n"},
		{"capacity below alarm", "[queue]\ncapacity = 5\n[hardware]\nmock = true\n"},
		{"bad duration", "[cadence]\nvisual = \"soon\"\n"},
		{"not toml", "this is = = not toml"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := writeFile(t, t.TempDir(), tt.body)
			_, err := Load(p)
			assert.Error(t, err)
		})
	}

	_, err := Load(filepath.Join(t.TempDir(), "missing.toml"))
	assert.Error(t, err)
}

func TestValidateHardware(t *testing.T) {
	cfg := DefaultConfig()
	cfg.SerialPort = ""
	assert.ErrorIs(t, cfg.Validate(), ErrInvalid)

	cfg.Mock = true
	assert.NoError(t, cfg.Validate(), "mock mode needs no devices")
}

func TestEnvParseError(t *testing.T) {
	t.Setenv("TILTMORSE_MOCK", "maybe")
	_, err := Build("", nil, nil)
	assert.Error(t, err)
}

func TestInitGlobal(t *testing.T) {
	p := writeFile(t, t.TempDir(), sampleTOML)
	require.NoError(t, InitGlobal(p))
	assert.Equal(t, 75.0, Get().DashLow)

	// later calls are no-ops, even with a broken path
	require.NoError(t, InitGlobal(filepath.Join(t.TempDir(), "missing.toml")))
	assert.Equal(t, 75.0, Get().DashLow)
}

func TestReplaceAndGet(t *testing.T) {
	cfg := DefaultConfig()
	Replace(cfg)
	assert.Same(t, cfg, Get())
}

func TestWatcherReloads(t *testing.T) {
	dir := t.TempDir()
	p := writeFile(t, dir, "[hardware]\nmock = true\n")

	start := DefaultConfig()
	start.Mock = true
	Replace(start)

	var reloaded, previous atomic.Pointer[Config]
	w := NewWatcher(p, nil, nil, zerolog.Nop())

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	done := make(chan error, 1)
	go func() {
		done <- w.Run(ctx, func(old, c *Config) {
			previous.Store(old)
			reloaded.Store(c)
		})
	}()

	// give the watcher time to register the directory
	time.Sleep(50 * time.Millisecond)

	// an invalid edit is ignored
	writeFile(t, dir, "[hardware]\nmock = true\n[classifier]\ndash_low = 130.0\n")
	time.Sleep(3 * reloadDelay)
	assert.Nil(t, reloaded.Load())

	writeFile(t, dir, "[hardware]\nmock = true\n[classifier]\ndash_low = 45.0\n")
	require.Eventually(t, func() bool {
		c := reloaded.Load()
		return c != nil && c.DashLow == 45
	}, 2*time.Second, 20*time.Millisecond)
	assert.Equal(t, 45.0, Get().DashLow)
	assert.Same(t, start, previous.Load(), "the replaced config is handed over")

	cancel()
	assert.NoError(t, <-done)
}
