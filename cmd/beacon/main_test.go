package main

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/spf13/cobra"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/relabs-tech/tilt_morse/internal/config"
)

func execute(t *testing.T, stdin string, args ...string) (string, error) {
	t.Helper()
	root := newRootCmd()
	var out bytes.Buffer
	root.SetOut(&out)
	root.SetErr(&out)
	root.SetIn(strings.NewReader(stdin))
	root.SetArgs(args)
	err := root.Execute()
	return out.String(), err
}

func TestDecodeCommand(t *testing.T) {
	out, err := execute(t, "", "decode", ".-- .  .- .-. .")
	require.NoError(t, err)
	assert.Equal(t, "WE ARE\n", out)

	out, err = execute(t, "... --- ...\n. . _ _\n", "decode")
	require.NoError(t, err)
	assert.Equal(t, "SOS\nEE??\n", out)
}

func TestEncodeCommand(t *testing.T) {
	out, err := execute(t, "", "encode", "sos", "now")
	require.NoError(t, err)
	assert.Equal(t, "... --- ...  -. --- .--\n", out)
}

// parse builds a command carrying the config flags and parses args.
func parse(t *testing.T, args ...string) (*cobra.Command, *configFlags) {
	t.Helper()
	cmd := &cobra.Command{Use: "test"}
	cf := newConfigFlags(cmd.Flags())
	require.NoError(t, cmd.ParseFlags(args))
	return cmd, cf
}

func TestLoadOptionsPrecedence(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.toml")
	require.NoError(t, os.WriteFile(path, []byte(`
[classifier]
dash_low = 50.0
dash_high = 110.0

[timing]
preset = "slow"
`), 0o644))

	cmd, cf := parse(t, "--dash-low", "70", "--preset", "fast", "--dot", "50ms", "--log-level", "debug")
	opts, err := loadOptions(cmd, cf, path)
	require.NoError(t, err)
	assert.Equal(t, path, opts.ConfigPath)
	assert.True(t, opts.Changed["dash-low"])
	assert.False(t, opts.Changed["dash-high"])

	cfg, err := config.Build(opts.ConfigPath, opts.Changed, opts.Flags)
	require.NoError(t, err)
	assert.Equal(t, 70.0, cfg.DashLow, "flag")
	assert.Equal(t, 110.0, cfg.DashHigh, "file")
	assert.Equal(t, "fast", cfg.TimingPreset, "flag preset replaces the file preset")
	assert.Equal(t, 50*time.Millisecond, cfg.Dot, "explicit duration wins over the preset")
	assert.Equal(t, 180*time.Millisecond, cfg.Dash, "fast preset")
	assert.Equal(t, "debug", cfg.LogLevel)
}

func TestUnknownPresetFlag(t *testing.T) {
	cmd, cf := parse(t, "--preset", "glacial")
	_, err := loadOptions(cmd, cf, "")
	assert.ErrorIs(t, err, config.ErrInvalid)
}
