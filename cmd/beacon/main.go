// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package main

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"os/signal"
	"runtime"
	"runtime/debug"
	"strings"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/relabs-tech/tilt_morse/internal/app"
	"github.com/relabs-tech/tilt_morse/internal/config"
	"github.com/relabs-tech/tilt_morse/internal/logging"
	"github.com/relabs-tech/tilt_morse/internal/morse"
	"github.com/relabs-tech/tilt_morse/internal/orientation"
)

const longHelp = `Key Morse code by tilting the board.

Tilt left for a dot, right for a dash, shake to close a letter and shake
twice to close a word. Symbols go out on the serial port, the buzzer and
the LED. The SOS button replaces whatever is queued with an SOS alarm.`

var exampleUsage = strings.TrimSpace(`
  beacon run --config ~/.tilt_morse/config.toml
  beacon run --mock --web-addr :8080 --log-level debug
  beacon decode ".-- .  .- .-. ."
  beacon encode "SOS"
  beacon watch --text "HELLO"
`)

func getVersion() string {
	if info, ok := debug.ReadBuildInfo(); ok && info.Main.Version != "" {
		return info.Main.Version
	}
	return "dev"
}

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	var cfgPath string

	root := &cobra.Command{
		Use:           "beacon",
		Short:         "Gesture-keyed Morse beacon",
		Long:          longHelp,
		Example:       exampleUsage,
		Version:       fmt.Sprintf("%s %s/%s", getVersion(), runtime.GOOS, runtime.GOARCH),
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().StringVar(&cfgPath, "config", "", "config file (default ~/.tilt_morse/config.toml)")
	cf := newConfigFlags(root.PersistentFlags())

	load := func(cmd *cobra.Command) (*config.Config, app.RunOptions, error) {
		opts, err := loadOptions(cmd, cf, cfgPath)
		if err != nil {
			return nil, opts, err
		}
		cfg, err := config.Build(opts.ConfigPath, opts.Changed, opts.Flags)
		if err != nil {
			return nil, opts, err
		}
		if err := logging.SetLevel(cfg.LogLevel); err != nil {
			return nil, opts, err
		}
		return cfg, opts, nil
	}

	root.AddCommand(
		&cobra.Command{
			Use:   "run",
			Short: "Run the beacon",
			RunE: func(cmd *cobra.Command, args []string) error {
				cfg, opts, err := load(cmd)
				if err != nil {
					return report(err)
				}
				log := logging.For("main")
				log.Info().Interface("config", cfg).Msg("configuration")

				ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
				defer stop()
				return report(app.RunBeacon(ctx, cfg, opts))
			},
		},
		newDecodeCmd(),
		newEncodeCmd(),
		&cobra.Command{
			Use:   "console",
			Short: "Print the events a running beacon mirrors to MQTT",
			RunE: func(cmd *cobra.Command, args []string) error {
				cfg, _, err := load(cmd)
				if err != nil {
					return report(err)
				}
				ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
				defer stop()
				return report(app.RunConsoleMQTT(ctx, cfg, cmd.OutOrStdout()))
			},
		},
		newWatchCmd(load),
	)
	return root
}

// loadOptions resolves the config file and the flag layer. An explicit
// --config must exist; the default path is used only if present.
func loadOptions(cmd *cobra.Command, cf *configFlags, cfgPath string) (app.RunOptions, error) {
	opts := app.RunOptions{Out: cmd.OutOrStdout()}
	switch {
	case cfgPath != "":
		opts.ConfigPath = cfgPath
	case config.FileExists(config.DefaultPath()):
		opts.ConfigPath = config.DefaultPath()
	}

	opts.Changed = changedFlags(cmd.Flags())
	if opts.Changed["preset"] {
		if _, ok := morse.Preset(*cf.preset); !ok {
			return opts, fmt.Errorf("%w: unknown timing preset %q", config.ErrInvalid, *cf.preset)
		}
	}
	opts.Flags = cf.applier(opts.Changed)
	return opts, nil
}

func report(err error) error {
	if err != nil {
		l := logging.For("main")
		l.Error().Err(err).Msg("exiting")
	}
	return err
}

func newDecodeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "decode [tokens...]",
		Short: "Decode dot/dash tokens (one space between letters, two between words)",
		Long:  "Decode dot/dash tokens. With no arguments each line of stdin is decoded.",
		RunE: func(cmd *cobra.Command, args []string) error {
			return convert(cmd, args, morse.Decode)
		},
	}
}

func newEncodeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "encode [text...]",
		Short: "Encode text as dot/dash tokens",
		Long:  "Encode text as dot/dash tokens. With no arguments each line of stdin is encoded.",
		RunE: func(cmd *cobra.Command, args []string) error {
			return convert(cmd, args, morse.EncodeText)
		},
	}
}

func convert(cmd *cobra.Command, args []string, fn func(string) string) error {
	out := cmd.OutOrStdout()
	if len(args) > 0 {
		_, err := fmt.Fprintln(out, fn(strings.Join(args, " ")))
		return err
	}
	return convertLines(cmd.InOrStdin(), out, fn)
}

func convertLines(in io.Reader, out io.Writer, fn func(string) string) error {
	sc := bufio.NewScanner(in)
	for sc.Scan() {
		if _, err := fmt.Fprintln(out, fn(sc.Text())); err != nil {
			return err
		}
	}
	return sc.Err()
}

func newWatchCmd(load func(*cobra.Command) (*config.Config, app.RunOptions, error)) *cobra.Command {
	var (
		text string
		hold time.Duration
	)
	cmd := &cobra.Command{
		Use:   "watch",
		Short: "Show what the classifier makes of a scripted gesture sequence",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, _, err := load(cmd)
			if err != nil {
				return report(err)
			}
			tokens := morse.EncodeText(text)
			if tokens == "" {
				return fmt.Errorf("watch: nothing to key in %q", text)
			}
			src := orientation.NewMockSource(orientation.Script(tokens, hold))

			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()
			return report(app.RunMockConsole(ctx, cmd.OutOrStdout(), src, cfg.Bands(), cfg.ClassifierInterval))
		},
	}
	cmd.Flags().StringVar(&text, "text", app.MockText, "text to key")
	cmd.Flags().DurationVar(&hold, "hold", 400*time.Millisecond, "how long each gesture is held")
	return cmd
}
