// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/relabs-tech/tilt_morse/internal/app"
	"github.com/relabs-tech/tilt_morse/internal/config"
	"github.com/relabs-tech/tilt_morse/internal/logging"
)

func main() {
	log := logging.For("console")
	log.Info().Msg("starting tilt_morse console (MQTT subscriber)")

	path := ""
	if config.FileExists(config.DefaultPath()) {
		path = config.DefaultPath()
	}
	if err := config.InitGlobal(path); err != nil {
		log.Fatal().Err(err).Msg("failed to load config")
	}
	cfg := config.Get()
	if err := logging.SetLevel(cfg.LogLevel); err != nil {
		log.Fatal().Err(err).Msg("bad log level")
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()
	if err := app.RunConsoleMQTT(ctx, cfg, os.Stdout); err != nil {
		log.Fatal().Err(err).Msg("fatal")
	}
}
