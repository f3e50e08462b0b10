// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package app

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"strings"

	mqtt "github.com/eclipse/paho.mqtt.golang"

	"github.com/relabs-tech/tilt_morse/internal/config"
	"github.com/relabs-tech/tilt_morse/internal/logging"
)

// consoleEvent mirrors pipeline.Event with the enum fields as text.
type consoleEvent struct {
	Kind       string `json:"kind"`
	Symbol     string `json:"symbol"`
	From       string `json:"from"`
	State      string `json:"state"`
	OverrideID string `json:"override_id"`
	Consumer   string `json:"consumer"`
}

// RunConsoleMQTT prints the beacon's mirrored events to w until ctx is
// done.
func RunConsoleMQTT(ctx context.Context, cfg *config.Config, w io.Writer) error {
	log := logging.For("console")
	if cfg.MQTTBroker == "" {
		return fmt.Errorf("console: %w: no MQTT broker configured", config.ErrInvalid)
	}

	client, err := ConnectMQTT(cfg.MQTTBroker, cfg.MQTTClientID+"-console")
	if err != nil {
		return err
	}
	defer client.Disconnect(250)
	log.Info().Str("broker", cfg.MQTTBroker).Msg("connected to MQTT")

	prefix := cfg.MQTTTopicPrefix + "/"
	filter := prefix + "#"
	token := client.Subscribe(filter, 0, func(_ mqtt.Client, msg mqtt.Message) {
		line, err := formatConsoleLine(strings.TrimPrefix(msg.Topic(), prefix), msg.Payload())
		if err != nil {
			log.Warn().Err(err).Str("topic", msg.Topic()).Msg("unreadable message")
			return
		}
		fmt.Fprintln(w, line)
	})
	token.Wait()
	if token.Error() != nil {
		return fmt.Errorf("console: subscribe %s: %w", filter, token.Error())
	}
	log.Info().Str("topic", filter).Msg("subscribed")

	<-ctx.Done()
	log.Info().Msg("shutting down")
	return nil
}

// formatConsoleLine renders one mirrored message; topic is relative to the
// configured prefix.
func formatConsoleLine(topic string, payload []byte) (string, error) {
	switch {
	case topic == TopicState:
		return fmt.Sprintf("[STATE] %s", payload), nil

	case topic == TopicTranscript:
		var t struct {
			Text    string `json:"text"`
			Pending string `json:"pending"`
		}
		if err := json.Unmarshal(payload, &t); err != nil {
			return "", fmt.Errorf("transcript: %w", err)
		}
		return fmt.Sprintf("[TEXT ] %q  pending=%q", t.Text, t.Pending), nil

	case strings.HasPrefix(topic, TopicEvents+"/"):
		var ev consoleEvent
		if err := json.Unmarshal(payload, &ev); err != nil {
			return "", fmt.Errorf("event: %w", err)
		}
		switch ev.Kind {
		case "symbol":
			return fmt.Sprintf("[SYM  ] %-8s state=%s", ev.Symbol, ev.State), nil
		case "state":
			if ev.From == "" {
				ev.From = "IDLE" // zero value is omitted
			}
			return fmt.Sprintf("[EDGE ] %s -> %s", ev.From, ev.State), nil
		case "overflow":
			return fmt.Sprintf("[DROP ] %s (queue %s full)", ev.Symbol, ev.Consumer), nil
		default:
			return fmt.Sprintf("[SOS  ] %s id=%s", strings.ToUpper(ev.Kind), ev.OverrideID), nil
		}

	default:
		return fmt.Sprintf("[%s] %s", topic, payload), nil
	}
}
