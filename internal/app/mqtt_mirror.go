// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package app

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"
	"github.com/rs/zerolog"

	"github.com/relabs-tech/tilt_morse/internal/pipeline"
)

const (
	mirrorBuffer   = 64
	publishTimeout = 2 * time.Second
)

// Topic suffixes under the configured prefix.
const (
	TopicEvents     = "events"
	TopicState      = "state"
	TopicTranscript = "transcript"
)

// Publisher is the part of the MQTT client the mirror uses.
type Publisher interface {
	Publish(topic string, qos byte, retained bool, payload interface{}) mqtt.Token
}

// ConnectMQTT connects to broker and waits for the handshake.
func ConnectMQTT(broker, clientID string) (mqtt.Client, error) {
	opts := mqtt.NewClientOptions().
		AddBroker(broker).
		SetClientID(clientID).
		SetAutoReconnect(true)

	client := mqtt.NewClient(opts)
	if token := client.Connect(); token.Wait() && token.Error() != nil {
		return nil, fmt.Errorf("MQTT connect %s: %w", broker, token.Error())
	}
	return client, nil
}

// EventMirror republishes pipeline events on MQTT:
//
//	<prefix>/events/<kind>  every event, JSON
//	<prefix>/state          pipeline state name, retained
//	<prefix>/transcript     decoded text, retained, after each symbol
type EventMirror struct {
	pub        Publisher
	prefix     string
	transcript func() TranscriptSnapshot
	log        zerolog.Logger

	events chan pipeline.Event
}

// NewEventMirror publishes through pub. transcript may be nil.
func NewEventMirror(pub Publisher, prefix string, transcript func() TranscriptSnapshot, log zerolog.Logger) *EventMirror {
	return &EventMirror{
		pub:        pub,
		prefix:     prefix,
		transcript: transcript,
		log:        log.With().Str("component", "mqtt").Logger(),
		events:     make(chan pipeline.Event, mirrorBuffer),
	}
}

// Observe queues ev for publishing. It never blocks; when the broker is
// slow events are dropped.
func (m *EventMirror) Observe(ev pipeline.Event) {
	select {
	case m.events <- ev:
	default:
		m.log.Warn().Str("kind", string(ev.Kind)).Msg("mirror behind, event dropped")
	}
}

// Run publishes queued events until ctx is done.
func (m *EventMirror) Run(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			return nil
		case ev := <-m.events:
			m.mirror(ev)
		}
	}
}

func (m *EventMirror) mirror(ev pipeline.Event) {
	payload, err := json.Marshal(ev)
	if err != nil {
		m.log.Warn().Err(err).Msg("json marshal error (event)")
		return
	}
	m.publish(m.topic(TopicEvents, string(ev.Kind)), false, payload)

	switch ev.Kind {
	case pipeline.EventState:
		m.publish(m.topic(TopicState), true, []byte(ev.State.String()))
	case pipeline.EventSymbol, pipeline.EventOverrideStarted:
		if m.transcript == nil {
			return
		}
		payload, err := json.Marshal(m.transcript())
		if err != nil {
			m.log.Warn().Err(err).Msg("json marshal error (transcript)")
			return
		}
		m.publish(m.topic(TopicTranscript), true, payload)
	}
}

func (m *EventMirror) publish(topic string, retained bool, payload []byte) {
	token := m.pub.Publish(topic, 0, retained, payload)
	if !token.WaitTimeout(publishTimeout) {
		m.log.Warn().Str("topic", topic).Msg("MQTT publish timed out")
		return
	}
	if err := token.Error(); err != nil {
		m.log.Warn().Err(err).Str("topic", topic).Msg("MQTT publish error")
	}
}

func (m *EventMirror) topic(parts ...string) string {
	t := m.prefix
	for _, p := range parts {
		t += "/" + p
	}
	return t
}
