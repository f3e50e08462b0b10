package app

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/relabs-tech/tilt_morse/internal/morse"
	"github.com/relabs-tech/tilt_morse/internal/pipeline"
)

type doneToken struct{ err error }

func (t doneToken) Wait() bool                     { return true }
func (t doneToken) WaitTimeout(time.Duration) bool { return true }
func (t doneToken) Error() error                   { return t.err }
func (t doneToken) Done() <-chan struct{} {
	ch := make(chan struct{})
	close(ch)
	return ch
}

type message struct {
	topic    string
	retained bool
	payload  string
}

type fakePublisher struct {
	mu   sync.Mutex
	msgs []message
	err  error
}

func (p *fakePublisher) Publish(topic string, _ byte, retained bool, payload interface{}) mqtt.Token {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.msgs = append(p.msgs, message{topic, retained, string(payload.([]byte))})
	return doneToken{err: p.err}
}

func (p *fakePublisher) sent() []message {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]message(nil), p.msgs...)
}

func TestEventMirrorTopics(t *testing.T) {
	pub := &fakePublisher{}
	snap := TranscriptSnapshot{Text: "SO", Pending: "..."}
	m := NewEventMirror(pub, "tiltmorse", func() TranscriptSnapshot { return snap }, zerolog.Nop())

	m.mirror(pipeline.Event{Kind: pipeline.EventState, From: pipeline.StateIdle, State: pipeline.StateClassifying})
	m.mirror(pipeline.Event{Kind: pipeline.EventSymbol, Symbol: morse.Dot, State: pipeline.StateSymbolReady})
	m.mirror(pipeline.Event{Kind: pipeline.EventOverflow, Symbol: morse.Dash, Consumer: pipeline.Audio})

	msgs := pub.sent()
	require.Len(t, msgs, 5)

	assert.Equal(t, "tiltmorse/events/state", msgs[0].topic)
	assert.False(t, msgs[0].retained)
	assert.Equal(t, message{"tiltmorse/state", true, "CLASSIFYING"}, msgs[1])

	assert.Equal(t, "tiltmorse/events/symbol", msgs[2].topic)
	var ev map[string]any
	require.NoError(t, json.Unmarshal([]byte(msgs[2].payload), &ev))
	assert.Equal(t, "DOT", ev["symbol"])

	assert.Equal(t, "tiltmorse/transcript", msgs[3].topic)
	assert.True(t, msgs[3].retained)
	assert.JSONEq(t, `{"state":"IDLE","text":"SO","pending":"..."}`, msgs[3].payload)

	assert.Equal(t, "tiltmorse/events/overflow", msgs[4].topic)
}

func TestEventMirrorRun(t *testing.T) {
	pub := &fakePublisher{err: errors.New("not connected")}
	m := NewEventMirror(pub, "p", nil, zerolog.Nop())

	// never blocks, even with nobody publishing
	for i := 0; i < mirrorBuffer+10; i++ {
		m.Observe(pipeline.Event{Kind: pipeline.EventOverrideIgnored})
	}

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- m.Run(ctx) }()

	require.Eventually(t, func() bool { return len(pub.sent()) == mirrorBuffer }, time.Second, 5*time.Millisecond)
	cancel()
	assert.NoError(t, <-done)
	assert.Equal(t, "p/events/override_ignored", pub.sent()[0].topic)
}

func TestFormatConsoleLine(t *testing.T) {
	tests := []struct {
		name    string
		topic   string
		payload string
		want    string
		wantErr bool
	}{
		{"state", "state", "RENDERING", "[STATE] RENDERING", false},
		{"transcript", "transcript", `{"text":"SOS","pending":"-"}`, `[TEXT ] "SOS"  pending="-"`, false},
		{"symbol", "events/symbol", `{"kind":"symbol","symbol":"DASH","state":"SYMBOL_READY"}`, "[SYM  ] DASH     state=SYMBOL_READY", false},
		{"edge from idle", "events/state", `{"kind":"state","state":"CLASSIFYING"}`, "[EDGE ] IDLE -> CLASSIFYING", false},
		{"overflow", "events/overflow", `{"kind":"overflow","symbol":"DOT","consumer":"visual"}`, "[DROP ] DOT (queue visual full)", false},
		{"alarm", "events/override_started", `{"kind":"override_started","override_id":"abc"}`, "[SOS  ] OVERRIDE_STARTED id=abc", false},
		{"other", "misc", "x", "[misc] x", false},
		{"bad event", "events/symbol", "{", "", true},
		{"bad transcript", "transcript", "[]", "", true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := formatConsoleLine(tt.topic, []byte(tt.payload))
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}
