// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package app

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"

	"github.com/relabs-tech/tilt_morse/internal/pipeline"
	"github.com/relabs-tech/tilt_morse/internal/sched"
)

const (
	clientBuffer = 32
	writeWait    = 2 * time.Second
)

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool {
		return true // local monitoring page
	},
}

// StatusResponse is served on /api/status.
type StatusResponse struct {
	Pipeline   pipeline.Stats             `json:"pipeline"`
	Transcript TranscriptSnapshot         `json:"transcript"`
	Tasks      map[string]sched.TaskStats `json:"tasks,omitempty"`
	Dropped    uint64                     `json:"ws_dropped"`
}

// SOSResponse is served on POST /api/sos.
type SOSResponse struct {
	Override pipeline.Override `json:"override"`
	Started  bool              `json:"started"`
}

// StatusServer serves the pipeline status, a manual alarm trigger and a
// websocket feed of pipeline events.
type StatusServer struct {
	beacon *Beacon
	hub    *eventHub
	log    zerolog.Logger
}

// NewStatusServer subscribes to b's events.
func NewStatusServer(b *Beacon, log zerolog.Logger) *StatusServer {
	s := &StatusServer{
		beacon: b,
		hub:    newEventHub(),
		log:    log.With().Str("component", "web").Logger(),
	}
	b.Subscribe(s.hub.publish)
	return s
}

// Handler returns the HTTP routes.
func (s *StatusServer) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /api/status", s.handleStatus)
	mux.HandleFunc("POST /api/sos", s.handleSOS)
	mux.HandleFunc("GET /ws/events", s.handleEvents)
	return mux
}

// Run serves on addr until ctx is done. Failing to listen is fatal.
func (s *StatusServer) Run(ctx context.Context, addr string) error {
	srv := &http.Server{Addr: addr, Handler: s.Handler(), ReadHeaderTimeout: 5 * time.Second}
	errc := make(chan error, 1)
	go func() { errc <- srv.ListenAndServe() }()
	s.log.Info().Str("addr", addr).Msg("status server listening")

	select {
	case err := <-errc:
		s.hub.close()
		return sched.Fatal(fmt.Errorf("status server: %w", err))
	case <-ctx.Done():
	}

	s.hub.close()
	shutdownCtx, cancel := context.WithTimeout(context.Background(), writeWait)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("status server shutdown: %w", err)
	}
	return nil
}

func (s *StatusServer) handleStatus(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, http.StatusOK, StatusResponse{
		Pipeline:   s.beacon.Stats(),
		Transcript: s.beacon.Transcript(),
		Tasks:      s.beacon.TaskStats(),
		Dropped:    s.hub.droppedCount(),
	})
}

func (s *StatusServer) handleSOS(w http.ResponseWriter, r *http.Request) {
	ov, started := s.beacon.TriggerSOS()
	code := http.StatusOK
	if started {
		code = http.StatusAccepted
		s.log.Info().Str("override_id", ov.ID).Str("remote", r.RemoteAddr).Msg("alarm requested over HTTP")
	}
	s.writeJSON(w, code, SOSResponse{Override: ov, Started: started})
}

func (s *StatusServer) writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		s.log.Warn().Err(err).Msg("json encode error")
	}
}

func (s *StatusServer) handleEvents(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.log.Warn().Err(err).Msg("websocket upgrade failed")
		return
	}
	defer conn.Close()

	events, cancel := s.hub.subscribe()
	defer cancel()
	s.log.Debug().Str("remote", r.RemoteAddr).Msg("event client connected")

	// the client never sends; reading only notices it going away
	gone := make(chan struct{})
	go func() {
		defer close(gone)
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	for {
		select {
		case <-gone:
			return
		case ev, ok := <-events:
			if !ok {
				_ = conn.WriteControl(websocket.CloseMessage,
					websocket.FormatCloseMessage(websocket.CloseGoingAway, "shutting down"),
					time.Now().Add(writeWait))
				return
			}
			_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := conn.WriteJSON(ev); err != nil {
				s.log.Debug().Err(err).Msg("event client write failed")
				return
			}
		}
	}
}

// eventHub fans pipeline events out to websocket clients. A client that
// falls behind loses events rather than stalling the publisher.
type eventHub struct {
	mu      sync.Mutex
	clients map[chan pipeline.Event]struct{}
	closed  bool
	dropped uint64
}

func newEventHub() *eventHub {
	return &eventHub{clients: make(map[chan pipeline.Event]struct{})}
}

func (h *eventHub) publish(ev pipeline.Event) {
	h.mu.Lock()
	defer h.mu.Unlock()
	for ch := range h.clients {
		select {
		case ch <- ev:
		default:
			h.dropped++
		}
	}
}

func (h *eventHub) subscribe() (<-chan pipeline.Event, func()) {
	h.mu.Lock()
	defer h.mu.Unlock()
	ch := make(chan pipeline.Event, clientBuffer)
	if h.closed {
		close(ch)
		return ch, func() {}
	}
	h.clients[ch] = struct{}{}
	return ch, func() {
		h.mu.Lock()
		defer h.mu.Unlock()
		if _, ok := h.clients[ch]; ok {
			delete(h.clients, ch)
			close(ch)
		}
	}
}

func (h *eventHub) close() {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.closed = true
	for ch := range h.clients {
		delete(h.clients, ch)
		close(ch)
	}
}

func (h *eventHub) droppedCount() uint64 {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.dropped
}
