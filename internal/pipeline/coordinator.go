// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

// Package pipeline owns the shared state of the gesture-to-Morse pipeline:
// the debounce memory, one bounded symbol queue per consumer and the alarm
// override. Producers and renderers only reach that state through the
// Coordinator's methods, all of which run under a single mutex.
//
// Symbols are fanned out at enqueue time, so each renderer drains and clears
// only its own copy. An override replaces every copy with the alarm
// sequence and bumps the epoch; a renderer holding an older batch sees
// Preempted and stops at the next symbol boundary.
package pipeline

import (
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/relabs-tech/tilt_morse/internal/gesture"
	"github.com/relabs-tech/tilt_morse/internal/morse"
)

// DefaultCapacity is the per-consumer queue length of the reference device.
const DefaultCapacity = 15

var (
	ErrQueueFull        = errors.New("pipeline: symbol queue full")
	ErrInvalidSymbol    = errors.New("pipeline: symbol cannot be queued")
	ErrOverrideActive   = errors.New("pipeline: override active")
	ErrUnknownConsumer  = errors.New("pipeline: unknown consumer")
	ErrConsumerExists   = errors.New("pipeline: consumer already registered")
	ErrCapacityTooSmall = errors.New("pipeline: capacity below alarm length")
)

// Options configures a Coordinator.
type Options struct {
	Capacity int
	Logger   zerolog.Logger
	Now      func() time.Time
}

type consumer struct {
	id       ConsumerID
	required bool
	queue    []morse.Symbol
	inFlight bool

	// overrideLeft counts the leading queue entries that are alarm symbols.
	overrideLeft int
	overrideID   string

	sent, dropped, rendered uint64
}

type overrideState struct {
	active  bool
	current Override
	pending map[ConsumerID]bool
}

// Coordinator is the single owner of queue, debounce and override state.
type Coordinator struct {
	mu sync.Mutex

	capacity  int
	consumers map[ConsumerID]*consumer
	order     []ConsumerID

	debounce    gesture.Debouncer
	classifying bool
	override    overrideState
	epoch       uint64
	state       State

	accepted, suppressed, overflowed uint64
	requested, ignored, fulfilled    uint64

	listeners  []func(Event)
	seq        uint64
	outbox     []Event
	delivering bool

	log zerolog.Logger
	now       func() time.Time
}

// New creates a Coordinator with no consumers.
func New(opts Options) (*Coordinator, error) {
	if opts.Capacity == 0 {
		opts.Capacity = DefaultCapacity
	}
	if opts.Capacity < morse.AlarmLen {
		return nil, fmt.Errorf("%w: %d < %d", ErrCapacityTooSmall, opts.Capacity, morse.AlarmLen)
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	return &Coordinator{
		capacity:  opts.Capacity,
		consumers: make(map[ConsumerID]*consumer),
		log:       opts.Logger.With().Str("component", "pipeline").Logger(),
		now:       opts.Now,
	}, nil
}

// Register adds a consumer with its own queue copy. Required consumers
// must finish rendering the alarm before the override is fulfilled.
func (c *Coordinator) Register(id ConsumerID, required bool) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if _, exists := c.consumers[id]; exists {
		return fmt.Errorf("%w: %s", ErrConsumerExists, id)
	}
	c.consumers[id] = &consumer{
		id:       id,
		required: required,
		queue:    make([]morse.Symbol, 0, c.capacity),
	}
	c.order = append(c.order, id)
	return nil
}

// Subscribe registers fn for every event. Events reach fn one at a time,
// outside the lock and in Seq order, so fn sees transitions in the order
// they happened. fn must not block.
func (c *Coordinator) Subscribe(fn func(Event)) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.listeners = append(c.listeners, fn)
}

// Offer runs a fresh classification through the debounce filter and
// queues it on a change. It reports whether a symbol was queued.
// While an override is active the debounce memory still tracks the
// gesture but nothing is queued.
func (c *Coordinator) Offer(s morse.Symbol) (bool, error) {
	c.mu.Lock()
	var events []Event

	if s == c.debounce.Last() {
		// unchanged classification
		c.mu.Unlock()
		return false, nil
	}

	c.classifying = true
	events = c.transitionLocked(events)

	accepted := c.debounce.Accept(s)
	var err error
	switch {
	case !accepted:
	case c.override.active:
		c.suppressed++
		accepted = false
	default:
		events, err = c.enqueueLocked(s, events)
		accepted = err == nil
	}

	c.classifying = false
	events = c.transitionLocked(events)
	c.unlockAndPublish(events)
	return accepted, err
}

// EnqueueSymbol queues s on every consumer copy, bypassing the debounce
// filter. The queue is all-or-nothing: if any copy is full the symbol is
// dropped everywhere and ErrQueueFull is returned.
func (c *Coordinator) EnqueueSymbol(s morse.Symbol) error {
	c.mu.Lock()
	if c.override.active {
		c.suppressed++
		c.mu.Unlock()
		return ErrOverrideActive
	}
	events, err := c.enqueueLocked(s, nil)
	events = c.transitionLocked(events)
	c.unlockAndPublish(events)
	return err
}

func (c *Coordinator) enqueueLocked(s morse.Symbol, events []Event) ([]Event, error) {
	if !s.Valid() {
		return events, fmt.Errorf("%w: %s", ErrInvalidSymbol, s)
	}
	for _, id := range c.order {
		if len(c.consumers[id].queue) >= c.capacity {
			c.overflowed++
			for _, cid := range c.order {
				c.consumers[cid].dropped++
			}
			events = append(events, Event{Kind: EventOverflow, Time: c.now(), Symbol: s, State: c.state, Consumer: id})
			return events, fmt.Errorf("%w: %s dropped, %s holds %d", ErrQueueFull, s, id, c.capacity)
		}
	}
	for _, id := range c.order {
		cons := c.consumers[id]
		cons.queue = append(cons.queue, s)
		cons.sent++
	}
	c.accepted++
	return append(events, Event{Kind: EventSymbol, Time: c.now(), Symbol: s, State: c.state}), nil
}

// RequestOverride starts the alarm: every consumer queue is replaced with
// the alarm sequence and pending symbols are discarded. A request while an
// override is in progress is a no-op; started is false and the running
// override is returned.
func (c *Coordinator) RequestOverride() (ov Override, started bool) {
	c.mu.Lock()
	var events []Event

	if c.override.active {
		c.ignored++
		ov = c.override.current
		events = append(events, Event{Kind: EventOverrideIgnored, Time: c.now(), State: c.state, OverrideID: ov.ID})
		c.unlockAndPublish(events)
		return ov, false
	}

	c.requested++
	c.epoch++
	ov = Override{ID: uuid.NewString(), Epoch: c.epoch, RequestedAt: c.now()}
	c.override = overrideState{active: true, current: ov, pending: make(map[ConsumerID]bool)}

	discarded := 0
	for _, id := range c.order {
		cons := c.consumers[id]
		discarded += len(cons.queue)
		cons.dropped += uint64(len(cons.queue))
		cons.queue = append(cons.queue[:0], morse.AlarmSequence()...)
		cons.sent += uint64(morse.AlarmLen)
		cons.overrideLeft = morse.AlarmLen
		cons.overrideID = ov.ID
		if cons.required {
			c.override.pending[id] = true
		}
	}

	c.log.Warn().
		Str("override_id", ov.ID).
		Uint64("epoch", ov.Epoch).
		Int("discarded", discarded).
		Msg("alarm override requested")

	events = append(events, Event{Kind: EventOverrideStarted, Time: ov.RequestedAt, OverrideID: ov.ID, State: StateOverrideActive})
	if len(c.override.pending) == 0 {
		events = c.fulfilLocked(events)
	}
	events = c.transitionLocked(events)
	c.unlockAndPublish(events)
	return ov, true
}

// DrainFor takes everything pending for id and marks it in flight. Alarm
// symbols are always handed out as their own batch.
func (c *Coordinator) DrainFor(id ConsumerID) (Batch, bool, error) {
	c.mu.Lock()
	cons, ok := c.consumers[id]
	if !ok {
		c.mu.Unlock()
		return Batch{}, false, fmt.Errorf("%w: %s", ErrUnknownConsumer, id)
	}
	if len(cons.queue) == 0 {
		c.mu.Unlock()
		return Batch{}, false, nil
	}

	b := Batch{Consumer: id, Epoch: c.epoch}
	n := len(cons.queue)
	if cons.overrideLeft > 0 {
		n = cons.overrideLeft
		b.Override = true
		b.OverrideID = cons.overrideID
		cons.overrideLeft = 0
	}
	b.Symbols = make([]morse.Symbol, n)
	copy(b.Symbols, cons.queue[:n])
	cons.queue = append(cons.queue[:0], cons.queue[n:]...)
	cons.inFlight = true

	events := c.transitionLocked(nil)
	c.unlockAndPublish(events)
	return b, true, nil
}

// Preempted reports whether an override started after b was drained. A
// renderer checks this before each symbol and drops the rest of b.
func (c *Coordinator) Preempted(b Batch) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return b.Epoch != c.epoch
}

// Complete reports that id finished with b after rendering n symbols. An
// alarm batch counts as observed even when a sink error cut it short, so a
// failing output cannot hold the pipeline in override.
func (c *Coordinator) Complete(id ConsumerID, b Batch, n int, renderErr error) error {
	c.mu.Lock()
	cons, ok := c.consumers[id]
	if !ok {
		c.mu.Unlock()
		return fmt.Errorf("%w: %s", ErrUnknownConsumer, id)
	}
	cons.inFlight = false
	cons.rendered += uint64(n)

	var events []Event
	if b.Override && c.override.active && b.OverrideID == c.override.current.ID && c.override.pending[id] {
		delete(c.override.pending, id)
		if renderErr != nil {
			c.log.Warn().Err(renderErr).Str("consumer", string(id)).Str("override_id", b.OverrideID).
				Int("rendered", n).Msg("alarm cut short by output error")
		}
		if len(c.override.pending) == 0 {
			events = c.fulfilLocked(events)
		}
	}
	events = c.transitionLocked(events)
	c.unlockAndPublish(events)
	return nil
}

func (c *Coordinator) fulfilLocked(events []Event) []Event {
	ov := c.override.current
	c.override.active = false
	c.override.pending = nil
	c.fulfilled++
	c.log.Info().
		Str("override_id", ov.ID).
		Dur("elapsed", c.now().Sub(ov.RequestedAt)).
		Msg("alarm override fulfilled")
	return append(events, Event{Kind: EventOverrideFulfilled, Time: c.now(), OverrideID: ov.ID})
}

// transitionLocked recomputes the state and records a transition event.
func (c *Coordinator) transitionLocked(events []Event) []Event {
	next := c.deriveLocked()
	if next == c.state {
		return events
	}
	prev := c.state
	c.state = next
	c.log.Debug().Str("from", prev.String()).Str("to", next.String()).Msg("state transition")
	return append(events, Event{Kind: EventState, Time: c.now(), From: prev, State: next})
}

func (c *Coordinator) deriveLocked() State {
	if c.override.active {
		return StateOverrideActive
	}
	if c.classifying {
		return StateClassifying
	}
	ready := false
	for _, cons := range c.consumers {
		if cons.inFlight {
			return StateRendering
		}
		if len(cons.queue) > 0 {
			ready = true
		}
	}
	if ready {
		return StateSymbolReady
	}
	return StateIdle
}

// State returns the current pipeline state.
func (c *Coordinator) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// OverrideActive reports whether the alarm currently has priority.
func (c *Coordinator) OverrideActive() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.override.active
}

// LastEmitted returns the debounce memory.
func (c *Coordinator) LastEmitted() morse.Symbol {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.debounce.Last()
}

// Pending returns a copy of the symbols queued for id.
func (c *Coordinator) Pending(id ConsumerID) []morse.Symbol {
	c.mu.Lock()
	defer c.mu.Unlock()
	cons, ok := c.consumers[id]
	if !ok {
		return nil
	}
	out := make([]morse.Symbol, len(cons.queue))
	copy(out, cons.queue)
	return out
}

// Stats returns a snapshot of all counters.
func (c *Coordinator) Stats() Stats {
	c.mu.Lock()
	defer c.mu.Unlock()

	s := Stats{
		State:              c.state,
		LastSymbol:         c.debounce.Last().String(),
		Capacity:           c.capacity,
		Accepted:           c.accepted,
		Suppressed:         c.suppressed,
		Overflowed:         c.overflowed,
		OverridesRequested: c.requested,
		OverridesIgnored:   c.ignored,
		OverridesFulfilled: c.fulfilled,
		OverrideActive:     c.override.active,
		Consumers:          make(map[ConsumerID]ConsumerStats, len(c.consumers)),
	}
	if c.override.active {
		s.OverrideID = c.override.current.ID
	}
	for id, cons := range c.consumers {
		s.Consumers[id] = ConsumerStats{
			Required: cons.required,
			Queued:   len(cons.queue),
			InFlight: cons.inFlight,
			Sent:     cons.sent,
			Dropped:  cons.dropped,
			Rendered: cons.rendered,
		}
	}
	return s
}

// unlockAndPublish numbers events, queues them and releases c.mu, which
// must be held. If no other goroutine is delivering, the caller delivers
// the outbox until it is empty, including events queued meanwhile.
func (c *Coordinator) unlockAndPublish(events []Event) {
	for i := range events {
		c.seq++
		events[i].Seq = c.seq
	}
	c.outbox = append(c.outbox, events...)
	if c.delivering {
		c.mu.Unlock()
		return
	}
	c.delivering = true
	for len(c.outbox) > 0 {
		batch, listeners := c.outbox, c.listeners
		c.outbox = nil
		c.mu.Unlock()
		publish(listeners, batch)
		c.mu.Lock()
	}
	c.delivering = false
	c.mu.Unlock()
}

func publish(listeners []func(Event), events []Event) {
	for _, ev := range events {
		for _, fn := range listeners {
			fn(ev)
		}
	}
}
