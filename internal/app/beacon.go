// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package app

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog"
	"periph.io/x/conn/v3/physic"

	"github.com/relabs-tech/tilt_morse/internal/config"
	"github.com/relabs-tech/tilt_morse/internal/gesture"
	"github.com/relabs-tech/tilt_morse/internal/logging"
	"github.com/relabs-tech/tilt_morse/internal/pipeline"
	"github.com/relabs-tech/tilt_morse/internal/render"
	"github.com/relabs-tech/tilt_morse/internal/sched"
)

const displayInterval = 250 * time.Millisecond

// Beacon wires the gesture pipeline: the classifier feeds the
// coordinator, and the serial dispatcher and the two renderers drain it
// on their own cadences.
type Beacon struct {
	cfg *config.Config
	dev *Devices
	log zerolog.Logger

	coord      *pipeline.Coordinator
	classifier *gesture.Classifier
	dispatcher *render.Dispatcher
	audio      *render.Audio
	visual     *render.Visual
	transcript *transcriptLog
	display    *TranscriptDisplay

	sched atomic.Pointer[sched.Scheduler]
}

// NewBeacon builds the pipeline around dev. Audio and visual must both
// finish an alarm before it counts as fulfilled; the serial sink gets the
// alarm too but does not hold it up.
func NewBeacon(cfg *config.Config, dev *Devices, log zerolog.Logger) (*Beacon, error) {
	coord, err := pipeline.New(pipeline.Options{Capacity: cfg.QueueCapacity, Logger: log})
	if err != nil {
		return nil, err
	}
	for _, c := range []struct {
		id       pipeline.ConsumerID
		required bool
	}{
		{pipeline.Serial, false},
		{pipeline.Audio, true},
		{pipeline.Visual, true},
	} {
		if err := coord.Register(c.id, c.required); err != nil {
			return nil, err
		}
	}

	var melody *render.Melody
	if cfg.Melody {
		m := render.DefaultMelody
		melody = &m
	}

	b := &Beacon{
		cfg:        cfg,
		dev:        dev,
		log:        log.With().Str("component", "beacon").Logger(),
		coord:      coord,
		classifier: gesture.NewClassifier(cfg.Bands()),
		dispatcher: render.NewDispatcher(coord, dev.Serial, log),
		audio: render.NewAudio(coord, dev.Tone, render.AudioOptions{
			Timing:    cfg.Timing(),
			Frequency: physic.Frequency(cfg.ToneFrequencyHz) * physic.Hertz,
			Melody:    melody,
			Logger:    log,
		}),
		visual: render.NewVisual(coord, dev.Light, render.VisualOptions{
			Timing: cfg.Timing(),
			Logger: log,
		}),
		transcript: newTranscriptLog(log),
	}
	coord.Subscribe(b.transcript.observe)
	if dev.Screen != nil {
		b.display = NewTranscriptDisplay(dev.Screen, log)
	}
	return b, nil
}

// Tasks returns the pipeline's periodic jobs.
func (b *Beacon) Tasks() []sched.Task {
	tasks := []sched.Task{
		{Name: "classifier", Every: b.cfg.ClassifierInterval, Run: b.classify},
		{Name: "dispatcher", Every: b.cfg.DispatcherInterval, Run: b.dispatcher.Tick},
		{Name: "audio", Every: b.cfg.AudioInterval, Run: b.audio.Tick},
		{Name: "visual", Every: b.cfg.VisualInterval, Run: b.visual.Tick},
	}
	if b.dev.Inbound != nil {
		tasks = append(tasks, sched.Task{Name: "inbound", Run: b.readInbound})
	}
	if b.dev.Trigger != nil {
		tasks = append(tasks, sched.Task{Name: "trigger", Run: func(ctx context.Context) error {
			if err := b.dev.Trigger.Watch(ctx, func() { b.TriggerSOS() }); err != nil {
				return sched.Fatal(fmt.Errorf("trigger: %w", err))
			}
			return nil
		}})
	}
	if b.display != nil {
		tasks = append(tasks, sched.Task{Name: "display", Every: displayInterval, Run: func(context.Context) error {
			return b.display.Show(b.Transcript())
		}})
	}
	return tasks
}

// Run schedules the pipeline tasks plus extra until ctx is done or a
// task fails fatally.
func (b *Beacon) Run(ctx context.Context, extra ...sched.Task) error {
	s, err := sched.New(b.log, append(b.Tasks(), extra...)...)
	if err != nil {
		return err
	}
	b.sched.Store(s)
	b.log.Info().Int("capacity", b.cfg.QueueCapacity).Msg("beacon running")
	defer b.log.Info().Msg("beacon stopped")
	return s.Run(ctx)
}

func (b *Beacon) classify(context.Context) error {
	sample, err := b.dev.Source.Next()
	if err != nil {
		return fmt.Errorf("orientation: %w", err)
	}
	sym := b.classifier.Classify(sample)
	if _, err := b.coord.Offer(sym); err != nil {
		if errors.Is(err, pipeline.ErrQueueFull) {
			b.log.Warn().Err(err).Msg("symbol dropped")
			return nil
		}
		return err
	}
	return nil
}

// TriggerSOS requests the alarm override. A request while one is running
// is ignored.
func (b *Beacon) TriggerSOS() (pipeline.Override, bool) {
	ov, started := b.coord.RequestOverride()
	if !started {
		b.log.Info().Str("override_id", ov.ID).Msg("alarm already active, request ignored")
	}
	return ov, started
}

// ApplyConfig takes over the settings that can change while running:
// classifier bands, the timing table and the log level. old is the
// configuration being replaced; settings that differ from it but are only
// read at startup are reported as needing a restart.
func (b *Beacon) ApplyConfig(old, cfg *config.Config) {
	b.classifier.SetBands(cfg.Bands())
	b.audio.SetTiming(cfg.Timing())
	b.visual.SetTiming(cfg.Timing())
	if err := logging.SetLevel(cfg.LogLevel); err != nil {
		b.log.Warn().Err(err).Msg("log level not changed")
	}

	if fields := restartFields(old, cfg); len(fields) > 0 {
		b.log.Warn().Strs("settings", fields).Msg("settings changed, restart to apply")
	}
	b.log.Info().
		Float64("dash_low", cfg.DashLow).
		Float64("dash_high", cfg.DashHigh).
		Dur("dot", cfg.Dot).
		Dur("dash", cfg.Dash).
		Str("log_level", cfg.LogLevel).
		Msg("config reloaded")
}

// restartFields names the startup-only settings that differ between old
// and cfg.
func restartFields(old, cfg *config.Config) []string {
	if old == nil {
		return nil
	}
	var fields []string
	diff := func(name string, changed bool) {
		if changed {
			fields = append(fields, name)
		}
	}
	diff("mock", old.Mock != cfg.Mock)
	diff("serial_port", old.SerialPort != cfg.SerialPort)
	diff("serial_baud", old.SerialBaud != cfg.SerialBaud)
	diff("serial_inbound", old.SerialInbound != cfg.SerialInbound)
	diff("imu_spi_device", old.IMUSPIDevice != cfg.IMUSPIDevice)
	diff("imu_cs_pin", old.IMUCSPin != cfg.IMUCSPin)
	diff("led_pin", old.LEDPin != cfg.LEDPin)
	diff("buzzer_pin", old.BuzzerPin != cfg.BuzzerPin)
	diff("button_pin", old.ButtonPin != cfg.ButtonPin)
	diff("queue_capacity", old.QueueCapacity != cfg.QueueCapacity)
	diff("frequency_hz", old.ToneFrequencyHz != cfg.ToneFrequencyHz)
	diff("melody_enabled", old.Melody != cfg.Melody)
	diff("classifier_interval", old.ClassifierInterval != cfg.ClassifierInterval)
	diff("dispatcher_interval", old.DispatcherInterval != cfg.DispatcherInterval)
	diff("audio_interval", old.AudioInterval != cfg.AudioInterval)
	diff("visual_interval", old.VisualInterval != cfg.VisualInterval)
	diff("mqtt", old.MQTTBroker != cfg.MQTTBroker || old.MQTTClientID != cfg.MQTTClientID || old.MQTTTopicPrefix != cfg.MQTTTopicPrefix)
	diff("web_addr", old.WebAddr != cfg.WebAddr)
	diff("display", old.DisplayEnabled != cfg.DisplayEnabled || old.DisplayI2CBus != cfg.DisplayI2CBus)
	return fields
}

// Subscribe registers fn for pipeline events.
func (b *Beacon) Subscribe(fn func(pipeline.Event)) {
	b.coord.Subscribe(fn)
}

// Stats returns the coordinator counters.
func (b *Beacon) Stats() pipeline.Stats {
	return b.coord.Stats()
}

// TaskStats returns the scheduler counters, nil before Run.
func (b *Beacon) TaskStats() map[string]sched.TaskStats {
	if s := b.sched.Load(); s != nil {
		return s.Stats()
	}
	return nil
}

// Transcript returns the decoded text so far.
func (b *Beacon) Transcript() TranscriptSnapshot {
	return b.transcript.snapshot()
}

// readInbound plays Morse text received on the serial port. The port read
// blocks outside ctx, so it runs in its own goroutine.
func (b *Beacon) readInbound(ctx context.Context) error {
	lines := make(chan string)
	errc := make(chan error, 1)
	go func() { errc <- scanLines(ctx, b.dev.Inbound, lines, b.log) }()

	for {
		select {
		case <-ctx.Done():
			return nil
		case err := <-errc:
			if errors.Is(err, io.EOF) || errors.Is(err, context.Canceled) {
				b.log.Info().Msg("serial inbound closed")
				return nil
			}
			return fmt.Errorf("serial inbound: %w", err)
		case line := <-lines:
			n, err := b.audio.PlayText(ctx, line)
			switch {
			case errors.Is(err, render.ErrBusy):
				b.log.Warn().Msg("audio busy, inbound message rejected")
			case err != nil:
				b.log.Warn().Err(err).Msg("inbound message not played")
			default:
				b.log.Debug().Int("marks", n).Msg("inbound message played")
			}
		}
	}
}

// scanLines sends each line of r, newline included, to out. Lines longer
// than the inbound buffer are dropped whole.
func scanLines(ctx context.Context, r io.Reader, out chan<- string, log zerolog.Logger) error {
	br := bufio.NewReaderSize(r, render.MaxInbound)
	for {
		line, err := br.ReadSlice('\n')
		if errors.Is(err, bufio.ErrBufferFull) {
			log.Warn().Int("max", render.MaxInbound).Msg("inbound line too long, dropped")
			for errors.Is(err, bufio.ErrBufferFull) {
				_, err = br.ReadSlice('\n')
			}
			if err != nil {
				return err
			}
			continue
		}
		if len(line) > 0 {
			select {
			case out <- string(line):
			case <-ctx.Done():
				return ctx.Err()
			}
		}
		if err != nil {
			return err
		}
	}
}

// RunOptions are the inputs of RunBeacon besides the configuration.
type RunOptions struct {
	// ConfigPath is watched for changes when set.
	ConfigPath string
	Changed    map[string]bool
	Flags      func(*config.Config)

	// Out is the serial sink in mock mode.
	Out io.Writer
}

// RunBeacon opens the devices, starts the pipeline and the optional
// monitoring surfaces, and blocks until ctx is done. cfg becomes the
// global configuration that reloads are compared against. Any startup
// failure is returned.
func RunBeacon(ctx context.Context, cfg *config.Config, opts RunOptions) error {
	log := logging.Logger()
	config.Replace(cfg)

	dev, err := OpenDevices(cfg, opts.Out, log)
	if err != nil {
		return err
	}
	defer dev.Close()

	b, err := NewBeacon(cfg, dev, log)
	if err != nil {
		return err
	}

	var extra []sched.Task
	if cfg.WebAddr != "" {
		srv := NewStatusServer(b, log)
		extra = append(extra, sched.Task{Name: "web", Run: func(ctx context.Context) error {
			return srv.Run(ctx, cfg.WebAddr)
		}})
	}
	if cfg.MQTTBroker != "" {
		client, err := ConnectMQTT(cfg.MQTTBroker, cfg.MQTTClientID)
		if err != nil {
			return err
		}
		defer client.Disconnect(250)
		log.Info().Str("broker", cfg.MQTTBroker).Msg("connected to MQTT")

		mirror := NewEventMirror(client, cfg.MQTTTopicPrefix, b.Transcript, log)
		b.Subscribe(mirror.Observe)
		extra = append(extra, sched.Task{Name: "mqtt", Run: mirror.Run})
	}
	if opts.ConfigPath != "" {
		w := config.NewWatcher(opts.ConfigPath, opts.Changed, opts.Flags, log)
		extra = append(extra, sched.Task{Name: "config", Run: func(ctx context.Context) error {
			return w.Run(ctx, b.ApplyConfig)
		}})
	}

	return b.Run(ctx, extra...)
}
