// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

// Package poller polls the gateway on an interval and delivers each reading
// to the configured sinks.
package poller

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/Thermoquad/wxlistener/internal/metrics"
	"github.com/Thermoquad/wxlistener/internal/sink"
	"github.com/Thermoquad/wxlistener/pkg/gw1000"
)

// DefaultInterval is the default time between polls
const DefaultInterval = 5 * time.Second

// Source produces live data; *gw1000.Client satisfies it
type Source interface {
	LiveData(ctx context.Context) (gw1000.LiveData, error)
}

type target struct {
	sink     sink.Sink
	required bool
}

// Options configures a Poller. Zero values select defaults.
type Options struct {
	Interval    time.Duration
	Logger      *slog.Logger
	Metrics     *metrics.Metrics
	Stats       *Statistics
	Broadcaster *Broadcaster
}

// Poller drives the poll loop
type Poller struct {
	source   Source
	interval time.Duration
	logger   *slog.Logger
	metrics  *metrics.Metrics
	stats    *Statistics
	events   *Broadcaster
	targets  []target
	now      func() time.Time
}

// New creates a poller reading from source
func New(source Source, opts Options) *Poller {
	p := &Poller{
		source:   source,
		interval: opts.Interval,
		logger:   opts.Logger,
		metrics:  opts.Metrics,
		stats:    opts.Stats,
		events:   opts.Broadcaster,
		now:      time.Now,
	}
	if p.interval <= 0 {
		p.interval = DefaultInterval
	}
	if p.logger == nil {
		p.logger = slog.Default()
	}
	if p.stats == nil {
		p.stats = NewStatistics()
	}
	if p.events == nil {
		p.events = NewBroadcaster()
	}
	return p
}

// AddSink registers s. A failing required sink stops Run; other sink
// failures are logged.
func (p *Poller) AddSink(s sink.Sink, required bool) {
	p.targets = append(p.targets, target{sink: s, required: required})
}

// Sinks returns the number of registered sinks
func (p *Poller) Sinks() int { return len(p.targets) }

// Stats returns the poll statistics tracker
func (p *Poller) Stats() *Statistics { return p.stats }

// Events returns the broadcaster fed by Run
func (p *Poller) Events() *Broadcaster { return p.events }

// Poll performs a single live data request
func (p *Poller) Poll(ctx context.Context) (sink.Reading, error) {
	start := time.Now()
	data, err := p.source.LiveData(ctx)
	elapsed := time.Since(start)

	p.stats.RecordPoll(elapsed, err)
	if p.metrics != nil {
		p.metrics.ObservePoll(elapsed, len(data), err)
	}
	if err != nil {
		return sink.Reading{}, err
	}
	return sink.Reading{Timestamp: p.now().UTC(), Data: data}, nil
}

// Run polls immediately and then every interval until ctx ends. Device
// errors are logged and the loop continues. It returns nil on cancellation
// or the error of a required sink.
func (p *Poller) Run(ctx context.Context) error {
	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()

	for {
		if err := p.step(ctx); err != nil {
			return err
		}

		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
		}
	}
}

func (p *Poller) step(ctx context.Context) error {
	reading, err := p.Poll(ctx)
	if err != nil {
		if ctx.Err() != nil {
			return nil
		}
		p.logger.Warn("live data poll failed", "error", err)
		p.events.Publish(Event{Time: p.now().UTC(), Err: err})
		return nil
	}

	p.logger.Debug("live data polled", "fields", len(reading.Data))
	if err := p.deliver(ctx, reading); err != nil {
		return err
	}
	p.events.Publish(Event{Time: reading.Timestamp, Reading: &reading})
	return nil
}

// deliver hands the reading to each sink in registration order
func (p *Poller) deliver(ctx context.Context, r sink.Reading) error {
	for _, t := range p.targets {
		err := t.sink.Publish(ctx, r)
		if p.metrics != nil {
			p.metrics.ObservePublish(t.sink.Name(), err)
		}
		if err == nil {
			continue
		}
		p.stats.RecordSinkError()
		if errors.Is(err, context.Canceled) && ctx.Err() != nil {
			return nil
		}
		if t.required {
			return fmt.Errorf("%s sink: %w", t.sink.Name(), err)
		}
		p.logger.Error("sink publish failed", "sink", t.sink.Name(), "error", err)
	}
	return nil
}

// Close closes every registered sink and returns the first error
func (p *Poller) Close() error {
	var first error
	for _, t := range p.targets {
		if err := t.sink.Close(); err != nil && first == nil {
			first = fmt.Errorf("close %s sink: %w", t.sink.Name(), err)
		}
	}
	return first
}
