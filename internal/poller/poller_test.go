// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

package poller

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Thermoquad/wxlistener/internal/metrics"
	"github.com/Thermoquad/wxlistener/internal/sink"
	"github.com/Thermoquad/wxlistener/pkg/gw1000"
)

// ============================================================================
// Fakes
// ============================================================================

type result struct {
	data gw1000.LiveData
	err  error
}

// scriptedSource returns results in order, repeating the last one
type scriptedSource struct {
	mu      sync.Mutex
	results []result
	calls   int
}

func (s *scriptedSource) LiveData(context.Context) (gw1000.LiveData, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	r := s.results[min(s.calls, len(s.results)-1)]
	s.calls++
	return r.data, r.err
}

type recordingSink struct {
	name string
	err  error

	mu       sync.Mutex
	readings []sink.Reading
	closed   bool
	notify   chan struct{}
}

func newRecordingSink(name string, err error) *recordingSink {
	return &recordingSink{name: name, err: err, notify: make(chan struct{}, 100)}
}

func (s *recordingSink) Name() string { return s.name }

func (s *recordingSink) Publish(_ context.Context, r sink.Reading) error {
	s.mu.Lock()
	s.readings = append(s.readings, r)
	s.mu.Unlock()
	select {
	case s.notify <- struct{}{}:
	default:
	}
	return s.err
}

func (s *recordingSink) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
	return nil
}

func (s *recordingSink) count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.readings)
}

func waitFor(t *testing.T, ch <-chan struct{}, n int) {
	t.Helper()
	for i := 0; i < n; i++ {
		select {
		case <-ch:
		case <-time.After(2 * time.Second):
			t.Fatalf("timed out after %d of %d events", i, n)
		}
	}
}

var quiet = slog.New(slog.NewTextHandler(io.Discard, nil))

var sample = gw1000.LiveData{"outtemp": 25.5, "outhumid": 65}

// ============================================================================
// Poll
// ============================================================================

func TestPoll(t *testing.T) {
	m := metrics.New()
	fixed := time.Date(2025, 1, 1, 12, 0, 0, 0, time.FixedZone("X", 7200))
	p := New(&scriptedSource{results: []result{{data: sample}}}, Options{Logger: quiet, Metrics: m})
	p.now = func() time.Time { return fixed }

	r, err := p.Poll(context.Background())
	require.NoError(t, err)
	assert.Equal(t, sample, r.Data)
	assert.Equal(t, time.UTC, r.Timestamp.Location())
	assert.True(t, r.Timestamp.Equal(fixed))

	snap := p.Stats().Snapshot()
	assert.Equal(t, uint64(1), snap.ValidPolls)
	assert.Equal(t, 1.0, pollCount(t, m, metrics.ResultOK))
}

func TestPollError(t *testing.T) {
	wantErr := &gw1000.Error{Op: "livedata", Kind: gw1000.ErrIO}
	p := New(&scriptedSource{results: []result{{err: wantErr}}}, Options{Logger: quiet})

	_, err := p.Poll(context.Background())
	assert.ErrorIs(t, err, gw1000.ErrIO)
	assert.Equal(t, uint64(1), p.Stats().Snapshot().IOErrors)
}

func pollCount(t *testing.T, m *metrics.Metrics, result string) float64 {
	t.Helper()
	families, err := m.Registry().Gather()
	require.NoError(t, err)
	for _, f := range families {
		if f.GetName() != "wxlistener_polls_total" {
			continue
		}
		for _, metric := range f.GetMetric() {
			for _, l := range metric.GetLabel() {
				if l.GetName() == "result" && l.GetValue() == result {
					return metric.GetCounter().GetValue()
				}
			}
		}
	}
	return 0
}

// ============================================================================
// Run
// ============================================================================

func TestRunDeliversToSinks(t *testing.T) {
	a := newRecordingSink("a", nil)
	b := newRecordingSink("b", nil)

	p := New(&scriptedSource{results: []result{{data: sample}}}, Options{Interval: 5 * time.Millisecond, Logger: quiet})
	p.AddSink(a, true)
	p.AddSink(b, false)
	assert.Equal(t, 2, p.Sinks())

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- p.Run(ctx) }()

	waitFor(t, b.notify, 3)
	cancel()
	require.NoError(t, <-done)

	assert.GreaterOrEqual(t, a.count(), 3)
	assert.Equal(t, sample, a.readings[0].Data)

	require.NoError(t, p.Close())
	assert.True(t, a.closed)
	assert.True(t, b.closed)
}

func TestRunContinuesAfterDeviceError(t *testing.T) {
	s := newRecordingSink("console", nil)
	src := &scriptedSource{results: []result{
		{err: &gw1000.Error{Op: "livedata", Kind: gw1000.ErrConnection}},
		{err: &gw1000.Error{Op: "livedata", Kind: gw1000.ErrProtocol}},
		{data: sample},
	}}
	p := New(src, Options{Interval: time.Millisecond, Logger: quiet})
	p.AddSink(s, true)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- p.Run(ctx) }()

	waitFor(t, s.notify, 1)
	cancel()
	require.NoError(t, <-done)

	snap := p.Stats().Snapshot()
	assert.Equal(t, uint64(1), snap.ConnectionErrors)
	assert.Equal(t, uint64(1), snap.ProtocolErrors)
	assert.GreaterOrEqual(t, snap.ValidPolls, uint64(1))
}

func TestRunStopsOnRequiredSinkError(t *testing.T) {
	boom := errors.New("disk full")
	db := newRecordingSink("database", boom)

	p := New(&scriptedSource{results: []result{{data: sample}}}, Options{Interval: time.Millisecond, Logger: quiet})
	p.AddSink(db, true)

	err := p.Run(context.Background())
	require.Error(t, err)
	assert.ErrorIs(t, err, boom)
	assert.Contains(t, err.Error(), "database sink")
	assert.Equal(t, 1, db.count())
}

func TestRunLogsOptionalSinkError(t *testing.T) {
	m := metrics.New()
	httpSink := newRecordingSink("http", errors.New("status 500"))
	after := newRecordingSink("after", nil)

	p := New(&scriptedSource{results: []result{{data: sample}}}, Options{Interval: time.Millisecond, Logger: quiet, Metrics: m})
	p.AddSink(httpSink, false)
	p.AddSink(after, false)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- p.Run(ctx) }()

	waitFor(t, after.notify, 2)
	cancel()
	require.NoError(t, <-done)

	assert.GreaterOrEqual(t, p.Stats().Snapshot().SinkErrors, uint64(2))
}

func TestRunPublishesEvents(t *testing.T) {
	src := &scriptedSource{results: []result{
		{err: &gw1000.Error{Op: "livedata", Kind: gw1000.ErrIO}},
		{data: sample},
	}}
	p := New(src, Options{Interval: time.Millisecond, Logger: quiet})
	events, unsubscribe := p.Events().Subscribe(16)
	defer unsubscribe()

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- p.Run(ctx) }()

	first := <-events
	assert.Error(t, first.Err)
	assert.Nil(t, first.Reading)

	second := <-events
	require.NoError(t, second.Err)
	require.NotNil(t, second.Reading)
	assert.Equal(t, sample, second.Reading.Data)

	cancel()
	require.NoError(t, <-done)
}

func TestRunReturnsOnCanceledContext(t *testing.T) {
	p := New(&scriptedSource{results: []result{{err: context.Canceled}}}, Options{Logger: quiet})
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	assert.NoError(t, p.Run(ctx))
}

func TestNewDefaults(t *testing.T) {
	p := New(&scriptedSource{results: []result{{data: sample}}}, Options{})
	assert.Equal(t, DefaultInterval, p.interval)
	assert.NotNil(t, p.Stats())
	assert.NotNil(t, p.Events())
}
