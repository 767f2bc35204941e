// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

package poller

import (
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/Thermoquad/wxlistener/pkg/gw1000"
)

// Stats is a point-in-time copy of poll statistics
type Stats struct {
	StartTime    time.Time
	LastPollTime time.Time
	LastDuration time.Duration

	// Counters
	TotalPolls       uint64
	ValidPolls       uint64
	ConnectionErrors uint64
	IOErrors         uint64
	ProtocolErrors   uint64
	OtherErrors      uint64
	SinkErrors       uint64

	// Rates (calculated)
	PollRate  float64 // polls/min
	ErrorRate float64 // errors/min
}

// Failures is the number of polls that produced no reading
func (s Stats) Failures() uint64 {
	return s.ConnectionErrors + s.IOErrors + s.ProtocolErrors + s.OtherErrors
}

// Statistics tracks poll outcomes and failure rates
type Statistics struct {
	mu    sync.Mutex
	stats Stats
}

// NewStatistics creates a new statistics tracker
func NewStatistics() *Statistics {
	now := time.Now()
	return &Statistics{stats: Stats{StartTime: now, LastPollTime: now}}
}

// RecordPoll classifies one poll result
func (s *Statistics) RecordPoll(d time.Duration, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.stats.TotalPolls++
	s.stats.LastPollTime = time.Now()
	s.stats.LastDuration = d

	switch {
	case err == nil:
		s.stats.ValidPolls++
	case errors.Is(err, gw1000.ErrConnection):
		s.stats.ConnectionErrors++
	case errors.Is(err, gw1000.ErrIO):
		s.stats.IOErrors++
	case errors.Is(err, gw1000.ErrProtocol):
		s.stats.ProtocolErrors++
	default:
		s.stats.OtherErrors++
	}
}

// RecordSinkError counts a failed sink delivery
func (s *Statistics) RecordSinkError() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.stats.SinkErrors++
}

// Snapshot returns a copy with rates calculated
func (s *Statistics) Snapshot() Stats {
	s.mu.Lock()
	snap := s.stats
	s.mu.Unlock()

	if minutes := time.Since(snap.StartTime).Minutes(); minutes > 0 {
		snap.PollRate = float64(snap.TotalPolls) / minutes
		snap.ErrorRate = float64(snap.Failures()) / minutes
	}
	return snap
}

// String returns a formatted statistics summary
func (s *Statistics) String() string {
	snap := s.Snapshot()

	percent := func(n uint64) float64 {
		if snap.TotalPolls == 0 {
			return 0
		}
		return float64(n) * 100.0 / float64(snap.TotalPolls)
	}

	var b strings.Builder
	fmt.Fprintf(&b, "=== Statistics (%.0f seconds) ===\n", time.Since(snap.StartTime).Seconds())
	fmt.Fprintf(&b, "Total Polls:     %8d\n", snap.TotalPolls)
	fmt.Fprintf(&b, "Valid Polls:     %8d (%.1f%%)\n", snap.ValidPolls, percent(snap.ValidPolls))
	if snap.ConnectionErrors > 0 {
		fmt.Fprintf(&b, "Connect Errors:  %8d (%.1f%%)\n", snap.ConnectionErrors, percent(snap.ConnectionErrors))
	}
	if snap.IOErrors > 0 {
		fmt.Fprintf(&b, "I/O Errors:      %8d (%.1f%%)\n", snap.IOErrors, percent(snap.IOErrors))
	}
	if snap.ProtocolErrors > 0 {
		fmt.Fprintf(&b, "Protocol Errors: %8d (%.1f%%)\n", snap.ProtocolErrors, percent(snap.ProtocolErrors))
	}
	if snap.OtherErrors > 0 {
		fmt.Fprintf(&b, "Other Errors:    %8d (%.1f%%)\n", snap.OtherErrors, percent(snap.OtherErrors))
	}
	if snap.SinkErrors > 0 {
		fmt.Fprintf(&b, "Sink Errors:     %8d\n", snap.SinkErrors)
	}
	fmt.Fprintf(&b, "Poll Rate:       %8.1f polls/min\n", snap.PollRate)
	fmt.Fprintf(&b, "Error Rate:      %8.1f errors/min\n", snap.ErrorRate)
	b.WriteString("================================\n")
	return b.String()
}

// Reset resets all statistics counters
func (s *Statistics) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()
	now := time.Now()
	s.stats = Stats{StartTime: now, LastPollTime: now}
}
