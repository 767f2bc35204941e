// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

package poller

import (
	"context"
	"sync"
	"time"

	"github.com/Thermoquad/wxlistener/internal/sink"
)

// Event is either a reading or a poll failure
type Event struct {
	Time    time.Time
	Reading *sink.Reading
	Err     error
}

// Broadcaster fans events out to subscribers. Slow subscribers miss events
// instead of blocking the poll loop.
type Broadcaster struct {
	mu     sync.RWMutex
	subs   map[chan Event]struct{}
	latest Event
	ready  chan struct{}
	once   sync.Once
}

// NewBroadcaster returns an empty broadcaster
func NewBroadcaster() *Broadcaster {
	return &Broadcaster{
		subs:  make(map[chan Event]struct{}),
		ready: make(chan struct{}),
	}
}

// Subscribe returns a channel with the given buffer and a cancel func that
// unsubscribes and closes it.
func (b *Broadcaster) Subscribe(buffer int) (<-chan Event, func()) {
	ch := make(chan Event, buffer)

	b.mu.Lock()
	b.subs[ch] = struct{}{}
	b.mu.Unlock()

	var once sync.Once
	return ch, func() {
		once.Do(func() {
			b.mu.Lock()
			delete(b.subs, ch)
			b.mu.Unlock()
			close(ch)
		})
	}
}

// Publish delivers ev to every subscriber with room in its buffer
func (b *Broadcaster) Publish(ev Event) {
	b.mu.Lock()
	b.latest = ev
	b.mu.Unlock()
	b.once.Do(func() { close(b.ready) })

	b.mu.RLock()
	defer b.mu.RUnlock()
	for ch := range b.subs {
		select {
		case ch <- ev:
		default:
		}
	}
}

// Latest returns the most recent event, waiting for the first one until ctx ends
func (b *Broadcaster) Latest(ctx context.Context) (Event, error) {
	select {
	case <-b.ready:
	case <-ctx.Done():
		return Event{}, ctx.Err()
	}
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.latest, nil
}

// Subscribers returns the current subscriber count
func (b *Broadcaster) Subscribers() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.subs)
}
