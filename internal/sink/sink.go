// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

// Package sink defines where polled readings are delivered.
package sink

import (
	"context"
	"time"

	"github.com/Thermoquad/wxlistener/pkg/gw1000"
)

// Reading is one successful live data poll
type Reading struct {
	Timestamp time.Time
	Data      gw1000.LiveData
}

// Sink receives readings. Implementations must not modify r.Data.
type Sink interface {
	Name() string
	Publish(ctx context.Context, r Reading) error
	Close() error
}
