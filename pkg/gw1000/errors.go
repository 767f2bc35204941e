// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

package gw1000

import (
	"errors"
	"fmt"
)

// Error kinds returned by Client. Test with errors.Is.
var (
	ErrConnection = errors.New("gw1000: connection failed")
	ErrIO         = errors.New("gw1000: i/o failed")
	ErrProtocol   = errors.New("gw1000: invalid response")
)

// Error describes a failed device command
type Error struct {
	Op   string // command name, e.g. "livedata"
	Kind error  // one of ErrConnection, ErrIO, ErrProtocol
	Err  error  // underlying cause, may be nil
}

func (e *Error) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("%s: %v", e.Op, e.Kind)
	}
	return fmt.Sprintf("%s: %v: %v", e.Op, e.Kind, e.Err)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Is reports whether target is the error's kind
func (e *Error) Is(target error) bool {
	return e.Kind == target
}
