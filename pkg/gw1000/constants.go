// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

// Package gw1000 implements the local TCP API spoken by GW1000/Ecowitt weather
// gateways.
//
// The package builds request packets, verifies device responses and decodes the
// tagged live-data payload into a mapping of named measurements. It performs no
// logging and holds no global state.
package gw1000

import "time"

// Header is the sync marker preceding every request and response.
var Header = [2]byte{0xFF, 0xFF}

// Command codes
const (
	CmdReadFirmwareVersion = 0x50
	CmdReadStationMAC      = 0x26
	CmdLiveData            = 0x27
)

// Framing sizes
const (
	minResponseSize = 5 // header(2) + cmd + size + checksum
	shortOverhead   = 3 // cmd + size + checksum
	longOverhead    = 4 // cmd + size_hi + size_lo + checksum
	macLength       = 6
)

// Transport defaults
const (
	DefaultPort    = 45000
	DefaultTimeout = 5 * time.Second
	ReadBufferSize = 1024
)
