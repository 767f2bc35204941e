// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

package gw1000

import (
	"context"
	"errors"
	"fmt"
	"net"
	"strings"
	"time"
	"unicode/utf8"
)

// DialFunc opens a stream connection to a device
type DialFunc func(ctx context.Context, network, address string) (net.Conn, error)

// Client issues commands to a single gateway. Every command opens its own TCP
// connection, so a Client may be shared between goroutines.
type Client struct {
	addr    string
	timeout time.Duration
	dial    DialFunc
}

// Option configures a Client
type Option func(*Client)

// WithTimeout bounds connect, write and read for each command
func WithTimeout(d time.Duration) Option {
	return func(c *Client) {
		if d > 0 {
			c.timeout = d
		}
	}
}

// WithDialer replaces the TCP dialer
func WithDialer(dial DialFunc) Option {
	return func(c *Client) {
		if dial != nil {
			c.dial = dial
		}
	}
}

// NewClient creates a client for the gateway at addr ("host:port")
func NewClient(addr string, opts ...Option) *Client {
	c := &Client{
		addr:    addr,
		timeout: DefaultTimeout,
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.dial == nil {
		d := &net.Dialer{Timeout: c.timeout}
		c.dial = d.DialContext
	}
	return c
}

// Addr returns the gateway address
func (c *Client) Addr() string {
	return c.addr
}

// FirmwareVersion reads the gateway firmware version string
func (c *Client) FirmwareVersion(ctx context.Context) (string, error) {
	const op = "firmware"

	resp, err := c.command(ctx, op, CmdReadFirmwareVersion)
	if err != nil {
		return "", err
	}
	data, err := shortPayload(resp)
	if err != nil {
		return "", &Error{Op: op, Kind: ErrProtocol, Err: err}
	}
	return lossyString(data), nil
}

// lossyString decodes data as UTF-8, replacing each maximal invalid
// subsequence with U+FFFD
func lossyString(data []byte) string {
	var b strings.Builder
	b.Grow(len(data))
	for len(data) > 0 {
		r, size := utf8.DecodeRune(data)
		if r == utf8.RuneError && size <= 1 {
			b.WriteRune(utf8.RuneError)
			data = data[invalidPrefix(data):]
			continue
		}
		b.WriteRune(r)
		data = data[size:]
	}
	return b.String()
}

// invalidPrefix returns the length of the maximal subpart of an ill-formed
// sequence at the start of b: a lead byte plus the continuation bytes that
// are still valid for it (Unicode Table 3-7)
func invalidPrefix(b []byte) int {
	lo, hi := byte(0x80), byte(0xBF)
	var need int
	switch lead := b[0]; {
	case lead >= 0xC2 && lead <= 0xDF:
		need = 1
	case lead == 0xE0:
		need, lo = 2, 0xA0
	case lead == 0xED:
		need, hi = 2, 0x9F
	case lead >= 0xE1 && lead <= 0xEF:
		need = 2
	case lead == 0xF0:
		need, lo = 3, 0x90
	case lead == 0xF4:
		need, hi = 3, 0x8F
	case lead >= 0xF1 && lead <= 0xF3:
		need = 3
	default:
		return 1
	}

	n := 1
	for n <= need && n < len(b) {
		c := b[n]
		if n > 1 {
			lo, hi = 0x80, 0xBF
		}
		if c < lo || c > hi {
			break
		}
		n++
	}
	return n
}

// MACAddress reads the gateway MAC address formatted as AA:BB:CC:DD:EE:FF
func (c *Client) MACAddress(ctx context.Context) (string, error) {
	const op = "mac"

	resp, err := c.command(ctx, op, CmdReadStationMAC)
	if err != nil {
		return "", err
	}
	data, err := shortPayload(resp)
	if err != nil {
		return "", &Error{Op: op, Kind: ErrProtocol, Err: err}
	}
	if len(data) != macLength {
		return "", &Error{Op: op, Kind: ErrProtocol, Err: fmt.Errorf("MAC payload is %d bytes, want %d", len(data), macLength)}
	}

	parts := make([]string, len(data))
	for i, b := range data {
		parts[i] = fmt.Sprintf("%02X", b)
	}
	return strings.Join(parts, ":"), nil
}

// LiveData polls the gateway for its current sensor readings
func (c *Client) LiveData(ctx context.Context) (LiveData, error) {
	const op = "livedata"

	resp, err := c.command(ctx, op, CmdLiveData)
	if err != nil {
		return nil, err
	}
	data, err := longPayload(resp)
	if err != nil {
		return nil, &Error{Op: op, Kind: ErrProtocol, Err: err}
	}
	return ParseLiveData(data), nil
}

// Raw sends cmd and returns the verified response frame, header and checksum
// included
func (c *Client) Raw(ctx context.Context, cmd uint8) ([]byte, error) {
	return c.command(ctx, "raw", cmd)
}

// command performs one request/response round trip and returns the verified
// response frame.
func (c *Client) command(ctx context.Context, op string, cmd uint8) ([]byte, error) {
	packet := BuildRequest(cmd, nil)

	dialCtx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	conn, err := c.dial(dialCtx, "tcp", c.addr)
	if err != nil {
		return nil, &Error{Op: op, Kind: ErrConnection, Err: err}
	}
	defer conn.Close()

	deadline := time.Now().Add(c.timeout)
	if d, ok := ctx.Deadline(); ok && d.Before(deadline) {
		deadline = d
	}
	if err := conn.SetDeadline(deadline); err != nil {
		return nil, &Error{Op: op, Kind: ErrIO, Err: err}
	}

	// Abort blocked I/O as soon as the caller gives up
	stop := context.AfterFunc(ctx, func() {
		conn.SetDeadline(time.Now())
	})
	defer stop()

	n, err := conn.Write(packet)
	if err != nil {
		return nil, &Error{Op: op, Kind: ErrIO, Err: fmt.Errorf("write: %w", err)}
	}
	if n != len(packet) {
		return nil, &Error{Op: op, Kind: ErrIO, Err: fmt.Errorf("short write: %d of %d bytes", n, len(packet))}
	}

	buf := make([]byte, ReadBufferSize)
	n, err = conn.Read(buf)
	if n == 0 {
		if err == nil {
			err = errors.New("empty response")
		}
		return nil, &Error{Op: op, Kind: ErrIO, Err: fmt.Errorf("read: %w", err)}
	}
	resp := buf[:n]

	if !VerifyResponse(resp, cmd) {
		return nil, &Error{Op: op, Kind: ErrProtocol}
	}
	return resp, nil
}
