// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

package sink

import (
	"context"
	"encoding/json"
	"fmt"
	"io"

	"github.com/Thermoquad/wxlistener/pkg/gw1000"
)

// Console output formats
const (
	FormatText = "text"
	FormatJSON = "json"
)

// Console prints readings as a table or as indented JSON
type Console struct {
	w      io.Writer
	format string
}

// NewConsole validates format and returns a console sink writing to w
func NewConsole(w io.Writer, format string) (*Console, error) {
	switch format {
	case FormatText, FormatJSON:
	default:
		return nil, fmt.Errorf("unknown output format %q (use text or json)", format)
	}
	return &Console{w: w, format: format}, nil
}

func (c *Console) Name() string { return "console" }

func (c *Console) Publish(_ context.Context, r Reading) error {
	if c.format == FormatJSON {
		data, err := json.MarshalIndent(r.Data, "", "  ")
		if err != nil {
			return fmt.Errorf("encode reading: %w", err)
		}
		_, err = fmt.Fprintf(c.w, "%s\n", data)
		return err
	}
	_, err := io.WriteString(c.w, gw1000.FormatLiveData(r.Data, r.Timestamp))
	return err
}

func (c *Console) Close() error { return nil }
