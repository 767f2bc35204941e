// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

package gw1000

import (
	"fmt"
	"sort"
	"strings"
	"time"
)

const rule = "============================================================"

// FormatValue renders a measurement with the unit implied by its name
func FormatValue(key string, value float64) string {
	switch {
	case strings.Contains(key, "temp"):
		return fmt.Sprintf("%.1f°C", value)
	case strings.Contains(key, "humid"):
		return fmt.Sprintf("%d%%", int(value))
	case strings.Contains(key, "barometer"):
		return fmt.Sprintf("%.1f hPa", value)
	case strings.Contains(key, "wind"), strings.Contains(key, "gust"):
		return fmt.Sprintf("%.1f m/s", value)
	case strings.Contains(key, "rain"):
		return fmt.Sprintf("%.1f mm", value)
	case key == "light":
		return fmt.Sprintf("%.1f lux", value)
	case key == "heap_free":
		return fmt.Sprintf("%d bytes (%.1f KB)", int64(value), value/1024.0)
	default:
		return fmt.Sprintf("%v", value)
	}
}

// SortedKeys returns the measurement names present in data in sorted order
func SortedKeys(data LiveData) []string {
	keys := make([]string, 0, len(data))
	for k := range data {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// FormatLiveData renders a reading as a human-readable block
func FormatLiveData(data LiveData, timestamp time.Time) string {
	var b strings.Builder

	b.WriteString(rule + "\n")
	fmt.Fprintf(&b, "LIVE DATA - %s\n", timestamp.UTC().Format("2006-01-02 15:04:05 UTC"))
	b.WriteString(rule + "\n")

	for _, key := range SortedKeys(data) {
		fmt.Fprintf(&b, "%-20s : %s\n", key, FormatValue(key, data[key]))
	}

	b.WriteString(rule + "\n")
	return b.String()
}

// FormatFields renders every measurement with its unit
func FormatFields(data LiveData) map[string]string {
	out := make(map[string]string, len(data))
	for k, v := range data {
		out[k] = FormatValue(k, v)
	}
	return out
}

// CommandName returns a short label for a command code
func CommandName(cmd uint8) string {
	switch cmd {
	case CmdReadFirmwareVersion:
		return "firmware"
	case CmdReadStationMAC:
		return "mac"
	case CmdLiveData:
		return "livedata"
	default:
		return "unknown"
	}
}

// FormatFrame renders a response frame field by field for debugging
func FormatFrame(resp []byte) string {
	var b strings.Builder

	fmt.Fprintf(&b, "Frame:    % X\n", resp)
	if len(resp) < minResponseSize {
		fmt.Fprintf(&b, "  (truncated: %d bytes)\n", len(resp))
		return b.String()
	}

	cmd := resp[2]
	last := len(resp) - 1
	fmt.Fprintf(&b, "Header:   % X\n", resp[:2])
	fmt.Fprintf(&b, "Command:  0x%02X (%s)\n", cmd, CommandName(cmd))
	if cmd == CmdLiveData && len(resp) > minResponseSize {
		fmt.Fprintf(&b, "Size:     %d (long)\n", int(resp[3])<<8|int(resp[4]))
	} else {
		fmt.Fprintf(&b, "Size:     %d\n", resp[3])
	}

	if payload, err := Payload(resp); err != nil {
		fmt.Fprintf(&b, "Payload:  (%v)\n", err)
	} else {
		fmt.Fprintf(&b, "Payload:  %d bytes\n", len(payload))
		for off := 0; off < len(payload); off += 16 {
			end := min(off+16, len(payload))
			fmt.Fprintf(&b, "  %04X  % X\n", off, payload[off:end])
		}
	}

	status := "valid"
	if want := Checksum(resp[2:last]); want != resp[last] {
		status = fmt.Sprintf("invalid, expected 0x%02X", want)
	}
	fmt.Fprintf(&b, "Checksum: 0x%02X (%s)\n", resp[last], status)
	return b.String()
}
