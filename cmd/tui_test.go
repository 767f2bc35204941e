// SPDX-License-Identifier: GPL-2.0-or-later
// Copyright (c) 2025 Kaz Walker, Thermoquad

package cmd

import (
	"context"
	"errors"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Thermoquad/wxlistener/internal/poller"
	"github.com/Thermoquad/wxlistener/internal/sink"
	"github.com/Thermoquad/wxlistener/pkg/gw1000"
)

type stubDevice struct {
	firmware string
	mac      string
	err      error
}

func (d stubDevice) FirmwareVersion(context.Context) (string, error) { return d.firmware, d.err }
func (d stubDevice) MACAddress(context.Context) (string, error)      { return d.mac, d.err }

func newTestModel() model {
	return initialModel("192.168.1.50:45000", 5*time.Second, stubDevice{}, poller.NewStatistics())
}

func update(t *testing.T, m model, msg tea.Msg) model {
	t.Helper()
	next, _ := m.Update(msg)
	out, ok := next.(model)
	require.True(t, ok)
	return out
}

func TestFormatDuration(t *testing.T) {
	tests := []struct {
		d    time.Duration
		want string
	}{
		{0, "0 seconds"},
		{time.Second, "1 second"},
		{90 * time.Second, "1 minute and 30 seconds"},
		{2 * time.Hour, "2 hours"},
		{26*time.Hour + 3*time.Minute + 4*time.Second, "1 day, 2 hours, 3 minutes, and 4 seconds"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, formatDuration(tt.d), tt.d.String())
	}
}

func TestFetchDeviceInfo(t *testing.T) {
	msg := fetchDeviceInfo(stubDevice{firmware: "GW1000_V1.6.8", mac: "AA:BB:CC:DD:EE:FF"})()
	info, ok := msg.(deviceInfoMsg)
	require.True(t, ok)
	assert.NoError(t, info.err)
	assert.Equal(t, "GW1000_V1.6.8", info.firmware)
	assert.Equal(t, "AA:BB:CC:DD:EE:FF", info.mac)

	boom := errors.New("refused")
	info = fetchDeviceInfo(stubDevice{err: boom})().(deviceInfoMsg)
	assert.ErrorIs(t, info.err, boom)
}

func TestModelDeviceInfo(t *testing.T) {
	m := update(t, newTestModel(), deviceInfoMsg{firmware: "GW1000_V1.6.8", mac: "AA:BB:CC:DD:EE:FF"})

	view := m.View()
	assert.Contains(t, view, "GW1000_V1.6.8")
	assert.Contains(t, view, "AA:BB:CC:DD:EE:FF")
	assert.Empty(t, m.eventLog)

	m = update(t, m, deviceInfoMsg{err: errors.New("timeout")})
	require.Len(t, m.eventLog, 1)
	assert.True(t, m.eventLog[0].isError)
}

func TestModelReading(t *testing.T) {
	m := newTestModel()
	assert.Contains(t, m.View(), "Waiting for first reading")

	reading := &sink.Reading{
		Timestamp: time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC),
		Data:      gw1000.LiveData{"outtemp": 21.5, "outhumid": 60},
	}
	m = update(t, m, pollEventMsg{Time: reading.Timestamp, Reading: reading})
	m = update(t, m, pollEventMsg{Time: reading.Timestamp, Reading: reading})

	require.NotNil(t, m.latest)
	require.Len(t, m.eventLog, 1, "only the first reading is logged")
	assert.False(t, m.eventLog[0].isError)

	view := m.View()
	assert.NotContains(t, view, "Waiting for first reading")
	assert.Contains(t, view, "outtemp")
	assert.Contains(t, view, gw1000.FormatValue("outtemp", 21.5))
	assert.Contains(t, view, "2025-06-01 12:00:00 UTC")
}

func TestModelPollError(t *testing.T) {
	m := update(t, newTestModel(), pollEventMsg{Time: time.Now(), Err: errors.New("connection refused")})

	require.Len(t, m.eventLog, 1)
	assert.True(t, m.eventLog[0].isError)
	assert.Contains(t, m.View(), "Poll failed: connection refused")
	assert.Nil(t, m.latest)
}

func TestModelLogLimit(t *testing.T) {
	m := newTestModel()
	m.maxLogEntries = 3
	for i := 0; i < 5; i++ {
		m.addLogEntry("entry", false)
	}
	assert.Len(t, m.eventLog, 3)
}

func TestModelKeys(t *testing.T) {
	m := newTestModel()
	m.stats.RecordPoll(time.Millisecond, nil)

	m = update(t, m, tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune("r")})
	assert.Zero(t, m.stats.Snapshot().TotalPolls)
	require.Len(t, m.eventLog, 1)

	next, cmd := m.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune("q")})
	require.NotNil(t, cmd)
	assert.True(t, next.(model).quitting)
	assert.Equal(t, "Shutting down...\n", next.View())
}

func TestModelWindowSize(t *testing.T) {
	m := update(t, newTestModel(), tea.WindowSizeMsg{Width: 120, Height: 40})
	assert.Equal(t, 120, m.width)
	assert.Equal(t, 40, m.height)
}
