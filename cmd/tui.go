// SPDX-License-Identifier: GPL-2.0-or-later
// Copyright (c) 2025 Kaz Walker, Thermoquad

package cmd

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/spf13/cobra"

	"github.com/Thermoquad/wxlistener/internal/poller"
	"github.com/Thermoquad/wxlistener/internal/sink"
	"github.com/Thermoquad/wxlistener/pkg/gw1000"
)

var tuiCmd = &cobra.Command{
	Use:   "tui",
	Short: "Live terminal dashboard",
	Long: `Poll the gateway continuously and show the latest reading, poll
statistics and recent errors in a full-screen terminal dashboard.

Configured sinks are not used. Press 'q' to quit.`,
	RunE: runTUI,
}

func init() {
	tuiCmd.Flags().IntVar(&pollSeconds, "continuous", int(poller.DefaultInterval.Seconds()), "Poll every N seconds")
	rootCmd.AddCommand(tuiCmd)
}

// deviceInfo is the part of the gateway client the dashboard queries once
type deviceInfo interface {
	FirmwareVersion(ctx context.Context) (string, error)
	MACAddress(ctx context.Context) (string, error)
}

// Event log entry
type eventLogEntry struct {
	timestamp time.Time
	message   string
	isError   bool // true for errors, false for info
}

// TUI model
type model struct {
	addr          string
	interval      time.Duration
	device        deviceInfo
	firmware      string
	mac           string
	stats         *poller.Statistics
	latest        *sink.Reading
	eventLog      []eventLogEntry
	maxLogEntries int
	spinner       spinner.Model
	width         int
	height        int
	quitting      bool
}

// Messages
type tickMsg time.Time
type pollEventMsg poller.Event
type deviceInfoMsg struct {
	firmware string
	mac      string
	err      error
}

// formatDuration formats a duration as a human-friendly string
func formatDuration(d time.Duration) string {
	total := int64(d / time.Second)

	days := total / 86400
	hours := total / 3600 % 24
	minutes := total / 60 % 60
	seconds := total % 60

	plural := func(n int64, unit string) string {
		if n == 1 {
			return "1 " + unit
		}
		return fmt.Sprintf("%d %ss", n, unit)
	}

	parts := []string{}
	if days > 0 {
		parts = append(parts, plural(days, "day"))
	}
	if hours > 0 {
		parts = append(parts, plural(hours, "hour"))
	}
	if minutes > 0 {
		parts = append(parts, plural(minutes, "minute"))
	}
	if seconds > 0 || len(parts) == 0 {
		parts = append(parts, plural(seconds, "second"))
	}

	// Join with commas and "and" for last item
	if len(parts) == 1 {
		return parts[0]
	}
	if len(parts) == 2 {
		return parts[0] + " and " + parts[1]
	}
	last := parts[len(parts)-1]
	rest := strings.Join(parts[:len(parts)-1], ", ")
	return rest + ", and " + last
}

func initialModel(addr string, interval time.Duration, device deviceInfo, stats *poller.Statistics) model {
	s := spinner.New()
	s.Spinner = spinner.Dot
	s.Style = lipgloss.NewStyle().Foreground(lipgloss.Color("11"))

	return model{
		addr:          addr,
		interval:      interval,
		device:        device,
		stats:         stats,
		eventLog:      make([]eventLogEntry, 0),
		maxLogEntries: 100,
		spinner:       s,
		width:         80,
		height:        24,
	}
}

func (m model) Init() tea.Cmd {
	return tea.Batch(
		tickCmd(),
		tea.EnterAltScreen,
		m.spinner.Tick,
		fetchDeviceInfo(m.device),
	)
}

func tickCmd() tea.Cmd {
	return tea.Tick(time.Second, func(t time.Time) tea.Msg {
		return tickMsg(t)
	})
}

func fetchDeviceInfo(device deviceInfo) tea.Cmd {
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), 2*gw1000.DefaultTimeout)
		defer cancel()

		firmware, err := device.FirmwareVersion(ctx)
		if err != nil {
			return deviceInfoMsg{err: err}
		}
		mac, err := device.MACAddress(ctx)
		return deviceInfoMsg{firmware: firmware, mac: mac, err: err}
	}
}

func (m model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "q", "ctrl+c":
			m.quitting = true
			return m, tea.Quit
		case "r":
			m.stats.Reset()
			m.addLogEntry("Statistics reset", false)
		}

	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height

	case tickMsg:
		return m, tickCmd()

	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd

	case deviceInfoMsg:
		if msg.err != nil {
			m.addLogEntry(fmt.Sprintf("Device info: %v", msg.err), true)
		}
		m.firmware = msg.firmware
		m.mac = msg.mac

	case pollEventMsg:
		if msg.Err != nil {
			m.addLogEntry(fmt.Sprintf("Poll failed: %v", msg.Err), true)
		} else if msg.Reading != nil {
			if m.latest == nil {
				m.addLogEntry(fmt.Sprintf("First reading: %d fields", len(msg.Reading.Data)), false)
			}
			m.latest = msg.Reading
		}
	}

	return m, nil
}

func (m *model) addLogEntry(message string, isError bool) {
	entry := eventLogEntry{
		timestamp: time.Now(),
		message:   message,
		isError:   isError,
	}
	m.eventLog = append(m.eventLog, entry)

	// Keep only last N entries
	if len(m.eventLog) > m.maxLogEntries {
		m.eventLog = m.eventLog[len(m.eventLog)-m.maxLogEntries:]
	}
}

func (m model) View() string {
	if m.quitting {
		return "Shutting down...\n"
	}

	// Styles
	titleStyle := lipgloss.NewStyle().
		Bold(true).
		Foreground(lipgloss.Color("12")).
		Background(lipgloss.Color("235")).
		Padding(0, 1)

	headerStyle := lipgloss.NewStyle().
		Foreground(lipgloss.Color("241"))

	labelStyle := lipgloss.NewStyle().
		Foreground(lipgloss.Color("12")).
		Bold(true)

	valueStyle := lipgloss.NewStyle().
		Foreground(lipgloss.Color("10"))

	errorStyle := lipgloss.NewStyle().
		Foreground(lipgloss.Color("9")).
		Bold(true)

	infoStyle := lipgloss.NewStyle().
		Foreground(lipgloss.Color("11"))

	boxStyle := lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(lipgloss.Color("240")).
		Padding(0, 1)

	// Header
	var s strings.Builder
	s.WriteString(titleStyle.Render("WXLISTENER - LIVE DASHBOARD"))
	s.WriteString("\n")
	s.WriteString(headerStyle.Render(fmt.Sprintf("Device: %s | Poll: every %s | 'r' resets stats | 'q' quits",
		m.addr, m.interval)))
	s.WriteString("\n\n")

	// Device
	unknown := func(v string) string {
		if v == "" {
			return "?"
		}
		return v
	}
	s.WriteString(boxStyle.Render(fmt.Sprintf("%s %s   %s %s",
		labelStyle.Render("Firmware:"), valueStyle.Render(unknown(m.firmware)),
		labelStyle.Render("MAC:"), valueStyle.Render(unknown(m.mac)),
	)))
	s.WriteString("\n\n")

	// Statistics
	snap := m.stats.Snapshot()
	var validPercent, errorPercent float64
	if snap.TotalPolls > 0 {
		validPercent = float64(snap.ValidPolls) * 100.0 / float64(snap.TotalPolls)
		errorPercent = float64(snap.Failures()) * 100.0 / float64(snap.TotalPolls)
	}

	statsContent := strings.Builder{}
	statsContent.WriteString(fmt.Sprintf("%s %s   %s %s   %s %s\n",
		labelStyle.Render("Polls:"), valueStyle.Render(fmt.Sprintf("%d", snap.TotalPolls)),
		labelStyle.Render("Valid:"), valueStyle.Render(fmt.Sprintf("%d (%.1f%%)", snap.ValidPolls, validPercent)),
		labelStyle.Render("Failed:"), errorStyle.Render(fmt.Sprintf("%d (%.1f%%)", snap.Failures(), errorPercent)),
	))
	if snap.Failures() > 0 {
		statsContent.WriteString(fmt.Sprintf("%s %d   %s %d   %s %d\n",
			headerStyle.Render("connect"), snap.ConnectionErrors,
			headerStyle.Render("i/o"), snap.IOErrors,
			headerStyle.Render("protocol"), snap.ProtocolErrors,
		))
	}
	statsContent.WriteString(fmt.Sprintf("%s %s   %s %s",
		labelStyle.Render("Last poll:"), valueStyle.Render(snap.LastDuration.Round(time.Millisecond).String()),
		labelStyle.Render("Running:"), valueStyle.Render(formatDuration(time.Since(snap.StartTime))),
	))
	s.WriteString(boxStyle.Render(statsContent.String()))
	s.WriteString("\n\n")

	// Latest reading
	s.WriteString(labelStyle.Render("Latest Reading:"))
	s.WriteString("\n")
	if m.latest == nil {
		s.WriteString(boxStyle.Render(m.spinner.View() + " Waiting for first reading..."))
	} else {
		readingContent := strings.Builder{}
		readingContent.WriteString(headerStyle.Render(m.latest.Timestamp.Format("2006-01-02 15:04:05 UTC")))
		for _, key := range gw1000.SortedKeys(m.latest.Data) {
			readingContent.WriteString(fmt.Sprintf("\n%s %s",
				labelStyle.Render(fmt.Sprintf("%-20s", key)),
				valueStyle.Render(gw1000.FormatValue(key, m.latest.Data[key])),
			))
		}
		s.WriteString(boxStyle.Render(readingContent.String()))
	}
	s.WriteString("\n\n")

	// Event log
	s.WriteString(labelStyle.Render("Recent Events:"))
	s.WriteString("\n")

	logHeight := m.height - 20
	if m.latest != nil {
		logHeight -= len(m.latest.Data)
	}
	if logHeight < 3 {
		logHeight = 3
	}

	logContent := strings.Builder{}
	startIdx := len(m.eventLog) - logHeight
	if startIdx < 0 {
		startIdx = 0
	}

	if len(m.eventLog) == 0 {
		logContent.WriteString(headerStyle.Render("  (no events yet)"))
	} else {
		for i := startIdx; i < len(m.eventLog); i++ {
			entry := m.eventLog[i]
			timestamp := entry.timestamp.Format("01/02/06 15:04:05.000")
			if entry.isError {
				logContent.WriteString(fmt.Sprintf("%s %s\n",
					headerStyle.Render(timestamp),
					errorStyle.Render("✗ "+entry.message),
				))
			} else {
				logContent.WriteString(fmt.Sprintf("%s %s\n",
					headerStyle.Render(timestamp),
					infoStyle.Render("ℹ "+entry.message),
				))
			}
		}
	}

	s.WriteString(boxStyle.Width(m.width - 4).Render(logContent.String()))

	return s.String()
}

func runTUI(cmd *cobra.Command, args []string) error {
	interval, err := pollInterval()
	if err != nil {
		return err
	}
	client, err := OpenDevice()
	if err != nil {
		return err
	}

	ctx, stop := signalContext()
	defer stop()

	// stderr belongs to the dashboard; only a log file keeps poll logs
	tuiLogger := logger
	if logFile == "" {
		tuiLogger = slog.New(slog.DiscardHandler)
	}

	p := poller.New(client, poller.Options{Interval: interval, Logger: tuiLogger})
	events, unsubscribe := p.Events().Subscribe(16)
	defer unsubscribe()

	program := tea.NewProgram(initialModel(client.Addr(), interval, client, p.Stats()), tea.WithContext(ctx))

	go func() {
		for ev := range events {
			program.Send(pollEventMsg(ev))
		}
	}()

	pollDone := make(chan error, 1)
	go func() { pollDone <- p.Run(ctx) }()

	_, err = program.Run()
	stop()
	pollErr := <-pollDone
	if err != nil && ctx.Err() == nil {
		return fmt.Errorf("dashboard: %w", err)
	}
	return pollErr
}
