// SPDX-License-Identifier: GPL-2.0-or-later
// Copyright (c) 2025 Kaz Walker, Thermoquad

package cmd

import (
	"fmt"
	"io"
	"net/http"
	"sort"
	"strings"
	"time"

	"github.com/gorilla/websocket"
	"github.com/spf13/cobra"

	"github.com/Thermoquad/wxlistener/internal/web"
)

var (
	watchURL      string
	watchDuration int
	watchAuth     string
)

var watchCmd = &cobra.Command{
	Use:   "watch",
	Short: "Follow a running dashboard over its WebSocket",
	Long: `Connect to the /ws endpoint of a running wxlistener dashboard and print
each update as it arrives.

Useful for checking a remote listener without a browser, or for testing
WebSocket connection stability through a proxy.

Exit codes:
  0 - Watch completed normally
  1 - Connection lost
  2 - Connection error`,
	RunE: runWatch,
}

func init() {
	rootCmd.AddCommand(watchCmd)
	watchCmd.Flags().StringVar(&watchURL, "url", fmt.Sprintf("ws://localhost:%d/ws", web.DefaultPort), "Dashboard WebSocket URL")
	watchCmd.Flags().IntVar(&watchDuration, "duration", 0, "Stop after N seconds (0 runs until interrupted)")
	watchCmd.Flags().StringVar(&watchAuth, "auth", "", "Authorization header to send (e.g. 'Basic dXNlcjpwYXNz')")
}

// formatUpdate renders one dashboard message as a single line
func formatUpdate(msg web.Message) string {
	if msg.Error != "" {
		return fmt.Sprintf("[%s] ERROR %s", msg.Timestamp, msg.Error)
	}
	keys := make([]string, 0, len(msg.Data))
	for k := range msg.Data {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var b strings.Builder
	fmt.Fprintf(&b, "[%s]", msg.Timestamp)
	for _, k := range keys {
		fmt.Fprintf(&b, " %s=%s", k, msg.Data[k])
	}
	return b.String()
}

// readUpdates decodes dashboard messages until the connection fails
func readUpdates(conn *websocket.Conn, out chan<- web.Message) error {
	for {
		var msg web.Message
		if err := conn.ReadJSON(&msg); err != nil {
			return err
		}
		out <- msg
	}
}

func runWatch(cmd *cobra.Command, args []string) error {
	header := http.Header{}
	if watchAuth != "" {
		header.Set("Authorization", watchAuth)
	}

	dialer := websocket.Dialer{HandshakeTimeout: 10 * time.Second}
	conn, resp, err := dialer.Dial(watchURL, header)
	if err != nil {
		if resp != nil {
			body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
			resp.Body.Close()
			return exitf(2, "connection error: %v (%s: %s)", err, resp.Status, strings.TrimSpace(string(body)))
		}
		return exitf(2, "connection error: %v", err)
	}
	defer conn.Close()

	fmt.Printf("WXListener - Dashboard Watch\n")
	fmt.Printf("Connection: %s\n\n", watchURL)

	ctx, stop := signalContext()
	defer stop()

	updates := make(chan web.Message, 16)
	errChan := make(chan error, 1)
	go func() { errChan <- readUpdates(conn, updates) }()

	var deadline <-chan time.Time
	if watchDuration > 0 {
		deadline = time.After(time.Duration(watchDuration) * time.Second)
	}

	startTime := time.Now()
	received := 0

	for {
		select {
		case msg := <-updates:
			received++
			fmt.Println(formatUpdate(msg))

		case err := <-errChan:
			fmt.Printf("\n[%s] Connection error: %v\n", time.Now().Format("15:04:05.000"), err)
			fmt.Printf("\n--- Watch Results ---\n")
			fmt.Printf("Duration: %v\n", time.Since(startTime).Round(time.Second))
			fmt.Printf("Updates received: %d\n", received)
			return exitf(1, "connection lost: %v", err)

		case <-deadline:
			stop()

		case <-ctx.Done():
			_ = conn.WriteControl(websocket.CloseMessage,
				websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
				time.Now().Add(time.Second))
			fmt.Printf("\n--- Watch Results ---\n")
			fmt.Printf("Duration: %v\n", time.Since(startTime).Round(time.Second))
			fmt.Printf("Updates received: %d\n", received)
			return nil
		}
	}
}
