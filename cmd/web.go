// SPDX-License-Identifier: GPL-2.0-or-later
// Copyright (c) 2025 Kaz Walker, Thermoquad

package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/Thermoquad/wxlistener/internal/metrics"
	"github.com/Thermoquad/wxlistener/internal/poller"
	"github.com/Thermoquad/wxlistener/internal/web"
)

var webCmd = &cobra.Command{
	Use:   "web",
	Short: "Serve the live dashboard only",
	Long: `Poll the gateway and serve the dashboard without any other sinks.

Routes:
  /                      HTML dashboard
  /ws                    WebSocket feed of formatted readings
  /api/v1/current.json   latest reading
  /healthz               liveness probe
  /metrics               Prometheus metrics`,
	RunE: runWeb,
}

func init() {
	addPollFlags(webCmd)
	rootCmd.AddCommand(webCmd)
}

func runWeb(cmd *cobra.Command, args []string) error {
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

	m := metrics.New()
	p := poller.New(client, poller.Options{Interval: interval, Logger: logger, Metrics: m})

	fmt.Printf("%s\n", banner)
	fmt.Printf("Web server starting on http://%s\n", webAddr())
	fmt.Printf("Target device: %s\n", client.Addr())
	fmt.Printf("Press Ctrl+C to stop\n")
	fmt.Printf("%s\n\n", banner)

	pollDone := make(chan error, 1)
	go func() { pollDone <- p.Run(ctx) }()

	err = web.New(p.Events(), m, logger).Run(ctx, webAddr())
	stop()
	if pollErr := <-pollDone; err == nil {
		err = pollErr
	}
	return err
}
