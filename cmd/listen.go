// SPDX-License-Identifier: GPL-2.0-or-later
// Copyright (c) 2025 Kaz Walker, Thermoquad

package cmd

import (
	"context"
	"errors"
	"fmt"
	"net"
	"os"
	"strconv"
	"time"

	"github.com/spf13/cobra"

	"github.com/Thermoquad/wxlistener/internal/metrics"
	"github.com/Thermoquad/wxlistener/internal/poller"
	"github.com/Thermoquad/wxlistener/internal/sink"
	"github.com/Thermoquad/wxlistener/internal/web"
	"github.com/Thermoquad/wxlistener/pkg/gw1000"
)

const banner = "============================================================"

func pollInterval() (time.Duration, error) {
	if pollSeconds <= 0 {
		return 0, fmt.Errorf("--continuous must be a positive number of seconds, got %d", pollSeconds)
	}
	return time.Duration(pollSeconds) * time.Second, nil
}

func webAddr() string {
	return net.JoinHostPort(webHost, strconv.Itoa(webPort))
}

// printDeviceInfo queries firmware and MAC; failures are reported inline
func printDeviceInfo(ctx context.Context, client *gw1000.Client) {
	fmt.Printf("--- Device Information ---\n")
	if version, err := client.FirmwareVersion(ctx); err != nil {
		fmt.Printf("✗ Failed to get firmware: %v\n", err)
	} else {
		fmt.Printf("✓ Firmware Version: %s\n", version)
	}
	if mac, err := client.MACAddress(ctx); err != nil {
		fmt.Printf("✗ Failed to get MAC: %v\n", err)
	} else {
		fmt.Printf("✓ MAC Address: %s\n", mac)
	}
}

// startWeb serves the dashboard in the background. Errors are logged and do
// not stop polling.
func startWeb(ctx context.Context, events *poller.Broadcaster, m *metrics.Metrics) <-chan struct{} {
	done := make(chan struct{})
	srv := web.New(events, m, logger)
	go func() {
		defer close(done)
		if err := srv.Run(ctx, webAddr()); err != nil {
			logger.Error("web server stopped", "error", err)
		}
	}()
	return done
}

func runListen(cmd *cobra.Command, args []string) error {
	if dbCreateTable {
		return runCreateTable(cmd, args)
	}

	console, err := sink.NewConsole(os.Stdout, outputFormat)
	if err != nil {
		return err
	}
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

	sinks, err := openSinks(ctx)
	if err != nil {
		return err
	}

	fmt.Printf("%s\n", banner)
	fmt.Printf("GW1000/Ecowitt Gateway Weather Station Listener\n")
	fmt.Printf("%s\n", banner)
	fmt.Printf("Target device: %s\n\n", client.Addr())

	printDeviceInfo(ctx, client)

	m := metrics.New()
	p := poller.New(client, poller.Options{
		Interval: interval,
		Logger:   logger,
		Metrics:  m,
	})
	defer p.Close()

	fmt.Printf("\n--- Continuous Mode (every %d seconds) ---\n", pollSeconds)
	if sinks.db != nil {
		p.AddSink(sinks.db, true)
		fmt.Printf("Database logging: ENABLED\n")
	}
	if sinks.mqtt != nil {
		p.AddSink(sinks.mqtt, true)
		fmt.Printf("MQTT publishing: ENABLED\n")
	}
	if sinks.http != nil {
		p.AddSink(sinks.http, false)
		fmt.Printf("HTTP publishing: ENABLED\n")
	}
	if sinks.empty() {
		p.AddSink(console, false)
	}

	var webDone <-chan struct{}
	if webEnabled {
		webDone = startWeb(ctx, p.Events(), m)
		fmt.Printf("Web server: ENABLED (http://%s)\n", webAddr())
	}
	fmt.Printf("Press Ctrl+C to stop\n\n")

	runErr := p.Run(ctx)
	stop()
	if webDone != nil {
		<-webDone
	}

	fmt.Printf("\n%s", p.Stats().String())
	if runErr != nil && !errors.Is(runErr, context.Canceled) {
		fmt.Fprintf(os.Stderr, "✗ %v\n", runErr)
		return runErr
	}
	return nil
}
