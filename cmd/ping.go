// SPDX-License-Identifier: GPL-2.0-or-later
// Copyright (c) 2025 Kaz Walker, Thermoquad

package cmd

import (
	"errors"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/Thermoquad/wxlistener/internal/config"
	"github.com/Thermoquad/wxlistener/pkg/gw1000"
)

var (
	pingTimeout int
	pingCount   int
)

var pingCmd = &cobra.Command{
	Use:   "ping",
	Short: "Check that the gateway answers firmware requests",
	Long: `Send firmware version requests to the gateway and report round trip times.

Each request opens its own TCP connection, the same way polling does, so
this is a quick check that the address is right and the gateway is
answering.

Exit codes:
  0 - All pings successful
  1 - One or more pings failed/timed out
  2 - Gateway unreachable`,
	RunE: runPing,
}

func init() {
	rootCmd.AddCommand(pingCmd)
	pingCmd.Flags().IntVar(&pingTimeout, "timeout", int(gw1000.DefaultTimeout.Seconds()), "Timeout in seconds for each ping")
	pingCmd.Flags().IntVar(&pingCount, "count", 3, "Number of pings to send")
}

// pingSummary renders the closing statistics line
func pingSummary(sent, received int) string {
	loss := 0.0
	if sent > 0 {
		loss = float64(sent-received) / float64(sent) * 100
	}
	return fmt.Sprintf("%d pings sent, %d responses received, %.0f%% packet loss", sent, received, loss)
}

func runPing(cmd *cobra.Command, args []string) error {
	if pingCount <= 0 || pingTimeout <= 0 {
		return fmt.Errorf("--count and --timeout must be positive")
	}
	addr, err := config.DeviceAddress(appConfig, deviceIP, devicePort)
	if err != nil {
		return err
	}
	client := gw1000.NewClient(addr, gw1000.WithTimeout(time.Duration(pingTimeout)*time.Second))

	ctx, stop := signalContext()
	defer stop()

	fmt.Printf("WXListener - Gateway Ping\n")
	fmt.Printf("Device: %s\n", client.Addr())
	fmt.Printf("Timeout: %d seconds per ping\n", pingTimeout)
	fmt.Printf("Count: %d pings\n\n", pingCount)

	successCount := 0
	unreachable := 0
	sent := 0

	for i := 1; i <= pingCount && ctx.Err() == nil; i++ {
		fmt.Printf("Ping %d/%d: ", i, pingCount)
		sent++

		startTime := time.Now()
		firmware, err := client.FirmwareVersion(ctx)
		rtt := time.Since(startTime)

		switch {
		case err == nil:
			fmt.Printf("reply from %s, firmware=%s, rtt=%v\n", client.Addr(), firmware, rtt.Round(time.Millisecond))
			successCount++
		case errors.Is(err, gw1000.ErrConnection):
			fmt.Printf("UNREACHABLE: %v\n", err)
			unreachable++
		default:
			fmt.Printf("FAILED: %v\n", err)
		}

		// Small delay between pings
		if i < pingCount {
			time.Sleep(100 * time.Millisecond)
		}
	}

	fmt.Printf("\n--- Ping statistics ---\n")
	fmt.Println(pingSummary(sent, successCount))

	return pingResult(sent, successCount, unreachable)
}

// pingResult maps ping counts to the command's exit status
func pingResult(sent, received, unreachable int) error {
	switch {
	case sent > 0 && unreachable == sent:
		return exitf(2, "gateway unreachable")
	case received < sent:
		return exitf(1, "%d of %d pings failed", sent-received, sent)
	default:
		return nil
	}
}
