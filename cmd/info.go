// SPDX-License-Identifier: GPL-2.0-or-later
// Copyright (c) 2025 Kaz Walker, Thermoquad

package cmd

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"
)

var infoCmd = &cobra.Command{
	Use:   "info",
	Short: "Show gateway firmware version and MAC address",
	Long: `Query the gateway once for its firmware version and station MAC address.

Fails if either request fails.`,
	RunE: runInfo,
}

func init() {
	rootCmd.AddCommand(infoCmd)
}

func runInfo(cmd *cobra.Command, args []string) error {
	client, err := OpenDevice()
	if err != nil {
		return err
	}

	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	version, err := client.FirmwareVersion(ctx)
	if err != nil {
		return fmt.Errorf("failed to get firmware: %w", err)
	}
	mac, err := client.MACAddress(ctx)
	if err != nil {
		return fmt.Errorf("failed to get MAC: %w", err)
	}

	fmt.Printf("Target device:    %s\n", client.Addr())
	fmt.Printf("Firmware Version: %s\n", version)
	fmt.Printf("MAC Address:      %s\n", mac)
	return nil
}
