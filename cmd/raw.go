// SPDX-License-Identifier: GPL-2.0-or-later
// Copyright (c) 2025 Kaz Walker, Thermoquad

package cmd

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/Thermoquad/wxlistener/pkg/gw1000"
)

var rawCmd = &cobra.Command{
	Use:   "raw [firmware|mac|livedata]",
	Short: "Send one command and dump the raw response frame",
	Long: `Send a single command to the gateway and display the request and
response frames byte by byte, followed by the decoded result.

Useful when a gateway firmware returns something the decoder does not
expect. Defaults to livedata.`,
	Args:      cobra.MaximumNArgs(1),
	ValidArgs: []string{"firmware", "mac", "livedata"},
	RunE:      runRaw,
}

func init() {
	rootCmd.AddCommand(rawCmd)
}

// rawCommand maps a command name to its code
func rawCommand(name string) (uint8, error) {
	switch strings.ToLower(name) {
	case "firmware":
		return gw1000.CmdReadFirmwareVersion, nil
	case "mac":
		return gw1000.CmdReadStationMAC, nil
	case "", "livedata":
		return gw1000.CmdLiveData, nil
	default:
		return 0, fmt.Errorf("unknown command %q (use firmware, mac or livedata)", name)
	}
}

func runRaw(cmd *cobra.Command, args []string) error {
	name := ""
	if len(args) > 0 {
		name = args[0]
	}
	code, err := rawCommand(name)
	if err != nil {
		return err
	}
	client, err := OpenDevice()
	if err != nil {
		return err
	}

	ctx, stop := signalContext()
	defer stop()

	fmt.Printf("WXListener - Raw Frame Dump\n")
	fmt.Printf("Device: %s\n\n", client.Addr())
	fmt.Printf("Request:  % X\n\n", gw1000.BuildRequest(code, nil))

	resp, err := client.Raw(ctx, code)
	if err != nil {
		return err
	}
	fmt.Print(gw1000.FormatFrame(resp))

	if code != gw1000.CmdLiveData {
		return nil
	}
	payload, err := gw1000.Payload(resp)
	if err != nil {
		return err
	}
	data := gw1000.ParseLiveData(payload)
	fmt.Printf("\nDecoded %d fields:\n", len(data))
	for _, key := range gw1000.SortedKeys(data) {
		fmt.Printf("  %-20s : %s\n", key, gw1000.FormatValue(key, data[key]))
	}
	return nil
}
