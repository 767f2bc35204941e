// SPDX-License-Identifier: GPL-2.0-or-later
// Copyright (c) 2025 Kaz Walker, Thermoquad

package cmd

import (
	"os"

	"github.com/spf13/cobra"

	"github.com/Thermoquad/wxlistener/internal/poller"
	"github.com/Thermoquad/wxlistener/internal/sink"
)

var livedataFormat string

var livedataCmd = &cobra.Command{
	Use:   "livedata",
	Short: "Poll live data once and print it",
	Long: `Request a single live data reading and print it as a table (text) or as
JSON. Configured sinks are not used.`,
	RunE: runLivedata,
}

func init() {
	livedataCmd.Flags().StringVarP(&livedataFormat, "format", "f", sink.FormatText, "Output format: text, json")
	rootCmd.AddCommand(livedataCmd)
}

func runLivedata(cmd *cobra.Command, args []string) error {
	console, err := sink.NewConsole(os.Stdout, livedataFormat)
	if err != nil {
		return err
	}
	client, err := OpenDevice()
	if err != nil {
		return err
	}

	ctx, stop := signalContext()
	defer stop()

	reading, err := poller.New(client, poller.Options{Logger: logger}).Poll(ctx)
	if err != nil {
		return err
	}
	return console.Publish(ctx, reading)
}
