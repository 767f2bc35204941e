// SPDX-License-Identifier: GPL-2.0-or-later
// Copyright (c) 2025 Kaz Walker, Thermoquad

package cmd

import (
	"io"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/Thermoquad/wxlistener/internal/config"
	"github.com/Thermoquad/wxlistener/internal/logging"
	"github.com/Thermoquad/wxlistener/internal/poller"
	"github.com/Thermoquad/wxlistener/internal/sink"
	"github.com/Thermoquad/wxlistener/internal/web"
	"github.com/Thermoquad/wxlistener/pkg/gw1000"
)

var (
	// Device connection flags
	deviceIP   string
	devicePort int
	configPath string

	// Logging flags
	logLevel string
	logFile  string

	// Listen flags
	outputFormat  string
	pollSeconds   int
	webEnabled    bool
	webHost       string
	webPort       int
	dbCreateTable bool
)

var (
	appConfig *config.Config
	logger    = slog.Default()
	logCloser io.Closer
)

var rootCmd = &cobra.Command{
	Use:   "wxlistener",
	Short: "GW1000/Ecowitt Gateway Weather Station Listener",
	Long: `wxlistener - Poll a GW1000/Ecowitt weather gateway and forward its live data.

Without a subcommand the gateway is polled continuously. Each reading is sent to
every sink configured in the config file ([database], [mqtt], [http]), and is
printed to the console when none are configured.

Device selection:
  Flags:       --ip 192.168.1.50 [--port 45000]
  Config file: --config wxlistener.toml (ip/port in the file take precedence)

Database and MQTT passwords are read from WXLISTENER_DATABASE_PASSWORD and
WXLISTENER_MQTT_PASSWORD, or prompted interactively when missing. No password
flags are provided to avoid leaking credentials in shell history.`,
	Version:           "1.0.0",
	SilenceUsage:      true,
	PersistentPreRunE: setup,
	PersistentPostRunE: func(cmd *cobra.Command, args []string) error {
		if logCloser != nil {
			return logCloser.Close()
		}
		return nil
	},
	RunE: runListen,
}

func init() {
	// Device connection flags
	rootCmd.PersistentFlags().StringVarP(&deviceIP, "ip", "i", "", "IP address of the weather station")
	rootCmd.PersistentFlags().IntVarP(&devicePort, "port", "p", gw1000.DefaultPort, "Gateway TCP port")
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "", "Path to configuration file (TOML)")

	// Logging flags
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "info", "Log level (debug, info, warn, error)")
	rootCmd.PersistentFlags().StringVar(&logFile, "log-file", "", "Write JSON logs to a rotated file instead of stderr")

	// Listen flags
	rootCmd.Flags().StringVarP(&outputFormat, "format", "f", sink.FormatText, "Output format: text, json")
	addPollFlags(rootCmd)
	rootCmd.Flags().BoolVar(&webEnabled, "web", false, "Serve the live dashboard while listening")
	rootCmd.Flags().BoolVar(&dbCreateTable, "db-create-table", false, "Create the database table and exit")
}

// addPollFlags registers the flags shared by the polling commands
func addPollFlags(cmd *cobra.Command) {
	cmd.Flags().IntVar(&pollSeconds, "continuous", int(poller.DefaultInterval.Seconds()), "Poll every N seconds")
	cmd.Flags().StringVar(&webHost, "web-host", web.DefaultHost, "Dashboard listen address")
	cmd.Flags().IntVar(&webPort, "web-port", web.DefaultPort, "Dashboard listen port")
}

// setup configures logging and loads the config file for every command
func setup(cmd *cobra.Command, args []string) error {
	l, closer, err := logging.New(logging.Options{Level: logLevel, File: logFile})
	if err != nil {
		return err
	}
	logger = l
	logCloser = closer
	slog.SetDefault(l)

	if configPath != "" {
		cfg, err := config.Load(configPath)
		if err != nil {
			return err
		}
		appConfig = cfg
		logger.Debug("config loaded", "path", configPath)
	}
	return nil
}

// Execute runs the root command
func Execute() error {
	return rootCmd.Execute()
}
