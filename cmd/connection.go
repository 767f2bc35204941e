// SPDX-License-Identifier: GPL-2.0-or-later
// Copyright (c) 2025 Kaz Walker, Thermoquad

package cmd

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"golang.org/x/term"

	"github.com/Thermoquad/wxlistener/internal/config"
	"github.com/Thermoquad/wxlistener/internal/database"
	"github.com/Thermoquad/wxlistener/internal/mqttsink"
	"github.com/Thermoquad/wxlistener/internal/sink"
	"github.com/Thermoquad/wxlistener/pkg/gw1000"
)

// OpenDevice builds a gateway client from --config or --ip/--port
func OpenDevice() (*gw1000.Client, error) {
	addr, err := config.DeviceAddress(appConfig, deviceIP, devicePort)
	if err != nil {
		return nil, err
	}
	return gw1000.NewClient(addr), nil
}

// signalContext is canceled on SIGINT or SIGTERM
func signalContext() (context.Context, context.CancelFunc) {
	return signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
}

func stdinIsTerminal() bool {
	return term.IsTerminal(int(syscall.Stdin))
}

// GetPassword retrieves a password from envVar or prompts the user
func GetPassword(prompt, envVar string) (string, error) {
	// First check environment variable
	if pw := os.Getenv(envVar); pw != "" {
		return pw, nil
	}

	fmt.Fprint(os.Stderr, prompt)

	// Read password without echo
	passwordBytes, err := term.ReadPassword(int(syscall.Stdin))
	if err != nil {
		// Fallback to regular input if terminal functions fail
		reader := bufio.NewReader(os.Stdin)
		password, err := reader.ReadString('\n')
		if err != nil {
			return "", fmt.Errorf("failed to read password: %w", err)
		}
		fmt.Fprintln(os.Stderr) // newline after password
		return strings.TrimSpace(password), nil
	}

	fmt.Fprintln(os.Stderr) // newline after password
	return string(passwordBytes), nil
}

// askYesNo prints question and reads an answer; empty means yes
func askYesNo(in io.Reader, out io.Writer, question string) (bool, error) {
	fmt.Fprintf(out, "%s (Y/n): ", question)
	line, err := bufio.NewReader(in).ReadString('\n')
	if err != nil && (err != io.EOF || line == "") {
		return false, fmt.Errorf("failed to read answer: %w", err)
	}
	switch strings.ToLower(strings.TrimSpace(line)) {
	case "", "y", "yes":
		return true, nil
	default:
		return false, nil
	}
}

// confirmCreateTable is the interactive database.Confirm used by listen.
// Non-interactive sessions never create the table implicitly.
func confirmCreateTable(table string) (bool, error) {
	if !stdinIsTerminal() {
		return false, nil
	}
	fmt.Printf("Table '%s' does not exist in the database.\n", table)
	ok, err := askYesNo(os.Stdin, os.Stdout, "Would you like to create it now?")
	if ok {
		fmt.Printf("Creating table '%s'...\n", table)
	}
	return ok, err
}

// openDatabase connects the [database] section, prompting for a missing password
func openDatabase(ctx context.Context, cfg *config.DatabaseConfig) (*database.Writer, error) {
	if cfg.NeedsPassword() && stdinIsTerminal() {
		pw, err := GetPassword("Database password: ", config.EnvPrefix+"_DATABASE_PASSWORD")
		if err != nil {
			return nil, err
		}
		cfg.Password = pw
	}
	return database.Open(ctx, cfg)
}

// openMQTT connects the [mqtt] section, prompting for a missing password
func openMQTT(ctx context.Context, cfg *config.MQTTConfig) (*mqttsink.Publisher, error) {
	if cfg.ConnectionString == "" && cfg.Username != "" && cfg.Password == "" && stdinIsTerminal() {
		pw, err := GetPassword("MQTT password: ", config.EnvPrefix+"_MQTT_PASSWORD")
		if err != nil {
			return nil, err
		}
		cfg.Password = pw
	}
	return mqttsink.Connect(ctx, cfg, logger)
}

// sinkSet is the sinks built from the config file
type sinkSet struct {
	db   *database.Writer
	mqtt *mqttsink.Publisher
	http *sink.HTTP
}

func (s sinkSet) empty() bool {
	return s.db == nil && s.mqtt == nil && s.http == nil
}

func (s sinkSet) close() {
	if s.db != nil {
		_ = s.db.Close()
	}
	if s.mqtt != nil {
		_ = s.mqtt.Close()
	}
	if s.http != nil {
		_ = s.http.Close()
	}
}

// openSinks connects every configured sink. The database table is verified
// and created on confirmation.
func openSinks(ctx context.Context) (sinkSet, error) {
	var set sinkSet
	if appConfig == nil {
		return set, nil
	}

	if appConfig.Database != nil {
		w, err := openDatabase(ctx, appConfig.Database)
		if err == nil {
			err = w.EnsureTable(ctx, confirmCreateTable)
			if err != nil {
				_ = w.Close()
			}
		}
		if err != nil {
			fmt.Fprintf(os.Stderr, "✗ Database connection failed: %v\n", err)
			fmt.Fprintf(os.Stderr, "  Cannot continue with database configuration.\n")
			return set, err
		}
		set.db = w
		fmt.Printf("✓ Connected to database and table verified\n")
	}

	if appConfig.MQTT != nil {
		p, err := openMQTT(ctx, appConfig.MQTT)
		if err != nil {
			fmt.Fprintf(os.Stderr, "✗ MQTT connection failed: %v\n", err)
			fmt.Fprintf(os.Stderr, "  Cannot continue with MQTT as it is currently configured.\n")
			set.close()
			return sinkSet{}, err
		}
		set.mqtt = p
		fmt.Printf("✓ Connected to MQTT broker (topic: %s)\n", p.Topic())
	}

	if appConfig.HTTP != nil {
		h, err := sink.NewHTTP(appConfig.HTTP)
		if err != nil {
			fmt.Fprintf(os.Stderr, "✗ HTTP configuration failed: %v\n", err)
			fmt.Fprintf(os.Stderr, "  Cannot continue with HTTP as it is currently configured.\n")
			set.close()
			return sinkSet{}, err
		}
		set.http = h
		fmt.Printf("✓ HTTP endpoint configured (url: %s)\n", h.URL())
	}

	return set, nil
}
