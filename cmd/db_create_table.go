// SPDX-License-Identifier: GPL-2.0-or-later
// Copyright (c) 2025 Kaz Walker, Thermoquad

package cmd

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"
)

var dbCreateTableCmd = &cobra.Command{
	Use:   "db_create_table",
	Short: "Create the readings table and exit",
	Long: `Connect to the database from the [database] section of the config file and
create the readings table if it does not exist. Equivalent to --db-create-table.`,
	RunE: runCreateTable,
}

func init() {
	rootCmd.AddCommand(dbCreateTableCmd)
}

func runCreateTable(cmd *cobra.Command, args []string) error {
	if appConfig == nil || appConfig.Database == nil {
		return errors.New("database configuration required. Add [database] section to config file")
	}

	ctx, stop := signalContext()
	defer stop()

	fmt.Printf("Creating database table...\n")
	w, err := openDatabase(ctx, appConfig.Database)
	if err != nil {
		return err
	}
	defer w.Close()

	if err := w.CreateTable(ctx); err != nil {
		return err
	}
	fmt.Printf("✓ Table '%s' created successfully\n", w.Table())
	return nil
}
