// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

// Package database stores readings in PostgreSQL, MySQL or SQLite.
package database

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/Thermoquad/wxlistener/internal/config"
	"github.com/Thermoquad/wxlistener/internal/sink"
)

// ErrTableMissing is returned when the table does not exist and creation
// was declined.
var ErrTableMissing = errors.New("table does not exist")

// backend is one open connection pool
type backend interface {
	exec(ctx context.Context, query string, args ...any) error
	queryBool(ctx context.Context, query string, args ...any) (bool, error)
	close() error
}

// Writer inserts readings into the configured table
type Writer struct {
	db      backend
	dialect dialect
	table   string
}

// Confirm asks whether a missing table should be created
type Confirm func(table string) (bool, error)

// Open connects using cfg. The table is not checked; see EnsureTable.
func Open(ctx context.Context, cfg *config.DatabaseConfig) (*Writer, error) {
	table := cfg.TableName
	if table == "" {
		table = config.DefaultTableName
	}
	if err := validateTableName(table); err != nil {
		return nil, err
	}

	conn, err := cfg.BuildConnectionString()
	if err != nil {
		return nil, err
	}

	var (
		db backend
		d  dialect
	)
	switch {
	case strings.HasPrefix(conn, "postgres://"), strings.HasPrefix(conn, "postgresql://"):
		db, err = openPostgres(ctx, conn)
		d = postgresDialect
	case strings.HasPrefix(conn, "mysql://"):
		db, err = openMySQL(ctx, conn)
		d = mysqlDialect
	case strings.HasPrefix(conn, "sqlite://"), strings.HasPrefix(conn, "file:"), conn == ":memory:":
		db, err = openSQLite(ctx, conn)
		d = sqliteDialect
	default:
		return nil, errors.New("unsupported database type. Use postgres://, mysql:// or sqlite://")
	}
	if err != nil {
		return nil, err
	}

	return &Writer{db: db, dialect: d, table: table}, nil
}

// Table is the target table name
func (w *Writer) Table() string { return w.table }

// Dialect is postgres, mysql or sqlite
func (w *Writer) Dialect() string { return w.dialect.name }

// TableExists reports whether the target table is present
func (w *Writer) TableExists(ctx context.Context) (bool, error) {
	exists, err := w.db.queryBool(ctx, w.dialect.existsQuery, w.table)
	if err != nil {
		return false, fmt.Errorf("failed to check if table exists: %w", err)
	}
	return exists, nil
}

// CreateTable creates the target table if it is missing
func (w *Writer) CreateTable(ctx context.Context) error {
	if err := w.db.exec(ctx, w.dialect.createTableSQL(w.table)); err != nil {
		return fmt.Errorf("failed to create table: %w", err)
	}
	return nil
}

// EnsureTable creates the table when confirm agrees. A nil confirm declines.
func (w *Writer) EnsureTable(ctx context.Context, confirm Confirm) error {
	exists, err := w.TableExists(ctx)
	if err != nil || exists {
		return err
	}

	ok := false
	if confirm != nil {
		if ok, err = confirm(w.table); err != nil {
			return err
		}
	}
	if !ok {
		return fmt.Errorf("%w: %q. Cannot proceed without it. "+
			"Run with --db-create-table to create it non-interactively", ErrTableMissing, w.table)
	}
	return w.CreateTable(ctx)
}

func (w *Writer) Name() string { return "database" }

// Publish inserts one row
func (w *Writer) Publish(ctx context.Context, r sink.Reading) error {
	query, args := w.dialect.insertSQL(w.table, r.Timestamp, r.Data)
	if err := w.db.exec(ctx, query, args...); err != nil {
		return fmt.Errorf("failed to insert data: %w", err)
	}
	return nil
}

func (w *Writer) Close() error {
	return w.db.close()
}
