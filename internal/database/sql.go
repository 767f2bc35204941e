// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

package database

import (
	"context"
	"database/sql"
	"fmt"
	"net/url"
	"strings"

	"github.com/go-sql-driver/mysql"
	_ "github.com/mattn/go-sqlite3"

	"github.com/Thermoquad/wxlistener/internal/config"
)

const mysqlTLSName = "wxlistener"

// sqlBackend serves the database/sql drivers
type sqlBackend struct {
	db *sql.DB
}

func (b *sqlBackend) exec(ctx context.Context, query string, args ...any) error {
	_, err := b.db.ExecContext(ctx, query, args...)
	return err
}

func (b *sqlBackend) queryBool(ctx context.Context, query string, args ...any) (bool, error) {
	var v bool
	err := b.db.QueryRowContext(ctx, query, args...).Scan(&v)
	return v, err
}

func (b *sqlBackend) close() error {
	return b.db.Close()
}

func ping(ctx context.Context, db *sql.DB, kind string) (backend, error) {
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to connect to %s database: %w", kind, err)
	}
	return &sqlBackend{db: db}, nil
}

// mysqlConfig translates a mysql:// URL into a driver config
func mysqlConfig(conn string) (*mysql.Config, error) {
	u, err := url.Parse(conn)
	if err != nil {
		return nil, fmt.Errorf("invalid MySQL connection string: %w", err)
	}

	cfg := mysql.NewConfig()
	cfg.Net = "tcp"
	cfg.Addr = u.Host
	if u.Port() == "" {
		cfg.Addr = u.Hostname() + ":3306"
	}
	cfg.DBName = strings.TrimPrefix(u.Path, "/")
	cfg.ParseTime = true
	if u.User != nil {
		cfg.User = u.User.Username()
		cfg.Passwd, _ = u.User.Password()
	}

	q := u.Query()
	switch {
	case q.Get("sslrootcert") != "" || q.Get("sslcert") != "":
		tlsCfg, err := config.LoadTLS(q.Get("sslrootcert"), q.Get("sslcert"), q.Get("sslkey"))
		if err != nil {
			return nil, err
		}
		tlsCfg.InsecureSkipVerify = q.Get("ssl-verify") == "false"
		if err := mysql.RegisterTLSConfig(mysqlTLSName, tlsCfg); err != nil {
			return nil, fmt.Errorf("register MySQL TLS config: %w", err)
		}
		cfg.TLSConfig = mysqlTLSName
	case q.Get("ssl-verify") == "false":
		cfg.TLSConfig = "skip-verify"
	case q.Get("sslmode") == "require":
		cfg.TLSConfig = "true"
	}
	return cfg, nil
}

func openMySQL(ctx context.Context, conn string) (backend, error) {
	cfg, err := mysqlConfig(conn)
	if err != nil {
		return nil, err
	}
	connector, err := mysql.NewConnector(cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to MySQL database: %w", err)
	}
	return ping(ctx, sql.OpenDB(connector), "MySQL")
}

// sqliteDSN strips the sqlite:// scheme; file: URIs pass through
func sqliteDSN(conn string) string {
	return strings.TrimPrefix(conn, "sqlite://")
}

func openSQLite(ctx context.Context, conn string) (backend, error) {
	db, err := sql.Open("sqlite3", sqliteDSN(conn))
	if err != nil {
		return nil, fmt.Errorf("failed to open SQLite database: %w", err)
	}
	// One connection keeps :memory: databases shared and serializes writes.
	db.SetMaxOpenConns(1)
	return ping(ctx, db, "SQLite")
}
