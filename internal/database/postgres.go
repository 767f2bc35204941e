// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

package database

import (
	"context"
	"fmt"
	"net/url"

	"github.com/jackc/pgx/v5/pgxpool"
)

type postgresBackend struct {
	pool *pgxpool.Pool
}

// pgxConnString folds ssl-verify=false into sslmode=require, which pgx
// treats as encrypted without verification.
func pgxConnString(conn string) (string, error) {
	u, err := url.Parse(conn)
	if err != nil {
		return "", fmt.Errorf("invalid PostgreSQL connection string: %w", err)
	}
	q := u.Query()
	if q.Get("ssl-verify") == "false" {
		q.Del("ssl-verify")
		q.Set("sslmode", "require")
	}
	u.RawQuery = q.Encode()
	return u.String(), nil
}

func openPostgres(ctx context.Context, conn string) (backend, error) {
	conn, err := pgxConnString(conn)
	if err != nil {
		return nil, err
	}
	cfg, err := pgxpool.ParseConfig(conn)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to PostgreSQL database: %w", err)
	}
	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to PostgreSQL database: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to connect to PostgreSQL database: %w", err)
	}
	return &postgresBackend{pool: pool}, nil
}

func (b *postgresBackend) exec(ctx context.Context, query string, args ...any) error {
	_, err := b.pool.Exec(ctx, query, args...)
	return err
}

func (b *postgresBackend) queryBool(ctx context.Context, query string, args ...any) (bool, error) {
	var v bool
	err := b.pool.QueryRow(ctx, query, args...).Scan(&v)
	return v, err
}

func (b *postgresBackend) close() error {
	b.pool.Close()
	return nil
}
