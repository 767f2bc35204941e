// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

package database

import (
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/Thermoquad/wxlistener/pkg/gw1000"
)

// excludedFields are decoded but never stored
var excludedFields = map[string]bool{
	"heap_free": true,
}

var identifierPattern = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*$`)

// dialect captures the SQL differences between backends
type dialect struct {
	name        string
	idColumn    string
	tsType      string
	valueType   string
	existsQuery string
	placeholder func(n int) string
}

var (
	postgresDialect = dialect{
		name:      "postgres",
		idColumn:  "id SERIAL PRIMARY KEY",
		tsType:    "TIMESTAMP WITH TIME ZONE",
		valueType: "DOUBLE PRECISION",
		existsQuery: `SELECT EXISTS (SELECT FROM information_schema.tables
			WHERE table_schema = current_schema() AND table_name = $1)`,
		placeholder: func(n int) string { return fmt.Sprintf("$%d", n) },
	}
	mysqlDialect = dialect{
		name:      "mysql",
		idColumn:  "id INT AUTO_INCREMENT PRIMARY KEY",
		tsType:    "TIMESTAMP",
		valueType: "DOUBLE",
		existsQuery: `SELECT COUNT(*) > 0 FROM information_schema.tables
			WHERE table_name = ? AND table_schema = DATABASE()`,
		placeholder: func(int) string { return "?" },
	}
	sqliteDialect = dialect{
		name:        "sqlite",
		idColumn:    "id INTEGER PRIMARY KEY AUTOINCREMENT",
		tsType:      "TIMESTAMP",
		valueType:   "REAL",
		existsQuery: `SELECT COUNT(*) > 0 FROM sqlite_master WHERE type = 'table' AND name = ?`,
		placeholder: func(int) string { return "?" },
	}
)

// Columns returns the stored measurement columns in sorted order
func Columns() []string {
	var cols []string
	for _, name := range gw1000.FieldNames() {
		if !excludedFields[name] {
			cols = append(cols, name)
		}
	}
	return cols
}

func validateTableName(name string) error {
	if !identifierPattern.MatchString(name) {
		return fmt.Errorf("invalid table name %q", name)
	}
	return nil
}

func (d dialect) createTableSQL(table string) string {
	var b strings.Builder
	fmt.Fprintf(&b, "CREATE TABLE IF NOT EXISTS %s (\n", table)
	fmt.Fprintf(&b, "    %s,\n", d.idColumn)
	fmt.Fprintf(&b, "    timestamp %s NOT NULL", d.tsType)
	for _, col := range Columns() {
		fmt.Fprintf(&b, ",\n    %s %s", col, d.valueType)
	}
	b.WriteString("\n)")
	return b.String()
}

// insertSQL builds the statement and argument list for one reading. Columns
// follow sorted key order; unknown and excluded keys are dropped.
func (d dialect) insertSQL(table string, ts time.Time, data gw1000.LiveData) (string, []any) {
	cols := []string{"timestamp"}
	args := []any{ts}

	for _, key := range gw1000.SortedKeys(data) {
		if excludedFields[key] {
			continue
		}
		if _, known := knownColumns[key]; !known {
			continue
		}
		cols = append(cols, key)
		args = append(args, data[key])
	}

	placeholders := make([]string, len(cols))
	for i := range cols {
		placeholders[i] = d.placeholder(i + 1)
	}

	query := fmt.Sprintf("INSERT INTO %s (%s) VALUES (%s)",
		table, strings.Join(cols, ", "), strings.Join(placeholders, ", "))
	return query, args
}

var knownColumns = func() map[string]struct{} {
	m := make(map[string]struct{})
	for _, c := range Columns() {
		m[c] = struct{}{}
	}
	return m
}()
