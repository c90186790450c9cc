// Copyright (c) 2026 Petar Djukic. All rights reserved.
// SPDX-License-Identifier: MIT

package snapshot

import (
	"fmt"
	"strings"
)

// Dialect abstracts the database-specific parts of the snapshot schema and
// queries. Statements are written with '?' placeholders and rebound per
// dialect.
type Dialect interface {
	// DriverName returns the database/sql driver name.
	DriverName() string

	// Placeholder returns the parameter placeholder for the 1-based index.
	Placeholder(index int) string

	// TimestampType returns the column type for timestamps.
	TimestampType() string

	// MaxOpenConns limits the connection pool; zero means unlimited.
	MaxOpenConns() int
}

// SQLiteDialect targets modernc.org/sqlite.
type SQLiteDialect struct{}

func (d *SQLiteDialect) DriverName() string           { return "sqlite" }
func (d *SQLiteDialect) Placeholder(index int) string { return "?" }
func (d *SQLiteDialect) TimestampType() string        { return "DATETIME" }

// MaxOpenConns serializes access; a single writer avoids SQLITE_BUSY.
func (d *SQLiteDialect) MaxOpenConns() int { return 1 }

// PostgresDialect targets PostgreSQL through the pgx stdlib driver.
type PostgresDialect struct{}

func (d *PostgresDialect) DriverName() string           { return "pgx" }
func (d *PostgresDialect) Placeholder(index int) string { return fmt.Sprintf("$%d", index) }
func (d *PostgresDialect) TimestampType() string        { return "TIMESTAMP" }
func (d *PostgresDialect) MaxOpenConns() int            { return 0 }

// DialectFor returns the dialect for a source name ("sqlite" or "postgres").
func DialectFor(source string) (Dialect, error) {
	switch source {
	case "sqlite":
		return &SQLiteDialect{}, nil
	case "postgres":
		return &PostgresDialect{}, nil
	default:
		return nil, fmt.Errorf("unsupported snapshot driver: %s", source)
	}
}

// rebind rewrites '?' placeholders for the dialect.
func rebind(d Dialect, query string) string {
	if d.Placeholder(1) == "?" {
		return query
	}
	var b strings.Builder
	n := 0
	for _, r := range query {
		if r == '?' {
			n++
			b.WriteString(d.Placeholder(n))
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}

// schema returns the DDL for every snapshot table.
func schema(d Dialect) []string {
	return []string{
		`CREATE TABLE IF NOT EXISTS solution (
			solutionid TEXT PRIMARY KEY,
			uniquename TEXT NOT NULL UNIQUE,
			friendlyname TEXT NOT NULL DEFAULT ''
		)`,
		`CREATE TABLE IF NOT EXISTS solutioncomponent (
			solutionid TEXT NOT NULL,
			objectid TEXT NOT NULL,
			componenttype INTEGER NOT NULL,
			PRIMARY KEY (solutionid, componenttype, objectid)
		)`,
		`CREATE TABLE IF NOT EXISTS entity (
			metadataid TEXT PRIMARY KEY,
			logicalname TEXT NOT NULL,
			displayname TEXT NOT NULL DEFAULT ''
		)`,
		`CREATE TABLE IF NOT EXISTS attribute (
			entityid TEXT NOT NULL,
			position INTEGER NOT NULL,
			logicalname TEXT NOT NULL,
			displayname TEXT NOT NULL DEFAULT '',
			attributetype TEXT NOT NULL DEFAULT '',
			attributetypename TEXT NOT NULL DEFAULT '',
			iscustom INTEGER NOT NULL DEFAULT 0,
			requiredlevel TEXT NOT NULL DEFAULT 'None',
			description TEXT NOT NULL DEFAULT '',
			PRIMARY KEY (entityid, position)
		)`,
		`CREATE TABLE IF NOT EXISTS webresource (
			webresourceid TEXT PRIMARY KEY,
			name TEXT NOT NULL,
			displayname TEXT NOT NULL DEFAULT '',
			webresourcetype INTEGER NOT NULL,
			content TEXT NOT NULL DEFAULT ''
		)`,
		fmt.Sprintf(`CREATE TABLE IF NOT EXISTS annotation (
			annotationid TEXT PRIMARY KEY,
			subject TEXT NOT NULL,
			filename TEXT NOT NULL,
			mimetype TEXT NOT NULL,
			documentbody TEXT NOT NULL,
			createdon %s NOT NULL
		)`, d.TimestampType()),
	}
}
