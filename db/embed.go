// Package db embeds the SQL migration files so the binary can bootstrap its
// own schema without shipping loose .sql files alongside it.
package db

import _ "embed"

// Schema is the full DDL for the checkout tables, applied idempotently at
// startup.
//
//go:embed migrations/001_schema.sql
var Schema string
