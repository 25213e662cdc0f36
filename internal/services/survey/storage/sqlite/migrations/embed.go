// Package migrations embeds the survey SQLite schema.
package migrations

import "embed"

// FS holds the forward-only migration files.
//
//go:embed *.sql
var FS embed.FS
