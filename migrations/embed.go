// Package migrations embeds the SQL schema and seed migrations applied at startup.
package migrations

import "embed"

// FS holds the embedded up/down migration files.
//
//go:embed *.sql
var FS embed.FS
