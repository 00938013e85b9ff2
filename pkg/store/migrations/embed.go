// Package migrations embeds the versioned PostgreSQL schema migrations.
package migrations

import "embed"

//go:embed *.sql
var FS embed.FS
