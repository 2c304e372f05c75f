// Package migrations embeds the index schema for each SQL dialect.
package migrations

import "embed"

//go:embed *.sql
var FS embed.FS
