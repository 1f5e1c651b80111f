// Package migrations embeds the SQL migration files for the run log.
package migrations

import "embed"

//go:embed *.sql
var FS embed.FS
