// Package migrations embeds the reference Source Store schema for goose.
//
// Migration files follow the naming convention: YYYYMMDDHHMMSS_description.sql
// and live in one directory per SQL dialect.
package migrations

import "embed"

// Dialect directories inside FS.
const (
	PostgresDir = "postgres"
	SQLiteDir   = "sqlite"
)

//go:embed postgres/*.sql sqlite/*.sql
var FS embed.FS
