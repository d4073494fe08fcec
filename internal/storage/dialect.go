package db

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/pressly/goose/v3"
	"github.com/rs/zerolog"

	"github.com/lueurxax/research-dashboard/migrations"
)

// dialect holds the SQL differences between the supported stores. Dates leave the
// database as ISO-8601 text so both drivers hand the loaders the same shape.
type dialect struct {
	name          string
	gooseDialect  string
	migrationsDir string

	// dateFmt renders a DATE column as YYYY-MM-DD text.
	dateFmt string
	// timestampFmt renders a timestamp column as RFC 3339 UTC text.
	timestampFmt string
	// dayFmt truncates a timestamp column to its UTC day as YYYY-MM-DD text.
	dayFmt string
}

var (
	postgresDialect = dialect{
		name:          "postgres",
		gooseDialect:  "postgres",
		migrationsDir: migrations.PostgresDir,
		dateFmt:       "to_char(%s, 'YYYY-MM-DD')",
		timestampFmt:  `to_char(%s AT TIME ZONE 'UTC', 'YYYY-MM-DD"T"HH24:MI:SS"Z"')`,
		dayFmt:        "to_char(%s AT TIME ZONE 'UTC', 'YYYY-MM-DD')",
	}

	sqliteDialect = dialect{
		name:          "sqlite",
		gooseDialect:  "sqlite3",
		migrationsDir: migrations.SQLiteDir,
		dateFmt:       "strftime('%%Y-%%m-%%d', %s)",
		timestampFmt:  "strftime('%%Y-%%m-%%dT%%H:%%M:%%SZ', %s)",
		dayFmt:        "strftime('%%Y-%%m-%%d', %s)",
	}
)

func (d dialect) date(column string) string {
	return fmt.Sprintf(d.dateFmt, column)
}

func (d dialect) timestamp(column string) string {
	return fmt.Sprintf(d.timestampFmt, column)
}

func (d dialect) day(column string) string {
	return fmt.Sprintf(d.dayFmt, column)
}

// runGoose applies the embedded migrations of d to an open database/sql handle.
func runGoose(ctx context.Context, dbSQL *sql.DB, d dialect, logger *zerolog.Logger) error {
	goose.SetBaseFS(migrations.FS)
	goose.SetLogger(&gooseLogger{logger: orNop(logger)})

	if err := goose.SetDialect(d.gooseDialect); err != nil {
		return fmt.Errorf("set goose dialect: %w", err)
	}

	if err := goose.UpContext(ctx, dbSQL, d.migrationsDir); err != nil {
		return fmt.Errorf("run migrations: %w", err)
	}

	return nil
}

func orNop(logger *zerolog.Logger) *zerolog.Logger {
	if logger != nil {
		return logger
	}

	nop := zerolog.Nop()

	return &nop
}
