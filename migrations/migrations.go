// Package migrations embeds the SQL schema and applies it with sql-migrate.
package migrations

import (
	"database/sql"
	"embed"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/jackc/pgx/v5/stdlib"
	migrate "github.com/rubenv/sql-migrate"
)

//go:embed sql/*.sql
var files embed.FS

// Source returns the embedded migration set.
func Source() migrate.MigrationSource {
	return migrate.EmbedFileSystemMigrationSource{
		FileSystem: files,
		Root:       "sql",
	}
}

// Direction selects which way migrations run.
type Direction = migrate.MigrationDirection

const (
	Up   = migrate.Up
	Down = migrate.Down
)

// Run applies (or rolls back) the embedded migrations and returns how many ran.
func Run(db *sql.DB, dir Direction) (int, error) {
	n, err := migrate.Exec(db, "postgres", Source(), dir)
	if err != nil {
		return 0, fmt.Errorf("run migrations: %w", err)
	}
	return n, nil
}

// RunOnPool opens a database/sql handle over an existing pgx pool.
func RunOnPool(pool *pgxpool.Pool, dir Direction) (int, error) {
	db := stdlib.OpenDBFromPool(pool)
	defer db.Close()
	return Run(db, dir)
}
