package backend

import (
	"database/sql"

	_ "modernc.org/sqlite"
)

// OpenSQLite3 opens a *sql.DB against a SQLite3 file, grounded on the
// teacher's database/sqlite3/database.go NewDatabase.
func OpenSQLite3(cfg Config) (*sql.DB, error) {
	return sql.Open("sqlite", cfg.DbName)
}
