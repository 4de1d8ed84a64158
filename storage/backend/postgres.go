package backend

import (
	"database/sql"
	"fmt"
	"net/url"
	"strings"

	_ "github.com/lib/pq"
)

// OpenPostgres opens a *sql.DB against PostgreSQL, grounded on the
// teacher's database/postgres/database.go NewDatabase/postgresBuildDSN.
func OpenPostgres(cfg Config) (*sql.DB, error) {
	return sql.Open("postgres", postgresDSN(cfg))
}

func postgresDSN(cfg Config) string {
	host := fmt.Sprintf("%s:%d", cfg.Host, cfg.Port)
	var options []string
	if cfg.Socket != "" {
		host = ""
		options = append(options, fmt.Sprintf("host=%s", cfg.Socket))
	}
	if cfg.SslMode != "" {
		options = append(options, fmt.Sprintf("sslmode=%s", cfg.SslMode))
	}
	return fmt.Sprintf("postgres://%s:%s@%s/%s?%s",
		url.QueryEscape(cfg.User), url.QueryEscape(cfg.Password), host, cfg.DbName, strings.Join(options, "&"))
}
