package backend

import (
	"database/sql"
	"fmt"
	"net/url"

	_ "github.com/denisenkom/go-mssqldb"
)

// OpenMSSQL opens a *sql.DB against SQL Server, grounded on the
// teacher's database/mssql/database.go NewDatabase/mssqlBuildDSN.
func OpenMSSQL(cfg Config) (*sql.DB, error) {
	return sql.Open("sqlserver", mssqlDSN(cfg))
}

func mssqlDSN(cfg Config) string {
	query := url.Values{}
	query.Add("database", cfg.DbName)
	u := &url.URL{
		Scheme:   "sqlserver",
		User:     url.UserPassword(cfg.User, cfg.Password),
		Host:     fmt.Sprintf("%s:%d", cfg.Host, cfg.Port),
		RawQuery: query.Encode(),
	}
	return u.String()
}
