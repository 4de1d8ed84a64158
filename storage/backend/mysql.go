package backend

import (
	"database/sql"
	"fmt"

	driver "github.com/go-sql-driver/mysql"
)

// OpenMySQL opens a *sql.DB against MySQL, grounded on the teacher's
// database/mysql/database.go NewDatabase/mysqlBuildDSN.
func OpenMySQL(cfg Config) (*sql.DB, error) {
	return sql.Open("mysql", mysqlDSN(cfg))
}

func mysqlDSN(cfg Config) string {
	c := driver.NewConfig()
	c.User = cfg.User
	c.Passwd = cfg.Password
	c.DBName = cfg.DbName
	c.TLSConfig = cfg.SslMode
	if cfg.Socket == "" {
		c.Net = "tcp"
		c.Addr = fmt.Sprintf("%s:%d", cfg.Host, cfg.Port)
	} else {
		c.Net = "unix"
		c.Addr = cfg.Socket
	}
	return c.FormatDSN()
}
