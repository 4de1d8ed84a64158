package main

import (
	"context"
	"fmt"
	"log"
	"syscall"

	"golang.org/x/term"

	"github.com/tarandb/tarancore/storage/backend"
)

// backendOptions is the subset of options that opens a real external
// database/sql connection instead of driving the in-memory catalog,
// mirroring the teacher's own cmd/mysqldef/mysqldef.go --host/--user/
// --password/--prompt connection flags (database.Config there,
// backend.Config here).
type backendOptions struct {
	Driver   string `long:"backend" description:"run sqlText against a real driver instead of the in-memory catalog: mysql, postgres, sqlserver, sqlite3" value-name:"driver"`
	Host     string `long:"host" description:"backend host"`
	Port     int    `long:"port" description:"backend port"`
	Socket   string `long:"socket" description:"backend unix socket"`
	User     string `long:"user" description:"backend user"`
	Password string `long:"password" description:"backend password"`
	DbName   string `long:"db-name" description:"backend database name"`
	SslMode  string `long:"ssl-mode" description:"backend SSL mode"`
	Prompt   bool   `long:"prompt" description:"prompt for the backend password interactively instead of reading --password"`
}

// runBackend opens a real external connection and runs sqlText as a
// raw passthrough query, printing each result row. This is the admin
// escape hatch for inspecting a real engine sqlfront's in-memory
// catalog has no equivalent of; it bypasses the VM entirely.
func runBackend(bo backendOptions, sqlText string) {
	password := bo.Password
	if bo.Prompt {
		fmt.Print("Enter Password: ")
		pass, err := term.ReadPassword(int(syscall.Stdin))
		fmt.Println()
		if err != nil {
			log.Fatal(err)
		}
		password = string(pass)
	}

	cfg := backend.Config{
		Host:     bo.Host,
		Port:     bo.Port,
		Socket:   bo.Socket,
		User:     bo.User,
		Password: password,
		DbName:   bo.DbName,
		SslMode:  bo.SslMode,
	}
	db, err := backend.Open(bo.Driver, cfg)
	if err != nil {
		log.Fatal(err)
	}
	defer db.Close()

	rows, err := db.QueryContext(context.Background(), sqlText)
	if err != nil {
		log.Fatal(err)
	}
	defer rows.Close()

	cols, err := rows.Columns()
	if err != nil {
		log.Fatal(err)
	}
	scratch := make([]any, len(cols))
	ptrs := make([]any, len(cols))
	for i := range scratch {
		ptrs[i] = &scratch[i]
	}

	fmt.Println(cols)
	for rows.Next() {
		if err := rows.Scan(ptrs...); err != nil {
			log.Fatal(err)
		}
		fmt.Println(scratch)
	}
	if err := rows.Err(); err != nil {
		log.Fatal(err)
	}
}
