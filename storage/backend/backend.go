// Package backend adapts database/sql connections to the iterator
// contract (spec.md §4.6): each dialect file opens a real driver
// against an external engine, and RowIterator walks its *sql.Rows as
// tuples the VM's cursor model can consume identically regardless of
// backend.
package backend

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/tarandb/tarancore/pack"
	"github.com/tarandb/tarancore/tuple"
)

// Config is the connection configuration shared by every dialect,
// trimmed from the teacher's database.Config (database/database.go) to
// the fields a row-level storage backend actually needs; the
// schema-diffing-only fields (SkipView, DumpConcurrency, ...) are not
// carried since this module has no DDL-export component.
type Config struct {
	Host     string
	Port     int
	Socket   string
	User     string
	Password string
	DbName   string
	SslMode  string
}

// Open dispatches to the dialect-specific DSN builder and opens a
// database/sql.DB. driverName is one of "mysql", "postgres",
// "sqlserver", "sqlite3".
func Open(driverName string, cfg Config) (*sql.DB, error) {
	switch driverName {
	case "mysql":
		return OpenMySQL(cfg)
	case "postgres":
		return OpenPostgres(cfg)
	case "sqlserver":
		return OpenMSSQL(cfg)
	case "sqlite3":
		return OpenSQLite3(cfg)
	default:
		return nil, &unknownDriverError{driverName}
	}
}

type unknownDriverError struct{ name string }

func (e *unknownDriverError) Error() string { return "backend: unknown driver " + e.name }

// RowIterator adapts a *sql.Rows result set to iterator.Iterator,
// decoding each row's driver-native column values into a tuple.Tuple
// under format.
type RowIterator struct {
	rows    *sql.Rows
	format  *tuple.Format
	columns int
	scratch []any
	ptrs    []any
}

// Query runs query against db and returns its result set as a
// RowIterator. format must have exactly as many fields as the query's
// result set has columns.
func Query(ctx context.Context, db *sql.DB, format *tuple.Format, query string, args ...any) (*RowIterator, error) {
	rows, err := db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	cols, err := rows.Columns()
	if err != nil {
		rows.Close()
		return nil, err
	}
	n := len(cols)
	scratch := make([]any, n)
	ptrs := make([]any, n)
	for i := range scratch {
		ptrs[i] = &scratch[i]
	}
	return &RowIterator{rows: rows, format: format, columns: n, scratch: scratch, ptrs: ptrs}, nil
}

// Next implements iterator.Iterator.
func (r *RowIterator) Next() (*tuple.Tuple, error) {
	if !r.rows.Next() {
		if err := r.rows.Err(); err != nil {
			return nil, err
		}
		return nil, nil
	}
	if err := r.rows.Scan(r.ptrs...); err != nil {
		return nil, err
	}
	fields := make([]pack.Value, r.columns)
	for i, v := range r.scratch {
		fields[i] = nativeToPack(v)
	}
	data := pack.Encode(pack.Array(fields...), nil)
	return tuple.New(r.format, data)
}

// Destroy implements iterator.Iterator.
func (r *RowIterator) Destroy() {
	r.rows.Close()
}

// nativeToPack converts a database/sql driver-native scanned value
// (int64, float64, bool, []byte, string, time.Time, or nil) into the
// matching pack.Value, mirroring the loose, driver-reported dynamic
// typing database/sql itself already exposes through Rows.Scan into
// an `any`.
func nativeToPack(v any) pack.Value {
	switch x := v.(type) {
	case nil:
		return pack.Nil()
	case int64:
		return pack.Int(x)
	case float64:
		return pack.Float64_(x)
	case bool:
		return pack.Bool_(x)
	case []byte:
		return pack.Bin(x)
	case string:
		return pack.Str(x)
	default:
		// time.Time and any other driver-native type not covered above
		// (drivers vary on what they hand back for DATE/TIMESTAMP
		// columns): fall back to its default string form rather than
		// erroring, since every pack kind can represent TEXT.
		return pack.Str(fmt.Sprintf("%v", x))
	}
}
