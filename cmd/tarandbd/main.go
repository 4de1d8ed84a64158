// Command tarandbd is a standalone driver for the SQL substrate this
// module implements: it prepares one SQL statement against an in-memory
// catalog (optionally seeded from a --schema file), binds parameters
// given as repeated --bind name=value flags, and either executes it to
// completion or, with --explain, prints its compiled bytecode instead.
// There is no server loop and no network listener (spec.md §1's
// networking-front-end Non-goal); this is a CLI in the same spirit as
// the teacher's own mysqldef/psqldef/mssqldef/sqlite3def binaries, just
// pointed at this module's VM instead of a schema-diffing generator.
package main

import (
	"fmt"
	"log"
	"os"

	"github.com/jessevdk/go-flags"
	"github.com/k0kubun/pp/v3"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/tarandb/tarancore/dberr"
	"github.com/tarandb/tarancore/runtime"
	"github.com/tarandb/tarancore/sqlfront"
	"github.com/tarandb/tarancore/sqlstmt"
	"github.com/tarandb/tarancore/vm"
)

var version string

type options struct {
	Config  string   `long:"config" description:"YAML runtime configuration file" value-name:"file"`
	Schema  string   `long:"schema" description:"YAML file declaring in-memory tables" value-name:"file"`
	Bind    []string `long:"bind" description:"bind parameter as name=value (repeatable)" value-name:"name=value"`
	Explain bool     `long:"explain" description:"print compiled bytecode instead of executing"`
	Metrics bool     `long:"metrics" description:"register the Prometheus metrics surface"`
	Help    bool     `long:"help" description:"show this help"`
	Version bool     `long:"version" description:"show this version"`

	backendOptions
}

func parseOptions(args []string) (*options, string) {
	var opts options
	parser := flags.NewParser(&opts, flags.None)
	parser.Usage = "[options] \"SQL text\""
	rest, err := parser.ParseArgs(args)
	if err != nil {
		log.Fatal(err)
	}

	if opts.Help {
		parser.WriteHelp(os.Stdout)
		os.Exit(0)
	}
	if opts.Version {
		fmt.Println(version)
		os.Exit(0)
	}
	if len(rest) == 0 {
		fmt.Print("No SQL text is specified!\n\n")
		parser.WriteHelp(os.Stdout)
		os.Exit(1)
	}
	if len(rest) > 1 {
		fmt.Printf("Multiple SQL arguments are given: %v\n\n", rest)
		parser.WriteHelp(os.Stdout)
		os.Exit(1)
	}
	return &opts, rest[0]
}

func main() {
	opts, sqlText := parseOptions(os.Args[1:])

	if opts.Driver != "" {
		runBackend(opts.backendOptions, sqlText)
		return
	}

	cfg := runtime.Default()
	if opts.Config != "" {
		loaded, err := runtime.Load(opts.Config)
		if err != nil {
			log.Fatal(err)
		}
		cfg = loaded
	}

	var metrics *runtime.Metrics
	if opts.Metrics {
		metrics = runtime.NewMetrics(prometheus.DefaultRegisterer)
	}
	rt := runtime.New(cfg, runtime.NewStdLogger(), metrics)

	cat := sqlfront.NewMemCatalog()
	if opts.Schema != "" {
		if err := loadSchema(opts.Schema, rt.Tuples, cat); err != nil {
			log.Fatal(err)
		}
	}

	stmt, err := sqlfront.Prepare(sqlText, cat)
	if err != nil {
		log.Fatal(err)
	}
	defer stmt.Finalize()

	if opts.Explain {
		pp.Println(vm.Explain(stmt.Program))
		return
	}

	if len(opts.Bind) > 0 {
		data, err := parseBindFlags(opts.Bind)
		if err != nil {
			log.Fatal(err)
		}
		if err := stmt.BindList(data); err != nil {
			log.Fatal(err)
		}
	}

	run(rt, stmt)
}

func run(rt *runtime.Runtime, stmt *sqlstmt.Stmt) {
	if rt.Metrics != nil {
		rt.Metrics.StmtActive.Inc()
		defer rt.Metrics.StmtActive.Dec()
	}
	for {
		status, err := stmt.Step()
		if rt.Metrics != nil {
			rt.Metrics.VMStepsTotal.Inc()
		}
		switch status {
		case vm.StepRow:
			printRow(stmt)
		case vm.StepDone:
			printSummary(stmt)
			return
		case vm.StepBusyStatus:
			rt.Logf("tarandbd: busy, retrying")
		default:
			if err != nil {
				if dberr.Is(err, dberr.ErrClient) || dberr.Is(err, dberr.ErrConstraint) {
					log.Fatalf("sql error: %v", err)
				}
				log.Fatal(err)
			}
			return
		}
	}
}

func printRow(stmt *sqlstmt.Stmt) {
	n := stmt.ColumnCount()
	vals := make([]string, n)
	for i := 0; i < n; i++ {
		v, err := stmt.ColumnValue(i)
		if err != nil {
			log.Fatal(err)
		}
		vals[i] = formatValue(v)
	}
	fmt.Println(vals)
}

func printSummary(stmt *sqlstmt.Stmt) {
	changes := stmt.Changes()
	if changes == 0 {
		return
	}
	fmt.Printf("changes: %d\n", changes)
	if ids := stmt.AutoincTrail(); len(ids) > 0 {
		fmt.Printf("autoincrement ids: %v\n", ids)
	}
}

func formatValue(v vm.Value) string {
	switch v.Kind {
	case vm.KindNull:
		return "NULL"
	case vm.KindInt64:
		return fmt.Sprintf("%d", v.Int64)
	case vm.KindDouble:
		return fmt.Sprintf("%g", v.Double)
	case vm.KindBool:
		return fmt.Sprintf("%t", v.Bool)
	case vm.KindStr:
		return v.Str
	case vm.KindBlob:
		return fmt.Sprintf("%x", v.Bytes())
	default:
		return "<unprintable>"
	}
}
