package runtime

import (
	"os"

	"gopkg.in/yaml.v2"

	"github.com/tarandb/tarancore/limits"
)

// Config is the process-wide configuration every Runtime is built from,
// mirroring the teacher's database.GeneratorConfig/--config YAML file
// (cmd/mysqldef/mysqldef.go) but scoped to this module's own domain:
// per-connection limits (spec.md §6), storage backend DSNs, and the
// default collation.
type Config struct {
	// Limits holds per-connection limits. Default fills them from
	// limits/limits.go; Load takes them as written, so a field the file
	// omits stays zero. No package in this module reads these fields.
	Limits struct {
		Column           int `yaml:"column"`
		ExprDepth        int `yaml:"expr_depth"`
		CompoundSelect   int `yaml:"compound_select"`
		FunctionArg      int `yaml:"function_arg"`
		BindParameterMax int `yaml:"bind_parameter_max"`
	} `yaml:"limits"`

	// Storage maps a logical backend name ("mysql", "postgres", "mssql",
	// "sqlite3") to its database/sql DSN, one entry per storage/backend
	// driver this process opens.
	Storage map[string]string `yaml:"storage"`

	// DefaultCollation names a collation registered in keydef.Registry;
	// Default sets it to "binary". No package in this module reads it.
	DefaultCollation string `yaml:"default_collation"`
}

// Load reads and parses a YAML config file at path.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Default returns a Config with every limit at its spec.md §6 default
// and no storage backends configured.
func Default() *Config {
	cfg := &Config{DefaultCollation: "binary"}
	cfg.Limits.Column = limits.Column
	cfg.Limits.ExprDepth = limits.ExprDepth
	cfg.Limits.CompoundSelect = limits.CompoundSelect
	cfg.Limits.FunctionArg = limits.FunctionArg
	cfg.Limits.BindParameterMax = limits.BindParameterMax
	return cfg
}
