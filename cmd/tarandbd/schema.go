package main

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v2"

	"github.com/tarandb/tarancore/sqlfront"
	"github.com/tarandb/tarancore/tuple"
)

// schemaFile is the YAML shape --schema loads: a flat list of in-memory
// tables, each with a primary-key field and zero or more unique secondary
// indexes, mirroring the teacher's own small YAML-config pattern
// (runtime.Config, itself grounded on database.GeneratorConfig) rather
// than the real DDL schema/ package this module's storage is out of
// scope for (spec.md Non-goals).
type schemaFile struct {
	Tables []struct {
		Name      string `yaml:"name"`
		Primary   string `yaml:"primary"`
		Secondary []string `yaml:"secondary"`
		Fields    []struct {
			Name string `yaml:"name"`
			Type string `yaml:"type"`
		} `yaml:"fields"`
	} `yaml:"tables"`
}

// loadSchema populates cat from a YAML file, interning each table's
// format through reg.
func loadSchema(path string, reg *tuple.Registry, cat *sqlfront.MemCatalog) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	var sf schemaFile
	if err := yaml.Unmarshal(data, &sf); err != nil {
		return err
	}
	for _, t := range sf.Tables {
		fields := make([]tuple.FieldDef, len(t.Fields))
		byName := make(map[string]int, len(t.Fields))
		for i, f := range t.Fields {
			typ, err := parseFieldType(f.Type)
			if err != nil {
				return fmt.Errorf("table %s: %w", t.Name, err)
			}
			fields[i] = tuple.FieldDef{Name: f.Name, Type: typ}
			byName[f.Name] = i
		}
		format, err := reg.Register(fields, nil)
		if err != nil {
			return fmt.Errorf("table %s: %w", t.Name, err)
		}
		primary, ok := byName[t.Primary]
		if !ok {
			return fmt.Errorf("table %s: primary field %q not declared", t.Name, t.Primary)
		}
		secondary := make([]int, len(t.Secondary))
		for i, name := range t.Secondary {
			fieldno, ok := byName[name]
			if !ok {
				return fmt.Errorf("table %s: secondary field %q not declared", t.Name, name)
			}
			secondary[i] = fieldno
		}
		cat.CreateTable(t.Name, format, primary, secondary...)
	}
	return nil
}

func parseFieldType(s string) (tuple.FieldType, error) {
	switch s {
	case "integer":
		return tuple.TypeInteger, nil
	case "unsigned":
		return tuple.TypeUnsigned, nil
	case "string":
		return tuple.TypeString, nil
	case "double", "number":
		return tuple.TypeDouble, nil
	case "boolean":
		return tuple.TypeBoolean, nil
	case "varbinary":
		return tuple.TypeVarbinary, nil
	case "any", "":
		return tuple.TypeAny, nil
	default:
		return 0, fmt.Errorf("unknown field type %q", s)
	}
}
