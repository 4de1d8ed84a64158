package main

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tarandb/tarancore/sqlfront"
	"github.com/tarandb/tarancore/tuple"
)

func TestParseFieldType(t *testing.T) {
	cases := map[string]tuple.FieldType{
		"integer":   tuple.TypeInteger,
		"unsigned":  tuple.TypeUnsigned,
		"string":    tuple.TypeString,
		"double":    tuple.TypeDouble,
		"number":    tuple.TypeDouble,
		"boolean":   tuple.TypeBoolean,
		"varbinary": tuple.TypeVarbinary,
		"any":       tuple.TypeAny,
		"":          tuple.TypeAny,
	}
	for in, want := range cases {
		got, err := parseFieldType(in)
		require.NoError(t, err)
		assert.Equal(t, want, got)
	}

	_, err := parseFieldType("nonsense")
	assert.Error(t, err)
}

const testSchemaYAML = `
tables:
  - name: users
    primary: id
    secondary: [email]
    fields:
      - name: id
        type: unsigned
      - name: email
        type: string
      - name: balance
        type: double
`

func TestLoadSchema(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "schema.yaml")
	require.NoError(t, os.WriteFile(path, []byte(testSchemaYAML), 0o644))

	reg := tuple.NewRegistry(0)
	cat := sqlfront.NewMemCatalog()

	require.NoError(t, loadSchema(path, reg, cat))

	tbl, ok := cat.Table("users")
	require.True(t, ok)
	assert.NotNil(t, tbl)
}

func TestLoadSchemaUnknownPrimary(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "schema.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
tables:
  - name: broken
    primary: missing
    fields:
      - name: id
        type: unsigned
`), 0o644))

	reg := tuple.NewRegistry(0)
	cat := sqlfront.NewMemCatalog()

	err := loadSchema(path, reg, cat)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "missing")
}
