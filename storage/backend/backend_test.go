package backend

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/tarandb/tarancore/tuple"
)

func testFormat(t *testing.T) *tuple.Format {
	t.Helper()
	reg := tuple.NewRegistry(0)
	f, err := reg.Register([]tuple.FieldDef{
		{Name: "id", Type: tuple.TypeInteger},
		{Name: "name", Type: tuple.TypeString},
	}, []int{0, 1})
	require.NoError(t, err)
	return f
}

func TestSQLite3QueryProducesTuplesUntilExhausted(t *testing.T) {
	db, err := OpenSQLite3(Config{DbName: ":memory:"})
	require.NoError(t, err)
	defer db.Close()

	_, err = db.Exec(`CREATE TABLE t (id INTEGER, name TEXT)`)
	require.NoError(t, err)
	_, err = db.Exec(`INSERT INTO t VALUES (1, 'a'), (2, 'b')`)
	require.NoError(t, err)

	format := testFormat(t)
	it, err := Query(context.Background(), db, format, `SELECT id, name FROM t ORDER BY id`)
	require.NoError(t, err)
	defer it.Destroy()

	var got []string
	for {
		tp, err := it.Next()
		require.NoError(t, err)
		if tp == nil {
			break
		}
		name, ok := tp.Field(1)
		require.True(t, ok)
		got = append(got, name.Str)
	}
	require.Equal(t, []string{"a", "b"}, got)

	// End of stream is sticky: one more Next still reports done.
	tp, err := it.Next()
	require.NoError(t, err)
	require.Nil(t, tp)
}

func TestOpenDispatchesOnDriverName(t *testing.T) {
	db, err := Open("sqlite3", Config{DbName: ":memory:"})
	require.NoError(t, err)
	defer db.Close()

	_, err = Open("carrier-pigeon", Config{})
	require.Error(t, err)
}
