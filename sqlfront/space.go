package sqlfront

import (
	"github.com/tarandb/tarancore/dberr"
	"github.com/tarandb/tarancore/iterator"
	"github.com/tarandb/tarancore/pack"
	"github.com/tarandb/tarancore/tuple"
	"github.com/tarandb/tarancore/vm"
)

// Table is what the compiler needs from one named space: its row format,
// a fresh iterator over its current rows for a cursor, and the unique
// indexes a compiled INSERT must probe. spec.md §4.6 deliberately keeps
// the core ignorant of how an index is implemented ("the core does not
// implement the iterator"); Table is that boundary for this front end.
type Table struct {
	Name    string
	Format  *tuple.Format
	Primary *Index // probes/mutates storage; always probed last (spec.md §4.10 "ON CONFLICT REPLACE ... probes every unique secondary index before applying the new row")

	Secondary []*Index
	Seq       *sequence

	rows rowStore
}

// Index is one unique index's probe+mutate contract, adapted to
// vm.UniqueIndex by asUniqueIndex.
type Index struct {
	Field  int // field number this index is keyed on
	lookup map[any]int64
	space  *Table
}

// Catalog resolves table names for the compiler; MemCatalog is the
// in-memory implementation this package ships, used by its own tests and
// suitable as a minimal standalone demo store (spec.md's core has no
// storage engine of its own to borrow one from).
type Catalog interface {
	Table(name string) (*Table, bool)
}

// MemCatalog is a process-local, map-backed Catalog. It exists purely to
// give the compiled programs something to run against end to end; the
// real storage engine this core is meant to sit atop is out of scope
// (spec.md Non-goals).
type MemCatalog struct {
	tables map[string]*Table
}

func NewMemCatalog() *MemCatalog { return &MemCatalog{tables: make(map[string]*Table)} }

func (c *MemCatalog) Table(name string) (*Table, bool) {
	t, ok := c.tables[name]
	return t, ok
}

// CreateTable registers a new empty space keyed by primaryField, with one
// unique secondary index per entry in secondaryFields.
func (c *MemCatalog) CreateTable(name string, format *tuple.Format, primaryField int, secondaryFields ...int) *Table {
	t := &Table{Name: name, Format: format}
	t.Primary = &Index{Field: primaryField, lookup: make(map[any]int64), space: t}
	for _, f := range secondaryFields {
		t.Secondary = append(t.Secondary, &Index{Field: f, lookup: make(map[any]int64), space: t})
	}
	t.Seq = &sequence{}
	c.tables[name] = t
	return t
}

// rowStore holds the space's live tuples, keyed by primary-key field
// value, in insertion order (order tracks the key sequence for stable
// iteration).
type rowStore struct {
	byKey map[any]*tuple.Tuple
	order []any
}

func (t *Table) ensureStore() {
	if t.rows.byKey == nil {
		t.rows.byKey = make(map[any]*tuple.Tuple)
	}
}

// sequence is a trivial monotonic vm.Sequence.
type sequence struct{ n int64 }

func (s *sequence) Next() int64 { s.n++; return s.n }

// Iterator returns a fresh cursor source over the space's current rows,
// in key-insertion order.
func (t *Table) Iterator() iterator.Iterator {
	t.ensureStore()
	tuples := make([]*tuple.Tuple, 0, len(t.rows.order))
	for _, k := range t.rows.order {
		tuples = append(tuples, t.rows.byKey[k])
	}
	return iterator.NewSliceIterator(tuples)
}

// primaryKeyOf decodes field f of a pack-encoded record array into a
// comparable map key.
func primaryKeyOf(data []byte, field int) (any, error) {
	n, rest, err := pack.DecodeArrayHeader(data)
	if err != nil {
		return nil, err
	}
	if field >= n {
		return nil, dberr.Client(dberr.FieldType, "index field %d out of range", field)
	}
	var v pack.Value
	for i := 0; i <= field; i++ {
		v, rest, err = pack.Decode(rest)
		if err != nil {
			return nil, err
		}
	}
	return scalarKey(v), nil
}

func scalarKey(v pack.Value) any {
	switch v.Kind {
	case pack.KindUint:
		return int64(v.Uint)
	case pack.KindInt:
		return v.Int
	case pack.KindStr:
		return v.Str
	case pack.KindFloat64:
		return v.Float64
	case pack.KindFloat32:
		return float64(v.Float32)
	case pack.KindBool:
		return v.Bool
	default:
		return nil
	}
}

// insert stores a new tuple under every index, assuming the caller
// (asUniqueIndex's primary Probe) already established no conflict exists.
func (t *Table) insert(data []byte) error {
	t.ensureStore()
	tup, err := tuple.New(t.Format, data)
	if err != nil {
		return err
	}
	pk, err := primaryKeyOf(data, t.Primary.Field)
	if err != nil {
		return err
	}
	t.rows.byKey[pk] = tup
	t.rows.order = append(t.rows.order, pk)
	for _, idx := range t.Secondary {
		key, err := primaryKeyOf(data, idx.Field)
		if err != nil {
			return err
		}
		idx.lookup[key] = pk.(int64)
	}
	return nil
}

// removeByPK deletes the row at pk from storage and every index.
func (t *Table) removeByPK(pk any) {
	t.ensureStore()
	delete(t.rows.byKey, pk)
	for i, k := range t.rows.order {
		if k == pk {
			t.rows.order = append(t.rows.order[:i], t.rows.order[i+1:]...)
			break
		}
	}
	for _, idx := range t.Secondary {
		for k, v := range idx.lookup {
			if v == pk {
				delete(idx.lookup, k)
			}
		}
	}
}

// asUniqueIndex adapts idx to vm.UniqueIndex. The primary index's Probe
// doubles as the actual write path (spec.md/Cursor doc: "probe+mutate
// contract"): not-found means the row was just inserted; found means the
// caller (vm.Machine.execIdxInsert) must resolve the conflict per the
// statement's ConflictAction without this Probe having mutated anything.
func (idx *Index) asUniqueIndex(primary bool) vm.UniqueIndex {
	return vm.UniqueIndex{
		CoversFields: []int{idx.Field},
		Probe: func(key pack.Value) (bool, error) {
			if key.Kind != pack.KindBin {
				return false, dberr.Logic("sqlfront: index probe expects an encoded record")
			}
			data := key.Bin
			k, err := primaryKeyOf(data, idx.Field)
			if err != nil {
				return false, err
			}
			if primary {
				idx.space.ensureStore()
				if _, found := idx.space.rows.byKey[k]; found {
					return true, nil
				}
				return false, idx.space.insert(data)
			}
			_, found := idx.lookup[k]
			return found, nil
		},
		DeleteMatch: func(key pack.Value) error {
			if key.Kind != pack.KindBin {
				return dberr.Logic("sqlfront: index delete expects an encoded record")
			}
			k, err := primaryKeyOf(key.Bin, idx.Field)
			if err != nil {
				return err
			}
			pk, found := idx.lookup[k]
			if !found {
				return nil
			}
			idx.space.removeByPK(pk)
			return nil
		},
	}
}

// ProbeIndexes returns this table's unique-index probe list in the order
// execIdxInsert must check them: secondaries first (so a REPLACE's
// DeleteMatch clears the old conflicting row before the primary index's
// Probe performs the actual insert), primary last.
func (t *Table) ProbeIndexes() []vm.UniqueIndex {
	out := make([]vm.UniqueIndex, 0, len(t.Secondary)+1)
	for _, idx := range t.Secondary {
		out = append(out, idx.asUniqueIndex(false))
	}
	out = append(out, t.Primary.asUniqueIndex(true))
	return out
}
