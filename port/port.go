// Package port implements the row-sink ("port") abstraction of spec.md
// §4.7: a polymorphic row collector with a dump-to-wire-buffer and an
// optional dump-to-host-language method. Per the Design Notes' "no
// structural inheritance" directive, the three shapes share a Port
// interface instead of a base/derived struct pair; SQLPort composes a
// TuplePort by embedding rather than inheriting from it.
package port

import (
	"errors"

	"github.com/tarandb/tarancore/pack"
	"github.com/tarandb/tarancore/tuple"
)

// ErrHostDumpUnsupported is returned by DumpHost on a shape that never
// implements it (spec.md §4.7: "some shapes additionally dump_to_host").
var ErrHostDumpUnsupported = errors.New("port: dump_to_host not supported by this shape")

// Port is the shared operation vtable every row-sink shape implements.
type Port interface {
	// Add appends a tuple to the sink, taking a reference on it. The sink
	// owns that reference until Destroy.
	Add(t *tuple.Tuple)
	Len() int
	// DumpMsgpack writes the sink's wire envelope to out and returns the
	// extended buffer. A failed dump must leave out's logical length
	// exactly as it was on entry (spec.md §7 "a failed dump leaves the
	// output buffer's write cursor at its pre-call value").
	DumpMsgpack(out []byte) ([]byte, error)
	// DumpHost pushes the sink's rows onto a host-language stack
	// represented here by a generic callback-based adapter.
	DumpHost(push func(*tuple.Tuple) error) error
	// Destroy drops every tuple reference the sink holds.
	Destroy()
}

// TuplePort is an append-only sequence of tuple references — the base
// shape spec.md §4.7 calls "tuple port".
type TuplePort struct {
	rows []*tuple.Tuple
}

func NewTuplePort() *TuplePort { return &TuplePort{} }

func (p *TuplePort) Add(t *tuple.Tuple) {
	t.Ref()
	p.rows = append(p.rows, t)
}

func (p *TuplePort) Len() int { return len(p.rows) }

func (p *TuplePort) Rows() []*tuple.Tuple { return p.rows }

// DumpMsgpack writes { DATA: [...] } for a plain row result, used when a
// port stands alone (not wrapped by an SQLPort); no METADATA entry is
// written.
func (p *TuplePort) DumpMsgpack(out []byte) ([]byte, error) {
	saved := len(out)
	arr := make([]pack.Value, len(p.rows))
	for i, t := range p.rows {
		v, _, err := pack.Decode(t.Data())
		if err != nil {
			return out[:saved], err
		}
		arr[i] = v
	}
	env := pack.Map(pack.MapEntry{Key: pack.Str("DATA"), Val: pack.Array(arr...)})
	return pack.Encode(env, out), nil
}

func (p *TuplePort) DumpHost(push func(*tuple.Tuple) error) error {
	for _, t := range p.rows {
		if err := push(t); err != nil {
			return err
		}
	}
	return nil
}

func (p *TuplePort) Destroy() {
	for _, t := range p.rows {
		t.Unref()
	}
	p.rows = nil
}

// ColumnMeta is one entry of a result-set's METADATA array.
type ColumnMeta struct {
	Name string
	Type string
}

// SQLInfo is the body of a mutation-only response's SQL_INFO envelope.
type SQLInfo struct {
	RowCount      uint64
	AutoincIDs    []int64
	HasAutoincIDs bool
}

// SQLPort is a tuple port plus an owned prepared-statement's result-set
// metadata and mutation info (spec.md §4.7's "SQL port"). Finalize is
// invoked exactly once, from Destroy, so the owning statement is always
// finalized when its sink is destroyed regardless of which path a caller
// took to get there.
type SQLPort struct {
	TuplePort
	Columns  []ColumnMeta
	Info     *SQLInfo
	Finalize func() error
}

func NewSQLPort(columns []ColumnMeta, finalize func() error) *SQLPort {
	return &SQLPort{Columns: columns, Finalize: finalize}
}

// DumpMsgpack writes exactly one of the three shapes of spec.md §6: rows
// with metadata, info-only, or info-with-autoincrement-trail.
func (p *SQLPort) DumpMsgpack(out []byte) ([]byte, error) {
	saved := len(out)
	if p.Info != nil {
		entries := []pack.MapEntry{{Key: pack.Str("ROW_COUNT"), Val: pack.Uint(p.Info.RowCount)}}
		if p.Info.HasAutoincIDs {
			ids := make([]pack.Value, len(p.Info.AutoincIDs))
			for i, id := range p.Info.AutoincIDs {
				ids[i] = pack.Int(id)
			}
			entries = append(entries, pack.MapEntry{Key: pack.Str("AUTOINCREMENT_IDS"), Val: pack.Array(ids...)})
		}
		env := pack.Map(pack.MapEntry{Key: pack.Str("SQL_INFO"), Val: pack.Map(entries...)})
		return pack.Encode(env, out), nil
	}

	rows := p.Rows()
	dataArr := make([]pack.Value, len(rows))
	for i, t := range rows {
		v, _, err := pack.Decode(t.Data())
		if err != nil {
			return out[:saved], err
		}
		dataArr[i] = v
	}
	metaArr := make([]pack.Value, len(p.Columns))
	for i, c := range p.Columns {
		metaArr[i] = pack.Map(
			pack.MapEntry{Key: pack.Str("FIELD_NAME"), Val: pack.Str(c.Name)},
			pack.MapEntry{Key: pack.Str("FIELD_TYPE"), Val: pack.Str(c.Type)},
		)
	}
	env := pack.Map(
		pack.MapEntry{Key: pack.Str("METADATA"), Val: pack.Array(metaArr...)},
		pack.MapEntry{Key: pack.Str("DATA"), Val: pack.Array(dataArr...)},
	)
	return pack.Encode(env, out), nil
}

// Destroy drops all held tuple references and finalizes the embedded
// statement (spec.md §4.7: "destroy of the SQL sink additionally
// finalizes its embedded statement").
func (p *SQLPort) Destroy() {
	p.TuplePort.Destroy()
	if p.Finalize != nil {
		_ = p.Finalize()
	}
}

// HostPort adapts a row sink to push rows directly onto a host-language
// stack; DumpMsgpack is unsupported since a host port never serializes to
// wire format (spec.md §4.7: "some shapes additionally dump_to_host").
type HostPort struct {
	push func(*tuple.Tuple) error
	rows []*tuple.Tuple
}

func NewHostPort(push func(*tuple.Tuple) error) *HostPort {
	return &HostPort{push: push}
}

func (p *HostPort) Add(t *tuple.Tuple) {
	t.Ref()
	p.rows = append(p.rows, t)
}

func (p *HostPort) Len() int { return len(p.rows) }

func (p *HostPort) DumpMsgpack(out []byte) ([]byte, error) {
	return out, ErrHostDumpUnsupported
}

func (p *HostPort) DumpHost(push func(*tuple.Tuple) error) error {
	fn := push
	if fn == nil {
		fn = p.push
	}
	for _, t := range p.rows {
		if err := fn(t); err != nil {
			return err
		}
	}
	return nil
}

func (p *HostPort) Destroy() {
	for _, t := range p.rows {
		t.Unref()
	}
	p.rows = nil
}
