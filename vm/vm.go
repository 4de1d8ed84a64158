package vm

import (
	"sync/atomic"

	"github.com/tarandb/tarancore/dberr"
	"github.com/tarandb/tarancore/keydef"
	"github.com/tarandb/tarancore/pack"
)

// StepStatus is the outcome of one Machine.Step call (spec.md §4.9 step
// return values, reused here at the executor layer).
type StepStatus int

const (
	StepRow StepStatus = iota
	StepDone
	StepErrorStatus
	StepBusyStatus
)

// Sequence produces the next autoincrement value for one space.
type Sequence interface {
	Next() int64
}

// UniqueIndex is a probe+mutate contract over one unique secondary index,
// used by the ON CONFLICT REPLACE/IGNORE paths (spec.md §4.10).
type UniqueIndex struct {
	// CoversFields lists the field numbers this index covers, so the
	// executor can tell whether an UPDATE's changed columns intersect it.
	CoversFields []int
	Probe        func(key pack.Value) (found bool, err error)
	DeleteMatch  func(key pack.Value) error
}

// Machine is the register-VM executor state (spec.md §4.10).
type Machine struct {
	Program *Program
	Regs    []Value
	Cursors []*Cursor

	Collations *keydef.Registry
	PartColl   map[int]keydef.Collator // register index -> collation for the last compare, set by compiler via P4

	Sequences     map[int]Sequence
	UniqueIndexes map[int][]UniqueIndex

	ChangeCounter *uint64
	AutoincTrail  *[]int64

	InterruptFlag *int32

	ResultRow   []Value
	Halted      bool
	HaltCode    HaltCode
	HaltMessage string

	pc     int
	frames []*Frame
}

// NewMachine allocates a Machine sized for p's register file and cursor
// array (spec.md §4.9 "register file size ... cursor array size").
func NewMachine(p *Program) *Machine {
	return &Machine{
		Program: p,
		Regs:    make([]Value, p.NumRegs),
		Cursors: make([]*Cursor, p.NumCursors),
	}
}

// PC returns the current program counter (used by Reset to rewind).
func (m *Machine) PC() int { return m.pc }

// SetPC rewinds the program counter, e.g. from sqlstmt.Reset.
func (m *Machine) SetPC(pc int) { m.pc = pc; m.Halted = false }

// SetCursor attaches an opened cursor at slot idx.
func (m *Machine) SetCursor(idx int, c *Cursor) { m.Cursors[idx] = c }

func (m *Machine) halt(code HaltCode, err error) (StepStatus, error) {
	m.Halted = true
	m.HaltCode = code
	if err != nil {
		m.HaltMessage = err.Error()
	}
	if code == HaltOK {
		return StepDone, nil
	}
	if code == HaltBusy {
		return StepBusyStatus, err
	}
	return StepErrorStatus, err
}

// Step advances the VM until the next OP_ResultRow, program end, or error.
func (m *Machine) Step() (StepStatus, error) {
	if m.Halted {
		return StepDone, nil
	}
	for {
		if m.InterruptFlag != nil && atomic.LoadInt32(m.InterruptFlag) != 0 {
			return m.halt(HaltInterrupt, dberr.Interrupted())
		}
		if m.pc >= len(m.Program.Insns) {
			return m.halt(HaltOK, nil)
		}
		insn := m.Program.Insns[m.pc]
		advance := true

		switch insn.Op {
		case OpNoop, OpInit:
			// nothing

		case OpGoto:
			m.pc = insn.P2
			advance = false

		case OpInteger:
			m.Regs[insn.P2] = Int64(int64(insn.P1))

		case OpReal:
			m.Regs[insn.P2] = Double(insn.P4.(float64))

		case OpString:
			m.Regs[insn.P2] = Str(insn.P4.(string))

		case OpNull:
			m.Regs[insn.P2] = Null()

		case OpZeroBlob:
			m.Regs[insn.P2] = ZeroBlob(insn.P1)

		case OpMove, OpSCopy:
			m.Regs[insn.P2] = m.Regs[insn.P1]

		case OpResultRow:
			row := make([]Value, insn.P2)
			copy(row, m.Regs[insn.P1:insn.P1+insn.P2])
			m.ResultRow = row
			m.pc++
			return StepRow, nil

		case OpIteratorOpen, OpRewind:
			cur := m.Cursors[insn.P1]
			has, err := cur.Rewind()
			if err != nil {
				return m.halt(HaltError, err)
			}
			if !has {
				m.pc = insn.P2
				advance = false
			}

		case OpNext:
			cur := m.Cursors[insn.P1]
			has, err := cur.Next()
			if err != nil {
				return m.halt(HaltError, err)
			}
			if has {
				m.pc = insn.P2
				advance = false
			}

		case OpPrev:
			cur := m.Cursors[insn.P1]
			has, err := cur.Prev()
			if err != nil {
				return m.halt(HaltError, err)
			}
			if has {
				m.pc = insn.P2
				advance = false
			}

		case OpColumn:
			cur := m.Cursors[insn.P1]
			v, ok := cur.Column(insn.P2)
			if !ok {
				v = Null()
			}
			m.Regs[insn.P3] = v

		case OpApplyType:
			types, _ := insn.P4.([]string)
			for i := 0; i < insn.P2; i++ {
				idx := insn.P1 + i
				v, err := applyType(m.Regs[idx], types[i])
				if err != nil {
					return m.halt(HaltError, err)
				}
				m.Regs[idx] = v
			}

		case OpEq, OpNe, OpLt, OpLe, OpGt, OpGe, OpCompare:
			status, err := m.execCompare(insn, &advance)
			if err != nil {
				return status, err
			}

		case OpHaltIfNull:
			if m.Regs[insn.P1].IsNull() {
				cont, status, err := m.execConstraintHalt(insn)
				if !cont {
					return status, err
				}
				// ON CONFLICT IGNORE: abandon this row and jump past the
				// rest of the current INSERT/UPDATE body, if a target was
				// compiled in; otherwise fall through to the next insn.
				if insn.P5 != 0 {
					m.pc = int(insn.P5)
					advance = false
				}
			}

		case OpHalt:
			code := HaltCode(insn.P1)
			msg, _ := insn.P4.(string)
			if msg == "" {
				msg = "halt"
			}
			return m.halt(code, dberr.New(codeFor(code), "", "%s", msg))

		case OpAdd:
			a, b := m.Regs[insn.P1], m.Regs[insn.P2]
			switch {
			case a.IsNull() || b.IsNull():
				m.Regs[insn.P3] = Null()
			case a.Kind == KindInt64 && b.Kind == KindInt64:
				m.Regs[insn.P3] = Int64(a.Int64 + b.Int64)
			default:
				af, aIsFloat := asFloat(a)
				bf, bIsFloat := asFloat(b)
				if !aIsFloat || !bIsFloat {
					return m.halt(HaltError, dberr.Logic("vm: OP_Add operand is not numeric"))
				}
				m.Regs[insn.P3] = Double(af + bf)
			}

		case OpMakeRecord:
			vals := make([]pack.Value, insn.P2)
			for i := 0; i < insn.P2; i++ {
				vals[i] = toPack(m.Regs[insn.P1+i])
			}
			data := pack.Encode(pack.Array(vals...), nil)
			m.Regs[insn.P3] = Blob(data)

		case OpIdxInsert:
			if status, err := m.execIdxInsert(insn); err != nil {
				return status, err
			}

		case OpIdxDelete:
			m.bumpChanges()

		case OpNextAutoincValue:
			seq := m.Sequences[insn.P1]
			var val int64
			if seq != nil {
				val = seq.Next()
			}
			m.Regs[insn.P2] = Int64(val)
			if m.AutoincTrail != nil {
				*m.AutoincTrail = append(*m.AutoincTrail, val)
			}

		case OpGosub:
			m.frames = append(m.frames, &Frame{ReturnPC: m.pc + 1})
			m.pc = insn.P2
			advance = false

		case OpReturn:
			if n := len(m.frames); n > 0 {
				f := m.frames[n-1]
				m.frames = m.frames[:n-1]
				m.pc = f.ReturnPC
				advance = false
			}

		case OpXferCopy:
			status, err := m.execXferCopy(insn)
			if err != nil {
				return status, err
			}

		case OpChangeCount:
			var c uint64
			if m.ChangeCounter != nil {
				c = *m.ChangeCounter
			}
			m.Regs[insn.P2] = Int64(int64(c))

		case OpInterruptCheck:
			// already checked at loop head

		case OpFkCounter:
			// foreign-key deferred-constraint counter; no-op placeholder,
			// since cascading FK enforcement lives outside the core scope.

		default:
			return m.halt(HaltError, dberr.Logic("vm: unknown opcode %d", insn.Op))
		}

		if advance {
			m.pc++
		}
	}
}

func (m *Machine) bumpChanges() {
	if m.ChangeCounter != nil {
		*m.ChangeCounter++
	}
}

func codeFor(h HaltCode) dberr.Code {
	switch h {
	case HaltConstraintCheck, HaltConstraintNotNull, HaltConstraintUnique, HaltConstraintForeignKey:
		return dberr.ErrConstraint
	case HaltInterrupt:
		return dberr.ErrInterrupted
	case HaltSchema:
		return dberr.ErrSchema
	case HaltBusy:
		return dberr.ErrBusy
	case HaltNoMem:
		return dberr.ErrOutOfMemory
	default:
		return dberr.ErrClient
	}
}
