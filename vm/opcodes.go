package vm

// Opcode enumerates the register-VM instruction set spec.md §4.10 names.
// Not exhaustive of every opcode a full SQL engine would carry, but every
// opcode spec.md calls out by name is present and implemented by Step.
type Opcode uint8

const (
	OpNoop Opcode = iota
	OpInit
	OpGoto
	OpInteger  // P1=value, P2=reg: load constant integer
	OpReal     // P4=value, P2=reg
	OpString   // P4=value, P2=reg
	OpNull     // P2=reg: set null
	OpZeroBlob // P1=n, P2=reg
	OpMove     // P1=src, P2=dst
	OpSCopy    // P1=src, P2=dst: shallow copy, no ownership transfer semantics differ in refcounted hosts
	OpResultRow
	OpIteratorOpen
	OpRewind // P1=cursor, P2=jump-if-empty
	OpNext   // P1=cursor, P2=jump-if-has-next
	OpPrev   // P1=cursor, P2=jump-if-has-prev
	OpColumn // P1=cursor, P2=fieldno, P3=reg
	OpApplyType
	OpCompare
	OpEq
	OpNe
	OpLt
	OpLe
	OpGt
	OpGe
	OpHaltIfNull
	OpHalt
	OpAdd // P1=reg, P2=reg, P3=destReg: arithmetic, promoting to REAL if either operand is
	OpMakeRecord    // P1=startReg, P2=count, P3=destReg
	OpIdxInsert     // P1=cursor, P2=reg holding a record
	OpIdxDelete     // P1=cursor, P2=reg holding a key
	OpNextAutoincValue
	OpFkCounter
	OpGosub // P1=returnReg unused, P2=target PC: push a frame (trigger invocation)
	OpReturn
	OpXferCopy // P1=src cursor, P2=dst cursor, P3=ConflictAction, P4=[]UniqueIndex: raw-row copy with index probing, bypassing decode/encode
	OpChangeCount // P2=reg: load current change counter
	OpInterruptCheck
)

var opcodeNames = [...]string{
	OpNoop:             "Noop",
	OpInit:              "Init",
	OpGoto:              "Goto",
	OpInteger:           "Integer",
	OpReal:              "Real",
	OpString:            "String",
	OpNull:              "Null",
	OpZeroBlob:          "ZeroBlob",
	OpMove:              "Move",
	OpSCopy:             "SCopy",
	OpResultRow:         "ResultRow",
	OpIteratorOpen:      "IteratorOpen",
	OpRewind:            "Rewind",
	OpNext:              "Next",
	OpPrev:              "Prev",
	OpColumn:            "Column",
	OpApplyType:         "ApplyType",
	OpCompare:           "Compare",
	OpEq:                "Eq",
	OpNe:                "Ne",
	OpLt:                "Lt",
	OpLe:                "Le",
	OpGt:                "Gt",
	OpGe:                "Ge",
	OpHaltIfNull:        "HaltIfNull",
	OpHalt:              "Halt",
	OpAdd:               "Add",
	OpMakeRecord:        "MakeRecord",
	OpIdxInsert:         "IdxInsert",
	OpIdxDelete:         "IdxDelete",
	OpNextAutoincValue:  "NextAutoincValue",
	OpFkCounter:         "FkCounter",
	OpGosub:             "Gosub",
	OpReturn:            "Return",
	OpXferCopy:          "XferCopy",
	OpChangeCount:       "ChangeCount",
	OpInterruptCheck:    "InterruptCheck",
}

// String names an opcode the way SQLite's own EXPLAIN output does,
// consumed by vm.Explain (explain.go).
func (op Opcode) String() string {
	if int(op) < len(opcodeNames) && opcodeNames[op] != "" {
		return opcodeNames[op]
	}
	return "Unknown"
}

// ConflictAction is the ON CONFLICT resolution policy resolved at compile
// time for a constraint violation (spec.md §4.10).
type ConflictAction uint8

const (
	ConflictAbort ConflictAction = iota
	ConflictFail
	ConflictIgnore
	ConflictRollback
	ConflictReplace
)

// HaltCode mirrors spec.md §4.10's halt codes.
type HaltCode uint8

const (
	HaltOK HaltCode = iota
	HaltError
	HaltBusy
	HaltConstraintCheck
	HaltConstraintNotNull
	HaltConstraintUnique
	HaltConstraintForeignKey
	HaltTooBig
	HaltNoMem
	HaltInterrupt
	HaltRange
	HaltSchema
)

// Insn is one bytecode instruction: (opcode, p1, p2, p3, p4, p5).
type Insn struct {
	Op   Opcode
	P1   int
	P2   int
	P3   int
	P4   any
	P5   uint16
}

// Program is a compiled bytecode vector plus the static sizing info the
// executor needs to allocate its register file and cursor array
// (spec.md §4.9 "register file size ... cursor array size").
type Program struct {
	Insns       []Insn
	NumRegs     int
	NumCursors  int
	ParamCount  int
	ParamNames  []string // "" for positional-only params
	ColumnNames []string
	ColumnTypes []string
	// IsXfer marks a compiled INSERT INTO t SELECT * FROM u whose source
	// and destination formats are structurally equivalent, letting the
	// executor take the raw-row-copy path (spec.md §4.10 "Xfer
	// optimization").
	IsXfer bool
}
