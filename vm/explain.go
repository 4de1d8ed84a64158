package vm

import "fmt"

// ExplainRow is one line of a program disassembly, shaped after SQLite's
// own "EXPLAIN" pseudo-table (addr, opcode, p1, p2, p3, p4, p5) since
// spec.md's bytecode model is deliberately SQLite-shaped (§4.10's
// (opcode, p1, p2, p3, p4_kind, p4_value, p5_flags) tuple).
type ExplainRow struct {
	Addr int
	Op   string
	P1   int
	P2   int
	P3   int
	P4   string
	P5   uint16
}

// Explain disassembles prog into one ExplainRow per instruction, for a
// host's --explain flag (cmd/tarandbd) to pretty-print. It performs no
// execution: a pure, read-only view of the compiled program.
func Explain(prog *Program) []ExplainRow {
	rows := make([]ExplainRow, len(prog.Insns))
	for i, insn := range prog.Insns {
		rows[i] = ExplainRow{
			Addr: i,
			Op:   insn.Op.String(),
			P1:   insn.P1,
			P2:   insn.P2,
			P3:   insn.P3,
			P4:   formatP4(insn.P4),
			P5:   insn.P5,
		}
	}
	return rows
}

func formatP4(p4 any) string {
	if p4 == nil {
		return ""
	}
	return fmt.Sprintf("%v", p4)
}
