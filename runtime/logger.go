package runtime

import "log"

// Logger matches the teacher's database.Logger shape
// (database/logger.go): a tiny Print/Printf/Println contract so a
// caller can swap in a silent implementation for tests.
type Logger interface {
	Print(v ...any)
	Printf(format string, v ...any)
	Println(v ...any)
}

// StdLogger adapts the standard library's log.Logger to Logger. CLI
// boundaries (cmd/tarandbd) use this; library packages never log
// (SPEC_FULL.md's ambient-logging rule).
type StdLogger struct {
	*log.Logger
}

// NewStdLogger wraps log.Default().
func NewStdLogger() StdLogger { return StdLogger{Logger: log.Default()} }

// NullLogger discards everything, for tests and embedders that want
// silence.
type NullLogger struct{}

func (NullLogger) Print(v ...any)                 {}
func (NullLogger) Printf(format string, v ...any) {}
func (NullLogger) Println(v ...any)               {}
