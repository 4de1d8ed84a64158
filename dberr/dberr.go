// Package dberr implements the stable, typed error taxonomy of spec.md §7.
// Low-level codec and comparator helpers keep returning plain `error`
// (matching the teacher's "wrap with fmt.Errorf at the call site, never
// inside library code" discipline, e.g. driver/database.go); dberr exists
// only for the layer that must expose a stable integer code plus message to
// a caller across the SQL/statement boundary.
package dberr

import "fmt"

// Code is the stable, wire-visible status of spec.md §4.10's halt codes and
// §7's error taxonomy, merged into one space so every error in the system
// has exactly one Code.
type Code int

const (
	OK Code = iota
	ErrClient
	ErrConstraint
	ErrOutOfMemory
	ErrIO
	ErrLogic
	ErrInterrupted
	ErrSchema
	ErrBusy
)

func (c Code) String() string {
	switch c {
	case OK:
		return "OK"
	case ErrClient:
		return "ClientError"
	case ErrConstraint:
		return "ConstraintError"
	case ErrOutOfMemory:
		return "OutOfMemory"
	case ErrIO:
		return "IoError"
	case ErrLogic:
		return "LogicError"
	case ErrInterrupted:
		return "Interrupted"
	case ErrSchema:
		return "SchemaError"
	case ErrBusy:
		return "Busy"
	default:
		return "Unknown"
	}
}

// SubKind distinguishes error sub-kinds named in spec.md §7.
type SubKind string

const (
	// ClientError sub-kinds.
	BindNotFound       SubKind = "BindNotFound"
	BindType           SubKind = "BindType"
	BindValue          SubKind = "BindValue"
	BindParameterMax   SubKind = "BindParameterMax"
	InvalidMsgPack     SubKind = "InvalidMsgPack"
	NoSuchField        SubKind = "NoSuchField"
	FieldType          SubKind = "FieldType"
	InvalidUuid        SubKind = "InvalidUuid"
	NoSuchSpace        SubKind = "NoSuchSpace"
	CursorNoTransaction SubKind = "CursorNoTransaction"
	SqlExecute         SubKind = "SqlExecute"

	// ConstraintError sub-kinds.
	NotNull    SubKind = "NotNull"
	Check      SubKind = "Check"
	Unique     SubKind = "Unique"
	ForeignKey SubKind = "ForeignKey"
)

// Error is the typed error every tarancore API boundary returns. It carries
// a stable Code, an optional SubKind, and a human message, and always
// implements the standard error interface so it composes with errors.Is/As
// and with fmt.Errorf("%w", ...) the way the rest of the codebase does.
type Error struct {
	Code    Code
	Sub     SubKind
	Message string
	// Cause chains a wrapped low-level error (e.g. from pack or a storage
	// backend) without hiding it from errors.Unwrap.
	Cause error
}

func (e *Error) Error() string {
	if e.Sub != "" {
		return fmt.Sprintf("%s(%s): %s", e.Code, e.Sub, e.Message)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *Error) Unwrap() error { return e.Cause }

func New(code Code, sub SubKind, format string, args ...any) *Error {
	return &Error{Code: code, Sub: sub, Message: fmt.Sprintf(format, args...)}
}

func Wrap(code Code, sub SubKind, cause error, format string, args ...any) *Error {
	return &Error{Code: code, Sub: sub, Message: fmt.Sprintf(format, args...), Cause: cause}
}

// Client constructs a ClientError with the given sub-kind.
func Client(sub SubKind, format string, args ...any) *Error {
	return New(ErrClient, sub, format, args...)
}

// Constraint constructs a ConstraintError with the given sub-kind.
func Constraint(sub SubKind, format string, args ...any) *Error {
	return New(ErrConstraint, sub, format, args...)
}

// OutOfMemory carries size, allocator name, and purpose per spec.md §7.
func OutOfMemory(size int, allocator, purpose string) *Error {
	return New(ErrOutOfMemory, "", "failed to allocate %d bytes from %q for %s", size, allocator, purpose)
}

func IO(format string, args ...any) *Error {
	return New(ErrIO, "", format, args...)
}

func Logic(format string, args ...any) *Error {
	return New(ErrLogic, "", format, args...)
}

func Interrupted() *Error {
	return New(ErrInterrupted, "", "operation interrupted")
}

func Schema(format string, args ...any) *Error {
	return New(ErrSchema, "", format, args...)
}

func Busy(format string, args ...any) *Error {
	return New(ErrBusy, "", format, args...)
}

// Is reports whether err is a dberr.Error with the given code, so callers
// can write `if dberr.Is(err, dberr.ErrConstraint)` instead of a type
// assertion at every call site.
func Is(err error, code Code) bool {
	var e *Error
	if !asError(err, &e) {
		return false
	}
	return e.Code == code
}

func asError(err error, target **Error) bool {
	for err != nil {
		if e, ok := err.(*Error); ok {
			*target = e
			return true
		}
		u, ok := err.(interface{ Unwrap() error })
		if !ok {
			return false
		}
		err = u.Unwrap()
	}
	return false
}
