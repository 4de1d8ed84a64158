// Package limits centralizes the per-connection numeric limits of
// spec.md §6 so sqlbind, sqlstmt and vm all read the same constants
// instead of duplicating magic numbers.
package limits

const (
	// Length is the max byte length of any single value.
	Length = 1<<31 - 1
	// SQLLength is the max SQL text length accepted by Prepare.
	SQLLength = Length
	// Column is the max columns in a result set.
	Column = 32767
	// ExprDepth is the max expression nesting depth.
	ExprDepth = 1000
	// CompoundSelect is the max arms in a UNION/INTERSECT/EXCEPT chain.
	CompoundSelect = 500
	// FunctionArg is the max arguments to a single function call.
	FunctionArg = 127
	// LikePatternLength is the max byte length of a LIKE pattern.
	LikePatternLength = 50000
	// TriggerDepth is the max recursive trigger invocation depth.
	TriggerDepth = 32
	// BindParameterMax is the hard cap on bound parameters in one
	// statement (spec.md §6 "Hard bind-count cap").
	BindParameterMax = 65000
	// SchemaRetryMax bounds the transparent recompile-and-retry loop a
	// SchemaError triggers (spec.md §7) before it surfaces to the caller.
	SchemaRetryMax = 5
)
