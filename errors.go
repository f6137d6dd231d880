// Package betree implements a persistent, block-backed Bε-tree key-value
// index: a write-optimized search tree that buffers update messages in
// internal nodes and amortizes the cost of pushing them to leaves.
package betree

import (
	"fmt"
	log "log/slog"
)

// ErrorCode classifies a fatal betree error. Per the error taxonomy there is
// no recovery path: every code surfaces as a panic carrying an Error value.
type ErrorCode int

const (
	Unknown ErrorCode = iota
	// LogicalPrecondition covers violations the caller could have avoided:
	// re-inserting a live key, updating or deleting an absent key, an
	// invalid upsert kind.
	LogicalPrecondition
	// IOFailure covers any failed create, read, write, or delete against a
	// block.Store backend, after retries (if any) are exhausted.
	IOFailure
	// InvariantViolation covers assertion failures in the node protocol:
	// unsorted pivots, buffer overflow, parent id mismatch, and the like.
	InvariantViolation
)

func (c ErrorCode) String() string {
	switch c {
	case LogicalPrecondition:
		return "logical precondition violation"
	case IOFailure:
		return "I/O failure"
	case InvariantViolation:
		return "invariant violation"
	default:
		return "unknown error"
	}
}

// Error is the sole error type betree ever raises. It is always fatal: no
// betree operation attempts local recovery from one of these.
type Error struct {
	Code    ErrorCode
	Err     error
	Context any
}

func (e Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("betree: %s: %v (context: %v)", e.Code, e.Err, e.Context)
	}
	return fmt.Sprintf("betree: %s (context: %v)", e.Code, e.Context)
}

func (e Error) Unwrap() error { return e.Err }

// fatalf logs the diagnostic and panics with a betree.Error of the given
// code. There is no local recovery for any of the three error kinds in the
// taxonomy (logical precondition, I/O, invariant violation).
func fatalf(code ErrorCode, context any, format string, args ...any) {
	msg := fmt.Sprintf(format, args...)
	log.Error(msg, "code", code.String(), "context", context)
	panic(Error{Code: code, Err: fmt.Errorf("%s", msg), Context: context})
}

// assertf panics via fatalf(InvariantViolation, ...) when cond is false.
func assertf(cond bool, context any, format string, args ...any) {
	if !cond {
		fatalf(InvariantViolation, context, format, args...)
	}
}
