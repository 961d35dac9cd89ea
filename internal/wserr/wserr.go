// Package wserr is the error taxonomy of §7: the set of runtime-error kinds
// that terminate a single State into the errored bucket without aborting
// exploration.
package wserr

import (
	"fmt"

	"github.com/pkg/errors"
)

// Kind identifies which §7 error a RuntimeError represents.
type Kind string

const (
	StackUnderflow     Kind = "StackUnderflow"
	BadLabel           Kind = "BadLabel"
	BadReturn          Kind = "BadReturn"
	DivByZero          Kind = "DivByZero"
	EOFStdin           Kind = "EOFStdin"
	InvalidInstruction Kind = "InvalidInstruction"
)

// RuntimeError is the error a State carries in its Errored(kind) status.
// It wraps the immediate cause with github.com/pkg/errors so the original
// call site survives as a traceable chain, the role the teacher's
// hand-rolled call-stack field played without the ecosystem library.
type RuntimeError struct {
	Kind Kind
	PC   int
	Op   string
	err  error
}

// New creates a RuntimeError for the given kind at instruction pc/op.
func New(kind Kind, pc int, op string, format string, args ...interface{}) *RuntimeError {
	return &RuntimeError{
		Kind: kind,
		PC:   pc,
		Op:   op,
		err:  errors.WithStack(fmt.Errorf(format, args...)),
	}
}

func (e *RuntimeError) Error() string {
	return fmt.Sprintf("%s at pc=%d (%s): %v", e.Kind, e.PC, e.Op, e.err)
}

// Unwrap exposes the wrapped cause for errors.Is/errors.As.
func (e *RuntimeError) Unwrap() error { return e.err }

// Trace renders the error together with the stack captured at New, via
// pkg/errors' %+v formatting. This is the diagnostic form reporting prints
// for an Explore run's sample errored state, instead of the shallow %v
// Error() gives — the reason this package wraps with errors.WithStack
// instead of plain fmt.Errorf.
func (e *RuntimeError) Trace() string {
	return fmt.Sprintf("%s at pc=%d (%s): %+v", e.Kind, e.PC, e.Op, e.err)
}
