package comet

import (
	"errors"

	"github.com/IV66-6/wertyq/translate"
)

var f = translate.From

var (
	ErrAborted      = errors.New(f("run aborted"))
	ErrNoDevice     = errors.New(f("no I/O device attached"))
	ErrNotReady     = errors.New(f("engine is not ready"))
	ErrObjectFormat = errors.New(f("not a COMET object module"))
)

// ErrMemoryAccess is a reference outside the machine's memory.
type ErrMemoryAccess int

func (err ErrMemoryAccess) Error() string {
	return f("memory access at %#04x out of range", int(err))
}

// ErrStackFault is a stack pointer excursion outside the reserved stack
// region.
type ErrStackFault struct {
	SP        uint16
	Underflow bool
}

func (err *ErrStackFault) Error() string {
	if err.Underflow {
		return f("stack underflow, SP = #%04x", err.SP)
	}
	return f("stack overflow, SP = #%04x", err.SP)
}

// ErrIllegalInstruction is a fetched word that decodes to no recognized
// instruction.
type ErrIllegalInstruction struct {
	Addr uint16
	Word uint16
}

func (err *ErrIllegalInstruction) Error() string {
	return f("illegal instruction #%04x at #%04x", err.Word, err.Addr)
}

// ErrStepLimit is a run that exceeded its configured step budget.
type ErrStepLimit int

func (err ErrStepLimit) Error() string {
	return f("step limit of %d exceeded", int(err))
}

// ErrRuntime locates a fatal execution error at the program address where
// the failing fetch began.
type ErrRuntime struct {
	Addr uint16
	Err  error
}

func (err *ErrRuntime) Error() string {
	return f("at #%04x: %v", err.Addr, err.Err)
}

func (err *ErrRuntime) Unwrap() error {
	return err.Err
}
