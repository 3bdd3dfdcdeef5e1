package casl

import (
	"errors"
	"strings"

	"github.com/IV66-6/wertyq/translate"
)

var f = translate.From

var (
	ErrNoStart            = errors.New(f("no START instruction"))
	ErrNoEnd              = errors.New(f("no END instruction"))
	ErrDuplicateStart     = errors.New(f("duplicate START instruction"))
	ErrAfterEnd           = errors.New(f("statement after END"))
	ErrStartLabel         = errors.New(f("START requires a label"))
	ErrEndLabel           = errors.New(f("END takes no label"))
	ErrEquateLabel        = errors.New(f("EQU requires a label"))
	ErrOperandCount       = errors.New(f("operand count mismatch"))
	ErrIndexGR0           = errors.New(f("GR0 cannot be used as an index register"))
	ErrUnterminatedString = errors.New(f("unterminated string"))
	ErrProgramTooLarge    = errors.New(f("program exceeds memory"))
	ErrInternal           = errors.New(f("internal: unresolved reference after pass 1"))
)

// ErrBadLabel is a malformed label token.
type ErrBadLabel string

func (err ErrBadLabel) Error() string {
	return f("invalid label '%v'", string(err))
}

// ErrBadOperand is an operand that matches no recognized shape.
type ErrBadOperand string

func (err ErrBadOperand) Error() string {
	return f("invalid operand '%v'", string(err))
}

// ErrUnknownMnemonic is a mnemonic absent from the instruction table.
type ErrUnknownMnemonic string

func (err ErrUnknownMnemonic) Error() string {
	return f("unknown instruction '%v'", string(err))
}

// ErrDuplicateSymbol is a second definition of a label.
type ErrDuplicateSymbol string

func (err ErrDuplicateSymbol) Error() string {
	return f("label '%v' already defined", string(err))
}

// ErrUndefinedSymbol is a reference to a label never defined.
type ErrUndefinedSymbol string

func (err ErrUndefinedSymbol) Error() string {
	return f("undefined label '%v'", string(err))
}

// ErrDuplicateEquate is a second definition of an equate name.
type ErrDuplicateEquate string

func (err ErrDuplicateEquate) Error() string {
	return f("equate '%v' already defined", string(err))
}

// ErrOperandRange is a numeric operand outside the representable 16-bit
// range.
type ErrOperandRange string

func (err ErrOperandRange) Error() string {
	return f("value '%v' out of 16-bit range", string(err))
}

// ErrExpression is a compile-time expression that failed to evaluate.
type ErrExpression string

func (err ErrExpression) Error() string {
	return f("$(%v) is not a valid expression", string(err))
}

// Diagnostic carries one assembly error with its source location.
type Diagnostic struct {
	LineNo int
	Line   string
	Err    error
}

func (d *Diagnostic) Error() string {
	return f("line %d '%v' %v", d.LineNo, d.Line, d.Err)
}

func (d *Diagnostic) Unwrap() error {
	return d.Err
}

// AssemblyError is the collected pass-1 diagnostics. Assembly aborts
// without emitting a module when any are present.
type AssemblyError []*Diagnostic

func (ae AssemblyError) Error() string {
	lines := make([]string, len(ae))
	for n, d := range ae {
		lines[n] = d.Error()
	}
	return strings.Join(lines, "\n")
}

func (ae AssemblyError) Unwrap() (errs []error) {
	errs = make([]error, len(ae))
	for n, d := range ae {
		errs[n] = d
	}
	return
}
