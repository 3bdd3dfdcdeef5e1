// Copyright 2025, Jason S. McMullan <jason.mcmullan@gmail.com>

package comet

import (
	"context"
	"errors"
	"log"
	"math"
	"strings"

	"github.com/IV66-6/wertyq/device"
)

// RunState is the execution state of an Engine: loaded but not started,
// between steps of an active run, halted normally on HALT, or halted on a
// fatal runtime error.
type RunState int

//go:generate go tool stringer -linecomment -type=RunState
const (
	STATE_READY   = RunState(iota) // ready
	STATE_RUNNING                  // running
	STATE_HALTED                   // halted
	STATE_FAULTED                  // faulted
)

// DEFAULT_STEP_LIMIT bounds a run when Options.StepLimit is unset.
const DEFAULT_STEP_LIMIT = 1 << 20

// Options configure a run.
type Options struct {
	StepLimit int  // Maximum instructions per run; 0 selects DEFAULT_STEP_LIMIT.
	Trace     bool // Log each instruction before executing it.
}

// Engine executes a loaded Machine. One engine owns one machine for the
// lifetime of a run; nothing else may mutate the machine concurrently.
type Engine struct {
	Machine *Machine
	Device  device.Device

	Options

	state RunState
	steps int
	err   error
}

// NewEngine creates an engine in the Ready state.
func NewEngine(m *Machine, dev device.Device, opts Options) *Engine {
	return &Engine{
		Machine: m,
		Device:  dev,
		Options: opts,
	}
}

// State returns the engine's current run state.
func (e *Engine) State() RunState {
	return e.state
}

// Steps returns the number of instructions executed so far.
func (e *Engine) Steps() int {
	return e.steps
}

// Err returns the error that faulted the engine, if any.
func (e *Engine) Err() error {
	return e.err
}

// Run executes instructions until the program halts, a fatal error occurs,
// the step limit is exceeded, or ctx is cancelled. The context is checked
// at every fetch boundary, so an abort never leaves a multi-word
// instruction partially executed. On error the machine state is left
// intact for diagnosis.
func (e *Engine) Run(ctx context.Context) (err error) {
	if e.state == STATE_READY {
		e.state = STATE_RUNNING
	}
	if e.state != STATE_RUNNING {
		return ErrNotReady
	}

	limit := e.StepLimit
	if limit <= 0 {
		limit = DEFAULT_STEP_LIMIT
	}

	defer func() {
		if err != nil {
			e.state = STATE_FAULTED
			err = &ErrRuntime{Addr: e.Machine.PR, Err: err}
			e.err = err
		}
	}()

	for {
		if ctx.Err() != nil {
			err = errors.Join(ErrAborted, ctx.Err())
			return
		}
		if e.steps >= limit {
			err = ErrStepLimit(limit)
			return
		}

		var done bool
		done, err = e.Step()
		if err != nil {
			return
		}
		e.steps++
		if done {
			e.state = STATE_HALTED
			return
		}
	}
}

// Step fetches, decodes, and executes a single instruction. It reports
// done=true on a HALT. The program address register is only advanced once
// the instruction completes.
func (e *Engine) Step() (done bool, err error) {
	m := e.Machine

	pr := int(m.PR)
	word, err := m.Read(pr)
	if err != nil {
		return
	}

	op := Op(word >> 8)
	info, ok := op.Info()
	if !ok {
		err = &ErrIllegalInstruction{Addr: m.PR, Word: word}
		return
	}

	code := Code{Word: word}
	for n := 1; n < info.Format.Words(); n++ {
		var adr uint16
		adr, err = m.Read(pr + n)
		if err != nil {
			return
		}
		code.Addrs = append(code.Addrs, adr)
	}

	if e.Trace {
		log.Printf("%04x: %v", pr, code)
	}

	r := code.R()
	next := pr + info.Format.Words()

	// Effective address: address word plus index register. GR0 never
	// indexes.
	var eadr uint16
	if info.Format == FMT_R_ADR || info.Format == FMT_ADR {
		eadr = code.Addrs[0]
		if x := code.X(); x >= 1 && x <= 7 {
			eadr += m.GR[x]
		}
	}

	switch op {
	case OP_NOP:
		// pass

	case OP_LD:
		var val uint16
		val, err = m.Read(int(eadr))
		if err != nil {
			return
		}
		m.GR[r] = val
	case OP_LD_R:
		m.GR[r] = m.GR[code.X()]
	case OP_ST:
		err = m.Write(int(eadr), m.GR[r])
		if err != nil {
			return
		}
	case OP_LAD:
		m.GR[r] = eadr

	case OP_ADDA, OP_SUBA, OP_ADDL, OP_SUBL,
		OP_AND, OP_OR, OP_XOR, OP_CPA, OP_CPL:
		var val uint16
		val, err = m.Read(int(eadr))
		if err != nil {
			return
		}
		e.doArith(op, r, val)
	case OP_ADDA_R, OP_SUBA_R, OP_ADDL_R, OP_SUBL_R,
		OP_AND_R, OP_OR_R, OP_XOR_R, OP_CPA_R, OP_CPL_R:
		// The register-register opcodes mirror the address forms
		// four codes up.
		e.doArith(op-4, r, m.GR[code.X()])

	case OP_SLA:
		m.GR[r] = shiftLeftA(m.GR[r], int(eadr))
		m.setFlags(m.GR[r], false)
	case OP_SRA:
		m.GR[r] = shiftRightA(m.GR[r], int(eadr))
		m.setFlags(m.GR[r], false)
	case OP_SLL:
		m.GR[r] = shiftLeftL(m.GR[r], int(eadr))
		m.setFlags(m.GR[r], false)
	case OP_SRL:
		m.GR[r] = shiftRightL(m.GR[r], int(eadr))
		m.setFlags(m.GR[r], false)

	case OP_JMI:
		if m.FR&FR_SIGN != 0 {
			next = int(eadr)
		}
	case OP_JNZ:
		if m.FR&FR_ZERO == 0 {
			next = int(eadr)
		}
	case OP_JZE:
		if m.FR&FR_ZERO != 0 {
			next = int(eadr)
		}
	case OP_JPL:
		if m.FR&(FR_SIGN|FR_ZERO) == 0 {
			next = int(eadr)
		}
	case OP_JOV:
		if m.FR&FR_OVER != 0 {
			next = int(eadr)
		}
	case OP_JUMP:
		next = int(eadr)

	case OP_PUSH:
		err = m.Push(eadr)
		if err != nil {
			return
		}
	case OP_POP:
		m.GR[r], err = m.Pop()
		if err != nil {
			return
		}
	case OP_CALL:
		err = m.Push(uint16(next))
		if err != nil {
			return
		}
		next = int(eadr)
	case OP_RET:
		var target uint16
		target, err = m.Pop()
		if err != nil {
			return
		}
		next = int(target)

	case OP_IN:
		err = e.doIn(int(code.Addrs[0]), int(code.Addrs[1]))
		if err != nil {
			return
		}
	case OP_OUT:
		err = e.doOut(int(code.Addrs[0]), int(code.Addrs[1]))
		if err != nil {
			return
		}

	case OP_HALT:
		done = true
	}

	m.PR = uint16(next)
	return
}

// doArith executes an address-form arithmetic/logical/compare opcode
// against a fetched value and updates the flags.
func (e *Engine) doArith(op Op, r int, val uint16) {
	m := e.Machine

	switch op {
	case OP_ADDA:
		res, of := addSigned(m.GR[r], val)
		m.GR[r] = res
		m.setFlags(res, of)
	case OP_SUBA:
		res, of := subSigned(m.GR[r], val)
		m.GR[r] = res
		m.setFlags(res, of)
	case OP_ADDL:
		// Unsigned arithmetic never sets Overflow; the carry-out is
		// discarded.
		m.GR[r] += val
		m.setFlags(m.GR[r], false)
	case OP_SUBL:
		m.GR[r] -= val
		m.setFlags(m.GR[r], false)
	case OP_AND:
		m.GR[r] &= val
		m.setFlags(m.GR[r], false)
	case OP_OR:
		m.GR[r] |= val
		m.setFlags(m.GR[r], false)
	case OP_XOR:
		m.GR[r] ^= val
		m.setFlags(m.GR[r], false)
	case OP_CPA:
		res, of := subSigned(m.GR[r], val)
		m.setFlags(res, of)
	case OP_CPL:
		m.setFlags(m.GR[r]-val, false)
	}
}

// doIn reads one line from the device and stores it space-padded or
// truncated to the declared length at lenp.
func (e *Engine) doIn(bufp, lenp int) (err error) {
	if e.Device == nil {
		return ErrNoDevice
	}

	m := e.Machine
	count, err := m.Read(lenp)
	if err != nil {
		return
	}

	line, err := e.Device.ReadLine()
	if err != nil {
		return
	}

	for n := range int(count) {
		ch := uint16(' ')
		if n < len(line) {
			ch = uint16(line[n])
		}
		err = m.Write(bufp+n, ch)
		if err != nil {
			return
		}
	}
	return
}

// doOut hands the declared-length buffer contents to the device as one
// line.
func (e *Engine) doOut(bufp, lenp int) (err error) {
	if e.Device == nil {
		return ErrNoDevice
	}

	m := e.Machine
	count, err := m.Read(lenp)
	if err != nil {
		return
	}

	var sb strings.Builder
	for n := range int(count) {
		var word uint16
		word, err = m.Read(bufp + n)
		if err != nil {
			return
		}
		sb.WriteByte(byte(word & 0xff))
	}

	return e.Device.WriteLine(sb.String())
}

// addSigned adds two words as 16-bit two's-complement values, reporting
// overflow when the mathematical sum is unrepresentable.
func addSigned(a, b uint16) (res uint16, overflow bool) {
	wide := int32(int16(a)) + int32(int16(b))
	res = uint16(wide)
	overflow = wide > math.MaxInt16 || wide < math.MinInt16
	return
}

func subSigned(a, b uint16) (res uint16, overflow bool) {
	wide := int32(int16(a)) - int32(int16(b))
	res = uint16(wide)
	overflow = wide > math.MaxInt16 || wide < math.MinInt16
	return
}

// shiftLeftA shifts the magnitude bits left, preserving the sign bit.
func shiftLeftA(v uint16, n int) uint16 {
	sign := v & 0x8000
	if n >= 15 {
		return sign
	}
	return sign | ((v << n) & 0x7fff)
}

// shiftRightA sign-extends; a count past the width fills with the sign.
func shiftRightA(v uint16, n int) uint16 {
	if n > 15 {
		n = 15
	}
	return uint16(int16(v) >> n)
}

func shiftLeftL(v uint16, n int) uint16 {
	if n >= 16 {
		return 0
	}
	return v << n
}

func shiftRightL(v uint16, n int) uint16 {
	if n >= 16 {
		return 0
	}
	return v >> n
}
