package comet

import (
	"fmt"
	"iter"
	"maps"
	"strings"
)

// MEMORY_SIZE is the full memory size in words.
const MEMORY_SIZE = 65536

// Stack region defaults. The stack pointer (GR7) starts at DEFAULT_STACK_TOP
// and grows downward; crossing DEFAULT_STACK_SIZE words below it faults.
const (
	DEFAULT_STACK_TOP  = uint16(0xff00)
	DEFAULT_STACK_SIZE = uint16(0x100)
)

// Flag register bits.
const (
	FR_ZERO = uint8(1) // result was zero
	FR_SIGN = uint8(2) // high bit of result
	FR_OVER = uint8(4) // signed overflow
)

// SP is the register that holds the stack pointer by convention.
const SP = 7

var _machine_defines = map[string]string{
	"MEMORY_SIZE": fmt.Sprintf("%v", MEMORY_SIZE),
	"STACK_TOP":   fmt.Sprintf("%v", DEFAULT_STACK_TOP),
	"STACK_SIZE":  fmt.Sprintf("%v", DEFAULT_STACK_SIZE),
}

// Defines returns the machine constants exposed to the assembler as
// predefined equates.
func Defines() iter.Seq2[string, string] {
	return maps.All(_machine_defines)
}

// Machine is the COMET register file and memory. It is a pure state
// container; all instruction semantics live in the Engine.
type Machine struct {
	GR [8]uint16 // General registers. GR7 is the stack pointer.
	PR uint16    // Program address register.
	FR uint8     // Flag register (FR_OVER | FR_SIGN | FR_ZERO).

	Memory []uint16

	StackTop  uint16 // Initial stack pointer; stack grows downward.
	StackSize uint16 // Reserved stack depth in words.
}

// NewMachine creates a machine with the full 65,536-word memory.
func NewMachine() *Machine {
	return NewMachineSize(MEMORY_SIZE)
}

// NewMachineSize creates a machine with a reduced memory, clamping the
// stack region to fit. Small machines make out-of-range accesses testable.
func NewMachineSize(words int) (m *Machine) {
	if words > MEMORY_SIZE {
		words = MEMORY_SIZE
	}

	m = &Machine{
		Memory:    make([]uint16, words),
		StackTop:  DEFAULT_STACK_TOP,
		StackSize: DEFAULT_STACK_SIZE,
	}
	if int(m.StackTop) > words {
		m.StackTop = uint16(words)
		if m.StackSize > m.StackTop {
			m.StackSize = m.StackTop
		}
	}

	return
}

// Reset clears the registers, flags, and memory.
func (m *Machine) Reset() {
	clear(m.GR[:])
	clear(m.Memory)
	m.PR = 0
	m.FR = 0
}

// Read returns the word at addr, or ErrMemoryAccess if addr is outside
// memory.
func (m *Machine) Read(addr int) (value uint16, err error) {
	if addr < 0 || addr >= len(m.Memory) {
		err = ErrMemoryAccess(addr)
		return
	}
	value = m.Memory[addr]
	return
}

// Write stores a word at addr, or fails with ErrMemoryAccess.
func (m *Machine) Write(addr int, value uint16) (err error) {
	if addr < 0 || addr >= len(m.Memory) {
		err = ErrMemoryAccess(addr)
		return
	}
	m.Memory[addr] = value
	return
}

// Push decrements the stack pointer and stores value, faulting if the
// stack would cross below its reserved region.
func (m *Machine) Push(value uint16) (err error) {
	sp := m.GR[SP]
	if sp <= m.StackTop-m.StackSize {
		err = &ErrStackFault{SP: sp}
		return
	}
	sp--
	err = m.Write(int(sp), value)
	if err != nil {
		return
	}
	m.GR[SP] = sp
	return
}

// Pop removes and returns the top-of-stack word, faulting on an empty
// stack.
func (m *Machine) Pop() (value uint16, err error) {
	sp := m.GR[SP]
	if sp >= m.StackTop {
		err = &ErrStackFault{SP: sp, Underflow: true}
		return
	}
	value, err = m.Read(int(sp))
	if err != nil {
		return
	}
	m.GR[SP] = sp + 1
	return
}

// Load copies an object module into memory at base, sets PR to the entry
// address, and initializes the stack pointer. The previous run's state is
// cleared first.
func (m *Machine) Load(obj *ObjectModule, base uint16) (err error) {
	if int(base)+len(obj.Words) > len(m.Memory) {
		err = ErrMemoryAccess(int(base) + len(obj.Words) - 1)
		return
	}

	m.Reset()
	copy(m.Memory[base:], obj.Words)
	m.PR = base + obj.Entry
	m.GR[SP] = m.StackTop
	return
}

// setFlags recomputes the flag register from a truncated result.
func (m *Machine) setFlags(result uint16, overflow bool) {
	m.FR = 0
	if overflow {
		m.FR |= FR_OVER
	}
	if result&0x8000 != 0 {
		m.FR |= FR_SIGN
	}
	if result == 0 {
		m.FR |= FR_ZERO
	}
}

// String returns the register state as a multi-line dump.
func (m *Machine) String() (text string) {
	var sb strings.Builder

	flag := func(bit uint8, set string) string {
		if m.FR&bit != 0 {
			return set
		}
		return "-"
	}

	fmt.Fprintf(&sb, "  PR: #%04x\n", m.PR)
	fmt.Fprintf(&sb, "  FR: %s%s%s\n",
		flag(FR_OVER, "O"), flag(FR_SIGN, "S"), flag(FR_ZERO, "Z"))
	for n, val := range m.GR {
		fmt.Fprintf(&sb, " GR%d: #%04x", n, val)
		if n == SP {
			sb.WriteString(" (SP)")
		}
		sb.WriteString("\n")
	}

	return sb.String()
}
