package comet

import (
	"fmt"
	"strings"
)

// Op is an operation code, stored in the high byte of an instruction word.
type Op uint8

const (
	OP_NOP  = Op(0x00)
	OP_LD   = Op(0x10)
	OP_ST   = Op(0x11)
	OP_LAD  = Op(0x12)
	OP_LD_R = Op(0x14)

	OP_ADDA   = Op(0x20)
	OP_SUBA   = Op(0x21)
	OP_ADDL   = Op(0x22)
	OP_SUBL   = Op(0x23)
	OP_ADDA_R = Op(0x24)
	OP_SUBA_R = Op(0x25)
	OP_ADDL_R = Op(0x26)
	OP_SUBL_R = Op(0x27)

	OP_AND   = Op(0x30)
	OP_OR    = Op(0x31)
	OP_XOR   = Op(0x32)
	OP_AND_R = Op(0x34)
	OP_OR_R  = Op(0x35)
	OP_XOR_R = Op(0x36)

	OP_CPA   = Op(0x40)
	OP_CPL   = Op(0x41)
	OP_CPA_R = Op(0x44)
	OP_CPL_R = Op(0x45)

	OP_SLA = Op(0x50)
	OP_SRA = Op(0x51)
	OP_SLL = Op(0x52)
	OP_SRL = Op(0x53)

	OP_JMI  = Op(0x61)
	OP_JNZ  = Op(0x62)
	OP_JZE  = Op(0x63)
	OP_JUMP = Op(0x64)
	OP_JPL  = Op(0x65)
	OP_JOV  = Op(0x66)

	OP_PUSH = Op(0x70)
	OP_POP  = Op(0x71)

	OP_CALL = Op(0x80)
	OP_RET  = Op(0x81)

	OP_IN  = Op(0x90)
	OP_OUT = Op(0x91)

	OP_HALT = Op(0xff)
)

// Format is the operand-field layout of an instruction.
type Format int

const (
	FMT_NONE  = Format(iota) // no operands, one word
	FMT_R                    // register, one word
	FMT_RR                   // register,register, one word
	FMT_R_ADR                // register,address[,index], two words
	FMT_ADR                  // address[,index], two words
	FMT_IO                   // buffer-address,length-address, three words
)

// Words returns the number of memory words an instruction of this format
// occupies, including its address words.
func (f Format) Words() int {
	switch f {
	case FMT_R_ADR, FMT_ADR:
		return 2
	case FMT_IO:
		return 3
	default:
		return 1
	}
}

// OpInfo describes one operation: its mnemonic and operand layout.
type OpInfo struct {
	Name   string
	Format Format
}

var opTable = map[Op]OpInfo{
	OP_NOP:  {"NOP", FMT_NONE},
	OP_LD:   {"LD", FMT_R_ADR},
	OP_ST:   {"ST", FMT_R_ADR},
	OP_LAD:  {"LAD", FMT_R_ADR},
	OP_LD_R: {"LD", FMT_RR},

	OP_ADDA:   {"ADDA", FMT_R_ADR},
	OP_SUBA:   {"SUBA", FMT_R_ADR},
	OP_ADDL:   {"ADDL", FMT_R_ADR},
	OP_SUBL:   {"SUBL", FMT_R_ADR},
	OP_ADDA_R: {"ADDA", FMT_RR},
	OP_SUBA_R: {"SUBA", FMT_RR},
	OP_ADDL_R: {"ADDL", FMT_RR},
	OP_SUBL_R: {"SUBL", FMT_RR},

	OP_AND:   {"AND", FMT_R_ADR},
	OP_OR:    {"OR", FMT_R_ADR},
	OP_XOR:   {"XOR", FMT_R_ADR},
	OP_AND_R: {"AND", FMT_RR},
	OP_OR_R:  {"OR", FMT_RR},
	OP_XOR_R: {"XOR", FMT_RR},

	OP_CPA:   {"CPA", FMT_R_ADR},
	OP_CPL:   {"CPL", FMT_R_ADR},
	OP_CPA_R: {"CPA", FMT_RR},
	OP_CPL_R: {"CPL", FMT_RR},

	OP_SLA: {"SLA", FMT_R_ADR},
	OP_SRA: {"SRA", FMT_R_ADR},
	OP_SLL: {"SLL", FMT_R_ADR},
	OP_SRL: {"SRL", FMT_R_ADR},

	OP_JMI:  {"JMI", FMT_ADR},
	OP_JNZ:  {"JNZ", FMT_ADR},
	OP_JZE:  {"JZE", FMT_ADR},
	OP_JUMP: {"JUMP", FMT_ADR},
	OP_JPL:  {"JPL", FMT_ADR},
	OP_JOV:  {"JOV", FMT_ADR},

	OP_PUSH: {"PUSH", FMT_ADR},
	OP_POP:  {"POP", FMT_R},

	OP_CALL: {"CALL", FMT_ADR},
	OP_RET:  {"RET", FMT_NONE},

	OP_IN:  {"IN", FMT_IO},
	OP_OUT: {"OUT", FMT_IO},

	OP_HALT: {"HALT", FMT_NONE},
}

// Info returns the OpInfo for an operation code.
func (op Op) Info() (info OpInfo, ok bool) {
	info, ok = opTable[op]
	return
}

func (op Op) String() string {
	info, ok := opTable[op]
	if !ok {
		return fmt.Sprintf("OP(%#02x)", uint8(op))
	}
	return info.Name
}

// Code is a single decoded instruction: the operation word plus any address
// words that follow it in memory.
type Code struct {
	Word  uint16
	Addrs []uint16
}

// MakeCode assembles an instruction from its fields.
func MakeCode(op Op, r, x int, addrs ...uint16) Code {
	return Code{
		Word:  uint16(op)<<8 | uint16(r&0xf)<<4 | uint16(x&0xf),
		Addrs: addrs,
	}
}

// Op returns the operation code from the instruction word.
func (code Code) Op() Op {
	return Op(code.Word >> 8)
}

// R returns the register field (bits 7-4).
func (code Code) R() int {
	return int(code.Word>>4) & 0xf
}

// X returns the index-register field (bits 3-0). For FMT_RR instructions
// this field holds the second register instead.
func (code Code) X() int {
	return int(code.Word) & 0xf
}

// Words returns the instruction's flattened word sequence.
func (code Code) Words() []uint16 {
	return append([]uint16{code.Word}, code.Addrs...)
}

// String returns the assembly language representation of the instruction.
func (code Code) String() (out string) {
	info, ok := code.Op().Info()
	if !ok {
		return fmt.Sprintf("DC #%04x", code.Word)
	}

	var sb strings.Builder
	sb.WriteString(info.Name)

	adr := func(n int) string {
		if n < len(code.Addrs) {
			return fmt.Sprintf("#%04x", code.Addrs[n])
		}
		return "#????"
	}

	switch info.Format {
	case FMT_R:
		fmt.Fprintf(&sb, " GR%d", code.R())
	case FMT_RR:
		fmt.Fprintf(&sb, " GR%d, GR%d", code.R(), code.X())
	case FMT_R_ADR:
		fmt.Fprintf(&sb, " GR%d, %s", code.R(), adr(0))
		if x := code.X(); x != 0 {
			fmt.Fprintf(&sb, ", GR%d", x)
		}
	case FMT_ADR:
		fmt.Fprintf(&sb, " %s", adr(0))
		if x := code.X(); x != 0 {
			fmt.Fprintf(&sb, ", GR%d", x)
		}
	case FMT_IO:
		fmt.Fprintf(&sb, " %s, %s", adr(0), adr(1))
	}

	return sb.String()
}
