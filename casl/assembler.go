// Copyright 2025, Jason S. McMullan <jason.mcmullan@gmail.com>

package casl

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"log"
	"maps"
	"regexp"
	"strconv"

	"go.starlark.net/starlark"
	"go.starlark.net/syntax"

	"github.com/IV66-6/wertyq/comet"
)

type instKind int

const (
	KIND_RADR = instKind(iota) // r,adr[,x]
	KIND_RADR_RR               // r,adr[,x] or r1,r2
	KIND_ADR                   // adr[,x]
	KIND_R                     // r
	KIND_NONE                  // no operands
	KIND_IO                    // buf,len
	KIND_START
	KIND_END
	KIND_DS
	KIND_DC
	KIND_EQU
)

type instDef struct {
	Kind instKind
	Op   comet.Op // register-with-memory form
	OpRR comet.Op // register-register form, KIND_RADR_RR only
}

var caslTable = map[string]instDef{
	"NOP":  {Kind: KIND_NONE, Op: comet.OP_NOP},
	"LD":   {Kind: KIND_RADR_RR, Op: comet.OP_LD, OpRR: comet.OP_LD_R},
	"ST":   {Kind: KIND_RADR, Op: comet.OP_ST},
	"LAD":  {Kind: KIND_RADR, Op: comet.OP_LAD},
	"ADDA": {Kind: KIND_RADR_RR, Op: comet.OP_ADDA, OpRR: comet.OP_ADDA_R},
	"SUBA": {Kind: KIND_RADR_RR, Op: comet.OP_SUBA, OpRR: comet.OP_SUBA_R},
	"ADDL": {Kind: KIND_RADR_RR, Op: comet.OP_ADDL, OpRR: comet.OP_ADDL_R},
	"SUBL": {Kind: KIND_RADR_RR, Op: comet.OP_SUBL, OpRR: comet.OP_SUBL_R},
	"AND":  {Kind: KIND_RADR_RR, Op: comet.OP_AND, OpRR: comet.OP_AND_R},
	"OR":   {Kind: KIND_RADR_RR, Op: comet.OP_OR, OpRR: comet.OP_OR_R},
	"XOR":  {Kind: KIND_RADR_RR, Op: comet.OP_XOR, OpRR: comet.OP_XOR_R},
	"CPA":  {Kind: KIND_RADR_RR, Op: comet.OP_CPA, OpRR: comet.OP_CPA_R},
	"CPL":  {Kind: KIND_RADR_RR, Op: comet.OP_CPL, OpRR: comet.OP_CPL_R},
	"SLA":  {Kind: KIND_RADR, Op: comet.OP_SLA},
	"SRA":  {Kind: KIND_RADR, Op: comet.OP_SRA},
	"SLL":  {Kind: KIND_RADR, Op: comet.OP_SLL},
	"SRL":  {Kind: KIND_RADR, Op: comet.OP_SRL},
	"JMI":  {Kind: KIND_ADR, Op: comet.OP_JMI},
	"JNZ":  {Kind: KIND_ADR, Op: comet.OP_JNZ},
	"JZE":  {Kind: KIND_ADR, Op: comet.OP_JZE},
	"JUMP": {Kind: KIND_ADR, Op: comet.OP_JUMP},
	"JPL":  {Kind: KIND_ADR, Op: comet.OP_JPL},
	"JOV":  {Kind: KIND_ADR, Op: comet.OP_JOV},
	"PUSH": {Kind: KIND_ADR, Op: comet.OP_PUSH},
	"POP":  {Kind: KIND_R, Op: comet.OP_POP},
	"CALL": {Kind: KIND_ADR, Op: comet.OP_CALL},
	"RET":  {Kind: KIND_NONE, Op: comet.OP_RET},
	"HALT": {Kind: KIND_NONE, Op: comet.OP_HALT},
	"IN":   {Kind: KIND_IO, Op: comet.OP_IN},
	"OUT":  {Kind: KIND_IO, Op: comet.OP_OUT},

	"START": {Kind: KIND_START},
	"END":   {Kind: KIND_END},
	"DS":    {Kind: KIND_DS},
	"DC":    {Kind: KIND_DC},
	"EQU":   {Kind: KIND_EQU},
}

var sysEquate = map[string]string{
	"LINENO": "0",
}

// record carries a sized pass-1 statement into pass 2.
type record struct {
	st   *Statement
	line string
	addr uint16
	size int
	def  instDef
	rr   bool // register-register form selected
}

// Assembler translates CASL source into a COMET object module.
type Assembler struct {
	Verbose bool
	Symbols *SymbolTable
	Equate  map[string]string
	Listing *Listing

	predefine map[string]string
	diags     []*Diagnostic
	records   []*record
	pool      literalPool
	refs      map[string]int // first referencing line per name
	refOrder  []string
	entryRef  string
	started   bool
	noStart   bool
	ended     bool
	lc        int
}

func NewAssembler() *Assembler {
	return &Assembler{predefine: map[string]string{}}
}

// Predefine sets an equate visible to the source before any EQU
// statement, as if defined on line 0.
func (asm *Assembler) Predefine(name string, value string) {
	asm.predefine[name] = value
}

var exprRegexp = regexp.MustCompile(`\$\(([^)]*)\)`)

// parenEval evaluates a compile-time expression with all current
// equates in scope.
func (asm *Assembler) parenEval(expr string) (value int64, err error) {
	predecls := starlark.StringDict{}
	for key, str := range asm.Equate {
		v, verr := strconv.ParseInt(str, 0, 64)
		if verr != nil {
			continue
		}
		predecls[key] = starlark.MakeInt64(v)
	}

	thread := starlark.Thread{}
	opts := syntax.FileOptions{}
	program := "rc = ( " + expr + " )\n"

	globals, gerr := starlark.ExecFileOptions(&opts, &thread, "expr", program, predecls)
	if gerr != nil {
		err = ErrExpression(expr)
		return
	}

	rc, ok := globals["rc"].(starlark.Int)
	if !ok {
		err = ErrExpression(expr)
		return
	}
	value, ok = rc.Int64()
	if !ok {
		err = ErrExpression(expr)
	}
	return
}

// expand replaces every $( ... ) region of a line with its evaluated
// value.
func (asm *Assembler) expand(line string) (out string, err error) {
	out = exprRegexp.ReplaceAllStringFunc(line, func(match string) string {
		expr := match[2 : len(match)-1]
		value, eerr := asm.parenEval(expr)
		if eerr != nil {
			err = errors.Join(err, eerr)
			return match
		}
		return strconv.FormatInt(value, 10)
	})
	return
}

func (asm *Assembler) diag(lineno int, line string, err error) {
	asm.diags = append(asm.diags, &Diagnostic{LineNo: lineno, Line: line, Err: err})
}

// reference records a use of a name so that pass 1 can report each
// undefined name exactly once, at its first use.
func (asm *Assembler) reference(name string, lineno int) {
	if _, seen := asm.refs[name]; seen {
		return
	}
	asm.refs[name] = lineno
	asm.refOrder = append(asm.refOrder, name)
}

func inRange(value int) bool {
	return value >= -32768 && value <= 65535
}

// Assemble runs both passes over the source. On any diagnostic the
// returned error is an AssemblyError and no module is emitted.
func (asm *Assembler) Assemble(input io.Reader) (obj *comet.ObjectModule, err error) {
	asm.Symbols = NewSymbolTable()
	asm.Equate = maps.Clone(sysEquate)
	maps.Copy(asm.Equate, asm.predefine)
	asm.diags = nil
	asm.records = nil
	asm.pool = literalPool{}
	asm.refs = map[string]int{}
	asm.refOrder = nil
	asm.entryRef = ""
	asm.started = false
	asm.noStart = false
	asm.ended = false
	asm.lc = 0

	lineno := 0
	scanner := bufio.NewScanner(input)
	for scanner.Scan() {
		lineno++
		line := scanner.Text()

		if asm.Verbose {
			log.Printf("%4d: %s", lineno, line)
		}

		asm.Equate["LINENO"] = strconv.Itoa(lineno)

		line, eerr := asm.expand(line)
		if eerr != nil {
			asm.diag(lineno, scanner.Text(), eerr)
			continue
		}

		st, perr := ParseLine(line, lineno)
		if perr != nil {
			asm.diag(lineno, line, perr)
			continue
		}
		if st == nil {
			continue
		}

		asm.pass1(st, line)
	}
	if serr := scanner.Err(); serr != nil {
		return nil, serr
	}

	if (asm.started || asm.noStart) && !asm.ended {
		asm.diag(lineno, "", ErrNoEnd)
	}

	for _, name := range asm.refOrder {
		if !asm.Symbols.Has(name) {
			asm.diag(asm.refs[name], "", ErrUndefinedSymbol(name))
		}
	}

	if len(asm.diags) > 0 {
		return nil, AssemblyError(asm.diags)
	}

	return asm.pass2()
}

// substEquates rewrites label operands that name an equate into numeric
// operands.
func (asm *Assembler) substEquates(st *Statement) {
	for n, op := range st.Operands {
		if op.Kind != OPERAND_LABEL {
			continue
		}
		text, ok := asm.Equate[op.Text]
		if !ok {
			continue
		}
		value, verr := strconv.ParseInt(text, 0, 64)
		if verr != nil {
			continue
		}
		st.Operands[n] = Operand{Kind: OPERAND_NUMBER, Text: text, Num: int(value)}
	}
}

func (asm *Assembler) pass1(st *Statement, line string) {
	diag := func(err error) {
		asm.diag(st.LineNo, line, err)
	}

	if asm.ended {
		diag(ErrAfterEnd)
		return
	}

	def, known := caslTable[st.Mnemonic]

	// An equate name is not an address label; everything else with a
	// label defines it at the current location.
	if st.Label != "" && (!known || def.Kind != KIND_EQU) {
		if derr := asm.Symbols.Define(st.Label, uint16(asm.lc), st.LineNo); derr != nil {
			diag(derr)
		}
	}

	if st.Mnemonic == "" {
		return
	}
	if !known {
		diag(ErrUnknownMnemonic(st.Mnemonic))
		return
	}

	if !asm.started && !asm.noStart && def.Kind != KIND_START {
		diag(ErrNoStart)
		asm.noStart = true
	}

	asm.substEquates(st)

	size := 0
	rr := false

	switch def.Kind {
	case KIND_START:
		if asm.started {
			diag(ErrDuplicateStart)
			return
		}
		asm.started = true
		if st.Label == "" {
			diag(ErrStartLabel)
		}
		switch len(st.Operands) {
		case 0:
		case 1:
			op := st.Operands[0]
			if op.Kind != OPERAND_LABEL {
				diag(ErrBadOperand(op.Text))
				return
			}
			asm.entryRef = op.Text
			asm.reference(op.Text, st.LineNo)
		default:
			diag(ErrOperandCount)
		}
		return

	case KIND_END:
		if st.Label != "" {
			diag(ErrEndLabel)
		}
		if len(st.Operands) != 0 {
			diag(ErrOperandCount)
		}
		asm.ended = true
		asm.layoutPool()
		return

	case KIND_EQU:
		if st.Label == "" {
			diag(ErrEquateLabel)
			return
		}
		if len(st.Operands) != 1 {
			diag(ErrOperandCount)
			return
		}
		op := st.Operands[0]
		if op.Kind != OPERAND_NUMBER {
			diag(ErrBadOperand(op.Text))
			return
		}
		if !inRange(op.Num) {
			diag(ErrOperandRange(op.Text))
			return
		}
		if _, dup := asm.Equate[st.Label]; dup {
			diag(ErrDuplicateEquate(st.Label))
			return
		}
		asm.Equate[st.Label] = strconv.Itoa(op.Num)
		return

	case KIND_DS:
		if len(st.Operands) != 1 {
			diag(ErrOperandCount)
			return
		}
		op := st.Operands[0]
		if op.Kind != OPERAND_NUMBER || op.Num < 0 {
			diag(ErrBadOperand(op.Text))
			return
		}
		if op.Num > comet.MEMORY_SIZE {
			diag(ErrOperandRange(op.Text))
			return
		}
		size = op.Num

	case KIND_DC:
		if len(st.Operands) == 0 {
			diag(ErrOperandCount)
			return
		}
		for _, op := range st.Operands {
			switch op.Kind {
			case OPERAND_NUMBER:
				if !inRange(op.Num) {
					diag(ErrOperandRange(op.Text))
					return
				}
				size++
			case OPERAND_STRING:
				size += len(op.Str)
			case OPERAND_LABEL:
				asm.reference(op.Text, st.LineNo)
				size++
			default:
				diag(ErrBadOperand(op.Text))
				return
			}
		}

	case KIND_RADR, KIND_RADR_RR:
		if len(st.Operands) < 2 || len(st.Operands) > 3 {
			diag(ErrOperandCount)
			return
		}
		if st.Operands[0].Kind != OPERAND_REGISTER {
			diag(ErrBadOperand(st.Operands[0].Text))
			return
		}
		if st.Operands[1].Kind == OPERAND_REGISTER {
			if def.Kind != KIND_RADR_RR {
				diag(ErrBadOperand(st.Operands[1].Text))
				return
			}
			if len(st.Operands) != 2 {
				diag(ErrOperandCount)
				return
			}
			rr = true
			size = 1
			break
		}
		if !asm.checkAdr(st.Operands[1], st.LineNo, diag) {
			return
		}
		if len(st.Operands) == 3 && !asm.checkIndex(st.Operands[2], diag) {
			return
		}
		size = 2

	case KIND_ADR:
		if len(st.Operands) < 1 || len(st.Operands) > 2 {
			diag(ErrOperandCount)
			return
		}
		if !asm.checkAdr(st.Operands[0], st.LineNo, diag) {
			return
		}
		if len(st.Operands) == 2 && !asm.checkIndex(st.Operands[1], diag) {
			return
		}
		size = 2

	case KIND_R:
		if len(st.Operands) != 1 {
			diag(ErrOperandCount)
			return
		}
		if st.Operands[0].Kind != OPERAND_REGISTER {
			diag(ErrBadOperand(st.Operands[0].Text))
			return
		}
		size = 1

	case KIND_NONE:
		if len(st.Operands) != 0 {
			diag(ErrOperandCount)
			return
		}
		size = 1

	case KIND_IO:
		if len(st.Operands) != 2 {
			diag(ErrOperandCount)
			return
		}
		for _, op := range st.Operands {
			if !asm.checkAdr(op, st.LineNo, diag) {
				return
			}
			if op.Kind == OPERAND_LITERAL {
				diag(ErrBadOperand(op.Text))
				return
			}
		}
		size = 3
	}

	asm.records = append(asm.records, &record{
		st:   st,
		line: line,
		addr: uint16(asm.lc),
		size: size,
		def:  def,
		rr:   rr,
	})
	asm.lc += size
	if asm.lc > comet.MEMORY_SIZE {
		diag(ErrProgramTooLarge)
	}
}

// checkAdr validates an address-field operand, recording references and
// literal-pool entries as a side effect.
func (asm *Assembler) checkAdr(op Operand, lineno int, diag func(error)) bool {
	switch op.Kind {
	case OPERAND_NUMBER:
		if !inRange(op.Num) {
			diag(ErrOperandRange(op.Text))
			return false
		}
	case OPERAND_LABEL:
		asm.reference(op.Text, lineno)
	case OPERAND_LITERAL:
		if !op.IsStr && !inRange(op.Num) {
			diag(ErrOperandRange(op.Text))
			return false
		}
		asm.pool.add(op, lineno)
	default:
		diag(ErrBadOperand(op.Text))
		return false
	}
	return true
}

func (asm *Assembler) checkIndex(op Operand, diag func(error)) bool {
	if op.Kind != OPERAND_REGISTER {
		diag(ErrBadOperand(op.Text))
		return false
	}
	if op.Reg == 0 {
		diag(ErrIndexGR0)
		return false
	}
	return true
}

// layoutPool assigns literal-pool addresses at the current location
// counter, in first-occurrence order.
func (asm *Assembler) layoutPool() {
	for _, entry := range asm.pool.entries {
		entry.addr = uint16(asm.lc)
		asm.lc += len(entry.words)
	}
	if asm.lc > comet.MEMORY_SIZE {
		asm.diag(0, "", ErrProgramTooLarge)
	}
}

// literalPool collects deduplicated '=' constants for placement after
// END.
type literalEntry struct {
	key    string
	words  []uint16
	addr   uint16
	lineno int
}

type literalPool struct {
	entries []*literalEntry
	index   map[string]*literalEntry
}

func literalKey(op Operand) string {
	if op.IsStr {
		return "'" + op.Str
	}
	return fmt.Sprintf("%d", uint16(op.Num))
}

func (lp *literalPool) add(op Operand, lineno int) {
	if lp.index == nil {
		lp.index = map[string]*literalEntry{}
	}
	key := literalKey(op)
	if _, dup := lp.index[key]; dup {
		return
	}

	var words []uint16
	if op.IsStr {
		for _, ch := range op.Str {
			words = append(words, uint16(ch))
		}
	} else {
		words = []uint16{uint16(op.Num)}
	}

	entry := &literalEntry{key: key, words: words, lineno: lineno}
	lp.index[key] = entry
	lp.entries = append(lp.entries, entry)
}

func (lp *literalPool) lookup(op Operand) (addr uint16, err error) {
	entry, ok := lp.index[literalKey(op)]
	if !ok {
		err = ErrInternal
		return
	}
	addr = entry.addr
	return
}
