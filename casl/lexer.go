// Copyright 2025, Jason S. McMullan <jason.mcmullan@gmail.com>

package casl

import (
	"errors"
	"strconv"
	"strings"
)

// OperandKind classifies a parsed operand.
type OperandKind int

const (
	OPERAND_REGISTER = OperandKind(iota)
	OPERAND_NUMBER
	OPERAND_LABEL
	OPERAND_LITERAL
	OPERAND_STRING
)

// Operand is one comma-separated operand of a statement.
type Operand struct {
	Kind  OperandKind
	Text  string // Source text, as written.
	Reg   int    // OPERAND_REGISTER
	Num   int    // OPERAND_NUMBER, numeric OPERAND_LITERAL
	Str   string // OPERAND_STRING, string OPERAND_LITERAL (decoded)
	IsStr bool   // Literal payload is a string.
}

// Statement is one parsed source line.
type Statement struct {
	LineNo   int
	Label    string
	Mnemonic string
	Operands []Operand
}

// MAX_LABEL_LEN is the longest permitted label or equate name.
const MAX_LABEL_LEN = 16

func isLabelStart(ch byte) bool {
	return ch >= 'A' && ch <= 'Z' || ch >= 'a' && ch <= 'z' ||
		ch == '$' || ch == '%' || ch == '_' || ch == '.'
}

func isLabelRest(ch byte) bool {
	return isLabelStart(ch) || ch >= '0' && ch <= '9'
}

func validLabel(text string) bool {
	if len(text) == 0 || len(text) > MAX_LABEL_LEN {
		return false
	}
	if !isLabelStart(text[0]) {
		return false
	}
	for n := 1; n < len(text); n++ {
		if !isLabelRest(text[n]) {
			return false
		}
	}
	return true
}

// stripComment removes a trailing ';' comment, honoring quoted strings.
func stripComment(line string) string {
	quoted := false
	for n := 0; n < len(line); n++ {
		switch line[n] {
		case '\'':
			quoted = !quoted
		case ';':
			if !quoted {
				return line[:n]
			}
		}
	}
	return line
}

// splitOperands splits an operand field on commas outside of quoted
// strings.
func splitOperands(text string) (fields []string, err error) {
	quoted := false
	start := 0
	for n := 0; n < len(text); n++ {
		switch text[n] {
		case '\'':
			quoted = !quoted
		case ',':
			if !quoted {
				fields = append(fields, strings.TrimSpace(text[start:n]))
				start = n + 1
			}
		}
	}
	if quoted {
		err = ErrUnterminatedString
		return
	}
	fields = append(fields, strings.TrimSpace(text[start:]))
	return
}

// parseString decodes a quoted string. A doubled quote is an escaped
// quote character.
func parseString(text string) (decoded string, err error) {
	if len(text) < 2 || text[0] != '\'' {
		err = ErrBadOperand(text)
		return
	}

	var sb strings.Builder
	n := 1
	for n < len(text) {
		ch := text[n]
		if ch != '\'' {
			sb.WriteByte(ch)
			n++
			continue
		}
		if n+1 < len(text) && text[n+1] == '\'' {
			sb.WriteByte('\'')
			n += 2
			continue
		}
		// Closing quote. Trailing garbage is an error.
		if n != len(text)-1 {
			err = ErrBadOperand(text)
			return
		}
		decoded = sb.String()
		if decoded == "" {
			err = ErrBadOperand(text)
		}
		return
	}

	err = ErrUnterminatedString
	return
}

// parseNumber accepts decimal (with optional sign) and '#' hexadecimal
// forms. Values beyond the 64-bit range saturate so that pass 1 can
// report them as out of 16-bit range.
func parseNumber(text string) (value int, ok bool) {
	if text == "" {
		return
	}

	if text[0] == '#' {
		v, err := strconv.ParseUint(text[1:], 16, 64)
		if err != nil && !errors.Is(err, strconv.ErrRange) {
			return
		}
		if v > uint64(1)<<62 {
			v = uint64(1) << 62
		}
		return int(v), true
	}

	v, err := strconv.ParseInt(text, 10, 64)
	if err != nil && !errors.Is(err, strconv.ErrRange) {
		return
	}
	return int(v), true
}

func parseRegister(text string) (reg int, ok bool) {
	if len(text) != 3 {
		return
	}
	up := strings.ToUpper(text)
	if up[0] != 'G' || up[1] != 'R' || up[2] < '0' || up[2] > '7' {
		return
	}
	return int(up[2] - '0'), true
}

func parseOperand(text string) (op Operand, err error) {
	op.Text = text

	if text == "" {
		err = ErrBadOperand(text)
		return
	}

	if text[0] == '=' {
		op.Kind = OPERAND_LITERAL
		payload := text[1:]
		if strings.HasPrefix(payload, "'") {
			op.Str, err = parseString(payload)
			op.IsStr = true
			return
		}
		var ok bool
		op.Num, ok = parseNumber(payload)
		if !ok {
			err = ErrBadOperand(text)
		}
		return
	}

	if text[0] == '\'' {
		op.Kind = OPERAND_STRING
		op.Str, err = parseString(text)
		return
	}

	if reg, ok := parseRegister(text); ok {
		op.Kind = OPERAND_REGISTER
		op.Reg = reg
		return
	}

	if num, ok := parseNumber(text); ok {
		op.Kind = OPERAND_NUMBER
		op.Num = num
		return
	}

	if validLabel(text) {
		op.Kind = OPERAND_LABEL
		return
	}

	err = ErrBadOperand(text)
	return
}

// ParseLine tokenizes one source line into a Statement. Blank and
// comment-only lines return a nil Statement. A label must begin in the
// first column; a line whose first column is whitespace has no label.
func ParseLine(line string, lineno int) (st *Statement, err error) {
	text := stripComment(line)
	if strings.TrimSpace(text) == "" {
		return
	}

	st = &Statement{LineNo: lineno}

	if text[0] != ' ' && text[0] != '\t' {
		fields := strings.Fields(text)
		st.Label = fields[0]
		if !validLabel(st.Label) {
			err = ErrBadLabel(st.Label)
			return
		}
		text = strings.TrimPrefix(strings.TrimSpace(text), st.Label)
	}

	text = strings.TrimSpace(text)
	if text == "" {
		return
	}

	if cut := strings.IndexAny(text, " \t"); cut < 0 {
		st.Mnemonic = text
		text = ""
	} else {
		st.Mnemonic = text[:cut]
		text = strings.TrimSpace(text[cut:])
	}
	st.Mnemonic = strings.ToUpper(st.Mnemonic)

	if text == "" {
		return
	}

	fields, err := splitOperands(text)
	if err != nil {
		return
	}

	for _, field := range fields {
		var op Operand
		op, err = parseOperand(field)
		if err != nil {
			return
		}
		st.Operands = append(st.Operands, op)
	}
	return
}
