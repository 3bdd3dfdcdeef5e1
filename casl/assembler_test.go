// Copyright 2025, Jason S. McMullan <jason.mcmullan@gmail.com>

package casl

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/IV66-6/wertyq/comet"
)

func mustAssemble(t *testing.T, source string) (*Assembler, *comet.ObjectModule) {
	t.Helper()
	asm := NewAssembler()
	obj, err := asm.Assemble(strings.NewReader(source))
	require.NoError(t, err)
	require.NotNil(t, obj)
	return asm, obj
}

func TestAssembleBasic(t *testing.T) {
	_, obj := mustAssemble(t, `
PGM	START
	LD	GR1,A
	ADDA	GR1,B
	ST	GR1,C
	HALT
A	DC	3
B	DC	4
C	DS	1
	END
`)

	assert.Equal(t, uint16(0), obj.Entry)
	assert.Equal(t, []uint16{
		0x1010, 7,
		0x2010, 8,
		0x1110, 9,
		0xff00,
		3, 4, 0,
	}, obj.Words)
	assert.Equal(t, []comet.Region{
		{Kind: comet.REGION_CODE, Offset: 0, Length: 7},
		{Kind: comet.REGION_DATA, Offset: 7, Length: 3},
	}, obj.Regions)
}

func TestAssembleRegisterForm(t *testing.T) {
	_, obj := mustAssemble(t, `
PGM	START
	LD	GR1,=3
	LD	GR2,GR1
	ADDA	GR2,GR1
	HALT
	END
`)

	assert.Equal(t, []uint16{
		0x1010, 5,
		0x1421,
		0x2421,
		0xff00,
		3,
	}, obj.Words)
}

func TestAssembleIndexed(t *testing.T) {
	_, obj := mustAssemble(t, `
PGM	START
	LD	GR1,TAB,GR2
	HALT
TAB	DC	10,20
	END
`)

	assert.Equal(t, []uint16{0x1012, 3, 0xff00, 10, 20}, obj.Words)
}

func TestAssembleLiteralPool(t *testing.T) {
	_, obj := mustAssemble(t, `
PGM	START
	LD	GR1,=5
	LD	GR2,=5
	LD	GR3,='AB'
	HALT
	END
`)

	// One pool word for both =5 references, then the string words.
	require.Len(t, obj.Words, 10)
	assert.Equal(t, uint16(7), obj.Words[1])
	assert.Equal(t, uint16(7), obj.Words[3])
	assert.Equal(t, uint16(8), obj.Words[5])
	assert.Equal(t, []uint16{5, 'A', 'B'}, obj.Words[7:])
}

func TestAssembleEntry(t *testing.T) {
	_, obj := mustAssemble(t, `
PGM	START	MAIN
	DC	0
MAIN	HALT
	END
`)

	assert.Equal(t, uint16(1), obj.Entry)
	assert.Equal(t, []uint16{0, 0xff00}, obj.Words)
	assert.Equal(t, []comet.Region{
		{Kind: comet.REGION_DATA, Offset: 0, Length: 1},
		{Kind: comet.REGION_CODE, Offset: 1, Length: 1},
	}, obj.Regions)
}

func TestAssembleForwardAndBackward(t *testing.T) {
	// Forward and backward references to the same label must resolve to
	// the same address.
	_, obj := mustAssemble(t, `
PGM	START
	JUMP	FWD
BACK	HALT
FWD	JUMP	BACK
	END
`)

	assert.Equal(t, []uint16{0x6400, 3, 0xff00, 0x6400, 2}, obj.Words)
}

func TestAssembleEquate(t *testing.T) {
	_, obj := mustAssemble(t, `
PGM	START
N	EQU	10
	LAD	GR1,N
	LAD	GR2,$(N*2+1)
	HALT
	END
`)

	assert.Equal(t, []uint16{0x1210, 10, 0x1220, 21, 0xff00}, obj.Words)
}

func TestAssemblePredefine(t *testing.T) {
	asm := NewAssembler()
	asm.Predefine("LIMIT", "7")

	obj, err := asm.Assemble(strings.NewReader(`
PGM	START
	LAD	GR1,LIMIT
	LAD	GR2,$(LIMIT+1)
	HALT
	END
`))
	require.NoError(t, err)
	assert.Equal(t, []uint16{0x1210, 7, 0x1220, 8, 0xff00}, obj.Words)
}

func TestAssembleSystemDefines(t *testing.T) {
	// Machine constants seeded through Predefine are ordinary equates,
	// usable directly as operands as well as inside $() expressions.
	asm := NewAssembler()
	for name, value := range comet.Defines() {
		asm.Predefine(name, value)
	}

	obj, err := asm.Assemble(strings.NewReader(`
PGM	START
	LAD	GR7,STACK_TOP
	LAD	GR1,$(STACK_SIZE)
	HALT
	END
`))
	require.NoError(t, err)
	assert.Equal(t, []uint16{0x1270, 0xff00, 0x1210, 0x0100, 0xff00}, obj.Words)
}

func TestAssembleDCForms(t *testing.T) {
	asm, obj := mustAssemble(t, `
PGM	START
	HALT
MSG	DC	'HI',-1,#00FF,PGM
	END
`)

	assert.Equal(t, []uint16{0xff00, 'H', 'I', 0xffff, 0x00ff, 0}, obj.Words)

	addr, err := asm.Symbols.Resolve("MSG")
	require.NoError(t, err)
	assert.Equal(t, uint16(1), addr)
}

func TestAssembleIO(t *testing.T) {
	_, obj := mustAssemble(t, `
PGM	START
	IN	BUF,LEN
	OUT	BUF,LEN
	HALT
BUF	DS	4
LEN	DC	4
	END
`)

	assert.Equal(t, []uint16{
		0x9000, 7, 11,
		0x9100, 7, 11,
		0xff00,
		0, 0, 0, 0,
		4,
	}, obj.Words)
}

func TestAssembleLineno(t *testing.T) {
	// LINENO tracks the current source line during expansion.
	_, obj := mustAssemble(t, `
PGM	START
	DC	$(LINENO)
	END
`)

	assert.Equal(t, []uint16{3}, obj.Words)
}

func TestAssembleErrors(t *testing.T) {
	for _, tc := range []struct {
		name   string
		source string
		want   error
	}{
		{"no start", "\tLD\tGR1,GR2\n\tEND\n", ErrNoStart},
		{"no end", "PGM\tSTART\n\tHALT\n", ErrNoEnd},
		{"after end", "PGM\tSTART\n\tHALT\n\tEND\n\tNOP\n", ErrAfterEnd},
		{"duplicate start", "PGM\tSTART\nQGM\tSTART\n\tEND\n", ErrDuplicateStart},
		{"start label", "\tSTART\n\tEND\n", ErrStartLabel},
		{"end label", "PGM\tSTART\nFIN\tEND\n", ErrEndLabel},
		{"gr0 index", "PGM\tSTART\n\tLD\tGR1,0,GR0\n\tEND\n", ErrIndexGR0},
		{"operand count", "PGM\tSTART\n\tPOP\n\tEND\n", ErrOperandCount},
		{"duplicate label", "PGM\tSTART\nA\tDC\t1\nA\tDC\t2\n\tEND\n", ErrDuplicateSymbol("A")},
		{"undefined label", "PGM\tSTART\n\tJUMP\tNOWHERE\n\tEND\n", ErrUndefinedSymbol("NOWHERE")},
		{"unknown mnemonic", "PGM\tSTART\n\tFROB\tGR1\n\tEND\n", ErrUnknownMnemonic("FROB")},
		{"operand range", "PGM\tSTART\n\tDC\t65536\n\tEND\n", ErrOperandRange("65536")},
		{"negative range", "PGM\tSTART\n\tDC\t-32769\n\tEND\n", ErrOperandRange("-32769")},
		{"equ label", "PGM\tSTART\n\tEQU\t1\n\tEND\n", ErrEquateLabel},
		{"bad expression", "PGM\tSTART\n\tDC\t$(nonsense!)\n\tEND\n", ErrExpression("nonsense!")},
		{"shift rr", "PGM\tSTART\n\tSLA\tGR1,GR2\n\tEND\n", ErrBadOperand("GR2")},
	} {
		t.Run(tc.name, func(t *testing.T) {
			obj, err := NewAssembler().Assemble(strings.NewReader(tc.source))
			require.Error(t, err)
			assert.Nil(t, obj)
			assert.ErrorIs(t, err, tc.want)
		})
	}
}

func TestAssembleUndefinedOnce(t *testing.T) {
	// An undefined name is reported once, at its first use.
	_, err := NewAssembler().Assemble(strings.NewReader(`
PGM	START
	JUMP	FOO
	JUMP	FOO
	END
`))
	require.Error(t, err)

	var ae AssemblyError
	require.ErrorAs(t, err, &ae)
	require.Len(t, ae, 1)
	assert.Equal(t, 3, ae[0].LineNo)
	assert.ErrorIs(t, ae[0], ErrUndefinedSymbol("FOO"))
}

func TestAssembleDiagnosticsAccumulate(t *testing.T) {
	_, err := NewAssembler().Assemble(strings.NewReader(`
PGM	START
	FROB
	POP
	JUMP	FOO
	END
`))
	require.Error(t, err)

	var ae AssemblyError
	require.ErrorAs(t, err, &ae)
	assert.Len(t, ae, 3)
}

func TestListing(t *testing.T) {
	asm, _ := mustAssemble(t, `
PGM	START
	LD	GR1,A
	HALT
A	DC	3
	END
`)

	require.NotNil(t, asm.Listing)
	text := asm.Listing.String()
	assert.Contains(t, text, "0000 1010")
	assert.Contains(t, text, "DEFINED SYMBOLS")
	assert.Contains(t, text, "A")
	assert.Contains(t, text, "#0003")
}
