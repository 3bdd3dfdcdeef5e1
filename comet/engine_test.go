// Copyright 2025, Jason S. McMullan <jason.mcmullan@gmail.com>

package comet_test

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/IV66-6/wertyq/casl"
	"github.com/IV66-6/wertyq/comet"
	"github.com/IV66-6/wertyq/device"
)

func assemble(t *testing.T, source string) *comet.ObjectModule {
	t.Helper()
	obj, err := casl.NewAssembler().Assemble(strings.NewReader(source))
	require.NoError(t, err)
	return obj
}

func load(t *testing.T, source string, dev device.Device, opts comet.Options) (*comet.Machine, *comet.Engine) {
	t.Helper()
	m := comet.NewMachine()
	require.NoError(t, m.Load(assemble(t, source), 0))
	return m, comet.NewEngine(m, dev, opts)
}

func run(t *testing.T, source string) (*comet.Machine, *comet.Engine) {
	t.Helper()
	m, e := load(t, source, nil, comet.Options{})
	require.NoError(t, e.Run(context.Background()))
	require.Equal(t, comet.STATE_HALTED, e.State())
	return m, e
}

func TestRunAdd(t *testing.T) {
	m, e := run(t, `
PGM	START
	LD	GR1,A
	ADDA	GR1,B
	HALT
A	DC	3
B	DC	4
	END
`)

	assert.Equal(t, uint16(7), m.GR[1])
	assert.Equal(t, 3, e.Steps())
}

func TestRunStoreResult(t *testing.T) {
	m, _ := run(t, `
PGM	START
	LD	GR1,=3
	LD	GR2,=4
	ADDA	GR1,GR2
	ST	GR1,RES
	HALT
RES	DS	1
	END
`)

	assert.Equal(t, uint16(7), m.Memory[8])
	assert.Zero(t, m.FR&comet.FR_ZERO)
}

func TestRunSignedOverflow(t *testing.T) {
	m, _ := run(t, `
PGM	START
	LD	GR1,=32767
	ADDA	GR1,=1
	HALT
	END
`)

	assert.Equal(t, uint16(0x8000), m.GR[1])
	assert.Equal(t, comet.FR_OVER|comet.FR_SIGN, m.FR)
}

func TestRunUnsignedWrap(t *testing.T) {
	// Unsigned arithmetic discards the carry and never sets Overflow.
	m, _ := run(t, `
PGM	START
	LD	GR1,=#FFFF
	ADDL	GR1,=1
	HALT
	END
`)

	assert.Zero(t, m.GR[1])
	assert.Equal(t, comet.FR_ZERO, m.FR)
}

func TestRunCompare(t *testing.T) {
	m, _ := run(t, `
PGM	START
	LD	GR1,=1
	CPA	GR1,=2
	HALT
	END
`)

	// Compare sets flags without touching the register.
	assert.Equal(t, uint16(1), m.GR[1])
	assert.Equal(t, comet.FR_SIGN, m.FR)
}

func TestRunCompareLogical(t *testing.T) {
	// #8000 > 1 unsigned, but negative signed. CPL must use the
	// unsigned ordering: greater-than leaves every flag clear.
	m, _ := run(t, `
PGM	START
	LD	GR1,=#8000
	CPL	GR1,=1
	HALT
	END
`)

	assert.Zero(t, m.FR)
}

func TestRunShifts(t *testing.T) {
	m, _ := run(t, `
PGM	START
	LD	GR1,=#8001
	SLA	GR1,1
	LD	GR2,=#8000
	SRA	GR2,16
	LD	GR3,=#FFFF
	SRL	GR3,16
	LD	GR4,=1
	SLL	GR4,4
	HALT
	END
`)

	assert.Equal(t, uint16(0x8002), m.GR[1], "SLA preserves the sign bit")
	assert.Equal(t, uint16(0xffff), m.GR[2], "SRA past the width fills with sign")
	assert.Zero(t, m.GR[3], "SRL past the width clears")
	assert.Equal(t, uint16(16), m.GR[4])
}

func TestRunIndexed(t *testing.T) {
	m, _ := run(t, `
PGM	START
	LAD	GR2,1
	LD	GR1,TAB,GR2
	HALT
TAB	DC	10,20
	END
`)

	assert.Equal(t, uint16(20), m.GR[1])
}

func TestRunConditionalJumps(t *testing.T) {
	// Count down from 3; the loop body runs exactly three times.
	m, _ := run(t, `
PGM	START
	LD	GR1,=3
	LD	GR2,=0
LOOP	JZE	DONE
	ADDA	GR2,=10
	SUBA	GR1,=1
	JUMP	LOOP
DONE	HALT
	END
`)

	assert.Zero(t, m.GR[1])
	assert.Equal(t, uint16(30), m.GR[2])
}

func TestRunStateString(t *testing.T) {
	assert.Equal(t, "ready", comet.STATE_READY.String())
	assert.Equal(t, "running", comet.STATE_RUNNING.String())
	assert.Equal(t, "halted", comet.STATE_HALTED.String())
	assert.Equal(t, "faulted", comet.STATE_FAULTED.String())
}

func TestRunJumpConditions(t *testing.T) {
	// Each case sets the flags, then jumps to YES when the condition
	// holds. GR2 records which path executed.
	for _, tc := range []struct {
		name  string
		setup string
		jump  string
		taken bool
	}{
		{"JMI negative", "\tLAD\tGR1,1\n\tCPA\tGR1,=2\n", "JMI", true},
		{"JMI positive", "\tLAD\tGR1,2\n\tCPA\tGR1,=1\n", "JMI", false},
		{"JNZ nonzero", "\tLAD\tGR1,2\n\tCPA\tGR1,=1\n", "JNZ", true},
		{"JNZ zero", "\tLAD\tGR1,1\n\tCPA\tGR1,=1\n", "JNZ", false},
		{"JPL positive", "\tLAD\tGR1,2\n\tCPA\tGR1,=1\n", "JPL", true},
		{"JPL zero", "\tLAD\tGR1,1\n\tCPA\tGR1,=1\n", "JPL", false},
		{"JPL negative", "\tLAD\tGR1,1\n\tCPA\tGR1,=2\n", "JPL", false},
		{"JOV overflow", "\tLD\tGR1,=32767\n\tADDA\tGR1,=1\n", "JOV", true},
		{"JOV clean", "\tLAD\tGR1,2\n\tCPA\tGR1,=1\n", "JOV", false},
	} {
		t.Run(tc.name, func(t *testing.T) {
			m, _ := run(t, "PGM\tSTART\n"+
				tc.setup+
				"\t"+tc.jump+"\tYES\n"+
				"\tLAD\tGR2,1\n"+
				"\tHALT\n"+
				"YES\tLAD\tGR2,2\n"+
				"\tHALT\n"+
				"\tEND\n")

			want := uint16(1)
			if tc.taken {
				want = 2
			}
			assert.Equal(t, want, m.GR[2])
		})
	}
}

func TestRunCallRet(t *testing.T) {
	m, e := run(t, `
PGM	START
	CALL	SUB
	HALT
SUB	LAD	GR1,7
	RET
	END
`)

	assert.Equal(t, uint16(7), m.GR[1])
	assert.Equal(t, m.StackTop, m.GR[comet.SP], "stack balanced after return")
	assert.Equal(t, comet.STATE_HALTED, e.State())
}

func TestRunPushPop(t *testing.T) {
	// PUSH stores the effective address, not the memory contents.
	m, _ := run(t, `
PGM	START
	LAD	GR1,5
	PUSH	10,GR1
	POP	GR2
	HALT
	END
`)

	assert.Equal(t, uint16(15), m.GR[2])
	assert.Equal(t, m.StackTop, m.GR[comet.SP])
}

func TestRunStackFault(t *testing.T) {
	_, e := load(t, `
PGM	START
	RET
	END
`, nil, comet.Options{})

	err := e.Run(context.Background())
	require.Error(t, err)

	var fault *comet.ErrStackFault
	require.ErrorAs(t, err, &fault)
	assert.True(t, fault.Underflow)
	assert.Equal(t, comet.STATE_FAULTED, e.State())
	assert.Equal(t, err, e.Err())
}

func TestRunIllegalInstruction(t *testing.T) {
	_, e := load(t, `
PGM	START
	DC	#0F00
	END
`, nil, comet.Options{})

	err := e.Run(context.Background())
	require.Error(t, err)

	var illegal *comet.ErrIllegalInstruction
	require.ErrorAs(t, err, &illegal)
	assert.Equal(t, uint16(0x0f00), illegal.Word)
	assert.Equal(t, comet.STATE_FAULTED, e.State())
}

func TestRunStepLimit(t *testing.T) {
	_, e := load(t, `
PGM	START
LOOP	JUMP	LOOP
	END
`, nil, comet.Options{StepLimit: 64})

	err := e.Run(context.Background())
	require.Error(t, err)

	var limit comet.ErrStepLimit
	require.ErrorAs(t, err, &limit)
	assert.Equal(t, 64, int(limit))
}

func TestRunAborted(t *testing.T) {
	_, e := load(t, `
PGM	START
LOOP	JUMP	LOOP
	END
`, nil, comet.Options{})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := e.Run(ctx)
	assert.ErrorIs(t, err, comet.ErrAborted)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestRunInOut(t *testing.T) {
	script := &device.Script{Lines: []string{"42"}}
	_, e := load(t, `
PGM	START
	IN	BUF,LEN
	OUT	BUF,LEN
	HALT
BUF	DS	4
LEN	DC	4
	END
`, script, comet.Options{})

	require.NoError(t, e.Run(context.Background()))

	// The input line is space-padded to the declared length.
	assert.Equal(t, []string{"42  "}, script.Written)
}

func TestRunInTruncates(t *testing.T) {
	script := &device.Script{Lines: []string{"ABCDEFGH"}}
	_, e := load(t, `
PGM	START
	IN	BUF,LEN
	OUT	BUF,LEN
	HALT
BUF	DS	4
LEN	DC	4
	END
`, script, comet.Options{})

	require.NoError(t, e.Run(context.Background()))
	assert.Equal(t, []string{"ABCD"}, script.Written)
}

func TestRunInEndOfInput(t *testing.T) {
	_, e := load(t, `
PGM	START
	IN	BUF,LEN
	HALT
BUF	DS	4
LEN	DC	4
	END
`, &device.Script{}, comet.Options{})

	err := e.Run(context.Background())
	assert.ErrorIs(t, err, device.ErrEndOfInput)
	assert.Equal(t, comet.STATE_FAULTED, e.State())
}

func TestRunNoDevice(t *testing.T) {
	_, e := load(t, `
PGM	START
	OUT	BUF,LEN
	HALT
BUF	DS	1
LEN	DC	1
	END
`, nil, comet.Options{})

	err := e.Run(context.Background())
	assert.ErrorIs(t, err, comet.ErrNoDevice)
}

func TestRunLoadNeverSetsFlags(t *testing.T) {
	m, _ := run(t, `
PGM	START
	LD	GR1,=1
	SUBA	GR1,=1
	LD	GR2,=5
	HALT
	END
`)

	// LD leaves the Zero flag from the preceding SUBA untouched.
	assert.Equal(t, uint16(5), m.GR[2])
	assert.Equal(t, comet.FR_ZERO, m.FR)
}
