package casl

import (
	"errors"

	"github.com/IV66-6/wertyq/comet"
)

// regionBuilder merges contiguous emissions of the same kind into one
// object-module region.
type regionBuilder struct {
	regions []comet.Region
}

func (rb *regionBuilder) add(kind comet.RegionKind, offset uint16, length int) {
	if length == 0 {
		return
	}
	if n := len(rb.regions); n > 0 {
		last := &rb.regions[n-1]
		if last.Kind == kind && last.Offset+last.Length == offset {
			last.Length += uint16(length)
			return
		}
	}
	rb.regions = append(rb.regions, comet.Region{
		Kind:   kind,
		Offset: offset,
		Length: uint16(length),
	})
}

// operandAddress resolves an address-field operand to its final word.
// Pass 1 guarantees resolution; failure here is an internal error.
func (asm *Assembler) operandAddress(op Operand) (addr uint16, err error) {
	switch op.Kind {
	case OPERAND_NUMBER:
		addr = uint16(op.Num)
	case OPERAND_LABEL:
		addr, err = asm.Symbols.Resolve(op.Text)
		if err != nil {
			err = errors.Join(ErrInternal, err)
		}
	case OPERAND_LITERAL:
		addr, err = asm.pool.lookup(op)
	default:
		err = ErrInternal
	}
	return
}

// pass2 encodes every sized record into machine words, builds the
// region map and listing, and assembles the object module.
func (asm *Assembler) pass2() (obj *comet.ObjectModule, err error) {
	obj = &comet.ObjectModule{
		Words: make([]uint16, asm.lc),
	}
	asm.Listing = &Listing{Symbols: asm.Symbols.Symbols()}

	var rb regionBuilder
	emit := func(kind comet.RegionKind, addr uint16, lineno int, source string, words ...uint16) {
		for n, word := range words {
			obj.Words[int(addr)+n] = word
			entry := ListingEntry{
				Addr:   addr + uint16(n),
				Word:   word,
				LineNo: lineno,
			}
			if n == 0 {
				entry.Source = source
			}
			asm.Listing.Entries = append(asm.Listing.Entries, entry)
		}
		rb.add(kind, addr, len(words))
	}

	for _, rec := range asm.records {
		st := rec.st
		switch rec.def.Kind {
		case KIND_DS:
			emit(comet.REGION_DATA, rec.addr, st.LineNo, rec.line,
				make([]uint16, rec.size)...)

		case KIND_DC:
			words := make([]uint16, 0, rec.size)
			for _, op := range st.Operands {
				switch op.Kind {
				case OPERAND_NUMBER:
					words = append(words, uint16(op.Num))
				case OPERAND_STRING:
					for _, ch := range op.Str {
						words = append(words, uint16(ch))
					}
				case OPERAND_LABEL:
					var addr uint16
					addr, err = asm.operandAddress(op)
					if err != nil {
						return nil, err
					}
					words = append(words, addr)
				}
			}
			emit(comet.REGION_DATA, rec.addr, st.LineNo, rec.line, words...)

		default:
			var code comet.Code
			code, err = asm.encode(rec)
			if err != nil {
				return nil, err
			}
			words := append([]uint16{code.Word}, code.Addrs...)
			emit(comet.REGION_CODE, rec.addr, st.LineNo, rec.line, words...)
		}
	}

	for _, entry := range asm.pool.entries {
		emit(comet.REGION_DATA, entry.addr, entry.lineno, "="+entry.key,
			entry.words...)
	}

	if asm.entryRef != "" {
		obj.Entry, err = asm.Symbols.Resolve(asm.entryRef)
		if err != nil {
			return nil, errors.Join(ErrInternal, err)
		}
	}

	obj.Regions = rb.regions
	return
}

// encode produces the machine code for one instruction record.
func (asm *Assembler) encode(rec *record) (code comet.Code, err error) {
	st := rec.st
	def := rec.def

	switch def.Kind {
	case KIND_RADR, KIND_RADR_RR:
		r := st.Operands[0].Reg
		if rec.rr {
			code = comet.MakeCode(def.OpRR, r, st.Operands[1].Reg)
			return
		}
		var addr uint16
		addr, err = asm.operandAddress(st.Operands[1])
		if err != nil {
			return
		}
		x := 0
		if len(st.Operands) == 3 {
			x = st.Operands[2].Reg
		}
		code = comet.MakeCode(def.Op, r, x, addr)

	case KIND_ADR:
		var addr uint16
		addr, err = asm.operandAddress(st.Operands[0])
		if err != nil {
			return
		}
		x := 0
		if len(st.Operands) == 2 {
			x = st.Operands[1].Reg
		}
		code = comet.MakeCode(def.Op, 0, x, addr)

	case KIND_R:
		code = comet.MakeCode(def.Op, st.Operands[0].Reg, 0)

	case KIND_NONE:
		code = comet.MakeCode(def.Op, 0, 0)

	case KIND_IO:
		var buf, length uint16
		buf, err = asm.operandAddress(st.Operands[0])
		if err != nil {
			return
		}
		length, err = asm.operandAddress(st.Operands[1])
		if err != nil {
			return
		}
		code = comet.MakeCode(def.Op, 0, 0, buf, length)

	default:
		err = ErrInternal
	}
	return
}
