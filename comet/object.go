package comet

import (
	"encoding/binary"
	"io"
	"iter"
)

// RegionKind distinguishes code from data spans inside an object module.
// Regions are kept for disassembly and listings only; execution ignores
// them.
type RegionKind int

//go:generate go tool stringer -linecomment -type=RegionKind
const (
	REGION_CODE = RegionKind(iota) // code
	REGION_DATA                    // data
)

// Region is a (kind, offset, length) span of an object module's words.
type Region struct {
	Kind   RegionKind
	Offset uint16
	Length uint16
}

// ObjectModule is the assembler's loadable output: the ordered machine
// words, the entry address relative to the module start, and the code/data
// region map.
type ObjectModule struct {
	Entry   uint16
	Words   []uint16
	Regions []Region
}

// Codes iterates the decoded instructions of every code region, yielding
// each instruction's offset within the module.
func (obj *ObjectModule) Codes() iter.Seq2[uint16, Code] {
	return func(yield func(offset uint16, code Code) bool) {
		for _, region := range obj.Regions {
			if region.Kind != REGION_CODE {
				continue
			}
			offset := int(region.Offset)
			end := offset + int(region.Length)
			for offset < end {
				word := obj.Words[offset]
				size := 1
				if info, ok := Op(word >> 8).Info(); ok {
					size = info.Format.Words()
				}
				if offset+size > end {
					size = end - offset
				}
				code := Code{Word: word, Addrs: obj.Words[offset+1 : offset+size]}
				if !yield(uint16(offset), code) {
					return
				}
				offset += size
			}
		}
	}
}

// "CO" in the high/low bytes.
const objectMagic = uint16(0x434f)

// Encode writes the object module in its binary form: big-endian words,
// fully round-trippable through DecodeObject.
func (obj *ObjectModule) Encode(w io.Writer) (err error) {
	head := []uint16{objectMagic, obj.Entry, uint16(len(obj.Words))}
	err = binary.Write(w, binary.BigEndian, head)
	if err != nil {
		return
	}
	err = binary.Write(w, binary.BigEndian, obj.Words)
	if err != nil {
		return
	}
	err = binary.Write(w, binary.BigEndian, uint16(len(obj.Regions)))
	if err != nil {
		return
	}
	for _, region := range obj.Regions {
		err = binary.Write(w, binary.BigEndian,
			[]uint16{uint16(region.Kind), region.Offset, region.Length})
		if err != nil {
			return
		}
	}
	return
}

// DecodeObject reads an object module previously written by Encode.
func DecodeObject(r io.Reader) (obj *ObjectModule, err error) {
	var head [3]uint16
	err = binary.Read(r, binary.BigEndian, &head)
	if err != nil {
		return
	}
	if head[0] != objectMagic {
		err = ErrObjectFormat
		return
	}

	obj = &ObjectModule{
		Entry: head[1],
		Words: make([]uint16, head[2]),
	}
	err = binary.Read(r, binary.BigEndian, obj.Words)
	if err != nil {
		obj = nil
		return
	}

	var count uint16
	err = binary.Read(r, binary.BigEndian, &count)
	if err != nil {
		obj = nil
		return
	}
	for range int(count) {
		var fields [3]uint16
		err = binary.Read(r, binary.BigEndian, &fields)
		if err != nil {
			obj = nil
			return
		}
		obj.Regions = append(obj.Regions, Region{
			Kind:   RegionKind(fields[0]),
			Offset: fields[1],
			Length: fields[2],
		})
	}
	return
}
