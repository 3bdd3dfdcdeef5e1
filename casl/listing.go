package casl

import (
	"fmt"
	"strings"
)

// ListingEntry is one emitted word of the assembly listing. Source is
// populated on the first word of each statement.
type ListingEntry struct {
	Addr   uint16
	Word   uint16
	LineNo int
	Source string
}

// Listing is the human-readable assembly report: every emitted word
// with its address and originating source line, plus the symbol table.
type Listing struct {
	Entries []ListingEntry
	Symbols []*Symbol
}

func (l *Listing) String() string {
	var sb strings.Builder

	for _, entry := range l.Entries {
		if entry.Source != "" {
			fmt.Fprintf(&sb, "%04X %04X\t%4d\t%s\n",
				entry.Addr, entry.Word, entry.LineNo, entry.Source)
		} else {
			fmt.Fprintf(&sb, "%04X %04X\n", entry.Addr, entry.Word)
		}
	}

	if len(l.Symbols) > 0 {
		sb.WriteString("\nDEFINED SYMBOLS\n")
		for _, sym := range l.Symbols {
			fmt.Fprintf(&sb, "\tline %4d\t%-8s\t#%04X\n",
				sym.LineNo, sym.Name, sym.Addr)
		}
	}

	return sb.String()
}
