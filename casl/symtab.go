package casl

import (
	"slices"
	"strings"
)

// Symbol is one defined label and its assigned address.
type Symbol struct {
	Name   string
	Addr   uint16
	LineNo int
}

// SymbolTable maps labels to addresses during assembly.
type SymbolTable struct {
	symbols map[string]*Symbol
}

func NewSymbolTable() *SymbolTable {
	return &SymbolTable{symbols: map[string]*Symbol{}}
}

// Define records a label at an address. Redefinition is an error.
func (tab *SymbolTable) Define(name string, addr uint16, lineno int) (err error) {
	if _, dup := tab.symbols[name]; dup {
		err = ErrDuplicateSymbol(name)
		return
	}
	tab.symbols[name] = &Symbol{Name: name, Addr: addr, LineNo: lineno}
	return
}

// Has reports whether a label has been defined.
func (tab *SymbolTable) Has(name string) bool {
	_, ok := tab.symbols[name]
	return ok
}

// Resolve looks up a label's address.
func (tab *SymbolTable) Resolve(name string) (addr uint16, err error) {
	sym, ok := tab.symbols[name]
	if !ok {
		err = ErrUndefinedSymbol(name)
		return
	}
	addr = sym.Addr
	return
}

// Symbols returns all definitions, sorted by name.
func (tab *SymbolTable) Symbols() (symbols []*Symbol) {
	for _, sym := range tab.symbols {
		symbols = append(symbols, sym)
	}
	slices.SortFunc(symbols, func(a, b *Symbol) int {
		return strings.Compare(a.Name, b.Name)
	})
	return
}
