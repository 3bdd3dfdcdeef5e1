// Package casl implements a two-pass assembler for the CASL assembly
// language, targeting the COMET machine.
//
// Pass 1 scans statements in order, assigns addresses, builds the symbol
// table, expands equates and compile-time $( ... ) expressions, and
// collects literal-pool entries. Diagnostics accumulate across the whole
// source; if any exist, assembly aborts before pass 2 and no object
// module is produced. Pass 2 encodes the machine words.
package casl
