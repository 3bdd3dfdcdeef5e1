// Package comet implements the COMET virtual machine.
//
// The machine consists of eight 16-bit general registers (GR0-GR7, with GR7
// serving as the stack pointer), a program address register (PR), a 3-bit
// flag register (Overflow/Sign/Zero), and a flat word-addressed memory of
// up to 65,536 words. The Engine drives the fetch/decode/execute cycle over
// a Machine, with cooperative cancellation and a bounded step count.
//
// An ObjectModule is the loadable unit produced by the CASL assembler: an
// ordered word sequence, an entry address, and code/data regions kept for
// disassembly and listings.
package comet
