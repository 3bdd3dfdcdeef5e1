// Copyright 2025, Jason S. McMullan <jason.mcmullan@gmail.com>

// casl assembles CASL source into a COMET object module.
//
// Usage:
//
//	casl [-o object] [-a listing] [-v] [-D NAME=VALUE]... source.cas
package main

import (
	"errors"
	"flag"
	"fmt"
	"io"
	"maps"
	"os"
	"strings"

	"github.com/IV66-6/wertyq/casl"
	"github.com/IV66-6/wertyq/comet"
	"github.com/IV66-6/wertyq/internal"
)

type defineFlags map[string]string

func (df defineFlags) String() string {
	var parts []string
	for name, value := range df {
		parts = append(parts, name+"="+value)
	}
	return strings.Join(parts, ",")
}

func (df defineFlags) Set(arg string) (err error) {
	name, value, ok := strings.Cut(arg, "=")
	if !ok || name == "" {
		return fmt.Errorf("expected NAME=VALUE, got '%v'", arg)
	}
	df[name] = value
	return
}

var (
	outputFlag  = flag.String("o", "casl.obj", "object module output `file`")
	listingFlag = flag.String("a", "", "write the assembly listing to `file` ('-' for stdout)")
	verboseFlag = flag.Bool("v", false, "log each source line during assembly")
	defines     = defineFlags{}
)

func init() {
	flag.Var(defines, "D", "predefine `NAME=VALUE` as an equate (repeatable)")
}

func assemble(input io.Reader) (obj *comet.ObjectModule, listing *casl.Listing, err error) {
	asm := casl.NewAssembler()
	asm.Verbose = *verboseFlag

	for name, value := range internal.IterSeq2Concat(comet.Defines(), maps.All(defines)) {
		asm.Predefine(name, value)
	}

	obj, err = asm.Assemble(input)
	listing = asm.Listing
	return
}

func main() {
	flag.Parse()

	if flag.NArg() != 1 {
		fmt.Fprintf(os.Stderr, "usage: %s [options] source.cas\n", os.Args[0])
		flag.PrintDefaults()
		os.Exit(1)
	}

	input := os.Stdin
	if name := flag.Arg(0); name != "-" {
		file, err := os.Open(name)
		if err != nil {
			fmt.Fprintln(os.Stderr, err)
			os.Exit(1)
		}
		defer file.Close()
		input = file
	}

	obj, listing, err := assemble(input)
	if err != nil {
		var ae casl.AssemblyError
		if errors.As(err, &ae) {
			for _, diag := range ae {
				fmt.Fprintln(os.Stderr, diag)
			}
		} else {
			fmt.Fprintln(os.Stderr, err)
		}
		os.Exit(1)
	}

	if *listingFlag != "" {
		out := os.Stdout
		if *listingFlag != "-" {
			file, cerr := os.Create(*listingFlag)
			if cerr != nil {
				fmt.Fprintln(os.Stderr, cerr)
				os.Exit(1)
			}
			defer file.Close()
			out = file
		}
		fmt.Fprint(out, listing)
	}

	file, err := os.Create(*outputFlag)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	defer file.Close()

	if err = obj.Encode(file); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
