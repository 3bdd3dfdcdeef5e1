// Copyright 2025, Jason S. McMullan <jason.mcmullan@gmail.com>

// comet loads and runs a COMET object module.
//
// Usage:
//
//	comet [-l base] [-s limit] [-t] [-i input] [-o output] casl.obj
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"

	"github.com/IV66-6/wertyq/comet"
	"github.com/IV66-6/wertyq/device"
)

var (
	baseFlag   = flag.Uint("l", 0, "load `address` for the object module")
	limitFlag  = flag.Int("s", 0, "instruction step `limit` (0 selects the default)")
	traceFlag  = flag.Bool("t", false, "log each instruction before executing it")
	inputFlag  = flag.String("i", "", "IN instruction input `file` (default stdin)")
	outputFlag = flag.String("o", "", "OUT instruction output `file` (default stdout)")
)

func main() {
	flag.Parse()

	if flag.NArg() != 1 {
		fmt.Fprintf(os.Stderr, "usage: %s [options] casl.obj\n", os.Args[0])
		flag.PrintDefaults()
		os.Exit(2)
	}

	file, err := os.Open(flag.Arg(0))
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(2)
	}
	obj, err := comet.DecodeObject(file)
	file.Close()
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(2)
	}

	console := &device.Console{Input: os.Stdin, Output: os.Stdout}
	if *inputFlag != "" {
		in, oerr := os.Open(*inputFlag)
		if oerr != nil {
			fmt.Fprintln(os.Stderr, oerr)
			os.Exit(2)
		}
		defer in.Close()
		console.Input = in
	}
	if *outputFlag != "" {
		out, cerr := os.Create(*outputFlag)
		if cerr != nil {
			fmt.Fprintln(os.Stderr, cerr)
			os.Exit(2)
		}
		defer out.Close()
		console.Output = out
	}

	machine := comet.NewMachine()
	if err = machine.Load(obj, uint16(*baseFlag)); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(2)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	engine := comet.NewEngine(machine, console, comet.Options{
		StepLimit: *limitFlag,
		Trace:     *traceFlag,
	})

	if err = engine.Run(ctx); err != nil {
		fmt.Fprintln(os.Stderr, err)
		fmt.Fprint(os.Stderr, machine)
		os.Exit(2)
	}

	fmt.Fprintf(os.Stderr, "halted after %d steps\n", engine.Steps())
	fmt.Fprint(os.Stderr, machine)
}
