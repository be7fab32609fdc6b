package main

import (
	"fmt"
	"io"
	"os"

	"github.com/wmentha/mruby/compiler"
	"github.com/wmentha/mruby/irep"
)

// fileQueue feeds the compiler one program file at a time so that a
// multi-file invocation compiles as a single concatenated unit. Only
// the first element may be "-" (stdin); later ones are ordinary paths.
type fileQueue struct {
	names []string
	idx   int
	stdin io.Reader
}

func (q *fileQueue) Next() (io.ReadCloser, string, error) {
	if q.idx >= len(q.names) {
		return nil, "", io.EOF
	}
	name := q.names[q.idx]
	first := q.idx == 0
	q.idx++
	if first && name == "-" {
		return io.NopCloser(q.stdin), "-", nil
	}
	fp, err := os.Open(name)
	if err != nil {
		return nil, "", fmt.Errorf("cannot open program file. (%s)", name)
	}
	return fp, name, nil
}

// loadSources compiles every input into one bytecode unit. In verbose
// mode the resulting unit is disassembled to stdout.
func loadSources(args *mrbcArgs, stdout io.Writer) (*irep.Irep, error) {
	queue := &fileQueue{names: args.inputs, stdin: os.Stdin}
	opts := compiler.Options{
		NoExtOps:   args.noExtOps,
		NoOptimize: args.noOptimize,
		Debug:      args.debugInfo || args.verbose,
	}
	ir, err := compiler.Compile(queue, opts)
	if err != nil {
		return nil, err
	}
	if args.verbose {
		fmt.Fprint(stdout, ir.Disassemble())
	}
	return ir, nil
}
