// Package compiler turns source text into bytecode units. The front end
// is a streaming lexer over a SourceQueue (so several input files can be
// compiled as one continuous unit), a recursive descent parser, and a
// register-based code generator.
package compiler

import "github.com/wmentha/mruby/irep"

// Compile reads every stream the queue yields and compiles the whole
// sequence into a single bytecode unit. Diagnostics carry file:line
// positions; an error from the queue itself (a chained input that could
// not be opened) is returned as-is.
func Compile(queue SourceQueue, opts Options) (*irep.Irep, error) {
	lexer := NewLexer(queue)
	defer lexer.Close()

	parser := NewParser(lexer)
	prog, err := parser.ParseProgram()
	if err != nil {
		return nil, err
	}

	gen := NewCodeGen(opts, lexer.FirstFile())
	return gen.Generate(prog)
}

// CompileString compiles in-memory source text under the given
// diagnostic name.
func CompileString(name, src string, opts Options) (*irep.Irep, error) {
	return Compile(NewStringQueue(name, src), opts)
}
