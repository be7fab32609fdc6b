package main

import (
	"fmt"
	"io"
)

const version = "1.0.0"

func showVersion(w io.Writer) {
	fmt.Fprintf(w, "mruby bytecode compiler %s\n", version)
}

func showCopyright(w io.Writer) {
	fmt.Fprintln(w, "mrbc - Copyright (c) 2012-2026 mruby developers")
}
