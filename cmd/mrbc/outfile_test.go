package main

import "testing"

func TestOutfileName(t *testing.T) {
	tests := []struct {
		infile string
		ext    string
		want   string
	}{
		{"hello.rb", ".mrb", "hello.mrb"},
		{"hello.rb", ".c", "hello.c"},
		{"out.c", ".h", "out.h"},
		{"a.b.c", ".mrb", "a.b.mrb"},
		{"path/to/prog.rb", ".mrb", "path/to/prog.mrb"},
		// No dot anywhere: the name comes back untouched, whatever
		// extension was asked for.
		{"Rakefile", ".mrb", "Rakefile"},
		{"Rakefile", ".c", "Rakefile"},
		// The last dot is found anywhere in the path, directories
		// included.
		{"dir.x/prog", ".mrb", "dir.mrb"},
		// An empty extension copies the name, dot and all.
		{"hello.rb", "", "hello.rb"},
		{"Rakefile", "", "Rakefile"},
	}
	for _, tt := range tests {
		if got := outfileName(tt.infile, tt.ext); got != tt.want {
			t.Errorf("outfileName(%q, %q) = %q, want %q", tt.infile, tt.ext, got, tt.want)
		}
	}
}
