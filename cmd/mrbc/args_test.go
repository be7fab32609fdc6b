package main

import (
	"bytes"
	"errors"
	"strings"
	"testing"
)

func parseTest(t *testing.T, argv ...string) (*mrbcArgs, *bytes.Buffer, error) {
	t.Helper()
	args := newArgs("mrbc", nil)
	var stdout bytes.Buffer
	err := parseArgs(append([]string{"mrbc"}, argv...), args, &stdout)
	return args, &stdout, err
}

func TestParseArgsOutfile(t *testing.T) {
	// Concatenated and separated forms are equivalent.
	for _, argv := range [][]string{
		{"-oout.mrb", "a.rb"},
		{"-o", "out.mrb", "a.rb"},
	} {
		args, _, err := parseTest(t, argv...)
		if err != nil {
			t.Fatalf("%v: %v", argv, err)
		}
		if args.outfile != "out.mrb" {
			t.Errorf("%v: outfile = %q", argv, args.outfile)
		}
		if len(args.inputs) != 1 || args.inputs[0] != "a.rb" {
			t.Errorf("%v: inputs = %v", argv, args.inputs)
		}
	}
}

func TestParseArgsDuplicateOutfile(t *testing.T) {
	_, _, err := parseTest(t, "-oa", "-ob", "x.rb")
	if err == nil || !strings.Contains(err.Error(), "already specified") {
		t.Errorf("got %v, want duplicate-outfile error", err)
	}
}

func TestParseArgsMissingValues(t *testing.T) {
	tests := []struct {
		argv []string
		want string
	}{
		{[]string{"-o"}, "output file name is not specified"},
		{[]string{"-B"}, "function name is not specified"},
	}
	for _, tt := range tests {
		_, _, err := parseTest(t, tt.argv...)
		if err == nil || !strings.Contains(err.Error(), tt.want) {
			t.Errorf("%v: got %v, want %q", tt.argv, err, tt.want)
		}
	}
}

func TestParseArgsSymbolAndFlags(t *testing.T) {
	args, _, err := parseTest(t, "-Bapp_code", "-S", "-H", "-8", "-s", "-g", "-c", "a.rb")
	if err != nil {
		t.Fatal(err)
	}
	if args.symbol != "app_code" {
		t.Errorf("symbol = %q", args.symbol)
	}
	if !args.structForm || !args.header || !args.octal || !args.static ||
		!args.debugInfo || !args.checkSyntax {
		t.Errorf("flags not all set: %+v", args)
	}
}

func TestParseArgsLongOptions(t *testing.T) {
	args, _, err := parseTest(t, "--remove-lv", "--no-ext-ops", "--no-optimize", "--verbose", "a.rb")
	if err != nil {
		t.Fatal(err)
	}
	if !args.removeLV || !args.noExtOps || !args.noOptimize || !args.verbose {
		t.Errorf("long options not all set: %+v", args)
	}
}

func TestParseArgsLineSize(t *testing.T) {
	args, _, err := parseTest(t, "--line-size=8", "a.rb")
	if err != nil {
		t.Fatal(err)
	}
	if args.lineSize != 8 {
		t.Errorf("lineSize = %d, want 8", args.lineSize)
	}

	for _, bad := range []string{"--line-size=0", "--line-size=256", "--line-size=x"} {
		_, _, err := parseTest(t, bad, "a.rb")
		if err == nil || !strings.Contains(err.Error(), "line size out of bounds") {
			t.Errorf("%s: got %v, want bounds error", bad, err)
		}
		// The offending value is reported.
		val := strings.TrimPrefix(bad, "--line-size=")
		if err != nil && !strings.Contains(err.Error(), "("+val+")") {
			t.Errorf("%s: error %q does not name the value", bad, err)
		}
	}
}

func TestParseArgsDefaultLineSize(t *testing.T) {
	args, _, err := parseTest(t, "a.rb")
	if err != nil {
		t.Fatal(err)
	}
	if args.lineSize != 16 {
		t.Errorf("default lineSize = %d, want 16", args.lineSize)
	}
}

func TestParseArgsStopsAtPositional(t *testing.T) {
	args, _, err := parseTest(t, "-g", "a.rb", "-v", "b.rb")
	if err != nil {
		t.Fatal(err)
	}
	// Everything after the first non-option is an input, dashes included.
	want := []string{"a.rb", "-v", "b.rb"}
	if len(args.inputs) != len(want) {
		t.Fatalf("inputs = %v, want %v", args.inputs, want)
	}
	for i, name := range want {
		if args.inputs[i] != name {
			t.Errorf("input %d = %q, want %q", i, args.inputs[i], name)
		}
	}
	if args.verbose {
		t.Error("-v after the first input must not be treated as an option")
	}
}

func TestParseArgsBareDashIsStdin(t *testing.T) {
	args, _, err := parseTest(t, "-c", "-")
	if err != nil {
		t.Fatal(err)
	}
	if len(args.inputs) != 1 || args.inputs[0] != "-" {
		t.Errorf("inputs = %v, want [-]", args.inputs)
	}
}

func TestParseArgsVersionFlag(t *testing.T) {
	args, stdout, err := parseTest(t, "-v", "-v", "a.rb")
	if err != nil {
		t.Fatal(err)
	}
	if !args.verbose {
		t.Error("verbose not set")
	}
	if n := strings.Count(stdout.String(), version); n != 1 {
		t.Errorf("version printed %d times, want once", n)
	}
}

func TestParseArgsVersionAndCopyright(t *testing.T) {
	for _, opt := range []string{"--version", "--copyright"} {
		_, stdout, err := parseTest(t, opt)
		if !errors.Is(err, errExitSuccess) {
			t.Errorf("%s: got %v, want errExitSuccess", opt, err)
		}
		if stdout.Len() == 0 {
			t.Errorf("%s: nothing printed", opt)
		}
	}
}

func TestParseArgsUnknownOptions(t *testing.T) {
	for _, argv := range [][]string{{"-x", "a.rb"}, {"--bogus", "a.rb"}} {
		_, _, err := parseTest(t, argv...)
		if err == nil || !strings.Contains(err.Error(), "invalid option") {
			t.Errorf("%v: got %v, want invalid-option error", argv, err)
		}
	}
}

func TestParseArgsHelp(t *testing.T) {
	_, _, err := parseTest(t, "-h")
	if !errors.Is(err, errShowUsage) {
		t.Errorf("got %v, want errShowUsage", err)
	}
}

func TestNewArgsManifestDefaults(t *testing.T) {
	args := newArgs("mrbc", nil)
	if args.lineSize != 16 || args.symbol != "" {
		t.Errorf("nil manifest defaults: %+v", args)
	}
}
