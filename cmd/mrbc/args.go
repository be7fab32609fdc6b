package main

import (
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/wmentha/mruby/manifest"
)

const (
	binExt   = ".mrb"
	cExt     = ".c"
	cHeadExt = ".h"
)

// errExitSuccess signals that parsing handled the invocation completely
// (--version / --copyright) and the process should exit 0.
var errExitSuccess = errors.New("exit success")

// errShowUsage asks the caller to print usage without an error line.
var errShowUsage = errors.New("show usage")

// mrbcArgs is the validated configuration for one invocation. It is not
// mutated after parseArgs returns.
type mrbcArgs struct {
	prog    string
	outfile string
	symbol  string // embed as this C symbol (-B)
	inputs  []string

	structForm  bool // -S
	header      bool // -H
	octal       bool // -8
	static      bool // -s
	debugInfo   bool // -g
	lineSize    int  // --line-size, 1..255
	checkSyntax bool // -c
	verbose     bool // -v / --verbose
	removeLV    bool // --remove-lv
	noExtOps    bool // --no-ext-ops
	noOptimize  bool // --no-optimize
}

func usage(w io.Writer, prog string) {
	fmt.Fprintf(w, "Usage: %s [switches] programfile...\n", prog)
	switches := []string{
		"-c                   check syntax only",
		"-o<outfile>          place the output into <outfile>; required for multi-files",
		"-v                   print version number, then turn on verbose mode",
		"-g                   produce debugging information",
		"-B<symbol>           binary <symbol> output in C language format",
		"-S                   dump output as C struct (requires -B)",
		"-s                   define <symbol> as C static variable (requires -B)",
		"-H                   dump binary output with header file (requires -B)",
		"-8                   dump binary output as octal string (requires -B)",
		"--line-size=<number> number of hex or octal values per line (min 1, max 255, default 16)",
		"--remove-lv          remove local variables",
		"--no-ext-ops         prohibit using extended operands",
		"--no-optimize        disable peephole optimization",
		"--verbose            run at verbose mode",
		"--version            print the version",
		"--copyright          print the copyright",
	}
	for _, s := range switches {
		fmt.Fprintf(w, "  %s\n", s)
	}
}

// newArgs seeds the configuration with manifest defaults, when any.
func newArgs(prog string, mf *manifest.Manifest) *mrbcArgs {
	args := &mrbcArgs{prog: prog, lineSize: 16}
	if mf == nil {
		return args
	}
	args.debugInfo = mf.Compile.Debug
	args.noExtOps = mf.Compile.NoExtOps
	args.noOptimize = mf.Compile.NoOptimize
	args.symbol = mf.Embed.Symbol
	args.structForm = mf.Embed.Struct
	args.static = mf.Embed.Static
	args.octal = mf.Embed.Octal
	if mf.Embed.LineSize != 0 {
		args.lineSize = mf.Embed.LineSize
	}
	return args
}

// parseArgs validates argv into a configuration. Option scanning stops
// at the first element that does not start with '-'; everything from
// there on is a positional input. A bare "-" is a positional (stdin).
// On errExitSuccess the invocation is already fully handled.
func parseArgs(argv []string, args *mrbcArgs, stdout io.Writer) error {
	shownVersion := false
	i := 1
	for ; i < len(argv); i++ {
		arg := argv[i]
		if !strings.HasPrefix(arg, "-") || arg == "-" {
			break
		}

		// takeValue returns the option value, concatenated or from the
		// next element.
		takeValue := func() (string, bool) {
			if len(arg) > 2 {
				return arg[2:], true
			}
			if i+1 < len(argv) {
				i++
				return argv[i], true
			}
			return "", false
		}

		switch arg[1] {
		case 'o':
			if args.outfile != "" {
				return fmt.Errorf("an output file is already specified. (%s)", args.outfile)
			}
			v, ok := takeValue()
			if !ok || v == "" {
				return errors.New("output file name is not specified")
			}
			args.outfile = v
		case 'B':
			v, ok := takeValue()
			if !ok || v == "" {
				return errors.New("function name is not specified")
			}
			args.symbol = v
		case 'S':
			args.structForm = true
		case 'H':
			args.header = true
		case '8':
			args.octal = true
		case 'c':
			args.checkSyntax = true
		case 'v':
			if !shownVersion {
				showVersion(stdout)
				shownVersion = true
			}
			args.verbose = true
		case 'g':
			args.debugInfo = true
		case 's':
			args.static = true
		case 'h':
			return errShowUsage
		case '-':
			if err := parseLongOption(arg[2:], args, stdout); err != nil {
				return err
			}
		default:
			return fmt.Errorf("invalid option %s", arg)
		}
	}

	args.inputs = argv[i:]
	return nil
}

func parseLongOption(opt string, args *mrbcArgs, stdout io.Writer) error {
	switch {
	case opt == "version":
		showVersion(stdout)
		return errExitSuccess
	case opt == "copyright":
		showCopyright(stdout)
		return errExitSuccess
	case opt == "verbose":
		args.verbose = true
	case opt == "remove-lv":
		args.removeLV = true
	case opt == "no-ext-ops":
		args.noExtOps = true
	case opt == "no-optimize":
		args.noOptimize = true
	case strings.HasPrefix(opt, "line-size="):
		v := strings.TrimPrefix(opt, "line-size=")
		n, err := strconv.Atoi(v)
		if err != nil || n < 1 || n > 255 {
			return fmt.Errorf("line size out of bounds. (%s)", v)
		}
		args.lineSize = n
	default:
		return fmt.Errorf("invalid option --%s", opt)
	}
	return nil
}
