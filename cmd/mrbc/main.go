// mrbc compiles Ruby program files to mruby bytecode and writes the
// result as a binary container or as embeddable C source.
package main

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/tliron/commonlog"
	_ "github.com/tliron/commonlog/simple"

	"github.com/wmentha/mruby/dump"
	"github.com/wmentha/mruby/irep"
	"github.com/wmentha/mruby/manifest"
)

var log = commonlog.GetLogger("mrbc")

func main() {
	os.Exit(run(os.Args, os.Stdout, os.Stderr))
}

func run(argv []string, stdout, stderr io.Writer) int {
	prog := "mrbc"
	if len(argv) > 0 {
		prog = filepath.Base(argv[0])
	}

	mf, err := manifest.FindAndLoad(".")
	if err != nil {
		fmt.Fprintf(stderr, "%s: %v\n", prog, err)
		return 1
	}

	args := newArgs(prog, mf)
	switch err := parseArgs(argv, args, stdout); {
	case err == nil:
	case errors.Is(err, errExitSuccess):
		return 0
	case errors.Is(err, errShowUsage):
		usage(stdout, prog)
		return 1
	default:
		fmt.Fprintf(stderr, "%s: %v\n", prog, err)
		usage(stderr, prog)
		return 1
	}

	if args.verbose {
		commonlog.Configure(1, nil)
	}

	if len(args.inputs) == 0 {
		fmt.Fprintf(stderr, "%s: no program file given\n", prog)
		return 1
	}
	if len(args.inputs) > 1 && args.outfile == "" && !args.checkSyntax {
		fmt.Fprintf(stderr, "%s: output file should be specified to compile multiple files\n", prog)
		return 1
	}

	outfile := args.outfile
	if outfile == "" && !args.checkSyntax {
		ext := binExt
		if args.symbol != "" {
			ext = cExt
		}
		outfile = outfileName(args.inputs[0], ext)
	}

	format, err := selectFormat(outfile, args)
	if err != nil {
		fmt.Fprintf(stderr, "%s: %v\n", prog, err)
		return 1
	}

	log.Infof("compiling %d file(s)", len(args.inputs))
	ir, err := loadSources(args, stdout)
	if err != nil {
		fmt.Fprintf(stderr, "%s: %v\n", prog, err)
		return 1
	}

	if args.checkSyntax {
		fmt.Fprintf(stdout, "%s:%s:Syntax OK\n", prog, args.inputs[0])
		return 0
	}

	if args.removeLV {
		ir.RemoveLocals()
	}

	if err := dumpFile(outfile, format, ir, stdout, "cannot open output file"); err != nil {
		fmt.Fprintf(stderr, "%s: %v\n", prog, err)
		return 1
	}
	log.Infof("wrote %s", outfile)

	if args.header {
		hdr := dump.CHeader{Symbol: args.symbol, Struct: args.structForm}
		hdrfile := outfile
		if outfile != "-" {
			hdrfile = outfileName(outfile, cHeadExt)
		}
		if err := dumpFile(hdrfile, hdr, ir, stdout, "cannot open header file"); err != nil {
			fmt.Fprintf(stderr, "%s: %v\n", prog, err)
			return 1
		}
		log.Infof("wrote %s", hdrfile)
	}

	return 0
}

// selectFormat picks the codec from the target name and the embed
// switches, rejecting invalid combinations before anything is written.
func selectFormat(outfile string, args *mrbcArgs) (dump.Format, error) {
	if args.symbol == "" {
		if args.static {
			return nil, errors.New("need -B<symbol> option to use -s option")
		}
		if args.header {
			return nil, errors.New("need -B<symbol> option to use -H option")
		}
		return dump.Binary{Debug: args.debugInfo}, nil
	}
	if !dump.ValidSymbol(args.symbol) {
		return nil, fmt.Errorf("%w. (%s)", dump.ErrInvalidSymbol, args.symbol)
	}
	if !args.checkSyntax && strings.HasSuffix(outfile, cHeadExt) {
		return dump.CHeader{Symbol: args.symbol, Struct: args.structForm}, nil
	}
	if args.structForm {
		return dump.CStruct{Symbol: args.symbol, Static: args.static, Debug: args.debugInfo}, nil
	}
	return dump.CVariable{
		Symbol:    args.symbol,
		Static:    args.static,
		Octal:     args.octal,
		LineWidth: args.lineSize,
		Debug:     args.debugInfo,
	}, nil
}

// dumpFile opens the target and dumps the unit into it. "-" means
// stdout. The handle is closed before any dump error is reported.
// openMsg names the target kind for open failures, since header output
// and primary output must be distinguishable in diagnostics.
func dumpFile(outfile string, f dump.Format, ir *irep.Irep, stdout io.Writer, openMsg string) error {
	if outfile == "-" {
		return dump.Dump(stdout, f, ir)
	}
	fp, err := os.Create(outfile)
	if err != nil {
		return fmt.Errorf("%s:(%s)", openMsg, outfile)
	}
	derr := dump.Dump(fp, f, ir)
	cerr := fp.Close()
	if derr != nil {
		return fmt.Errorf("error in mrb dump (%s): %w", outfile, derr)
	}
	return cerr
}
