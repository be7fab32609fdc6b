package dump

import (
	"bufio"
	"fmt"
	"io"
	"strings"

	"github.com/wmentha/mruby/irep"
)

// The C codecs embed the Binary container bytes as compilable source.

func storageClass(static bool) string {
	if static {
		return "static const"
	}
	return "const"
}

// writeByteArray emits the byte rows of an initializer.
func writeByteArray(w *bufio.Writer, data []byte, octal bool, lineWidth int) {
	for i, b := range data {
		if octal {
			fmt.Fprintf(w, "0%03o,", b)
		} else {
			fmt.Fprintf(w, "0x%02x,", b)
		}
		if (i+1)%lineWidth == 0 {
			w.WriteByte('\n')
		}
	}
	if len(data)%lineWidth != 0 {
		w.WriteByte('\n')
	}
}

func writeCVariable(w io.Writer, ir *irep.Irep, f CVariable) error {
	if !ValidSymbol(f.Symbol) {
		return fmt.Errorf("%w: %q", ErrInvalidSymbol, f.Symbol)
	}
	lineWidth := f.LineWidth
	if lineWidth == 0 {
		lineWidth = DefaultLineWidth
	}
	if lineWidth < 1 || lineWidth > 255 {
		return fmt.Errorf("%w: %d", ErrLineWidth, lineWidth)
	}
	data, err := binaryBytes(ir, f.Debug)
	if err != nil {
		return err
	}

	bw := bufio.NewWriter(w)
	fmt.Fprintf(bw, "/* bytecode for %s, auto-generated */\n", f.Symbol)
	bw.WriteString("#include <stdint.h>\n")
	if !f.Static {
		fmt.Fprintf(bw, "extern const uint8_t %s[];\n", f.Symbol)
	}
	fmt.Fprintf(bw, "%s uint8_t %s[] = {\n", storageClass(f.Static), f.Symbol)
	writeByteArray(bw, data, f.Octal, lineWidth)
	bw.WriteString("};\n")
	if err := bw.Flush(); err != nil {
		return fmt.Errorf("%w: %v", ErrWrite, err)
	}
	return nil
}

func writeCStruct(w io.Writer, ir *irep.Irep, f CStruct) error {
	if !ValidSymbol(f.Symbol) {
		return fmt.Errorf("%w: %q", ErrInvalidSymbol, f.Symbol)
	}
	data, err := binaryBytes(ir, f.Debug)
	if err != nil {
		return err
	}

	bw := bufio.NewWriter(w)
	fmt.Fprintf(bw, "/* bytecode for %s, auto-generated */\n", f.Symbol)
	bw.WriteString("#include <stddef.h>\n")
	bw.WriteString("#include <stdint.h>\n")
	fmt.Fprintf(bw, "static const uint8_t %s_bytecode[] = {\n", f.Symbol)
	writeByteArray(bw, data, false, DefaultLineWidth)
	bw.WriteString("};\n")
	fmt.Fprintf(bw, "struct %s_unit { size_t size; const uint8_t *data; };\n", f.Symbol)
	fmt.Fprintf(bw, "%s struct %s_unit %s = { sizeof(%s_bytecode), %s_bytecode };\n",
		storageClass(f.Static), f.Symbol, f.Symbol, f.Symbol, f.Symbol)
	if err := bw.Flush(); err != nil {
		return fmt.Errorf("%w: %v", ErrWrite, err)
	}
	return nil
}

func writeCHeader(w io.Writer, f CHeader) error {
	if !ValidSymbol(f.Symbol) {
		return fmt.Errorf("%w: %q", ErrInvalidSymbol, f.Symbol)
	}
	guard := strings.ToUpper(f.Symbol) + "_H"

	bw := bufio.NewWriter(w)
	fmt.Fprintf(bw, "#ifndef %s\n", guard)
	fmt.Fprintf(bw, "#define %s\n", guard)
	bw.WriteString("#include <stddef.h>\n")
	bw.WriteString("#include <stdint.h>\n")
	if f.Struct {
		fmt.Fprintf(bw, "struct %s_unit { size_t size; const uint8_t *data; };\n", f.Symbol)
		fmt.Fprintf(bw, "extern const struct %s_unit %s;\n", f.Symbol, f.Symbol)
	} else {
		fmt.Fprintf(bw, "extern const uint8_t %s[];\n", f.Symbol)
	}
	fmt.Fprintf(bw, "#endif /* %s */\n", guard)
	if err := bw.Flush(); err != nil {
		return fmt.Errorf("%w: %v", ErrWrite, err)
	}
	return nil
}
