// Package dump serializes compiled bytecode units. Four codecs exist:
// the portable binary container, and three embeddable C source forms (a
// plain byte-array variable, a struct initializer, and the matching
// header declaration).
package dump

import (
	"errors"
	"fmt"
	"io"
	"regexp"

	"github.com/wmentha/mruby/irep"
)

// Codec failure kinds, checked with errors.Is.
var (
	// ErrInvalidSymbol means the embed symbol is not a valid C
	// identifier.
	ErrInvalidSymbol = errors.New("invalid C symbol name")

	// ErrLineWidth means a bytes-per-line value is outside 1..255.
	ErrLineWidth = errors.New("line size out of bounds")

	// ErrWrite wraps an output stream failure.
	ErrWrite = errors.New("write failed")
)

// DefaultLineWidth is the bytes-per-line used when none is configured.
const DefaultLineWidth = 16

// Format selects one codec, carrying only the fields that codec needs.
// Exactly one format is chosen per Dump call.
type Format interface {
	format()
}

// Binary is the portable container format.
type Binary struct {
	// Debug includes the debug-line section in the container.
	Debug bool
}

// CVariable is a C byte-array initializer under an embed symbol.
type CVariable struct {
	Symbol    string
	Static    bool
	Octal     bool // octal byte literals instead of hex
	LineWidth int  // bytes per line, 1..255; 0 means DefaultLineWidth
	Debug     bool
}

// CStruct is a C struct initializer exposing {size, data}.
type CStruct struct {
	Symbol string
	Static bool
	Debug  bool
}

// CHeader is the declaration header paired with CVariable or CStruct.
type CHeader struct {
	Symbol string
	Struct bool // declare the struct form instead of the byte array
}

func (Binary) format()    {}
func (CVariable) format() {}
func (CStruct) format()   {}
func (CHeader) format()   {}

var cIdentRx = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*$`)

// ValidSymbol reports whether name is usable as a C identifier.
func ValidSymbol(name string) bool {
	return cIdentRx.MatchString(name)
}

// Dump writes the unit to w in the selected format. The stream is not
// closed; that stays with the caller. The unit is read-only here.
func Dump(w io.Writer, f Format, ir *irep.Irep) error {
	switch f := f.(type) {
	case Binary:
		return writeBinary(w, ir, f.Debug)
	case CVariable:
		return writeCVariable(w, ir, f)
	case CStruct:
		return writeCStruct(w, ir, f)
	case CHeader:
		return writeCHeader(w, f)
	default:
		return fmt.Errorf("unknown dump format %T", f)
	}
}
