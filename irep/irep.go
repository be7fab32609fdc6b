// Package irep defines the in-memory representation of a compiled
// bytecode unit: a register-based instruction sequence together with its
// literal pool, symbol table, local-variable names and optional debug
// information. One unit is produced per method body; nested definitions
// become child units.
package irep

import (
	"encoding/binary"
	"fmt"
)

// Version is the current bytecode format version.
// Increment when making incompatible changes to the instruction set.
const Version uint16 = 1

// ValueKind tags a literal pool entry.
type ValueKind uint8

const (
	ValueInt ValueKind = iota
	ValueFloat
	ValueString
)

// String returns a human-readable name for ValueKind.
func (k ValueKind) String() string {
	switch k {
	case ValueInt:
		return "int"
	case ValueFloat:
		return "float"
	case ValueString:
		return "string"
	default:
		return fmt.Sprintf("ValueKind(%d)", uint8(k))
	}
}

// Value is a literal pool entry. Exactly one of the payload fields is
// meaningful, selected by Kind.
type Value struct {
	Kind  ValueKind `cbor:"1,keyasint"`
	Int   int64     `cbor:"2,keyasint,omitempty"`
	Float float64   `cbor:"3,keyasint,omitempty"`
	Str   string    `cbor:"4,keyasint,omitempty"`
}

// IntValue returns a pool entry holding an integer.
func IntValue(n int64) Value { return Value{Kind: ValueInt, Int: n} }

// FloatValue returns a pool entry holding a float.
func FloatValue(f float64) Value { return Value{Kind: ValueFloat, Float: f} }

// StringValue returns a pool entry holding a string.
func StringValue(s string) Value { return Value{Kind: ValueString, Str: s} }

// String formats the value for listings.
func (v Value) String() string {
	switch v.Kind {
	case ValueInt:
		return fmt.Sprintf("%d", v.Int)
	case ValueFloat:
		return fmt.Sprintf("%g", v.Float)
	case ValueString:
		return fmt.Sprintf("%q", v.Str)
	default:
		return "<invalid>"
	}
}

// LineEntry maps a code offset to a source line for debugging.
type LineEntry struct {
	Offset uint32 `cbor:"1,keyasint"`
	Line   uint32 `cbor:"2,keyasint"`
}

// DebugInfo carries optional source mapping for one unit.
type DebugInfo struct {
	Filename string      `cbor:"1,keyasint"`
	Lines    []LineEntry `cbor:"2,keyasint,omitempty"`
}

// Irep is a compiled bytecode unit.
//
// Registers: R(0) is self, R(1)..R(NLocals-1) hold local variables, the
// registers above NLocals are scratch. NRegs is the high-water mark the
// unit needs to execute.
type Irep struct {
	NLocals uint16 `cbor:"1,keyasint"`
	NRegs   uint16 `cbor:"2,keyasint"`

	// Code holds byte-coded instructions with big-endian operands.
	Code []byte `cbor:"3,keyasint"`

	// Pool holds literal values referenced by LOADL / STRING.
	Pool []Value `cbor:"4,keyasint,omitempty"`

	// Syms holds symbols referenced by sends and definitions.
	Syms []string `cbor:"5,keyasint,omitempty"`

	// LocalNames names the local-variable registers, parallel to
	// R(1)..R(NLocals-1). Stripped by RemoveLocals.
	LocalNames []string `cbor:"6,keyasint,omitempty"`

	// Debug is present only when the unit was compiled with debug info.
	Debug *DebugInfo `cbor:"7,keyasint,omitempty"`

	// Children holds nested units (method bodies defined inside this one).
	Children []*Irep `cbor:"8,keyasint,omitempty"`
}

// New creates an empty unit. NLocals starts at 1 to account for self.
func New() *Irep {
	return &Irep{
		NLocals: 1,
		NRegs:   1,
		Code:    make([]byte, 0, 64),
	}
}

// AddPool adds a literal to the pool and returns its index, reusing an
// existing entry when an identical one is present.
func (ir *Irep) AddPool(v Value) int {
	for i, p := range ir.Pool {
		if p == v {
			return i
		}
	}
	ir.Pool = append(ir.Pool, v)
	return len(ir.Pool) - 1
}

// AddSym interns a symbol and returns its index.
func (ir *Irep) AddSym(name string) int {
	for i, s := range ir.Syms {
		if s == name {
			return i
		}
	}
	ir.Syms = append(ir.Syms, name)
	return len(ir.Syms) - 1
}

// AddChild appends a nested unit and returns its index.
func (ir *Irep) AddChild(child *Irep) int {
	ir.Children = append(ir.Children, child)
	return len(ir.Children) - 1
}

// Emit appends an opcode with its operand bytes and returns the offset
// the instruction was written at.
func (ir *Irep) Emit(op Opcode, operands ...byte) int {
	offset := len(ir.Code)
	ir.Code = append(ir.Code, byte(op))
	ir.Code = append(ir.Code, operands...)
	return offset
}

// EmitJump appends a jump instruction with a placeholder target and
// returns the offset of the 2-byte placeholder for later patching.
func (ir *Irep) EmitJump(op Opcode, operands ...byte) int {
	ir.Code = append(ir.Code, byte(op))
	ir.Code = append(ir.Code, operands...)
	offset := len(ir.Code)
	ir.Code = append(ir.Code, 0xFF, 0xFF)
	return offset
}

// PatchJump points the placeholder at the current end of code.
func (ir *Irep) PatchJump(placeholder int) {
	ir.PatchJumpTo(placeholder, len(ir.Code))
}

// PatchJumpTo points the placeholder at a specific code offset.
// Jump deltas are relative to the first byte after the offset field.
func (ir *Irep) PatchJumpTo(placeholder, target int) {
	delta := target - (placeholder + 2)
	binary.BigEndian.PutUint16(ir.Code[placeholder:], uint16(int16(delta)))
}

// CurrentOffset returns the offset the next instruction will occupy.
func (ir *Irep) CurrentOffset() int { return len(ir.Code) }

// ReserveRegs raises the register high-water mark.
func (ir *Irep) ReserveRegs(n uint16) {
	if n > ir.NRegs {
		ir.NRegs = n
	}
}

// AddLine records the source line for the instruction at the given
// offset. No-op unless the unit carries debug info.
func (ir *Irep) AddLine(offset int, line int) {
	if ir.Debug == nil {
		return
	}
	n := len(ir.Debug.Lines)
	if n > 0 && ir.Debug.Lines[n-1].Line == uint32(line) {
		return
	}
	ir.Debug.Lines = append(ir.Debug.Lines, LineEntry{
		Offset: uint32(offset),
		Line:   uint32(line),
	})
}

// LineAt returns the source line for a code offset, or 0 when the unit
// has no mapping at or before it.
func (ir *Irep) LineAt(offset int) int {
	if ir.Debug == nil {
		return 0
	}
	line := 0
	for _, e := range ir.Debug.Lines {
		if int(e.Offset) > offset {
			break
		}
		line = int(e.Line)
	}
	return line
}

// RemoveLocals strips the local-variable name table from the unit and
// every child. The registers themselves are untouched; only the names
// used for reflection and debugging go away.
func (ir *Irep) RemoveLocals() {
	ir.LocalNames = nil
	for _, child := range ir.Children {
		child.RemoveLocals()
	}
}

// HasLocalNames reports whether any unit in the tree still names its
// local registers.
func (ir *Irep) HasLocalNames() bool {
	if len(ir.LocalNames) > 0 {
		return true
	}
	for _, child := range ir.Children {
		if child.HasLocalNames() {
			return true
		}
	}
	return false
}
