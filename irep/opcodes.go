package irep

import "fmt"

// Opcode is a bytecode instruction.
//
// Operand layouts use letters: B is an unsigned byte, S is a big-endian
// 16-bit value (signed for jump deltas). The OpExt1/OpExt2/OpExt3
// prefixes widen the first, second, or both byte operands of the next
// instruction to 16 bits for units too large for byte operands.
type Opcode byte

const (
	OpNop Opcode = iota // no operation

	// Register moves and literal loads
	OpMove     // BB: R(a) = R(b)
	OpLoadL    // BB: R(a) = Pool[b]
	OpLoadI    // BB: R(a) = b (small non-negative integer)
	OpLoadINeg // BB: R(a) = -b
	OpLoadSym  // BB: R(a) = Syms[b] as symbol
	OpString   // BB: R(a) = Pool[b] as string
	OpLoadNil  // B:  R(a) = nil
	OpLoadSelf // B:  R(a) = self
	OpLoadT    // B:  R(a) = true
	OpLoadF    // B:  R(a) = false

	// Control flow. Jump deltas are relative to the end of the
	// instruction.
	OpJmp    // S:   pc += s
	OpJmpIf  // BS:  if R(a) then pc += s
	OpJmpNot // BS:  if !R(a) then pc += s

	// Message sends. Arguments sit in R(a+1)..R(a+c); the result
	// lands in R(a).
	OpSend  // BBB: R(a) = R(a).send(Syms[b], c args)
	OpSSend // BBB: R(a) = self.send(Syms[b], c args)

	// Inline arithmetic and comparison: R(a) = R(a) op R(a+1)
	OpAdd
	OpSub
	OpMul
	OpDiv
	OpEQ
	OpLT
	OpLE
	OpGT
	OpGE

	OpNot // B: R(a) = !R(a)

	OpArray // BB: R(a) = [R(a)..R(a+b-1)]

	// Definitions
	OpMethod // BB: R(a) = method(Children[b])
	OpDef    // BB: define Syms[b] as R(a) on the enclosing class

	OpReturn // B: return R(a)
	OpStop   // end of unit

	// Operand-width extension prefixes
	OpExt1 // widen operand a of the next instruction to 16 bits
	OpExt2 // widen operand b of the next instruction to 16 bits
	OpExt3 // widen both a and b of the next instruction
)

// OpcodeInfo describes an opcode for listings and decoding.
type OpcodeInfo struct {
	Name     string
	Operands string // layout letters, see Opcode docs
}

var opcodeInfoTable = map[Opcode]OpcodeInfo{
	OpNop:      {"NOP", ""},
	OpMove:     {"MOVE", "BB"},
	OpLoadL:    {"LOADL", "BB"},
	OpLoadI:    {"LOADI", "BB"},
	OpLoadINeg: {"LOADINEG", "BB"},
	OpLoadSym:  {"LOADSYM", "BB"},
	OpString:   {"STRING", "BB"},
	OpLoadNil:  {"LOADNIL", "B"},
	OpLoadSelf: {"LOADSELF", "B"},
	OpLoadT:    {"LOADT", "B"},
	OpLoadF:    {"LOADF", "B"},
	OpJmp:      {"JMP", "S"},
	OpJmpIf:    {"JMPIF", "BS"},
	OpJmpNot:   {"JMPNOT", "BS"},
	OpSend:     {"SEND", "BBB"},
	OpSSend:    {"SSEND", "BBB"},
	OpAdd:      {"ADD", "B"},
	OpSub:      {"SUB", "B"},
	OpMul:      {"MUL", "B"},
	OpDiv:      {"DIV", "B"},
	OpEQ:       {"EQ", "B"},
	OpLT:       {"LT", "B"},
	OpLE:       {"LE", "B"},
	OpGT:       {"GT", "B"},
	OpGE:       {"GE", "B"},
	OpNot:      {"NOT", "B"},
	OpArray:    {"ARRAY", "BB"},
	OpMethod:   {"METHOD", "BB"},
	OpDef:      {"DEF", "BB"},
	OpReturn:   {"RETURN", "B"},
	OpStop:     {"STOP", ""},
	OpExt1:     {"EXT1", ""},
	OpExt2:     {"EXT2", ""},
	OpExt3:     {"EXT3", ""},
}

// GetOpcodeInfo returns metadata for an opcode.
func GetOpcodeInfo(op Opcode) OpcodeInfo {
	if info, ok := opcodeInfoTable[op]; ok {
		return info
	}
	return OpcodeInfo{Name: fmt.Sprintf("UNKNOWN(0x%02X)", byte(op))}
}

// String returns the mnemonic of an opcode.
func (op Opcode) String() string {
	return GetOpcodeInfo(op).Name
}

// IsJump reports whether the opcode is a jump instruction.
func (op Opcode) IsJump() bool {
	return op >= OpJmp && op <= OpJmpNot
}

// IsExt reports whether the opcode is a width-extension prefix.
func (op Opcode) IsExt() bool {
	return op >= OpExt1 && op <= OpExt3
}

// Instr is a decoded instruction. A holds the first operand, B the
// second, C the third; unused operands are zero. For jumps the delta is
// in B (OpJmpIf/OpJmpNot) or A (OpJmp), already sign-extended.
type Instr struct {
	Op Opcode
	A  int
	B  int
	C  int

	// Len is the encoded length including any extension prefix.
	Len int
}

// Decode decodes the instruction at offset, folding in any extension
// prefix. Returns an OpNop of length 0 when offset is out of range or
// the code is truncated.
func Decode(code []byte, offset int) Instr {
	if offset >= len(code) {
		return Instr{}
	}
	extA, extB := false, false
	length := 0
	op := Opcode(code[offset])
	switch op {
	case OpExt1:
		extA = true
	case OpExt2:
		extB = true
	case OpExt3:
		extA, extB = true, true
	}
	if op.IsExt() {
		offset++
		length++
		if offset >= len(code) {
			return Instr{}
		}
		op = Opcode(code[offset])
	}
	length++

	in := Instr{Op: op}
	pos := offset + 1
	read := func(wide bool) (int, bool) {
		if wide {
			if pos+2 > len(code) {
				return 0, false
			}
			v := int(code[pos])<<8 | int(code[pos+1])
			pos += 2
			length += 2
			return v, true
		}
		if pos+1 > len(code) {
			return 0, false
		}
		v := int(code[pos])
		pos++
		length++
		return v, true
	}
	readS := func() (int, bool) {
		v, ok := read(true)
		if !ok {
			return 0, false
		}
		return int(int16(v)), true
	}

	operands := GetOpcodeInfo(op).Operands
	for i, kind := range operands {
		var v int
		var ok bool
		switch kind {
		case 'B':
			wide := (i == 0 && extA) || (i == 1 && extB)
			v, ok = read(wide)
		case 'S':
			v, ok = readS()
		}
		if !ok {
			return Instr{}
		}
		switch i {
		case 0:
			in.A = v
		case 1:
			in.B = v
		case 2:
			in.C = v
		}
	}
	in.Len = length
	return in
}
