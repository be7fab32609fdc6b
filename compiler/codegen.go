package compiler

import (
	"errors"
	"fmt"
	"strings"

	"github.com/wmentha/mruby/irep"
)

// ---------------------------------------------------------------------------
// CodeGen: compile AST to register-based bytecode
// ---------------------------------------------------------------------------

// Options control code generation.
type Options struct {
	// NoExtOps rejects units whose operands exceed one byte instead of
	// emitting width-extension prefixes.
	NoExtOps bool

	// NoOptimize disables the emit-time peephole pass.
	NoOptimize bool

	// Debug records the source filename and a line table in the unit.
	Debug bool
}

// maxRegisters is the hard ceiling on unit registers (16-bit operands).
const maxRegisters = 0xFFFF

// CodeGen compiles one unit. Nested definitions get their own CodeGen.
type CodeGen struct {
	opts   Options
	ir     *irep.Irep
	locals map[string]int
	line   int
	errors []string

	// Peephole state: the last emitted instruction, when it is a simple
	// load whose target may still be rewritten. Invalidated at control
	// flow boundaries.
	last *lastLoad
}

// lastLoad remembers a just-emitted load for peephole retargeting.
type lastLoad struct {
	offset int
	op     irep.Opcode
	dst    int
	src    int // operand b, or the source register for OpMove
	hasSrc bool
}

// NewCodeGen creates a generator for one unit.
func NewCodeGen(opts Options, filename string) *CodeGen {
	g := &CodeGen{
		opts:   opts,
		ir:     irep.New(),
		locals: make(map[string]int),
	}
	if opts.Debug {
		g.ir.Debug = &irep.DebugInfo{Filename: filename}
	}
	return g
}

func (g *CodeGen) errorf(pos Position, format string, args ...interface{}) {
	g.errors = append(g.errors, fmt.Sprintf("%s: %s", pos, fmt.Sprintf(format, args...)))
}

// Generate compiles a program into a bytecode unit.
func (g *CodeGen) Generate(prog *Program) (*irep.Irep, error) {
	g.declareLocals(collectLocals(prog.Stmts), nil)
	base := int(g.ir.NLocals)

	for i, stmt := range prog.Stmts {
		g.genStmt(stmt, base, i == len(prog.Stmts)-1)
	}
	if len(prog.Stmts) == 0 {
		g.emitB(irep.OpLoadNil, base)
	}
	g.emitB(irep.OpReturn, base)
	g.ir.Emit(irep.OpStop)

	if len(g.errors) > 0 {
		return nil, errors.New(strings.Join(g.errors, "\n"))
	}
	return g.ir, nil
}

// generateBody compiles a method body: parameters occupy the first
// local registers, and the body's value is returned.
func (g *CodeGen) generateBody(params []string, body []Stmt) (*irep.Irep, error) {
	g.declareLocals(collectLocals(body), params)
	base := int(g.ir.NLocals)

	g.genBlock(body, base)
	g.emitB(irep.OpReturn, base)

	if len(g.errors) > 0 {
		return nil, errors.New(strings.Join(g.errors, "\n"))
	}
	return g.ir, nil
}

// declareLocals assigns registers R(1).. to params then other locals.
func (g *CodeGen) declareLocals(names []string, params []string) {
	reg := 1
	add := func(name string) {
		if _, ok := g.locals[name]; ok {
			return
		}
		g.locals[name] = reg
		g.ir.LocalNames = append(g.ir.LocalNames, name)
		reg++
	}
	for _, name := range params {
		add(name)
	}
	for _, name := range names {
		add(name)
	}
	g.ir.NLocals = uint16(reg)
	g.ir.ReserveRegs(uint16(reg))
}

// collectLocals walks statements for assigned names, in first-assignment
// order. Nested method bodies are separate scopes and are not entered.
func collectLocals(stmts []Stmt) []string {
	var names []string
	seen := make(map[string]bool)
	var walkExpr func(Expr)
	var walkStmts func([]Stmt)
	walkExpr = func(e Expr) {
		switch n := e.(type) {
		case *Assign:
			if !seen[n.Name] {
				seen[n.Name] = true
				names = append(names, n.Name)
			}
			walkExpr(n.Value)
		case *BinaryExpr:
			walkExpr(n.Left)
			walkExpr(n.Right)
		case *UnaryExpr:
			walkExpr(n.Operand)
		case *CallExpr:
			if n.Recv != nil {
				walkExpr(n.Recv)
			}
			for _, a := range n.Args {
				walkExpr(a)
			}
		case *ArrayLit:
			for _, el := range n.Elements {
				walkExpr(el)
			}
		case *IfExpr:
			walkExpr(n.Cond)
			walkStmts(n.Then)
			for _, c := range n.Elsifs {
				walkExpr(c.Cond)
				walkStmts(c.Then)
			}
			walkStmts(n.Else)
		case *WhileExpr:
			walkExpr(n.Cond)
			walkStmts(n.Body)
		}
	}
	walkStmts = func(stmts []Stmt) {
		for _, s := range stmts {
			switch n := s.(type) {
			case *ExprStmt:
				walkExpr(n.Expr)
			case *ReturnStmt:
				if n.Value != nil {
					walkExpr(n.Value)
				}
			}
		}
	}
	walkStmts(stmts)
	return names
}

// ---------------------------------------------------------------------------
// Statements
// ---------------------------------------------------------------------------

func (g *CodeGen) genStmt(stmt Stmt, dst int, wantValue bool) {
	switch n := stmt.(type) {
	case *ExprStmt:
		if assign, ok := n.Expr.(*Assign); ok {
			g.genAssign(assign, dst, wantValue)
			return
		}
		g.genExpr(n.Expr, dst)

	case *ReturnStmt:
		g.line = n.Pos.Line
		if n.Value != nil {
			g.genExpr(n.Value, dst)
		} else {
			g.emitB(irep.OpLoadNil, dst)
		}
		g.emitB(irep.OpReturn, dst)
		g.invalidatePeep()

	case *DefStmt:
		g.genDef(n, dst, wantValue)
	}
}

// genBlock compiles a statement list leaving the value of the last
// statement in dst. An empty block is nil.
func (g *CodeGen) genBlock(stmts []Stmt, dst int) {
	if len(stmts) == 0 {
		g.emitB(irep.OpLoadNil, dst)
		return
	}
	for i, stmt := range stmts {
		g.genStmt(stmt, dst, i == len(stmts)-1)
	}
}

func (g *CodeGen) genAssign(n *Assign, dst int, wantValue bool) {
	g.genExpr(n.Value, dst)
	lreg, ok := g.locals[n.Name]
	if !ok {
		// collectLocals declared every assigned name up front.
		g.errorf(n.Pos, "undeclared local %s", n.Name)
		return
	}
	g.line = n.Pos.Line
	if wantValue {
		// Keep the value live in dst as well as the local; the
		// peephole must not retarget the load away from dst here.
		g.emitMoveNoPeep(lreg, dst)
	} else {
		g.emitMove(lreg, dst)
	}
}

func (g *CodeGen) genDef(n *DefStmt, dst int, wantValue bool) {
	g.line = n.Pos.Line

	child := NewCodeGen(g.opts, g.childFilename())
	body, err := child.generateBody(n.Params, n.Body)
	if err != nil {
		g.errors = append(g.errors, strings.Split(err.Error(), "\n")...)
		return
	}
	idx := g.ir.AddChild(body)
	sym := g.ir.AddSym(n.Name)

	g.emitBB(irep.OpMethod, dst, idx)
	g.emitBB(irep.OpDef, dst, sym)
	g.invalidatePeep()
	if wantValue {
		// def evaluates to the method name symbol.
		g.emitBB(irep.OpLoadSym, dst, sym)
	}
}

func (g *CodeGen) childFilename() string {
	if g.ir.Debug != nil {
		return g.ir.Debug.Filename
	}
	return ""
}

// ---------------------------------------------------------------------------
// Expressions
// ---------------------------------------------------------------------------

// genExpr compiles an expression into dst. Scratch registers at dst+1
// and above may be clobbered; registers below dst are preserved.
func (g *CodeGen) genExpr(e Expr, dst int) {
	if e == nil {
		return
	}
	g.reserve(dst)
	g.line = e.Position().Line

	switch n := e.(type) {
	case *IntLit:
		switch {
		case n.Value >= 0 && n.Value <= 0xFF:
			g.emitBB(irep.OpLoadI, dst, int(n.Value))
		case n.Value < 0 && n.Value >= -0xFF:
			g.emitBB(irep.OpLoadINeg, dst, int(-n.Value))
		default:
			g.emitBB(irep.OpLoadL, dst, g.ir.AddPool(irep.IntValue(n.Value)))
		}

	case *FloatLit:
		g.emitBB(irep.OpLoadL, dst, g.ir.AddPool(irep.FloatValue(n.Value)))

	case *StringLit:
		g.emitBB(irep.OpString, dst, g.ir.AddPool(irep.StringValue(n.Value)))

	case *SymLit:
		g.emitBB(irep.OpLoadSym, dst, g.ir.AddSym(n.Name))

	case *BoolLit:
		if n.Value {
			g.emitB(irep.OpLoadT, dst)
		} else {
			g.emitB(irep.OpLoadF, dst)
		}

	case *NilLit:
		g.emitB(irep.OpLoadNil, dst)

	case *Ident:
		if reg, ok := g.locals[n.Name]; ok {
			g.emitMove(dst, reg)
		} else {
			// Zero-argument self send.
			g.emitBBB(n.Pos, irep.OpSSend, dst, g.ir.AddSym(n.Name), 0)
			g.invalidatePeep()
		}

	case *Assign:
		g.genAssign(n, dst, true)

	case *UnaryExpr:
		g.genExpr(n.Operand, dst)
		g.line = n.Pos.Line
		if n.Op == TokenBang {
			g.emitB(irep.OpNot, dst)
		} else {
			// Unary minus sends -@, matching operator dispatch.
			g.emitBBB(n.Pos, irep.OpSend, dst, g.ir.AddSym("-@"), 0)
			g.invalidatePeep()
		}

	case *BinaryExpr:
		g.genBinary(n, dst)

	case *CallExpr:
		g.genCall(n, dst)

	case *ArrayLit:
		for i, el := range n.Elements {
			g.genExpr(el, dst+i)
		}
		g.line = n.Pos.Line
		if len(n.Elements) > 0xFF {
			g.errorf(n.Pos, "array literal too long (%d elements)", len(n.Elements))
			return
		}
		g.reserve(dst + len(n.Elements))
		g.emitBB(irep.OpArray, dst, len(n.Elements))
		g.invalidatePeep()

	case *IfExpr:
		g.genIf(n, dst)

	case *WhileExpr:
		g.genWhile(n, dst)

	default:
		g.errorf(e.Position(), "cannot compile %T", e)
	}
}

func (g *CodeGen) genBinary(n *BinaryExpr, dst int) {
	g.genExpr(n.Left, dst)
	g.genExpr(n.Right, dst+1)
	g.reserve(dst + 1)
	g.line = n.Pos.Line
	g.invalidatePeep()

	switch n.Op {
	case TokenPlus:
		g.emitB(irep.OpAdd, dst)
	case TokenMinus:
		g.emitB(irep.OpSub, dst)
	case TokenStar:
		g.emitB(irep.OpMul, dst)
	case TokenSlash:
		g.emitB(irep.OpDiv, dst)
	case TokenPercent:
		g.emitBBB(n.Pos, irep.OpSend, dst, g.ir.AddSym("%"), 1)
	case TokenEq:
		g.emitB(irep.OpEQ, dst)
	case TokenNotEq:
		g.emitB(irep.OpEQ, dst)
		g.emitB(irep.OpNot, dst)
	case TokenLt:
		g.emitB(irep.OpLT, dst)
	case TokenLe:
		g.emitB(irep.OpLE, dst)
	case TokenGt:
		g.emitB(irep.OpGT, dst)
	case TokenGe:
		g.emitB(irep.OpGE, dst)
	default:
		g.errorf(n.Pos, "unsupported operator %s", n.Op)
	}
}

func (g *CodeGen) genCall(n *CallExpr, dst int) {
	if n.Recv != nil {
		g.genExpr(n.Recv, dst)
	}
	for i, arg := range n.Args {
		g.genExpr(arg, dst+1+i)
	}
	g.line = n.Pos.Line
	if len(n.Args) > 0xFF {
		g.errorf(n.Pos, "too many arguments (%d)", len(n.Args))
		return
	}
	g.reserve(dst + 1 + len(n.Args))

	op := irep.OpSSend
	if n.Recv != nil {
		op = irep.OpSend
	}
	g.emitBBB(n.Pos, op, dst, g.ir.AddSym(n.Name), len(n.Args))
	g.invalidatePeep()
}

func (g *CodeGen) genIf(n *IfExpr, dst int) {
	var endJumps []int

	g.genExpr(n.Cond, dst)
	g.line = n.Pos.Line
	skip := g.emitJumpB(irep.OpJmpNot, dst)

	g.genBlock(n.Then, dst)
	endJumps = append(endJumps, g.emitJump(irep.OpJmp))
	g.ir.PatchJump(skip)
	g.invalidatePeep()

	for _, clause := range n.Elsifs {
		g.genExpr(clause.Cond, dst)
		g.line = clause.Pos.Line
		skip = g.emitJumpB(irep.OpJmpNot, dst)
		g.genBlock(clause.Then, dst)
		endJumps = append(endJumps, g.emitJump(irep.OpJmp))
		g.ir.PatchJump(skip)
		g.invalidatePeep()
	}

	if n.Else != nil {
		g.genBlock(n.Else, dst)
	} else {
		g.emitB(irep.OpLoadNil, dst)
	}

	for _, ph := range endJumps {
		g.ir.PatchJump(ph)
	}
	g.invalidatePeep()
}

func (g *CodeGen) genWhile(n *WhileExpr, dst int) {
	g.invalidatePeep()
	top := g.ir.CurrentOffset()

	g.genExpr(n.Cond, dst)
	g.line = n.Pos.Line
	exit := g.emitJumpB(irep.OpJmpNot, dst)

	g.genBlock(n.Body, dst)
	back := g.emitJump(irep.OpJmp)
	g.ir.PatchJumpTo(back, top)
	g.ir.PatchJump(exit)
	g.invalidatePeep()

	// A while expression evaluates to nil.
	g.emitB(irep.OpLoadNil, dst)
}

// ---------------------------------------------------------------------------
// Emission, operand widening, peephole
// ---------------------------------------------------------------------------

func (g *CodeGen) reserve(reg int) {
	if reg >= maxRegisters {
		g.errors = append(g.errors, fmt.Sprintf("unit needs more than %d registers", maxRegisters))
		return
	}
	g.ir.ReserveRegs(uint16(reg) + 1)
}

// checkOperand validates an operand against the byte/extended limits
// and reports whether the instruction needs a widened encoding.
func (g *CodeGen) checkOperand(v int) (wide bool) {
	if v <= 0xFF {
		return false
	}
	if v > 0xFFFF {
		g.errors = append(g.errors, fmt.Sprintf("operand %d exceeds the 16-bit limit", v))
		return false
	}
	if g.opts.NoExtOps {
		g.errors = append(g.errors, fmt.Sprintf(
			"operand %d needs extended operands, which are prohibited", v))
		return false
	}
	return true
}

func extPrefix(wideA, wideB bool) irep.Opcode {
	switch {
	case wideA && wideB:
		return irep.OpExt3
	case wideA:
		return irep.OpExt1
	default:
		return irep.OpExt2
	}
}

func appendOperand(buf []byte, v int, wide bool) []byte {
	if wide {
		return append(buf, byte(v>>8), byte(v))
	}
	return append(buf, byte(v))
}

// emitRaw writes one instruction, with extension prefix when any
// operand needs 16 bits, and records the source line.
func (g *CodeGen) emitRaw(op irep.Opcode, operands ...int) int {
	wideA := len(operands) > 0 && g.checkOperand(operands[0])
	wideB := len(operands) > 1 && g.checkOperand(operands[1])

	var buf []byte
	if len(operands) > 0 {
		buf = appendOperand(buf, operands[0], wideA)
	}
	if len(operands) > 1 {
		buf = appendOperand(buf, operands[1], wideB)
	}
	if len(operands) > 2 {
		// The third operand (send argc) never widens.
		buf = append(buf, byte(operands[2]))
	}

	var offset int
	if wideA || wideB {
		offset = g.ir.Emit(extPrefix(wideA, wideB))
		g.ir.Emit(op, buf...)
	} else {
		offset = g.ir.Emit(op, buf...)
	}
	g.ir.AddLine(offset, g.line)
	return offset
}

func (g *CodeGen) emitB(op irep.Opcode, a int) {
	offset := g.emitRaw(op, a)
	g.notePeep(op, offset, a, 0, false)
}

func (g *CodeGen) emitBB(op irep.Opcode, a, b int) {
	offset := g.emitRaw(op, a, b)
	g.notePeep(op, offset, a, b, true)
}

func (g *CodeGen) emitBBB(pos Position, op irep.Opcode, a, b, c int) {
	if c > 0xFF {
		g.errorf(pos, "too many arguments (%d)", c)
		return
	}
	g.emitRaw(op, a, b, c)
	g.last = nil
}

// emitJump emits a jump with a 16-bit placeholder delta and returns the
// placeholder offset for patching.
func (g *CodeGen) emitJump(op irep.Opcode) int {
	g.invalidatePeep()
	ph := g.ir.EmitJump(op)
	g.ir.AddLine(ph-1, g.line)
	return ph
}

// emitJumpB emits a conditional jump on register a.
func (g *CodeGen) emitJumpB(op irep.Opcode, a int) int {
	g.invalidatePeep()
	wideA := g.checkOperand(a)
	var offset, ph int
	if wideA {
		offset = g.ir.Emit(irep.OpExt1)
		ph = g.ir.EmitJump(op, byte(a>>8), byte(a))
	} else {
		ph = g.ir.EmitJump(op, byte(a))
		offset = ph - 2
	}
	g.ir.AddLine(offset, g.line)
	return ph
}

// emitMove emits MOVE dst, src with peephole folding: a simple load
// into src immediately before is retargeted to dst instead, and a move
// that merely undoes the previous one is dropped.
func (g *CodeGen) emitMove(dst, src int) {
	if dst == src {
		return
	}
	if !g.opts.NoOptimize && g.last != nil {
		last := g.last
		// MOVE a,b ; MOVE b,a -- the value is already in dst.
		if last.op == irep.OpMove && last.hasSrc && last.dst == src && last.src == dst {
			return
		}
		// load src ; MOVE dst,src => load dst. Only when src is a
		// scratch register: a load into a local may be read later.
		if last.dst == src && src >= int(g.ir.NLocals) {
			g.ir.Code = g.ir.Code[:last.offset]
			g.last = nil
			if last.hasSrc || last.op == irep.OpMove {
				g.emitBB(last.op, dst, last.src)
			} else {
				g.emitB(last.op, dst)
			}
			return
		}
	}
	g.emitMoveNoPeep(dst, src)
}

// emitMoveNoPeep emits MOVE without peephole rewriting.
func (g *CodeGen) emitMoveNoPeep(dst, src int) {
	if dst == src {
		return
	}
	offset := g.emitRaw(irep.OpMove, dst, src)
	g.notePeep(irep.OpMove, offset, dst, src, true)
}

// notePeep records the last instruction when it is peephole-eligible.
func (g *CodeGen) notePeep(op irep.Opcode, offset, dst, src int, hasSrc bool) {
	switch op {
	case irep.OpMove, irep.OpLoadL, irep.OpLoadI, irep.OpLoadINeg,
		irep.OpLoadSym, irep.OpString, irep.OpLoadNil, irep.OpLoadSelf,
		irep.OpLoadT, irep.OpLoadF:
		g.last = &lastLoad{offset: offset, op: op, dst: dst, src: src, hasSrc: hasSrc}
	default:
		g.last = nil
	}
}

// invalidatePeep forgets peephole state at control flow boundaries so a
// jump target never lands between a folded pair.
func (g *CodeGen) invalidatePeep() {
	g.last = nil
}
