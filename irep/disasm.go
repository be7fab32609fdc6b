package irep

import (
	"fmt"
	"strings"
)

// Disassemble returns a human-readable listing of the unit and all of
// its children, the form the compiler prints in verbose mode.
func (ir *Irep) Disassemble() string {
	var sb strings.Builder
	ir.disassemble(&sb, "0")
	return sb.String()
}

func (ir *Irep) disassemble(sb *strings.Builder, label string) {
	fmt.Fprintf(sb, "irep %s nregs=%d nlocals=%d pools=%d syms=%d reps=%d\n",
		label, ir.NRegs, ir.NLocals, len(ir.Pool), len(ir.Syms), len(ir.Children))
	if ir.Debug != nil && ir.Debug.Filename != "" {
		fmt.Fprintf(sb, "file: %s\n", ir.Debug.Filename)
	}
	if len(ir.LocalNames) > 0 {
		fmt.Fprintf(sb, "locals: %s\n", strings.Join(ir.LocalNames, " "))
	}

	offset := 0
	for offset < len(ir.Code) {
		in := Decode(ir.Code, offset)
		if in.Len == 0 {
			fmt.Fprintf(sb, "%04X  <truncated>\n", offset)
			break
		}
		text := ir.formatInstr(offset, in)
		if line := ir.LineAt(offset); line > 0 {
			fmt.Fprintf(sb, "%04X  %-28s ; line %d\n", offset, text, line)
		} else {
			fmt.Fprintf(sb, "%04X  %s\n", offset, text)
		}
		offset += in.Len
	}
	sb.WriteString("\n")

	for i, child := range ir.Children {
		child.disassemble(sb, fmt.Sprintf("%s.%d", label, i))
	}
}

func (ir *Irep) formatInstr(offset int, in Instr) string {
	name := in.Op.String()
	switch in.Op {
	case OpNop, OpStop:
		return name
	case OpMove:
		return fmt.Sprintf("%s R%d R%d", name, in.A, in.B)
	case OpLoadL, OpString:
		lit := ""
		if in.B < len(ir.Pool) {
			lit = ir.Pool[in.B].String()
			if len(lit) > 24 {
				lit = lit[:21] + "..."
			}
		}
		return fmt.Sprintf("%s R%d %d ; %s", name, in.A, in.B, lit)
	case OpLoadSym:
		return fmt.Sprintf("%s R%d :%s", name, in.A, ir.symName(in.B))
	case OpSend, OpSSend:
		return fmt.Sprintf("%s R%d :%s %d", name, in.A, ir.symName(in.B), in.C)
	case OpJmp:
		return fmt.Sprintf("%s %+d (-> %04X)", name, in.A, offset+in.Len+in.A)
	case OpJmpIf, OpJmpNot:
		return fmt.Sprintf("%s R%d %+d (-> %04X)", name, in.A, in.B, offset+in.Len+in.B)
	case OpMethod:
		return fmt.Sprintf("%s R%d irep[%d]", name, in.A, in.B)
	case OpDef:
		return fmt.Sprintf("%s R%d :%s", name, in.A, ir.symName(in.B))
	}

	operands := GetOpcodeInfo(in.Op).Operands
	switch len(operands) {
	case 1:
		return fmt.Sprintf("%s R%d", name, in.A)
	case 2:
		return fmt.Sprintf("%s R%d %d", name, in.A, in.B)
	case 3:
		return fmt.Sprintf("%s R%d %d %d", name, in.A, in.B, in.C)
	}
	return name
}

func (ir *Irep) symName(idx int) string {
	if idx < len(ir.Syms) {
		return ir.Syms[idx]
	}
	return fmt.Sprintf("?%d", idx)
}
