package vm

import (
	"fmt"
	"strings"
)

// Disassemble returns a human-readable listing of the program.
func (p *Program) Disassemble() string {
	return p.DisassembleWithName("")
}

// DisassembleWithName returns a listing with a name header.
func (p *Program) DisassembleWithName(name string) string {
	var sb strings.Builder

	if name != "" {
		sb.WriteString(fmt.Sprintf("; === %s ===\n", name))
	}
	sb.WriteString(fmt.Sprintf("; %d instructions, %d slots\n", len(p.Instructions), p.Vars.Len()))

	if p.Vars.Len() > 0 {
		sb.WriteString("; Slots:\n")
		for i, v := range p.Vars.All() {
			flag := "var"
			if v.Constant {
				flag = "const"
			}
			display := v.Value.String()
			if len(display) > 40 {
				display = display[:37] + "..."
			}
			display = strings.ReplaceAll(display, "\n", "\\n")
			sb.WriteString(fmt.Sprintf(";   [%3d] %-5s %-3s %-16s = %s\n", i, flag, v.Decl, v.Name, display))
		}
	}
	sb.WriteString("\n")

	for i := range p.Instructions {
		sb.WriteString(p.FormatInstruction(i))
		sb.WriteString("\n")
	}
	return sb.String()
}

// FormatInstruction formats the instruction at index i as a single listing
// line.
func (p *Program) FormatInstruction(i int) string {
	ins := p.Instructions[i]
	name := func(s Slot) string {
		if s < 0 || int(s) >= p.Vars.Len() {
			return "_"
		}
		return p.Vars.Var(s).Name
	}

	var operands string
	switch ins.Op {
	case OpSet:
		operands = fmt.Sprintf("%s = %s", name(ins.Dst), name(ins.A))
	case OpOp:
		if ins.Arith.Unary() {
			operands = fmt.Sprintf("%s = %s %s", name(ins.Dst), ins.Arith, name(ins.A))
		} else {
			operands = fmt.Sprintf("%s = %s %s %s", name(ins.Dst), name(ins.A), ins.Arith.Symbol(), name(ins.B))
		}
	case OpJump:
		if ins.Cond == CondAlways {
			operands = fmt.Sprintf("-> %04d", ins.Target)
		} else {
			operands = fmt.Sprintf("-> %04d if %s %s %s", ins.Target, name(ins.A), ins.Cond, name(ins.B))
		}
	case OpRead:
		operands = fmt.Sprintf("%s = mem[%s]", name(ins.Dst), name(ins.A))
	case OpWrite:
		operands = fmt.Sprintf("mem[%s] = %s", name(ins.B), name(ins.A))
	case OpSensor:
		operands = fmt.Sprintf("%s = %s.%s", name(ins.Dst), name(ins.A), ins.Prop)
	case OpControl:
		operands = fmt.Sprintf("%s.%s = %s", name(ins.A), ins.Prop, name(ins.B))
	case OpPrint, OpPrintFlush:
		operands = name(ins.A)
	case OpGetLink:
		operands = fmt.Sprintf("%s = link[%s]", name(ins.Dst), name(ins.A))
	}

	line := ""
	if ins.Line > 0 {
		line = fmt.Sprintf("  ; line %d", ins.Line)
	}
	return strings.TrimRight(fmt.Sprintf("%04d  %-10s %s", i, ins.Op, operands), " ") + line
}
