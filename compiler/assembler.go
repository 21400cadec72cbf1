package compiler

import (
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/chazu/logicproc/vm"
)

// ---------------------------------------------------------------------------
// Assembler: logic source -> vm.Program
// ---------------------------------------------------------------------------

// Builtins are the predefined numeric constants.
var Builtins = map[string]float64{
	"@pi":       math.Pi,
	"@e":        math.E,
	"@degToRad": math.Pi / 180,
	"@radToDeg": 180 / math.Pi,
}

// Assemble translates src into a program. Malformed lines are recovered as
// noop and reported as warnings; structural failures return a
// *CompileError and no program. Assemble never panics.
func Assemble(src string, opts Options) (*vm.Program, []Diagnostic, error) {
	limits := opts.Limits.WithDefaults()
	if len(src) > limits.MaxSourceBytes {
		return nil, nil, &CompileError{
			Msg: fmt.Sprintf("source is %d bytes, limit is %d", len(src), limits.MaxSourceBytes),
		}
	}

	lines, err := Lex(src)
	if err != nil {
		return nil, nil, err
	}

	a := &assembler{
		prog:   vm.EmptyProgram(),
		labels: make(map[string]int),
		writes: make(map[string]vm.Decl),
		limits: limits,
	}
	if err := a.collectLabels(lines); err != nil {
		return nil, nil, err
	}
	for _, ln := range lines {
		if len(ln.Tokens) == 0 {
			continue
		}
		a.prog.Instructions = append(a.prog.Instructions, a.instruction(ln))
		if a.prog.Vars.Len() > limits.MaxVariables {
			return nil, a.diags, &CompileError{
				Line: ln.Number,
				Msg:  fmt.Sprintf("more than %d variables", limits.MaxVariables),
			}
		}
	}
	a.declare()

	if opts.Strict && len(a.diags) > 0 {
		d := a.diags[0]
		return nil, a.diags, &CompileError{Line: d.Line, Column: d.Column, Msg: d.Message}
	}
	return a.prog, a.diags, nil
}

type assembler struct {
	prog   *vm.Program
	labels map[string]int
	count  int
	diags  []Diagnostic
	limits Limits

	// writes holds the declared kind inferred so far for every variable
	// written by some instruction, keyed by name.
	writes map[string]vm.Decl
	order  []string
}

// collectLabels maps every label to the index of the instruction that
// follows it.
func (a *assembler) collectLabels(lines []Line) error {
	n := 0
	for _, ln := range lines {
		if ln.Label != nil {
			if _, dup := a.labels[ln.Label.Literal]; dup {
				return &CompileError{
					Line:   ln.Number,
					Column: ln.Label.Pos.Column,
					Msg:    fmt.Sprintf("duplicate label %q", ln.Label.Literal),
				}
			}
			a.labels[ln.Label.Literal] = n
		}
		if len(ln.Tokens) > 0 {
			n++
			if n > a.limits.MaxInstructions {
				return &CompileError{
					Line: ln.Number,
					Msg:  fmt.Sprintf("more than %d instructions", a.limits.MaxInstructions),
				}
			}
		}
	}
	a.count = n
	// A trailing label points one past the end, which is where the
	// counter wraps to anyway.
	for name, idx := range a.labels {
		if idx >= n {
			a.labels[name] = 0
		}
	}
	return nil
}

func (a *assembler) warn(tok Token, format string, args ...any) {
	a.diags = append(a.diags, Diagnostic{
		Line:     tok.Pos.Line,
		Column:   tok.Pos.Column,
		Severity: SeverityWarning,
		Message:  fmt.Sprintf(format, args...),
	})
}

func noop(line int) vm.Instruction {
	return vm.Instruction{Op: vm.OpNoop, Dst: vm.NoSlot, A: vm.NoSlot, B: vm.NoSlot, Line: line}
}

func (a *assembler) instruction(ln Line) vm.Instruction {
	head := ln.Tokens[0]
	args := ln.Tokens[1:]
	ins := noop(ln.Number)

	if head.Type != TokenWord {
		a.warn(head, "expected an instruction, found %s", head.Type)
		return ins
	}

	op, ok := vm.LookupOpcode(head.Literal)
	if !ok {
		if arith, isArith := vm.LookupArith(head.Literal); isArith {
			return a.arith(ln, head, arith, args)
		}
		a.warn(head, "unknown instruction %q", head.Literal)
		return ins
	}

	info := op.Info()
	if op != vm.OpOp && op != vm.OpJump && len(args) != info.Operands {
		a.warn(head, "%s takes %d operands, got %d (usage: %s)", head.Literal, info.Operands, len(args), info.Usage)
		return ins
	}

	ins.Op = op
	switch op {
	case vm.OpNoop, vm.OpEnd:

	case vm.OpSet:
		ins.Dst = a.dest(args[0])
		ins.A = a.operand(args[1])
		a.write(args[0], a.sourceDecl(args[1]))

	case vm.OpOp:
		if len(args) == 0 {
			a.warn(head, "op needs an operation name (usage: %s)", info.Usage)
			return noop(ln.Number)
		}
		arith, ok := vm.LookupArith(args[0].Literal)
		if !ok || args[0].Type != TokenWord {
			a.warn(args[0], "unknown operation %q", args[0].Literal)
			return noop(ln.Number)
		}
		return a.arith(ln, args[0], arith, args[1:])

	case vm.OpJump:
		return a.jump(ln, head, args)

	case vm.OpRead:
		ins.Dst = a.dest(args[0])
		ins.A = a.operand(args[1])
		a.write(args[0], vm.DeclNum)

	case vm.OpWrite:
		ins.A = a.operand(args[0])
		ins.B = a.operand(args[1])

	case vm.OpSensor:
		ins.Dst = a.dest(args[0])
		ins.A = a.operand(args[1])
		ins.Prop = strings.TrimPrefix(args[2].Literal, "@")
		a.write(args[0], vm.DeclAny)

	case vm.OpControl:
		ins.Prop = strings.TrimPrefix(args[0].Literal, "@")
		ins.A = a.operand(args[1])
		ins.B = a.operand(args[2])

	case vm.OpPrint, vm.OpPrintFlush:
		ins.A = a.operand(args[0])

	case vm.OpGetLink:
		ins.Dst = a.dest(args[0])
		ins.A = a.operand(args[1])
		a.write(args[0], vm.DeclObj)
	}
	return ins
}

// arith assembles "op name dst a [b]" or its shorthand "name dst a [b]".
func (a *assembler) arith(ln Line, at Token, arith vm.ArithOp, args []Token) vm.Instruction {
	want := 3
	if arith.Unary() {
		want = 2
	}
	if len(args) != want && !(arith.Unary() && len(args) == 3) {
		a.warn(at, "%s takes %d operands, got %d", arith, want, len(args))
		return noop(ln.Number)
	}
	ins := vm.Instruction{
		Op:    vm.OpOp,
		Arith: arith,
		Dst:   a.dest(args[0]),
		A:     a.operand(args[1]),
		B:     vm.NoSlot,
		Line:  ln.Number,
	}
	if len(args) == 3 {
		ins.B = a.operand(args[2])
	}
	a.write(args[0], vm.DeclNum)
	return ins
}

// jump assembles "jump target cond [a b]".
func (a *assembler) jump(ln Line, head Token, args []Token) vm.Instruction {
	if len(args) < 2 {
		a.warn(head, "jump needs a target and a condition")
		return noop(ln.Number)
	}
	target, ok := a.target(args[0])
	if !ok {
		return noop(ln.Number)
	}
	cond, ok := vm.LookupCondition(args[1].Literal)
	if !ok || args[1].Type != TokenWord {
		a.warn(args[1], "unknown condition %q", args[1].Literal)
		return noop(ln.Number)
	}

	ins := vm.Instruction{Op: vm.OpJump, Cond: cond, Target: target, Dst: vm.NoSlot, A: vm.NoSlot, B: vm.NoSlot, Line: ln.Number}
	operands := args[2:]
	if cond == vm.CondAlways {
		// Comparison operands are ignored but still resolved so the
		// slot layout matches what the source names.
		for i, tok := range operands {
			if i == 0 {
				ins.A = a.operand(tok)
			} else if i == 1 {
				ins.B = a.operand(tok)
			}
		}
		return ins
	}
	if len(operands) != 2 {
		a.warn(head, "jump %s needs two operands, got %d", cond, len(operands))
		return noop(ln.Number)
	}
	ins.A = a.operand(operands[0])
	ins.B = a.operand(operands[1])
	return ins
}

func (a *assembler) target(tok Token) (int, bool) {
	if tok.Type == TokenWord {
		if idx, ok := a.labels[tok.Literal]; ok {
			return idx, true
		}
		if f, ok := parseNumber(tok.Literal); ok {
			if f != math.Trunc(f) || f < 0 || f >= float64(a.count) {
				a.warn(tok, "jump target %s is out of range", tok.Literal)
				return 0, false
			}
			return int(f), true
		}
	}
	a.warn(tok, "unknown label %q", tok.Literal)
	return 0, false
}

// operand resolves a token to a slot, declaring it when needed.
func (a *assembler) operand(tok Token) vm.Slot {
	t := a.prog.Vars
	if tok.Type == TokenString {
		return t.Constant(strconv.Quote(tok.Literal), vm.Obj(tok.Literal))
	}
	name := tok.Literal
	switch name {
	case "true":
		return t.Constant(name, vm.Num(1))
	case "false":
		return t.Constant(name, vm.Num(0))
	case "null":
		return t.Constant(name, vm.Null)
	}
	if f, ok := parseNumber(name); ok {
		return t.Constant(name, vm.Num(f))
	}
	if strings.HasPrefix(name, "@") {
		if f, ok := Builtins[name]; ok {
			return t.Constant(name, vm.Num(f))
		}
		return t.Constant(name, vm.Null)
	}
	if s, ok := t.Lookup(name); ok {
		return s
	}
	return t.Declare(name, vm.DeclAny)
}

// dest resolves a destination operand.
func (a *assembler) dest(tok Token) vm.Slot {
	s := a.operand(tok)
	if a.prog.Vars.Var(s).Constant {
		a.warn(tok, "%s is a constant; writes to it are ignored", tok.Literal)
	}
	return s
}

// sourceDecl is the kind a set instruction copying tok produces.
func (a *assembler) sourceDecl(tok Token) vm.Decl {
	if tok.Type == TokenString {
		return vm.DeclObj
	}
	switch name := tok.Literal; {
	case name == "true" || name == "false":
		return vm.DeclNum
	case name == "null":
		return vm.DeclObj
	case strings.HasPrefix(name, "@"):
		if _, ok := Builtins[name]; ok {
			return vm.DeclNum
		}
		return vm.DeclAny
	default:
		if _, ok := parseNumber(name); ok {
			return vm.DeclNum
		}
	}
	return vm.DeclAny
}

// write records that the variable named by tok is written with a value
// of kind d. Conflicting writes widen the declaration to any.
func (a *assembler) write(tok Token, d vm.Decl) {
	s, ok := a.prog.Vars.Lookup(tok.Literal)
	if tok.Type != TokenWord || !ok || a.prog.Vars.Var(s).Constant {
		return
	}
	prev, seen := a.writes[tok.Literal]
	if !seen {
		a.writes[tok.Literal] = d
		a.order = append(a.order, tok.Literal)
		return
	}
	if prev != d {
		a.writes[tok.Literal] = vm.DeclAny
	}
}

// declare applies the inferred kinds to the symbol table.
func (a *assembler) declare() {
	for _, name := range a.order {
		a.prog.Vars.Declare(name, a.writes[name])
	}
}

// parseNumber parses a numeric literal: decimal, exponent, 0x hex or 0b
// binary, with an optional sign. Words like "inf" or "nan" are not
// numbers.
func parseNumber(s string) (float64, bool) {
	body := s
	neg := false
	if len(body) > 0 && (body[0] == '-' || body[0] == '+') {
		neg = body[0] == '-'
		body = body[1:]
	}
	if body == "" {
		return 0, false
	}
	if c := body[0]; !(c >= '0' && c <= '9') && !(c == '.' && len(body) > 1 && body[1] >= '0' && body[1] <= '9') {
		return 0, false
	}

	var f float64
	switch {
	case len(body) > 2 && (body[:2] == "0x" || body[:2] == "0X"):
		n, err := strconv.ParseUint(body[2:], 16, 64)
		if err != nil {
			return 0, false
		}
		f = float64(n)
	case len(body) > 2 && (body[:2] == "0b" || body[:2] == "0B"):
		n, err := strconv.ParseUint(body[2:], 2, 64)
		if err != nil {
			return 0, false
		}
		f = float64(n)
	default:
		if strings.ContainsAny(body, "_xXpP") {
			return 0, false
		}
		v, err := strconv.ParseFloat(body, 64)
		if err != nil && !errors.Is(err, strconv.ErrRange) {
			return 0, false
		}
		f = v
	}
	if neg {
		f = -f
	}
	return f, true
}
