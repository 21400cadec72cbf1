package vm

// Instruction is one decoded operation. Operands are resolved to symbol
// table slots at assembly time. Instructions are never mutated after
// assembly; a recompile replaces the whole sequence.
type Instruction struct {
	Op     Opcode
	Arith  ArithOp   // OpOp only
	Cond   Condition // OpJump only
	Dst    Slot
	A, B   Slot
	Target int    // OpJump destination index
	Prop   string // OpSensor / OpControl property name
	Line   int    // 1-based source line, 0 when synthesized
}

// Program is an assembled instruction sequence plus the symbol table its
// slots index into.
type Program struct {
	Instructions []Instruction
	Vars         *SymbolTable
}

// EmptyProgram returns a valid zero-instruction program.
func EmptyProgram() *Program {
	return &Program{Vars: NewSymbolTable()}
}

// Len returns the number of instructions.
func (p *Program) Len() int {
	return len(p.Instructions)
}

// Clone returns a program that shares the immutable instruction slice and
// owns a private copy of the symbol table.
func (p *Program) Clone() *Program {
	return &Program{
		Instructions: p.Instructions,
		Vars:         p.Vars.Clone(),
	}
}
