package vm

import (
	"math"
	"math/rand/v2"
	"strings"
	"unicode/utf8"
)

// DefaultTextLimit caps the print buffer, in bytes.
const DefaultTextLimit = 400

// TextSink receives flushed print buffers.
type TextSink interface {
	SetText(text string)
}

// Sensor is implemented by objects whose properties the sensor
// instruction can read. Unknown properties yield Null.
type Sensor interface {
	Sense(prop string) Value
}

// Controllable is implemented by objects the control instruction can
// drive.
type Controllable interface {
	Control(prop string, v Value)
}

// Executor runs a Program one instruction at a time. It owns the memory
// bank, the program counter and the print buffer; the symbol table comes
// with each loaded program.
type Executor struct {
	instructions []Instruction
	vars         *SymbolTable
	memory       []float64
	counter      int
	initialized  bool

	links     []Value
	text      strings.Builder
	textLimit int
	rng       *rand.Rand
}

// NewExecutor returns an uninitialized executor with a zeroed memory bank
// of the given length.
func NewExecutor(memory int) *Executor {
	if memory < 0 {
		memory = 0
	}
	e := &Executor{
		vars:      NewSymbolTable(),
		memory:    make([]float64, memory),
		textLimit: DefaultTextLimit,
	}
	e.SetSeed(0)
	return e
}

// Load replaces the program atomically and resets the counter. The memory
// bank is kept.
func (e *Executor) Load(p *Program) {
	if p == nil {
		p = EmptyProgram()
	}
	e.instructions = p.Instructions
	e.vars = p.Vars
	if e.vars == nil {
		e.vars = NewSymbolTable()
	}
	e.counter = 0
	e.initialized = true
}

// Initialized reports whether a program has been loaded at least once.
func (e *Executor) Initialized() bool {
	return e.initialized
}

// Counter returns the index of the next instruction.
func (e *Executor) Counter() int {
	return e.counter
}

// Len returns the number of loaded instructions.
func (e *Executor) Len() int {
	return len(e.instructions)
}

// Instructions returns the loaded instruction sequence. Callers must not
// modify it.
func (e *Executor) Instructions() []Instruction {
	return e.instructions
}

// Vars returns the live symbol table.
func (e *Executor) Vars() *SymbolTable {
	return e.vars
}

// Memory returns the live memory bank.
func (e *Executor) Memory() []float64 {
	return e.memory
}

// RestoreMemory copies persisted cells into the bank, keeping the bank's
// current length: extra cells are dropped and missing ones read as zero.
func (e *Executor) RestoreMemory(cells []float64) {
	bank := make([]float64, len(e.memory))
	copy(bank, cells)
	e.memory = bank
}

// SetLinks sets the objects reachable through getlink.
func (e *Executor) SetLinks(links []Value) {
	e.links = links
}

// SetSeed reseeds the stream used by the rand operation.
func (e *Executor) SetSeed(seed uint64) {
	e.rng = rand.New(rand.NewPCG(seed, seed^0x9E3779B97F4A7C15))
}

// SetTextLimit caps the print buffer at n bytes.
func (e *Executor) SetTextLimit(n int) {
	e.textLimit = n
}

// Text returns the unflushed print buffer.
func (e *Executor) Text() string {
	return e.text.String()
}

// RunOnce executes exactly one instruction and advances the counter,
// wrapping to the first instruction after the last. It is a no-op when
// the executor is uninitialized or the program is empty.
func (e *Executor) RunOnce() {
	n := len(e.instructions)
	if !e.initialized || n == 0 {
		return
	}
	if e.counter < 0 || e.counter >= n {
		e.counter = 0
	}

	ins := &e.instructions[e.counter]
	e.counter++
	if e.counter >= n {
		e.counter = 0
	}
	e.exec(ins)
}

func (e *Executor) exec(ins *Instruction) {
	v := e.vars
	switch ins.Op {
	case OpNoop:

	case OpSet:
		v.Set(ins.Dst, v.Get(ins.A))

	case OpOp:
		v.Set(ins.Dst, ins.Arith.Apply(v.Get(ins.A), v.Get(ins.B), e.rng))

	case OpJump:
		if ins.Cond.Test(v.Get(ins.A), v.Get(ins.B)) {
			if ins.Target >= 0 && ins.Target < len(e.instructions) {
				e.counter = ins.Target
			}
		}

	case OpRead:
		if addr, ok := e.address(v.Get(ins.A)); ok {
			v.Set(ins.Dst, Num(e.memory[addr]))
		} else {
			v.Set(ins.Dst, Num(0))
		}

	case OpWrite:
		if addr, ok := e.address(v.Get(ins.B)); ok {
			e.memory[addr] = v.Get(ins.A).Float()
		}

	case OpSensor:
		if s, ok := v.Get(ins.A).Object().(Sensor); ok {
			v.Set(ins.Dst, s.Sense(ins.Prop))
		} else {
			v.Set(ins.Dst, Null)
		}

	case OpControl:
		if c, ok := v.Get(ins.A).Object().(Controllable); ok {
			c.Control(ins.Prop, v.Get(ins.B))
		}

	case OpPrint:
		s := v.Get(ins.A).String()
		if room := e.textLimit - e.text.Len(); room > 0 {
			if len(s) > room {
				for room > 0 && !utf8.RuneStart(s[room]) {
					room--
				}
				s = s[:room]
			}
			e.text.WriteString(s)
		}

	case OpPrintFlush:
		if sink, ok := v.Get(ins.A).Object().(TextSink); ok {
			sink.SetText(e.text.String())
		}
		e.text.Reset()

	case OpGetLink:
		i := v.Get(ins.A).Float()
		if i >= 0 && i < float64(len(e.links)) {
			v.Set(ins.Dst, e.links[int(i)])
		} else {
			v.Set(ins.Dst, Null)
		}

	case OpEnd:
		e.counter = 0
	}
}

// address converts a value to a memory index.
func (e *Executor) address(v Value) (int, bool) {
	f := v.Float()
	if math.IsNaN(f) || f < 0 || f >= float64(len(e.memory)) {
		return 0, false
	}
	return int(f), true
}
