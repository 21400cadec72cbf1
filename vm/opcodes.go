package vm

import (
	"fmt"
	"math"
	"math/rand/v2"
)

// Opcode identifies an instruction.
type Opcode byte

const (
	OpNoop       Opcode = 0x00 // No operation
	OpSet        Opcode = 0x01 // dst = a
	OpOp         Opcode = 0x02 // dst = arith(a, b)
	OpJump       Opcode = 0x03 // if cond(a, b) { counter = target }
	OpRead       Opcode = 0x10 // dst = memory[a]
	OpWrite      Opcode = 0x11 // memory[b] = a
	OpSensor     Opcode = 0x20 // dst = a.prop
	OpControl    Opcode = 0x21 // a.prop = b
	OpPrint      Opcode = 0x22 // text += a
	OpPrintFlush Opcode = 0x23 // a.text = text; text = ""
	OpGetLink    Opcode = 0x24 // dst = links[a]
	OpEnd        Opcode = 0xF0 // counter = 0
)

// OpcodeInfo provides metadata about each opcode for the assembler,
// disassembler and editor tooling.
type OpcodeInfo struct {
	Name     string // Mnemonic
	Operands int    // Operand tokens after the mnemonic
	Usage    string // Operand synopsis
	Doc      string // One-line description
}

var opcodeInfoTable = map[Opcode]OpcodeInfo{
	OpNoop:       {"noop", 0, "", "Do nothing."},
	OpSet:        {"set", 2, "dst value", "Assign value to dst."},
	OpOp:         {"op", 4, "name dst a [b]", "Apply an arithmetic or comparison operation."},
	OpJump:       {"jump", 4, "target cond [a b]", "Jump to a label or instruction index when cond(a, b) holds."},
	OpRead:       {"read", 2, "dst index", "Read a memory cell; out-of-range reads yield 0."},
	OpWrite:      {"write", 2, "value index", "Write a memory cell; out-of-range writes are ignored."},
	OpSensor:     {"sensor", 3, "dst object property", "Read a property of a linked object."},
	OpControl:    {"control", 3, "property object value", "Set a property of a linked object."},
	OpPrint:      {"print", 1, "value", "Append a value to the text buffer."},
	OpPrintFlush: {"printflush", 1, "object", "Send the text buffer to an object and clear it."},
	OpGetLink:    {"getlink", 2, "dst index", "Fetch the linked object at index."},
	OpEnd:        {"end", 0, "", "Restart the program from the first instruction."},
}

// Info returns metadata for op.
func (op Opcode) Info() OpcodeInfo {
	if info, ok := opcodeInfoTable[op]; ok {
		return info
	}
	return OpcodeInfo{Name: fmt.Sprintf("UNKNOWN(0x%02X)", byte(op))}
}

func (op Opcode) String() string {
	return op.Info().Name
}

var opcodesByName = func() map[string]Opcode {
	m := make(map[string]Opcode, len(opcodeInfoTable))
	for op, info := range opcodeInfoTable {
		m[info.Name] = op
	}
	return m
}()

// LookupOpcode returns the opcode with the given mnemonic.
func LookupOpcode(name string) (Opcode, bool) {
	op, ok := opcodesByName[name]
	return op, ok
}

// Opcodes returns every opcode in mnemonic table order.
func Opcodes() []Opcode {
	return []Opcode{OpNoop, OpSet, OpOp, OpJump, OpRead, OpWrite, OpSensor,
		OpControl, OpPrint, OpPrintFlush, OpGetLink, OpEnd}
}

// ============================================================================
// Arithmetic
// ============================================================================

// ArithOp selects the operation an OpOp instruction performs.
type ArithOp uint8

const (
	ArithAdd ArithOp = iota
	ArithSub
	ArithMul
	ArithDiv
	ArithIdiv
	ArithMod
	ArithPow
	ArithEqual
	ArithNotEqual
	ArithLand
	ArithLessThan
	ArithLessThanEq
	ArithGreaterThan
	ArithGreaterThanEq
	ArithStrictEqual
	ArithShl
	ArithShr
	ArithOr
	ArithAnd
	ArithXor
	ArithNot
	ArithMax
	ArithMin
	ArithAngle
	ArithLen
	ArithAbs
	ArithLog
	ArithLog10
	ArithFloor
	ArithCeil
	ArithSqrt
	ArithRand
	ArithSin
	ArithCos
	ArithTan
	ArithAsin
	ArithAcos
	ArithAtan
	arithCount
)

type arithInfo struct {
	name   string
	symbol string
	unary  bool
}

var arithTable = [arithCount]arithInfo{
	ArithAdd:           {"add", "+", false},
	ArithSub:           {"sub", "-", false},
	ArithMul:           {"mul", "*", false},
	ArithDiv:           {"div", "/", false},
	ArithIdiv:          {"idiv", "//", false},
	ArithMod:           {"mod", "%", false},
	ArithPow:           {"pow", "^", false},
	ArithEqual:         {"equal", "==", false},
	ArithNotEqual:      {"notEqual", "!=", false},
	ArithLand:          {"land", "&&", false},
	ArithLessThan:      {"lessThan", "<", false},
	ArithLessThanEq:    {"lessThanEq", "<=", false},
	ArithGreaterThan:   {"greaterThan", ">", false},
	ArithGreaterThanEq: {"greaterThanEq", ">=", false},
	ArithStrictEqual:   {"strictEqual", "===", false},
	ArithShl:           {"shl", "<<", false},
	ArithShr:           {"shr", ">>", false},
	ArithOr:            {"or", "|", false},
	ArithAnd:           {"and", "&", false},
	ArithXor:           {"xor", "xor", false},
	ArithNot:           {"not", "~", true},
	ArithMax:           {"max", "max", false},
	ArithMin:           {"min", "min", false},
	ArithAngle:         {"angle", "angle", false},
	ArithLen:           {"len", "len", false},
	ArithAbs:           {"abs", "abs", true},
	ArithLog:           {"log", "log", true},
	ArithLog10:         {"log10", "log10", true},
	ArithFloor:         {"floor", "floor", true},
	ArithCeil:          {"ceil", "ceil", true},
	ArithSqrt:          {"sqrt", "sqrt", true},
	ArithRand:          {"rand", "rand", true},
	ArithSin:           {"sin", "sin", true},
	ArithCos:           {"cos", "cos", true},
	ArithTan:           {"tan", "tan", true},
	ArithAsin:          {"asin", "asin", true},
	ArithAcos:          {"acos", "acos", true},
	ArithAtan:          {"atan", "atan", true},
}

var arithByName = func() map[string]ArithOp {
	m := make(map[string]ArithOp, arithCount)
	for i, info := range arithTable {
		m[info.name] = ArithOp(i)
	}
	return m
}()

// LookupArith returns the operation with the given name.
func LookupArith(name string) (ArithOp, bool) {
	op, ok := arithByName[name]
	return op, ok
}

// ArithOps returns every operation in table order.
func ArithOps() []ArithOp {
	out := make([]ArithOp, arithCount)
	for i := range out {
		out[i] = ArithOp(i)
	}
	return out
}

func (op ArithOp) String() string {
	if op < arithCount {
		return arithTable[op].name
	}
	return fmt.Sprintf("ArithOp(%d)", op)
}

// Symbol returns the operator glyph used in listings.
func (op ArithOp) Symbol() string {
	if op < arithCount {
		return arithTable[op].symbol
	}
	return "?"
}

// Unary reports whether op ignores its second operand.
func (op ArithOp) Unary() bool {
	return op < arithCount && arithTable[op].unary
}

const (
	degToRad = math.Pi / 180
	radToDeg = 180 / math.Pi
)

// Apply evaluates op. rng is only consulted by ArithRand.
func (op ArithOp) Apply(a, b Value, rng *rand.Rand) Value {
	switch op {
	case ArithEqual:
		return Bool(a.Equal(b))
	case ArithNotEqual:
		return Bool(!a.Equal(b))
	case ArithStrictEqual:
		return Bool(a.Same(b))
	}

	x, y := a.Float(), b.Float()
	switch op {
	case ArithAdd:
		return Num(x + y)
	case ArithSub:
		return Num(x - y)
	case ArithMul:
		return Num(x * y)
	case ArithDiv:
		return Num(x / y)
	case ArithIdiv:
		return Num(math.Floor(x / y))
	case ArithMod:
		return Num(math.Mod(x, y))
	case ArithPow:
		return Num(math.Pow(x, y))
	case ArithLand:
		return Bool(x != 0 && y != 0)
	case ArithLessThan:
		return Bool(x < y)
	case ArithLessThanEq:
		return Bool(x <= y)
	case ArithGreaterThan:
		return Bool(x > y)
	case ArithGreaterThanEq:
		return Bool(x >= y)
	case ArithShl:
		return Num(float64(toLong(x) << uint64(toLong(y)&63)))
	case ArithShr:
		return Num(float64(toLong(x) >> uint64(toLong(y)&63)))
	case ArithOr:
		return Num(float64(toLong(x) | toLong(y)))
	case ArithAnd:
		return Num(float64(toLong(x) & toLong(y)))
	case ArithXor:
		return Num(float64(toLong(x) ^ toLong(y)))
	case ArithNot:
		return Num(float64(^toLong(x)))
	case ArithMax:
		return Num(math.Max(x, y))
	case ArithMin:
		return Num(math.Min(x, y))
	case ArithAngle:
		deg := math.Atan2(y, x) * radToDeg
		if deg < 0 {
			deg += 360
		}
		return Num(deg)
	case ArithLen:
		return Num(math.Hypot(x, y))
	case ArithAbs:
		return Num(math.Abs(x))
	case ArithLog:
		return Num(math.Log(x))
	case ArithLog10:
		return Num(math.Log10(x))
	case ArithFloor:
		return Num(math.Floor(x))
	case ArithCeil:
		return Num(math.Ceil(x))
	case ArithSqrt:
		return Num(math.Sqrt(x))
	case ArithRand:
		if rng == nil {
			return Num(0)
		}
		return Num(rng.Float64() * x)
	case ArithSin:
		return Num(math.Sin(x * degToRad))
	case ArithCos:
		return Num(math.Cos(x * degToRad))
	case ArithTan:
		return Num(math.Tan(x * degToRad))
	case ArithAsin:
		return Num(math.Asin(x) * radToDeg)
	case ArithAcos:
		return Num(math.Acos(x) * radToDeg)
	case ArithAtan:
		return Num(math.Atan(x) * radToDeg)
	}
	return Null
}

// toLong mirrors a saturating float-to-int64 conversion; NaN maps to 0.
func toLong(f float64) int64 {
	switch {
	case math.IsNaN(f):
		return 0
	case f >= math.MaxInt64:
		return math.MaxInt64
	case f <= math.MinInt64:
		return math.MinInt64
	}
	return int64(f)
}

// ============================================================================
// Jump conditions
// ============================================================================

// Condition is the predicate a jump tests.
type Condition uint8

const (
	CondEqual Condition = iota
	CondNotEqual
	CondLessThan
	CondLessThanEq
	CondGreaterThan
	CondGreaterThanEq
	CondStrictEqual
	CondAlways
	condCount
)

var conditionNames = [condCount]string{
	CondEqual:         "equal",
	CondNotEqual:      "notEqual",
	CondLessThan:      "lessThan",
	CondLessThanEq:    "lessThanEq",
	CondGreaterThan:   "greaterThan",
	CondGreaterThanEq: "greaterThanEq",
	CondStrictEqual:   "strictEqual",
	CondAlways:        "always",
}

// LookupCondition returns the condition with the given name.
func LookupCondition(name string) (Condition, bool) {
	for i, n := range conditionNames {
		if n == name {
			return Condition(i), true
		}
	}
	return 0, false
}

// Conditions returns every jump condition.
func Conditions() []Condition {
	out := make([]Condition, condCount)
	for i := range out {
		out[i] = Condition(i)
	}
	return out
}

func (c Condition) String() string {
	if c < condCount {
		return conditionNames[c]
	}
	return fmt.Sprintf("Condition(%d)", c)
}

// Test evaluates the condition.
func (c Condition) Test(a, b Value) bool {
	switch c {
	case CondEqual:
		return a.Equal(b)
	case CondNotEqual:
		return !a.Equal(b)
	case CondLessThan:
		return a.Float() < b.Float()
	case CondLessThanEq:
		return a.Float() <= b.Float()
	case CondGreaterThan:
		return a.Float() > b.Float()
	case CondGreaterThanEq:
		return a.Float() >= b.Float()
	case CondStrictEqual:
		return a.Same(b)
	case CondAlways:
		return true
	}
	return false
}
