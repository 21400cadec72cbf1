package vm

import (
	"fmt"
	"math"
	"reflect"
	"strconv"
)

// Kind discriminates the two shapes a Value can take.
type Kind uint8

const (
	KindNum Kind = iota // IEEE 754 double
	KindObj             // opaque object reference, possibly null
)

func (k Kind) String() string {
	switch k {
	case KindNum:
		return "num"
	case KindObj:
		return "obj"
	default:
		return fmt.Sprintf("Kind(%d)", k)
	}
}

// Value is a tagged slot value: either a number or an object reference.
// Object references are never owned by the VM; the world manages their
// lifetime.
type Value struct {
	kind Kind
	num  float64
	obj  any
}

// Null is the null object reference.
var Null = Value{kind: KindObj}

// Num returns a numeric value.
func Num(f float64) Value {
	return Value{kind: KindNum, num: f}
}

// Bool returns 1 for true and 0 for false.
func Bool(b bool) Value {
	if b {
		return Num(1)
	}
	return Num(0)
}

// Obj returns an object value. A nil o yields Null.
func Obj(o any) Value {
	return Value{kind: KindObj, obj: o}
}

// Kind reports whether v holds a number or an object.
func (v Value) Kind() Kind { return v.kind }

// IsNum reports whether v holds a number.
func (v Value) IsNum() bool { return v.kind == KindNum }

// IsObj reports whether v holds an object reference (including null).
func (v Value) IsObj() bool { return v.kind == KindObj }

// IsNull reports whether v is the null object.
func (v Value) IsNull() bool { return v.kind == KindObj && v.obj == nil }

// Object returns the referenced object, or nil for numbers and null.
func (v Value) Object() any {
	if v.kind != KindObj {
		return nil
	}
	return v.obj
}

// Float returns the numeric interpretation of v. Objects coerce to 1 when
// non-null and 0 when null.
func (v Value) Float() float64 {
	if v.kind == KindNum {
		return v.num
	}
	if v.obj != nil {
		return 1
	}
	return 0
}

// Int returns Float truncated toward zero. Non-finite values map to 0.
func (v Value) Int() int {
	f := v.Float()
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return 0
	}
	return int(f)
}

// Same reports exact equality: same tag and same payload.
func (v Value) Same(o Value) bool {
	if v.kind != o.kind {
		return false
	}
	if v.kind == KindNum {
		return v.num == o.num || (math.IsNaN(v.num) && math.IsNaN(o.num))
	}
	return sameObject(v.obj, o.obj)
}

// Equal is the loose equality used by the equal condition: two objects
// compare by reference, everything else compares numerically within a
// small epsilon.
func (v Value) Equal(o Value) bool {
	if v.kind == KindObj && o.kind == KindObj {
		return sameObject(v.obj, o.obj)
	}
	return math.Abs(v.Float()-o.Float()) < equalityEpsilon
}

const equalityEpsilon = 0.000001

func sameObject(a, b any) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	ta, tb := reflect.TypeOf(a), reflect.TypeOf(b)
	if ta != tb || !ta.Comparable() {
		return false
	}
	return a == b
}

// Named is implemented by objects that have a display name.
type Named interface {
	Name() string
}

// String formats v the way the print instruction does.
func (v Value) String() string {
	if v.kind == KindNum {
		return FormatNum(v.num)
	}
	switch o := v.obj.(type) {
	case nil:
		return "null"
	case string:
		return o
	case Named:
		return o.Name()
	case fmt.Stringer:
		return o.String()
	default:
		return "[object]"
	}
}

// FormatNum prints integral values without a fractional part.
func FormatNum(f float64) string {
	if math.IsNaN(f) {
		return "NaN"
	}
	if math.IsInf(f, 0) {
		if f > 0 {
			return "Infinity"
		}
		return "-Infinity"
	}
	if math.Abs(f) < 1<<53 && math.Abs(f-math.Trunc(f)) < 0.00001 {
		return strconv.FormatInt(int64(math.Round(f)), 10)
	}
	return strconv.FormatFloat(f, 'g', -1, 64)
}
