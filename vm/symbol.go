package vm

import "fmt"

// Slot indexes a variable in a SymbolTable.
type Slot int32

// NoSlot marks an unused operand.
const NoSlot Slot = -1

// Decl is the kind of value a variable slot was declared to hold. The
// assembler infers it from the instructions that write the variable.
type Decl uint8

const (
	DeclAny Decl = iota // written with both kinds, or never written
	DeclNum             // only ever written with numbers
	DeclObj             // only ever written with object references
)

func (d Decl) String() string {
	switch d {
	case DeclAny:
		return "any"
	case DeclNum:
		return "num"
	case DeclObj:
		return "obj"
	default:
		return fmt.Sprintf("Decl(%d)", d)
	}
}

// Accepts reports whether a value of kind k may be stored in a slot
// declared d.
func (d Decl) Accepts(k Kind) bool {
	switch d {
	case DeclNum:
		return k == KindNum
	case DeclObj:
		return k == KindObj
	default:
		return true
	}
}

// Zero returns the initial value of a fresh slot declared d.
func (d Decl) Zero() Value {
	if d == DeclNum {
		return Num(0)
	}
	return Null
}

// Var is one named slot.
type Var struct {
	Name     string
	Constant bool
	Decl     Decl
	Value    Value
}

// Binding is a name/value pair applied to a symbol table by Overlay.
type Binding struct {
	Name  string
	Value Value
}

// SymbolTable maps variable names to slots. Slot order is the order of
// first declaration and is stable across clones.
type SymbolTable struct {
	vars  []Var
	index map[string]Slot
}

// NewSymbolTable returns an empty table.
func NewSymbolTable() *SymbolTable {
	return &SymbolTable{index: make(map[string]Slot)}
}

// Len returns the number of slots.
func (t *SymbolTable) Len() int {
	return len(t.vars)
}

// Lookup returns the slot for name.
func (t *SymbolTable) Lookup(name string) (Slot, bool) {
	s, ok := t.index[name]
	return s, ok
}

// Var returns a copy of the variable in slot s.
func (t *SymbolTable) Var(s Slot) Var {
	return t.vars[s]
}

// VarByName returns a copy of the named variable.
func (t *SymbolTable) VarByName(name string) (Var, bool) {
	s, ok := t.index[name]
	if !ok {
		return Var{}, false
	}
	return t.vars[s], true
}

// All returns a copy of every slot in slot order.
func (t *SymbolTable) All() []Var {
	out := make([]Var, len(t.vars))
	copy(out, t.vars)
	return out
}

// Declare creates a mutable variable, or re-declares an existing mutable
// one with decl (resetting it to decl's zero value). Constants are left
// untouched.
func (t *SymbolTable) Declare(name string, decl Decl) Slot {
	if s, ok := t.index[name]; ok {
		v := &t.vars[s]
		if !v.Constant {
			v.Decl = decl
			v.Value = decl.Zero()
		}
		return s
	}
	return t.add(Var{Name: name, Decl: decl, Value: decl.Zero()})
}

// Constant interns a constant slot. An existing slot with the same name is
// returned unchanged; literal names are unique per value.
func (t *SymbolTable) Constant(name string, v Value) Slot {
	if s, ok := t.index[name]; ok {
		return s
	}
	return t.add(Var{Name: name, Constant: true, Decl: declOf(v), Value: v})
}

// PutConst binds name to v as a constant, creating the slot when absent
// and overriding whatever the slot held before.
func (t *SymbolTable) PutConst(name string, v Value) Slot {
	if s, ok := t.index[name]; ok {
		t.vars[s] = Var{Name: name, Constant: true, Decl: declOf(v), Value: v}
		return s
	}
	return t.add(Var{Name: name, Constant: true, Decl: declOf(v), Value: v})
}

func declOf(v Value) Decl {
	if v.IsNum() {
		return DeclNum
	}
	return DeclObj
}

func (t *SymbolTable) add(v Var) Slot {
	s := Slot(len(t.vars))
	t.vars = append(t.vars, v)
	t.index[v.Name] = s
	return s
}

// Get returns the value in slot s. NoSlot and out-of-range slots read as
// Null.
func (t *SymbolTable) Get(s Slot) Value {
	if s < 0 || int(s) >= len(t.vars) {
		return Null
	}
	return t.vars[s].Value
}

// Set stores v in slot s. Writes to constants and invalid slots are
// ignored and reported as false.
func (t *SymbolTable) Set(s Slot, v Value) bool {
	if s < 0 || int(s) >= len(t.vars) || t.vars[s].Constant {
		return false
	}
	t.vars[s].Value = v
	return true
}

// Mutable returns the name and current value of every non-constant slot,
// in slot order.
func (t *SymbolTable) Mutable() []Binding {
	var out []Binding
	for _, v := range t.vars {
		if !v.Constant {
			out = append(out, Binding{Name: v.Name, Value: v.Value})
		}
	}
	return out
}

// Clone returns a deep copy of the table. Object references are shared.
func (t *SymbolTable) Clone() *SymbolTable {
	c := &SymbolTable{
		vars:  make([]Var, len(t.vars)),
		index: make(map[string]Slot, len(t.index)),
	}
	copy(c.vars, t.vars)
	for k, v := range t.index {
		c.index[k] = v
	}
	return c
}

// BindingError reports a binding Overlay could not apply.
type BindingError struct {
	Name   string
	Reason string
}

func (e *BindingError) Error() string {
	return fmt.Sprintf("binding %q skipped: %s", e.Name, e.Reason)
}

// Overlay returns a copy of t with each binding applied in order. A binding
// whose name is absent, names a constant, or carries a value the slot's
// declaration rejects is skipped and reported; t itself is not modified.
func Overlay(t *SymbolTable, bindings []Binding) (*SymbolTable, []error) {
	out := t.Clone()
	var errs []error
	for _, b := range bindings {
		s, ok := out.index[b.Name]
		if !ok {
			errs = append(errs, &BindingError{Name: b.Name, Reason: "no such variable"})
			continue
		}
		v := &out.vars[s]
		if v.Constant {
			errs = append(errs, &BindingError{Name: b.Name, Reason: "destination is constant"})
			continue
		}
		if !v.Decl.Accepts(b.Value.Kind()) {
			errs = append(errs, &BindingError{
				Name:   b.Name,
				Reason: fmt.Sprintf("%s value for %s variable", b.Value.Kind(), v.Decl),
			})
			continue
		}
		v.Value = b.Value
	}
	return out, errs
}
