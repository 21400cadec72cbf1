package vm

import (
	"errors"
	"testing"
)

func TestSymbolTableDeclareAndConstants(t *testing.T) {
	st := NewSymbolTable()
	x := st.Declare("x", DeclNum)
	five := st.Constant("5", Num(5))
	again := st.Constant("5", Num(99))

	if five != again {
		t.Fatalf("constant interning returned %d and %d", five, again)
	}
	if st.Get(again).Float() != 5 {
		t.Errorf("interned constant changed value: %v", st.Get(again))
	}
	if got := st.Get(x); !got.Same(Num(0)) {
		t.Errorf("fresh num variable = %v, want 0", got)
	}
	if st.Set(five, Num(6)) {
		t.Error("Set on a constant should be refused")
	}
	if !st.Set(x, Num(6)) || st.Get(x).Float() != 6 {
		t.Error("Set on a variable should succeed")
	}
	if st.Set(NoSlot, Num(1)) {
		t.Error("Set on NoSlot should be refused")
	}
	if !st.Get(NoSlot).IsNull() {
		t.Error("Get on NoSlot should read null")
	}
}

func TestSymbolTablePutConstOverrides(t *testing.T) {
	st := NewSymbolTable()
	s := st.Declare("@0", DeclAny)
	st.PutConst("@0", Obj("target"))

	v := st.Var(s)
	if !v.Constant || v.Value.String() != "target" {
		t.Errorf("PutConst did not override slot: %+v", v)
	}
	if got := st.PutConst("@this", Obj("me")); int(got) != st.Len()-1 {
		t.Errorf("PutConst should append new slots, got %d", got)
	}
}

func TestSymbolTableMutableAndClone(t *testing.T) {
	st := NewSymbolTable()
	st.Declare("a", DeclNum)
	st.Constant("1", Num(1))
	st.Declare("b", DeclAny)

	m := st.Mutable()
	if len(m) != 2 || m[0].Name != "a" || m[1].Name != "b" {
		t.Fatalf("Mutable() = %+v", m)
	}

	c := st.Clone()
	s, _ := c.Lookup("a")
	c.Set(s, Num(42))
	if st.Get(s).Float() != 0 {
		t.Error("clone shares slot storage with original")
	}
}

func TestOverlay(t *testing.T) {
	st := NewSymbolTable()
	st.Declare("n", DeclNum)
	st.Declare("o", DeclObj)
	st.Declare("any", DeclAny)
	st.PutConst("@this", Obj("me"))

	out, errs := Overlay(st, []Binding{
		{"n", Num(100)},
		{"o", Num(1)},        // kind mismatch
		{"any", Obj("x")},    // accepted
		{"@this", Obj("no")}, // constant
		{"missing", Num(1)},  // absent
	})

	if len(errs) != 3 {
		t.Fatalf("got %d errors, want 3: %v", len(errs), errs)
	}
	var be *BindingError
	if !errors.As(errs[0], &be) || be.Name != "o" {
		t.Errorf("first error = %v, want binding error for o", errs[0])
	}

	if v, _ := out.VarByName("n"); !v.Value.Same(Num(100)) {
		t.Errorf("n = %v, want 100", v.Value)
	}
	if v, _ := out.VarByName("o"); !v.Value.IsNull() {
		t.Errorf("o = %v, want null", v.Value)
	}
	if v, _ := out.VarByName("any"); v.Value.String() != "x" {
		t.Errorf("any = %v, want x", v.Value)
	}
	if v, _ := out.VarByName("@this"); v.Value.String() != "me" {
		t.Errorf("@this = %v, want me", v.Value)
	}

	// The input table is untouched.
	if v, _ := st.VarByName("n"); !v.Value.Same(Num(0)) {
		t.Errorf("Overlay mutated its input: n = %v", v.Value)
	}
}

func TestDeclAccepts(t *testing.T) {
	tests := []struct {
		d    Decl
		k    Kind
		want bool
	}{
		{DeclAny, KindNum, true},
		{DeclAny, KindObj, true},
		{DeclNum, KindNum, true},
		{DeclNum, KindObj, false},
		{DeclObj, KindObj, true},
		{DeclObj, KindNum, false},
	}
	for _, tt := range tests {
		if got := tt.d.Accepts(tt.k); got != tt.want {
			t.Errorf("%s.Accepts(%s) = %v, want %v", tt.d, tt.k, got, tt.want)
		}
	}
}
