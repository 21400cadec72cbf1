package compiler

import (
	"testing"

	"github.com/rcrowley/go-metrics"

	"github.com/chazu/logicproc/vm"
)

func TestCacheSharesInstructionsNotVars(t *testing.T) {
	r := metrics.NewRegistry()
	c, err := NewCache(4, r)
	if err != nil {
		t.Fatal(err)
	}

	src := "set x 5\nend\n"
	p1, _, err := c.Assemble(src, Options{})
	if err != nil {
		t.Fatal(err)
	}
	p2, _, err := c.Assemble(src, Options{})
	if err != nil {
		t.Fatal(err)
	}

	if &p1.Instructions[0] != &p2.Instructions[0] {
		t.Error("cache hit should share the instruction slice")
	}
	x, _ := p1.Vars.Lookup("x")
	p1.Vars.Set(x, vm.Num(99))
	if p2.Vars.Get(x).Float() == 99 {
		t.Error("cache hits share a symbol table")
	}

	if got := r.Get("logic.compile.cache.hits").(metrics.Counter).Count(); got != 1 {
		t.Errorf("hits = %d, want 1", got)
	}
	if got := r.Get("logic.compile.cache.misses").(metrics.Counter).Count(); got != 1 {
		t.Errorf("misses = %d, want 1", got)
	}
}

func TestCacheKeysOnOptions(t *testing.T) {
	c, err := NewCache(4, nil)
	if err != nil {
		t.Fatal(err)
	}
	if _, _, err := c.Assemble("bogus\n", Options{}); err != nil {
		t.Fatalf("lenient assemble failed: %v", err)
	}
	if _, _, err := c.Assemble("bogus\n", Options{Strict: true}); err == nil {
		t.Fatal("strict assemble of a bad line succeeded")
	}
	if _, _, err := c.Assemble("bogus\n", Options{Strict: true}); err == nil {
		t.Fatal("cached strict failure was lost")
	}
	if c.Len() != 2 {
		t.Errorf("len = %d, want 2", c.Len())
	}
	c.Purge()
	if c.Len() != 0 {
		t.Errorf("len after purge = %d", c.Len())
	}
}
