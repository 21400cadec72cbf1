package compiler

import (
	"testing"

	"github.com/chazu/logicproc/vm"
)

// ---------------------------------------------------------------------------
// FuzzAssemble: the assembler must never panic, and whatever it produces
// must be safe to run.
// ---------------------------------------------------------------------------

func FuzzAssemble(f *testing.F) {
	seeds := []string{
		"",
		"set x 5\nadd x x 1\nend",
		"loop:\nop add i i 1\njump loop lessThan i 10",
		"print \"hello\"\nprintflush @0",
		"sensor h @0 @health\ncontrol enabled @0 0",
		"getlink l 0\nread r 3\nwrite r 99",
		"jump 999 always\njump -1 always\njump 1.5 equal a b",
		"op rand r 10\nop angle a 1 -1\nop idiv q 7 0",
		"a:\nb:\n",
		"\"unterminated",
		"set \"a\" \"b\"",
		"op",
		"jump",
		"0x 0b 1e999 -.5 .e1",
		"\x00\xff:\n\t;;;#",
	}
	for _, s := range seeds {
		f.Add(s)
	}

	f.Fuzz(func(t *testing.T, src string) {
		prog, _, err := Assemble(src, Options{})
		if err != nil {
			if _, ok := err.(*CompileError); !ok {
				t.Fatalf("non-CompileError: %T %v", err, err)
			}
			return
		}
		e := vm.NewExecutor(4)
		e.SetLinks([]vm.Value{vm.Null})
		e.Load(prog)
		n := prog.Len()
		for i := 0; i < 3*n+1; i++ {
			e.RunOnce()
			if c := e.Counter(); n > 0 && (c < 0 || c >= n) {
				t.Fatalf("counter %d out of range for %d instructions", c, n)
			}
		}
		_ = prog.Disassemble()
	})
}
