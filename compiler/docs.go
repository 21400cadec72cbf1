package compiler

import (
	"fmt"
	"sort"

	"github.com/chazu/logicproc/vm"
)

// Word kinds reported by Words.
const (
	WordInstruction = "instruction"
	WordOperation   = "operation"
	WordCondition   = "condition"
	WordConstant    = "constant"
)

// Word is a reserved name of the language with its documentation.
type Word struct {
	Name string
	Kind string
	Doc  string
}

// HostConstants are the @ constants bound by a logic entity at load time.
var HostConstants = map[string]string{
	"@this":  "The entity running this program.",
	"@links": "Number of linked objects.",
	"@ipt":   "Instructions executed per tick.",
}

// Words returns every reserved name, sorted by name.
func Words() []Word {
	var out []Word
	for _, op := range vm.Opcodes() {
		info := op.Info()
		doc := info.Doc
		if info.Usage != "" {
			doc = fmt.Sprintf("%s %s\n\n%s", info.Name, info.Usage, info.Doc)
		}
		out = append(out, Word{Name: info.Name, Kind: WordInstruction, Doc: doc})
	}
	for _, op := range vm.ArithOps() {
		var doc string
		if op.Unary() {
			doc = fmt.Sprintf("%s dst a\n\ndst = %s(a)", op, op)
		} else if op.Symbol() != op.String() {
			doc = fmt.Sprintf("%s dst a b\n\ndst = a %s b", op, op.Symbol())
		} else {
			doc = fmt.Sprintf("%s dst a b\n\ndst = %s(a, b)", op, op)
		}
		out = append(out, Word{Name: op.String(), Kind: WordOperation, Doc: doc})
	}
	for _, c := range vm.Conditions() {
		out = append(out, Word{Name: c.String(), Kind: WordCondition, Doc: "Jump condition."})
	}
	for name, v := range Builtins {
		out = append(out, Word{Name: name, Kind: WordConstant, Doc: fmt.Sprintf("Built-in constant %s.", vm.FormatNum(v))})
	}
	for name, doc := range HostConstants {
		out = append(out, Word{Name: name, Kind: WordConstant, Doc: doc})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Name == out[j].Name {
			return out[i].Kind < out[j].Kind
		}
		return out[i].Name < out[j].Name
	})
	return out
}

// Describe returns the documentation for a reserved name. Names that are
// both an instruction shorthand and an operation resolve to the operation.
func Describe(name string) (Word, bool) {
	var found Word
	ok := false
	for _, w := range Words() {
		if w.Name != name {
			continue
		}
		if !ok || w.Kind == WordOperation {
			found, ok = w, true
		}
	}
	return found, ok
}
