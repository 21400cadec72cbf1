package compiler

import (
	"errors"
	"testing"
)

func TestLexerLines(t *testing.T) {
	src := "# header\n\nset x 5 # trailing\nloop: add x x 1\nend:\n  print \"a b\\n\"\n"
	lines, err := Lex(src)
	if err != nil {
		t.Fatalf("Lex: %v", err)
	}
	if len(lines) != 4 {
		t.Fatalf("got %d lines, want 4", len(lines))
	}

	if lines[0].Number != 3 || len(lines[0].Tokens) != 3 || lines[0].Tokens[2].Literal != "5" {
		t.Errorf("line 0 = %+v", lines[0])
	}
	if lines[1].Label == nil || lines[1].Label.Literal != "loop" {
		t.Errorf("line 1 label = %+v", lines[1].Label)
	}
	if len(lines[1].Tokens) != 4 {
		t.Errorf("line 1 tokens = %v", lines[1].Tokens)
	}
	if lines[2].Label == nil || lines[2].Label.Literal != "end" || len(lines[2].Tokens) != 0 {
		t.Errorf("line 2 = %+v", lines[2])
	}
	str := lines[3].Tokens[1]
	if str.Type != TokenString || str.Literal != "a b\n" {
		t.Errorf("string token = %v", str)
	}
	if str.Pos.Line != 6 || str.Pos.Column != 9 {
		t.Errorf("string position = %s, want 6:9", str.Pos)
	}
}

func TestLexerHashInsideString(t *testing.T) {
	lines, err := Lex(`print "#1"`)
	if err != nil {
		t.Fatal(err)
	}
	if got := lines[0].Tokens[1].Literal; got != "#1" {
		t.Errorf("literal = %q, want #1", got)
	}
}

func TestLexerUnterminatedString(t *testing.T) {
	_, err := Lex("set x 1\nprint \"oops\n")
	var ce *CompileError
	if !errors.As(err, &ce) {
		t.Fatalf("err = %v, want *CompileError", err)
	}
	if ce.Line != 2 {
		t.Errorf("line = %d, want 2", ce.Line)
	}
}

func TestParseNumber(t *testing.T) {
	tests := []struct {
		in   string
		want float64
		ok   bool
	}{
		{"12", 12, true},
		{"-3.5", -3.5, true},
		{"1e3", 1000, true},
		{"0x1F", 31, true},
		{"0b101", 5, true},
		{".5", 0.5, true},
		{"-0x10", -16, true},
		{"inf", 0, false},
		{"NaN", 0, false},
		{"x1", 0, false},
		{"-", 0, false},
		{"1_000", 0, false},
		{"0xZZ", 0, false},
	}
	for _, tc := range tests {
		got, ok := parseNumber(tc.in)
		if ok != tc.ok || (ok && got != tc.want) {
			t.Errorf("parseNumber(%q) = %v, %v; want %v, %v", tc.in, got, ok, tc.want, tc.ok)
		}
	}
}
