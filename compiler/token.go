package compiler

import "fmt"

// ---------------------------------------------------------------------------
// Tokens for the logic assembly language
// ---------------------------------------------------------------------------

// TokenType represents the type of a token.
type TokenType int

const (
	TokenWord   TokenType = iota // mnemonic, variable, number, @constant
	TokenString                  // "text"
	TokenLabel                   // name:
)

var tokenNames = map[TokenType]string{
	TokenWord:   "WORD",
	TokenString: "STRING",
	TokenLabel:  "LABEL",
}

func (t TokenType) String() string {
	if name, ok := tokenNames[t]; ok {
		return name
	}
	return fmt.Sprintf("TokenType(%d)", t)
}

// Position is a location in source.
type Position struct {
	Offset int // byte offset
	Line   int // 1-based line number
	Column int // 1-based column number
}

func (p Position) String() string {
	return fmt.Sprintf("%d:%d", p.Line, p.Column)
}

// Token is a single lexical token. Literal holds the raw text for words
// and labels (without the trailing colon) and the unescaped contents for
// strings.
type Token struct {
	Type    TokenType
	Literal string
	Pos     Position
}

func (t Token) String() string {
	return fmt.Sprintf("%s(%q) at %s", t.Type, t.Literal, t.Pos)
}

// Line is one source line split into tokens. Blank and comment-only lines
// produce no Line.
type Line struct {
	Number int
	Label  *Token // set when the line starts with a label
	Tokens []Token
}
