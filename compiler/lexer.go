package compiler

import (
	"strings"
)

// ---------------------------------------------------------------------------
// Lexer: splits logic source into lines of tokens
// ---------------------------------------------------------------------------

// Lexer tokenizes logic source one line at a time.
type Lexer struct {
	input string
	pos   int // offset of the next unread byte
	line  int // 1-based number of the next line
}

// NewLexer creates a new lexer for the given input.
func NewLexer(input string) *Lexer {
	return &Lexer{input: input, line: 1}
}

// Next returns the next non-empty line. ok is false at end of input. A
// lexical error (an unterminated string) is reported as a *CompileError.
func (l *Lexer) Next() (ln Line, ok bool, err error) {
	for l.pos < len(l.input) {
		start := l.pos
		end := strings.IndexByte(l.input[start:], '\n')
		if end < 0 {
			end = len(l.input)
		} else {
			end += start
		}
		number := l.line
		l.pos = end + 1
		l.line++

		toks, err := scanLine(l.input[start:end], start, number)
		if err != nil {
			return Line{}, false, err
		}
		if len(toks) == 0 {
			continue
		}
		ln = Line{Number: number}
		if toks[0].Type == TokenLabel {
			label := toks[0]
			ln.Label = &label
			toks = toks[1:]
		}
		ln.Tokens = toks
		return ln, true, nil
	}
	return Line{}, false, nil
}

// Lex tokenizes the whole input.
func Lex(input string) ([]Line, error) {
	l := NewLexer(input)
	var lines []Line
	for {
		ln, ok, err := l.Next()
		if err != nil {
			return nil, err
		}
		if !ok {
			return lines, nil
		}
		lines = append(lines, ln)
	}
}

// scanLine splits a single line. base is the byte offset of the line in
// the full input.
func scanLine(s string, base, number int) ([]Token, error) {
	var toks []Token
	i := 0
	for i < len(s) {
		c := s[i]
		switch {
		case c == ' ' || c == '\t' || c == '\r':
			i++
		case c == '#':
			return toks, nil
		case c == '"':
			start := i
			var sb strings.Builder
			i++
			closed := false
			for i < len(s) {
				if s[i] == '"' {
					closed = true
					i++
					break
				}
				if s[i] == '\\' && i+1 < len(s) {
					switch s[i+1] {
					case 'n':
						sb.WriteByte('\n')
					case 't':
						sb.WriteByte('\t')
					case '"':
						sb.WriteByte('"')
					case '\\':
						sb.WriteByte('\\')
					default:
						sb.WriteByte('\\')
						sb.WriteByte(s[i+1])
					}
					i += 2
					continue
				}
				sb.WriteByte(s[i])
				i++
			}
			if !closed {
				return nil, &CompileError{Line: number, Column: start + 1, Msg: "unterminated string literal"}
			}
			toks = append(toks, Token{
				Type:    TokenString,
				Literal: sb.String(),
				Pos:     Position{Offset: base + start, Line: number, Column: start + 1},
			})
		default:
			start := i
			for i < len(s) && !isSeparator(s[i]) {
				i++
			}
			word := s[start:i]
			tok := Token{
				Type:    TokenWord,
				Literal: word,
				Pos:     Position{Offset: base + start, Line: number, Column: start + 1},
			}
			if len(toks) == 0 && len(word) > 1 && strings.HasSuffix(word, ":") {
				tok.Type = TokenLabel
				tok.Literal = word[:len(word)-1]
			}
			toks = append(toks, tok)
		}
	}
	return toks, nil
}

func isSeparator(c byte) bool {
	return c == ' ' || c == '\t' || c == '\r' || c == '#' || c == '"'
}
