package exp

import (
	"fmt"
	"strings"
)

type tokKind int

const (
	tokEOF tokKind = iota
	tokIdent
	tokInt
	tokReal
	tokStr
	tokPunct
)

func (k tokKind) String() string {
	switch k {
	case tokEOF:
		return "end of file"
	case tokIdent:
		return "identifier"
	case tokInt:
		return "integer"
	case tokReal:
		return "real"
	case tokStr:
		return "string"
	case tokPunct:
		return "punctuation"
	}
	return "unknown token"
}

type token struct {
	kind tokKind
	pos  Pos
	end  int    // byte offset just after the token
	text string // raw source text, string tokens unquoted
	low  string // lower case text for identifiers
}

// multi-rune operators, longest first
var operators = []string{":<>:", ":=:", ":=", "<=", ">=", "<>", "<*", "||", "**"}

type lexer struct {
	name string
	src  []byte
	off  int
	line int
	col  int
}

func newLexer(name string, src []byte) *lexer {
	return &lexer{name: name, src: src, line: 1, col: 1}
}

func (l *lexer) pos() Pos { return Pos{Off: l.off, Line: l.line, Col: l.col} }

func (l *lexer) errf(p Pos, format string, args ...interface{}) *SyntaxError {
	return &SyntaxError{Name: l.name, Pos: p, Msg: fmt.Sprintf(format, args...)}
}

func (l *lexer) byte() byte {
	if l.off >= len(l.src) {
		return 0
	}
	return l.src[l.off]
}

func (l *lexer) at(i int) byte {
	if l.off+i >= len(l.src) {
		return 0
	}
	return l.src[l.off+i]
}

func (l *lexer) advance() {
	if l.off >= len(l.src) {
		return
	}
	if l.src[l.off] == '\n' {
		l.line++
		l.col = 1
	} else {
		l.col++
	}
	l.off++
}

func (l *lexer) skip() error {
	for l.off < len(l.src) {
		c := l.src[l.off]
		switch {
		case c == ' ' || c == '\t' || c == '\r' || c == '\n':
			l.advance()
		case c == '-' && l.at(1) == '-':
			for l.off < len(l.src) && l.src[l.off] != '\n' {
				l.advance()
			}
		case c == '(' && l.at(1) == '*':
			start := l.pos()
			l.advance()
			l.advance()
			depth := 1
			for depth > 0 {
				if l.off >= len(l.src) {
					return l.errf(start, "unterminated comment")
				}
				if l.byte() == '(' && l.at(1) == '*' {
					depth++
					l.advance()
					l.advance()
				} else if l.byte() == '*' && l.at(1) == ')' {
					depth--
					l.advance()
					l.advance()
				} else {
					l.advance()
				}
			}
		default:
			return nil
		}
	}
	return nil
}

// next returns the next token. Identifiers keep their raw text and carry a
// lower case copy, since EXPRESS is case-insensitive.
func (l *lexer) next() (token, error) {
	if err := l.skip(); err != nil {
		return token{}, err
	}
	p := l.pos()
	if l.off >= len(l.src) {
		return token{kind: tokEOF, pos: p, end: l.off}, nil
	}
	c := l.byte()
	switch {
	case isLetter(c):
		start := l.off
		for isLetter(l.byte()) || isDigit(l.byte()) || l.byte() == '_' {
			l.advance()
		}
		text := string(l.src[start:l.off])
		return token{kind: tokIdent, pos: p, end: l.off, text: text, low: strings.ToLower(text)}, nil
	case isDigit(c):
		return l.number(p)
	case c == '\'':
		return l.str(p)
	}
	for _, op := range operators {
		if l.has(op) {
			for range op {
				l.advance()
			}
			return token{kind: tokPunct, pos: p, end: l.off, text: op}, nil
		}
	}
	l.advance()
	return token{kind: tokPunct, pos: p, end: l.off, text: string(c)}, nil
}

func (l *lexer) has(s string) bool {
	if l.off+len(s) > len(l.src) {
		return false
	}
	return string(l.src[l.off:l.off+len(s)]) == s
}

func (l *lexer) number(p Pos) (token, error) {
	start := l.off
	real := false
	for isDigit(l.byte()) {
		l.advance()
	}
	if l.byte() == '.' && isDigit(l.at(1)) {
		real = true
		l.advance()
		for isDigit(l.byte()) {
			l.advance()
		}
	} else if l.byte() == '.' && !isLetter(l.at(1)) && l.at(1) != '.' {
		// trailing dot real like `1.`
		real = true
		l.advance()
	}
	if l.byte() == 'e' || l.byte() == 'E' {
		if isDigit(l.at(1)) || ((l.at(1) == '+' || l.at(1) == '-') && isDigit(l.at(2))) {
			real = true
			l.advance()
			if l.byte() == '+' || l.byte() == '-' {
				l.advance()
			}
			for isDigit(l.byte()) {
				l.advance()
			}
		}
	}
	kind := tokInt
	if real {
		kind = tokReal
	}
	return token{kind: kind, pos: p, end: l.off, text: string(l.src[start:l.off])}, nil
}

func (l *lexer) str(p Pos) (token, error) {
	l.advance() // opening quote
	var b strings.Builder
	for {
		if l.off >= len(l.src) || l.byte() == '\n' {
			return token{}, l.errf(p, "unterminated string")
		}
		if l.byte() == '\'' {
			if l.at(1) == '\'' {
				b.WriteByte('\'')
				l.advance()
				l.advance()
				continue
			}
			l.advance()
			return token{kind: tokStr, pos: p, end: l.off, text: b.String()}, nil
		}
		b.WriteByte(l.byte())
		l.advance()
	}
}

func isLetter(c byte) bool { return c >= 'a' && c <= 'z' || c >= 'A' && c <= 'Z' }
func isDigit(c byte) bool  { return c >= '0' && c <= '9' }
