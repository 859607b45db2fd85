package p21

import "fmt"

type tkind int

const (
	tEOF tkind = iota
	tIdent
	tInt
	tReal
	tStr
	tBin
	tEnum
	tRef
	tPunct
)

// token text holds the decoded payload: the string body for tStr, the label
// for tEnum, the digits for tRef.
type token struct {
	kind tkind
	line int
	col  int
	text string
}

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

func (l *lexer) errf(line, col int, format string, args ...interface{}) *ParseError {
	return &ParseError{Kind: SyntaxErr, Name: l.name, Line: line, Col: col,
		Msg: fmt.Sprintf(format, args...)}
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
	if l.off < len(l.src) {
		if l.src[l.off] == '\n' {
			l.line++
			l.col = 1
		} else {
			l.col++
		}
		l.off++
	}
}

// skip consumes whitespace and /* */ comments.
func (l *lexer) skip() error {
	for l.off < len(l.src) {
		c := l.byte()
		switch {
		case c == ' ' || c == '\t' || c == '\r' || c == '\n':
			l.advance()
		case c == '/' && l.at(1) == '*':
			line, col := l.line, l.col
			l.advance()
			l.advance()
			for {
				if l.off >= len(l.src) {
					return l.errf(line, col, "unterminated comment")
				}
				if l.byte() == '*' && l.at(1) == '/' {
					l.advance()
					l.advance()
					break
				}
				l.advance()
			}
		default:
			return nil
		}
	}
	return nil
}

func (l *lexer) next() (token, error) {
	if err := l.skip(); err != nil {
		return token{}, err
	}
	line, col := l.line, l.col
	if l.off >= len(l.src) {
		return token{kind: tEOF, line: line, col: col}, nil
	}
	c := l.byte()
	switch {
	case isAlpha(c):
		start := l.off
		for isAlpha(l.byte()) || isDigit(l.byte()) || l.byte() == '_' || l.byte() == '-' {
			l.advance()
		}
		return token{kind: tIdent, line: line, col: col, text: string(l.src[start:l.off])}, nil
	case isDigit(c) || c == '+' || c == '-':
		return l.number(line, col)
	case c == '\'':
		return l.str(line, col)
	case c == '"':
		l.advance()
		start := l.off
		for l.byte() != '"' {
			if l.off >= len(l.src) || l.byte() == '\n' {
				return token{}, l.errf(line, col, "unterminated binary literal")
			}
			l.advance()
		}
		text := string(l.src[start:l.off])
		l.advance()
		return token{kind: tBin, line: line, col: col, text: text}, nil
	case c == '.':
		l.advance()
		start := l.off
		for isAlpha(l.byte()) || isDigit(l.byte()) || l.byte() == '_' {
			l.advance()
		}
		if l.byte() != '.' || l.off == start {
			return token{}, l.errf(line, col, "malformed enumeration tag")
		}
		text := string(l.src[start:l.off])
		l.advance()
		return token{kind: tEnum, line: line, col: col, text: text}, nil
	case c == '#':
		l.advance()
		start := l.off
		for isDigit(l.byte()) {
			l.advance()
		}
		if l.off == start {
			return token{}, l.errf(line, col, "malformed instance reference")
		}
		return token{kind: tRef, line: line, col: col, text: string(l.src[start:l.off])}, nil
	}
	l.advance()
	return token{kind: tPunct, line: line, col: col, text: string(c)}, nil
}

func (l *lexer) number(line, col int) (token, error) {
	start := l.off
	if l.byte() == '+' || l.byte() == '-' {
		l.advance()
	}
	if !isDigit(l.byte()) {
		return token{}, l.errf(line, col, "malformed number")
	}
	for isDigit(l.byte()) {
		l.advance()
	}
	kind := tInt
	if l.byte() == '.' {
		kind = tReal
		l.advance()
		for isDigit(l.byte()) {
			l.advance()
		}
	}
	if c := l.byte(); c == 'e' || c == 'E' {
		kind = tReal
		l.advance()
		if c := l.byte(); c == '+' || c == '-' {
			l.advance()
		}
		if !isDigit(l.byte()) {
			return token{}, l.errf(line, col, "malformed exponent")
		}
		for isDigit(l.byte()) {
			l.advance()
		}
	}
	return token{kind: kind, line: line, col: col, text: string(l.src[start:l.off])}, nil
}

func (l *lexer) str(line, col int) (token, error) {
	l.advance() // opening quote
	var buf []byte
	for {
		if l.off >= len(l.src) || l.byte() == '\n' {
			return token{}, l.errf(line, col, "unterminated string")
		}
		if l.byte() == '\'' {
			if l.at(1) == '\'' {
				buf = append(buf, '\'')
				l.advance()
				l.advance()
				continue
			}
			l.advance()
			return token{kind: tStr, line: line, col: col, text: string(buf)}, nil
		}
		buf = append(buf, l.byte())
		l.advance()
	}
}

// sync skips bytes through the next semicolon so the reader can recover at
// the following record.
func (l *lexer) sync() {
	for l.off < len(l.src) {
		c := l.byte()
		l.advance()
		if c == ';' {
			return
		}
	}
}

func isAlpha(c byte) bool {
	return c >= 'a' && c <= 'z' || c >= 'A' && c <= 'Z'
}

func isDigit(c byte) bool {
	return c >= '0' && c <= '9'
}
