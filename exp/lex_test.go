package exp

import (
	"strings"
	"testing"
)

func TestLex(t *testing.T) {
	tests := []struct {
		raw  string
		want []string
	}{
		{"SCHEMA test;", []string{"SCHEMA", "test", ";"}},
		{"a := b + 1;", []string{"a", ":=", "b", "+", "1", ";"}},
		{"x : REAL := 1.5e-3;", []string{"x", ":", "REAL", ":=", "1.5e-3", ";"}},
		{"r : REAL := 2.;", []string{"r", ":", "REAL", ":=", "2.", ";"}},
		{"bound [1:?]", []string{"bound", "[", "1", ":", "?", "]"}},
		{"a :<>: b :=: c", []string{"a", ":<>:", "b", ":=:", "c"}},
		{"n <= m >= k <> l", []string{"n", "<=", "m", ">=", "k", "<>", "l"}},
		{"2 ** 8 || rest", []string{"2", "**", "8", "||", "rest"}},
		{"'it''s'", []string{"it's"}},
		{"'' 'a'", []string{"", "a"}},
		{"a -- comment\nb", []string{"a", "b"}},
		{"a (* one (* two *) still *) b", []string{"a", "b"}},
		{"self\\point.x", []string{"self", "\\", "point", ".", "x"}},
	}
	for _, test := range tests {
		lx := newLexer("test", []byte(test.raw))
		var got []string
		for {
			tok, err := lx.next()
			if err != nil {
				t.Errorf("lex %q err: %v", test.raw, err)
				break
			}
			if tok.kind == tokEOF {
				break
			}
			got = append(got, tok.text)
		}
		if len(got) != len(test.want) {
			t.Errorf("lex %q got %v want %v", test.raw, got, test.want)
			continue
		}
		for i, w := range test.want {
			if got[i] != w {
				t.Errorf("lex %q tok %d got %q want %q", test.raw, i, got[i], w)
			}
		}
	}
}

func TestLexPos(t *testing.T) {
	lx := newLexer("test", []byte("SCHEMA s;\n  ENTITY e;"))
	want := []struct {
		text      string
		line, col int
	}{
		{"SCHEMA", 1, 1}, {"s", 1, 8}, {";", 1, 9},
		{"ENTITY", 2, 3}, {"e", 2, 10}, {";", 2, 11},
	}
	for _, w := range want {
		tok, err := lx.next()
		if err != nil {
			t.Fatalf("lex err: %v", err)
		}
		if tok.text != w.text || tok.pos.Line != w.line || tok.pos.Col != w.col {
			t.Errorf("got %q at %d:%d want %q at %d:%d",
				tok.text, tok.pos.Line, tok.pos.Col, w.text, w.line, w.col)
		}
	}
}

func TestLexErrs(t *testing.T) {
	tests := []struct {
		raw string
		msg string
	}{
		{"'unterminated", "unterminated string"},
		{"'broken\nline'", "unterminated string"},
		{"a (* no end", "unterminated comment"},
		{"a (* nested (* deep *) still", "unterminated comment"},
	}
	for _, test := range tests {
		lx := newLexer("test", []byte(test.raw))
		var err error
		for err == nil {
			var tok token
			tok, err = lx.next()
			if err == nil && tok.kind == tokEOF {
				break
			}
		}
		if err == nil {
			t.Errorf("lex %q want error %q got none", test.raw, test.msg)
			continue
		}
		if !strings.Contains(err.Error(), test.msg) {
			t.Errorf("lex %q got err %v want %q", test.raw, err, test.msg)
		}
	}
}
