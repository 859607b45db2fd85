package exp

import (
	"fmt"
	"strconv"
	"strings"
)

// Parse parses one EXPRESS source unit into a File. It fails fast on the first
// syntax error, returning a *SyntaxError with position and expected-token
// context. Names are normalized to lower case, the language is case-insensitive.
func Parse(name string, src []byte) (*File, error) {
	p := &parser{lex: newLexer(name, src), src: src, name: name}
	if err := p.next(); err != nil {
		return nil, err
	}
	f := &File{Name: name}
	for p.tok.kind != tokEOF {
		s, err := p.schema()
		if err != nil {
			return nil, err
		}
		f.Schemas = append(f.Schemas, s)
	}
	if len(f.Schemas) == 0 {
		return nil, p.errHere("empty source unit", "SCHEMA")
	}
	return f, nil
}

// ParseString is Parse for string input.
func ParseString(name, src string) (*File, error) {
	return Parse(name, []byte(src))
}

type parser struct {
	lex  *lexer
	tok  token
	src  []byte
	name string
}

func (p *parser) next() error {
	t, err := p.lex.next()
	if err != nil {
		return err
	}
	p.tok = t
	return nil
}

func (p *parser) errHere(msg string, want ...string) *SyntaxError {
	return &SyntaxError{Name: p.name, Pos: p.tok.pos, Msg: msg, Want: want}
}

func (p *parser) errTok(want ...string) *SyntaxError {
	got := "end of file"
	if p.tok.kind != tokEOF {
		got = fmt.Sprintf("%q", p.tok.text)
	}
	return &SyntaxError{Name: p.name, Pos: p.tok.pos, Msg: "unexpected " + got, Want: want}
}

// peekKw reports whether the current token is the given keyword.
func (p *parser) peekKw(kw string) bool {
	return p.tok.kind == tokIdent && p.tok.low == kw
}

func (p *parser) peekPunct(text string) bool {
	return p.tok.kind == tokPunct && p.tok.text == text
}

// gotKw consumes the keyword if present.
func (p *parser) gotKw(kw string) (bool, error) {
	if !p.peekKw(kw) {
		return false, nil
	}
	return true, p.next()
}

func (p *parser) gotPunct(text string) (bool, error) {
	if !p.peekPunct(text) {
		return false, nil
	}
	return true, p.next()
}

func (p *parser) expectKw(kw string) error {
	if !p.peekKw(kw) {
		return p.errTok(strings.ToUpper(kw))
	}
	return p.next()
}

func (p *parser) expectPunct(text string) error {
	if !p.peekPunct(text) {
		return p.errTok(fmt.Sprintf("%q", text))
	}
	return p.next()
}

func (p *parser) ident() (string, Pos, error) {
	if p.tok.kind != tokIdent {
		return "", p.tok.pos, p.errTok("identifier")
	}
	name, pos := p.tok.low, p.tok.pos
	return name, pos, p.next()
}

// schema parses one SCHEMA ... END_SCHEMA; declaration.
func (p *parser) schema() (*Schema, error) {
	s := &Schema{Pos: p.tok.pos}
	if err := p.expectKw("schema"); err != nil {
		return nil, err
	}
	name, _, err := p.ident()
	if err != nil {
		return nil, err
	}
	s.Name = name
	if p.tok.kind == tokStr {
		s.Version = p.tok.text
		if err := p.next(); err != nil {
			return nil, err
		}
	}
	if err := p.expectPunct(";"); err != nil {
		return nil, err
	}
	for {
		switch {
		case p.peekKw("use"):
			in, err := p.interfaceSpec("use")
			if err != nil {
				return nil, err
			}
			s.Uses = append(s.Uses, in)
			continue
		case p.peekKw("reference"):
			in, err := p.interfaceSpec("reference")
			if err != nil {
				return nil, err
			}
			s.Refs = append(s.Refs, in)
			continue
		}
		break
	}
	for !p.peekKw("end_schema") {
		switch {
		case p.peekKw("type"):
			t, err := p.typeDecl()
			if err != nil {
				return nil, err
			}
			s.Types = append(s.Types, t)
		case p.peekKw("entity"):
			e, err := p.entity()
			if err != nil {
				return nil, err
			}
			s.Entities = append(s.Entities, e)
		case p.peekKw("constant"):
			raw, err := p.rawBlock("constant", "end_constant", false)
			if err != nil {
				return nil, err
			}
			s.Consts = append(s.Consts, raw)
		case p.peekKw("function"), p.peekKw("procedure"), p.peekKw("rule"):
			kind := p.tok.low
			raw, err := p.rawBlock(kind, "end_"+kind, true)
			if err != nil {
				return nil, err
			}
			s.Algos = append(s.Algos, raw)
		case p.tok.kind == tokEOF:
			return nil, p.errTok("END_SCHEMA")
		default:
			return nil, p.errTok("TYPE", "ENTITY", "END_SCHEMA")
		}
	}
	if err := p.next(); err != nil { // end_schema
		return nil, err
	}
	return s, p.expectPunct(";")
}

// interfaceSpec parses USE FROM or REFERENCE FROM clauses.
func (p *parser) interfaceSpec(kind string) (Interface, error) {
	in := Interface{Pos: p.tok.pos}
	if err := p.next(); err != nil { // use or reference
		return in, err
	}
	if err := p.expectKw("from"); err != nil {
		return in, err
	}
	name, _, err := p.ident()
	if err != nil {
		return in, err
	}
	in.Schema = name
	if ok, err := p.gotPunct("("); err != nil {
		return in, err
	} else if ok {
		for {
			var rn RefName
			rn.Name, _, err = p.ident()
			if err != nil {
				return in, err
			}
			if ok, err := p.gotKw("as"); err != nil {
				return in, err
			} else if ok {
				rn.Alias, _, err = p.ident()
				if err != nil {
					return in, err
				}
			}
			in.Names = append(in.Names, rn)
			if ok, err := p.gotPunct(","); err != nil {
				return in, err
			} else if !ok {
				break
			}
		}
		if err := p.expectPunct(")"); err != nil {
			return in, err
		}
	}
	return in, p.expectPunct(";")
}

// rawBlock captures a declaration body as text from the opening keyword to the
// matching end keyword. Nested blocks of the same kind are counted when nest is
// set, which covers local functions inside functions.
func (p *parser) rawBlock(kind, end string, nest bool) (RawDecl, error) {
	raw := RawDecl{Pos: p.tok.pos, Kind: kind}
	start := p.tok.pos.Off
	if err := p.next(); err != nil { // opening keyword
		return raw, err
	}
	if kind != "constant" && p.tok.kind == tokIdent {
		raw.Name = p.tok.low
	}
	depth := 1
	for depth > 0 {
		switch {
		case p.tok.kind == tokEOF:
			return raw, p.errHere("unterminated "+strings.ToUpper(kind)+" block", strings.ToUpper(end))
		case nest && p.peekKw(kind):
			depth++
		case p.peekKw(end):
			depth--
		}
		if err := p.next(); err != nil {
			return raw, err
		}
	}
	raw.Body = strings.TrimSpace(string(p.src[start:p.tok.pos.Off]))
	return raw, p.expectPunct(";")
}

// typeDecl parses TYPE id = underlying; [WHERE ...] END_TYPE;.
func (p *parser) typeDecl() (*TypeDecl, error) {
	t := &TypeDecl{Pos: p.tok.pos}
	if err := p.next(); err != nil { // type
		return nil, err
	}
	name, _, err := p.ident()
	if err != nil {
		return nil, err
	}
	t.Name = name
	if err := p.expectPunct("="); err != nil {
		return nil, err
	}
	t.Underlying, err = p.underlying()
	if err != nil {
		return nil, err
	}
	if err := p.expectPunct(";"); err != nil {
		return nil, err
	}
	if ok, err := p.gotKw("where"); err != nil {
		return nil, err
	} else if ok {
		t.Where, err = p.rules()
		if err != nil {
			return nil, err
		}
	}
	if err := p.expectKw("end_type"); err != nil {
		return nil, err
	}
	return t, p.expectPunct(";")
}

// underlying parses the right side of a TYPE declaration, including the
// constructed ENUMERATION and SELECT forms that only occur there.
func (p *parser) underlying() (Type, error) {
	ext := false
	if ok, err := p.gotKw("extensible"); err != nil {
		return nil, err
	} else if ok {
		ext = true
	}
	generic := false
	if ok, err := p.gotKw("generic_entity"); err != nil {
		return nil, err
	} else if ok {
		generic = true
	}
	switch {
	case p.peekKw("enumeration"):
		if err := p.next(); err != nil {
			return nil, err
		}
		et := EnumType{Extensible: ext}
		if ok, err := p.gotKw("of"); err != nil {
			return nil, err
		} else if ok {
			if err := p.expectPunct("("); err != nil {
				return nil, err
			}
			for {
				label, _, err := p.ident()
				if err != nil {
					return nil, err
				}
				et.Labels = append(et.Labels, label)
				if ok, err := p.gotPunct(","); err != nil {
					return nil, err
				} else if !ok {
					break
				}
			}
			if err := p.expectPunct(")"); err != nil {
				return nil, err
			}
		}
		return et, nil
	case p.peekKw("select"):
		if err := p.next(); err != nil {
			return nil, err
		}
		st := SelectType{Extensible: ext, GenericEntity: generic}
		if ok, err := p.gotPunct("("); err != nil {
			return nil, err
		} else if ok {
			for {
				name, _, err := p.ident()
				if err != nil {
					return nil, err
				}
				st.Members = append(st.Members, name)
				if ok, err := p.gotPunct(","); err != nil {
					return nil, err
				} else if !ok {
					break
				}
			}
			if err := p.expectPunct(")"); err != nil {
				return nil, err
			}
		}
		return st, nil
	}
	if ext || generic {
		return nil, p.errTok("ENUMERATION", "SELECT")
	}
	return p.typeExpr()
}

// typeExpr parses a parameter or base type: simple, named or aggregate.
func (p *parser) typeExpr() (Type, error) {
	if p.tok.kind != tokIdent {
		return nil, p.errTok("type")
	}
	switch p.tok.low {
	case "array", "list", "set", "bag":
		return p.aggregate()
	case "number", "real", "integer", "logical", "boolean":
		kind := simpleKind(p.tok.low)
		return Simple{Kind: kind}, p.next()
	case "string", "binary":
		kind := simpleKind(p.tok.low)
		if err := p.next(); err != nil {
			return nil, err
		}
		s := Simple{Kind: kind}
		if ok, err := p.gotPunct("("); err != nil {
			return nil, err
		} else if ok {
			w, err := p.intLit()
			if err != nil {
				return nil, err
			}
			s.Width = w
			if err := p.expectPunct(")"); err != nil {
				return nil, err
			}
			if ok, err := p.gotKw("fixed"); err != nil {
				return nil, err
			} else if ok {
				s.Fixed = true
			}
		}
		return s, nil
	}
	name, pos, err := p.ident()
	if err != nil {
		return nil, err
	}
	return Named{Pos: pos, Name: name}, nil
}

func simpleKind(low string) SimpleKind {
	switch low {
	case "number":
		return Number
	case "real":
		return Real
	case "integer":
		return Integer
	case "logical":
		return Logical
	case "boolean":
		return Boolean
	case "string":
		return String
	case "binary":
		return Binary
	}
	return 0
}

func (p *parser) aggregate() (Type, error) {
	kind := AggNone
	switch p.tok.low {
	case "array":
		kind = AggArray
	case "list":
		kind = AggList
	case "set":
		kind = AggSet
	case "bag":
		kind = AggBag
	}
	if err := p.next(); err != nil {
		return nil, err
	}
	a := Aggregate{Kind: kind}
	if p.peekPunct("[") {
		b, err := p.bound()
		if err != nil {
			return nil, err
		}
		a.Bound = b
	} else if kind == AggArray {
		return nil, p.errTok(`"["`)
	}
	if err := p.expectKw("of"); err != nil {
		return nil, err
	}
	if kind == AggArray {
		if ok, err := p.gotKw("optional"); err != nil {
			return nil, err
		} else if ok {
			a.Optional = true
		}
	}
	if kind == AggArray || kind == AggList {
		if ok, err := p.gotKw("unique"); err != nil {
			return nil, err
		} else if ok {
			a.Unique = true
		}
	}
	elem, err := p.typeExpr()
	if err != nil {
		return nil, err
	}
	a.Elem = elem
	return a, nil
}

// bound parses an aggregate bound spec `[lo:hi]` where hi may be `?`.
func (p *parser) bound() (*Bound, error) {
	if err := p.expectPunct("["); err != nil {
		return nil, err
	}
	lo, err := p.intLit()
	if err != nil {
		return nil, err
	}
	if err := p.expectPunct(":"); err != nil {
		return nil, err
	}
	b := &Bound{Lower: lo}
	if ok, err := p.gotPunct("?"); err != nil {
		return nil, err
	} else if ok {
		b.Unbounded = true
	} else {
		b.Upper, err = p.intLit()
		if err != nil {
			return nil, err
		}
	}
	return b, p.expectPunct("]")
}

func (p *parser) intLit() (int, error) {
	if p.tok.kind != tokInt {
		return 0, p.errTok("integer")
	}
	n, err := strconv.Atoi(p.tok.text)
	if err != nil {
		return 0, p.errHere("integer out of range")
	}
	return n, p.next()
}

// entity parses ENTITY ... END_ENTITY; declarations.
func (p *parser) entity() (*Entity, error) {
	e := &Entity{Pos: p.tok.pos}
	if err := p.next(); err != nil { // entity
		return nil, err
	}
	name, _, err := p.ident()
	if err != nil {
		return nil, err
	}
	e.Name = name
	if ok, err := p.gotKw("abstract"); err != nil {
		return nil, err
	} else if ok {
		e.Abstract = true
	}
	if ok, err := p.gotKw("supertype"); err != nil {
		return nil, err
	} else if ok {
		if ok, err := p.gotKw("of"); err != nil {
			return nil, err
		} else if ok {
			e.SuperOf, err = p.supertypeExpr()
			if err != nil {
				return nil, err
			}
		}
	}
	if ok, err := p.gotKw("subtype"); err != nil {
		return nil, err
	} else if ok {
		if err := p.expectKw("of"); err != nil {
			return nil, err
		}
		if err := p.expectPunct("("); err != nil {
			return nil, err
		}
		for {
			sup, _, err := p.ident()
			if err != nil {
				return nil, err
			}
			e.Subtype = append(e.Subtype, sup)
			if ok, err := p.gotPunct(","); err != nil {
				return nil, err
			} else if !ok {
				break
			}
		}
		if err := p.expectPunct(")"); err != nil {
			return nil, err
		}
	}
	if err := p.expectPunct(";"); err != nil {
		return nil, err
	}
	if err := p.attrs(e); err != nil {
		return nil, err
	}
	if ok, err := p.gotKw("derive"); err != nil {
		return nil, err
	} else if ok {
		if err := p.derive(e); err != nil {
			return nil, err
		}
	}
	if ok, err := p.gotKw("inverse"); err != nil {
		return nil, err
	} else if ok {
		if err := p.inverse(e); err != nil {
			return nil, err
		}
	}
	if ok, err := p.gotKw("unique"); err != nil {
		return nil, err
	} else if ok {
		e.Unique, err = p.rules()
		if err != nil {
			return nil, err
		}
	}
	if ok, err := p.gotKw("where"); err != nil {
		return nil, err
	} else if ok {
		e.Where, err = p.rules()
		if err != nil {
			return nil, err
		}
	}
	if err := p.expectKw("end_entity"); err != nil {
		return nil, err
	}
	return e, p.expectPunct(";")
}

// supertypeExpr flattens a SUPERTYPE OF constraint to the named subtypes.
// ONEOF, ANDOR and AND structure is not preserved, the registry only records
// which names were listed.
func (p *parser) supertypeExpr() ([]string, error) {
	if err := p.expectPunct("("); err != nil {
		return nil, err
	}
	var names []string
	depth := 1
	for depth > 0 {
		switch {
		case p.tok.kind == tokEOF:
			return nil, p.errTok(`")"`)
		case p.peekPunct("("):
			depth++
		case p.peekPunct(")"):
			depth--
		case p.tok.kind == tokIdent:
			switch p.tok.low {
			case "oneof", "andor", "and":
			default:
				names = append(names, p.tok.low)
			}
		}
		if err := p.next(); err != nil {
			return nil, err
		}
	}
	return names, nil
}

var sectionKws = map[string]bool{
	"derive": true, "inverse": true, "unique": true, "where": true,
	"end_entity": true, "end_type": true,
}

// attrs parses explicit attribute declarations until a section keyword. Comma
// groups like `x, y, z : REAL;` are split into one Attr per name.
func (p *parser) attrs(e *Entity) error {
	for p.tok.kind == tokIdent && !sectionKws[p.tok.low] {
		var names []string
		pos := p.tok.pos
		for {
			name, _, err := p.ident()
			if err != nil {
				return err
			}
			names = append(names, name)
			if ok, err := p.gotPunct(","); err != nil {
				return err
			} else if !ok {
				break
			}
		}
		if err := p.expectPunct(":"); err != nil {
			return err
		}
		opt, err := p.gotKw("optional")
		if err != nil {
			return err
		}
		typ, err := p.typeExpr()
		if err != nil {
			return err
		}
		if err := p.expectPunct(";"); err != nil {
			return err
		}
		for _, n := range names {
			e.Attrs = append(e.Attrs, &Attr{Pos: pos, Name: n, Type: typ, Optional: opt})
		}
	}
	return nil
}

// derive parses the DERIVE section. Expressions are captured as raw text and
// never evaluated.
func (p *parser) derive(e *Entity) error {
	for p.tok.kind == tokIdent && !sectionKws[p.tok.low] {
		d := &Derived{Pos: p.tok.pos}
		if p.tok.low == "self" {
			if err := p.next(); err != nil {
				return err
			}
			if err := p.expectPunct(`\`); err != nil {
				return err
			}
			of, _, err := p.ident()
			if err != nil {
				return err
			}
			d.Of = of
			if err := p.expectPunct("."); err != nil {
				return err
			}
		}
		name, _, err := p.ident()
		if err != nil {
			return err
		}
		d.Name = name
		if err := p.expectPunct(":"); err != nil {
			return err
		}
		d.Type, err = p.typeExpr()
		if err != nil {
			return err
		}
		if err := p.expectPunct(":="); err != nil {
			return err
		}
		d.Expr, err = p.rawExpr()
		if err != nil {
			return err
		}
		e.Derived = append(e.Derived, d)
	}
	return nil
}

// inverse parses the INVERSE section.
func (p *parser) inverse(e *Entity) error {
	for p.tok.kind == tokIdent && !sectionKws[p.tok.low] {
		iv := &Inverse{Pos: p.tok.pos}
		name, _, err := p.ident()
		if err != nil {
			return err
		}
		iv.Name = name
		if err := p.expectPunct(":"); err != nil {
			return err
		}
		if p.peekKw("set") || p.peekKw("bag") {
			if p.tok.low == "set" {
				iv.Agg = AggSet
			} else {
				iv.Agg = AggBag
			}
			if err := p.next(); err != nil {
				return err
			}
			if p.peekPunct("[") {
				iv.Bound, err = p.bound()
				if err != nil {
					return err
				}
			}
			if err := p.expectKw("of"); err != nil {
				return err
			}
		}
		iv.Entity, _, err = p.ident()
		if err != nil {
			return err
		}
		if err := p.expectKw("for"); err != nil {
			return err
		}
		iv.For, _, err = p.ident()
		if err != nil {
			return err
		}
		if err := p.expectPunct(";"); err != nil {
			return err
		}
		e.Inverse = append(e.Inverse, iv)
	}
	return nil
}

// rules parses labeled rule clauses in UNIQUE and WHERE sections. The label is
// optional for WHERE rules, a bare expression gets an empty label.
func (p *parser) rules() ([]Rule, error) {
	var res []Rule
	for p.tok.kind == tokIdent && !sectionKws[p.tok.low] || p.tok.kind == tokInt ||
		p.tok.kind == tokReal || p.tok.kind == tokStr || p.peekPunct("(") {
		r := Rule{Pos: p.tok.pos}
		if p.tok.kind == tokIdent && !p.peekKw("self") {
			// lookahead for `label :` vs a bare expression starting with an identifier
			label, end := p.tok.low, p.tok.end
			if err := p.next(); err != nil {
				return nil, err
			}
			if ok, err := p.gotPunct(":"); err != nil {
				return nil, err
			} else if ok {
				r.Label = label
			} else {
				raw, err := p.rawExprFrom(r.Pos.Off, end)
				if err != nil {
					return nil, err
				}
				r.Expr = raw
				res = append(res, r)
				continue
			}
		}
		raw, err := p.rawExpr()
		if err != nil {
			return nil, err
		}
		r.Expr = raw
		res = append(res, r)
	}
	return res, nil
}

// rawExpr captures tokens verbatim up to the terminating semicolon at nesting
// depth zero. The semicolon is consumed and not part of the result.
func (p *parser) rawExpr() (string, error) {
	return p.rawExprFrom(p.tok.pos.Off, p.tok.pos.Off)
}

func (p *parser) rawExprFrom(start, end int) (string, error) {
	depth := 0
	for {
		switch {
		case p.tok.kind == tokEOF:
			return "", p.errTok(`";"`)
		case p.peekPunct("(") || p.peekPunct("["):
			depth++
		case p.peekPunct(")") || p.peekPunct("]"):
			depth--
		case p.peekPunct(";") && depth == 0:
			raw := strings.TrimSpace(string(p.src[start:end]))
			return raw, p.next()
		}
		end = p.tok.end
		if err := p.next(); err != nil {
			return "", err
		}
	}
}
