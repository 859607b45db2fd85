package p21

import (
	"io"
	"io/ioutil"
	"strconv"
	"strings"

	"github.com/hashicorp/go-multierror"
)

// Read parses an exchange structure document. Diagnostics are collected per
// record, the partially read exchange is returned alongside the combined
// error so tolerant callers can keep going.
func Read(r io.Reader, name string) (*Exchange, error) {
	b, err := ioutil.ReadAll(r)
	if err != nil {
		return nil, err
	}
	return ReadBytes(name, b)
}

// ReadString is ReadBytes for string input.
func ReadString(name, src string) (*Exchange, error) {
	return ReadBytes(name, []byte(src))
}

// ReadBytes parses an exchange structure document from src.
func ReadBytes(name string, src []byte) (*Exchange, error) {
	p := &reader{lex: newLexer(name, src), x: &Exchange{}}
	p.next()
	p.parse()
	var res *multierror.Error
	res = multierror.Append(res, p.errs...)
	return p.x, res.ErrorOrNil()
}

type reader struct {
	lex  *lexer
	tok  token
	x    *Exchange
	errs []error
}

// next advances to the following token. Lexer diagnostics are collected and
// the lexer is synced past the next semicolon.
func (p *reader) next() {
	for {
		tok, err := p.lex.next()
		if err == nil {
			p.tok = tok
			return
		}
		p.report(err)
		p.lex.sync()
	}
}

func (p *reader) report(err error) {
	p.errs = append(p.errs, err)
}

func (p *reader) errHere(format string, args ...interface{}) *ParseError {
	return p.lex.errf(p.tok.line, p.tok.col, format, args...)
}

// sync skips tokens through the next semicolon, recovering after a record
// level problem.
func (p *reader) sync() {
	for p.tok.kind != tEOF {
		if p.tok.kind == tPunct && p.tok.text == ";" {
			p.next()
			return
		}
		p.next()
	}
}

func (p *reader) isPunct(text string) bool {
	return p.tok.kind == tPunct && p.tok.text == text
}

func (p *reader) isIdent(name string) bool {
	return p.tok.kind == tIdent && strings.EqualFold(p.tok.text, name)
}

func (p *reader) expectPunct(text string) bool {
	if !p.isPunct(text) {
		p.report(p.errHere("expected %q got %q", text, p.tok.text))
		return false
	}
	p.next()
	return true
}

func (p *reader) parse() {
	if !p.isIdent("ISO-10303-21") {
		p.report(p.errHere("not an exchange structure, expected ISO-10303-21"))
		return
	}
	p.next()
	if !p.expectPunct(";") {
		return
	}
	if p.isIdent("HEADER") {
		p.header()
	}
	for p.isIdent("DATA") {
		p.data()
	}
	if !p.isIdent("END-ISO-10303-21") {
		p.report(p.errHere("expected END-ISO-10303-21 got %q", p.tok.text))
		return
	}
	p.next()
	p.expectPunct(";")
}

func (p *reader) header() {
	p.next() // HEADER
	p.expectPunct(";")
	for p.tok.kind == tIdent && !p.isIdent("ENDSEC") {
		name := p.tok.text
		p.next()
		params, ok := p.paramGroup()
		if !ok || !p.expectPunct(";") {
			p.sync()
			continue
		}
		p.headerRec(name, params)
	}
	if p.isIdent("ENDSEC") {
		p.next()
		p.expectPunct(";")
	} else {
		p.report(p.errHere("unterminated header section"))
	}
}

// headerRec maps the well-known header records onto Header fields and keeps
// anything else verbatim.
func (p *reader) headerRec(name string, params []Parameter) {
	h := &p.x.Header
	switch strings.ToUpper(name) {
	case "FILE_DESCRIPTION":
		h.Description = strList(at(params, 0))
		h.Implementation = str(at(params, 1))
	case "FILE_NAME":
		h.Name = str(at(params, 0))
		h.Time = str(at(params, 1))
		h.Author = strList(at(params, 2))
		h.Organization = strList(at(params, 3))
		h.Preprocessor = str(at(params, 4))
		h.Originating = str(at(params, 5))
		h.Authorization = str(at(params, 6))
	case "FILE_SCHEMA":
		h.Schemas = strList(at(params, 0))
	default:
		h.Extra = append(h.Extra, Rec{Tag: name, Params: params})
	}
}

func at(params []Parameter, i int) Parameter {
	if i >= len(params) {
		return Unset{}
	}
	return params[i]
}

func str(p Parameter) string {
	s, _ := p.(Str)
	return string(s)
}

func strList(p Parameter) []string {
	l, ok := p.(List)
	if !ok {
		return nil
	}
	res := make([]string, 0, len(l))
	for _, e := range l {
		res = append(res, str(e))
	}
	return res
}

func (p *reader) data() {
	d := &DataSection{}
	p.x.Data = append(p.x.Data, d)
	p.next() // DATA
	if p.isPunct("(") {
		params, ok := p.paramGroup()
		if !ok {
			p.sync()
		} else {
			d.Meta = params
		}
	}
	p.expectPunct(";")
	seen := make(map[int64]bool)
	for p.tok.kind != tEOF && !p.isIdent("ENDSEC") {
		if p.tok.kind != tRef {
			p.report(p.errHere("expected instance record got %q", p.tok.text))
			p.sync()
			continue
		}
		line, col := p.tok.line, p.tok.col
		in, ok := p.instance()
		if !ok {
			p.sync()
			continue
		}
		if seen[in.ID] {
			p.report(&ParseError{Kind: DuplicateInstanceID, Name: p.lex.name,
				Line: line, Col: col,
				Msg: "duplicate instance id #" + strconv.FormatInt(in.ID, 10)})
		}
		seen[in.ID] = true
		d.Instances = append(d.Instances, in)
	}
	if p.isIdent("ENDSEC") {
		p.next()
		p.expectPunct(";")
	} else {
		p.report(p.errHere("unterminated data section"))
	}
	d.index()
}

// instance parses one `#id = rec;` or `#id = (rec rec ...);` record. The
// caller syncs on failure.
func (p *reader) instance() (*EntityInstance, bool) {
	in := &EntityInstance{Line: p.tok.line}
	id, err := strconv.ParseInt(p.tok.text, 10, 64)
	if err != nil {
		p.report(p.errHere("instance id out of range"))
		return nil, false
	}
	in.ID = id
	p.next()
	if !p.expectPunct("=") {
		return nil, false
	}
	switch {
	case p.tok.kind == tIdent:
		rec, ok := p.rec()
		if !ok {
			return nil, false
		}
		in.Recs = []Rec{rec}
	case p.isPunct("("):
		in.Sub = true
		p.next()
		for p.tok.kind == tIdent {
			rec, ok := p.rec()
			if !ok {
				return nil, false
			}
			in.Recs = append(in.Recs, rec)
		}
		if len(in.Recs) == 0 {
			p.report(p.errHere("empty complex record"))
			return nil, false
		}
		if !p.expectPunct(")") {
			return nil, false
		}
	default:
		p.report(p.errHere("expected entity tag got %q", p.tok.text))
		return nil, false
	}
	if !p.expectPunct(";") {
		return nil, false
	}
	return in, true
}

func (p *reader) rec() (Rec, bool) {
	rec := Rec{Tag: p.tok.text}
	p.next()
	params, ok := p.paramGroup()
	if !ok {
		return rec, false
	}
	rec.Params = params
	return rec, true
}

// paramGroup parses a parenthesized, possibly empty parameter list.
func (p *reader) paramGroup() ([]Parameter, bool) {
	if !p.expectPunct("(") {
		return nil, false
	}
	if p.isPunct(")") {
		p.next()
		return []Parameter{}, true
	}
	var params []Parameter
	for {
		param, ok := p.param()
		if !ok {
			return nil, false
		}
		params = append(params, param)
		if p.isPunct(",") {
			p.next()
			continue
		}
		break
	}
	if !p.expectPunct(")") {
		return nil, false
	}
	return params, true
}

func (p *reader) param() (Parameter, bool) {
	switch p.tok.kind {
	case tInt:
		n, err := strconv.ParseInt(p.tok.text, 10, 64)
		if err != nil {
			p.report(p.errHere("integer out of range"))
			return nil, false
		}
		p.next()
		return Int(n), true
	case tReal:
		f, err := strconv.ParseFloat(p.tok.text, 64)
		if err != nil {
			p.report(p.errHere("malformed real"))
			return nil, false
		}
		p.next()
		return Real(f), true
	case tStr:
		s := Str(p.tok.text)
		p.next()
		return s, true
	case tBin:
		b := Bin(p.tok.text)
		p.next()
		return b, true
	case tEnum:
		e := Enum(p.tok.text)
		p.next()
		return e, true
	case tRef:
		n, err := strconv.ParseInt(p.tok.text, 10, 64)
		if err != nil {
			p.report(p.errHere("instance id out of range"))
			return nil, false
		}
		p.next()
		return Ref(n), true
	case tIdent:
		tag := p.tok.text
		p.next()
		if !p.expectPunct("(") {
			return nil, false
		}
		arg, ok := p.param()
		if !ok {
			return nil, false
		}
		if !p.expectPunct(")") {
			return nil, false
		}
		return Typed{Tag: tag, Arg: arg}, true
	case tPunct:
		switch p.tok.text {
		case "$":
			p.next()
			return Unset{}, true
		case "*":
			p.next()
			return Omit{}, true
		case "(":
			p.next()
			if p.isPunct(")") {
				p.next()
				return List{}, true
			}
			var list List
			for {
				param, ok := p.param()
				if !ok {
					return nil, false
				}
				list = append(list, param)
				if p.isPunct(",") {
					p.next()
					continue
				}
				break
			}
			if !p.expectPunct(")") {
				return nil, false
			}
			return list, true
		}
	}
	p.report(p.errHere("unexpected parameter token %q", p.tok.text))
	return nil, false
}
