package p21

import (
	"bufio"
	"io"
	"sort"
	"strconv"
	"strings"
)

// Write renders the exchange structure in canonical text form: instances
// ascending by id, one record per line, compact parameter spacing. Writing
// the result of a Read is stable, a second round trip is byte identical.
func Write(w io.Writer, x *Exchange) error {
	b := bufio.NewWriter(w)
	b.WriteString("ISO-10303-21;\n")
	writeHeader(b, &x.Header)
	for _, d := range x.Data {
		b.WriteString("DATA")
		if len(d.Meta) > 0 {
			writeGroup(b, d.Meta)
		}
		b.WriteString(";\n")
		for _, in := range sortedInstances(d.Instances) {
			writeInstance(b, in)
		}
		b.WriteString("ENDSEC;\n")
	}
	b.WriteString("END-ISO-10303-21;\n")
	return b.Flush()
}

// String renders the exchange structure to a string.
func String(x *Exchange) string {
	var b strings.Builder
	Write(&b, x)
	return b.String()
}

func sortedInstances(ins []*EntityInstance) []*EntityInstance {
	res := make([]*EntityInstance, len(ins))
	copy(res, ins)
	sort.SliceStable(res, func(i, j int) bool { return res[i].ID < res[j].ID })
	return res
}

func writeHeader(b *bufio.Writer, h *Header) {
	b.WriteString("HEADER;\n")
	b.WriteString("FILE_DESCRIPTION(")
	writeStrList(b, h.Description)
	b.WriteString(",")
	b.WriteString(quote(h.Implementation))
	b.WriteString(");\n")
	b.WriteString("FILE_NAME(")
	b.WriteString(quote(h.Name))
	b.WriteString(",")
	b.WriteString(quote(h.Time))
	b.WriteString(",")
	writeStrList(b, h.Author)
	b.WriteString(",")
	writeStrList(b, h.Organization)
	b.WriteString(",")
	b.WriteString(quote(h.Preprocessor))
	b.WriteString(",")
	b.WriteString(quote(h.Originating))
	b.WriteString(",")
	b.WriteString(quote(h.Authorization))
	b.WriteString(");\n")
	b.WriteString("FILE_SCHEMA(")
	writeStrList(b, h.Schemas)
	b.WriteString(");\n")
	for _, rec := range h.Extra {
		b.WriteString(strings.ToUpper(rec.Tag))
		writeGroup(b, rec.Params)
		b.WriteString(";\n")
	}
	b.WriteString("ENDSEC;\n")
}

func writeInstance(b *bufio.Writer, in *EntityInstance) {
	b.WriteString("#")
	b.WriteString(strconv.FormatInt(in.ID, 10))
	b.WriteString("=")
	if in.Complex() {
		b.WriteString("(")
		for _, rec := range in.Recs {
			b.WriteString(strings.ToUpper(rec.Tag))
			writeGroup(b, rec.Params)
		}
		b.WriteString(")")
	} else if len(in.Recs) == 1 {
		b.WriteString(strings.ToUpper(in.Recs[0].Tag))
		writeGroup(b, in.Recs[0].Params)
	}
	b.WriteString(";\n")
}

type strWriter interface {
	WriteString(s string) (int, error)
}

func writeGroup(w strWriter, params []Parameter) {
	w.WriteString("(")
	for i, p := range params {
		if i > 0 {
			w.WriteString(",")
		}
		writeParam(w, p)
	}
	w.WriteString(")")
}

func writeParam(w strWriter, p Parameter) {
	switch p := p.(type) {
	case Int:
		w.WriteString(strconv.FormatInt(int64(p), 10))
	case Real:
		w.WriteString(fmtReal(float64(p)))
	case Str:
		w.WriteString(quote(string(p)))
	case Bin:
		w.WriteString(`"` + string(p) + `"`)
	case Enum:
		w.WriteString("." + strings.ToUpper(string(p)) + ".")
	case Ref:
		w.WriteString("#" + strconv.FormatInt(int64(p), 10))
	case List:
		writeGroup(w, p)
	case Typed:
		w.WriteString(strings.ToUpper(p.Tag))
		w.WriteString("(")
		writeParam(w, p.Arg)
		w.WriteString(")")
	case Unset:
		w.WriteString("$")
	case Omit:
		w.WriteString("*")
	}
}

func writeStrList(w strWriter, list []string) {
	w.WriteString("(")
	for i, s := range list {
		if i > 0 {
			w.WriteString(",")
		}
		w.WriteString(quote(s))
	}
	w.WriteString(")")
}

// quote encodes a string parameter, doubling embedded apostrophes.
func quote(s string) string {
	return "'" + strings.ReplaceAll(s, "'", "''") + "'"
}

// fmtReal renders a real so it lexes back as one: a dot or exponent is always
// present.
func fmtReal(f float64) string {
	s := strconv.FormatFloat(f, 'G', -1, 64)
	if !strings.ContainsAny(s, ".E") {
		s += "."
	}
	return s
}
