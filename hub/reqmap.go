package hub

import (
	"strconv"

	"github.com/pkg/errors"
)

type pending struct {
	from Conn
	tok  []byte
}

// RequestMap notes forwarded requests and maps responses back to the original
// sender, used by gateways that multiplex requests to a backend connection.
type RequestMap struct {
	seq  int64
	open map[string]pending
}

// Note records the request sender and token and returns a new token to
// forward the request with.
func (r *RequestMap) Note(m *Msg) []byte {
	if r.open == nil {
		r.open = make(map[string]pending)
	}
	r.seq++
	tok := strconv.FormatInt(r.seq, 16)
	r.open[tok] = pending{m.From, m.Tok}
	return []byte(tok)
}

// Response routes a response message back to the noted sender with the
// original token restored.
func (r *RequestMap) Response(m *Msg) error {
	if len(m.Tok) == 0 {
		return errors.Errorf("empty token for response %s", m.Subj)
	}
	p, ok := r.open[string(m.Tok)]
	if !ok {
		return errors.Errorf("no request with token %s", m.Tok)
	}
	delete(r.open, string(m.Tok))
	n := *m
	n.Tok = p.tok
	p.from.Chan() <- &n
	return nil
}
