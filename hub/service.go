package hub

import "github.com/pkg/errors"

// A Service is a common interface for the last message processor in line.
// It usually is used by wrappers that handle request parsing and delegate.
type Service interface {
	// Serve handles the message and returns the response data or nil.
	Serve(*Msg) interface{}
}

// ServiceFunc implements Service for simple handler functions.
type ServiceFunc func(*Msg) interface{}

func (f ServiceFunc) Serve(m *Msg) interface{} { return f(m) }

// Services is a map of message subjects to service processors.
type Services map[string]Service

// Handle calls the service with m's subject or returns an error.
// If the service returns data and c is not nil, a reply is sent to the sender.
func (s Services) Handle(m *Msg, c Conn) error {
	f := s[m.Subj]
	if f == nil {
		return errors.Errorf("service not supported %s", m.Subj)
	}
	res := f.Serve(m)
	if res != nil && c != nil {
		m.From.Chan() <- &Msg{From: c, Subj: m.Subj, Tok: m.Tok, Data: res}
	}
	return nil
}

// Router returns a router that handles the service subjects with c as the
// reply sender and logs handler errors through f, which may be nil.
func (s Services) Router(c Conn, f func(error)) Router {
	return RouterFunc(func(m *Msg) {
		err := s.Handle(m, c)
		if err != nil && f != nil {
			f(err)
		}
	})
}
