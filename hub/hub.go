// Package hub provides a transport agnostic connection hub for the model
// services.
package hub

import "sync"

const (
	SubjSignon  = "+"
	SubjSignoff = "-"
)

// Msg is the central data structure passed between connections.
//
// The from and subj fields must be populated. Tok can be used by the origin
// connection to match replies to requests, it is otherwise unprocessed and
// completely optional. The message body is either represented by raw bytes or
// typed data, or both. If raw is not populated and data is, a transport may
// choose a serialization format, usually JSON. The data field avoids body
// serialization to and from bytes for in-process messages.
type Msg struct {
	// From is the connection this message originates from.
	From Conn
	// Subj is the message header used for routing and determining the data type.
	Subj string
	Tok  []byte
	Raw  []byte
	Data interface{}
}

// Router routes a received message to a connection.
type Router interface{ Route(*Msg) }

// Conn is the common interface providing an ID and channel for participants
// connected to a hub.
//
// Connections can represent one-off calls, connected clients of any kind, the
// hub itself or services like the model service. Connections can hold on to
// received message sender connections.
type Conn interface {
	// ID is an internal connection identifier, the hub has id 0, transient
	// connections have a negative and normal connections positive ids.
	ID() int64
	// Chan returns an unchanging receiver channel. The hub sends a nil
	// message to this channel after a sign-off message from this conn was
	// routed.
	Chan() chan<- *Msg
}

// Hub is the central server participant that manages connection sign-ons and
// sign-offs and keeps a list of all signed on participants. Hub itself
// implements a Conn with ID 0.
//
// One-off connections used for simple request-response round trips can be used
// without sign-on and must use the special ID -1. These connections can only
// be responded to directly and must not be held on to. The acceptors that send
// messages to the hub for routing are also responsible for sender sign-on and
// validation.
type Hub struct {
	sync.Mutex
	cmap map[int64]Conn
	mque chan *Msg
}

// NewHub creates and returns a new hub.
func NewHub() *Hub {
	return &Hub{
		cmap: make(map[int64]Conn, 64),
		mque: make(chan *Msg, 128),
	}
}

func (h *Hub) ID() int64         { return 0 }
func (h *Hub) Chan() chan<- *Msg { return h.mque }

// Signon sends a sign-on message for c to the hub.
func Signon(h *Hub, c Conn) { h.Chan() <- &Msg{From: c, Subj: SubjSignon} }

// Signoff sends a sign-off message for c to the hub.
func Signoff(h *Hub, c Conn) { h.Chan() <- &Msg{From: c, Subj: SubjSignoff} }

// Run starts routing received messages with the given router. It is usually
// run in a go routine.
func (h *Hub) Run(r Router) {
	for m := range h.mque {
		if m == nil {
			break
		}
		if m.Subj == SubjSignon {
			h.add(m.From)
		}
		r.Route(m)
		if m.Subj == SubjSignoff {
			h.drop(m.From)
		}
	}
}

func (h *Hub) add(c Conn) {
	h.Lock()
	defer h.Unlock()
	h.cmap[c.ID()] = c
}

func (h *Hub) drop(c Conn) {
	h.Lock()
	defer h.Unlock()
	delete(h.cmap, c.ID())
	c.Chan() <- nil
}
