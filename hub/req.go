package hub

import (
	"sync/atomic"
	"time"

	"github.com/pkg/errors"
)

var lastID int64

// NextID returns a new unused normal connection id.
func NextID() int64 { return atomic.AddInt64(&lastID, 1) }

// ChanConn is a channel based connection used for simple in-process hub participants.
type ChanConn struct {
	id int64
	ch chan *Msg
}

// NewChanConn returns a new channel connection with the given id and channel.
func NewChanConn(id int64, c chan *Msg) *ChanConn { return &ChanConn{id, c} }

func (c *ChanConn) ID() int64         { return c.id }
func (c *ChanConn) Chan() chan<- *Msg { return c.ch }

// Req sends req to the hub from a transient one-off connection and returns the
// first response. It fails when the connection closes or timeout is reached.
func Req(h *Hub, req *Msg, timeout time.Duration) (*Msg, error) {
	ch := make(chan *Msg, 1)
	req.From = NewChanConn(-1, ch)
	h.Chan() <- req
	t := time.NewTimer(timeout)
	defer t.Stop()
	select {
	case res := <-ch:
		if res == nil {
			return nil, errors.New("conn closed")
		}
		return res, nil
	case <-t.C:
		return nil, errors.New("timeout")
	}
}
