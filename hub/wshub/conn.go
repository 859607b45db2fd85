package wshub

import (
	"bytes"
	"encoding/json"
	"time"

	"github.com/gorilla/websocket"
	"github.com/pkg/errors"

	"github.com/mb0/step/hub"
	"github.com/mb0/step/log"
)

const writeTimeout = 10 * time.Second

// conn adapts a websocket connection to the hub conn interface. Messages are
// text frames of the form `subj#tok\nbody`, token and body are optional.
type conn struct {
	id   int64
	wc   *websocket.Conn
	send chan *hub.Msg
}

func newConn(id int64, wc *websocket.Conn) *conn {
	return &conn{id: id, wc: wc, send: make(chan *hub.Msg, 32)}
}

func (c *conn) ID() int64             { return c.id }
func (c *conn) Chan() chan<- *hub.Msg { return c.send }

// readAll reads messages and forwards them to r until the connection closes.
func (c *conn) readAll(r chan<- *hub.Msg) error {
	for {
		op, raw, err := c.wc.ReadMessage()
		if err != nil {
			if cerr, ok := err.(*websocket.CloseError); ok {
				switch cerr.Code {
				case websocket.CloseNormalClosure, websocket.CloseGoingAway:
					return nil
				}
			}
			return errors.Wrap(err, "ws read")
		}
		if op == websocket.BinaryMessage {
			return errors.New("unexpected binary message")
		}
		if op != websocket.TextMessage {
			continue
		}
		m, err := readMsg(raw)
		if err != nil {
			return err
		}
		m.From = c
		r <- m
	}
}

// writeAll pumps messages from the send channel to the connection and pings on
// every tick. A nil message on the send channel closes the connection, the hub
// sends it after the sign-off was routed.
func (c *conn) writeAll(l log.Logger, t *time.Ticker) {
	defer c.wc.Close()
Outer:
	for {
		select {
		case m, ok := <-c.send:
			if !ok || m == nil {
				break Outer
			}
			err := c.writeMsg(m)
			if err != nil {
				l.Error("ws write failed", "err", err)
				return
			}
		case <-t.C:
			c.wc.SetWriteDeadline(time.Now().Add(writeTimeout))
			err := c.wc.WriteMessage(websocket.PingMessage, []byte{})
			if err != nil {
				return
			}
		}
	}
	c.wc.SetWriteDeadline(time.Now().Add(writeTimeout))
	c.wc.WriteMessage(websocket.CloseMessage, []byte{})
}

func readMsg(raw []byte) (*hub.Msg, error) {
	head := raw
	var tok, body []byte
	if idx := bytes.IndexByte(head, '\n'); idx >= 0 {
		head, body = head[:idx], head[idx+1:]
	}
	if idx := bytes.IndexByte(head, '#'); idx >= 0 {
		head, tok = head[:idx], head[idx+1:]
	}
	if len(head) == 0 {
		return nil, errors.New("message without subject")
	}
	return &hub.Msg{Subj: string(head), Tok: tok, Raw: body}, nil
}

func (c *conn) writeMsg(m *hub.Msg) error {
	var b bytes.Buffer
	err := writeMsgTo(&b, m)
	if err != nil {
		return err
	}
	c.wc.SetWriteDeadline(time.Now().Add(writeTimeout))
	return c.wc.WriteMessage(websocket.TextMessage, b.Bytes())
}

func writeMsgTo(b *bytes.Buffer, m *hub.Msg) error {
	b.WriteString(m.Subj)
	if len(m.Tok) != 0 {
		b.WriteByte('#')
		b.Write(m.Tok)
	}
	if len(m.Raw) != 0 {
		b.WriteByte('\n')
		b.Write(m.Raw)
		return nil
	}
	if m.Data != nil {
		b.WriteByte('\n')
		return json.NewEncoder(b).Encode(m.Data)
	}
	return nil
}
