package wshub

import (
	"net/http"
	"time"

	"github.com/gorilla/websocket"

	"github.com/mb0/step/hub"
	"github.com/mb0/step/log"
)

// Client is a websocket hub connection for command line tools and tests.
// Messages sent to the client chan go to the server, received messages arrive
// on the channel passed to connect.
type Client struct {
	url  string
	id   int64
	send chan *hub.Msg
	*websocket.Dialer
	Header http.Header
	Log    log.Logger
}

func NewClient(url string) *Client {
	return &Client{url: url, id: hub.NextID(), send: make(chan *hub.Msg, 32)}
}

func (c *Client) ID() int64             { return c.id }
func (c *Client) Chan() chan<- *hub.Msg { return c.send }

// Connect dials the server and pumps messages until the connection closes.
// It brackets the received messages on r with sign-on and sign-off messages.
func (c *Client) Connect(r chan<- *hub.Msg) error {
	c.init()
	wc, _, err := c.Dial(c.url, c.Header)
	if err != nil {
		return err
	}
	cc := &conn{id: c.id, wc: wc, send: c.send}
	t := time.NewTicker(60 * time.Second)
	defer t.Stop()
	r <- &hub.Msg{From: c, Subj: hub.SubjSignon}
	go cc.writeAll(c.Log, t)
	err = cc.readAll(r)
	r <- &hub.Msg{From: c, Subj: hub.SubjSignoff}
	return err
}

// Close stops the write pump and closes the connection.
func (c *Client) Close() error {
	c.send <- nil
	return nil
}

func (c *Client) init() {
	if c.Dialer == nil {
		c.Dialer = websocket.DefaultDialer
	}
	if c.Log == nil {
		c.Log = log.Root
	}
}
