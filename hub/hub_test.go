package hub

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

const testTimeout = time.Second

func recvMsg(t *testing.T, ch chan *Msg) *Msg {
	t.Helper()
	select {
	case m := <-ch:
		return m
	case <-time.After(testTimeout):
		t.Fatalf("no message received")
	}
	return nil
}

func TestHubRun(t *testing.T) {
	h := NewHub()
	go h.Run(RouterFunc(func(m *Msg) {
		if m.Subj == "echo" {
			m.From.Chan() <- &Msg{From: h, Subj: "echo", Data: m.Data}
		}
	}))
	ch := make(chan *Msg, 4)
	c := NewChanConn(NextID(), ch)
	Signon(h, c)
	h.Chan() <- &Msg{From: c, Subj: "echo", Data: "hi"}
	m := recvMsg(t, ch)
	require.Equal(t, "echo", m.Subj)
	require.Equal(t, "hi", m.Data)
	Signoff(h, c)
	require.Nil(t, recvMsg(t, ch))
}

func TestReq(t *testing.T) {
	h := NewHub()
	go h.Run(RouterFunc(func(m *Msg) {
		if m.Subj == "ping" {
			m.From.Chan() <- &Msg{From: h, Subj: "ping", Data: "pong"}
		}
	}))
	res, err := Req(h, &Msg{Subj: "ping"}, time.Second)
	require.NoError(t, err)
	require.Equal(t, "pong", res.Data)
	_, err = Req(h, &Msg{Subj: "void"}, 20*time.Millisecond)
	require.EqualError(t, err, "timeout")
}

func TestServices(t *testing.T) {
	h := NewHub()
	svc := Services{"greet": ServiceFunc(func(m *Msg) interface{} {
		return "hello " + string(m.Raw)
	})}
	go h.Run(svc.Router(h, nil))
	res, err := Req(h, &Msg{Subj: "greet", Tok: []byte("7"), Raw: []byte("you")}, time.Second)
	require.NoError(t, err)
	require.Equal(t, "hello you", res.Data)
	require.Equal(t, []byte("7"), res.Tok)
	err = svc.Handle(&Msg{Subj: "nosuch"}, h)
	require.Error(t, err)
}

func TestFilters(t *testing.T) {
	var got []string
	rec := RouterFunc(func(m *Msg) { got = append(got, m.Subj) })
	rs := Routers{
		NewMatchFilter(rec, "one"),
		NewPrefixFilter(rec, "pre."),
	}
	for _, subj := range []string{"one", "two", "pre.a", "pre.b", "nope"} {
		rs.Route(&Msg{Subj: subj})
	}
	require.Equal(t, []string{"one", "pre.a", "pre.b"}, got)
}

func TestRequestMap(t *testing.T) {
	var rm RequestMap
	ch := make(chan *Msg, 1)
	c := NewChanConn(-1, ch)
	tok := rm.Note(&Msg{From: c, Subj: "ask", Tok: []byte("orig")})
	require.NotEmpty(t, tok)
	err := rm.Response(&Msg{Subj: "ask", Tok: tok, Data: "answer"})
	require.NoError(t, err)
	m := recvMsg(t, ch)
	require.Equal(t, []byte("orig"), m.Tok)
	require.Equal(t, "answer", m.Data)
	// second response for the same token misses
	err = rm.Response(&Msg{Subj: "ask", Tok: tok})
	require.Error(t, err)
	err = rm.Response(&Msg{Subj: "ask"})
	require.Error(t, err)
	err = rm.Response(&Msg{Subj: "ask", Tok: []byte("zz!")})
	require.Error(t, err)
}

func TestBcrypt(t *testing.T) {
	var s Bcrypt
	tok, err := s.Sign("secret")
	require.NoError(t, err)
	require.NoError(t, s.Verify(tok, "secret"))
	require.Error(t, s.Verify(tok, "wrong"))
	var store Tokens
	require.NoError(t, store.Save("ada", tok))
	got, err := store.Token("ada")
	require.NoError(t, err)
	require.Equal(t, tok, got)
	_, err = store.Token("bob")
	require.Error(t, err)
}
