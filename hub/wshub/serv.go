// Package wshub connects websocket clients to a hub, with an optional
// password gate for the model service.
package wshub

import (
	"net/http"
	"time"

	"github.com/gorilla/websocket"

	"github.com/mb0/step/hub"
	"github.com/mb0/step/log"
)

// Server accepts websocket connections and signs them on to the hub.
type Server struct {
	Hub *hub.Hub
	// Gate rejects requests before the upgrade, nil accepts all.
	Gate func(*http.Request) error
	Log  log.Logger
	upgr websocket.Upgrader
}

// Serve returns a http handler accepting websocket connections for h.
func Serve(h *hub.Hub) http.HandlerFunc { return (&Server{Hub: h}).Handler() }

func (s *Server) Handler() http.HandlerFunc {
	if s.Log == nil {
		s.Log = log.Root
	}
	return func(w http.ResponseWriter, r *http.Request) {
		if s.Gate != nil {
			err := s.Gate(r)
			if err != nil {
				http.Error(w, "unauthorized", http.StatusUnauthorized)
				return
			}
		}
		wc, err := s.upgr.Upgrade(w, r, nil)
		if err != nil {
			s.Log.Error("ws upgrade failed", "err", err)
			return
		}
		c := newConn(hub.NextID(), wc)
		t := time.NewTicker(60 * time.Second)
		defer t.Stop()
		hub.Signon(s.Hub, c)
		go c.writeAll(s.Log, t)
		err = c.readAll(s.Hub.Chan())
		hub.Signoff(s.Hub, c)
		if err != nil {
			s.Log.Error("ws read failed", "err", err)
		}
	}
}

// PassGate returns a request gate that verifies the pass header against the
// signed token.
func PassGate(v hub.Signer, token string) func(*http.Request) error {
	return func(r *http.Request) error {
		return v.Verify(token, r.Header.Get("X-Step-Pass"))
	}
}

// PassHeader returns the header presenting pass to a gated server.
func PassHeader(pass string) http.Header {
	return http.Header{"X-Step-Pass": []string{pass}}
}
