// Copyright (C) 2026 Michael J. Fromberger. All Rights Reserved.

package channel

import (
	"context"
	"io"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/creachadair/flatembed"
	"github.com/gorilla/websocket"
)

// A WebSocket is a channel that exchanges messages over a WebSocket
// connection, one message per text frame, encoded as for [Marshal]. This is
// how a host process talks to a browser page that relays cross-document
// messages to and from its frames.
type WebSocket struct {
	conn *websocket.Conn

	closeOnce sync.Once
	closeErr  error
}

// NewWebSocket constructs a channel that communicates over conn.
func NewWebSocket(conn *websocket.Conn) *WebSocket { return &WebSocket{conn: conn} }

// Dial connects to the WebSocket endpoint at url and returns a channel for it.
func Dial(ctx context.Context, url string, header http.Header) (*WebSocket, error) {
	conn, _, err := websocket.DefaultDialer.DialContext(ctx, url, header)
	if err != nil {
		return nil, err
	}
	return NewWebSocket(conn), nil
}

// Send implements a method of the [flatembed.Channel] interface.
func (w *WebSocket) Send(msg *flatembed.Message) error {
	data, err := Marshal(msg)
	if err != nil {
		return err
	}
	return w.conn.WriteMessage(websocket.TextMessage, data)
}

// Recv implements a method of the [flatembed.Channel] interface. A normal
// closure by the remote endpoint is reported as io.EOF.
func (w *WebSocket) Recv() (*flatembed.Message, error) {
	for {
		mt, data, err := w.conn.ReadMessage()
		if err != nil {
			if websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				return nil, io.EOF
			}
			return nil, err
		}
		switch mt {
		case websocket.TextMessage, websocket.BinaryMessage:
			return Unmarshal(data)
		}
	}
}

// Close implements a method of the [flatembed.Channel] interface. It sends a
// close frame to the remote endpoint, and closes the connection.
func (w *WebSocket) Close() error {
	w.closeOnce.Do(func() {
		w.conn.WriteControl(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
			time.Now().Add(time.Second))
		w.closeErr = w.conn.Close()
	})
	return w.closeErr
}

// An Upgrader accepts WebSocket connections from HTTP requests and delivers
// them as channels. It implements [http.Handler], and its Accept method
// satisfies the [peers.Accepter] interface.
type Upgrader struct {
	websocket.Upgrader

	once  sync.Once
	stop  sync.Once
	conns chan *WebSocket
	done  chan struct{}
}

func (u *Upgrader) init() {
	u.once.Do(func() {
		u.conns = make(chan *WebSocket)
		u.done = make(chan struct{})
	})
}

// ServeHTTP upgrades the request to a WebSocket and delivers the resulting
// channel to a pending call of Accept.
func (u *Upgrader) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	u.init()
	conn, err := u.Upgrade(w, r, nil)
	if err != nil {
		return // Upgrade has already replied
	}
	ch := NewWebSocket(conn)
	select {
	case u.conns <- ch:
	case <-u.done:
		ch.Close()
	case <-r.Context().Done():
		ch.Close()
	}
}

// Accept blocks until a connection is upgraded, ctx ends, or u is closed.
func (u *Upgrader) Accept(ctx context.Context) (flatembed.Channel, error) {
	u.init()
	select {
	case ch := <-u.conns:
		return ch, nil
	case <-u.done:
		return nil, net.ErrClosed
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// Close stops u from accepting further connections.
func (u *Upgrader) Close() error {
	u.init()
	u.stop.Do(func() { close(u.done) })
	return nil
}
