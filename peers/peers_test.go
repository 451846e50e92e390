// Copyright (C) 2026 Michael J. Fromberger. All Rights Reserved.

package peers_test

import (
	"context"
	"encoding/json"
	"errors"
	"net"
	"net/http/httptest"
	"strings"
	"testing"
	"testing/synctest"
	"time"

	"github.com/creachadair/flatembed"
	"github.com/creachadair/flatembed/channel"
	"github.com/creachadair/flatembed/frame"
	"github.com/creachadair/flatembed/handler"
	"github.com/creachadair/flatembed/peers"
	"github.com/creachadair/taskgroup"
	"github.com/fortytw2/leaktest"
	"github.com/google/go-cmp/cmp"
)

func mustListen(t *testing.T) (_ net.Listener, addr string) {
	t.Helper()
	lst, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("Listen: %v", err)
	}
	addr = lst.Addr().String()
	t.Cleanup(func() { lst.Close() })
	t.Logf("Listening at %q", addr)
	return lst, addr
}

type fakeListener struct {
	net.Listener // stub for unused methods
	conns        chan net.Conn
	closed       chan struct{}
}

func (f fakeListener) push(c net.Conn) { f.conns <- c }

func (f fakeListener) Accept() (net.Conn, error) {
	select {
	case <-f.closed:
		return nil, net.ErrClosed
	case c := <-f.conns:
		return c, nil
	}
}

func (f fakeListener) Close() error {
	select {
	case <-f.closed:
		return net.ErrClosed
	default:
		close(f.closed)
		return nil
	}
}

func newFakeListener() fakeListener {
	return fakeListener{
		conns:  make(chan net.Conn),
		closed: make(chan struct{}),
	}
}

// fakeConn is a fake implementation of [net.Conn] that does not work but which
// satisfies the interface, for use in testing. Only the Close method can be
// called without panicking.
type fakeConn struct{ net.Conn }

func (fakeConn) Close() error { return nil }

func TestAccepter(t *testing.T) {
	t.Run("OK", func(t *testing.T) {
		synctest.Test(t, func(t *testing.T) {
			lst := newFakeListener()
			acc := peers.NetAccepter(lst)

			time.AfterFunc(1*time.Second, func() { lst.push(fakeConn{}) })
			c, err := acc.Accept(t.Context())
			if err != nil {
				t.Fatalf("Accept: unexpected error: %v", err)
			}
			if _, ok := c.(channel.IOChannel); !ok {
				t.Errorf("Accept: got %[1]T %[1]v, want %T", c, channel.IOChannel{})
			}

			// The listener should not be closed.
			if err := lst.Close(); err != nil {
				t.Errorf("Close listener: unexpected error: %v", err)
			}
		})
	})

	t.Run("Cancel", func(t *testing.T) {
		synctest.Test(t, func(t *testing.T) {
			lst := newFakeListener()
			acc := peers.NetAccepter(lst)
			ctx, cancel := context.WithTimeout(t.Context(), 5*time.Second)
			defer cancel()

			ch, err := acc.Accept(ctx)
			if err == nil {
				t.Errorf("Accept: got %v, want error", ch)
			}

			// The listener should already be closed, so this should report that error.
			if err := lst.Close(); !errors.Is(err, net.ErrClosed) {
				t.Errorf("Close listener: got %v, want %v", err, net.ErrClosed)
			}
		})
	})
}

func newViewer() *peers.Viewer {
	return peers.NewViewer().Handle("getNbMeasures", slowCount)
}

func slowCount(ctx context.Context, _ json.RawMessage) (any, error) {
	time.Sleep(7 * time.Millisecond)
	return 16, nil
}

// runClients connects numClients hosts with dial, and has each make numCalls
// calls to a viewer.
func runClients(t *testing.T, dial func() (flatembed.Channel, error)) error {
	const numClients = 5
	const numCalls = 5
	t.Logf("Clients: %d, calls per client: %d", numClients, numCalls)

	g := taskgroup.New(nil)
	for range numClients {
		g.Go(func() error {
			ch, err := dial()
			if err != nil {
				return err
			}
			loc := &peers.Local{Host: flatembed.NewHost().Start(ch), Doc: frame.NewDocument()}
			defer loc.Host.Stop()

			e, _, err := loc.NewEmbed(frame.Params{})
			if err != nil {
				return err
			}
			for j := range numCalls {
				n, err := e.GetNbMeasures(t.Context())
				if err != nil {
					t.Errorf("Call %d: %v", j+1, err)
				} else if n != 16 {
					t.Errorf("Call %d: got %d, want 16", j+1, n)
				}
			}
			return nil
		})
	}
	return g.Wait()
}

func TestLoop(t *testing.T) {
	defer leaktest.Check(t)()

	lst, addr := mustListen(t)
	ctx, cancel := context.WithCancel(t.Context())
	defer cancel()

	loop := taskgroup.Go(func() error {
		return peers.Loop(ctx, peers.NetAccepter(lst), newViewer)
	})
	t.Log("Started viewer loop...")

	err := runClients(t, func() (flatembed.Channel, error) {
		conn, err := net.Dial("tcp", addr)
		if err != nil {
			return nil, err
		}
		return channel.IO(conn, conn), nil
	})
	if err != nil {
		t.Errorf("Clients: %v", err)
	}
	t.Logf("Closed listener, err=%v", lst.Close())
	if err := loop.Wait(); err != nil {
		t.Errorf("Loop: %v", err)
	}
}

func TestLoopWebSocket(t *testing.T) {
	defer leaktest.Check(t)()

	up := new(channel.Upgrader)
	srv := httptest.NewServer(up)
	defer srv.Close()

	loop := taskgroup.Go(func() error {
		return peers.Loop(t.Context(), up, newViewer)
	})
	url := "ws" + strings.TrimPrefix(srv.URL, "http")
	if err := runClients(t, func() (flatembed.Channel, error) {
		return channel.Dial(t.Context(), url, nil)
	}); err != nil {
		t.Errorf("Clients: %v", err)
	}
	up.Close()
	if err := loop.Wait(); err != nil {
		t.Errorf("Loop: %v", err)
	}
}

func TestViewer(t *testing.T) {
	defer leaktest.Check(t)()

	v := peers.NewViewer().
		Handle("getZoom", handler.Value(2)).
		HandleDefault(handler.Echo)
	loc := peers.NewLocal(v)
	defer func() {
		if err := loc.Stop(); err != nil {
			t.Errorf("Stop: %v", err)
		}
	}()

	e, _, err := loc.NewEmbed(frame.Params{})
	if err != nil {
		t.Fatalf("NewEmbed: %v", err)
	}
	ctx := context.Background()
	if z, err := e.GetZoom(ctx); err != nil || z != 2 {
		t.Errorf("GetZoom: got (%v, %v), want (2, nil)", z, err)
	}
	if err := e.SetPartVolume(ctx, "p1", 40); err != nil {
		t.Errorf("SetPartVolume: %v", err)
	}
	if err := e.SetMasterVolume(ctx, 70); err != nil {
		t.Errorf("SetMasterVolume: %v", err)
	}
	rsp, err := e.Call(ctx, "anything", []int{1, 2})
	if err != nil || string(rsp) != "[1,2]" {
		t.Errorf("Call anything: got (%s, %v), want ([1,2], nil)", rsp, err)
	}

	type wire struct{ Method, Params string }
	var got []wire
	for _, r := range v.Received() {
		var p string
		if raw, ok := r.Command.Parameters.(json.RawMessage); ok {
			p = string(raw)
		}
		got = append(got, wire{r.Command.Method, p})
	}
	want := []wire{
		{"ping", ""},
		{"getZoom", ""},
		{"setPartVolume", `{"partUuid":"p1","volume":40}`},
		{"getMasterVolume", `{"volume":70}`},
		{"anything", "[1,2]"},
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("Received (-want, +got):\n%s", diff)
	}
	if n := v.Count("getZoom"); n != 1 {
		t.Errorf("Count(getZoom): got %d, want 1", n)
	}
	if err := v.Post(e.Window(), "x"); err != nil {
		t.Errorf("Post: %v", err)
	}
}

func TestViewerStopped(t *testing.T) {
	defer leaktest.Check(t)()
	v := peers.NewViewer()
	if err := v.Emit("w", "play", nil); !errors.Is(err, flatembed.ErrNotRunning) {
		t.Errorf("Emit before start: got %v, want %v", err, flatembed.ErrNotRunning)
	}
	if err := v.Wait(); err != nil {
		t.Errorf("Wait before start: %v", err)
	}

	a, b := channel.Direct()
	v.Start(b)
	a.Close()
	if err := v.Wait(); err != nil {
		t.Errorf("Wait: got %v, want nil", err)
	}
	if _, err := a.Recv(); !errors.Is(err, net.ErrClosed) {
		t.Errorf("Recv after viewer exit: got %v, want %v", err, net.ErrClosed)
	}
}
