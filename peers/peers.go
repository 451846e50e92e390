// Copyright (C) 2026 Michael J. Fromberger. All Rights Reserved.

// Package peers provides support code for connecting hosts to viewers, and
// for testing them.
package peers

import (
	"context"
	"errors"
	"io"
	"net"

	"github.com/creachadair/flatembed"
	"github.com/creachadair/flatembed/channel"
	"github.com/creachadair/flatembed/frame"
	"github.com/creachadair/taskgroup"
)

// Local is an in-memory host connected to a viewer, with a document to
// create frames in, suitable for testing.
type Local struct {
	Host   *flatembed.Host
	Viewer *Viewer
	Doc    *frame.Document
}

// Stop shuts down the host and the viewer, and blocks until both have exited.
func (p *Local) Stop() error {
	herr := p.Host.Stop()
	verr := p.Viewer.Wait()
	if herr != nil {
		return herr
	}
	return verr
}

// NewLocal creates a host and a viewer that communicate via a direct channel
// without encoding. If v == nil, a new viewer is created. The viewer is
// started before NewLocal returns.
func NewLocal(v *Viewer) *Local {
	if v == nil {
		v = NewViewer()
	}
	h2v, v2h := channel.Direct()
	return &Local{
		Host:   flatembed.NewHost().Start(h2v),
		Viewer: v.Start(v2h),
		Doc:    frame.NewDocument(),
	}
}

// NewEmbed creates a container element in the document of p, and returns the
// embed for it.
func (p *Local) NewEmbed(params frame.Params) (*flatembed.Embed, *frame.Element, error) {
	box := p.Doc.CreateElement("div")
	p.Doc.Append(p.Doc.Body(), box)
	e, err := p.Host.Embed(box, params)
	if err != nil {
		return nil, nil, err
	}
	return e, box, nil
}

// An Accepter accepts channels from connecting hosts.
type Accepter interface {
	Accept(context.Context) (flatembed.Channel, error)
}

// Loop accepts connections from acc and starts a viewer for each one in a
// goroutine. Loop continues until acc closes or ctx ends.
//
// When ctx terminates, all running viewers are stopped. When acc closes, the
// loop waits for running viewers to exit before returning.
func Loop(ctx context.Context, acc Accepter, newViewer func() *Viewer) error {
	g := taskgroup.New(nil)
	for {
		ch, err := acc.Accept(ctx)
		if err != nil {
			if errors.Is(err, net.ErrClosed) {
				err = nil
			}
			g.Wait()
			return err
		}

		g.Go(func() error {
			sctx, cancel := context.WithCancel(ctx)
			defer cancel()

			v := newViewer().Start(ch)
			go func() { <-sctx.Done(); v.Stop() }()
			return v.Wait()
		})
	}
}

// NetAccepter adapts a net.Listener to the Accepter interface. Accepted
// connections use the newline-delimited JSON encoding of [channel.IO].
func NetAccepter(lst net.Listener) Accepter {
	return netAccepter{Listener: lst}
}

type netAccepter struct {
	net.Listener
}

func (n netAccepter) Accept(ctx context.Context) (flatembed.Channel, error) {
	// A net.Listener does not obey a context, so simulate it by closing the
	// listener if ctx ends. The ok channel allows the context watcher to clean
	// up when we return before ctx ends.
	ok := make(chan struct{})
	defer close(ok)
	taskgroup.Go(func() error {
		select {
		case <-ctx.Done():
			n.Listener.Close()
		case <-ok:
			// release the waiter
		}
		return nil
	})

	conn, err := n.Listener.Accept()
	if err != nil {
		return nil, err
	}
	return channel.IO(conn, conn), nil
}

func isClosed(err error) bool {
	return err == nil || errors.Is(err, io.EOF) || errors.Is(err, net.ErrClosed)
}
