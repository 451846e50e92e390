// Copyright (C) 2026 Michael J. Fromberger. All Rights Reserved.

package flatembed

import (
	"errors"
	"expvar"
	"io"
	"net"
	"runtime"
	"sync"
	"weak"

	"github.com/creachadair/flatembed/frame"
	"github.com/creachadair/taskgroup"
	"github.com/golang/glog"
)

// A Host is the message listener of a host page. It receives every message
// posted to the page over a Channel, and routes each one to the Embed whose
// frame sent it. Messages from frames without an Embed are discarded.
//
// A zero-valued Host is ready for use, but must not be copied after any method
// has been called. Call Start with a channel to start the service routine.
// Once started, a host runs until Stop is called, the channel closes, or the
// channel reports an error. Use Wait to wait for the host to exit and report
// its status.
//
// A Host also owns the registry of embeds: there is at most one Embed for each
// element, see Host.Embed.
type Host struct {
	in  interface{ Recv() (*Message, error) }
	out struct {
		// Must hold the lock to send to or set ch.
		sync.Mutex
		ch Channel
	}
	tasks *taskgroup.Group
	done  chan struct{} // closed when the service routine exits

	μ sync.Mutex

	err     error                                  // channel failure
	embeds  map[weak.Pointer[frame.Element]]*Embed // element → embed
	windows map[string]*Embed                      // content window ID → embed
	mlog    MessageLogger                          // what it says on the tin

	onExit func(error)
}

// NewHost constructs a new unstarted host.
func NewHost() *Host { return new(Host) }

// Start starts the host running on the given channel. Start does not block;
// call Wait to wait for the host to exit and report its status.
func (h *Host) Start(ch Channel) *Host {
	h.μ.Lock()
	defer h.μ.Unlock()
	if h.in != nil {
		panic("host is already started")
	}

	g := taskgroup.New(nil)
	h.in = ch
	h.tasks = g
	h.done = make(chan struct{})
	h.out.Lock()
	h.out.ch = ch
	h.out.Unlock()
	h.err = nil
	h.embeds = make(map[weak.Pointer[frame.Element]]*Embed)
	h.windows = make(map[string]*Embed)

	in := h.in
	g.Go(func() error {
		for {
			msg, err := in.Recv()
			if err != nil {
				h.fail(err)
				return nil
			}
			hostStats.msgRecv.Add(1)
			h.route(msg)
		}
	})
	return h
}

// Metrics returns a metrics map for the host. It is safe for the caller to add
// additional metrics to the map while the host is active.
func (h *Host) Metrics() *expvar.Map { return hostStats.emap }

// Stop closes the channel and terminates the host. It blocks until the host
// has exited and returns its status. After Stop completes it is safe to
// restart the host with a new channel.
func (h *Host) Stop() error { h.closeOut(); return h.Wait() }

func treatErrorAsSuccess(err error) bool {
	return errors.Is(err, io.EOF) || errors.Is(err, net.ErrClosed)
}

// Wait blocks until h terminates and reports the error that caused it to
// stop. If h is not running, or stopped because its channel closed, Wait
// returns nil.
//
// Embeds created by h are unusable after it stops: their pending calls fail,
// and further calls report ErrNotRunning.
func (h *Host) Wait() error {
	h.μ.Lock()
	t := h.tasks
	h.μ.Unlock()
	if t == nil {
		return nil // the host is not running
	}
	t.Wait()

	// Clean up host state so it can be garbage collected.
	h.μ.Lock()
	defer h.μ.Unlock()
	h.in = nil
	h.tasks = nil
	h.out.Lock()
	h.out.ch = nil
	h.out.Unlock()
	hostStats.sessions.Add(-int64(len(h.windows)))
	h.embeds = nil
	h.windows = nil

	if treatErrorAsSuccess(h.err) {
		return nil
	}
	return h.err
}

// LogMessages registers a callback that will be invoked for each message
// exchanged with the embedded frames, including messages to be discarded.
//
// Passing a nil callback disables message logging. The logger is invoked
// synchronously, prior to sending or routing a message.
func (h *Host) LogMessages(log MessageLogger) *Host {
	h.μ.Lock()
	defer h.μ.Unlock()
	h.mlog = log
	return h
}

// OnExit registers a callback to be invoked when the host terminates.  The
// callback is executed synchronously during shutdown, with the same error
// value that would be reported by the Wait method.
//
// Only one exit callback can be registered at a time; if f == nil the callback
// is removed.
func (h *Host) OnExit(f func(error)) *Host {
	h.μ.Lock()
	defer h.μ.Unlock()
	h.onExit = f
	return h
}

// Embed returns the Embed for el, creating it if necessary.
//
// If el is an iframe, the embed talks to the viewer loaded in it. Otherwise el
// is a container, and a new iframe configured by p is created inside it.
// Either way, later calls with el, or with the iframe created for it, return
// the same Embed and p is ignored.
//
// Creating an embed sends a liveness probe to the frame. The embed becomes
// ready when the viewer answers the probe or reports a "ready" event.
//
// The host does not keep el alive: once el is garbage collected its embed is
// removed from the registry.
func (h *Host) Embed(el *frame.Element, p frame.Params) (*Embed, error) {
	if el == nil {
		return nil, invalidArgf("nil element")
	}
	h.μ.Lock()
	if h.in == nil || h.err != nil {
		h.μ.Unlock()
		return nil, ErrNotRunning
	}
	if e, ok := h.embeds[weak.Make(el)]; ok {
		h.μ.Unlock()
		return e, nil
	}
	fr, err := frame.Resolve(el, p)
	if err != nil {
		h.μ.Unlock()
		return nil, err
	}
	w := fr.ContentWindow()
	if w == nil {
		h.μ.Unlock()
		return nil, ErrTransportUnavailable
	}

	e := newEmbed(h, fr, w.ID)
	for _, key := range []*frame.Element{el, fr} {
		wp := weak.Make(key)
		if _, ok := h.embeds[wp]; !ok {
			h.embeds[wp] = e
			runtime.AddCleanup(key, h.forget, wp)
		}
	}
	h.windows[w.ID] = e
	h.μ.Unlock()
	hostStats.sessions.Add(1)

	if err := e.probe(); err != nil {
		h.forget(weak.Make(el))
		h.forget(weak.Make(fr))
		return nil, err
	}
	return e, nil
}

// forget removes the registry entry for key. It is called when the element
// for key is garbage collected, or when creating an embed fails.
func (h *Host) forget(key weak.Pointer[frame.Element]) {
	h.μ.Lock()
	defer h.μ.Unlock()
	e, ok := h.embeds[key]
	if !ok {
		return
	}
	delete(h.embeds, key)
	if e.frame == key {
		delete(h.windows, e.window)
		hostStats.sessions.Add(-1)
	}
}

// route delivers an inbound message to the embed for its source window.
func (h *Host) route(msg *Message) {
	h.μ.Lock()
	log := h.mlog
	e := h.windows[msg.Window]
	h.μ.Unlock()

	if log != nil {
		log(MessageInfo{Message: msg, Sent: false})
	}
	if e == nil {
		glog.V(2).Infof("[flatembed] drop message from unknown window %q", msg.Window)
		hostStats.msgDropped.Add(1)
		return
	}
	e.receive(msg)
}

// fail terminates all pending calls and updates the failure status.
func (h *Host) fail(err error) {
	h.closeOut()

	h.μ.Lock()
	defer h.μ.Unlock()

	// Terminate all incomplete pending calls.
	for _, e := range h.windows {
		e.calls.terminate(err)
	}

	h.err = err
	close(h.done)
	if h.onExit != nil {
		if treatErrorAsSuccess(err) {
			err = nil
		}
		h.onExit(err)
	}
}

// goTask runs f in the service task group of h, if h is running.
func (h *Host) goTask(f func()) bool {
	h.μ.Lock()
	defer h.μ.Unlock()
	if h.tasks == nil || h.err != nil {
		return false
	}
	h.tasks.Go(func() error { f(); return nil })
	return true
}

func (h *Host) sendOut(msg *Message) error {
	h.μ.Lock()
	log := h.mlog
	h.μ.Unlock()

	h.out.Lock()
	defer h.out.Unlock()
	if h.out.ch == nil {
		return ErrNotRunning
	}
	hostStats.msgSent.Add(1)
	if log != nil {
		log(MessageInfo{Message: msg, Sent: true})
	}
	return h.out.ch.Send(msg)
}

func (h *Host) closeOut() {
	h.out.Lock()
	defer h.out.Unlock()
	if h.out.ch != nil {
		h.out.ch.Close()
	}
}
