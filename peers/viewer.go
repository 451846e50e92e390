// Copyright (C) 2026 Michael J. Fromberger. All Rights Reserved.

package peers

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"maps"
	"slices"
	"sync"

	"github.com/creachadair/flatembed"
	"github.com/creachadair/taskgroup"
	"github.com/golang/glog"
)

// A Handler serves a method of a Viewer. The params are the parameters of the
// command exactly as sent, or nil if the command had none. The result must be
// encodable as JSON; a nil result sends a reply with no response.
//
// If the handler reports an error, the reply carries its text as the error.
// To report an error payload other than a string, return a *RemoteError.
type Handler func(ctx context.Context, params json.RawMessage) (any, error)

// RemoteError is an error whose Payload is reported to the caller verbatim.
type RemoteError struct {
	Payload any
}

func (r *RemoteError) Error() string { return fmt.Sprintf("remote error: %v", r.Payload) }

// A Received records a command received by a Viewer.
type Received struct {
	Window  string
	Origin  string
	Command flatembed.Command
}

// A Viewer is a scriptable stand-in for the score viewers of one or more
// frames. It answers the liveness probe and event (un)registration commands
// itself, and serves other methods with handlers registered by Handle.
//
// Commands are handled one at a time in the order received, and so replies to
// them are sent in the same order.
//
// A zero Viewer is ready for use, but must not be copied after any method has
// been called. Call Start with a channel to start the service routine.
type Viewer struct {
	// Origin is reported as the origin of messages sent by the viewer.
	// If empty, DefaultOrigin is used.
	Origin string

	out struct {
		// Must hold the lock to send to or set ch.
		sync.Mutex
		ch flatembed.Channel
	}
	tasks *taskgroup.Group

	μ        sync.Mutex
	err      error
	handlers map[string]Handler
	fallback Handler
	held     map[string]bool            // methods whose replies are held
	listen   map[string]map[string]bool // window → event names registered
	recv     []Received
	noProbe  bool
	asString bool
}

// DefaultOrigin is the origin reported by a Viewer with no Origin set.
const DefaultOrigin = "https://flat-embed.com"

// NewViewer constructs a new unstarted viewer.
func NewViewer() *Viewer { return new(Viewer) }

// Handle registers h to serve the named method. If h == nil, the handler for
// method is removed, and calls to it report an error.
func (v *Viewer) Handle(method string, h Handler) *Viewer {
	v.μ.Lock()
	defer v.μ.Unlock()
	if h == nil {
		delete(v.handlers, method)
	} else {
		if v.handlers == nil {
			v.handlers = make(map[string]Handler)
		}
		v.handlers[method] = h
	}
	return v
}

// HandleDefault registers h to serve methods that have no handler. If h is
// nil, calls to such methods report an error.
func (v *Viewer) HandleDefault(h Handler) *Viewer {
	v.μ.Lock()
	defer v.μ.Unlock()
	v.fallback = h
	return v
}

// Hold causes commands for method to be recorded without a reply, until
// Release is called for the method. Use Reply to answer them.
func (v *Viewer) Hold(method string) *Viewer {
	v.μ.Lock()
	defer v.μ.Unlock()
	if v.held == nil {
		v.held = make(map[string]bool)
	}
	v.held[method] = true
	return v
}

// Release undoes the effect of Hold for method.
func (v *Viewer) Release(method string) *Viewer {
	v.μ.Lock()
	defer v.μ.Unlock()
	delete(v.held, method)
	return v
}

// IgnoreProbe controls whether the viewer answers the liveness probe. A
// viewer that ignores the probe becomes ready only when it emits a "ready"
// event.
func (v *Viewer) IgnoreProbe(ignore bool) *Viewer {
	v.μ.Lock()
	defer v.μ.Unlock()
	v.noProbe = ignore
	return v
}

// StringMessages controls whether the viewer sends its messages as strings of
// JSON text rather than as structured values.
func (v *Viewer) StringMessages(ok bool) *Viewer {
	v.μ.Lock()
	defer v.μ.Unlock()
	v.asString = ok
	return v
}

// Start starts the viewer running on the given channel. Start does not block;
// call Wait to wait for the viewer to exit and report its status.
func (v *Viewer) Start(ch flatembed.Channel) *Viewer {
	v.μ.Lock()
	defer v.μ.Unlock()
	if v.tasks != nil {
		panic("viewer is already started")
	}
	v.out.Lock()
	v.out.ch = ch
	v.out.Unlock()
	v.err = nil

	g := taskgroup.New(nil)
	v.tasks = g
	g.Go(func() error {
		ctx := context.Background()
		for {
			msg, err := ch.Recv()
			if err != nil {
				v.fail(err)
				return nil
			}
			v.serve(ctx, msg)
		}
	})
	return v
}

// Stop closes the channel and blocks until the viewer exits.
func (v *Viewer) Stop() error { v.closeOut(); return v.Wait() }

// Wait blocks until v terminates and reports the error that caused it to stop.
// If the channel closed normally, Wait returns nil.
func (v *Viewer) Wait() error {
	v.μ.Lock()
	g := v.tasks
	v.μ.Unlock()
	if g == nil {
		return nil
	}
	g.Wait()

	v.μ.Lock()
	defer v.μ.Unlock()
	v.tasks = nil
	v.out.Lock()
	v.out.ch = nil
	v.out.Unlock()
	if isClosed(v.err) {
		return nil
	}
	return v.err
}

// Received returns the commands received by v, in order of arrival.
func (v *Viewer) Received() []Received {
	v.μ.Lock()
	defer v.μ.Unlock()
	return slices.Clone(v.recv)
}

// Count reports the number of commands for method received by v.
func (v *Viewer) Count(method string) int {
	v.μ.Lock()
	defer v.μ.Unlock()
	var n int
	for _, r := range v.recv {
		if r.Command.Method == method {
			n++
		}
	}
	return n
}

// Listening returns the names of the events registered for window, in
// lexicographic order.
func (v *Viewer) Listening(window string) []string {
	v.μ.Lock()
	defer v.μ.Unlock()
	return slices.Sorted(maps.Keys(v.listen[window]))
}

// Reply sends a reply for method to window, with the given response.
func (v *Viewer) Reply(window, method string, response any) error {
	data, err := json.Marshal(response)
	if err != nil {
		return err
	}
	return v.Post(window, &flatembed.Reply{Method: method, Response: data})
}

// ReplyError sends an error reply for method to window, with the given error
// payload.
func (v *Viewer) ReplyError(window, method string, payload any) error {
	data, err := json.Marshal(payload)
	if err != nil {
		return err
	}
	return v.Post(window, &flatembed.Reply{Method: method, Error: data})
}

// Emit sends the named event with the given parameters to window. The event
// is sent whether or not the window has registered for it.
func (v *Viewer) Emit(window, event string, params any) error {
	data, err := json.Marshal(params)
	if err != nil {
		return err
	}
	return v.Post(window, &flatembed.Event{Name: event, Parameters: data})
}

// Post sends a message with the given data to window. Data is sent as is,
// except that if v sends string messages, data other than a string is
// encoded as a string of JSON text.
func (v *Viewer) Post(window string, data any) error {
	v.μ.Lock()
	origin := v.Origin
	asString := v.asString
	v.μ.Unlock()
	if origin == "" {
		origin = DefaultOrigin
	}
	if _, ok := data.(string); asString && !ok {
		text, err := json.Marshal(data)
		if err != nil {
			return err
		}
		data = string(text)
	}

	v.out.Lock()
	defer v.out.Unlock()
	if v.out.ch == nil {
		return flatembed.ErrNotRunning
	}
	return v.out.ch.Send(&flatembed.Message{Window: window, Origin: origin, Data: data})
}

// serve handles a single command from the host.
func (v *Viewer) serve(ctx context.Context, msg *flatembed.Message) {
	cmd, err := flatembed.DecodeCommand(msg.Data)
	if err != nil {
		glog.V(2).Infof("[viewer] window %s: discard message: %v", msg.Window, err)
		return
	}
	params, _ := cmd.Parameters.(json.RawMessage)

	v.μ.Lock()
	v.recv = append(v.recv, Received{Window: msg.Window, Origin: msg.Origin, Command: cmd})
	held := v.held[cmd.Method]
	noProbe := v.noProbe
	h := v.handlers[cmd.Method]
	if h == nil {
		h = v.fallback
	}
	v.μ.Unlock()

	switch cmd.Method {
	case flatembed.MethodPing:
		if !noProbe {
			v.reply(msg.Window, cmd.Method, nil, nil)
		}
		return

	case flatembed.MethodAddEventListener, flatembed.MethodRemoveEventListener:
		var event string
		if err := json.Unmarshal(params, &event); err != nil || event == "" {
			v.reply(msg.Window, cmd.Method, nil, fmt.Errorf("invalid event name %s", params))
			return
		}
		v.μ.Lock()
		if cmd.Method == flatembed.MethodAddEventListener {
			if v.listen == nil {
				v.listen = make(map[string]map[string]bool)
			}
			if v.listen[msg.Window] == nil {
				v.listen[msg.Window] = make(map[string]bool)
			}
			v.listen[msg.Window][event] = true
		} else {
			delete(v.listen[msg.Window], event)
		}
		v.μ.Unlock()
		v.reply(msg.Window, cmd.Method, nil, nil)
		return
	}

	if held {
		return
	}
	if h == nil {
		v.reply(msg.Window, cmd.Method, nil, fmt.Errorf("unknown method %q", cmd.Method))
		return
	}
	rsp, err := h(ctx, params)
	v.reply(msg.Window, cmd.Method, rsp, err)
}

func (v *Viewer) reply(window, method string, rsp any, err error) {
	var perr error
	if err != nil {
		var re *RemoteError
		if errors.As(err, &re) {
			perr = v.ReplyError(window, method, re.Payload)
		} else {
			perr = v.ReplyError(window, method, err.Error())
		}
	} else if rsp == nil {
		perr = v.Post(window, &flatembed.Reply{Method: method})
	} else {
		perr = v.Reply(window, method, rsp)
	}
	if perr != nil {
		glog.V(2).Infof("[viewer] window %s: reply %s: %v", window, method, perr)
	}
}

// fail records err and closes the channel, so that the host sees the viewer
// has gone away.
func (v *Viewer) fail(err error) {
	v.closeOut()
	v.μ.Lock()
	defer v.μ.Unlock()
	v.err = err
}

func (v *Viewer) closeOut() {
	v.out.Lock()
	defer v.out.Unlock()
	if v.out.ch != nil {
		v.out.ch.Close()
	}
}
