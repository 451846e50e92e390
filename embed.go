// Copyright (C) 2026 Michael J. Fromberger. All Rights Reserved.

package flatembed

import (
	"context"
	"encoding/json"
	"sync"
	"weak"

	"github.com/creachadair/flatembed/frame"
	"github.com/golang/glog"
)

// Method names used by the embed itself.
const (
	MethodPing                = "ping"
	MethodAddEventListener    = "addEventListener"
	MethodRemoveEventListener = "removeEventListener"
)

// An Embed is a session with the score viewer running in one iframe. Use
// Host.Embed to obtain the Embed for an element.
//
// An embed starts out waiting for the viewer. Calls made before the viewer is
// ready wait for it, and are not sent until then. Once ready, an embed stays
// ready until its host stops.
//
// The methods of an Embed are safe for concurrent use by multiple goroutines.
type Embed struct {
	host    *Host
	frame   weak.Pointer[frame.Element]
	window  string
	stopped <-chan struct{} // closed when the host exits

	ready     chan struct{}
	readyOnce sync.Once

	// Must hold out to register and send a call, so that calls are sent in
	// the same order they are queued.
	out sync.Mutex

	μ      sync.Mutex
	origin string // target origin, pinned by the first inbound message

	calls *callbacks

	// Event (un)registration calls, sent in order by a single worker.
	// Subscriber list changes are made while holding this lock.
	ctl struct {
		sync.Mutex
		queue   []Command
		running bool
	}
}

func newEmbed(h *Host, fr *frame.Element, window string) *Embed {
	e := &Embed{
		host:    h,
		frame:   weak.Make(fr),
		window:  window,
		stopped: h.done,
		ready:   make(chan struct{}),
		origin:  AnyOrigin,
		calls:   newCallbacks(),
	}
	e.calls.onPanic = func(string, any) { hostStats.panics.Add(1) }
	return e
}

// Frame returns the iframe of e, or nil if it has been garbage collected.
func (e *Embed) Frame() *frame.Element { return e.frame.Value() }

// Window returns the ID of the content window e talks to.
func (e *Embed) Window() string { return e.window }

// Origin returns the origin messages from e are addressed to. This is "*"
// until the first message from the viewer is received.
func (e *Embed) Origin() string {
	e.μ.Lock()
	defer e.μ.Unlock()
	return e.origin
}

// IsReady reports whether the viewer has signaled that it is ready.
func (e *Embed) IsReady() bool {
	select {
	case <-e.ready:
		return true
	default:
		return false
	}
}

// Ready blocks until the viewer is ready, ctx ends, or the host stops.
// It may be called any number of times; all callers observe the same
// readiness. It reports nil once the viewer is ready.
func (e *Embed) Ready(ctx context.Context) error {
	if e.IsReady() {
		return nil
	}
	select {
	case <-e.ready:
		return nil
	case <-e.stopped:
		return ErrNotRunning
	case <-ctx.Done():
		return ctx.Err()
	}
}

// isStopped reports whether the host run that created e has ended.
func (e *Embed) isStopped() bool {
	select {
	case <-e.stopped:
		return true
	default:
		return false
	}
}

func (e *Embed) markReady() { e.readyOnce.Do(func() { close(e.ready) }) }

// probe sends the liveness probe. Any reply to it makes e ready.
func (e *Embed) probe() error {
	return e.issue(MethodPing, nil, func(_ *Reply, err error) {
		if err == nil {
			e.markReady()
		}
	})
}

// Call calls the named method of the viewer with the given parameters, and
// blocks until the viewer replies, ctx ends, or the host stops. It waits for
// the viewer to be ready before sending. Parameters must be encodable as
// JSON; nil means no parameters.
//
// On success, Call returns the response exactly as reported by the viewer.
// An error reported by Call has concrete type *CallError. If the viewer
// reports an error, its payload is in the Remote field.
//
// Replies are matched to calls by method name, in the order calls were sent.
// If ctx ends before the reply arrives Call returns, but the call remains
// queued so that its reply, when it arrives, is not taken for the reply of a
// later call to the same method.
func (e *Embed) Call(ctx context.Context, method string, params any) (_ json.RawMessage, err error) {
	hostStats.callOut.Add(1)
	defer func() {
		if err != nil {
			hostStats.callOutErr.Add(1)
		}
	}()
	if method == "" {
		return nil, callError(method, invalidArgf("empty method name"))
	}
	if err := e.Ready(ctx); err != nil {
		return nil, callError(method, err)
	}

	done := make(chan result, 1)
	if err := e.issue(method, params, func(rsp *Reply, err error) {
		done <- result{rsp: rsp, err: err}
	}); err != nil {
		return nil, callError(method, err)
	}
	hostStats.callPending.Add(1)
	defer hostStats.callPending.Add(-1)

	select {
	case <-ctx.Done():
		return nil, callError(method, ctx.Err())
	case <-e.stopped:
		select {
		case res := <-done:
			return res.value(method)
		default:
			return nil, callError(method, ErrNotRunning)
		}
	case res := <-done:
		return res.value(method)
	}
}

type result struct {
	rsp *Reply
	err error
}

func (r result) value(method string) (json.RawMessage, error) {
	if r.err != nil {
		return nil, callError(method, r.err)
	} else if r.rsp.Failed() {
		return nil, &CallError{Method: method, Remote: r.rsp.Error}
	}
	return r.rsp.Response, nil
}

// issue queues a pending call for method and sends it to the viewer.
// The deliver function is called with the reply, unless issue reports an
// error.
func (e *Embed) issue(method string, params any, deliver func(*Reply, error)) error {
	pc := &pendingCall{deliver: deliver}

	e.out.Lock()
	defer e.out.Unlock()
	if e.isStopped() {
		return ErrNotRunning // the host may since have restarted
	}
	e.calls.register(method, pc)
	if err := e.send(Encode(method, params)); err != nil {
		e.calls.withdraw(method, pc)
		return err
	}
	return nil
}

// send posts cmd to the content window of e.
func (e *Embed) send(cmd Command) error {
	fr := e.frame.Value()
	if fr == nil || fr.ContentWindow() == nil {
		return ErrTransportUnavailable
	}
	return e.host.sendOut(&Message{Window: e.window, Origin: e.Origin(), Data: cmd})
}

// receive handles an inbound message from the frame of e.
func (e *Embed) receive(msg *Message) {
	e.μ.Lock()
	if e.origin == AnyOrigin && msg.Origin != "" && msg.Origin != AnyOrigin {
		glog.V(2).Infof("[flatembed] window %s: pinned origin %q", e.window, msg.Origin)
		e.origin = msg.Origin
	}
	e.μ.Unlock()

	env, err := Decode(msg.Data)
	if err != nil {
		glog.V(2).Infof("[flatembed] window %s: drop message: %v", e.window, err)
		hostStats.msgDropped.Add(1)
		return
	}
	if ev, ok := env.(*Event); ok {
		hostStats.eventIn.Add(1)
		if ev.Name == EventReady {
			e.markReady()
		}
	}
	if !e.calls.dispatch(env) {
		glog.V(2).Infof("[flatembed] window %s: drop %v", e.window, env)
		hostStats.msgDropped.Add(1)
	}
}

// On registers f to be called with the parameters of each event named by
// event that the viewer reports. Handlers for an event are called in the
// order they were registered. The same function may be registered more than
// once, and each registration is called.
//
// When an event gets its first subscriber, the viewer is asked to start
// reporting it. The request is sent in the background, after the viewer is
// ready; On does not block.
//
// Handlers are called synchronously with the delivery of messages from the
// viewer, and must not wait for calls to the same host: the reply would be
// delivered by the goroutine the handler is blocking. A handler that needs to
// make follow-up calls should make them in a separate goroutine:
//
//	e.On(flatembed.EventScoreLoaded, func(json.RawMessage) {
//	   go func() {
//	      n, err := e.GetNbParts(ctx)
//	      // ...
//	   }()
//	})
//
// A handler that panics is logged, and does not prevent other handlers from
// running.
func (e *Embed) On(event string, f EventHandler) (*Subscription, error) {
	if event == "" {
		return nil, invalidArgf("event name must be a non-empty string")
	} else if f == nil {
		return nil, invalidArgf("event handler must be a function")
	}
	e.ctl.Lock()
	defer e.ctl.Unlock()
	s, first := e.calls.subscribe(event, f)
	if first {
		e.controlLocked(MethodAddEventListener, event)
	}
	return s, nil
}

// Off removes the subscription s for event. If s == nil, all subscriptions
// for event are removed. When the last subscriber of an event is removed, the
// viewer is asked to stop reporting it. Like On, Off does not block.
func (e *Embed) Off(event string, s *Subscription) error {
	if event == "" {
		return invalidArgf("event name must be a non-empty string")
	} else if s != nil && s.event != event {
		return invalidArgf("subscription is for event %q, not %q", s.event, event)
	}
	e.ctl.Lock()
	defer e.ctl.Unlock()
	if e.calls.unsubscribe(event, s) {
		e.controlLocked(MethodRemoveEventListener, event)
	}
	return nil
}

// controlLocked queues an event (un)registration call for the viewer, and
// starts a worker to send it if one is not already running. The caller must
// hold e.ctl, and must have updated the subscriber list under the same lock,
// so that calls are queued in the order of the changes they reflect.
func (e *Embed) controlLocked(method, event string) {
	e.ctl.queue = append(e.ctl.queue, Encode(method, event))
	if e.ctl.running {
		return
	}
	if !e.isStopped() && e.host.goTask(e.runControl) {
		e.ctl.running = true
	} else {
		glog.Warningf("[flatembed] window %s: %s %q: %v", e.window, method, event, ErrNotRunning)
		e.ctl.queue = nil
	}
}

func (e *Embed) runControl() {
	for {
		e.ctl.Lock()
		if len(e.ctl.queue) == 0 {
			e.ctl.running = false
			e.ctl.Unlock()
			return
		}
		cmd := e.ctl.queue[0]
		e.ctl.queue = e.ctl.queue[1:]
		e.ctl.Unlock()

		if err := e.Ready(context.Background()); err != nil {
			e.ctl.Lock()
			e.ctl.queue = nil
			e.ctl.running = false
			e.ctl.Unlock()
			return
		}
		if err := e.issue(cmd.Method, cmd.Parameters, func(rsp *Reply, err error) {
			if err == nil && rsp.Failed() {
				err = &CallError{Method: cmd.Method, Remote: rsp.Error}
			}
			if err != nil {
				glog.Warningf("[flatembed] window %s: %s %v: %v", e.window, cmd.Method, cmd.Parameters, err)
			}
		}); err != nil {
			glog.Warningf("[flatembed] window %s: %s %v: %v", e.window, cmd.Method, cmd.Parameters, err)
		}
	}
}
