// Copyright (C) 2026 Michael J. Fromberger. All Rights Reserved.

package flatembed

import (
	"encoding/json"
	"fmt"
	"slices"
	"sync"

	"github.com/golang/glog"
)

// An EventHandler receives the parameters of an event pushed by the viewer.
type EventHandler func(params json.RawMessage)

// A Subscription is one registration of an EventHandler for an event. The
// same handler may be registered more than once; each registration has its
// own Subscription and is invoked separately.
type Subscription struct {
	event string
	f     EventHandler
}

// Event reports the name of the event s is registered for.
func (s *Subscription) Event() string { return s.event }

// A pendingCall is an outbound call awaiting its reply. Its deliver function
// is called exactly once, with either a reply or an error, and must not block.
type pendingCall struct {
	deliver func(*Reply, error)
}

// callbacks correlates replies with pending calls, and dispatches events to
// their subscribers.
//
// Replies carry no call identifier, only the method name, so pending calls
// are kept in a FIFO queue per method name and each reply completes the
// oldest call to its method. This relies on the viewer replying to calls of
// the same method in the order it received them.
type callbacks struct {
	μ       sync.Mutex
	pending map[string][]*pendingCall  // method name → calls, oldest first
	subs    map[string][]*Subscription // event name → subscribers, in order
	onPanic func(event string, x any)  // report a recovered subscriber panic
}

func newCallbacks() *callbacks {
	return &callbacks{
		pending: make(map[string][]*pendingCall),
		subs:    make(map[string][]*Subscription),
	}
}

// register adds pc at the tail of the queue for method.
func (c *callbacks) register(method string, pc *pendingCall) {
	c.μ.Lock()
	defer c.μ.Unlock()
	c.pending[method] = append(c.pending[method], pc)
}

// withdraw removes pc from the queue for method, if it is still there.
// This is used when a call could not be sent, and so will never be answered.
func (c *callbacks) withdraw(method string, pc *pendingCall) bool {
	c.μ.Lock()
	defer c.μ.Unlock()
	q := c.pending[method]
	if i := slices.Index(q, pc); i >= 0 {
		c.pending[method] = slices.Delete(q, i, i+1)
		return true
	}
	return false
}

// numPending reports the number of calls pending for method.
func (c *callbacks) numPending(method string) int {
	c.μ.Lock()
	defer c.μ.Unlock()
	return len(c.pending[method])
}

// subscribe adds a subscription for f to event, and reports whether it is
// the first subscriber for that event.
func (c *callbacks) subscribe(event string, f EventHandler) (_ *Subscription, first bool) {
	c.μ.Lock()
	defer c.μ.Unlock()
	s := &Subscription{event: event, f: f}
	c.subs[event] = append(c.subs[event], s)
	return s, len(c.subs[event]) == 1
}

// unsubscribe removes s from the subscribers of event, or all subscribers if
// s == nil. It reports whether this call removed the last subscriber.
func (c *callbacks) unsubscribe(event string, s *Subscription) (emptied bool) {
	c.μ.Lock()
	defer c.μ.Unlock()
	cur := c.subs[event]
	if len(cur) == 0 {
		return false
	}
	if s == nil {
		c.subs[event] = cur[:0]
		clear(cur)
		return true
	}
	i := slices.Index(cur, s)
	if i < 0 {
		return false
	}
	c.subs[event] = slices.Delete(cur, i, i+1)
	return len(c.subs[event]) == 0
}

// numSubscribers reports the number of subscribers for event.
func (c *callbacks) numSubscribers(event string) int {
	c.μ.Lock()
	defer c.μ.Unlock()
	return len(c.subs[event])
}

// dispatch routes an inbound envelope. A reply completes the oldest pending
// call for its method; an event is delivered to each of its subscribers in
// subscription order. It reports false if the envelope was discarded.
func (c *callbacks) dispatch(env Envelope) bool {
	switch t := env.(type) {
	case *Reply:
		c.μ.Lock()
		q := c.pending[t.Method]
		if len(q) == 0 {
			c.μ.Unlock()
			return false // stray or late reply
		}
		pc := q[0]
		q[0] = nil
		c.pending[t.Method] = q[1:]
		c.μ.Unlock()

		pc.deliver(t, nil)
		return true

	case *Event:
		c.μ.Lock()
		subs := slices.Clone(c.subs[t.Name])
		c.μ.Unlock()

		for _, s := range subs {
			c.invoke(s, t.Parameters)
		}
		return true
	}
	return false
}

// invoke calls the handler of s, recovering from a panic so that the other
// subscribers still run.
func (c *callbacks) invoke(s *Subscription, params json.RawMessage) {
	defer func() {
		if x := recover(); x != nil {
			glog.Warningf("[flatembed] event %q handler panicked (recovered): %v", s.event, x)
			if c.onPanic != nil {
				c.onPanic(s.event, x)
			}
		}
	}()
	s.f(params)
}

// terminate fails all pending calls with err.
func (c *callbacks) terminate(err error) {
	c.μ.Lock()
	var all []*pendingCall
	for m, q := range c.pending {
		all = append(all, q...)
		delete(c.pending, m)
	}
	c.μ.Unlock()

	for _, pc := range all {
		pc.deliver(nil, fmt.Errorf("call terminated: %w", err))
	}
}
