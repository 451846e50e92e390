// Copyright (C) 2026 Michael J. Fromberger. All Rights Reserved.

// Package flatembed implements a client for controlling an embedded Flat
// sheet music viewer.
//
// The viewer runs inside a frame and exchanges JSON messages with the page
// that embeds it. The page sends commands naming a method and its parameters;
// the viewer answers each command with a reply naming the same method, and
// emits events the page has registered for. Replies carry no call identifier,
// so outstanding calls to each method are matched to replies in the order the
// calls were sent.
//
// # Hosts
//
// The core type defined by this package is the [Host]. A host owns a
// [Channel] to the viewers of a document, and routes each inbound message to
// the [Embed] for the frame it came from.
//
//	h := flatembed.NewHost().Start(ch)
//	defer h.Stop()
//
// The host runs until [Host.Stop] is called or the channel closes. Call
// [Host.Wait] to wait for the host to exit and report its status.
//
// # Embeds
//
// An embed controls the viewer of one frame. To obtain one, pass either an
// existing viewer frame or a container element to [Host.Embed]. A container
// gets a new frame whose source is built from the given parameters:
//
//	e, err := h.Embed(box, frame.Params{Score: "56ae21579a127715a02901a6"})
//
// There is at most one embed per frame: embedding the same element again
// returns the existing embed, and its parameters are ignored.
//
// # Readiness
//
// A new embed probes the viewer with a "ping" command. The embed becomes
// ready when the probe is answered or the viewer emits a "ready" event,
// whichever comes first. Calls made before then wait for readiness:
//
//	if err := e.Ready(ctx); err != nil {
//	   log.Fatalf("Viewer not ready: %v", err)
//	}
//
// # Calls
//
// To call a method of the viewer, use [Embed.Call], or one of the typed
// wrappers such as [Embed.SetZoom] and [Embed.GetPNG]:
//
//	zoom, err := e.SetZoom(ctx, 1.5)
//	if err != nil {
//	   log.Fatalf("SetZoom failed: %v", err)
//	}
//
// Errors returned by calls have concrete type [*CallError]. If the viewer
// reported the failure, its payload is in the Remote field.
//
// # Events
//
// To subscribe to an event, use [Embed.On]. The first subscriber to an event
// registers it with the viewer; removing the last subscriber with
// [Embed.Off] deregisters it. Subscribers are called in order of
// subscription, on the goroutine that receives messages for the host, so
// they must not block on calls to the same host.
//
// # Channels
//
// The [Channel] interface defines the ability to send and receive messages.
// A Channel implementation must allow concurrent use by one sender and one
// receiver. The channel package provides implementations for in-memory,
// stream, and WebSocket transports.
//
// # Metrics
//
// Hosts maintain a collection of metrics while running. Use [Host.Metrics]
// to obtain an [expvar.Map] containing them. Metrics are shared globally
// among all hosts.
//
//   - messages_received: counter of messages received
//   - messages_sent: counter of messages sent
//   - messages_dropped: counter of messages received and discarded
//   - calls_out: counter of calls sent
//   - calls_out_failed: counter of calls resulting in errors
//   - calls_pending: gauge of calls awaiting a reply
//   - events_in: counter of events received
//   - callback_panics: counter of event subscribers that panicked
//   - sessions: gauge of embeds currently registered
package flatembed
