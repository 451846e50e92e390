// Copyright (C) 2026 Michael J. Fromberger. All Rights Reserved.

package flatembed

import "expvar"

// hostMetrics record host activity counters.
type hostMetrics struct {
	msgRecv     expvar.Int
	msgSent     expvar.Int
	msgDropped  expvar.Int // received and discarded
	callOut     expvar.Int // number of calls sent
	callOutErr  expvar.Int // number of calls reporting an error
	callPending expvar.Int
	eventIn     expvar.Int
	panics      expvar.Int // subscriber callbacks that panicked
	sessions    expvar.Int

	emap *expvar.Map
}

var hostStats = newHostMetrics()

func newHostMetrics() *hostMetrics {
	hm := &hostMetrics{emap: new(expvar.Map)}
	hm.emap.Set("messages_received", &hm.msgRecv)
	hm.emap.Set("messages_sent", &hm.msgSent)
	hm.emap.Set("messages_dropped", &hm.msgDropped)
	hm.emap.Set("calls_out", &hm.callOut)
	hm.emap.Set("calls_out_failed", &hm.callOutErr)
	hm.emap.Set("calls_pending", &hm.callPending)
	hm.emap.Set("events_in", &hm.eventIn)
	hm.emap.Set("callback_panics", &hm.panics)
	hm.emap.Set("sessions", &hm.sessions)
	return hm
}
