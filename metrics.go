// Copyright (C) 2025 Michael J. Fromberger. All Rights Reserved.

package chatter

import "expvar"

// relayMetrics record session activity counters.
type relayMetrics struct {
	framesRecv     expvar.Int
	framesSent     expvar.Int
	sessionsActive expvar.Int // sessions currently running
	loginsOK       expvar.Int // number of accepted login attempts
	loginsFailed   expvar.Int // number of rejected login attempts
	broadcasts     expvar.Int // number of broadcast messages routed
	listings       expvar.Int // number of list-online requests answered
	directs        expvar.Int // number of direct messages routed
	directMisses   expvar.Int // direct messages dropped for offline recipients

	emap *expvar.Map
}

var sessionMetrics = newRelayMetrics()

func newRelayMetrics() *relayMetrics {
	m := &relayMetrics{emap: new(expvar.Map)}
	m.emap.Set("frames_received", &m.framesRecv)
	m.emap.Set("frames_sent", &m.framesSent)
	m.emap.Set("sessions_active", &m.sessionsActive)
	m.emap.Set("logins_ok", &m.loginsOK)
	m.emap.Set("logins_failed", &m.loginsFailed)
	m.emap.Set("broadcasts", &m.broadcasts)
	m.emap.Set("listings", &m.listings)
	m.emap.Set("directs", &m.directs)
	m.emap.Set("direct_misses", &m.directMisses)
	return m
}
