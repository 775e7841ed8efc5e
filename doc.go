// Copyright (C) 2025 Michael J. Fromberger. All Rights Reserved.

// Package chatter implements a small instant-messaging relay.
//
// Clients connect to the relay over a persistent stream, authenticate with a
// username and password, and exchange broadcast and direct messages routed
// through a shared directory of online users.
//
// # Wire format
//
// Each frame on the wire is a 4-byte little-endian length field, a 4-byte
// little-endian type tag, and a UTF-8 text payload; the length field covers
// the type tag and payload, to at most 8 MiB. Payload fields are positional
// and joined with "#" (see [Login], [Broadcast], [ListRequest], [Direct]).
// The [Frame] type converts between this format and parsed frames; a frame
// exceeding the size limit or carrying invalid UTF-8 is a framing error that
// terminates the connection it arrived on.
//
// # Sessions
//
// The core type defined by this package is the [Session], the server side of
// one client connection. To serve a connection, construct a session against
// the shared [Directory] and an [Authenticator], and start it on a [Channel]
// (the channel package provides implementations):
//
//	s := chatter.NewSession(dir, auth).Start(ch)
//
// The session runs two loops until the channel closes or a protocol fatal
// error occurs: one decoding and routing the client's inbound frames, one
// draining the session's bounded delivery queue to the channel. Call
// [Session.Wait] to wait for the session to exit and report its status.
//
// A session authenticates at most once. A successful login registers the
// user in the directory, making it a routing destination for every other
// session sharing that directory; disconnecting removes the entry again. A
// second login under the same username displaces the earlier session, which
// is forcibly closed.
//
// # Routing
//
// A broadcast frame is delivered to every registered user including the
// sender; a direct message goes only to its named recipient, and is dropped
// silently if that user is not online; a list-online request is answered
// only to the requester. The relay stamps the sender's authenticated
// username on every broadcast and direct copy it delivers, so a client
// cannot speak for anyone but itself. Delivery is best effort and in-process
// only: there are no acknowledgements and no offline mailboxes.
//
// # Metrics
//
// Sessions maintain a collection of metrics while running. Use the
// [Session.Metrics] method to obtain an [expvar.Map] containing the metrics,
// shared globally among all sessions:
//
//   - frames_received: counter of frames received
//   - frames_sent: counter of frames sent
//   - sessions_active: gauge of sessions currently running
//   - logins_ok: counter of accepted login attempts
//   - logins_failed: counter of rejected login attempts
//   - broadcasts: counter of broadcast messages routed
//   - listings: counter of list-online requests answered
//   - directs: counter of direct messages routed
//   - direct_misses: counter of direct messages dropped for offline recipients
//
// Additional metrics may be added in the future. It is safe for the caller
// to modify the metrics map to add, update, and remove entries.
package chatter
