// Copyright (C) 2025 Michael J. Fromberger. All Rights Reserved.

package chatter

import (
	"fmt"
	"strings"
)

// fieldSep joins the positional fields of a text payload.
const fieldSep = "#"

// LoginFailed is the fixed payload of a login response reporting a rejected
// credential pair. It does not disclose whether the username or the password
// was at fault. A successful login response instead carries the
// authenticated username.
const LoginFailed = "Invalid login attempt"

// A Login is the payload of an inbound TypeLogin frame.
type Login struct {
	Username string
	Password string
}

// Encode encodes the login data in wire format.
func (g Login) Encode() []byte { return []byte(g.Username + fieldSep + g.Password) }

// Decode decodes data into a login payload.
func (g *Login) Decode(data []byte) error {
	name, pass, ok := strings.Cut(string(data), fieldSep)
	if !ok {
		return fmt.Errorf("login payload missing password field")
	}
	g.Username, g.Password = name, pass
	return nil
}

// String returns a human-friendly rendering of the login request.
// The password is not included.
func (g Login) String() string { return fmt.Sprintf("Login(User=%q)", g.Username) }

// A Broadcast is the payload of a TypeBroadcast frame. The username of an
// inbound broadcast is ignored; the relay stamps the sender's authenticated
// username on each outbound copy, so a client cannot speak for anyone but
// itself.
type Broadcast struct {
	Username string
	Content  string
}

// Encode encodes the broadcast data in wire format.
func (m Broadcast) Encode() []byte { return []byte(m.Username + fieldSep + m.Content) }

// Decode decodes data into a broadcast payload. The content field may
// contain the field delimiter.
func (m *Broadcast) Decode(data []byte) error {
	name, content, ok := strings.Cut(string(data), fieldSep)
	if !ok {
		return fmt.Errorf("broadcast payload missing content field")
	}
	m.Username, m.Content = name, content
	return nil
}

// String returns a human-friendly rendering of the broadcast.
func (m Broadcast) String() string {
	return fmt.Sprintf("Broadcast(User=%q, Content=%q)", m.Username, m.Content)
}

// A ListRequest is the payload of an inbound TypeListOnline frame. It names
// the requesting user; the relay answers from its own session record, so the
// field is advisory only.
type ListRequest struct {
	Username string
}

// Encode encodes the list request in wire format.
func (r ListRequest) Encode() []byte { return []byte(r.Username) }

// Decode decodes data into a list request payload.
func (r *ListRequest) Decode(data []byte) error { r.Username = string(data); return nil }

// A ListResponse is the payload of an outbound TypeListOnline frame,
// carrying the usernames registered at the time the request was handled.
type ListResponse struct {
	Usernames []string
}

// Encode encodes the list response in wire format, the usernames joined by
// a comma and space.
func (r ListResponse) Encode() []byte { return []byte(strings.Join(r.Usernames, ", ")) }

// Decode decodes data into a list response payload.
func (r *ListResponse) Decode(data []byte) error {
	if len(data) == 0 {
		r.Usernames = nil
		return nil
	}
	r.Usernames = strings.Split(string(data), ", ")
	return nil
}

// A Direct is the payload of a TypeDirect frame. As with broadcasts, the
// relay stamps the From field of each delivered copy with the sender's
// authenticated username.
type Direct struct {
	From    string
	To      string
	Content string
}

// Encode encodes the direct message in wire format.
func (m Direct) Encode() []byte {
	return []byte(m.From + fieldSep + m.To + fieldSep + m.Content)
}

// Decode decodes data into a direct message payload. The content field may
// contain the field delimiter.
func (m *Direct) Decode(data []byte) error {
	from, rest, ok := strings.Cut(string(data), fieldSep)
	if !ok {
		return fmt.Errorf("direct payload missing recipient field")
	}
	to, content, ok := strings.Cut(rest, fieldSep)
	if !ok {
		return fmt.Errorf("direct payload missing content field")
	}
	m.From, m.To, m.Content = from, to, content
	return nil
}

// String returns a human-friendly rendering of the direct message.
func (m Direct) String() string {
	return fmt.Sprintf("Direct(From=%q, To=%q, Content=%q)", m.From, m.To, m.Content)
}
