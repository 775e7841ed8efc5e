// Copyright (C) 2025 Michael J. Fromberger. All Rights Reserved.

package chatter

import (
	"slices"
	"sync"
)

// A Handle is the delivery endpoint for one session's outbound frames.
// Frames delivered to a handle are written to the owning session's
// connection in FIFO order by that session's write loop.
type Handle interface {
	// Deliver enqueues f for delivery, blocking while the queue is full
	// until space frees. It reports false if the handle is closed.
	Deliver(f *Frame) bool

	// Close closes the handle. Frames already enqueued may still be
	// written; all further Deliver calls report false. Closing the handle
	// of a running session terminates that session.
	Close()
}

// A Directory is the registry of online users, mapping each username to the
// delivery handle of its session. It is safe for concurrent use by multiple
// goroutines. No directory operation blocks on a queue or a socket.
type Directory struct {
	μ sync.Mutex
	m map[string]Handle
}

// NewDirectory constructs a new empty directory.
func NewDirectory() *Directory { return &Directory{m: make(map[string]Handle)} }

// Register records h as the delivery handle for username, replacing any
// existing entry (last write wins). If a different handle was displaced,
// Register returns it; otherwise it returns nil. The caller owns closing a
// displaced handle.
func (d *Directory) Register(username string, h Handle) Handle {
	d.μ.Lock()
	defer d.μ.Unlock()
	old := d.m[username]
	d.m[username] = h
	if old == h {
		return nil
	}
	return old
}

// Unregister removes the entry for username if it still belongs to h. It is
// a no-op if no entry exists or the entry was since replaced by another
// handle, so the teardown of a displaced session cannot evict the session
// that displaced it.
func (d *Directory) Unregister(username string, h Handle) {
	d.μ.Lock()
	defer d.μ.Unlock()
	if d.m[username] == h {
		delete(d.m, username)
	}
}

// Lookup returns the delivery handle registered for username, if any.
func (d *Directory) Lookup(username string) (Handle, bool) {
	d.μ.Lock()
	defer d.μ.Unlock()
	h, ok := d.m[username]
	return h, ok
}

// Handles returns the delivery handles of all registered users.
func (d *Directory) Handles() []Handle {
	d.μ.Lock()
	defer d.μ.Unlock()
	out := make([]Handle, 0, len(d.m))
	for _, h := range d.m {
		out = append(out, h)
	}
	return out
}

// Names returns all registered usernames in lexicographic order.
func (d *Directory) Names() []string {
	d.μ.Lock()
	defer d.μ.Unlock()
	out := make([]string, 0, len(d.m))
	for name := range d.m {
		out = append(out, name)
	}
	slices.Sort(out)
	return out
}

// Len reports the number of registered users.
func (d *Directory) Len() int {
	d.μ.Lock()
	defer d.μ.Unlock()
	return len(d.m)
}
