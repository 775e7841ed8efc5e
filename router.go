// Copyright (C) 2025 Michael J. Fromberger. All Rights Reserved.

package chatter

import (
	"fmt"

	"github.com/creachadair/taskgroup"
)

// A delivery pairs an outbound frame with the handle it is bound for.
type delivery struct {
	to    Handle
	frame *Frame
}

// route computes the deliveries for one inbound frame from an authenticated
// sender. It is a pure decision over the directory's current contents: it
// does not block, touch a socket, or enqueue anything. Any error it reports
// is protocol fatal to the sender's connection.
//
// Per-type policy:
//
//   - Broadcast: one copy to every registered user, the sender included,
//     with the sender's username stamped on each copy.
//   - ListOnline: the registered usernames, answered only to the sender.
//   - Direct: one copy to the named recipient with the From field stamped,
//     or no deliveries at all if the recipient is not registered.
func route(dir *Directory, sender Handle, user string, f *Frame) ([]delivery, error) {
	switch f.Type {
	case TypeBroadcast:
		var msg Broadcast
		if err := msg.Decode(f.Payload); err != nil {
			return nil, fmt.Errorf("invalid broadcast payload: %w", err)
		}
		sessionMetrics.broadcasts.Add(1)
		out := &Frame{Type: TypeBroadcast, Payload: Broadcast{
			Username: user,
			Content:  msg.Content,
		}.Encode()}
		var ds []delivery
		for _, h := range dir.Handles() {
			ds = append(ds, delivery{to: h, frame: out})
		}
		return ds, nil

	case TypeListOnline:
		sessionMetrics.listings.Add(1)
		out := &Frame{Type: TypeListOnline, Payload: ListResponse{
			Usernames: dir.Names(),
		}.Encode()}
		return []delivery{{to: sender, frame: out}}, nil

	case TypeDirect:
		var msg Direct
		if err := msg.Decode(f.Payload); err != nil {
			return nil, fmt.Errorf("invalid direct payload: %w", err)
		}
		sessionMetrics.directs.Add(1)
		to, ok := dir.Lookup(msg.To)
		if !ok {
			// The recipient is not online: no deliveries, no error to the
			// sender. The caller logs the drop.
			sessionMetrics.directMisses.Add(1)
			return nil, nil
		}
		out := &Frame{Type: TypeDirect, Payload: Direct{
			From:    user,
			To:      msg.To,
			Content: msg.Content,
		}.Encode()}
		return []delivery{{to: to, frame: out}}, nil
	}
	return nil, fmt.Errorf("unrecognized frame type %v", f.Type)
}

// deliverAll enqueues each delivery in its own goroutine and waits for all
// of them, so a recipient with a full queue delays only its own copy and a
// closed handle is skipped without error. Waiting preserves the per-queue
// FIFO order of successive frames from the same sender.
func deliverAll(ds []delivery) {
	if len(ds) == 1 {
		ds[0].to.Deliver(ds[0].frame)
		return
	}
	g := taskgroup.New(nil)
	for _, d := range ds {
		g.Go(func() error { d.to.Deliver(d.frame); return nil })
	}
	g.Wait()
}
