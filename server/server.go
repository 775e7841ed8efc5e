// Copyright (C) 2025 Michael J. Fromberger. All Rights Reserved.

// Package server runs the accept loop that binds network connections to
// relay sessions.
package server

import (
	"context"
	"errors"
	"net"
	"time"

	"github.com/creachadair/chatter"
	"github.com/creachadair/chatter/channel"
	"github.com/creachadair/taskgroup"
)

// An Accepter accepts connections from clients as channels.
type Accepter interface {
	Accept(context.Context) (chatter.Channel, error)
}

// Loop accepts connections from acc and starts a session for each one in a
// goroutine. Loop continues until acc closes or ctx ends.
//
// When ctx terminates, all running sessions are stopped. When acc closes,
// the loop waits for running sessions to exit before returning.
func Loop(ctx context.Context, acc Accepter, newSession func() *chatter.Session) error {
	g := taskgroup.New(nil)
	for {
		ch, err := acc.Accept(ctx)
		if err != nil {
			if errors.Is(err, net.ErrClosed) {
				err = nil
			}
			g.Wait()
			return err
		}

		g.Go(func() error {
			sctx, cancel := context.WithCancel(ctx)
			defer cancel()

			s := newSession().Start(ch)
			go func() { <-sctx.Done(); s.Stop() }()
			return s.Wait()
		})
	}
}

// NetAccepter adapts a net.Listener to the Accepter interface. If idle > 0,
// each accepted connection is disconnected when the client sends nothing for
// that long.
func NetAccepter(lst net.Listener, idle time.Duration) Accepter {
	return netAccepter{Listener: lst, idle: idle}
}

type netAccepter struct {
	net.Listener
	idle time.Duration
}

func (n netAccepter) Accept(ctx context.Context) (chatter.Channel, error) {
	// A net.Listener does not obey a context, so simulate it by closing the
	// listener if ctx ends. The ok channel allows the context watcher to
	// clean up when we return before ctx ends.
	ok := make(chan struct{})
	defer close(ok)
	taskgroup.Go(func() error {
		select {
		case <-ctx.Done():
			n.Listener.Close()
		case <-ok:
			// release the waiter
		}
		return nil
	})

	conn, err := n.Listener.Accept()
	if err != nil {
		return nil, err
	}
	return channel.Deadline(conn, n.idle), nil
}
