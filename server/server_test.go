// Copyright (C) 2025 Michael J. Fromberger. All Rights Reserved.

package server_test

import (
	"context"
	"net"
	"testing"

	"github.com/creachadair/chatter"
	"github.com/creachadair/chatter/channel"
	"github.com/creachadair/chatter/server"
	"github.com/creachadair/chatter/userdb"
	"github.com/creachadair/taskgroup"
	"github.com/fortytw2/leaktest"
)

func TestLoop(t *testing.T) {
	defer leaktest.Check(t)()

	lst, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("Listen: unexpected error: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	dir := chatter.NewDirectory()
	loop := taskgroup.Go(func() error {
		return server.Loop(ctx, server.NetAccepter(lst, 0), func() *chatter.Session {
			return chatter.NewSession(dir, userdb.Demo())
		})
	})

	conn, err := net.Dial("tcp", lst.Addr().String())
	if err != nil {
		t.Fatalf("Dial: unexpected error: %v", err)
	}
	ch := channel.IO(conn, conn)

	send := func(f *chatter.Frame) {
		t.Helper()
		if err := ch.Send(f); err != nil {
			t.Fatalf("Send %v: unexpected error: %v", f, err)
		}
	}
	recv := func() *chatter.Frame {
		t.Helper()
		f, err := ch.Recv()
		if err != nil {
			t.Fatalf("Recv: unexpected error: %v", err)
		}
		return f
	}

	send(&chatter.Frame{Type: chatter.TypeLogin, Payload: chatter.Login{
		Username: "zhangsan", Password: "123",
	}.Encode()})
	if rsp := recv(); string(rsp.Payload) != "zhangsan" {
		t.Fatalf("Login response: got %v, want zhangsan", rsp)
	}

	send(&chatter.Frame{Type: chatter.TypeListOnline, Payload: chatter.ListRequest{
		Username: "zhangsan",
	}.Encode()})
	if rsp := recv(); string(rsp.Payload) != "zhangsan" {
		t.Errorf("List response: got %q, want zhangsan", rsp.Payload)
	}

	// Hanging up is a clean session exit; ending the context stops the loop.
	ch.Close()
	cancel()
	if err := loop.Wait(); err != nil {
		t.Errorf("Loop: unexpected error: %v", err)
	}
}
