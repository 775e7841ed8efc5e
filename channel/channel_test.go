// Copyright (C) 2025 Michael J. Fromberger. All Rights Reserved.

package channel_test

import (
	"errors"
	"net"
	"os"
	"testing"
	"time"

	"github.com/creachadair/chatter"
	"github.com/creachadair/chatter/channel"
	"github.com/creachadair/taskgroup"
	"github.com/fortytw2/leaktest"
	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"
)

var testFrame = &chatter.Frame{Type: chatter.TypeBroadcast, Payload: chatter.Broadcast{
	Username: "zhangsan", Content: "the quick brown fox",
}.Encode()}

func TestDirect(t *testing.T) {
	defer leaktest.Check(t)()

	a, b := channel.Direct()
	g := taskgroup.New(nil)
	g.Go(func() error { return a.Send(testFrame) })

	got, err := b.Recv()
	if err != nil {
		t.Fatalf("Recv: unexpected error: %v", err)
	}
	if got != testFrame {
		t.Errorf("Recv: got %v, want %v", got, testFrame)
	}
	g.Wait()

	// Closing one direction fails the peer's receive and the closer's send,
	// but the peer's own sends still work until it closes too.
	a.Close()
	if f, err := b.Recv(); !errors.Is(err, net.ErrClosed) {
		t.Errorf("Recv after close: got %v, %v; want %v", f, err, net.ErrClosed)
	}
	if err := a.Send(testFrame); !errors.Is(err, net.ErrClosed) {
		t.Errorf("Send after close: got %v, want %v", err, net.ErrClosed)
	}
	if err := a.Close(); !errors.Is(err, net.ErrClosed) {
		t.Errorf("Close after close: got %v, want %v", err, net.ErrClosed)
	}

	g.Go(func() error { return b.Send(testFrame) })
	if got, err := a.Recv(); err != nil || got != testFrame {
		t.Errorf("Recv: got %v, %v; want %v, nil", got, err, testFrame)
	}
	g.Wait()
	b.Close()
}

func TestIO(t *testing.T) {
	defer leaktest.Check(t)()

	c1, c2 := net.Pipe()
	a, b := channel.IO(c1, c1), channel.IO(c2, c2)

	g := taskgroup.New(nil)
	g.Go(func() error { return a.Send(testFrame) })
	got, err := b.Recv()
	if err != nil {
		t.Fatalf("Recv: unexpected error: %v", err)
	}
	if diff := cmp.Diff(testFrame, got, cmpopts.EquateEmpty()); diff != "" {
		t.Errorf("Received frame (-want, +got):\n%s", diff)
	}
	if err := g.Wait(); err != nil {
		t.Errorf("Send: unexpected error: %v", err)
	}

	// Closing the channel closes the underlying connection, so a blocked
	// receive on either side reports an error.
	g.Go(func() error {
		if f, err := b.Recv(); err == nil {
			t.Errorf("Recv after close: got %v, want error", f)
		}
		return nil
	})
	a.Close()
	g.Wait()
	b.Close()
}

func TestDeadline(t *testing.T) {
	defer leaktest.Check(t)()

	c1, c2 := net.Pipe()
	defer c1.Close()
	defer c2.Close()

	// A silent peer must fail the receive once the idle timeout elapses.
	ch := channel.Deadline(c1, 10*time.Millisecond)
	if f, err := ch.Recv(); !errors.Is(err, os.ErrDeadlineExceeded) {
		t.Errorf("Recv: got %v, %v; want %v", f, err, os.ErrDeadlineExceeded)
	}

	// With the timeout disabled the result behaves as a plain IO channel.
	c1.SetReadDeadline(time.Time{}) // clear the expired deadline
	plain := channel.Deadline(c1, 0)
	g := taskgroup.New(nil)
	g.Go(func() error { return channel.IO(c2, c2).Send(testFrame) })
	got, err := plain.Recv()
	if err != nil {
		t.Fatalf("Recv: unexpected error: %v", err)
	}
	if diff := cmp.Diff(testFrame, got, cmpopts.EquateEmpty()); diff != "" {
		t.Errorf("Received frame (-want, +got):\n%s", diff)
	}
	g.Wait()
}
