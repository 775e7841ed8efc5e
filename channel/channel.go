// Copyright (C) 2025 Michael J. Fromberger. All Rights Reserved.

// Package channel provides implementations of the chatter.Channel interface.
package channel

import (
	"bufio"
	"io"
	"net"
	"time"

	"github.com/creachadair/chatter"
)

// Direct constructs a connected pair of in-memory channels that pass frames
// directly without encoding into binary. Frames sent to A are received by B
// and vice versa.
func Direct() (A, B chatter.Channel) {
	a2b := make(chan *chatter.Frame)
	b2a := make(chan *chatter.Frame)
	A = direct{a2b: a2b, b2a: b2a}
	B = direct{a2b: b2a, b2a: a2b}
	return
}

type direct struct {
	a2b chan<- *chatter.Frame
	b2a <-chan *chatter.Frame
}

// Send implements a method of the [chatter.Channel] interface.
func (d direct) Send(f *chatter.Frame) (err error) {
	defer safeClose(&err)
	d.a2b <- f
	return nil
}

// Recv implements a method of the [chatter.Channel] interface.
func (d direct) Recv() (*chatter.Frame, error) {
	f, ok := <-d.b2a
	if !ok {
		return nil, net.ErrClosed
	}
	return f, nil
}

// Close implements a method of the [chatter.Channel] interface.
func (d direct) Close() (err error) {
	defer safeClose(&err)
	close(d.a2b)
	return nil
}

func safeClose(err *error) {
	if x := recover(); x != nil && *err == nil {
		*err = net.ErrClosed
	}
}

// IO constructs a channel that receives from r and sends to wc.
func IO(r io.Reader, wc io.WriteCloser) IOChannel {
	// N.B. The bufio package will reuse existing buffers if possible.
	return IOChannel{r: bufio.NewReader(r), w: bufio.NewWriter(wc), c: wc}
}

// An IOChannel sends and receives frames on a reader and a writer.
type IOChannel struct {
	r *bufio.Reader
	w *bufio.Writer
	c io.Closer
}

// Send implements a method of the [chatter.Channel] interface.
func (c IOChannel) Send(f *chatter.Frame) error {
	if _, err := f.WriteTo(c.w); err != nil {
		return err
	}
	return c.w.Flush()
}

// Recv implements a method of the [chatter.Channel] interface.
func (c IOChannel) Recv() (*chatter.Frame, error) {
	var f chatter.Frame
	if _, err := f.ReadFrom(c.r); err != nil {
		return nil, err
	}
	return &f, nil
}

// Close implements a method of the [chatter.Channel] interface.
func (c IOChannel) Close() error { return c.c.Close() }

// Deadline constructs a channel over conn that arms a read deadline of idle
// before each receive, so a connection that stops sending eventually fails
// its read instead of being held open forever. If idle <= 0 no deadline is
// set and the result is equivalent to IO(conn, conn).
func Deadline(conn net.Conn, idle time.Duration) chatter.Channel {
	ch := IO(conn, conn)
	if idle <= 0 {
		return ch
	}
	return deadline{IOChannel: ch, conn: conn, idle: idle}
}

type deadline struct {
	IOChannel
	conn net.Conn
	idle time.Duration
}

// Recv implements a method of the [chatter.Channel] interface.
func (c deadline) Recv() (*chatter.Frame, error) {
	if err := c.conn.SetReadDeadline(time.Now().Add(c.idle)); err != nil {
		return nil, err
	}
	return c.IOChannel.Recv()
}
