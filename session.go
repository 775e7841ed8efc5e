// Copyright (C) 2025 Michael J. Fromberger. All Rights Reserved.

package chatter

import (
	"context"
	"errors"
	"expvar"
	"fmt"
	"io"
	"net"
	"sync"

	"github.com/creachadair/mds/value"
	"github.com/creachadair/taskgroup"
)

// A Channel is a reliable ordered stream of frames shared by a client and
// the relay.
//
// The methods of an implementation must be safe for concurrent use by one
// sender and one receiver.
type Channel interface {
	// Send the frame in binary format to the receiver.
	Send(*Frame) error

	// Receive the next available frame from the channel.
	Recv() (*Frame, error)

	// Close the channel, causing any pending send or receive operations to
	// terminate and report an error. After a channel is closed, all further
	// operations on it must report an error.
	Close() error
}

// An Authenticator checks a credential pair against a user store, reporting
// whether the pair identifies a known user. A rejection is final for that
// attempt; the session reports it to the client and does not retry.
type Authenticator interface {
	Authenticate(ctx context.Context, username, password string) bool
}

// AuthFunc adapts a function to the Authenticator interface.
type AuthFunc func(ctx context.Context, username, password string) bool

// Authenticate satisfies the Authenticator interface.
func (f AuthFunc) Authenticate(ctx context.Context, username, password string) bool {
	return f(ctx, username, password)
}

// A FrameLogger logs a frame exchanged with the client.
type FrameLogger func(f FrameInfo)

// A FrameInfo combines a frame and a flag indicating whether the frame was
// sent or received.
type FrameInfo struct {
	*Frame      // the frame being logged
	Sent   bool // whether the frame was sent (true) or received (false)
}

func (f FrameInfo) dir() string {
	if f.Sent {
		return "send"
	}
	return "recv"
}

func (f FrameInfo) String() string {
	return fmt.Sprintf("%v %v", f.dir(), f.Frame)
}

// ErrQueueClosed is reported by Wait when a session terminated because its
// delivery queue was closed out from under it, notably when a duplicate
// login displaced the session from the directory.
var ErrQueueClosed = errors.New("delivery queue closed")

// defaultQueueLen is the delivery queue capacity used when none is set.
const defaultQueueLen = 32

// A Session is the server side of one client connection. It drives two
// concurrent activities over the connection's channel: an inbound loop that
// decodes and routes the client's frames, and an outbound loop that drains
// the session's bounded delivery queue to the channel. Only the outbound
// loop writes to the channel, so no lock is needed around sends.
//
// Call Start with a channel to start the loops. The session runs until the
// channel closes, its delivery queue is closed, or a protocol fatal error
// occurs. Use Wait to wait for the session to exit and report its status.
// A session serves a single connection and cannot be restarted.
//
// A session begins unauthenticated. A successful login fixes its username
// for the life of the connection and registers the session in the shared
// directory; teardown removes the entry again. Sessions sharing a directory
// deliver broadcasts and direct messages to one another; no other state is
// shared between them.
type Session struct {
	dir  *Directory
	auth Authenticator

	ch    Channel
	queue *queue
	tasks *taskgroup.Group
	qsize int

	μ      sync.Mutex
	user   string // empty until login succeeds; immutable afterward
	err    error  // first fatal error, nil on clean shutdown
	flog   FrameLogger
	logf   func(string, ...any)
	onExit func(error)

	teardown sync.Once
}

// NewSession constructs a new unstarted session that registers users in dir
// and checks credentials with auth.
func NewSession(dir *Directory, auth Authenticator) *Session {
	if dir == nil {
		panic("directory is nil")
	} else if auth == nil {
		panic("authenticator is nil")
	}
	return &Session{dir: dir, auth: auth}
}

// Start starts the session loops on the given channel. The session runs
// until the channel closes or a protocol fatal error occurs. Start does not
// block; call Wait to wait for the session to exit and report its status.
func (s *Session) Start(ch Channel) *Session {
	if s.ch != nil {
		panic("session is already started")
	}

	s.ch = ch
	s.queue = newQueue(value.Cond(s.qsize > 0, s.qsize, defaultQueueLen))
	g := taskgroup.New(nil)
	s.tasks = g
	sessionMetrics.sessionsActive.Add(1)

	g.Go(func() error {
		for {
			f, err := s.ch.Recv()
			if err != nil {
				s.fail(err)
				return nil
			}
			sessionMetrics.framesRecv.Add(1)
			if s.flog != nil {
				s.flog(FrameInfo{Frame: f})
			}
			if err := s.dispatch(f); err != nil {
				s.fail(err)
				return nil
			}
		}
	})
	g.Go(func() error {
		for {
			f, ok := s.queue.next()
			if !ok {
				s.fail(ErrQueueClosed)
				return nil
			}
			if s.flog != nil {
				s.flog(FrameInfo{Frame: f, Sent: true})
			}
			if err := s.ch.Send(f); err != nil {
				s.fail(err)
				return nil
			}
			sessionMetrics.framesSent.Add(1)
		}
	})
	return s
}

// Metrics returns a metrics map for the session. It is safe for the caller
// to add additional metrics to the map while the session is active. Metrics
// are shared globally among all sessions.
func (s *Session) Metrics() *expvar.Map { return sessionMetrics.emap }

// Stop closes the connection and terminates the session. It blocks until
// the session has exited and returns its status.
func (s *Session) Stop() error {
	if s.ch != nil {
		s.ch.Close()
	}
	return s.Wait()
}

// Wait blocks until s terminates and reports the error that caused it to
// stop. If s is not running, or stopped because its channel closed cleanly,
// Wait returns nil.
func (s *Session) Wait() error {
	s.μ.Lock()
	t := s.tasks
	s.μ.Unlock()
	if t == nil {
		return nil // the session was never started
	}
	t.Wait()

	s.μ.Lock()
	defer s.μ.Unlock()
	if treatErrorAsSuccess(s.err) {
		return nil
	}
	return s.err
}

// User returns the authenticated username of s, or "" if the session has
// not (yet) logged in.
func (s *Session) User() string {
	s.μ.Lock()
	defer s.μ.Unlock()
	return s.user
}

// Handle returns the delivery handle of s, or nil if s is not started.
// Frames delivered to the handle are sent to the session's client.
func (s *Session) Handle() Handle {
	if s.queue == nil {
		return nil
	}
	return s.queue
}

// LogFrames registers a callback that will be invoked for each frame
// exchanged with the client, regardless of type. Passing a nil callback
// disables frame logging. LogFrames must be called before Start; it returns
// s to permit chaining.
func (s *Session) LogFrames(log FrameLogger) *Session {
	s.μ.Lock()
	defer s.μ.Unlock()
	s.flog = log
	return s
}

// Logf registers a destination for server-side diagnostic logs, such as
// dropped direct messages. A nil logf discards them. Logf must be called
// before Start; it returns s to permit chaining.
func (s *Session) Logf(logf func(string, ...any)) *Session {
	s.μ.Lock()
	defer s.μ.Unlock()
	s.logf = logf
	return s
}

// OnExit registers a callback to be invoked when the session terminates.
// The callback is executed synchronously during shutdown, with the same
// error value that would be reported by the Wait method.
//
// Only one exit callback can be registered at a time; if f == nil the
// callback is removed.
func (s *Session) OnExit(f func(error)) *Session {
	s.μ.Lock()
	defer s.μ.Unlock()
	s.onExit = f
	return s
}

// QueueSize sets the capacity of the session's outbound delivery queue.
// It must be called before Start; n <= 0 selects the default (32).
// QueueSize returns s to permit chaining.
func (s *Session) QueueSize(n int) *Session { s.qsize = n; return s }

func treatErrorAsSuccess(err error) bool {
	return errors.Is(err, io.EOF) || errors.Is(err, net.ErrClosed)
}

// fail records the first fatal error and runs teardown.
func (s *Session) fail(err error) {
	s.μ.Lock()
	if s.err == nil {
		s.err = err
	}
	s.μ.Unlock()
	s.shutdown()
}

// shutdown releases the session's shared state exactly once: the directory
// entry if one was registered, the delivery queue, and the channel. Frames
// already queued for other sessions are unaffected; errors never propagate
// across sessions.
func (s *Session) shutdown() {
	s.teardown.Do(func() {
		s.μ.Lock()
		user, onExit, err := s.user, s.onExit, s.err
		s.μ.Unlock()

		if user != "" {
			s.dir.Unregister(user, s.queue)
		}
		s.queue.Close()
		s.ch.Close()
		sessionMetrics.sessionsActive.Add(-1)
		if onExit != nil {
			if treatErrorAsSuccess(err) {
				err = nil
			}
			onExit(err)
		}
	})
}

// dispatch routes one inbound frame from the client.
// Any error it reports is protocol fatal.
func (s *Session) dispatch(f *Frame) error {
	switch f.Type {
	case TypeLogin:
		var req Login
		if err := req.Decode(f.Payload); err != nil {
			return fmt.Errorf("invalid login payload: %w", err)
		}
		return s.login(&req)

	case TypeBroadcast, TypeListOnline, TypeDirect:
		user := s.User()
		if user == "" {
			return fmt.Errorf("%v frame from unauthenticated session", f.Type)
		}
		ds, err := route(s.dir, s.queue, user, f)
		if err != nil {
			return err
		}
		if len(ds) == 0 && f.Type == TypeDirect {
			s.logPrintf("Drop direct message from %q: recipient not online", user)
		}
		deliverAll(ds)
		return nil

	default:
		return fmt.Errorf("unrecognized frame type %v", f.Type)
	}
}

// login checks the credential pair with the authenticator and answers only
// the sending session. A rejected login leaves the session open for another
// attempt; a session that already holds a username keeps it and the new
// attempt is rejected.
func (s *Session) login(req *Login) error {
	ok := s.User() == "" && s.auth.Authenticate(context.Background(), req.Username, req.Password)
	if ok {
		sessionMetrics.loginsOK.Add(1)
		s.μ.Lock()
		s.user = req.Username
		s.μ.Unlock()

		// Register before answering, so the user is visible to routing by
		// the time the client observes success. A displaced duplicate login
		// is torn down by closing its handle; its own teardown cannot evict
		// this entry (see Directory.Unregister).
		if old := s.dir.Register(req.Username, s.queue); old != nil {
			s.logPrintf("User %q logged in again, displacing an open session", req.Username)
			old.Close()
		}
	} else {
		sessionMetrics.loginsFailed.Add(1)
	}

	rsp := &Frame{Type: TypeLogin, Payload: []byte(value.Cond(ok, req.Username, LoginFailed))}
	if !s.queue.Deliver(rsp) {
		return ErrQueueClosed
	}
	return nil
}

func (s *Session) logPrintf(msg string, args ...any) {
	if s.logf != nil {
		s.logf(msg, args...)
	}
}

// A queue is the bounded FIFO of outbound frames feeding a session's write
// loop. It is the session's delivery handle: the router and other sessions
// enqueue, only the owning write loop drains.
type queue struct {
	frames chan *Frame
	closed chan struct{}
	stop   sync.Once
}

func newQueue(n int) *queue {
	return &queue{frames: make(chan *Frame, n), closed: make(chan struct{})}
}

// Deliver implements part of the Handle interface. A full queue blocks the
// caller until space frees or the queue closes; this is the relay's only
// backpressure mechanism.
func (q *queue) Deliver(f *Frame) bool {
	select {
	case <-q.closed:
		return false
	default:
	}
	select {
	case q.frames <- f:
		return true
	case <-q.closed:
		return false
	}
}

// Close implements part of the Handle interface.
func (q *queue) Close() { q.stop.Do(func() { close(q.closed) }) }

// next returns the next frame in FIFO order, blocking until one is
// available. It reports false once the queue is closed and drained.
func (q *queue) next() (*Frame, bool) {
	select {
	case f := <-q.frames:
		return f, true
	case <-q.closed:
		select {
		case f := <-q.frames:
			return f, true
		default:
			return nil, false
		}
	}
}
