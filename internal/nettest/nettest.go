// Package nettest provides an in-process net.Listener for exercising
// a Session against a fake server without binding a real socket.
package nettest

import (
	"errors"
	"net"
	"sync"
)

var errClosed = errors.New("nettest: listener closed")

// PipeListener is a net.Listener backed by net.Pipe. Dial and Accept
// rendezvous directly with one another; nothing touches the network
// stack, so tests can run in sandboxes that forbid binding sockets.
type PipeListener struct {
	once     sync.Once
	incoming chan net.Conn
	shutdown chan struct{}
}

func (l *PipeListener) init() {
	l.once.Do(func() {
		l.incoming = make(chan net.Conn)
		l.shutdown = make(chan struct{})
	})
}

// Accept blocks until Dial is called or the listener is closed.
func (l *PipeListener) Accept() (net.Conn, error) {
	l.init()
	select {
	case c := <-l.incoming:
		return c, nil
	case <-l.shutdown:
		return nil, errClosed
	}
}

// Dial returns the client half of a fresh net.Pipe, handing the
// server half to whichever goroutine is blocked in Accept.
func (l *PipeListener) Dial() (net.Conn, error) {
	l.init()
	client, server := net.Pipe()
	select {
	case <-l.shutdown:
		client.Close()
		server.Close()
		return nil, errClosed
	case l.incoming <- server:
		return client, nil
	}
}

// Close unblocks any pending Accept or Dial. It is safe to call more
// than once.
func (l *PipeListener) Close() error {
	l.init()
	select {
	case <-l.shutdown:
	default:
		close(l.shutdown)
	}
	return nil
}

type pipeAddr struct{}

func (pipeAddr) Network() string { return "pipe" }
func (pipeAddr) String() string  { return "pipe" }

// Addr returns a placeholder address; net.Pipe connections have none
// of their own.
func (l *PipeListener) Addr() net.Addr {
	l.init()
	return pipeAddr{}
}
