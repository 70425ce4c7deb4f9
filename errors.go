package styxclient

import (
	"fmt"

	"github.com/go9p/styxclient/wire"
)

// MalformedFrame is returned when the codec cannot parse a frame the
// Receiver read off the transport. It is a direct alias of the wire
// package's type, so callers never need to import wire themselves
// just to match on it with errors.As.
type MalformedFrame = wire.MalformedFrame

// ServerError wraps an Rerror reply: the server declined a request.
// It is request-local and never tears down the Session.
type ServerError struct {
	Ename string
}

func (e *ServerError) Error() string { return e.Ename }

// ProtocolMismatch means the server's Rversion named a version string
// this client does not speak, or proposed an unusable msize. It is
// terminal: connect never reaches Ready.
type ProtocolMismatch struct {
	Version string
	Msize   uint32
}

func (e *ProtocolMismatch) Error() string {
	return fmt.Sprintf("styxclient: server proposed version %q msize %d, unusable", e.Version, e.Msize)
}

// ShortWrite reports that the server accepted fewer bytes than a
// single Twrite offered. The caller sees exactly how many bytes
// landed and may resume from there; the Session is unaffected.
type ShortWrite struct {
	Requested int
	Wrote     int
}

func (e *ShortWrite) Error() string {
	return fmt.Sprintf("styxclient: short write: wrote %d of %d bytes", e.Wrote, e.Requested)
}

// TagsExhausted means all 65,535 tags are currently in flight on this
// connection. Transient; the caller may back off and retry.
type TagsExhausted struct{}

func (TagsExhausted) Error() string { return "styxclient: no free tags" }

// FidsExhausted means all fids are currently held by this client.
// Transient; the caller may back off and retry.
type FidsExhausted struct{}

func (FidsExhausted) Error() string { return "styxclient: no free fids" }

// HandleClosed is returned by any operation on a Handle after Close
// has run. It signals a programming error in the caller.
type HandleClosed struct{}

func (HandleClosed) Error() string { return "styxclient: operation on closed handle" }

// Unsupported is returned for an operation the core client
// deliberately does not implement, such as SeekEnd without a cached
// file length.
type Unsupported struct {
	Op string
}

func (e *Unsupported) Error() string { return fmt.Sprintf("styxclient: unsupported: %s", e.Op) }

// ConnectionClosed is delivered to every waiter once a Session's
// connection has terminated, whether by a transport error, a decode
// error, or a caller-driven Disconnect. Cause is the error that ended
// the connection, or nil for a clean Disconnect.
type ConnectionClosed struct {
	Cause error
}

func (e *ConnectionClosed) Error() string {
	if e.Cause == nil {
		return "styxclient: connection closed"
	}
	return fmt.Sprintf("styxclient: connection closed: %v", e.Cause)
}

func (e *ConnectionClosed) Unwrap() error { return e.Cause }
