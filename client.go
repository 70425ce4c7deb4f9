package styxclient

import (
	"crypto/tls"
	"net"
	"time"

	"aqwari.net/retry"

	"github.com/go9p/styxclient/wire"
)

// Logger receives diagnostic information from a Client or Session.
// It is implemented by *log.Logger; the zero value of Client logs
// nothing.
type Logger interface {
	Printf(format string, v ...interface{})
}

// A Client holds the dial-time options shared by every Session it
// creates. The zero value of a Client is usable: default msize, no
// dial timeout, no logging, no tracing.
type Client struct {
	// MaxSize is the msize this client proposes during version
	// negotiation. Zero means wire.DefaultMsize.
	MaxSize uint32

	// Timeout bounds how long Dial waits for the initial TCP
	// connection. Zero means no timeout. Unlike the teacher's
	// Client.Timeout, this never applies to an individual request;
	// spec §5 makes per-request deadlines the caller's problem,
	// implemented by pairing await with Tflush.
	Timeout time.Duration

	// Logger receives diagnostic messages, if non-nil.
	Logger Logger

	// Trace, if non-nil, is called synchronously for every message
	// this client sends (sent=true) or receives (sent=false). It is
	// an observer only, never required for correctness (spec §9).
	Trace func(sent bool, m wire.Message)
}

func (c *Client) logf(format string, v ...interface{}) {
	if c.Logger != nil {
		c.Logger.Printf(format, v...)
	}
}

// Connect performs the version handshake and attach of spec §4.6 over
// an already-open Transport, as user. On success the returned Session
// is in the Ready state.
func (c *Client) Connect(tr Transport, user string) (*Session, error) {
	return newSession(tr, user, c)
}

// Dial opens a plain TCP connection to addr and connects as user.
func (c *Client) Dial(addr, user string) (*Session, error) {
	tr, err := c.dialTimeout(addr)
	if err != nil {
		return nil, err
	}
	return c.Connect(tr, user)
}

// DialTLS opens a TLS connection to addr using conf and connects as
// user.
func (c *Client) DialTLS(addr, user string, conf *tls.Config) (*Session, error) {
	tr, err := DialTLS(addr, conf)
	if err != nil {
		return nil, err
	}
	return c.Connect(tr, user)
}

func (c *Client) dialTimeout(addr string) (Transport, error) {
	if c.Timeout <= 0 {
		return Dial(addr)
	}
	return net.DialTimeout("tcp", addr, c.Timeout)
}

// DialRetry dials addr, retrying a temporary failure with the same
// exponential backoff shape the teacher's Accept loop uses
// (retry.Exponential(time.Millisecond).Max(time.Second)), up to
// maxTries attempts. A non-temporary error returns immediately.
func (c *Client) DialRetry(addr, user string, maxTries int) (*Session, error) {
	backoff := retry.Exponential(time.Millisecond).Max(time.Second)
	var lastErr error
	for try := 1; try <= maxTries; try++ {
		s, err := c.Dial(addr, user)
		if err == nil {
			return s, nil
		}
		lastErr = err
		if !isTemporary(err) {
			return nil, err
		}
		c.logf("styxclient: dial %s: %v; retrying in %v", addr, err, backoff(try))
		time.Sleep(backoff(try))
	}
	return nil, lastErr
}

// Backoff returns the delay a caller should wait before retrying a
// TagsExhausted or FidsExhausted error for the try'th attempt
// (1-based), using the same exponential shape DialRetry backs off
// connection attempts with.
func (c *Client) Backoff(try int) time.Duration {
	return retry.Exponential(time.Millisecond).Max(time.Second)(try)
}

// isTemporary reports whether err exports a Temporary() method that
// returns true.
func isTemporary(err error) bool {
	type temporary interface {
		Temporary() bool
	}
	t, ok := err.(temporary)
	return ok && t.Temporary()
}

// Connect dials addr over plain TCP and connects as user, using
// default Client options.
func Connect(addr, user string) (*Session, error) {
	return (&Client{}).Dial(addr, user)
}

// ConnectTLS dials addr over TLS and connects as user, using default
// Client options.
func ConnectTLS(addr, user string, conf *tls.Config) (*Session, error) {
	return (&Client{}).DialTLS(addr, user, conf)
}
