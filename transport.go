package styxclient

import (
	"crypto/tls"
	"net"
	"time"
)

// A Transport is the reliable ordered byte stream a Session frames
// messages over: plain TCP or TLS-wrapped TCP, per spec §4.2. It
// knows nothing about 9P framing; it only moves bytes. A read that
// times out must report an error satisfying the net.Error Timeout
// method, which the Receiver treats as a transient no-op rather than
// a terminal condition.
type Transport interface {
	Read(b []byte) (int, error)
	Write(b []byte) (int, error)
	Close() error
	SetReadDeadline(t time.Time) error
}

// Dial opens a plain TCP connection to addr ("host:port"). The
// returned Transport satisfies net.Conn, so any net.Conn produced
// by other means (a Unix socket, a pre-established pipe) also works
// as a Transport without adaptation.
func Dial(addr string) (Transport, error) {
	return net.Dial("tcp", addr)
}

// DialTLS opens a TCP connection to addr and performs a TLS handshake
// using conf. Certificate loading and verification policy belong to
// conf, supplied by the caller; this function only wraps an
// already-configured *tls.Config around the stream, the same division
// of responsibility the teacher's styxauth package assumes of its
// callers.
func DialTLS(addr string, conf *tls.Config) (Transport, error) {
	return tls.Dial("tcp", addr, conf)
}
