package styxclient

import (
	"context"
	"net"
	"testing"
	"time"

	"github.com/go9p/styxclient/internal/nettest"
	"github.com/go9p/styxclient/wire"
)

// serveVersionAttach answers the handshake every Session performs in
// newSession, then hands every later request to next, and answers any
// Tclunk that next leaves unanswered (Disconnect waits for each
// Rclunk). Fid 0 is bound to a root Qid of the caller's choosing.
func serveVersionAttach(rootQid wire.Qid, next nettest.Handler) nettest.Handler {
	return func(m wire.Message) wire.Message {
		switch r := m.(type) {
		case wire.Tversion:
			return wire.Rversion{Tag: r.Tag, Msize: r.Msize, Version: wire.DefaultVersion}
		case wire.Tattach:
			return wire.Rattach{Tag: r.Tag, Qid: rootQid}
		default:
			if next != nil {
				if reply := next(m); reply != nil {
					return reply
				}
			}
			if c, ok := m.(wire.Tclunk); ok {
				return wire.Rclunk{Tag: c.Tag}
			}
			return nil
		}
	}
}

// dialFake spins up a Session talking to an in-process FakeServer that
// answers with handle. It returns the Session and the server-side
// net.Conn, so a test can sever the connection to exercise a mid-flight
// disconnect.
func dialFake(t *testing.T, handle nettest.Handler) (*Session, net.Conn) {
	t.Helper()
	var ln nettest.PipeListener

	type result struct {
		s   *Session
		err error
	}
	done := make(chan result, 1)
	go func() {
		c := &Client{}
		tr, derr := ln.Dial()
		if derr != nil {
			done <- result{nil, derr}
			return
		}
		s, cerr := c.Connect(tr, "glenda")
		done <- result{s, cerr}
	}()

	conn, err := ln.Accept()
	if err != nil {
		t.Fatalf("accept: %v", err)
	}
	srv := &nettest.FakeServer{Conn: conn, Handle: handle}
	go srv.Serve()

	res := <-done
	if res.err != nil {
		t.Fatalf("connect: %v", res.err)
	}
	return res.s, conn
}

func TestConnectHandshake(t *testing.T) {
	rootQid := wire.Qid{Type: wire.QTDIR, Path: 1}
	s, _ := dialFake(t, serveVersionAttach(rootQid, nil))
	defer s.Disconnect()

	if s.Version() != wire.DefaultVersion {
		t.Fatalf("Version() = %q, want %q", s.Version(), wire.DefaultVersion)
	}
	if s.RootQid() != rootQid {
		t.Fatalf("RootQid() = %v, want %v", s.RootQid(), rootQid)
	}
	if s.Msize() == 0 {
		t.Fatal("Msize() = 0 after successful negotiation")
	}
}

func TestOpenReadWholeFile(t *testing.T) {
	rootQid := wire.Qid{Type: wire.QTDIR, Path: 1}
	fileQid := wire.Qid{Path: 2}
	content := []byte("hello, styx")

	handle := serveVersionAttach(rootQid, func(m wire.Message) wire.Message {
		switch r := m.(type) {
		case wire.Twalk:
			if len(r.Wname) != 1 || r.Wname[0] != "hello.txt" {
				return wire.Rerror{Tag: r.Tag, Ename: "no such file"}
			}
			return wire.Rwalk{Tag: r.Tag, Wqid: []wire.Qid{fileQid}}
		case wire.Topen:
			return wire.Ropen{Tag: r.Tag, Qid: fileQid, Iounit: 4}
		case wire.Tread:
			end := int(r.Offset) + int(r.Count)
			if end > len(content) {
				end = len(content)
			}
			if int(r.Offset) >= len(content) {
				return wire.Rread{Tag: r.Tag}
			}
			return wire.Rread{Tag: r.Tag, Data: content[r.Offset:end]}
		case wire.Tclunk:
			return wire.Rclunk{Tag: r.Tag}
		}
		return nil
	})

	s, _ := dialFake(t, handle)
	defer s.Disconnect()

	h, err := s.Open("hello.txt", OREAD)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	defer h.Close()

	got, err := h.Read(-1)
	if err != nil {
		t.Fatalf("Read(-1): %v", err)
	}
	if string(got) != string(content) {
		t.Fatalf("Read(-1) = %q, want %q", got, content)
	}
}

func TestWalkFailureReleasesFid(t *testing.T) {
	rootQid := wire.Qid{Type: wire.QTDIR, Path: 1}
	handle := serveVersionAttach(rootQid, func(m wire.Message) wire.Message {
		switch r := m.(type) {
		case wire.Twalk:
			return wire.Rerror{Tag: r.Tag, Ename: "no such file"}
		}
		return nil
	})

	s, _ := dialFake(t, handle)
	defer s.Disconnect()

	_, err := s.Open("missing.txt", OREAD)
	if err == nil {
		t.Fatal("Open of a nonexistent path succeeded")
	}
	if _, ok := err.(*ServerError); !ok {
		t.Fatalf("Open error = %T, want *ServerError", err)
	}

	s.mu.Lock()
	live := len(s.live)
	s.mu.Unlock()
	if live != 1 {
		t.Fatalf("live fids after failed walk = %d, want 1 (root only)", live)
	}
}

func TestChunkedWrite(t *testing.T) {
	rootQid := wire.Qid{Type: wire.QTDIR, Path: 1}
	fileQid := wire.Qid{Path: 2}
	var written []byte

	handle := serveVersionAttach(rootQid, func(m wire.Message) wire.Message {
		switch r := m.(type) {
		case wire.Twalk:
			return wire.Rwalk{Tag: r.Tag, Wqid: []wire.Qid{fileQid}}
		case wire.Topen:
			return wire.Ropen{Tag: r.Tag, Qid: fileQid, Iounit: 4}
		case wire.Twrite:
			if int(r.Offset) != len(written) {
				return wire.Rerror{Tag: r.Tag, Ename: "out of order write"}
			}
			written = append(written, r.Data...)
			return wire.Rwrite{Tag: r.Tag, Count: uint32(len(r.Data))}
		case wire.Tclunk:
			return wire.Rclunk{Tag: r.Tag}
		}
		return nil
	})

	s, _ := dialFake(t, handle)
	defer s.Disconnect()

	h, err := s.Open("out.bin", OWRITE)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	defer h.Close()

	payload := []byte("0123456789") // forces several 4-byte iounit chunks
	n, err := h.Write(payload)
	if err != nil {
		t.Fatalf("Write: %v", err)
	}
	if n != len(payload) {
		t.Fatalf("Write returned %d, want %d", n, len(payload))
	}
	if string(written) != string(payload) {
		t.Fatalf("server received %q, want %q", written, payload)
	}
}

func TestDisconnectClunksRootLast(t *testing.T) {
	rootQid := wire.Qid{Type: wire.QTDIR, Path: 1}
	fileQid := wire.Qid{Path: 2}
	var clunkOrder []uint32

	handle := serveVersionAttach(rootQid, func(m wire.Message) wire.Message {
		switch r := m.(type) {
		case wire.Twalk:
			return wire.Rwalk{Tag: r.Tag, Wqid: []wire.Qid{fileQid}}
		case wire.Tclunk:
			clunkOrder = append(clunkOrder, r.Fid)
			return wire.Rclunk{Tag: r.Tag}
		}
		return nil
	})

	s, _ := dialFake(t, handle)
	fid, _, err := s.walk([]string{"somefile"})
	if err != nil {
		t.Fatalf("walk: %v", err)
	}

	if err := s.Disconnect(); err != nil {
		t.Fatalf("Disconnect: %v", err)
	}

	if len(clunkOrder) != 2 {
		t.Fatalf("clunk order = %v, want 2 entries", clunkOrder)
	}
	if clunkOrder[0] != fid {
		t.Fatalf("first clunk = fid %d, want the walked fid %d", clunkOrder[0], fid)
	}
	if clunkOrder[1] != 0 {
		t.Fatalf("last clunk = fid %d, want the root fid 0", clunkOrder[1])
	}
}

func TestPostDisconnectOperationFails(t *testing.T) {
	rootQid := wire.Qid{Type: wire.QTDIR, Path: 1}
	s, _ := dialFake(t, serveVersionAttach(rootQid, nil))

	if err := s.Disconnect(); err != nil {
		t.Fatalf("Disconnect: %v", err)
	}

	if _, err := s.Open("anything", OREAD); err == nil {
		t.Fatal("Open after Disconnect succeeded")
	}

	// A second Disconnect must be a harmless no-op.
	if err := s.Disconnect(); err != nil {
		t.Fatalf("second Disconnect: %v", err)
	}
}

func TestDoCancelsOnContextDeadline(t *testing.T) {
	rootQid := wire.Qid{Type: wire.QTDIR, Path: 1}
	var flushedOldtag uint16
	flushSeen := make(chan struct{})

	handle := serveVersionAttach(rootQid, func(m wire.Message) wire.Message {
		switch r := m.(type) {
		case wire.Tstat:
			return nil // never answer; the caller's context will expire
		case wire.Tflush:
			flushedOldtag = r.Oldtag
			close(flushSeen)
			return wire.Rflush{Tag: r.Tag}
		}
		return nil
	})

	s, _ := dialFake(t, handle)
	defer s.Disconnect()

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	var sentTag uint16
	_, err := s.Do(ctx, func(tag uint16) wire.Message {
		sentTag = tag
		return wire.Tstat{Tag: tag, Fid: s.rootFid}
	})
	if err != context.DeadlineExceeded {
		t.Fatalf("Do error = %v, want %v", err, context.DeadlineExceeded)
	}

	select {
	case <-flushSeen:
	case <-time.After(5 * time.Second):
		t.Fatal("server never saw a Tflush for the timed-out request")
	}
	if flushedOldtag != sentTag {
		t.Fatalf("Tflush.Oldtag = %d, want %d", flushedOldtag, sentTag)
	}
}

func TestServerGoesSilentSurfacesConnectionClosed(t *testing.T) {
	rootQid := wire.Qid{Type: wire.QTDIR, Path: 1}
	blocked := make(chan struct{})

	handle := serveVersionAttach(rootQid, func(m wire.Message) wire.Message {
		if _, ok := m.(wire.Twalk); ok {
			close(blocked)
			return nil // never answer; simulate a dead peer
		}
		return nil
	})

	s, conn := dialFake(t, handle)
	defer conn.Close()

	done := make(chan error, 1)
	go func() {
		_, _, err := s.walk([]string{"x"})
		done <- err
	}()

	<-blocked
	conn.Close()

	select {
	case err := <-done:
		if err == nil {
			t.Fatal("walk succeeded after the connection was closed")
		}
		if _, ok := err.(*ConnectionClosed); !ok {
			t.Fatalf("walk error = %T (%v), want *ConnectionClosed", err, err)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("walk never returned after the connection closed")
	}
}
