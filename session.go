package styxclient

import (
	"context"
	"strings"
	"sync"

	"github.com/go9p/styxclient/internal/pool"
	"github.com/go9p/styxclient/internal/txwriter"
	"github.com/go9p/styxclient/wire"
)

// A Session is a single 9P2000 connection in the Ready state: version
// negotiated, root attached. It owns the Transport, the Receiver
// worker, and the Tag and Fid pools (spec §4.6). Handles created from
// a Session hold only a non-owning reference to it.
type Session struct {
	tr    Transport
	tags  pool.Tags
	fids  pool.FidPool
	recv  *receiver
	txw   *txwriter.Writer
	log   Logger
	trace func(sent bool, m wire.Message)

	msize   uint32
	version string
	rootFid uint32
	rootQid wire.Qid

	mu       sync.Mutex
	live     []uint32 // fids in allocation order, oldest first
	closed   bool
	closeErr error
}

func newSession(tr Transport, user string, c *Client) (*Session, error) {
	s := &Session{
		tr:    tr,
		txw:   &txwriter.Writer{W: tr},
		log:   c.Logger,
		trace: c.Trace,
	}
	s.recv = newReceiver(tr, &s.tags, s.trace)
	go s.recv.run()

	proposed := c.MaxSize
	if proposed == 0 {
		proposed = wire.DefaultMsize
	}
	if err := s.negotiate(proposed); err != nil {
		s.teardown(err)
		return nil, err
	}
	if err := s.attach(user); err != nil {
		s.teardown(err)
		return nil, err
	}
	return s, nil
}

func (s *Session) logf(format string, v ...interface{}) {
	if s.log != nil {
		s.log.Printf(format, v...)
	}
}

// negotiate runs the Tversion/Rversion exchange over the NoTag slot,
// bypassing the tag pool entirely (spec §4.6 step 2).
func (s *Session) negotiate(proposed uint32) error {
	wait := s.tags.ReserveTag(wire.NoTag)
	defer s.tags.ReleaseTag(wire.NoTag)

	req := wire.Tversion{Tag: wire.NoTag, Msize: proposed, Version: wire.DefaultVersion}
	if err := s.writeMessage(req); err != nil {
		return err
	}

	r := <-wait
	if r.Err != nil {
		return r.Err
	}
	rv, ok := r.Msg.(wire.Rversion)
	if !ok {
		return &ProtocolMismatch{}
	}
	if rv.Msize > proposed || rv.Msize == 0 {
		return &ProtocolMismatch{Version: rv.Version, Msize: rv.Msize}
	}
	if !strings.HasPrefix(wire.DefaultVersion, rv.Version) || rv.Version == "unknown" || rv.Version == "" {
		return &ProtocolMismatch{Version: rv.Version, Msize: rv.Msize}
	}
	s.msize = rv.Msize
	s.version = rv.Version
	return nil
}

func (s *Session) attach(user string) error {
	// Reserve claims fid 0 for the root explicitly, rather than relying
	// on it simply falling out as the first Get from a fresh pool (spec
	// §4.5).
	s.fids.Reserve(0)
	fid := uint32(0)
	s.rootFid = fid
	s.addLive(fid)

	reply, err := s.send(func(tag uint16) wire.Message {
		return wire.Tattach{Tag: tag, Fid: fid, Afid: wire.NoFid, Uname: user, Aname: ""}
	})
	if err != nil {
		s.removeLive(fid)
		s.fids.Free(fid)
		return err
	}
	ra, ok := reply.(wire.Rattach)
	if !ok {
		s.removeLive(fid)
		s.fids.Free(fid)
		return &ProtocolMismatch{}
	}
	s.rootQid = ra.Qid
	return nil
}

// Msize returns the negotiated maximum frame size.
func (s *Session) Msize() uint32 { return s.msize }

// Version returns the negotiated protocol version string.
func (s *Session) Version() string { return s.version }

// RootQid returns the Qid the server returned for the attach point.
func (s *Session) RootQid() wire.Qid { return s.rootQid }

func (s *Session) addLive(fid uint32) {
	s.mu.Lock()
	s.live = append(s.live, fid)
	s.mu.Unlock()
}

func (s *Session) removeLive(fid uint32) {
	s.mu.Lock()
	for i, f := range s.live {
		if f == fid {
			s.live = append(s.live[:i], s.live[i+1:]...)
			break
		}
	}
	s.mu.Unlock()
}

func (s *Session) writeMessage(m wire.Message) error {
	b, err := wire.Encode(m)
	if err != nil {
		return err
	}
	if s.msize != 0 && uint32(len(b)) > s.msize {
		return &ProtocolMismatch{Msize: s.msize}
	}
	if s.trace != nil {
		s.trace(true, m)
	}
	_, err = s.txw.Write(b)
	return err
}

// send allocates a tag, builds the request with it, writes the frame
// atomically, and blocks for the matching reply (spec §4.6's "send").
// An Rerror reply surfaces as *ServerError; any other reply is
// returned as-is for the caller to type-switch on. send is Do with an
// ever-pending context, for the common case where a request has no
// per-call deadline of its own.
func (s *Session) send(build func(tag uint16) wire.Message) (wire.Message, error) {
	return s.Do(context.Background(), build)
}

// Do is send, except the request may be abandoned early by ctx: spec
// §5's "per-request deadlines... are the caller's responsibility and
// are implemented by pairing await with Tflush on deadline expiry." If
// ctx is done before a reply arrives, Do withdraws the tag's reply slot
// (so a reply that shows up afterward is discarded, not delivered to
// whatever next reuses the tag), issues Tflush for it, and returns
// ctx.Err() once the flush round trip finishes. Open, Create, and
// Handle's methods all go through the plain send and never see this
// path; Do is the primitive a caller reaches for when it needs to
// cancel or deadline a single in-flight request without tearing down
// the whole Session.
func (s *Session) Do(ctx context.Context, build func(tag uint16) wire.Message) (wire.Message, error) {
	tag, wait, ok := s.tags.Get()
	if !ok {
		return nil, TagsExhausted{}
	}

	req := build(tag)
	if err := s.writeMessage(req); err != nil {
		s.tags.Free(tag)
		return nil, err
	}

	select {
	case r := <-wait:
		s.tags.Free(tag)
		if r.Err != nil {
			return nil, r.Err
		}
		if e, ok := r.Msg.(wire.Rerror); ok {
			return nil, &ServerError{Ename: e.Ename}
		}
		return r.Msg, nil
	case <-ctx.Done():
		if err := s.cancelTag(tag); err != nil {
			return nil, err
		}
		return nil, ctx.Err()
	}
}

// cancelTag withdraws tag's reply slot (spec §4.4's cancel(tag)), then
// sends Tflush{Oldtag: tag} and awaits the Rflush before returning tag
// to the pool, per spec §5's Cancellation note: "the original reply MAY
// still arrive before or after the flush reply and must be discarded if
// it arrives." Withdrawing the slot before the flush round trip is what
// makes that discard happen — Post finds nothing to deliver to.
func (s *Session) cancelTag(tag uint16) error {
	s.tags.Cancel(tag)
	_, err := s.send(func(t uint16) wire.Message {
		return wire.Tflush{Tag: t, Oldtag: tag}
	})
	s.tags.Free(tag)
	return err
}

// sendWrite is send specialized for Twrite: data is written straight to
// the transport inside a single txwriter transaction instead of being
// copied into an intermediate frame buffer first, the same trick the
// teacher's TwritePipe.Write uses its TxWriter for.
func (s *Session) sendWrite(fid uint32, offset uint64, data []byte) (wire.Message, error) {
	if s.msize != 0 && writeHeaderOverhead()+uint32(len(data)) > s.msize {
		return nil, &ProtocolMismatch{Msize: s.msize}
	}
	tag, wait, ok := s.tags.Get()
	if !ok {
		return nil, TagsExhausted{}
	}
	defer s.tags.Free(tag)

	if s.trace != nil {
		s.trace(true, wire.Twrite{Tag: tag, Fid: fid, Offset: offset, Data: data})
	}
	tx := s.txw.Tx()
	_, err := wire.WriteTwrite(tx, tag, fid, offset, data)
	tx.Close()
	if err != nil {
		return nil, err
	}

	r := <-wait
	if r.Err != nil {
		return nil, r.Err
	}
	if e, ok := r.Msg.(wire.Rerror); ok {
		return nil, &ServerError{Ename: e.Ename}
	}
	return r.Msg, nil
}

// walk resolves names starting at the root fid, binding a freshly
// allocated fid to the result, per spec §4.6 steps 1-3. It is the
// shared helper behind Open and Create.
func (s *Session) walk(names []string) (fid uint32, qid wire.Qid, err error) {
	s.mu.Lock()
	closed := s.closed
	s.mu.Unlock()
	if closed {
		return 0, wire.Qid{}, &ConnectionClosed{Cause: s.closeErr}
	}

	newfid, ok := s.fids.Get()
	if !ok {
		return 0, wire.Qid{}, FidsExhausted{}
	}

	reply, err := s.send(func(tag uint16) wire.Message {
		return wire.Twalk{Tag: tag, Fid: s.rootFid, Newfid: newfid, Wname: names}
	})
	if err != nil {
		s.fids.Free(newfid)
		return 0, wire.Qid{}, err
	}
	rw, ok := reply.(wire.Rwalk)
	if !ok {
		s.fids.Free(newfid)
		return 0, wire.Qid{}, &ProtocolMismatch{}
	}

	if len(rw.Wqid) < len(names) {
		// newfid is bound only if at least one element resolved.
		if len(rw.Wqid) > 0 {
			s.clunk(newfid)
		} else {
			s.fids.Free(newfid)
		}
		return 0, wire.Qid{}, &ServerError{Ename: "walk failed"}
	}

	s.addLive(newfid)
	last := s.rootQid
	if len(rw.Wqid) > 0 {
		last = rw.Wqid[len(rw.Wqid)-1]
	}
	return newfid, last, nil
}

func splitPath(path string) []string {
	parts := strings.Split(path, "/")
	out := parts[:0]
	for _, p := range parts {
		if p != "" {
			out = append(out, p)
		}
	}
	return out
}

// Open resolves path relative to the attach point and opens it in
// mode, returning a Handle (spec §4.6's "open").
func (s *Session) Open(path string, mode uint8) (*Handle, error) {
	fid, _, err := s.walk(splitPath(path))
	if err != nil {
		return nil, err
	}
	reply, err := s.send(func(tag uint16) wire.Message {
		return wire.Topen{Tag: tag, Fid: fid, Mode: mode}
	})
	if err != nil {
		s.clunk(fid)
		return nil, err
	}
	ro, ok := reply.(wire.Ropen)
	if !ok {
		s.clunk(fid)
		return nil, &ProtocolMismatch{}
	}
	return s.newHandle(fid, ro.Qid, ro.Iounit, mode), nil
}

// defaultPerm applies spec §3's rule: 0o755 for directories, 0o644
// otherwise, filling in the permission bits only when the caller left
// them unset. Flag bits such as dmDir pass through untouched, so a
// caller asking for a directory passes perm = dmDir (or dmDir with
// explicit permission bits) to get one.
func defaultPerm(perm uint32) uint32 {
	if perm&0o777 != 0 {
		return perm
	}
	if perm&dmDir != 0 {
		return perm | 0o755
	}
	return perm | 0o644
}

const dmDir = 0x80000000

// Create walks to dir, creates name inside it with the given perm and
// mode (§3's Perm/mode encoding; perm == 0 uses the default
// permissions), and returns a Handle bound to the new file. A
// successful Rcreate rebinds the walked fid; Create does not allocate
// a second one.
func (s *Session) Create(dir, name string, perm uint32, mode uint8) (*Handle, error) {
	fid, _, err := s.walk(splitPath(dir))
	if err != nil {
		return nil, err
	}
	perm = defaultPerm(perm)

	reply, err := s.send(func(tag uint16) wire.Message {
		return wire.Tcreate{Tag: tag, Fid: fid, Name: name, Perm: perm, Mode: mode}
	})
	if err != nil {
		s.clunk(fid)
		return nil, err
	}
	rc, ok := reply.(wire.Rcreate)
	if !ok {
		s.clunk(fid)
		return nil, &ProtocolMismatch{}
	}
	return s.newHandle(fid, rc.Qid, rc.Iounit, mode), nil
}

// clunk sends Tclunk{fid} and releases fid from the pool regardless
// of the reply, per spec §4.6's "Reply dispatch on Tclunk".
func (s *Session) clunk(fid uint32) {
	s.send(func(tag uint16) wire.Message {
		return wire.Tclunk{Tag: tag, Fid: fid}
	})
	s.removeLive(fid)
	s.fids.Free(fid)
}

// Disconnect clunks every live fid in reverse allocation order (the
// root fid, allocated first, goes last), flushes any tag still
// outstanding afterward, then closes the transport and joins the
// Receiver (spec §4.6's "disconnect").
func (s *Session) Disconnect() error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return nil
	}
	s.closed = true
	live := append([]uint32(nil), s.live...)
	s.live = nil
	s.mu.Unlock()

	for i := len(live) - 1; i >= 0; i-- {
		s.clunk(live[i])
	}
	// Withdraw anything still outstanding, same as cancelTag, but
	// without calling Tags.Cancel on it: whoever is still blocked in
	// await(tag) here is some other goroutine's call, not this one's,
	// and per spec §8's S6 it must wake with ConnectionClosed once the
	// transport closes below, not a flushed-style error from a cancel
	// it never asked for.
	for _, tag := range s.tags.Outstanding() {
		s.send(func(t uint16) wire.Message {
			return wire.Tflush{Tag: t, Oldtag: tag}
		})
	}

	s.recv.Stop()
	err := s.tr.Close()
	<-s.recv.Done()

	s.mu.Lock()
	s.closeErr = s.recv.Cause()
	s.mu.Unlock()
	return err
}

func (s *Session) teardown(cause error) {
	s.mu.Lock()
	s.closed = true
	s.closeErr = cause
	s.mu.Unlock()
	s.recv.Stop()
	s.tr.Close()
	<-s.recv.Done()
}
