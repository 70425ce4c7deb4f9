package styxclient

import (
	"io"

	"github.com/go9p/styxclient/wire"
)

// Seek whence values, matching io.Seeker's.
const (
	SeekStart   = io.SeekStart
	SeekCurrent = io.SeekCurrent
	SeekEnd     = io.SeekEnd
)

// A Handle is a file-like façade over a single open fid (spec §4.7):
// read, write, seek, stat, close, each enforcing the negotiated
// iounit. A Handle holds a non-owning reference to its Session; it
// must not outlive it, and observes ConnectionClosed on every
// operation once the Session is gone. A Handle is for use by a single
// caller at a time — concurrent calls on the same Handle are
// undefined, per spec §5.
type Handle struct {
	s      *Session
	fid    uint32
	qid    wire.Qid
	iounit uint32
	mode   uint8

	offset int64
	closed bool
}

func (s *Session) newHandle(fid uint32, qid wire.Qid, iounit uint32, mode uint8) *Handle {
	eff := iounit
	if max := s.msize - writeHeaderOverhead(); eff == 0 || eff > max {
		eff = max
	}
	return &Handle{s: s, fid: fid, qid: qid, iounit: eff, mode: mode}
}

// writeHeaderOverhead repeats the value of wire's unexported IOHDRSZ
// constant (24) in this package rather than exporting it from wire.
func writeHeaderOverhead() uint32 { return 24 }

// Qid returns the file's identity as returned by Open or Create.
func (h *Handle) Qid() wire.Qid { return h.qid }

// Tell returns the current byte offset without performing any I/O.
func (h *Handle) Tell() int64 { return h.offset }

func (h *Handle) checkOpen() error {
	if h.closed {
		return HandleClosed{}
	}
	select {
	case <-h.s.recv.Done():
		return &ConnectionClosed{Cause: h.s.recv.Cause()}
	default:
	}
	return nil
}

// Read issues successive Tread requests chunked by the handle's
// effective iounit until n bytes have been delivered or the server
// signals EOF with a zero-length Rread, per spec §4.7.
func (h *Handle) Read(n int) ([]byte, error) {
	if err := h.checkOpen(); err != nil {
		return nil, err
	}
	if n < 0 {
		return h.readAll()
	}

	out := make([]byte, 0, n)
	for len(out) < n {
		want := uint32(n - len(out))
		if want > h.iounit {
			want = h.iounit
		}
		reply, err := h.s.send(func(tag uint16) wire.Message {
			return wire.Tread{Tag: tag, Fid: h.fid, Offset: uint64(h.offset), Count: want}
		})
		if err != nil {
			return out, err
		}
		rr, ok := reply.(wire.Rread)
		if !ok {
			return out, &ProtocolMismatch{}
		}
		if len(rr.Data) == 0 {
			break
		}
		out = append(out, rr.Data...)
		h.offset += int64(len(rr.Data))
	}
	return out, nil
}

// readAll implements Read(-1): read until the server signals EOF.
func (h *Handle) readAll() ([]byte, error) {
	var out []byte
	for {
		reply, err := h.s.send(func(tag uint16) wire.Message {
			return wire.Tread{Tag: tag, Fid: h.fid, Offset: uint64(h.offset), Count: h.iounit}
		})
		if err != nil {
			return out, err
		}
		rr, ok := reply.(wire.Rread)
		if !ok {
			return out, &ProtocolMismatch{}
		}
		if len(rr.Data) == 0 {
			return out, nil
		}
		out = append(out, rr.Data...)
		h.offset += int64(len(rr.Data))
	}
}

// Write issues successive Twrite requests chunked by the handle's
// effective iounit. If any Rwrite.Count is less than the slice sent,
// Write stops and returns *ShortWrite; the offset still advances by
// whatever was actually accepted.
func (h *Handle) Write(p []byte) (int, error) {
	if err := h.checkOpen(); err != nil {
		return 0, err
	}

	written := 0
	for written < len(p) {
		end := written + int(h.iounit)
		if end > len(p) {
			end = len(p)
		}
		slice := p[written:end]

		reply, err := h.s.sendWrite(h.fid, uint64(h.offset), slice)
		if err != nil {
			return written, err
		}
		rw, ok := reply.(wire.Rwrite)
		if !ok {
			return written, &ProtocolMismatch{}
		}
		h.offset += int64(rw.Count)
		written += int(rw.Count)
		if int(rw.Count) < len(slice) {
			return written, &ShortWrite{Requested: len(slice), Wrote: int(rw.Count)}
		}
	}
	return written, nil
}

// Seek repositions the handle for the next Read or Write. SeekEnd
// always fails with *Unsupported: the core does not discover file
// length (spec §4.7, §9 non-goal).
func (h *Handle) Seek(offset int64, whence int) (int64, error) {
	if err := h.checkOpen(); err != nil {
		return 0, err
	}
	switch whence {
	case SeekStart:
		h.offset = offset
	case SeekCurrent:
		h.offset += offset
	case SeekEnd:
		return h.offset, &Unsupported{Op: "seek from end"}
	default:
		return h.offset, &Unsupported{Op: "seek whence"}
	}
	return h.offset, nil
}

// Stat issues Tstat{fid} and returns the parsed stat record.
func (h *Handle) Stat() (wire.Stat, error) {
	if err := h.checkOpen(); err != nil {
		return wire.Stat{}, err
	}
	reply, err := h.s.send(func(tag uint16) wire.Message {
		return wire.Tstat{Tag: tag, Fid: h.fid}
	})
	if err != nil {
		return wire.Stat{}, err
	}
	rs, ok := reply.(wire.Rstat)
	if !ok {
		return wire.Stat{}, &ProtocolMismatch{}
	}
	return rs.Stat, nil
}

// Readdir decodes up to n concatenated Stat records from the
// directory this handle is open on, reusing the same iounit-chunked
// Tread loop Read uses (they are not distinguished on the wire; a
// directory's Rread payload is just Stat records back to back rather
// than opaque bytes). n <= 0 reads until EOF.
func (h *Handle) Readdir(n int) ([]wire.Stat, error) {
	if err := h.checkOpen(); err != nil {
		return nil, err
	}
	if !h.qid.IsDir() {
		return nil, &Unsupported{Op: "readdir on a non-directory handle"}
	}

	var stats []wire.Stat
	var pending []byte
	for n <= 0 || len(stats) < n {
		reply, err := h.s.send(func(tag uint16) wire.Message {
			return wire.Tread{Tag: tag, Fid: h.fid, Offset: uint64(h.offset), Count: h.iounit}
		})
		if err != nil {
			return stats, err
		}
		rr, ok := reply.(wire.Rread)
		if !ok {
			return stats, &ProtocolMismatch{}
		}
		if len(rr.Data) == 0 {
			return stats, nil
		}
		h.offset += int64(len(rr.Data))
		pending = append(pending, rr.Data...)

		for len(pending) >= 2 {
			st, consumed, ok := wire.DecodeOneStat(pending)
			if !ok {
				break
			}
			stats = append(stats, st)
			pending = pending[consumed:]
			if n > 0 && len(stats) >= n {
				break
			}
		}
	}
	return stats, nil
}

// Remove sends Tremove{fid}; regardless of the reply, the fid is
// released and the handle transitions to closed, the same rule
// Tclunk follows on close.
func (h *Handle) Remove() error {
	if err := h.checkOpen(); err != nil {
		return err
	}
	h.closed = true
	h.s.removeLive(h.fid)

	_, err := h.s.send(func(tag uint16) wire.Message {
		return wire.Tremove{Tag: tag, Fid: h.fid}
	})
	h.s.fids.Free(h.fid)
	return err
}

// Close sends Tclunk{fid}; regardless of the reply, the fid is
// released. Subsequent operations return HandleClosed.
func (h *Handle) Close() error {
	if h.closed {
		return nil
	}
	h.closed = true
	h.s.clunk(h.fid)
	return nil
}
