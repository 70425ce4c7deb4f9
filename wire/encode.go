package wire

import (
	"fmt"
	"io"
)

// Encode returns the wire form of m, including its leading 4-byte size
// field. Encoding is deterministic: the same Message always produces
// the same bytes, and encode(m)[:4] always equals len(encode(m)) (spec
// §8, law 1).
func Encode(m Message) ([]byte, error) {
	body, err := encodeBody(m)
	if err != nil {
		return nil, err
	}
	size := headerLen + len(body)
	buf := make([]byte, 0, size)
	buf = putUint32(buf, uint32(size))
	buf = putUint8(buf, uint8(m.MsgType()))
	buf = putUint16(buf, m.GetTag())
	buf = append(buf, body...)
	return buf, nil
}

func encodeBody(m Message) ([]byte, error) {
	switch m := m.(type) {
	case Tversion:
		if len(m.Version) > MaxVersionLen {
			return nil, errLongVersion
		}
		b := putUint32(nil, m.Msize)
		return putString(b, m.Version), nil
	case Rversion:
		if len(m.Version) > MaxVersionLen {
			return nil, errLongVersion
		}
		b := putUint32(nil, m.Msize)
		return putString(b, m.Version), nil
	case Tauth:
		if len(m.Uname) > MaxUidLen || len(m.Aname) > MaxAttachLen {
			return nil, errLongAname
		}
		b := putUint32(nil, m.Afid)
		b = putString(b, m.Uname)
		return putString(b, m.Aname), nil
	case Rauth:
		return putQid(nil, m.Aqid), nil
	case Tattach:
		if len(m.Uname) > MaxUidLen || len(m.Aname) > MaxAttachLen {
			return nil, errLongAname
		}
		b := putUint32(nil, m.Fid)
		b = putUint32(b, m.Afid)
		b = putString(b, m.Uname)
		return putString(b, m.Aname), nil
	case Rattach:
		return putQid(nil, m.Qid), nil
	case Rerror:
		ename := m.Ename
		if len(ename) > MaxErrorLen {
			return nil, errLongError
		}
		return putString(nil, ename), nil
	case Tflush:
		return putUint16(nil, m.Oldtag), nil
	case Rflush:
		return nil, nil
	case Twalk:
		if len(m.Wname) > MaxWElem {
			return nil, errMaxWElem
		}
		b := putUint32(nil, m.Fid)
		b = putUint32(b, m.Newfid)
		b = putUint16(b, uint16(len(m.Wname)))
		for _, name := range m.Wname {
			if len(name) > MaxFilenameLen || !validPathElem(name) {
				return nil, errLongFilename
			}
			b = putString(b, name)
		}
		return b, nil
	case Rwalk:
		if len(m.Wqid) > MaxWElem {
			return nil, errMaxWElem
		}
		b := putUint16(nil, uint16(len(m.Wqid)))
		for _, q := range m.Wqid {
			b = putQid(b, q)
		}
		return b, nil
	case Topen:
		b := putUint32(nil, m.Fid)
		return putUint8(b, m.Mode), nil
	case Ropen:
		b := putQid(nil, m.Qid)
		return putUint32(b, m.Iounit), nil
	case Tcreate:
		if len(m.Name) > MaxFilenameLen {
			return nil, errLongFilename
		}
		b := putUint32(nil, m.Fid)
		b = putString(b, m.Name)
		b = putUint32(b, m.Perm)
		return putUint8(b, m.Mode), nil
	case Rcreate:
		b := putQid(nil, m.Qid)
		return putUint32(b, m.Iounit), nil
	case Tread:
		b := putUint32(nil, m.Fid)
		b = putUint64(b, m.Offset)
		return putUint32(b, m.Count), nil
	case Rread:
		b := putUint32(nil, uint32(len(m.Data)))
		return append(b, m.Data...), nil
	case Twrite:
		b := putUint32(nil, m.Fid)
		b = putUint64(b, m.Offset)
		b = putUint32(b, uint32(len(m.Data)))
		return append(b, m.Data...), nil
	case Rwrite:
		return putUint32(nil, m.Count), nil
	case Tclunk:
		return putUint32(nil, m.Fid), nil
	case Rclunk:
		return nil, nil
	case Tremove:
		return putUint32(nil, m.Fid), nil
	case Rremove:
		return nil, nil
	case Tstat:
		return putUint32(nil, m.Fid), nil
	case Rstat:
		rec, err := m.Stat.record()
		if err != nil {
			return nil, err
		}
		return append(putUint16(nil, uint16(len(rec))), rec...), nil
	case Twstat:
		rec, err := m.Stat.record()
		if err != nil {
			return nil, err
		}
		b := putUint32(nil, m.Fid)
		b = putUint16(b, uint16(len(rec)))
		return append(b, rec...), nil
	case Rwstat:
		return nil, nil
	default:
		return nil, fmt.Errorf("wire: cannot encode %T", m)
	}
}

// WriteTwrite writes a complete Twrite frame to w as two pieces, a
// fixed-size prefix and data itself, so a caller with a large payload
// never has to copy it into an intermediate frame buffer first. w must
// be isolated from any other goroutine's writes for the duration of
// the call (internal/txwriter.Writer.Tx gives callers exactly that).
func WriteTwrite(w io.Writer, tag uint16, fid uint32, offset uint64, data []byte) (int, error) {
	size := headerLen + 16 + len(data)
	prefix := make([]byte, 0, headerLen+16)
	prefix = putUint32(prefix, uint32(size))
	prefix = putUint8(prefix, uint8(MsgTwrite))
	prefix = putUint16(prefix, tag)
	prefix = putUint32(prefix, fid)
	prefix = putUint64(prefix, offset)
	prefix = putUint32(prefix, uint32(len(data)))
	if _, err := w.Write(prefix); err != nil {
		return 0, err
	}
	return w.Write(data)
}
