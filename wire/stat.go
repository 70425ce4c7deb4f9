package wire

import "fmt"

// A Stat describes a single directory entry, as produced by the server in
// an Rstat reply (or, for directories opened for reading, concatenated
// one after another in the data portion of successive Rread replies).
type Stat struct {
	Type   uint16
	Dev    uint32
	Qid    Qid
	Mode   uint32
	Atime  uint32
	Mtime  uint32
	Length uint64
	Name   string
	Uid    string
	Gid    string
	Muid   string
}

func (s Stat) String() string {
	return fmt.Sprintf("%s mode=%o length=%d name=%q", s.Qid, s.Mode, s.Length, s.Name)
}

// record returns the self-contained wire form of s: a leading 2-byte
// size field (the length of everything that follows it), then the
// fields themselves. This is "the stat structure" as stat(5) describes
// it. Messages that carry a Stat (Rstat, Twstat) wrap this again in
// their own outer length-prefixed field — the doubled size is a
// long-standing wart of the 9P2000 wire format, not a bug here.
func (s Stat) record() ([]byte, error) {
	body := make([]byte, 0, minStatLen)
	body = putUint16(body, s.Type)
	body = putUint32(body, s.Dev)
	body = putQid(body, s.Qid)
	body = putUint32(body, s.Mode)
	body = putUint32(body, s.Atime)
	body = putUint32(body, s.Mtime)
	body = putUint64(body, s.Length)
	body = putString(body, s.Name)
	body = putString(body, s.Uid)
	body = putString(body, s.Gid)
	body = putString(body, s.Muid)

	if len(body)+2 > maxStatLen {
		return nil, errLongStat
	}
	out := putUint16(nil, uint16(len(body)))
	return append(out, body...), nil
}

// decodeRecord parses the self-contained form record returns: a leading
// 2-byte size field followed by the fields it describes. It reports
// errStatSizeField if the declared size disagrees with what follows,
// mirroring the check the teacher's styxproto package runs on Rstat's
// embedded stat blob.
func decodeRecord(b []byte) (Stat, error) {
	if len(b) < 2 {
		return Stat{}, errShortStat
	}
	n := int(guint16(b[:2]))
	b = b[2:]
	if n != len(b) {
		return Stat{}, errStatSizeField
	}
	return decodeStat(b)
}

// decodeStat parses a Stat from the front of b, which must contain
// exactly the fields (no leading size field — that belongs to the
// record, or to whatever container wraps the record).
func decodeStat(b []byte) (Stat, error) {
	const fixed = 2 + 4 + QidLen + 4 + 4 + 4 + 8
	if len(b) < fixed {
		return Stat{}, errShortStat
	}
	var s Stat
	s.Type = guint16(b[0:2])
	s.Dev = guint32(b[2:6])
	s.Qid = getQid(b[6 : 6+QidLen])
	off := 6 + QidLen
	s.Mode = guint32(b[off : off+4])
	s.Atime = guint32(b[off+4 : off+8])
	s.Mtime = guint32(b[off+8 : off+12])
	s.Length = guint64(b[off+12 : off+20])
	rest := b[off+20:]

	var err error
	if s.Name, rest, err = getString(rest); err != nil {
		return Stat{}, err
	}
	if len(s.Name) > MaxFilenameLen {
		return Stat{}, errLongFilename
	}
	if !validUTF8(s.Name) {
		return Stat{}, errInvalidUTF8
	}
	if s.Uid, rest, err = getString(rest); err != nil {
		return Stat{}, err
	}
	if len(s.Uid) > MaxUidLen || !validUTF8(s.Uid) {
		return Stat{}, errLongUsername
	}
	if s.Gid, rest, err = getString(rest); err != nil {
		return Stat{}, err
	}
	if len(s.Gid) > MaxUidLen || !validUTF8(s.Gid) {
		return Stat{}, errLongUsername
	}
	if s.Muid, _, err = getString(rest); err != nil {
		return Stat{}, err
	}
	if len(s.Muid) > MaxUidLen || !validUTF8(s.Muid) {
		return Stat{}, errLongUsername
	}
	return s, nil
}

// DecodeOneStat parses a single stat record off the front of b — a
// 2-byte size field followed by that many bytes of fields — and
// reports how many bytes of b it consumed. It is used to walk the
// concatenated stat records a directory's Rread payload carries, so
// ok is false (rather than an error) when b doesn't yet hold a
// complete record: the caller is expected to read more and retry,
// not treat a short trailing buffer as malformed.
func DecodeOneStat(b []byte) (st Stat, consumed int, ok bool) {
	if len(b) < 2 {
		return Stat{}, 0, false
	}
	n := int(guint16(b[:2]))
	if len(b) < 2+n {
		return Stat{}, 0, false
	}
	st, err := decodeStat(b[2 : 2+n])
	if err != nil {
		return Stat{}, 0, false
	}
	return st, 2 + n, true
}

// IsDir reports whether the stat describes a directory.
func (s Stat) IsDir() bool { return s.Mode&dmDir != 0 }

// dmDir is the directory bit of a Stat's mode word (spec §3's Perm
// layout, high bit of the 32-bit perm/mode).
const dmDir = 0x80000000
