// Package wire implements the on-the-wire encoding of 9P2000 (Styx)
// messages. It knows nothing about connections, fids, or tags in flight;
// it only turns Message values into bytes and back.
package wire

// NoTag is the reserved tag used only for Tversion, before any other
// tag has been negotiated.
const NoTag uint16 = 0xFFFF

// NoFid is the reserved fid meaning "no fid", used as the afid of a
// Tattach when no authentication is in use.
const NoFid uint32 = 0xFFFFFFFF

// DefaultMsize is the msize proposed by a client that has no reason to
// ask for anything else.
const DefaultMsize uint32 = 8216

// DefaultVersion is the protocol version string this package speaks.
const DefaultVersion = "9P2000"

// MaxVersionLen is the maximum length of the protocol version string, in bytes.
const MaxVersionLen = 20

// MaxWElem is the maximum number of path elements in a single Twalk.
const MaxWElem = 16

// MaxFilenameLen is the maximum length of a single path element or file name.
const MaxFilenameLen = 512

// MaxUidLen is the maximum length of a uid, gid, or muid string.
const MaxUidLen = 45

// MaxErrorLen is the maximum length of the ename field of an Rerror.
const MaxErrorLen = 512

// MaxAttachLen is the maximum length of the aname field of a Tattach.
const MaxAttachLen = 255

// QidLen is the wire size of a Qid: type[1] version[4] path[8].
const QidLen = 13

// minStatLen is the size of a Stat structure with every string field empty.
// size[2] type[2] dev[4] qid[13] mode[4] atime[4] mtime[4] length[8] then
// four empty strings (2 bytes each).
const minStatLen = 2 + 2 + 4 + QidLen + 4 + 4 + 4 + 8 + 2 + 2 + 2 + 2

// maxStatLen bounds a Stat so that a corrupt size field can't make a
// decoder allocate unreasonably.
const maxStatLen = minStatLen + MaxFilenameLen + 3*MaxUidLen

// writeHeaderOverhead is IOHDRSZ, the historical 9P2000 constant
// subtracted from msize to get a safe per-message data size: effective
// iounit = min(iounit, msize-24). It is one byte larger than the literal
// sum of a Twrite header's fields (size[4]+type[1]+tag[2]+fid[4]+
// offset[8]+count[4] = 23); the extra byte of slack is long-standing
// protocol convention, not a bug.
const writeHeaderOverhead = 24

// headerLen is the size of the common size[4] type[1] tag[2] prefix every
// message shares.
const headerLen = 4 + 1 + 2
