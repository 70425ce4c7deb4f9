package wire

import "fmt"

// QidType is a bit vector describing what kind of file a Qid refers to.
// It occupies the high 8 bits of a file's mode word.
type QidType uint8

const (
	QTDIR    QidType = 0x80 // directories
	QTAPPEND QidType = 0x40 // append only files
	QTEXCL   QidType = 0x20 // exclusive use files
	QTMOUNT  QidType = 0x10 // mounted channel
	QTAUTH   QidType = 0x08 // authentication file (afid)
	QTTMP    QidType = 0x04 // non-backed-up file
	QTFILE   QidType = 0x00
)

// A Qid is the server's unique identity for a file: two files on the same
// server hierarchy are the same file if and only if their Qids are equal.
type Qid struct {
	Type    QidType
	Version uint32
	Path    uint64
}

func (q Qid) String() string {
	return fmt.Sprintf("(%016x %d %x)", q.Path, q.Version, q.Type)
}

// IsDir reports whether q identifies a directory.
func (q Qid) IsDir() bool { return q.Type&QTDIR != 0 }

func putQid(b []byte, q Qid) []byte {
	b = putUint8(b, uint8(q.Type))
	b = putUint32(b, q.Version)
	b = putUint64(b, q.Path)
	return b
}

func getQid(b []byte) Qid {
	return Qid{
		Type:    QidType(b[0]),
		Version: guint32(b[1:5]),
		Path:    guint64(b[5:13]),
	}
}
