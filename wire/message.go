package wire

import "fmt"

// MsgType identifies the variant of a 9P2000 message. T-types are even,
// R-types are odd, paired as Tx = 2k, Rx = 2k+1 (spec §3).
type MsgType uint8

const (
	MsgTversion MsgType = 100
	MsgRversion MsgType = 101
	MsgTauth    MsgType = 102
	MsgRauth    MsgType = 103
	MsgTattach  MsgType = 104
	MsgRattach  MsgType = 105
	MsgRerror   MsgType = 107
	MsgTflush   MsgType = 108
	MsgRflush   MsgType = 109
	MsgTwalk    MsgType = 110
	MsgRwalk    MsgType = 111
	MsgTopen    MsgType = 112
	MsgRopen    MsgType = 113
	MsgTcreate  MsgType = 114
	MsgRcreate  MsgType = 115
	MsgTread    MsgType = 116
	MsgRread    MsgType = 117
	MsgTwrite   MsgType = 118
	MsgRwrite   MsgType = 119
	MsgTclunk   MsgType = 120
	MsgRclunk   MsgType = 121
	MsgTremove  MsgType = 122
	MsgRremove  MsgType = 123
	MsgTstat    MsgType = 124
	MsgRstat    MsgType = 125
	MsgTwstat   MsgType = 126
	MsgRwstat   MsgType = 127
)

func (t MsgType) String() string {
	if s, ok := msgTypeNames[t]; ok {
		return s
	}
	return fmt.Sprintf("MsgType(%d)", uint8(t))
}

var msgTypeNames = map[MsgType]string{
	MsgTversion: "Tversion", MsgRversion: "Rversion",
	MsgTauth: "Tauth", MsgRauth: "Rauth",
	MsgTattach: "Tattach", MsgRattach: "Rattach",
	MsgRerror: "Rerror",
	MsgTflush: "Tflush", MsgRflush: "Rflush",
	MsgTwalk: "Twalk", MsgRwalk: "Rwalk",
	MsgTopen: "Topen", MsgRopen: "Ropen",
	MsgTcreate: "Tcreate", MsgRcreate: "Rcreate",
	MsgTread: "Tread", MsgRread: "Rread",
	MsgTwrite: "Twrite", MsgRwrite: "Rwrite",
	MsgTclunk: "Tclunk", MsgRclunk: "Rclunk",
	MsgTremove: "Tremove", MsgRremove: "Rremove",
	MsgTstat: "Tstat", MsgRstat: "Rstat",
	MsgTwstat: "Twstat", MsgRwstat: "Rwstat",
}

// A Message is any of the 9P2000 message variants. Every variant carries
// a Tag; MsgType reports which variant it is, so that a Receiver's
// dispatch is a single type switch (spec §9's "sum type... dispatch
// becomes a match on the type octet").
type Message interface {
	MsgType() MsgType
	GetTag() uint16
}

// Tversion negotiates the protocol version and msize for a connection.
// It must be the first message on a connection, sent with Tag = NoTag.
type Tversion struct {
	Tag     uint16
	Msize   uint32
	Version string
}

func (m Tversion) MsgType() MsgType { return MsgTversion }
func (m Tversion) GetTag() uint16   { return m.Tag }

// Rversion answers a Tversion with the msize and version the server
// has agreed to use.
type Rversion struct {
	Tag     uint16
	Msize   uint32
	Version string
}

func (m Rversion) MsgType() MsgType { return MsgRversion }
func (m Rversion) GetTag() uint16   { return m.Tag }

// Tauth requests an authentication fid. Not used by this client (spec
// §1: the client connects with afid = NOFID) but included so the codec
// can decode every standard message type.
type Tauth struct {
	Tag   uint16
	Afid  uint32
	Uname string
	Aname string
}

func (m Tauth) MsgType() MsgType { return MsgTauth }
func (m Tauth) GetTag() uint16   { return m.Tag }

// Rauth answers a Tauth with the Qid of the auth file.
type Rauth struct {
	Tag  uint16
	Aqid Qid
}

func (m Rauth) MsgType() MsgType { return MsgRauth }
func (m Rauth) GetTag() uint16   { return m.Tag }

// Tattach introduces a user to the file tree served at the other end
// of the connection, binding Fid to its root.
type Tattach struct {
	Tag   uint16
	Fid   uint32
	Afid  uint32
	Uname string
	Aname string
}

func (m Tattach) MsgType() MsgType { return MsgTattach }
func (m Tattach) GetTag() uint16   { return m.Tag }

// Rattach answers a Tattach with the Qid of the tree's root.
type Rattach struct {
	Tag uint16
	Qid Qid
}

func (m Rattach) MsgType() MsgType { return MsgRattach }
func (m Rattach) GetTag() uint16   { return m.Tag }

// Rerror answers any T-message that the server could not satisfy.
type Rerror struct {
	Tag   uint16
	Ename string
}

func (m Rerror) MsgType() MsgType { return MsgRerror }
func (m Rerror) GetTag() uint16   { return m.Tag }
func (m Rerror) Error() string    { return m.Ename }

// Tflush asks the server to give up on the request with tag Oldtag.
type Tflush struct {
	Tag    uint16
	Oldtag uint16
}

func (m Tflush) MsgType() MsgType { return MsgTflush }
func (m Tflush) GetTag() uint16   { return m.Tag }

// Rflush answers a Tflush; it carries no payload.
type Rflush struct {
	Tag uint16
}

func (m Rflush) MsgType() MsgType { return MsgRflush }
func (m Rflush) GetTag() uint16   { return m.Tag }

// Twalk resolves a sequence of path elements starting at Fid, binding
// the result to Newfid if every element resolves.
type Twalk struct {
	Tag    uint16
	Fid    uint32
	Newfid uint32
	Wname  []string
}

func (m Twalk) MsgType() MsgType { return MsgTwalk }
func (m Twalk) GetTag() uint16   { return m.Tag }

// Rwalk answers a Twalk with one Qid per path element successfully
// resolved. len(Wqid) < len(the request's Wname) signals a partial walk.
type Rwalk struct {
	Tag  uint16
	Wqid []Qid
}

func (m Rwalk) MsgType() MsgType { return MsgRwalk }
func (m Rwalk) GetTag() uint16   { return m.Tag }

// Topen prepares Fid for I/O in the given Mode (spec §3's open mode
// encoding).
type Topen struct {
	Tag  uint16
	Fid  uint32
	Mode uint8
}

func (m Topen) MsgType() MsgType { return MsgTopen }
func (m Topen) GetTag() uint16   { return m.Tag }

// Ropen answers a Topen with the file's Qid and the iounit to chunk
// reads and writes by.
type Ropen struct {
	Tag    uint16
	Qid    Qid
	Iounit uint32
}

func (m Ropen) MsgType() MsgType { return MsgRopen }
func (m Ropen) GetTag() uint16   { return m.Tag }

// Tcreate creates a new file named Name inside the directory bound to
// Fid, and on success rebinds Fid to the new file, opened in Mode.
type Tcreate struct {
	Tag  uint16
	Fid  uint32
	Name string
	Perm uint32
	Mode uint8
}

func (m Tcreate) MsgType() MsgType { return MsgTcreate }
func (m Tcreate) GetTag() uint16   { return m.Tag }

// Rcreate answers a Tcreate the same way Ropen answers a Topen.
type Rcreate struct {
	Tag    uint16
	Qid    Qid
	Iounit uint32
}

func (m Rcreate) MsgType() MsgType { return MsgRcreate }
func (m Rcreate) GetTag() uint16   { return m.Tag }

// Tread requests up to Count bytes from Fid starting at Offset.
type Tread struct {
	Tag    uint16
	Fid    uint32
	Offset uint64
	Count  uint32
}

func (m Tread) MsgType() MsgType { return MsgTread }
func (m Tread) GetTag() uint16   { return m.Tag }

// Rread answers a Tread with the bytes actually read; a zero-length
// Data means EOF.
type Rread struct {
	Tag  uint16
	Data []byte
}

func (m Rread) MsgType() MsgType { return MsgRread }
func (m Rread) GetTag() uint16   { return m.Tag }

// Twrite writes Data to Fid starting at Offset.
type Twrite struct {
	Tag    uint16
	Fid    uint32
	Offset uint64
	Data   []byte
}

func (m Twrite) MsgType() MsgType { return MsgTwrite }
func (m Twrite) GetTag() uint16   { return m.Tag }

// Rwrite answers a Twrite with the number of bytes actually written.
type Rwrite struct {
	Tag   uint16
	Count uint32
}

func (m Rwrite) MsgType() MsgType { return MsgRwrite }
func (m Rwrite) GetTag() uint16   { return m.Tag }

// Tclunk retires Fid. The server forgets it whether or not the request
// succeeds (spec §4.6).
type Tclunk struct {
	Tag uint16
	Fid uint32
}

func (m Tclunk) MsgType() MsgType { return MsgTclunk }
func (m Tclunk) GetTag() uint16   { return m.Tag }

// Rclunk answers a Tclunk; it carries no payload.
type Rclunk struct {
	Tag uint16
}

func (m Rclunk) MsgType() MsgType { return MsgRclunk }
func (m Rclunk) GetTag() uint16   { return m.Tag }

// Tremove clunks Fid and asks the server to delete the file it names.
type Tremove struct {
	Tag uint16
	Fid uint32
}

func (m Tremove) MsgType() MsgType { return MsgTremove }
func (m Tremove) GetTag() uint16   { return m.Tag }

// Rremove answers a Tremove; it carries no payload.
type Rremove struct {
	Tag uint16
}

func (m Rremove) MsgType() MsgType { return MsgRremove }
func (m Rremove) GetTag() uint16   { return m.Tag }

// Tstat requests the Stat record for Fid.
type Tstat struct {
	Tag uint16
	Fid uint32
}

func (m Tstat) MsgType() MsgType { return MsgTstat }
func (m Tstat) GetTag() uint16   { return m.Tag }

// Rstat answers a Tstat with the file's Stat record.
type Rstat struct {
	Tag  uint16
	Stat Stat
}

func (m Rstat) MsgType() MsgType { return MsgRstat }
func (m Rstat) GetTag() uint16   { return m.Tag }

// Twstat requests a change to Fid's Stat record. Not exercised by the
// client surface in this package but decodable for codec completeness.
type Twstat struct {
	Tag  uint16
	Fid  uint32
	Stat Stat
}

func (m Twstat) MsgType() MsgType { return MsgTwstat }
func (m Twstat) GetTag() uint16   { return m.Tag }

// Rwstat answers a Twstat; it carries no payload.
type Rwstat struct {
	Tag uint16
}

func (m Rwstat) MsgType() MsgType { return MsgRwstat }
func (m Rwstat) GetTag() uint16   { return m.Tag }
