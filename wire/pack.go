package wire

import "encoding/binary"

// Shorthand for parsing numbers off the wire, little-endian throughout
// (spec §3).
var (
	guint16 = binary.LittleEndian.Uint16
	guint32 = binary.LittleEndian.Uint32
	guint64 = binary.LittleEndian.Uint64
)

// bit-packing helpers. Each appends its argument to b and returns the
// extended slice; callers are not expected to pre-size b, since Encode
// grows the buffer as it goes.

func putUint8(b []byte, v uint8) []byte {
	return append(b, v)
}

func putUint16(b []byte, v uint16) []byte {
	var buf [2]byte
	binary.LittleEndian.PutUint16(buf[:], v)
	return append(b, buf[:]...)
}

func putUint32(b []byte, v uint32) []byte {
	var buf [4]byte
	binary.LittleEndian.PutUint32(buf[:], v)
	return append(b, buf[:]...)
}

func putUint64(b []byte, v uint64) []byte {
	var buf [8]byte
	binary.LittleEndian.PutUint64(buf[:], v)
	return append(b, buf[:]...)
}

func putString(b []byte, s string) []byte {
	b = putUint16(b, uint16(len(s)))
	return append(b, s...)
}

// getString reads a length-prefixed string starting at the front of b,
// and returns the string along with whatever of b follows it.
func getString(b []byte) (s string, rest []byte, err error) {
	if len(b) < 2 {
		return "", nil, errOverSize
	}
	n := int(guint16(b[:2]))
	b = b[2:]
	if n > len(b) {
		return "", nil, errOverSize
	}
	return string(b[:n]), b[n:], nil
}
