package nettest

import (
	"encoding/binary"
	"io"
	"net"

	"github.com/go9p/styxclient/wire"
)

// Handler answers one request in a FakeServer's loop. A nil return
// value means "don't reply" — useful for exercising Tflush or a
// connection that goes silent mid-request.
type Handler func(wire.Message) wire.Message

// FakeServer decodes one frame at a time off Conn, hands it to
// Handle, and writes back whatever Handle returns. It exists so
// Session and Handle tests can run end-to-end against something that
// speaks real wire frames without a real 9P server.
type FakeServer struct {
	Conn   net.Conn
	Handle Handler
}

// Serve runs until Conn is closed or a frame fails to decode, and
// returns the error that ended the loop.
func (s *FakeServer) Serve() error {
	for {
		frame, err := readFrame(s.Conn)
		if err != nil {
			return err
		}
		m, err := wire.Decode(frame)
		if err != nil {
			return err
		}
		reply := s.Handle(m)
		if reply == nil {
			continue
		}
		b, err := wire.Encode(reply)
		if err != nil {
			return err
		}
		if _, err := s.Conn.Write(b); err != nil {
			return err
		}
	}
}

func readFrame(r io.Reader) ([]byte, error) {
	var sizeBuf [4]byte
	if _, err := io.ReadFull(r, sizeBuf[:]); err != nil {
		return nil, err
	}
	size := binary.LittleEndian.Uint32(sizeBuf[:])
	if size < 4 {
		return nil, io.ErrUnexpectedEOF
	}
	frame := make([]byte, size)
	copy(frame, sizeBuf[:])
	if _, err := io.ReadFull(r, frame[4:]); err != nil {
		return nil, err
	}
	return frame, nil
}
