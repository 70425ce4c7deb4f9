package styxclient

import (
	"encoding/binary"
	"net"
	"sync"
	"time"

	"github.com/go9p/styxclient/internal/pool"
	"github.com/go9p/styxclient/wire"
)

// readTimeout bounds a single Transport.Read call so the Receiver can
// notice a local Stop request promptly, per spec §5: "the transport's
// read timeout is short (≈2s) and used only to let the Receiver
// observe local-side close; it is NOT a per-request timeout."
const readTimeout = 2 * time.Second

// maxFrameSize bounds how much a corrupt or hostile size field can
// make the Receiver buffer before giving up. It is independent of the
// negotiated msize, which the Session enforces on writes; a well
// behaved server never sends a frame anywhere near this large.
const maxFrameSize = 1 << 20

type frameTooLargeError struct{}

func (frameTooLargeError) Error() string { return "styxclient: frame size exceeds sanity bound" }

var errOversizeFrame error = &wire.MalformedFrame{Err: frameTooLargeError{}}

// receiver is the background worker of spec §4.3: it owns the
// Transport's read side, reassembles frames, decodes them, and wakes
// exactly the tag waiter each reply belongs to. It runs independent
// of caller activity until the connection ends, one way or another.
type receiver struct {
	tr    Transport
	tags  *pool.Tags
	trace func(sent bool, m wire.Message)

	stop chan struct{}
	done chan struct{}

	once  sync.Once
	mu    sync.Mutex
	cause error
}

func newReceiver(tr Transport, tags *pool.Tags, trace func(bool, wire.Message)) *receiver {
	return &receiver{
		tr:    tr,
		tags:  tags,
		trace: trace,
		stop:  make(chan struct{}),
		done:  make(chan struct{}),
	}
}

// Stop asks the read loop to notice, on its next timeout tick or when
// closing the transport ends the pending read, that the connection is
// being torn down locally, and exit without treating that as a
// transport error.
func (r *receiver) Stop() {
	r.once.Do(func() { close(r.stop) })
}

// Done reports when the read loop has exited.
func (r *receiver) Done() <-chan struct{} { return r.done }

// Cause returns the error that terminated the connection, if any.
// It is nil until the receiver has stopped.
func (r *receiver) Cause() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.cause
}

func (r *receiver) run() {
	defer close(r.done)

	var buf []byte
	chunk := make([]byte, 4096)

	for {
		r.tr.SetReadDeadline(time.Now().Add(readTimeout))
		n, err := r.tr.Read(chunk)
		if n > 0 {
			buf = append(buf, chunk[:n]...)
			if ok := r.drain(&buf); !ok {
				return
			}
		}
		if err == nil {
			continue
		}
		if ne, ok := err.(net.Error); ok && ne.Timeout() {
			select {
			case <-r.stop:
				r.terminate(nil)
				return
			default:
				continue
			}
		}
		select {
		case <-r.stop:
			r.terminate(nil)
		default:
			r.terminate(err)
		}
		return
	}
}

// drain pulls as many complete frames as buf currently holds, decodes
// and dispatches each. It reports false if a frame failed to decode,
// in which case the caller must stop (decode errors are terminal).
func (r *receiver) drain(buf *[]byte) bool {
	b := *buf
	for len(b) >= 4 {
		size := binary.LittleEndian.Uint32(b[:4])
		if size < 4 || size > maxFrameSize {
			r.terminate(errOversizeFrame)
			*buf = b
			return false
		}
		if uint32(len(b)) < size {
			break
		}
		frame := make([]byte, size)
		copy(frame, b[:size])
		b = b[size:]

		m, err := wire.Decode(frame)
		if err != nil {
			r.terminate(err)
			*buf = b
			return false
		}
		if r.trace != nil {
			r.trace(false, m)
		}
		r.tags.Post(m.GetTag(), pool.Reply{Msg: m})
	}
	*buf = b
	return true
}

func (r *receiver) terminate(cause error) {
	r.mu.Lock()
	if r.cause == nil {
		r.cause = cause
	}
	r.mu.Unlock()
	r.tags.Broadcast(pool.Reply{Err: &ConnectionClosed{Cause: cause}})
}
