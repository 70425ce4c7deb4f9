package pool

import (
	"sync"

	"github.com/go9p/styxclient/wire"
)

// A Reply is what a Tags waiter eventually receives: either the
// R-message that answered its request, or Err if the wait was cut
// short (the Receiver hit a read error, or the Session shut down)
// before a reply arrived.
type Reply struct {
	Msg wire.Message
	Err error
}

// Tags allocates the 16-bit tags used to multiplex requests over a
// single connection, and gives each live tag a one-shot reply slot:
// exactly one goroutine is ever waiting on a given tag, so posting a
// reply is a single send into that tag's one-slot buffered channel
// rather than a broadcast over a shared condition variable. The zero value is an empty pool ready
// for use.
type Tags struct {
	counter

	mu      sync.Mutex
	waiting map[uint16]chan Reply
}

// Get allocates a tag and its reply slot. ok is false if all 65,535
// tags (every value but NoTag) are already in flight, corresponding
// to the client's TagsExhausted error.
func (t *Tags) Get() (tag uint16, wait <-chan Reply, ok bool) {
	id, ok := t.acquire(TagCeiling)
	if !ok {
		return 0, nil, false
	}
	tag = uint16(id)
	ch := make(chan Reply, 1)

	t.mu.Lock()
	if t.waiting == nil {
		t.waiting = make(map[uint16]chan Reply)
	}
	t.waiting[tag] = ch
	t.mu.Unlock()

	return tag, ch, true
}

// Post delivers r to the goroutine waiting on tag, if any is still
// waiting. It does not free tag; the waiter does that once it has
// consumed the reply, via Free.
func (t *Tags) Post(tag uint16, r Reply) {
	t.mu.Lock()
	ch := t.waiting[tag]
	t.mu.Unlock()
	if ch != nil {
		ch <- r
	}
}

// Cancel withdraws tag's reply slot without blocking and without
// delivering anything to it: used by flush, so a reply that arrives
// for tag afterward finds no slot in Post and is silently discarded
// rather than handed to whatever next reuses tag. Unlike Free, Cancel
// does not return tag to the free pool — the tag is still considered
// in flight on the wire until the matching Tflush/Rflush round trip
// finishes and the caller frees it separately.
func (t *Tags) Cancel(tag uint16) {
	t.mu.Lock()
	delete(t.waiting, tag)
	t.mu.Unlock()
}

// Free releases tag and its reply slot. It must be called exactly
// once per tag returned by Get, after the waiter is done with the
// reply channel.
func (t *Tags) Free(tag uint16) {
	t.mu.Lock()
	delete(t.waiting, tag)
	t.mu.Unlock()
	t.release(uint32(tag))
}

// ReserveTag registers a wait slot for an explicit tag value that did
// not come from Get — used exactly once, for NoTag during the version
// handshake, before any other request could be in flight on the
// connection.
func (t *Tags) ReserveTag(tag uint16) <-chan Reply {
	ch := make(chan Reply, 1)
	t.mu.Lock()
	if t.waiting == nil {
		t.waiting = make(map[uint16]chan Reply)
	}
	t.waiting[tag] = ch
	t.mu.Unlock()
	return ch
}

// ReleaseTag removes the wait slot for a tag registered via
// ReserveTag. There is nothing to return to the counter.
func (t *Tags) ReleaseTag(tag uint16) {
	t.mu.Lock()
	delete(t.waiting, tag)
	t.mu.Unlock()
}

// Outstanding returns the tags currently awaiting a reply, in no
// particular order. Used by disconnect to flush anything still live
// after every fid has been clunked.
func (t *Tags) Outstanding() []uint16 {
	t.mu.Lock()
	defer t.mu.Unlock()
	out := make([]uint16, 0, len(t.waiting))
	for tag := range t.waiting {
		out = append(out, tag)
	}
	return out
}

// Broadcast delivers r to every tag currently awaiting a reply. Used
// when the Receiver's read loop dies: every outstanding send must be
// unblocked with a ConnectionClosed-flavored error rather than hang
// forever.
func (t *Tags) Broadcast(r Reply) {
	t.mu.Lock()
	chans := make([]chan Reply, 0, len(t.waiting))
	for _, ch := range t.waiting {
		chans = append(chans, ch)
	}
	t.mu.Unlock()
	for _, ch := range chans {
		select {
		case ch <- r:
		default:
		}
	}
}
