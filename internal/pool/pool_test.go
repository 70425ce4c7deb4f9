package pool

import "testing"

func TestFidPoolAscending(t *testing.T) {
	var fids FidPool

	for i := 0; i < 100; i++ {
		n, ok := fids.Get()
		if !ok {
			t.Fatalf("pool marked full at %d", i)
		}
		if uint32(i) != n {
			t.Fatalf("Get returned %d, want %d", n, i)
		}
	}
	for i := 0; i < 100; i++ {
		fids.Free(uint32(i))
	}
	if n, ok := fids.Get(); !ok || n != 0 {
		t.Fatalf("after freeing everything, Get returned (%d, %v), want (0, true)", n, ok)
	}
}

func TestFidPoolLIFOFree(t *testing.T) {
	var fids FidPool
	acquired := make([]uint32, 0, 100)

	for i := 0; i < 100; i++ {
		n, ok := fids.Get()
		if !ok {
			t.Fatalf("pool marked full at %d", i)
		}
		acquired = append(acquired, n)
	}
	for i := len(acquired) - 1; i >= 0; i-- {
		fids.Free(acquired[i])
	}
	if n, ok := fids.Get(); !ok || n != 0 {
		t.Fatalf("after freeing everything LIFO, Get returned (%d, %v), want (0, true)", n, ok)
	}
}

func TestFidPoolReserve(t *testing.T) {
	var fids FidPool
	fids.Reserve(0)

	n, ok := fids.Get()
	if !ok || n != 1 {
		t.Fatalf("Get after Reserve(0) returned (%d, %v), want (1, true)", n, ok)
	}
}

func TestTagsGetFreeRoundtrip(t *testing.T) {
	var tags Tags

	tag, wait, ok := tags.Get()
	if !ok {
		t.Fatal("pool marked full on first Get")
	}

	want := Reply{Msg: nil, Err: nil}
	tags.Post(tag, want)

	select {
	case got := <-wait:
		if got != want {
			t.Fatalf("got %#v, want %#v", got, want)
		}
	default:
		t.Fatal("Post did not deliver to the waiting channel")
	}

	tags.Free(tag)
	if tag2, _, ok := tags.Get(); !ok || tag2 != tag {
		t.Fatalf("after Free, Get returned (%d, %v), want (%d, true)", tag2, ok, tag)
	}
}

func TestTagsBroadcastUnblocksWaiters(t *testing.T) {
	var tags Tags
	const n = 8
	waits := make([]<-chan Reply, n)

	for i := 0; i < n; i++ {
		_, wait, ok := tags.Get()
		if !ok {
			t.Fatalf("pool marked full at %d", i)
		}
		waits[i] = wait
	}

	tags.Broadcast(Reply{Err: errClosedForTest})
	for i, wait := range waits {
		select {
		case r := <-wait:
			if r.Err != errClosedForTest {
				t.Fatalf("waiter %d got %v, want %v", i, r.Err, errClosedForTest)
			}
		default:
			t.Fatalf("waiter %d was not unblocked by Broadcast", i)
		}
	}
}

func TestTagsCancelDiscardsLateReply(t *testing.T) {
	var tags Tags

	tag, wait, ok := tags.Get()
	if !ok {
		t.Fatal("pool marked full on first Get")
	}

	tags.Cancel(tag)
	select {
	case r := <-wait:
		t.Fatalf("Cancel delivered %#v to the waiter, want nothing", r)
	default:
	}

	// A reply that arrives after Cancel must be dropped, not delivered
	// to whatever next reuses tag's slot.
	tags.Post(tag, Reply{Err: errClosedForTest})
	select {
	case r := <-wait:
		t.Fatalf("Post after Cancel delivered %#v, want it discarded", r)
	default:
	}

	// Cancel alone does not return tag to the free pool; Free, called
	// separately once the flush round trip finishes, does.
	tags.Free(tag)
	if tag2, _, ok := tags.Get(); !ok || tag2 != tag {
		t.Fatalf("after Free following Cancel, Get returned (%d, %v), want (%d, true)", tag2, ok, tag)
	}
}

var errClosedForTest = errTestSentinel("connection closed")

type errTestSentinel string

func (e errTestSentinel) Error() string { return string(e) }
