package pool

// A FidPool tracks the set of fids a Session currently holds. The zero
// value is an empty pool ready for use.
type FidPool struct {
	counter
}

// Get returns a fid not currently live, or ok=false if all 2^32-1
// fids (every value but NoFid) are in use, corresponding to the
// client's FidsExhausted error.
func (p *FidPool) Get() (fid uint32, ok bool) {
	return p.acquire(FidCeiling)
}

// Free returns fid to the pool. fid must have come from Get (or
// Reserve) on the same FidPool, and must not be freed twice.
func (p *FidPool) Free(fid uint32) {
	p.release(fid)
}

// Reserve removes a specific fid from circulation before any other
// fid has been allocated. The Session uses this once, at attach time,
// to claim fid 0 for the root.
func (p *FidPool) Reserve(fid uint32) {
	for {
		got, ok := p.acquire(FidCeiling)
		if !ok || got == fid {
			return
		}
	}
}
