package memory

import "sync/atomic"

// PageSize is the fixed page granularity of every Space.
const PageSize = 4096

// PageMask strips the intra-page offset from an address.
const PageMask = ^uint64(PageSize - 1)

// Frame is one page of backing storage. Frames are shared between the
// owning Space and any transfer currently pinning them; the reference
// count decides when the backing bytes may be dropped.
type Frame struct {
	refs   atomic.Int32
	poison atomic.Bool
	data   [PageSize]byte
}

func newFrame() *Frame {
	f := &Frame{}
	f.refs.Store(1) // owned by the space until teardown
	return f
}

// Get takes an additional reference on the frame.
func (f *Frame) Get() {
	f.refs.Add(1)
}

// Put drops one reference. Dropping below zero is a bookkeeping bug.
func (f *Frame) Put() {
	if f.refs.Add(-1) < 0 {
		panic("memory: frame reference count below zero")
	}
}

// Refs reports the current reference count.
func (f *Frame) Refs() int32 {
	return f.refs.Load()
}

// Map exposes the frame's bytes as an addressable window. The caller
// must not retain the slice past the surrounding map/unmap pair.
func (f *Frame) Map() []byte {
	return f.data[:]
}

// Poison marks the frame so the next windowed copy into it faults,
// standing in for a destination page that cannot be written.
func (f *Frame) Poison() {
	f.poison.Store(true)
}

// Poisoned reports whether writes into the frame fault.
func (f *Frame) Poisoned() bool {
	return f.poison.Load()
}
