package transport

import (
	"context"
	"errors"
	"fmt"

	"github.com/membus/membus/internal/memory"
)

// DefaultMaxPinnedPages bounds the pin table of a single transfer when
// the caller does not set its own limit.
const DefaultMaxPinnedPages = 16384

// PinnedPages holds references to the physical frames backing a target
// address range for the duration of one transfer. It exists strictly
// between OpenPinned and Close; every open that gets past pin-table
// allocation is paired with exactly one Close, on success and failure
// alike.
type PinnedPages struct {
	frames []*memory.Frame
	cur    int    // page currently written
	pos    uint64 // write position inside the current page
}

// OpenPinned pins the pages spanning [addr, addr+length) in proc's
// address space, writable, all or nothing. maxPages caps the pin table
// (<= 0 means DefaultMaxPinnedPages).
//
// Pinning faults pages in and may block; it must not be called from a
// path that cannot sleep on the context.
func OpenPinned(ctx context.Context, proc *memory.Process, addr, length uint64, maxPages int) (*PinnedPages, error) {
	if length == 0 {
		return nil, fmt.Errorf("transport: zero-length pin at %#x", addr)
	}
	if addr+length < addr {
		return nil, fmt.Errorf("transport: pin range [%#x,+%d) wraps the address space", addr, length)
	}
	if maxPages <= 0 {
		maxPages = DefaultMaxPinnedPages
	}

	// Number of pages touched by the range.
	n := int((addr+length-1)/memory.PageSize - addr/memory.PageSize + 1)
	if n > maxPages {
		return nil, fmt.Errorf("%w: %d pages over limit %d", ErrOutOfMemory, n, maxPages)
	}

	mm := proc.Mem()
	if mm == nil {
		return nil, ErrTargetGone
	}

	frames, err := mm.Pages(ctx, addr&memory.PageMask, n, true)
	if err != nil {
		if errors.Is(err, memory.ErrTornDown) {
			return nil, ErrTargetGone
		}
		return nil, err
	}

	pp := &PinnedPages{
		frames: frames,
		pos:    addr % memory.PageSize,
	}
	if len(frames) < n {
		// Raced with the receiver unmapping part of the range.
		pp.Close()
		return nil, ErrShortPin
	}
	return pp, nil
}

// Close unpins every page and drops the pin table. Call exactly once.
func (pp *PinnedPages) Close() {
	for _, f := range pp.frames {
		f.Put()
	}
	pp.frames = nil
}
