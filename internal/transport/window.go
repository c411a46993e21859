package transport

import (
	"fmt"
	"io"

	"github.com/membus/membus/internal/memory"
)

// WriteFrom streams length bytes from src into the pinned range, one
// page window at a time. Each iteration maps the current frame, fills
// at most the rest of that page, and unmaps before moving on, so no
// window larger than a page is ever held.
//
// A read that fails or comes up short, or a destination page that
// cannot be written, stops the copy immediately with ErrCopyFault.
// Bytes already placed stay in the destination; nothing
// past the fault is touched and the pin remains open for the caller to
// Close.
func (pp *PinnedPages) WriteFrom(src io.Reader, length uint64) error {
	for length > 0 {
		if pp.cur >= len(pp.frames) {
			return fmt.Errorf("transport: write runs past pinned range by %d bytes", length)
		}

		bytes := memory.PageSize - pp.pos
		if length < bytes {
			bytes = length
		}

		frame := pp.frames[pp.cur]
		if frame.Poisoned() {
			return fmt.Errorf("%w: destination page %d unwritable", ErrCopyFault, pp.cur)
		}

		window := frame.Map()
		_, err := io.ReadFull(src, window[pp.pos:pp.pos+bytes])
		if err != nil {
			return fmt.Errorf("%w: %v", ErrCopyFault, err)
		}

		pp.pos += bytes
		if pp.pos == memory.PageSize {
			pp.pos = 0
			pp.cur++
		}
		length -= bytes
	}
	return nil
}
