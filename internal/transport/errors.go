package transport

import "errors"

// Every failure the core can surface. All are recoverable by the
// caller; none is retried internally.
var (
	// ErrOutOfSpace means the slot did not fit in the remaining buffer
	// space. The sender backs off or the receiver is not draining.
	ErrOutOfSpace = errors.New("transport: no space left in receiver buffer")

	// ErrOutOfMemory means pin bookkeeping could not be allocated.
	ErrOutOfMemory = errors.New("transport: pin table allocation failed")

	// ErrTargetGone means the destination process no longer has a live
	// address space. Surfaced to senders as "receiver disconnected".
	ErrTargetGone = errors.New("transport: target address space is gone")

	// ErrShortPin means fewer pages could be pinned than the range
	// requires, usually a race with the receiver unmapping its buffer.
	// Partial pins are never accepted.
	ErrShortPin = errors.New("transport: pinned fewer pages than required")

	// ErrCopyFault means a chunk could not be copied from the source.
	// Bytes written before the fault remain in the destination.
	ErrCopyFault = errors.New("transport: copy faulted")
)
