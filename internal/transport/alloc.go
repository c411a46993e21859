package transport

// slotAlign is the alignment of every allocated slot offset.
const slotAlign = 8

// Slot is a reserved byte range [Offset, Offset+Length) inside a
// receiver buffer. The zero Slot is the empty slot; releasing it is a
// no-op.
type Slot struct {
	Offset uint64
	Length uint64
}

// Empty reports whether the slot reserves no space.
func (s Slot) Empty() bool { return s.Length == 0 }

// Buffer tracks free space in the memory region a receiver registered
// for inbound messages. Allocation is a monotonic bump of the cursor;
// space is reclaimed all at once when the last outstanding slot is
// released.
//
// Buffer has no internal lock. All calls for one buffer must be
// serialized by the caller under a single external mutex.
type Buffer struct {
	base  uint64 // start address in the receiver's space
	size  uint64
	pos   uint64 // bump cursor, always 8-byte aligned on entry
	users uint32 // outstanding slots
}

// NewBuffer describes a registered receiver region of the given size
// starting at base in the receiver's address space.
func NewBuffer(base, size uint64) *Buffer {
	return &Buffer{base: base, size: size}
}

// Base returns the region's start address in the receiver's space.
func (b *Buffer) Base() uint64 { return b.base }

// Size returns the region's total size in bytes.
func (b *Buffer) Size() uint64 { return b.size }

// Cursor returns the current bump position.
func (b *Buffer) Cursor() uint64 { return b.pos }

// Outstanding returns the number of unreleased slots.
func (b *Buffer) Outstanding() uint32 { return b.users }

// Alloc reserves length bytes for one inbound message. The returned
// slot offset is 8-byte aligned. Fails with ErrOutOfSpace, leaving the
// buffer untouched, when the slot does not fit.
func (b *Buffer) Alloc(length uint64) (Slot, error) {
	pos := (b.pos + slotAlign - 1) &^ (slotAlign - 1)
	// length > size first, so pos > size-length cannot wrap.
	if length > b.size || pos > b.size-length {
		return Slot{}, ErrOutOfSpace
	}

	b.pos = pos + length
	b.users++
	return Slot{Offset: pos, Length: length}, nil
}

// Release returns a slot after the receiver has consumed it. Releasing
// the empty slot is a no-op. Releasing more slots than were allocated
// is a caller bug and panics rather than corrupting the accounting.
//
// Space from individually released slots is not reused; the cursor is
// reset only when the final outstanding slot goes away. This is the
// simplest correct policy, traded against fragmentation under bursty
// partial-release patterns.
func (b *Buffer) Release(s Slot) {
	if s.Empty() {
		return
	}
	if b.users == 0 {
		panic("transport: buffer slot released twice")
	}

	b.users--
	if b.users == 0 {
		b.pos = 0
	}
}
