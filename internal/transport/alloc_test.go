package transport

import (
	"math"
	"testing"
)

func TestAlloc_AlignmentScenario(t *testing.T) {
	// Two 100-byte allocations in a 4096-byte buffer land at 0 and 104.
	b := NewBuffer(0, 4096)

	first, err := b.Alloc(100)
	if err != nil {
		t.Fatalf("Alloc: %v", err)
	}
	if first.Offset != 0 {
		t.Errorf("first offset = %d, want 0", first.Offset)
	}

	second, err := b.Alloc(100)
	if err != nil {
		t.Fatalf("Alloc: %v", err)
	}
	if second.Offset != 104 {
		t.Errorf("second offset = %d, want 104", second.Offset)
	}

	b.Release(first)
	if b.Outstanding() != 1 {
		t.Errorf("outstanding = %d, want 1", b.Outstanding())
	}
	if b.Cursor() != 204 {
		t.Errorf("cursor = %d, want 204 (no reclaim before last release)", b.Cursor())
	}

	b.Release(second)
	if b.Outstanding() != 0 {
		t.Errorf("outstanding = %d, want 0", b.Outstanding())
	}
	if b.Cursor() != 0 {
		t.Errorf("cursor = %d, want 0 after last release", b.Cursor())
	}
}

func TestAlloc_OutOfSpaceLeavesStateUnchanged(t *testing.T) {
	b := NewBuffer(0, 64)

	s, err := b.Alloc(40)
	if err != nil {
		t.Fatalf("Alloc: %v", err)
	}

	if _, err := b.Alloc(32); err != ErrOutOfSpace {
		t.Fatalf("Alloc = %v, want ErrOutOfSpace", err)
	}
	if b.Cursor() != 40 || b.Outstanding() != 1 {
		t.Errorf("state changed on failed alloc: cursor=%d outstanding=%d",
			b.Cursor(), b.Outstanding())
	}

	// the remaining space is still usable
	if _, err := b.Alloc(24); err != nil {
		t.Errorf("Alloc of fitting slot failed: %v", err)
	}
	_ = s
}

func TestAlloc_ExactFit(t *testing.T) {
	b := NewBuffer(0, 64)
	s, err := b.Alloc(64)
	if err != nil {
		t.Fatalf("Alloc of full buffer: %v", err)
	}
	if s.Offset != 0 || s.Length != 64 {
		t.Errorf("slot = %+v, want [0,64)", s)
	}
	if _, err := b.Alloc(1); err != ErrOutOfSpace {
		t.Errorf("Alloc = %v, want ErrOutOfSpace", err)
	}
}

func TestRelease_EmptySlotIsNoop(t *testing.T) {
	b := NewBuffer(0, 64)
	b.Release(Slot{})
	if b.Outstanding() != 0 {
		t.Errorf("outstanding = %d, want 0", b.Outstanding())
	}
}

func TestRelease_DoubleReleasePanics(t *testing.T) {
	b := NewBuffer(0, 64)
	s, err := b.Alloc(8)
	if err != nil {
		t.Fatalf("Alloc: %v", err)
	}
	b.Release(s)

	defer func() {
		if recover() == nil {
			t.Error("expected panic on double release")
		}
	}()
	b.Release(s)
}

func TestAlloc_NoGranularReuse(t *testing.T) {
	// Space from individually released slots is not reclaimed until the
	// final slot goes away. Compatibility behavior, pinned on purpose.
	b := NewBuffer(0, 256)

	slots := make([]Slot, 0, 4)
	for i := 0; i < 4; i++ {
		s, err := b.Alloc(64)
		if err != nil {
			t.Fatalf("Alloc %d: %v", i, err)
		}
		slots = append(slots, s)
	}

	for _, s := range slots[:3] {
		b.Release(s)
	}
	if _, err := b.Alloc(8); err != ErrOutOfSpace {
		t.Fatalf("Alloc = %v, want ErrOutOfSpace while one slot is outstanding", err)
	}

	b.Release(slots[3])
	if _, err := b.Alloc(256); err != nil {
		t.Errorf("Alloc after full reset failed: %v", err)
	}
}

func TestAlloc_HugeLengthDoesNotWrap(t *testing.T) {
	// A length near the top of the uint64 range must not wrap the
	// cursor+length bounds check past zero and hand out a slot.
	b := NewBuffer(0, 4096)

	s, err := b.Alloc(8)
	if err != nil {
		t.Fatalf("Alloc: %v", err)
	}

	for _, length := range []uint64{
		math.MaxUint64,
		math.MaxUint64 - 4,
		math.MaxUint64 - 4096,
	} {
		if _, err := b.Alloc(length); err != ErrOutOfSpace {
			t.Errorf("Alloc(%d) = %v, want ErrOutOfSpace", length, err)
		}
	}
	if b.Cursor() != 8 || b.Outstanding() != 1 {
		t.Errorf("state changed on rejected alloc: cursor=%d outstanding=%d",
			b.Cursor(), b.Outstanding())
	}
	b.Release(s)
}

func TestAlloc_CursorNeverExceedsSize(t *testing.T) {
	b := NewBuffer(0, 4096)
	var live []Slot
	for i := uint64(1); ; i++ {
		s, err := b.Alloc(i * 7)
		if err != nil {
			break
		}
		live = append(live, s)
		if b.Cursor() > b.Size() {
			t.Fatalf("cursor %d exceeds size %d", b.Cursor(), b.Size())
		}
	}
	for _, s := range live {
		b.Release(s)
	}
	if b.Cursor() != 0 {
		t.Errorf("cursor = %d, want 0 once outstanding returned to zero", b.Cursor())
	}
}
