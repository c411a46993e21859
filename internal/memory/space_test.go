package memory

import (
	"bytes"
	"context"
	"testing"
)

func TestNewSpace_Validation(t *testing.T) {
	if _, err := NewSpace(0x1001, PageSize); err == nil {
		t.Error("expected error for unaligned base")
	}
	if _, err := NewSpace(0x1000, 0); err == nil {
		t.Error("expected error for zero size")
	}

	s, err := NewSpace(0x1000, 100)
	if err != nil {
		t.Fatalf("NewSpace: %v", err)
	}
	if s.Size() != PageSize {
		t.Errorf("Size = %d, want %d (rounded up)", s.Size(), PageSize)
	}
}

func TestPages_FaultInAndRefs(t *testing.T) {
	s, err := NewSpace(0x10000, 3*PageSize)
	if err != nil {
		t.Fatalf("NewSpace: %v", err)
	}

	frames, err := s.Pages(context.Background(), 0x10000, 2, true)
	if err != nil {
		t.Fatalf("Pages: %v", err)
	}
	if len(frames) != 2 {
		t.Fatalf("resolved %d frames, want 2", len(frames))
	}
	for i, f := range frames {
		// one ref held by the space, one by this resolution
		if f.Refs() != 2 {
			t.Errorf("frame %d refs = %d, want 2", i, f.Refs())
		}
	}

	// Resolving again returns the same frames, not fresh ones.
	again, err := s.Pages(context.Background(), 0x10000, 2, true)
	if err != nil {
		t.Fatalf("Pages: %v", err)
	}
	if again[0] != frames[0] || again[1] != frames[1] {
		t.Error("re-resolution returned different frames")
	}

	for _, f := range append(frames, again...) {
		f.Put()
	}
}

func TestPages_ShortAtEndOfSpace(t *testing.T) {
	s, err := NewSpace(0x10000, 2*PageSize)
	if err != nil {
		t.Fatalf("NewSpace: %v", err)
	}

	frames, err := s.Pages(context.Background(), 0x10000+PageSize, 4, true)
	if err != nil {
		t.Fatalf("Pages: %v", err)
	}
	if len(frames) != 1 {
		t.Errorf("resolved %d frames, want 1 (range runs past the space)", len(frames))
	}
	for _, f := range frames {
		f.Put()
	}
}

func TestPages_AfterTeardown(t *testing.T) {
	s, err := NewSpace(0x10000, PageSize)
	if err != nil {
		t.Fatalf("NewSpace: %v", err)
	}
	s.Teardown()

	if _, err := s.Pages(context.Background(), 0x10000, 1, true); err != ErrTornDown {
		t.Errorf("Pages after teardown = %v, want ErrTornDown", err)
	}
}

func TestTeardown_PinnedFramesSurvive(t *testing.T) {
	s, err := NewSpace(0x10000, PageSize)
	if err != nil {
		t.Fatalf("NewSpace: %v", err)
	}

	frames, err := s.Pages(context.Background(), 0x10000, 1, true)
	if err != nil {
		t.Fatalf("Pages: %v", err)
	}
	copy(frames[0].Map(), []byte("still here"))

	s.Teardown()
	if frames[0].Refs() != 1 {
		t.Errorf("pinned frame refs after teardown = %d, want 1", frames[0].Refs())
	}
	if !bytes.Equal(frames[0].Map()[:10], []byte("still here")) {
		t.Error("pinned frame content lost on teardown")
	}
	frames[0].Put()
}

func TestReadAt(t *testing.T) {
	s, err := NewSpace(0x10000, 2*PageSize)
	if err != nil {
		t.Fatalf("NewSpace: %v", err)
	}

	frames, err := s.Pages(context.Background(), 0x10000+PageSize-4, 2, true)
	if err != nil {
		t.Fatalf("Pages: %v", err)
	}
	// straddle the page boundary
	copy(frames[0].Map()[PageSize-4:], []byte("abcd"))
	copy(frames[1].Map()[:4], []byte("efgh"))
	for _, f := range frames {
		f.Put()
	}

	got := make([]byte, 8)
	if _, err := s.ReadAt(0x10000+PageSize-4, got); err != nil {
		t.Fatalf("ReadAt: %v", err)
	}
	if !bytes.Equal(got, []byte("abcdefgh")) {
		t.Errorf("ReadAt = %q, want %q", got, "abcdefgh")
	}

	// untouched pages read as zero
	zero := make([]byte, 16)
	if _, err := s.ReadAt(0x10000+16, zero); err != nil {
		t.Fatalf("ReadAt: %v", err)
	}
	for i, b := range zero[8:] {
		if b != 0 {
			t.Fatalf("byte %d = %#x, want 0", i+8, b)
		}
	}

	if _, err := s.ReadAt(0x10000+2*PageSize-2, make([]byte, 4)); err == nil {
		t.Error("expected out-of-range read to fail")
	}
}

func TestProcess_ExitDetachesSpace(t *testing.T) {
	s, err := NewSpace(0x10000, PageSize)
	if err != nil {
		t.Fatalf("NewSpace: %v", err)
	}
	p := NewProcess(42, s)

	if p.Mem() != s {
		t.Fatal("Mem should return the live space")
	}
	p.Exit()
	if p.Mem() != nil {
		t.Error("Mem after exit should be nil")
	}
	// second exit is a no-op
	p.Exit()
}
