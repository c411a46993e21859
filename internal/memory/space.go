package memory

import (
	"context"
	"errors"
	"fmt"
	"sync"
)

// ErrTornDown is returned when a space is used after Teardown.
var ErrTornDown = errors.New("address space torn down")

// Space is a contiguous virtual memory region owned by one process.
// Frames are faulted in lazily the first time a page is touched.
type Space struct {
	mu     sync.Mutex
	base   uint64
	size   uint64
	frames map[uint64]*Frame // page-aligned address -> frame
	dead   bool
}

// NewSpace creates a space covering [base, base+size). The base must be
// page aligned; size is rounded up to page granularity.
func NewSpace(base, size uint64) (*Space, error) {
	if base&^PageMask != 0 {
		return nil, fmt.Errorf("space base %#x not page aligned", base)
	}
	if size == 0 {
		return nil, errors.New("zero-size space")
	}
	size = (size + PageSize - 1) & PageMask
	return &Space{
		base:   base,
		size:   size,
		frames: make(map[uint64]*Frame),
	}, nil
}

// Base returns the first mapped address.
func (s *Space) Base() uint64 { return s.base }

// Size returns the mapped length in bytes.
func (s *Space) Size() uint64 { return s.size }

// Pages resolves up to n frames backing the pages starting at the page
// containing addr, faulting them in as needed, and takes a reference on
// each resolved frame. Fewer than n frames are returned when the range
// runs past the end of the space; the caller decides whether a short
// resolution is acceptable.
//
// Fault-in may block, so the call carries a context and must not be
// made from a path that cannot tolerate blocking.
func (s *Space) Pages(ctx context.Context, addr uint64, n int, writable bool) ([]*Frame, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	_ = writable // all simulated mappings are read-write

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.dead {
		return nil, ErrTornDown
	}

	frames := make([]*Frame, 0, n)
	page := addr & PageMask
	for i := 0; i < n; i++ {
		if page < s.base || page >= s.base+s.size {
			break
		}
		f, ok := s.frames[page]
		if !ok {
			f = newFrame()
			s.frames[page] = f
		}
		f.Get()
		frames = append(frames, f)
		page += PageSize
	}
	return frames, nil
}

// ReadAt copies bytes out of the space starting at addr. Used by the
// receiving side to consume a delivered message from its own buffer.
// Pages never written read as zero.
func (s *Space) ReadAt(addr uint64, p []byte) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.dead {
		return 0, ErrTornDown
	}
	if addr < s.base || addr+uint64(len(p)) > s.base+s.size {
		return 0, fmt.Errorf("read [%#x,%#x) outside space [%#x,%#x)",
			addr, addr+uint64(len(p)), s.base, s.base+s.size)
	}

	read := 0
	for read < len(p) {
		page := (addr + uint64(read)) & PageMask
		off := (addr + uint64(read)) - page
		chunk := int(PageSize - off)
		if rest := len(p) - read; chunk > rest {
			chunk = rest
		}
		if f, ok := s.frames[page]; ok {
			copy(p[read:read+chunk], f.data[off:off+uint64(chunk)])
		} else {
			for i := read; i < read+chunk; i++ {
				p[i] = 0
			}
		}
		read += chunk
	}
	return read, nil
}

// Teardown drops the space. Frames still pinned by an in-flight
// transfer stay alive until the pin's own reference is put back;
// everything else is released immediately.
func (s *Space) Teardown() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.dead {
		return
	}
	s.dead = true
	for page, f := range s.frames {
		f.Put()
		delete(s.frames, page)
	}
}

// Process pairs a pid with its address space and carries the liveness
// signal the transport layer checks before pinning.
type Process struct {
	pid uint32

	mu    sync.Mutex
	space *Space
}

// NewProcess creates a process owning the given space.
func NewProcess(pid uint32, space *Space) *Process {
	return &Process{pid: pid, space: space}
}

// PID returns the process identifier.
func (p *Process) PID() uint32 { return p.pid }

// Mem returns the process's address space, or nil once the process has
// exited. Callers must treat nil as "receiver disconnected".
func (p *Process) Mem() *Space {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.space
}

// Exit tears down the process's space and detaches it.
func (p *Process) Exit() {
	p.mu.Lock()
	space := p.space
	p.space = nil
	p.mu.Unlock()
	if space != nil {
		space.Teardown()
	}
}
