// Package primary is the capacity-bounded byte store behind read, write and
// seek.
//
// The store keeps a single buffer of Capacity bytes and a logical length.
// Only [0, length) is readable. Writes may extend length but never skip past
// it, so uninitialized bytes are never exposed. Store methods take no locks;
// callers that share a Store across goroutines must serialize access.
package primary

import (
	"github.com/danmuck/onebyte/internal/fault"
	"github.com/danmuck/onebyte/internal/kmem"
	"github.com/danmuck/onebyte/internal/logs"
	"github.com/danmuck/onebyte/internal/uaccess"
)

const (
	// Capacity is the fixed size of the primary buffer: 4 MiB.
	Capacity = 4 << 20

	initialByte = 'X'
)

// Anchor selects the base a seek delta applies to. Values match
// io.SeekStart, io.SeekCurrent and io.SeekEnd.
type Anchor int

const (
	FromStart Anchor = iota
	FromCurrent
	FromEnd
)

func (a Anchor) String() string {
	switch a {
	case FromStart:
		return "start"
	case FromCurrent:
		return "current"
	case FromEnd:
		return "end"
	default:
		return "invalid"
	}
}

type Store struct {
	mem      *kmem.Pool
	buf      []byte
	capacity int64
	length   int64
}

// New allocates the buffer from mem and seeds it with a single 'X'.
func New(mem *kmem.Pool) (*Store, error) {
	buf, err := mem.Alloc(Capacity)
	if err != nil {
		return nil, fault.Wrap("primary.New", fault.KindOutOfMemory, err)
	}
	s := &Store{mem: mem, buf: buf, capacity: Capacity}
	s.Reset()
	return s, nil
}

// Reset restores the initial content: length 1, buffer[0] = 'X'.
func (s *Store) Reset() {
	if s.buf == nil {
		return
	}
	s.buf[0] = initialByte
	s.length = 1
}

// Release returns the buffer to the pool. The store is empty and full
// afterwards: reads hit end of data and writes fail with OutOfSpace.
func (s *Store) Release() {
	if s.buf == nil {
		return
	}
	s.mem.Free(s.buf)
	s.buf = nil
	s.capacity = 0
	s.length = 0
}

func (s *Store) Len() int64 { return s.length }
func (s *Store) Cap() int64 { return s.capacity }

// View returns the valid prefix without copying. It is invalidated by the
// next write.
func (s *Store) View() []byte {
	return s.buf[:s.length]
}

// Read copies up to count bytes starting at off into dst. A read at or past
// the logical length returns 0 with no error.
func (s *Store) Read(off int64, count int, dst uaccess.Region) (int, error) {
	if off < 0 || count < 0 {
		return 0, fault.New("read", fault.KindInvalidArgument, "offset=%d count=%d", off, count)
	}
	if off >= s.length {
		return 0, nil
	}
	n := s.length - off
	if int64(count) < n {
		n = int64(count)
	}
	if err := dst.CopyOut(s.buf[off : off+n]); err != nil {
		return 0, fault.Wrap("read", fault.KindAccessFault, err)
	}
	logs.Tracef("primary.Read off=%d n=%d len=%d", off, n, s.length)
	return int(n), nil
}

// Write copies up to count bytes from src into the buffer at off and extends
// the logical length to cover them.
func (s *Store) Write(off int64, count int, src uaccess.Region) (int, error) {
	if off < 0 || count < 0 {
		return 0, fault.New("write", fault.KindInvalidArgument, "offset=%d count=%d", off, count)
	}
	if off >= s.capacity {
		return 0, fault.New("write", fault.KindOutOfSpace, "offset=%d capacity=%d", off, s.capacity)
	}
	if off > s.length {
		return 0, fault.New("write", fault.KindAccessFault, "offset=%d past end of data len=%d", off, s.length)
	}
	n := s.capacity - off
	if int64(count) < n {
		n = int64(count)
	}
	if err := src.CopyIn(s.buf[off : off+n]); err != nil {
		return 0, fault.Wrap("write", fault.KindAccessFault, err)
	}
	if end := off + n; end > s.length {
		s.length = end
	}
	logs.Tracef("primary.Write off=%d n=%d len=%d", off, n, s.length)
	return int(n), nil
}

// Seek resolves a new offset. FromEnd is anchored at the last valid byte
// (length-1), and the result must lie in [0, length): seeking to length
// itself is rejected.
func (s *Store) Seek(cur, delta int64, anchor Anchor) (int64, error) {
	var next int64
	switch anchor {
	case FromStart:
		next = delta
	case FromCurrent:
		next = cur + delta
	case FromEnd:
		next = s.length - 1 + delta
	default:
		return 0, fault.New("seek", fault.KindInvalidArgument, "anchor=%d", int(anchor))
	}
	if next < 0 || next >= s.length {
		return 0, fault.New("seek", fault.KindInvalidArgument, "offset=%d outside [0,%d)", next, s.length)
	}
	return next, nil
}
