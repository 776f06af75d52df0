package primary

import (
	"io"

	"github.com/danmuck/onebyte/internal/fault"
	"github.com/danmuck/onebyte/internal/uaccess"
)

// File is one open handle on a Store. It owns the offset cursor; the store
// itself keeps no per-caller state.
type File struct {
	s        *Store
	pos      int64
	released bool
}

var (
	_ io.Reader = (*File)(nil)
	_ io.Writer = (*File)(nil)
	_ io.Seeker = (*File)(nil)
)

// Open returns a handle positioned at offset 0. Opening always succeeds.
func (s *Store) Open() *File {
	return &File{s: s}
}

func (f *File) Offset() int64 { return f.pos }

// ReadRegion reads up to count bytes at the cursor into dst and advances it.
func (f *File) ReadRegion(dst uaccess.Region, count int) (int, error) {
	if f.released {
		return 0, errReleased("read")
	}
	n, err := f.s.Read(f.pos, count, dst)
	if err != nil {
		return 0, err
	}
	f.pos += int64(n)
	return n, nil
}

// WriteRegion writes up to count bytes from src at the cursor and advances it.
func (f *File) WriteRegion(src uaccess.Region, count int) (int, error) {
	if f.released {
		return 0, errReleased("write")
	}
	n, err := f.s.Write(f.pos, count, src)
	if err != nil {
		return 0, err
	}
	f.pos += int64(n)
	return n, nil
}

// ReadRegionAt reads up to count bytes at off without moving the cursor.
func (f *File) ReadRegionAt(dst uaccess.Region, count int, off int64) (int, error) {
	if f.released {
		return 0, errReleased("read")
	}
	return f.s.Read(off, count, dst)
}

// WriteRegionAt writes up to count bytes at off without moving the cursor.
// off may equal the logical length, which appends.
func (f *File) WriteRegionAt(src uaccess.Region, count int, off int64) (int, error) {
	if f.released {
		return 0, errReleased("write")
	}
	return f.s.Write(off, count, src)
}

// Read implements io.Reader. End of data is reported as io.EOF.
func (f *File) Read(p []byte) (int, error) {
	if len(p) == 0 {
		return 0, nil
	}
	n, err := f.ReadRegion(uaccess.NewBuffer(p), len(p))
	if err != nil {
		return 0, err
	}
	if n == 0 {
		return 0, io.EOF
	}
	return n, nil
}

// Write implements io.Writer. A write truncated by the capacity bound
// returns io.ErrShortWrite with the count that landed.
func (f *File) Write(p []byte) (int, error) {
	n, err := f.WriteRegion(uaccess.NewBuffer(p), len(p))
	if err != nil {
		return 0, err
	}
	if n < len(p) {
		return n, io.ErrShortWrite
	}
	return n, nil
}

// Seek implements io.Seeker with the store's seek rules.
func (f *File) Seek(offset int64, whence int) (int64, error) {
	if f.released {
		return f.pos, errReleased("seek")
	}
	next, err := f.s.Seek(f.pos, offset, Anchor(whence))
	if err != nil {
		return f.pos, err
	}
	f.pos = next
	return next, nil
}

// Release closes the handle. Releasing always succeeds; later operations on
// the handle fail with InvalidArgument.
func (f *File) Release() {
	f.released = true
}

func errReleased(op string) error {
	return fault.New(op, fault.KindInvalidArgument, "released handle")
}
