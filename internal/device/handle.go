package device

import (
	"github.com/danmuck/onebyte/internal/primary"
	"github.com/danmuck/onebyte/internal/uaccess"
)

// Handle is one open file on the device. Its cursor is private to the
// handle; the device serializes the calls.
type Handle struct {
	d        *Device
	f        *primary.File
	released bool
}

// Read copies up to count bytes at the cursor into dst. Zero with no error
// means end of data.
func (h *Handle) Read(dst uaccess.Region, count int) (int, error) {
	var n int
	err := h.d.do("read", func() error {
		if h.released {
			return ErrReleased
		}
		var err error
		n, err = h.f.ReadRegion(dst, count)
		return err
	}, func() int { return n })
	return n, err
}

// Write copies up to count bytes from src at the cursor.
func (h *Handle) Write(src uaccess.Region, count int) (int, error) {
	var n int
	err := h.d.do("write", func() error {
		if h.released {
			return ErrReleased
		}
		var err error
		n, err = h.f.WriteRegion(src, count)
		return err
	}, func() int { return n })
	return n, err
}

// ReadAt is Read at an explicit offset. The cursor does not move.
func (h *Handle) ReadAt(dst uaccess.Region, count int, off int64) (int, error) {
	var n int
	err := h.d.do("read", func() error {
		if h.released {
			return ErrReleased
		}
		var err error
		n, err = h.f.ReadRegionAt(dst, count, off)
		return err
	}, func() int { return n })
	return n, err
}

// WriteAt is Write at an explicit offset. The cursor does not move.
func (h *Handle) WriteAt(src uaccess.Region, count int, off int64) (int, error) {
	var n int
	err := h.d.do("write", func() error {
		if h.released {
			return ErrReleased
		}
		var err error
		n, err = h.f.WriteRegionAt(src, count, off)
		return err
	}, func() int { return n })
	return n, err
}

// Seek moves the cursor. whence takes io.SeekStart, io.SeekCurrent or
// io.SeekEnd.
func (h *Handle) Seek(delta int64, whence int) (int64, error) {
	var pos int64
	err := h.d.do("seek", func() error {
		if h.released {
			return ErrReleased
		}
		var err error
		pos, err = h.f.Seek(delta, whence)
		return err
	}, nil)
	return pos, err
}

// Offset reports the cursor.
func (h *Handle) Offset() int64 {
	h.d.mu.Lock()
	defer h.d.mu.Unlock()
	return h.f.Offset()
}

// Release closes the handle. It always succeeds and is idempotent.
func (h *Handle) Release() {
	h.d.mu.Lock()
	defer h.d.mu.Unlock()
	if h.released {
		return
	}
	h.released = true
	h.f.Release()
	h.d.handles--
	h.d.publish()
}
