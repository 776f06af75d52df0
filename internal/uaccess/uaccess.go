// Package uaccess models caller-owned memory regions and the access check
// that vets them before the device core touches them.
package uaccess

import (
	"bytes"
	"errors"
	"fmt"

	"github.com/danmuck/onebyte/internal/ioctl"
)

var (
	ErrFault     = errors.New("uaccess: bad address")
	ErrNoRegion  = errors.New("uaccess: missing region")
	ErrShortArea = errors.New("uaccess: region smaller than transfer size")
)

// Region is a caller-owned memory area. Copies are all-or-nothing: a copy
// that cannot move every requested byte returns an error and moves nothing.
type Region interface {
	// Len is the number of addressable bytes.
	Len() int
	// CopyIn fills dst from the start of the region.
	CopyIn(dst []byte) error
	// CopyOut writes src at the start of the region.
	CopyOut(src []byte) error
	// Strlen measures the NUL-terminated string at the start of the
	// region, without copying it. An unterminated region measures Len.
	Strlen() int
}

// Buffer is a Region backed by a Go byte slice.
type Buffer struct {
	b []byte
}

// NewBuffer wraps b without copying it.
func NewBuffer(b []byte) *Buffer {
	return &Buffer{b: b}
}

// MakeBuffer allocates a zeroed region of n bytes.
func MakeBuffer(n int) *Buffer {
	return &Buffer{b: make([]byte, n)}
}

// CString allocates a region holding s followed by a NUL byte.
func CString(s string) *Buffer {
	b := make([]byte, len(s)+1)
	copy(b, s)
	return &Buffer{b: b}
}

func (r *Buffer) Len() int      { return len(r.b) }
func (r *Buffer) Bytes() []byte { return r.b }

func (r *Buffer) CopyIn(dst []byte) error {
	if len(dst) > len(r.b) {
		return fmt.Errorf("%w: read %d bytes from %d byte region", ErrFault, len(dst), len(r.b))
	}
	copy(dst, r.b)
	return nil
}

func (r *Buffer) CopyOut(src []byte) error {
	if len(src) > len(r.b) {
		return fmt.Errorf("%w: write %d bytes into %d byte region", ErrFault, len(src), len(r.b))
	}
	copy(r.b, src)
	return nil
}

func (r *Buffer) Strlen() int {
	if i := bytes.IndexByte(r.b, 0); i >= 0 {
		return i
	}
	return len(r.b)
}

// BadAddress is a Region that claims Size bytes but faults on every copy,
// like a pointer into an unmapped page that passed a coarse range check.
type BadAddress struct {
	Size int
}

func (r BadAddress) Len() int             { return r.Size }
func (r BadAddress) CopyIn([]byte) error  { return ErrFault }
func (r BadAddress) CopyOut([]byte) error { return ErrFault }
func (r BadAddress) Strlen() int          { return r.Size }

// Checker validates a region for a transfer before a command body runs.
type Checker interface {
	Check(dir ioctl.Direction, r Region, size int) error
}

// CheckerFunc adapts a function to Checker.
type CheckerFunc func(dir ioctl.Direction, r Region, size int) error

func (f CheckerFunc) Check(dir ioctl.Direction, r Region, size int) error {
	return f(dir, r, size)
}

// RangeChecker requires a region of at least size bytes for any command that
// moves data. Commands with no direction pass without a region.
type RangeChecker struct{}

func (RangeChecker) Check(dir ioctl.Direction, r Region, size int) error {
	if dir == ioctl.DirNone {
		return nil
	}
	if r == nil {
		return ErrNoRegion
	}
	if r.Len() < size {
		return fmt.Errorf("%w: have=%d want=%d", ErrShortArea, r.Len(), size)
	}
	return nil
}
