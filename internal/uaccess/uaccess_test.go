package uaccess

import (
	"errors"
	"testing"

	"github.com/danmuck/onebyte/internal/ioctl"
)

func TestBufferCopiesAreAllOrNothing(t *testing.T) {
	r := MakeBuffer(4)
	if err := r.CopyOut([]byte("hello")); !errors.Is(err, ErrFault) {
		t.Fatalf("expected ErrFault, got %v", err)
	}
	if string(r.Bytes()) != "\x00\x00\x00\x00" {
		t.Fatalf("failed copy must not move bytes: %q", r.Bytes())
	}
	if err := r.CopyOut([]byte("hey")); err != nil {
		t.Fatalf("copy out: %v", err)
	}
	dst := make([]byte, 3)
	if err := r.CopyIn(dst); err != nil {
		t.Fatalf("copy in: %v", err)
	}
	if string(dst) != "hey" {
		t.Fatalf("unexpected copy in: %q", dst)
	}
	if err := r.CopyIn(make([]byte, 5)); !errors.Is(err, ErrFault) {
		t.Fatalf("expected ErrFault, got %v", err)
	}
}

func TestStrlen(t *testing.T) {
	if n := CString("hi").Strlen(); n != 2 {
		t.Fatalf("unexpected strlen: %d", n)
	}
	if n := NewBuffer([]byte("abc")).Strlen(); n != 3 {
		t.Fatalf("unterminated region should measure its length, got %d", n)
	}
	if n := CString("").Strlen(); n != 0 {
		t.Fatalf("empty string should measure 0, got %d", n)
	}
}

func TestRangeChecker(t *testing.T) {
	var c RangeChecker
	if err := c.Check(ioctl.DirNone, nil, 0); err != nil {
		t.Fatalf("no-direction command should pass: %v", err)
	}
	if err := c.Check(ioctl.DirRead, nil, 8); !errors.Is(err, ErrNoRegion) {
		t.Fatalf("expected ErrNoRegion, got %v", err)
	}
	if err := c.Check(ioctl.DirWrite, MakeBuffer(4), 8); !errors.Is(err, ErrShortArea) {
		t.Fatalf("expected ErrShortArea, got %v", err)
	}
	if err := c.Check(ioctl.DirReadWrite, MakeBuffer(8), 8); err != nil {
		t.Fatalf("unexpected check failure: %v", err)
	}
}

func TestBadAddressFaults(t *testing.T) {
	r := BadAddress{Size: 16}
	if r.Len() != 16 || r.Strlen() != 16 {
		t.Fatalf("unexpected geometry")
	}
	if err := r.CopyIn(make([]byte, 1)); !errors.Is(err, ErrFault) {
		t.Fatalf("expected ErrFault, got %v", err)
	}
	if err := r.CopyOut([]byte{1}); !errors.Is(err, ErrFault) {
		t.Fatalf("expected ErrFault, got %v", err)
	}
}
