package fault

import (
	"errors"
	"fmt"
	"testing"
)

func TestErrorIsMatchesSentinelForKind(t *testing.T) {
	err := New("write", KindOutOfSpace, "offset=%d", 4194304)
	if !errors.Is(err, ErrOutOfSpace) {
		t.Fatalf("expected ErrOutOfSpace, got %v", err)
	}
	if errors.Is(err, ErrAccessFault) {
		t.Fatalf("out of space must not match access fault")
	}

	wrapped := fmt.Errorf("device: %w", err)
	if !errors.Is(wrapped, ErrOutOfSpace) {
		t.Fatalf("sentinel should survive wrapping, got %v", wrapped)
	}
	if KindOf(wrapped) != KindOutOfSpace {
		t.Fatalf("unexpected kind: %v", KindOf(wrapped))
	}
}

func TestWrapKeepsCause(t *testing.T) {
	cause := errors.New("short region")
	err := Wrap("get", KindAccessFault, cause)
	if !errors.Is(err, cause) {
		t.Fatalf("expected cause in chain")
	}
	if !errors.Is(err, ErrAccessFault) {
		t.Fatalf("expected ErrAccessFault")
	}
	if err.Error() != "get: access_fault: short region" {
		t.Fatalf("unexpected message: %q", err.Error())
	}
}

func TestErrnoRoundTrip(t *testing.T) {
	for _, k := range []Kind{KindOutOfSpace, KindAccessFault, KindInvalidArgument, KindInvalidCommand, KindOutOfMemory} {
		if got := KindFromErrno(uint32(k.Errno())); got != k {
			t.Fatalf("kind %v: errno %d maps back to %v", k, k.Errno(), got)
		}
	}
	if KindFromErrno(5) != KindUnknown {
		t.Fatalf("EIO should be unknown")
	}
	if KindOf(errors.New("plain")) != KindUnknown {
		t.Fatalf("plain errors have no kind")
	}
}
