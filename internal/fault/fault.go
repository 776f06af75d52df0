// Package fault is the error taxonomy shared by the device core and its
// transport.
//
// Every failure surfaced by the store or the control channel is a *Error
// carrying one Kind. Callers match with errors.Is against the Err* sentinels;
// the transport moves kinds across the wire as Linux errno values.
package fault

import (
	"errors"
	"fmt"
	"syscall"
)

// Kind categorizes a device failure.
type Kind uint8

const (
	KindUnknown Kind = iota
	KindOutOfSpace
	KindAccessFault
	KindInvalidArgument
	KindInvalidCommand
	KindOutOfMemory
)

var (
	ErrOutOfSpace      = errors.New("fault: out of space")
	ErrAccessFault     = errors.New("fault: bad address")
	ErrInvalidArgument = errors.New("fault: invalid argument")
	ErrInvalidCommand  = errors.New("fault: inappropriate control command")
	ErrOutOfMemory     = errors.New("fault: out of memory")
)

func (k Kind) String() string {
	switch k {
	case KindOutOfSpace:
		return "out_of_space"
	case KindAccessFault:
		return "access_fault"
	case KindInvalidArgument:
		return "invalid_argument"
	case KindInvalidCommand:
		return "invalid_command"
	case KindOutOfMemory:
		return "out_of_memory"
	default:
		return "unknown"
	}
}

func (k Kind) sentinel() error {
	switch k {
	case KindOutOfSpace:
		return ErrOutOfSpace
	case KindAccessFault:
		return ErrAccessFault
	case KindInvalidArgument:
		return ErrInvalidArgument
	case KindInvalidCommand:
		return ErrInvalidCommand
	case KindOutOfMemory:
		return ErrOutOfMemory
	default:
		return nil
	}
}

// Errno is the Linux errno a character device returns for this kind.
func (k Kind) Errno() syscall.Errno {
	switch k {
	case KindOutOfSpace:
		return syscall.Errno(28) // ENOSPC
	case KindAccessFault:
		return syscall.Errno(14) // EFAULT
	case KindInvalidArgument:
		return syscall.Errno(22) // EINVAL
	case KindInvalidCommand:
		return syscall.Errno(25) // ENOTTY
	case KindOutOfMemory:
		return syscall.Errno(12) // ENOMEM
	default:
		return syscall.Errno(5) // EIO
	}
}

// KindFromErrno is the inverse of Kind.Errno. Unmapped values yield KindUnknown.
func KindFromErrno(errno uint32) Kind {
	switch errno {
	case 28:
		return KindOutOfSpace
	case 14:
		return KindAccessFault
	case 22:
		return KindInvalidArgument
	case 25:
		return KindInvalidCommand
	case 12:
		return KindOutOfMemory
	default:
		return KindUnknown
	}
}

// Error is one device failure.
type Error struct {
	Op     string
	Kind   Kind
	Detail string
	Cause  error
}

func (e *Error) Error() string {
	msg := fmt.Sprintf("%s: %s", e.Op, e.Kind)
	if e.Detail != "" {
		msg += ": " + e.Detail
	}
	if e.Cause != nil {
		msg += ": " + e.Cause.Error()
	}
	return msg
}

func (e *Error) Unwrap() error {
	return e.Cause
}

// Is matches the sentinel for e's kind, so errors.Is(err, ErrOutOfSpace)
// holds for any *Error of KindOutOfSpace.
func (e *Error) Is(target error) bool {
	s := e.Kind.sentinel()
	return s != nil && s == target
}

// New builds an *Error with a formatted detail.
func New(op string, kind Kind, format string, args ...any) *Error {
	return &Error{Op: op, Kind: kind, Detail: fmt.Sprintf(format, args...)}
}

// Wrap builds an *Error that keeps cause in its chain.
func Wrap(op string, kind Kind, cause error) *Error {
	return &Error{Op: op, Kind: kind, Cause: cause}
}

// KindOf reports the kind of the first *Error in err's chain.
func KindOf(err error) Kind {
	var fe *Error
	if errors.As(err, &fe) {
		return fe.Kind
	}
	return KindUnknown
}
