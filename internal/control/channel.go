// Package control implements the out-of-band control channel: an encoded
// command dispatcher that manages one message slot, independent of the
// primary store.
//
// Commands:
//
//	HELLO     _IO('k', 0)          log "hello"
//	SET       _IOW('k', 1, char)   replace the message with the caller's C string
//	GET       _IOR('k', 2, char)   copy the message to the caller
//	EXCHANGE  _IOWR('k', 3, char)  install a new message, return the old one
//
// The message is stored without a NUL terminator and GET copies exactly its
// length, so a caller that expects a C string must terminate it itself.
// Channel methods take no locks.
package control

import (
	"github.com/cespare/xxhash/v2"

	"github.com/danmuck/onebyte/internal/fault"
	"github.com/danmuck/onebyte/internal/ioctl"
	"github.com/danmuck/onebyte/internal/kmem"
	"github.com/danmuck/onebyte/internal/logs"
	"github.com/danmuck/onebyte/internal/uaccess"
)

const (
	// Magic is the type tag shared by every command of this device.
	Magic uint8 = 'k'

	NrHello    uint8 = 0
	NrSet      uint8 = 1
	NrGet      uint8 = 2
	NrExchange uint8 = 3
	// MaxNr is the highest defined command number.
	MaxNr = NrExchange

	// argSize is sizeof(char), the minimum region a string argument needs.
	argSize = 1

	// DefaultMaxMessage bounds a single message allocation.
	DefaultMaxMessage = 4 << 20
)

var (
	CmdHello    = ioctl.IO(Magic, NrHello)
	CmdSet      = ioctl.IOW(Magic, NrSet, argSize)
	CmdGet      = ioctl.IOR(Magic, NrGet, argSize)
	CmdExchange = ioctl.IOWR(Magic, NrExchange, argSize)
)

type Channel struct {
	mem        *kmem.Pool
	checker    uaccess.Checker
	maxMessage int
	message    []byte
}

type Option func(*Channel)

// WithChecker replaces the default range check run before command bodies.
func WithChecker(c uaccess.Checker) Option {
	return func(ch *Channel) { ch.checker = c }
}

// WithMaxMessage caps message allocations. Larger SETs fail with OutOfMemory.
func WithMaxMessage(n int) Option {
	return func(ch *Channel) {
		if n > 0 {
			ch.maxMessage = n
		}
	}
}

// New returns a channel with an empty message slot.
func New(mem *kmem.Pool, opts ...Option) *Channel {
	ch := &Channel{
		mem:        mem,
		checker:    uaccess.RangeChecker{},
		maxMessage: DefaultMaxMessage,
	}
	for _, opt := range opts {
		opt(ch)
	}
	return ch
}

// Len is the current message length, 0 when the slot is empty.
func (c *Channel) Len() int { return len(c.message) }

// Digest is the xxhash64 of the current message.
func (c *Channel) Digest() uint64 { return xxhash.Sum64(c.message) }

// Release frees the message slot.
func (c *Channel) Release() {
	c.mem.Free(c.message)
	c.message = nil
}

// Ioctl decodes code, runs the access check for its direction and size, and
// dispatches the command. The returned count is the number of bytes copied
// to the caller region (GET and EXCHANGE), 0 otherwise.
func (c *Channel) Ioctl(code ioctl.Code, arg uaccess.Region) (int, error) {
	if code.Type() != Magic {
		return 0, fault.New("ioctl", fault.KindInvalidCommand, "type=%#x", code.Type())
	}
	if code.Nr() > MaxNr {
		return 0, fault.New("ioctl", fault.KindInvalidCommand, "nr=%d", code.Nr())
	}
	if err := c.checker.Check(code.Dir(), arg, int(code.Size())); err != nil {
		return 0, fault.Wrap("ioctl", fault.KindAccessFault, err)
	}

	switch code {
	case CmdHello:
		c.Hello()
		return 0, nil
	case CmdSet:
		return 0, c.Set(arg)
	case CmdGet:
		return c.Get(arg)
	case CmdExchange:
		return c.Exchange(arg)
	default:
		return 0, fault.New("ioctl", fault.KindInvalidCommand, "%s", code)
	}
}

// Hello emits a diagnostic line.
func (c *Channel) Hello() {
	logs.Infof("hello")
}

// Set replaces the message with the NUL-terminated string in src. The old
// message is released before the copy, so a copy fault leaves the slot
// empty rather than restoring it. A missing region faults before the slot
// is touched.
func (c *Channel) Set(src uaccess.Region) error {
	if src == nil {
		return fault.New("set", fault.KindAccessFault, "no region")
	}
	c.Release()

	n := src.Strlen()
	if n == 0 {
		return nil
	}
	if n > c.maxMessage {
		return fault.New("set", fault.KindOutOfMemory, "length=%d max=%d", n, c.maxMessage)
	}
	buf, err := c.mem.Alloc(n)
	if err != nil {
		return fault.Wrap("set", fault.KindOutOfMemory, err)
	}
	if err := src.CopyIn(buf); err != nil {
		c.mem.Free(buf)
		return fault.Wrap("set", fault.KindAccessFault, err)
	}
	c.message = buf
	logs.Debugf("control.Set length=%d", n)
	return nil
}

// Get copies the whole message into dst. dst is trusted to be large enough;
// a copy that cannot complete is an AccessFault.
func (c *Channel) Get(dst uaccess.Region) (int, error) {
	if dst == nil {
		return 0, fault.New("get", fault.KindAccessFault, "no region")
	}
	if err := dst.CopyOut(c.message); err != nil {
		return 0, fault.Wrap("get", fault.KindAccessFault, err)
	}
	return len(c.message), nil
}

// Exchange detaches the current message, installs the string in arg with
// Set, then copies the detached message back into arg. With no message
// installed the detached value is a single zero byte. If Set fails the old
// message is dropped and nothing is copied out.
func (c *Channel) Exchange(arg uaccess.Region) (int, error) {
	if arg == nil {
		return 0, fault.New("exchange", fault.KindAccessFault, "no region")
	}
	old := c.message
	c.message = nil
	if old == nil {
		var err error
		old, err = c.mem.Alloc(1)
		if err != nil {
			return 0, fault.Wrap("exchange", fault.KindOutOfMemory, err)
		}
	}
	defer c.mem.Free(old)

	if err := c.Set(arg); err != nil {
		return 0, err
	}
	logs.Infof("control.Exchange installed message=%q length=%d digest=%016x", c.message, len(c.message), c.Digest())

	if err := arg.CopyOut(old); err != nil {
		return 0, fault.Wrap("exchange", fault.KindAccessFault, err)
	}
	return len(old), nil
}
