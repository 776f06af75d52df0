package device

import (
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/cespare/xxhash/v2"

	"github.com/danmuck/onebyte/internal/control"
	"github.com/danmuck/onebyte/internal/fault"
	"github.com/danmuck/onebyte/internal/ioctl"
	"github.com/danmuck/onebyte/internal/kmem"
	"github.com/danmuck/onebyte/internal/logs"
	"github.com/danmuck/onebyte/internal/observability"
	"github.com/danmuck/onebyte/internal/primary"
	"github.com/danmuck/onebyte/internal/uaccess"
)

var (
	ErrNotLoaded = errors.New("device: not loaded")
	ErrReleased  = errors.New("device: handle released")
)

// Options configures Load.
type Options struct {
	// MemoryLimit caps all device allocations. Zero means unbounded.
	MemoryLimit int64
	// MaxMessage caps one control message. Zero uses control.DefaultMaxMessage.
	MaxMessage int
	// Checker vets ioctl regions. Nil uses uaccess.RangeChecker.
	Checker uaccess.Checker
}

type Device struct {
	mu      sync.Mutex
	mem     *kmem.Pool
	store   *primary.Store
	channel *control.Channel
	handles int
	loaded  bool
}

// Load allocates the primary buffer and an empty control channel.
func Load(opts Options) (*Device, error) {
	mem := kmem.NewPool(opts.MemoryLimit)
	store, err := primary.New(mem)
	if err != nil {
		logs.Errf("device.Load failed err=%v", err)
		return nil, fmt.Errorf("device load: %w", err)
	}
	var chOpts []control.Option
	if opts.MaxMessage > 0 {
		chOpts = append(chOpts, control.WithMaxMessage(opts.MaxMessage))
	}
	if opts.Checker != nil {
		chOpts = append(chOpts, control.WithChecker(opts.Checker))
	}
	d := &Device{
		mem:     mem,
		store:   store,
		channel: control.New(mem, chOpts...),
		loaded:  true,
	}
	d.publish()
	logs.Infof("onebyte device module loaded capacity=%d", store.Cap())
	return d, nil
}

// Unload releases both buffers. It is safe to call more than once.
func (d *Device) Unload() {
	d.mu.Lock()
	defer d.mu.Unlock()
	if !d.loaded {
		return
	}
	d.store.Release()
	d.channel.Release()
	d.loaded = false
	logs.Infof("onebyte device module unloaded in_use=%d", d.mem.InUse())
}

// Open returns a new handle positioned at 0.
func (d *Device) Open() (*Handle, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if !d.loaded {
		return nil, ErrNotLoaded
	}
	d.handles++
	d.publish()
	return &Handle{d: d, f: d.store.Open()}, nil
}

// Ioctl runs one control command.
func (d *Device) Ioctl(code ioctl.Code, arg uaccess.Region) (int, error) {
	op := "ioctl." + commandName(code)
	var n int
	err := d.do(op, func() error {
		var err error
		n, err = d.channel.Ioctl(code, arg)
		return err
	}, func() int { return n })
	return n, err
}

// Reset restores the primary buffer to its initial content.
func (d *Device) Reset() error {
	return d.do("reset", func() error {
		d.store.Reset()
		return nil
	}, nil)
}

// Snapshot is a point-in-time view of device state.
type Snapshot struct {
	Loaded        bool   `json:"loaded"`
	Length        int64  `json:"length"`
	Capacity      int64  `json:"capacity"`
	MessageLength int    `json:"message_length"`
	ContentDigest string `json:"content_digest"`
	MessageDigest string `json:"message_digest"`
	OpenHandles   int    `json:"open_handles"`
	MemoryInUse   int64  `json:"memory_in_use"`
	MemoryPeak    int64  `json:"memory_peak"`
}

func (d *Device) Snapshot() Snapshot {
	d.mu.Lock()
	defer d.mu.Unlock()
	s := Snapshot{
		Loaded:      d.loaded,
		OpenHandles: d.handles,
		MemoryInUse: d.mem.InUse(),
		MemoryPeak:  d.mem.Peak(),
	}
	if d.loaded {
		s.Length = d.store.Len()
		s.Capacity = d.store.Cap()
		s.MessageLength = d.channel.Len()
		s.ContentDigest = fmt.Sprintf("%016x", xxhash.Sum64(d.store.View()))
		s.MessageDigest = fmt.Sprintf("%016x", d.channel.Digest())
	}
	return s
}

// do runs fn under the device lock and records the outcome.
func (d *Device) do(op string, fn func() error, count func() int) error {
	start := time.Now()
	d.mu.Lock()
	var err error
	if d.loaded {
		err = fn()
		d.publish()
	} else {
		err = ErrNotLoaded
	}
	d.mu.Unlock()

	n := 0
	if count != nil && err == nil {
		n = count()
	}
	observability.RecordDeviceOp(op, resultLabel(err), n, time.Since(start))
	if err != nil {
		logs.Debugf("device.%s err=%v", op, err)
	}
	return err
}

// publish must be called with d.mu held.
func (d *Device) publish() {
	if !d.loaded {
		observability.SetDeviceState(0, 0, d.handles)
		return
	}
	observability.SetDeviceState(d.store.Len(), d.channel.Len(), d.handles)
}

func resultLabel(err error) string {
	if err == nil {
		return "ok"
	}
	if errors.Is(err, ErrNotLoaded) {
		return "not_loaded"
	}
	if errors.Is(err, ErrReleased) {
		return "released"
	}
	return fault.KindOf(err).String()
}

func commandName(code ioctl.Code) string {
	switch code {
	case control.CmdHello:
		return "hello"
	case control.CmdSet:
		return "set"
	case control.CmdGet:
		return "get"
	case control.CmdExchange:
		return "exchange"
	default:
		return "unknown"
	}
}
