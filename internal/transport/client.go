package transport

import (
	"context"
	"errors"
	"math/rand"
	"net"
	"sync"
	"time"

	"github.com/danmuck/onebyte/internal/control"
	"github.com/danmuck/onebyte/internal/fault"
	"github.com/danmuck/onebyte/internal/logs"
	"github.com/danmuck/onebyte/internal/protocol"
	"github.com/danmuck/onebyte/internal/protocol/frame"
	"github.com/danmuck/onebyte/internal/protocol/schema"
	"github.com/danmuck/onebyte/internal/protocol/session"
)

// Client speaks to one onebyted over a single connection. Calls are
// serialized; each waits for its reply.
type Client struct {
	mu     sync.Mutex
	conn   *session.Conn
	nextID uint64
}

// ClientConfig tunes a client connection. Limits should match the
// daemon's max_payload_bytes so oversized requests fail before they are
// sent.
type ClientConfig struct {
	Session session.Config
	Limits  frame.Limits
}

func DefaultClientConfig() ClientConfig {
	return ClientConfig{Session: session.DefaultConfig(), Limits: frame.DefaultLimits()}
}

// Dial connects to addr, retrying with backoff up to cfg.Session.MaxAttempts.
func Dial(ctx context.Context, addr string, cfg ClientConfig) (*Client, error) {
	if cfg.Limits.MaxPayloadBytes == 0 {
		cfg.Limits = frame.DefaultLimits()
	}
	attempts := max(cfg.Session.MaxAttempts, 1)
	rng := rand.New(rand.NewSource(time.Now().UnixNano()))
	dialer := net.Dialer{Timeout: cfg.Session.ConnectTimeout}

	var lastErr error
	for attempt := 1; attempt <= attempts; attempt++ {
		nc, err := dialer.DialContext(ctx, "tcp", addr)
		if err == nil {
			logs.Debugf("transport.Dial connected addr=%q attempt=%d", addr, attempt)
			return &Client{conn: session.NewConn(nc, cfg.Session, cfg.Limits)}, nil
		}
		lastErr = err
		if attempt == attempts {
			break
		}
		delay := session.NextBackoffDelay(cfg.Session.Backoff, attempt, rng)
		logs.Warnf("transport.Dial failed addr=%q attempt=%d retry_in=%s err=%v", addr, attempt, delay, err)
		timer := time.NewTimer(delay)
		select {
		case <-ctx.Done():
			timer.Stop()
			return nil, Error.Wrap(ctx.Err())
		case <-timer.C:
		}
	}
	return nil, Error.New("dial %s after %d attempts: %v", addr, attempts, lastErr)
}

func (c *Client) Close() error {
	return Error.Wrap(c.conn.Close())
}

// Do sends one request and waits for its reply. Device failures come back
// as *fault.Error (or a protocol.ErrorReply for errnos outside the fault
// taxonomy); connection failures belong to Error.
func (c *Client) Do(ctx context.Context, req protocol.Request) (protocol.Reply, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if err := ctx.Err(); err != nil {
		return protocol.Reply{}, Error.Wrap(err)
	}
	stop := context.AfterFunc(ctx, func() { _ = c.conn.Close() })
	defer stop()

	c.nextID++
	id := c.nextID
	if err := c.conn.WriteFrame(req.Frame(id)); err != nil {
		return protocol.Reply{}, c.connErr(ctx, err)
	}
	f, err := c.conn.ReadFrame()
	if err != nil {
		return protocol.Reply{}, c.connErr(ctx, err)
	}
	if f.Header.MessageID != id {
		return protocol.Reply{}, Error.New("reply message_id=%d want %d", f.Header.MessageID, id)
	}

	reply, err := protocol.ParseResponse(f)
	var remote protocol.ErrorReply
	if errors.As(err, &remote) {
		return protocol.Reply{}, remoteErr(schema.MessageName(req.Type), remote)
	}
	if err != nil {
		return protocol.Reply{}, Error.Wrap(err)
	}
	return reply, nil
}

func (c *Client) connErr(ctx context.Context, err error) error {
	if ctx.Err() != nil {
		return Error.Wrap(ctx.Err())
	}
	return Error.Wrap(err)
}

func remoteErr(op string, e protocol.ErrorReply) error {
	kind := fault.KindFromErrno(e.Errno)
	if kind == fault.KindUnknown {
		return e
	}
	return &fault.Error{Op: "remote " + op, Kind: kind, Detail: e.Detail}
}

// Open returns a new handle id positioned at 0.
func (c *Client) Open(ctx context.Context) (uint64, error) {
	r, err := c.Do(ctx, protocol.Request{Type: schema.MsgOpen})
	if err != nil {
		return 0, err
	}
	return r.Handle, nil
}

func (c *Client) Release(ctx context.Context, handle uint64) error {
	_, err := c.Do(ctx, protocol.Request{Type: schema.MsgRelease, Handle: handle})
	return err
}

// Read returns up to count bytes at the handle cursor. An empty result
// means end of data.
func (c *Client) Read(ctx context.Context, handle uint64, count int) ([]byte, error) {
	r, err := c.Do(ctx, protocol.Request{Type: schema.MsgRead, Handle: handle, Count: uint32(count)})
	if err != nil {
		return nil, err
	}
	return r.Data, nil
}

// Write stores data at the handle cursor and reports how many bytes the
// device accepted.
func (c *Client) Write(ctx context.Context, handle uint64, data []byte) (int, error) {
	r, err := c.Do(ctx, protocol.Request{Type: schema.MsgWrite, Handle: handle, Data: data})
	if err != nil {
		return 0, err
	}
	return int(r.Result), nil
}

// ReadAt reads up to count bytes at off without moving the handle cursor.
// Offsets at or past the end of data return an empty result.
func (c *Client) ReadAt(ctx context.Context, handle uint64, count int, off int64) ([]byte, error) {
	r, err := c.Do(ctx, protocol.Request{
		Type:        schema.MsgRead,
		Handle:      handle,
		Count:       uint32(count),
		Position:    uint64(off),
		HasPosition: true,
	})
	if err != nil {
		return nil, err
	}
	return r.Data, nil
}

// WriteAt stores data at off without moving the handle cursor. off may
// equal the current length, which appends.
func (c *Client) WriteAt(ctx context.Context, handle uint64, data []byte, off int64) (int, error) {
	r, err := c.Do(ctx, protocol.Request{
		Type:        schema.MsgWrite,
		Handle:      handle,
		Data:        data,
		Position:    uint64(off),
		HasPosition: true,
	})
	if err != nil {
		return 0, err
	}
	return int(r.Result), nil
}

// Seek moves the handle cursor; whence takes io.SeekStart, io.SeekCurrent
// or io.SeekEnd.
func (c *Client) Seek(ctx context.Context, handle uint64, delta int64, whence int) (int64, error) {
	r, err := c.Do(ctx, protocol.Request{Type: schema.MsgSeek, Handle: handle, Delta: delta, Whence: uint8(whence)})
	if err != nil {
		return 0, err
	}
	return int64(r.Offset), nil
}

// Ioctl issues a raw control command. data seeds the caller region and
// size pads it; the returned bytes are what the device copied back.
func (c *Client) Ioctl(ctx context.Context, code uint32, data []byte, size int) (int, []byte, error) {
	req := protocol.Request{Type: schema.MsgIoctl, Command: code, Data: data}
	if size > 0 {
		req.Count, req.HasCount = uint32(size), true
	}
	r, err := c.Do(ctx, req)
	if err != nil {
		return 0, nil, err
	}
	return int(r.Result), r.Data, nil
}

func (c *Client) Hello(ctx context.Context) error {
	_, _, err := c.Ioctl(ctx, uint32(control.CmdHello), nil, 0)
	return err
}

// Set installs msg as the control message.
func (c *Client) Set(ctx context.Context, msg string) error {
	_, _, err := c.Ioctl(ctx, uint32(control.CmdSet), cstring(msg), 0)
	return err
}

// Get returns the control message. size is the caller buffer size; a
// buffer smaller than the message fails with AccessFault.
func (c *Client) Get(ctx context.Context, size int) ([]byte, error) {
	_, out, err := c.Ioctl(ctx, uint32(control.CmdGet), nil, max(size, 1))
	return out, err
}

// Exchange installs msg and returns the previous message. With no previous
// message the result is a single zero byte.
func (c *Client) Exchange(ctx context.Context, msg string, size int) ([]byte, error) {
	_, out, err := c.Ioctl(ctx, uint32(control.CmdExchange), cstring(msg), size)
	return out, err
}

func cstring(s string) []byte {
	b := make([]byte, len(s)+1)
	copy(b, s)
	return b
}
