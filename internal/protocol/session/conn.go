package session

import (
	"bufio"
	"net"
	"sync"
	"time"

	"github.com/danmuck/onebyte/internal/protocol/frame"
)

// Conn reads and writes frames on a net.Conn. Reads and writes may run
// on different goroutines; concurrent writers are serialized.
type Conn struct {
	nc           net.Conn
	br           *bufio.Reader
	limits       frame.Limits
	readTimeout  time.Duration
	writeTimeout time.Duration

	wmu sync.Mutex
}

func NewConn(nc net.Conn, cfg Config, limits frame.Limits) *Conn {
	return &Conn{
		nc:           nc,
		br:           bufio.NewReader(nc),
		limits:       limits,
		readTimeout:  cfg.ReadTimeout,
		writeTimeout: cfg.WriteTimeout,
	}
}

// ReadFrame blocks for the next frame. A zero ReadTimeout waits forever.
func (c *Conn) ReadFrame() (frame.Frame, error) {
	if c.readTimeout > 0 {
		if err := c.nc.SetReadDeadline(time.Now().Add(c.readTimeout)); err != nil {
			return frame.Frame{}, err
		}
	}
	return frame.ReadFrame(c.br, c.limits)
}

func (c *Conn) WriteFrame(f frame.Frame) error {
	c.wmu.Lock()
	defer c.wmu.Unlock()
	if c.writeTimeout > 0 {
		if err := c.nc.SetWriteDeadline(time.Now().Add(c.writeTimeout)); err != nil {
			return err
		}
	}
	return frame.WriteFrame(c.nc, f, c.limits)
}

func (c *Conn) RemoteAddr() net.Addr { return c.nc.RemoteAddr() }

func (c *Conn) Close() error { return c.nc.Close() }
