package transport

import (
	"context"
	"errors"
	"io"
	"net"
	"sync"
	"sync/atomic"

	"github.com/danmuck/onebyte/internal/device"
	"github.com/danmuck/onebyte/internal/logs"
	"github.com/danmuck/onebyte/internal/protocol/frame"
	"github.com/danmuck/onebyte/internal/protocol/session"
)

// ServerConfig tunes connection handling.
type ServerConfig struct {
	Session session.Config
	Limits  frame.Limits
	// MaxRegion caps the caller region the server builds for one READ or
	// IOCTL. Zero uses Limits.MaxPayloadBytes.
	MaxRegion int
}

func DefaultServerConfig() ServerConfig {
	cfg := session.DefaultConfig()
	// idle clients keep their handles until they hang up
	cfg.ReadTimeout = 0
	return ServerConfig{Session: cfg, Limits: frame.DefaultLimits()}
}

type Server struct {
	ln  net.Listener
	dev *device.Device
	cfg ServerConfig

	mu     sync.Mutex
	conns  map[*serverConn]struct{}
	closed bool
	wg     sync.WaitGroup

	active atomic.Int64
}

// Listen binds addr and returns a server that is not yet accepting.
func Listen(addr string, dev *device.Device, cfg ServerConfig) (*Server, error) {
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return nil, Error.Wrap(err)
	}
	return NewServer(ln, dev, cfg), nil
}

func NewServer(ln net.Listener, dev *device.Device, cfg ServerConfig) *Server {
	if cfg.Limits.MaxPayloadBytes == 0 {
		cfg.Limits = frame.DefaultLimits()
	}
	if cfg.MaxRegion <= 0 {
		cfg.MaxRegion = int(cfg.Limits.MaxPayloadBytes)
	}
	return &Server{
		ln:    ln,
		dev:   dev,
		cfg:   cfg,
		conns: make(map[*serverConn]struct{}),
	}
}

func (s *Server) Addr() net.Addr { return s.ln.Addr() }

// Active reports the number of connected clients.
func (s *Server) Active() int64 { return s.active.Load() }

// Serve accepts connections until ctx is done or Close is called. It
// returns nil on an orderly stop.
func (s *Server) Serve(ctx context.Context) error {
	logs.Infof("transport.Server listening addr=%q", s.ln.Addr().String())
	stop := context.AfterFunc(ctx, func() { _ = s.Close() })
	defer stop()

	for {
		nc, err := s.ln.Accept()
		if err != nil {
			if s.isClosed() || ctx.Err() != nil {
				s.wg.Wait()
				return nil
			}
			return Error.Wrap(err)
		}
		c := &serverConn{
			srv:     s,
			conn:    session.NewConn(nc, s.cfg.Session, s.cfg.Limits),
			handles: make(map[uint64]*device.Handle),
		}
		if !s.track(c) {
			_ = nc.Close()
			continue
		}
		s.wg.Add(1)
		go func() {
			defer s.wg.Done()
			defer s.untrack(c)
			c.serve()
		}()
	}
}

// Close stops the listener and hangs up every active connection. Handles
// held by those connections are released.
func (s *Server) Close() error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return nil
	}
	s.closed = true
	conns := make([]*serverConn, 0, len(s.conns))
	for c := range s.conns {
		conns = append(conns, c)
	}
	s.mu.Unlock()

	err := s.ln.Close()
	for _, c := range conns {
		_ = c.conn.Close()
	}
	if err != nil && !errors.Is(err, net.ErrClosed) {
		return Error.Wrap(err)
	}
	return nil
}

func (s *Server) isClosed() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.closed
}

func (s *Server) track(c *serverConn) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return false
	}
	s.conns[c] = struct{}{}
	return true
}

func (s *Server) untrack(c *serverConn) {
	s.mu.Lock()
	delete(s.conns, c)
	s.mu.Unlock()
}

type serverConn struct {
	srv     *Server
	conn    *session.Conn
	handles map[uint64]*device.Handle
	next    uint64
}

func (c *serverConn) serve() {
	remote := c.conn.RemoteAddr().String()
	active := c.srv.active.Add(1)
	logs.Infof("transport.Server client connected remote=%q active_clients=%d", remote, active)
	defer func() {
		c.releaseAll()
		_ = c.conn.Close()
		remaining := c.srv.active.Add(-1)
		logs.Infof("transport.Server client disconnected remote=%q active_clients=%d", remote, remaining)
	}()

	for {
		f, err := c.conn.ReadFrame()
		if err != nil {
			if !errors.Is(err, io.EOF) && !errors.Is(err, net.ErrClosed) {
				logs.Warnf("transport.Server read remote=%q err=%v", remote, err)
			}
			return
		}
		resp := c.handle(f)
		if err := c.conn.WriteFrame(resp); err != nil {
			logs.Warnf("transport.Server write remote=%q err=%v", remote, err)
			return
		}
	}
}

func (c *serverConn) releaseAll() {
	for id, h := range c.handles {
		h.Release()
		delete(c.handles, id)
	}
}
