// Package daemon wires the device, the transport server and the admin
// surface into the onebyted process lifecycle.
package daemon

import (
	"context"
	"errors"
	"fmt"
	"net"
	"os/signal"
	"syscall"

	"github.com/danmuck/onebyte/internal/admin"
	"github.com/danmuck/onebyte/internal/config"
	"github.com/danmuck/onebyte/internal/device"
	"github.com/danmuck/onebyte/internal/logs"
	"github.com/danmuck/onebyte/internal/transport"
)

var ErrAlreadyRunning = errors.New("daemon: already running")

type Service struct {
	cfg config.DaemonConfig

	dev   *device.Device
	srv   *transport.Server
	admin *admin.Server

	adminLn net.Listener
	ready   chan struct{}
}

func NewService(cfg config.DaemonConfig) *Service {
	return &Service{cfg: cfg, ready: make(chan struct{})}
}

// Run blocks until SIGINT or SIGTERM.
func (s *Service) Run() error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()
	return s.RunContext(ctx)
}

// RunContext loads the device, serves until ctx is done, then unloads.
func (s *Service) RunContext(ctx context.Context) error {
	if s.dev != nil {
		return ErrAlreadyRunning
	}
	if err := s.bootstrap(); err != nil {
		return err
	}
	defer s.dev.Unload()
	return s.serve(ctx)
}

// Ready is closed once both listeners are bound.
func (s *Service) Ready() <-chan struct{} { return s.ready }

// Addr is the transport listen address. Valid after Ready.
func (s *Service) Addr() net.Addr { return s.srv.Addr() }

// AdminAddr is nil when the admin surface is disabled. Valid after Ready.
func (s *Service) AdminAddr() net.Addr {
	if s.adminLn == nil {
		return nil
	}
	return s.adminLn.Addr()
}

// Device is valid after Ready.
func (s *Service) Device() *device.Device { return s.dev }

func (s *Service) bootstrap() error {
	dev, err := device.Load(s.cfg.DeviceOptions())
	if err != nil {
		return err
	}
	srv, err := transport.Listen(s.cfg.ListenAddr, dev, s.cfg.ServerConfig())
	if err != nil {
		dev.Unload()
		return err
	}
	if s.cfg.AdminAddr != "" {
		ln, err := net.Listen("tcp", s.cfg.AdminAddr)
		if err != nil {
			_ = srv.Close()
			dev.Unload()
			return fmt.Errorf("admin listen: %w", err)
		}
		s.adminLn = ln
		s.admin = admin.New(admin.Config{
			Name:        s.cfg.Name,
			CorsOrigins: s.cfg.CorsOrigins,
			Token:       s.cfg.AdminToken,
		}, dev, srv)
	}
	s.dev, s.srv = dev, srv
	logs.Infof(
		"daemon.Service.bootstrap ready name=%q listen=%q admin=%q",
		s.cfg.Name,
		srv.Addr().String(),
		s.cfg.AdminAddr,
	)
	close(s.ready)
	return nil
}

func (s *Service) serve(ctx context.Context) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	errCh := make(chan error, 2)
	running := 1
	go func() { errCh <- s.srv.Serve(ctx) }()
	if s.admin != nil {
		running++
		go func() { errCh <- s.admin.ServeListener(ctx, s.adminLn) }()
	}

	var firstErr error
	select {
	case <-ctx.Done():
	case firstErr = <-errCh:
		running--
	}
	cancel()
	for ; running > 0; running-- {
		if err := <-errCh; err != nil && firstErr == nil {
			firstErr = err
		}
	}
	logs.Infof("daemon.Service.serve stopped name=%q err=%v", s.cfg.Name, firstErr)
	return firstErr
}
