package daemon

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"testing"
	"time"

	"github.com/danmuck/onebyte/internal/config"
	"github.com/danmuck/onebyte/internal/testutil/testlog"
	"github.com/danmuck/onebyte/internal/transport"
)

func startService(t *testing.T, cfg config.DaemonConfig) (*Service, context.CancelFunc, <-chan error) {
	t.Helper()
	svc := NewService(cfg)
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- svc.RunContext(ctx) }()
	select {
	case <-svc.Ready():
	case err := <-done:
		cancel()
		t.Fatalf("service exited early: %v", err)
	case <-time.After(5 * time.Second):
		cancel()
		t.Fatalf("service not ready")
	}
	return svc, cancel, done
}

func waitStopped(t *testing.T, done <-chan error) {
	t.Helper()
	select {
	case err := <-done:
		if err != nil {
			t.Fatalf("run: %v", err)
		}
	case <-time.After(5 * time.Second):
		t.Fatalf("service did not stop")
	}
}

func testConfig() config.DaemonConfig {
	cfg := config.DefaultDaemonConfig()
	cfg.ListenAddr = "127.0.0.1:0"
	cfg.AdminAddr = "127.0.0.1:0"
	return cfg
}

func TestServiceServesTransportAndAdmin(t *testing.T) {
	testlog.Start(t)
	svc, cancel, done := startService(t, testConfig())

	ctx := context.Background()
	client, err := transport.Dial(ctx, svc.Addr().String(), transport.DefaultClientConfig())
	if err != nil {
		cancel()
		t.Fatalf("dial: %v", err)
	}
	if err := client.Set(ctx, "ping"); err != nil {
		t.Fatalf("set: %v", err)
	}

	resp, err := http.Get("http://" + svc.AdminAddr().String() + "/status")
	if err != nil {
		t.Fatalf("status: %v", err)
	}
	var body struct {
		Device struct {
			MessageLength int `json:"message_length"`
		} `json:"device"`
		Clients int64 `json:"clients"`
	}
	err = json.NewDecoder(resp.Body).Decode(&body)
	resp.Body.Close()
	if err != nil {
		t.Fatalf("decode status: %v", err)
	}
	if body.Device.MessageLength != 4 || body.Clients != 1 {
		t.Fatalf("unexpected status: %+v", body)
	}

	_ = client.Close()
	cancel()
	waitStopped(t, done)
	if svc.Device().Snapshot().Loaded {
		t.Fatalf("device still loaded after stop")
	}
}

func TestServiceWithoutAdmin(t *testing.T) {
	testlog.Start(t)
	cfg := testConfig()
	cfg.AdminAddr = ""
	svc, cancel, done := startService(t, cfg)
	if svc.AdminAddr() != nil {
		t.Fatalf("expected admin disabled")
	}
	cancel()
	waitStopped(t, done)
}

func TestServiceRunsOnce(t *testing.T) {
	testlog.Start(t)
	svc, cancel, done := startService(t, testConfig())
	if err := svc.RunContext(context.Background()); !errors.Is(err, ErrAlreadyRunning) {
		t.Fatalf("expected ErrAlreadyRunning, got %v", err)
	}
	cancel()
	waitStopped(t, done)
}

func TestServiceBadListenAddr(t *testing.T) {
	testlog.Start(t)
	cfg := testConfig()
	cfg.ListenAddr = "256.0.0.1:1"
	if err := NewService(cfg).RunContext(context.Background()); err == nil {
		t.Fatalf("expected listen error")
	}
}
