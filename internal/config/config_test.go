package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/danmuck/onebyte/internal/logs"
	"github.com/danmuck/onebyte/internal/testutil/testlog"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "onebyted.toml")
	if err := os.WriteFile(path, []byte(body), 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return path
}

func TestLoadDaemonConfigDefaults(t *testing.T) {
	testlog.Start(t)
	cfg, err := LoadDaemonConfig(writeConfig(t, "name = \"  \"\n"))
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Name != DefaultName || cfg.ListenAddr != DefaultListenAddr || cfg.AdminAddr != DefaultAdminAddr {
		t.Fatalf("unexpected defaults: %+v", cfg)
	}
	if cfg.MaxMessageBytes != 4<<20 || cfg.MaxPayloadBytes != 8<<20 {
		t.Fatalf("unexpected size defaults: %+v", cfg)
	}
}

func TestLoadDaemonConfigEmptyAdminDisables(t *testing.T) {
	testlog.Start(t)
	cfg, err := LoadDaemonConfig(writeConfig(t, "admin_addr = \"\"\n"))
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.AdminAddr != "" {
		t.Fatalf("expected admin disabled, got %q", cfg.AdminAddr)
	}
}

func TestTemplatesValidate(t *testing.T) {
	testlog.Start(t)
	path := filepath.Join(t.TempDir(), "onebyted.toml")
	if err := WriteTemplate(path, "daemon", false); err != nil {
		t.Fatalf("write template: %v", err)
	}
	if err := WriteTemplate(path, "daemon", false); err == nil {
		t.Fatalf("expected overwrite refusal")
	}
	cfg, err := LoadDaemonConfig(path)
	if err != nil {
		t.Fatalf("template does not load: %v", err)
	}
	if lvl, ok := cfg.Level(); !ok || lvl != logs.InfoLevel {
		t.Fatalf("unexpected level %v ok=%v", lvl, ok)
	}
	if _, err := Template("nope"); err == nil {
		t.Fatalf("expected unknown kind error")
	}
}

func TestValidateDaemonConfigRejects(t *testing.T) {
	testlog.Start(t)
	cases := map[string]func(*DaemonConfig){
		"listen_addr":       func(c *DaemonConfig) { c.ListenAddr = "nope" },
		"must differ":       func(c *DaemonConfig) { c.AdminAddr = c.ListenAddr },
		"max_message_bytes": func(c *DaemonConfig) { c.MaxMessageBytes = 0 },
		"memory_limit":      func(c *DaemonConfig) { c.MemoryLimit = -1 },
		"max_payload_bytes": func(c *DaemonConfig) { c.MaxPayloadBytes = 0 },
		"read_timeout":      func(c *DaemonConfig) { c.ReadTimeout = "soon" },
		"write_timeout":     func(c *DaemonConfig) { c.WriteTimeout = "-1s" },
		"log_level":         func(c *DaemonConfig) { c.LogLevel = "loud" },
	}
	for want, mutate := range cases {
		cfg := DefaultDaemonConfig()
		mutate(&cfg)
		err := ValidateDaemonConfig(cfg)
		if err == nil || !strings.Contains(err.Error(), want) {
			t.Fatalf("%s: expected error mentioning %q, got %v", want, want, err)
		}
	}
}

func TestConversions(t *testing.T) {
	testlog.Start(t)
	cfg := DefaultDaemonConfig()
	cfg.MemoryLimit = 1 << 20
	cfg.MaxMessageBytes = 128
	cfg.ReadTimeout = "2s"
	cfg.MaxPayloadBytes = 1 << 10

	opts := cfg.DeviceOptions()
	if opts.MemoryLimit != 1<<20 || opts.MaxMessage != 128 {
		t.Fatalf("unexpected device options: %+v", opts)
	}
	sc := cfg.ServerConfig()
	if sc.Session.ReadTimeout != 2*time.Second || sc.Session.WriteTimeout != 15*time.Second {
		t.Fatalf("unexpected timeouts: %+v", sc.Session)
	}
	if sc.Limits.MaxPayloadBytes != 1<<10 {
		t.Fatalf("unexpected limits: %+v", sc.Limits)
	}
}
