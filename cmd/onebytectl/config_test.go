package main

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/danmuck/onebyte/internal/config"
)

func writeClientConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.toml")
	if err := os.WriteFile(path, []byte(body), 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return path
}

func TestLoadClientConfigDefaultsAndOverrides(t *testing.T) {
	cfg, err := loadClientConfig(writeClientConfig(t, "dial_timeout = \"250ms\"\nmax_attempts = 2\nmax_payload_bytes = 1024\n"))
	if err != nil {
		t.Fatalf("load config: %v", err)
	}
	if cfg.Addr != config.DefaultListenAddr {
		t.Fatalf("unexpected addr: %q", cfg.Addr)
	}
	if cfg.Dial.Session.ConnectTimeout != 250*time.Millisecond {
		t.Fatalf("unexpected dial timeout: %v", cfg.Dial.Session.ConnectTimeout)
	}
	if cfg.Dial.Session.MaxAttempts != 2 {
		t.Fatalf("unexpected max attempts: %d", cfg.Dial.Session.MaxAttempts)
	}
	if cfg.Dial.Limits.MaxPayloadBytes != 1024 {
		t.Fatalf("unexpected payload limit: %d", cfg.Dial.Limits.MaxPayloadBytes)
	}
}

func TestLoadClientConfigTemplate(t *testing.T) {
	tmpl, err := config.Template("client")
	if err != nil {
		t.Fatalf("template: %v", err)
	}
	cfg, err := loadClientConfig(writeClientConfig(t, tmpl))
	if err != nil {
		t.Fatalf("load template: %v", err)
	}
	if cfg.Addr != "127.0.0.1:7600" || cfg.Dial.Session.MaxAttempts != 5 || cfg.Dial.Limits.MaxPayloadBytes != 8<<20 {
		t.Fatalf("unexpected config: %+v", cfg)
	}
}

func TestLoadClientConfigRejects(t *testing.T) {
	cases := map[string]string{
		"dial_timeout":      "dial_timeout = \"soon\"\n",
		"max_attempts":      "max_attempts = 0\n",
		"max_payload_bytes": "max_payload_bytes = 0\n",
		"unknown":           "adress = \"typo\"\n",
	}
	for want, body := range cases {
		_, err := loadClientConfig(writeClientConfig(t, body))
		if err == nil || !strings.Contains(err.Error(), want) {
			t.Fatalf("%s: expected error mentioning %q, got %v", want, want, err)
		}
	}
}
