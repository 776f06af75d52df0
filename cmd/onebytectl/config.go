package main

import (
	"fmt"
	"strings"
	"time"

	"github.com/BurntSushi/toml"

	"github.com/danmuck/onebyte/internal/config"
	"github.com/danmuck/onebyte/internal/protocol/frame"
	"github.com/danmuck/onebyte/internal/transport"
)

// onebytectl config.toml keys.
type fileConfig struct {
	Addr            string `toml:"addr"`
	DialTimeout     string `toml:"dial_timeout"`
	MaxAttempts     int    `toml:"max_attempts"`
	MaxPayloadBytes uint64 `toml:"max_payload_bytes"`
}

type clientConfig struct {
	Addr string
	Dial transport.ClientConfig
}

func defaultClientConfig() clientConfig {
	return clientConfig{Addr: config.DefaultListenAddr, Dial: transport.DefaultClientConfig()}
}

// loadClientConfig overlays the keys present in path onto the defaults.
func loadClientConfig(path string) (clientConfig, error) {
	cfg := defaultClientConfig()

	var raw fileConfig
	meta, err := toml.DecodeFile(path, &raw)
	if err != nil {
		return clientConfig{}, fmt.Errorf("load onebytectl config: %w", err)
	}

	if meta.IsDefined("addr") {
		if addr := strings.TrimSpace(raw.Addr); addr != "" {
			cfg.Addr = addr
		}
	}

	if meta.IsDefined("dial_timeout") {
		d, err := time.ParseDuration(strings.TrimSpace(raw.DialTimeout))
		if err != nil {
			return clientConfig{}, fmt.Errorf("parse dial_timeout: %w", err)
		}
		cfg.Dial.Session.ConnectTimeout = d
	}

	if meta.IsDefined("max_attempts") {
		if raw.MaxAttempts < 1 {
			return clientConfig{}, fmt.Errorf("max_attempts must be at least 1: %d", raw.MaxAttempts)
		}
		cfg.Dial.Session.MaxAttempts = raw.MaxAttempts
	}

	if meta.IsDefined("max_payload_bytes") {
		if raw.MaxPayloadBytes == 0 {
			return clientConfig{}, fmt.Errorf("max_payload_bytes must be positive")
		}
		cfg.Dial.Limits = frame.Limits{MaxPayloadBytes: raw.MaxPayloadBytes}
	}

	if undecoded := meta.Undecoded(); len(undecoded) > 0 {
		return clientConfig{}, fmt.Errorf("unknown onebytectl config keys: %v", undecoded)
	}
	return cfg, nil
}
