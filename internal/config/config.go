// Package config loads and validates the onebyted daemon configuration.
package config

import (
	"fmt"
	"net"
	"os"
	"strings"
	"time"

	"github.com/pelletier/go-toml/v2"

	"github.com/danmuck/onebyte/internal/logging"
)

const (
	DefaultName       = "onebyte"
	DefaultListenAddr = "127.0.0.1:7600"
	DefaultAdminAddr  = "127.0.0.1:7601"
)

// DaemonConfig is the onebyted file format. Durations are Go duration
// strings. An explicit empty admin_addr disables the admin server; a
// non-empty admin_token guards its POST routes.
type DaemonConfig struct {
	Name            string   `toml:"name"`
	ListenAddr      string   `toml:"listen_addr"`
	AdminAddr       string   `toml:"admin_addr"`
	AdminToken      string   `toml:"admin_token"`
	CorsOrigins     []string `toml:"cors_origins"`
	LogLevel        string   `toml:"log_level"`
	MaxMessageBytes int      `toml:"max_message_bytes"`
	MemoryLimit     int64    `toml:"memory_limit"`
	MaxPayloadBytes uint64   `toml:"max_payload_bytes"`
	ReadTimeout     string   `toml:"read_timeout"`
	WriteTimeout    string   `toml:"write_timeout"`
}

func DefaultDaemonConfig() DaemonConfig {
	return DaemonConfig{
		Name:            DefaultName,
		ListenAddr:      DefaultListenAddr,
		AdminAddr:       DefaultAdminAddr,
		CorsOrigins:     []string{},
		MaxMessageBytes: 4 << 20,
		MaxPayloadBytes: 8 << 20,
		ReadTimeout:     "0s",
		WriteTimeout:    "15s",
	}
}

// LoadDaemonConfig reads path over the defaults and validates the result.
func LoadDaemonConfig(path string) (DaemonConfig, error) {
	cfg := DefaultDaemonConfig()
	if err := loadToml(path, &cfg); err != nil {
		return DaemonConfig{}, err
	}
	cfg.Name = strings.TrimSpace(cfg.Name)
	cfg.ListenAddr = strings.TrimSpace(cfg.ListenAddr)
	cfg.AdminAddr = strings.TrimSpace(cfg.AdminAddr)
	if cfg.Name == "" {
		cfg.Name = DefaultName
	}
	if err := ValidateDaemonConfig(cfg); err != nil {
		return DaemonConfig{}, err
	}
	return cfg, nil
}

func loadToml(path string, out any) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("config load failed (%s): %w", path, err)
	}
	if err := toml.Unmarshal(data, out); err != nil {
		return fmt.Errorf("config parse failed (%s): %w", path, err)
	}
	return nil
}

func ValidateDaemonConfig(cfg DaemonConfig) error {
	if strings.TrimSpace(cfg.Name) == "" {
		return fmt.Errorf("daemon config missing name")
	}
	if err := validateAddr("listen_addr", cfg.ListenAddr); err != nil {
		return err
	}
	if cfg.AdminAddr != "" {
		if err := validateAddr("admin_addr", cfg.AdminAddr); err != nil {
			return err
		}
		if cfg.AdminAddr == cfg.ListenAddr {
			return fmt.Errorf("admin_addr and listen_addr must differ: %s", cfg.AdminAddr)
		}
	}
	if cfg.MaxMessageBytes <= 0 {
		return fmt.Errorf("max_message_bytes must be positive: %d", cfg.MaxMessageBytes)
	}
	if cfg.MemoryLimit < 0 {
		return fmt.Errorf("memory_limit must not be negative: %d", cfg.MemoryLimit)
	}
	if cfg.MaxPayloadBytes == 0 {
		return fmt.Errorf("max_payload_bytes must be positive")
	}
	if _, err := parseTimeout("read_timeout", cfg.ReadTimeout); err != nil {
		return err
	}
	if _, err := parseTimeout("write_timeout", cfg.WriteTimeout); err != nil {
		return err
	}
	if cfg.LogLevel != "" {
		if _, ok := logging.ParseLevel(cfg.LogLevel); !ok {
			return fmt.Errorf("log_level not recognized: %q", cfg.LogLevel)
		}
	}
	return nil
}

func validateAddr(key, addr string) error {
	if strings.TrimSpace(addr) == "" {
		return fmt.Errorf("daemon config missing %s", key)
	}
	if _, _, err := net.SplitHostPort(addr); err != nil {
		return fmt.Errorf("%s invalid (%s): %w", key, addr, err)
	}
	return nil
}

// parseTimeout accepts an empty value as zero, meaning no deadline.
func parseTimeout(key, raw string) (time.Duration, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return 0, nil
	}
	d, err := time.ParseDuration(raw)
	if err != nil {
		return 0, fmt.Errorf("parse %s: %w", key, err)
	}
	if d < 0 {
		return 0, fmt.Errorf("%s must not be negative: %s", key, raw)
	}
	return d, nil
}
