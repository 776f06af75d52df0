package config

import (
	"github.com/danmuck/onebyte/internal/device"
	"github.com/danmuck/onebyte/internal/logging"
	"github.com/danmuck/onebyte/internal/logs"
	"github.com/danmuck/onebyte/internal/transport"
)

// DeviceOptions maps the file settings onto device.Load.
func (c DaemonConfig) DeviceOptions() device.Options {
	return device.Options{
		MemoryLimit: c.MemoryLimit,
		MaxMessage:  c.MaxMessageBytes,
	}
}

// ServerConfig maps the file settings onto the transport server. c must
// have passed ValidateDaemonConfig.
func (c DaemonConfig) ServerConfig() transport.ServerConfig {
	cfg := transport.DefaultServerConfig()
	cfg.Limits.MaxPayloadBytes = c.MaxPayloadBytes
	cfg.Session.ReadTimeout, _ = parseTimeout("read_timeout", c.ReadTimeout)
	cfg.Session.WriteTimeout, _ = parseTimeout("write_timeout", c.WriteTimeout)
	return cfg
}

// Level reports the configured log level, if any.
func (c DaemonConfig) Level() (logs.Level, bool) {
	if c.LogLevel == "" {
		return logs.InfoLevel, false
	}
	return logging.ParseLevel(c.LogLevel)
}
