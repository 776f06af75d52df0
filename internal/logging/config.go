package logging

import (
	"os"
	"strconv"
	"strings"
	"sync"

	"github.com/danmuck/onebyte/internal/logs"
)

const (
	EnvLogLevel     = "ONEBYTE_LOG_LEVEL"
	EnvLogTimestamp = "ONEBYTE_LOG_TIMESTAMP"
	EnvLogNoColor   = "ONEBYTE_LOG_NOCOLOR"
	EnvLogBypass    = "ONEBYTE_LOG_BYPASS"
)

// Profile selects a baseline logging configuration.
type Profile int

const (
	ProfileRuntime Profile = iota
	ProfileTest
)

var configureOnce sync.Once

// ConfigureRuntime applies daemon defaults: info level with timestamps.
func ConfigureRuntime() {
	Configure(ProfileRuntime)
}

// ConfigureTests applies test defaults: debug level, no timestamps.
func ConfigureTests() {
	Configure(ProfileTest)
}

// Configure applies profile defaults plus env overrides once per process.
// Later calls are no-ops, so tests and main may both call it.
func Configure(profile Profile) {
	configureOnce.Do(func() {
		cfg := defaultConfig(profile)
		applyEnvOverrides(&cfg)
		logs.Configure(cfg)
	})
}

// ParseLevel maps a level name (as used in config files and env) to a level.
func ParseLevel(raw string) (logs.Level, bool) {
	return parseLevel(raw)
}

func defaultConfig(profile Profile) logs.Config {
	cfg := logs.DefaultConfig()
	switch profile {
	case ProfileTest:
		cfg.Level = logs.DebugLevel
		cfg.Timestamp = false
		cfg.NoColor = true
	default:
		cfg.Level = logs.InfoLevel
		cfg.Timestamp = true
	}
	return cfg
}

// boolEnvs binds each switch in logs.Config to its env variable.
var boolEnvs = []struct {
	name string
	set  func(*logs.Config, bool)
}{
	{EnvLogTimestamp, func(c *logs.Config, v bool) { c.Timestamp = v }},
	{EnvLogNoColor, func(c *logs.Config, v bool) { c.NoColor = v }},
	{EnvLogBypass, func(c *logs.Config, v bool) { c.Bypass = v }},
}

// Unset or unparsable variables leave cfg alone.
func applyEnvOverrides(cfg *logs.Config) {
	if lvl, ok := parseLevel(os.Getenv(EnvLogLevel)); ok {
		cfg.Level = lvl
	}
	for _, env := range boolEnvs {
		if v, err := strconv.ParseBool(strings.TrimSpace(os.Getenv(env.name))); err == nil {
			env.set(cfg, v)
		}
	}
}

var levelNames = map[string]logs.Level{
	"trace":       logs.TraceLevel,
	"diagnostics": logs.TraceLevel,
	"debug":       logs.DebugLevel,
	"info":        logs.InfoLevel,
	"warn":        logs.WarnLevel,
	"warning":     logs.WarnLevel,
	"error":       logs.ErrorLevel,
	"disabled":    logs.Disabled,
	"disable":     logs.Disabled,
	"off":         logs.Disabled,
	"none":        logs.Disabled,
}

func parseLevel(raw string) (logs.Level, bool) {
	lvl, ok := levelNames[strings.ToLower(strings.TrimSpace(raw))]
	if !ok {
		return logs.InfoLevel, false
	}
	return lvl, true
}
