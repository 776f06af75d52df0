package logging

import (
	"testing"

	"github.com/danmuck/onebyte/internal/logs"
)

func TestParseLevel(t *testing.T) {
	cases := map[string]logs.Level{
		"trace":    logs.TraceLevel,
		" DEBUG ":  logs.DebugLevel,
		"info":     logs.InfoLevel,
		"warning":  logs.WarnLevel,
		"error":    logs.ErrorLevel,
		"off":      logs.Disabled,
		"disabled": logs.Disabled,
	}
	for raw, want := range cases {
		got, ok := ParseLevel(raw)
		if !ok {
			t.Fatalf("expected %q to parse", raw)
		}
		if got != want {
			t.Fatalf("level %q: got=%v want=%v", raw, got, want)
		}
	}
	if _, ok := ParseLevel("loud"); ok {
		t.Fatalf("expected unknown level to be rejected")
	}
	if _, ok := ParseLevel(""); ok {
		t.Fatalf("expected empty level to be rejected")
	}
}

func TestApplyEnvOverrides(t *testing.T) {
	t.Setenv(EnvLogLevel, "warn")
	t.Setenv(EnvLogTimestamp, "false")
	t.Setenv(EnvLogNoColor, "true")
	t.Setenv(EnvLogBypass, "not-a-bool")

	cfg := defaultConfig(ProfileRuntime)
	applyEnvOverrides(&cfg)
	if cfg.Level != logs.WarnLevel {
		t.Fatalf("unexpected level: %v", cfg.Level)
	}
	if cfg.Timestamp {
		t.Fatalf("expected timestamp disabled")
	}
	if !cfg.NoColor {
		t.Fatalf("expected color disabled")
	}
	if cfg.Bypass {
		t.Fatalf("invalid bool should leave bypass unset")
	}
}

func TestDefaultConfigTestProfile(t *testing.T) {
	cfg := defaultConfig(ProfileTest)
	if cfg.Level != logs.DebugLevel || cfg.Timestamp {
		t.Fatalf("unexpected test profile: %+v", cfg)
	}
}
