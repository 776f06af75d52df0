package logs

import (
	"bytes"
	"strings"
	"testing"
)

func TestConfigureWritesAtLevel(t *testing.T) {
	var buf bytes.Buffer
	Configure(Config{Level: InfoLevel, Bypass: true, Out: &buf})
	t.Cleanup(func() { Configure(DefaultConfig()) })

	Debugf("dropped n=%d", 1)
	Infof("kept n=%d", 2)

	out := buf.String()
	if strings.Contains(out, "dropped") {
		t.Fatalf("debug line should be filtered: %q", out)
	}
	if !strings.Contains(out, "kept n=2") {
		t.Fatalf("expected info line, got %q", out)
	}
}

func TestSetLevel(t *testing.T) {
	var buf bytes.Buffer
	Configure(Config{Level: InfoLevel, Bypass: true, Out: &buf})
	t.Cleanup(func() { Configure(DefaultConfig()) })

	SetLevel(ErrorLevel)
	Warnf("quiet")
	Errf("loud")

	out := buf.String()
	if strings.Contains(out, "quiet") || !strings.Contains(out, "loud") {
		t.Fatalf("unexpected output: %q", out)
	}
}
