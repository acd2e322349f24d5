package logger

import (
	"strings"
	"testing"
)

func TestConfigDefaults(t *testing.T) {
	cfg := &Config{}
	cfg.ApplyDefaults()

	if cfg.Level != "info" {
		t.Errorf("expected default level info, got %q", cfg.Level)
	}
	if cfg.Format != "console" {
		t.Errorf("expected default format console, got %q", cfg.Format)
	}
	if !cfg.Timestamp {
		t.Error("expected timestamps enabled by default")
	}
}

func TestConfigValidateRejectsUnknownLevel(t *testing.T) {
	cfg := &Config{Level: "verbose", Format: "json", Output: "stdout"}
	if err := cfg.Validate(); err == nil {
		t.Error("expected error for unknown level")
	}
}

func TestStringifyString(t *testing.T) {
	if got := Stringify("hello"); got != "hello" {
		t.Errorf("expected passthrough, got %q", got)
	}
}

func TestStringifyNil(t *testing.T) {
	if got := Stringify(nil); got != "" {
		t.Errorf("expected empty string for nil, got %q", got)
	}
}

func TestStringifyStruct(t *testing.T) {
	got := Stringify(struct {
		Name string `json:"name"`
	}{Name: "svc"})
	if got != `{"name":"svc"}` {
		t.Errorf("unexpected JSON: %q", got)
	}
}

func TestStringifyCycleNeverPanics(t *testing.T) {
	m := map[string]interface{}{}
	m["self"] = m

	got := Stringify(m)
	if !strings.Contains(got, "unserializable") {
		t.Errorf("expected placeholder for cyclic value, got %q", got)
	}
}

func TestStringifyChannel(t *testing.T) {
	got := Stringify(make(chan int))
	if !strings.Contains(got, "unserializable") {
		t.Errorf("expected placeholder for channel, got %q", got)
	}
}

func TestWithComponent(t *testing.T) {
	l := NewDefault("svc")
	cl := l.WithComponent("pipeline")
	if cl == nil {
		t.Fatal("expected non-nil component logger")
	}
	// Must not share identity with the parent.
	if cl == l {
		t.Error("expected a derived logger instance")
	}
}

func TestFieldsBuilder(t *testing.T) {
	m := Fields("a", 1, "b", "two")
	if m["a"] != 1 || m["b"] != "two" {
		t.Errorf("unexpected fields map: %v", m)
	}

	// Odd trailing value is dropped.
	m = Fields("a", 1, "orphan")
	if _, ok := m["orphan"]; ok {
		t.Error("expected orphan key to be dropped")
	}
}
