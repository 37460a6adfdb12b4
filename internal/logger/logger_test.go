package logger

import (
	"testing"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func TestParseLevel(t *testing.T) {
	tests := []struct {
		in   string
		want bool
	}{
		{"debug", true},
		{"info", true},
		{"warn", true},
		{"error", true},
		{"trace", false},
		{"", false},
	}

	for _, tt := range tests {
		if got := ValidLevel(tt.in); got != tt.want {
			t.Errorf("ValidLevel(%q) = %v, want %v", tt.in, got, tt.want)
		}
	}
}

func TestLevelForVerbosity(t *testing.T) {
	if got := LevelForVerbosity("warn", 0); got != "warn" {
		t.Errorf("expected configured level to be kept, got %q", got)
	}
	if got := LevelForVerbosity("warn", 2); got != "debug" {
		t.Errorf("expected debug for -vv, got %q", got)
	}
}

func TestNopWith(t *testing.T) {
	log := Nop().With(String("component", "test"))
	log.Info("discarded", Bool("ok", true), Strings("list", []string{"a"}))
	if err := log.Sync(); err != nil {
		t.Fatalf("Sync on nop logger: %v", err)
	}
}

func TestWithCarriesFields(t *testing.T) {
	core, logs := observer.New(zapcore.DebugLevel)
	log := FromZap(zap.New(core)).With(String("component", "probe"))

	log.Warn("endpoint unreachable", Int("attempt", 2))

	entries := logs.All()
	if len(entries) != 1 {
		t.Fatalf("got %d entries, want 1", len(entries))
	}
	ctx := entries[0].ContextMap()
	if ctx["component"] != "probe" || ctx["attempt"] != int64(2) {
		t.Errorf("unexpected fields: %v", ctx)
	}
	if entries[0].Level != zapcore.WarnLevel {
		t.Errorf("level = %v", entries[0].Level)
	}
}
