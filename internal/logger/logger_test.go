package logger

import (
	"bytes"
	"strings"
	"testing"

	"go.uber.org/zap/zapcore"
)

func TestParseLevel(t *testing.T) {
	cases := []struct {
		in   string
		want zapcore.Level
	}{
		{DebugLevel, zapcore.DebugLevel},
		{InfoLevel, zapcore.InfoLevel},
		{WarnLevel, zapcore.WarnLevel},
		{ErrorLevel, zapcore.ErrorLevel},
		{" WARN ", zapcore.WarnLevel},
		{"fatal", zapcore.ErrorLevel},
		{"bogus", zapcore.DebugLevel},
		{"", zapcore.DebugLevel},
	}
	for _, tc := range cases {
		if got := parseLevel(tc.in); got != tc.want {
			t.Errorf("parseLevel(%q) = %v, want %v", tc.in, got, tc.want)
		}
	}
}

func TestNewLogger_FiltersAndNames(t *testing.T) {
	var buf bytes.Buffer
	log := newLogger(WarnLevel, zapcore.AddSync(&buf)).Named("oven")

	log.Infow("oven_tick", "temperature", 20.5)
	log.Warnw("oven_emergency_shutoff", "temperature", 1301.2)

	out := buf.String()
	if strings.Contains(out, "oven_tick") {
		t.Fatalf("info line written at warn level: %q", out)
	}
	for _, want := range []string{"WARN", "oven", "oven_emergency_shutoff", `"temperature": 1301.2`} {
		if !strings.Contains(out, want) {
			t.Fatalf("output %q missing %q", out, want)
		}
	}
}

func TestOrNop(t *testing.T) {
	if OrNop(nil) == nil {
		t.Fatal("OrNop(nil) returned nil")
	}
	l := New(InfoLevel)
	if OrNop(l) != l {
		t.Fatal("OrNop should return the given logger")
	}
	// must not panic
	Nop().Named("x").Infow("discarded", "k", 1)
}
