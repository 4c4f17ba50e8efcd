package logging

import (
	"bytes"
	"strings"
	"testing"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

func TestParseLevel(t *testing.T) {
	cases := []struct {
		raw     string
		want    zapcore.Level
		wantErr bool
	}{
		{"", zapcore.InfoLevel, false},
		{"debug", zapcore.DebugLevel, false},
		{" WARN ", zapcore.WarnLevel, false},
		{"error", zapcore.ErrorLevel, false},
		{"chatty", zapcore.InfoLevel, true},
	}
	for _, tc := range cases {
		got, err := ParseLevel(tc.raw)
		if (err != nil) != tc.wantErr {
			t.Fatalf("ParseLevel(%q) err=%v wantErr=%v", tc.raw, err, tc.wantErr)
		}
		if got != tc.want {
			t.Fatalf("ParseLevel(%q)=%v want %v", tc.raw, got, tc.want)
		}
	}
}

func TestNew(t *testing.T) {
	logger, err := New(Config{Level: "debug", Development: true})
	if err != nil {
		t.Fatalf("new: %v", err)
	}
	if !logger.Core().Enabled(zapcore.DebugLevel) {
		t.Fatal("expected debug enabled")
	}
	if _, err := New(Config{Level: "loud"}); err == nil {
		t.Fatal("expected invalid level error")
	}
}

func TestNewWriter(t *testing.T) {
	var buf bytes.Buffer
	logger := NewWriter(&buf, zapcore.InfoLevel)
	logger.Debug("hidden")
	logger.Info("species updated", zap.String("id", "7"))
	out := buf.String()
	if strings.Contains(out, "hidden") {
		t.Fatalf("debug entry leaked: %s", out)
	}
	if !strings.Contains(out, `"id":"7"`) || !strings.Contains(out, "species updated") {
		t.Fatalf("unexpected output %s", out)
	}
}

func TestOrNop(t *testing.T) {
	if OrNop(nil) == nil {
		t.Fatal("expected nop logger")
	}
	l := zap.NewExample()
	if OrNop(l) != l {
		t.Fatal("expected passthrough")
	}
}
