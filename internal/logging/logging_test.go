package logging

import (
	"bytes"
	"path/filepath"
	"strings"
	"testing"
)

func TestInit_InvalidLevel(t *testing.T) {
	if err := Init(Options{Level: "loud"}); err == nil {
		t.Error("expected error for invalid level")
	}
}

func TestInit_LevelFiltersMessages(t *testing.T) {
	if err := Init(Options{Level: "warn", NoColor: true}); err != nil {
		t.Fatalf("Init() error = %v", err)
	}
	var buf bytes.Buffer
	SetOutput(&buf)

	Info(Fields{"k": "v"}, "hidden message")
	Warn(Fields{"k": "v"}, "visible message")

	out := buf.String()
	if strings.Contains(out, "hidden message") {
		t.Errorf("info message should be filtered at warn level, got %q", out)
	}
	if !strings.Contains(out, "visible message") {
		t.Errorf("expected warn message in output, got %q", out)
	}
}

func TestHelpers_NilFields(t *testing.T) {
	if err := Init(Options{Level: "debug", NoColor: true}); err != nil {
		t.Fatalf("Init() error = %v", err)
	}
	var buf bytes.Buffer
	SetOutput(&buf)

	Debug(nil, "debug line")
	Error(nil, "error line")

	out := buf.String()
	if !strings.Contains(out, "debug line") || !strings.Contains(out, "error line") {
		t.Errorf("expected both lines in output, got %q", out)
	}
}

func TestWithRequestID(t *testing.T) {
	if err := Init(Options{NoColor: true}); err != nil {
		t.Fatalf("Init() error = %v", err)
	}

	e := WithRequestID("")
	if e.Data["request_id"] != "unknown" {
		t.Errorf("expected request_id 'unknown', got %v", e.Data["request_id"])
	}

	e = WithRequestID("abc-123")
	if e.Data["request_id"] != "abc-123" {
		t.Errorf("expected request_id 'abc-123', got %v", e.Data["request_id"])
	}
}

func TestInit_WithFile(t *testing.T) {
	file := filepath.Join(t.TempDir(), "face-matcher.log")
	if err := Init(Options{File: file}); err != nil {
		t.Fatalf("Init() error = %v", err)
	}
	t.Cleanup(func() { _ = Init(Options{}) })

	if L() == nil {
		t.Fatal("expected logger")
	}
}
