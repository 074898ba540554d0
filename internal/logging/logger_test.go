package logging

import (
	"bytes"
	"strings"
	"testing"

	"github.com/sirupsen/logrus"
)

func TestNew_WritesAtLevel(t *testing.T) {
	var buf bytes.Buffer
	logger, err := New("warn", &buf)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	logger.Info("hidden")
	logger.WithField("task", "t1").Warn("shown")

	out := buf.String()
	if strings.Contains(out, "hidden") {
		t.Errorf("info line should be filtered at warn level: %q", out)
	}
	if !strings.Contains(out, "shown") || !strings.Contains(out, "task=t1") {
		t.Errorf("expected warn line with fields, got %q", out)
	}
}

func TestNew_DefaultLevel(t *testing.T) {
	logger, err := New("", &bytes.Buffer{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if logger.GetLevel() != logrus.InfoLevel {
		t.Errorf("expected info level, got %s", logger.GetLevel())
	}
}

func TestNew_InvalidLevel(t *testing.T) {
	if _, err := New("loud", &bytes.Buffer{}); err == nil {
		t.Fatal("expected error for invalid level")
	}
}

func TestOrDiscard(t *testing.T) {
	if OrDiscard(nil) == nil {
		t.Fatal("expected a logger for nil input")
	}
	logger := Discard()
	if OrDiscard(logger) != logger {
		t.Error("non-nil logger should be returned as-is")
	}
}
