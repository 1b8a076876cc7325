package logging

import (
	"bytes"
	"strings"
	"testing"
)

func TestLoggerLevels(t *testing.T) {
	var buf bytes.Buffer
	l := NewLogger(&buf, LevelWarn)

	l.Errorf("an error: %d", 1)
	l.Warnf("a warning")
	l.Infof("info should be suppressed")
	l.Debugf("debug should be suppressed")

	out := buf.String()
	if !strings.Contains(out, "ERROR an error: 1") {
		t.Errorf("missing error line in %q", out)
	}
	if !strings.Contains(out, "WARN a warning") {
		t.Errorf("missing warn line in %q", out)
	}
	if strings.Contains(out, "info") || strings.Contains(out, "debug") {
		t.Errorf("suppressed levels leaked into %q", out)
	}
}

func TestLevelString(t *testing.T) {
	for level, want := range map[Level]string{
		LevelError: "ERROR",
		LevelWarn:  "WARN",
		LevelInfo:  "INFO",
		LevelDebug: "DEBUG",
		Level(99):  "UNKNOWN",
	} {
		if level.String() != want {
			t.Errorf("Level(%d).String() = %q, want %q", level, level.String(), want)
		}
	}
}

func TestDiscard(t *testing.T) {
	// Must not panic.
	Discard.Errorf("x")
	Discard.Warnf("x")
	Discard.Infof("x")
	Discard.Debugf("x")
}
