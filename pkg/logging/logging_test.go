package logging

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

// fd of a file that is never a terminal
const notty = ^uintptr(0)

func TestParseLevel(t *testing.T) {
	for _, s := range []string{"debug", "info", "warn", "error", ""} {
		if _, err := ParseLevel(s); err != nil {
			t.Errorf("ParseLevel(%q): %v", s, err)
		}
	}
	if _, err := ParseLevel("loud"); err == nil {
		t.Errorf("ParseLevel(loud) should fail")
	}
	if _, err := New("loud", ""); err == nil {
		t.Errorf("New with a bad level should fail")
	}
}

func TestConsole(t *testing.T) {
	var buf bytes.Buffer
	l, err := NewWriter(&buf, notty, "info", "")
	if err != nil {
		t.Fatal(err)
	}
	l.Debugf("hidden %d", 1)
	l.Infof("shown %d", 2)
	l.With("wayline", 3).Warnf("route skipped")
	out := buf.String()
	if strings.Contains(out, "hidden") || !strings.Contains(out, "shown 2") {
		t.Errorf("output = %q", out)
	}
	if !strings.Contains(out, `"wayline":3`) {
		t.Errorf("attributes missing from %q", out)
	}
	if err := l.Close(); err != nil {
		t.Errorf("Close: %v", err)
	}
}

func TestFile(t *testing.T) {
	var buf bytes.Buffer
	dir := filepath.Join(t.TempDir(), "logs")
	l, err := NewWriter(&buf, notty, "debug", dir)
	if err != nil {
		t.Fatal(err)
	}
	l.Debugf("details")
	l.Errorf("broken %s", "thing")
	if err := l.Close(); err != nil {
		t.Fatal(err)
	}
	if l.LogFile != filepath.Join(dir, LogName) {
		t.Errorf("LogFile = %q", l.LogFile)
	}
	dat, err := os.ReadFile(l.LogFile)
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(string(dat), "details") || !strings.Contains(string(dat), "broken thing") {
		t.Errorf("log file = %q", dat)
	}
	if out := buf.String(); strings.Contains(out, "details") || !strings.Contains(out, "broken thing") {
		t.Errorf("console should only get warnings and errors: %q", out)
	}
}

func TestNilLogger(t *testing.T) {
	var l *Logger
	l.Debugf("x")
	l.Infof("x")
	l.Warnf("x")
	l.Errorf("x")
	if l.With("a", 1) != nil || l.Close() != nil {
		t.Errorf("nil logger should stay nil")
	}
}
