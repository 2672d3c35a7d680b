package logging

import "testing"

func TestNewLevels(t *testing.T) {
	for _, lvl := range []string{"debug", "info", "WARN", " error "} {
		l, err := New(lvl, false)
		if err != nil {
			t.Fatalf("New(%q): %v", lvl, err)
		}
		l.Sync()
	}
}

func TestNewDevelopment(t *testing.T) {
	l, err := New("debug", true)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if !l.Core().Enabled(-1) {
		t.Error("expected debug level enabled")
	}
}

func TestNewBadLevel(t *testing.T) {
	if _, err := New("loud", false); err == nil {
		t.Fatal("expected error for unknown level")
	}
}

func TestRedact(t *testing.T) {
	if got := Redact(""); got != "NOT SET" {
		t.Errorf("Redact(\"\") = %q", got)
	}
	if got := Redact("password"); got != "p*******" {
		t.Errorf("Redact(password) = %q", got)
	}
}
