package domain

import (
	"testing"
	"time"
)

func TestNewCommand(t *testing.T) {
	c := NewCommand("AT\r\n", 250)

	if c.Text() != "AT\r\n" {
		t.Errorf("Text() = %q, want %q", c.Text(), "AT\r\n")
	}
	if c.PostSendDelay != 250*time.Millisecond {
		t.Errorf("PostSendDelay = %v, want 250ms", c.PostSendDelay)
	}
}

func TestNewScript_CopiesInput(t *testing.T) {
	cmds := []Command{NewCommand("PING\r\n", 100), NewCommand("INFO\r\n", 0)}
	s := NewScript(cmds...)

	cmds[0].Payload[0] = 'X'
	cmds[1] = NewCommand("CHANGED\r\n", 1)

	if got := s.At(0).Text(); got != "PING\r\n" {
		t.Errorf("At(0) = %q after mutating input, want PING", got)
	}
	if got := s.At(1).Text(); got != "INFO\r\n" {
		t.Errorf("At(1) = %q after mutating input, want INFO", got)
	}
}

func TestScript_Empty(t *testing.T) {
	var zero Script
	if !zero.Empty() || zero.Len() != 0 {
		t.Errorf("zero Script: Empty() = %v, Len() = %d", zero.Empty(), zero.Len())
	}
	if s := NewScript(); !s.Empty() {
		t.Error("NewScript() with no commands should be empty")
	}
	if s := NewScript(NewCommand("AT\r\n", 0)); s.Empty() || s.Len() != 1 {
		t.Errorf("one-command script: Empty() = %v, Len() = %d", s.Empty(), s.Len())
	}
}

func TestScript_Texts(t *testing.T) {
	s := NewScript(NewCommand("A\r\n", 0), NewCommand("B\r\n", 0))
	got := s.Texts()
	if len(got) != 2 || got[0] != "A\r\n" || got[1] != "B\r\n" {
		t.Errorf("Texts() = %q", got)
	}
}

func TestAction_String(t *testing.T) {
	tests := []struct {
		action Action
		want   string
		valid  bool
	}{
		{ActionAdvance, "advance", true},
		{ActionRestart, "restart", true},
		{Action(7), "unknown(7)", false},
	}

	for _, tt := range tests {
		if got := tt.action.String(); got != tt.want {
			t.Errorf("Action(%d).String() = %s, want %s", tt.action, got, tt.want)
		}
		if got := tt.action.Valid(); got != tt.valid {
			t.Errorf("Action(%d).Valid() = %v, want %v", tt.action, got, tt.valid)
		}
	}
}
