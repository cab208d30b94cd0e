package render

import (
	"testing"

	"psmux/internal/pty"
	"psmux/internal/session"
)

func TestExpandStatusFormatDefault(t *testing.T) {
	m := session.NewManager()
	_, _, err := m.CreateSession("work", "0", 80, 24, pty.Command{Shell: "/bin/sh"})
	if err != nil {
		t.Fatalf("CreateSession: %v", err)
	}
	sess, _ := m.GetSession("work")
	win := sess.Windows[0]

	got := ExpandStatusFormat("", win)
	want := "work: 0 0 (1 panes)"
	if got != want {
		t.Errorf("ExpandStatusFormat = %q, want %q", got, want)
	}
}

func TestExpandStatusFormatNilWindow(t *testing.T) {
	got := ExpandStatusFormat("#{session_name}|#{window_panes}", nil)
	if got != "|0" {
		t.Errorf("ExpandStatusFormat(nil) = %q, want |0", got)
	}
}
