package session

import (
	"testing"

	"psmux/internal/pty"
	"psmux/internal/tree"
)

func TestCreateSessionSpawnsOneWindowOnePane(t *testing.T) {
	m := NewManager()
	defer m.Close()

	session, pane, err := m.CreateSession("work", "main", 80, 24, pty.Command{Shell: "/bin/sh"})
	if err != nil {
		t.Fatalf("CreateSession: %v", err)
	}
	if session.Name != "work" {
		t.Fatalf("session name = %q, want work", session.Name)
	}
	if len(session.Windows) != 1 || len(session.Windows[0].Panes) != 1 {
		t.Fatalf("expected exactly one window with one pane, got %+v", session.Windows)
	}
	if pane.Window == nil {
		t.Fatal("expected new pane to have a window")
	}
}

func TestSplitPaneGrowsTreeAndPaneMap(t *testing.T) {
	m := NewManager()
	defer m.Close()

	_, pane, err := m.CreateSession("split-test", "main", 80, 24, pty.Command{Shell: "/bin/sh"})
	if err != nil {
		t.Fatalf("CreateSession: %v", err)
	}

	newPane, err := m.SplitPane(pane.ID, tree.Vertical, pty.Command{Shell: "/bin/sh"})
	if err != nil {
		t.Fatalf("SplitPane: %v", err)
	}
	if newPane.ID == pane.ID {
		t.Fatal("expected a distinct pane id for the split")
	}

	got, ok := m.GetSession("split-test")
	if !ok {
		t.Fatal("expected session to still exist")
	}
	if len(got.Windows[0].Panes) != 2 {
		t.Fatalf("expected 2 panes after split, got %d", len(got.Windows[0].Panes))
	}
}

func TestKillPaneRemovesSessionWhenLastPane(t *testing.T) {
	m := NewManager()
	defer m.Close()

	_, pane, err := m.CreateSession("solo", "main", 80, 24, pty.Command{Shell: "/bin/sh"})
	if err != nil {
		t.Fatalf("CreateSession: %v", err)
	}

	sessionName, removedSession, err := m.KillPane(pane.ID)
	if err != nil {
		t.Fatalf("KillPane: %v", err)
	}
	if sessionName != "solo" {
		t.Fatalf("sessionName = %q, want solo", sessionName)
	}
	if !removedSession {
		t.Fatal("expected session to be removed after killing its only pane")
	}
	if m.HasSession("solo") {
		t.Fatal("expected session to be gone")
	}
}

func TestAddWindowCreatesSecondWindow(t *testing.T) {
	m := NewManager()
	defer m.Close()

	_, _, err := m.CreateSession("multi", "main", 80, 24, pty.Command{Shell: "/bin/sh"})
	if err != nil {
		t.Fatalf("CreateSession: %v", err)
	}
	window, _, err := m.AddWindow("multi", "second", 80, 24, pty.Command{Shell: "/bin/sh"})
	if err != nil {
		t.Fatalf("AddWindow: %v", err)
	}
	if window.Name != "second" {
		t.Fatalf("window name = %q, want second", window.Name)
	}

	got, _ := m.GetSession("multi")
	if len(got.Windows) != 2 {
		t.Fatalf("expected 2 windows, got %d", len(got.Windows))
	}
	if got.ActiveWindowID != window.ID {
		t.Fatalf("expected new window to become active, got %d want %d", got.ActiveWindowID, window.ID)
	}
}

func TestResolveTargetByPaneID(t *testing.T) {
	m := NewManager()
	defer m.Close()

	_, pane, err := m.CreateSession("resolve", "main", 80, 24, pty.Command{Shell: "/bin/sh"})
	if err != nil {
		t.Fatalf("CreateSession: %v", err)
	}
	got, err := m.ResolveTarget(pane.IDString(), -1)
	if err != nil {
		t.Fatalf("ResolveTarget: %v", err)
	}
	if got.ID != pane.ID {
		t.Fatalf("resolved pane id = %d, want %d", got.ID, pane.ID)
	}
}
