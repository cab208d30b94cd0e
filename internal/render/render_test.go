package render

import (
	"testing"

	"psmux/internal/keytable"
	"psmux/internal/pty"
	"psmux/internal/session"
)

func newTestSession(t *testing.T) (*session.Manager, string) {
	t.Helper()
	m := session.NewManager()
	_, _, err := m.CreateSession("demo", "0", 20, 5, pty.Command{Shell: "/bin/sh"})
	if err != nil {
		t.Fatalf("CreateSession: %v", err)
	}
	return m, "demo"
}

func TestBuildFrameSingleLeaf(t *testing.T) {
	m, name := newTestSession(t)
	b := NewBuilder(m, nil, nil)

	frame, err := b.Build(name)
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	if frame.Layout == nil || frame.Layout.Type != "leaf" {
		t.Fatalf("expected a single leaf layout, got %+v", frame.Layout)
	}
	if len(frame.Windows) != 1 || !frame.Windows[0].Active {
		t.Fatalf("expected one active window, got %+v", frame.Windows)
	}
	if frame.DataVersion == 0 {
		t.Error("expected a non-zero data_version")
	}
}

func TestBuildFrameSplitProducesTwoLeaves(t *testing.T) {
	m, name := newTestSession(t)
	sess, _ := m.GetSession(name)
	win := sess.Windows[0]
	firstPaneID := win.Layout.PaneID

	if _, err := m.SplitPane(firstPaneID, "vertical", pty.Command{Shell: "/bin/sh"}); err != nil {
		t.Fatalf("SplitPane: %v", err)
	}

	b := NewBuilder(m, nil, nil)
	frame, err := b.Build(name)
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	if frame.Layout.Type != "split" || len(frame.Layout.Children) != 2 {
		t.Fatalf("expected a 2-child split, got %+v", frame.Layout)
	}
}

func TestUnchangedTracksDataVersion(t *testing.T) {
	m, name := newTestSession(t)
	b := NewBuilder(m, nil, nil)

	frame, err := b.Build(name)
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	if !b.Unchanged(frame.DataVersion) {
		t.Error("expected Unchanged to report true immediately after Build with the same version")
	}
	if b.Unchanged(frame.DataVersion + 1) {
		t.Error("expected Unchanged to report false for a different version")
	}
}

func TestStylesReflectsDispatcherPrefix(t *testing.T) {
	registry := keytable.NewDefaultRegistry()
	dispatcher := keytable.NewDispatcher(registry, keytable.DefaultPrimaryPrefix, keytable.Chord{}, 0)
	b := &Builder{Dispatcher: dispatcher}

	styles := b.styles()
	if styles.Prefix != keytable.DefaultPrimaryPrefix.String() {
		t.Errorf("Prefix = %q, want %q", styles.Prefix, keytable.DefaultPrimaryPrefix.String())
	}
	if styles.SecondaryPrefix != "" {
		t.Errorf("SecondaryPrefix = %q, want empty", styles.SecondaryPrefix)
	}
}
