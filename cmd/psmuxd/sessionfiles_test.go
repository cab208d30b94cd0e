package main

import (
	"log/slog"
	"testing"

	"psmux/internal/control"
	"psmux/internal/pty"
	"psmux/internal/session"
	"psmux/internal/testutil"
)

func newTestRegistry(t *testing.T) (*sessionFileRegistry, string) {
	t.Helper()
	dir := t.TempDir()
	logBuf := testutil.CaptureLogBuffer(t, slog.LevelWarn)
	logger := slog.New(slog.NewTextHandler(logBuf, nil))
	portPtr := testutil.Ptr(4242)
	reg := newSessionFileRegistry(dir, "default", "testkey", *portPtr, logger)
	_ = logBuf
	return reg, dir
}

func TestSessionFileRegistryReconcileWritesFilesForNewSessions(t *testing.T) {
	reg, dir := newTestRegistry(t)
	if !reg.empty() {
		t.Fatal("new registry should start empty")
	}

	mgr := session.NewManager()
	defer mgr.Close()
	if _, _, err := mgr.CreateSession("work", "main", 80, 24, pty.Command{Shell: "/bin/sh"}); err != nil {
		t.Fatalf("CreateSession: %v", err)
	}

	reg.reconcile(mgr)
	if reg.empty() {
		t.Fatal("registry should track the session created above")
	}

	port, err := control.ReadPortFile(dir, reg.socket, "work")
	if err != nil {
		t.Fatalf("ReadPortFile: %v", err)
	}
	if port != reg.port {
		t.Fatalf("port = %d, want %d", port, reg.port)
	}
	key, err := control.ReadKeyFile(dir, reg.socket, "work")
	if err != nil {
		t.Fatalf("ReadKeyFile: %v", err)
	}
	if key != reg.authKey {
		t.Fatalf("key = %q, want %q", key, reg.authKey)
	}
	if got := control.ReadLastSession(dir); got != "work" {
		t.Fatalf("ReadLastSession = %q, want %q", got, "work")
	}
}

func TestSessionFileRegistryReconcileRemovesFilesForGoneSessions(t *testing.T) {
	reg, dir := newTestRegistry(t)

	mgr := session.NewManager()
	defer mgr.Close()
	if _, _, err := mgr.CreateSession("scratch", "main", 80, 24, pty.Command{Shell: "/bin/sh"}); err != nil {
		t.Fatalf("CreateSession: %v", err)
	}
	reg.reconcile(mgr)
	if _, err := control.ReadPortFile(dir, reg.socket, "scratch"); err != nil {
		t.Fatalf("expected port file to exist after first reconcile: %v", err)
	}

	if _, err := mgr.RemoveSession("scratch"); err != nil {
		t.Fatalf("RemoveSession: %v", err)
	}
	reg.reconcile(mgr)

	if !reg.empty() {
		t.Fatal("registry should be empty once its only session is gone")
	}
	if _, err := control.ReadPortFile(dir, reg.socket, "scratch"); err == nil {
		t.Fatal("expected port file to be removed once the session is gone")
	}
}

func TestSessionFileRegistryReconcileIsIdempotentForAnExistingSession(t *testing.T) {
	reg, _ := newTestRegistry(t)

	mgr := session.NewManager()
	defer mgr.Close()
	if _, _, err := mgr.CreateSession("idem", "main", 80, 24, pty.Command{Shell: "/bin/sh"}); err != nil {
		t.Fatalf("CreateSession: %v", err)
	}

	reg.reconcile(mgr)
	reg.reconcile(mgr)
	reg.reconcile(mgr)

	if len(reg.tracked) != 1 {
		t.Fatalf("tracked = %v, want exactly one entry", reg.tracked)
	}
	if !reg.tracked["idem"] {
		t.Fatal("expected idem to still be tracked")
	}
}

func TestSessionFileRegistryRemoveAllClearsEveryTrackedSession(t *testing.T) {
	reg, dir := newTestRegistry(t)

	mgr := session.NewManager()
	defer mgr.Close()
	for _, name := range []string{"a", "b"} {
		if _, _, err := mgr.CreateSession(name, "main", 80, 24, pty.Command{Shell: "/bin/sh"}); err != nil {
			t.Fatalf("CreateSession(%q): %v", name, err)
		}
	}
	reg.reconcile(mgr)
	if len(reg.tracked) != 2 {
		t.Fatalf("tracked = %v, want 2 entries", reg.tracked)
	}

	reg.removeAll()

	if !reg.empty() {
		t.Fatal("removeAll should leave the registry empty")
	}
	for _, name := range []string{"a", "b"} {
		if _, err := control.ReadPortFile(dir, reg.socket, name); err == nil {
			t.Fatalf("expected port file for %q to be removed", name)
		}
	}
}
