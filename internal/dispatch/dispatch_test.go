package dispatch

import (
	"testing"
	"time"

	"psmux/internal/control"
	"psmux/internal/keytable"
	"psmux/internal/session"
)

func newTestDispatcher(t *testing.T) *Dispatcher {
	t.Helper()
	mgr := session.NewManager()
	t.Cleanup(mgr.Close)
	srv := control.NewServer("test-key", 8)
	registry := keytable.NewDefaultRegistry()
	keys := keytable.NewDispatcher(registry, keytable.DefaultPrimaryPrefix, keytable.Chord{}, 500*time.Millisecond)
	return New(mgr, srv, keys, "/bin/sh", nil)
}

// Every verb registered across the package's init funcs must appear
// exactly once: registerVerbs silently overwrites a name that an earlier
// init func already registered, keeping only the last handler, so this
// catches an accidental second registration the way the teacher's
// router handler-count test does.
func TestVerbTableHasNoDuplicateHandlers(t *testing.T) {
	expected := []string{
		"new-session", "new-window", "split-window",
		"kill-pane", "kill-window", "kill-session", "kill-server",
		"rename-session", "rename-window", "resize-pane", "respawn-pane",
		"select-window", "select-pane", "last-window", "last-pane",
		"next-window", "previous-window", "has-session",
		"list-sessions", "list-windows", "list-panes", "server-info", "capture-pane",
		"copy-mode", "send-keys", "paste-buffer", "set-buffer", "show-buffer",
		"delete-buffer", "list-buffers",
		"dump-state", "dump-layout", "client-size", "send-key", "send-text", "send-paste",
		"mouse-down", "mouse-up", "mouse-drag", "mouse-down-right", "mouse-up-right",
		"mouse-down-middle", "mouse-up-middle", "mouse-move",
		"scroll-up", "scroll-down", "display-message",
		"bind-key", "unbind-key", "list-keys", "set-option", "show-options",
		"set-hook", "show-hooks",
	}
	if len(verbTable) != len(expected) {
		t.Fatalf("verbTable has %d entries, want %d (possible duplicate registration)", len(verbTable), len(expected))
	}
	for _, v := range expected {
		if _, ok := verbTable[v]; !ok {
			t.Errorf("expected verb %q to be registered", v)
		}
	}
}

func TestHandleUnknownVerb(t *testing.T) {
	d := newTestDispatcher(t)
	resp := d.handle(control.Request{Verb: "not-a-real-verb"})
	if resp.Err == nil {
		t.Fatal("expected an error response for an unknown verb")
	}
}

func TestNewSessionMarksStateAndMetaDirty(t *testing.T) {
	d := newTestDispatcher(t)
	resp := d.handle(control.Request{Verb: "new-session", Args: []string{"-s", "work"}})
	if resp.Err != nil {
		t.Fatalf("new-session: %v", resp.Err)
	}
	if !d.Manager.HasSession("work") {
		t.Fatal("expected session \"work\" to exist")
	}
	if !d.stateDirty || !d.metaDirty {
		t.Fatal("expected new-session to dirty both state and meta")
	}
}

func TestExecuteChainRunsEachSubcommandInOrder(t *testing.T) {
	d := newTestDispatcher(t)
	if resp := d.handle(control.Request{Verb: "new-session", Args: []string{"-s", "chained"}}); resp.Err != nil {
		t.Fatalf("new-session: %v", resp.Err)
	}

	argv := []string{"rename-session", "renamed-once", chainSeparator, "rename-session", "renamed-twice"}
	resp := d.executeChain(argv, "chained")
	if resp.Err != nil {
		t.Fatalf("executeChain: %v", resp.Err)
	}
	if d.Manager.HasSession("chained") {
		t.Fatal("expected original session name to be gone after rename chain")
	}
	if !d.Manager.HasSession("renamed-twice") {
		t.Fatal("expected the chain's second rename to be the one that stuck")
	}
}

func TestHandleDumpStateNCGateShortCircuitsWhenClean(t *testing.T) {
	d := newTestDispatcher(t)
	if resp := d.handle(control.Request{Verb: "new-session", Args: []string{"-s", "nctest"}}); resp.Err != nil {
		t.Fatalf("new-session: %v", resp.Err)
	}

	first := d.handle(control.Request{Verb: "dump-state", Target: "nctest", NC: true})
	if first.Kind != control.Blob {
		t.Fatalf("expected a full frame on the first NC dump-state, got kind %v", first.Kind)
	}
	if d.stateDirty {
		t.Fatal("expected stateDirty to be cleared after a successful Build")
	}

	second := d.handle(control.Request{Verb: "dump-state", Target: "nctest", NC: true})
	if second.Kind != control.Unchanged {
		t.Fatalf("expected Unchanged once nothing changed since the last build, got kind %v", second.Kind)
	}

	d.stateDirty = true
	third := d.handle(control.Request{Verb: "dump-state", Target: "nctest", NC: true})
	if third.Kind != control.Blob {
		t.Fatalf("expected a rebuilt frame once state_dirty was set again, got kind %v", third.Kind)
	}
}

func TestHandleDumpStateWithoutNCAlwaysRebuilds(t *testing.T) {
	d := newTestDispatcher(t)
	if resp := d.handle(control.Request{Verb: "new-session", Args: []string{"-s", "always"}}); resp.Err != nil {
		t.Fatalf("new-session: %v", resp.Err)
	}
	d.stateDirty = false

	resp := d.handle(control.Request{Verb: "dump-state", Target: "always"})
	if resp.Kind != control.Blob {
		t.Fatalf("expected a full frame when NC is not set, got kind %v", resp.Kind)
	}
}

func TestCopyModeEnterTrackAndExit(t *testing.T) {
	d := newTestDispatcher(t)
	resp := d.handle(control.Request{Verb: "new-session", Args: []string{"-s", "cm"}})
	if resp.Err != nil {
		t.Fatalf("new-session: %v", resp.Err)
	}
	sess, ok := d.Manager.GetSession("cm")
	if !ok {
		t.Fatal("expected session cm to exist")
	}
	paneID := sess.Windows[0].Panes[sess.Windows[0].Layout.PaneID].ID

	target := control.Request{Verb: "copy-mode", Target: "cm"}
	if resp := d.handle(target); resp.Err != nil {
		t.Fatalf("copy-mode: %v", resp.Err)
	}
	if _, inCopyMode := d.copyEngines[paneID]; !inCopyMode {
		t.Fatal("expected pane to be tracked as in copy mode")
	}

	d.exitCopyMode(paneID)
	if _, stillIn := d.copyEngines[paneID]; stillIn {
		t.Fatal("expected exitCopyMode to remove the pane from copyEngines")
	}
	if _, saved := d.savedEngines[paneID]; !saved {
		t.Fatal("expected exitCopyMode to retain the engine in savedEngines for a later resume")
	}

	// Re-entering copy mode on the same pane should resume the saved
	// engine rather than constructing a fresh one.
	if resp := d.handle(target); resp.Err != nil {
		t.Fatalf("copy-mode (resume): %v", resp.Err)
	}
	if _, stillSaved := d.savedEngines[paneID]; stillSaved {
		t.Fatal("expected the saved engine to be consumed on resume")
	}
}

func TestHandleResizePaneZoomTogglesPerWindow(t *testing.T) {
	d := newTestDispatcher(t)
	if resp := d.handle(control.Request{Verb: "new-session", Args: []string{"-s", "zoom"}}); resp.Err != nil {
		t.Fatalf("new-session: %v", resp.Err)
	}
	sess, _ := d.Manager.GetSession("zoom")
	winID := sess.Windows[0].ID

	resp := d.handle(control.Request{Verb: "resize-pane", Target: "zoom", Args: []string{"-Z"}})
	if resp.Err != nil {
		t.Fatalf("resize-pane -Z: %v", resp.Err)
	}
	if !d.zoomedWindow[winID] {
		t.Fatal("expected first -Z to zoom the window")
	}

	resp = d.handle(control.Request{Verb: "resize-pane", Target: "zoom", Args: []string{"-Z"}})
	if resp.Err != nil {
		t.Fatalf("resize-pane -Z: %v", resp.Err)
	}
	if d.zoomedWindow[winID] {
		t.Fatal("expected second -Z to unzoom the window")
	}
}

func TestBuildCommandFallsBackToShellWithNoArgs(t *testing.T) {
	cmd := buildCommand("/bin/sh", nil)
	if cmd.Shell != "/bin/sh" {
		t.Fatalf("expected Shell to be set, got %+v", cmd)
	}

	cmd = buildCommand("/bin/sh", []string{"echo", "hi"})
	if cmd.Program != "echo" || len(cmd.Args) != 1 || cmd.Args[0] != "hi" {
		t.Fatalf("expected Program/Args to be split from argv, got %+v", cmd)
	}
}

func TestFireHookRunsBoundCommand(t *testing.T) {
	d := newTestDispatcher(t)
	if resp := d.handle(control.Request{Verb: "new-session", Args: []string{"-s", "hooked"}}); resp.Err != nil {
		t.Fatalf("new-session: %v", resp.Err)
	}
	d.hooks["pane-died"] = []string{"rename-session renamed-by-hook"}

	d.fireHook("pane-died", 0, "hooked")

	if d.Manager.HasSession("hooked") {
		t.Fatal("expected the hook's rename-session to have fired")
	}
	if !d.Manager.HasSession("renamed-by-hook") {
		t.Fatal("expected the hook-bound rename to have taken effect")
	}
}
