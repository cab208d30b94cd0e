package keytable

import "testing"

func TestBindLookupUnbind(t *testing.T) {
	tbl := NewTable(Root)
	f5, _ := ParseChord("F5")

	tbl.Bind(f5, []string{"display-message", "hi"}, false)
	b, ok := tbl.Lookup(f5)
	if !ok {
		t.Fatal("expected F5 binding to be found")
	}
	if len(b.Command) != 2 || b.Command[0] != "display-message" || b.Command[1] != "hi" {
		t.Fatalf("unexpected command: %+v", b.Command)
	}

	if !tbl.Unbind(f5) {
		t.Fatal("expected Unbind to report an existing binding removed")
	}
	if _, ok := tbl.Lookup(f5); ok {
		t.Fatal("expected F5 binding to be gone after unbind")
	}
	if tbl.Unbind(f5) {
		t.Fatal("expected second Unbind of the same chord to report nothing removed")
	}
}

func TestRegistryCreatesUserNamedTableOnDemand(t *testing.T) {
	r := NewRegistry()
	names := map[string]bool{}
	for _, n := range r.Names() {
		names[n] = true
	}
	for _, want := range []string{Root, Prefix, CopyMode, CopyModeVi} {
		if !names[want] {
			t.Errorf("expected standard table %q to exist", want)
		}
	}

	custom := r.Table("my-table")
	if custom.Name != "my-table" {
		t.Errorf("custom table name = %q, want my-table", custom.Name)
	}
	if r.Table("my-table") != custom {
		t.Error("expected a second Table() call to return the same instance")
	}
}

func TestSplitCommandChain(t *testing.T) {
	got := SplitCommandChain(`select-pane -t 0 \; resize-pane -Z`)
	want := []string{"select-pane -t 0", "resize-pane -Z"}
	if len(got) != len(want) {
		t.Fatalf("got %d parts, want %d: %+v", len(got), len(want), got)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("part %d = %q, want %q", i, got[i], want[i])
		}
	}
}

func TestSplitCommandChainNoSeparator(t *testing.T) {
	got := SplitCommandChain("new-window")
	if len(got) != 1 || got[0] != "new-window" {
		t.Fatalf("got %+v, want [new-window]", got)
	}
}
