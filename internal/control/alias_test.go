package control

import "testing"

func TestAliasTableExpandsDefaults(t *testing.T) {
	table := NewAliasTable()
	if got := table.Expand("ls"); got != "list-sessions" {
		t.Fatalf("Expand(ls) = %q, want list-sessions", got)
	}
}

func TestAliasTableExpandPassesThroughUnknownVerb(t *testing.T) {
	table := NewAliasTable()
	if got := table.Expand("split-window"); got != "split-window" {
		t.Fatalf("Expand(split-window) = %q, want split-window unchanged", got)
	}
}

func TestAliasTableSetOverridesAndAdds(t *testing.T) {
	table := NewAliasTable()
	table.Set("sw", "split-window")
	if got := table.Expand("sw"); got != "split-window" {
		t.Fatalf("Expand(sw) = %q, want split-window", got)
	}

	table.Set("ls", "list-windows")
	if got := table.Expand("ls"); got != "list-windows" {
		t.Fatalf("Expand(ls) after override = %q, want list-windows", got)
	}
}

func TestAliasTableAllReturnsIndependentSnapshot(t *testing.T) {
	table := NewAliasTable()
	snap := table.All()
	snap["ls"] = "tampered"

	if got := table.Expand("ls"); got != "list-sessions" {
		t.Fatalf("Expand(ls) after mutating snapshot = %q, want list-sessions unaffected", got)
	}
}
