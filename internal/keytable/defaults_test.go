package keytable

import "testing"

func TestNewDefaultRegistryBindsPrefixTable(t *testing.T) {
	r := NewDefaultRegistry()
	c, _ := ParseChord("c")
	b, ok := r.Table(Prefix).Lookup(c)
	if !ok {
		t.Fatal("expected default prefix table to bind 'c'")
	}
	if len(b.Command) == 0 || b.Command[0] != "new-window" {
		t.Fatalf("unexpected default binding for 'c': %+v", b.Command)
	}
}

func TestNewDefaultRegistryBindsViCopyMode(t *testing.T) {
	r := NewDefaultRegistry()
	c, _ := ParseChord("y")
	b, ok := r.Table(CopyModeVi).Lookup(c)
	if !ok {
		t.Fatal("expected default copy-mode-vi table to bind 'y'")
	}
	if len(b.Command) == 0 || b.Command[0] != "copy-selection-and-cancel" {
		t.Fatalf("unexpected default copy-mode-vi binding for 'y': %+v", b.Command)
	}
}
