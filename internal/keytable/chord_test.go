package keytable

import "testing"

func TestParseChordModifiers(t *testing.T) {
	cases := []struct {
		in   string
		want Chord
	}{
		{"C-b", Chord{Key: "b", Ctrl: true}},
		{"M-S-Left", Chord{Key: "Left", Alt: true, Shift: true}},
		{"a", Chord{Key: "a"}},
		{"A", Chord{Key: "A", Shift: true}},
		{"F5", Chord{Key: "F5"}},
		{"Enter", Chord{Key: "Enter"}},
		{"c-c", Chord{Key: "c", Ctrl: true}},
	}
	for _, tc := range cases {
		got, err := ParseChord(tc.in)
		if err != nil {
			t.Fatalf("ParseChord(%q): %v", tc.in, err)
		}
		if got != tc.want {
			t.Errorf("ParseChord(%q) = %+v, want %+v", tc.in, got, tc.want)
		}
	}
}

func TestParseChordRejectsEmpty(t *testing.T) {
	if _, err := ParseChord(""); err == nil {
		t.Fatal("expected error for empty chord")
	}
	if _, err := ParseChord("C-"); err == nil {
		t.Fatal("expected error for modifier with no key")
	}
}

func TestChordStringRoundTrip(t *testing.T) {
	c, err := ParseChord("C-b")
	if err != nil {
		t.Fatalf("ParseChord: %v", err)
	}
	if got := c.String(); got != "C-b" {
		t.Errorf("String() = %q, want C-b", got)
	}
}
