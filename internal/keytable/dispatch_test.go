package keytable

import (
	"testing"
	"time"
)

func TestDispatchPrefixArmsThenMatchesPrefixTable(t *testing.T) {
	r := NewRegistry()
	prefix, _ := ParseChord("C-b")
	r.Table(Prefix).Bind(mustChord(t, "c"), []string{"new-window"}, false)

	d := NewDispatcher(r, prefix, Chord{}, time.Second)
	now := time.Now()

	out := d.Dispatch(prefix, now)
	if !out.Armed {
		t.Fatal("expected prefix chord to arm Prefix mode")
	}

	out = d.Dispatch(mustChord(t, "c"), now.Add(10*time.Millisecond))
	if !out.Matched || len(out.Command) != 1 || out.Command[0] != "new-window" {
		t.Fatalf("expected prefix table match, got %+v", out)
	}
}

func TestDispatchEscapeTimeoutDropsArm(t *testing.T) {
	r := NewRegistry()
	prefix, _ := ParseChord("C-b")
	r.Table(Prefix).Bind(mustChord(t, "c"), []string{"new-window"}, false)

	d := NewDispatcher(r, prefix, Chord{}, 50*time.Millisecond)
	now := time.Now()
	d.Dispatch(prefix, now)

	out := d.Dispatch(mustChord(t, "c"), now.Add(200*time.Millisecond))
	if out.Matched {
		t.Fatal("expected the arm to have expired")
	}
}

func TestDispatchRepeatableBindingReArms(t *testing.T) {
	r := NewRegistry()
	prefix, _ := ParseChord("C-b")
	r.Table(Prefix).Bind(mustChord(t, "o"), []string{"select-pane", "-t", ":.+"}, true)

	d := NewDispatcher(r, prefix, Chord{}, time.Second)
	now := time.Now()
	d.Dispatch(prefix, now)
	d.Dispatch(mustChord(t, "o"), now)

	out := d.Dispatch(mustChord(t, "o"), now.Add(time.Millisecond))
	if !out.Matched {
		t.Fatal("expected repeatable binding to stay armed for a second press")
	}
}

func TestDispatchFallsThroughToForward(t *testing.T) {
	r := NewRegistry()
	prefix, _ := ParseChord("C-b")
	d := NewDispatcher(r, prefix, Chord{}, time.Second)

	out := d.Dispatch(mustChord(t, "q"), time.Now())
	if !out.Forward {
		t.Fatalf("expected an unbound root key to forward, got %+v", out)
	}
}

func TestDispatchRootTableTakesPriorityOverForward(t *testing.T) {
	r := NewRegistry()
	prefix, _ := ParseChord("C-b")
	r.Table(Root).Bind(mustChord(t, "F5"), []string{"display-message", "hi"}, false)
	d := NewDispatcher(r, prefix, Chord{}, time.Second)

	out := d.Dispatch(mustChord(t, "F5"), time.Now())
	if !out.Matched || out.Forward {
		t.Fatalf("expected root table match to win, got %+v", out)
	}
}

func mustChord(t *testing.T, spelling string) Chord {
	t.Helper()
	c, err := ParseChord(spelling)
	if err != nil {
		t.Fatalf("ParseChord(%q): %v", spelling, err)
	}
	return c
}
