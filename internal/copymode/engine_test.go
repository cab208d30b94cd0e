package copymode

import (
	"testing"

	"psmux/internal/vtscreen"
)

func newTestEngine(t *testing.T, text string) *Engine {
	t.Helper()
	screen := vtscreen.New(20, 5, 100)
	if _, err := screen.Write([]byte(text)); err != nil {
		t.Fatalf("Write: %v", err)
	}
	return New(screen, true, false)
}

func TestNewEntersAtBottomRight(t *testing.T) {
	e := newTestEngine(t, "hello\r\n")
	_, rows := e.Screen.Size()
	want := e.Screen.HistoryLen() + rows - 1
	if e.Cursor.Line != want {
		t.Errorf("Cursor.Line = %d, want %d", e.Cursor.Line, want)
	}
}

func TestMoveMotionsRespectCount(t *testing.T) {
	e := newTestEngine(t, "hello world\r\n")
	e.Cursor.Col = 0
	e.AccumulateDigit(3)
	e.MoveRight()
	if e.Cursor.Col != 3 {
		t.Errorf("Cursor.Col = %d, want 3", e.Cursor.Col)
	}
}

func TestWordMotionsAcrossSeparators(t *testing.T) {
	e := newTestEngine(t, "hello world\r\n")
	e.Cursor.Line, e.Cursor.Col = 0, 0
	e.NextWord()
	if e.Cursor.Col != 6 {
		t.Errorf("after next-word, Cursor.Col = %d, want 6 (start of \"world\")", e.Cursor.Col)
	}
}

func TestStartEndOfLine(t *testing.T) {
	e := newTestEngine(t, "hi\r\n")
	e.Cursor.Line, e.Cursor.Col = 0, 5
	e.StartOfLine()
	if e.Cursor.Col != 0 {
		t.Errorf("StartOfLine: Col = %d, want 0", e.Cursor.Col)
	}
	e.EndOfLine()
	if e.Cursor.Col != 1 {
		t.Errorf("EndOfLine: Col = %d, want 1", e.Cursor.Col)
	}
}

func TestCharSelectionAndYank(t *testing.T) {
	e := newTestEngine(t, "hello world\r\n")
	e.Cursor.Line, e.Cursor.Col = 0, 0
	e.BeginSelection()
	e.Cursor.Col = 4
	got := e.Selected()
	if got != "hello" {
		t.Errorf("Selected() = %q, want %q", got, "hello")
	}
}

func TestLineSelectionYieldsWholeLine(t *testing.T) {
	e := newTestEngine(t, "hello\r\n")
	e.Cursor.Line = 0
	e.SelectLine()
	got := e.Selected()
	if got != "hello" {
		t.Errorf("Selected() (line mode) = %q, want %q", got, "hello")
	}
}

func TestCopySelectionAndCancelPushesBufferAndClears(t *testing.T) {
	e := newTestEngine(t, "hello\r\n")
	e.Cursor.Line, e.Cursor.Col = 0, 0
	e.BeginSelection()
	e.Cursor.Col = 4
	buffers := NewBuffers()

	result, err := e.ExecuteVerb("copy-selection-and-cancel", nil, buffers)
	if err != nil {
		t.Fatalf("ExecuteVerb: %v", err)
	}
	if result.Text != "hello" {
		t.Errorf("Result.Text = %q, want hello", result.Text)
	}
	if !result.ShouldExit {
		t.Error("expected copy-selection-and-cancel to set ShouldExit")
	}
	if e.HasSelection() {
		t.Error("expected selection to be cleared after -and-cancel")
	}
	if got := buffers.Top(); got != "hello" {
		t.Errorf("buffers.Top() = %q, want hello", got)
	}
}

func TestUnknownVerbReturnsError(t *testing.T) {
	e := newTestEngine(t, "hi\r\n")
	if _, err := e.ExecuteVerb("not-a-real-verb", nil, NewBuffers()); err == nil {
		t.Fatal("expected an error for an unknown verb")
	}
}

func TestSearchForwardFindsMatchAndJumps(t *testing.T) {
	e := newTestEngine(t, "hello world\r\n")
	e.BeginSearch(true)
	e.Search.Query = "world"
	e.ExecuteSearch()
	if len(e.Search.Matches) != 1 {
		t.Fatalf("expected 1 match, got %d: %+v", len(e.Search.Matches), e.Search.Matches)
	}
	if e.Cursor.Col != 6 {
		t.Errorf("Cursor.Col after search = %d, want 6", e.Cursor.Col)
	}
}

func TestBuffersRingCapsAtTen(t *testing.T) {
	b := NewBuffers()
	for i := 0; i < 15; i++ {
		b.Push(string(rune('a'+i)), 0)
	}
	if got := len(b.List()); got != bufferRingCap {
		t.Errorf("len(List()) = %d, want %d", got, bufferRingCap)
	}
}

func TestBuffersNamedRegister(t *testing.T) {
	b := NewBuffers()
	b.Push("xyz", 'a')
	if got := b.Register('a'); got != "xyz" {
		t.Errorf("Register('a') = %q, want xyz", got)
	}
	if got := b.Register('b'); got != "" {
		t.Errorf("Register('b') = %q, want empty", got)
	}
}

func TestMatchingBracket(t *testing.T) {
	e := newTestEngine(t, "a(b(c)d)e\r\n")
	e.Cursor.Line, e.Cursor.Col = 0, 1 // the outer '('
	e.MatchingBracket()
	if e.Cursor.Col != 7 { // the matching outer ')'
		t.Errorf("Cursor.Col after %% = %d, want 7", e.Cursor.Col)
	}
}
