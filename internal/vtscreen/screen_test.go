package vtscreen

import "testing"

func TestWriteRendersPlainTextOnFirstRow(t *testing.T) {
	s := New(10, 3, 100)
	if _, err := s.Write([]byte("hi")); err != nil {
		t.Fatalf("write: %v", err)
	}
	row := s.Row(0)
	if row[0].Content != "h" || row[1].Content != "i" {
		t.Fatalf("unexpected row content: %q %q", row[0].Content, row[1].Content)
	}
}

func TestScrollPushesTopRowIntoHistory(t *testing.T) {
	s := New(5, 2, 10)
	for i := 0; i < 4; i++ {
		if _, err := s.Write([]byte("line\n")); err != nil {
			t.Fatalf("write: %v", err)
		}
	}
	if s.HistoryLen() == 0 {
		t.Fatal("expected scrollback to accumulate after repeated linefeeds at bottom row")
	}
}

func TestHistoryLimitCapsRetainedRows(t *testing.T) {
	s := New(5, 2, 3)
	for i := 0; i < 20; i++ {
		if _, err := s.Write([]byte("x\n")); err != nil {
			t.Fatalf("write: %v", err)
		}
	}
	if got := s.HistoryLen(); got > 3 {
		t.Fatalf("history len = %d, want <= 3", got)
	}
}

func TestResizeUpdatesReportedSize(t *testing.T) {
	s := New(80, 24, 0)
	s.Resize(100, 30)
	cols, rows := s.Size()
	if cols != 100 || rows != 30 {
		t.Fatalf("size = %dx%d, want 100x30", cols, rows)
	}
}

func TestCellOutOfRangeReturnsZeroValue(t *testing.T) {
	s := New(5, 5, 0)
	if c := s.Cell(-1, 0); c.Content != "" || c.Width != 0 {
		t.Fatalf("expected zero cell for negative x, got %+v", c)
	}
	if c := s.Cell(5, 5); c.Content != "" || c.Width != 0 {
		t.Fatalf("expected zero cell out of bounds, got %+v", c)
	}
}
