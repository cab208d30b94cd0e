package attach

import (
	"fmt"
	"os"
	"sync"
	"time"

	"golang.org/x/term"
)

// altScreenOn/Off, mouseOn/Off and pasteOn/Off are the terminal modes an
// attach session needs for the lifetime of the connection, mirrored on
// other_examples' grove cmd_attach.go's final reset sequences
// ("\033[?1004l\033[?2004l") generalized to the full set this client
// actually turns on (alt screen, SGR mouse tracking, bracketed paste).
const (
	altScreenOn  = "\x1b[?1049h"
	altScreenOff = "\x1b[?1049l"
	mouseOn      = "\x1b[?1000h\x1b[?1006h"
	mouseOff     = "\x1b[?1006l\x1b[?1000l"
	pasteOn      = "\x1b[?2004h"
	pasteOff     = "\x1b[?2004l"
	hideCursor   = "\x1b[?25l"
	showCursor   = "\x1b[?25h"
)

// terminalSession owns the local terminal's raw-mode lifecycle: entering
// once on attach, restoring exactly once on detach regardless of which
// goroutine notices first (stdin closed, server hung up, user pressed
// the detach chord).
type terminalSession struct {
	fd       int
	oldState *term.State
	restore  sync.Once
}

func enterTerminal() (*terminalSession, error) {
	fd := int(os.Stdin.Fd())
	old, err := term.MakeRaw(fd)
	if err != nil {
		return nil, fmt.Errorf("attach: enter raw mode: %w", err)
	}
	fmt.Fprint(os.Stdout, altScreenOn+mouseOn+pasteOn+hideCursor)
	return &terminalSession{fd: fd, oldState: old}, nil
}

// Restore is safe to call more than once; only the first call acts.
func (t *terminalSession) Restore() {
	t.restore.Do(func() {
		fmt.Fprint(os.Stdout, showCursor+pasteOff+mouseOff+altScreenOff)
		term.Restore(t.fd, t.oldState)
	})
}

func terminalSize() (cols, rows int, err error) {
	return term.GetSize(int(os.Stdout.Fd()))
}

// resizeWatcher polls the terminal's size on an interval and reports
// changes. SIGWINCH (the signal-based approach other_examples' grove
// client uses) does not exist on Windows, this module's primary target,
// so a portable poll loop replaces it everywhere, not just in a
// Windows-specific file — see DESIGN.md.
type resizeWatcher struct {
	lastCols, lastRows int
}

func newResizeWatcher() *resizeWatcher {
	cols, rows, _ := terminalSize()
	return &resizeWatcher{lastCols: cols, lastRows: rows}
}

// poll returns the new size and true if it changed since the last call
// or construction.
func (w *resizeWatcher) poll() (cols, rows int, changed bool) {
	cols, rows, err := terminalSize()
	if err != nil || (cols == w.lastCols && rows == w.lastRows) {
		return w.lastCols, w.lastRows, false
	}
	w.lastCols, w.lastRows = cols, rows
	return cols, rows, true
}

const resizePollInterval = 250 * time.Millisecond
