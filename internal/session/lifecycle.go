package session

import (
	"io"
	"log/slog"

	"psmux/internal/pty"
	"psmux/internal/vtscreen"
)

// spawnPaneLocked opens a PTY+VT pair for a new pane and starts its reader
// goroutine. It must be called without m.mu held: pty.Open and the reader
// goroutine never touch Manager state directly, only the returned Pane,
// so this does not need the "Locked" naming convention's lock contract.
func (m *Manager) spawnPaneLocked(window *Window, id, cols, rows int, cmd pty.Command) (*Pane, error) {
	handle, err := pty.Open(cmd, cols, rows)
	if err != nil {
		return nil, err
	}
	pane := &Pane{
		ID:     id,
		Width:  cols,
		Height: rows,
		Env:    map[string]string{},
		Window: window,
		handle: handle,
		screen: vtscreen.New(cols, rows, 0),
		onData: m.markDataReady,
	}
	go pane.readLoop()
	return pane, nil
}

// readLoop pumps PTY output into the VT screen until the child exits or
// the PTY is closed. Grounded on the teacher's terminal read-pump
// goroutines (internal/terminal Start()), generalized to feed
// internal/vtscreen instead of an xterm.js-bound output buffer.
func (p *Pane) readLoop() {
	buf := make([]byte, 32*1024)
	for {
		n, err := p.handle.Read(buf)
		if n > 0 {
			p.screenMu.Lock()
			p.screen.Write(buf[:n])
			p.screenMu.Unlock()
			if p.onData != nil {
				p.onData()
			}
		}
		if err != nil {
			if err != io.EOF {
				slog.Debug("[DEBUG-PANE] pane read loop ended with error", "pane", p.IDString(), "error", err)
			}
			p.markDead()
			return
		}
	}
}

func (p *Pane) markDead() {
	p.screenMu.Lock()
	defer p.screenMu.Unlock()
	if p.Dead {
		return
	}
	p.Dead = true
	_, code := p.handle.TryWait()
	p.ExitCode = code
}

// Resize changes a pane's PTY and VT grid size.
func (p *Pane) Resize(cols, rows int) error {
	p.screenMu.Lock()
	defer p.screenMu.Unlock()
	if p.Dead {
		return nil
	}
	p.Width, p.Height = cols, rows
	p.screen.Resize(cols, rows)
	return p.handle.Resize(cols, rows)
}

// Write sends input bytes to the pane's child process.
func (p *Pane) Write(b []byte) (int, error) {
	p.screenMu.Lock()
	defer p.screenMu.Unlock()
	if p.Dead {
		return 0, io.ErrClosedPipe
	}
	return p.handle.Write(b)
}

// WithScreen runs fn with the pane's VT screen while holding screenMu, for
// rendering/copy-mode reads that need a consistent multi-field view. fn
// must not retain the screen past the call.
func (p *Pane) WithScreen(fn func(*vtscreen.Screen)) {
	p.screenMu.Lock()
	defer p.screenMu.Unlock()
	fn(p.screen)
}

// Screen returns the pane's VT screen pointer directly, for callers
// (copy-mode engines) that hold onto it across many reads instead of
// taking it one field at a time through WithScreen. The pointer itself
// never changes for a pane's lifetime; only its contents do, under
// screenMu, so a caller that needs a precise snapshot should still go
// through WithScreen.
func (p *Pane) Screen() *vtscreen.Screen {
	return p.screen
}

// Pid returns the pane's child process id, or 0 once it has exited.
func (p *Pane) Pid() int {
	p.screenMu.Lock()
	defer p.screenMu.Unlock()
	if p.Dead {
		return 0
	}
	return p.handle.Pid()
}

func (p *Pane) close() error {
	p.screenMu.Lock()
	h := p.handle
	p.screenMu.Unlock()
	if h == nil {
		return nil
	}
	return h.Close()
}
