//go:build !windows

package pty

import (
	"fmt"
	"os"
	"os/exec"
	"syscall"

	"github.com/creack/pty"
)

// unixHandle wraps a creack/pty master file + child cmd. Grounded on
// myT-x's internal/terminal/terminal_unix.go Start(), narrowed to this
// package's Handle interface.
type unixHandle struct {
	ptmx *os.File
	cmd  *exec.Cmd
}

func open(c Command, cols, rows int) (Handle, error) {
	shell := c.Shell
	var args []string
	switch {
	case c.Program != "":
		shell = c.Program
		args = c.Args
	case c.CommandLine != "":
		if shell == "" {
			shell = defaultShell()
		}
		args = []string{"-c", c.CommandLine}
	default:
		if shell == "" {
			shell = defaultShell()
		}
		args = []string{"-l"}
	}

	cmd := exec.Command(shell, args...)
	cmd.Dir = c.Dir
	if len(c.Env) > 0 {
		cmd.Env = c.Env
	}

	ptmx, err := pty.StartWithSize(cmd, &pty.Winsize{Cols: uint16(cols), Rows: uint16(rows)})
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrPtyOpen, err)
	}
	return &unixHandle{ptmx: ptmx, cmd: cmd}, nil
}

func defaultShell() string {
	if sh := os.Getenv("SHELL"); sh != "" {
		return sh
	}
	return "/bin/sh"
}

func (h *unixHandle) Read(p []byte) (int, error)  { return h.ptmx.Read(p) }
func (h *unixHandle) Write(p []byte) (int, error) { return h.ptmx.Write(p) }

func (h *unixHandle) Resize(cols, rows int) error {
	return pty.Setsize(h.ptmx, &pty.Winsize{Cols: uint16(cols), Rows: uint16(rows)})
}

func (h *unixHandle) Close() error {
	closeErr := h.ptmx.Close()
	if h.cmd.Process != nil {
		_ = h.cmd.Process.Kill()
	}
	return closeErr
}

func (h *unixHandle) Pid() int {
	if h.cmd.Process == nil {
		return 0
	}
	return h.cmd.Process.Pid
}

func (h *unixHandle) TryWait() (exited bool, code int) {
	if h.cmd.Process == nil {
		return true, -1
	}
	var ws syscall.WaitStatus
	pid, err := syscall.Wait4(h.cmd.Process.Pid, &ws, syscall.WNOHANG, nil)
	if err != nil || pid == 0 {
		return false, 0
	}
	return true, ws.ExitStatus()
}
