//go:build windows

package pty

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"runtime"
	"strings"
	"sync"
	"unsafe"

	"golang.org/x/sys/windows"
)

// ErrConPtyUnsupported indicates ConPTY is not available on this Windows version.
var ErrConPtyUnsupported = errors.New("pty: ConPTY is not available on this version of Windows")

var (
	waitForSingleObjectFn = windows.WaitForSingleObject
	terminateProcessFn    = windows.TerminateProcess
)

const (
	// gracePeriodMS balances fast close behavior and normal shell exit latency.
	gracePeriodMS = 500
	// terminateWaitMS is a short post-terminate wait to observe process exit state.
	terminateWaitMS       = 100
	waitTimeoutResultCode = uint32(windows.WAIT_TIMEOUT)
)

// handleIO wraps a Windows pipe handle used by ConPTY I/O.
// Methods copy the raw handle under lock, then perform blocking syscalls
// unlocked so Close can invalidate the handle without deadlocking readers/writers.
type handleIO struct {
	mu     sync.Mutex
	handle windows.Handle
}

func (h *handleIO) Read(p []byte) (int, error) {
	h.mu.Lock()
	handle := h.handle
	h.mu.Unlock()
	if handle == 0 || handle == windows.InvalidHandle {
		return 0, io.EOF
	}

	var numRead uint32
	err := windows.ReadFile(handle, p, &numRead, nil)
	return int(numRead), normalizeReadFileError(err)
}

func (h *handleIO) Write(p []byte) (int, error) {
	h.mu.Lock()
	handle := h.handle
	h.mu.Unlock()
	if handle == 0 || handle == windows.InvalidHandle {
		return 0, io.ErrClosedPipe
	}

	var numWritten uint32
	err := windows.WriteFile(handle, p, &numWritten, nil)
	return int(numWritten), normalizeWriteFileError(err)
}

func (h *handleIO) Close() error {
	h.mu.Lock()
	handle := h.handle
	if handle == 0 || handle == windows.InvalidHandle {
		h.mu.Unlock()
		return nil
	}
	h.handle = windows.InvalidHandle
	h.mu.Unlock()

	err := windows.CloseHandle(handle)
	if err != nil {
		slog.Debug("[DEBUG-PTY] handleIO.Close failed", "error", err)
	}
	return err
}

// conptyHandle is the ConPTY-backed implementation of Handle, grounded on
// myT-x's internal/terminal ConPty type, narrowed to this package's
// Command/Handle shapes instead of the teacher's functional-options config.
type conptyHandle struct {
	stateMu   sync.RWMutex
	hpCon     _HPCON
	pi        *windows.ProcessInformation
	cmdIn     *handleIO
	cmdOut    *handleIO
	closeOnce sync.Once
	closeErr  error
}

func open(c Command, cols, rows int) (Handle, error) {
	if !isConPtyAvailable() {
		return nil, ErrConPtyUnsupported
	}
	if err := validateConPtyDimensions(cols, rows); err != nil {
		return nil, err
	}

	commandLine := buildCommandLine(c)
	coord := &_COORD{X: int16(cols), Y: int16(rows)}

	ptyIn, cmdIn, cmdOut, ptyOut, err := createPtyPipes()
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrPtyOpen, err)
	}

	hpCon, err := createPseudoConsole(coord, ptyIn, ptyOut)
	if err != nil {
		closeHandles(ptyIn, ptyOut, cmdIn, cmdOut)
		return nil, fmt.Errorf("%w: %v", ErrPtyOpen, err)
	}
	// CreatePseudoConsole takes ownership of ptyIn/ptyOut on Windows 10 1809+.
	// Close local duplicates immediately to avoid delaying broken-pipe detection.
	closeHandles(ptyIn, ptyOut)

	pi, err := createConPtyProcess(commandLine, c, hpCon)
	if err != nil {
		closePseudoConsole(hpCon)
		closeHandles(cmdIn, cmdOut)
		return nil, fmt.Errorf("%w: %v", ErrPtySpawn, err)
	}

	return &conptyHandle{
		hpCon:  hpCon,
		pi:     pi,
		cmdIn:  &handleIO{handle: cmdIn},
		cmdOut: &handleIO{handle: cmdOut},
	}, nil
}

func defaultShell() string {
	if comspec := os.Getenv("COMSPEC"); comspec != "" {
		return comspec
	}
	return "powershell.exe"
}

// buildCommandLine turns a Command into a single Windows command line
// string, quoting arguments that contain whitespace or quotes.
func buildCommandLine(c Command) string {
	switch {
	case c.Program != "":
		parts := append([]string{c.Program}, c.Args...)
		return joinWindowsArgs(parts)
	case c.CommandLine != "":
		shell := c.Shell
		if shell == "" {
			shell = defaultShell()
		}
		return joinWindowsArgs([]string{shell, "/C", c.CommandLine})
	default:
		shell := c.Shell
		if shell == "" {
			shell = defaultShell()
		}
		return shell
	}
}

func joinWindowsArgs(parts []string) string {
	quoted := make([]string, len(parts))
	for i, p := range parts {
		if strings.ContainsAny(p, " \t\"") {
			quoted[i] = `"` + strings.ReplaceAll(p, `"`, `\"`) + `"`
		} else {
			quoted[i] = p
		}
	}
	return strings.Join(quoted, " ")
}

func createPtyPipes() (ptyIn windows.Handle, cmdIn windows.Handle, cmdOut windows.Handle, ptyOut windows.Handle, err error) {
	if err = windows.CreatePipe(&ptyIn, &cmdIn, nil, 0); err != nil {
		return 0, 0, 0, 0, fmt.Errorf("failed to create input pipe: %w", err)
	}
	if err = windows.CreatePipe(&cmdOut, &ptyOut, nil, 0); err != nil {
		closeHandles(ptyIn, cmdIn)
		return 0, 0, 0, 0, fmt.Errorf("failed to create output pipe: %w", err)
	}
	return
}

func closeHandles(handles ...windows.Handle) {
	for _, h := range handles {
		if h == 0 || h == windows.InvalidHandle {
			continue
		}
		if err := windows.CloseHandle(h); err != nil {
			slog.Debug("[DEBUG-PTY] CloseHandle failed", "handle", h, "error", err)
		}
	}
}

type startupInfoEx struct {
	startupInfo   windows.StartupInfo
	attributeList []byte
}

func getStartupInfoExForPTY(hpCon _HPCON) (*startupInfoEx, error) {
	siEx := &startupInfoEx{}
	// STARTUPINFOEXW = STARTUPINFOW + lpAttributeList pointer.
	siEx.startupInfo.Cb = uint32(unsafe.Sizeof(windows.StartupInfo{}) + unsafe.Sizeof(uintptr(0)))
	siEx.startupInfo.Flags |= windows.STARTF_USESTDHANDLES

	attrList, err := initializeProcThreadAttrList()
	if err != nil {
		return nil, err
	}
	siEx.attributeList = attrList

	if err := updateProcThreadAttrWithPseudoConsole(siEx.attributeList, hpCon); err != nil {
		deleteProcThreadAttrList(siEx.attributeList)
		return nil, err
	}
	return siEx, nil
}

func createConPtyProcess(commandLine string, c Command, hpCon _HPCON) (*windows.ProcessInformation, error) {
	cmdLinePtr, err := windows.UTF16PtrFromString(commandLine)
	if err != nil {
		return nil, err
	}

	var workDirPtr *uint16
	if c.Dir != "" {
		workDirPtr, err = windows.UTF16PtrFromString(c.Dir)
		if err != nil {
			return nil, err
		}
	}

	siEx, err := getStartupInfoExForPTY(hpCon)
	if err != nil {
		return nil, fmt.Errorf("failed to build startup info for ConPTY: %w", err)
	}
	defer deleteProcThreadAttrList(siEx.attributeList)

	var pi windows.ProcessInformation
	envBlock := createEnvBlock(c.Env)
	var flags uint32 = windows.EXTENDED_STARTUPINFO_PRESENT
	if envBlock != nil {
		flags |= windows.CREATE_UNICODE_ENVIRONMENT
	}

	err = windows.CreateProcess(
		nil,
		cmdLinePtr,
		nil,
		nil,
		false,
		flags,
		envBlock,
		workDirPtr,
		&siEx.startupInfo,
		&pi,
	)
	runtime.KeepAlive(envBlock)
	if err != nil {
		return nil, fmt.Errorf("CreateProcess failed: %w", err)
	}

	return &pi, nil
}

func (c *conptyHandle) Read(p []byte) (int, error) {
	c.stateMu.RLock()
	cmdOut := c.cmdOut
	c.stateMu.RUnlock()
	if cmdOut == nil {
		return 0, errors.New("pty: Read called on closed pseudo console")
	}
	n, err := cmdOut.Read(p)
	return n, normalizeConPtyPipeError("Read", err)
}

func (c *conptyHandle) Write(p []byte) (int, error) {
	c.stateMu.RLock()
	cmdIn := c.cmdIn
	c.stateMu.RUnlock()
	if cmdIn == nil {
		return 0, errors.New("pty: Write called on closed pseudo console")
	}
	n, err := cmdIn.Write(p)
	return n, normalizeConPtyPipeError("Write", err)
}

func (c *conptyHandle) Resize(cols, rows int) error {
	if err := validateConPtyDimensions(cols, rows); err != nil {
		return err
	}
	c.stateMu.RLock()
	defer c.stateMu.RUnlock()
	if c.hpCon == 0 {
		return errors.New("pty: Resize called on closed pseudo console")
	}
	coord := &_COORD{X: int16(cols), Y: int16(rows)}
	return resizePseudoConsole(c.hpCon, coord)
}

// Close terminates the process and releases resources. Closes the pseudo
// console first, then waits briefly for the process to exit gracefully
// before forcing termination with TerminateProcess. Safe to call more than
// once; only the first call performs cleanup.
func (c *conptyHandle) Close() error {
	c.closeOnce.Do(func() {
		c.closeErr = c.doClose()
	})
	return c.closeErr
}

func (c *conptyHandle) doClose() error {
	c.stateMu.Lock()
	hpCon := c.hpCon
	pi := c.pi
	cmdIn := c.cmdIn
	cmdOut := c.cmdOut
	c.hpCon = 0
	c.pi = nil
	c.cmdIn = nil
	c.cmdOut = nil
	c.stateMu.Unlock()

	if hpCon != 0 {
		closePseudoConsole(hpCon)
	}

	var firstErr error
	if pi != nil {
		ret, waitErr := waitForSingleObjectFn(pi.Process, gracePeriodMS)
		waitRet := formatWaitResult(ret)
		if waitErr != nil {
			slog.Warn("[WARN-PTY] WaitForSingleObject failed",
				"pid", pi.ProcessId, "wait_ret", waitRet, "error", waitErr)
			if firstErr == nil {
				firstErr = fmt.Errorf("WaitForSingleObject failed during ConPTY close: %w", waitErr)
			}
		}
		// For WAIT_TIMEOUT and WAIT_FAILED we cannot trust that the child exited;
		// force termination to avoid leaking a zombie process.
		if ret != windows.WAIT_OBJECT_0 {
			if termErr := terminateProcessFn(pi.Process, 0); termErr != nil {
				slog.Warn("[WARN-PTY] TerminateProcess failed (zombie process risk)",
					"pid", pi.ProcessId, "wait_ret", waitRet, "error", termErr)
				if firstErr == nil {
					firstErr = fmt.Errorf("failed to terminate pseudo console process: %w", termErr)
				}
			} else {
				postRet, postErr := waitForSingleObjectFn(pi.Process, terminateWaitMS)
				if postErr != nil {
					slog.Warn("[WARN-PTY] WaitForSingleObject after TerminateProcess failed",
						"pid", pi.ProcessId, "wait_ret", formatWaitResult(postRet), "error", postErr)
					if firstErr == nil {
						firstErr = fmt.Errorf("WaitForSingleObject after TerminateProcess failed during ConPTY close: %w", postErr)
					}
				} else if postRet != windows.WAIT_OBJECT_0 {
					slog.Warn("[WARN-PTY] process did not report exited state after TerminateProcess",
						"pid", pi.ProcessId, "wait_ret", formatWaitResult(postRet))
				}
			}
		}
		closeHandles(pi.Process, pi.Thread)
	}

	for _, closer := range []*handleIO{cmdIn, cmdOut} {
		if closer != nil {
			if err := closer.Close(); err != nil && firstErr == nil {
				firstErr = err
			}
		}
	}

	return firstErr
}

func (c *conptyHandle) Pid() int {
	c.stateMu.RLock()
	pi := c.pi
	c.stateMu.RUnlock()
	if pi == nil {
		return 0
	}
	return int(pi.ProcessId)
}

// TryWait reports whether the child process has exited, without blocking.
// ConPTY exposes no wait-with-timeout-zero primitive directly, so this uses
// GetExitCodeProcess's STILL_ACTIVE sentinel the way Go's own os.Process
// polling helpers do on Windows.
func (c *conptyHandle) TryWait() (exited bool, code int) {
	c.stateMu.RLock()
	pi := c.pi
	c.stateMu.RUnlock()
	if pi == nil {
		return true, -1
	}
	var exitCode uint32
	if err := windows.GetExitCodeProcess(pi.Process, &exitCode); err != nil {
		return false, 0
	}
	const stillActive = 259
	if exitCode == stillActive {
		return false, 0
	}
	return true, int(exitCode)
}

func formatWaitResult(ret uint32) string {
	switch ret {
	case windows.WAIT_OBJECT_0:
		return "WAIT_OBJECT_0(0x0)"
	case windows.WAIT_ABANDONED:
		return "WAIT_ABANDONED(0x80)"
	case waitTimeoutResultCode:
		return "WAIT_TIMEOUT(0x102)"
	case windows.WAIT_FAILED:
		return "WAIT_FAILED(0xFFFFFFFF)"
	default:
		return fmt.Sprintf("0x%X", ret)
	}
}

func validateConPtyDimensions(width, height int) error {
	const maxConPtyDimension = 32767
	if width <= 0 || width > maxConPtyDimension || height <= 0 || height > maxConPtyDimension {
		return fmt.Errorf("ConPTY dimensions must be between 1 and %d: width=%d, height=%d", maxConPtyDimension, width, height)
	}
	return nil
}

func normalizeConPtyPipeError(operation string, err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, windows.ERROR_INVALID_HANDLE) ||
		errors.Is(err, windows.ERROR_BROKEN_PIPE) ||
		errors.Is(err, io.ErrClosedPipe) ||
		errors.Is(err, windows.ERROR_NO_DATA) {
		return fmt.Errorf("%s called on closed pseudo console: %w", operation, err)
	}
	return err
}

func normalizeWriteFileError(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, windows.ERROR_BROKEN_PIPE) ||
		errors.Is(err, windows.ERROR_NO_DATA) ||
		errors.Is(err, windows.ERROR_INVALID_HANDLE) {
		return io.ErrClosedPipe
	}
	return err
}

func normalizeReadFileError(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, windows.ERROR_BROKEN_PIPE) ||
		errors.Is(err, windows.ERROR_HANDLE_EOF) ||
		errors.Is(err, windows.ERROR_INVALID_HANDLE) ||
		errors.Is(err, windows.ERROR_NO_DATA) {
		return io.EOF
	}
	return err
}
