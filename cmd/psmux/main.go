// Command psmux is the one-shot CLI and attach client (spec.md §6.1): it
// either sends a single control-protocol verb to a running psmuxd and
// prints the reply, or (for "attach"/"attach-session") hands the
// terminal over to internal/attach's streaming event loop. If no server
// is listening for the requested socket yet, new-session spawns one
// itself, the same way tmux's client starts its own server on first
// use; every other command fails with a "no server running" error.
package main

import (
	"fmt"
	"os"
	"os/exec"
	"strings"
	"time"

	"psmux/internal/attach"
	"psmux/internal/control"
	"psmux/internal/procutil"
)

// exit codes per spec.md §6.1.
const (
	exitOK       = 0
	exitUsage    = 1
	exitIOError  = 2
	serverBootMS = 3000
)

func main() {
	os.Exit(run(os.Args[1:]))
}

func run(argv []string) int {
	p, err := parseArgs(argv)
	if err != nil {
		fmt.Fprintln(os.Stderr, "psmux:", err)
		return exitUsage
	}
	if p.Command == "" {
		fmt.Fprintln(os.Stderr, "psmux: no command given")
		return exitUsage
	}

	stateDir, err := control.StateDir()
	if err != nil {
		fmt.Fprintln(os.Stderr, "psmux:", err)
		return exitIOError
	}

	session := sessionName(p.Target)
	if session == "" {
		session = control.ReadLastSession(stateDir)
	}
	if session == "" {
		session = "0"
	}

	port, key, err := resolveServer(stateDir, p.Socket, session, p.Command)
	if err != nil {
		fmt.Fprintln(os.Stderr, "psmux:", err)
		if p.Command != "new-session" && p.Command != "new" {
			return exitUsage
		}
		return exitIOError
	}

	conn, err := attach.Dial(port, key)
	if err != nil {
		fmt.Fprintln(os.Stderr, "psmux:", err)
		return exitIOError
	}
	defer conn.Close()

	switch p.Command {
	case "attach", "attach-session":
		if err := attach.Run(conn, resolveAttachTarget(p, session)); err != nil {
			fmt.Fprintln(os.Stderr, "psmux:", err)
			return exitIOError
		}
		return exitOK
	default:
		if p.Target != "" {
			if err := conn.SetTarget(p.Target); err != nil {
				fmt.Fprintln(os.Stderr, "psmux:", err)
				return exitIOError
			}
		}
		return runOneShot(conn, p)
	}
}

func resolveAttachTarget(p parsedArgs, fallback string) string {
	if p.Target != "" {
		return p.Target
	}
	if len(p.Args) > 0 {
		return p.Args[0]
	}
	return fallback
}

// resolveServer returns the port/key of a running server for
// socket/session, spawning psmuxd and waiting for its files to appear
// if none is running yet. new-session is the only command allowed to
// spawn a fresh server with no prior session; every other command
// against a missing server, server-wide ones such as kill-server and
// list-sessions included, is a usage error (spec.md §6.1's "session
// not found" exit code 1 path).
func resolveServer(stateDir, socket, session, command string) (int, string, error) {
	port, perr := control.ReadPortFile(stateDir, socket, session)
	key, kerr := control.ReadKeyFile(stateDir, socket, session)
	if perr == nil && kerr == nil {
		return port, key, nil
	}

	if command != "new-session" && command != "new" {
		return 0, "", fmt.Errorf("no server running for session %q (start one with new-session)", session)
	}
	return spawnServer(stateDir, socket, session)
}

func spawnServer(stateDir, socket, session string) (int, string, error) {
	exePath, err := os.Executable()
	if err != nil {
		return 0, "", err
	}
	daemonPath := strings.TrimSuffix(exePath, "psmux") + "psmuxd"
	if _, statErr := os.Stat(daemonPath); statErr != nil {
		daemonPath = "psmuxd"
	}

	cmd := exec.Command(daemonPath, "-L", socket, "-s", session)
	cmd.Stdout = nil
	cmd.Stderr = nil
	procutil.HideWindow(cmd) // no console flash on Windows when auto-spawning psmuxd
	if err := cmd.Start(); err != nil {
		return 0, "", fmt.Errorf("spawn psmuxd: %w", err)
	}

	deadline := time.Now().Add(serverBootMS * time.Millisecond)
	for time.Now().Before(deadline) {
		port, perr := control.ReadPortFile(stateDir, socket, session)
		key, kerr := control.ReadKeyFile(stateDir, socket, session)
		if perr == nil && kerr == nil {
			return port, key, nil
		}
		time.Sleep(50 * time.Millisecond)
	}
	return 0, "", fmt.Errorf("psmuxd did not start listening for session %q in time", session)
}

// runOneShot sends one request and prints its response the way the
// verb's response kind dictates: Empty means success with nothing to
// print (has-session, send-key, set-option, ...); an error response
// prints to stderr and maps to exit code 1; Blob/Line prints the body.
func runOneShot(conn *attach.Conn, p parsedArgs) int {
	parts := make([]string, 0, len(p.Args)+1)
	parts = append(parts, p.Command)
	for _, a := range p.Args {
		parts = append(parts, quoteArg(a))
	}
	line := strings.Join(parts, " ")
	resp, err := conn.Request(line)
	if err != nil {
		fmt.Fprintln(os.Stderr, "psmux:", err)
		return exitIOError
	}
	if resp.Unchanged {
		return exitOK
	}
	if len(resp.Data) == 0 {
		return exitOK
	}
	text := string(resp.Data)
	if strings.HasPrefix(text, "ERROR: ") {
		fmt.Fprintln(os.Stderr, "psmux:", strings.TrimPrefix(text, "ERROR: "))
		return exitUsage
	}
	fmt.Println(text)
	return exitOK
}

// quoteArg wraps a token in double quotes, escaping embedded quotes and
// backslashes, whenever it contains whitespace parseLine would
// otherwise split on.
func quoteArg(s string) string {
	if s != "" && !strings.ContainsAny(s, " \t\"\\") {
		return s
	}
	var b strings.Builder
	b.WriteByte('"')
	for _, r := range s {
		if r == '"' || r == '\\' {
			b.WriteByte('\\')
		}
		b.WriteRune(r)
	}
	b.WriteByte('"')
	return b.String()
}
