// Package dispatch is the single-threaded command dispatcher (spec
// component C10): the one goroutine that owns every mutation of
// internal/session state, the per-pane copy-mode and key-table state the
// render and keytable packages are deliberately agnostic about, and the
// tick loop that drains internal/control's request channel, applies each
// request in order, and publishes frames back to attached clients.
//
// Grounded on the teacher's internal/tmux CommandRouter: one owning
// goroutine, a table of verb handlers keyed by command name, and a
// hook-firing side channel into the same executor a key binding uses.
// Unlike the teacher's router (one call in, one reply out, no concept of
// a tick), this dispatcher batches everything that arrived since its last
// wake, which is what lets it implement spec.md §4.5's adaptive idle
// timeout and §4.5.a's NC short-circuit.
package dispatch

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"time"

	"psmux/internal/control"
	"psmux/internal/copymode"
	"psmux/internal/keytable"
	"psmux/internal/pty"
	"psmux/internal/render"
	"psmux/internal/session"
	winshell "psmux/internal/shell"
	"psmux/internal/tree"
)

const (
	// busyTick is the dispatcher's wait when input was recently forwarded
	// to a pty or a pane produced output: spec.md §4.5 wants the server
	// responsive to an open echo window without spinning the CPU at idle.
	busyTick = time.Millisecond
	// idleTick is the wait once neither condition holds.
	idleTick = 5 * time.Millisecond
	// echoWindow is how long a forwarded keystroke keeps the tick loop in
	// busyTick even if no further pty output has arrived yet; the exact
	// figure is an implementation choice (spec.md leaves it unspecified),
	// chosen to comfortably straddle one round trip to a child process.
	echoWindow = 150 * time.Millisecond
	// idleCheckEvery rate-limits CheckIdleState calls independently of
	// the tick cadence; RecommendedIdleCheckInterval is a lower bound
	// the session package offers, not a pace the dispatcher must match.
	idleCheckEvery = 2 * time.Second

	// chainSeparator is the sentinel token a flattened bind-key/set-hook
	// command chain uses to mark the boundary tmux's own "\;" spells in
	// source text. keytable.Binding.Command is a single verb's argv, so
	// a "cmd1 \; cmd2" bind-key is stored as one flat []string with this
	// token between the two sub-argvs and re-split at execution time.
	chainSeparator = `\;`
)

// Dispatcher owns the session manager and every piece of state the
// render/keytable/copymode packages explicitly punt back to "whoever
// tracks modes" (see render.CopyModeLookup's doc comment).
type Dispatcher struct {
	Manager *session.Manager
	Server  *control.Server
	Builder *render.Builder
	Keys    *keytable.Dispatcher
	Buffers *copymode.Buffers
	Logger  *slog.Logger

	defaultShell string

	// copyEngines holds the live copy-mode engine for a pane currently in
	// copy mode; savedEngines holds one whose mode was exited by
	// scrolling to the bottom or an explicit cancel, kept so the next
	// copy-mode on that pane resumes its cursor/selection; it is dropped
	// only when resumed or when the pane is killed or reaped. Both are dispatcher-owned
	// because render.Builder takes the lookup as a callback rather than
	// tracking mode itself.
	copyEngines  map[int]*copymode.Engine
	savedEngines map[int]*copymode.Engine

	options map[string]string   // set-option/show-options, process-wide (no per-session scoping yet)
	hooks   map[string][]string // set-hook event -> ordered raw command lines

	zoomedWindow map[int]bool // windowID -> resize-pane -Z toggle state
	lastWindow   map[string]int
	lastPane     map[string]int

	clientCols, clientRows int // client-size, shared by the one streaming attach client

	messages []string // display-message history, most recent last

	stateDirty bool
	metaDirty  bool

	lastForwardAt    time.Time
	lastIdleCheckAt  time.Time
}

// New builds a Dispatcher around an already-constructed manager, control
// server, and key-table dispatcher. defaultShell seeds new-window/
// new-session/split-window when no explicit command is given.
func New(mgr *session.Manager, srv *control.Server, keys *keytable.Dispatcher, defaultShell string, logger *slog.Logger) *Dispatcher {
	if logger == nil {
		logger = slog.Default()
	}
	d := &Dispatcher{
		Manager:      mgr,
		Server:       srv,
		Keys:         keys,
		Buffers:      copymode.NewBuffers(),
		Logger:       logger,
		defaultShell: defaultShell,
		copyEngines:  map[int]*copymode.Engine{},
		savedEngines: map[int]*copymode.Engine{},
		options:      defaultOptions(),
		hooks:        map[string][]string{},
		zoomedWindow: map[int]bool{},
		lastWindow:   map[string]int{},
		lastPane:     map[string]int{},
		clientCols:   80,
		clientRows:   24,
	}
	d.Builder = render.NewBuilder(mgr, keys, d.lookupCopyMode)
	mgr.SetHookSink(d.fireHook)
	return d
}

func defaultOptions() map[string]string {
	return map[string]string{
		"base-index":     "0",
		"status":         "on",
		"status-format":  render.DefaultStatusFormat,
		"mode-keys":      "emacs",
		"history-limit":  "2000",
		"remain-on-exit": "off",
	}
}

func (d *Dispatcher) lookupCopyMode(paneID int) (*copymode.Engine, bool) {
	e, ok := d.copyEngines[paneID]
	return e, ok
}

// Run drives the tick loop until ctx is cancelled or the control server's
// request channel closes. It is meant to run on its own goroutine; every
// other exported method on Dispatcher assumes it is only ever called from
// this loop.
func (d *Dispatcher) Run(ctx context.Context) {
	for {
		timeout := d.nextTimeout()

		var batch []control.Envelope
		select {
		case <-ctx.Done():
			return
		case env, ok := <-d.Server.Requests():
			if !ok {
				return
			}
			batch = append(batch, env)
		case <-time.After(timeout):
		}

	drain:
		for {
			select {
			case env, ok := <-d.Server.Requests():
				if !ok {
					break drain
				}
				batch = append(batch, env)
			default:
				break drain
			}
		}

		if len(batch) > 0 {
			d.serveBatch(reorderWritersBeforeReaders(batch))
		}

		d.maintain()
	}
}

// nextTimeout implements spec.md §4.5's adaptive wait: a 1ms poll while a
// keystroke's echo window is open or a pane has produced fresh output
// since the last check, 5ms once the server is genuinely idle.
func (d *Dispatcher) nextTimeout() time.Duration {
	ready := d.Manager.DataReady()
	if ready {
		d.stateDirty = true
	}
	if ready || time.Since(d.lastForwardAt) < echoWindow {
		return busyTick
	}
	return idleTick
}

func (d *Dispatcher) serveBatch(batch []control.Envelope) {
	for _, env := range batch {
		resp := d.handle(env.Request)
		// Non-blocking: spec.md §5 says an abandoned reply channel's
		// response is dropped rather than blocking the dispatcher. Reply
		// is always buffered size 1 by control.Server.dispatch, so this
		// only ever takes the default branch when the caller has already
		// given up and stopped reading.
		select {
		case env.Reply <- resp:
		default:
		}
	}
}

// maintain runs the per-tick housekeeping that isn't in direct response
// to a request: reaping dead panes and (rate-limited) idle-state checks.
func (d *Dispatcher) maintain() {
	if reaped := d.Manager.ReapDeadPanes(); len(reaped) > 0 {
		d.stateDirty = true
		d.metaDirty = true
		for _, r := range reaped {
			d.fireHook("pane-died", r.PaneID, r.SessionName)
			delete(d.copyEngines, r.PaneID)
			delete(d.savedEngines, r.PaneID)
		}
	}
	if time.Since(d.lastIdleCheckAt) >= idleCheckEvery {
		d.lastIdleCheckAt = time.Now()
		if d.Manager.CheckIdleState() {
			d.stateDirty = true
		}
	}
}

// reorderWritersBeforeReaders stable-partitions a tick's batch so every
// mutating request is applied before any read-only one, preserving each
// class's relative (enqueue) order, per spec.md §4.5's reordering rule.
func reorderWritersBeforeReaders(batch []control.Envelope) []control.Envelope {
	writers := make([]control.Envelope, 0, len(batch))
	readers := make([]control.Envelope, 0, len(batch))
	for _, env := range batch {
		if readingVerbs[env.Request.Verb] {
			readers = append(readers, env)
		} else {
			writers = append(writers, env)
		}
	}
	return append(writers, readers...)
}

var readingVerbs = map[string]bool{
	"dump-state": true, "dump-layout": true, "list-sessions": true,
	"list-windows": true, "list-panes": true, "list-keys": true,
	"list-buffers": true, "show-options": true, "show-hooks": true,
	"show-buffer": true, "server-info": true, "has-session": true,
	"find-window": true, "capture-pane": true,
}

// handlerFunc is one verb's implementation. Each file in this package
// that owns a cluster of verbs (lifecycle, navigation, copy-mode, key
// tables, the streaming surface) registers its entries into verbTable
// from an init func so no single file has to enumerate the whole
// catalogue.
type handlerFunc func(d *Dispatcher, req control.Request) control.Response

var verbTable = map[string]handlerFunc{}

func registerVerbs(handlers map[string]handlerFunc) {
	for name, h := range handlers {
		verbTable[name] = h
	}
}

func (d *Dispatcher) handle(req control.Request) control.Response {
	h, ok := verbTable[req.Verb]
	if !ok {
		return control.ErrResponse(fmt.Errorf("unknown command: %s", req.Verb))
	}
	return h(d, req)
}

// HandleOnce runs a single verb synchronously against the dispatcher
// state, bypassing the request channel Run drains. It exists for a
// process's own startup bootstrap (the initial session, config-file
// bind-key/set-option directives) that happens before Run's goroutine
// is started, and is not safe to call once Run is running concurrently.
func (d *Dispatcher) HandleOnce(req control.Request) control.Response {
	return d.handle(req)
}

// executeCommand runs one already-split verb+args (no "\;" chaining) as a
// synthetic request against the dispatcher's own handler table, the way a
// fired key binding or hook invokes a command (spec.md §4.8/§9: "hooks
// fire through the same command executor a key binding uses").
func (d *Dispatcher) executeCommand(argv []string, target string) control.Response {
	if len(argv) == 0 {
		return control.Response{Kind: control.Empty}
	}
	return d.handle(control.Request{Verb: argv[0], Args: argv[1:], Target: target})
}

// executeChain re-splits a flattened bind-key/hook command on
// chainSeparator and runs each piece in turn, returning the last piece's
// response (mirroring tmux: only the final command in a "\;" chain
// contributes a reply).
func (d *Dispatcher) executeChain(argv []string, target string) control.Response {
	var last control.Response
	var cur []string
	flush := func() {
		if len(cur) == 0 {
			return
		}
		last = d.executeCommand(cur, target)
		cur = nil
	}
	for _, tok := range argv {
		if tok == chainSeparator {
			flush()
			continue
		}
		cur = append(cur, tok)
	}
	flush()
	return last
}

// fireHook runs the command line bound to event (if any) via the same
// executor a key binding uses. Installed as the session.Manager hook
// sink, so it runs on the dispatcher goroutine whenever ReapDeadPanes,
// CheckIdleState, or a verb handler's own Manager call triggers one.
func (d *Dispatcher) fireHook(event string, paneID int, sessionName string) {
	cmds, ok := d.hooks[event]
	if !ok {
		return
	}
	target := sessionName
	if paneID != 0 {
		if _, ok := d.Manager.PaneByID(paneID); ok {
			target = fmt.Sprintf("%%%d", paneID)
		}
	}
	for _, line := range cmds {
		toks, err := control.TokenizeLine(line)
		if err != nil || len(toks) == 0 {
			d.Logger.Warn("dispatch: malformed hook command", "event", event, "command", line, "error", err)
			continue
		}
		if resp := d.executeCommand(toks, target); resp.Err != nil {
			d.Logger.Warn("dispatch: hook command failed", "event", event, "command", line, "error", resp.Err)
		}
	}
}

// resolvePane resolves req.Target (falling back to the server-wide
// default pane when empty) the way every pane-scoped verb needs to.
// callerPaneID is always -1: the control protocol carries no notion of
// "the pane this connection is attached to" independent of -t, since a
// streaming client only ever addresses panes by target (see DESIGN.md).
func (d *Dispatcher) resolvePane(target string) (*session.Pane, error) {
	return d.Manager.ResolveTarget(target, -1)
}

func (d *Dispatcher) resolveSession(target string) (*session.Session, error) {
	return d.Manager.ResolveSessionTarget(target)
}

// buildCommand turns a new-window/new-session/split-window command
// argv into the pty.Command its spawned process runs. On Windows,
// scripts and bound keys written the tmux/Unix way ("cd '/c/work' &&
// FOO=bar prog arg") still need to run under the platform's real shell;
// winshell.ParseUnixCommand extracts the leading cd/KEY=VALUE prefixes
// so they land on Dir/Env instead of being passed through literally as
// a PowerShell command it doesn't understand. It is a no-op off
// Windows, where CleanArgs is just the original argv.
func buildCommand(shell string, args []string) pty.Command {
	if len(args) == 0 {
		return pty.Command{Shell: shell}
	}
	parsed := winshell.ParseUnixCommand(args, "")
	if len(parsed.CleanArgs) == 0 {
		return pty.Command{Shell: shell}
	}
	cmd := pty.Command{
		Program: parsed.CleanArgs[0],
		Args:    parsed.CleanArgs[1:],
		Dir:     parsed.WorkDir,
	}
	if len(parsed.ExtraEnv) > 0 {
		// CreateProcess on Windows takes an env block as the WHOLE
		// environment, not an overlay — start from the inherited
		// environment so ExtraEnv augments it instead of replacing it.
		cmd.Env = append(cmd.Env, os.Environ()...)
		for k, v := range parsed.ExtraEnv {
			cmd.Env = append(cmd.Env, k+"="+v)
		}
	}
	return cmd
}

func parseAxis(horizontal bool) tree.Axis {
	if horizontal {
		return tree.Horizontal
	}
	return tree.Vertical
}

var errMissingArg = errors.New("missing required argument")
