package dispatch

import (
	"fmt"
	"os/exec"
	"strconv"
	"strings"
	"time"

	"psmux/internal/control"
	"psmux/internal/copymode"
	"psmux/internal/keytable"
	"psmux/internal/session"
)

func init() {
	registerVerbs(map[string]handlerFunc{
		"copy-mode":     handleCopyMode,
		"send-keys":     handleSendKeys,
		"paste-buffer":  handlePasteBuffer,
		"set-buffer":    handleSetBuffer,
		"show-buffer":   handleShowBuffer,
		"delete-buffer": handleDeleteBuffer,
		"list-buffers":  handleListBuffers,
	})
}

func handleCopyMode(d *Dispatcher, req control.Request) control.Response {
	pane, err := d.resolvePane(req.Target)
	if err != nil {
		return control.ErrResponse(err)
	}
	if _, already := d.copyEngines[pane.ID]; already {
		return control.Response{Kind: control.Empty}
	}
	vi := d.options["mode-keys"] == "vi"
	engine, restored := d.savedEngines[pane.ID]
	if restored {
		delete(d.savedEngines, pane.ID)
	} else {
		engine = copymode.New(pane.Screen(), vi, hasFlag(req.Args, "-u"))
	}
	d.copyEngines[pane.ID] = engine
	d.stateDirty = true
	return control.Response{Kind: control.Empty}
}

// exitCopyMode ends copy mode for paneID, keeping the engine around
// (spec.md §4.7's focus-change save/restore rule) so a later copy-mode
// on the same pane resumes the same cursor/selection instead of starting
// over at the bottom. The saved engine is kept until it is resumed or the
// pane is killed or reaped, whatever output the pane produces meanwhile.
func (d *Dispatcher) exitCopyMode(paneID int) {
	if e, ok := d.copyEngines[paneID]; ok {
		delete(d.copyEngines, paneID)
		d.savedEngines[paneID] = e
	}
	d.stateDirty = true
}

func handleSendKeys(d *Dispatcher, req control.Request) control.Response {
	pane, err := d.resolvePane(req.Target)
	if err != nil {
		return control.ErrResponse(err)
	}
	args := req.Args

	if hasFlag(args, "-X") {
		args = removeFlag(args, "-X")
		if len(args) == 0 {
			return control.ErrResponse(errMissingArg)
		}
		return d.executeCopyModeVerb(pane, args[0], args[1:])
	}

	literal := hasFlag(args, "-l")
	args = removeFlag(args, "-l")
	var out []byte
	if literal {
		out = []byte(strings.Join(args, " "))
	} else {
		out = keytable.TranslateSendKeys(args)
	}
	if _, err := pane.Write(out); err != nil {
		return control.ErrResponse(err)
	}
	d.markForwarded()
	return control.Response{Kind: control.Empty}
}

func (d *Dispatcher) executeCopyModeVerb(pane *session.Pane, verb string, args []string) control.Response {
	engine, ok := d.copyEngines[pane.ID]
	if !ok {
		return control.ErrResponse(fmt.Errorf("send-keys -X: pane %s is not in copy mode", pane.IDString()))
	}
	result, err := engine.ExecuteVerb(verb, args, d.Buffers)
	if err != nil {
		return control.ErrResponse(err)
	}
	d.stateDirty = true
	if result.PipeCmd != "" {
		d.runCopyPipe(result.PipeCmd, result.Text)
	}
	if result.ShouldExit {
		d.exitCopyMode(pane.ID)
	}
	if result.Text != "" {
		return control.TextResponse(result.Text)
	}
	return control.Response{Kind: control.Empty}
}

// runCopyPipe runs a copy-pipe target command with the yanked text on
// its stdin. Unlike a pane's own child process this is a one-shot,
// non-interactive command with no terminal of its own, so it goes
// through os/exec rather than internal/pty.
func (d *Dispatcher) runCopyPipe(cmdline, text string) {
	shell := d.defaultShell
	if shell == "" {
		shell = "sh"
	}
	cmd := exec.Command(shell, "-c", cmdline)
	cmd.Stdin = strings.NewReader(text)
	if err := cmd.Run(); err != nil {
		d.Logger.Warn("dispatch: copy-pipe command failed", "command", cmdline, "error", err)
	}
}

func handlePasteBuffer(d *Dispatcher, req control.Request) control.Response {
	pane, err := d.resolvePane(req.Target)
	if err != nil {
		return control.ErrResponse(err)
	}
	text := d.Buffers.Top()
	if name, _ := takeFlagValue(req.Args, "-b"); name != "" {
		if r := []rune(name); len(r) == 1 {
			text = d.Buffers.Register(r[0])
		}
	}
	if text == "" {
		return control.Response{Kind: control.Empty}
	}
	if _, err := pane.Write([]byte(text)); err != nil {
		return control.ErrResponse(err)
	}
	d.markForwarded()
	return control.Response{Kind: control.Empty}
}

func handleSetBuffer(d *Dispatcher, req control.Request) control.Response {
	if len(req.Args) == 0 {
		return control.ErrResponse(errMissingArg)
	}
	d.Buffers.Set(req.Args[len(req.Args)-1])
	return control.Response{Kind: control.Empty}
}

func handleShowBuffer(d *Dispatcher, req control.Request) control.Response {
	return control.BlobResponse([]byte(d.Buffers.Top()))
}

func handleDeleteBuffer(d *Dispatcher, req control.Request) control.Response {
	idx := 0
	if v, _ := takeFlagValue(req.Args, "-b"); v != "" {
		idx, _ = strconv.Atoi(v)
	}
	if !d.Buffers.Delete(idx) {
		return control.ErrResponse(fmt.Errorf("delete-buffer: no buffer %d", idx))
	}
	return control.Response{Kind: control.Empty}
}

func handleListBuffers(d *Dispatcher, req control.Request) control.Response {
	bufs := d.Buffers.List()
	lines := make([]string, len(bufs))
	for i, b := range bufs {
		lines[i] = fmt.Sprintf("%d: %d bytes", i, len(b))
	}
	return control.BlobResponse([]byte(strings.Join(lines, "\n")))
}

// markForwarded records that input was just written to a pane's pty, so
// the tick loop's adaptive timeout (spec.md §4.5) stays in its busy
// interval through the echo window even if no output has come back yet.
func (d *Dispatcher) markForwarded() {
	d.lastForwardAt = time.Now()
	d.stateDirty = true
}
