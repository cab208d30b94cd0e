// stream.go implements the reserved streaming verbs spec.md §6.4 lists:
// the ones an attach client (internal/attach, C11) issues on its
// persistent connection once it calls client-attach, as opposed to the
// one-shot CLI verb set in verbs.go/keytable_verbs.go.
package dispatch

import (
	"encoding/base64"
	"encoding/json"
	"fmt"
	"strconv"
	"time"

	"psmux/internal/control"
	"psmux/internal/copymode"
	"psmux/internal/keytable"
	"psmux/internal/render"
	"psmux/internal/session"
	winshell "psmux/internal/shell"
)

// wheelScrollLines is how many lines one scroll-wheel tick moves the
// copy-mode viewport, matching tmux's default wheel sensitivity.
const wheelScrollLines = 3

func init() {
	registerVerbs(map[string]handlerFunc{
		"dump-state":         handleDumpState,
		"dump-layout":        handleDumpLayout,
		"client-size":        handleClientSize,
		"send-key":           handleSendKey,
		"send-text":          handleSendText,
		"send-paste":         handleSendPaste,
		"mouse-down":         mouseHandler(0, false),
		"mouse-up":           mouseHandler(0, true),
		"mouse-drag":         mouseHandler(32, false),
		"mouse-down-right":   mouseHandler(2, false),
		"mouse-up-right":     mouseHandler(2, true),
		"mouse-down-middle":  mouseHandler(1, false),
		"mouse-up-middle":    mouseHandler(1, true),
		"mouse-move":         mouseHandler(35, false),
		"scroll-up":          scrollHandler(64),
		"scroll-down":        scrollHandler(65),
		"display-message":    handleDisplayMessage,
	})
}

// handleDumpState implements spec.md §4.5.a's NC gate: a request with
// the nc flag and nothing dirty since the last rebuild gets the 2-byte
// Unchanged short response without the Builder ever running; otherwise a
// full frame is built and state_dirty is cleared.
func handleDumpState(d *Dispatcher, req control.Request) control.Response {
	sess, err := d.resolveSession(req.Target)
	if err != nil {
		return control.ErrResponse(err)
	}
	if req.NC && !d.stateDirty {
		return control.Response{Kind: control.Unchanged}
	}
	frame, err := d.Builder.Build(sess.Name)
	if err != nil {
		return control.ErrResponse(err)
	}
	d.stateDirty = false
	d.metaDirty = false
	data, err := json.Marshal(frame)
	if err != nil {
		return control.ErrResponse(err)
	}
	return control.BlobResponse(data)
}

func handleDumpLayout(d *Dispatcher, req control.Request) control.Response {
	sess, err := d.resolveSession(req.Target)
	if err != nil {
		return control.ErrResponse(err)
	}
	frame, err := d.Builder.Build(sess.Name)
	if err != nil {
		return control.ErrResponse(err)
	}
	data, err := json.Marshal(frame.Layout)
	if err != nil {
		return control.ErrResponse(err)
	}
	return control.BlobResponse(data)
}

func handleClientSize(d *Dispatcher, req control.Request) control.Response {
	if len(req.Args) < 2 {
		return control.ErrResponse(errMissingArg)
	}
	cols, err1 := strconv.Atoi(req.Args[0])
	rows, err2 := strconv.Atoi(req.Args[1])
	if err1 != nil || err2 != nil || cols <= 0 || rows <= 0 {
		return control.ErrResponse(fmt.Errorf("client-size: invalid size %q %q", req.Args[0], req.Args[1]))
	}
	d.clientCols, d.clientRows = cols, rows
	if pane, err := d.resolvePane(req.Target); err == nil {
		resizeWindowToClient(pane.Window, cols, rows)
	}
	d.stateDirty, d.metaDirty = true, true
	return control.Response{Kind: control.Empty}
}

// resizeWindowToClient resizes every pane in win to match an attach
// client's new terminal size. psmux, like tmux, ties a window's size to
// its largest attached client rather than letting panes diverge, so a
// single client-size request resizes the whole active window's panes.
func resizeWindowToClient(win *session.Window, cols, rows int) {
	for _, pane := range win.Panes {
		pane.Resize(cols, rows)
	}
}

// handleSendKey translates one named key chord (spec.md §6.5 spellings)
// through the focused pane's key-table dispatch: a copy-mode pane
// consults the copy-mode table first (falling back to built-in digit
// accumulation for a bare numeric count prefix), everything else goes
// through keytable.Dispatcher.Dispatch.
func handleSendKey(d *Dispatcher, req control.Request) control.Response {
	pane, err := d.resolvePane(req.Target)
	if err != nil {
		return control.ErrResponse(err)
	}
	if len(req.Args) == 0 {
		return control.ErrResponse(errMissingArg)
	}
	chord, err := keytable.ParseChord(req.Args[0])
	if err != nil {
		return control.ErrResponse(err)
	}

	if engine, inCopyMode := d.copyEngines[pane.ID]; inCopyMode {
		return d.dispatchCopyModeKey(pane, engine, chord)
	}

	outcome := d.Keys.Dispatch(chord, time.Now())
	switch {
	case outcome.Armed:
		return control.Response{Kind: control.Empty}
	case outcome.Matched:
		return d.executeChain(outcome.Command, req.Target)
	default:
		if _, err := pane.Write(keytable.Encode(chord)); err != nil {
			return control.ErrResponse(err)
		}
		d.markForwarded()
		return control.Response{Kind: control.Empty}
	}
}

func (d *Dispatcher) dispatchCopyModeKey(pane *session.Pane, engine *copymode.Engine, chord keytable.Chord) control.Response {
	outcome, matched := d.Keys.DispatchCopyMode(chord, d.options["mode-keys"] == "vi")
	if matched {
		if len(outcome.Command) > 0 {
			if _, isVerb := verbTable[outcome.Command[0]]; !isVerb {
				// A bare copy-mode sub-verb binding (the default copy-mode
				// tables' "cursor-left", "copy-selection-and-cancel", ...)
				// runs on the pane's engine the way send-keys -X does.
				return d.executeCopyModeVerb(pane, outcome.Command[0], outcome.Command[1:])
			}
		}
		target := pane.IDString()
		return d.executeChain(outcome.Command, target)
	}
	if !chord.Ctrl && !chord.Alt && len(chord.Key) == 1 && chord.Key[0] >= '0' && chord.Key[0] <= '9' {
		engine.AccumulateDigit(int(chord.Key[0] - '0'))
		d.stateDirty = true
		return control.Response{Kind: control.Empty}
	}
	return control.Response{Kind: control.Empty}
}

// handleSendText writes a literal string into a pane, the way send-keys
// delivers a typed command line rather than a named chord. On Windows,
// winshell.TranslateSendKeysArgs rewrites the Unix "cd '/c/work' &&
// FOO=bar prog" idiom users bring with them into the PowerShell pane's
// own syntax before it's typed; it is a no-op everywhere else and for
// text that doesn't match that shape.
func handleSendText(d *Dispatcher, req control.Request) control.Response {
	pane, err := d.resolvePane(req.Target)
	if err != nil {
		return control.ErrResponse(err)
	}
	if len(req.Args) == 0 {
		return control.ErrResponse(errMissingArg)
	}
	text := winshell.TranslateSendKeysArgs(req.Args)[0]
	if _, err := pane.Write([]byte(text)); err != nil {
		return control.ErrResponse(err)
	}
	d.markForwarded()
	return control.Response{Kind: control.Empty}
}

func handleSendPaste(d *Dispatcher, req control.Request) control.Response {
	pane, err := d.resolvePane(req.Target)
	if err != nil {
		return control.ErrResponse(err)
	}
	if len(req.Args) == 0 {
		return control.ErrResponse(errMissingArg)
	}
	raw, err := base64.StdEncoding.DecodeString(req.Args[0])
	if err != nil {
		return control.ErrResponse(fmt.Errorf("send-paste: %w", err))
	}
	if _, err := pane.Write(raw); err != nil {
		return control.ErrResponse(err)
	}
	d.markForwarded()
	return control.Response{Kind: control.Empty}
}

// mouseHandler builds a verb handler for one mouse-button event name.
// cb is the SGR button code spec.md §6.6 assigns that gesture; release
// marks it as a button-up event.
func mouseHandler(cb int, release bool) handlerFunc {
	return func(d *Dispatcher, req control.Request) control.Response {
		pane, err := d.resolvePane(req.Target)
		if err != nil {
			return control.ErrResponse(err)
		}
		x, y, err := parseXY(req.Args)
		if err != nil {
			return control.ErrResponse(err)
		}
		if _, err := pane.Write(keytable.EncodeMouse(cb, x, y, release, true)); err != nil {
			return control.ErrResponse(err)
		}
		d.markForwarded()
		return control.Response{Kind: control.Empty}
	}
}

func scrollHandler(cb int) handlerFunc {
	return func(d *Dispatcher, req control.Request) control.Response {
		pane, err := d.resolvePane(req.Target)
		if err != nil {
			return control.ErrResponse(err)
		}
		if engine, inCopyMode := d.copyEngines[pane.ID]; inCopyMode {
			delta := wheelScrollLines
			if cb == 64 {
				delta = -wheelScrollLines
			}
			engine.ScrollPage(delta)
			d.stateDirty = true
			return control.Response{Kind: control.Empty}
		}
		x, y, err := parseXY(req.Args)
		if err != nil {
			return control.ErrResponse(err)
		}
		if _, err := pane.Write(keytable.EncodeMouse(cb, x, y, false, true)); err != nil {
			return control.ErrResponse(err)
		}
		d.markForwarded()
		return control.Response{Kind: control.Empty}
	}
}

func parseXY(args []string) (int, int, error) {
	if len(args) < 2 {
		return 0, 0, errMissingArg
	}
	x, err1 := strconv.Atoi(args[0])
	y, err2 := strconv.Atoi(args[1])
	if err1 != nil || err2 != nil {
		return 0, 0, fmt.Errorf("invalid coordinates %q %q", args[0], args[1])
	}
	return x, y, nil
}

func handleDisplayMessage(d *Dispatcher, req control.Request) control.Response {
	pane, err := d.resolvePane(req.Target)
	if err != nil {
		return control.ErrResponse(err)
	}
	format := render.DefaultStatusFormat
	args := removeFlag(req.Args, "-p")
	if len(args) > 0 {
		format = args[len(args)-1]
	}
	msg := render.ExpandStatusFormat(format, pane.Window)
	d.messages = append(d.messages, msg)
	if len(d.messages) > 50 {
		d.messages = d.messages[len(d.messages)-50:]
	}
	return control.TextResponse(msg)
}
