package attach

import (
	"encoding/base64"
	"encoding/json"
	"fmt"
	"os"
	"time"

	"psmux/internal/keytable"
	"psmux/internal/render"
)

// frameInterval is how often the attach loop polls dump-state while
// idle; faster than this buys nothing since the server only rebuilds a
// frame when something actually changed (the nc/Unchanged short
// circuit in internal/dispatch/stream.go), and an attach client that
// just forwarded a key re-polls immediately afterward instead of
// waiting out this tick (see the input branch below).
const frameInterval = 33 * time.Millisecond

// Run drives one attach session against conn: raw terminal mode, input
// decoding, and a dump-state poll loop that repaints the screen
// whenever the server reports a changed frame. It returns when the
// connection is lost or the user detaches.
func Run(conn *Conn, target string) error {
	if err := conn.SetTarget(target); err != nil {
		return err
	}

	term, err := enterTerminal()
	if err != nil {
		return err
	}
	defer term.Restore()

	cols, rows, err := terminalSize()
	if err != nil {
		cols, rows = 80, 24
	}
	conn.Fire(fmt.Sprintf("client-size %d %d", cols, rows))

	if err := conn.Attach(); err != nil {
		return err
	}

	local := newLocalDispatcher(keytable.NewDefaultRegistry(), keytable.DefaultPrimaryPrefix, keytable.Chord{}, 500*time.Millisecond)

	events := make(chan Event, 64)
	decodeErrs := make(chan error, 1)
	go func() {
		dec := NewDecoder(os.Stdin)
		for {
			ev, err := dec.Next()
			if err != nil {
				decodeErrs <- err
				return
			}
			events <- ev
		}
	}()

	resized := make(chan struct{}, 1)
	stopResize := make(chan struct{})
	go func() {
		w := newResizeWatcher()
		ticker := time.NewTicker(resizePollInterval)
		defer ticker.Stop()
		for {
			select {
			case <-stopResize:
				return
			case <-ticker.C:
				if _, _, changed := w.poll(); changed {
					select {
					case resized <- struct{}{}:
					default:
					}
				}
			}
		}
	}()
	defer close(stopResize)

	painter := NewPainter()
	paint := func() error {
		resp, err := conn.Request("dump-state nc")
		if err != nil {
			return err
		}
		if resp.Unchanged || len(resp.Data) == 0 {
			return nil
		}
		var frame render.Frame
		if err := json.Unmarshal(resp.Data, &frame); err != nil {
			return nil
		}
		cols, rows, _ := terminalSize()
		os.Stdout.WriteString(painter.Paint(&frame, cols, rows))
		return nil
	}

	if err := paint(); err != nil {
		return err
	}

	ticker := time.NewTicker(frameInterval)
	defer ticker.Stop()

	for {
		select {
		case ev := <-events:
			detach, err := handleInputEvent(conn, local, ev)
			if err != nil {
				return nil
			}
			if detach {
				conn.Detach()
				return nil
			}
			if err := paint(); err != nil {
				return nil
			}
		case err := <-decodeErrs:
			conn.Detach()
			return err
		case <-resized:
			cols, rows, err := terminalSize()
			if err == nil {
				conn.Fire(fmt.Sprintf("client-size %d %d", cols, rows))
			}
		case <-ticker.C:
			if err := paint(); err != nil {
				return nil
			}
		}
	}
}

// handleInputEvent forwards one decoded input event to the server,
// reporting whether it completed the local detach binding. Each chord
// is run through local exactly once: the dispatcher is stateful (prefix
// arming, escape timeouts), so probing it twice per event would desync
// it from the single pass the server performs on its own copy.
func handleInputEvent(conn *Conn, local *localDispatcher, ev Event) (bool, error) {
	switch {
	case ev.Paste != nil:
		return false, conn.Fire("send-paste " + base64.StdEncoding.EncodeToString(ev.Paste))
	case ev.Mouse != nil:
		return false, conn.Fire(mouseVerb(ev.Mouse))
	default:
		if local.isDetach(ev.Chord) {
			return true, nil
		}
		return false, conn.Fire("send-key " + ev.Chord.String())
	}
}

// mouseVerb picks the stream.go verb name matching one SGR mouse
// report's button code and press/release state.
func mouseVerb(m *MouseEvent) string {
	verb := "mouse-move"
	switch {
	case m.Cb == 64:
		verb = "scroll-up"
	case m.Cb == 65:
		verb = "scroll-down"
	case m.Cb&0x20 != 0:
		verb = "mouse-drag"
	case m.Cb&3 == 2:
		verb = ifStr(m.Release, "mouse-up-right", "mouse-down-right")
	case m.Cb&3 == 1:
		verb = ifStr(m.Release, "mouse-up-middle", "mouse-down-middle")
	case m.Cb&3 == 0:
		verb = ifStr(m.Release, "mouse-up", "mouse-down")
	}
	return fmt.Sprintf("%s %d %d", verb, m.X, m.Y)
}

func ifStr(cond bool, yes, no string) string {
	if cond {
		return yes
	}
	return no
}
