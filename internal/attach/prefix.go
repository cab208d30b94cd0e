package attach

import (
	"time"

	"psmux/internal/keytable"
)

// localDispatcher mirrors the server's keytable.Dispatcher just enough
// to recognize the one binding that must act locally: detach-client
// closes this terminal's connection, not anything the dispatcher's verb
// table can run server-side (internal/dispatch has no "detach-client"
// verb — detaching is a connection-lifecycle action, the same kind of
// wire-level concern as the literal client-attach/client-detach
// keywords, so it stays client-side). Every other chord, matched or
// not, is still forwarded to the server unchanged: the server owns the
// authoritative prefix-arming state (per-pane copy mode, escape
// timeouts), so this probe never substitutes its own verdict for the
// server's — it only watches for the one outcome it must act on itself.
type localDispatcher struct {
	keys *keytable.Dispatcher
}

func newLocalDispatcher(registry *keytable.Registry, primary, secondary keytable.Chord, escapeTimeout time.Duration) *localDispatcher {
	return &localDispatcher{keys: keytable.NewDispatcher(registry, primary, secondary, escapeTimeout)}
}

// isDetach reports whether chord completes the detach-client binding.
func (l *localDispatcher) isDetach(chord keytable.Chord) bool {
	outcome := l.keys.Dispatch(chord, time.Now())
	return outcome.Matched && len(outcome.Command) > 0 && outcome.Command[0] == "detach-client"
}
