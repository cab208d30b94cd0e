package keytable

// DefaultPrimaryPrefix is the out-of-the-box prefix chord (spec.md §4.8:
// "default Ctrl-B").
var DefaultPrimaryPrefix = Chord{Key: "b", Ctrl: true}

// NewDefaultRegistry builds a registry carrying the same starter
// bindings a fresh tmux-compatible install ships with: enough of the
// prefix table to create/navigate/split/kill without any user
// configuration, plus the vi-style copy-mode motions. Every command here
// is a single verb; config.go layers user bind-key directives on top of
// this at load time.
func NewDefaultRegistry() *Registry {
	r := NewRegistry()
	prefix := r.Table(Prefix)

	bind := func(spelling string, repeatable bool, command ...string) {
		c, err := ParseChord(spelling)
		if err != nil {
			panic("keytable: invalid default binding spelling " + spelling)
		}
		prefix.Bind(c, command, repeatable)
	}

	bind("c", false, "new-window")
	bind("&", false, "confirm-before", "-p", "kill-window? (y/n)", "kill-window")
	bind("x", false, "confirm-before", "-p", "kill-pane? (y/n)", "kill-pane")
	bind(`"`, false, "split-window", "-v")
	bind("%", false, "split-window", "-h")
	bind("o", true, "select-pane", "-t", ":.+")
	bind(";", false, "last-pane")
	bind("n", false, "next-window")
	bind("p", false, "previous-window")
	bind("l", false, "last-window")
	bind("[", false, "copy-mode")
	bind("]", false, "paste-buffer")
	bind("z", false, "resize-pane", "-Z")
	bind("d", false, "detach-client")
	bind("Left", true, "select-pane", "-L")
	bind("Right", true, "select-pane", "-R")
	bind("Up", true, "select-pane", "-U")
	bind("Down", true, "select-pane", "-D")
	bind(":", false, "command-prompt")
	bind("C-b", false, "send-prefix")

	bindCopy := func(table *Table, spelling string, command ...string) {
		c, err := ParseChord(spelling)
		if err != nil {
			panic("keytable: invalid default copy-mode binding spelling " + spelling)
		}
		table.Bind(c, command, false)
	}

	vi := r.Table(CopyModeVi)
	bindCopy(vi, "h", "cursor-left")
	bindCopy(vi, "j", "cursor-down")
	bindCopy(vi, "k", "cursor-up")
	bindCopy(vi, "l", "cursor-right")
	bindCopy(vi, "w", "next-word")
	bindCopy(vi, "b", "previous-word")
	bindCopy(vi, "e", "next-word-end")
	bindCopy(vi, "0", "start-of-line")
	bindCopy(vi, "$", "end-of-line")
	bindCopy(vi, "g", "history-top")
	bindCopy(vi, "G", "history-bottom")
	bindCopy(vi, "v", "begin-selection")
	bindCopy(vi, "V", "select-line")
	bindCopy(vi, "y", "copy-selection-and-cancel")
	bindCopy(vi, "Escape", "cancel")
	bindCopy(vi, "/", "search-forward")
	bindCopy(vi, "?", "search-backward")
	bindCopy(vi, "n", "search-again")
	bindCopy(vi, "N", "search-reverse")

	emacs := r.Table(CopyMode)
	bindCopy(emacs, "C-Space", "begin-selection")
	bindCopy(emacs, "Escape", "cancel")
	bindCopy(emacs, "C-w", "copy-selection-and-cancel")
	bindCopy(emacs, "C-s", "search-forward")
	bindCopy(emacs, "C-r", "search-backward")

	return r
}
