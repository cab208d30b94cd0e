package control

import (
	"strings"
	"sync"
)

// AliasTable is the shared, read-mostly command-alias map spec.md §4.9
// describes ("e.g. ls=list-sessions"). Connection handlers read it under
// a read lock on every request; set-option command-alias updates it
// under a write lock. Grounded on the teacher's CommandRouter fields
// (command_router.go), which guard each independent piece of mutable
// router state with its own narrowly-scoped RWMutex rather than one
// coarse lock.
type AliasTable struct {
	mu      sync.RWMutex
	aliases map[string]string
}

// NewAliasTable returns a table seeded with the defaults tmux ships:
// the common short verbs users expect to work unexpanded.
func NewAliasTable() *AliasTable {
	return &AliasTable{
		aliases: map[string]string{
			"ls":      "list-sessions",
			"new":     "new-session",
			"attach":  "attach-session",
			"detach":  "detach-client",
			"lsw":     "list-windows",
			"lsp":     "list-panes",
			"neww":    "new-window",
			"splitw":  "split-window",
			"selectw": "select-window",
			"selectp": "select-pane",
			"killp":   "kill-pane",
			"killw":   "kill-window",
			"killsv":  "kill-server",
			"rename":  "rename-session",
			"set":     "set-option",
			"setw":    "set-window-option",
			"bind":    "bind-key",
			"unbind":  "unbind-key",
		},
	}
}

// Expand resolves verb through the alias table, returning verb
// unchanged if no alias is registered.
func (t *AliasTable) Expand(verb string) string {
	t.mu.RLock()
	defer t.mu.RUnlock()
	if expanded, ok := t.aliases[verb]; ok {
		return expanded
	}
	return verb
}

// Set registers or replaces an alias (set-option command-alias <name>=<expansion>).
func (t *AliasTable) Set(name, expansion string) {
	name = strings.TrimSpace(name)
	expansion = strings.TrimSpace(expansion)
	t.mu.Lock()
	defer t.mu.Unlock()
	t.aliases[name] = expansion
}

// All returns a snapshot of the alias table for show-hooks/show-options
// style introspection commands.
func (t *AliasTable) All() map[string]string {
	t.mu.RLock()
	defer t.mu.RUnlock()
	out := make(map[string]string, len(t.aliases))
	for k, v := range t.aliases {
		out[k] = v
	}
	return out
}
