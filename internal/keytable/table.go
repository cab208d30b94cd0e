package keytable

import "strings"

// Binding is one entry in a key table: the command chain to run when its
// chord matches, and whether the table stays armed for another chord
// afterwards (the `-r` / repeatable flag, spec.md §4.6 bind-key).
type Binding struct {
	Command    []string
	Repeatable bool
}

// Table is a named collection of chord->binding entries. The standard
// tables are root, prefix, copy-mode, copy-mode-vi; set-option
// key-table/switch-client -T can also target arbitrary user-named tables.
type Table struct {
	Name     string
	bindings map[string]Binding
}

// NewTable creates an empty table with the given name.
func NewTable(name string) *Table {
	return &Table{Name: name, bindings: map[string]Binding{}}
}

// Bind installs or replaces the binding for chord.
func (t *Table) Bind(chord Chord, command []string, repeatable bool) {
	t.bindings[chord.String()] = Binding{Command: append([]string(nil), command...), Repeatable: repeatable}
}

// Unbind removes chord's binding, reporting whether one existed.
func (t *Table) Unbind(chord Chord) bool {
	key := chord.String()
	if _, ok := t.bindings[key]; !ok {
		return false
	}
	delete(t.bindings, key)
	return true
}

// UnbindAll clears every binding in the table (unbind-key -a).
func (t *Table) UnbindAll() {
	t.bindings = map[string]Binding{}
}

// Lookup resolves chord to its binding.
func (t *Table) Lookup(chord Chord) (Binding, bool) {
	b, ok := t.bindings[chord.String()]
	return b, ok
}

// Entries returns every (chord spelling, binding) pair, for list-keys.
func (t *Table) Entries() map[string]Binding {
	out := make(map[string]Binding, len(t.bindings))
	for k, v := range t.bindings {
		out[k] = v
	}
	return out
}

// Registry holds every key table a session knows about, keyed by name.
// Standard table names are exported as constants; anything else is a
// user-named table created on first bind-key -T <name>.
type Registry struct {
	tables map[string]*Table
}

const (
	Root       = "root"
	Prefix     = "prefix"
	CopyMode   = "copy-mode"
	CopyModeVi = "copy-mode-vi"
)

// NewRegistry creates a registry pre-populated with the standard tables.
func NewRegistry() *Registry {
	r := &Registry{tables: map[string]*Table{}}
	for _, name := range []string{Root, Prefix, CopyMode, CopyModeVi} {
		r.tables[name] = NewTable(name)
	}
	return r
}

// Table returns the named table, creating it (as a user-named table) if
// it doesn't exist yet.
func (r *Registry) Table(name string) *Table {
	name = strings.TrimSpace(name)
	if name == "" {
		name = Root
	}
	t, ok := r.tables[name]
	if !ok {
		t = NewTable(name)
		r.tables[name] = t
	}
	return t
}

// Names returns every known table name.
func (r *Registry) Names() []string {
	out := make([]string, 0, len(r.tables))
	for name := range r.tables {
		out = append(out, name)
	}
	return out
}

// SplitCommandChain splits a bind-key command string on the tmux `\;`
// chain separator into its individual commands.
func SplitCommandChain(command string) []string {
	var out []string
	var cur strings.Builder
	runes := []rune(command)
	for i := 0; i < len(runes); i++ {
		if runes[i] == '\\' && i+1 < len(runes) && runes[i+1] == ';' {
			out = append(out, strings.TrimSpace(cur.String()))
			cur.Reset()
			i++
			continue
		}
		cur.WriteRune(runes[i])
	}
	if s := strings.TrimSpace(cur.String()); s != "" || len(out) == 0 {
		out = append(out, s)
	}
	return out
}
