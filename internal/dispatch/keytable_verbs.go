package dispatch

import (
	"fmt"
	"sort"
	"strings"

	"psmux/internal/control"
	"psmux/internal/keytable"
)

func init() {
	registerVerbs(map[string]handlerFunc{
		"bind-key":    handleBindKey,
		"unbind-key":  handleUnbindKey,
		"list-keys":   handleListKeys,
		"set-option":  handleSetOption,
		"show-options": handleShowOptions,
		"set-hook":    handleSetHook,
		"show-hooks":  handleShowHooks,
	})
}

// parseBindFlags consumes bind-key's leading flags (-r repeatable,
// -n root-table shorthand, -T <table>) and returns the table to bind
// into, the repeatable flag, and the remaining <key> <command...> args.
func parseBindFlags(args []string) (table string, repeatable bool, rest []string) {
	table = keytable.Prefix
	for len(args) > 0 {
		switch args[0] {
		case "-r":
			repeatable = true
			args = args[1:]
		case "-n":
			table = keytable.Root
			args = args[1:]
		case "-T":
			if len(args) < 2 {
				return table, repeatable, args
			}
			table = args[1]
			args = args[2:]
		default:
			return table, repeatable, args
		}
	}
	return table, repeatable, args
}

func handleBindKey(d *Dispatcher, req control.Request) control.Response {
	table, repeatable, rest := parseBindFlags(req.Args)
	if len(rest) < 2 {
		return control.ErrResponse(fmt.Errorf("bind-key: usage: bind-key [-r] [-n] [-T table] <key> <command>"))
	}
	chord, err := keytable.ParseChord(rest[0])
	if err != nil {
		return control.ErrResponse(err)
	}
	flat, err := flattenCommandChain(strings.Join(rest[1:], " "))
	if err != nil {
		return control.ErrResponse(err)
	}
	d.Keys.Registry().Table(table).Bind(chord, flat, repeatable)
	d.metaDirty = true
	return control.Response{Kind: control.Empty}
}

// flattenCommandChain tokenizes a bind-key/set-hook command string,
// splitting on tmux's "\;" chain separator, and flattens the result into
// one []string with chainSeparator marking the boundary between
// sub-commands: keytable.Binding only stores a single verb's argv, so a
// chained command needs some in-band way to recover its sub-command
// boundaries at execution time (see Dispatcher.executeChain).
func flattenCommandChain(commandLine string) ([]string, error) {
	var flat []string
	for i, sub := range keytable.SplitCommandChain(commandLine) {
		toks, err := control.TokenizeLine(sub)
		if err != nil {
			return nil, err
		}
		if i > 0 {
			flat = append(flat, chainSeparator)
		}
		flat = append(flat, toks...)
	}
	return flat, nil
}

func handleUnbindKey(d *Dispatcher, req control.Request) control.Response {
	table, _, rest := parseBindFlags(req.Args)
	if hasFlag(rest, "-a") {
		d.Keys.Registry().Table(table).UnbindAll()
		d.metaDirty = true
		return control.Response{Kind: control.Empty}
	}
	if len(rest) < 1 {
		return control.ErrResponse(errMissingArg)
	}
	chord, err := keytable.ParseChord(rest[0])
	if err != nil {
		return control.ErrResponse(err)
	}
	d.Keys.Registry().Table(table).Unbind(chord)
	d.metaDirty = true
	return control.Response{Kind: control.Empty}
}

func handleListKeys(d *Dispatcher, req control.Request) control.Response {
	table := keytable.Prefix
	if v, _ := takeFlagValue(req.Args, "-T"); v != "" {
		table = v
	}
	entries := d.Keys.Registry().Table(table).Entries()
	chords := make([]string, 0, len(entries))
	for c := range entries {
		chords = append(chords, c)
	}
	sort.Strings(chords)
	lines := make([]string, 0, len(chords))
	for _, c := range chords {
		b := entries[c]
		lines = append(lines, fmt.Sprintf("bind-key -T %s %s %s", table, c, strings.Join(unflattenChain(b.Command), " ")))
	}
	return control.BlobResponse([]byte(strings.Join(lines, "\n")))
}

func unflattenChain(argv []string) []string {
	out := make([]string, len(argv))
	for i, tok := range argv {
		if tok == chainSeparator {
			out[i] = `\;`
			continue
		}
		out[i] = tok
	}
	return out
}

func handleSetOption(d *Dispatcher, req control.Request) control.Response {
	args := removeFlag(req.Args, "-g")
	if len(args) < 2 {
		return control.ErrResponse(fmt.Errorf("set-option: usage: set-option [-g] <name> <value>"))
	}
	d.options[args[0]] = strings.Join(args[1:], " ")
	d.metaDirty = true
	return control.Response{Kind: control.Empty}
}

func handleShowOptions(d *Dispatcher, req control.Request) control.Response {
	names := make([]string, 0, len(d.options))
	for k := range d.options {
		names = append(names, k)
	}
	sort.Strings(names)
	lines := make([]string, len(names))
	for i, name := range names {
		lines[i] = fmt.Sprintf("%s %s", name, d.options[name])
	}
	return control.BlobResponse([]byte(strings.Join(lines, "\n")))
}

func handleSetHook(d *Dispatcher, req control.Request) control.Response {
	args := req.Args
	if hasFlag(args, "-u") {
		args = removeFlag(args, "-u")
		if len(args) < 1 {
			return control.ErrResponse(errMissingArg)
		}
		delete(d.hooks, args[0])
		return control.Response{Kind: control.Empty}
	}
	if len(args) < 2 {
		return control.ErrResponse(fmt.Errorf("set-hook: usage: set-hook [-u] <event> <command>"))
	}
	event := args[0]
	command := strings.Join(args[1:], " ")
	d.hooks[event] = append(d.hooks[event], command)
	return control.Response{Kind: control.Empty}
}

func handleShowHooks(d *Dispatcher, req control.Request) control.Response {
	events := make([]string, 0, len(d.hooks))
	for e := range d.hooks {
		events = append(events, e)
	}
	sort.Strings(events)
	var lines []string
	for _, e := range events {
		for _, cmd := range d.hooks[e] {
			lines = append(lines, fmt.Sprintf("%s -> %s", e, cmd))
		}
	}
	return control.BlobResponse([]byte(strings.Join(lines, "\n")))
}
