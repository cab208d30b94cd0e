package main

import "strings"

// parsedArgs is the result of splitting a psmux invocation into the
// global connection flags and the subcommand psmuxd actually executes.
// A full flag-parsing framework is out of scope (spec.md §1 calls CLI
// parsing an external-collaborator concern); this is the same
// hand-rolled combined-flag/"--" style the deleted tmux-shim parser
// used, rewritten against this module's smaller flag set.
type parsedArgs struct {
	Socket  string // -L, defaults to "default"
	Target  string // -t, may be empty
	Command string
	Args    []string
}

// parseArgs splits argv (without the program name) into global flags
// and a subcommand. Global -L/-t may appear before the subcommand; when
// no global -t was given, a -t appearing after the subcommand (e.g.
// "kill-session -t foo") is recovered as Target, so the caller can
// resolve which session's port file to dial, and removed from Args.
func parseArgs(argv []string) (parsedArgs, error) {
	p := parsedArgs{Socket: "default"}
	i := 0
	for i < len(argv) {
		arg := argv[i]
		switch {
		case arg == "-L":
			if i+1 >= len(argv) {
				return p, errMissingValue("-L")
			}
			p.Socket = argv[i+1]
			i += 2
		case strings.HasPrefix(arg, "-L") && len(arg) > 2:
			p.Socket = arg[2:]
			i++
		case arg == "-t":
			if i+1 >= len(argv) {
				return p, errMissingValue("-t")
			}
			p.Target = argv[i+1]
			i += 2
		case strings.HasPrefix(arg, "-t") && len(arg) > 2:
			p.Target = arg[2:]
			i++
		default:
			p.Command = arg
			p.Args = append([]string{}, argv[i+1:]...)
			i = len(argv)
		}
	}
	if p.Target == "" {
		p.Target, p.Args = extractTarget(p.Args)
	}
	return p, nil
}

// extractTarget recovers a "-t <target>" pair embedded in a
// subcommand's own argument list (e.g. "psmux kill-session -t foo") and
// removes it from the returned args, since the target travels instead
// as a TARGET line / control.Request.Target and every verb handler
// reads it from there rather than re-parsing its own Args.
func extractTarget(args []string) (string, []string) {
	for i, a := range args {
		if a == "-t" && i+1 < len(args) {
			rest := append(append([]string{}, args[:i]...), args[i+2:]...)
			return args[i+1], rest
		}
		if strings.HasPrefix(a, "-t") && len(a) > 2 {
			rest := append(append([]string{}, args[:i]...), args[i+1:]...)
			return a[2:], rest
		}
	}
	return "", args
}

// sessionName extracts the session part of a target spec such as
// "work:1.0", stopping at the first ':'.
func sessionName(target string) string {
	if idx := strings.IndexByte(target, ':'); idx >= 0 {
		return target[:idx]
	}
	return target
}

type errMissingValue string

func (e errMissingValue) Error() string {
	return string(e) + " requires a value"
}
