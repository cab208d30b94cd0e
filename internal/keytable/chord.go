// Package keytable is the key-binding engine (spec component C6): chord
// normalization, the named key tables (root/prefix/copy-mode/
// copy-mode-vi/user-named) bindings live in, and the byte encodings used
// to forward an unbound key to a child PTY.
//
// Grounded on myT-x's internal/tmux/key_table.go send-keys literal table
// and C- control-key parser, generalized from a one-shot translation
// helper into a full chord type so it can also serve as a binding-table
// key and a dispatch-time lookup key.
package keytable

import (
	"fmt"
	"strings"
)

// Chord is a normalized key press: a base key name plus the modifier
// mask that was explicitly present in its spelling. ASCII letters are
// lowercased in Key unless Shift is set, matching spec.md §4.8's
// normalization rule.
type Chord struct {
	Key   string
	Ctrl  bool
	Alt   bool
	Shift bool
}

// String renders a chord back into tmux's C-/M-/S- prefixed notation,
// the canonical form used as a binding-table map key.
func (c Chord) String() string {
	var b strings.Builder
	if c.Ctrl {
		b.WriteString("C-")
	}
	if c.Alt {
		b.WriteString("M-")
	}
	if c.Shift {
		b.WriteString("S-")
	}
	b.WriteString(c.Key)
	return b.String()
}

// specialKeyNames parses to a dedicated keycode rather than a single
// character, per spec.md §4.8.
var specialKeyNames = map[string]string{
	"enter":  "Enter",
	"return": "Enter",
	"bspace": "BSpace",
	"ppage":  "PPage",
	"pgup":   "PPage",
	"npage":  "NPage",
	"pgdn":   "NPage",
	"ic":     "IC",
	"insert": "IC",
	"dc":     "DC",
	"delete": "DC",
	"space":  "Space",
	"tab":    "Tab",
	"escape": "Escape",
	"esc":    "Escape",
	"up":     "Up",
	"down":   "Down",
	"left":   "Left",
	"right":  "Right",
	"home":   "Home",
	"end":    "End",
}

// ParseChord parses a tmux-style chord spelling ("C-b", "M-S-Left", "F5",
// "a") into its normalized form. Modifier prefixes stack in any order;
// case of the prefix letters themselves is insignificant, but the final
// key token's case is preserved unless it collapses to a known special
// or function-key name.
func ParseChord(spelling string) (Chord, error) {
	spelling = strings.TrimSpace(spelling)
	if spelling == "" {
		return Chord{}, fmt.Errorf("keytable: empty chord")
	}

	var c Chord
	rest := spelling
modifiers:
	for {
		switch {
		case strings.HasPrefix(rest, "C-") || strings.HasPrefix(rest, "c-"):
			c.Ctrl = true
			rest = rest[2:]
		case strings.HasPrefix(rest, "M-") || strings.HasPrefix(rest, "m-"):
			c.Alt = true
			rest = rest[2:]
		case strings.HasPrefix(rest, "S-") || strings.HasPrefix(rest, "s-"):
			c.Shift = true
			rest = rest[2:]
		default:
			break modifiers
		}
	}
	if rest == "" {
		return Chord{}, fmt.Errorf("keytable: empty key after modifiers in %q", spelling)
	}

	if isFunctionKey(rest) {
		c.Key = strings.ToUpper(rest)
		return c, nil
	}
	if name, ok := specialKeyNames[strings.ToLower(rest)]; ok {
		c.Key = name
		return c, nil
	}
	if len([]rune(rest)) == 1 {
		r := []rune(rest)[0]
		if r >= 'A' && r <= 'Z' && !c.Shift {
			c.Shift = true
		}
		if !c.Shift {
			rest = strings.ToLower(rest)
		}
		c.Key = rest
		return c, nil
	}
	// Multi-rune key that isn't special/function: keep as-is (e.g. a
	// user-defined named key passed through set-option).
	c.Key = rest
	return c, nil
}

func isFunctionKey(s string) bool {
	if len(s) < 2 || (s[0] != 'F' && s[0] != 'f') {
		return false
	}
	n := 0
	for _, r := range s[1:] {
		if r < '0' || r > '9' {
			return false
		}
		n = n*10 + int(r-'0')
	}
	return n >= 1 && n <= 12
}
