package keytable

import "fmt"

// Encode renders a chord as the byte sequence to forward to a child PTY
// when nothing in the active key tables bound it, per spec.md §6.5.
func Encode(c Chord) []byte {
	if seq, ok := namedKeyEscapes[c.Key]; ok && !c.Ctrl && !c.Alt {
		return seq
	}

	var base []byte
	switch {
	case c.Ctrl && len([]rune(c.Key)) == 1:
		r := []rune(c.Key)[0]
		if b, ok := controlByte(r); ok {
			base = []byte{b}
		} else {
			base = []byte(c.Key)
		}
	case c.Key == "Enter":
		base = []byte{'\r'}
	case c.Key == "Tab":
		base = []byte{'\t'}
	case c.Key == "BSpace":
		base = []byte{0x7f}
	case c.Key == "Escape":
		base = []byte{0x1b}
	case c.Key == "Space":
		base = []byte{' '}
	default:
		base = []byte(c.Key)
	}

	if c.Alt {
		return append([]byte{0x1b}, base...)
	}
	return base
}

// namedKeyEscapes covers the multi-byte CSI sequences spec.md §6.5 names
// for navigation and function keys.
var namedKeyEscapes = map[string][]byte{
	"Up":     {0x1b, '[', 'A'},
	"Down":   {0x1b, '[', 'B'},
	"Right":  {0x1b, '[', 'C'},
	"Left":   {0x1b, '[', 'D'},
	"Home":   {0x1b, '[', 'H'},
	"End":    {0x1b, '[', 'F'},
	"PPage":  {0x1b, '[', '5', '~'},
	"NPage":  {0x1b, '[', '6', '~'},
	"IC":     {0x1b, '[', '2', '~'},
	"DC":     {0x1b, '[', '3', '~'},
	"BTab":   {0x1b, '[', 'Z'},
	"F1":     {0x1b, 'O', 'P'},
	"F2":     {0x1b, 'O', 'Q'},
	"F3":     {0x1b, 'O', 'R'},
	"F4":     {0x1b, 'O', 'S'},
	"F5":     {0x1b, '[', '1', '5', '~'},
	"F6":     {0x1b, '[', '1', '7', '~'},
	"F7":     {0x1b, '[', '1', '8', '~'},
	"F8":     {0x1b, '[', '1', '9', '~'},
	"F9":     {0x1b, '[', '2', '0', '~'},
	"F10":    {0x1b, '[', '2', '1', '~'},
	"F11":    {0x1b, '[', '2', '3', '~'},
	"F12":    {0x1b, '[', '2', '4', '~'},
}

// controlByte maps a letter (or tmux's special control punctuation) to
// its control byte, generalizing myT-x's parseControlKey (C-a..C-z) to
// also cover the C-@, C-\, C-], C-^, C-_ forms spec.md §4.8 lists.
func controlByte(r rune) (byte, bool) {
	switch r {
	case '@':
		return 0x00, true
	case '\\':
		return 0x1c, true
	case ']':
		return 0x1d, true
	case '^':
		return 0x1e, true
	case '_':
		return 0x1f, true
	}
	if r >= 'a' && r <= 'z' {
		return byte(r-'a') + 1, true
	}
	if r >= 'A' && r <= 'Z' {
		return byte(r-'A') + 1, true
	}
	return 0, false
}

// EncodeMouse renders a mouse event as SGR ("ESC [ < Cb ; Cx ; Cy M/m")
// when the child has requested SGR mouse mode, or as legacy X10 encoding
// (press only, offset by 32) otherwise, per spec.md §6.6.
func EncodeMouse(cb, x, y int, release, sgr bool) []byte {
	if sgr {
		final := byte('M')
		if release {
			final = 'm'
		}
		return []byte(fmt.Sprintf("\x1b[<%d;%d;%d%c", cb, x, y, final))
	}
	if release {
		return nil
	}
	return []byte{0x1b, '[', 'M', byte(cb + 32), byte(x + 32), byte(y + 32)}
}
