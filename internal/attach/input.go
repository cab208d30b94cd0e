package attach

import (
	"bytes"
	"errors"
	"io"
	"time"

	"psmux/internal/keytable"
)

// escTimeout bounds how long the decoder waits after a bare ESC byte
// before concluding it really is a standalone Escape key rather than
// the start of a CSI/SS3 sequence or an Alt-prefixed key. keytable's
// own Dispatcher arms an analogous escape-timeout window server-side
// for prefix-sequence detection (internal/keytable/dispatch.go); this
// is the same idea applied to raw terminal bytes instead of chords.
const escTimeout = 35 * time.Millisecond

const (
	pasteStart = "\x1b[200~"
	pasteEnd   = "\x1b[201~"
)

// Event is one decoded unit of terminal input: exactly one of Chord,
// Paste, or Mouse is meaningful.
type Event struct {
	Chord keytable.Chord
	Paste []byte
	Mouse *MouseEvent
}

// MouseEvent is one SGR mouse report (spec.md §6.6); Cb is the same
// button/modifier code internal/dispatch/stream.go's mouse-* verbs
// expect, so the client only has to pick the matching verb name, not
// re-derive the code.
type MouseEvent struct {
	Cb      int
	X, Y    int
	Release bool
}

// Decoder turns a raw byte stream from a terminal in raw mode into
// Events, reversing the escape sequences keytable.Encode produces (no
// decoder for this exists anywhere in the retrieved examples; the
// forward tables in internal/keytable/encode.go are the only available
// grounding, so this inverts them directly rather than adopting a
// generic ANSI-input library the corpus never uses — see DESIGN.md).
type Decoder struct {
	bytesCh <-chan byte
	errCh   <-chan error
}

// NewDecoder starts a background goroutine draining r one byte at a
// time into a channel so escape-sequence lookahead can use a timeout
// (an io.Reader alone has no portable way to do a bounded-wait read).
func NewDecoder(r io.Reader) *Decoder {
	bytesCh := make(chan byte, 256)
	errCh := make(chan error, 1)
	go func() {
		buf := make([]byte, 1)
		for {
			n, err := r.Read(buf)
			if n > 0 {
				bytesCh <- buf[0]
			}
			if err != nil {
				errCh <- err
				close(bytesCh)
				return
			}
		}
	}()
	return &Decoder{bytesCh: bytesCh, errCh: errCh}
}

// Next blocks until one Event is available or the underlying reader is
// closed/errors.
func (d *Decoder) Next() (Event, error) {
	b, err := d.readByte(-1)
	if err != nil {
		return Event{}, err
	}

	switch {
	case b == 0x1b:
		return d.decodeEscape()
	case b == 0x7f:
		return Event{Chord: keytable.Chord{Key: "BSpace"}}, nil
	case b == '\r' || b == '\n':
		return Event{Chord: keytable.Chord{Key: "Enter"}}, nil
	case b == '\t':
		return Event{Chord: keytable.Chord{Key: "Tab"}}, nil
	case b < 0x20:
		return Event{Chord: chordFromControlByte(b)}, nil
	default:
		return d.decodeUTF8(b)
	}
}

func (d *Decoder) decodeEscape() (Event, error) {
	b, err := d.readByte(escTimeout)
	if err != nil {
		// Nothing followed within the timeout: a bare Escape key.
		return Event{Chord: keytable.Chord{Key: "Escape"}}, nil
	}
	if b == '[' {
		return d.decodeCSI()
	}
	if b == 'O' {
		return d.decodeSS3()
	}
	// Alt-prefixed printable key.
	ev, err := d.decodeUTF8(b)
	if err != nil {
		return Event{}, err
	}
	ev.Chord.Alt = true
	return ev, nil
}

func (d *Decoder) decodeCSI() (Event, error) {
	first, err := d.readByte(escTimeout)
	if err != nil {
		return Event{Chord: keytable.Chord{Key: "Escape"}}, nil
	}
	if first == '<' {
		return d.decodeSGRMouse()
	}

	seq := []byte{0x1b, '[', first}
	for {
		b, err := d.readByte(escTimeout)
		if err != nil {
			return Event{Chord: keytable.Chord{Key: "Escape"}}, nil
		}
		seq = append(seq, b)
		if bytes.Equal(seq, []byte(pasteStart)) {
			return d.readPaste()
		}
		if isCSITerminator(b) {
			break
		}
		if len(seq) > 16 {
			break
		}
	}
	if key, ok := reverseNamedEscapes[string(seq)]; ok {
		return Event{Chord: keytable.Chord{Key: key}}, nil
	}
	// Unrecognized CSI sequence: drop it rather than forwarding garbage.
	return d.Next()
}

// decodeSGRMouse parses "<Cb;Px;Py(M|m)" (the body after "\x1b[<"),
// the SGR mouse-report format keytable.EncodeMouse's sgr=true branch
// produces in the other direction.
func (d *Decoder) decodeSGRMouse() (Event, error) {
	cb, err := d.readInt(';')
	if err != nil {
		return d.Next()
	}
	x, err := d.readInt(';')
	if err != nil {
		return d.Next()
	}
	y, term, err := d.readIntTerm()
	if err != nil {
		return d.Next()
	}
	return Event{Mouse: &MouseEvent{Cb: cb, X: x, Y: y, Release: term == 'm'}}, nil
}

func (d *Decoder) readInt(sep byte) (int, error) {
	n, _, err := d.readIntUntil(func(b byte) bool { return b == sep })
	return n, err
}

func (d *Decoder) readIntTerm() (int, byte, error) {
	return d.readIntUntil(func(b byte) bool { return b == 'M' || b == 'm' })
}

func (d *Decoder) readIntUntil(stop func(byte) bool) (int, byte, error) {
	n := 0
	for {
		b, err := d.readByte(escTimeout)
		if err != nil {
			return 0, 0, err
		}
		if stop(b) {
			return n, b, nil
		}
		if b < '0' || b > '9' {
			return 0, 0, errTimeout
		}
		n = n*10 + int(b-'0')
	}
}

func (d *Decoder) decodeSS3() (Event, error) {
	b, err := d.readByte(escTimeout)
	if err != nil {
		return Event{Chord: keytable.Chord{Key: "Escape"}}, nil
	}
	seq := string([]byte{0x1b, 'O', b})
	if key, ok := reverseNamedEscapes[seq]; ok {
		return Event{Chord: keytable.Chord{Key: key}}, nil
	}
	return d.Next()
}

func (d *Decoder) readPaste() (Event, error) {
	var buf bytes.Buffer
	end := []byte(pasteEnd)
	for {
		b, err := d.readByte(-1)
		if err != nil {
			return Event{}, err
		}
		buf.WriteByte(b)
		if buf.Len() >= len(end) && bytes.Equal(buf.Bytes()[buf.Len()-len(end):], end) {
			data := buf.Bytes()[:buf.Len()-len(end)]
			out := make([]byte, len(data))
			copy(out, data)
			return Event{Paste: out}, nil
		}
	}
}

func (d *Decoder) decodeUTF8(first byte) (Event, error) {
	n := utf8ByteCount(first)
	buf := []byte{first}
	for i := 1; i < n; i++ {
		b, err := d.readByte(-1)
		if err != nil {
			return Event{}, err
		}
		buf = append(buf, b)
	}
	return Event{Chord: keytable.Chord{Key: string(buf)}}, nil
}

func utf8ByteCount(first byte) int {
	switch {
	case first&0x80 == 0:
		return 1
	case first&0xe0 == 0xc0:
		return 2
	case first&0xf0 == 0xe0:
		return 3
	case first&0xf8 == 0xf0:
		return 4
	default:
		return 1
	}
}

// readByte returns the next decoded byte, blocking forever if timeout
// is negative or waiting at most timeout otherwise.
func (d *Decoder) readByte(timeout time.Duration) (byte, error) {
	if timeout < 0 {
		b, ok := <-d.bytesCh
		if !ok {
			return 0, <-d.errCh
		}
		return b, nil
	}
	select {
	case b, ok := <-d.bytesCh:
		if !ok {
			return 0, <-d.errCh
		}
		return b, nil
	case <-time.After(timeout):
		return 0, errTimeout
	}
}

var errTimeout = errors.New("attach: escape-sequence read timed out")

func isCSITerminator(b byte) bool {
	return (b >= '@' && b <= '~') && b != ';'
}

func chordFromControlByte(b byte) keytable.Chord {
	switch b {
	case 0x00:
		return keytable.Chord{Key: "@", Ctrl: true}
	case 0x1c:
		return keytable.Chord{Key: "\\", Ctrl: true}
	case 0x1d:
		return keytable.Chord{Key: "]", Ctrl: true}
	case 0x1e:
		return keytable.Chord{Key: "^", Ctrl: true}
	case 0x1f:
		return keytable.Chord{Key: "_", Ctrl: true}
	default:
		return keytable.Chord{Key: string(rune('a' + int(b) - 1)), Ctrl: true}
	}
}

// reverseNamedEscapes inverts keytable's namedKeyEscapes/SS3 tables so
// a received byte sequence maps back to the same key name.
var reverseNamedEscapes = map[string]string{
	"\x1b[A":     "Up",
	"\x1b[B":     "Down",
	"\x1b[C":     "Right",
	"\x1b[D":     "Left",
	"\x1b[H":     "Home",
	"\x1b[F":     "End",
	"\x1b[5~":    "PPage",
	"\x1b[6~":    "NPage",
	"\x1b[2~":    "IC",
	"\x1b[3~":    "DC",
	"\x1b[Z":     "BTab",
	"\x1bOP":     "F1",
	"\x1bOQ":     "F2",
	"\x1bOR":     "F3",
	"\x1bOS":     "F4",
	"\x1b[15~":   "F5",
	"\x1b[17~":   "F6",
	"\x1b[18~":   "F7",
	"\x1b[19~":   "F8",
	"\x1b[20~":   "F9",
	"\x1b[21~":   "F10",
	"\x1b[23~":   "F11",
	"\x1b[24~":   "F12",
}
