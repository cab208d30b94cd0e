package keytable

import (
	"bytes"
	"testing"
)

func TestEncodeControlLetters(t *testing.T) {
	c := Chord{Key: "c", Ctrl: true}
	got := Encode(c)
	if !bytes.Equal(got, []byte{0x03}) {
		t.Errorf("Encode(C-c) = %v, want [0x03]", got)
	}
}

func TestEncodeAltPrependsEscape(t *testing.T) {
	c := Chord{Key: "a", Alt: true}
	got := Encode(c)
	if !bytes.Equal(got, []byte{0x1b, 'a'}) {
		t.Errorf("Encode(M-a) = %v, want [ESC a]", got)
	}
}

func TestEncodeCtrlAltCombinesBoth(t *testing.T) {
	c := Chord{Key: "a", Ctrl: true, Alt: true}
	got := Encode(c)
	if !bytes.Equal(got, []byte{0x1b, 0x01}) {
		t.Errorf("Encode(C-M-a) = %v, want [ESC 0x01]", got)
	}
}

func TestEncodeNamedKeys(t *testing.T) {
	cases := []struct {
		key  string
		want []byte
	}{
		{"Enter", []byte{'\r'}},
		{"Tab", []byte{'\t'}},
		{"BSpace", []byte{0x7f}},
		{"Escape", []byte{0x1b}},
		{"Up", []byte{0x1b, '[', 'A'}},
		{"PPage", []byte{0x1b, '[', '5', '~'}},
		{"F1", []byte{0x1b, 'O', 'P'}},
	}
	for _, tc := range cases {
		got := Encode(Chord{Key: tc.key})
		if !bytes.Equal(got, tc.want) {
			t.Errorf("Encode(%s) = %v, want %v", tc.key, got, tc.want)
		}
	}
}

func TestEncodePrintableChar(t *testing.T) {
	got := Encode(Chord{Key: "q"})
	if !bytes.Equal(got, []byte("q")) {
		t.Errorf("Encode(q) = %v, want [q]", got)
	}
}

func TestEncodeMouseSGR(t *testing.T) {
	got := EncodeMouse(0, 5, 10, false, true)
	if string(got) != "\x1b[<0;5;10M" {
		t.Errorf("EncodeMouse press = %q, want ESC[<0;5;10M", got)
	}
	got = EncodeMouse(0, 5, 10, true, true)
	if string(got) != "\x1b[<0;5;10m" {
		t.Errorf("EncodeMouse release = %q, want ESC[<0;5;10m", got)
	}
}

func TestEncodeMouseX10PressOnly(t *testing.T) {
	got := EncodeMouse(0, 1, 1, false, false)
	want := []byte{0x1b, '[', 'M', byte(0 + 32), byte(1 + 32), byte(1 + 32)}
	if !bytes.Equal(got, want) {
		t.Errorf("EncodeMouse x10 = %v, want %v", got, want)
	}
	if got := EncodeMouse(0, 1, 1, true, false); got != nil {
		t.Errorf("EncodeMouse x10 release = %v, want nil", got)
	}
}
