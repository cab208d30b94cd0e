package keytable

import (
	"bytes"
	"testing"
)

func TestTranslateSendKeysNamedAndLiteral(t *testing.T) {
	got := TranslateSendKeys([]string{"echo hi", "Enter"})
	want := append([]byte("echo hi"), '\r')
	if !bytes.Equal(got, want) {
		t.Errorf("TranslateSendKeys = %v, want %v", got, want)
	}
}

func TestTranslateSendKeysControlChord(t *testing.T) {
	got := TranslateSendKeys([]string{"C-c"})
	if !bytes.Equal(got, []byte{0x03}) {
		t.Errorf("TranslateSendKeys(C-c) = %v, want [0x03]", got)
	}
}

func TestTranslateSendKeysEmpty(t *testing.T) {
	if got := TranslateSendKeys(nil); got != nil {
		t.Errorf("TranslateSendKeys(nil) = %v, want nil", got)
	}
}
