package render

import (
	"testing"

	"github.com/charmbracelet/x/ansi"
)

func TestEncodeColorDefault(t *testing.T) {
	if got := encodeColor(nil); got != "default" {
		t.Errorf("encodeColor(nil) = %q, want default", got)
	}
}

func TestEncodeColorIndexed(t *testing.T) {
	if got := encodeColor(ansi.BasicColor(3)); got != "idx:3" {
		t.Errorf("encodeColor(BasicColor(3)) = %q, want idx:3", got)
	}
}

func TestEncodeColorTrueColor(t *testing.T) {
	got := encodeColor(ansi.TrueColor(0x112233))
	if got != "rgb:17,34,51" {
		t.Errorf("encodeColor(TrueColor) = %q, want rgb:17,34,51", got)
	}
}
