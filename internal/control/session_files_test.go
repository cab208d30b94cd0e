package control

import (
	"path/filepath"
	"testing"
)

func TestGenerateSessionKeyIsSixteenHexDigits(t *testing.T) {
	key := GenerateSessionKey()
	if len(key) != 16 {
		t.Fatalf("GenerateSessionKey() length = %d, want 16", len(key))
	}
	for _, r := range key {
		if !((r >= '0' && r <= '9') || (r >= 'a' && r <= 'f')) {
			t.Fatalf("GenerateSessionKey() = %q, contains non-hex rune %q", key, r)
		}
	}
}

func TestGenerateSessionKeyIsNotConstant(t *testing.T) {
	if GenerateSessionKey() == GenerateSessionKey() {
		t.Fatalf("GenerateSessionKey() returned the same value twice in a row")
	}
}

func TestStateFileStemDefaultsSocketName(t *testing.T) {
	if got := stateFileStem("", "work"); got != "default__work" {
		t.Fatalf("stateFileStem(\"\", work) = %q, want default__work", got)
	}
	if got := stateFileStem("myapp", "work"); got != "myapp__work" {
		t.Fatalf("stateFileStem(myapp, work) = %q, want myapp__work", got)
	}
}

func TestPortAndKeyFileRoundTrip(t *testing.T) {
	dir := t.TempDir()

	if err := WritePortFile(dir, "", "work", 54321); err != nil {
		t.Fatalf("WritePortFile() error = %v", err)
	}
	if err := WriteKeyFile(dir, "", "work", "deadbeefcafef00d"); err != nil {
		t.Fatalf("WriteKeyFile() error = %v", err)
	}

	port, err := ReadPortFile(dir, "", "work")
	if err != nil {
		t.Fatalf("ReadPortFile() error = %v", err)
	}
	if port != 54321 {
		t.Fatalf("ReadPortFile() = %d, want 54321", port)
	}

	key, err := ReadKeyFile(dir, "", "work")
	if err != nil {
		t.Fatalf("ReadKeyFile() error = %v", err)
	}
	if key != "deadbeefcafef00d" {
		t.Fatalf("ReadKeyFile() = %q, want deadbeefcafef00d", key)
	}

	RemoveSessionFiles(dir, "", "work")
	if _, err := ReadPortFile(dir, "", "work"); err == nil {
		t.Fatalf("ReadPortFile() after RemoveSessionFiles: expected error")
	}
}

func TestLastSessionRoundTrip(t *testing.T) {
	dir := t.TempDir()

	if got := ReadLastSession(dir); got != "" {
		t.Fatalf("ReadLastSession() before write = %q, want empty", got)
	}

	if err := WriteLastSession(dir, "work"); err != nil {
		t.Fatalf("WriteLastSession() error = %v", err)
	}
	if got := ReadLastSession(dir); got != "work" {
		t.Fatalf("ReadLastSession() = %q, want work", got)
	}
}

func TestPortFilePathUsesStateDir(t *testing.T) {
	got := PortFilePath("/home/u/.psmux", "", "work")
	want := filepath.Join("/home/u/.psmux", "default__work.port")
	if got != want {
		t.Fatalf("PortFilePath() = %q, want %q", got, want)
	}
}
