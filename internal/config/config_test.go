package config

import (
	"path/filepath"
	"testing"
)

func newConfigPathForSaveTest(t *testing.T, elems ...string) string {
	t.Helper()
	localAppData := t.TempDir()
	t.Setenv("LOCALAPPDATA", localAppData)
	t.Setenv("APPDATA", "")

	defaultPath := DefaultPath()
	return filepath.Join(filepath.Dir(defaultPath), filepath.Join(elems...))
}

func TestPathWithinDir(t *testing.T) {
	baseDir := t.TempDir()
	configDir := filepath.Join(baseDir, "config")

	tests := []struct {
		name string
		path string
		dir  string
		want bool
	}{
		{"same path", configDir, configDir, true},
		{"subdirectory path", filepath.Join(configDir, "sub", "x.conf"), configDir, true},
		{"traversal path", filepath.Join(configDir, "..", "outside.conf"), configDir, false},
		{"different path", filepath.Join(baseDir, "other", "x.conf"), configDir, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := pathWithinDir(tt.path, tt.dir); got != tt.want {
				t.Errorf("pathWithinDir(%q, %q) = %v, want %v", tt.path, tt.dir, got, tt.want)
			}
		})
	}
}

func TestDefaultConfigMatchesSpecDefaults(t *testing.T) {
	cfg := DefaultConfig()
	if cfg.HistoryLimit != 2000 {
		t.Errorf("HistoryLimit = %d, want 2000", cfg.HistoryLimit)
	}
	if cfg.BaseIndex != 0 {
		t.Errorf("BaseIndex = %d, want 0", cfg.BaseIndex)
	}
	if cfg.ModeKeys != "emacs" {
		t.Errorf("ModeKeys = %q, want emacs", cfg.ModeKeys)
	}
	if cfg.Prefix != "C-b" {
		t.Errorf("Prefix = %q, want C-b", cfg.Prefix)
	}
}

func TestLoadMissingFileReturnsDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "nope.conf"))
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	want := DefaultConfig()
	if cfg.Shell != want.Shell || cfg.Prefix != want.Prefix || cfg.ModeKeys != want.ModeKeys || cfg.HistoryLimit != want.HistoryLimit {
		t.Errorf("Load() on a missing file = %+v, want defaults %+v", cfg, want)
	}
}

func TestSaveThenLoadRoundTrips(t *testing.T) {
	path := newConfigPathForSaveTest(t, ".psmux.conf")

	cfg := DefaultConfig()
	cfg.Shell = "bash.exe"
	cfg.Prefix = "C-a"
	cfg.ModeKeys = "vi"
	cfg.Options = map[string]string{"status": "off"}
	cfg.Aliases = map[string]string{"k": "kill-pane"}
	cfg.Bindings = []BindingDirective{
		{Key: "|", Command: "split-window -h", Repeatable: false},
	}

	saved, err := Save(path, cfg)
	if err != nil {
		t.Fatalf("Save() error = %v", err)
	}
	if saved.Shell != "bash.exe" {
		t.Fatalf("Save() returned %+v, want Shell=bash.exe", saved)
	}

	loaded, err := Load(path)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if loaded.Shell != "bash.exe" || loaded.Prefix != "C-a" || loaded.ModeKeys != "vi" {
		t.Fatalf("Load() = %+v, want the saved shell/prefix/mode_keys", loaded)
	}
	if loaded.Options["status"] != "off" {
		t.Fatalf("Load() options = %+v, want status=off", loaded.Options)
	}
	if len(loaded.Bindings) != 1 || loaded.Bindings[0].Command != "split-window -h" {
		t.Fatalf("Load() bindings = %+v, want one split-window binding", loaded.Bindings)
	}
}

func TestSaveRejectsDisallowedShell(t *testing.T) {
	path := newConfigPathForSaveTest(t, ".psmux.conf")
	if _, err := Save(path, Config{Shell: "evil.exe", Prefix: "C-b", ModeKeys: "emacs", HistoryLimit: 1, EscapeTimeMS: 1}); err == nil {
		t.Fatal("Save() with a disallowed shell should have failed validation")
	}
}

func TestSaveRejectsBadModeKeys(t *testing.T) {
	path := newConfigPathForSaveTest(t, ".psmux.conf")
	if _, err := Save(path, Config{Shell: "bash.exe", Prefix: "C-b", ModeKeys: "nano", HistoryLimit: 1, EscapeTimeMS: 1}); err == nil {
		t.Fatal("Save() with an invalid mode_keys value should have failed validation")
	}
}

func TestCloneDeepCopiesMaps(t *testing.T) {
	src := DefaultConfig()
	src.Options = map[string]string{"a": "1"}
	src.Aliases = map[string]string{"x": "y"}
	src.Bindings = []BindingDirective{{Key: "c", Command: "new-window"}}

	dst := Clone(src)
	dst.Options["a"] = "2"
	dst.Aliases["x"] = "z"
	dst.Bindings[0].Command = "mutated"

	if src.Options["a"] != "1" {
		t.Error("Clone() did not deep-copy Options")
	}
	if src.Aliases["x"] != "y" {
		t.Error("Clone() did not deep-copy Aliases")
	}
	if src.Bindings[0].Command != "new-window" {
		t.Error("Clone() did not deep-copy Bindings")
	}
}

func TestValidateConfigPathRejectsOutsideDefaultDir(t *testing.T) {
	t.Setenv("LOCALAPPDATA", t.TempDir())
	t.Setenv("APPDATA", "")
	if _, err := validateConfigPath(filepath.Join(t.TempDir(), "elsewhere.conf")); err == nil {
		t.Fatal("validateConfigPath() should reject a path outside the resolved config directory")
	}
}
