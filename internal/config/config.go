// Package config loads psmuxd's startup configuration: the default
// shell, prefix chords, starter key bindings, command aliases, and the
// session-option snapshot spec.md §6 lists (history-limit, mode-keys,
// base-index, status-format, escape-time).
//
// Grounded on myT-x's internal/config: the same atomic temp-file-plus-
// rename write path (tolerating Windows' transient antivirus/indexing
// file locks), the same LOCALAPPDATA/APPDATA/~/.config search order for
// a default path, and the same shell allowlist validation. The GUI-only
// fields that file carried (quake mode, global hotkey, worktree,
// agent-model rewriting, per-pane Claude env, MCP server definitions)
// have no SPEC_FULL.md component to serve and are dropped; see
// DESIGN.md. The YAML import moves from go.yaml.in/yaml/v3 to
// gopkg.in/yaml.v3, matching go.mod and stefanom-schmux's usage, since
// nothing else in this module pulls in the go.yaml.in fork.
package config

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"reflect"
	"runtime"
	"sort"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

const (
	maxConfigFileBytes int64 = 1 << 20 // 1MB
	maxRenameRetry           = 10
	// Windows file lock releases (antivirus/indexing) typically settle quickly.
	renameRetryBaseDelay = 10 * time.Millisecond
)

var userHomeDirFn = os.UserHomeDir
var defaultConfigDirFn = defaultConfigDir

// BindingDirective is one bind-key directive from a config file, applied
// at startup the same way a runtime bind-key request is (see
// cmd/psmuxd, which replays each directive through the dispatcher's
// HandleOnce).
type BindingDirective struct {
	Table      string `yaml:"table,omitempty"`
	Key        string `yaml:"key"`
	Command    string `yaml:"command"`
	Repeatable bool   `yaml:"repeatable,omitempty"`
}

// Config is psmuxd's runtime configuration, loaded from .psmux.conf (or
// an explicit -f path) before the control server starts accepting
// connections.
type Config struct {
	Shell           string            `yaml:"shell"`
	SocketName      string            `yaml:"socket_name,omitempty"`
	Prefix          string            `yaml:"prefix"`
	SecondaryPrefix string            `yaml:"secondary_prefix,omitempty"`
	BaseIndex       int               `yaml:"base_index"`
	HistoryLimit    int               `yaml:"history_limit"`
	ModeKeys        string            `yaml:"mode_keys"`
	StatusFormat    string            `yaml:"status_format,omitempty"`
	EscapeTimeMS    int               `yaml:"escape_time_ms"`
	Options         map[string]string `yaml:"options,omitempty"`
	Bindings        []BindingDirective `yaml:"bindings,omitempty"`
	Aliases         map[string]string `yaml:"aliases,omitempty"`
}

// allowedShells is the set of permitted shell executables (matched by
// base name, case-insensitive); additions require security review since
// this gates what Load will let a server spawn as every pane's default
// command.
var allowedShells = map[string]struct{}{
	"powershell.exe": {},
	"pwsh.exe":       {},
	"cmd.exe":        {},
	"bash.exe":       {},
	"wsl.exe":        {},
	"sh":             {},
	"bash":           {},
	"zsh":            {},
}

// DefaultConfig returns the values a fresh install runs with when no
// config file is present, matching spec.md §6's stated session-option
// defaults (history-limit 2000, base-index 0, mode-keys emacs).
func DefaultConfig() Config {
	return Config{
		Shell:        "powershell.exe",
		Prefix:       "C-b",
		BaseIndex:    0,
		HistoryLimit: 2000,
		ModeKeys:     "emacs",
		EscapeTimeMS: 500,
	}
}

// AllowedShellList returns the permitted shell executable names, sorted
// for stable display in a config error message.
func AllowedShellList() []string {
	shells := make([]string, 0, len(allowedShells))
	for s := range allowedShells {
		shells = append(shells, s)
	}
	sort.Strings(shells)
	return shells
}

// DefaultPath resolves the config file path, preferring LOCALAPPDATA
// over APPDATA, falling back to ~/.config when both are unset, and then
// to os.TempDir() if the home directory cannot be resolved.
func DefaultPath() string {
	base := strings.TrimSpace(os.Getenv("LOCALAPPDATA"))
	if base == "" {
		base = strings.TrimSpace(os.Getenv("APPDATA"))
	}
	if base == "" {
		home, err := userHomeDirFn()
		if err != nil {
			slog.Warn("[WARN-CONFIG] using temp dir as config path fallback", "error", err)
			base = os.TempDir()
		} else {
			base = filepath.Join(home, ".config")
		}
	}
	return filepath.Join(base, "psmux", ".psmux.conf")
}

// Load reads the config file at path. If the file does not exist,
// defaults are returned with no error, matching the "a fresh install
// just works" requirement.
func Load(path string) (Config, error) {
	cfg := DefaultConfig()
	if path == "" {
		return cfg, errors.New("config path required")
	}

	raw, err := readLimitedFile(path, maxConfigFileBytes)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return cfg, nil
		}
		return cfg, err
	}
	if len(raw) == 0 {
		return cfg, nil
	}
	if err := yaml.Unmarshal(raw, &cfg); err != nil {
		slog.Warn("[WARN-CONFIG] failed to parse config, using defaults", "path", path, "error", err)
		return DefaultConfig(), err
	}
	if err := applyDefaultsAndValidate(&cfg); err != nil {
		return cfg, err
	}
	return cfg, nil
}

// EnsureFile writes the default config if path is missing, then returns
// the loaded (possibly freshly-written) config.
func EnsureFile(path string) (Config, error) {
	cfg, err := Load(path)
	if err != nil {
		return cfg, err
	}
	if _, statErr := os.Stat(path); errors.Is(statErr, os.ErrNotExist) {
		if _, err := Save(path, cfg); err != nil {
			return cfg, err
		}
	}
	return cfg, nil
}

// Save validates cfg, fills defaults, and atomically writes it to path.
func Save(path string, cfg Config) (Config, error) {
	normalizedPath, err := validateConfigPath(path)
	if err != nil {
		return cfg, err
	}
	if err := applyDefaultsAndValidate(&cfg); err != nil {
		return cfg, fmt.Errorf("save config: %w", err)
	}

	raw, err := yaml.Marshal(cfg)
	if err != nil {
		return cfg, fmt.Errorf("save config: marshal: %w", err)
	}
	if err := atomicWrite(normalizedPath, raw); err != nil {
		return cfg, err
	}
	slog.Debug("[DEBUG-CONFIG] config saved", "path", path)
	return cfg, nil
}

// Clone returns a deep copy of cfg, for callers that hand a snapshot to
// another goroutine rather than sharing maps another goroutine might be
// reading. (The fsnotify reload watcher does not need it: it hands each
// callback a freshly loaded Config.)
func Clone(src Config) Config {
	dst := src
	if src.Options != nil {
		dst.Options = make(map[string]string, len(src.Options))
		for k, v := range src.Options {
			dst.Options[k] = v
		}
	}
	if src.Aliases != nil {
		dst.Aliases = make(map[string]string, len(src.Aliases))
		for k, v := range src.Aliases {
			dst.Aliases[k] = v
		}
	}
	if src.Bindings != nil {
		dst.Bindings = append([]BindingDirective(nil), src.Bindings...)
	}
	return dst
}

func atomicWrite(path string, data []byte) (err error) {
	dir := filepath.Dir(path)
	if err = os.MkdirAll(dir, 0o700); err != nil {
		return fmt.Errorf("save config: mkdir: %w", err)
	}

	tmpFile, err := os.CreateTemp(dir, ".psmux.conf.tmp.*")
	if err != nil {
		return fmt.Errorf("save config: create temp: %w", err)
	}
	tmpPath := tmpFile.Name()

	defer func() {
		if tmpFile != nil {
			if closeErr := tmpFile.Close(); closeErr != nil && !errors.Is(closeErr, os.ErrClosed) {
				slog.Warn("[WARN-CONFIG] failed to close temp file", "path", tmpPath, "error", closeErr)
			}
		}
		if err != nil {
			if removeErr := os.Remove(tmpPath); removeErr != nil && !errors.Is(removeErr, os.ErrNotExist) {
				slog.Warn("[WARN-CONFIG] failed to remove temp file", "path", tmpPath, "error", removeErr)
			}
		}
	}()

	if err = tmpFile.Chmod(0o600); err != nil {
		return fmt.Errorf("save config: chmod temp: %w", err)
	}
	if _, err = tmpFile.Write(data); err != nil {
		return fmt.Errorf("save config: write: %w", err)
	}
	if err = tmpFile.Sync(); err != nil {
		return fmt.Errorf("save config: sync: %w", err)
	}
	err = tmpFile.Close()
	tmpFile = nil
	if err != nil {
		return fmt.Errorf("save config: close: %w", err)
	}

	if err = renameFileWithRetry(tmpPath, path); err != nil {
		return fmt.Errorf("save config: rename: %w", err)
	}
	return nil
}

func validateConfigPath(path string) (string, error) {
	trimmedPath := strings.TrimSpace(path)
	if trimmedPath == "" {
		return "", errors.New("config path required")
	}
	absolutePath, err := filepath.Abs(trimmedPath)
	if err != nil {
		return "", fmt.Errorf("save config: resolve path: %w", err)
	}

	expectedDir, err := defaultConfigDirFn()
	if err != nil {
		return "", fmt.Errorf("save config: resolve config dir: %w", err)
	}
	absoluteExpectedDir, err := filepath.Abs(expectedDir)
	if err != nil {
		return "", fmt.Errorf("save config: resolve config dir: %w", err)
	}
	if !pathWithinDir(absolutePath, absoluteExpectedDir) {
		return "", fmt.Errorf("save config: path outside config directory: %q", absolutePath)
	}
	return absolutePath, nil
}

func defaultConfigDir() (string, error) {
	return filepath.Dir(DefaultPath()), nil
}

func pathWithinDir(path string, dir string) bool {
	relativePath, err := filepath.Rel(filepath.Clean(dir), filepath.Clean(path))
	if err != nil {
		return false
	}
	if relativePath == "." {
		return true
	}
	if relativePath == ".." || strings.HasPrefix(relativePath, ".."+string(os.PathSeparator)) {
		return false
	}
	return !filepath.IsAbs(relativePath)
}

func applyDefaultsAndValidate(cfg *Config) error {
	defaults := DefaultConfig()
	if isZeroConfig(*cfg) {
		*cfg = defaults
		return nil
	}
	if cfg.Shell == "" {
		cfg.Shell = defaults.Shell
	}
	if err := validateShell(cfg.Shell); err != nil {
		return err
	}
	if cfg.Prefix == "" {
		cfg.Prefix = defaults.Prefix
	}
	if cfg.ModeKeys == "" {
		cfg.ModeKeys = defaults.ModeKeys
	}
	if cfg.ModeKeys != "vi" && cfg.ModeKeys != "emacs" {
		return fmt.Errorf("mode_keys must be %q or %q, got %q", "vi", "emacs", cfg.ModeKeys)
	}
	if cfg.HistoryLimit <= 0 {
		cfg.HistoryLimit = defaults.HistoryLimit
	}
	if cfg.EscapeTimeMS <= 0 {
		cfg.EscapeTimeMS = defaults.EscapeTimeMS
	}
	return nil
}

// validateShell ensures the configured shell is safe for process
// creation: it rejects null bytes, checks the base name against
// allowedShells, and confirms an absolute path actually exists on disk.
func validateShell(shell string) error {
	shell = strings.TrimSpace(shell)
	if shell == "" {
		return errors.New("shell is required")
	}
	if strings.ContainsRune(shell, '\x00') {
		return errors.New("shell contains invalid null byte")
	}

	baseName := strings.ToLower(filepath.Base(shell))
	if _, ok := allowedShells[baseName]; !ok {
		return fmt.Errorf("shell %q is not in the allowlist", shell)
	}

	if filepath.IsAbs(shell) {
		info, err := os.Stat(shell)
		if err != nil {
			return fmt.Errorf("shell path does not exist: %w", err)
		}
		if info.IsDir() {
			return errors.New("shell path cannot be a directory")
		}
		return nil
	}

	if strings.Contains(shell, `\`) || strings.Contains(shell, "/") {
		return errors.New("shell must be executable name or absolute path")
	}
	return nil
}

func readLimitedFile(path string, maxBytes int64) ([]byte, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer file.Close()

	limited := io.LimitReader(file, maxBytes+1)
	raw, err := io.ReadAll(limited)
	if err != nil {
		return nil, err
	}
	if int64(len(raw)) > maxBytes {
		return nil, fmt.Errorf("config file exceeds %d bytes", maxBytes)
	}
	return raw, nil
}

func isZeroConfig(cfg Config) bool {
	return reflect.DeepEqual(cfg, Config{})
}

func renameFileWithRetry(sourcePath string, targetPath string) error {
	var lastErr error
	for attempt := range maxRenameRetry {
		err := os.Rename(sourcePath, targetPath)
		if err == nil {
			return nil
		}
		lastErr = err
		if runtime.GOOS != "windows" {
			return err
		}
		time.Sleep(time.Duration(attempt+1) * renameRetryBaseDelay)
	}
	return lastErr
}
