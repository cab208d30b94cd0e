package control

import (
	"encoding/hex"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/google/uuid"
)

// stateDirName is the directory under the user's home that holds port
// files, key files, and the last_session marker (spec.md §6.3).
const stateDirName = ".psmux"

// privateFileMode restricts port/key files to the owning user; spec.md
// §4.9 calls these "user-only on Windows", which os.WriteFile's mode bits
// achieve equally under POSIX permission semantics.
const privateFileMode = 0o600

// StateDir returns "<home>/.psmux", creating it if necessary.
func StateDir() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("control: resolve home directory: %w", err)
	}
	dir := filepath.Join(home, stateDirName)
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return "", fmt.Errorf("control: create state dir: %w", err)
	}
	return dir, nil
}

// stateFileStem builds the "<socket>__<session>" stem -L selects
// (spec.md §6.1); socket defaults to "default" when unset.
func stateFileStem(socket, session string) string {
	if strings.TrimSpace(socket) == "" {
		socket = "default"
	}
	return socket + "__" + session
}

// PortFilePath returns the path of the port file for socket/session.
func PortFilePath(dir, socket, session string) string {
	return filepath.Join(dir, stateFileStem(socket, session)+".port")
}

// KeyFilePath returns the path of the auth-key file for socket/session.
func KeyFilePath(dir, socket, session string) string {
	return filepath.Join(dir, stateFileStem(socket, session)+".key")
}

// LastSessionFilePath returns the path of the default-reattach marker.
func LastSessionFilePath(dir string) string {
	return filepath.Join(dir, "last_session")
}

// GenerateSessionKey produces a random 64-bit session key rendered as
// 16 hex digits (spec.md §4.9). A uuid is the pack's only source of
// cryptographically-random bytes (google/uuid, already used elsewhere
// for request correlation); 8 of its 16 bytes give exactly 64 bits.
func GenerateSessionKey() string {
	id := uuid.New()
	return hex.EncodeToString(id[:8])
}

// WritePortFile persists the listening port, overwriting any existing file.
func WritePortFile(dir, socket, session string, port int) error {
	return os.WriteFile(PortFilePath(dir, socket, session), []byte(strconv.Itoa(port)), privateFileMode)
}

// WriteKeyFile persists the session auth key, overwriting any existing file.
func WriteKeyFile(dir, socket, session, key string) error {
	return os.WriteFile(KeyFilePath(dir, socket, session), []byte(key), privateFileMode)
}

// WriteLastSession records session as the default reattach target.
func WriteLastSession(dir, session string) error {
	return os.WriteFile(LastSessionFilePath(dir), []byte(session), privateFileMode)
}

// ReadLastSession returns the default reattach target, or "" if none
// has been recorded.
func ReadLastSession(dir string) string {
	data, err := os.ReadFile(LastSessionFilePath(dir))
	if err != nil {
		return ""
	}
	return strings.TrimSpace(string(data))
}

// RemoveSessionFiles deletes the port and key files for socket/session;
// called on kill-session, kill-server, and when a session empties out
// (spec.md §5 "Resource lifetimes").
func RemoveSessionFiles(dir, socket, session string) {
	_ = os.Remove(PortFilePath(dir, socket, session))
	_ = os.Remove(KeyFilePath(dir, socket, session))
}

// ReadPortFile reads back a previously-written port number.
func ReadPortFile(dir, socket, session string) (int, error) {
	data, err := os.ReadFile(PortFilePath(dir, socket, session))
	if err != nil {
		return 0, err
	}
	return strconv.Atoi(strings.TrimSpace(string(data)))
}

// ReadKeyFile reads back a previously-written session auth key.
func ReadKeyFile(dir, socket, session string) (string, error) {
	data, err := os.ReadFile(KeyFilePath(dir, socket, session))
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(string(data)), nil
}

// NewRequestID returns a short opaque id for correlating one control
// request across the MPSC channel to the dispatcher and back, useful
// in debug logging when many connections are in flight concurrently.
func NewRequestID() string {
	return uuid.NewString()
}
