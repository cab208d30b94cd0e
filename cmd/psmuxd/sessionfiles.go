package main

import (
	"log/slog"

	"psmux/internal/control"
	"psmux/internal/session"
)

// sessionFileRegistry keeps the per-session port/key files (spec.md
// §6.3) in sync with the live session set: one control.Server backs
// every session this process hosts, so every session's port/key file
// names the same port and key, letting a client attach to a session by
// name without first asking the server which port it's on.
type sessionFileRegistry struct {
	dir, socket, authKey string
	port                 int
	logger               *slog.Logger
	tracked              map[string]bool
}

func newSessionFileRegistry(dir, socket, authKey string, port int, logger *slog.Logger) *sessionFileRegistry {
	return &sessionFileRegistry{
		dir:     dir,
		socket:  socket,
		authKey: authKey,
		port:    port,
		logger:  logger,
		tracked: map[string]bool{},
	}
}

// reconcile writes port/key files for any session created since the
// last call and removes them for any session gone since, returning
// nothing: callers check empty() separately to decide on shutdown.
func (r *sessionFileRegistry) reconcile(mgr *session.Manager) {
	live := map[string]bool{}
	var last string
	for _, sess := range mgr.ListSessions() {
		live[sess.Name] = true
		last = sess.Name
		if r.tracked[sess.Name] {
			continue
		}
		if err := control.WritePortFile(r.dir, r.socket, sess.Name, r.port); err != nil {
			r.logger.Warn("[psmuxd] failed to write port file", "session", sess.Name, "error", err)
		}
		if err := control.WriteKeyFile(r.dir, r.socket, sess.Name, r.authKey); err != nil {
			r.logger.Warn("[psmuxd] failed to write key file", "session", sess.Name, "error", err)
		}
		r.tracked[sess.Name] = true
	}
	if last != "" {
		if err := control.WriteLastSession(r.dir, last); err != nil {
			r.logger.Warn("[psmuxd] failed to write last_session marker", "error", err)
		}
	}
	for name := range r.tracked {
		if live[name] {
			continue
		}
		control.RemoveSessionFiles(r.dir, r.socket, name)
		delete(r.tracked, name)
	}
}

func (r *sessionFileRegistry) empty() bool {
	return len(r.tracked) == 0
}

func (r *sessionFileRegistry) removeAll() {
	for name := range r.tracked {
		control.RemoveSessionFiles(r.dir, r.socket, name)
		delete(r.tracked, name)
	}
}
