// Command psmuxd is the background server (spec component: the
// process that owns internal/session.Manager, internal/control.Server,
// and internal/dispatch.Dispatcher). cmd/psmux starts it on
// new-session if no server is already listening for the requested
// socket name, the same way tmux's client spawns its server.
package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"psmux/internal/config"
	"psmux/internal/control"
	"psmux/internal/dispatch"
	"psmux/internal/keytable"
	"psmux/internal/session"
	"psmux/internal/sessionlog"
	"psmux/internal/singleinstance"
	"psmux/internal/workerutil"
)

const requestBuffer = 64

func main() {
	socketName := flag.String("L", "default", "socket name (selects the port/key file prefix)")
	sessionName := flag.String("s", "0", "name of the initial session to create")
	configPath := flag.String("f", "", "config file path (defaults to the platform config directory)")
	shellOverride := flag.String("shell", "", "override the configured default shell")
	flag.Parse()

	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelInfo}))
	slog.SetDefault(logger)

	if err := run(*socketName, *sessionName, *configPath, *shellOverride, logger); err != nil {
		logger.Error("[psmuxd] fatal", "error", err)
		os.Exit(1)
	}
}

func run(socketName, sessionName, configPath, shellOverride string, logger *slog.Logger) error {
	if configPath == "" {
		configPath = config.DefaultPath()
	}
	cfg, err := config.EnsureFile(configPath)
	if err != nil {
		logger.Warn("[psmuxd] config load failed, using defaults", "path", configPath, "error", err)
		cfg = config.DefaultConfig()
	}
	if shellOverride != "" {
		cfg.Shell = shellOverride
	}

	stateDir, err := control.StateDir()
	if err != nil {
		return fmt.Errorf("resolve state directory: %w", err)
	}

	// Two psmux clients racing resolveServer against the same empty
	// socket (cmd/psmux/main.go's spawnServer) would otherwise both
	// spawn a psmuxd; the loser's port/key files would then clobber the
	// winner's. A named mutex scoped to this socket makes the loser fail
	// fast instead.
	lock, err := singleinstance.TryLock(singleinstance.MutexName(socketName))
	if err != nil {
		return fmt.Errorf("another psmuxd is already running for socket %q: %w", socketName, err)
	}
	defer lock.Release()

	authKey := control.GenerateSessionKey()
	srv := control.NewServer(authKey, requestBuffer)
	for name, expansion := range cfg.Aliases {
		srv.Aliases.Set(name, expansion)
	}

	registry := keytable.NewDefaultRegistry()
	primary, err := keytable.ParseChord(cfg.Prefix)
	if err != nil {
		return fmt.Errorf("parse prefix %q: %w", cfg.Prefix, err)
	}
	var secondary keytable.Chord
	if cfg.SecondaryPrefix != "" {
		secondary, err = keytable.ParseChord(cfg.SecondaryPrefix)
		if err != nil {
			return fmt.Errorf("parse secondary_prefix %q: %w", cfg.SecondaryPrefix, err)
		}
	}
	escapeTimeout := time.Duration(cfg.EscapeTimeMS) * time.Millisecond
	keys := keytable.NewDispatcher(registry, primary, secondary, escapeTimeout)

	mgr := session.NewManager()
	defer mgr.Close()

	d := dispatch.New(mgr, srv, keys, cfg.Shell, logger)

	// Tee WARN+ log records into the same display-message history a
	// client's display-message command writes to, so a pty/session
	// problem surfaces in an attached terminal and not only on psmuxd's
	// own stderr. TrySubmit (not Submit) because a log call can happen
	// on any goroutine, including inside Run itself; it must never
	// block waiting for Run to drain it.
	teeHandler := sessionlog.NewTeeHandler(logger.Handler(), slog.LevelWarn, func(_ time.Time, level slog.Level, msg, group string) {
		text := msg
		if group != "" {
			text = fmt.Sprintf("[%s] %s", group, msg)
		}
		srv.TrySubmit(control.Request{Verb: "display-message", Args: []string{text}})
	})
	logger = slog.New(teeHandler)
	d.Logger = logger

	applyConfig(cfg, d.HandleOnce)

	// The reload callback fires from the watcher's own goroutine, which
	// by the time a file actually changes is running concurrently with
	// d.Run below. It must not call d.HandleOnce directly (that bypasses
	// the request channel Run drains and is documented unsafe once Run
	// is live) — srv.Submit queues onto that same channel instead.
	watcher, err := config.WatchFile(configPath, logger, func(next config.Config) {
		applyConfig(next, srv.Submit)
		logger.Info("[psmuxd] applied reloaded config")
	})
	if err != nil {
		logger.Warn("[psmuxd] config watch disabled", "path", configPath, "error", err)
	} else {
		defer watcher.Close()
	}

	port, err := srv.Start()
	if err != nil {
		return fmt.Errorf("start control server: %w", err)
	}
	logger.Info("[psmuxd] listening", "port", port, "socket", socketName)

	if resp := d.HandleOnce(control.Request{Verb: "new-session", Args: []string{"-s", sessionName}}); resp.Err != nil {
		return fmt.Errorf("create initial session %q: %w", sessionName, resp.Err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)

	reg := newSessionFileRegistry(stateDir, socketName, authKey, port, logger)
	reg.reconcile(mgr)
	reconcileTicker := time.NewTicker(250 * time.Millisecond)
	defer reconcileTicker.Stop()

	// The dispatch loop is the one goroutine every session/pane mutation
	// flows through; a panic in a single verb handler would otherwise
	// take the whole daemon down with it. workerutil retries it with
	// backoff instead, the same guard the teacher wraps its own
	// long-lived background workers in.
	var wg sync.WaitGroup
	workerutil.RunWithPanicRecovery(ctx, "dispatch", &wg, func(ctx context.Context) {
		d.Run(ctx)
	}, workerutil.RecoveryOptions{
		OnPanic: func(worker string, attempt int) {
			logger.Warn("[psmuxd] dispatch loop panicked, restarting", "worker", worker, "attempt", attempt)
		},
		OnFatal: func(worker string, maxRetries int) {
			logger.Error("[psmuxd] dispatch loop exceeded max restarts, giving up", "worker", worker, "maxRetries", maxRetries)
		},
	})
	done := make(chan struct{})
	go func() {
		wg.Wait()
		close(done)
	}()

	for {
		select {
		case <-sigCh:
			logger.Info("[psmuxd] signal received, shutting down")
			cancel()
			srv.Stop()
			reg.removeAll()
			<-done
			return nil
		case <-reconcileTicker.C:
			if reg.reconcile(mgr); reg.empty() {
				logger.Info("[psmuxd] no sessions remain, shutting down")
				cancel()
				srv.Stop()
				<-done
				return nil
			}
		case <-done:
			srv.Stop()
			reg.removeAll()
			return nil
		}
	}
}

// applyConfig replays a config file's options/bindings through the same
// request executor a client's set-option/bind-key command uses, so a
// config-file directive and a runtime command share one code path.
// submit is dispatch.Dispatcher.HandleOnce at startup (before Run's
// goroutine exists, so bypassing the request channel is safe) and
// control.Server.Submit for a hot reload (Run is active by then, so the
// request must be queued onto the channel it actually drains).
func applyConfig(cfg config.Config, submit func(control.Request) control.Response) {
	for name, value := range cfg.Options {
		submit(control.Request{Verb: "set-option", Args: []string{name, value}})
	}
	submit(control.Request{Verb: "set-option", Args: []string{"mode-keys", cfg.ModeKeys}})
	submit(control.Request{Verb: "set-option", Args: []string{"base-index", fmt.Sprint(cfg.BaseIndex)}})
	submit(control.Request{Verb: "set-option", Args: []string{"history-limit", fmt.Sprint(cfg.HistoryLimit)}})
	if cfg.StatusFormat != "" {
		submit(control.Request{Verb: "set-option", Args: []string{"status-format", cfg.StatusFormat}})
	}
	for _, b := range cfg.Bindings {
		args := []string{}
		if b.Repeatable {
			args = append(args, "-r")
		}
		if b.Table != "" {
			args = append(args, "-T", b.Table)
		}
		args = append(args, b.Key, b.Command)
		if resp := submit(control.Request{Verb: "bind-key", Args: args}); resp.Err != nil {
			slog.Warn("[psmuxd] config binding rejected", "key", b.Key, "command", b.Command, "error", resp.Err)
		}
	}
}
