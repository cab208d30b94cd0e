package config

import (
	"log/slog"

	"github.com/fsnotify/fsnotify"
)

// Watcher reloads a config file whenever it changes on disk, the
// source-file auto-reload SPEC_FULL.md's Configuration section calls
// for: a user editing .psmux.conf in place should not require a
// restart. fsnotify is the pack's only filesystem-event library
// (already a direct go.mod dependency, otherwise unwired); there is no
// polling loop here because fsnotify gives an OS-native notification on
// every platform this module targets.
type Watcher struct {
	fsw    *fsnotify.Watcher
	path   string
	logger *slog.Logger
}

// WatchFile starts watching path's containing directory (fsnotify
// watches directories, not bare files, so a rename-based editor save
// survives) and invokes onReload with the newly-loaded Config each time
// path is written or recreated. The returned Watcher must be closed by
// the caller to stop the goroutine.
func WatchFile(path string, logger *slog.Logger, onReload func(Config)) (*Watcher, error) {
	if logger == nil {
		logger = slog.Default()
	}
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	dir := dirOf(path)
	if err := fsw.Add(dir); err != nil {
		fsw.Close()
		return nil, err
	}

	w := &Watcher{fsw: fsw, path: path, logger: logger}
	go w.loop(onReload)
	return w, nil
}

func (w *Watcher) loop(onReload func(Config)) {
	for {
		select {
		case event, ok := <-w.fsw.Events:
			if !ok {
				return
			}
			if event.Name != w.path {
				continue
			}
			if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) {
				continue
			}
			cfg, err := Load(w.path)
			if err != nil {
				w.logger.Warn("[WARN-CONFIG] reload failed, keeping previous config", "path", w.path, "error", err)
				continue
			}
			w.logger.Info("[INFO-CONFIG] reloaded config after change", "path", w.path)
			onReload(cfg)
		case err, ok := <-w.fsw.Errors:
			if !ok {
				return
			}
			w.logger.Warn("[WARN-CONFIG] watch error", "error", err)
		}
	}
}

// Close stops the watch goroutine.
func (w *Watcher) Close() error {
	return w.fsw.Close()
}

func dirOf(path string) string {
	for i := len(path) - 1; i >= 0; i-- {
		if path[i] == '/' || path[i] == '\\' {
			return path[:i]
		}
	}
	return "."
}
