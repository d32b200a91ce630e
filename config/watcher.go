package config

import (
	"path/filepath"

	"github.com/fsnotify/fsnotify"

	"github.com/scaproust-go/scaproust/agent/log"
)

// Watcher hot-reloads a SessionConfig file, calling onChange with the
// freshly loaded config whenever the file is written. Grounded on
// agent/log/ssmlog's own FileWatcher: watch the file's directory (not the
// file itself, since editors commonly replace a file via rename rather
// than an in-place write, which would orphan a watch on the old inode),
// and filter events down to the one path being tracked.
type Watcher struct {
	path     string
	onChange func(SessionConfig)
	logger   log.T
	watcher  *fsnotify.Watcher
	done     chan struct{}
}

// NewWatcher starts watching path's directory and calls onChange each time
// path changes and still parses. SignalBusCapacity changes are ignored by
// callers that only apply hot-reloaded config to already-running sockets,
// since that bound is fixed at socket construction.
func NewWatcher(path string, logger log.T, onChange func(SessionConfig)) (*Watcher, error) {
	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	if err := fw.Add(filepath.Dir(path)); err != nil {
		fw.Close()
		return nil, err
	}
	w := &Watcher{path: path, onChange: onChange, logger: logger.WithContext("config-watcher"), watcher: fw, done: make(chan struct{})}
	go w.run()
	return w, nil
}

func (w *Watcher) run() {
	defer close(w.done)
	target := filepath.Clean(w.path)
	for {
		select {
		case ev, ok := <-w.watcher.Events:
			if !ok {
				return
			}
			if filepath.Clean(ev.Name) != target {
				continue
			}
			if ev.Op&(fsnotify.Write|fsnotify.Create) == 0 {
				continue
			}
			cfg, err := Load(w.path)
			if err != nil {
				w.logger.Warnf("config reload of %s failed: %v", w.path, err)
				continue
			}
			w.onChange(cfg)
		case err, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
			w.logger.Warnf("config watcher error: %v", err)
		}
	}
}

// Close stops the watcher and waits for its goroutine to exit.
func (w *Watcher) Close() error {
	err := w.watcher.Close()
	<-w.done
	return err
}
