package discovery

import (
	"context"
	"os"
	"path/filepath"

	"github.com/fsnotify/fsnotify"

	"github.com/cairnfield/tempo/pkg/audit"
	"github.com/cairnfield/tempo/pkg/fileinfo"
)

// WatchEvent is one newly observed (created or rewritten) file matching the
// dataset's template.
type WatchEvent struct {
	Info fileinfo.FileInfo
	Err  error
}

// Watch arms an fsnotify watcher on Root and every existing subdirectory
// beneath it, re-arming on newly created directories, and emits a WatchEvent
// for every create/write that both matches the template and parses cleanly.
// A long-running counterpart to Find for ingestion-style consumers, grounded
// in gravwell's WatchManager event-loop shape (filewatch.go) adapted from
// its state-file-tracked tail-following to tempo's template-matched
// whole-file arrival model.
func (e *Engine) Watch(ctx context.Context, onEvent func(WatchEvent)) error {
	runID := audit.NewRunID()

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	defer watcher.Close()

	if err := e.armRecursive(watcher, e.Root); err != nil {
		return err
	}

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case ev, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			e.handleWatchEvent(watcher, ev, runID, onEvent)
		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			e.Logger.Warn("discovery: watch error", "run_id", runID, "error", err.Error())
		}
	}
}

func (e *Engine) armRecursive(watcher *fsnotify.Watcher, dir string) error {
	return filepath.WalkDir(dir, func(path string, d os.DirEntry, err error) error {
		if err != nil {
			if os.IsNotExist(err) {
				return nil
			}
			return err
		}
		if d.IsDir() {
			if addErr := watcher.Add(path); addErr != nil {
				e.Logger.Warn("discovery: failed to watch directory", "dir", path, "error", addErr.Error())
			}
		}
		return nil
	})
}

func (e *Engine) handleWatchEvent(watcher *fsnotify.Watcher, ev fsnotify.Event, runID string, onEvent func(WatchEvent)) {
	if ev.Op&(fsnotify.Create|fsnotify.Write) == 0 {
		return
	}

	st, err := os.Stat(ev.Name)
	if err != nil {
		return
	}
	if st.IsDir() {
		if ev.Op&fsnotify.Create != 0 {
			if err := e.armRecursive(watcher, ev.Name); err != nil {
				e.Logger.Warn("discovery: failed to arm new directory", "run_id", runID, "dir", ev.Name, "error", err.Error())
			}
		}
		return
	}

	relPath, err := filepath.Rel(e.Root, ev.Name)
	if err != nil {
		return
	}
	relPath = filepath.ToSlash(relPath)

	captures, err := e.Matcher.Parse(relPath)
	if err != nil {
		return // not a path the template recognizes; not an error worth surfacing
	}

	fi, err := e.getInfo(ev.Name, relPath, captures)
	if err != nil {
		onEvent(WatchEvent{Err: err})
		return
	}
	onEvent(WatchEvent{Info: fi})
}
