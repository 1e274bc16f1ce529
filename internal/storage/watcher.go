package storage

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"
)

const watchDebounce = 200 * time.Millisecond

// Watch observes the File provider's document for changes made outside this
// process (another instance, a sync tool, a hand edit) and calls onChange
// after each one until ctx is cancelled. Writes made through f itself are
// recognised by checksum and do not trigger onChange.
//
// The parent directory is watched rather than the file, because atomic
// replacement via rename swaps the inode out from under a file watch.
func Watch(ctx context.Context, f *File, logger *slog.Logger, onChange func()) error {
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	defer w.Close()

	if err := w.Add(filepath.Dir(f.path)); err != nil {
		return err
	}

	// Seed the checksum so the first event compares against the current document.
	if data, readErr := os.ReadFile(f.path); readErr == nil {
		f.observe(data)
	}

	logger.Info("watcher: started", slog.String("path", f.path))

	var timer *time.Timer
	var timerCh <-chan time.Time

	schedule := func() {
		if timer == nil {
			timer = time.NewTimer(watchDebounce)
			timerCh = timer.C
		} else {
			timer.Reset(watchDebounce)
		}
	}

	for {
		select {
		case <-ctx.Done():
			if timer != nil {
				timer.Stop()
			}
			logger.Info("watcher: stopped")
			return nil

		case <-timerCh:
			data, readErr := os.ReadFile(f.path)
			if readErr != nil && !errors.Is(readErr, os.ErrNotExist) {
				logger.Warn("watcher: read failed", slog.String("path", f.path), slog.String("error", readErr.Error()))
				continue
			}
			if !f.observe(data) {
				continue
			}
			logger.Debug("watcher: external change", slog.String("path", f.path))
			if onChange != nil {
				onChange()
			}

		case ev, ok := <-w.Events:
			if !ok {
				return nil
			}
			if ev.Name != f.path {
				continue
			}
			if ev.Op&(fsnotify.Create|fsnotify.Write|fsnotify.Remove|fsnotify.Rename) != 0 {
				schedule()
			}

		case watchErr, ok := <-w.Errors:
			if !ok {
				return nil
			}
			logger.Error("watcher: error", slog.String("error", watchErr.Error()))
		}
	}
}
