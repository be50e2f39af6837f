package batch

import (
	"context"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
)

// WatchOptions configures the watch daemon.
type WatchOptions struct {
	Options
	Dirs         []string      // directories watched recursively
	Debounce     time.Duration // quiet period before a changed file is converted
	PollInterval time.Duration // mtime polling for filesystems without notifications; 0 disables
	// Ready, when set, is called once the initial scan has finished and
	// events are being handled.
	Ready func()
}

// watcher holds the state shared by the event loop, the poller and the
// conversion goroutines.
type watcher struct {
	opts    WatchOptions
	outLock *pathLocker
	sem     chan struct{}

	mu     sync.Mutex
	closed bool
	wg     sync.WaitGroup
}

// Watch converts the images under opts.Dirs once, then keeps converting
// files as they are created or modified until ctx is canceled. Deleting a
// source removes its output. In-flight conversions finish before Watch
// returns.
func Watch(ctx context.Context, opts WatchOptions) error {
	if len(opts.Dirs) == 0 {
		return fmt.Errorf("no directories to watch")
	}
	log := opts.logger()

	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("creating watcher: %w", err)
	}
	defer fw.Close()

	for _, dir := range opts.Dirs {
		if err := watchRecursive(fw, dir, &opts.Options); err != nil {
			return fmt.Errorf("watching %s: %w", dir, err)
		}
		log.Info("watching", "dir", dir)
	}

	w := &watcher{
		opts:    opts,
		outLock: newPathLocker(),
		sem:     make(chan struct{}, opts.workers()),
	}

	db := newDebouncer(opts.Debounce, w.submit)
	defer db.stop()

	for _, dir := range opts.Dirs {
		sum, err := Run(ctx, dir, opts.Options)
		if err != nil {
			log.Error("initial scan failed", "dir", dir, "err", err)
			continue
		}
		log.Info("initial scan", "dir", dir, "converted", sum.Converted, "skipped", sum.Skipped, "failed", sum.Failed)
	}

	pollCtx, stopPolling := context.WithCancel(ctx)
	defer stopPolling()
	var pollers sync.WaitGroup
	if opts.PollInterval > 0 {
		pollers.Add(1)
		go func() {
			defer pollers.Done()
			w.pollLoop(pollCtx, db.trigger)
		}()
	}
	if opts.Ready != nil {
		opts.Ready()
	}
	log.Info("daemon ready, waiting for file changes")

	w.eventLoop(ctx, fw, db)

	stopPolling()
	pollers.Wait()
	db.stop()
	log.Info("waiting for in-flight conversions")
	w.shutdown()
	log.Info("shutdown complete")
	return nil
}

func watchRecursive(fw *fsnotify.Watcher, dir string, opts *Options) error {
	return filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return nil
		}
		if !d.IsDir() {
			return nil
		}
		if opts.Output != "" && isUnderDir(path, opts.Output) {
			return filepath.SkipDir
		}
		return fw.Add(path)
	})
}

// sourceDir returns the watched directory containing path.
func (w *watcher) sourceDir(path string) string {
	for _, dir := range w.opts.Dirs {
		if isUnderDir(path, dir) {
			return dir
		}
	}
	return ""
}

// job maps a changed path to its conversion, or nil when it needs none.
func (w *watcher) job(path string) *Job {
	if !IsImage(path) || isOutput(path, &w.opts.Options) {
		return nil
	}
	dir := w.sourceDir(path)
	if dir == "" {
		return nil
	}
	if info, err := os.Stat(path); err != nil || info.IsDir() {
		return nil
	}
	out := outputFor(path, dir, &w.opts.Options)
	if !w.opts.Force && IsUpToDate(path, out) {
		return nil
	}
	return &Job{Input: path, Output: out}
}

// submit starts a conversion for path unless the watcher is shutting down.
func (w *watcher) submit(path string) {
	j := w.job(path)
	if j == nil {
		return
	}

	w.mu.Lock()
	if w.closed {
		w.mu.Unlock()
		return
	}
	w.wg.Add(1)
	w.mu.Unlock()

	w.sem <- struct{}{}
	go func() {
		defer func() { <-w.sem; w.wg.Done() }()
		w.outLock.Lock(j.Output)
		defer w.outLock.Unlock(j.Output)
		if w.job(path) == nil {
			return
		}
		log := w.opts.logger()
		start := time.Now()
		in, out, err := Convert(context.Background(), *j, w.opts.Pipeline)
		if err != nil {
			log.Error("conversion failed", "input", j.Input, "err", err)
			return
		}
		log.Info("converted", "input", j.Input, "output", j.Output,
			"in_bytes", in, "out_bytes", out, "elapsed", time.Since(start).Round(time.Millisecond))
	}()
}

func (w *watcher) shutdown() {
	w.mu.Lock()
	w.closed = true
	w.mu.Unlock()
	w.wg.Wait()
}

func (w *watcher) eventLoop(ctx context.Context, fw *fsnotify.Watcher, db *debouncer) {
	log := w.opts.logger()
	for {
		select {
		case <-ctx.Done():
			return

		case ev, ok := <-fw.Events:
			if !ok {
				return
			}
			log.Debug("event", "op", ev.Op.String(), "path", ev.Name)
			if ev.Has(fsnotify.Remove) {
				w.handleDeletion(ev.Name)
				continue
			}
			if ev.Has(fsnotify.Create) {
				if info, err := os.Stat(ev.Name); err == nil && info.IsDir() {
					if err := watchRecursive(fw, ev.Name, &w.opts.Options); err != nil {
						log.Warn("watching new directory", "dir", ev.Name, "err", err)
					}
					w.scanDir(ev.Name, db)
					continue
				}
			}
			if ev.Has(fsnotify.Rename) {
				// The old name of a renamed file; the new name arrives as Create.
				if _, err := os.Stat(ev.Name); err != nil {
					w.handleDeletion(ev.Name)
					continue
				}
			}
			db.trigger(ev.Name)

		case err, ok := <-fw.Errors:
			if !ok {
				return
			}
			log.Warn("watcher error", "err", err)
		}
	}
}

// scanDir queues every image in a directory that appeared after its
// files were already written.
func (w *watcher) scanDir(dir string, db *debouncer) {
	filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err == nil && !d.IsDir() && IsImage(path) {
			db.trigger(path)
		}
		return nil
	})
}

// pollLoop walks the watched directories at a fixed interval and reports
// files whose mtime changed, for filesystems that do not deliver events.
func (w *watcher) pollLoop(ctx context.Context, onChanged func(path string)) {
	mtimes := make(map[string]time.Time)
	ticker := time.NewTicker(w.opts.PollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}

		seen := make(map[string]bool)
		for _, dir := range w.opts.Dirs {
			filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
				if ctx.Err() != nil {
					return filepath.SkipAll
				}
				if err != nil {
					return nil
				}
				if d.IsDir() {
					if w.opts.Output != "" && isUnderDir(path, w.opts.Output) {
						return filepath.SkipDir
					}
					return nil
				}
				if !IsImage(path) {
					return nil
				}
				seen[path] = true
				info, err := d.Info()
				if err != nil {
					return nil
				}
				if prev, ok := mtimes[path]; !ok || !info.ModTime().Equal(prev) {
					mtimes[path] = info.ModTime()
					onChanged(path)
				}
				return nil
			})
		}

		if ctx.Err() != nil {
			return
		}
		for path := range mtimes {
			if !seen[path] {
				delete(mtimes, path)
				w.handleDeletion(path)
			}
		}
	}
}

// handleDeletion removes the output of a deleted source and any output
// directories left empty, up to the output root.
func (w *watcher) handleDeletion(path string) {
	if !IsImage(path) || isOutput(path, &w.opts.Options) {
		return
	}
	dir := w.sourceDir(path)
	if dir == "" {
		return
	}
	out := outputFor(path, dir, &w.opts.Options)

	w.outLock.Lock(out)
	defer w.outLock.Unlock(out)
	if _, err := os.Stat(path); err == nil {
		return
	}
	if _, err := os.Stat(out); err != nil {
		return
	}
	log := w.opts.logger()
	if err := os.Remove(out); err != nil {
		log.Error("removing output", "output", out, "err", err)
		return
	}
	log.Info("removed output, source deleted", "output", out)
	if w.opts.Output != "" {
		removeEmptyParents(filepath.Dir(out), w.opts.Output)
	}
}

func removeEmptyParents(dir, stopDir string) {
	absStop, err := filepath.Abs(stopDir)
	if err != nil {
		return
	}
	for {
		absDir, err := filepath.Abs(dir)
		if err != nil || absDir == absStop {
			return
		}
		if !isUnderDir(absDir, absStop) {
			return
		}
		entries, err := os.ReadDir(dir)
		if err != nil || len(entries) > 0 {
			return
		}
		if err := os.Remove(dir); err != nil {
			return
		}
		dir = filepath.Dir(dir)
	}
}
