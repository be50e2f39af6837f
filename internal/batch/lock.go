package batch

import (
	"sync"
	"time"
)

// pathLocker provides per-path mutual exclusion.
type pathLocker struct {
	mu    sync.Mutex
	locks map[string]*lockEntry
}

type lockEntry struct {
	mu   sync.Mutex
	refs int
}

func newPathLocker() *pathLocker {
	return &pathLocker{locks: make(map[string]*lockEntry)}
}

func (pl *pathLocker) Lock(path string) {
	pl.mu.Lock()
	l, ok := pl.locks[path]
	if !ok {
		l = &lockEntry{}
		pl.locks[path] = l
	}
	l.refs++
	pl.mu.Unlock()
	l.mu.Lock()
}

func (pl *pathLocker) Unlock(path string) {
	pl.mu.Lock()
	l, ok := pl.locks[path]
	if !ok {
		pl.mu.Unlock()
		return
	}
	l.refs--
	if l.refs == 0 {
		delete(pl.locks, path)
	}
	pl.mu.Unlock()
	l.mu.Unlock()
}

// debouncer coalesces rapid event bursts into a single callback per file.
// Once stopped it drops new triggers and pending callbacks.
type debouncer struct {
	mu      sync.Mutex
	pending map[string]*time.Timer
	delay   time.Duration
	fire    func(path string)
	stopped bool
}

func newDebouncer(delay time.Duration, fire func(path string)) *debouncer {
	return &debouncer{
		pending: make(map[string]*time.Timer),
		delay:   delay,
		fire:    fire,
	}
}

// trigger schedules fire(path) after the quiet delay, restarting the delay
// if path is already pending.
func (d *debouncer) trigger(path string) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.stopped {
		return
	}
	if t, ok := d.pending[path]; ok {
		t.Reset(d.delay)
		return
	}
	d.pending[path] = time.AfterFunc(d.delay, func() {
		d.mu.Lock()
		delete(d.pending, path)
		stopped := d.stopped
		d.mu.Unlock()
		if !stopped {
			d.fire(path)
		}
	})
}

// stop cancels every pending callback. It does not wait for callbacks
// that are already running.
func (d *debouncer) stop() {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.stopped = true
	for path, t := range d.pending {
		t.Stop()
		delete(d.pending, path)
	}
}
