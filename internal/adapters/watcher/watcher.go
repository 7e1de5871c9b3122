// Package watcher turns the platform's raw directory-watch primitive into a
// stable, filterable, depth-bounded stream of semantic file events for one
// or more independently configured watch roots.
package watcher

import (
	"errors"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/rs/zerolog/log"
)

// DefaultSettleDelay is how long the loop waits after a wake-up before
// draining, letting the facility fold the usual "content written + timestamp
// updated" double notification for one logical write into a single batch.
const DefaultSettleDelay = 100 * time.Millisecond

// Watcher is the watch engine. One background goroutine reads the native
// facility for the lifetime of the instance; registration calls run on the
// caller's goroutine and each translated batch is dispatched on its own.
type Watcher struct {
	name   string
	fac    Facility
	reg    *registry
	settle time.Duration

	done      chan struct{}
	closeOnce sync.Once
	closeErr  error
}

// Option configures a Watcher.
type Option func(*Watcher)

// WithName sets a name used in log output when one process runs several
// watchers.
func WithName(name string) Option {
	return func(w *Watcher) { w.name = name }
}

// WithSettleDelay overrides the wake-up settle window.
func WithSettleDelay(d time.Duration) Option {
	return func(w *Watcher) { w.settle = d }
}

// WithFacility replaces the fsnotify-backed facility. Used by tests to
// drive the loop with deterministic batches.
func WithFacility(f Facility) Option {
	return func(w *Watcher) { w.fac = f }
}

// New creates a Watcher and starts its watch loop. Failure to create the
// native facility is the only hard error; everything later is absorbed and
// logged.
func New(opts ...Option) (*Watcher, error) {
	w := &Watcher{
		settle: DefaultSettleDelay,
		done:   make(chan struct{}),
	}
	for _, opt := range opts {
		opt(w)
	}
	if w.fac == nil {
		fac, err := newFsnotifyFacility()
		if err != nil {
			return nil, err
		}
		w.fac = fac
	}
	w.reg = newRegistry(w.fac)

	go w.run()

	log.Debug().Str("watcher", w.name).Msg("watcher started")
	return w, nil
}

// Watch attaches listener to the given path, which may be a directory
// subtree or a single file. The first registration for a path fixes its
// config; at most one config may be passed and omitting it means
// DefaultConfig. Watching an already-watched path with an already-attached
// listener is a no-op.
func (w *Watcher) Watch(path string, listener Listener, cfg ...Config) error {
	c := DefaultConfig()
	if len(cfg) > 0 {
		c = cfg[0]
	}
	if err := c.Validate(); err != nil {
		return err
	}
	return w.reg.register(path, listener, c)
}

// Unwatch detaches listener from path. When the last listener goes, the
// root and all its directory registrations are dropped.
func (w *Watcher) Unwatch(path string, listener Listener) {
	w.reg.unregister(path, listener)
}

// UnwatchAll drops every watch root.
func (w *Watcher) UnwatchAll() {
	w.reg.unregisterAll()
}

// Close stops the watch loop and releases the native facility. Batches
// already handed to the dispatcher still run to completion; no new batches
// are produced. Close is idempotent.
func (w *Watcher) Close() error {
	w.closeOnce.Do(func() {
		close(w.done)
		w.closeErr = w.fac.Close()
		log.Debug().Str("watcher", w.name).Msg("watcher closed")
	})
	return w.closeErr
}

// run is the watch loop: block, settle, drain, resolve, re-arm, translate,
// dispatch. It exits when Close is called or the facility reports itself
// closed; both are normal termination.
func (w *Watcher) run() {
	notices := w.fac.Notices()
	errs := w.fac.Errors()

	for {
		select {
		case <-w.done:
			return

		case err, ok := <-errs:
			if !ok {
				errs = nil
				continue
			}
			if errors.Is(err, fsnotify.ErrEventOverflow) {
				log.Warn().Str("watcher", w.name).Msg("overflow detected")
			} else {
				log.Warn().Err(err).Str("watcher", w.name).Msg("watch facility error")
			}

		case n, ok := <-notices:
			if !ok {
				return
			}
			// Let the facility finish the burst before draining.
			select {
			case <-w.done:
				return
			case <-time.After(w.settle):
			}
			w.process(append([]Notice{n}, w.drain()...))
		}
	}
}

// drain empties everything currently queued without blocking.
func (w *Watcher) drain() []Notice {
	var out []Notice
	for {
		select {
		case n, ok := <-w.fac.Notices():
			if !ok {
				return out
			}
			out = append(out, n)
		default:
			return out
		}
	}
}

// process groups the drained notices by owning directory and runs each
// group through the translate/dispatch pipeline. Groups whose directory no
// longer resolves to a root were unregistered after the notification was
// queued and are discarded.
func (w *Watcher) process(notices []Notice) {
	var order []string
	byDir := make(map[string][]Notice)
	for _, n := range notices {
		dir := filepath.Dir(filepath.Clean(n.Path))
		if _, ok := byDir[dir]; !ok {
			order = append(order, dir)
		}
		byDir[dir] = append(byDir[dir], n)
	}

	for _, dir := range order {
		rt := w.reg.resolve(dir)
		if rt == nil {
			continue
		}

		// Re-arm before translating; a directory deleted between the
		// notification and now just loses its mapping.
		if h := rt.handleFor(dir); h != nil && !h.Reset() {
			w.reg.dropDirectory(dir)
		}

		events := translateBatch(w.reg, rt, byDir[dir])
		if len(events) == 0 {
			continue
		}
		listeners := rt.snapshotListeners()
		if len(listeners) == 0 {
			continue
		}
		dispatch(listeners, events)
	}
}
