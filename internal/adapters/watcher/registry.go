package watcher

import (
	"io/fs"
	"os"
	"path/filepath"
	"reflect"
	"sync"

	"github.com/rs/zerolog/log"

	"github.com/pathwatch/pathwatch/internal/pathutil"
)

// watchRoot is one user registration: a canonical path, the config fixed at
// first registration, the attached listeners and the per-directory
// registrations covering the configured depth.
type watchRoot struct {
	path  string // canonical
	isDir bool
	cfg   Config

	mu        sync.Mutex
	listeners []Listener
	handles   map[string]Registration // watched dir -> handle
}

func (r *watchRoot) snapshotListeners() []Listener {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]Listener, len(r.listeners))
	copy(out, r.listeners)
	return out
}

// addListener appends l unless an identical listener is already attached.
func (r *watchRoot) addListener(l Listener) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, existing := range r.listeners {
		if listenerEqual(existing, l) {
			return
		}
	}
	r.listeners = append(r.listeners, l)
}

// removeListener removes l and reports how many listeners remain.
func (r *watchRoot) removeListener(l Listener) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	for i, existing := range r.listeners {
		if listenerEqual(existing, l) {
			r.listeners = append(r.listeners[:i], r.listeners[i+1:]...)
			break
		}
	}
	return len(r.listeners)
}

func (r *watchRoot) handleFor(dir string) Registration {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.handles[dir]
}

func (r *watchRoot) putHandle(h Registration) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.handles[h.Dir()] = h
}

func (r *watchRoot) dropHandle(dir string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.handles, dir)
}

// listenerEqual matches listeners by identity. Interface comparison panics
// for non-comparable dynamic types (ListenerFunc), so those fall back to
// comparing code pointers.
func listenerEqual(a, b Listener) bool {
	ta, tb := reflect.TypeOf(a), reflect.TypeOf(b)
	if ta != tb {
		return false
	}
	if ta.Comparable() {
		return a == b
	}
	if ta.Kind() == reflect.Func {
		return reflect.ValueOf(a).Pointer() == reflect.ValueOf(b).Pointer()
	}
	return false
}

// registry owns the set of watch roots and the directory index the loop
// uses to resolve incoming batches. Register, Unregister and UnregisterAll
// serialize on mu; the loop only ever takes the index read lock, so root
// resolution never waits on a caller walking a large tree.
type registry struct {
	fac Facility

	mu    sync.Mutex
	roots map[string]*watchRoot

	idxMu sync.RWMutex
	index map[string]*watchRoot // watched dir -> owning root
}

func newRegistry(fac Facility) *registry {
	return &registry{
		fac:   fac,
		roots: make(map[string]*watchRoot),
		index: make(map[string]*watchRoot),
	}
}

// register attaches l to the root for path, creating the root and its
// directory registrations on first use. The config of an existing root is
// kept; cfg is only consulted for a new root.
func (g *registry) register(path string, l Listener, cfg Config) error {
	canon, err := pathutil.Canonicalize(path)
	if err != nil {
		return err
	}

	g.mu.Lock()
	defer g.mu.Unlock()

	rt, ok := g.roots[canon]
	if !ok {
		rt = &watchRoot{
			path:    canon,
			cfg:     cfg,
			handles: make(map[string]Registration),
		}
		info, statErr := os.Stat(canon)
		if statErr == nil && info.IsDir() {
			rt.isDir = true
			// Cover the root and every existing directory within the
			// configured depth. The walk is bounded at maxDepth-1 levels:
			// a directory at the depth limit is reported but its content
			// is not watched.
			walkLimited(canon, cfg.MaxDepth-1, func(p string, isDir bool) {
				if !isDir {
					return
				}
				if err := g.addDirectory(rt, p); err != nil {
					log.Warn().Err(err).Str("dir", p).Msg("could not watch directory")
				}
			})
		} else {
			// Single file root: watch the parent directory and filter
			// events down to this path. The file itself does not have to
			// exist yet, but its parent must.
			parent := filepath.Dir(canon)
			if err := os.MkdirAll(parent, 0o755); err != nil {
				return err
			}
			if err := g.addDirectory(rt, parent); err != nil {
				return err
			}
		}
		g.roots[canon] = rt
	}

	rt.addListener(l)
	return nil
}

// unregister detaches l; the last listener out cancels every registration
// and drops the root.
func (g *registry) unregister(path string, l Listener) {
	canon, err := pathutil.Canonicalize(path)
	if err != nil {
		return
	}

	g.mu.Lock()
	defer g.mu.Unlock()

	rt, ok := g.roots[canon]
	if !ok {
		return
	}
	if rt.removeListener(l) > 0 {
		return
	}

	delete(g.roots, canon)
	g.dropRoot(rt)
}

// unregisterAll drops every root and cancels every registration.
func (g *registry) unregisterAll() {
	g.mu.Lock()
	defer g.mu.Unlock()

	for path, rt := range g.roots {
		delete(g.roots, path)
		g.dropRoot(rt)
	}
}

func (g *registry) dropRoot(rt *watchRoot) {
	rt.mu.Lock()
	handles := make([]Registration, 0, len(rt.handles))
	for _, h := range rt.handles {
		handles = append(handles, h)
	}
	rt.handles = make(map[string]Registration)
	rt.mu.Unlock()

	g.idxMu.Lock()
	for _, h := range handles {
		if g.index[h.Dir()] == rt {
			delete(g.index, h.Dir())
		}
	}
	g.idxMu.Unlock()

	for _, h := range handles {
		h.Cancel()
	}
}

// addDirectory registers dir with the facility on behalf of rt and indexes
// it. Registering a directory the root already covers is a no-op.
func (g *registry) addDirectory(rt *watchRoot, dir string) error {
	if rt.handleFor(dir) != nil {
		return nil
	}
	h, err := g.fac.Register(dir)
	if err != nil {
		return err
	}
	rt.putHandle(h)

	g.idxMu.Lock()
	g.index[dir] = rt
	g.idxMu.Unlock()
	return nil
}

// resolve returns the root owning the given watched directory, or nil when
// the directory was already unregistered. Called from the loop concurrently
// with registry mutation.
func (g *registry) resolve(dir string) *watchRoot {
	g.idxMu.RLock()
	defer g.idxMu.RUnlock()
	return g.index[dir]
}

// dropDirectory removes a dead registration's mapping after a failed
// re-arm. The handle itself is already invalid and needs no cancel.
func (g *registry) dropDirectory(dir string) {
	g.idxMu.Lock()
	rt := g.index[dir]
	delete(g.index, dir)
	g.idxMu.Unlock()

	if rt != nil {
		rt.dropHandle(dir)
	}
}

// walkLimited visits root and every entry up to levels levels below it.
// Unreadable directories are logged and skipped; their siblings are still
// visited.
func walkLimited(root string, levels int, visit func(path string, isDir bool)) {
	rootSegs := pathutil.Segments(root)
	err := filepath.WalkDir(root, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			log.Warn().Err(err).Str("path", p).Msg("could not traverse directory")
			return nil
		}
		if pathutil.Segments(p)-rootSegs > levels {
			if d.IsDir() {
				return fs.SkipDir
			}
			return nil
		}
		visit(p, d.IsDir())
		return nil
	})
	if err != nil {
		log.Warn().Err(err).Str("path", root).Msg("could not traverse directory")
	}
}
