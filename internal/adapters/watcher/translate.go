package watcher

import (
	"os"
	"path/filepath"

	"github.com/rs/zerolog/log"

	"github.com/pathwatch/pathwatch/internal/pathutil"
)

// translateBatch turns the raw notices drained for one watched directory
// into the semantic events to deliver for the owning root. It resolves and
// bounds paths, performs recursive sub-registration for newly created
// directories, coalesces contradictory same-batch notices and applies the
// root's filter and allowed-type restriction.
func translateBatch(g *registry, rt *watchRoot, notices []Notice) []Event {
	results := make([]Event, 0, len(notices))
	addedPaths := make(map[string]struct{})
	deletedPaths := make(map[string]struct{})
	cfg := rt.cfg

	for _, n := range notices {
		target := filepath.Clean(n.Path)

		// The parent of a single-file root reports siblings too; anything
		// outside the root is not ours.
		if !pathutil.Under(rt.path, target) {
			continue
		}
		depth := pathutil.Depth(rt.path, target)
		if depth > cfg.MaxDepth {
			continue
		}

		switch n.Kind {
		case KindCreate:
			// Book-keeping and directory recursion are independent of the
			// allowed-type restriction: a disallowed Added still cancels a
			// same-batch Removed, and a new directory still has to be
			// brought under watch.
			addedPaths[target] = struct{}{}
			if info, err := os.Stat(target); err == nil && info.IsDir() {
				results = walkNewDirectory(g, rt, target, depth, results)
				continue
			}
			if cfg.allows(Added) {
				results = append(results, Event{Path: target, Type: Added})
			}

		case KindModify:
			if cfg.allows(Modified) {
				results = append(results, Event{Path: target, Type: Modified})
			}

		case KindDelete:
			if !cfg.allows(Removed) {
				continue
			}
			deletedPaths[target] = struct{}{}
			results = append(results, Event{Path: target, Type: Removed})

		case KindOverflow:
			log.Warn().Str("path", target).Msg("overflow detected")
		}
	}

	results = coalesce(results, addedPaths, deletedPaths)

	if cfg.Filter != nil {
		kept := results[:0]
		for _, ev := range results {
			if cfg.Filter(ev.Path) {
				kept = append(kept, ev)
			}
		}
		results = kept
	}
	return results
}

// walkNewDirectory handles a directory that appeared inside a watched tree.
// With remaining depth budget it walks the new subtree, registers every
// directory found and synthesizes Added events for every entry, the new
// directory first. At the depth limit the directory itself is reported but
// its content is neither walked nor watched.
func walkNewDirectory(g *registry, rt *watchRoot, dir string, depth int, results []Event) []Event {
	cfg := rt.cfg
	budget := cfg.MaxDepth - depth
	if budget <= 0 {
		if cfg.allows(Added) {
			results = append(results, Event{Path: dir, Type: Added})
		}
		return results
	}

	walkLimited(dir, budget, func(p string, isDir bool) {
		if isDir && pathutil.Depth(rt.path, p) <= cfg.MaxDepth {
			if err := g.addDirectory(rt, p); err != nil {
				log.Warn().Err(err).Str("dir", p).Msg("could not watch directory")
			}
		}
		if cfg.allows(Added) {
			results = append(results, Event{Path: p, Type: Added})
		}
	})
	return results
}

// coalesce drops contradictory events for paths that were both created and
// deleted, or created/deleted and also modified, within the same batch:
//
//   - Modified survives only if the path is in neither or in both
//     book-keeping sets. The both case is a replace across filesystems,
//     where create+delete+modify fire for one logical overwrite and the
//     Added/Removed pair cancels below.
//   - Added for a path also deleted this batch is dropped, and vice versa:
//     the net effect of create+delete within one tick is silence.
//
// The surviving events keep their original order.
func coalesce(results []Event, addedPaths, deletedPaths map[string]struct{}) []Event {
	kept := results[:0]
	for _, ev := range results {
		_, created := addedPaths[ev.Path]
		_, deleted := deletedPaths[ev.Path]
		switch ev.Type {
		case Modified:
			if (created || deleted) && !(created && deleted) {
				continue
			}
		case Added:
			if deleted {
				continue
			}
		case Removed:
			if created {
				continue
			}
		}
		kept = append(kept, ev)
	}
	return kept
}
