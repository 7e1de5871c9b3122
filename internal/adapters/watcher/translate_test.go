package watcher

import (
	"os"
	"path/filepath"
	"testing"
)

func newTestRoot(t *testing.T, fac *fakeFacility, path string, cfg Config) (*registry, *watchRoot) {
	t.Helper()
	g := newRegistry(fac)
	if err := g.register(path, &recordListener{}, cfg); err != nil {
		t.Fatalf("register %s: %v", path, err)
	}
	rt := g.roots[path]
	if rt == nil {
		t.Fatalf("no root registered for %s", path)
	}
	return g, rt
}

func mkTree(t *testing.T, root string, paths ...string) {
	t.Helper()
	for _, p := range paths {
		full := filepath.Join(root, p)
		if filepath.Ext(p) == "" {
			if err := os.MkdirAll(full, 0o755); err != nil {
				t.Fatalf("mkdir %s: %v", full, err)
			}
			continue
		}
		if err := os.MkdirAll(filepath.Dir(full), 0o755); err != nil {
			t.Fatalf("mkdir %s: %v", full, err)
		}
		if err := os.WriteFile(full, []byte("1"), 0o644); err != nil {
			t.Fatalf("write %s: %v", full, err)
		}
	}
}

func TestTranslateCreateThenDeleteCancels(t *testing.T) {
	dir := t.TempDir()
	g, rt := newTestRoot(t, newFakeFacility(), dir, DefaultConfig())

	f := filepath.Join(dir, "sample.txt")
	got := translateBatch(g, rt, []Notice{
		{Path: f, Kind: KindCreate},
		{Path: f, Kind: KindDelete},
	})

	assertEvents(t, got)
}

func TestTranslateCreateModifyDeleteKeepsModified(t *testing.T) {
	dir := t.TempDir()
	g, rt := newTestRoot(t, newFakeFacility(), dir, DefaultConfig())

	f := filepath.Join(dir, "sample.txt")
	got := translateBatch(g, rt, []Notice{
		{Path: f, Kind: KindCreate},
		{Path: f, Kind: KindModify},
		{Path: f, Kind: KindDelete},
	})

	assertEvents(t, got, Event{Path: f, Type: Modified})
}

func TestTranslateModifyAfterCreateSuperseded(t *testing.T) {
	dir := t.TempDir()
	g, rt := newTestRoot(t, newFakeFacility(), dir, DefaultConfig())

	f := filepath.Join(dir, "sample.txt")
	mkTree(t, dir, "sample.txt")
	got := translateBatch(g, rt, []Notice{
		{Path: f, Kind: KindCreate},
		{Path: f, Kind: KindModify},
	})

	assertEvents(t, got, Event{Path: f, Type: Added})
}

func TestTranslateModifyBeforeDeleteSuperseded(t *testing.T) {
	dir := t.TempDir()
	g, rt := newTestRoot(t, newFakeFacility(), dir, DefaultConfig())

	f := filepath.Join(dir, "sample.txt")
	got := translateBatch(g, rt, []Notice{
		{Path: f, Kind: KindModify},
		{Path: f, Kind: KindDelete},
	})

	assertEvents(t, got, Event{Path: f, Type: Removed})
}

func TestTranslateDepthBound(t *testing.T) {
	dir := t.TempDir()
	mkTree(t, dir, filepath.Join("1", "2", "sample.txt"))

	fac := newFakeFacility()
	g, rt := newTestRoot(t, fac, dir, Config{MaxDepth: 1})

	sub := filepath.Join(dir, "1")
	deep := filepath.Join(dir, "1", "2", "sample.txt")
	got := translateBatch(g, rt, []Notice{
		{Path: sub, Kind: KindCreate},
		{Path: deep, Kind: KindModify},
	})

	// The new directory sits at the depth limit: reported, not recursed.
	assertEvents(t, got, Event{Path: sub, Type: Added})
	if fac.registered(sub) {
		t.Fatalf("directory at depth limit must not be watched: %s", sub)
	}
}

func TestTranslateRecursiveCreateWalksSubtree(t *testing.T) {
	dir := t.TempDir()
	mkTree(t, dir, filepath.Join("1", "2", "sample.txt"))

	fac := newFakeFacility()
	g, rt := newTestRoot(t, fac, dir, Config{MaxDepth: Unlimited})

	sub := filepath.Join(dir, "1")
	got := translateBatch(g, rt, []Notice{{Path: sub, Kind: KindCreate}})

	assertEvents(t, got,
		Event{Path: sub, Type: Added},
		Event{Path: filepath.Join(sub, "2"), Type: Added},
		Event{Path: filepath.Join(sub, "2", "sample.txt"), Type: Added},
	)
	if !fac.registered(sub) || !fac.registered(filepath.Join(sub, "2")) {
		t.Fatalf("new directories not brought under watch")
	}
}

func TestTranslateCreateWithPartialBudget(t *testing.T) {
	dir := t.TempDir()
	mkTree(t, dir, filepath.Join("1", "2", "sample.txt"))

	fac := newFakeFacility()
	g, rt := newTestRoot(t, fac, dir, Config{MaxDepth: 2})

	sub := filepath.Join(dir, "1")
	got := translateBatch(g, rt, []Notice{{Path: sub, Kind: KindCreate}})

	// Budget of one level below the new directory: 1/2 is reported and
	// watched, sample.txt at depth 3 is not reached.
	assertEvents(t, got,
		Event{Path: sub, Type: Added},
		Event{Path: filepath.Join(sub, "2"), Type: Added},
	)
	if !fac.registered(filepath.Join(sub, "2")) {
		t.Fatalf("directory within depth not watched")
	}
}

func TestTranslateSingleFileRootIgnoresSiblings(t *testing.T) {
	dir := t.TempDir()
	file := filepath.Join(dir, "sample.txt")
	mkTree(t, dir, "sample.txt", "sample2.txt")

	g, rt := newTestRoot(t, newFakeFacility(), file, DefaultConfig())

	got := translateBatch(g, rt, []Notice{
		{Path: filepath.Join(dir, "sample2.txt"), Kind: KindCreate},
		{Path: file, Kind: KindModify},
		{Path: filepath.Join(dir, "sample3.txt"), Kind: KindCreate},
	})

	assertEvents(t, got, Event{Path: file, Type: Modified})
}

func TestTranslateAllowedTypesSuppressEmissionOnly(t *testing.T) {
	dir := t.TempDir()
	f := filepath.Join(dir, "sample.txt")

	t.Run("suppressed delete does not cancel allowed add", func(t *testing.T) {
		g, rt := newTestRoot(t, newFakeFacility(), dir, Config{
			MaxDepth:     1,
			AllowedTypes: []EventType{Added},
		})
		got := translateBatch(g, rt, []Notice{
			{Path: f, Kind: KindCreate},
			{Path: f, Kind: KindDelete},
		})
		assertEvents(t, got, Event{Path: f, Type: Added})
	})

	t.Run("disallowed modify dropped", func(t *testing.T) {
		g, rt := newTestRoot(t, newFakeFacility(), dir, Config{
			MaxDepth:     1,
			AllowedTypes: []EventType{Added, Removed},
		})
		got := translateBatch(g, rt, []Notice{{Path: f, Kind: KindModify}})
		assertEvents(t, got)
	})

	t.Run("suppressed add still cancels delete", func(t *testing.T) {
		g, rt := newTestRoot(t, newFakeFacility(), dir, Config{
			MaxDepth:     1,
			AllowedTypes: []EventType{Removed},
		})
		got := translateBatch(g, rt, []Notice{
			{Path: f, Kind: KindCreate},
			{Path: f, Kind: KindDelete},
		})
		assertEvents(t, got)
	})
}

func TestTranslateDisallowedCreateStillRegistersDirectories(t *testing.T) {
	dir := t.TempDir()
	mkTree(t, dir, "1")

	fac := newFakeFacility()
	g, rt := newTestRoot(t, fac, dir, Config{
		MaxDepth:     2,
		AllowedTypes: []EventType{Modified},
	})

	sub := filepath.Join(dir, "1")
	got := translateBatch(g, rt, []Notice{{Path: sub, Kind: KindCreate}})

	assertEvents(t, got)
	if !fac.registered(sub) {
		t.Fatalf("new directory must be watched even when Added is not emitted")
	}
}

func TestTranslateFilter(t *testing.T) {
	dir := t.TempDir()
	g, rt := newTestRoot(t, newFakeFacility(), dir, Config{
		MaxDepth: 1,
		Filter:   Glob("*.xml"),
	})

	xml := filepath.Join(dir, "sample.xml")
	txt := filepath.Join(dir, "sample.txt")
	got := translateBatch(g, rt, []Notice{
		{Path: txt, Kind: KindCreate},
		{Path: xml, Kind: KindCreate},
	})

	assertEvents(t, got, Event{Path: xml, Type: Added})
}

func TestTranslateOverflowProducesNoEvent(t *testing.T) {
	dir := t.TempDir()
	g, rt := newTestRoot(t, newFakeFacility(), dir, DefaultConfig())

	got := translateBatch(g, rt, []Notice{
		{Path: filepath.Join(dir, "x"), Kind: KindOverflow},
		{Path: filepath.Join(dir, "sample.txt"), Kind: KindCreate},
	})

	assertEvents(t, got, Event{Path: filepath.Join(dir, "sample.txt"), Type: Added})
}
