package watcher

import (
	"fmt"
	"os"

	"github.com/fsnotify/fsnotify"
	"github.com/rs/zerolog/log"
)

// Kind classifies a raw notification from the native watch facility.
type Kind int

const (
	// KindCreate: an entry appeared in a watched directory.
	KindCreate Kind = iota
	// KindModify: an entry's content changed.
	KindModify
	// KindDelete: an entry disappeared (delete or rename away).
	KindDelete
	// KindOverflow: the facility dropped notifications; a gap is possible.
	KindOverflow
)

// Notice is one raw notification: a resolved absolute path and what the
// facility observed happening to it.
type Notice struct {
	Path string
	Kind Kind
}

// Registration is the facility's token for one watched directory. A
// registration is owned by exactly one watch root and cancelled when that
// root is dropped or the directory becomes invalid.
type Registration interface {
	// Dir returns the watched directory.
	Dir() string

	// Reset re-arms the registration after a batch was drained. It returns
	// false when the directory is gone and the registration is dead.
	Reset() bool

	// Cancel stops watching the directory.
	Cancel()
}

// Facility abstracts the platform watch primitive. The production
// implementation wraps fsnotify; tests drive the loop with a fake.
type Facility interface {
	// Register starts watching a single directory for create, modify and
	// delete notifications.
	Register(dir string) (Registration, error)

	// Notices returns the stream of raw notifications. The channel is
	// closed when the facility is closed.
	Notices() <-chan Notice

	// Errors returns facility-level errors, including overflow reports.
	Errors() <-chan error

	// Close releases the facility. Pending notices are discarded.
	Close() error
}

// fsnotifyFacility adapts an fsnotify.Watcher to the Facility interface.
type fsnotifyFacility struct {
	fw      *fsnotify.Watcher
	notices chan Notice
}

func newFsnotifyFacility() (*fsnotifyFacility, error) {
	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("create fsnotify watcher: %w", err)
	}
	f := &fsnotifyFacility{
		fw:      fw,
		notices: make(chan Notice, 256),
	}
	go f.convert()
	return f, nil
}

// convert maps fsnotify ops onto raw notice kinds. Renames count as
// deletes of the old name; the new name arrives as a separate create.
// Chmod-only events carry no content change and are dropped.
func (f *fsnotifyFacility) convert() {
	defer close(f.notices)
	for ev := range f.fw.Events {
		var kind Kind
		switch {
		case ev.Has(fsnotify.Create):
			kind = KindCreate
		case ev.Has(fsnotify.Write):
			kind = KindModify
		case ev.Has(fsnotify.Remove), ev.Has(fsnotify.Rename):
			kind = KindDelete
		default:
			continue
		}
		f.notices <- Notice{Path: ev.Name, Kind: kind}
	}
}

func (f *fsnotifyFacility) Register(dir string) (Registration, error) {
	if err := f.fw.Add(dir); err != nil {
		return nil, fmt.Errorf("add watch for %s: %w", dir, err)
	}
	return &fsnotifyRegistration{fw: f.fw, dir: dir}, nil
}

func (f *fsnotifyFacility) Notices() <-chan Notice {
	return f.notices
}

func (f *fsnotifyFacility) Errors() <-chan error {
	return f.fw.Errors
}

func (f *fsnotifyFacility) Close() error {
	return f.fw.Close()
}

// fsnotifyRegistration is one watched directory. fsnotify re-arms watches
// itself, so Reset only probes whether the directory still exists.
type fsnotifyRegistration struct {
	fw  *fsnotify.Watcher
	dir string
}

func (r *fsnotifyRegistration) Dir() string {
	return r.dir
}

func (r *fsnotifyRegistration) Reset() bool {
	info, err := os.Stat(r.dir)
	return err == nil && info.IsDir()
}

func (r *fsnotifyRegistration) Cancel() {
	if err := r.fw.Remove(r.dir); err != nil {
		// The watch is already gone when the directory was deleted.
		log.Debug().Err(err).Str("dir", r.dir).Msg("remove watch")
	}
}
