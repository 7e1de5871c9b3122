package watcher

import (
	"sync"
	"testing"
	"time"
)

// fakeFacility drives the engine with deterministic batches.
type fakeFacility struct {
	notices chan Notice
	errs    chan error

	mu        sync.Mutex
	regs      map[string]*fakeRegistration
	registers int
	closed    bool
}

func newFakeFacility() *fakeFacility {
	return &fakeFacility{
		notices: make(chan Notice, 64),
		errs:    make(chan error, 4),
		regs:    make(map[string]*fakeRegistration),
	}
}

func (f *fakeFacility) Register(dir string) (Registration, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.registers++
	r := &fakeRegistration{fac: f, dir: dir, valid: true}
	f.regs[dir] = r
	return r, nil
}

func (f *fakeFacility) Notices() <-chan Notice { return f.notices }
func (f *fakeFacility) Errors() <-chan error   { return f.errs }

func (f *fakeFacility) Close() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if !f.closed {
		f.closed = true
		close(f.notices)
	}
	return nil
}

func (f *fakeFacility) emit(notices ...Notice) {
	for _, n := range notices {
		f.notices <- n
	}
}

func (f *fakeFacility) registration(dir string) *fakeRegistration {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.regs[dir]
}

func (f *fakeFacility) registered(dir string) bool {
	return f.registration(dir) != nil
}

type fakeRegistration struct {
	fac *fakeFacility
	dir string

	mu        sync.Mutex
	valid     bool
	cancelled bool
}

func (r *fakeRegistration) Dir() string { return r.dir }

func (r *fakeRegistration) Reset() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.valid
}

func (r *fakeRegistration) Cancel() {
	r.mu.Lock()
	r.cancelled = true
	r.mu.Unlock()
}

func (r *fakeRegistration) invalidate() {
	r.mu.Lock()
	r.valid = false
	r.mu.Unlock()
}

func (r *fakeRegistration) isCancelled() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.cancelled
}

// recordListener collects delivered events.
type recordListener struct {
	mu     sync.Mutex
	events []Event
}

func (l *recordListener) OnEvent(ev Event) {
	l.mu.Lock()
	l.events = append(l.events, ev)
	l.mu.Unlock()
}

func (l *recordListener) snapshot() []Event {
	l.mu.Lock()
	defer l.mu.Unlock()
	out := make([]Event, len(l.events))
	copy(out, l.events)
	return out
}

// waitFor blocks until at least n events arrived or the deadline passes.
func (l *recordListener) waitFor(t *testing.T, n int) []Event {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if evs := l.snapshot(); len(evs) >= n {
			return evs
		}
		time.Sleep(5 * time.Millisecond)
	}
	evs := l.snapshot()
	t.Fatalf("timed out waiting for %d events, got %d: %v", n, len(evs), evs)
	return nil
}

// settled waits long enough for any in-flight batch to be processed and
// returns the events seen so far.
func (l *recordListener) settled() []Event {
	time.Sleep(150 * time.Millisecond)
	return l.snapshot()
}

func assertEvents(t *testing.T, got []Event, want ...Event) {
	t.Helper()
	if len(got) != len(want) {
		t.Fatalf("event count = %d, want %d\ngot:  %v\nwant: %v", len(got), len(want), got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("event[%d] = %v, want %v", i, got[i], want[i])
		}
	}
}
