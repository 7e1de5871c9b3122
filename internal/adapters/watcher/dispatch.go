package watcher

import (
	"github.com/rs/zerolog/log"
)

// dispatch delivers one batch's events to the listener snapshot on its own
// goroutine so slow listeners never block the watch loop. Within the batch
// every listener sees the events in order; across batches no ordering is
// guaranteed, since back-to-back batches may be dispatched concurrently.
func dispatch(listeners []Listener, events []Event) {
	go func() {
		for _, ev := range events {
			for _, l := range listeners {
				deliver(l, ev)
			}
		}
	}()
}

// deliver invokes one listener for one event, isolating panics so a failing
// listener cannot take down the remaining listeners or the batch.
func deliver(l Listener, ev Event) {
	defer func() {
		if r := recover(); r != nil {
			log.Error().
				Interface("panic", r).
				Str("path", ev.Path).
				Str("type", string(ev.Type)).
				Msg("listener panicked")
		}
	}()
	l.OnEvent(ev)
}
