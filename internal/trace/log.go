package trace

import (
	"errors"
	"sync"
)

// ErrAlreadyDrained is the panic value raised when a log is drained twice
// without an intervening Reset. It indicates a bug in the scenario, not in
// the system under test.
var ErrAlreadyDrained = errors.New("trace: log drained twice without reset")

// Appender is the capability handed to source adapters.
// *Log implements it.
type Appender interface {
	Append(e Event)
}

// AppenderFunc adapts a function to the Appender interface.
type AppenderFunc func(e Event)

// Append calls f(e).
func (f AppenderFunc) Append(e Event) {
	f(e)
}

// Log is the append-only event buffer for the running scenario.
//
// Lifecycle: New (or Reset) -> Append* -> DrainAndReset.
//
// Thread-safety: Append, DrainAndReset, Reset and Len share one mutex.
// The mutex is never held while calling out, so adapters may append from
// nested callbacks on the same goroutine and from any other goroutine.
type Log struct {
	mu      sync.Mutex
	events  []Event
	drained bool
}

// New returns an empty, armed log.
func New() *Log {
	return &Log{events: make([]Event, 0, 64)}
}

// Append copies e into the log.
func (l *Log) Append(e Event) {
	l.mu.Lock()
	l.events = append(l.events, e)
	l.mu.Unlock()
}

// DrainAndReset returns the buffered events in arrival order and empties the log.
//
// The returned slice is owned by the caller. An empty log yields an empty,
// non-nil slice. Draining again before Reset panics with ErrAlreadyDrained.
func (l *Log) DrainAndReset() []Event {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.drained {
		panic(ErrAlreadyDrained)
	}
	l.drained = true

	out := make([]Event, len(l.events))
	copy(out, l.events)

	// Drop the backing array so a long scenario does not pin memory into the next one.
	l.events = make([]Event, 0, 64)
	return out
}

// Reset discards any buffered events and arms the log for a new scenario.
// It returns the number of events discarded; anything non-zero means a
// producer kept running after the previous drain.
func (l *Log) Reset() int {
	l.mu.Lock()
	defer l.mu.Unlock()

	stale := len(l.events)
	l.events = l.events[:0]
	l.drained = false
	return stale
}

// Len returns the number of buffered events.
func (l *Log) Len() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.events)
}
