// Package engine coordinates exclusive access to the process-wide audio
// engines: only one capture session and one synthesized utterance may be
// active at a time, and starting either must first stop the other to avoid
// feedback loops.
package engine

import (
	"log"
	"sync"
)

// Owner identifies which half of the audio path currently holds the engine.
type Owner string

const (
	OwnerNone     Owner = ""
	OwnerCapture  Owner = "capture"
	OwnerPlayback Owner = "playback"
)

// Exclusive is a mutex-like hand-off between capture and playback. Each side
// registers a stop hook once; acquiring the engine invokes the previous
// owner's hook before the new owner proceeds.
type Exclusive struct {
	mu    sync.Mutex
	owner Owner
	stops map[Owner]func()
}

// New creates an unowned guard.
func New() *Exclusive {
	return &Exclusive{stops: make(map[Owner]func())}
}

// Register installs the stop hook for an owner. Later registrations replace
// earlier ones.
func (e *Exclusive) Register(o Owner, stop func()) {
	e.mu.Lock()
	e.stops[o] = stop
	e.mu.Unlock()
}

// Acquire hands the engine to o, stopping the previous owner if different.
// The stop hook runs outside the lock; hooks may re-enter Release.
func (e *Exclusive) Acquire(o Owner) {
	e.mu.Lock()
	prev := e.owner
	e.owner = o
	var stop func()
	if prev != OwnerNone && prev != o {
		stop = e.stops[prev]
	}
	e.mu.Unlock()

	if stop != nil {
		log.Printf("engine: %s taking over from %s", o, prev)
		stop()
	}
}

// Release marks the engine unowned if o still holds it.
func (e *Exclusive) Release(o Owner) {
	e.mu.Lock()
	if e.owner == o {
		e.owner = OwnerNone
	}
	e.mu.Unlock()
}

// Owner reports the current holder.
func (e *Exclusive) Owner() Owner {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.owner
}
