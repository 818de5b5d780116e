package telemetry

import (
	"context"
	"sync"
)

// Stopped is one recorded Stop call.
type Stopped struct {
	Event *Event
	Err   error
}

// Recorder keeps every event in memory. Tests use it to check that starts
// and stops pair up.
type Recorder struct {
	mu      sync.Mutex
	starts  []*Event
	stopped []Stopped
}

func (r *Recorder) Start(_ context.Context, api API, correlationID string) *Event {
	event := NewEvent(api, correlationID)
	r.mu.Lock()
	r.starts = append(r.starts, event)
	r.mu.Unlock()
	return event
}

func (r *Recorder) started(_ context.Context, event *Event) {
	r.mu.Lock()
	r.starts = append(r.starts, event)
	r.mu.Unlock()
}

func (r *Recorder) Stop(_ context.Context, event *Event, err error) {
	r.mu.Lock()
	r.stopped = append(r.stopped, Stopped{Event: event, Err: err})
	r.mu.Unlock()
}

// Starts returns the started events in order.
func (r *Recorder) Starts() []*Event {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]*Event(nil), r.starts...)
}

// Stops returns the recorded stops in order.
func (r *Recorder) Stops() []Stopped {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]Stopped(nil), r.stopped...)
}

// Balanced reports whether every started event was stopped exactly once.
func (r *Recorder) Balanced() bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	if len(r.starts) != len(r.stopped) {
		return false
	}
	seen := make(map[*Event]int, len(r.stopped))
	for _, s := range r.stopped {
		seen[s.Event]++
	}
	for _, e := range r.starts {
		if seen[e] != 1 {
			return false
		}
	}
	return true
}
