// Package diagnostics collects per-request pipeline events.
package diagnostics

import (
	"sync"
	"time"
)

// Event is one observation recorded by a pipeline stage.
type Event struct {
	Stage   string                 `json:"stage"`
	Message string                 `json:"message"`
	Fields  map[string]interface{} `json:"fields,omitempty"`
	At      time.Time              `json:"at"`
}

// Recorder is an append-only event log scoped to a single request.
// A nil *Recorder is valid and drops everything.
type Recorder struct {
	mu     sync.Mutex
	events []Event
	now    func() time.Time
}

func NewRecorder() *Recorder {
	return &Recorder{now: time.Now}
}

func (r *Recorder) Record(stage, msg string, fields map[string]interface{}) {
	if r == nil {
		return
	}
	var copied map[string]interface{}
	if len(fields) > 0 {
		copied = make(map[string]interface{}, len(fields))
		for k, v := range fields {
			copied[k] = v
		}
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, Event{Stage: stage, Message: msg, Fields: copied, At: r.now()})
}

// Events returns a snapshot of everything recorded so far.
func (r *Recorder) Events() []Event {
	if r == nil {
		return nil
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]Event, len(r.events))
	copy(out, r.events)
	return out
}

// Stages returns the stage names in recording order.
func (r *Recorder) Stages() []string {
	events := r.Events()
	out := make([]string, len(events))
	for i, e := range events {
		out[i] = e.Stage
	}
	return out
}
