package events

import (
	"sync"
	"time"
)

// Recorder keeps the most recent events in a fixed-size ring. The year loop
// writes, the status API reads; both may run concurrently.
type Recorder struct {
	mu     sync.RWMutex
	events []EventWithData
	limit  int
}

// NewRecorder returns a recorder retaining at most limit events.
func NewRecorder(limit int) *Recorder {
	if limit <= 0 {
		limit = 256
	}
	return &Recorder{limit: limit}
}

// Record appends an event, timestamping it now.
func (r *Recorder) Record(data EventData) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.events = append(r.events, EventWithData{
		Type:      data.EventType(),
		Timestamp: time.Now().UTC(),
		Data:      data,
	})
	if len(r.events) > r.limit {
		r.events = r.events[len(r.events)-r.limit:]
	}
}

// Recent returns up to n most recent events, newest last.
func (r *Recorder) Recent(n int) []EventWithData {
	r.mu.RLock()
	defer r.mu.RUnlock()

	if n <= 0 || n > len(r.events) {
		n = len(r.events)
	}
	out := make([]EventWithData, n)
	copy(out, r.events[len(r.events)-n:])
	return out
}
