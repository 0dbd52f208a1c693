package recognitions

import (
	"slices"
	"sync"
	"time"
)

// Register holds the most recent recognition result. Every applied result
// replaces the previous one entirely.
type Register struct {
	ordered bool
	now     func() time.Time

	guard       sync.Mutex
	snapshot    Snapshot
	subscribers map[int]chan Snapshot
	nextID      int
}

// NewRegister returns a register. When ordered is true, results of frames older
// than the last applied one are discarded.
func NewRegister(ordered bool) *Register {
	return &Register{
		ordered:     ordered,
		now:         time.Now,
		snapshot:    Snapshot{Events: []Event{}},
		subscribers: make(map[int]chan Snapshot),
	}
}

// Apply replaces the register content with events recognized in frame seq. It
// reports whether the events were applied.
func (r *Register) Apply(seq uint64, events []Event) bool {
	r.guard.Lock()
	defer r.guard.Unlock()
	if r.ordered && seq <= r.snapshot.Seq {
		return false
	}
	if events == nil {
		events = []Event{}
	}
	r.snapshot = Snapshot{
		Seq:       seq,
		Events:    slices.Clone(events),
		UpdatedAt: r.now(),
	}
	for _, ch := range r.subscribers {
		publish(ch, r.copySnapshot())
	}
	return true
}

func (r *Register) Snapshot() Snapshot {
	r.guard.Lock()
	defer r.guard.Unlock()
	return r.copySnapshot()
}

// Subscribe returns a channel receiving the latest snapshot after every applied
// result. Slow subscribers only see the newest one.
func (r *Register) Subscribe() (<-chan Snapshot, func()) {
	r.guard.Lock()
	defer r.guard.Unlock()
	id := r.nextID
	r.nextID++
	ch := make(chan Snapshot, 1)
	r.subscribers[id] = ch
	return ch, func() {
		r.guard.Lock()
		defer r.guard.Unlock()
		if _, ok := r.subscribers[id]; ok {
			delete(r.subscribers, id)
			close(ch)
		}
	}
}

func (r *Register) copySnapshot() Snapshot {
	snapshot := r.snapshot
	snapshot.Events = slices.Clone(r.snapshot.Events)
	return snapshot
}

func publish(ch chan Snapshot, snapshot Snapshot) {
	select {
	case <-ch:
	default:
	}
	ch <- snapshot
}
