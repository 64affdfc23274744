package store

import (
	"sort"
	"sync"
	"time"
)

// Op names a store operation.
type Op string

const (
	OpGet      Op = "get"
	OpSet      Op = "set"
	OpHas      Op = "has"
	OpRemove   Op = "remove"
	OpListKeys Op = "list_keys"
)

// Observation captures the outcome of a single store operation.
type Observation struct {
	// Timestamp is when the operation started.
	Timestamp time.Time

	// Store is the name of the store that ran the operation.
	Store string

	Op Op

	// Success is false when the operation returned an error.
	Success bool

	// Err holds the returned error, if any.
	Err error

	Duration time.Duration
}

// Observer receives an Observation after every store operation.
// Implementations must be safe for concurrent use.
type Observer interface {
	Observe(Observation)
}

// NopObserver discards observations.
type NopObserver struct{}

func (NopObserver) Observe(Observation) {}

// Multi fans observations out to several observers in order.
type Multi []Observer

func (m Multi) Observe(o Observation) {
	for _, obs := range m {
		if obs != nil {
			obs.Observe(o)
		}
	}
}

// Stats counts operations per store and op.
// It is safe for concurrent use.
type Stats struct {
	mu     sync.RWMutex
	counts map[opKey]*opCounts
}

type opKey struct {
	store string
	op    Op
}

type opCounts struct {
	total     uint64
	failures  uint64
	duration  time.Duration
	lastError string
	lastSeen  time.Time
}

// NewStats creates an empty Stats.
func NewStats() *Stats {
	return &Stats{counts: make(map[opKey]*opCounts)}
}

// Observe records o.
func (s *Stats) Observe(o Observation) {
	s.mu.Lock()
	defer s.mu.Unlock()

	k := opKey{store: o.Store, op: o.Op}
	c, ok := s.counts[k]
	if !ok {
		c = &opCounts{}
		s.counts[k] = c
	}
	c.total++
	c.duration += o.Duration
	c.lastSeen = o.Timestamp
	if !o.Success {
		c.failures++
		if o.Err != nil {
			c.lastError = o.Err.Error()
		}
	}
}

// OpStats is a point-in-time copy of the counters for one store and op.
type OpStats struct {
	Store     string
	Op        Op
	Total     uint64
	Failures  uint64
	Duration  time.Duration
	LastError string
	LastSeen  time.Time
}

// Snapshot returns a copy of all counters, sorted by store then op.
func (s *Stats) Snapshot() []OpStats {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]OpStats, 0, len(s.counts))
	for k, c := range s.counts {
		out = append(out, OpStats{
			Store:     k.store,
			Op:        k.op,
			Total:     c.total,
			Failures:  c.failures,
			Duration:  c.duration,
			LastError: c.lastError,
			LastSeen:  c.lastSeen,
		})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Store != out[j].Store {
			return out[i].Store < out[j].Store
		}
		return out[i].Op < out[j].Op
	})
	return out
}
