// Package counters keeps the previous raw sample of every tracked counter and
// turns consecutive samples into rates.
package counters

import (
	"SystemMonitor/pkg/metrics"
)

type entry struct {
	sample metrics.RawCounterSample
	cycle  uint64
}

// Store maps (entity, kind) to the last raw sample. It has a single writer,
// the sampler, and is not safe for concurrent use.
type Store struct {
	entries map[metrics.CounterKey]entry
	cycle   uint64
}

func NewStore() *Store {
	return &Store{entries: make(map[metrics.CounterKey]entry, 256)}
}

// BeginCycle starts a new generation. Entries not touched before the next
// Prune are removed by it.
func (s *Store) BeginCycle() uint64 {
	s.cycle++
	return s.cycle
}

// Cycle returns the current generation.
func (s *Store) Cycle() uint64 { return s.cycle }

func (s *Store) Lookup(key metrics.CounterKey) (metrics.RawCounterSample, bool) {
	e, ok := s.entries[key]
	return e.sample, ok
}

// Put stores sample as the new baseline for its key and marks it touched.
func (s *Store) Put(sample metrics.RawCounterSample) {
	s.entries[sample.Key()] = entry{sample: sample, cycle: s.cycle}
}

// Observe computes the rate against the stored baseline and replaces it with
// cur, including after a reset.
func (s *Store) Observe(cur metrics.RawCounterSample) metrics.RateResult {
	var prev *metrics.RawCounterSample
	if e, ok := s.entries[cur.Key()]; ok {
		prev = &e.sample
	}
	res := ComputeRate(prev, cur)
	s.Put(cur)
	return res
}

// ObserveCPU is Observe for a busy/total tick pair.
func (s *Store) ObserveCPU(busy, total metrics.RawCounterSample) metrics.RateResult {
	var prevBusy, prevTotal *metrics.RawCounterSample
	if e, ok := s.entries[busy.Key()]; ok {
		prevBusy = &e.sample
	}
	if e, ok := s.entries[total.Key()]; ok {
		prevTotal = &e.sample
	}
	res := CPUPercent(prevBusy, prevTotal, busy, total)
	s.Put(busy)
	s.Put(total)
	return res
}

// Touch keeps an entry alive through this cycle's Prune without changing it.
func (s *Store) Touch(key metrics.CounterKey) {
	if e, ok := s.entries[key]; ok {
		e.cycle = s.cycle
		s.entries[key] = e
	}
}

// TouchEntity keeps every entry of one entity alive.
func (s *Store) TouchEntity(id metrics.EntityID) {
	for k, e := range s.entries {
		if k.Entity == id {
			e.cycle = s.cycle
			s.entries[k] = e
		}
	}
}

// Retain keeps every entry of a category alive. Used when a whole reader
// failed: its entities did not vanish, they were just not observable.
func (s *Store) Retain(c metrics.Category) {
	for k, e := range s.entries {
		if k.Kind.Category() == c {
			e.cycle = s.cycle
			s.entries[k] = e
		}
	}
}

// Prune deletes entries not touched in the current cycle and returns how many
// were removed.
func (s *Store) Prune() int {
	n := 0
	for k, e := range s.entries {
		if e.cycle != s.cycle {
			delete(s.entries, k)
			n++
		}
	}
	return n
}

func (s *Store) Len() int { return len(s.entries) }
