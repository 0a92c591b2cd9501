package jobs

import (
	"math"
	"sort"
	"sync"
)

// Aggregates summarizes the store for the overview counters.
type Aggregates struct {
	Running    int   `json:"running"`
	Paused     int   `json:"paused"`
	Stopped    int   `json:"stopped"`
	TotalPages int64 `json:"total_pages"`
	Jobs       int   `json:"jobs"`
}

type entry struct {
	rec Record
	seq uint64
}

// Store is the authoritative in-memory job collection. It is safe for
// concurrent use; every read returns copies.
type Store struct {
	mu      sync.RWMutex
	entries map[string]*entry
	nextSeq uint64
	version uint64
}

// NewStore constructs an empty Store.
func NewStore() *Store {
	return &Store{entries: make(map[string]*entry)}
}

// ReplaceAll drops the current collection and installs records. Records
// without a job id are ignored; a repeated id replaces the earlier record but
// keeps its insertion position.
func (s *Store) ReplaceAll(records []Record) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.entries = make(map[string]*entry, len(records))
	for _, rec := range records {
		if rec.JobID == "" {
			continue
		}
		if existing, ok := s.entries[rec.JobID]; ok {
			existing.rec = rec.clone()
			continue
		}
		s.insertLocked(rec)
	}
	s.version++
}

// MergePartial applies patches in order. Unknown ids are inserted with absent
// fields zeroed; known ids get only the present fields overwritten.
func (s *Store) MergePartial(patches []Patch) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, p := range patches {
		if p.JobID == "" {
			continue
		}
		if existing, ok := s.entries[p.JobID]; ok {
			p.Apply(&existing.rec)
			continue
		}
		s.insertLocked(p.Record())
	}
	s.version++
}

// Remove deletes the job if present and reports whether it existed.
func (s *Store) Remove(jobID string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.entries[jobID]; !ok {
		return false
	}
	delete(s.entries, jobID)
	s.version++
	return true
}

// Get returns a copy of a single job.
func (s *Store) Get(jobID string) (Record, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	e, ok := s.entries[jobID]
	if !ok {
		return Record{}, false
	}
	return e.rec.clone(), true
}

// Snapshot returns every job, most recently updated first. Ties keep
// insertion order.
func (s *Store) Snapshot() []Record {
	s.mu.RLock()
	ordered := make([]entry, 0, len(s.entries))
	for _, e := range s.entries {
		ordered = append(ordered, entry{rec: e.rec.clone(), seq: e.seq})
	}
	s.mu.RUnlock()

	sort.Slice(ordered, func(i, j int) bool {
		if ordered[i].rec.LastUpdate != ordered[j].rec.LastUpdate {
			return ordered[i].rec.LastUpdate > ordered[j].rec.LastUpdate
		}
		return ordered[i].seq < ordered[j].seq
	})
	out := make([]Record, len(ordered))
	for i, e := range ordered {
		out[i] = e.rec
	}
	return out
}

// Aggregates computes the overview counters.
func (s *Store) Aggregates() Aggregates {
	s.mu.RLock()
	defer s.mu.RUnlock()
	agg := Aggregates{Jobs: len(s.entries)}
	for _, e := range s.entries {
		switch {
		case e.rec.Status == StatusRunning:
			agg.Running++
		case e.rec.Status == StatusPaused:
			agg.Paused++
		case e.rec.Status.Terminal():
			agg.Stopped++
		}
		if e.rec.PagesSuccess > math.MaxInt64-agg.TotalPages {
			agg.TotalPages = math.MaxInt64
		} else {
			agg.TotalPages += e.rec.PagesSuccess
		}
	}
	return agg
}

// Len returns the number of jobs held.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.entries)
}

// Version increases on every mutation; callers use it to detect change.
func (s *Store) Version() uint64 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.version
}

func (s *Store) insertLocked(rec Record) {
	s.nextSeq++
	s.entries[rec.JobID] = &entry{rec: rec.clone(), seq: s.nextSeq}
}
