package store

import (
	"slices"
	"sync"

	"boardgame-shelf/internal/domain"
)

// CollectionStore holds the current collection in memory. All mutation goes
// through a cycle token handed out by BeginCycle: starting a new fetch cycle
// invalidates every earlier token, so an abandoned in-flight fetch can never
// seed or patch over a newer cycle's data.
type CollectionStore struct {
	mu      sync.RWMutex
	cycle   uint64
	version uint64
	order   []string
	records map[string]domain.GameRecord

	subs    map[int]chan struct{}
	nextSub int
}

func NewCollectionStore() *CollectionStore {
	return &CollectionStore{
		records: make(map[string]domain.GameRecord),
		subs:    make(map[int]chan struct{}),
	}
}

// BeginCycle starts a new fetch cycle and returns its token.
func (s *CollectionStore) BeginCycle() uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.cycle++
	return s.cycle
}

// Seed replaces the whole collection with records, deduplicated by ID with
// the first occurrence winning. Prior enrichment state is discarded with the
// prior records. Returns false without touching anything when cycle is stale.
func (s *CollectionStore) Seed(cycle uint64, records []domain.GameRecord) bool {
	s.mu.Lock()
	if cycle != s.cycle {
		s.mu.Unlock()
		return false
	}

	s.order = make([]string, 0, len(records))
	s.records = make(map[string]domain.GameRecord, len(records))
	for _, r := range records {
		if _, seen := s.records[r.ID]; seen {
			continue
		}
		s.order = append(s.order, r.ID)
		s.records[r.ID] = cloneRecord(r)
	}
	s.version++
	s.mu.Unlock()

	s.notify()
	return true
}

// ApplyPatch merges the fields present on the patch into the record with the
// same ID. Absent (nil) fields never overwrite existing values. Unknown IDs
// and stale cycles are no-ops.
func (s *CollectionStore) ApplyPatch(cycle uint64, patch domain.EnrichmentRecord) bool {
	s.mu.Lock()
	if cycle != s.cycle {
		s.mu.Unlock()
		return false
	}

	record, ok := s.records[patch.ID]
	if !ok {
		s.mu.Unlock()
		return false
	}

	if len(patch.BestWith) > 0 {
		record.BestWith = slices.Clone(patch.BestWith)
	}
	if len(patch.RecommendedWith) > 0 {
		record.RecommendedWith = slices.Clone(patch.RecommendedWith)
	}
	s.records[patch.ID] = record
	s.version++
	s.mu.Unlock()

	s.notify()
	return true
}

// Snapshot returns a copy of the collection in seed order. Mutating the
// result does not affect the store.
func (s *CollectionStore) Snapshot() []domain.GameRecord {
	s.mu.RLock()
	defer s.mu.RUnlock()

	result := make([]domain.GameRecord, 0, len(s.order))
	for _, id := range s.order {
		result = append(result, cloneRecord(s.records[id]))
	}
	return result
}

// Version increments on every effective seed or patch.
func (s *CollectionStore) Version() uint64 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.version
}

// Subscribe registers a change listener. The channel carries coalescing
// notifications: a pending signal covers any number of mutations. The
// returned cancel func must be called to release the subscription.
func (s *CollectionStore) Subscribe() (<-chan struct{}, func()) {
	s.mu.Lock()
	defer s.mu.Unlock()

	id := s.nextSub
	s.nextSub++
	ch := make(chan struct{}, 1)
	s.subs[id] = ch

	return ch, func() {
		s.mu.Lock()
		defer s.mu.Unlock()
		delete(s.subs, id)
	}
}

func (s *CollectionStore) notify() {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, ch := range s.subs {
		select {
		case ch <- struct{}{}:
		default:
		}
	}
}

func cloneRecord(r domain.GameRecord) domain.GameRecord {
	r.BestWith = slices.Clone(r.BestWith)
	r.RecommendedWith = slices.Clone(r.RecommendedWith)
	return r
}
