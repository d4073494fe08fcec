// Package snapshot holds the immutable flat analytic table and the single-writer
// store that publishes it.
//
// A Snapshot is fully built before it becomes visible and is never mutated
// afterwards. Store publishes snapshots with an atomic pointer swap, so readers
// never block on a rebuild and never observe a half-built table.
package snapshot

import (
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"github.com/lueurxax/research-dashboard/internal/core/domain"
)

// Snapshot is one fully built instance of the flat table. All accessors return
// shared data that callers must treat as read-only.
type Snapshot struct {
	id         uuid.UUID
	generation uint64
	builtAt    time.Time
	records    []domain.ResearchRecord
	engagement []domain.EngagementDay
	index      map[string]int
}

// New wraps records and engagement days into an unpublished snapshot.
func New(records []domain.ResearchRecord, engagement []domain.EngagementDay, builtAt time.Time) *Snapshot {
	index := make(map[string]int, len(records))
	for i := range records {
		index[records[i].ResearchID] = i
	}

	return &Snapshot{
		id:         uuid.New(),
		builtAt:    builtAt,
		records:    records,
		engagement: engagement,
		index:      index,
	}
}

// ID uniquely identifies the snapshot.
func (s *Snapshot) ID() string { return s.id.String() }

// Generation is the publish sequence number, starting at 1. Unpublished
// snapshots report 0.
func (s *Snapshot) Generation() uint64 { return s.generation }

// BuiltAt is when the rebuild finished.
func (s *Snapshot) BuiltAt() time.Time { return s.builtAt }

// Len returns the number of research outputs.
func (s *Snapshot) Len() int { return len(s.records) }

// Records returns every row ordered by research_id.
func (s *Snapshot) Records() []domain.ResearchRecord { return s.records }

// Engagement returns per-day engagement ordered by date, then research_id.
func (s *Snapshot) Engagement() []domain.EngagementDay { return s.engagement }

// Record looks up a research output by id.
func (s *Snapshot) Record(researchID string) (*domain.ResearchRecord, bool) {
	i, ok := s.index[researchID]
	if !ok {
		return nil, false
	}

	return &s.records[i], true
}

// Store publishes snapshots to concurrent readers.
type Store struct {
	current atomic.Pointer[Snapshot]

	mu         sync.Mutex
	generation uint64
}

// NewStore creates an empty store.
func NewStore() *Store {
	return &Store{}
}

// Load returns the latest published snapshot, or nil before the first publish.
func (st *Store) Load() *Snapshot {
	return st.current.Load()
}

// Publish stamps s with the next generation and makes it visible to readers.
// It returns the snapshot it replaced. s must not be published twice.
func (st *Store) Publish(s *Snapshot) *Snapshot {
	st.mu.Lock()
	defer st.mu.Unlock()

	st.generation++
	s.generation = st.generation

	return st.current.Swap(s)
}
