package snapshot

import (
	"sync"
	"testing"
	"time"

	"github.com/lueurxax/research-dashboard/internal/core/domain"
)

const errFmtGeneration = "Generation() = %d, want %d"

func records(ids ...string) []domain.ResearchRecord {
	out := make([]domain.ResearchRecord, len(ids))
	for i, id := range ids {
		out[i] = domain.ResearchRecord{ResearchID: id, Status: domain.StatusReady}
	}

	return out
}

func TestStore_LoadBeforePublish(t *testing.T) {
	if NewStore().Load() != nil {
		t.Fatal("empty store must return nil")
	}
}

func TestStore_PublishAssignsGenerations(t *testing.T) {
	st := NewStore()

	first := New(records("R1"), nil, time.Now())
	if prev := st.Publish(first); prev != nil {
		t.Fatalf("first publish replaced %v", prev)
	}

	if first.Generation() != 1 {
		t.Fatalf(errFmtGeneration, first.Generation(), 1)
	}

	second := New(records("R1", "R2"), nil, time.Now())
	if prev := st.Publish(second); prev != first {
		t.Fatal("second publish should return the first snapshot")
	}

	if second.Generation() != 2 {
		t.Fatalf(errFmtGeneration, second.Generation(), 2)
	}

	if st.Load() != second {
		t.Fatal("Load() should return the latest snapshot")
	}

	if first.Len() != 1 {
		t.Fatal("replaced snapshot must stay intact for readers still holding it")
	}

	if first.ID() == second.ID() {
		t.Fatal("snapshots must have distinct ids")
	}
}

func TestSnapshot_Record(t *testing.T) {
	s := New(records("R1", "R2"), nil, time.Now())

	rec, ok := s.Record("R2")
	if !ok || rec.ResearchID != "R2" {
		t.Fatalf("Record(R2) = %v, %v", rec, ok)
	}

	if _, ok := s.Record("R9"); ok {
		t.Fatal("Record(R9) should be missing")
	}
}

func TestStore_ConcurrentReadersSeeWholeSnapshots(t *testing.T) {
	st := NewStore()
	st.Publish(New(records("A"), nil, time.Now()))

	var wg sync.WaitGroup

	stop := make(chan struct{})

	for i := 0; i < 8; i++ {
		wg.Add(1)

		go func() {
			defer wg.Done()

			for {
				select {
				case <-stop:
					return
				default:
				}

				s := st.Load()
				// Every published snapshot has Len() equal to its generation.
				if uint64(s.Len()) != s.Generation() {
					t.Errorf("torn snapshot: len %d, generation %d", s.Len(), s.Generation())

					return
				}
			}
		}()
	}

	ids := []string{"A"}
	for g := 2; g <= 50; g++ {
		ids = append(ids, string(rune('A'+g)))
		st.Publish(New(records(ids...), nil, time.Now()))
	}

	close(stop)
	wg.Wait()
}
