package mocks

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/lueurxax/research-dashboard/internal/core/ports"
)

// Source is a thread-safe in-memory implementation of ports.Source.
type Source struct {
	mu sync.RWMutex

	outputs      []ports.OutputRow
	publications []ports.PublicationRow
	statuses     []ports.StatusRow
	authors      []ports.AuthorRow
	keywords     []ports.TagRow
	sdgs         []ports.TagRow
	engagement   []ports.EngagementRow

	err   error
	delay time.Duration

	// BeforeLoadFn runs at the start of every table load; a non-nil error fails the load.
	BeforeLoadFn func(ctx context.Context, table string) error

	loads atomic.Int64
}

// NewSource creates an empty mock source.
func NewSource() *Source {
	return &Source{}
}

// SetOutputs replaces the research_output rows.
func (s *Source) SetOutputs(rows ...ports.OutputRow) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.outputs = rows
}

// SetPublications replaces the publication rows.
func (s *Source) SetPublications(rows ...ports.PublicationRow) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.publications = rows
}

// SetStatuses replaces the status history rows.
func (s *Source) SetStatuses(rows ...ports.StatusRow) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.statuses = rows
}

// SetAuthors replaces the author rows.
func (s *Source) SetAuthors(rows ...ports.AuthorRow) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.authors = rows
}

// SetKeywords replaces the keyword rows.
func (s *Source) SetKeywords(rows ...ports.TagRow) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.keywords = rows
}

// SetSDGs replaces the SDG rows.
func (s *Source) SetSDGs(rows ...ports.TagRow) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.sdgs = rows
}

// SetEngagement replaces the engagement rows.
func (s *Source) SetEngagement(rows ...ports.EngagementRow) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.engagement = rows
}

// SetError makes every load fail with err until cleared with nil.
func (s *Source) SetError(err error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.err = err
}

// SetDelay slows every load down by d, honoring context cancellation.
func (s *Source) SetDelay(d time.Duration) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.delay = d
}

// Loads returns the number of table loads served so far.
func (s *Source) Loads() int64 {
	return s.loads.Load()
}

func (s *Source) before(ctx context.Context, table string) error {
	s.loads.Add(1)

	s.mu.RLock()
	err, delay, hook := s.err, s.delay, s.BeforeLoadFn
	s.mu.RUnlock()

	if hook != nil {
		if hookErr := hook(ctx, table); hookErr != nil {
			return hookErr
		}
	}

	if err != nil {
		return fmt.Errorf("load %s: %w", table, err)
	}

	if delay > 0 {
		select {
		case <-ctx.Done():
			return fmt.Errorf("load %s: %w", table, ctx.Err())
		case <-time.After(delay):
		}
	}

	return nil
}

func load[T any](ctx context.Context, s *Source, table string, rows *[]T) ([]T, error) {
	if err := s.before(ctx, table); err != nil {
		return nil, err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]T, len(*rows))
	copy(out, *rows)

	return out, nil
}

// ResearchOutputs implements ports.OutputReader.
func (s *Source) ResearchOutputs(ctx context.Context) ([]ports.OutputRow, error) {
	return load(ctx, s, "research_output", &s.outputs)
}

// Publications implements ports.PublicationReader.
func (s *Source) Publications(ctx context.Context) ([]ports.PublicationRow, error) {
	return load(ctx, s, "publication", &s.publications)
}

// Statuses implements ports.PublicationReader.
func (s *Source) Statuses(ctx context.Context) ([]ports.StatusRow, error) {
	return load(ctx, s, "status", &s.statuses)
}

// Authors implements ports.RelationReader.
func (s *Source) Authors(ctx context.Context) ([]ports.AuthorRow, error) {
	return load(ctx, s, "research_output_author", &s.authors)
}

// Keywords implements ports.RelationReader.
func (s *Source) Keywords(ctx context.Context) ([]ports.TagRow, error) {
	return load(ctx, s, "keywords", &s.keywords)
}

// SDGs implements ports.RelationReader.
func (s *Source) SDGs(ctx context.Context) ([]ports.TagRow, error) {
	return load(ctx, s, "sdg", &s.sdgs)
}

// Engagement implements ports.EngagementReader.
func (s *Source) Engagement(ctx context.Context) ([]ports.EngagementRow, error) {
	return load(ctx, s, "user_engagement", &s.engagement)
}

// Ping reports the configured error, if any.
func (s *Source) Ping(_ context.Context) error {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.err != nil {
		return fmt.Errorf("ping: %w", s.err)
	}

	return nil
}
