package query

import (
	"github.com/rs/zerolog"

	apperrors "github.com/lueurxax/research-dashboard/internal/core/errors"
	"github.com/lueurxax/research-dashboard/internal/snapshot"
)

// Service hands out views over the latest published snapshot.
type Service struct {
	store  *snapshot.Store
	logger *zerolog.Logger
}

// NewService creates a Service reading from store.
func NewService(store *snapshot.Store, logger *zerolog.Logger) *Service {
	if logger == nil {
		nop := zerolog.Nop()
		logger = &nop
	}

	return &Service{store: store, logger: logger}
}

// Current returns a view of every row of the latest snapshot. All lookups made
// through one view see the same snapshot even if a rebuild publishes meanwhile.
func (s *Service) Current() (*View, error) {
	snap := s.store.Load()
	if snap == nil {
		return nil, apperrors.ErrNoSnapshot
	}

	return newView(snap, s.logger), nil
}

// Of returns a view of every row of snap.
func Of(snap *snapshot.Snapshot, logger *zerolog.Logger) *View {
	if logger == nil {
		nop := zerolog.Nop()
		logger = &nop
	}

	return newView(snap, logger)
}
