// Package ports provides domain-centric interfaces for external dependencies.
// These interfaces follow the ports and adapters (hexagonal) architecture pattern,
// allowing business logic to remain independent of infrastructure concerns.
package ports

import (
	"context"

	"github.com/lueurxax/research-dashboard/internal/core/domain"
)

// Re-export domain types for convenience.
type (
	OutputRow      = domain.OutputRow
	PublicationRow = domain.PublicationRow
	StatusRow      = domain.StatusRow
	AuthorRow      = domain.AuthorRow
	TagRow         = domain.TagRow
	EngagementRow  = domain.EngagementRow
)

// OutputReader loads research outputs with their college and program.
type OutputReader interface {
	ResearchOutputs(ctx context.Context) ([]OutputRow, error)
}

// PublicationReader loads publications and their status history.
type PublicationReader interface {
	Publications(ctx context.Context) ([]PublicationRow, error)
	Statuses(ctx context.Context) ([]StatusRow, error)
}

// RelationReader loads the one-to-many relations of research outputs.
type RelationReader interface {
	Authors(ctx context.Context) ([]AuthorRow, error)
	Keywords(ctx context.Context) ([]TagRow, error)
	SDGs(ctx context.Context) ([]TagRow, error)
}

// EngagementReader loads daily engagement aggregates.
type EngagementReader interface {
	Engagement(ctx context.Context) ([]EngagementRow, error)
}

// Source is the relational store the aggregation engine rebuilds from.
type Source interface {
	OutputReader
	PublicationReader
	RelationReader
	EngagementReader
	Ping(ctx context.Context) error
}
