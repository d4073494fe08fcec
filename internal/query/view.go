// Package query is the read-only filter and lookup layer over the latest snapshot.
//
// Every filter returns a new View that shares records with the snapshot; nothing
// here mutates the flat table.
package query

import (
	"slices"
	"time"

	"github.com/rs/zerolog"

	"github.com/lueurxax/research-dashboard/internal/core/domain"
	apperrors "github.com/lueurxax/research-dashboard/internal/core/errors"
	"github.com/lueurxax/research-dashboard/internal/snapshot"
)

const logFieldColumn = "column"

// View is a filtered subset of one snapshot.
type View struct {
	snap   *snapshot.Snapshot
	rows   []*domain.ResearchRecord
	logger *zerolog.Logger
}

func newView(snap *snapshot.Snapshot, logger *zerolog.Logger) *View {
	all := snap.Records()
	rows := make([]*domain.ResearchRecord, len(all))

	for i := range all {
		rows[i] = &all[i]
	}

	return &View{snap: snap, rows: rows, logger: logger}
}

func (v *View) derive(rows []*domain.ResearchRecord) *View {
	return &View{snap: v.snap, rows: rows, logger: v.logger}
}

// Snapshot returns the snapshot the view reads from.
func (v *View) Snapshot() *snapshot.Snapshot { return v.snap }

// Len returns the number of rows in the view.
func (v *View) Len() int { return len(v.rows) }

// Records returns the rows of the view in research_id order. Callers must not
// modify them.
func (v *View) Records() []*domain.ResearchRecord { return v.rows }

// Columns lists the flat table columns.
func (v *View) Columns() []domain.Column { return domain.Columns() }

// HasColumn reports whether name is a column of the flat table.
func (v *View) HasColumn(name string) bool {
	_, err := domain.ParseColumn(name)

	return err == nil
}

// UniqueValues returns the distinct non-null values of col in ascending order.
// An unknown or entirely null column yields an empty result and a warning.
func (v *View) UniqueValues(col domain.Column) []domain.Value {
	if _, err := domain.ParseColumn(string(col)); err != nil {
		v.logger.Warn().Str(logFieldColumn, string(col)).Msg("unique values requested for unknown column")

		return []domain.Value{}
	}

	seen := make(map[string]struct{})
	out := []domain.Value{}

	for _, r := range v.rows {
		val, ok := col.Get(r)
		if !ok {
			continue
		}

		key := val.String()
		if _, dup := seen[key]; dup {
			continue
		}

		seen[key] = struct{}{}
		out = append(out, val)
	}

	if len(out) == 0 {
		v.logger.Warn().Str(logFieldColumn, string(col)).Msg("column exists but contains no values")

		return out
	}

	slices.SortFunc(out, domain.Value.Compare)

	return out
}

// UniqueStrings is UniqueValues rendered as strings.
func (v *View) UniqueStrings(col domain.Column) []string {
	vals := v.UniqueValues(col)
	out := make([]string, len(vals))

	for i, val := range vals {
		out[i] = val.String()
	}

	return out
}

// MinValue returns the smallest non-null value of col. An entirely null column
// logs a warning and returns ErrEmptyResult, which callers treat as "no value"
// rather than a failure.
func (v *View) MinValue(col domain.Column) (domain.Value, error) {
	return v.extreme(col, -1)
}

// MaxValue returns the largest non-null value of col. It reports an entirely
// null column the same way as MinValue.
func (v *View) MaxValue(col domain.Column) (domain.Value, error) {
	return v.extreme(col, 1)
}

func (v *View) extreme(col domain.Column, sign int) (domain.Value, error) {
	if _, err := domain.ParseColumn(string(col)); err != nil {
		return domain.Value{}, err //nolint:wrapcheck // typed ColumnNotFoundError
	}

	var (
		best  domain.Value
		found bool
	)

	for _, r := range v.rows {
		val, ok := col.Get(r)
		if !ok {
			continue
		}

		if !found || val.Compare(best)*sign > 0 {
			best, found = val, true
		}
	}

	if !found {
		v.logger.Warn().Str(logFieldColumn, string(col)).Msg("column exists but contains no values")

		return domain.Value{}, apperrors.ErrEmptyResult
	}

	return best, nil
}

// FilterByValue keeps rows whose col equals value. With invert it keeps every
// other row, including rows where col is null.
func (v *View) FilterByValue(col domain.Column, value string, invert bool) *View {
	return v.FilterByMembership(col, []string{value}, invert)
}

// FilterByMembership keeps rows whose col is one of values. Null never matches,
// so invert keeps null rows.
func (v *View) FilterByMembership(col domain.Column, values []string, invert bool) *View {
	set := make(map[string]struct{}, len(values))
	for _, val := range values {
		set[val] = struct{}{}
	}

	return v.where(func(r *domain.ResearchRecord) bool {
		val, ok := col.Get(r)
		if !ok {
			return invert
		}

		_, in := set[val.String()]

		return in != invert
	})
}

func (v *View) where(keep func(*domain.ResearchRecord) bool) *View {
	rows := make([]*domain.ResearchRecord, 0, len(v.rows))

	for _, r := range v.rows {
		if keep(r) {
			rows = append(rows, r)
		}
	}

	return v.derive(rows)
}

// Engagement returns the per-day engagement of the view's rows within
// [from, to]; nil bounds are open.
func (v *View) Engagement(from, to *time.Time) []domain.EngagementDay {
	ids := make(map[string]struct{}, len(v.rows))
	for _, r := range v.rows {
		ids[r.ResearchID] = struct{}{}
	}

	out := []domain.EngagementDay{}

	for _, d := range v.snap.Engagement() {
		if from != nil && d.Date.Before(*from) {
			continue
		}

		if to != nil && d.Date.After(*to) {
			continue
		}

		if _, ok := ids[d.ResearchID]; ok {
			out = append(out, d)
		}
	}

	return out
}
