package query

import (
	"fmt"

	"github.com/lueurxax/research-dashboard/internal/core/domain"
	apperrors "github.com/lueurxax/research-dashboard/internal/core/errors"
)

// YearRange is an inclusive range of approval years.
type YearRange struct {
	From int `json:"from"`
	To   int `json:"to"`
}

// Contains reports whether year lies in the range.
func (y YearRange) Contains(year int) bool {
	return year >= y.From && year <= y.To
}

// Selection is one dashboard filter request. Empty dimensions mean "everything".
type Selection struct {
	Colleges []string
	Statuses []domain.Status
	Years    *YearRange
}

// Validate rejects inverted year ranges.
func (s Selection) Validate() error {
	if s.Years != nil && s.Years.From > s.Years.To {
		return fmt.Errorf("%w: year range %d-%d is inverted", apperrors.ErrInvalidInput, s.Years.From, s.Years.To)
	}

	return nil
}

// Resolve replaces empty dimensions with every value known to v. Years stays nil
// when no row has an approval year.
func (s Selection) Resolve(v *View) Selection {
	out := Selection{Colleges: s.Colleges, Statuses: s.Statuses, Years: s.Years}

	if len(out.Colleges) == 0 {
		out.Colleges = v.UniqueStrings(domain.ColCollegeID)
	}

	if len(out.Statuses) == 0 {
		out.Statuses = domain.StatusOrder
	}

	if out.Years == nil {
		lo, errLo := v.MinValue(domain.ColYear)
		hi, errHi := v.MaxValue(domain.ColYear)

		if errLo == nil && errHi == nil {
			out.Years = &YearRange{From: int(lo.Int), To: int(hi.Int)}
		}
	}

	return out
}

// SingleCollege reports whether exactly one college is selected, which switches
// grouping from colleges to that college's programs.
func (s Selection) SingleCollege() bool {
	return len(s.Colleges) == 1
}

// Filtered is the conjunction of college membership, status membership and the
// inclusive year range. Rows without an approval year never match a year range.
func (v *View) Filtered(sel Selection) *View {
	resolved := sel.Resolve(v)

	colleges := make(map[string]struct{}, len(resolved.Colleges))
	for _, c := range resolved.Colleges {
		colleges[c] = struct{}{}
	}

	statuses := make(map[domain.Status]struct{}, len(resolved.Statuses))
	for _, st := range resolved.Statuses {
		statuses[st] = struct{}{}
	}

	return v.where(func(r *domain.ResearchRecord) bool {
		if _, ok := colleges[r.CollegeID]; !ok {
			return false
		}

		if _, ok := statuses[r.Status]; !ok {
			return false
		}

		if resolved.Years == nil || r.Year == nil {
			return false
		}

		return resolved.Years.Contains(*r.Year)
	})
}
