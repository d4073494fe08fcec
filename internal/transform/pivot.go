// Package transform turns filtered views into chart-ready aggregates.
//
// Every grouped chart goes through one primitive, Pivot, parameterized by how
// categories are extracted and ordered and by the grouping key. Missing
// category/group combinations are filled with zero.
package transform

import (
	"slices"
	"sort"

	"github.com/lueurxax/research-dashboard/internal/core/domain"
)

// Row is one cell of a pivoted chart.
type Row struct {
	Category string `json:"category"`
	Group    string `json:"group"`
	Facet    string `json:"facet,omitempty"`
	Count    int64  `json:"count"`
}

// Chart is the data contract of every grouped chart.
type Chart struct {
	Title      string            `json:"title"`
	Categories []string          `json:"categories"`
	Groups     []string          `json:"groups"`
	Facets     []string          `json:"facets,omitempty"`
	Rows       []Row             `json:"rows"`
	Colors     map[string]string `json:"colors"`
	NoData     bool              `json:"no_data"`
}

// Key extracts zero or more values from a record. A record yielding no values is
// not counted.
type Key func(r *domain.ResearchRecord) []string

// Order arranges the categories of a pivot given their totals.
type Order func(totals map[string]int64) []string

// FixedOrder always yields universe, whatever the totals.
func FixedOrder(universe []string) Order {
	return func(map[string]int64) []string {
		return slices.Clone(universe)
	}
}

// ByTotalDesc yields universe sorted by descending total. Equal totals keep their
// universe order.
func ByTotalDesc(universe []string) Order {
	return func(totals map[string]int64) []string {
		out := slices.Clone(universe)

		sort.SliceStable(out, func(i, j int) bool {
			return totals[out[i]] > totals[out[j]]
		})

		return out
	}
}

// Alphabetical yields the observed categories in ascending order.
func Alphabetical() Order {
	return func(totals map[string]int64) []string {
		out := make([]string, 0, len(totals))
		for k := range totals {
			out = append(out, k)
		}

		slices.Sort(out)

		return out
	}
}

// Pivot counts records by category, group and optional facet.
type Pivot struct {
	Category Key
	Order    Order
	// Group is nil for single-series charts.
	Group Key
	Facet Key
}

type cell struct {
	category, group, facet string
}

// Result is the output of Pivot.Apply.
type Result struct {
	Categories []string
	Groups     []string
	Facets     []string
	Rows       []Row
	Total      int64
}

// Apply pivots rows. Groups and facets come out in ascending order.
func (p Pivot) Apply(rows []*domain.ResearchRecord) Result {
	counts := make(map[cell]int64)
	totals := make(map[string]int64)
	groups := make(map[string]struct{})
	facets := make(map[string]struct{})

	var total int64

	for _, r := range rows {
		group, ok := single(p.Group, r)
		if !ok {
			continue
		}

		facet, ok := single(p.Facet, r)
		if !ok {
			continue
		}

		// A row without categories still opens its group, so the axis keeps it at zero.
		groups[group] = struct{}{}
		facets[facet] = struct{}{}

		for _, category := range p.Category(r) {
			counts[cell{category, group, facet}]++
			totals[category]++
			total++
		}
	}

	res := Result{
		Categories: p.Order(totals),
		Groups:     sortedKeys(groups),
		Facets:     sortedKeys(facets),
		Total:      total,
	}

	res.Rows = make([]Row, 0, len(res.Categories)*len(res.Groups)*len(res.Facets))

	for _, c := range res.Categories {
		for _, g := range res.Groups {
			for _, f := range res.Facets {
				res.Rows = append(res.Rows, Row{Category: c, Group: g, Facet: f, Count: counts[cell{c, g, f}]})
			}
		}
	}

	if p.Group == nil {
		res.Groups = []string{}
	}

	if p.Facet == nil {
		res.Facets = nil
	}

	return res
}

// single returns the first value of key for r, or "" when key is nil.
func single(key Key, r *domain.ResearchRecord) (string, bool) {
	if key == nil {
		return "", true
	}

	vals := key(r)
	if len(vals) == 0 {
		return "", false
	}

	return vals[0], true
}

func sortedKeys(m map[string]struct{}) []string {
	out := make([]string, 0, len(m))
	for k := range m {
		out = append(out, k)
	}

	slices.Sort(out)

	return out
}

// one wraps a single-valued accessor into a Key; empty values are skipped.
func one(get func(r *domain.ResearchRecord) string) Key {
	return func(r *domain.ResearchRecord) []string {
		if v := get(r); v != "" {
			return []string{v}
		}

		return nil
	}
}
