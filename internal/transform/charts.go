package transform

import (
	"strconv"
	"time"

	"github.com/lueurxax/research-dashboard/internal/core/domain"
	"github.com/lueurxax/research-dashboard/internal/query"
)

// Chart names as exposed to the presentation layer.
const (
	ChartStatus                 = "status"
	ChartResearchType           = "research-type"
	ChartSDG                    = "sdg"
	ChartPublicationFormat      = "publication-format"
	ChartPublicationFormatTrend = "publication-format-trend"
	ChartScopus                 = "scopus"
	ChartScopusTrend            = "scopus-trend"
	ChartCollegeDistribution    = "college-distribution"
	ChartYearTerm               = "year-term"
)

// Service computes charts and engagement metrics.
type Service struct {
	palette *Palette
	topN    int
	now     func() time.Time
}

// NewService creates a Service. topN is the default size of top-N rankings.
func NewService(palette *Palette, topN int) *Service {
	if palette == nil {
		palette = NewPalette(nil)
	}

	if topN <= 0 {
		topN = defaultTopN
	}

	return &Service{palette: palette, topN: topN, now: time.Now}
}

// ChartFunc computes one chart for a selection.
type ChartFunc func(v *query.View, sel query.Selection) Chart

// Charts returns every grouped chart by name.
func (s *Service) Charts() map[string]ChartFunc {
	return map[string]ChartFunc{
		ChartStatus:                 s.StatusCounts,
		ChartResearchType:           s.ResearchTypeCounts,
		ChartSDG:                    s.SDGCounts,
		ChartPublicationFormat:      s.PublicationFormatCounts,
		ChartPublicationFormatTrend: s.PublicationFormatTrend,
		ChartScopus:                 s.ScopusCounts,
		ChartScopusTrend:            s.ScopusTrend,
		ChartCollegeDistribution:    s.CollegeDistribution,
		ChartYearTerm:               s.YearTerm,
	}
}

// grouping picks the series dimension: programs of the one selected college, or
// colleges otherwise.
type grouping struct {
	key   Key
	label string
}

func groupingFor(sel query.Selection) grouping {
	if sel.SingleCollege() {
		return grouping{key: programKey, label: "Programs"}
	}

	return grouping{key: collegeKey, label: "Colleges"}
}

var (
	collegeKey = one(func(r *domain.ResearchRecord) string { return r.CollegeID })

	programKey = one(func(r *domain.ResearchRecord) string {
		if r.ProgramID == "" {
			return domain.DefaultProgramName
		}

		return r.ProgramID
	})

	statusKey       = one(func(r *domain.ResearchRecord) string { return string(r.Status) })
	researchTypeKey = one(func(r *domain.ResearchRecord) string { return r.ResearchType })
	journalKey      = one(func(r *domain.ResearchRecord) string { return r.Journal })
	scopusKey       = one(func(r *domain.ResearchRecord) string { return r.Scopus })

	yearKey = func(r *domain.ResearchRecord) []string {
		if r.Year == nil {
			return nil
		}

		return []string{strconv.Itoa(*r.Year)}
	}

	termKey = func(r *domain.ResearchRecord) []string {
		if r.Term == 0 {
			return nil
		}

		return []string{strconv.Itoa(r.Term)}
	}

	// sdgKey yields one normalized label per SDG tag; unparseable and default
	// tags are not counted.
	sdgKey = func(r *domain.ResearchRecord) []string {
		var out []string

		for _, tag := range r.SDGTags() {
			if n, err := domain.ParseSDG(tag); err == nil {
				out = append(out, domain.SDGLabel(n))
			}
		}

		return out
	}
)

// chartSpec describes one chart built on Pivot.
type chartSpec struct {
	title   string
	pivot   Pivot
	exclude func(r *domain.ResearchRecord) bool
	// colorByCategory colors categories instead of groups, for charts whose
	// series are the categories.
	colorByCategory bool
}

func (s *Service) build(v *query.View, sel query.Selection, cs chartSpec) Chart {
	rows := v.Filtered(sel).Records()

	if cs.exclude != nil {
		kept := make([]*domain.ResearchRecord, 0, len(rows))

		for _, r := range rows {
			if !cs.exclude(r) {
				kept = append(kept, r)
			}
		}

		rows = kept
	}

	if len(rows) == 0 {
		return noData(cs.title)
	}

	res := cs.pivot.Apply(rows)
	if len(res.Categories) == 0 {
		return noData(cs.title)
	}

	series := res.Groups
	if cs.colorByCategory {
		series = res.Categories
	}

	return Chart{
		Title:      cs.title,
		Categories: res.Categories,
		Groups:     res.Groups,
		Facets:     res.Facets,
		Rows:       res.Rows,
		Colors:     s.palette.Colors(series),
	}
}

func noData(title string) Chart {
	return Chart{
		Title:      title,
		Categories: []string{},
		Groups:     []string{},
		Rows:       []Row{},
		Colors:     map[string]string{},
		NoData:     true,
	}
}

// StatusCounts counts outputs per status in workflow order.
func (s *Service) StatusCounts(v *query.View, sel query.Selection) Chart {
	sel = sel.Resolve(v)
	g := groupingFor(sel)

	return s.build(v, sel, chartSpec{
		title: "Research Output Status Across " + g.label,
		pivot: Pivot{Category: statusKey, Order: FixedOrder(domain.StatusLabels()), Group: g.key},
	})
}

// ResearchTypeCounts counts outputs per research type.
func (s *Service) ResearchTypeCounts(v *query.View, sel query.Selection) Chart {
	sel = sel.Resolve(v)
	g := groupingFor(sel)

	return s.build(v, sel, chartSpec{
		title: "Research Output Type Across " + g.label,
		pivot: Pivot{Category: researchTypeKey, Order: Alphabetical(), Group: g.key},
	})
}

// SDGCounts counts outputs per SDG over the full SDG universe, most frequent
// first. A paper tagged with several SDGs counts once for each.
func (s *Service) SDGCounts(v *query.View, sel query.Selection) Chart {
	sel = sel.Resolve(v)
	g := groupingFor(sel)

	return s.build(v, sel, chartSpec{
		title: "Research Outputs per SDG Across " + g.label,
		pivot: Pivot{Category: sdgKey, Order: ByTotalDesc(domain.SDGUniverse()), Group: g.key},
	})
}

func excludeUnpublishedOrPulledOut(r *domain.ResearchRecord) bool {
	return r.Journal == domain.DefaultJournal || r.Status == domain.StatusPullout
}

func excludeNonApplicableScopus(r *domain.ResearchRecord) bool {
	return r.Scopus == domain.DefaultScopus
}

// PublicationFormatCounts counts published outputs per publication format.
func (s *Service) PublicationFormatCounts(v *query.View, sel query.Selection) Chart {
	sel = sel.Resolve(v)
	g := groupingFor(sel)

	return s.build(v, sel, chartSpec{
		title:   "Publication Formats per " + g.label,
		pivot:   Pivot{Category: journalKey, Order: Alphabetical(), Group: g.key},
		exclude: excludeUnpublishedOrPulledOut,
	})
}

// PublicationFormatTrend counts published outputs per format and approval year.
func (s *Service) PublicationFormatTrend(v *query.View, sel query.Selection) Chart {
	return s.build(v, sel, chartSpec{
		title:           "Publication Formats Over Time",
		pivot:           Pivot{Category: journalKey, Order: Alphabetical(), Group: yearKey},
		exclude:         excludeUnpublishedOrPulledOut,
		colorByCategory: true,
	})
}

// ScopusCounts counts Scopus and non-Scopus outputs.
func (s *Service) ScopusCounts(v *query.View, sel query.Selection) Chart {
	sel = sel.Resolve(v)
	g := groupingFor(sel)

	return s.build(v, sel, chartSpec{
		title:   "Scopus vs. Non-Scopus per " + g.label,
		pivot:   Pivot{Category: scopusKey, Order: Alphabetical(), Group: g.key},
		exclude: excludeNonApplicableScopus,
	})
}

// ScopusTrend counts Scopus and non-Scopus outputs per approval year.
func (s *Service) ScopusTrend(v *query.View, sel query.Selection) Chart {
	return s.build(v, sel, chartSpec{
		title:           "Scopus vs. Non-Scopus Publications Over Time",
		pivot:           Pivot{Category: scopusKey, Order: Alphabetical(), Group: yearKey},
		exclude:         excludeNonApplicableScopus,
		colorByCategory: true,
	})
}

// CollegeDistribution counts outputs per college, or per program when one
// college is selected.
func (s *Service) CollegeDistribution(v *query.View, sel query.Selection) Chart {
	sel = sel.Resolve(v)
	g := groupingFor(sel)

	return s.build(v, sel, chartSpec{
		title:           "Research Outputs per " + g.label,
		pivot:           Pivot{Category: g.key, Order: Alphabetical()},
		colorByCategory: true,
	})
}

// YearTerm counts outputs per approval year and group, faceted by academic term.
func (s *Service) YearTerm(v *query.View, sel query.Selection) Chart {
	sel = sel.Resolve(v)
	g := groupingFor(sel)

	return s.build(v, sel, chartSpec{
		title: "Research Outputs by " + g.label + " and Year for Each Academic Term",
		pivot: Pivot{Category: yearKey, Order: Alphabetical(), Group: g.key, Facet: termKey},
	})
}
