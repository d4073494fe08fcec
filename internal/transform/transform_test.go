package transform

import (
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/require"

	"github.com/lueurxax/research-dashboard/internal/core/domain"
	"github.com/lueurxax/research-dashboard/internal/query"
	"github.com/lueurxax/research-dashboard/internal/snapshot"
)

const errFmtCategories = "categories mismatch (-want +got):\n%s"

type recOpt func(*domain.ResearchRecord)

func withSDG(s string) recOpt      { return func(r *domain.ResearchRecord) { r.SDG = s } }
func withProgram(p string) recOpt  { return func(r *domain.ResearchRecord) { r.ProgramID = p } }
func withJournal(j string) recOpt  { return func(r *domain.ResearchRecord) { r.Journal = j } }
func withScopus(s string) recOpt   { return func(r *domain.ResearchRecord) { r.Scopus = s } }
func withTitle(tt string) recOpt   { return func(r *domain.ResearchRecord) { r.Title = tt } }
func withType(tp string) recOpt    { return func(r *domain.ResearchRecord) { r.ResearchType = tp } }
func withStatus(s domain.Status) recOpt {
	return func(r *domain.ResearchRecord) { r.Status = s }
}

func rec(id, college string, year int, opts ...recOpt) domain.ResearchRecord {
	y := year
	r := domain.ResearchRecord{
		ResearchID: id,
		CollegeID:  college,
		Year:       &y,
		Term:       1,
		Status:     domain.StatusReady,
		SDG:        domain.DefaultSDG,
		Journal:    domain.DefaultJournal,
		Scopus:     domain.DefaultScopus,
	}

	for _, o := range opts {
		o(&r)
	}

	return r
}

func viewOf(records []domain.ResearchRecord, days ...domain.EngagementDay) *query.View {
	return query.Of(snapshot.New(records, days, time.Now()), nil)
}

func count(c Chart, category, group string) int64 {
	for _, r := range c.Rows {
		if r.Category == category && r.Group == group {
			return r.Count
		}
	}

	return -1
}

func TestSDGCounts_OrderByTotalThenNumber(t *testing.T) {
	var records []domain.ResearchRecord

	add := func(n int, sdg string) {
		for i := 0; i < n; i++ {
			records = append(records, rec(sdg+"-"+string(rune('a'+i)), "CCS", 2023, withSDG(sdg)))
		}
	}

	add(5, "SDG 3")
	add(5, "SDG 1")
	add(9, "SDG 7")

	records = append(records, rec("other", "CBA", 2023))

	c := NewService(nil, 0).SDGCounts(viewOf(records), query.Selection{})

	want := []string{"SDG 7", "SDG 1", "SDG 3", "SDG 2", "SDG 4", "SDG 5", "SDG 6", "SDG 8", "SDG 9",
		"SDG 10", "SDG 11", "SDG 12", "SDG 13", "SDG 14", "SDG 15", "SDG 16", "SDG 17"}

	if diff := cmp.Diff(want, c.Categories); diff != "" {
		t.Fatalf(errFmtCategories, diff)
	}

	require.Equal(t, []string{"CBA", "CCS"}, c.Groups)
	require.EqualValues(t, 9, count(c, "SDG 7", "CCS"))
	require.EqualValues(t, 0, count(c, "SDG 17", "CCS"))
	require.EqualValues(t, 0, count(c, "SDG 7", "CBA"))
}

func TestSDGCounts_UnspecifiedOnlyKeepsFullAxis(t *testing.T) {
	c := NewService(nil, 0).SDGCounts(viewOf([]domain.ResearchRecord{
		rec("R1", "CCS", 2023),
		rec("R2", "CBA", 2023, withSDG("SDG x")),
	}), query.Selection{})

	require.False(t, c.NoData)
	require.Equal(t, domain.SDGUniverse(), c.Categories)
	require.Equal(t, []string{"CBA", "CCS"}, c.Groups)
	require.Len(t, c.Rows, len(domain.SDGUniverse())*2)

	for _, r := range c.Rows {
		require.Zero(t, r.Count, "%s/%s", r.Category, r.Group)
	}
}

func TestSDGCounts_MultiTaggedPaperCountsOncePerSDG(t *testing.T) {
	c := NewService(nil, 0).SDGCounts(viewOf([]domain.ResearchRecord{
		rec("R1", "CCS", 2023, withSDG("SDG 4; SDG 9")),
		rec("R2", "CBA", 2023, withSDG("SDG 4")),
	}), query.Selection{})

	require.EqualValues(t, 1, count(c, "SDG 4", "CCS"))
	require.EqualValues(t, 1, count(c, "SDG 4", "CBA"))
	require.EqualValues(t, 1, count(c, "SDG 9", "CCS"))
	require.Equal(t, "SDG 4", c.Categories[0])
}

func TestStatusCounts_FixedOrderAndZeroFill(t *testing.T) {
	c := NewService(nil, 0).StatusCounts(viewOf([]domain.ResearchRecord{
		rec("R1", "CCS", 2023, withStatus(domain.StatusPullout)),
		rec("R2", "CBA", 2023, withStatus(domain.StatusReady)),
		rec("R3", "CBA", 2022, withStatus(domain.StatusReady)),
	}), query.Selection{})

	if diff := cmp.Diff(domain.StatusLabels(), c.Categories); diff != "" {
		t.Fatalf(errFmtCategories, diff)
	}

	require.Equal(t, []string{"CBA", "CCS"}, c.Groups)
	require.Len(t, c.Rows, len(domain.StatusOrder)*2)
	require.EqualValues(t, 2, count(c, "READY", "CBA"))
	require.EqualValues(t, 0, count(c, "READY", "CCS"))
	require.EqualValues(t, 0, count(c, "ACCEPTED", "CBA"))
	require.Contains(t, c.Title, "Colleges")
}

func TestGrouping_SingleCollegeDrillsDownToPrograms(t *testing.T) {
	records := []domain.ResearchRecord{
		rec("R1", "CCS", 2023, withProgram("BSIT"), withType("THESIS")),
		rec("R2", "CCS", 2023, withProgram("BSCS"), withType("THESIS")),
		rec("R3", "CCS", 2023, withType("DISSERTATION")),
		rec("R4", "CBA", 2023, withProgram("BSA"), withType("THESIS")),
	}

	c := NewService(nil, 0).ResearchTypeCounts(viewOf(records), query.Selection{Colleges: []string{"CCS"}})

	require.Equal(t, []string{"BSCS", "BSIT", domain.DefaultProgramName}, c.Groups)
	require.Equal(t, []string{"DISSERTATION", "THESIS"}, c.Categories)
	require.EqualValues(t, 1, count(c, "THESIS", "BSIT"))
	require.Contains(t, c.Title, "Programs")

	multi := NewService(nil, 0).ResearchTypeCounts(viewOf(records), query.Selection{Colleges: []string{"CCS", "CBA"}})
	require.Equal(t, []string{"CBA", "CCS"}, multi.Groups)
}

func TestGrouping_OnlyOneCollegeInDataDrillsDownToPrograms(t *testing.T) {
	records := []domain.ResearchRecord{
		rec("R1", "CCS", 2023, withProgram("BSIT"), withSDG("SDG 4")),
		rec("R2", "CCS", 2023, withSDG("SDG 4")),
	}

	c := NewService(nil, 0).SDGCounts(viewOf(records), query.Selection{})

	require.Equal(t, []string{"BSIT", domain.DefaultProgramName}, c.Groups)
	require.Contains(t, c.Title, "Programs")
	require.EqualValues(t, 1, count(c, "SDG 4", "BSIT"))
	require.EqualValues(t, 1, count(c, "SDG 4", domain.DefaultProgramName))
	require.EqualValues(t, -1, count(c, "SDG 4", "CCS"))
}

func TestPublicationFormat_Exclusions(t *testing.T) {
	records := []domain.ResearchRecord{
		rec("R1", "CCS", 2022, withJournal("journal"), withStatus(domain.StatusPublished)),
		rec("R2", "CCS", 2023, withJournal("proceeding"), withStatus(domain.StatusPublished)),
		rec("R3", "CCS", 2023, withJournal("journal"), withStatus(domain.StatusPullout)),
		rec("R4", "CCS", 2023),
		rec("R5", "CBA", 2023, withJournal("journal")),
	}

	svc := NewService(nil, 0)

	c := svc.PublicationFormatCounts(viewOf(records), query.Selection{})
	require.Equal(t, []string{"journal", "proceeding"}, c.Categories)
	require.Equal(t, []string{"CBA", "CCS"}, c.Groups)
	require.EqualValues(t, 1, count(c, "journal", "CCS"))
	require.EqualValues(t, 1, count(c, "journal", "CBA"))
	require.EqualValues(t, 1, count(c, "proceeding", "CCS"))

	unpublished := svc.PublicationFormatCounts(viewOf(records[3:4]), query.Selection{})
	require.True(t, unpublished.NoData)

	trend := svc.PublicationFormatTrend(viewOf(records), query.Selection{})
	require.Equal(t, []string{"2022", "2023"}, trend.Groups)
	require.EqualValues(t, 1, count(trend, "proceeding", "2023"))
	require.Contains(t, trend.Colors, "journal")
}

func TestScopus_ExcludesNotApplicable(t *testing.T) {
	records := []domain.ResearchRecord{
		rec("R1", "CCS", 2022, withScopus("SCOPUS")),
		rec("R2", "CBA", 2023, withScopus("NON-SCOPUS")),
		rec("R3", "CBA", 2023),
	}

	c := NewService(nil, 0).ScopusCounts(viewOf(records), query.Selection{})
	require.Equal(t, []string{"NON-SCOPUS", "SCOPUS"}, c.Categories)

	var total int64
	for _, r := range c.Rows {
		total += r.Count
	}

	require.EqualValues(t, 2, total)

	trend := NewService(nil, 0).ScopusTrend(viewOf(records), query.Selection{})
	require.EqualValues(t, 1, count(trend, "SCOPUS", "2022"))
}

func TestCollegeDistributionAndYearTerm(t *testing.T) {
	records := []domain.ResearchRecord{
		rec("R1", "CCS", 2022),
		rec("R2", "CCS", 2023),
		rec("R3", "CBA", 2023),
	}
	records[2].Term = 3

	svc := NewService(NewPalette(map[string]string{"CCS": "#1f77b4"}), 0)

	dist := svc.CollegeDistribution(viewOf(records), query.Selection{})
	require.Equal(t, []string{"CBA", "CCS"}, dist.Categories)
	require.Empty(t, dist.Groups)
	require.EqualValues(t, 2, count(dist, "CCS", ""))
	require.Equal(t, "#1f77b4", dist.Colors["CCS"])

	yt := svc.YearTerm(viewOf(records), query.Selection{})
	require.Equal(t, []string{"1", "3"}, yt.Facets)

	for _, r := range yt.Rows {
		if r.Category == "2023" && r.Group == "CBA" && r.Facet == "3" {
			require.EqualValues(t, 1, r.Count)
		}
	}
}

func TestCharts_NoData(t *testing.T) {
	svc := NewService(nil, 0)
	v := viewOf([]domain.ResearchRecord{rec("R1", "CCS", 2023)})

	for name, chart := range svc.Charts() {
		c := chart(v, query.Selection{Colleges: []string{"NOPE"}})
		if !c.NoData || len(c.Rows) != 0 {
			t.Errorf("%s: expected no data, got %+v", name, c)
		}
	}
}

func TestPalette_StableColors(t *testing.T) {
	p := NewPalette(map[string]string{"CCS": "#000000"})

	require.Equal(t, "#000000", p.Color("CCS"))
	require.Equal(t, p.Color("BSIT"), NewPalette(nil).Color("BSIT"))
	require.Contains(t, qualitative, p.Color("anything"))
}

func TestPivot_OrderPolicies(t *testing.T) {
	totals := map[string]int64{"b": 2, "a": 2, "c": 5}

	require.Equal(t, []string{"a", "b", "c"}, Alphabetical()(totals))
	require.Equal(t, []string{"c", "b", "a", "d"}, ByTotalDesc([]string{"b", "a", "c", "d"})(totals))
	require.Equal(t, []string{"x", "y"}, FixedOrder([]string{"x", "y"})(totals))
}

func day(d int) time.Time {
	return time.Date(2024, time.January, d, 0, 0, 0, 0, time.UTC)
}

func engagementFixture() *query.View {
	return viewOf(
		[]domain.ResearchRecord{
			rec("R1", "CCS", 2023, withTitle("One")),
			rec("R2", "CCS", 2023, withTitle("Two")),
			rec("R3", "CBA", 2023, withTitle("Three")),
		},
		// 2024-01-01 is a Monday.
		domain.EngagementDay{Date: day(1), ResearchID: "R1", Views: 10, UniqueViews: 5, Downloads: 1},
		domain.EngagementDay{Date: day(1), ResearchID: "R2", Views: 1, UniqueViews: 1},
		domain.EngagementDay{Date: day(2), ResearchID: "R3", Views: 3, UniqueViews: 3, Downloads: 3},
		domain.EngagementDay{Date: day(8), ResearchID: "R2", Views: 20, UniqueViews: 10, Downloads: 2},
		domain.EngagementDay{Date: day(9), ResearchID: "R1", Views: 5, UniqueViews: 5},
		domain.EngagementDay{Date: day(9), ResearchID: "R3", Views: 5, UniqueViews: 2},
	)
}

func TestSummary(t *testing.T) {
	s := NewService(nil, 0).Summary(engagementFixture(), query.Selection{}, Window{})

	require.Equal(t, 3, s.TotalResearchOutputs)
	require.Equal(t, 3, s.ByStatus["READY"])
	require.Equal(t, 0, s.ByStatus["PULLOUT"])
	require.EqualValues(t, 44, s.TotalViews)
	require.EqualValues(t, 6, s.TotalDownloads)
	require.InDelta(t, 14.67, s.AverageViews, 0.001)
	require.InDelta(t, 13.64, s.ConversionRate, 0.001)
}

func TestEngagementOverTimeAndDayOfWeek(t *testing.T) {
	svc := NewService(nil, 0)
	v := engagementFixture()
	to := day(2)

	over := svc.EngagementOverTime(v, query.Selection{}, Window{To: &to})
	require.Equal(t, []string{"2024-01-01", "2024-01-02"}, over.Categories)
	require.EqualValues(t, 11, count(over, "2024-01-01", "Views"))

	dow := svc.EngagementByDayOfWeek(v, query.Selection{}, Window{})
	require.Equal(t, "Monday", dow.Categories[0])
	require.Equal(t, "Sunday", dow.Categories[6])
	require.EqualValues(t, 31, count(dow, "Monday", "Views"))
	require.EqualValues(t, 13, count(dow, "Tuesday", "Views"))
}

func TestEngagementFunnel(t *testing.T) {
	f := NewService(nil, 0).EngagementFunnel(engagementFixture(), query.Selection{Colleges: []string{"CCS"}}, Window{})

	require.False(t, f.NoData)
	require.Len(t, f.Stages, 3)
	require.EqualValues(t, 36, f.Stages[0].Count)
	require.EqualValues(t, 21, f.Stages[1].Count)
	require.InDelta(t, 41.67, f.Stages[1].DropOff, 0.001)
	require.InDelta(t, 8.33, f.Stages[2].Conversion, 0.001)
}

func TestTopResearch_TrendAgainstPreviousWindow(t *testing.T) {
	svc := NewService(nil, 2)
	from, to := day(8), day(14)

	top := svc.TopResearch(engagementFixture(), query.Selection{}, Window{From: &from, To: &to}, MetricViews, 0)

	want := []TopEntry{
		{Rank: 1, ResearchID: "R2", Title: "Two", CollegeID: "CCS", Value: 20, PreviousRank: 3, PreviousValue: 1, Trend: TrendUp},
		// R1 and R3 tie on 5 views; R1 wins on id.
		{Rank: 2, ResearchID: "R1", Title: "One", CollegeID: "CCS", Value: 5, PreviousRank: 1, PreviousValue: 10, Trend: TrendDown},
	}

	if diff := cmp.Diff(want, top); diff != "" {
		t.Fatalf("top mismatch (-want +got):\n%s", diff)
	}
}

func TestTopResearch_NoWindowHasNoTrend(t *testing.T) {
	top := NewService(nil, 0).TopResearch(engagementFixture(), query.Selection{}, Window{}, MetricDownloads, 5)

	require.Len(t, top, 3)
	require.Equal(t, "R3", top[0].ResearchID)
	require.Equal(t, Trend(""), top[0].Trend)
}

func TestParseMetricAndPresetWindow(t *testing.T) {
	m, err := ParseMetric("Unique_Views")
	require.NoError(t, err)
	require.Equal(t, MetricUniqueViews, m)

	_, err = ParseMetric("likes")
	require.Error(t, err)

	svc := NewService(nil, 0)
	svc.now = func() time.Time { return time.Date(2024, time.January, 14, 15, 0, 0, 0, time.UTC) }

	win, err := svc.PresetWindow("7d")
	require.NoError(t, err)
	require.Equal(t, day(8), *win.From)
	require.Equal(t, day(14), *win.To)

	_, err = svc.PresetWindow("2Y")
	require.Error(t, err)
}
