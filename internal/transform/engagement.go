package transform

import (
	"fmt"
	"math"
	"slices"
	"strings"
	"time"

	"github.com/lueurxax/research-dashboard/internal/core/domain"
	apperrors "github.com/lueurxax/research-dashboard/internal/core/errors"
	"github.com/lueurxax/research-dashboard/internal/query"
)

const (
	defaultTopN = 10
	dateLayout  = "2006-01-02"
	hundred     = 100
	hoursPerDay = 24 * time.Hour
)

// Metric is an engagement measure.
type Metric string

// Engagement metrics.
const (
	MetricViews       Metric = "views"
	MetricUniqueViews Metric = "unique_views"
	MetricDownloads   Metric = "downloads"
)

var metricOrder = []Metric{MetricViews, MetricUniqueViews, MetricDownloads}

var metricLabels = map[Metric]string{
	MetricViews:       "Views",
	MetricUniqueViews: "Unique Views",
	MetricDownloads:   "Downloads",
}

// ParseMetric accepts a metric name, defaulting to views when empty.
func ParseMetric(s string) (Metric, error) {
	m := Metric(strings.ToLower(strings.TrimSpace(s)))
	if m == "" {
		return MetricViews, nil
	}

	if _, ok := metricLabels[m]; !ok {
		return "", fmt.Errorf("%w: unknown metric %q", apperrors.ErrInvalidInput, s)
	}

	return m, nil
}

func (m Metric) of(d domain.EngagementDay) int64 {
	switch m {
	case MetricUniqueViews:
		return d.UniqueViews
	case MetricDownloads:
		return d.Downloads
	default:
		return d.Views
	}
}

// Window bounds engagement dates, inclusive. Nil bounds are open.
type Window struct {
	From *time.Time
	To   *time.Time
}

// Window presets offered by the dashboard.
var presets = map[string]time.Duration{
	"7D":  7 * hoursPerDay,
	"14D": 14 * hoursPerDay,
	"1M":  30 * hoursPerDay,
	"6M":  182 * hoursPerDay,
}

// PresetWindow returns the window of the named preset ending today.
func (s *Service) PresetWindow(name string) (Window, error) {
	d, ok := presets[strings.ToUpper(strings.TrimSpace(name))]
	if !ok {
		return Window{}, fmt.Errorf("%w: unknown window %q", apperrors.ErrInvalidInput, name)
	}

	to := truncateDay(s.now())
	from := to.Add(-d + hoursPerDay)

	return Window{From: &from, To: &to}, nil
}

func truncateDay(t time.Time) time.Time {
	y, m, d := t.UTC().Date()

	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// Summary holds the KPI cards of the dashboard.
type Summary struct {
	TotalResearchOutputs int            `json:"total_research_outputs"`
	ByStatus             map[string]int `json:"by_status"`
	TotalViews           int64          `json:"total_views"`
	TotalUniqueViews     int64          `json:"total_unique_views"`
	TotalDownloads       int64          `json:"total_downloads"`
	AverageViews         float64        `json:"average_views_per_research"`
	ConversionRate       float64        `json:"conversion_rate"`
	From                 string         `json:"from,omitempty"`
	To                   string         `json:"to,omitempty"`
}

// Summary computes KPI scalars for a selection and engagement window.
func (s *Service) Summary(v *query.View, sel query.Selection, win Window) Summary {
	filtered := v.Filtered(sel)

	out := Summary{
		TotalResearchOutputs: filtered.Len(),
		ByStatus:             make(map[string]int, len(domain.StatusOrder)),
	}

	if win.From != nil {
		out.From = win.From.Format(dateLayout)
	}

	if win.To != nil {
		out.To = win.To.Format(dateLayout)
	}

	for _, st := range domain.StatusOrder {
		out.ByStatus[string(st)] = 0
	}

	for _, r := range filtered.Records() {
		out.ByStatus[string(r.Status)]++
	}

	for _, d := range filtered.Engagement(win.From, win.To) {
		out.TotalViews += d.Views
		out.TotalUniqueViews += d.UniqueViews
		out.TotalDownloads += d.Downloads
	}

	if out.TotalResearchOutputs > 0 {
		out.AverageViews = round2(float64(out.TotalViews) / float64(out.TotalResearchOutputs))
	}

	out.ConversionRate = percent(out.TotalDownloads, out.TotalViews)

	return out
}

// EngagementOverTime charts daily views, unique views and downloads. Categories
// are dates and groups are metrics.
func (s *Service) EngagementOverTime(v *query.View, sel query.Selection, win Window) Chart {
	const title = "Views and Downloads Over Time"

	days := v.Filtered(sel).Engagement(win.From, win.To)
	if len(days) == 0 {
		return noData(title)
	}

	totals := make(map[string]domain.EngagementDay)
	dates := []string{}

	for _, d := range days {
		key := d.Date.Format(dateLayout)

		sum, ok := totals[key]
		if !ok {
			dates = append(dates, key)
		}

		sum.Views += d.Views
		sum.UniqueViews += d.UniqueViews
		sum.Downloads += d.Downloads
		totals[key] = sum
	}

	slices.Sort(dates)

	return s.metricChart(title, dates, totals)
}

// EngagementByDayOfWeek sums engagement per weekday, Monday first.
func (s *Service) EngagementByDayOfWeek(v *query.View, sel query.Selection, win Window) Chart {
	const title = "Engagement by Day of Week"

	days := v.Filtered(sel).Engagement(win.From, win.To)
	if len(days) == 0 {
		return noData(title)
	}

	weekdays := make([]string, 0, 7)
	for i := 1; i <= 7; i++ {
		weekdays = append(weekdays, time.Weekday(i%7).String())
	}

	totals := make(map[string]domain.EngagementDay, 7)

	for _, d := range days {
		key := d.Date.Weekday().String()
		sum := totals[key]
		sum.Views += d.Views
		sum.UniqueViews += d.UniqueViews
		sum.Downloads += d.Downloads
		totals[key] = sum
	}

	return s.metricChart(title, weekdays, totals)
}

func (s *Service) metricChart(title string, categories []string, totals map[string]domain.EngagementDay) Chart {
	groups := make([]string, len(metricOrder))
	for i, m := range metricOrder {
		groups[i] = metricLabels[m]
	}

	rows := make([]Row, 0, len(categories)*len(metricOrder))

	for _, c := range categories {
		for _, m := range metricOrder {
			rows = append(rows, Row{Category: c, Group: metricLabels[m], Count: m.of(totals[c])})
		}
	}

	return Chart{
		Title:      title,
		Categories: categories,
		Groups:     groups,
		Rows:       rows,
		Colors:     s.palette.Colors(groups),
	}
}

// FunnelStage is one step of the engagement funnel.
type FunnelStage struct {
	Stage string `json:"stage"`
	Count int64  `json:"count"`
	// DropOff is the percentage lost since the previous stage.
	DropOff float64 `json:"drop_off_pct"`
	// Conversion is the percentage retained since the first stage.
	Conversion float64 `json:"conversion_pct"`
}

// Funnel is the staged views → unique views → downloads count.
type Funnel struct {
	Stages []FunnelStage `json:"stages"`
	NoData bool          `json:"no_data"`
}

// EngagementFunnel computes the funnel for a selection and window.
func (s *Service) EngagementFunnel(v *query.View, sel query.Selection, win Window) Funnel {
	var sum domain.EngagementDay
	for _, d := range v.Filtered(sel).Engagement(win.From, win.To) {
		sum.Views += d.Views
		sum.UniqueViews += d.UniqueViews
		sum.Downloads += d.Downloads
	}

	out := Funnel{Stages: make([]FunnelStage, 0, len(metricOrder))}

	var first, prev int64

	for i, m := range metricOrder {
		count := m.of(sum)
		stage := FunnelStage{Stage: metricLabels[m], Count: count}

		if i == 0 {
			first = count
			stage.Conversion = percent(count, count)
		} else {
			stage.DropOff = percent(prev-count, prev)
			stage.Conversion = percent(count, first)
		}

		prev = count
		out.Stages = append(out.Stages, stage)
	}

	out.NoData = first == 0

	return out
}

// Trend compares a ranking with the preceding window.
type Trend string

// Trend values.
const (
	TrendUp   Trend = "up"
	TrendDown Trend = "down"
	TrendSame Trend = "same"
	TrendNew  Trend = "new"
)

// TopEntry is one row of a top-N ranking.
type TopEntry struct {
	Rank          int    `json:"rank"`
	ResearchID    string `json:"research_id"`
	Title         string `json:"title"`
	CollegeID     string `json:"college_id"`
	Value         int64  `json:"value"`
	PreviousRank  int    `json:"previous_rank,omitempty"`
	PreviousValue int64  `json:"previous_value"`
	Trend         Trend  `json:"trend,omitempty"`
}

// TopResearch ranks the selection's research outputs by metric within win,
// ties broken by research id. When win is bounded on both ends, each entry is
// compared with the equally long window right before it. n <= 0 uses the
// configured default.
func (s *Service) TopResearch(v *query.View, sel query.Selection, win Window, metric Metric, n int) []TopEntry {
	if n <= 0 {
		n = s.topN
	}

	filtered := v.Filtered(sel)
	current := rank(filtered.Engagement(win.From, win.To), metric)

	var previous map[string]ranked

	compare := win.From != nil && win.To != nil
	if compare {
		length := win.To.Sub(*win.From) + hoursPerDay
		prevTo := win.From.Add(-hoursPerDay)
		prevFrom := win.From.Add(-length)

		previous = make(map[string]ranked)
		for _, r := range rank(filtered.Engagement(&prevFrom, &prevTo), metric) {
			previous[r.id] = r
		}
	}

	snap := v.Snapshot()
	out := make([]TopEntry, 0, min(n, len(current)))

	for _, cur := range current {
		if len(out) == n {
			break
		}

		entry := TopEntry{Rank: cur.rank, ResearchID: cur.id, Value: cur.value}

		if rec, ok := snap.Record(cur.id); ok {
			entry.Title = rec.Title
			entry.CollegeID = rec.CollegeID
		}

		if compare {
			entry.Trend = TrendNew

			if prev, ok := previous[cur.id]; ok {
				entry.PreviousRank = prev.rank
				entry.PreviousValue = prev.value

				switch {
				case cur.rank < prev.rank:
					entry.Trend = TrendUp
				case cur.rank > prev.rank:
					entry.Trend = TrendDown
				default:
					entry.Trend = TrendSame
				}
			}
		}

		out = append(out, entry)
	}

	return out
}

type ranked struct {
	id    string
	value int64
	rank  int
}

// rank sums metric per research output and orders by value descending, then id.
// Outputs with a zero total are not ranked.
func rank(days []domain.EngagementDay, metric Metric) []ranked {
	totals := make(map[string]int64)
	for _, d := range days {
		totals[d.ResearchID] += metric.of(d)
	}

	out := make([]ranked, 0, len(totals))

	for id, v := range totals {
		if v > 0 {
			out = append(out, ranked{id: id, value: v})
		}
	}

	slices.SortFunc(out, func(a, b ranked) int {
		if a.value != b.value {
			if a.value > b.value {
				return -1
			}

			return 1
		}

		return strings.Compare(a.id, b.id)
	})

	for i := range out {
		out[i].rank = i + 1
	}

	return out
}

func percent(part, whole int64) float64 {
	if whole <= 0 {
		return 0
	}

	return round2(float64(part) / float64(whole) * hundred)
}

func round2(f float64) float64 {
	return math.Round(f*hundred) / hundred
}
