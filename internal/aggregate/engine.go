// Package aggregate builds the flat analytic table from the normalized Source Store.
//
// A rebuild loads every source table in parallel, collapses the one-to-many
// relations (authors, keywords, SDGs) into delimited strings, resolves the latest
// status of each publication and applies the schema defaults exactly once. The
// result is a new immutable snapshot; the previous one is never touched.
package aggregate

import (
	"context"
	"sort"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"github.com/lueurxax/research-dashboard/internal/core/domain"
	apperrors "github.com/lueurxax/research-dashboard/internal/core/errors"
	"github.com/lueurxax/research-dashboard/internal/core/ports"
	"github.com/lueurxax/research-dashboard/internal/snapshot"
)

// Log field names.
const (
	logFieldResearch    = "research_id"
	logFieldPublication = "publication_id"
	logFieldTag         = "tag"
	logFieldStatus      = "status"
	logFieldAuthor      = "author_id"
)

// Engine rebuilds snapshots from a Source Store.
type Engine struct {
	source ports.Source
	logger *zerolog.Logger
	now    func() time.Time
}

// New creates an Engine. A nil logger disables logging.
func New(source ports.Source, logger *zerolog.Logger) *Engine {
	if logger == nil {
		nop := zerolog.Nop()
		logger = &nop
	}

	return &Engine{source: source, logger: logger, now: time.Now}
}

// tables holds one rebuild's worth of source rows.
type tables struct {
	outputs      []ports.OutputRow
	publications []ports.PublicationRow
	statuses     []ports.StatusRow
	authors      []ports.AuthorRow
	keywords     []ports.TagRow
	sdgs         []ports.TagRow
	engagement   []ports.EngagementRow
}

// Rebuild constructs a complete snapshot off to the side. Any source failure
// aborts the rebuild with a *errors.DataSourceError and no partial result.
func (e *Engine) Rebuild(ctx context.Context) (*snapshot.Snapshot, error) {
	t, err := e.load(ctx)
	if err != nil {
		return nil, err
	}

	records, engagement := e.denormalize(t)

	return snapshot.New(records, engagement, e.now()), nil
}

func (e *Engine) load(ctx context.Context) (*tables, error) {
	var t tables

	g, gctx := errgroup.WithContext(ctx)

	loadInto(gctx, g, "research_output", e.source.ResearchOutputs, &t.outputs)
	loadInto(gctx, g, "publication", e.source.Publications, &t.publications)
	loadInto(gctx, g, "status", e.source.Statuses, &t.statuses)
	loadInto(gctx, g, "research_output_author", e.source.Authors, &t.authors)
	loadInto(gctx, g, "keywords", e.source.Keywords, &t.keywords)
	loadInto(gctx, g, "sdg", e.source.SDGs, &t.sdgs)
	loadInto(gctx, g, "user_engagement", e.source.Engagement, &t.engagement)

	if err := g.Wait(); err != nil {
		return nil, err //nolint:wrapcheck // loaders return *DataSourceError
	}

	return &t, nil
}

func loadInto[T any](ctx context.Context, g *errgroup.Group, table string, fn func(context.Context) ([]T, error), dst *[]T) {
	g.Go(func() error {
		start := time.Now()
		rows, err := fn(ctx)

		loadDuration.WithLabelValues(table).Observe(time.Since(start).Seconds())

		if err != nil {
			return apperrors.NewDataSourceError("load "+table, err)
		}

		*dst = rows

		return nil
	})
}

func (e *Engine) denormalize(t *tables) ([]domain.ResearchRecord, []domain.EngagementDay) {
	latest := e.latestStatuses(t.statuses)
	pubs := primaryPublications(t.publications)

	authors := newAuthorJoiner()

	for _, row := range t.authors {
		if !authors.add(row) {
			skippedItemsTotal.WithLabelValues(skipNamelessAuthor).Inc()
			e.logger.Warn().
				Str(logFieldResearch, row.ResearchID).
				Str(logFieldAuthor, row.AuthorID).
				Msg("skipping author without a name")
		}
	}

	keywords := newKeywordJoiner()
	for _, row := range t.keywords {
		keywords.add(row)
	}

	sdgs := newSDGJoiner()

	for _, row := range t.sdgs {
		if err := sdgs.add(row); err != nil {
			skippedItemsTotal.WithLabelValues(skipMalformedSDG).Inc()
			e.logger.Warn().Err(err).
				Str(logFieldResearch, row.ResearchID).
				Str(logFieldTag, row.Value).
				Msg("skipping malformed SDG tag")
		}
	}

	totals := make(map[string]*domain.EngagementDay)
	records := make([]domain.ResearchRecord, 0, len(t.outputs))
	seen := make(map[string]struct{}, len(t.outputs))

	for _, out := range t.outputs {
		// Dedupe on the stored id so rows differing only in padding or blankness
		// cannot collide in the snapshot index.
		id := domain.OrDefault(domain.ColResearchID, &out.ResearchID)
		if _, dup := seen[id]; dup {
			skippedItemsTotal.WithLabelValues(skipDuplicateRow).Inc()
			e.logger.Warn().Str(logFieldResearch, out.ResearchID).Msg("skipping duplicate research output")

			continue
		}

		seen[id] = struct{}{}

		rec := buildRecord(out, pubs[out.ResearchID], latest)
		rec.SDG = domain.OrDefault(domain.ColSDG, sdgs.joined(out.ResearchID))
		rec.Keywords = domain.OrDefault(domain.ColKeywords, keywords.joined(out.ResearchID))
		rec.Authors = domain.OrDefault(domain.ColAuthors, authors.joined(out.ResearchID))

		records = append(records, rec)
		totals[rec.ResearchID] = &domain.EngagementDay{}
	}

	sort.SliceStable(records, func(i, j int) bool {
		return records[i].ResearchID < records[j].ResearchID
	})

	days := e.engagementDays(t.engagement, totals)

	for i := range records {
		sum := totals[records[i].ResearchID]
		records[i].TotalViews = sum.Views
		records[i].TotalUniqueViews = sum.UniqueViews
		records[i].TotalDownloads = sum.Downloads
	}

	return records, days
}

func buildRecord(out ports.OutputRow, pub *ports.PublicationRow, latest map[string]domain.Status) domain.ResearchRecord {
	rec := domain.ResearchRecord{
		ResearchID:   domain.OrDefault(domain.ColResearchID, &out.ResearchID),
		CollegeID:    domain.OrDefault(domain.ColCollegeID, out.CollegeID),
		ProgramID:    domain.OrDefault(domain.ColProgramID, out.ProgramID),
		ProgramName:  domain.OrDefault(domain.ColProgramName, out.ProgramName),
		ResearchType: domain.OrDefault(domain.ColResearchType, out.ResearchType),
		Title:        domain.OrDefault(domain.ColTitle, out.Title),
		DateApproved: out.DateApproved,
		Status:       domain.DefaultStatus,
	}

	if out.DateApproved != nil {
		year := out.DateApproved.Year()
		rec.Year = &year
		rec.Term = domain.TermOf(*out.DateApproved)
	}

	var venue, title, journal, scopus *string

	if pub != nil {
		venue, title, journal, scopus = pub.ConferenceVenue, pub.ConferenceTitle, pub.Journal, pub.Scopus
		rec.DatePublished = pub.DatePublished
		rec.ConferenceDate = pub.ConferenceDate

		if pub.DatePublished != nil {
			year := pub.DatePublished.Year()
			rec.PublishedYear = &year
		}

		if st, ok := latest[pub.PublicationID]; ok {
			rec.Status = st
		}
	}

	rec.Journal = domain.OrDefault(domain.ColJournal, journal)
	rec.Scopus = domain.OrDefault(domain.ColScopus, scopus)
	rec.ConferenceVenue = domain.OrDefault(domain.ColConferenceVenue, venue)
	rec.ConferenceTitle = domain.OrDefault(domain.ColConferenceTitle, title)
	rec.Country = domain.OrDefault(domain.ColCountry, countryOf(venue))

	return rec
}

// latestStatuses picks the most recent known status per publication. Equal
// timestamps resolve to the highest status id.
func (e *Engine) latestStatuses(rows []ports.StatusRow) map[string]domain.Status {
	type entry struct {
		status domain.Status
		at     time.Time
		id     int64
	}

	best := make(map[string]entry, len(rows))

	for _, row := range rows {
		st, ok := domain.ParseStatus(row.Status)
		if !ok {
			skippedItemsTotal.WithLabelValues(skipUnknownStatus).Inc()
			e.logger.Warn().
				Str(logFieldPublication, row.PublicationID).
				Str(logFieldStatus, row.Status).
				Msg("skipping unknown status value")

			continue
		}

		cur, exists := best[row.PublicationID]
		if !exists || row.Timestamp.After(cur.at) || (row.Timestamp.Equal(cur.at) && row.StatusID > cur.id) {
			best[row.PublicationID] = entry{status: st, at: row.Timestamp, id: row.StatusID}
		}
	}

	out := make(map[string]domain.Status, len(best))
	for id, b := range best {
		out[id] = b.status
	}

	return out
}

// primaryPublications keeps one publication per research output so the flat table
// never duplicates rows: the latest date_published wins, undated ones lose, and
// remaining ties go to the highest publication id.
func primaryPublications(rows []ports.PublicationRow) map[string]*ports.PublicationRow {
	out := make(map[string]*ports.PublicationRow, len(rows))

	for i := range rows {
		row := &rows[i]

		cur, ok := out[row.ResearchID]
		if !ok || publicationBefore(cur, row) {
			out[row.ResearchID] = row
		}
	}

	return out
}

func publicationBefore(a, b *ports.PublicationRow) bool {
	switch {
	case a.DatePublished == nil && b.DatePublished != nil:
		return true
	case a.DatePublished != nil && b.DatePublished == nil:
		return false
	case a.DatePublished != nil && !a.DatePublished.Equal(*b.DatePublished):
		return a.DatePublished.Before(*b.DatePublished)
	default:
		return strings.Compare(a.PublicationID, b.PublicationID) < 0
	}
}

// engagementDays keeps the engagement rows of known research outputs, sorted by
// date then research id, and accumulates lifetime totals into totals.
func (e *Engine) engagementDays(rows []ports.EngagementRow, totals map[string]*domain.EngagementDay) []domain.EngagementDay {
	days := make([]domain.EngagementDay, 0, len(rows))
	orphans := 0

	for _, row := range rows {
		sum, ok := totals[row.ResearchID]
		if !ok {
			orphans++

			continue
		}

		sum.Views += row.Views
		sum.UniqueViews += row.UniqueViews
		sum.Downloads += row.Downloads

		days = append(days, domain.EngagementDay{
			Date:        row.Date.UTC(),
			ResearchID:  row.ResearchID,
			Views:       row.Views,
			UniqueViews: row.UniqueViews,
			Downloads:   row.Downloads,
		})
	}

	if orphans > 0 {
		skippedItemsTotal.WithLabelValues(skipOrphanActivity).Add(float64(orphans))
		e.logger.Warn().Int("rows", orphans).Msg("skipping engagement for unknown research outputs")
	}

	sort.SliceStable(days, func(i, j int) bool {
		if !days[i].Date.Equal(days[j].Date) {
			return days[i].Date.Before(days[j].Date)
		}

		return days[i].ResearchID < days[j].ResearchID
	})

	return days
}
