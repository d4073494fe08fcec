package db

import (
	"context"
	"fmt"
	"time"

	"github.com/araddon/dateparse"
	"github.com/rs/zerolog"

	"github.com/lueurxax/research-dashboard/internal/core/domain"
)

// rowScanner is the iteration surface shared by pgx.Rows and *sql.Rows.
type rowScanner interface {
	Next() bool
	Scan(dest ...any) error
	Err() error
}

type queryFunc func(ctx context.Context, query string) (rowScanner, func(), error)

// Source loads the normalized tables the aggregation engine denormalizes. It is
// safe for concurrent use; every loader runs one independent query.
type Source struct {
	dialect dialect
	query   queryFunc
	ping    func(ctx context.Context) error
	logger  *zerolog.Logger

	sqlOutputs      string
	sqlPublications string
	sqlStatuses     string
	sqlAuthors      string
	sqlKeywords     string
	sqlSDGs         string
	sqlEngagement   string
}

// Table names used in logs and errors.
const (
	tableResearchOutput = "research_output"
	tablePublication    = "publication"
	tableStatus         = "status"
	tableAuthors        = "research_output_author"
	tableKeywords       = "keywords"
	tableSDG            = "sdg"
	tableEngagement     = "user_engagement"
)

// SQL query templates. %s placeholders receive dialect date expressions.
const (
	sqlOutputsTmpl = `
		SELECT ro.research_id,
		       c.college_id,
		       p.program_id,
		       p.program_name,
		       ro.title,
		       ro.research_type,
		       %s
		FROM research_output ro
		LEFT JOIN college c ON c.college_id = ro.college_id
		LEFT JOIN program p ON p.program_id = ro.program_id
		ORDER BY ro.research_id`

	sqlPublicationsTmpl = `
		SELECT pub.publication_id,
		       pub.research_id,
		       pub.journal,
		       pub.scopus,
		       %s,
		       conf.conference_venue,
		       conf.conference_title,
		       %s
		FROM publication pub
		LEFT JOIN conference conf ON conf.conference_id = pub.conference_id
		ORDER BY pub.research_id, pub.publication_id`

	sqlStatusesTmpl = `
		SELECT status_id,
		       publication_id,
		       status,
		       %s
		FROM status
		ORDER BY publication_id, status_id`

	sqlAuthors = `
		SELECT roa.research_id,
		       roa.author_id,
		       up.first_name,
		       up.middle_name,
		       up.last_name
		FROM research_output_author roa
		JOIN account a ON a.user_id = roa.author_id
		JOIN user_profile up ON up.researcher_id = a.user_id
		ORDER BY roa.research_id, roa.author_id`

	sqlKeywords = `
		SELECT research_id, keyword
		FROM keywords
		ORDER BY research_id, keyword`

	sqlSDGs = `
		SELECT research_id, sdg
		FROM sdg
		ORDER BY research_id, sdg`

	sqlEngagementTmpl = `
		SELECT %s AS day,
		       research_id,
		       COUNT(DISTINCT user_id),
		       SUM(CASE WHEN "view" THEN 1 ELSE 0 END),
		       SUM(CASE WHEN download THEN 1 ELSE 0 END)
		FROM user_engagement
		GROUP BY 1, 2
		ORDER BY 1, 2`
)

func newSource(d dialect, query queryFunc, ping func(ctx context.Context) error, logger *zerolog.Logger) *Source {
	return &Source{
		dialect:         d,
		query:           query,
		ping:            ping,
		logger:          orNop(logger),
		sqlOutputs:      fmt.Sprintf(sqlOutputsTmpl, d.date("ro.date_approved")),
		sqlPublications: fmt.Sprintf(sqlPublicationsTmpl, d.date("pub.date_published"), d.date("conf.conference_date")),
		sqlStatuses:     fmt.Sprintf(sqlStatusesTmpl, d.timestamp(`"timestamp"`)),
		sqlAuthors:      sqlAuthors,
		sqlKeywords:     sqlKeywords,
		sqlSDGs:         sqlSDGs,
		sqlEngagement:   fmt.Sprintf(sqlEngagementTmpl, d.day(`"timestamp"`)),
	}
}

// Ping checks that the underlying store is reachable.
func (s *Source) Ping(ctx context.Context) error {
	return s.ping(ctx)
}

// collect runs sql and scans every row with scan. Rows for which scan reports
// keep=false are dropped.
func collect[T any](ctx context.Context, s *Source, table, sql string, scan func(rowScanner) (T, bool, error)) ([]T, error) {
	rows, closeRows, err := s.query(ctx, sql)
	if err != nil {
		return nil, fmt.Errorf("query %s: %w", table, err)
	}
	defer closeRows()

	out := []T{}

	for rows.Next() {
		item, keep, err := scan(rows)
		if err != nil {
			return nil, fmt.Errorf("scan %s: %w", table, err)
		}

		if keep {
			out = append(out, item)
		}
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate %s: %w", table, err)
	}

	return out, nil
}

// ResearchOutputs loads every research output with its college and program.
func (s *Source) ResearchOutputs(ctx context.Context) ([]domain.OutputRow, error) {
	return collect(ctx, s, tableResearchOutput, s.sqlOutputs, func(rows rowScanner) (domain.OutputRow, bool, error) {
		var (
			row      domain.OutputRow
			approved *string
		)

		if err := rows.Scan(&row.ResearchID, &row.CollegeID, &row.ProgramID, &row.ProgramName,
			&row.Title, &row.ResearchType, &approved); err != nil {
			return row, false, err
		}

		row.DateApproved = s.parseDate(tableResearchOutput, "date_approved", approved)

		return row, true, nil
	})
}

// Publications loads every publication left-joined with its conference.
func (s *Source) Publications(ctx context.Context) ([]domain.PublicationRow, error) {
	return collect(ctx, s, tablePublication, s.sqlPublications, func(rows rowScanner) (domain.PublicationRow, bool, error) {
		var (
			row                  domain.PublicationRow
			published, confDate *string
		)

		if err := rows.Scan(&row.PublicationID, &row.ResearchID, &row.Journal,
			&row.Scopus, &published, &row.ConferenceVenue, &row.ConferenceTitle, &confDate); err != nil {
			return row, false, err
		}

		row.DatePublished = s.parseDate(tablePublication, "date_published", published)
		row.ConferenceDate = s.parseDate(tablePublication, "conference_date", confDate)

		return row, true, nil
	})
}

// Statuses loads the full status history. Entries with an unreadable timestamp
// cannot be ordered and are skipped.
func (s *Source) Statuses(ctx context.Context) ([]domain.StatusRow, error) {
	return collect(ctx, s, tableStatus, s.sqlStatuses, func(rows rowScanner) (domain.StatusRow, bool, error) {
		var (
			row domain.StatusRow
			ts  *string
		)

		if err := rows.Scan(&row.StatusID, &row.PublicationID, &row.Status, &ts); err != nil {
			return row, false, err
		}

		parsed := s.parseDate(tableStatus, "timestamp", ts)
		if parsed == nil {
			return row, false, nil
		}

		row.Timestamp = *parsed

		return row, true, nil
	})
}

// Authors loads author names through account and user_profile.
func (s *Source) Authors(ctx context.Context) ([]domain.AuthorRow, error) {
	return collect(ctx, s, tableAuthors, s.sqlAuthors, func(rows rowScanner) (domain.AuthorRow, bool, error) {
		var row domain.AuthorRow

		err := rows.Scan(&row.ResearchID, &row.AuthorID, &row.FirstName, &row.MiddleName, &row.LastName)

		return row, err == nil, err
	})
}

// Keywords loads keyword tags.
func (s *Source) Keywords(ctx context.Context) ([]domain.TagRow, error) {
	return s.tags(ctx, tableKeywords, s.sqlKeywords)
}

// SDGs loads raw SDG tags.
func (s *Source) SDGs(ctx context.Context) ([]domain.TagRow, error) {
	return s.tags(ctx, tableSDG, s.sqlSDGs)
}

func (s *Source) tags(ctx context.Context, table, sql string) ([]domain.TagRow, error) {
	return collect(ctx, s, table, sql, func(rows rowScanner) (domain.TagRow, bool, error) {
		var row domain.TagRow

		err := rows.Scan(&row.ResearchID, &row.Value)

		return row, err == nil, err
	})
}

// Engagement loads per-day, per-research engagement aggregates.
func (s *Source) Engagement(ctx context.Context) ([]domain.EngagementRow, error) {
	return collect(ctx, s, tableEngagement, s.sqlEngagement, func(rows rowScanner) (domain.EngagementRow, bool, error) {
		var (
			row domain.EngagementRow
			day *string
		)

		if err := rows.Scan(&day, &row.ResearchID, &row.UniqueViews, &row.Views, &row.Downloads); err != nil {
			return row, false, err
		}

		parsed := s.parseDate(tableEngagement, "timestamp", day)
		if parsed == nil {
			return row, false, nil
		}

		row.Date = *parsed

		return row, true, nil
	})
}

// parseDate parses a date rendered by the dialect. Unparseable values are logged
// and treated as null.
func (s *Source) parseDate(table, column string, v *string) *time.Time {
	if v == nil || *v == "" {
		return nil
	}

	t, err := dateparse.ParseIn(*v, time.UTC)
	if err != nil {
		s.logger.Warn().Err(err).
			Str(logFieldTable, table).
			Str(logFieldColumn, column).
			Str(logFieldValue, *v).
			Msg("skipping unparseable date")

		return nil
	}

	t = t.UTC()

	return &t
}
