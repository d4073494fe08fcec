package domain

import "time"

// ResearchRecord is one row of the flat analytic table: a single research output with
// its one-to-many relations collapsed and every nullable column defaulted.
type ResearchRecord struct {
	ResearchID   string `json:"research_id"`
	CollegeID    string `json:"college_id"`
	ProgramID    string `json:"program_id,omitempty"`
	ProgramName  string `json:"program_name"`
	ResearchType string `json:"research_type"`
	Title        string `json:"title"`

	SDG      string `json:"sdg"`
	Keywords string `json:"concatenated_keywords"`
	Authors  string `json:"concatenated_authors"`

	DateApproved  *time.Time `json:"date_approved,omitempty"`
	Year          *int       `json:"year,omitempty"`
	Term          int        `json:"term,omitempty"`
	DatePublished *time.Time `json:"date_published,omitempty"`
	PublishedYear *int       `json:"published_year,omitempty"`

	Journal         string     `json:"journal"`
	Scopus          string     `json:"scopus"`
	ConferenceVenue string     `json:"conference_venue"`
	ConferenceTitle string     `json:"conference_title"`
	ConferenceDate  *time.Time `json:"conference_date,omitempty"`
	Country         string     `json:"country"`

	Status Status `json:"status"`

	TotalViews       int64 `json:"total_views"`
	TotalUniqueViews int64 `json:"total_unique_views"`
	TotalDownloads   int64 `json:"total_downloads"`
}

// SDGTags returns the record's SDG tags split on the multi-value delimiter.
func (r *ResearchRecord) SDGTags() []string {
	return SplitMulti(r.SDG)
}

// EngagementDay is the engagement aggregate of one research output on one day.
type EngagementDay struct {
	Date        time.Time `json:"date"`
	ResearchID  string    `json:"research_id"`
	Views       int64     `json:"total_views"`
	UniqueViews int64     `json:"total_unique_views"`
	Downloads   int64     `json:"total_downloads"`
}

// Source rows as loaded from the relational store, before denormalization.
// Pointer fields are NULL-able columns.

// OutputRow is a research_output row joined with its program.
type OutputRow struct {
	ResearchID   string
	CollegeID    *string
	ProgramID    *string
	ProgramName  *string
	Title        *string
	ResearchType *string
	DateApproved *time.Time
}

// PublicationRow is a publication row left-joined with its conference.
type PublicationRow struct {
	PublicationID   string
	ResearchID      string
	Journal         *string
	Scopus          *string
	DatePublished   *time.Time
	ConferenceVenue *string
	ConferenceTitle *string
	ConferenceDate  *time.Time
}

// StatusRow is one entry of a publication's status history.
type StatusRow struct {
	StatusID      int64
	PublicationID string
	Status        string
	Timestamp     time.Time
}

// AuthorRow is a research_output_author row joined through account to user_profile.
type AuthorRow struct {
	ResearchID string
	AuthorID   string
	FirstName  *string
	MiddleName *string
	LastName   *string
}

// TagRow is a single keyword or SDG attached to a research output.
type TagRow struct {
	ResearchID string
	Value      string
}

// EngagementRow is the per-day engagement aggregate as returned by the store.
type EngagementRow struct {
	Date        time.Time
	ResearchID  string
	UniqueViews int64
	Views       int64
	Downloads   int64
}
