package domain

import (
	"cmp"
	"encoding/json"
	"strconv"
	"strings"
	"time"

	apperrors "github.com/lueurxax/research-dashboard/internal/core/errors"
)

// Column identifies a column of the flat table. Unknown names are rejected by
// ParseColumn, so lookups never see an arbitrary string.
type Column string

// Flat table columns.
const (
	ColResearchID       Column = "research_id"
	ColCollegeID        Column = "college_id"
	ColProgramID        Column = "program_id"
	ColProgramName      Column = "program_name"
	ColResearchType     Column = "research_type"
	ColTitle            Column = "title"
	ColSDG              Column = "sdg"
	ColKeywords         Column = "concatenated_keywords"
	ColAuthors          Column = "concatenated_authors"
	ColDateApproved     Column = "date_approved"
	ColYear             Column = "year"
	ColTerm             Column = "term"
	ColDatePublished    Column = "date_published"
	ColPublishedYear    Column = "published_year"
	ColJournal          Column = "journal"
	ColScopus           Column = "scopus"
	ColConferenceVenue  Column = "conference_venue"
	ColConferenceTitle  Column = "conference_title"
	ColConferenceDate   Column = "conference_date"
	ColCountry          Column = "country"
	ColStatus           Column = "status"
	ColTotalViews       Column = "total_views"
	ColTotalUniqueViews Column = "total_unique_views"
	ColTotalDownloads   Column = "total_downloads"
)

// ParseColumn validates name against the flat table schema.
func ParseColumn(name string) (Column, error) {
	c := Column(strings.TrimSpace(name))
	if _, ok := specIndex[c]; !ok {
		return "", &apperrors.ColumnNotFoundError{Column: name}
	}

	return c, nil
}

// Columns returns every column of the flat table in schema order.
func Columns() []Column {
	out := make([]Column, len(schema))
	for i, s := range schema {
		out[i] = s.Column
	}

	return out
}

// Kind reports the value kind of the column.
func (c Column) Kind() Kind {
	return SpecFor(c).Kind
}

// Get returns the value of c in r; ok is false when the value is null.
func (c Column) Get(r *ResearchRecord) (Value, bool) {
	switch c {
	case ColResearchID:
		return textValue(r.ResearchID)
	case ColCollegeID:
		return textValue(r.CollegeID)
	case ColProgramID:
		return textValue(r.ProgramID)
	case ColProgramName:
		return textValue(r.ProgramName)
	case ColResearchType:
		return textValue(r.ResearchType)
	case ColTitle:
		return textValue(r.Title)
	case ColSDG:
		return textValue(r.SDG)
	case ColKeywords:
		return textValue(r.Keywords)
	case ColAuthors:
		return textValue(r.Authors)
	case ColDateApproved:
		return dateValue(r.DateApproved)
	case ColYear:
		return intPtrValue(r.Year)
	case ColTerm:
		if r.Term == 0 {
			return Value{}, false
		}

		return IntValue(int64(r.Term)), true
	case ColDatePublished:
		return dateValue(r.DatePublished)
	case ColPublishedYear:
		return intPtrValue(r.PublishedYear)
	case ColJournal:
		return textValue(r.Journal)
	case ColScopus:
		return textValue(r.Scopus)
	case ColConferenceVenue:
		return textValue(r.ConferenceVenue)
	case ColConferenceTitle:
		return textValue(r.ConferenceTitle)
	case ColConferenceDate:
		return dateValue(r.ConferenceDate)
	case ColCountry:
		return textValue(r.Country)
	case ColStatus:
		return textValue(string(r.Status))
	case ColTotalViews:
		return IntValue(r.TotalViews), true
	case ColTotalUniqueViews:
		return IntValue(r.TotalUniqueViews), true
	case ColTotalDownloads:
		return IntValue(r.TotalDownloads), true
	default:
		return Value{}, false
	}
}

// Kind is the value kind of a column.
type Kind int

// Value kinds.
const (
	KindText Kind = iota
	KindInt
	KindDate
)

const dateLayout = "2006-01-02"

// Value is a single non-null cell of the flat table.
type Value struct {
	Kind Kind
	Text string
	Int  int64
	Time time.Time
}

// TextValue builds a text value.
func TextValue(s string) Value { return Value{Kind: KindText, Text: s} }

// IntValue builds an integer value.
func IntValue(i int64) Value { return Value{Kind: KindInt, Int: i} }

// DateValue builds a date value.
func DateValue(t time.Time) Value { return Value{Kind: KindDate, Time: t} }

func textValue(s string) (Value, bool) {
	if s == "" {
		return Value{}, false
	}

	return TextValue(s), true
}

func intPtrValue(i *int) (Value, bool) {
	if i == nil {
		return Value{}, false
	}

	return IntValue(int64(*i)), true
}

func dateValue(t *time.Time) (Value, bool) {
	if t == nil {
		return Value{}, false
	}

	return DateValue(*t), true
}

// String renders the value the way filters compare it.
func (v Value) String() string {
	switch v.Kind {
	case KindInt:
		return strconv.FormatInt(v.Int, 10)
	case KindDate:
		return v.Time.Format(dateLayout)
	default:
		return v.Text
	}
}

// Compare orders two values of the same kind.
func (v Value) Compare(o Value) int {
	switch v.Kind {
	case KindInt:
		return cmp.Compare(v.Int, o.Int)
	case KindDate:
		return v.Time.Compare(o.Time)
	default:
		return strings.Compare(v.Text, o.Text)
	}
}

// MarshalJSON encodes integers as numbers and everything else as strings.
func (v Value) MarshalJSON() ([]byte, error) {
	if v.Kind == KindInt {
		return []byte(strconv.FormatInt(v.Int, 10)), nil
	}

	return json.Marshal(v.String())
}
