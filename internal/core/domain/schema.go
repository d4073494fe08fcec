package domain

import "strings"

// Default fill values of the flat table.
const (
	DefaultResearchID      = "Unknown"
	DefaultCollegeID       = "Unknown"
	DefaultProgramName     = "N/A"
	DefaultTitle           = "Untitled"
	DefaultSDG             = "Not Specified"
	DefaultKeywords        = "No Keywords"
	DefaultAuthors         = "Unknown Authors"
	DefaultResearchType    = "Unknown Type"
	DefaultJournal         = "unpublished"
	DefaultScopus          = "N/A"
	DefaultConferenceVenue = "Unknown Venue"
	DefaultConferenceTitle = "No Conference Title"
	DefaultCountry         = "Unknown Country"
	DefaultStatus          = StatusReady
)

// ColumnSpec describes one flat table column. Columns with an empty Default stay
// null when the source has no value.
type ColumnSpec struct {
	Column  Column
	Kind    Kind
	Default string
}

// schema is the single table-wide definition of columns and their defaults.
// The aggregation engine applies it once per rebuild.
var schema = []ColumnSpec{
	{Column: ColResearchID, Kind: KindText, Default: DefaultResearchID},
	{Column: ColCollegeID, Kind: KindText, Default: DefaultCollegeID},
	{Column: ColProgramID, Kind: KindText},
	{Column: ColProgramName, Kind: KindText, Default: DefaultProgramName},
	{Column: ColResearchType, Kind: KindText, Default: DefaultResearchType},
	{Column: ColTitle, Kind: KindText, Default: DefaultTitle},
	{Column: ColSDG, Kind: KindText, Default: DefaultSDG},
	{Column: ColKeywords, Kind: KindText, Default: DefaultKeywords},
	{Column: ColAuthors, Kind: KindText, Default: DefaultAuthors},
	{Column: ColDateApproved, Kind: KindDate},
	{Column: ColYear, Kind: KindInt},
	{Column: ColTerm, Kind: KindInt},
	{Column: ColDatePublished, Kind: KindDate},
	{Column: ColPublishedYear, Kind: KindInt},
	{Column: ColJournal, Kind: KindText, Default: DefaultJournal},
	{Column: ColScopus, Kind: KindText, Default: DefaultScopus},
	{Column: ColConferenceVenue, Kind: KindText, Default: DefaultConferenceVenue},
	{Column: ColConferenceTitle, Kind: KindText, Default: DefaultConferenceTitle},
	{Column: ColConferenceDate, Kind: KindDate},
	{Column: ColCountry, Kind: KindText, Default: DefaultCountry},
	{Column: ColStatus, Kind: KindText, Default: string(DefaultStatus)},
	{Column: ColTotalViews, Kind: KindInt, Default: "0"},
	{Column: ColTotalUniqueViews, Kind: KindInt, Default: "0"},
	{Column: ColTotalDownloads, Kind: KindInt, Default: "0"},
}

var specIndex = func() map[Column]int {
	idx := make(map[Column]int, len(schema))
	for i, s := range schema {
		idx[s.Column] = i
	}

	return idx
}()

// SpecFor returns the schema entry of c. Callers must pass a validated column.
func SpecFor(c Column) ColumnSpec {
	return schema[specIndex[c]]
}

// DefaultText returns the default fill of c, or "" when c stays null.
func DefaultText(c Column) string {
	return SpecFor(c).Default
}

// OrDefault returns the trimmed source value, or the column default when the
// value is null or blank.
func OrDefault(c Column, v *string) string {
	if v != nil {
		if s := strings.TrimSpace(*v); s != "" {
			return s
		}
	}

	return DefaultText(c)
}
