package db

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

// fixtureSQL is portable between Postgres and SQLite.
var fixtureSQL = []string{
	`INSERT INTO college (college_id, college_name) VALUES ('CCS', 'Computer Studies'), ('CBA', 'Business')`,
	`INSERT INTO program (program_id, college_id, program_name) VALUES
		('P1', 'CCS', 'BS Computer Science'),
		('P2', 'CBA', 'BS Accountancy')`,
	`INSERT INTO research_output (research_id, college_id, program_id, title, date_approved, research_type) VALUES
		('R1', 'CCS', 'P1', 'Graph Mining', '2023-03-15', 'THESIS'),
		('R2', 'CBA', 'P2', NULL, NULL, 'DISSERTATION'),
		('R3', 'CCS', NULL, 'Vision', '2022-10-01', NULL)`,
	`INSERT INTO conference (conference_id, conference_title, conference_venue, conference_date) VALUES
		('C1', 'ICML', 'Tokyo Big Sight, Tokyo, Japan', '2023-07-01')`,
	`INSERT INTO publication (publication_id, research_id, conference_id, publication_name, journal, scopus, date_published) VALUES
		('PB1', 'R1', 'C1', 'Pub One', 'Journal A', 'SCOPUS', '2023-08-01'),
		('PB2', 'R2', NULL, NULL, NULL, NULL, NULL)`,
	`INSERT INTO status (publication_id, status, "timestamp") VALUES
		('PB1', 'SUBMITTED', '2023-05-01 10:00:00'),
		('PB1', 'PUBLISHED', '2023-08-02 09:00:00')`,
	`INSERT INTO account (user_id, email) VALUES ('U1', 'u1@example.edu'), ('U2', 'u2@example.edu')`,
	`INSERT INTO user_profile (researcher_id, first_name, middle_name, last_name) VALUES
		('U1', 'Maria', 'Clara', 'Santos'),
		('U2', 'Jose', NULL, 'Rizal')`,
	`INSERT INTO research_output_author (research_id, author_id) VALUES ('R1', 'U1'), ('R1', 'U2')`,
	`INSERT INTO keywords (research_id, keyword) VALUES ('R1', 'mining'), ('R1', 'graphs')`,
	`INSERT INTO sdg (research_id, sdg) VALUES ('R1', 'SDG 9'), ('R1', 'SDG 4')`,
	`INSERT INTO user_engagement ("timestamp", research_id, user_id, "view", download) VALUES
		('2024-01-02 10:00:00', 'R1', 'U1', TRUE, FALSE),
		('2024-01-02 11:00:00', 'R1', 'U1', TRUE, TRUE),
		('2024-01-02 12:00:00', 'R1', 'U2', TRUE, FALSE),
		('2024-01-03 08:00:00', 'R3', 'U2', TRUE, FALSE)`,
}

type execer func(ctx context.Context, sql string) error

func seedFixtures(t *testing.T, exec execer) {
	t.Helper()

	ctx := context.Background()

	for _, stmt := range fixtureSQL {
		require.NoError(t, exec(ctx, stmt), stmt)
	}
}

func date(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// assertFixtureLoads checks every loader of src against fixtureSQL.
func assertFixtureLoads(t *testing.T, src *Source) {
	t.Helper()

	ctx := context.Background()

	outputs, err := src.ResearchOutputs(ctx)
	require.NoError(t, err)
	require.Len(t, outputs, 3)
	require.Equal(t, "R1", outputs[0].ResearchID)
	require.Equal(t, "BS Computer Science", *outputs[0].ProgramName)
	require.Equal(t, date(2023, time.March, 15), *outputs[0].DateApproved)
	require.Nil(t, outputs[1].Title)
	require.Nil(t, outputs[1].DateApproved)
	require.Nil(t, outputs[2].ProgramID)
	require.Nil(t, outputs[2].ResearchType)

	pubs, err := src.Publications(ctx)
	require.NoError(t, err)
	require.Len(t, pubs, 2)
	require.Equal(t, "Tokyo Big Sight, Tokyo, Japan", *pubs[0].ConferenceVenue)
	require.Equal(t, date(2023, time.August, 1), *pubs[0].DatePublished)
	require.Equal(t, date(2023, time.July, 1), *pubs[0].ConferenceDate)
	require.Nil(t, pubs[1].ConferenceVenue)
	require.Nil(t, pubs[1].DatePublished)

	statuses, err := src.Statuses(ctx)
	require.NoError(t, err)
	require.Len(t, statuses, 2)
	require.Equal(t, "PUBLISHED", statuses[1].Status)
	require.Equal(t, time.Date(2023, time.August, 2, 9, 0, 0, 0, time.UTC), statuses[1].Timestamp)
	require.Greater(t, statuses[1].StatusID, statuses[0].StatusID)

	authors, err := src.Authors(ctx)
	require.NoError(t, err)
	require.Len(t, authors, 2)
	require.Equal(t, "Santos", *authors[0].LastName)
	require.Nil(t, authors[1].MiddleName)

	keywords, err := src.Keywords(ctx)
	require.NoError(t, err)
	require.Equal(t, []string{"graphs", "mining"}, []string{keywords[0].Value, keywords[1].Value})

	sdgs, err := src.SDGs(ctx)
	require.NoError(t, err)
	require.Len(t, sdgs, 2)

	engagement, err := src.Engagement(ctx)
	require.NoError(t, err)
	require.Len(t, engagement, 2)

	first := engagement[0]
	require.Equal(t, date(2024, time.January, 2), first.Date)
	require.Equal(t, "R1", first.ResearchID)
	require.EqualValues(t, 2, first.UniqueViews)
	require.EqualValues(t, 3, first.Views)
	require.EqualValues(t, 1, first.Downloads)
}
