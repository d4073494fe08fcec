package aggregate

import (
	"slices"
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/collate"
	"golang.org/x/text/language"

	"github.com/lueurxax/research-dashboard/internal/core/domain"
)

type author struct {
	id      string
	surname string
	display string
}

// formatAuthor renders "Surname, F. M.". It returns false when the profile has no
// usable name at all.
func formatAuthor(row domain.AuthorRow) (author, bool) {
	surname := trimmed(row.LastName)
	first := initial(row.FirstName)
	middle := initial(row.MiddleName)

	parts := make([]string, 0, 2)

	if first != "" {
		parts = append(parts, first+".")
	}

	if middle != "" {
		parts = append(parts, middle+".")
	}

	initials := strings.Join(parts, " ")

	var display string

	switch {
	case surname != "" && initials != "":
		display = surname + ", " + initials
	case surname != "":
		display = surname
	case initials != "":
		display = initials
	default:
		return author{}, false
	}

	return author{id: row.AuthorID, surname: surname, display: display}, true
}

func trimmed(s *string) string {
	if s == nil {
		return ""
	}

	return strings.TrimSpace(*s)
}

func initial(s *string) string {
	for _, r := range trimmed(s) {
		return strings.ToUpper(string(r))
	}

	return ""
}

// authorJoiner collapses author rows into one delimited string per research output,
// ordered alphabetically by surname with locale-aware collation.
type authorJoiner struct {
	collator *collate.Collator
	byID     map[string][]author
	seen     map[string]map[string]struct{}
}

func newAuthorJoiner() *authorJoiner {
	return &authorJoiner{
		collator: collate.New(language.Und, collate.IgnoreCase),
		byID:     make(map[string][]author),
		seen:     make(map[string]map[string]struct{}),
	}
}

// add returns false when the row carries no name.
func (j *authorJoiner) add(row domain.AuthorRow) bool {
	a, ok := formatAuthor(row)
	if !ok {
		return false
	}

	seen := j.seen[row.ResearchID]
	if seen == nil {
		seen = make(map[string]struct{})
		j.seen[row.ResearchID] = seen
	}

	if _, dup := seen[a.id]; dup {
		return true
	}

	seen[a.id] = struct{}{}
	j.byID[row.ResearchID] = append(j.byID[row.ResearchID], a)

	return true
}

func (j *authorJoiner) joined(researchID string) *string {
	authors := j.byID[researchID]
	if len(authors) == 0 {
		return nil
	}

	slices.SortStableFunc(authors, func(a, b author) int {
		if c := j.collator.CompareString(a.surname, b.surname); c != 0 {
			return c
		}

		if c := j.collator.CompareString(a.display, b.display); c != 0 {
			return c
		}

		return strings.Compare(a.id, b.id)
	})

	names := make([]string, len(authors))
	for i, a := range authors {
		names[i] = a.display
	}

	out := domain.JoinMulti(names)

	return &out
}

// keywordJoiner deduplicates keywords case-insensitively, keeping the first
// spelling seen.
type keywordJoiner struct {
	folder cases.Caser
	byID   map[string][]string
	seen   map[string]map[string]struct{}
}

func newKeywordJoiner() *keywordJoiner {
	return &keywordJoiner{
		folder: cases.Fold(),
		byID:   make(map[string][]string),
		seen:   make(map[string]map[string]struct{}),
	}
}

func (j *keywordJoiner) add(row domain.TagRow) {
	kw := strings.TrimSpace(row.Value)
	if kw == "" {
		return
	}

	key := j.folder.String(kw)

	seen := j.seen[row.ResearchID]
	if seen == nil {
		seen = make(map[string]struct{})
		j.seen[row.ResearchID] = seen
	}

	if _, dup := seen[key]; dup {
		return
	}

	seen[key] = struct{}{}
	j.byID[row.ResearchID] = append(j.byID[row.ResearchID], kw)
}

func (j *keywordJoiner) joined(researchID string) *string {
	kws := j.byID[researchID]
	if len(kws) == 0 {
		return nil
	}

	out := domain.JoinMulti(kws)

	return &out
}

// sdgJoiner normalizes SDG tags to "SDG n", deduplicated and ordered by number.
type sdgJoiner struct {
	byID map[string][]int
}

func newSDGJoiner() *sdgJoiner {
	return &sdgJoiner{byID: make(map[string][]int)}
}

func (j *sdgJoiner) add(row domain.TagRow) error {
	n, err := domain.ParseSDG(row.Value)
	if err != nil {
		return err //nolint:wrapcheck // already carries the tag
	}

	if !slices.Contains(j.byID[row.ResearchID], n) {
		j.byID[row.ResearchID] = append(j.byID[row.ResearchID], n)
	}

	return nil
}

func (j *sdgJoiner) joined(researchID string) *string {
	nums := j.byID[researchID]
	if len(nums) == 0 {
		return nil
	}

	slices.Sort(nums)

	labels := make([]string, len(nums))
	for i, n := range nums {
		labels[i] = domain.SDGLabel(n)
	}

	out := domain.JoinMulti(labels)

	return &out
}

// countryOf returns the text after the last comma of a conference venue.
func countryOf(venue *string) *string {
	v := trimmed(venue)
	if v == "" {
		return nil
	}

	if i := strings.LastIndex(v, ","); i >= 0 {
		v = strings.TrimSpace(v[i+1:])
	}

	if v == "" {
		return nil
	}

	return &v
}
