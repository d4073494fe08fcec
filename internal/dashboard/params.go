package dashboard

import (
	"errors"
	"fmt"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/araddon/dateparse"

	"github.com/lueurxax/research-dashboard/internal/core/domain"
	apperrors "github.com/lueurxax/research-dashboard/internal/core/errors"
	"github.com/lueurxax/research-dashboard/internal/query"
	"github.com/lueurxax/research-dashboard/internal/transform"
)

// Query parameter names.
const (
	paramCollege  = "college"
	paramStatus   = "status"
	paramYearFrom = "year_from"
	paramYearTo   = "year_to"
	paramFrom     = "from"
	paramTo       = "to"
	paramWindow   = "window"
	paramMetric   = "metric"
	paramN        = "n"

	maxTopN = 100
)

var (
	errWindowAndRange = errors.New("window cannot be combined with from/to")
	errInvertedRange  = errors.New("from is after to")
)

func invalid(err error) error {
	return fmt.Errorf("%w: %w", apperrors.ErrInvalidInput, err)
}

// parseSelection reads the college, status and year filters. A single year
// bound is completed with the view's min or max approval year.
func parseSelection(q url.Values, v *query.View) (query.Selection, error) {
	sel := query.Selection{Colleges: multi(q, paramCollege)}

	for _, raw := range multi(q, paramStatus) {
		st, ok := domain.ParseStatus(raw)
		if !ok {
			return query.Selection{}, invalid(fmt.Errorf("unknown status %q", raw))
		}

		sel.Statuses = append(sel.Statuses, st)
	}

	from, err := optionalInt(q, paramYearFrom)
	if err != nil {
		return query.Selection{}, err
	}

	to, err := optionalInt(q, paramYearTo)
	if err != nil {
		return query.Selection{}, err
	}

	if from != nil || to != nil {
		sel.Years = yearRange(from, to, v)
	}

	if err := sel.Validate(); err != nil {
		return query.Selection{}, err
	}

	return sel, nil
}

func yearRange(from, to *int, v *query.View) *query.YearRange {
	r := &query.YearRange{}

	switch {
	case from != nil:
		r.From = *from
	default:
		r.From = *to
		if lo, err := v.MinValue(domain.ColYear); err == nil && int(lo.Int) < r.From {
			r.From = int(lo.Int)
		}
	}

	switch {
	case to != nil:
		r.To = *to
	default:
		r.To = *from
		if hi, err := v.MaxValue(domain.ColYear); err == nil && int(hi.Int) > r.To {
			r.To = int(hi.Int)
		}
	}

	return r
}

// parseWindow reads either a preset window or explicit from/to dates.
func parseWindow(q url.Values, charts *transform.Service) (transform.Window, error) {
	preset := strings.TrimSpace(q.Get(paramWindow))
	fromStr := strings.TrimSpace(q.Get(paramFrom))
	toStr := strings.TrimSpace(q.Get(paramTo))

	if preset != "" {
		if fromStr != "" || toStr != "" {
			return transform.Window{}, invalid(errWindowAndRange)
		}

		return charts.PresetWindow(preset)
	}

	var win transform.Window

	if fromStr != "" {
		t, err := parseDate(fromStr)
		if err != nil {
			return transform.Window{}, invalid(fmt.Errorf("invalid from: %w", err))
		}

		win.From = &t
	}

	if toStr != "" {
		t, err := parseDate(toStr)
		if err != nil {
			return transform.Window{}, invalid(fmt.Errorf("invalid to: %w", err))
		}

		win.To = &t
	}

	if win.From != nil && win.To != nil && win.From.After(*win.To) {
		return transform.Window{}, invalid(errInvertedRange)
	}

	return win, nil
}

// parseDate accepts any common date format and truncates to the UTC day.
func parseDate(value string) (time.Time, error) {
	t, err := dateparse.ParseIn(value, time.UTC)
	if err != nil {
		return time.Time{}, fmt.Errorf("parse date %q: %w", value, err)
	}

	y, m, d := t.UTC().Date()

	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC), nil
}

func parseTopN(q url.Values) (int, error) {
	n, err := optionalInt(q, paramN)
	if err != nil || n == nil {
		return 0, err
	}

	if *n <= 0 || *n > maxTopN {
		return 0, invalid(fmt.Errorf("n must be between 1 and %d", maxTopN))
	}

	return *n, nil
}

func optionalInt(q url.Values, key string) (*int, error) {
	raw := strings.TrimSpace(q.Get(key))
	if raw == "" {
		return nil, nil
	}

	n, err := strconv.Atoi(raw)
	if err != nil {
		return nil, invalid(fmt.Errorf("invalid %s %q", key, raw))
	}

	return &n, nil
}

// multi returns the non-empty values of a repeatable parameter. Comma-separated
// values are split too.
func multi(q url.Values, key string) []string {
	var out []string

	for _, raw := range q[key] {
		for _, part := range strings.Split(raw, ",") {
			if part = strings.TrimSpace(part); part != "" {
				out = append(out, part)
			}
		}
	}

	return out
}
