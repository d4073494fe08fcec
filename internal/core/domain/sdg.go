package domain

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	apperrors "github.com/lueurxax/research-dashboard/internal/core/errors"
)

const (
	// SDGCount is the size of the fixed SDG universe.
	SDGCount = 17

	// MultiValueDelimiter separates items of multi-valued columns on read.
	MultiValueDelimiter = ";"
	// MultiValueJoiner joins items of multi-valued columns on write.
	MultiValueJoiner = "; "

	sdgPrefix = "SDG"
)

// SDGLabel returns the canonical label of SDG n, e.g. "SDG 7".
func SDGLabel(n int) string {
	return fmt.Sprintf("%s %d", sdgPrefix, n)
}

// SDGUniverse returns the 17 SDG labels in ascending numeric order.
func SDGUniverse() []string {
	labels := make([]string, SDGCount)
	for i := range labels {
		labels[i] = SDGLabel(i + 1)
	}

	return labels
}

// ParseSDG parses a tag such as "SDG 3", "sdg-3" or "3" and returns its number.
func ParseSDG(tag string) (int, error) {
	s := strings.TrimSpace(tag)
	if len(s) >= len(sdgPrefix) && strings.EqualFold(s[:len(sdgPrefix)], sdgPrefix) {
		s = s[len(sdgPrefix):]
	}

	s = strings.TrimLeft(s, " -_#")

	n, err := strconv.Atoi(s)
	if err != nil || n < 1 || n > SDGCount {
		return 0, fmt.Errorf("%w: sdg %q", apperrors.ErrMalformedTag, tag)
	}

	return n, nil
}

// SplitMulti splits a multi-valued column on the delimiter, trimming items and
// dropping empty ones.
func SplitMulti(s string) []string {
	if s == "" {
		return nil
	}

	parts := strings.Split(s, MultiValueDelimiter)
	out := make([]string, 0, len(parts))

	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}

	return out
}

// JoinMulti is the inverse of SplitMulti for already trimmed items.
func JoinMulti(items []string) string {
	return strings.Join(items, MultiValueJoiner)
}

// TermOf returns the academic term of t: 1 for September to December,
// 2 for January to April and 3 for May to August.
func TermOf(t time.Time) int {
	switch m := t.Month(); {
	case m >= time.September:
		return 1
	case m <= time.April:
		return 2
	default:
		return 3
	}
}
