package rasterize

import (
	"errors"
	"fmt"
	"sort"
	"strconv"
	"strings"
)

// ErrInvalidPageSelection is returned for malformed or out-of-range selections.
var ErrInvalidPageSelection = errors.New("invalid page selection")

// ParsePageSelection parses a comma separated list of 1-based pages and
// inclusive ranges, e.g. "1,3-5". The result is sorted and deduplicated.
// An empty string selects every page and returns nil.
func ParsePageSelection(s string) ([]int, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil, nil
	}

	seen := make(map[int]bool)
	for _, part := range strings.Split(s, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			return nil, fmt.Errorf("%w: empty entry in %q", ErrInvalidPageSelection, s)
		}

		lo, hi, isRange := strings.Cut(part, "-")
		first, err := parsePage(lo)
		if err != nil {
			return nil, err
		}
		last := first
		if isRange {
			if last, err = parsePage(hi); err != nil {
				return nil, err
			}
			if last < first {
				return nil, fmt.Errorf("%w: range %q is reversed", ErrInvalidPageSelection, part)
			}
		}
		for p := first; p <= last; p++ {
			seen[p] = true
		}
	}

	pages := make([]int, 0, len(seen))
	for p := range seen {
		pages = append(pages, p)
	}
	sort.Ints(pages)
	return pages, nil
}

func parsePage(s string) (int, error) {
	n, err := strconv.Atoi(strings.TrimSpace(s))
	if err != nil {
		return 0, fmt.Errorf("%w: %q is not a page number", ErrInvalidPageSelection, s)
	}
	if n < 1 {
		return 0, fmt.Errorf("%w: pages start at 1, got %d", ErrInvalidPageSelection, n)
	}
	return n, nil
}
