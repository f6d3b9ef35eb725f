package engine

import (
	"sort"
	"strings"
)

// ============================================================================
// FILTERS — Dimension-Based Filtering via RecordView
// ============================================================================
// One pass over the view; each row is tested against every constrained
// dimension. The result is a SubView, so no fact data is copied.
// Month values are compared on their canonical three-letter label.
// ============================================================================

// dimMatcher holds the accepted (folded) values of one dimension.
type dimMatcher struct {
	dim    Dimension
	accept map[string]struct{}
}

func (m dimMatcher) match(view RecordView, i int) bool {
	_, ok := m.accept[foldValue(view.Dimension(i, m.dim))]
	return ok
}

// ApplyFilters returns a view of rows matching all dimension filters.
// Dimensions are AND-combined; values within a dimension are OR-combined.
// Dimensions with no values do not restrict.
func ApplyFilters(view RecordView, filters Filters) RecordView {
	matchers := buildMatchers(filters)
	if len(matchers) == 0 {
		return view
	}

	n := view.Len()
	indices := make([]int, 0, n)
rows:
	for i := 0; i < n; i++ {
		for _, m := range matchers {
			if !m.match(view, i) {
				continue rows
			}
		}
		indices = append(indices, i)
	}
	return newSubView(view, indices)
}

// buildMatchers orders matchers by dimension so scans are deterministic.
func buildMatchers(filters Filters) []dimMatcher {
	if filters.IsEmpty() {
		return nil
	}
	matchers := make([]dimMatcher, 0, len(filters.Dimensions))
	for dim, values := range filters.Dimensions {
		if len(values) == 0 {
			continue
		}
		accept := make(map[string]struct{}, len(values))
		for _, v := range values {
			if dim == Month {
				v = CanonicalMonth(v)
			}
			accept[foldValue(v)] = struct{}{}
		}
		matchers = append(matchers, dimMatcher{dim: dim, accept: accept})
	}
	sort.Slice(matchers, func(i, j int) bool { return matchers[i].dim < matchers[j].dim })
	return matchers
}

func foldValue(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}
