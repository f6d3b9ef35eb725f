package engine

// ============================================================================
// EXECUTOR — Aggregation + analytics for one question
// ============================================================================
// Entry point: Execute(query, view, opts...)
//
// Pipeline:
//   1. Aggregate → PivotResult + filtered SubView
//   2. Trend results → WithGrowth
//   3. Grouped results with Revenue → WithShare
//
// This function never calls an external service. All computation is local.
// Zero data copy: the engine reads snapshot data through RecordView.
// ============================================================================

// Computation is the engine's output for one parsed question.
type Computation struct {
	Pivot            PivotResult
	Filtered         RecordView
	FilteredRowCount int
}

// Execute runs a ParsedQuery against a RecordView.
//
// Options:
//   - WithRankingLimit(n): groups kept by ranking questions (default 3)
func Execute(q ParsedQuery, view RecordView, opts ...Option) Computation {
	pivot, filtered := Aggregate(view, q, opts...)
	if pivot.Trend {
		pivot = WithGrowth(pivot)
	}
	pivot = WithShare(pivot, filtered)

	return Computation{
		Pivot:            pivot,
		Filtered:         filtered,
		FilteredRowCount: filtered.Len(),
	}
}
