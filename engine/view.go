package engine

// ============================================================================
// RECORD VIEW — Zero-Copy Data Access Interface
// ============================================================================
// The engine never owns snapshot data. It reads through this interface.
//
// Implementations:
//   DomainView[T]  — reads typed structs via accessor functions (zero-copy)
//   SubView        — filtered subset (indices into parent, zero-copy)
//
// FactRow accessors are registered once; snapshots bind them per load.
// ============================================================================

// RecordView provides indexed access to a dataset.
// The engine calls Dimension/Metric in tight loops; keep implementations fast.
type RecordView interface {
	Len() int
	Dimension(index int, d Dimension) string
	Metric(index int, m Metric) float64
	Capabilities() Capabilities
}

// ============================================================================
// SUB VIEW — filtered subset (zero-copy)
// ============================================================================

// SubView is a filtered subset of a parent RecordView.
// Holds indices into the parent, no data copy.
type SubView struct {
	parent  RecordView
	indices []int
}

func newSubView(parent RecordView, indices []int) RecordView {
	return &SubView{parent: parent, indices: indices}
}

func (v *SubView) Len() int { return len(v.indices) }

func (v *SubView) Dimension(i int, d Dimension) string {
	if i < 0 || i >= len(v.indices) {
		return ""
	}
	return v.parent.Dimension(v.indices[i], d)
}

func (v *SubView) Metric(i int, m Metric) float64 {
	if i < 0 || i >= len(v.indices) {
		return 0
	}
	return v.parent.Metric(v.indices[i], m)
}

func (v *SubView) Capabilities() Capabilities { return v.parent.Capabilities() }

// ============================================================================
// DOMAIN ADAPTER — Zero-copy typed struct access
// ============================================================================
//
// Usage:
//
//	adapter := engine.NewDomainAdapter[Row]().
//	    Dimension(engine.Brand, func(r Row) string { return r.BrandName }).
//	    Metric(engine.Revenue, func(r Row) float64 { return r.Sales })
//
//	view := adapter.Bind(rows, caps)
//
// ============================================================================

// DomainAdapter builds a RecordView from typed structs.
// Declare once, bind many times.
type DomainAdapter[T any] struct {
	dims map[Dimension]func(T) string
	meas map[Metric]func(T) float64
}

// NewDomainAdapter creates a new adapter for type T.
func NewDomainAdapter[T any]() *DomainAdapter[T] {
	return &DomainAdapter[T]{
		dims: make(map[Dimension]func(T) string),
		meas: make(map[Metric]func(T) float64),
	}
}

// Dimension registers a dimension accessor.
func (a *DomainAdapter[T]) Dimension(d Dimension, fn func(T) string) *DomainAdapter[T] {
	a.dims[d] = fn
	return a
}

// Metric registers a metric accessor.
func (a *DomainAdapter[T]) Metric(m Metric, fn func(T) float64) *DomainAdapter[T] {
	a.meas[m] = fn
	return a
}

// Bind creates a RecordView from a data slice. Zero-copy: holds a reference to data.
// Columns without a registered accessor are dropped from caps.
func (a *DomainAdapter[T]) Bind(data []T, caps Capabilities) RecordView {
	bound := Capabilities{
		Dimensions: make(map[Dimension]bool, len(a.dims)),
		Metrics:    make(map[Metric]bool, len(a.meas)),
	}
	for d := range a.dims {
		if caps.HasDimension(d) {
			bound.Dimensions[d] = true
		}
	}
	for m := range a.meas {
		if caps.HasMetric(m) {
			bound.Metrics[m] = true
		}
	}
	return &DomainView[T]{data: data, dims: a.dims, meas: a.meas, caps: bound}
}

// DomainView reads typed struct fields via registered accessor functions.
type DomainView[T any] struct {
	data []T
	dims map[Dimension]func(T) string
	meas map[Metric]func(T) float64
	caps Capabilities
}

func (v *DomainView[T]) Len() int { return len(v.data) }

func (v *DomainView[T]) Dimension(i int, d Dimension) string {
	if i < 0 || i >= len(v.data) {
		return ""
	}
	if fn, ok := v.dims[d]; ok {
		return fn(v.data[i])
	}
	return ""
}

func (v *DomainView[T]) Metric(i int, m Metric) float64 {
	if i < 0 || i >= len(v.data) {
		return 0
	}
	if fn, ok := v.meas[m]; ok {
		return fn(v.data[i])
	}
	return 0
}

func (v *DomainView[T]) Capabilities() Capabilities { return v.caps }

// ============================================================================
// FACT VIEW — FactRow binding
// ============================================================================

var factAdapter = NewDomainAdapter[FactRow]().
	Dimension(Year, FactRow.yearLabel).
	Dimension(Month, func(r FactRow) string { return CanonicalMonth(r.Month) }).
	Dimension(Business, func(r FactRow) string { return r.Business }).
	Dimension(Channel, func(r FactRow) string { return r.Channel }).
	Dimension(Customer, func(r FactRow) string { return r.Customer }).
	Dimension(Brand, func(r FactRow) string { return r.Brand }).
	Dimension(Category, func(r FactRow) string { return r.Category }).
	Dimension(SubCategory, func(r FactRow) string { return r.SubCategory }).
	Metric(Revenue, func(r FactRow) float64 { return r.Revenue }).
	Metric(GrossProfit, func(r FactRow) float64 { return r.GrossProfit }).
	Metric(Units, func(r FactRow) float64 { return r.Units }).
	Metric(PriceDowns, func(r FactRow) float64 { return r.PriceDowns }).
	Metric(PermanentDiscount, func(r FactRow) float64 { return r.PermanentDiscount }).
	Metric(GroupCost, func(r FactRow) float64 { return r.GroupCost }).
	Metric(LTA, func(r FactRow) float64 { return r.LTA })

// NewFactView binds fact rows to a RecordView carrying caps.
func NewFactView(rows []FactRow, caps Capabilities) RecordView {
	return factAdapter.Bind(rows, caps)
}
