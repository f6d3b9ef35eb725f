package schema

import (
	"github.com/spektr-org/pulse/engine"
)

// ============================================================================
// SCHEMA — Describes which canonical sales columns a source provides
// ============================================================================
// Built by discovery from the source headers (CSV, Excel, SQL). The fact
// loaders use it to map source columns onto FactRow fields; the engine gets
// the resulting capability set through the RecordView.
// ============================================================================

// Config describes the shape of one fact source.
type Config struct {
	Name       string          `json:"name"`
	Dimensions []DimensionMeta `json:"dimensions"`
	Measures   []MeasureMeta   `json:"measures"`

	// Discovery metadata
	DiscoveredFrom string `json:"discoveredFrom,omitempty"`
	DiscoveredAt   string `json:"discoveredAt,omitempty"`

	// Columns left out during discovery
	SkippedColumns []SkippedColumn `json:"skippedColumns,omitempty"`
}

// DimensionMeta describes a categorical column.
type DimensionMeta struct {
	Key          engine.Dimension `json:"key"`
	DisplayName  string           `json:"displayName"`
	SourceColumn string           `json:"sourceColumn"`
	ColumnIndex  int              `json:"columnIndex"`
	SampleValues []string         `json:"sampleValues,omitempty"`
	IsTemporal   bool             `json:"isTemporal,omitempty"`
}

// MeasureMeta describes a numeric column.
type MeasureMeta struct {
	Key          engine.Metric `json:"key"`
	DisplayName  string        `json:"displayName"`
	SourceColumn string        `json:"sourceColumn"`
	ColumnIndex  int           `json:"columnIndex"`
	Unit         string        `json:"unit"` // "currency" or "units"
	IsCostDriver bool          `json:"isCostDriver,omitempty"`
}

// SkippedColumn records why a column was excluded during discovery.
type SkippedColumn struct {
	Column string `json:"column"`
	Reason string `json:"reason"`
}

// Capabilities returns the typed set of columns this source provides.
func (c Config) Capabilities() engine.Capabilities {
	caps := engine.Capabilities{
		Dimensions: make(map[engine.Dimension]bool, len(c.Dimensions)),
		Metrics:    make(map[engine.Metric]bool, len(c.Measures)),
	}
	for _, d := range c.Dimensions {
		caps.Dimensions[d.Key] = true
	}
	for _, m := range c.Measures {
		caps.Metrics[m.Key] = true
	}
	return caps
}

// DimensionKeys returns all dimension keys.
func (c Config) DimensionKeys() []engine.Dimension {
	keys := make([]engine.Dimension, len(c.Dimensions))
	for i, d := range c.Dimensions {
		keys[i] = d.Key
	}
	return keys
}

// MeasureKeys returns all measure keys.
func (c Config) MeasureKeys() []engine.Metric {
	keys := make([]engine.Metric, len(c.Measures))
	for i, m := range c.Measures {
		keys[i] = m.Key
	}
	return keys
}
