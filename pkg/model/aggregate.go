// pkg/model/aggregate.go
package model

// MetricKind identifies one of the supported aggregate metrics.
type MetricKind string

const (
	MetricSum            MetricKind = "sum"
	MetricCount          MetricKind = "count"
	MetricAvg            MetricKind = "avg"
	MetricWinRate        MetricKind = "win_rate"
	MetricCollectionRate MetricKind = "collection_rate"
)

// Metric is a metric request: the kind plus, for SUM and AVG, the field
// the metric reads. WIN_RATE and COLLECTION_RATE read fixed fields from
// the board catalog and leave Field empty.
type Metric struct {
	Kind  MetricKind
	Field string
}

// GroupResult is one group's computed metric.
// Valid is false when the metric is undefined for the group (for
// example a WIN_RATE group with no closed-outcome records); the group is
// still reported so its presence is visible.
type GroupResult struct {
	GroupKey    string
	MetricValue float64
	Valid       bool
	RecordCount int // All records in the group, nulls included
}

// AggregationResult is the ordered per-group output of one aggregation.
// Ordering is descending by metric value; equal values (and undefined
// groups, which sort last) are ordered by group key ascending.
type AggregationResult struct {
	Dimension string
	Metric    Metric
	Groups    []GroupResult
}

// UnknownGroup is the explicit group key for records whose dimension
// value is null or missing. Their presence is itself a data-quality
// signal, so they are never silently dropped.
const UnknownGroup = "Unknown"

// Caveat is an advisory data-completeness warning attached to a result.
// It annotates computed numbers and never alters them.
type Caveat struct {
	Table    string
	Field    string
	NullRate float64
	Message  string
}
