// pkg/aggregator/aggregator.go
package aggregator

import (
	"errors"
	"fmt"
	"sort"

	"go.uber.org/zap"

	"github.com/David-Botos/board-analytics/pkg/model"
)

// Aggregation request errors. Both are detected before any record is
// inspected, so a bad request never consumes fetched data.
var (
	ErrUnsupportedMetric = errors.New("unsupported metric")
	ErrUnknownDimension  = errors.New("unknown dimension")
)

// Aggregator groups cleaned records by a logical dimension and computes
// one metric per group. It holds no state between calls; every result is
// derived from the records passed in.
type Aggregator struct {
	logger *zap.Logger
}

// NewAggregator creates a new Aggregator instance
func NewAggregator(logger *zap.Logger) (*Aggregator, error) {
	if logger == nil {
		return nil, errors.New("logger cannot be nil")
	}
	return &Aggregator{logger: logger}, nil
}

// Validate rejects a request whose metric or dimension the scope does
// not support. It runs on the request alone so callers can fail fast
// before fetching anything.
func Validate(table, dimension string, metric model.Metric) error {
	if _, ok := model.DimensionColumn(table, dimension); !ok {
		return fmt.Errorf("%w: %q for scope %q", ErrUnknownDimension, dimension, table)
	}

	switch metric.Kind {
	case model.MetricCount:
	case model.MetricSum, model.MetricAvg:
		if metric.Field == "" {
			return fmt.Errorf("%w: %s requires a field", ErrUnsupportedMetric, metric.Kind)
		}
	case model.MetricWinRate:
		if table == model.TableWorkOrders {
			return fmt.Errorf("%w: win_rate needs deal statuses, scope %q has none",
				ErrUnsupportedMetric, table)
		}
	case model.MetricCollectionRate:
		if table == model.TableDeals {
			return fmt.Errorf("%w: collection_rate needs billing fields, scope %q has none",
				ErrUnsupportedMetric, table)
		}
	default:
		return fmt.Errorf("%w: %q", ErrUnsupportedMetric, metric.Kind)
	}

	return nil
}

// Aggregate groups records by dimension and computes the metric per
// group. Records whose dimension value is null land in the explicit
// "Unknown" group. Groups are ordered descending by metric value, with
// ties and undefined groups ordered by key ascending.
func (a *Aggregator) Aggregate(
	table string,
	records []model.CleanRecord,
	dimension string,
	metric model.Metric,
) (model.AggregationResult, error) {
	if err := Validate(table, dimension, metric); err != nil {
		return model.AggregationResult{}, err
	}
	column, _ := model.DimensionColumn(table, dimension)

	groups := make(map[string][]model.CleanRecord)
	for _, record := range records {
		key := model.UnknownGroup
		if s, ok := record.String(column); ok && s != "" {
			key = s
		}
		groups[key] = append(groups[key], record)
	}

	result := model.AggregationResult{
		Dimension: dimension,
		Metric:    metric,
		Groups:    make([]model.GroupResult, 0, len(groups)),
	}
	for key, members := range groups {
		value, valid := computeMetric(metric, members)
		result.Groups = append(result.Groups, model.GroupResult{
			GroupKey:    key,
			MetricValue: value,
			Valid:       valid,
			RecordCount: len(members),
		})
	}

	sortGroups(result.Groups)

	a.logger.Debug("Computed aggregation",
		zap.String("table", table),
		zap.String("dimension", dimension),
		zap.String("metric", string(metric.Kind)),
		zap.Int("groups", len(result.Groups)),
		zap.Int("records", len(records)))

	return result, nil
}

// computeMetric folds one group's records into a metric value. The
// second return is false when the metric is undefined for the group.
func computeMetric(metric model.Metric, records []model.CleanRecord) (float64, bool) {
	switch metric.Kind {
	case model.MetricCount:
		return float64(len(records)), true

	case model.MetricSum:
		sum, _ := sumField(records, metric.Field)
		return sum, true

	case model.MetricAvg:
		// The divisor is the count of non-null values, not the group
		// size; nulls neither inflate nor deflate the average.
		sum, n := sumField(records, metric.Field)
		if n == 0 {
			return 0, false
		}
		return sum / float64(n), true

	case model.MetricWinRate:
		won, closed := 0, 0
		for _, record := range records {
			status, ok := record.String(model.DealStatus)
			if !ok || !model.ClosedOutcomes[status] {
				continue
			}
			closed++
			if status == model.DealStatusWon {
				won++
			}
		}
		if closed == 0 {
			return 0, false
		}
		return float64(won) / float64(closed), true

	case model.MetricCollectionRate:
		// Each record contributes its collected and billed values
		// independently; a record null on one side still contributes
		// the other. The billed divisor is the GST-inclusive column so
		// both sides of the ratio share the collected column's basis.
		collected, _ := sumField(records, model.WOCollected)
		billed, _ := sumField(records, model.WOBilledIncl)
		if billed == 0 {
			return 0, false
		}
		return collected / billed, true
	}

	return 0, false
}

// sumField sums the non-null numeric values of a field and returns the
// sum plus the count of values that contributed.
func sumField(records []model.CleanRecord, field string) (float64, int) {
	sum := 0.0
	n := 0
	for _, record := range records {
		v, ok := record.Number(field)
		if !ok {
			continue
		}
		sum += v
		n++
	}
	return sum, n
}

// sortGroups orders groups descending by metric value. Undefined groups
// sort after all defined ones; within either band, ties break by group
// key ascending so equal inputs always produce identical output.
func sortGroups(groups []model.GroupResult) {
	sort.Slice(groups, func(i, j int) bool {
		a, b := groups[i], groups[j]
		if a.Valid != b.Valid {
			return a.Valid
		}
		if a.Valid && a.MetricValue != b.MetricValue {
			return a.MetricValue > b.MetricValue
		}
		return a.GroupKey < b.GroupKey
	})
}
