// pkg/engine/engine_test.go
package engine

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"go.uber.org/zap"

	"github.com/David-Botos/board-analytics/pkg/aggregator"
	"github.com/David-Botos/board-analytics/pkg/caveat"
	"github.com/David-Botos/board-analytics/pkg/cleaner"
	"github.com/David-Botos/board-analytics/pkg/fetcher"
	"github.com/David-Botos/board-analytics/pkg/joiner"
	"github.com/David-Botos/board-analytics/pkg/model"
)

// fakeFetcher serves canned board snapshots and counts calls.
type fakeFetcher struct {
	boards map[string][]model.RawRecord
	calls  int
	err    error
}

func (f *fakeFetcher) FetchBoard(_ context.Context, table, _ string) ([]model.RawRecord, fetcher.Stats, error) {
	f.calls++
	if f.err != nil {
		return nil, fetcher.Stats{}, f.err
	}
	records := f.boards[table]
	return records, fetcher.Stats{Board: table, Pages: 1, Items: len(records)}, nil
}

func newTestEngine(t *testing.T, f BoardFetcher) *Engine {
	t.Helper()
	logger := zap.NewNop()

	c, err := cleaner.NewDataCleaner(logger)
	if err != nil {
		t.Fatalf("NewDataCleaner: %v", err)
	}
	j, err := joiner.NewJoiner(logger)
	if err != nil {
		t.Fatalf("NewJoiner: %v", err)
	}
	a, err := aggregator.NewAggregator(logger)
	if err != nil {
		t.Fatalf("NewAggregator: %v", err)
	}
	g, err := caveat.NewGenerator(logger, caveat.DefaultThreshold)
	if err != nil {
		t.Fatalf("NewGenerator: %v", err)
	}

	eng, err := New(f, c, j, a, g, logger, Options{
		DealsBoardID:      "deals-1",
		WorkOrdersBoardID: "wo-1",
	})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	return eng
}

func rawDeal(name, sector string, value interface{}) model.RawRecord {
	return model.RawRecord{
		Table: model.TableDeals,
		Fields: map[string]interface{}{
			model.DealName:   name,
			model.DealSector: sector,
			model.DealValue:  value,
		},
	}
}

func TestRunSumBySectorWithIncompleteData(t *testing.T) {
	// 100 deals: 2 header-row artifacts, 48 of the rest missing the
	// deal value. The sum must still come out and the caveat must name
	// the incomplete field.
	var raw []model.RawRecord
	raw = append(raw,
		model.RawRecord{Table: model.TableDeals, Fields: map[string]interface{}{
			model.DealName: "name", model.DealSector: "Sector/service",
		}},
		model.RawRecord{Table: model.TableDeals, Fields: map[string]interface{}{
			model.DealName: "NAME", model.DealSector: "sector/service",
		}},
	)
	for i := 0; i < 98; i++ {
		sector := "Agri"
		if i%2 == 1 {
			sector = "Mining"
		}
		var value interface{}
		if i >= 48 {
			value = 100.0
		}
		raw = append(raw, rawDeal(fmt.Sprintf("Deal %d", i), sector, value))
	}

	eng := newTestEngine(t, &fakeFetcher{boards: map[string][]model.RawRecord{
		model.TableDeals: raw,
	}})

	result, err := eng.Run(context.Background(), Request{
		Scope:     model.TableDeals,
		Dimension: "sector",
		Metric:    model.Metric{Kind: model.MetricSum, Field: model.DealValue},
	})
	if err != nil {
		t.Fatalf("Run: %v", err)
	}

	if result.Provenance.FieldStats[0].HeaderRowsDropped != 2 {
		t.Fatalf("header rows dropped = %d, want 2",
			result.Provenance.FieldStats[0].HeaderRowsDropped)
	}

	total := 0.0
	for _, g := range result.Aggregation.Groups {
		total += g.MetricValue
	}
	if total != 5000.0 {
		t.Fatalf("summed value = %v, want 5000", total)
	}

	// 48 of 98 values null, just under half, well above the threshold.
	found := false
	for _, c := range result.Caveats {
		if c.Field == model.DealValue {
			found = true
			if c.NullRate <= 0.20 {
				t.Fatalf("caveat null rate = %v", c.NullRate)
			}
		}
	}
	if !found {
		t.Fatalf("no caveat for the incomplete value field: %v", result.Caveats)
	}
}

func TestRunJoinedScope(t *testing.T) {
	deals := []model.RawRecord{
		rawDeal(" Acme  Corp ", "Agri", 500.0),
		rawDeal("Globex", "Mining", 300.0),
	}
	workOrders := []model.RawRecord{
		{Table: model.TableWorkOrders, Fields: map[string]interface{}{
			model.WODealName:   "acme corp",
			model.WOCollected:  80.0,
			model.WOBilledIncl: 100.0,
		}},
	}

	fake := &fakeFetcher{boards: map[string][]model.RawRecord{
		model.TableDeals:      deals,
		model.TableWorkOrders: workOrders,
	}}
	eng := newTestEngine(t, fake)

	result, err := eng.Run(context.Background(), Request{
		Scope:     model.TableJoined,
		Dimension: "sector",
		Metric:    model.Metric{Kind: model.MetricCollectionRate},
	})
	if err != nil {
		t.Fatalf("Run: %v", err)
	}

	if fake.calls != 2 {
		t.Fatalf("fetch calls = %d, want both boards", fake.calls)
	}

	js := result.Provenance.JoinStats
	if js == nil || js.Matched != 1 || js.DealOnly != 1 {
		t.Fatalf("join stats = %+v", js)
	}

	var agri *model.GroupResult
	for i := range result.Aggregation.Groups {
		if result.Aggregation.Groups[i].GroupKey == "Agri" {
			agri = &result.Aggregation.Groups[i]
		}
	}
	if agri == nil || !agri.Valid || agri.MetricValue != 0.8 {
		t.Fatalf("Agri collection rate = %+v, want 0.8", agri)
	}
}

func TestRunValidatesBeforeFetching(t *testing.T) {
	fake := &fakeFetcher{}
	eng := newTestEngine(t, fake)

	_, err := eng.Run(context.Background(), Request{
		Scope:     model.TableDeals,
		Dimension: "flavor",
		Metric:    model.Metric{Kind: model.MetricCount},
	})
	if !errors.Is(err, aggregator.ErrUnknownDimension) {
		t.Fatalf("err = %v, want ErrUnknownDimension", err)
	}
	if fake.calls != 0 {
		t.Fatalf("invalid request must not fetch, calls = %d", fake.calls)
	}
}

func TestRunFetchFailureIsFatal(t *testing.T) {
	fake := &fakeFetcher{err: &fetcher.FetchExhaustedError{
		Board: model.TableDeals, Attempts: 3, Err: errors.New("rate limited"),
	}}
	eng := newTestEngine(t, fake)

	_, err := eng.Run(context.Background(), Request{
		Scope:     model.TableDeals,
		Dimension: "sector",
		Metric:    model.Metric{Kind: model.MetricCount},
	})

	var exhausted *fetcher.FetchExhaustedError
	if !errors.As(err, &exhausted) {
		t.Fatalf("err = %v, want FetchExhaustedError", err)
	}
}

func TestRunAppliesFilters(t *testing.T) {
	deals := []model.RawRecord{
		rawDeal("A", "Agri", 10.0),
		rawDeal("B", "Mining", 20.0),
		rawDeal("C", "Agri", 30.0),
	}
	eng := newTestEngine(t, &fakeFetcher{boards: map[string][]model.RawRecord{
		model.TableDeals: deals,
	}})

	result, err := eng.Run(context.Background(), Request{
		Scope:     model.TableDeals,
		Dimension: "sector",
		Filters:   map[string][]string{"sector": {"Agri"}},
		Metric:    model.Metric{Kind: model.MetricSum, Field: model.DealValue},
	})
	if err != nil {
		t.Fatalf("Run: %v", err)
	}

	if len(result.Aggregation.Groups) != 1 {
		t.Fatalf("groups = %+v, want only Agri", result.Aggregation.Groups)
	}
	if result.Aggregation.Groups[0].MetricValue != 40.0 {
		t.Fatalf("sum = %v, want 40", result.Aggregation.Groups[0].MetricValue)
	}
}

func TestRunAppliesDateRangeFilter(t *testing.T) {
	withClose := func(name, closeDate string) model.RawRecord {
		fields := map[string]interface{}{
			model.DealName:   name,
			model.DealSector: "Agri",
		}
		if closeDate != "" {
			fields[model.DealCloseDate] = closeDate
		}
		return model.RawRecord{Table: model.TableDeals, Fields: fields}
	}

	deals := []model.RawRecord{
		withClose("A", "2024-01-15"),
		withClose("B", "2024-02-10"),
		withClose("C", "2023-12-31"),
		withClose("D", "2024-05-01"),
		// No close date at all; a record null on the range field is out.
		withClose("E", ""),
	}
	eng := newTestEngine(t, &fakeFetcher{boards: map[string][]model.RawRecord{
		model.TableDeals: deals,
	}})

	result, err := eng.Run(context.Background(), Request{
		Scope:     model.TableDeals,
		Dimension: "sector",
		DateField: model.DealCloseDate,
		DateFrom:  time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC),
		DateTo:    time.Date(2024, 3, 31, 0, 0, 0, 0, time.UTC),
		Metric:    model.Metric{Kind: model.MetricCount},
	})
	if err != nil {
		t.Fatalf("Run: %v", err)
	}

	if len(result.Aggregation.Groups) != 1 {
		t.Fatalf("groups = %+v", result.Aggregation.Groups)
	}
	if got := result.Aggregation.Groups[0].MetricValue; got != 2 {
		t.Fatalf("count = %v, want 2 (only deals closing inside the range)", got)
	}
}

func TestRunRejectsDateRangeWithoutField(t *testing.T) {
	fake := &fakeFetcher{}
	eng := newTestEngine(t, fake)

	_, err := eng.Run(context.Background(), Request{
		Scope:     model.TableDeals,
		Dimension: "sector",
		DateFrom:  time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC),
		Metric:    model.Metric{Kind: model.MetricCount},
	})
	if err == nil {
		t.Fatal("expected error for a date range without a date field")
	}
	if fake.calls != 0 {
		t.Fatalf("invalid request must not fetch, calls = %d", fake.calls)
	}
}

func TestRunRejectsUnknownFilterDimension(t *testing.T) {
	fake := &fakeFetcher{}
	eng := newTestEngine(t, fake)

	_, err := eng.Run(context.Background(), Request{
		Scope:     model.TableDeals,
		Dimension: "sector",
		Filters:   map[string][]string{"flavor": {"spicy"}},
		Metric:    model.Metric{Kind: model.MetricCount},
	})
	if !errors.Is(err, aggregator.ErrUnknownDimension) {
		t.Fatalf("err = %v, want ErrUnknownDimension", err)
	}
	if fake.calls != 0 {
		t.Fatalf("invalid filter must not fetch, calls = %d", fake.calls)
	}
}
