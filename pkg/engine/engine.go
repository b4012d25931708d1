// pkg/engine/engine.go
package engine

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/David-Botos/board-analytics/pkg/aggregator"
	"github.com/David-Botos/board-analytics/pkg/caveat"
	"github.com/David-Botos/board-analytics/pkg/cleaner"
	"github.com/David-Botos/board-analytics/pkg/fetcher"
	"github.com/David-Botos/board-analytics/pkg/joiner"
	"github.com/David-Botos/board-analytics/pkg/model"
)

// BoardFetcher is the upstream dependency the engine needs: a complete
// snapshot of one board. Satisfied by fetcher.BoardFetcher in production
// and by fixtures in tests.
type BoardFetcher interface {
	FetchBoard(ctx context.Context, table, boardID string) ([]model.RawRecord, fetcher.Stats, error)
}

// Engine runs the full pipeline for one question: fetch, repair, join,
// aggregate, caveat. It holds only its collaborators; no data survives
// between calls, so every answer reflects a fresh board snapshot.
type Engine struct {
	fetcher    BoardFetcher
	cleaner    *cleaner.DataCleaner
	joiner     *joiner.Joiner
	aggregator *aggregator.Aggregator
	caveats    *caveat.Generator
	logger     *zap.Logger
	metrics    *RunMetrics

	dealsBoardID      string
	workOrdersBoardID string
}

// Options carries the board identifiers the engine queries.
type Options struct {
	DealsBoardID      string
	WorkOrdersBoardID string
}

// New creates a new Engine instance
func New(
	f BoardFetcher,
	c *cleaner.DataCleaner,
	j *joiner.Joiner,
	a *aggregator.Aggregator,
	g *caveat.Generator,
	logger *zap.Logger,
	opts Options,
) (*Engine, error) {
	if f == nil {
		return nil, errors.New("fetcher cannot be nil")
	}
	if c == nil {
		return nil, errors.New("cleaner cannot be nil")
	}
	if j == nil {
		return nil, errors.New("joiner cannot be nil")
	}
	if a == nil {
		return nil, errors.New("aggregator cannot be nil")
	}
	if g == nil {
		return nil, errors.New("caveat generator cannot be nil")
	}
	if logger == nil {
		return nil, errors.New("logger cannot be nil")
	}
	if opts.DealsBoardID == "" || opts.WorkOrdersBoardID == "" {
		return nil, errors.New("both board IDs are required")
	}

	return &Engine{
		fetcher:           f,
		cleaner:           c,
		joiner:            j,
		aggregator:        a,
		caveats:           g,
		logger:            logger,
		metrics:           NewRunMetrics(logger),
		dealsBoardID:      opts.DealsBoardID,
		workOrdersBoardID: opts.WorkOrdersBoardID,
	}, nil
}

// Request is one business question: a scope (which board, or the join
// of both), optional filters, a group-by dimension, and a metric.
type Request struct {
	// Scope is model.TableDeals, model.TableWorkOrders, or model.TableJoined.
	Scope string

	// Filters restricts records before aggregation. Keys are logical
	// dimensions; a record passes a key when its value matches any of
	// the listed values (OR within a key, AND across keys).
	Filters map[string][]string

	// Optional date-range restriction on one date column.
	DateField string
	DateFrom  time.Time
	DateTo    time.Time

	Dimension string
	Metric    model.Metric
}

// Timing records wall-clock durations of the pipeline stages.
type Timing struct {
	Fetch    time.Duration
	Pipeline time.Duration
	Total    time.Duration
}

// Provenance explains where an answer came from: what was fetched, what
// the repairs found, and how the join resolved.
type Provenance struct {
	FetchStats []fetcher.Stats
	FieldStats []model.FieldStats
	JoinStats  *joiner.Stats
}

// Result is a fully answered request.
type Result struct {
	QueryID     uuid.UUID
	Aggregation model.AggregationResult
	Caveats     []model.Caveat
	Provenance  Provenance
	Timing      Timing
}

// Run answers one request end to end. The metric and dimension are
// validated before any board is fetched, so a malformed request never
// spends API budget. Fetch failure is the only fatal path; everything
// downstream repairs and annotates instead of failing.
func (e *Engine) Run(ctx context.Context, req Request) (*Result, error) {
	start := time.Now()
	queryID := uuid.New()

	if err := aggregator.Validate(req.Scope, req.Dimension, req.Metric); err != nil {
		return nil, err
	}
	if err := validateFilters(req); err != nil {
		return nil, err
	}

	e.logger.Info("Running analytics query",
		zap.String("queryID", queryID.String()),
		zap.String("scope", req.Scope),
		zap.String("dimension", req.Dimension),
		zap.String("metric", string(req.Metric.Kind)))

	result := &Result{QueryID: queryID}

	records, err := e.assemble(ctx, req, result)
	if err != nil {
		e.metrics.RecordFailure()
		return nil, err
	}
	fetchDone := time.Now()

	records = applyFilters(req, records)

	agg, err := e.aggregator.Aggregate(req.Scope, records, req.Dimension, req.Metric)
	if err != nil {
		return nil, err
	}
	result.Aggregation = agg

	result.Caveats = e.caveats.Generate(result.Provenance.FieldStats, fieldsInScope(req))
	if result.Provenance.JoinStats != nil {
		if c := caveat.AmbiguityCaveat(result.Provenance.JoinStats.AmbiguousKeys); c != nil {
			result.Caveats = append(result.Caveats, *c)
		}
	}

	result.Timing = Timing{
		Fetch:    fetchDone.Sub(start),
		Pipeline: time.Since(fetchDone),
		Total:    time.Since(start),
	}

	e.metrics.RecordQuery(result)

	e.logger.Info("Query complete",
		zap.String("queryID", queryID.String()),
		zap.Int("groups", len(agg.Groups)),
		zap.Int("caveats", len(result.Caveats)),
		zap.Duration("elapsed", result.Timing.Total))

	return result, nil
}

// Metrics exposes the engine's lifetime counters for shutdown reporting.
func (e *Engine) Metrics() *RunMetrics {
	return e.metrics
}

// assemble fetches and cleans the boards the scope needs and, for the
// joined scope, merges them. Stats land in the result's provenance as a
// side effect.
func (e *Engine) assemble(ctx context.Context, req Request, result *Result) ([]model.CleanRecord, error) {
	switch req.Scope {
	case model.TableDeals:
		raw, fs, err := e.fetcher.FetchBoard(ctx, model.TableDeals, e.dealsBoardID)
		if err != nil {
			return nil, err
		}
		cleaned, stats := e.cleaner.CleanDeals(raw)
		result.Provenance.FetchStats = append(result.Provenance.FetchStats, fs)
		result.Provenance.FieldStats = append(result.Provenance.FieldStats, stats)
		return cleaned, nil

	case model.TableWorkOrders:
		raw, fs, err := e.fetcher.FetchBoard(ctx, model.TableWorkOrders, e.workOrdersBoardID)
		if err != nil {
			return nil, err
		}
		cleaned, stats := e.cleaner.CleanWorkOrders(raw)
		result.Provenance.FetchStats = append(result.Provenance.FetchStats, fs)
		result.Provenance.FieldStats = append(result.Provenance.FieldStats, stats)
		return cleaned, nil

	case model.TableJoined:
		var rawDeals, rawWOs []model.RawRecord
		var fsDeals, fsWOs fetcher.Stats

		// The two boards are independent upstream resources, so the
		// snapshots are pulled concurrently.
		g, gctx := errgroup.WithContext(ctx)
		g.Go(func() error {
			var err error
			rawDeals, fsDeals, err = e.fetcher.FetchBoard(gctx, model.TableDeals, e.dealsBoardID)
			return err
		})
		g.Go(func() error {
			var err error
			rawWOs, fsWOs, err = e.fetcher.FetchBoard(gctx, model.TableWorkOrders, e.workOrdersBoardID)
			return err
		})
		if err := g.Wait(); err != nil {
			return nil, err
		}

		deals, dealStats := e.cleaner.CleanDeals(rawDeals)
		workOrders, woStats := e.cleaner.CleanWorkOrders(rawWOs)

		joined, joinStats := e.joiner.Join(deals, workOrders)

		result.Provenance.FetchStats = append(result.Provenance.FetchStats, fsDeals, fsWOs)
		result.Provenance.FieldStats = append(result.Provenance.FieldStats, dealStats, woStats)
		result.Provenance.JoinStats = &joinStats

		return flattenJoined(joined), nil
	}

	return nil, fmt.Errorf("unknown scope %q", req.Scope)
}

// flattenJoined merges each joined pair into one record so the
// aggregator can read both boards' columns uniformly. Column names are
// disjoint across the boards, so the merge cannot collide.
func flattenJoined(joined []model.JoinedRecord) []model.CleanRecord {
	out := make([]model.CleanRecord, 0, len(joined))
	for _, jr := range joined {
		merged := model.CleanRecord{
			Table:  model.TableJoined,
			Fields: make(map[string]interface{}),
			Units:  make(map[string]string),
		}
		for _, side := range []*model.CleanRecord{jr.Deal, jr.WorkOrder} {
			if side == nil {
				continue
			}
			for k, v := range side.Fields {
				merged.Fields[k] = v
			}
			for k, v := range side.Units {
				merged.Units[k] = v
			}
			merged.Notes = append(merged.Notes, side.Notes...)
		}
		out = append(out, merged)
	}
	return out
}

// validateFilters rejects filter keys and date fields the scope cannot
// resolve, before any fetch happens.
func validateFilters(req Request) error {
	for dim := range req.Filters {
		if _, ok := model.DimensionColumn(req.Scope, dim); !ok {
			return fmt.Errorf("%w: filter %q for scope %q",
				aggregator.ErrUnknownDimension, dim, req.Scope)
		}
	}
	if req.DateField == "" && (!req.DateFrom.IsZero() || !req.DateTo.IsZero()) {
		return errors.New("date range requires a date field")
	}
	return nil
}

// applyFilters drops records that fail any filter key or fall outside
// the date range. A record null on a filtered dimension fails that
// filter; a record null on the date field fails the date range.
func applyFilters(req Request, records []model.CleanRecord) []model.CleanRecord {
	if len(req.Filters) == 0 && req.DateField == "" {
		return records
	}

	out := make([]model.CleanRecord, 0, len(records))
	for _, record := range records {
		if matchesFilters(req, record) {
			out = append(out, record)
		}
	}
	return out
}

func matchesFilters(req Request, record model.CleanRecord) bool {
	for dim, allowed := range req.Filters {
		column, _ := model.DimensionColumn(req.Scope, dim)
		value, ok := record.String(column)
		if !ok {
			return false
		}
		found := false
		for _, want := range allowed {
			if value == want {
				found = true
				break
			}
		}
		if !found {
			return false
		}
	}

	if req.DateField != "" {
		t, ok := record.Date(req.DateField)
		if !ok {
			return false
		}
		if !req.DateFrom.IsZero() && t.Before(req.DateFrom) {
			return false
		}
		if !req.DateTo.IsZero() && t.After(req.DateTo) {
			return false
		}
	}

	return true
}

// fieldsInScope lists, per board, the fields the request actually
// reads. Caveats are generated only for these, so an incomplete column
// the question never touched stays out of the answer.
func fieldsInScope(req Request) map[string][]string {
	scope := make(map[string][]string)
	add := func(table, field string) {
		for _, f := range scope[table] {
			if f == field {
				return
			}
		}
		scope[table] = append(scope[table], field)
	}

	// The dimension and metric columns belong to specific boards even
	// in the joined scope; resolve them against each board's catalog.
	resolve := func(field string) {
		for _, table := range []string{model.TableDeals, model.TableWorkOrders} {
			if fieldBelongsTo(table, field) {
				add(table, field)
			}
		}
	}

	if col, ok := model.DimensionColumn(req.Scope, req.Dimension); ok {
		if req.Scope == model.TableJoined {
			resolve(col)
		} else {
			add(req.Scope, col)
		}
	}

	switch req.Metric.Kind {
	case model.MetricSum, model.MetricAvg:
		if req.Scope == model.TableJoined {
			resolve(req.Metric.Field)
		} else {
			add(req.Scope, req.Metric.Field)
		}
	case model.MetricWinRate:
		add(model.TableDeals, model.DealStatus)
	case model.MetricCollectionRate:
		add(model.TableWorkOrders, model.WOCollected)
		add(model.TableWorkOrders, model.WOBilledIncl)
	}

	if req.Scope == model.TableJoined {
		add(model.TableDeals, model.DealName)
		add(model.TableWorkOrders, model.WODealName)
	}

	return scope
}

// fieldBelongsTo reports whether a column name is part of a board's
// catalog, via the board's dimension map and known value columns.
func fieldBelongsTo(table, field string) bool {
	for _, dim := range model.Dimensions(table) {
		if col, _ := model.DimensionColumn(table, dim); col == field {
			return true
		}
	}
	switch table {
	case model.TableDeals:
		switch field {
		case model.DealName, model.DealValue, model.DealCloseDate,
			model.DealTentativeClose, model.DealCreatedDate, model.DealProbability:
			return true
		}
	case model.TableWorkOrders:
		switch field {
		case model.WODealName, model.WOAmount, model.WOAmountIncl,
			model.WOBilled, model.WOBilledIncl, model.WOCollected,
			model.WOReceivable, model.WOToBillExcl, model.WOToBillIncl,
			model.WOQuantityPO, model.WOQuantityOps, model.WOQuantityBalance,
			model.WOSerial, model.WOCustomer, model.WOStatus:
			return true
		}
	}
	return false
}
