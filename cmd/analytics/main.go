// cmd/analytics/main.go
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/David-Botos/board-analytics/pkg/aggregator"
	"github.com/David-Botos/board-analytics/pkg/caveat"
	"github.com/David-Botos/board-analytics/pkg/cleaner"
	"github.com/David-Botos/board-analytics/pkg/config"
	"github.com/David-Botos/board-analytics/pkg/engine"
	"github.com/David-Botos/board-analytics/pkg/fetcher"
	"github.com/David-Botos/board-analytics/pkg/joiner"
	"github.com/David-Botos/board-analytics/pkg/model"
)

func main() {
	scope := flag.String("scope", model.TableDeals, "record scope: deals, workorders, or joined")
	dimension := flag.String("dimension", "sector", "group-by dimension")
	metricKind := flag.String("metric", "count", "metric: sum, count, avg, win_rate, collection_rate")
	metricField := flag.String("field", "", "column the metric reads (sum/avg)")
	filters := flag.String("filter", "", "filters as dim=v1|v2,dim2=v3")
	dateField := flag.String("date-field", "", "date column for range filtering")
	dateFrom := flag.String("from", "", "range start, YYYY-MM-DD")
	dateTo := flag.String("to", "", "range end, YYYY-MM-DD")
	timeout := flag.Duration("timeout", 2*time.Minute, "overall query timeout")
	flag.Parse()

	// .env is optional; real deployments set the environment directly.
	_ = godotenv.Load()

	cfg, err := config.LoadConfig()
	if err != nil {
		fmt.Fprintf(os.Stderr, "configuration error: %v\n", err)
		os.Exit(1)
	}

	logger, err := buildLogger(cfg.LogLevel, cfg.LogFormat)
	if err != nil {
		fmt.Fprintf(os.Stderr, "logger error: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()

	eng, err := buildEngine(cfg, logger)
	if err != nil {
		logger.Fatal("Failed to build engine", zap.Error(err))
	}

	req := engine.Request{
		Scope:     *scope,
		Dimension: *dimension,
		Metric: model.Metric{
			Kind:  model.MetricKind(*metricKind),
			Field: *metricField,
		},
		DateField: *dateField,
	}

	if req.Filters, err = parseFilters(*filters); err != nil {
		logger.Fatal("Invalid filter", zap.Error(err))
	}
	if req.DateFrom, err = parseDate(*dateFrom); err != nil {
		logger.Fatal("Invalid from date", zap.Error(err))
	}
	if req.DateTo, err = parseDate(*dateTo); err != nil {
		logger.Fatal("Invalid to date", zap.Error(err))
	}

	ctx, cancel := context.WithTimeout(context.Background(), *timeout)
	defer cancel()

	result, err := eng.Run(ctx, req)
	if err != nil {
		eng.Metrics().LogSummary()
		logger.Fatal("Query failed", zap.Error(err))
	}
	eng.Metrics().LogSummary()

	out, err := json.MarshalIndent(result, "", "  ")
	if err != nil {
		logger.Fatal("Failed to encode result", zap.Error(err))
	}
	fmt.Println(string(out))
}

func buildEngine(cfg *config.Config, logger *zap.Logger) (*engine.Engine, error) {
	f, err := fetcher.New(cfg.Monday, logger)
	if err != nil {
		return nil, err
	}
	c, err := cleaner.NewDataCleaner(logger)
	if err != nil {
		return nil, err
	}
	j, err := joiner.NewJoiner(logger)
	if err != nil {
		return nil, err
	}
	a, err := aggregator.NewAggregator(logger)
	if err != nil {
		return nil, err
	}
	g, err := caveat.NewGenerator(logger, cfg.CaveatThreshold)
	if err != nil {
		return nil, err
	}

	return engine.New(f, c, j, a, g, logger, engine.Options{
		DealsBoardID:      cfg.DealsBoardID,
		WorkOrdersBoardID: cfg.WorkOrdersBoardID,
	})
}

func buildLogger(level, format string) (*zap.Logger, error) {
	var zapLevel zapcore.Level
	if err := zapLevel.UnmarshalText([]byte(level)); err != nil {
		return nil, fmt.Errorf("invalid log level %q: %w", level, err)
	}

	zapCfg := zap.NewProductionConfig()
	if format == "console" {
		zapCfg = zap.NewDevelopmentConfig()
	}
	zapCfg.Level = zap.NewAtomicLevelAt(zapLevel)

	return zapCfg.Build()
}

// parseFilters decodes "dim=v1|v2,dim2=v3" into the request filter map.
func parseFilters(raw string) (map[string][]string, error) {
	if raw == "" {
		return nil, nil
	}

	filters := make(map[string][]string)
	for _, pair := range strings.Split(raw, ",") {
		parts := strings.SplitN(pair, "=", 2)
		if len(parts) != 2 || parts[0] == "" || parts[1] == "" {
			return nil, fmt.Errorf("malformed filter %q, want dim=value", pair)
		}
		filters[parts[0]] = append(filters[parts[0]], strings.Split(parts[1], "|")...)
	}
	return filters, nil
}

func parseDate(raw string) (time.Time, error) {
	if raw == "" {
		return time.Time{}, nil
	}
	return time.Parse("2006-01-02", raw)
}
