// pkg/caveat/caveat.go
package caveat

import (
	"errors"
	"fmt"
	"sort"

	"go.uber.org/zap"

	"github.com/David-Botos/board-analytics/pkg/model"
)

// DefaultThreshold is the null-rate above which a field earns a
// completeness caveat. The comparison is strict: a field at exactly the
// threshold stays quiet.
const DefaultThreshold = 0.20

// Generator turns post-repair field stats into advisory completeness
// caveats. Caveats annotate an answer; they never change its numbers.
type Generator struct {
	logger    *zap.Logger
	threshold float64
}

// NewGenerator creates a new Generator instance. A non-positive
// threshold falls back to the default.
func NewGenerator(logger *zap.Logger, threshold float64) (*Generator, error) {
	if logger == nil {
		return nil, errors.New("logger cannot be nil")
	}
	if threshold <= 0 {
		threshold = DefaultThreshold
	}
	return &Generator{logger: logger, threshold: threshold}, nil
}

// Generate emits one caveat per in-scope field whose post-repair null
// rate strictly exceeds the threshold. Only fields the query actually
// read are considered; an unrelated incomplete column never muddies an
// answer it did not touch. Output order is deterministic: by table,
// then field.
func (g *Generator) Generate(stats []model.FieldStats, fieldsInScope map[string][]string) []model.Caveat {
	var caveats []model.Caveat

	for _, boardStats := range stats {
		fields := fieldsInScope[boardStats.Table]
		sorted := make([]string, len(fields))
		copy(sorted, fields)
		sort.Strings(sorted)

		for _, field := range sorted {
			rate := boardStats.NullRate(field)
			if rate <= g.threshold {
				continue
			}
			caveats = append(caveats, model.Caveat{
				Table:    boardStats.Table,
				Field:    field,
				NullRate: rate,
				Message: fmt.Sprintf(
					"%.0f%% of %q values on the %s board are missing after repair; results that read this field undercount accordingly",
					rate*100, field, boardStats.Table),
			})
		}
	}

	if len(caveats) > 0 {
		g.logger.Info("Generated completeness caveats",
			zap.Int("count", len(caveats)),
			zap.Float64("threshold", g.threshold))
	}

	return caveats
}

// AmbiguityCaveat describes duplicate join keys surfaced by the joiner.
// It is advisory like every other caveat; the join itself already picked
// the first work order in fetch order.
func AmbiguityCaveat(keys []string) *model.Caveat {
	if len(keys) == 0 {
		return nil
	}
	return &model.Caveat{
		Table: model.TableJoined,
		Field: "join_key",
		Message: fmt.Sprintf(
			"%d deal name(s) matched more than one work order; the earliest-fetched work order was used for each",
			len(keys)),
	}
}
