// pkg/joiner/joiner.go
package joiner

import (
	"errors"
	"sort"

	"go.uber.org/zap"

	"github.com/David-Botos/board-analytics/pkg/model"
)

// Joiner merges cleaned Deals and Work Orders records on a normalized
// deal-name key. The two boards use differently named columns for that
// value (Deals "name", Work Orders "Deal name masked"); the joiner owns
// that mapping. Client/company identifier columns are deliberately not
// used: the boards keep disjoint identifier namespaces, so an
// identifier join would silently produce zero or wrong matches.
type Joiner struct {
	logger *zap.Logger
}

// NewJoiner creates a new Joiner instance
func NewJoiner(logger *zap.Logger) (*Joiner, error) {
	if logger == nil {
		return nil, errors.New("logger cannot be nil")
	}
	return &Joiner{logger: logger}, nil
}

// Stats reports join provenance counts for one invocation.
type Stats struct {
	Matched       int
	DealOnly      int
	WorkOrderOnly int

	// AmbiguousKeys lists normalized keys that more than one work order
	// mapped to. The tie-break keeps the first work order in fetch
	// order; the ambiguity is surfaced rather than guessed away.
	AmbiguousKeys []string
}

// Join merges deals and work orders into a combined record set with
// per-row join provenance. Every input row appears in the output
// exactly once as matched, deal_only, or workorder_only; nothing is
// silently dropped.
func (j *Joiner) Join(deals, workOrders []model.CleanRecord) ([]model.JoinedRecord, Stats) {
	var stats Stats

	// Lookup from normalized key to work orders, built from the work
	// order side (the smaller table), preserving fetch order per key.
	lookup := make(map[string][]*model.CleanRecord, len(workOrders))
	keyOrder := make([]string, 0, len(workOrders))
	var keyless []*model.CleanRecord
	for i := range workOrders {
		name, _ := workOrders[i].String(model.WODealName)
		key := NormalizeKey(name)
		if key == "" {
			// An empty key can never pair up, but the row still counts.
			keyless = append(keyless, &workOrders[i])
			continue
		}
		if _, seen := lookup[key]; !seen {
			keyOrder = append(keyOrder, key)
		}
		lookup[key] = append(lookup[key], &workOrders[i])
	}

	for key, candidates := range lookup {
		if len(candidates) > 1 {
			stats.AmbiguousKeys = append(stats.AmbiguousKeys, key)
			j.logger.Warn("Multiple work orders share a normalized join key",
				zap.String("key", key),
				zap.Int("candidates", len(candidates)))
		}
	}
	sort.Strings(stats.AmbiguousKeys)

	joined := make([]model.JoinedRecord, 0, len(deals)+len(workOrders))
	matchedKeys := make(map[string]bool)

	for i := range deals {
		name, _ := deals[i].String(model.DealName)
		key := NormalizeKey(name)

		candidates := lookup[key]
		if key == "" || len(candidates) == 0 {
			stats.DealOnly++
			joined = append(joined, model.JoinedRecord{
				Deal:    &deals[i],
				Status:  model.MatchStatusDealOnly,
				JoinKey: key,
			})
			continue
		}

		// First-seen-by-fetch-order tie-break on duplicate keys.
		matchedKeys[key] = true
		stats.Matched++
		joined = append(joined, model.JoinedRecord{
			Deal:      &deals[i],
			WorkOrder: candidates[0],
			Status:    model.MatchStatusMatched,
			JoinKey:   key,
		})
	}

	for _, wo := range keyless {
		stats.WorkOrderOnly++
		joined = append(joined, model.JoinedRecord{
			WorkOrder: wo,
			Status:    model.MatchStatusWorkOrderOnly,
		})
	}

	// Work orders whose key never matched a deal are kept as
	// workorder_only rows, in fetch order.
	for _, key := range keyOrder {
		if matchedKeys[key] {
			continue
		}
		for _, wo := range lookup[key] {
			stats.WorkOrderOnly++
			joined = append(joined, model.JoinedRecord{
				WorkOrder: wo,
				Status:    model.MatchStatusWorkOrderOnly,
				JoinKey:   key,
			})
		}
	}

	j.logger.Info("Joined boards on normalized deal name",
		zap.Int("matched", stats.Matched),
		zap.Int("dealOnly", stats.DealOnly),
		zap.Int("workOrderOnly", stats.WorkOrderOnly),
		zap.Int("ambiguousKeys", len(stats.AmbiguousKeys)))

	return joined, stats
}
