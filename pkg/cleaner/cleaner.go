// pkg/cleaner/cleaner.go
package cleaner

import (
	"errors"
	"sort"

	"go.uber.org/zap"

	"github.com/David-Botos/board-analytics/pkg/model"
)

// DataCleaner repairs one board's raw records in isolation and accounts
// for what it could not rescue. Repairs never fail hard: a value the
// cleaner cannot parse becomes null with a note, and the batch continues.
type DataCleaner struct {
	logger *zap.Logger
}

// NewDataCleaner creates a new DataCleaner instance
func NewDataCleaner(logger *zap.Logger) (*DataCleaner, error) {
	if logger == nil {
		return nil, errors.New("logger cannot be nil")
	}
	return &DataCleaner{logger: logger}, nil
}

// CleanDeals cleans a batch of Deals board records
func (c *DataCleaner) CleanDeals(records []model.RawRecord) ([]model.CleanRecord, model.FieldStats) {
	return c.Clean(DealsSchema(), records)
}

// CleanWorkOrders cleans a batch of Work Orders board records
func (c *DataCleaner) CleanWorkOrders(records []model.RawRecord) ([]model.CleanRecord, model.FieldStats) {
	return c.Clean(WorkOrdersSchema(), records)
}

// Clean repairs a batch of raw records against a board schema and
// returns the cleaned records plus post-repair completeness stats.
// Repairs run in a fixed order: header-row removal first, then per-field
// enum normalization, date normalization, quantity parsing, and number
// parsing; null accounting runs last over the repaired values.
func (c *DataCleaner) Clean(schema Schema, records []model.RawRecord) ([]model.CleanRecord, model.FieldStats) {
	stats := model.NewFieldStats(schema.Table)
	cleaned := make([]model.CleanRecord, 0, len(records))

	// The stats universe is every field the schema declares plus every
	// field observed anywhere in the batch, so a field absent from one
	// record still counts as null for that record.
	universe := fieldUniverse(schema, records)

	for _, record := range records {
		if isHeaderRow(record.Fields) {
			stats.HeaderRowsDropped++
			c.logger.Debug("Dropped header-row artifact",
				zap.String("table", schema.Table))
			continue
		}

		cleanedRecord := c.cleanSingleRecord(schema, record)
		cleaned = append(cleaned, cleanedRecord)

		stats.TotalRecords++
		accountRecord(&stats, universe, cleanedRecord)
	}

	c.logger.Info("Cleaned board records",
		zap.String("table", schema.Table),
		zap.Int("input", len(records)),
		zap.Int("output", len(cleaned)),
		zap.Int("headerRowsDropped", stats.HeaderRowsDropped),
		zap.Int("repairs", stats.RepairCount()))

	return cleaned, stats
}

// cleanSingleRecord repairs every field of a single record
func (c *DataCleaner) cleanSingleRecord(schema Schema, record model.RawRecord) model.CleanRecord {
	out := model.CleanRecord{
		Table:  schema.Table,
		Fields: make(map[string]interface{}, len(record.Fields)),
		Units:  make(map[string]string),
	}

	for field, value := range record.Fields {
		var cleanedValue interface{}
		var note *model.RepairNote

		switch {
		case schema.isEnumField(field):
			cleanedValue, note = cleanEnumValue(value, schema.EnumFields[field], field, schema.Table)
		case schema.isDateField(field):
			cleanedValue, note = cleanDateValue(value, field, schema.Table)
		case schema.isQuantityField(field):
			var unit string
			cleanedValue, unit, note = cleanQuantityValue(value, field, schema.Table)
			if unit != "" {
				out.Units[field] = unit
			}
		case schema.isNumberField(field):
			cleanedValue, note = cleanNumberValue(value, field, schema.Table)
		default:
			cleanedValue = normalizeString(value)
		}

		out.Fields[field] = cleanedValue
		if note != nil {
			out.Notes = append(out.Notes, *note)
		}
	}

	return out
}

// accountRecord updates per-field null/repair counters for one record
func accountRecord(stats *model.FieldStats, universe []string, record model.CleanRecord) {
	repairedFields := make(map[string]bool, len(record.Notes))
	for _, note := range record.Notes {
		repairedFields[note.Field] = true
	}

	for _, field := range universe {
		fc := stats.Fields[field]
		fc.Total++
		if record.Get(field) == nil {
			fc.Null++
		}
		if repairedFields[field] {
			fc.Repaired++
		}
		stats.Fields[field] = fc
	}
}

// fieldUniverse returns the sorted union of schema-declared fields and
// fields observed in the batch
func fieldUniverse(schema Schema, records []model.RawRecord) []string {
	seen := make(map[string]bool)
	for _, field := range schema.declaredFields() {
		seen[field] = true
	}
	for _, record := range records {
		for field := range record.Fields {
			seen[field] = true
		}
	}

	universe := make([]string, 0, len(seen))
	for field := range seen {
		universe = append(universe, field)
	}
	sort.Strings(universe)
	return universe
}
