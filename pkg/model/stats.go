// pkg/model/stats.go
package model

// FieldCount tracks value completeness for one field of one board,
// measured after repairs ran.
type FieldCount struct {
	Total    int // Records inspected (post header-row removal)
	Null     int // Values still null after repair
	Repaired int // Values a repair rescued or rewrote
}

// FieldStats aggregates per-field completeness counters for one board.
// It is derived per query from the CleanRecord set in scope and never
// stored between queries.
type FieldStats struct {
	Table             string
	TotalRecords      int // Records surviving header-row removal
	HeaderRowsDropped int
	Fields            map[string]FieldCount
}

// NewFieldStats initializes empty stats for a board.
func NewFieldStats(table string) FieldStats {
	return FieldStats{
		Table:  table,
		Fields: make(map[string]FieldCount),
	}
}

// NullRate returns null_count/total_count for a field, post-repair.
// A field never observed reports 0.
func (fs FieldStats) NullRate(field string) float64 {
	fc, ok := fs.Fields[field]
	if !ok || fc.Total == 0 {
		return 0
	}
	return float64(fc.Null) / float64(fc.Total)
}

// RepairCount returns the total number of repaired values across fields.
func (fs FieldStats) RepairCount() int {
	total := 0
	for _, fc := range fs.Fields {
		total += fc.Repaired
	}
	return total
}
