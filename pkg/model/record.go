// pkg/model/record.go
package model

import "time"

// RawRecord is a single board row exactly as the fetcher decoded it.
// Field values are untyped (string, float64, or nil); Table records which
// board the row came from.
type RawRecord struct {
	Table  string
	Fields map[string]interface{}
}

// CleanRecord is a RawRecord after repair. Numeric fields hold float64,
// date fields hold time.Time, and anything the cleaner could not rescue
// is nil. Units holds the unit tokens stripped from quantity fields so
// downstream consumers can still surface them.
type CleanRecord struct {
	Table  string
	Fields map[string]interface{}
	Units  map[string]string
	Notes  []RepairNote
}

// Get returns the value of a field, or nil if absent.
func (r CleanRecord) Get(field string) interface{} {
	if r.Fields == nil {
		return nil
	}
	return r.Fields[field]
}

// Number returns the field as a float64 if it holds a numeric value.
func (r CleanRecord) Number(field string) (float64, bool) {
	switch v := r.Get(field).(type) {
	case float64:
		return v, true
	case int:
		return float64(v), true
	case int64:
		return float64(v), true
	default:
		return 0, false
	}
}

// String returns the field as a string if it holds one.
func (r CleanRecord) String(field string) (string, bool) {
	s, ok := r.Get(field).(string)
	return s, ok
}

// Date returns the field as a time.Time if it holds one.
func (r CleanRecord) Date(field string) (time.Time, bool) {
	t, ok := r.Get(field).(time.Time)
	return t, ok
}

// RepairNote describes a single repair the cleaner applied (or could not
// apply) to one field of one record.
type RepairNote struct {
	Table         string      // Board the record came from
	Field         string      // Field that was repaired
	OriginalValue interface{} // Value before repair (may be nil)
	NewValue      string      // Value after repair, formatted for display
	Operation     string      // Kind of repair (e.g. "typo_fix", "date_parse_failed")
	Reason        string      // Why the repair was needed (e.g. "known_misspelling")
}

// Repair operation kinds recorded in RepairNote.Operation.
const (
	OpHeaderRowDropped  = "header_row_dropped"
	OpTypoFix           = "typo_fix"
	OpUnrecognizedEnum  = "unrecognized_enum"
	OpEnumParseFailed   = "enum_parse_failed"
	OpDateNormalized    = "date_normalized"
	OpDateParseFailed   = "date_parse_failed"
	OpQuantityParsed    = "quantity_parsed"
	OpQuantityFailed    = "quantity_parse_failed"
	OpNumberParsed      = "number_parsed"
	OpNumberParseFailed = "number_parse_failed"
)
