// pkg/cleaner/operations.go
package cleaner

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/David-Botos/board-analytics/pkg/model"
)

// isHeaderRow detects rows whose values duplicate the column names,
// which happens when a malformed export carries its header as data.
// The rule is a majority of the record's non-null fields matching their
// own field name (case-insensitive), with at least two matches required
// so a single coincidental match never drops a record.
func isHeaderRow(fields map[string]interface{}) bool {
	nonNull := 0
	matches := 0

	for name, value := range fields {
		str, ok := asNonEmptyString(value)
		if value == nil || (ok && str == "") {
			continue
		}
		nonNull++
		if ok && strings.EqualFold(str, name) {
			matches++
		}
	}

	return matches >= 2 && matches*2 > nonNull
}

// cleanEnumValue normalizes a categorical value through the field's
// explicit correction lookup. Values outside the canonical set pass
// through unchanged with a note; they are never silently coerced.
func cleanEnumValue(
	value interface{},
	table EnumTable,
	field, board string,
) (interface{}, *model.RepairNote) {
	if value == nil {
		return nil, nil
	}

	str, ok := asNonEmptyString(value)
	if !ok {
		return nil, unsupportedTypeNote(value, field, board, model.OpEnumParseFailed)
	}
	if str == "" {
		return nil, nil
	}

	if canonical, found := table.Corrections[str]; found {
		return canonical, &model.RepairNote{
			Table:         board,
			Field:         field,
			OriginalValue: str,
			NewValue:      canonical,
			Operation:     model.OpTypoFix,
			Reason:        "known_misspelling",
		}
	}

	if len(table.Canonical) > 0 && !table.Canonical[str] {
		return str, &model.RepairNote{
			Table:         board,
			Field:         field,
			OriginalValue: str,
			NewValue:      str,
			Operation:     model.OpUnrecognizedEnum,
			Reason:        "value_outside_canonical_set",
		}
	}

	return str, nil
}

// dateFormats is the fixed-priority parse cascade for textual dates:
// ISO-8601 first, then locale-specific fallbacks. First success wins.
var dateFormats = []string{
	"2006-01-02",
	time.RFC3339,
	"2006-01-02T15:04:05",
	"2006-01-02T15:04:05.999999",
	"2006-01-02 15:04:05",
	"January 2, 2006",
	"Jan 2, 2006",
	"02-01-2006",
	"02/01/2006",
	"01/02/2006",
}

// cleanDateValue normalizes a date that may arrive as a native time
// value or as a string in one of several known textual formats. Total
// parse failure yields null with a note; the record is kept.
func cleanDateValue(value interface{}, field, board string) (interface{}, *model.RepairNote) {
	if value == nil {
		return nil, nil
	}

	if t, ok := value.(time.Time); ok {
		return t, nil
	}

	str, ok := asNonEmptyString(value)
	if !ok {
		return nil, unsupportedTypeNote(value, field, board, model.OpDateParseFailed)
	}
	if str == "" {
		return nil, nil
	}

	for i, format := range dateFormats {
		t, err := time.Parse(format, str)
		if err != nil {
			continue
		}
		// Canonical ISO input needs no note; any fallback format is a
		// normalization worth recording.
		if i == 0 {
			return t, nil
		}
		return t, &model.RepairNote{
			Table:         board,
			Field:         field,
			OriginalValue: str,
			NewValue:      t.Format("2006-01-02"),
			Operation:     model.OpDateNormalized,
			Reason:        fmt.Sprintf("parsed_with_fallback_format_%d", i),
		}
	}

	return nil, &model.RepairNote{
		Table:         board,
		Field:         field,
		OriginalValue: str,
		NewValue:      "",
		Operation:     model.OpDateParseFailed,
		Reason:        "no_known_format_matched",
	}
}

// quantityPattern matches a leading numeric magnitude with an optional
// trailing unit token, e.g. "5360 HA" or "120".
var quantityPattern = regexp.MustCompile(`^\s*(-?\d[\d,]*(?:\.\d+)?)\s*([A-Za-z%]{1,8})?\s*$`)

// cleanQuantityValue parses a quantity that may be a bare number or a
// number with a trailing unit token. The unit is stripped for
// aggregation but returned separately so it is not silently lost.
func cleanQuantityValue(value interface{}, field, board string) (interface{}, string, *model.RepairNote) {
	switch v := value.(type) {
	case nil:
		return nil, "", nil
	case float64:
		return v, "", nil
	case int:
		return float64(v), "", nil
	case int64:
		return float64(v), "", nil
	}

	str, ok := asNonEmptyString(value)
	if !ok {
		return nil, "", unsupportedTypeNote(value, field, board, model.OpQuantityFailed)
	}
	if str == "" {
		return nil, "", nil
	}

	m := quantityPattern.FindStringSubmatch(str)
	if m == nil {
		return nil, "", &model.RepairNote{
			Table:         board,
			Field:         field,
			OriginalValue: str,
			NewValue:      "",
			Operation:     model.OpQuantityFailed,
			Reason:        "no_leading_numeric_portion",
		}
	}

	numeric, err := strconv.ParseFloat(strings.ReplaceAll(m[1], ",", ""), 64)
	if err != nil {
		return nil, "", &model.RepairNote{
			Table:         board,
			Field:         field,
			OriginalValue: str,
			NewValue:      "",
			Operation:     model.OpQuantityFailed,
			Reason:        "numeric_portion_unparsable",
		}
	}

	unit := m[2]
	if unit == "" {
		return numeric, "", nil
	}

	return numeric, unit, &model.RepairNote{
		Table:         board,
		Field:         field,
		OriginalValue: str,
		NewValue:      strconv.FormatFloat(numeric, 'f', -1, 64),
		Operation:     model.OpQuantityParsed,
		Reason:        "unit_token_stripped",
	}
}

// cleanNumberValue parses a numeric field that may arrive as a number
// or as a string with comma separators
func cleanNumberValue(value interface{}, field, board string) (interface{}, *model.RepairNote) {
	switch v := value.(type) {
	case nil:
		return nil, nil
	case float64:
		return v, nil
	case int:
		return float64(v), nil
	case int64:
		return float64(v), nil
	}

	str, ok := asNonEmptyString(value)
	if !ok {
		return nil, unsupportedTypeNote(value, field, board, model.OpNumberParseFailed)
	}
	if str == "" {
		return nil, nil
	}

	cleaned := strings.ReplaceAll(str, ",", "")
	numeric, err := strconv.ParseFloat(cleaned, 64)
	if err != nil {
		return nil, &model.RepairNote{
			Table:         board,
			Field:         field,
			OriginalValue: str,
			NewValue:      "",
			Operation:     model.OpNumberParseFailed,
			Reason:        "not_a_number",
		}
	}

	return numeric, &model.RepairNote{
		Table:         board,
		Field:         field,
		OriginalValue: str,
		NewValue:      strconv.FormatFloat(numeric, 'f', -1, 64),
		Operation:     model.OpNumberParsed,
		Reason:        "string_numeric_normalized",
	}
}

// normalizeString trims free-form string fields and maps empties to null
func normalizeString(value interface{}) interface{} {
	str, ok := asNonEmptyString(value)
	if !ok {
		return value
	}
	if str == "" {
		return nil
	}
	return str
}

// unsupportedTypeNote records that a typed field carried a non-null
// value of a type its repair cannot read. The value still becomes null,
// never silently: a null without a note would be indistinguishable from
// data that was never there.
func unsupportedTypeNote(value interface{}, field, board, operation string) *model.RepairNote {
	return &model.RepairNote{
		Table:         board,
		Field:         field,
		OriginalValue: value,
		NewValue:      "",
		Operation:     operation,
		Reason:        "unsupported_value_type",
	}
}

// asNonEmptyString converts a value to a trimmed string. The second
// return is false when the value is not string-like at all.
func asNonEmptyString(value interface{}) (string, bool) {
	switch v := value.(type) {
	case string:
		return strings.TrimSpace(v), true
	case []byte:
		return strings.TrimSpace(string(v)), true
	default:
		return "", false
	}
}
