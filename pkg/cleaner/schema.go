// pkg/cleaner/schema.go
package cleaner

import "github.com/David-Botos/board-analytics/pkg/model"

// EnumTable drives typo/enum normalization for one categorical field.
// Corrections is an explicit raw→canonical lookup; Canonical is the set
// of values the field may legitimately take. Values outside both pass
// through unchanged with an "unrecognized" note, never silently coerced.
type EnumTable struct {
	Corrections map[string]string
	Canonical   map[string]bool
}

// Schema declares how each field of a board is repaired. Fields not
// listed anywhere are treated as free-form strings (trimmed, empty→null).
type Schema struct {
	Table          string
	NumberFields   []string
	DateFields     []string
	QuantityFields []string
	EnumFields     map[string]EnumTable
}

// DealsSchema returns the repair schema for the Deals board
func DealsSchema() Schema {
	return Schema{
		Table:        model.TableDeals,
		NumberFields: []string{model.DealValue},
		DateFields: []string{
			model.DealCloseDate,
			model.DealTentativeClose,
			model.DealCreatedDate,
		},
		EnumFields: map[string]EnumTable{
			model.DealStatus: {
				Canonical: map[string]bool{
					"Won":     true,
					"Dead":    true,
					"Open":    true,
					"On Hold": true,
				},
			},
			model.DealProbability: {
				Canonical: map[string]bool{
					"High":   true,
					"Medium": true,
					"Low":    true,
				},
			},
		},
	}
}

// WorkOrdersSchema returns the repair schema for the Work Orders board
func WorkOrdersSchema() Schema {
	return Schema{
		Table: model.TableWorkOrders,
		NumberFields: []string{
			model.WOAmount,
			model.WOAmountIncl,
			model.WOBilled,
			model.WOBilledIncl,
			model.WOCollected,
			model.WOReceivable,
			model.WOToBillExcl,
			model.WOToBillIncl,
		},
		QuantityFields: []string{
			model.WOQuantityPO,
			model.WOQuantityOps,
			model.WOQuantityBalance,
		},
		EnumFields: map[string]EnumTable{
			model.WOBillingStatus: {
				// Known upstream misspelling; corrections are additive
				// lookup entries, not code changes.
				Corrections: map[string]string{
					"BIlled": "Billed",
				},
				Canonical: map[string]bool{
					"Billed":           true,
					"Partially Billed": true,
					"Not Billable":     true,
					"Update Required":  true,
					"Stuck":            true,
				},
			},
			model.WOStatus: {
				Canonical: map[string]bool{
					"Closed": true,
					"Open":   true,
				},
			},
		},
	}
}

func (s Schema) isNumberField(field string) bool   { return containsField(s.NumberFields, field) }
func (s Schema) isDateField(field string) bool     { return containsField(s.DateFields, field) }
func (s Schema) isQuantityField(field string) bool { return containsField(s.QuantityFields, field) }

func (s Schema) isEnumField(field string) bool {
	_, ok := s.EnumFields[field]
	return ok
}

// declaredFields returns every field the schema knows about
func (s Schema) declaredFields() []string {
	fields := make([]string, 0,
		len(s.NumberFields)+len(s.DateFields)+len(s.QuantityFields)+len(s.EnumFields))
	fields = append(fields, s.NumberFields...)
	fields = append(fields, s.DateFields...)
	fields = append(fields, s.QuantityFields...)
	for field := range s.EnumFields {
		fields = append(fields, field)
	}
	return fields
}

func containsField(fields []string, field string) bool {
	for _, f := range fields {
		if f == field {
			return true
		}
	}
	return false
}
