// pkg/model/join.go
package model

// MatchStatus tags a joined row with its join provenance.
type MatchStatus string

const (
	// MatchStatusMatched means the deal found exactly one work order
	// under the normalized join key.
	MatchStatusMatched MatchStatus = "matched"
	// MatchStatusDealOnly means no work order shares the deal's key.
	MatchStatusDealOnly MatchStatus = "deal_only"
	// MatchStatusWorkOrderOnly means the work order's key never appeared
	// on the deals side.
	MatchStatusWorkOrderOnly MatchStatus = "workorder_only"
)

// JoinedRecord pairs a deal with zero or one matching work order.
// Exactly one of Deal/WorkOrder may be nil depending on Status.
type JoinedRecord struct {
	Deal      *CleanRecord
	WorkOrder *CleanRecord
	Status    MatchStatus
	JoinKey   string // Normalized key the pairing was decided on
}
