// pkg/model/boards.go
package model

// Board names used as origin tags and stats scopes.
const (
	TableDeals      = "deals"
	TableWorkOrders = "workorders"
	// TableJoined is the scope tag for records produced by the joiner.
	TableJoined = "joined"
)

// Deals board columns. Column titles come from the upstream board and
// include its masking suffixes verbatim.
const (
	DealName           = "name"
	DealValue          = "Masked Deal value"
	DealStatus         = "Deal Status"
	DealStage          = "Deal Stage"
	DealSector         = "Sector/service"
	DealOwner          = "Owner code"
	DealProbability    = "Closure Probability"
	DealTentativeClose = "Tentative Close Date"
	DealCloseDate      = "Close Date (A)"
	DealCreatedDate    = "Created Date"
)

// Work Orders board columns.
const (
	WODealName        = "Deal name masked"
	WOSerial          = "Serial #"
	WOCustomer        = "Customer Name Code"
	WOSector          = "Sector"
	WOExecutionStatus = "Execution Status"
	WOBillingStatus   = "Billing Status"
	WONatureOfWork    = "Nature of Work"
	WOStatus          = "WO Status (billed)"
	WOOwner           = "BD/KAM Personnel code"
	WOAmount          = "Amount in Rupees (Excl of GST) (Masked)"
	WOAmountIncl      = "Amount in Rupees (Incl of GST) (Masked)"
	WOBilled          = "Billed Value in Rupees (Excl of GST.) (Masked)"
	WOBilledIncl      = "Billed Value in Rupees (Incl of GST.) (Masked)"
	WOCollected       = "Collected Amount in Rupees (Incl of GST.) (Masked)"
	WOReceivable      = "Amount Receivable (Masked)"
	WOToBillExcl      = "Amount to be billed in Rupees (Excl of GST.) (Masked)"
	WOToBillIncl      = "Amount to be billed in Rupees (Incl of GST.) (Masked)"
	WOQuantityPO      = "Quantities as per PO"
	WOQuantityOps     = "Quantity by Ops"
	WOQuantityBalance = "Balance in quantity"
)

// Deal status outcome catalog. WIN_RATE counts DealStatusWon over the
// closed-outcome set; open statuses stay out of the denominator.
const (
	DealStatusWon  = "Won"
	DealStatusDead = "Dead"
)

// ClosedOutcomes is the terminal status set for WIN_RATE denominators.
var ClosedOutcomes = map[string]bool{
	DealStatusWon:  true,
	DealStatusDead: true,
}

// dimensionColumns maps logical group-by dimensions to board columns.
// The two boards name the same concept differently, so each scope
// carries its own mapping; the joined scope sees both boards' columns.
var dimensionColumns = map[string]map[string]string{
	TableDeals: {
		"sector": DealSector,
		"owner":  DealOwner,
		"stage":  DealStage,
		"status": DealStatus,
	},
	TableWorkOrders: {
		"sector":           WOSector,
		"owner":            WOOwner,
		"execution_status": WOExecutionStatus,
		"nature_of_work":   WONatureOfWork,
		"billing_status":   WOBillingStatus,
	},
	TableJoined: {
		"sector":           DealSector,
		"owner":            DealOwner,
		"stage":            DealStage,
		"status":           DealStatus,
		"execution_status": WOExecutionStatus,
		"nature_of_work":   WONatureOfWork,
	},
}

// DimensionColumn resolves a logical dimension to the column it reads
// within a scope. The second return is false for unknown dimensions.
func DimensionColumn(table, dimension string) (string, bool) {
	cols, ok := dimensionColumns[table]
	if !ok {
		return "", false
	}
	col, ok := cols[dimension]
	return col, ok
}

// Dimensions lists the logical dimensions a scope supports.
func Dimensions(table string) []string {
	cols := dimensionColumns[table]
	out := make([]string, 0, len(cols))
	for d := range cols {
		out = append(out, d)
	}
	return out
}
