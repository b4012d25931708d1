// pkg/joiner/joiner_test.go
package joiner

import (
	"testing"

	"go.uber.org/zap"

	"github.com/David-Botos/board-analytics/pkg/model"
)

func newTestJoiner(t *testing.T) *Joiner {
	t.Helper()
	j, err := NewJoiner(zap.NewNop())
	if err != nil {
		t.Fatalf("NewJoiner: %v", err)
	}
	return j
}

func deal(name string) model.CleanRecord {
	return model.CleanRecord{
		Table:  model.TableDeals,
		Fields: map[string]interface{}{model.DealName: name},
	}
}

func workOrder(dealName string, extra map[string]interface{}) model.CleanRecord {
	fields := map[string]interface{}{model.WODealName: dealName}
	for k, v := range extra {
		fields[k] = v
	}
	return model.CleanRecord{Table: model.TableWorkOrders, Fields: fields}
}

func TestNormalizeKey(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{" Acme  Corp ", "acme corp"},
		{"acme corp", "acme corp"},
		{"ACME\tCORP", "acme corp"},
		{"Ácme Çorp", "acme corp"},
		{"", ""},
		{"   ", ""},
	}

	for _, tt := range tests {
		if got := NormalizeKey(tt.in); got != tt.want {
			t.Fatalf("NormalizeKey(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestJoinMatchesOnNormalizedName(t *testing.T) {
	j := newTestJoiner(t)

	joined, stats := j.Join(
		[]model.CleanRecord{deal(" Acme  Corp ")},
		[]model.CleanRecord{workOrder("acme corp", nil)},
	)

	if stats.Matched != 1 || stats.DealOnly != 0 || stats.WorkOrderOnly != 0 {
		t.Fatalf("stats = %+v, want exactly one match", stats)
	}
	if joined[0].Status != model.MatchStatusMatched {
		t.Fatalf("status = %s, want matched", joined[0].Status)
	}
	if joined[0].JoinKey != "acme corp" {
		t.Fatalf("join key = %q", joined[0].JoinKey)
	}
}

func TestJoinPreservesUnmatchedRows(t *testing.T) {
	j := newTestJoiner(t)

	deals := []model.CleanRecord{deal("Alpha"), deal("Beta")}
	workOrders := []model.CleanRecord{
		workOrder("Beta", nil),
		workOrder("Gamma", nil),
	}

	joined, stats := j.Join(deals, workOrders)

	if len(joined) != 3 {
		t.Fatalf("expected 3 output rows, got %d", len(joined))
	}
	if stats.Matched != 1 || stats.DealOnly != 1 || stats.WorkOrderOnly != 1 {
		t.Fatalf("stats = %+v", stats)
	}

	byStatus := make(map[model.MatchStatus]int)
	for _, row := range joined {
		byStatus[row.Status]++
	}
	if byStatus[model.MatchStatusDealOnly] != 1 || byStatus[model.MatchStatusWorkOrderOnly] != 1 {
		t.Fatalf("status distribution = %v", byStatus)
	}
}

func TestJoinAmbiguousKeyTakesFirstFetched(t *testing.T) {
	j := newTestJoiner(t)

	workOrders := []model.CleanRecord{
		workOrder("Acme", map[string]interface{}{model.WOSerial: "WO-1"}),
		workOrder("acme", map[string]interface{}{model.WOSerial: "WO-2"}),
	}

	joined, stats := j.Join([]model.CleanRecord{deal("Acme")}, workOrders)

	if len(stats.AmbiguousKeys) != 1 || stats.AmbiguousKeys[0] != "acme" {
		t.Fatalf("ambiguous keys = %v", stats.AmbiguousKeys)
	}
	if serial, _ := joined[0].WorkOrder.String(model.WOSerial); serial != "WO-1" {
		t.Fatalf("tie-break picked %q, want first-fetched WO-1", serial)
	}
	if stats.Matched != 1 {
		t.Fatalf("stats = %+v", stats)
	}
}

func TestJoinIgnoresEmptyNames(t *testing.T) {
	j := newTestJoiner(t)

	joined, stats := j.Join(
		[]model.CleanRecord{deal("")},
		[]model.CleanRecord{workOrder("   ", nil)},
	)

	// Empty keys never pair up; both rows survive as singles.
	if stats.Matched != 0 {
		t.Fatalf("empty keys must not match, stats = %+v", stats)
	}
	if len(joined) != 2 {
		t.Fatalf("expected both rows preserved, got %d", len(joined))
	}
	if stats.DealOnly != 1 || stats.WorkOrderOnly != 1 {
		t.Fatalf("stats = %+v", stats)
	}
}
