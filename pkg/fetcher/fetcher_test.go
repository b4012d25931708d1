// pkg/fetcher/fetcher_test.go
package fetcher

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"go.uber.org/zap"

	"github.com/David-Botos/board-analytics/pkg/config"
	"github.com/David-Botos/board-analytics/pkg/model"
)

func testConfig(url string) *config.MondayConfig {
	return &config.MondayConfig{
		APIURL:         url,
		APIKey:         "test-key",
		APIVersion:     "2024-10",
		PageLimit:      2,
		RequestTimeout: 5 * time.Second,
		MaxAttempts:    3,
		InitialBackoff: time.Millisecond,
		MaxBackoff:     4 * time.Millisecond,
	}
}

func newTestFetcher(t *testing.T, url string) *BoardFetcher {
	t.Helper()
	client, err := NewClient(testConfig(url), zap.NewNop())
	if err != nil {
		t.Fatalf("NewClient: %v", err)
	}
	client.sleep = func(context.Context, time.Duration) error { return nil }

	f, err := NewBoardFetcher(client, zap.NewNop())
	if err != nil {
		t.Fatalf("NewBoardFetcher: %v", err)
	}
	return f
}

func itemJSON(id, name string, columns ...map[string]interface{}) map[string]interface{} {
	return map[string]interface{}{
		"id":            id,
		"name":          name,
		"column_values": columns,
	}
}

func column(title, text string) map[string]interface{} {
	return map[string]interface{}{
		"id":     "c_" + title,
		"text":   text,
		"value":  nil,
		"column": map[string]interface{}{"title": title},
	}
}

func TestFetchBoardFollowsCursor(t *testing.T) {
	var requests int
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requests++

		var req struct {
			Variables map[string]interface{} `json:"variables"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Errorf("decode request: %v", err)
		}

		var page map[string]interface{}
		if _, first := req.Variables["boardID"]; first {
			page = map[string]interface{}{
				"cursor": "page-2",
				"items": []interface{}{
					itemJSON("1", "Deal A", column("Sector/service", "Agri")),
					itemJSON("2", "Deal B", column("Sector/service", "Mining")),
				},
			}
			writeGraphQL(w, map[string]interface{}{
				"boards": []interface{}{map[string]interface{}{"items_page": page}},
			})
			return
		}

		if cursor := req.Variables["cursor"]; cursor != "page-2" {
			t.Errorf("cursor = %v, want page-2", cursor)
		}
		page = map[string]interface{}{
			"cursor": nil,
			"items": []interface{}{
				itemJSON("3", "Deal C", column("Sector/service", "Agri")),
			},
		}
		writeGraphQL(w, map[string]interface{}{"next_items_page": page})
	}))
	defer server.Close()

	f := newTestFetcher(t, server.URL)
	records, stats, err := f.FetchBoard(context.Background(), model.TableDeals, "123")
	if err != nil {
		t.Fatalf("FetchBoard: %v", err)
	}

	if requests != 2 || stats.Pages != 2 {
		t.Fatalf("requests = %d, pages = %d, want 2 each", requests, stats.Pages)
	}
	if len(records) != 3 || stats.Items != 3 {
		t.Fatalf("records = %d, stats.Items = %d, want 3", len(records), stats.Items)
	}

	// Fetch order must be preserved; downstream tie-breaking relies on it.
	if name := records[0].Fields[model.DealName]; name != "Deal A" {
		t.Fatalf("first record = %v", name)
	}
	if sector := records[2].Fields["Sector/service"]; sector != "Agri" {
		t.Fatalf("column flattening lost sector, got %v", sector)
	}
}

func TestFetchRetriesTransientFailures(t *testing.T) {
	var requests int
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requests++
		if requests < 3 {
			w.WriteHeader(http.StatusInternalServerError)
			return
		}
		writeGraphQL(w, map[string]interface{}{
			"boards": []interface{}{map[string]interface{}{
				"items_page": map[string]interface{}{
					"cursor": nil,
					"items":  []interface{}{itemJSON("1", "Deal A")},
				},
			}},
		})
	}))
	defer server.Close()

	f := newTestFetcher(t, server.URL)
	records, _, err := f.FetchBoard(context.Background(), model.TableDeals, "123")
	if err != nil {
		t.Fatalf("FetchBoard after retries: %v", err)
	}
	if requests != 3 {
		t.Fatalf("requests = %d, want 3", requests)
	}
	if len(records) != 1 {
		t.Fatalf("records = %d, want 1", len(records))
	}
}

func TestFetchExhaustionIsFatalAndTyped(t *testing.T) {
	var requests int
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requests++
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer server.Close()

	f := newTestFetcher(t, server.URL)
	_, _, err := f.FetchBoard(context.Background(), model.TableDeals, "123")

	var exhausted *FetchExhaustedError
	if !errors.As(err, &exhausted) {
		t.Fatalf("error = %v, want FetchExhaustedError", err)
	}
	if exhausted.Board != model.TableDeals {
		t.Fatalf("board = %q", exhausted.Board)
	}
	if exhausted.Attempts != 3 {
		t.Fatalf("attempts = %d, want 3", exhausted.Attempts)
	}
	if requests != 3 {
		t.Fatalf("requests = %d, want full retry budget of 3", requests)
	}
}

func TestGraphQLErrorsAreNotRetried(t *testing.T) {
	var requests int
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requests++
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(map[string]interface{}{
			"errors": []interface{}{map[string]interface{}{"message": "invalid board id"}},
		})
	}))
	defer server.Close()

	f := newTestFetcher(t, server.URL)
	_, _, err := f.FetchBoard(context.Background(), model.TableDeals, "bogus")
	if err == nil {
		t.Fatal("expected error")
	}
	if requests != 1 {
		t.Fatalf("requests = %d, query errors must not be retried", requests)
	}

	// The terminal failure consumed one attempt and must say so.
	var exhausted *FetchExhaustedError
	if !errors.As(err, &exhausted) {
		t.Fatalf("error = %v, want FetchExhaustedError", err)
	}
	if exhausted.Attempts != 1 {
		t.Fatalf("attempts = %d, want 1 for a never-retried failure", exhausted.Attempts)
	}
}

func TestColumnTextFallsBackToValueLabel(t *testing.T) {
	raw := json.RawMessage(`{"label":"Won"}`)
	got := columnText(columnValue{Value: raw})
	if got != "Won" {
		t.Fatalf("columnText = %v, want Won", got)
	}

	empty := ""
	got = columnText(columnValue{Text: &empty, Value: json.RawMessage(`null`)})
	if got != nil {
		t.Fatalf("empty column should be nil, got %v", got)
	}
}

func writeGraphQL(w http.ResponseWriter, data map[string]interface{}) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]interface{}{"data": data})
}
