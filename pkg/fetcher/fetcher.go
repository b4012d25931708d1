// pkg/fetcher/fetcher.go
package fetcher

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/David-Botos/board-analytics/pkg/model"
)

// BoardFetcher pulls complete board snapshots from the upstream API via
// cursor pagination. Every fetch is fresh; nothing is cached between
// queries, so results always reflect the boards as they are now.
type BoardFetcher struct {
	client *Client
	logger *zap.Logger
}

// NewBoardFetcher creates a new BoardFetcher instance
func NewBoardFetcher(client *Client, logger *zap.Logger) (*BoardFetcher, error) {
	if client == nil {
		return nil, errors.New("client cannot be nil")
	}
	if logger == nil {
		return nil, errors.New("logger cannot be nil")
	}
	return &BoardFetcher{client: client, logger: logger}, nil
}

// Stats reports what one board fetch pulled and how long it took.
type Stats struct {
	Board   string
	Pages   int
	Items   int
	Elapsed time.Duration
}

const firstPageQuery = `
query ($boardID: ID!, $limit: Int!) {
  boards(ids: [$boardID]) {
    items_page(limit: $limit) {
      cursor
      items {
        id
        name
        column_values {
          id
          text
          value
          column { title }
        }
      }
    }
  }
}`

const nextPageQuery = `
query ($cursor: String!, $limit: Int!) {
  next_items_page(cursor: $cursor, limit: $limit) {
    cursor
    items {
      id
      name
      column_values {
        id
        text
        value
        column { title }
      }
    }
  }
}`

type columnValue struct {
	ID     string          `json:"id"`
	Text   *string         `json:"text"`
	Value  json.RawMessage `json:"value"`
	Column struct {
		Title string `json:"title"`
	} `json:"column"`
}

type boardItem struct {
	ID           string        `json:"id"`
	Name         string        `json:"name"`
	ColumnValues []columnValue `json:"column_values"`
}

type itemsPage struct {
	Cursor *string     `json:"cursor"`
	Items  []boardItem `json:"items"`
}

type firstPageData struct {
	Boards []struct {
		ItemsPage itemsPage `json:"items_page"`
	} `json:"boards"`
}

type nextPageData struct {
	NextItemsPage itemsPage `json:"next_items_page"`
}

// FetchBoard retrieves every item on a board, following the pagination
// cursor until it is exhausted. Records come back in API order, which
// downstream tie-breaking depends on. A failure after the retry budget
// is spent surfaces as a FetchExhaustedError.
func (f *BoardFetcher) FetchBoard(ctx context.Context, table, boardID string) ([]model.RawRecord, Stats, error) {
	start := time.Now()
	stats := Stats{Board: table}
	var records []model.RawRecord

	var first firstPageData
	attempts, err := f.client.Execute(ctx, firstPageQuery, map[string]interface{}{
		"boardID": boardID,
		"limit":   f.client.cfg.PageLimit,
	}, &first)
	if err != nil {
		return nil, stats, &FetchExhaustedError{
			Board:    table,
			Attempts: attempts,
			Err:      err,
		}
	}
	if len(first.Boards) == 0 {
		return nil, stats, &FetchExhaustedError{
			Board:    table,
			Attempts: 1,
			Err:      fmt.Errorf("board %s not found", boardID),
		}
	}

	page := first.Boards[0].ItemsPage
	for {
		stats.Pages++
		for _, item := range page.Items {
			records = append(records, flattenItem(table, item))
		}

		if page.Cursor == nil || *page.Cursor == "" {
			break
		}

		var next nextPageData
		attempts, err := f.client.Execute(ctx, nextPageQuery, map[string]interface{}{
			"cursor": *page.Cursor,
			"limit":  f.client.cfg.PageLimit,
		}, &next)
		if err != nil {
			return nil, stats, &FetchExhaustedError{
				Board:    table,
				Attempts: attempts,
				Err:      err,
			}
		}
		page = next.NextItemsPage
	}

	stats.Items = len(records)
	stats.Elapsed = time.Since(start)

	f.logger.Info("Fetched board snapshot",
		zap.String("table", table),
		zap.String("boardID", boardID),
		zap.Int("pages", stats.Pages),
		zap.Int("items", stats.Items),
		zap.Duration("elapsed", stats.Elapsed))

	return records, stats, nil
}

// flattenItem converts one board item into a flat field map keyed by
// column title. The item's display name becomes the "name" field, which
// on the Deals board is the deal name the join runs on.
func flattenItem(table string, item boardItem) model.RawRecord {
	fields := make(map[string]interface{}, len(item.ColumnValues)+1)
	fields[model.DealName] = item.Name

	for _, cv := range item.ColumnValues {
		title := cv.Column.Title
		if title == "" {
			title = cv.ID
		}
		fields[title] = columnText(cv)
	}

	return model.RawRecord{Table: table, Fields: fields}
}

// columnText extracts a column's display value. The text field is
// preferred; when the API leaves it empty (status and dropdown columns
// sometimes do), the raw JSON value's label or text member is used.
func columnText(cv columnValue) interface{} {
	if cv.Text != nil && *cv.Text != "" {
		return *cv.Text
	}
	if len(cv.Value) == 0 || string(cv.Value) == "null" {
		return nil
	}

	var decoded struct {
		Label *string `json:"label"`
		Text  *string `json:"text"`
	}
	if err := json.Unmarshal(cv.Value, &decoded); err == nil {
		if decoded.Label != nil && *decoded.Label != "" {
			return *decoded.Label
		}
		if decoded.Text != nil && *decoded.Text != "" {
			return *decoded.Text
		}
	}

	return nil
}
