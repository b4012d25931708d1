// pkg/fetcher/client.go
package fetcher

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"time"

	"go.uber.org/zap"

	"github.com/David-Botos/board-analytics/pkg/config"
)

// Client is a thin GraphQL-over-HTTP client for the Monday.com API with
// retry and exponential backoff for transient failures. It carries no
// state beyond configuration; every call is independent.
type Client struct {
	cfg        *config.MondayConfig
	httpClient *http.Client
	logger     *zap.Logger

	// sleep is swappable so tests can retry without waiting.
	sleep func(ctx context.Context, d time.Duration) error
}

// NewClient creates a new Client instance
func NewClient(cfg *config.MondayConfig, logger *zap.Logger) (*Client, error) {
	if cfg == nil {
		return nil, errors.New("config cannot be nil")
	}
	if logger == nil {
		return nil, errors.New("logger cannot be nil")
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid board API config: %w", err)
	}

	return &Client{
		cfg:        cfg,
		httpClient: &http.Client{Timeout: cfg.RequestTimeout},
		logger:     logger,
		sleep:      sleepWithContext,
	}, nil
}

type graphqlRequest struct {
	Query     string                 `json:"query"`
	Variables map[string]interface{} `json:"variables,omitempty"`
}

type graphqlError struct {
	Message string `json:"message"`
}

type graphqlResponse struct {
	Data   json.RawMessage `json:"data"`
	Errors []graphqlError  `json:"errors,omitempty"`
}

// Execute posts one GraphQL query and decodes the data envelope into
// out. Transient failures (network errors, 429, 5xx) are retried with
// exponential backoff up to the configured attempt budget; GraphQL-level
// errors are terminal since resending an invalid query cannot help.
// The first return is the number of attempts consumed, so callers can
// report a terminal first-attempt failure as one attempt, not the
// whole budget.
func (c *Client) Execute(ctx context.Context, query string, variables map[string]interface{}, out interface{}) (int, error) {
	body, err := json.Marshal(graphqlRequest{Query: query, Variables: variables})
	if err != nil {
		return 0, fmt.Errorf("failed to encode query: %w", err)
	}

	var lastErr error
	backoff := c.cfg.InitialBackoff

	for attempt := 1; attempt <= c.cfg.MaxAttempts; attempt++ {
		if attempt > 1 {
			c.logger.Warn("Retrying board API request",
				zap.Int("attempt", attempt),
				zap.Duration("backoff", backoff),
				zap.Error(lastErr))
			if err := c.sleep(ctx, backoff); err != nil {
				return attempt - 1, err
			}
			backoff *= 2
			if backoff > c.cfg.MaxBackoff {
				backoff = c.cfg.MaxBackoff
			}
		}

		retryable, err := c.doOnce(ctx, body, out)
		if err == nil {
			return attempt, nil
		}
		if !retryable {
			return attempt, err
		}
		lastErr = err
	}

	return c.cfg.MaxAttempts, lastErr
}

// doOnce performs a single request/decode cycle. The bool return says
// whether the failure is worth retrying.
func (c *Client) doOnce(ctx context.Context, body []byte, out interface{}) (bool, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.cfg.APIURL, bytes.NewReader(body))
	if err != nil {
		return false, fmt.Errorf("failed to build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", c.cfg.APIKey)
	req.Header.Set("API-Version", c.cfg.APIVersion)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return true, fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return true, fmt.Errorf("failed to read response: %w", err)
	}

	switch {
	case resp.StatusCode == http.StatusTooManyRequests:
		// Honor an explicit Retry-After before the normal backoff kicks in.
		if after := retryAfter(resp); after > 0 {
			if err := c.sleep(ctx, after); err != nil {
				return false, err
			}
		}
		return true, fmt.Errorf("rate limited (status %d)", resp.StatusCode)
	case resp.StatusCode >= 500:
		return true, fmt.Errorf("server error (status %d)", resp.StatusCode)
	case resp.StatusCode != http.StatusOK:
		return false, fmt.Errorf("unexpected status %d: %s", resp.StatusCode, truncate(respBody, 200))
	}

	var envelope graphqlResponse
	if err := json.Unmarshal(respBody, &envelope); err != nil {
		return false, fmt.Errorf("failed to decode response: %w", err)
	}
	if len(envelope.Errors) > 0 {
		return false, fmt.Errorf("graphql error: %s", envelope.Errors[0].Message)
	}
	if out != nil {
		if err := json.Unmarshal(envelope.Data, out); err != nil {
			return false, fmt.Errorf("failed to decode data: %w", err)
		}
	}

	return false, nil
}

func retryAfter(resp *http.Response) time.Duration {
	seconds, err := strconv.Atoi(resp.Header.Get("Retry-After"))
	if err != nil || seconds <= 0 {
		return 0
	}
	return time.Duration(seconds) * time.Second
}

func truncate(b []byte, n int) string {
	if len(b) <= n {
		return string(b)
	}
	return string(b[:n]) + "..."
}

func sleepWithContext(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
