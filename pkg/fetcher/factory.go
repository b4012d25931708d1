// pkg/fetcher/factory.go
package fetcher

import (
	"fmt"

	"go.uber.org/zap"

	"github.com/David-Botos/board-analytics/pkg/config"
)

// New builds a ready-to-use BoardFetcher from configuration, wiring the
// HTTP client underneath. Callers that need to stub the transport can
// construct the pieces themselves instead.
func New(cfg *config.MondayConfig, logger *zap.Logger) (*BoardFetcher, error) {
	client, err := NewClient(cfg, logger)
	if err != nil {
		return nil, fmt.Errorf("failed to create board API client: %w", err)
	}

	f, err := NewBoardFetcher(client, logger)
	if err != nil {
		return nil, fmt.Errorf("failed to create board fetcher: %w", err)
	}

	return f, nil
}
