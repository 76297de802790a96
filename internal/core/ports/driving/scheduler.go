package driving

import (
	"context"

	"github.com/hedgeintel/filingqa/internal/core/domain"
)

// Monitor periodically refreshes the configured watchlist of filings.
type Monitor interface {
	// Start begins running scheduled refreshes.
	// Blocks until context is cancelled or Stop is called.
	Start(ctx context.Context) error

	// Stop gracefully stops the monitor and waits for a running refresh.
	Stop() error

	// Tasks returns a snapshot of task state.
	Tasks() []domain.ScheduledTask
}
