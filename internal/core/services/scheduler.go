package services

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/hedgeintel/filingqa/internal/core/domain"
	"github.com/hedgeintel/filingqa/internal/core/ports/driving"
	"github.com/hedgeintel/filingqa/internal/logger"
)

// Ensure Monitor implements the interface.
var _ driving.Monitor = (*Monitor)(nil)

// defaultTick is how often the monitor checks for due tasks.
const defaultTick = time.Minute

// Monitor re-ingests a watchlist of filings on a fixed interval so that
// amendments and newly published documents replace what is indexed.
// Unchanged filings are skipped by the indexer, so a refresh is cheap.
type Monitor struct {
	ingest driving.IngestService
	refs   []domain.DocumentRef
	tick   time.Duration
	now    func() time.Time

	mu      sync.Mutex
	task    domain.ScheduledTask
	history []domain.TaskResult
	running bool
	stopCh  chan struct{}
	wg      sync.WaitGroup
}

// maxHistory bounds the results kept in memory.
const maxHistory = 100

// NewMonitor creates a monitor for every ticker and document type pair
// in settings. Unknown document types are rejected.
func NewMonitor(ingest driving.IngestService, settings domain.MonitorSettings) (*Monitor, error) {
	refs, err := watchlist(settings)
	if err != nil {
		return nil, err
	}
	interval := settings.Interval.Std()
	if interval <= 0 {
		return nil, fmt.Errorf("%w: monitor interval must be positive", domain.ErrConfig)
	}

	return &Monitor{
		ingest: ingest,
		refs:   refs,
		tick:   min(defaultTick, interval),
		now:    time.Now,
		task: domain.ScheduledTask{
			ID:       domain.TaskIDFilingRefresh,
			Interval: interval,
		},
	}, nil
}

func watchlist(settings domain.MonitorSettings) ([]domain.DocumentRef, error) {
	var refs []domain.DocumentRef
	for _, ticker := range settings.Tickers {
		for _, name := range settings.DocumentTypes {
			docType, err := domain.ParseDocumentType(name)
			if err != nil {
				return nil, err
			}
			ref, err := domain.NewDocumentRef(ticker, docType)
			if err != nil {
				return nil, err
			}
			refs = append(refs, ref)
		}
	}
	if len(refs) == 0 {
		return nil, fmt.Errorf("%w: monitor watchlist is empty", domain.ErrConfig)
	}
	return refs, nil
}

// Start runs the monitor loop. The first refresh runs immediately.
// Blocks until ctx is cancelled or Stop is called.
func (m *Monitor) Start(ctx context.Context) error {
	m.mu.Lock()
	if m.running {
		m.mu.Unlock()
		return nil
	}
	m.running = true
	m.stopCh = make(chan struct{})
	stopCh := m.stopCh
	m.mu.Unlock()

	logger.Info("Monitor started: %d filings every %s", len(m.refs), m.task.Interval)
	return m.run(ctx, stopCh)
}

// Stop gracefully shuts down the monitor and waits for a running refresh.
func (m *Monitor) Stop() error {
	m.mu.Lock()
	if !m.running {
		m.mu.Unlock()
		return nil
	}
	m.running = false
	close(m.stopCh)
	m.mu.Unlock()

	m.wg.Wait()
	return nil
}

// Tasks returns a snapshot of task state.
func (m *Monitor) Tasks() []domain.ScheduledTask {
	m.mu.Lock()
	defer m.mu.Unlock()
	return []domain.ScheduledTask{m.task}
}

// History returns the most recent results, oldest first.
func (m *Monitor) History() []domain.TaskResult {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]domain.TaskResult, len(m.history))
	copy(out, m.history)
	return out
}

func (m *Monitor) run(ctx context.Context, stopCh <-chan struct{}) error {
	m.runIfDue(ctx)

	ticker := time.NewTicker(m.tick)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			m.wg.Wait()
			return ctx.Err()
		case <-stopCh:
			return nil
		case <-ticker.C:
			m.runIfDue(ctx)
		}
	}
}

// runIfDue refreshes the watchlist when the task is due. Refreshes never
// overlap: the task is pushed forward before the work starts.
func (m *Monitor) runIfDue(ctx context.Context) {
	m.mu.Lock()
	now := m.now()
	if !m.task.IsDue(now) {
		m.mu.Unlock()
		return
	}
	m.task.NextRun = now.Add(m.task.Interval)
	m.mu.Unlock()

	m.wg.Add(1)
	go func() {
		defer m.wg.Done()
		m.record(m.refresh(ctx))
	}()
}

// refresh ingests every watched filing.
func (m *Monitor) refresh(ctx context.Context) domain.TaskResult {
	result := domain.TaskResult{
		TaskID:    m.task.ID,
		StartedAt: m.now(),
	}

	var failures []string
	for _, res := range m.ingest.IngestMany(ctx, m.refs) {
		if res.Err != nil {
			result.ItemsFailed++
			failures = append(failures, fmt.Sprintf("%s: %v", res.Ref, res.Err))
			logger.Warn("Monitor: %s failed: %v", res.Ref, res.Err)
			continue
		}
		result.ItemsProcessed++
		if !res.Skipped {
			logger.Info("Monitor: %s updated (%d chunks)", res.Ref, res.Chunks)
		}
	}

	result.EndedAt = m.now()
	result.Error = strings.Join(failures, "; ")
	return result
}

func (m *Monitor) record(result domain.TaskResult) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.task.LastRun = result.StartedAt
	m.task.NextRun = result.EndedAt.Add(m.task.Interval)
	m.task.LastError = result.Error
	if result.Success() {
		m.task.LastSuccess = result.EndedAt
	}

	m.history = append(m.history, result)
	if len(m.history) > maxHistory {
		m.history = m.history[len(m.history)-maxHistory:]
	}
}
