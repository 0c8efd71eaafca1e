package storage

import (
	"context"
	"fmt"
	"sync"
	"time"
)

// MemoryStore implements an in-memory store for analysis reports.
// It is safe for concurrent use by multiple goroutines.
//
// MemoryStore keeps the latest report per site in a map. If TTL is
// configured, a background goroutine removes stale reports. For deployments
// requiring persistence or multi-instance setups, use RedisStore or
// PostgresStore instead.
type MemoryStore struct {
	mu            sync.RWMutex
	reports       map[string]Report
	ttl           time.Duration
	cleanupTicker *time.Ticker
	stopCleanup   chan struct{}
	cleanupDone   chan struct{}
	stopped       bool
	stopMu        sync.Mutex
}

// NewMemoryStore creates a new in-memory report store with no TTL.
// Reports are kept until replaced or explicitly deleted.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		reports: make(map[string]Report),
	}
}

// NewMemoryStoreWithTTL creates an in-memory report store with automatic
// TTL-based cleanup. A background goroutine periodically removes reports
// older than the given TTL.
//
// The cleanup goroutine must be stopped with Stop() when the store is no
// longer needed to prevent goroutine leaks.
func NewMemoryStoreWithTTL(ttl, cleanupInterval time.Duration) *MemoryStore {
	if ttl <= 0 {
		panic("TTL must be positive")
	}
	if cleanupInterval <= 0 {
		cleanupInterval = time.Minute
	}

	store := &MemoryStore{
		reports:       make(map[string]Report),
		ttl:           ttl,
		cleanupTicker: time.NewTicker(cleanupInterval),
		stopCleanup:   make(chan struct{}),
		cleanupDone:   make(chan struct{}),
	}

	go store.runCleanup()

	return store
}

// Stop gracefully shuts down the background cleanup goroutine. It blocks
// until cleanup is complete. Calling Stop multiple times or on a store
// without TTL is safe and does nothing.
func (s *MemoryStore) Stop() {
	if s.cleanupTicker == nil {
		return // No cleanup goroutine running
	}

	s.stopMu.Lock()
	defer s.stopMu.Unlock()

	if s.stopped {
		return
	}

	close(s.stopCleanup)
	<-s.cleanupDone
	s.cleanupTicker.Stop()
	s.stopped = true
}

func (s *MemoryStore) runCleanup() {
	defer close(s.cleanupDone)

	for {
		select {
		case <-s.cleanupTicker.C:
			s.cleanup()
		case <-s.stopCleanup:
			return
		}
	}
}

// cleanup removes reports older than the TTL.
func (s *MemoryStore) cleanup() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.ttl == 0 {
		return
	}

	now := time.Now()
	for site, report := range s.reports {
		if now.Sub(report.GeneratedAt) > s.ttl {
			delete(s.reports, site)
		}
	}
}

// Put stores a report for a site, replacing any existing report.
// Returns an error if the report's Site field is empty or the context is
// canceled. Safe for concurrent use.
func (s *MemoryStore) Put(ctx context.Context, report Report) error {
	if report.Site == "" {
		return fmt.Errorf("report site cannot be empty")
	}

	select {
	case <-ctx.Done():
		return ctx.Err()
	default:
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	s.reports[report.Site] = report
	return nil
}

// GetLatest retrieves the most recent report for a site.
//
// Returns:
//   - report: The stored report (zero value if not found)
//   - found: true if a report exists for this site
//   - error: Context error if the context is canceled, nil otherwise
func (s *MemoryStore) GetLatest(ctx context.Context, site string) (Report, bool, error) {
	select {
	case <-ctx.Done():
		return Report{}, false, ctx.Err()
	default:
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	report, found := s.reports[site]
	return report, found, nil
}

// Len returns the number of reports currently stored. Primarily useful for
// testing and metrics.
func (s *MemoryStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.reports)
}

// Delete removes a site's report. Returns true if a report was deleted.
func (s *MemoryStore) Delete(site string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, existed := s.reports[site]
	delete(s.reports, site)
	return existed
}
