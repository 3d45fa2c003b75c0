/*
scheduler.go - Automated period close scheduler

PURPOSE:
  Periodically closes PROCESSED periods whose end date is older than a grace
  window, so late adjustments cannot change a payroll that was already paid
  out.

DESIGN:
  - Runs a background goroutine with configurable check interval
  - Only PROCESSED periods are candidates; OPEN periods were never generated
  - Closing goes through the same path as POST /api/periods/{id}/close

CONFIGURATION:
  - CheckInterval: How often to check (default: 1 hour)
  - Grace: How long after the period end entries stay editable (default: 10 days)
  - Enabled: Whether scheduler is active (default: true)

USAGE:
  scheduler := NewPeriodCloseScheduler(store, handler, logger)
  scheduler.Start()
  // ... later
  scheduler.Stop()

SEE ALSO:
  - payroll.go: closePeriod
*/
package api

import (
	"context"
	"sync"
	"time"

	"github.com/obrasur/payroll-engine/payroll"
	"github.com/obrasur/payroll-engine/store/sqlite"
	"go.uber.org/zap"
)

// DefaultCloseGrace is how long a processed period stays editable after its end.
const DefaultCloseGrace = 10 * 24 * time.Hour

// PeriodCloseScheduler closes processed periods once their grace window passed.
type PeriodCloseScheduler struct {
	Store         *sqlite.Store
	Handler       *Handler
	Logger        *zap.Logger
	CheckInterval time.Duration
	Grace         time.Duration
	Enabled       bool

	// Now is the clock; tests replace it.
	Now func() time.Time

	ticker *time.Ticker
	stop   chan struct{}
	wg     sync.WaitGroup
	mu     sync.Mutex
}

// NewPeriodCloseScheduler creates a new scheduler.
func NewPeriodCloseScheduler(store *sqlite.Store, handler *Handler, logger *zap.Logger) *PeriodCloseScheduler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &PeriodCloseScheduler{
		Store:         store,
		Handler:       handler,
		Logger:        logger.Named("scheduler"),
		CheckInterval: time.Hour,
		Grace:         DefaultCloseGrace,
		Enabled:       true,
		Now:           time.Now,
		stop:          make(chan struct{}),
	}
}

// Start begins the scheduler.
func (s *PeriodCloseScheduler) Start() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.Enabled {
		s.Logger.Info("disabled, not starting")
		return
	}
	if s.ticker != nil {
		return
	}

	s.ticker = time.NewTicker(s.CheckInterval)
	s.wg.Add(1)
	go s.run()

	s.Logger.Info("started",
		zap.Duration("interval", s.CheckInterval),
		zap.Duration("grace", s.Grace),
	)
}

// Stop stops the scheduler and waits for a running check to finish.
func (s *PeriodCloseScheduler) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.ticker != nil {
		s.ticker.Stop()
		close(s.stop)
		s.wg.Wait()
		s.ticker = nil
		s.Logger.Info("stopped")
	}
}

func (s *PeriodCloseScheduler) run() {
	defer s.wg.Done()

	// Run immediately on start
	s.check()

	for {
		select {
		case <-s.ticker.C:
			s.check()
		case <-s.stop:
			return
		}
	}
}

func (s *PeriodCloseScheduler) check() {
	closed, err := s.RunOnce(context.Background())
	if err != nil {
		s.Logger.Error("close check failed", zap.Error(err))
		return
	}
	if closed > 0 {
		s.Logger.Info("closed periods", zap.Int("count", closed))
	}
}

// RunOnce closes every due period and returns how many were closed. A period
// that fails to close is logged and skipped.
func (s *PeriodCloseScheduler) RunOnce(ctx context.Context) (int, error) {
	periods, err := s.Store.ListPeriodsByStatus(ctx, payroll.StatusProcessed)
	if err != nil {
		return 0, err
	}

	now := s.Now()
	closed := 0
	for _, p := range periods {
		if !s.due(p, now) {
			continue
		}
		if _, err := s.Handler.closePeriod(ctx, p.ID); err != nil {
			s.Logger.Warn("close period failed", zap.String("period", string(p.ID)), zap.Error(err))
			continue
		}
		s.Logger.Info("period closed", zap.String("period", string(p.ID)))
		closed++
	}
	return closed, nil
}

// due reports whether the day after the period end plus the grace window has
// passed. Periods without an end date are never closed automatically.
func (s *PeriodCloseScheduler) due(p payroll.PayrollPeriod, now time.Time) bool {
	if p.EndDate == nil {
		return false
	}
	deadline := p.EndDate.AddDays(1).Time.Add(s.Grace)
	return now.After(deadline)
}
