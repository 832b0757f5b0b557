// Package sweep runs the daily reset that re-arms completed chores.
package sweep

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"tokenjar/internal/ledger"
	"tokenjar/internal/store"
)

const tickInterval = time.Minute

// Config controls when and how widely the reset sweep runs.
type Config struct {
	// Hour is the local hour (0-23) at which the sweep fires.
	Hour int
	// Location is the timezone the Hour is interpreted in.
	Location *time.Location
	// Scope selects one global sweep or a walk over each account.
	Scope ledger.SweepScope
}

// Scheduler fires the reset sweep once per day. Duplicate or late firings
// are harmless: the sweep itself is idempotent.
type Scheduler struct {
	mu       sync.Mutex
	ledger   *ledger.Service
	accounts *store.AccountStore
	cfg      Config
	logger   *slog.Logger
	onReset  func(count int64)

	lastRunDay string
	cancel     context.CancelFunc
	done       chan struct{}
}

// NewScheduler creates a sweep scheduler. onReset, if non-nil, is called
// after each sweep that reset at least one chore.
func NewScheduler(svc *ledger.Service, accounts *store.AccountStore, cfg Config, onReset func(count int64), logger *slog.Logger) *Scheduler {
	if cfg.Location == nil {
		cfg.Location = time.Local
	}
	if cfg.Scope == "" {
		cfg.Scope = ledger.SweepGlobal
	}
	return &Scheduler{
		ledger:   svc,
		accounts: accounts,
		cfg:      cfg,
		logger:   logger,
		onReset:  onReset,
	}
}

// Start begins the scheduler loop.
func (s *Scheduler) Start(ctx context.Context) {
	s.mu.Lock()
	ctx, s.cancel = context.WithCancel(ctx)
	s.done = make(chan struct{})
	s.mu.Unlock()

	go func() {
		defer close(s.done)
		ticker := time.NewTicker(tickInterval)
		defer ticker.Stop()

		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				s.tick(ctx)
			}
		}
	}()
}

// Stop gracefully stops the scheduler.
func (s *Scheduler) Stop() {
	s.mu.Lock()
	cancel := s.cancel
	done := s.done
	s.mu.Unlock()

	if cancel != nil {
		cancel()
	}
	if done != nil {
		<-done
	}
}

func (s *Scheduler) tick(ctx context.Context) {
	now := time.Now().In(s.cfg.Location)
	day := now.Format("2006-01-02")

	s.mu.Lock()
	due := now.Hour() >= s.cfg.Hour && s.lastRunDay != day
	if due {
		s.lastRunDay = day
	}
	s.mu.Unlock()

	if !due {
		return
	}

	if err := s.Run(ctx); err != nil {
		s.logger.Error("reset sweep failed", "error", err)
		// Allow a retry on the next tick.
		s.mu.Lock()
		s.lastRunDay = ""
		s.mu.Unlock()
	}
}

// Run executes one sweep immediately, regardless of schedule.
func (s *Scheduler) Run(ctx context.Context) error {
	var total int64

	switch s.cfg.Scope {
	case ledger.SweepPerAccount:
		ids, err := s.accounts.ListIDs()
		if err != nil {
			return err
		}
		for _, id := range ids {
			count, err := s.ledger.ResetCompletedChores(ctx, ledger.SweepPerAccount, id)
			if err != nil {
				return err
			}
			total += count
		}
	default:
		count, err := s.ledger.ResetCompletedChores(ctx, ledger.SweepGlobal, "")
		if err != nil {
			return err
		}
		total = count
	}

	if total > 0 && s.onReset != nil {
		s.onReset(total)
	}
	return nil
}
