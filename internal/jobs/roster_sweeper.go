package jobs

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/forgo/muster/internal/model"
)

// RosterPurger removes rosters that a retention policy considers expired
type RosterPurger interface {
	PurgeRosters(ctx context.Context, policy model.RetentionPolicy) (int, error)
}

// RosterSweeper periodically removes finished rosters
type RosterSweeper struct {
	purger   RosterPurger
	policy   model.RetentionPolicy
	interval time.Duration
	stopCh   chan struct{}
	wg       sync.WaitGroup
	running  bool
	mu       sync.Mutex
}

// NewRosterSweeper creates a new roster sweeper job
func NewRosterSweeper(purger RosterPurger, policy model.RetentionPolicy, interval time.Duration) *RosterSweeper {
	if interval == 0 {
		interval = 10 * time.Minute // Default sweep every 10 minutes
	}
	return &RosterSweeper{
		purger:   purger,
		policy:   policy,
		interval: interval,
	}
}

// Start begins the sweeper loop
func (s *RosterSweeper) Start() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.running {
		return
	}
	s.running = true
	s.stopCh = make(chan struct{})

	s.wg.Add(1)
	go s.run(s.stopCh)
	slog.Info("roster sweeper started",
		"interval", s.interval,
		"closed_retention", s.policy.ClosedRetention,
		"max_age", s.policy.MaxAge,
	)
}

// Stop gracefully stops the sweeper loop
func (s *RosterSweeper) Stop() {
	s.mu.Lock()
	if !s.running {
		s.mu.Unlock()
		return
	}
	s.running = false
	close(s.stopCh)
	s.mu.Unlock()

	s.wg.Wait()
	slog.Info("roster sweeper stopped")
}

func (s *RosterSweeper) run(stop <-chan struct{}) {
	defer s.wg.Done()

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			s.sweep()
		case <-stop:
			return
		}
	}
}

func (s *RosterSweeper) sweep() {
	ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
	defer cancel()

	removed, err := s.RunOnce(ctx)
	if err != nil {
		slog.Error("roster sweep failed", "error", err, "removed", removed)
		return
	}
	if removed > 0 {
		slog.Info("roster sweep finished", "removed", removed)
	}
}

// RunOnce sweeps once (for testing or manual trigger)
func (s *RosterSweeper) RunOnce(ctx context.Context) (int, error) {
	return s.purger.PurgeRosters(ctx, s.policy)
}

// IsRunning returns whether the sweeper is running
func (s *RosterSweeper) IsRunning() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.running
}
