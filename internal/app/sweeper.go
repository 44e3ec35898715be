package app

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/yourusername/mediafetch-go/internal/infrastructure"
	"go.uber.org/zap"
)

// Sweeper runs the artifact expiry sweep on demand and, when a schedule is
// configured, on a cron timer
type Sweeper struct {
	store  *infrastructure.ArtifactStore
	logger *zap.Logger
	now    func() time.Time

	mu   sync.Mutex
	cron *cron.Cron
}

// NewSweeper creates a sweeper for store
func NewSweeper(store *infrastructure.ArtifactStore, logger *zap.Logger) *Sweeper {
	return &Sweeper{
		store:  store,
		logger: logger,
		now:    time.Now,
	}
}

// Sweep removes expired job directories and returns how many were removed
func (s *Sweeper) Sweep() (int, error) {
	removed, err := s.store.SweepExpired(s.now())
	if err != nil {
		s.logger.Error("Expiry sweep failed", zap.Error(err))
		return 0, err
	}
	s.logger.Info("Expiry sweep completed", zap.Int("removed", len(removed)))
	return len(removed), nil
}

// Start schedules the sweep with a five-field cron expression.
// An empty schedule leaves the sweeper idle.
func (s *Sweeper) Start(schedule string) error {
	if schedule == "" {
		return nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.cron != nil {
		return fmt.Errorf("sweeper already started")
	}

	parser := cron.NewParser(cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow)
	c := cron.New(cron.WithParser(parser), cron.WithChain(cron.Recover(cron.DefaultLogger)))
	if _, err := c.AddFunc(schedule, func() {
		s.Sweep()
	}); err != nil {
		return fmt.Errorf("invalid cleanup schedule %q: %w", schedule, err)
	}

	c.Start()
	s.cron = c
	s.logger.Info("Scheduled expiry sweep", zap.String("schedule", schedule))
	return nil
}

// Stop halts the schedule and waits for a running sweep to finish or ctx to end
func (s *Sweeper) Stop(ctx context.Context) {
	s.mu.Lock()
	c := s.cron
	s.cron = nil
	s.mu.Unlock()

	if c == nil {
		return
	}
	select {
	case <-c.Stop().Done():
	case <-ctx.Done():
	}
}
