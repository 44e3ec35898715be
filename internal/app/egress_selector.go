package app

import (
	"sort"
	"sync"
	"time"

	"github.com/yourusername/mediafetch-go/internal/domain"
	"go.uber.org/zap"
)

// EgressSelector owns the egress statistics table and ranks endpoints for new jobs
type EgressSelector struct {
	mu        sync.Mutex
	persistMu sync.Mutex // orders SaveEndpoint calls
	endpoints map[string]*domain.EgressEndpoint
	order     []string
	cooldown  time.Duration
	store     domain.EgressStatsRepository
	logger    *zap.Logger
}

// NewEgressSelector builds the table from configuration. Without proxies, or
// with include_direct set, the direct path takes part in the ranking.
func NewEgressSelector(config *domain.EgressConfig, store domain.EgressStatsRepository, logger *zap.Logger) *EgressSelector {
	s := &EgressSelector{
		endpoints: make(map[string]*domain.EgressEndpoint),
		cooldown:  config.Cooldown(),
		store:     store,
		logger:    logger,
	}

	for _, addr := range config.Proxies {
		s.add(addr)
	}
	if len(s.order) == 0 || config.IncludeDirect {
		s.add(domain.DirectAddress)
	}
	return s
}

func (s *EgressSelector) add(addr string) {
	if addr == "" {
		return
	}
	if _, ok := s.endpoints[addr]; ok {
		return
	}
	s.endpoints[addr] = &domain.EgressEndpoint{Address: addr}
	s.order = append(s.order, addr)
}

// Load restores persisted statistics for the configured endpoints
func (s *EgressSelector) Load() error {
	if s.store == nil {
		return nil
	}
	stored, err := s.store.LoadEndpoints()
	if err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	restored := 0
	for _, ep := range stored {
		if cur, ok := s.endpoints[ep.Address]; ok {
			cur.SuccessCount = ep.SuccessCount
			cur.FailureCount = ep.FailureCount
			cur.LastFailureAt = ep.LastFailureAt
			restored++
		}
	}
	s.logger.Info("Restored egress statistics", zap.Int("endpoints", restored))
	return nil
}

// Rank returns a snapshot ordered by score descending; endpoints still in
// cooldown sort behind the others (oldest failure first) but are never dropped.
// Ties keep configuration order.
func (s *EgressSelector) Rank(now time.Time) []domain.EgressEndpoint {
	ranked := s.Snapshot()

	sort.SliceStable(ranked, func(i, j int) bool {
		a, b := &ranked[i], &ranked[j]
		if sa, sb := a.Score(), b.Score(); sa != sb {
			return sa > sb
		}
		ca, cb := a.InCooldown(now, s.cooldown), b.InCooldown(now, s.cooldown)
		if ca != cb {
			return !ca
		}
		if ca {
			return a.LastFailureAt.Before(b.LastFailureAt)
		}
		return false
	})
	return ranked
}

// Snapshot returns copies of all endpoints in configuration order
func (s *EgressSelector) Snapshot() []domain.EgressEndpoint {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]domain.EgressEndpoint, 0, len(s.order))
	for _, addr := range s.order {
		out = append(out, *s.endpoints[addr])
	}
	return out
}

// RecordOutcome counts one attempt against addr. It is the only mutator of
// the statistics table and is safe for concurrent use.
func (s *EgressSelector) RecordOutcome(addr string, success bool, at time.Time) {
	s.mu.Lock()
	ep, ok := s.endpoints[addr]
	if !ok {
		s.mu.Unlock()
		s.logger.Warn("Outcome for unknown egress endpoint", zap.String("egress", addr))
		return
	}
	if success {
		ep.SuccessCount++
	} else {
		ep.FailureCount++
		ep.LastFailureAt = at
	}
	ep.UpdatedAt = at
	s.mu.Unlock()

	if s.store == nil {
		return
	}

	// The snapshot is taken under persistMu so the last save always carries
	// the latest counters.
	s.persistMu.Lock()
	defer s.persistMu.Unlock()

	s.mu.Lock()
	snapshot := *s.endpoints[addr]
	s.mu.Unlock()

	if err := s.store.SaveEndpoint(&snapshot); err != nil {
		s.logger.Warn("Failed to persist egress statistics",
			zap.String("egress", addr),
			zap.Error(err))
	}
}
