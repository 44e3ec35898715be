package app

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/yourusername/mediafetch-go/internal/domain"
	"go.uber.org/zap"
)

func addresses(eps []domain.EgressEndpoint) []string {
	out := make([]string, len(eps))
	for i, ep := range eps {
		out[i] = ep.Address
	}
	return out
}

func TestEgressSelector_DirectFallback(t *testing.T) {
	s := NewEgressSelector(&domain.EgressConfig{}, nil, zap.NewNop())
	assert.Equal(t, []string{domain.DirectAddress}, addresses(s.Snapshot()))

	s = NewEgressSelector(&domain.EgressConfig{Proxies: []string{"http://p1", "http://p1", ""}}, nil, zap.NewNop())
	assert.Equal(t, []string{"http://p1"}, addresses(s.Snapshot()))

	s = NewEgressSelector(&domain.EgressConfig{Proxies: []string{"http://p1"}, IncludeDirect: true}, nil, zap.NewNop())
	assert.Equal(t, []string{"http://p1", domain.DirectAddress}, addresses(s.Snapshot()))
}

func TestEgressSelector_RankByScore(t *testing.T) {
	s := NewEgressSelector(&domain.EgressConfig{
		Proxies:         []string{"http://p1", "http://p2", "http://p3"},
		CooldownSeconds: 600,
	}, nil, zap.NewNop())
	now := time.Now()

	s.RecordOutcome("http://p3", true, now)
	s.RecordOutcome("http://p3", true, now)
	s.RecordOutcome("http://p2", true, now)

	assert.Equal(t, []string{"http://p3", "http://p2", "http://p1"}, addresses(s.Rank(now)))
}

func TestEgressSelector_TiesKeepConfigOrder(t *testing.T) {
	s := NewEgressSelector(&domain.EgressConfig{Proxies: []string{"http://p1", "http://p2", "http://p3"}}, nil, zap.NewNop())
	assert.Equal(t, []string{"http://p1", "http://p2", "http://p3"}, addresses(s.Rank(time.Now())))
}

func TestEgressSelector_CooldownDemotesButKeeps(t *testing.T) {
	s := NewEgressSelector(&domain.EgressConfig{
		Proxies:         []string{"http://p1", "http://p2", "http://p3"},
		CooldownSeconds: 600,
	}, nil, zap.NewNop())
	now := time.Now()

	// equal scores of zero; p1 failed most recently, p2 earlier
	s.RecordOutcome("http://p2", false, now.Add(-2*time.Minute))
	s.RecordOutcome("http://p1", false, now.Add(-time.Minute))

	ranked := s.Rank(now)
	assert.Equal(t, []string{"http://p3", "http://p2", "http://p1"}, addresses(ranked))

	// once the window passes, cooldown no longer matters
	later := now.Add(time.Hour)
	assert.Equal(t, []string{"http://p1", "http://p2", "http://p3"}, addresses(s.Rank(later)))
}

func TestEgressSelector_RecordOutcomePersists(t *testing.T) {
	stats := newMemStatsStore()
	s := NewEgressSelector(&domain.EgressConfig{Proxies: []string{"http://p1"}}, stats, zap.NewNop())
	at := time.Date(2025, 1, 2, 3, 4, 5, 0, time.UTC)

	s.RecordOutcome("http://p1", false, at)
	s.RecordOutcome("http://p1", true, at.Add(time.Second))
	s.RecordOutcome("http://unknown", true, at)

	ep := s.Snapshot()[0]
	assert.Equal(t, int64(1), ep.SuccessCount)
	assert.Equal(t, int64(1), ep.FailureCount)
	assert.Equal(t, at, ep.LastFailureAt)

	stats.mu.Lock()
	defer stats.mu.Unlock()
	assert.Equal(t, 2, stats.saves)
	assert.Equal(t, int64(1), stats.saved["http://p1"].SuccessCount)
}

func TestEgressSelector_Load(t *testing.T) {
	stats := newMemStatsStore()
	failedAt := time.Date(2025, 1, 2, 3, 4, 5, 0, time.UTC)
	stats.stored = []*domain.EgressEndpoint{
		{Address: "http://p1", SuccessCount: 7, FailureCount: 2, LastFailureAt: failedAt},
		{Address: "http://removed", SuccessCount: 100},
	}

	s := NewEgressSelector(&domain.EgressConfig{Proxies: []string{"http://p1", "http://p2"}}, stats, zap.NewNop())
	require.NoError(t, s.Load())

	snapshot := s.Snapshot()
	require.Len(t, snapshot, 2)
	assert.Equal(t, int64(7), snapshot[0].SuccessCount)
	assert.Equal(t, int64(2), snapshot[0].FailureCount)
	assert.Equal(t, failedAt, snapshot[0].LastFailureAt)
	assert.Zero(t, snapshot[1].SuccessCount)
}

func TestEgressSelector_SnapshotIsCopy(t *testing.T) {
	s := NewEgressSelector(&domain.EgressConfig{Proxies: []string{"http://p1"}}, nil, zap.NewNop())
	snapshot := s.Snapshot()
	snapshot[0].SuccessCount = 99
	assert.Zero(t, s.Snapshot()[0].SuccessCount)
}

func TestEgressSelector_RecordOutcomeConcurrent(t *testing.T) {
	stats := newMemStatsStore()
	s := NewEgressSelector(&domain.EgressConfig{Proxies: []string{"http://p1"}}, stats, zap.NewNop())
	at := time.Date(2025, 1, 2, 3, 4, 5, 0, time.UTC)

	const calls = 200
	var wg sync.WaitGroup
	for i := 0; i < calls; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			s.RecordOutcome("http://p1", i%3 != 0, at.Add(time.Duration(i)*time.Millisecond))
		}(i)
	}
	wg.Wait()

	ep := s.Snapshot()[0]
	assert.Equal(t, int64(calls), ep.SuccessCount+ep.FailureCount)
	assert.Equal(t, int64(67), ep.FailureCount)

	stats.mu.Lock()
	defer stats.mu.Unlock()
	assert.Equal(t, calls, stats.saves)
	saved := stats.saved["http://p1"]
	assert.Equal(t, ep.SuccessCount, saved.SuccessCount)
	assert.Equal(t, ep.FailureCount, saved.FailureCount)
}
