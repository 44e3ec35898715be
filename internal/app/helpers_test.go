package app

import (
	"context"
	"io"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"github.com/yourusername/mediafetch-go/internal/domain"
	"github.com/yourusername/mediafetch-go/internal/infrastructure"
	"go.uber.org/zap"
)

// fakeClient implements domain.ExtractionClient for testing
type fakeClient struct {
	mu      sync.Mutex
	caps    domain.Capabilities
	calls   []domain.ExtractionRequest
	streams []domain.ExtractionRequest

	// resolve receives the 1-based call number
	resolve func(n int, req domain.ExtractionRequest) (*domain.MediaInfo, error)
	stream  func(n int, req domain.ExtractionRequest, w io.Writer) error
}

func newFakeClient() *fakeClient {
	return &fakeClient{
		caps: domain.Capabilities{ExtractorAvailable: true, TranscoderAvailable: true},
	}
}

func (f *fakeClient) Resolve(ctx context.Context, req domain.ExtractionRequest) (*domain.MediaInfo, error) {
	f.mu.Lock()
	f.calls = append(f.calls, req)
	n := len(f.calls)
	f.mu.Unlock()

	if f.resolve == nil {
		return &domain.MediaInfo{ID: "abc", Title: "Clip"}, nil
	}
	return f.resolve(n, req)
}

func (f *fakeClient) StreamTo(ctx context.Context, req domain.ExtractionRequest, w io.Writer) error {
	f.mu.Lock()
	f.streams = append(f.streams, req)
	n := len(f.streams)
	f.mu.Unlock()

	if f.stream == nil {
		_, err := w.Write([]byte("media"))
		return err
	}
	return f.stream(n, req, w)
}

func (f *fakeClient) Capabilities() domain.Capabilities {
	return f.caps
}

func (f *fakeClient) callCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.calls)
}

func (f *fakeClient) call(i int) domain.ExtractionRequest {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls[i]
}

// memStatsStore implements domain.EgressStatsRepository for testing
type memStatsStore struct {
	mu     sync.Mutex
	saved  map[string]domain.EgressEndpoint
	stored []*domain.EgressEndpoint
	saves  int
}

func newMemStatsStore() *memStatsStore {
	return &memStatsStore{saved: make(map[string]domain.EgressEndpoint)}
}

func (m *memStatsStore) SaveEndpoint(ep *domain.EgressEndpoint) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.saved[ep.Address] = *ep
	m.saves++
	return nil
}

func (m *memStatsStore) LoadEndpoints() ([]*domain.EgressEndpoint, error) {
	return m.stored, nil
}

// memJobRepo implements domain.JobRepository for testing
type memJobRepo struct {
	mu   sync.Mutex
	jobs map[string]domain.Job
}

func newMemJobRepo() *memJobRepo {
	return &memJobRepo{jobs: make(map[string]domain.Job)}
}

func (m *memJobRepo) Create(job *domain.Job) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.jobs[job.ID] = *job
	return nil
}

func (m *memJobRepo) Update(job *domain.Job) error {
	return m.Create(job)
}

func (m *memJobRepo) FindByID(id string) (*domain.Job, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if j, ok := m.jobs[id]; ok {
		return &j, nil
	}
	return nil, domain.ErrNotFound
}

func (m *memJobRepo) GetStats() (*domain.JobStats, error) {
	return &domain.JobStats{}, nil
}

func (m *memJobRepo) only(t *testing.T) domain.Job {
	t.Helper()
	m.mu.Lock()
	defer m.mu.Unlock()
	require.Len(t, m.jobs, 1)
	for _, j := range m.jobs {
		return j
	}
	return domain.Job{}
}

// fakeRecorder implements Recorder for testing
type fakeRecorder struct {
	mu        sync.Mutex
	downloads map[string]int
	attempts  map[string]int
	workers   []int
}

func newFakeRecorder() *fakeRecorder {
	return &fakeRecorder{downloads: map[string]int{}, attempts: map[string]int{}}
}

func (r *fakeRecorder) ObserveDownload(status string, _ time.Duration, _ int64) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.downloads[status]++
}

func (r *fakeRecorder) ObserveAttempt(outcome string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.attempts[outcome]++
}

func (r *fakeRecorder) SetActiveWorkers(n int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.workers = append(r.workers, n)
}

type testEnv struct {
	client   *fakeClient
	store    *infrastructure.ArtifactStore
	selector *EgressSelector
	stats    *memStatsStore
	gate     *ConcurrencyGate
	config   *domain.DownloadConfig
	orch     *Orchestrator
}

type envOption func(egress *domain.EgressConfig, creds *domain.CredentialsConfig, dl *domain.DownloadConfig)

func withProxies(proxies ...string) envOption {
	return func(egress *domain.EgressConfig, _ *domain.CredentialsConfig, _ *domain.DownloadConfig) {
		egress.Proxies = proxies
	}
}

func withMaxAttempts(n int) envOption {
	return func(_ *domain.EgressConfig, _ *domain.CredentialsConfig, dl *domain.DownloadConfig) {
		dl.MaxStrategyAttempts = n
	}
}

func newTestEnv(t *testing.T, client *fakeClient, opts ...envOption) *testEnv {
	t.Helper()

	egress := domain.EgressConfig{CooldownSeconds: 600}
	creds := domain.CredentialsConfig{Order: []string{"caller", "session", "jar", "none"}}
	dl := domain.DownloadConfig{
		MaxConcurrent:       2,
		MaxStrategyAttempts: 3,
		AudioCodec:          "mp3",
		AudioQuality:        "192",
		MergeFormat:         "mp4",
		BatchConcurrency:    4,
	}
	for _, opt := range opts {
		opt(&egress, &creds, &dl)
	}

	log := zap.NewNop()
	store, err := infrastructure.NewArtifactStore(t.TempDir(), time.Hour, log)
	require.NoError(t, err)

	stats := newMemStatsStore()
	selector := NewEgressSelector(&egress, stats, log)
	resolver, err := NewCredentialResolver(&creds, nil, log)
	require.NoError(t, err)
	gate := NewConcurrencyGate(dl.MaxConcurrent)

	orch := NewOrchestrator(client, store, selector, resolver, gate, &dl, log)
	return &testEnv{
		client:   client,
		store:    store,
		selector: selector,
		stats:    stats,
		gate:     gate,
		config:   &dl,
		orch:     orch,
	}
}

// totalOutcomes sums success and failure counts over all endpoints
func (e *testEnv) totalOutcomes() int64 {
	var total int64
	for _, ep := range e.selector.Snapshot() {
		total += ep.SuccessCount + ep.FailureCount
	}
	return total
}

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	return path
}
