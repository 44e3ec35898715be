package infrastructure

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/yourusername/mediafetch-go/internal/domain"
)

func setupTestRepo(t *testing.T) *SQLiteRepository {
	t.Helper()
	repo, err := NewSQLiteRepository(filepath.Join(t.TempDir(), "data", "test.db"))
	require.NoError(t, err)
	t.Cleanup(func() { repo.Close() })
	return repo
}

func TestSQLiteRepository_CreateAndFind(t *testing.T) {
	repo := setupTestRepo(t)

	job := domain.NewJob("https://example.com/watch?v=1", domain.MediaAudio)
	job.CallerCookies = "sid=secret"
	require.NoError(t, repo.Create(job))

	found, err := repo.FindByID(job.ID)
	require.NoError(t, err)
	assert.Equal(t, job.SourceURL, found.SourceURL)
	assert.Equal(t, domain.MediaAudio, found.MediaKind)
	assert.Equal(t, domain.StateAdmitted, found.State)
	assert.Empty(t, found.CallerCookies)
}

func TestSQLiteRepository_FindByIDNotFound(t *testing.T) {
	repo := setupTestRepo(t)

	_, err := repo.FindByID("missing")
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestSQLiteRepository_UpdateAndStats(t *testing.T) {
	repo := setupTestRepo(t)

	done := domain.NewJob("https://example.com/1", domain.MediaVideo)
	failed := domain.NewJob("https://example.com/2", domain.MediaVideo)
	running := domain.NewJob("https://example.com/3", domain.MediaVideo)
	for _, j := range []*domain.Job{done, failed, running} {
		require.NoError(t, repo.Create(j))
	}

	require.NoError(t, done.Transition(domain.StateResolving))
	require.NoError(t, done.Transition(domain.StateDownloading))
	require.NoError(t, done.Transition(domain.StatePostProcessing))
	require.NoError(t, done.MarkCompleted(&domain.Artifact{MainFile: "a.mp4", SizeBytes: 10}))
	require.NoError(t, repo.Update(done))

	failed.MarkFailed(assert.AnError)
	require.NoError(t, repo.Update(failed))

	stats, err := repo.GetStats()
	require.NoError(t, err)
	assert.Equal(t, int64(3), stats.Total)
	assert.Equal(t, int64(1), stats.Completed)
	assert.Equal(t, int64(1), stats.Failed)
	assert.Equal(t, int64(1), stats.InProgress)

	found, err := repo.FindByID(done.ID)
	require.NoError(t, err)
	assert.Equal(t, "a.mp4", found.Filename)
	assert.NotNil(t, found.CompletedAt)
}

func TestSQLiteRepository_SaveEndpointUpserts(t *testing.T) {
	repo := setupTestRepo(t)

	ep := &domain.EgressEndpoint{Address: "http://p1:8080", SuccessCount: 1}
	require.NoError(t, repo.SaveEndpoint(ep))

	ep.FailureCount = 2
	ep.LastFailureAt = time.Now().Truncate(time.Second)
	require.NoError(t, repo.SaveEndpoint(ep))
	require.NoError(t, repo.SaveEndpoint(&domain.EgressEndpoint{Address: domain.DirectAddress}))

	endpoints, err := repo.LoadEndpoints()
	require.NoError(t, err)
	require.Len(t, endpoints, 2)

	byAddr := map[string]*domain.EgressEndpoint{}
	for _, e := range endpoints {
		byAddr[e.Address] = e
	}
	assert.Equal(t, int64(1), byAddr["http://p1:8080"].SuccessCount)
	assert.Equal(t, int64(2), byAddr["http://p1:8080"].FailureCount)
	assert.True(t, ep.LastFailureAt.Equal(byAddr["http://p1:8080"].LastFailureAt))
}
