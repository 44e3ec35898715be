package infrastructure

import (
	"io"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/yourusername/mediafetch-go/internal/domain"
	"go.uber.org/zap"
)

func newTestStore(t *testing.T) *ArtifactStore {
	t.Helper()
	store, err := NewArtifactStore(filepath.Join(t.TempDir(), "tmp"), time.Hour, zap.NewNop())
	require.NoError(t, err)
	return store
}

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
}

func TestArtifactStore_AllocateJobDir(t *testing.T) {
	store := newTestStore(t)

	dir, err := store.AllocateJobDir("job-1")
	require.NoError(t, err)
	assert.DirExists(t, dir)

	_, err = store.AllocateJobDir("job-1")
	assert.Error(t, err, "a second job must never share a directory")

	_, err = store.AllocateJobDir("../escape")
	assert.Error(t, err)
}

func TestArtifactStore_ResetClearsPartialFiles(t *testing.T) {
	store := newTestStore(t)
	dir, err := store.AllocateJobDir("job-1")
	require.NoError(t, err)
	writeFile(t, filepath.Join(dir, "clip.mp4.part"), "partial")
	require.NoError(t, os.Mkdir(filepath.Join(dir, "frag"), 0755))

	require.NoError(t, store.Reset(dir))

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	assert.Empty(t, entries)
	assert.DirExists(t, dir)
}

func TestArtifactStore_LocateMediaAndSubtitle(t *testing.T) {
	store := newTestStore(t)
	dir, err := store.AllocateJobDir("job-1")
	require.NoError(t, err)
	writeFile(t, filepath.Join(dir, "Clip.mp4"), "video bytes")
	writeFile(t, filepath.Join(dir, "Clip.en.vtt"), "WEBVTT")
	writeFile(t, filepath.Join(dir, "Clip.mp4.part"), "much longer partial content")

	media, err := store.LocateMedia(dir)
	require.NoError(t, err)
	assert.Equal(t, "Clip.mp4", filepath.Base(media))

	sub, ok := store.LocateSubtitle(dir, "en")
	require.True(t, ok)
	assert.Equal(t, "Clip.en.vtt", filepath.Base(sub))

	_, ok = store.LocateSubtitle(dir, "fr")
	assert.False(t, ok)
}

func TestArtifactStore_LocateMediaEmpty(t *testing.T) {
	store := newTestStore(t)
	dir, err := store.AllocateJobDir("job-1")
	require.NoError(t, err)

	_, err = store.LocateMedia(dir)
	assert.Error(t, err)
}

func TestArtifactStore_FinalizeAppliesCustomName(t *testing.T) {
	store := newTestStore(t)
	dir, err := store.AllocateJobDir("job-1")
	require.NoError(t, err)
	media := filepath.Join(dir, "Some_Title.mp4")
	sub := filepath.Join(dir, "Some_Title.txt")
	writeFile(t, media, "0123456789")
	writeFile(t, sub, "hello")

	artifact, err := store.Finalize(dir, media, sub, "my/holiday")
	require.NoError(t, err)

	assert.Equal(t, "my_holiday.mp4", artifact.MainFile)
	assert.Equal(t, "my_holiday.txt", artifact.SubtitleFile)
	assert.Equal(t, int64(10), artifact.SizeBytes)
	assert.Equal(t, "mp4", artifact.Extension)
	assert.FileExists(t, filepath.Join(dir, "my_holiday.mp4"))
	assert.FileExists(t, filepath.Join(dir, "my_holiday.txt"))
	assert.NoFileExists(t, media)
}

func TestArtifactStore_FinalizeWithoutCustomName(t *testing.T) {
	store := newTestStore(t)
	dir, err := store.AllocateJobDir("job-1")
	require.NoError(t, err)
	media := filepath.Join(dir, "track.mp3")
	writeFile(t, media, "abc")

	artifact, err := store.Finalize(dir, media, "", "")
	require.NoError(t, err)

	assert.Equal(t, "track.mp3", artifact.MainFile)
	assert.Empty(t, artifact.SubtitleFile)
}

func TestArtifactStore_OpenForStreamingDeleteDrainsAndDeletes(t *testing.T) {
	store := newTestStore(t)
	dir, err := store.AllocateJobDir("job-1")
	require.NoError(t, err)
	writeFile(t, filepath.Join(dir, "clip.mp4"), "payload")

	rc, size, err := store.OpenForStreamingDelete("job-1", "clip.mp4")
	require.NoError(t, err)
	assert.Equal(t, int64(7), size)

	data, err := io.ReadAll(rc)
	require.NoError(t, err)
	require.NoError(t, rc.Close())

	assert.Equal(t, "payload", string(data))
	assert.NoFileExists(t, filepath.Join(dir, "clip.mp4"))
	assert.NoDirExists(t, dir)

	_, _, err = store.OpenForStreamingDelete("job-1", "clip.mp4")
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestArtifactStore_OpenForStreamingDeleteKeepsSiblings(t *testing.T) {
	store := newTestStore(t)
	dir, err := store.AllocateJobDir("job-1")
	require.NoError(t, err)
	writeFile(t, filepath.Join(dir, "clip.mp4"), "payload")
	writeFile(t, filepath.Join(dir, "clip.txt"), "words")

	rc, _, err := store.OpenForStreamingDelete("job-1", "clip.mp4")
	require.NoError(t, err)
	_, err = io.ReadAll(rc)
	require.NoError(t, err)
	rc.Close()

	assert.NoFileExists(t, filepath.Join(dir, "clip.mp4"))
	assert.FileExists(t, filepath.Join(dir, "clip.txt"))
}

func TestArtifactStore_EarlyCloseLeavesFile(t *testing.T) {
	store := newTestStore(t)
	dir, err := store.AllocateJobDir("job-1")
	require.NoError(t, err)
	writeFile(t, filepath.Join(dir, "clip.mp4"), "payload")

	rc, _, err := store.OpenForStreamingDelete("job-1", "clip.mp4")
	require.NoError(t, err)
	buf := make([]byte, 3)
	_, err = rc.Read(buf)
	require.NoError(t, err)
	require.NoError(t, rc.Close())

	assert.FileExists(t, filepath.Join(dir, "clip.mp4"))
}

func TestArtifactStore_OpenRejectsTraversal(t *testing.T) {
	store := newTestStore(t)

	for _, tc := range [][2]string{{"..", "secret"}, {"job", "../x"}, {"", "a"}, {"job", ""}} {
		_, _, err := store.OpenForStreamingDelete(tc[0], tc[1])
		assert.ErrorIs(t, err, domain.ErrNotFound)
	}
}

func TestArtifactStore_SweepExpired(t *testing.T) {
	store := newTestStore(t)
	old, err := store.AllocateJobDir("old-job")
	require.NoError(t, err)
	fresh, err := store.AllocateJobDir("fresh-job")
	require.NoError(t, err)
	writeFile(t, filepath.Join(old, "a.mp4"), "x")
	writeFile(t, filepath.Join(store.Root(), "stray.txt"), "x")

	past := time.Now().Add(-2 * time.Hour)
	require.NoError(t, os.Chtimes(old, past, past))

	removed, err := store.SweepExpired(time.Now())
	require.NoError(t, err)
	assert.Equal(t, []string{"old-job"}, removed)
	assert.NoDirExists(t, old)
	assert.DirExists(t, fresh)
	assert.FileExists(t, filepath.Join(store.Root(), "stray.txt"))

	removed, err = store.SweepExpired(time.Now())
	require.NoError(t, err)
	assert.Empty(t, removed, "a second sweep must not delete anything")
}

func TestArtifactStore_SweepMissingRoot(t *testing.T) {
	store := newTestStore(t)
	require.NoError(t, os.RemoveAll(store.Root()))

	removed, err := store.SweepExpired(time.Now())
	assert.NoError(t, err)
	assert.Empty(t, removed)
}

func TestArtifactStore_Size(t *testing.T) {
	store := newTestStore(t)
	dir, err := store.AllocateJobDir("job-1")
	require.NoError(t, err)
	writeFile(t, filepath.Join(dir, "a.mp4"), "12345")
	writeFile(t, filepath.Join(dir, "a.txt"), "678")

	assert.Equal(t, int64(8), store.Size())
}

func TestSanitizeFilename(t *testing.T) {
	assert.Equal(t, "my_holiday", SanitizeFilename(" my/holiday "))
	assert.Equal(t, "cliprm -rf", SanitizeFilename("clip;rm -rf"))
	assert.Equal(t, "ab", SanitizeFilename("a$b"))
	assert.Equal(t, "", SanitizeFilename(".."))
}
