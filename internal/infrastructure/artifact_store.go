package infrastructure

import (
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/yourusername/mediafetch-go/internal/domain"
	"go.uber.org/zap"
)

// Extensions written by the engine that are never the deliverable itself
var auxiliaryExts = map[string]bool{
	".part": true,
	".ytdl": true,
	".vtt":  true,
	".srt":  true,
	".txt":  true,
	".json": true,
	".tmp":  true,
}

var unsafeNameChars = regexp.MustCompile(`[^\w\-. ]+`)

// ArtifactStore owns the per-job directories under the temp root
type ArtifactStore struct {
	root   string
	expiry time.Duration
	logger *zap.Logger
}

// NewArtifactStore creates the temp root if needed
func NewArtifactStore(root string, expiry time.Duration, logger *zap.Logger) (*ArtifactStore, error) {
	if err := os.MkdirAll(root, 0755); err != nil {
		return nil, fmt.Errorf("failed to create temp directory: %w", err)
	}
	return &ArtifactStore{root: root, expiry: expiry, logger: logger}, nil
}

// Root returns the temp root
func (s *ArtifactStore) Root() string {
	return s.root
}

// AllocateJobDir creates the exclusive directory for a job.
// os.Mkdir fails on an existing directory, so two jobs can never share one.
func (s *ArtifactStore) AllocateJobDir(jobID string) (string, error) {
	if !validSegment(jobID) {
		return "", fmt.Errorf("invalid job id: %q", jobID)
	}
	dir := filepath.Join(s.root, jobID)
	if err := os.Mkdir(dir, 0755); err != nil {
		return "", fmt.Errorf("failed to allocate job directory: %w", err)
	}
	return dir, nil
}

// Reset removes everything a failed attempt left inside dir
func (s *ArtifactStore) Reset(dir string) error {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return fmt.Errorf("failed to read job directory: %w", err)
	}
	var errs []error
	for _, e := range entries {
		if err := os.RemoveAll(filepath.Join(dir, e.Name())); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// LocateMedia returns the largest deliverable file in dir
func (s *ArtifactStore) LocateMedia(dir string) (string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return "", fmt.Errorf("failed to read job directory: %w", err)
	}

	var best string
	var bestSize int64 = -1
	for _, e := range entries {
		if e.IsDir() || auxiliaryExts[strings.ToLower(filepath.Ext(e.Name()))] {
			continue
		}
		info, err := e.Info()
		if err != nil {
			continue
		}
		if info.Size() > bestSize {
			best = filepath.Join(dir, e.Name())
			bestSize = info.Size()
		}
	}
	if best == "" {
		return "", fmt.Errorf("no media file found in %s", dir)
	}
	return best, nil
}

// LocateSubtitle returns the raw subtitle track for lang, if the engine wrote one
func (s *ArtifactStore) LocateSubtitle(dir, lang string) (string, bool) {
	matches, err := filepath.Glob(filepath.Join(dir, "*."+globEscape(lang)+".vtt"))
	if err != nil || len(matches) == 0 {
		return "", false
	}
	sort.Strings(matches)
	return matches[0], true
}

// Finalize applies customName to the media file and its text subtitle and
// returns the resulting artifact
func (s *ArtifactStore) Finalize(dir, mediaPath, subtitlePath, customName string) (*domain.Artifact, error) {
	ext := filepath.Ext(mediaPath)

	if name := SanitizeFilename(customName); name != "" {
		target := filepath.Join(dir, name+ext)
		if target != mediaPath {
			if err := os.Rename(mediaPath, target); err != nil {
				return nil, fmt.Errorf("failed to rename media file: %w", err)
			}
			mediaPath = target
		}
		if subtitlePath != "" {
			subTarget := filepath.Join(dir, name+".txt")
			if subTarget != subtitlePath {
				if err := os.Rename(subtitlePath, subTarget); err != nil {
					return nil, fmt.Errorf("failed to rename subtitle file: %w", err)
				}
				subtitlePath = subTarget
			}
		}
	}

	info, err := os.Stat(mediaPath)
	if err != nil {
		return nil, fmt.Errorf("failed to stat media file: %w", err)
	}

	artifact := &domain.Artifact{
		Directory: dir,
		MainFile:  filepath.Base(mediaPath),
		SizeBytes: info.Size(),
		Extension: strings.TrimPrefix(ext, "."),
	}
	if subtitlePath != "" {
		artifact.SubtitleFile = filepath.Base(subtitlePath)
	}
	return artifact, nil
}

// OpenForStreamingDelete opens root/downloadID/filename for a single read-through.
// Reaching EOF removes the file and then the directory if it is empty; closing
// early leaves both for the expiry sweep.
func (s *ArtifactStore) OpenForStreamingDelete(downloadID, filename string) (io.ReadCloser, int64, error) {
	if !validSegment(downloadID) || !validSegment(filename) {
		return nil, 0, domain.ErrNotFound
	}

	path := filepath.Join(s.root, downloadID, filename)
	f, err := os.Open(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, 0, domain.ErrNotFound
		}
		return nil, 0, fmt.Errorf("failed to open artifact: %w", err)
	}
	info, err := f.Stat()
	if err != nil {
		f.Close()
		return nil, 0, fmt.Errorf("failed to stat artifact: %w", err)
	}
	if info.IsDir() {
		f.Close()
		return nil, 0, domain.ErrNotFound
	}

	return &selfDeletingReader{file: f, path: path, logger: s.logger}, info.Size(), nil
}

// SweepExpired removes job directories whose mtime is older than the expiry window
func (s *ArtifactStore) SweepExpired(now time.Time) ([]string, error) {
	entries, err := os.ReadDir(s.root)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to list temp directory: %w", err)
	}

	threshold := now.Add(-s.expiry)
	var removed []string
	for _, e := range entries {
		if !e.IsDir() {
			continue
		}
		info, err := e.Info()
		if err != nil {
			// vanished between listing and stat
			continue
		}
		if !info.ModTime().Before(threshold) {
			continue
		}

		dir := filepath.Join(s.root, e.Name())
		if err := os.RemoveAll(dir); err != nil {
			s.logger.Warn("Failed to remove expired directory",
				zap.String("dir", dir),
				zap.Error(err))
			continue
		}
		removed = append(removed, e.Name())
		s.logger.Info("Removed expired directory", zap.String("dir", dir))
	}
	return removed, nil
}

// Size reports the total bytes stored under the temp root
func (s *ArtifactStore) Size() int64 {
	var total int64
	filepath.WalkDir(s.root, func(_ string, d fs.DirEntry, err error) error {
		if err != nil {
			return nil
		}
		if !d.IsDir() {
			if info, err := d.Info(); err == nil {
				total += info.Size()
			}
		}
		return nil
	})
	return total
}

// SanitizeFilename strips path separators and shell-hostile characters from a base name
func SanitizeFilename(name string) string {
	name = strings.TrimSpace(name)
	name = strings.NewReplacer("/", "_", "\\", "_").Replace(name)
	name = unsafeNameChars.ReplaceAllString(name, "")
	name = strings.Trim(name, ". ")
	if len(name) > 200 {
		name = name[:200]
	}
	return name
}

func validSegment(s string) bool {
	return s != "" && s != "." && s != ".." && !strings.ContainsAny(s, `/\`) && !strings.ContainsRune(s, 0)
}

func globEscape(s string) string {
	return strings.NewReplacer("*", `\*`, "?", `\?`, "[", `\[`, "]", `\]`).Replace(s)
}

type selfDeletingReader struct {
	file   *os.File
	path   string
	logger *zap.Logger
	once   sync.Once
}

func (r *selfDeletingReader) Read(p []byte) (int, error) {
	n, err := r.file.Read(p)
	if err == io.EOF {
		r.once.Do(r.remove)
	}
	return n, err
}

func (r *selfDeletingReader) Close() error {
	var err error
	r.once.Do(func() { err = r.file.Close() })
	return err
}

func (r *selfDeletingReader) remove() {
	r.file.Close()
	if err := os.Remove(r.path); err != nil && !errors.Is(err, fs.ErrNotExist) {
		r.logger.Warn("Failed to remove streamed artifact", zap.String("path", r.path), zap.Error(err))
		return
	}
	dir := filepath.Dir(r.path)
	if entries, err := os.ReadDir(dir); err == nil && len(entries) == 0 {
		if err := os.Remove(dir); err != nil {
			r.logger.Warn("Failed to remove job directory", zap.String("dir", dir), zap.Error(err))
		}
	}
}
