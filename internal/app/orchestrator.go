package app

import (
	"context"
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"strings"
	"time"

	"github.com/yourusername/mediafetch-go/internal/domain"
	"github.com/yourusername/mediafetch-go/internal/infrastructure"
	"github.com/yourusername/mediafetch-go/pkg/logger"
	"go.uber.org/zap"
)

// Recorder receives orchestration metrics
type Recorder interface {
	ObserveDownload(status string, duration time.Duration, sizeBytes int64)
	ObserveAttempt(outcome string)
	SetActiveWorkers(n int)
}

type nopRecorder struct{}

func (nopRecorder) ObserveDownload(string, time.Duration, int64) {}
func (nopRecorder) ObserveAttempt(string)                         {}
func (nopRecorder) SetActiveWorkers(int)                          {}

// DownloadRequest is a caller's request to materialize or stream media
type DownloadRequest struct {
	URL            string
	FormatID       string
	MediaKind      domain.MediaKind
	CustomName     string
	SubtitleOption domain.SubtitleOption
	SubtitleLang   string
	Cookies        string
	Session        map[string]string
}

// DownloadResult describes a completed download
type DownloadResult struct {
	Job      *domain.Job
	Artifact *domain.Artifact
	Warning  string
}

// StreamTarget receives a streamed download. Begin is called once, right
// before the first byte is written.
type StreamTarget interface {
	io.Writer
	Begin(filename string)
}

// Orchestrator drives jobs through the strategy loop
type Orchestrator struct {
	client      domain.ExtractionClient
	store       *infrastructure.ArtifactStore
	selector    *EgressSelector
	credentials *CredentialResolver
	gate        *ConcurrencyGate
	config      *domain.DownloadConfig
	logger      *zap.Logger

	cache       domain.MetadataCache
	cacheTTL    time.Duration
	jobs        domain.JobRepository
	metrics     Recorder
	eventLogger *logger.MultiLogger

	now   func() time.Time
	sleep func(ctx context.Context, d time.Duration) error
}

// NewOrchestrator creates an orchestrator; optional collaborators are attached with the With* methods
func NewOrchestrator(
	client domain.ExtractionClient,
	store *infrastructure.ArtifactStore,
	selector *EgressSelector,
	credentials *CredentialResolver,
	gate *ConcurrencyGate,
	config *domain.DownloadConfig,
	logger *zap.Logger,
) *Orchestrator {
	return &Orchestrator{
		client:      client,
		store:       store,
		selector:    selector,
		credentials: credentials,
		gate:        gate,
		config:      config,
		logger:      logger,
		metrics:     nopRecorder{},
		now:         time.Now,
		sleep:       sleepContext,
	}
}

// WithCache enables metadata caching for extract requests without caller cookies
func (o *Orchestrator) WithCache(cache domain.MetadataCache, ttl time.Duration) *Orchestrator {
	o.cache = cache
	o.cacheTTL = ttl
	return o
}

// WithJobRepository persists job records
func (o *Orchestrator) WithJobRepository(repo domain.JobRepository) *Orchestrator {
	o.jobs = repo
	return o
}

// WithMetrics attaches a metrics recorder
func (o *Orchestrator) WithMetrics(m Recorder) *Orchestrator {
	if m != nil {
		o.metrics = m
	}
	return o
}

// WithEventLogger writes job lifecycle events to the categorized job log
func (o *Orchestrator) WithEventLogger(ml *logger.MultiLogger) *Orchestrator {
	o.eventLogger = ml
	return o
}

// Capabilities reports the extraction engine's capabilities
func (o *Orchestrator) Capabilities() domain.Capabilities {
	return o.client.Capabilities()
}

// Download materializes the requested media into a fresh job directory
func (o *Orchestrator) Download(ctx context.Context, req DownloadRequest) (*DownloadResult, error) {
	caps := o.client.Capabilities()
	if err := validateDownload(&req, caps); err != nil {
		return nil, err
	}

	release, err := o.admit(ctx)
	if err != nil {
		return nil, err
	}
	defer release()

	start := o.now()
	job := newJobFromRequest(req)

	dir, err := o.store.AllocateJobDir(job.ID)
	if err != nil {
		return nil, o.fail(job, err, start)
	}
	job.Directory = dir
	o.createJob(job)

	plan := planFormat(job, caps, o.config)
	job.AddWarning(plan.Warning)
	preflightDone := job.SubtitleOption != domain.SubtitleAudioTrackPreference

	err = o.runStrategies(ctx, job, func(ctx context.Context, s Strategy) error {
		o.advance(job, domain.StateAdmitted, domain.StateResolving)

		if !preflightDone {
			info, err := o.client.Resolve(ctx, metadataRequest(job.SourceURL, s))
			if err != nil {
				return err
			}
			preflightDone = true
			if info.HasAudioLanguage(job.SubtitleLang) {
				plan = plan.withAudioLanguage(job, o.config)
			} else {
				job.AddWarning(fmt.Sprintf("Audio track in language '%s' not available, using default audio", job.SubtitleLang))
			}
		}

		o.advance(job, domain.StateResolving, domain.StateDownloading)

		if _, err := o.client.Resolve(ctx, plan.request(job.SourceURL, dir, s)); err != nil {
			if rerr := o.store.Reset(dir); rerr != nil {
				o.logger.Warn("Failed to clear partial files",
					zap.String("id", job.ID),
					zap.Error(rerr))
			}
			return err
		}
		return nil
	})
	if err != nil {
		return nil, o.fail(job, err, start)
	}

	artifact, err := o.postProcess(job, dir)
	if err != nil {
		return nil, o.fail(job, err, start)
	}

	o.complete(job, artifact, start)
	return &DownloadResult{Job: job, Artifact: artifact, Warning: job.Warning}, nil
}

// postProcess converts the subtitle track if requested and applies the custom name.
// Subtitle problems only add warnings.
func (o *Orchestrator) postProcess(job *domain.Job, dir string) (*domain.Artifact, error) {
	if err := job.Transition(domain.StatePostProcessing); err != nil {
		return nil, err
	}

	media, err := o.store.LocateMedia(dir)
	if err != nil {
		return nil, err
	}

	var subtitle string
	if job.SubtitleOption == domain.SubtitleTextFile {
		if track, ok := o.store.LocateSubtitle(dir, job.SubtitleLang); ok {
			target := strings.TrimSuffix(media, filepath.Ext(media)) + ".txt"
			if err := infrastructure.ConvertFile(track, target); err != nil {
				o.logger.Warn("Subtitle conversion failed",
					zap.String("id", job.ID),
					zap.Error(err))
				job.AddWarning("Subtitle conversion failed")
			} else {
				subtitle = target
			}
		} else {
			job.AddWarning(fmt.Sprintf("Subtitles in language '%s' not available", job.SubtitleLang))
		}
	}

	return o.store.Finalize(dir, media, subtitle, job.CustomName)
}

// Stream pipes the requested media to target. Attempts are retried only
// while nothing has been written; after the first byte a failure is final.
func (o *Orchestrator) Stream(ctx context.Context, req DownloadRequest, target StreamTarget) error {
	caps := o.client.Capabilities()
	if err := validateDownload(&req, caps); err != nil {
		return err
	}

	release, err := o.admit(ctx)
	if err != nil {
		return err
	}
	defer release()

	start := o.now()
	job := newJobFromRequest(req)
	o.createJob(job)

	format, ext := streamPlan(job, o.config)
	out := &lazyWriter{target: target}

	err = o.runStrategies(ctx, job, func(ctx context.Context, s Strategy) error {
		o.advance(job, domain.StateAdmitted, domain.StateResolving)
		info, err := o.client.Resolve(ctx, metadataRequest(job.SourceURL, s))
		if err != nil {
			return err
		}
		o.advance(job, domain.StateResolving, domain.StateDownloading)

		name := SanitizeTitle(info.Title)
		if custom := infrastructure.SanitizeFilename(job.CustomName); custom != "" {
			name = custom
		}
		out.filename = name + "." + ext

		streamReq := metadataRequest(job.SourceURL, s)
		streamReq.Format = format
		if err := o.client.StreamTo(ctx, streamReq, out); err != nil {
			if out.written > 0 {
				return &domain.ExtractionError{Fatal: true, Detail: "stream interrupted after first byte", Err: err}
			}
			return err
		}
		return nil
	})
	if err != nil {
		return o.fail(job, err, start)
	}

	out.begin()
	if err := job.Transition(domain.StatePostProcessing); err != nil {
		return o.fail(job, err, start)
	}
	o.complete(job, &domain.Artifact{MainFile: out.filename, SizeBytes: out.written, Extension: ext}, start)
	return nil
}

// Extract resolves metadata only. It is not bounded by the gate.
func (o *Orchestrator) Extract(ctx context.Context, url, cookies string) (*domain.MediaInfo, error) {
	if err := ValidateURL(url); err != nil {
		return nil, err
	}
	url = strings.TrimSpace(url)

	cacheable := o.cache != nil && cookies == ""
	if cacheable {
		if info, ok := o.cache.Get(ctx, url); ok {
			o.logger.Debug("Metadata cache hit", zap.String("url", url))
			return info, nil
		}
	}

	probe := domain.NewJob(url, domain.MediaVideo)
	probe.CallerCookies = cookies

	var info *domain.MediaInfo
	err := o.runStrategies(ctx, probe, func(ctx context.Context, s Strategy) error {
		var err error
		info, err = o.client.Resolve(ctx, metadataRequest(url, s))
		return err
	})
	if err != nil {
		o.logger.Warn("Metadata extraction failed",
			zap.String("url", url),
			zap.Int("attempts", probe.Attempts),
			zap.Error(err))
		return nil, err
	}

	if cacheable {
		if err := o.cache.Set(ctx, url, info, o.cacheTTL); err != nil {
			o.logger.Warn("Failed to cache metadata", zap.String("url", url), zap.Error(err))
		}
	}
	return info, nil
}

// runStrategies tries (egress, credential) pairs in plan order until one
// succeeds, a fatal error occurs or the plan runs out. Exactly one outcome is
// recorded per attempt.
func (o *Orchestrator) runStrategies(ctx context.Context, job *domain.Job, attempt func(context.Context, Strategy) error) error {
	ranked := o.selector.Rank(o.now())
	creds := o.credentials.Candidates(ctx, job.SourceURL, job.CallerCookies, job.SessionPayload)
	plan := NewStrategyPlan(ranked, o.config.MaxStrategyAttempts, creds)

	var lastErr error
	for {
		s, ok := plan.Next()
		if !ok {
			break
		}
		if job.Attempts > 0 && o.config.RetryDelay > 0 {
			if err := o.sleep(ctx, o.config.RetryDelay); err != nil {
				return err
			}
		}

		job.Attempts++
		err := attempt(ctx, s)
		o.selector.RecordOutcome(s.Egress.Address, err == nil, o.now())

		if err == nil {
			o.metrics.ObserveAttempt("success")
			if job.Attempts > 1 {
				o.logger.Info("Strategy succeeded after retries",
					zap.String("id", job.ID),
					zap.Int("attempt", job.Attempts),
					zap.String("egress", s.Egress.Address),
					zap.String("credential", s.Credential.String()))
			}
			return nil
		}

		o.metrics.ObserveAttempt("failure")
		lastErr = err
		job.RecordError(err)
		o.logger.Warn("Strategy failed",
			zap.String("id", job.ID),
			zap.Int("attempt", job.Attempts),
			zap.String("egress", s.Egress.Address),
			zap.String("credential", s.Credential.String()),
			zap.Error(err))
		o.logEvent("strategy_failed",
			zap.String("id", job.ID),
			zap.Int("attempt", job.Attempts),
			zap.String("egress", s.Egress.Address),
			zap.String("credential", string(s.Credential.Kind)),
			zap.String("error", err.Error()))

		if domain.IsFatal(err) {
			return err
		}
		if ctx.Err() != nil {
			return ctx.Err()
		}
	}

	if lastErr == nil {
		lastErr = errors.New("no usable egress and credential combination")
	}
	return &domain.ExhaustedError{
		Attempts: job.Attempts,
		Egresses: plan.EgressesTried(),
		Last:     lastErr,
	}
}

// advance moves job to the next state if it is still in from. Retries re-enter
// the attempt callback, so later attempts find the job already advanced.
func (o *Orchestrator) advance(job *domain.Job, from, to domain.JobState) {
	if job.State != from {
		return
	}
	if err := job.Transition(to); err != nil {
		o.logger.Warn("Job state not advanced",
			zap.String("id", job.ID),
			zap.String("from", string(from)),
			zap.String("to", string(to)),
			zap.Error(err))
	}
}

func (o *Orchestrator) admit(ctx context.Context) (func(), error) {
	release, err := o.gate.Acquire(ctx)
	if err != nil {
		return nil, err
	}
	o.metrics.SetActiveWorkers(o.gate.InUse())
	return func() {
		release()
		o.metrics.SetActiveWorkers(o.gate.InUse())
	}, nil
}

func (o *Orchestrator) createJob(job *domain.Job) {
	if o.jobs != nil {
		if err := o.jobs.Create(job); err != nil {
			o.logger.Warn("Failed to persist job", zap.String("id", job.ID), zap.Error(err))
		}
	}
	o.logEvent("job_admitted",
		zap.String("id", job.ID),
		zap.String("url", job.SourceURL),
		zap.String("media_kind", string(job.MediaKind)))
}

func (o *Orchestrator) saveJob(job *domain.Job) {
	if o.jobs == nil {
		return
	}
	if err := o.jobs.Update(job); err != nil {
		o.logger.Warn("Failed to update job", zap.String("id", job.ID), zap.Error(err))
	}
}

func (o *Orchestrator) fail(job *domain.Job, err error, start time.Time) error {
	if !job.IsTerminal() {
		job.MarkFailed(err)
	}
	o.saveJob(job)
	o.metrics.ObserveDownload("failure", o.now().Sub(start), 0)

	o.logger.Error("Job failed",
		zap.String("id", job.ID),
		zap.String("url", job.SourceURL),
		zap.Int("attempts", job.Attempts),
		zap.Error(err))
	o.logEvent("job_failed",
		zap.String("id", job.ID),
		zap.Int("attempts", job.Attempts),
		zap.String("error", err.Error()))
	if o.eventLogger != nil {
		o.eventLogger.LogAppError("Job failed",
			zap.String("id", job.ID),
			zap.String("url", job.SourceURL),
			zap.Int("attempts", job.Attempts),
			zap.String("error", err.Error()))
	}
	return err
}

func (o *Orchestrator) complete(job *domain.Job, artifact *domain.Artifact, start time.Time) {
	if err := job.MarkCompleted(artifact); err != nil {
		o.logger.Error("Invalid completion", zap.String("id", job.ID), zap.Error(err))
	}
	o.saveJob(job)
	o.metrics.ObserveDownload("success", o.now().Sub(start), artifact.SizeBytes)

	o.logger.Info("Job completed",
		zap.String("id", job.ID),
		zap.String("file", artifact.MainFile),
		zap.Int64("size_bytes", artifact.SizeBytes),
		zap.Int("attempts", job.Attempts))
	o.logEvent("job_completed",
		zap.String("id", job.ID),
		zap.String("file", artifact.MainFile),
		zap.Int64("size_bytes", artifact.SizeBytes),
		zap.String("warning", job.Warning))
}

func (o *Orchestrator) logEvent(event string, fields ...zap.Field) {
	if o.eventLogger != nil {
		o.eventLogger.LogJobEvent(event, fields...)
	}
}

func newJobFromRequest(req DownloadRequest) *domain.Job {
	job := domain.NewJob(strings.TrimSpace(req.URL), req.MediaKind)
	job.FormatID = req.FormatID
	job.CustomName = req.CustomName
	job.SubtitleOption = req.SubtitleOption
	job.SubtitleLang = req.SubtitleLang
	job.CallerCookies = req.Cookies
	job.SessionPayload = req.Session
	return job
}

// SanitizeTitle turns a media title into a safe base filename
func SanitizeTitle(title string) string {
	if name := infrastructure.SanitizeFilename(title); name != "" {
		return name
	}
	return "download"
}

func sleepContext(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-t.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// lazyWriter defers target.Begin until the first write and counts bytes
type lazyWriter struct {
	target   StreamTarget
	filename string
	written  int64
	started  bool
}

func (w *lazyWriter) begin() {
	if !w.started {
		w.started = true
		w.target.Begin(w.filename)
	}
}

func (w *lazyWriter) Write(p []byte) (int, error) {
	if len(p) == 0 {
		return 0, nil
	}
	w.begin()
	n, err := w.target.Write(p)
	w.written += int64(n)
	return n, err
}
