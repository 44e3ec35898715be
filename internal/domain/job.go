package domain

import (
	"fmt"
	"time"

	"github.com/google/uuid"
)

// JobState represents the current state of a download job
type JobState string

const (
	StateAdmitted       JobState = "admitted"
	StateResolving      JobState = "resolving"
	StateDownloading    JobState = "downloading"
	StatePostProcessing JobState = "post_processing"
	StateCompleted      JobState = "completed"
	StateFailed         JobState = "failed"
)

// MediaKind selects between video and audio output
type MediaKind string

const (
	MediaVideo MediaKind = "video"
	MediaAudio MediaKind = "audio"
)

// SubtitleOption mirrors the numeric options.subtitle_option of the API
type SubtitleOption int

const (
	SubtitleNone                 SubtitleOption = 0 // No subtitle handling
	SubtitleAudioTrackPreference SubtitleOption = 1 // Prefer an audio track in the subtitle language
	SubtitleTextFile             SubtitleOption = 2 // Deliver a plain-text transcript
)

// allowedTransitions lists the forward edges of the job state machine.
// Failed is reachable from every non-terminal state and is handled separately.
var allowedTransitions = map[JobState][]JobState{
	StateAdmitted:       {StateResolving},
	StateResolving:      {StateDownloading},
	StateDownloading:    {StatePostProcessing},
	StatePostProcessing: {StateCompleted},
}

// Job represents one user-initiated download request
type Job struct {
	ID               string         `json:"id" gorm:"primaryKey"`
	SourceURL        string         `json:"source_url" gorm:"not null"`
	FormatID         string         `json:"format_id,omitempty"`
	MediaKind        MediaKind      `json:"media_kind" gorm:"not null;default:video"`
	CustomName       string         `json:"custom_name,omitempty"`
	SubtitleOption   SubtitleOption `json:"subtitle_option" gorm:"default:0"`
	SubtitleLang     string         `json:"subtitle_lang,omitempty"`
	State            JobState       `json:"state" gorm:"not null;index"`
	LastError        string         `json:"last_error,omitempty" gorm:"type:text"`
	Warning          string         `json:"warning,omitempty"`
	Directory        string         `json:"-"`
	Filename         string         `json:"filename,omitempty"`
	SubtitleFilename string         `json:"subtitle_filename,omitempty"`
	SizeBytes        int64          `json:"size_bytes,omitempty"`
	Attempts         int            `json:"attempts"`
	CreatedAt        time.Time      `json:"created_at" gorm:"autoCreateTime"`
	UpdatedAt        time.Time      `json:"updated_at" gorm:"autoUpdateTime"`
	CompletedAt      *time.Time     `json:"completed_at,omitempty"`

	// Credentials are request-scoped and never persisted
	CallerCookies  string            `json:"-" gorm:"-"`
	SessionPayload map[string]string `json:"-" gorm:"-"`
}

// NewJob creates a job in the Admitted state with a fresh unique id
func NewJob(sourceURL string, kind MediaKind) *Job {
	now := time.Now()
	if kind == "" {
		kind = MediaVideo
	}
	return &Job{
		ID:        uuid.New().String(),
		SourceURL: sourceURL,
		MediaKind: kind,
		State:     StateAdmitted,
		CreatedAt: now,
		UpdatedAt: now,
	}
}

// Transition moves the job along the state machine
func (j *Job) Transition(to JobState) error {
	if j.IsTerminal() {
		return fmt.Errorf("job %s already in terminal state %s", j.ID, j.State)
	}
	if to == StateFailed {
		j.State = to
		j.UpdatedAt = time.Now()
		return nil
	}
	for _, next := range allowedTransitions[j.State] {
		if next == to {
			j.State = to
			j.UpdatedAt = time.Now()
			return nil
		}
	}
	return fmt.Errorf("invalid job transition %s -> %s", j.State, to)
}

// RecordError stores the most recent attempt failure
func (j *Job) RecordError(err error) {
	if err == nil {
		return
	}
	j.LastError = err.Error()
	j.UpdatedAt = time.Now()
}

// AddWarning appends a non-fatal warning
func (j *Job) AddWarning(msg string) {
	if msg == "" {
		return
	}
	if j.Warning == "" {
		j.Warning = msg
		return
	}
	j.Warning += "; " + msg
}

// MarkFailed moves the job to Failed and records the terminal error
func (j *Job) MarkFailed(err error) {
	j.RecordError(err)
	j.State = StateFailed
	j.UpdatedAt = time.Now()
}

// MarkCompleted moves a post-processed job to Completed
func (j *Job) MarkCompleted(artifact *Artifact) error {
	if err := j.Transition(StateCompleted); err != nil {
		return err
	}
	j.Filename = artifact.MainFile
	j.SubtitleFilename = artifact.SubtitleFile
	j.SizeBytes = artifact.SizeBytes
	now := time.Now()
	j.CompletedAt = &now
	return nil
}

// IsTerminal checks if the job is completed or failed
func (j *Job) IsTerminal() bool {
	return j.State == StateCompleted || j.State == StateFailed
}

// ValidMediaKind reports whether kind is supported
func ValidMediaKind(kind MediaKind) bool {
	return kind == MediaVideo || kind == MediaAudio
}

// ValidSubtitleOption reports whether opt is supported
func ValidSubtitleOption(opt SubtitleOption) bool {
	return opt == SubtitleNone || opt == SubtitleAudioTrackPreference || opt == SubtitleTextFile
}

// Artifact is the on-disk result of a completed job
type Artifact struct {
	Directory    string `json:"-"`
	MainFile     string `json:"filename"`
	SubtitleFile string `json:"subtitle_filename,omitempty"`
	SizeBytes    int64  `json:"size_bytes"`
	Extension    string `json:"extension"`
}

// JobStats counts persisted jobs by state
type JobStats struct {
	Total      int64 `json:"total"`
	InProgress int64 `json:"in_progress"`
	Completed  int64 `json:"completed"`
	Failed     int64 `json:"failed"`
}
