package domain

import (
	"context"
	"io"
	"sort"
	"time"
)

// ExtractionRequest is one (egress, credential, format) invocation of the engine.
// An empty OutputDir means metadata only.
type ExtractionRequest struct {
	URL        string
	Format     string
	ProxyURL   string
	Credential CredentialSource
	OutputDir  string

	ExtractAudio      bool
	AudioCodec        string
	AudioQuality      string
	MergeOutputFormat string
	RemuxVideo        string
	SubtitleLangs     []string
	SubtitleFormat    string
}

// MetadataOnly reports whether the request must not write files
func (r ExtractionRequest) MetadataOnly() bool {
	return r.OutputDir == ""
}

// MediaFormat is one downloadable stream as reported by the engine
type MediaFormat struct {
	FormatID   string  `json:"format_id"`
	Ext        string  `json:"ext"`
	FormatNote string  `json:"format_note,omitempty"`
	Resolution string  `json:"resolution,omitempty"`
	Width      int     `json:"width,omitempty"`
	Height     int     `json:"height,omitempty"`
	FPS        float64 `json:"fps,omitempty"`
	VCodec     string  `json:"vcodec,omitempty"`
	ACodec     string  `json:"acodec,omitempty"`
	Language   string  `json:"language,omitempty"`
	Filesize   float64 `json:"filesize,omitempty"`
	TBR        float64 `json:"tbr,omitempty"`
}

// HasAudio reports whether the format carries an audio stream
func (f MediaFormat) HasAudio() bool {
	return f.ACodec != "" && f.ACodec != "none"
}

// SubtitleTrack is one timed-text rendition
type SubtitleTrack struct {
	Ext  string `json:"ext"`
	URL  string `json:"url,omitempty"`
	Name string `json:"name,omitempty"`
}

// MediaInfo is the metadata resolved for a URL
type MediaInfo struct {
	ID         string                     `json:"id"`
	Title      string                     `json:"title"`
	Duration   float64                    `json:"duration,omitempty"`
	Thumbnail  string                     `json:"thumbnail,omitempty"`
	Ext        string                     `json:"ext,omitempty"`
	Uploader   string                     `json:"uploader,omitempty"`
	WebpageURL string                     `json:"webpage_url,omitempty"`
	Formats    []MediaFormat              `json:"formats"`
	Subtitles  map[string][]SubtitleTrack `json:"subtitles,omitempty"`
}

// SubtitleLanguages returns the sorted languages that have subtitle tracks
func (m *MediaInfo) SubtitleLanguages() []string {
	langs := make([]string, 0, len(m.Subtitles))
	for lang, tracks := range m.Subtitles {
		if len(tracks) > 0 {
			langs = append(langs, lang)
		}
	}
	sort.Strings(langs)
	return langs
}

// HasAudioLanguage reports whether any audio-bearing format is in lang
func (m *MediaInfo) HasAudioLanguage(lang string) bool {
	for _, f := range m.Formats {
		if f.Language == lang && f.HasAudio() {
			return true
		}
	}
	return false
}

// Capabilities reports which external binaries are usable
type Capabilities struct {
	ExtractorAvailable  bool `json:"extractor_available"`
	TranscoderAvailable bool `json:"ffmpeg_available"`
}

// ExtractionClient is the adapter to the external metadata/download engine
type ExtractionClient interface {
	// Resolve fetches metadata and, when req.OutputDir is set, writes files there
	Resolve(ctx context.Context, req ExtractionRequest) (*MediaInfo, error)

	// StreamTo pipes the selected format to w without touching disk
	StreamTo(ctx context.Context, req ExtractionRequest, w io.Writer) error

	// Capabilities reports engine and transcoder availability
	Capabilities() Capabilities
}

// MetadataCache stores resolved metadata per URL
type MetadataCache interface {
	Get(ctx context.Context, url string) (*MediaInfo, bool)
	Set(ctx context.Context, url string, info *MediaInfo, ttl time.Duration) error
}

// SessionCookieProvider performs a login round-trip and returns a Cookie header
type SessionCookieProvider interface {
	SessionCookies(ctx context.Context, target string, payload map[string]string) (string, error)
}
