package handlers

import (
	"context"
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/yourusername/mediafetch-go/internal/app"
	"github.com/yourusername/mediafetch-go/internal/domain"
	"go.uber.org/zap"
)

// MediaService is the orchestration surface used by the media routes
type MediaService interface {
	Extract(ctx context.Context, url, cookies string) (*domain.MediaInfo, error)
	Download(ctx context.Context, req app.DownloadRequest) (*app.DownloadResult, error)
	Stream(ctx context.Context, req app.DownloadRequest, target app.StreamTarget) error
	Batch(ctx context.Context, urls []string) (*app.BatchResult, error)
	Capabilities() domain.Capabilities
}

// MediaHandler handles extract, download, stream and batch requests
type MediaHandler struct {
	service MediaService
	logger  *zap.Logger
}

// NewMediaHandler creates a new media handler
func NewMediaHandler(service MediaService, logger *zap.Logger) *MediaHandler {
	return &MediaHandler{
		service: service,
		logger:  logger,
	}
}

// ExtractRequest represents a metadata request
type ExtractRequest struct {
	URL     string `json:"url"`
	Cookies string `json:"cookies,omitempty"`
}

// MediaRequest represents a download or stream request
type MediaRequest struct {
	URL          string            `json:"url"`
	FormatID     string            `json:"format_id,omitempty"`
	DownloadType string            `json:"download_type,omitempty"`
	CustomName   string            `json:"custom_name,omitempty"`
	Cookies      string            `json:"cookies,omitempty"`
	Session      map[string]string `json:"session,omitempty"`
	Options      struct {
		SubtitleOption int    `json:"subtitle_option"`
		SubtitleLang   string `json:"subtitle_lang,omitempty"`
	} `json:"options"`
}

func (r MediaRequest) toDownloadRequest() app.DownloadRequest {
	return app.DownloadRequest{
		URL:            r.URL,
		FormatID:       r.FormatID,
		MediaKind:      domain.MediaKind(r.DownloadType),
		CustomName:     r.CustomName,
		SubtitleOption: domain.SubtitleOption(r.Options.SubtitleOption),
		SubtitleLang:   r.Options.SubtitleLang,
		Cookies:        r.Cookies,
		Session:        r.Session,
	}
}

// BatchRequest represents a batch metadata request
type BatchRequest struct {
	URLs []string `json:"urls"`
}

// Extract handles POST /api/extract
func (h *MediaHandler) Extract(c *gin.Context) {
	var req ExtractRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, errorBody("invalid request body"))
		return
	}

	info, err := h.service.Extract(c.Request.Context(), req.URL, req.Cookies)
	if err != nil {
		respondError(c, err)
		return
	}

	formats := info.Formats
	if formats == nil {
		formats = []domain.MediaFormat{}
	}
	langs := info.SubtitleLanguages()

	c.JSON(http.StatusOK, gin.H{
		"status": "success",
		"data": gin.H{
			"title":              info.Title,
			"duration":           info.Duration,
			"thumbnail":          info.Thumbnail,
			"formats":            formats,
			"ffmpeg_available":   h.service.Capabilities().TranscoderAvailable,
			"has_subtitles":      len(langs) > 0,
			"subtitle_languages": langs,
		},
	})
}

// Download handles POST /api/download
func (h *MediaHandler) Download(c *gin.Context) {
	var req MediaRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, errorBody("invalid request body"))
		return
	}

	result, err := h.service.Download(c.Request.Context(), req.toDownloadRequest())
	if err != nil {
		respondError(c, err)
		return
	}

	resp := gin.H{
		"status":      "success",
		"download_id": result.Job.ID,
		"filename":    result.Artifact.MainFile,
	}
	if result.Artifact.SubtitleFile != "" {
		resp["subtitle_filename"] = result.Artifact.SubtitleFile
	}
	if result.Warning != "" {
		resp["warning"] = result.Warning
	}
	c.JSON(http.StatusOK, resp)
}

// Stream handles POST /api/stream. Errors before the first byte get a JSON
// body; after that the connection is simply cut short.
func (h *MediaHandler) Stream(c *gin.Context) {
	var req MediaRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, errorBody("invalid request body"))
		return
	}

	target := &responseTarget{c: c}
	err := h.service.Stream(c.Request.Context(), req.toDownloadRequest(), target)
	if err == nil {
		return
	}
	if target.started {
		h.logger.Warn("Stream aborted after first byte",
			zap.String("url", req.URL),
			zap.Error(err))
		c.Abort()
		return
	}
	respondError(c, err)
}

// Batch handles POST /api/batch
func (h *MediaHandler) Batch(c *gin.Context) {
	var req BatchRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, errorBody("invalid request body"))
		return
	}

	result, err := h.service.Batch(c.Request.Context(), req.URLs)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"status":  "success",
		"count":   result.Count,
		"results": result.Results,
	})
}

// responseTarget writes streamed media straight into the response
type responseTarget struct {
	c       *gin.Context
	started bool
}

func (t *responseTarget) Begin(filename string) {
	t.started = true
	t.c.Header("Content-Type", "application/octet-stream")
	t.c.Header("Content-Disposition", fmt.Sprintf(`attachment; filename="%s"`, filename))
	t.c.Status(http.StatusOK)
}

func (t *responseTarget) Write(p []byte) (int, error) {
	n, err := t.c.Writer.Write(p)
	t.c.Writer.Flush()
	return n, err
}
