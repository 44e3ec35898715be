package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/yourusername/mediafetch-go/internal/app"
	"github.com/yourusername/mediafetch-go/internal/domain"
	"github.com/yourusername/mediafetch-go/internal/infrastructure"
)

// CapabilityProber reports the availability of external binaries
type CapabilityProber interface {
	Capabilities() domain.Capabilities
}

// HealthHandler handles health check requests
type HealthHandler struct {
	prober CapabilityProber
	store  *infrastructure.ArtifactStore
	gate   *app.ConcurrencyGate
}

// NewHealthHandler creates a new health handler
func NewHealthHandler(prober CapabilityProber, store *infrastructure.ArtifactStore, gate *app.ConcurrencyGate) *HealthHandler {
	return &HealthHandler{
		prober: prober,
		store:  store,
		gate:   gate,
	}
}

// HealthResponse represents a health check response
type HealthResponse struct {
	Status             string `json:"status"`
	ExtractorAvailable bool   `json:"extractor_available"`
	FFmpegAvailable    bool   `json:"ffmpeg_available"`
	TempDirSize        int64  `json:"temp_dir_size"`
	ActiveDownloads    int    `json:"active_downloads"`
	MaxConcurrent      int    `json:"max_concurrent"`
}

// Health handles GET /api/health
func (h *HealthHandler) Health(c *gin.Context) {
	caps := h.prober.Capabilities()

	c.JSON(http.StatusOK, HealthResponse{
		Status:             "ok",
		ExtractorAvailable: caps.ExtractorAvailable,
		FFmpegAvailable:    caps.TranscoderAvailable,
		TempDirSize:        h.store.Size(),
		ActiveDownloads:    h.gate.InUse(),
		MaxConcurrent:      h.gate.Capacity(),
	})
}

// Ready handles GET /api/ready; the service is not ready without the extractor
func (h *HealthHandler) Ready(c *gin.Context) {
	if !h.prober.Capabilities().ExtractorAvailable {
		c.JSON(http.StatusServiceUnavailable, gin.H{
			"status": "not ready",
			"reason": "extraction engine not installed",
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{"status": "ready"})
}
