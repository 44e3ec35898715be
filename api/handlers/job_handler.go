package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/yourusername/mediafetch-go/internal/domain"
	"go.uber.org/zap"
)

// JobHandler exposes persisted job records
type JobHandler struct {
	jobs   domain.JobRepository
	logger *zap.Logger
}

// NewJobHandler creates a new job handler
func NewJobHandler(jobs domain.JobRepository, logger *zap.Logger) *JobHandler {
	return &JobHandler{
		jobs:   jobs,
		logger: logger,
	}
}

// GetJob handles GET /api/jobs/:id
func (h *JobHandler) GetJob(c *gin.Context) {
	job, err := h.jobs.FindByID(c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"status": "success",
		"job":    job,
	})
}

// GetStats handles GET /api/jobs/stats
func (h *JobHandler) GetStats(c *gin.Context) {
	stats, err := h.jobs.GetStats()
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"status": "success",
		"stats":  stats,
	})
}
