package handlers

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/yourusername/mediafetch-go/internal/app"
	"github.com/yourusername/mediafetch-go/internal/infrastructure"
	"go.uber.org/zap"
)

// AdminHandler handles maintenance endpoints
type AdminHandler struct {
	sweeper  *app.Sweeper
	selector *app.EgressSelector
	logger   *zap.Logger
}

// NewAdminHandler creates a new admin handler
func NewAdminHandler(sweeper *app.Sweeper, selector *app.EgressSelector, logger *zap.Logger) *AdminHandler {
	return &AdminHandler{
		sweeper:  sweeper,
		selector: selector,
		logger:   logger,
	}
}

// Cleanup handles POST /api/cleanup
func (h *AdminHandler) Cleanup(c *gin.Context) {
	removed, err := h.sweeper.Sweep()
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"status":  "success",
		"message": "Cleanup completed",
		"removed": removed,
	})
}

type egressView struct {
	Address       string     `json:"address"`
	Score         float64    `json:"score"`
	SuccessCount  int64      `json:"success_count"`
	FailureCount  int64      `json:"failure_count"`
	LastFailureAt *time.Time `json:"last_failure_at,omitempty"`
}

// Egress handles GET /api/egress with the current ranking
func (h *AdminHandler) Egress(c *gin.Context) {
	ranked := h.selector.Rank(time.Now())

	views := make([]egressView, 0, len(ranked))
	for _, ep := range ranked {
		v := egressView{
			Address:      infrastructure.RedactProxyURL(ep.Address),
			Score:        ep.Score(),
			SuccessCount: ep.SuccessCount,
			FailureCount: ep.FailureCount,
		}
		if !ep.LastFailureAt.IsZero() {
			at := ep.LastFailureAt
			v.LastFailureAt = &at
		}
		views = append(views, v)
	}

	c.JSON(http.StatusOK, gin.H{
		"status":    "success",
		"endpoints": views,
	})
}
