package handlers

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/yourusername/mediafetch-go/internal/domain"
	"github.com/yourusername/mediafetch-go/internal/infrastructure"
	"go.uber.org/zap"
)

// FileHandler serves prepared artifacts exactly once
type FileHandler struct {
	store  *infrastructure.ArtifactStore
	logger *zap.Logger
}

// NewFileHandler creates a new file handler
func NewFileHandler(store *infrastructure.ArtifactStore, logger *zap.Logger) *FileHandler {
	return &FileHandler{
		store:  store,
		logger: logger,
	}
}

// GetFile handles GET /api/file/:id/:name. The file and its directory are
// removed once the body has been fully written.
func (h *FileHandler) GetFile(c *gin.Context) {
	id := c.Param("id")
	name := c.Param("name")

	reader, size, err := h.store.OpenForStreamingDelete(id, name)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			c.JSON(http.StatusNotFound, errorBody("File not found"))
			return
		}
		respondError(c, err)
		return
	}
	defer reader.Close()

	h.logger.Info("Serving artifact",
		zap.String("id", id),
		zap.String("file", name),
		zap.Int64("size_bytes", size))

	c.DataFromReader(http.StatusOK, size, "application/octet-stream", reader, map[string]string{
		"Content-Disposition": fmt.Sprintf(`attachment; filename="%s"`, name),
	})
}
