package handlers

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/yourusername/mediafetch-go/pkg/logger"
)

const maxLogLimit = 1000

// LogHandler serves the categorized job and error logs
type LogHandler struct {
	logReader *logger.LogReader
}

// NewLogHandler creates a new log handler
func NewLogHandler(logsDir string) *LogHandler {
	return &LogHandler{
		logReader: logger.NewLogReader(logsDir),
	}
}

// GetCategories handles GET /api/logs/categories
func (h *LogHandler) GetCategories(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":     "success",
		"categories": logger.Categories,
	})
}

// GetLogs handles GET /api/logs/:category
func (h *LogHandler) GetLogs(c *gin.Context) {
	category, date, limit, ok := h.parseQuery(c)
	if !ok {
		return
	}

	entries, err := h.logReader.ReadLogs(category, date, limit)
	if err != nil {
		c.JSON(http.StatusInternalServerError, errorBody("failed to read logs"))
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"status":   "success",
		"category": category,
		"date":     date.Format("2006-01-02"),
		"count":    len(entries),
		"entries":  entries,
	})
}

// SearchLogs handles GET /api/logs/:category/search?q=
func (h *LogHandler) SearchLogs(c *gin.Context) {
	query := c.Query("q")
	if query == "" {
		c.JSON(http.StatusBadRequest, errorBody("query parameter 'q' is required"))
		return
	}

	category, date, limit, ok := h.parseQuery(c)
	if !ok {
		return
	}

	entries, err := h.logReader.SearchLogs(category, date, query, limit)
	if err != nil {
		c.JSON(http.StatusInternalServerError, errorBody("failed to search logs"))
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"status":   "success",
		"category": category,
		"query":    query,
		"count":    len(entries),
		"entries":  entries,
	})
}

// parseQuery reads category, date and limit, writing a 400 on bad input
func (h *LogHandler) parseQuery(c *gin.Context) (logger.LogCategory, time.Time, int, bool) {
	category := logger.LogCategory(c.Param("category"))
	if !knownCategory(category) {
		c.JSON(http.StatusBadRequest, errorBody("invalid category"))
		return "", time.Time{}, 0, false
	}

	limit, err := strconv.Atoi(c.DefaultQuery("limit", "100"))
	if err != nil || limit < 0 {
		limit = 100
	}
	if limit > maxLogLimit {
		limit = maxLogLimit
	}

	date := time.Now()
	if raw := c.Query("date"); raw != "" {
		date, err = time.Parse("2006-01-02", raw)
		if err != nil {
			c.JSON(http.StatusBadRequest, errorBody("invalid date format, use YYYY-MM-DD"))
			return "", time.Time{}, 0, false
		}
	}
	return category, date, limit, true
}
