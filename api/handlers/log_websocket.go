package handlers

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/yourusername/mediafetch-go/pkg/logger"
	"go.uber.org/zap"
)

const (
	backlogEntries = 50
	pingInterval   = 30 * time.Second
	writeTimeout   = 10 * time.Second
)

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
}

// LogStreamHandler pushes category log entries to WebSocket clients as they are written
type LogStreamHandler struct {
	logReader *logger.LogReader
	logger    *zap.Logger
}

// NewLogStreamHandler creates a new log stream handler
func NewLogStreamHandler(logsDir string, log *zap.Logger) *LogStreamHandler {
	return &LogStreamHandler{
		logReader: logger.NewLogReader(logsDir),
		logger:    log,
	}
}

// Stream handles GET /api/logs/:category/stream. The last entries of the day
// are sent first, then every new entry until the client goes away.
func (h *LogStreamHandler) Stream(c *gin.Context) {
	category := logger.LogCategory(c.Param("category"))
	if !knownCategory(category) {
		c.JSON(http.StatusBadRequest, errorBody("invalid category"))
		return
	}

	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		h.logger.Warn("Failed to upgrade WebSocket", zap.Error(err))
		return
	}
	defer conn.Close()

	h.logger.Info("Log stream client connected",
		zap.String("category", string(category)),
		zap.String("remote_addr", c.Request.RemoteAddr))

	ctx, cancel := context.WithCancel(c.Request.Context())
	defer cancel()

	entries := make(chan logger.LogEntry, 100)
	go func() {
		if err := h.logReader.StreamLogs(ctx, category, backlogEntries, entries); err != nil {
			h.logger.Error("Log tailing failed", zap.Error(err))
			cancel()
		}
	}()

	// the read loop only notices the client closing
	go func() {
		defer cancel()
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	ticker := time.NewTicker(pingInterval)
	defer ticker.Stop()

	for {
		select {
		case entry := <-entries:
			if err := h.send(conn, entry); err != nil {
				h.logger.Debug("Log stream client gone", zap.Error(err))
				return
			}
		case <-ticker.C:
			if err := conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(writeTimeout)); err != nil {
				return
			}
		case <-ctx.Done():
			return
		}
	}
}

func (h *LogStreamHandler) send(conn *websocket.Conn, entry logger.LogEntry) error {
	conn.SetWriteDeadline(time.Now().Add(writeTimeout))
	return conn.WriteJSON(entry)
}

func knownCategory(category logger.LogCategory) bool {
	for _, known := range logger.Categories {
		if category == known {
			return true
		}
	}
	return false
}
