package server

import (
	"net/http"
	"sort"
	"time"

	"scm-scheduler/src/helpers"
	"scm-scheduler/src/models"
	"scm-scheduler/src/stream"

	"cloud.google.com/go/civil"
	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
)

// -----------------------------------------------------------------------------
// WebSocket Handler
// -----------------------------------------------------------------------------

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin:     func(r *http.Request) bool { return true },
}

// -----------------------------------------------------------------------------

// handleDateRange runs one scheduling session on the handler goroutine.
func (s *APIServer) handleDateRange(c *gin.Context) {
	if s.ctx.Err() != nil {
		c.JSON(http.StatusServiceUnavailable, models.MErrorFrame{Error: helpers.ErrShuttingDown})
		return
	}

	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		s.Logger.Info("Failed to upgrade websocket: %v", err)
		return
	}

	session := stream.NewSession(c.ClientIP())
	if !s.addSession(session) {
		// Stop won the race after the upgrade
		msg := websocket.FormatCloseMessage(websocket.CloseGoingAway, helpers.ErrShuttingDown)
		conn.WriteControl(websocket.CloseMessage, msg, time.Now().Add(closeGrace))
		conn.Close()
		return
	}
	defer s.removeSession(session)

	transport := NewWSTransport(conn, s.Config.Stream, s.Logger.Named("transport"))
	s.driver.Run(s.ctx, session, c.Request.URL.RawQuery, transport)
}

// -----------------------------------------------------------------------------
// Route Handlers
// -----------------------------------------------------------------------------

func (s *APIServer) getHealth(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":          "ok",
		"active_sessions": s.ActiveSessions(),
		"providers":       s.providers,
	})
}

// -----------------------------------------------------------------------------

func (s *APIServer) getConfig(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"default_interval_seconds": s.Config.Stream.DefaultIntervalSeconds,
		"storage_backend":          s.Config.Storage.Backend,
		"product_lines":            s.Config.Providers.ProductLines,
		"cache_enabled":            s.Config.Cache.Enabled,
	})
}

// -----------------------------------------------------------------------------

func (s *APIServer) getSessions(c *gin.Context) {
	s.sessionsMu.RLock()
	infos := make([]stream.SessionInfo, 0, len(s.sessions))
	for _, session := range s.sessions {
		infos = append(infos, session.Info())
	}
	s.sessionsMu.RUnlock()

	sort.Slice(infos, func(i, j int) bool { return infos[i].CreatedAt < infos[j].CreatedAt })
	c.JSON(http.StatusOK, gin.H{"sessions": infos})
}

// -----------------------------------------------------------------------------

// getSnapshot serves the snapshot of one date, the single-shot form of the stream.
func (s *APIServer) getSnapshot(c *gin.Context) {
	date, err := civil.ParseDate(c.Query("date"))
	if err != nil {
		c.JSON(http.StatusBadRequest, models.MErrorFrame{
			Error: helpers.ErrInvalidDate,
			Hint:  "Use format YYYY-MM-DD for date",
		})
		return
	}

	snapshot, err := s.builder.Aggregate(c.Request.Context(), date)
	if err != nil {
		s.Logger.Error("Snapshot %s failed: %v", date, err)
		c.JSON(http.StatusInternalServerError, models.MErrorFrame{
			Error: err.Error(),
			Trace: helpers.Trace(err),
		})
		return
	}

	c.JSON(http.StatusOK, snapshot)
}
