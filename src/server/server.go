package server

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"sync"
	"time"

	"scm-scheduler/src/config"
	"scm-scheduler/src/interfaces"
	"scm-scheduler/src/logger"
	"scm-scheduler/src/metrics"
	"scm-scheduler/src/stream"

	"github.com/gin-gonic/gin"
)

// -----------------------------------------------------------------------------
// APIServer
// -----------------------------------------------------------------------------

type APIServer struct {
	Config *config.Config
	Logger *logger.Logger
	engine *gin.Engine
	http   *http.Server

	builder   interfaces.ISnapshotBuilder
	driver    *stream.Driver
	providers []string

	// Live sessions, cancelled together on Stop
	sessions   map[string]*stream.Session
	sessionsMu sync.RWMutex
	sessionsWg sync.WaitGroup
	ctx        context.Context
	cancel     context.CancelFunc
}

// -----------------------------------------------------------------------------
// Constructor
// -----------------------------------------------------------------------------

func NewAPIServer(cfg *config.Config, builder interfaces.ISnapshotBuilder, providers []string, log *logger.Logger) *APIServer {
	// Set Gin mode
	if cfg.LogLevel != "DEBUG" && gin.Mode() != gin.TestMode {
		gin.SetMode(gin.ReleaseMode)
	}

	ctx, cancel := context.WithCancel(context.Background())
	s := &APIServer{
		Config:    cfg,
		Logger:    log,
		engine:    gin.New(),
		builder:   builder,
		driver:    stream.NewDriver(builder, cfg.Stream.DefaultIntervalSeconds, log.Named("stream")),
		providers: providers,
		sessions:  make(map[string]*stream.Session),
		ctx:       ctx,
		cancel:    cancel,
	}

	s.engine.Use(gin.Recovery(), s.requestLogger())

	// Add CORS Middleware
	s.engine.Use(func(c *gin.Context) {
		if origin := c.Request.Header.Get("Origin"); origin != "" {
			c.Writer.Header().Set("Access-Control-Allow-Origin", origin)
		}
		c.Writer.Header().Set("Access-Control-Allow-Credentials", "true")
		c.Writer.Header().Set("Access-Control-Allow-Headers", "Content-Type, Content-Length, Accept-Encoding, X-CSRF-Token, Authorization, accept, origin, Cache-Control, X-Requested-With")
		c.Writer.Header().Set("Access-Control-Allow-Methods", "OPTIONS, GET")

		if c.Request.Method == "OPTIONS" {
			c.AbortWithStatus(http.StatusNoContent)
			return
		}

		c.Next()
	})

	// setup web routes
	s.setupRoutes()

	s.http = &http.Server{
		Addr:              fmt.Sprintf("%s:%d", cfg.Host, cfg.Port),
		Handler:           s.engine,
		ReadHeaderTimeout: 10 * time.Second,
	}
	return s
}

// -----------------------------------------------------------------------------
// Route Setup
// -----------------------------------------------------------------------------

func (s *APIServer) setupRoutes() {
	// REST API endpoints
	s.engine.GET("/api/health", s.getHealth)
	s.engine.GET("/api/config", s.getConfig)
	s.engine.GET("/api/sessions", s.getSessions)
	s.engine.GET("/api/scheduling/snapshot", s.getSnapshot)
	s.engine.GET("/metrics", gin.WrapH(metrics.Handler()))

	// WebSocket endpoint
	s.engine.GET("/ws/scheduling/date_range", s.handleDateRange)
}

// -----------------------------------------------------------------------------

// requestLogger logs REST calls at debug level through the component logger.
func (s *APIServer) requestLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		s.Logger.Debug("%s %s -> %d (%v)", c.Request.Method, c.Request.URL.Path, c.Writer.Status(), time.Since(start))
	}
}

// -----------------------------------------------------------------------------

// Handler exposes the router (tests mount it on httptest).
func (s *APIServer) Handler() http.Handler {
	return s.engine
}

// -----------------------------------------------------------------------------

// SetIntervalUnit scales the interval of every session (tests use milliseconds).
func (s *APIServer) SetIntervalUnit(unit time.Duration) {
	s.driver.IntervalUnit = unit
}

// -----------------------------------------------------------------------------
// Server Lifecycle
// -----------------------------------------------------------------------------

func (s *APIServer) Start() error {
	s.Logger.Info("Starting server on %s", s.http.Addr)

	if err := s.http.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// -----------------------------------------------------------------------------

// Stop cancels live sessions, then shuts the listener down. Sessions
// arriving after this point are refused.
func (s *APIServer) Stop() error {
	s.sessionsMu.Lock()
	s.cancel()
	s.sessionsMu.Unlock()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	err := s.http.Shutdown(ctx)

	waited := make(chan struct{})
	go func() {
		s.sessionsWg.Wait()
		close(waited)
	}()
	select {
	case <-waited:
	case <-ctx.Done():
		s.Logger.Warning("Timed out waiting for %d sessions to close", s.ActiveSessions())
	}

	s.Logger.Info("Server stopped")
	return err
}

// -----------------------------------------------------------------------------
// Session registry
// -----------------------------------------------------------------------------

// addSession registers session and counts it in sessionsWg. It reports
// false once Stop has begun, so Add never races Stop's Wait.
func (s *APIServer) addSession(session *stream.Session) bool {
	s.sessionsMu.Lock()
	defer s.sessionsMu.Unlock()
	if s.ctx.Err() != nil {
		return false
	}
	s.sessionsWg.Add(1)
	s.sessions[session.ID] = session
	return true
}

func (s *APIServer) removeSession(session *stream.Session) {
	s.sessionsMu.Lock()
	delete(s.sessions, session.ID)
	s.sessionsMu.Unlock()
	s.sessionsWg.Done()
}

// ActiveSessions returns the number of connected sessions.
func (s *APIServer) ActiveSessions() int {
	s.sessionsMu.RLock()
	defer s.sessionsMu.RUnlock()
	return len(s.sessions)
}
