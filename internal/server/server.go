// Package server exposes the recompute pipeline to browser front ends: a JSON
// API for one-off recomputes and a websocket session that, like the terminal
// dashboard, only ever answers with the newest selection's results.
package server

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"

	"github.com/fairdiet/fairdiet/internal/catalog"
	"github.com/fairdiet/fairdiet/internal/logging"
	"github.com/fairdiet/fairdiet/internal/pipeline"
)

const (
	readHeaderTimeout = 10 * time.Second
	shutdownTimeout   = 5 * time.Second
	wsBufferSize      = 1024
)

// Backend is the part of *pipeline.Pipeline the server needs.
type Backend interface {
	pipeline.Recomputer
	Catalog() *catalog.Catalog
	Regions() []string
	ModelName() string
}

// Option configures a Server.
type Option func(*Server)

// WithAllowedOrigins restricts websocket upgrades and CORS to the given
// origins. The default allows any origin, which suits a loopback listener.
func WithAllowedOrigins(origins ...string) Option {
	return func(s *Server) {
		s.origins = append(s.origins, origins...)
	}
}

// Server serves the HTTP API and websocket sessions.
type Server struct {
	ctx      context.Context
	backend  Backend
	engine   *gin.Engine
	upgrader websocket.Upgrader
	origins  []string

	mu       sync.Mutex
	sessions map[string]*session
}

// New builds the router. ctx bounds every websocket session and carries the
// logger.
func New(ctx context.Context, backend Backend, opts ...Option) *Server {
	s := &Server{
		ctx:      ctx,
		backend:  backend,
		sessions: make(map[string]*session),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.upgrader = websocket.Upgrader{
		ReadBufferSize:  wsBufferSize,
		WriteBufferSize: wsBufferSize,
		CheckOrigin: func(r *http.Request) bool {
			return s.originAllowed(r.Header.Get("Origin"))
		},
	}

	engine := gin.New()
	engine.Use(gin.Recovery(), s.requestLogger(), s.cors())

	engine.GET("/health", s.handleHealth)
	api := engine.Group("/api")
	s.RegisterRoutes(api)
	s.engine = engine
	return s
}

// RegisterRoutes mounts the API on r.
func (s *Server) RegisterRoutes(r *gin.RouterGroup) {
	r.GET("/catalog", s.handleCatalog)
	r.GET("/regions", s.handleRegions)
	r.POST("/recompute", s.handleRecompute)
	r.GET("/ws", s.handleWebsocket)
}

// Handler returns the root http.Handler.
func (s *Server) Handler() http.Handler {
	return s.engine
}

// Run listens on addr until ctx is done, then shuts down gracefully and closes
// open sessions.
func (s *Server) Run(ctx context.Context, addr string) error {
	log := logging.FromContext(ctx)
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.engine,
		ReadHeaderTimeout: readHeaderTimeout,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Info().
			Ctx(ctx).
			Str("component", "server").
			Str("addr", addr).
			Msg("server listening")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- fmt.Errorf("listening on %s: %w", addr, err)
		}
		close(errCh)
	}()

	select {
	case err, ok := <-errCh:
		if ok {
			return err
		}
		return nil
	case <-ctx.Done():
	}

	log.Info().Ctx(ctx).Str("component", "server").Msg("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), shutdownTimeout)
	defer cancel()
	s.closeSessions()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutting down server: %w", err)
	}
	return nil
}

// SessionCount returns the number of open websocket sessions.
func (s *Server) SessionCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.sessions)
}

func (s *Server) addSession(sess *session) {
	s.mu.Lock()
	s.sessions[sess.id] = sess
	s.mu.Unlock()
}

func (s *Server) removeSession(id string) {
	s.mu.Lock()
	delete(s.sessions, id)
	s.mu.Unlock()
}

func (s *Server) closeSessions() {
	s.mu.Lock()
	open := make([]*session, 0, len(s.sessions))
	for _, sess := range s.sessions {
		open = append(open, sess)
	}
	s.mu.Unlock()

	for _, sess := range open {
		sess.close()
	}
}

func (s *Server) originAllowed(origin string) bool {
	if len(s.origins) == 0 || origin == "" {
		return true
	}
	for _, o := range s.origins {
		if o == "*" || o == origin {
			return true
		}
	}
	return false
}

// requestLogger logs each request at debug level with a trace ID, which is
// also returned in the X-Trace-ID header.
func (s *Server) requestLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		traceID := c.GetHeader("X-Trace-ID")
		if traceID == "" {
			traceID = logging.GetOrGenerateTraceID(c.Request.Context())
		}
		ctx := logging.ContextWithTraceID(c.Request.Context(), traceID)
		ctx = logging.FromContext(s.ctx).WithContext(ctx)
		c.Request = c.Request.WithContext(ctx)
		c.Header("X-Trace-ID", traceID)

		c.Next()

		logging.FromContext(ctx).Debug().
			Ctx(ctx).
			Str("component", "server").
			Str("method", c.Request.Method).
			Str("path", c.FullPath()).
			Int("status", c.Writer.Status()).
			Dur("duration", time.Since(start)).
			Msg("request handled")
	}
}

func (s *Server) cors() gin.HandlerFunc {
	return func(c *gin.Context) {
		origin := c.GetHeader("Origin")
		if origin != "" && s.originAllowed(origin) {
			c.Header("Access-Control-Allow-Origin", origin)
			c.Header("Access-Control-Allow-Headers", "Content-Type, X-Trace-ID")
			c.Header("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
		}
		if c.Request.Method == http.MethodOptions {
			c.AbortWithStatus(http.StatusNoContent)
			return
		}
		c.Next()
	}
}
