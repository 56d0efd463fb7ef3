// Package api exposes the engine commands over HTTP with gin.
package api

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/letwinventory/harnessgraph/internal/engine"
	"github.com/letwinventory/harnessgraph/internal/metrics"
)

// ActorHeader carries the acting user.
const ActorHeader = "X-Actor"

// Server serves the harness API.
type Server struct {
	eng          *engine.Engine
	logger       *slog.Logger
	defaultActor string
}

// NewServer creates a server. defaultActor is used when a request has no
// X-Actor header.
func NewServer(eng *engine.Engine, logger *slog.Logger, defaultActor string) *Server {
	return &Server{eng: eng, logger: logger, defaultActor: defaultActor}
}

// Router builds the gin engine with every route registered.
func (s *Server) Router() *gin.Engine {
	router := gin.New()
	router.Use(gin.Recovery(), s.requestLogger())

	router.GET("/metrics", gin.WrapH(metrics.Handler()))

	v1 := router.Group("/v1")
	v1.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, HealthResponse{Status: "ok"})
	})
	v1.GET("/audit", s.handleAudit)
	s.RegisterRoutes(v1)
	return router
}

// RegisterRoutes registers the harness routes on rg.
func (s *Server) RegisterRoutes(rg *gin.RouterGroup) {
	h := rg.Group("/harnesses")
	{
		h.POST("", s.handleCreate)
		h.GET("", s.handleList)
		h.POST("/validate", s.handleValidate)
		h.POST("/sub-data", s.handleSubData)

		h.GET("/:id", s.handleGet)
		h.PATCH("/:id", s.handleUpdate)
		h.POST("/:id/deactivate", s.handleDeactivate)
		h.POST("/:id/submit", s.handleSubmit)
		h.POST("/:id/reject", s.handleReject)
		h.POST("/:id/release", s.handleRelease)
		h.POST("/:id/release-production", s.handleReleaseProduction)
		h.POST("/:id/revert", s.handleRevert)
		h.GET("/:id/history", s.handleHistory)
		h.GET("/:id/parents", s.handleParents)
	}
}

// Run serves on addr until ctx is cancelled, then shuts down gracefully.
func (s *Server) Run(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.Router(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("http server listening", "addr", addr)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
		s.logger.Info("http server shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	}
}

// requestLogger logs one line per request and echoes X-Request-ID.
func (s *Server) requestLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		requestID := c.GetHeader("X-Request-ID")
		if requestID == "" {
			requestID = uuid.NewString()
		}
		c.Header("X-Request-ID", requestID)

		start := time.Now()
		c.Next()

		s.logger.Info("http request",
			"request_id", requestID,
			"method", c.Request.Method,
			"path", c.FullPath(),
			"status", c.Writer.Status(),
			"elapsed", time.Since(start))
	}
}

// actor returns the acting user for a request.
func (s *Server) actor(c *gin.Context) string {
	if a := c.GetHeader(ActorHeader); a != "" {
		return a
	}
	return s.defaultActor
}
