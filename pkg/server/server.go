// Package server implements the epilog trace API: session and event
// storage, per-session SSE streaming, and the diagnose / apply-patch
// endpoints consumed by the replay UI.
package server

import (
	"context"
	"errors"
	"log"
	"net/http"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"golang.org/x/sync/errgroup"

	"epilog/pkg/trace"
)

// Diagnoser runs the diagnosis workflow for a single event. Implemented by
// diagnosis.Engine; nil means the server has no model configured and the
// diagnose endpoint reports that as a domain failure.
type Diagnoser interface {
	RunDiagnosis(ctx context.Context, eventID int64) (trace.DiagnosisResult, error)
}

// PatchApplier applies a unified diff to a file under the project root.
type PatchApplier interface {
	Apply(ctx context.Context, filePath, diffContent string) error
}

// Server wires the store, diagnosis engine, and patch applier behind the
// HTTP API.
type Server struct {
	store     *Store
	diagnoser Diagnoser
	patcher   PatchApplier
	engine    *gin.Engine
}

// New assembles the API router. diagnoser and patcher may be nil; the
// corresponding endpoints then fail with a descriptive detail message.
func New(store *Store, diagnoser Diagnoser, patcher PatchApplier, debug bool) *Server {
	if !debug {
		gin.SetMode(gin.ReleaseMode)
	}

	engine := gin.New()
	engine.Use(gin.Logger(), gin.Recovery())
	engine.Use(cors.New(cors.Config{
		AllowAllOrigins: true,
		AllowMethods:    []string{"GET", "POST", "OPTIONS"},
		AllowHeaders:    []string{"Content-Type"},
	}))

	s := &Server{
		store:     store,
		diagnoser: diagnoser,
		patcher:   patcher,
		engine:    engine,
	}
	s.routes()
	return s
}

// routes mounts all endpoints under the versioned traces prefix.
func (s *Server) routes() {
	s.engine.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	api := s.engine.Group("/api/v1/traces")
	api.POST("/sessions", s.handleCreateSession)
	api.GET("/sessions", s.handleListSessions)
	api.GET("/sessions/:id", s.handleGetSession)
	api.GET("/sessions/:id/events", s.handleSessionEvents)
	api.GET("/sessions/:id/events/stream", s.handleEventStream)
	api.POST("/events", s.handleCreateEvent)
	api.GET("/events/:id/screenshot", s.handleScreenshot)
	api.POST("/events/:id/diagnose", s.handleDiagnose)
	api.POST("/apply-patch", s.handleApplyPatch)
}

// Handler exposes the router for tests.
func (s *Server) Handler() http.Handler {
	return s.engine
}

// Run serves the API on addr until ctx is cancelled, then shuts down
// gracefully.
func (s *Server) Run(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.engine,
		ReadHeaderTimeout: 10 * time.Second,
	}

	g, ctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		log.Printf("epilog api listening on %s", addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})

	g.Go(func() error {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})

	return g.Wait()
}
