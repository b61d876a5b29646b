// Package webserver exposes the conversion service over HTTP: health and
// stats probes, a browser for both document trees, and endpoints that
// trigger and track conversion passes.
package webserver

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"officeconv/internal/formats"
	"officeconv/internal/runs"
)

// HealthChecker reports whether the conversion backend is usable. The health
// endpoint reports the answer and the convert endpoints refuse passes on it.
// Implemented by *soffice.Runner.
type HealthChecker interface {
	Check() error
}

type Options struct {
	SourceRoot string
	DestRoot   string
	Formats    *formats.Registry
	Checker    HealthChecker
	Runs       *runs.Manager
	Logger     *slog.Logger
}

type Server struct {
	opts   Options
	log    *slog.Logger
	engine *gin.Engine

	baseCtx context.Context // lifetime for background passes, set by ListenAndServe
}

func New(opts Options) *Server {
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}

	s := &Server{opts: opts, log: opts.Logger.With("component", "webserver")}

	gin.SetMode(gin.ReleaseMode)
	engine := gin.New()
	engine.Use(gin.Recovery(), RequestLogger(s.log), CompressionMiddleware())

	engine.GET("/health", s.handleHealth)
	engine.POST("/convert", s.handleConvert)
	engine.GET("/runs/:id", s.handleGetRun)
	engine.GET("/files/:tree", s.handleListFiles)
	engine.DELETE("/files/:tree/*path", s.handleDeleteFile)
	engine.GET("/stats", s.handleStats)

	s.engine = engine

	return s
}

// Router exposes the handler tree, mainly for tests.
func (s *Server) Router() http.Handler {
	return s.engine
}

// ListenAndServe serves until ctx is canceled, then drains in-flight
// requests. Background passes started from handlers inherit ctx.
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	s.baseCtx = ctx

	srv := &http.Server{
		Addr:         addr,
		Handler:      s.engine,
		ReadTimeout:  60 * time.Second,
		WriteTimeout: 300 * time.Second, // synchronous passes can run long
		IdleTimeout:  120 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.ListenAndServe()
	}()

	s.log.Info("listening", "addr", addr)

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	shutCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	return srv.Shutdown(shutCtx)
}

// lifetime is the context background passes run under. Router-only callers
// fall back to Background.
func (s *Server) lifetime() context.Context {
	if s.baseCtx != nil {
		return s.baseCtx
	}

	return context.Background()
}
