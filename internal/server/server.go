// Package server provides the HTTP API for RepCoach: live status, control
// actions, the annotated video stream, workout history and MCP access.
package server

import (
	"context"
	"embed"
	"errors"
	"io/fs"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/ayusman/repcoach/internal/app"
	"github.com/ayusman/repcoach/internal/server/api"
	"github.com/ayusman/repcoach/internal/store"
	"github.com/ayusman/repcoach/internal/workout"
)

//go:embed web
var webFS embed.FS

// Coach is the part of app.App the server drives.
type Coach interface {
	Snapshot() app.Snapshot
	Subscribe() (<-chan app.Snapshot, func())
	LatestFrame() ([]byte, bool)
	Calibrate(ctx context.Context) error
	CancelCalibration(ctx context.Context) error
	StartWorkout(ctx context.Context, plan workout.Plan) error
	StartWorkoutInput(ctx context.Context, sets, reps string) error
	SetPlan(ctx context.Context, plan workout.Plan) error
}

// Config holds the server configuration. Every field is optional; routes
// for missing collaborators are not registered.
type Config struct {
	Coach  Coach
	Store  *store.Store
	MCP    http.Handler
	Stream bool
	Logger *slog.Logger

	// StaticDir overrides the built-in dashboard with files from disk.
	StaticDir string

	// AllowedOrigins lists extra browser origins, besides the server's own
	// host, that may call the API.
	AllowedOrigins []string
}

// Server represents the HTTP server for the RepCoach application.
type Server struct {
	config  Config
	log     *slog.Logger
	router  chi.Router
	origins *OriginPolicy
	start   time.Time
}

// New creates a new Server with the given configuration.
func New(config Config) *Server {
	if config.Logger == nil {
		config.Logger = slog.Default()
	}
	s := &Server{
		config:  config,
		log:     config.Logger,
		router:  chi.NewRouter(),
		origins: NewOriginPolicy(config.AllowedOrigins),
		start:   time.Now(),
	}
	s.routes()
	return s
}

func (s *Server) routes() {
	s.router.Use(RequestLogging(s.log))
	s.router.Use(CORS(s.origins))

	s.router.Get("/api/health", s.handleHealth)

	if s.config.Coach != nil {
		s.router.Get("/api/status", s.handleStatus)
		s.router.Post("/api/calibrate", s.handleCalibrate)
		s.router.Post("/api/calibrate/cancel", s.handleCancelCalibration)
		s.router.Post("/api/workout", s.handleStartWorkout)
		s.router.Put("/api/settings/plan", s.handleSetPlan)
		s.router.Get("/api/events", NewEventsHandler(s.config.Coach, s.log, s.origins).ServeHTTP)
		if s.config.Stream {
			s.router.Get("/api/stream", NewStreamHandler(s.config.Coach).ServeHTTP)
		}
	}

	if s.config.Store != nil {
		s.router.Route("/api/workouts", api.NewWorkoutHandler(s.config.Store).Routes)
	}

	if s.config.MCP != nil {
		s.router.Handle("/mcp", s.config.MCP)
	}

	// The dashboard needs the live API.
	if s.config.Coach != nil {
		s.router.Handle("/*", http.FileServer(s.staticFS()))
	}
}

func (s *Server) staticFS() http.FileSystem {
	if s.config.StaticDir != "" {
		return http.Dir(s.config.StaticDir)
	}
	sub, _ := fs.Sub(webFS, "web")
	return http.FS(sub)
}

// ServeHTTP implements the http.Handler interface.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

// handleHealth handles GET requests to /api/health.
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	api.WriteJSON(w, http.StatusOK, map[string]interface{}{
		"status": "ok",
		"uptime": time.Since(s.start).Round(time.Second).String(),
	})
}

// ListenAndServe serves on addr until ctx is cancelled, then shuts down
// gracefully.
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		s.log.Info("http server listening", "addr", addr)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return err
	}
	s.log.Info("http server stopped")
	return nil
}
