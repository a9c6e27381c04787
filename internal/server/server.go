// Package server exposes recommendations, the day schedule and the activity
// log over HTTP
package server

import (
	"context"
	"crypto/subtle"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"github.com/mrcode/nursery-advisor/internal/activitylog"
	"github.com/mrcode/nursery-advisor/internal/models"
	"github.com/mrcode/nursery-advisor/internal/tray"
)

// Backend is what the server reads advice and activities from
type Backend interface {
	NextAction(ctx context.Context) (*models.NextActionResult, error)
	Schedule(ctx context.Context) (*models.AdaptiveSchedule, error)
	Activities(ctx context.Context, from, to time.Time) ([]models.ActivityRecord, error)
	AddActivity(ctx context.Context, r models.ActivityRecord) (*models.ActivityRecord, error)
	DeleteActivity(ctx context.Context, id string) error
}

// Config holds server configuration
type Config struct {
	Port      int
	AllowAll  bool // Allow all CORS origins
	APISecret string
	APIToken  string
}

// Server serves the advisor API
type Server struct {
	cfg        Config
	backend    Backend
	badge      *tray.Badge
	settings   *models.Settings
	logger     *slog.Logger
	router     chi.Router
	httpServer *http.Server
}

// New creates a server. badge may be nil, in which case /icon.png is not served.
func New(cfg Config, backend Backend, badge *tray.Badge, settings *models.Settings, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	s := &Server{
		cfg:      cfg,
		backend:  backend,
		badge:    badge,
		settings: settings,
		logger:   logger,
	}
	s.router = s.buildRouter()
	return s
}

// ConfigFromSettings derives the server configuration from user settings
func ConfigFromSettings(settings *models.Settings) Config {
	return Config{
		Port:      settings.ServerPort,
		AllowAll:  settings.AllowAllOrigins,
		APISecret: settings.APISecret,
		APIToken:  settings.APIToken,
	}
}

func (s *Server) buildRouter() chi.Router {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(s.requestLogger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(30 * time.Second))

	corsOpts := cors.Options{
		AllowedOrigins:   []string{"http://localhost:*", "http://127.0.0.1:*"},
		AllowedMethods:   []string{"GET", "POST", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "API-SECRET"},
		AllowCredentials: true,
		MaxAge:           300,
	}
	if s.cfg.AllowAll {
		corsOpts.AllowedOrigins = []string{"*"}
		corsOpts.AllowCredentials = false
	}
	r.Use(cors.Handler(corsOpts))

	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})

	r.Group(func(r chi.Router) {
		r.Use(s.authenticate)

		r.Route("/api/v1", func(r chi.Router) {
			r.Get("/next-action", s.handleNextAction)
			r.Get("/schedule", s.handleSchedule)
			r.Route("/activities", func(r chi.Router) {
				r.Get("/", s.handleListActivities)
				r.Post("/", s.handleAddActivity)
				r.Delete("/{id}", s.handleDeleteActivity)
			})
		})

		r.Get("/schedule.png", s.handleTimeline)
		if s.badge != nil {
			r.Get("/icon.png", s.handleIcon)
		}
	})

	return r
}

// Router returns the HTTP handler
func (s *Server) Router() http.Handler { return s.router }

// Start begins listening on the configured port
func (s *Server) Start() error {
	addr := fmt.Sprintf(":%d", s.cfg.Port)
	s.httpServer = &http.Server{
		Addr:              addr,
		Handler:           s.router,
		ReadHeaderTimeout: 10 * time.Second,
		WriteTimeout:      60 * time.Second,
		IdleTimeout:       120 * time.Second,
	}

	s.logger.Info("server listening", "addr", addr)
	return s.httpServer.ListenAndServe()
}

// Shutdown gracefully shuts down the server
func (s *Server) Shutdown(ctx context.Context) error {
	if s.httpServer != nil {
		return s.httpServer.Shutdown(ctx)
	}
	return nil
}

// authenticate accepts either a bearer token or the hashed API secret when
// one is configured; without either the API is open
func (s *Server) authenticate(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if s.cfg.APISecret == "" && s.cfg.APIToken == "" {
			next.ServeHTTP(w, r)
			return
		}

		if s.cfg.APIToken != "" {
			if token, ok := strings.CutPrefix(r.Header.Get("Authorization"), "Bearer "); ok && equal(token, s.cfg.APIToken) {
				next.ServeHTTP(w, r)
				return
			}
		}
		if s.cfg.APISecret != "" {
			if hash := r.Header.Get("API-SECRET"); hash != "" && equal(hash, activitylog.HashSecret(s.cfg.APISecret)) {
				next.ServeHTTP(w, r)
				return
			}
		}

		writeError(w, http.StatusUnauthorized, "unauthorized")
	})
}

func equal(a, b string) bool {
	return subtle.ConstantTimeCompare([]byte(a), []byte(b)) == 1
}

// requestLogger logs each request through slog
func (s *Server) requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		start := time.Now()
		defer func() {
			s.logger.Debug("request",
				"method", r.Method,
				"path", r.URL.Path,
				"status", ww.Status(),
				"bytes", ww.BytesWritten(),
				"duration", time.Since(start),
				"request_id", middleware.GetReqID(r.Context()),
			)
		}()
		next.ServeHTTP(ww, r)
	})
}
