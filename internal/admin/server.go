package admin

import (
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"go.opentelemetry.io/otel/metric"
	"go.uber.org/zap"

	"github.com/peienli0114/multi-route-portfolio-template/internal/i18n"
	mw "github.com/peienli0114/multi-route-portfolio-template/internal/middleware"
	"github.com/peienli0114/multi-route-portfolio-template/internal/observability"
)

// DefaultAllowedOrigin is the site dev server allowed to call the API.
const DefaultAllowedOrigin = "http://localhost:3000"

// maxBodyBytes bounds save requests.
const maxBodyBytes = 50 << 20

// Config holds runtime options for the admin HTTP server.
type Config struct {
	Dir           string
	AllowedOrigin string
	// Journal records saves; nil disables it.
	Journal    *Journal
	Logger     *zap.Logger
	Timeout    time.Duration
	Bundle     *i18n.Bundle
	SessionKey string
	// Meter overrides the global meter provider's meter.
	Meter metric.Meter
}

// Server exposes the data file API and the editor page.
type Server struct {
	files    *FileStore
	journal  *Journal
	bundle   *i18n.Bundle
	sessions *mw.Sessions
	logger   *zap.Logger
	metrics  saveMetrics
	origin   string
	timeout  time.Duration
}

// New constructs the admin server.
func New(cfg Config) *Server {
	logger := observability.OrNop(cfg.Logger)
	origin := strings.TrimRight(strings.TrimSpace(cfg.AllowedOrigin), "/")
	if origin == "" {
		origin = DefaultAllowedOrigin
	}
	bundle := cfg.Bundle
	if bundle == nil {
		bundle = i18n.Default()
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 60 * time.Second
	}
	return &Server{
		files:    NewFileStore(cfg.Dir, logger),
		journal:  cfg.Journal,
		bundle:   bundle,
		sessions: mw.NewSessions(cfg.SessionKey, false, logger),
		logger:   logger,
		metrics:  newSaveMetrics(cfg.Meter, logger),
		origin:   origin,
		timeout:  timeout,
	}
}

// Files returns the underlying file store.
func (s *Server) Files() *FileStore { return s.files }

// Handler returns the admin router.
func (s *Server) Handler() http.Handler {
	router := chi.NewRouter()
	router.Use(chimw.RequestID)
	router.Use(chimw.RealIP)
	router.Use(observability.InjectLoggerMiddleware(s.logger))
	router.Use(observability.TraceMiddleware("folio-admin"))
	router.Use(observability.RequestLoggerMiddleware())
	router.Use(chimw.Recoverer)
	router.Use(chimw.Timeout(s.timeout))
	router.Use(cors.Handler(cors.Options{
		AllowedOrigins: []string{s.origin},
		AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodOptions},
		AllowedHeaders: []string{"Accept", "Content-Type", "If-Match"},
		ExposedHeaders: []string{"ETag"},
		MaxAge:         300,
	}))

	router.Get("/", s.handleStatus)
	router.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
		_, _ = w.Write([]byte("ok"))
	})

	router.Route("/api", func(r chi.Router) {
		r.Use(mw.NoStore)
		r.Get("/data-files", s.handleList)
		r.Get("/data-files/{filename}", s.handleRead)
		// A JSON body forces a CORS preflight, so other origins cannot write.
		r.With(chimw.AllowContentType("application/json")).Post("/data-files/{filename}", s.handleWrite)
		r.Get("/revisions", s.handleRevisions)
	})

	router.Route("/admin", func(r chi.Router) {
		r.Use(mw.NoStore)
		r.Use(mw.HTMX)
		r.Use(s.sessions.Middleware)
		r.Use(mw.CSRF)
		r.Get("/", s.handleEditor)
		r.Post("/files/{filename}", s.handleEditorSave)
	})
	return router
}

func (s *Server) handleStatus(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	_, _ = w.Write([]byte("Backend server is running. Access the frontend at " + s.origin))
}
