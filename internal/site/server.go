package site

import (
	"io/fs"
	"net/http"
	"path/filepath"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"

	"github.com/peienli0114/multi-route-portfolio-template/internal/content"
	"github.com/peienli0114/multi-route-portfolio-template/internal/i18n"
	mw "github.com/peienli0114/multi-route-portfolio-template/internal/middleware"
	"github.com/peienli0114/multi-route-portfolio-template/internal/observability"
	"github.com/peienli0114/multi-route-portfolio-template/internal/page"
)

// PageHeader carries the page instance id on fragment requests.
const PageHeader = "X-Folio-Page"

// Options configures the site server.
type Options struct {
	Content *content.Store
	Logger  *zap.Logger
	// PublicURL is the absolute base used for canonical links; its path is
	// the prefix the site is served under.
	PublicURL  string
	BasePath   string
	Dev        bool
	SessionKey string
	StateTTL   time.Duration
	StateLimit int
	Timeout    time.Duration
	// Templates overrides the embedded templates, e.g. with os.DirFS in dev.
	Templates fs.FS
	Bundle    *i18n.Bundle
	// Now is the clock used for CV durations.
	Now func() time.Time
}

// Server renders the portfolio and serves the htmx fragment endpoints.
type Server struct {
	content   *content.Store
	states    *page.Store
	bundle    *i18n.Bundle
	sessions  *mw.Sessions
	render    *renderer
	logger    *zap.Logger
	publicURL string
	basePath  string
	timeout   time.Duration
	now       func() time.Time
}

// New builds a Server.
func New(opts Options) (*Server, error) {
	logger := observability.OrNop(opts.Logger)
	rd, err := newRenderer(opts.Templates, opts.Dev)
	if err != nil {
		return nil, err
	}
	bundle := opts.Bundle
	if bundle == nil {
		bundle = i18n.Default()
	}
	now := opts.Now
	if now == nil {
		now = time.Now
	}
	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	secure := strings.HasPrefix(opts.PublicURL, "https://")
	return &Server{
		content:   opts.Content,
		states:    page.NewStore(opts.StateTTL, page.WithLimit(opts.StateLimit)),
		bundle:    bundle,
		sessions:  mw.NewSessions(opts.SessionKey, secure, logger),
		render:    rd,
		logger:    logger,
		publicURL: strings.TrimRight(opts.PublicURL, "/"),
		basePath:  strings.TrimRight(opts.BasePath, "/"),
		timeout:   timeout,
		now:       now,
	}, nil
}

// Handler returns the site's router.
func (s *Server) Handler() http.Handler {
	r := chi.NewRouter()
	r.Use(chimw.RequestID)
	r.Use(chimw.RealIP)
	r.Use(observability.InjectLoggerMiddleware(s.logger))
	r.Use(observability.TraceMiddleware("folio-site"))
	r.Use(observability.RequestLoggerMiddleware())
	r.Use(chimw.Recoverer)
	r.Use(chimw.Timeout(s.timeout))

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})

	r.Route("/assets", func(r chi.Router) {
		r.Use(chimw.Compress(5))
		r.Handle("/cv/*", mw.NoStore(http.StripPrefix(s.basePath+"/assets/cv", s.cvFiles())))
		r.Handle("/*", http.StripPrefix(s.basePath+"/assets", mw.AssetsWithCache(StaticFS(), "")))
	})

	r.Group(func(r chi.Router) {
		r.Use(mw.HTMX)
		r.Use(s.sessions.Middleware)
		r.Use(mw.CSRF)
		r.Use(mw.VaryLocale)

		r.Route("/ui/{route}", func(r chi.Router) {
			r.Post("/select/{section}", s.handleSelect)
			r.Post("/works/{code}/toggle", s.handleToggleWork)
			r.Post("/categories/{name}/toggle", s.handleToggleCategory)
			r.Post("/navigate/{code}", s.handleNavigate)
			r.Post("/scroll", s.handleScroll)
			r.Post("/sidebar/toggle", s.handleToggleSidebar)
			r.Post("/mobile-nav/toggle", s.handleToggleMobileNav)
		})

		r.Get("/", s.handlePage)
		r.Get("/{route}", s.handlePage)
		r.Get("/{route}/{work}", s.handlePage)
		r.NotFound(s.handleNotFound)
	})

	if s.basePath == "" {
		return r
	}
	root := chi.NewRouter()
	root.Mount(s.basePath, r)
	return root
}

func (s *Server) cvFiles() http.Handler {
	dir := s.content.Dir()
	if dir == "" {
		return http.NotFoundHandler()
	}
	return http.FileServer(http.Dir(filepath.Join(dir, content.CVAssetDir)))
}
