package site

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/oklog/ulid/v2"
	"go.uber.org/zap"

	"github.com/peienli0114/multi-route-portfolio-template/internal/content"
	"github.com/peienli0114/multi-route-portfolio-template/internal/httpx"
	"github.com/peienli0114/multi-route-portfolio-template/internal/i18n"
	mw "github.com/peienli0114/multi-route-portfolio-template/internal/middleware"
	"github.com/peienli0114/multi-route-portfolio-template/internal/observability"
	"github.com/peienli0114/multi-route-portfolio-template/internal/page"
	"github.com/peienli0114/multi-route-portfolio-template/internal/route"
	"github.com/peienli0114/multi-route-portfolio-template/internal/seo"
)

const (
	maxGeometryBytes = 64 << 10
	maxPageIDLen     = 64
)

// request is one route resolved against the current content snapshot.
type request struct {
	key     string
	profile content.Profile
	t       i18n.Translator
	ui      string
}

func (s *Server) resolve(r *http.Request, key string) request {
	if key == "" {
		key = route.DefaultKey
	}
	p := content.Resolve(s.content.Current(), key, observability.FromContext(r.Context()))
	return request{
		key:     key,
		profile: p,
		t:       s.bundle.For(string(p.Lang)),
		ui:      s.basePath + "/ui/" + url.PathEscape(key),
	}
}

func (s *Server) builder(req request, st page.State) builder {
	return builder{profile: req.profile, state: st, t: req.t, ui: req.ui, now: s.now()}
}

func stateKey(sessionID, pageID string) string {
	return sessionID + "/" + pageID
}

// baseURL is the absolute URL of the site root, without a trailing slash.
func (s *Server) baseURL(r *http.Request) string {
	if s.publicURL != "" {
		return s.publicURL
	}
	scheme := "http"
	if r.TLS != nil {
		scheme = "https"
	}
	if p := r.Header.Get("X-Forwarded-Proto"); p == "http" || p == "https" {
		scheme = p
	}
	return scheme + "://" + r.Host + s.basePath
}

func (s *Server) handlePage(w http.ResponseWriter, r *http.Request) {
	logger := observability.FromContext(r.Context())
	info := route.FromPath(r.URL.Path, s.basePath)
	req := s.resolve(r, info.RouteKey)
	sess := mw.GetSession(r)
	pageID := ulid.Make().String()

	var (
		effect page.Effect
		linked *content.Item
	)
	st := s.states.Update(stateKey(sess.ID, pageID), req.key, func(st *page.State, routeChanged bool) {
		if routeChanged {
			st.ResetForRoute(req.profile.Index)
		}
		eff, ok := st.ApplyDeepLink(info.WorkCode, req.profile.Index, 0)
		if !ok {
			if info.HasWork() {
				logger.Debug("deep link ignored", zap.String("route", req.key), zap.String("work", info.WorkCode))
			}
			return
		}
		effect = eff
		if it, found := req.profile.Index.Item(st.ActiveWork); found {
			linked = &it
		}
	})

	canonicalWork := ""
	if linked != nil {
		canonicalWork = linked.Code
	}
	b := s.builder(req, st)
	view := pageView{
		Meta:          seo.ForPage(req.profile, s.baseURL(r), route.Path("", req.key, canonicalWork), linked),
		T:             req.t,
		Route:         req.key,
		UI:            req.ui,
		PageID:        pageID,
		CSRF:          mw.CSRFToken(r),
		SiteTitle:     req.profile.SiteTitle,
		Home:          req.profile.Home,
		Footer:        req.profile.Footer,
		CV:            b.cv(),
		Nav:           b.nav(false),
		Categories:    b.categories(),
		Banner:        b.banner(false),
		InitialAnchor: effect.ScrollTo,
		Assets:        s.basePath + "/assets",
	}
	s.render.render(w, r, http.StatusOK, part{"page", view})
}

func (s *Server) handleNotFound(w http.ResponseWriter, r *http.Request) {
	t := s.bundle.For(s.bundle.Resolve(r.Header.Get("Accept-Language")))
	s.render.render(w, r, http.StatusNotFound, part{"notfound", map[string]any{
		"T":    t,
		"Home": s.basePath + "/",
	}})
}

// fragments lists what a transition wants re-rendered.
type fragments struct {
	nav    bool
	banner bool
	works  []string
	effect page.Effect
}

type transitionFunc func(st *page.State, req request, viewportWidth float64) (fragments, error)

var (
	errUnknownWork     = errors.New("unknown work")
	errUnknownCategory = errors.New("unknown category")
	errUnknownSection  = errors.New("unknown section")
)

// transition applies fn to the calling page's state and answers with the
// affected fragments as out-of-band swaps.
func (s *Server) transition(w http.ResponseWriter, r *http.Request, fn transitionFunc) {
	req := s.resolve(r, strings.ToLower(chi.URLParam(r, "route")))
	sess := mw.GetSession(r)
	pageID := r.Header.Get(PageHeader)
	if pageID == "" || len(pageID) > maxPageIDLen {
		pageID = "-"
	}
	vw := formFloat(r, "vw")

	var (
		out fragments
		err error
	)
	st := s.states.Update(stateKey(sess.ID, pageID), req.key, func(st *page.State, routeChanged bool) {
		if routeChanged {
			st.ResetForRoute(req.profile.Index)
		}
		width := vw
		if width > 0 {
			st.ViewportWidth = width
		} else {
			width = st.ViewportWidth
		}
		out, err = fn(st, req, width)
	})
	if err != nil {
		s.writeTransitionError(w, r, err)
		return
	}
	s.respond(w, r, req, st, out)
}

func (s *Server) writeTransitionError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, errUnknownWork):
		httpx.WriteError(r.Context(), w, httpx.NewError("unknown_work", err.Error(), http.StatusNotFound))
	case errors.Is(err, errUnknownCategory):
		httpx.WriteError(r.Context(), w, httpx.NewError("unknown_category", err.Error(), http.StatusNotFound))
	case errors.Is(err, errUnknownSection):
		httpx.WriteError(r.Context(), w, httpx.NewError("unknown_section", err.Error(), http.StatusNotFound))
	default:
		httpx.WriteError(r.Context(), w, httpx.NewError("invalid_request", err.Error(), http.StatusBadRequest))
	}
}

func (s *Server) respond(w http.ResponseWriter, r *http.Request, req request, st page.State, out fragments) {
	if !out.effect.None() {
		mw.TriggerEvent(w, "folio:scroll", out.effect)
	}
	b := s.builder(req, st)
	var parts []part
	if out.nav {
		parts = append(parts, part{"nav", b.nav(true)})
	}
	for _, code := range out.works {
		if it, ok := req.profile.Index.Item(code); ok {
			parts = append(parts, part{"work", b.work(it, true)})
		}
	}
	if out.banner {
		parts = append(parts, part{"banner", b.banner(true)})
	}
	if len(parts) == 0 {
		w.WriteHeader(http.StatusNoContent)
		return
	}
	s.render.render(w, r, http.StatusOK, parts...)
}

func (s *Server) handleSelect(w http.ResponseWriter, r *http.Request) {
	key, ok := content.ParseContentKey(chi.URLParam(r, "section"))
	s.transition(w, r, func(st *page.State, req request, vw float64) (fragments, error) {
		if !ok {
			return fragments{}, errUnknownSection
		}
		eff := st.SelectContent(key, req.profile.Index, vw)
		return fragments{nav: true, banner: true, effect: eff}, nil
	})
}

func (s *Server) handleToggleWork(w http.ResponseWriter, r *http.Request) {
	code := pathParam(r, "code")
	s.transition(w, r, func(st *page.State, req request, _ float64) (fragments, error) {
		it, ok := req.profile.Index.Lookup(code)
		if !ok {
			return fragments{}, errUnknownWork
		}
		eff := st.ToggleWork(it.Code)
		return fragments{works: []string{it.Code}, banner: true, effect: eff}, nil
	})
}

func (s *Server) handleToggleCategory(w http.ResponseWriter, r *http.Request) {
	name := pathParam(r, "name")
	s.transition(w, r, func(st *page.State, req request, _ float64) (fragments, error) {
		if !hasCategory(req.profile.Index, name) {
			return fragments{}, errUnknownCategory
		}
		st.ToggleCategory(name)
		return fragments{nav: true}, nil
	})
}

func (s *Server) handleNavigate(w http.ResponseWriter, r *http.Request) {
	code := pathParam(r, "code")
	s.transition(w, r, func(st *page.State, req request, vw float64) (fragments, error) {
		it, ok := req.profile.Index.Lookup(code)
		if !ok {
			return fragments{}, errUnknownWork
		}
		eff := st.NavigatePortfolio(it.Code, req.profile.Index, vw)
		return fragments{nav: true, effect: eff}, nil
	})
}

func (s *Server) handleScroll(w http.ResponseWriter, r *http.Request) {
	g, err := decodeGeometry(w, r)
	if err != nil {
		httpx.WriteError(r.Context(), w, httpx.NewError("invalid_geometry", err.Error(), http.StatusBadRequest))
		return
	}
	s.transition(w, r, func(st *page.State, req request, _ float64) (fragments, error) {
		changed := st.ObserveScroll(g, req.profile.Index, req.profile.Lang)
		return fragments{
			nav:    changed.Has(page.ChangedSection) || changed.Has(page.ChangedActive) || changed.Has(page.ChangedCategories),
			banner: changed.Has(page.ChangedBanner),
		}, nil
	})
}

func (s *Server) handleToggleSidebar(w http.ResponseWriter, r *http.Request) {
	s.transition(w, r, func(st *page.State, _ request, _ float64) (fragments, error) {
		st.ToggleSidebar()
		return fragments{nav: true}, nil
	})
}

func (s *Server) handleToggleMobileNav(w http.ResponseWriter, r *http.Request) {
	s.transition(w, r, func(st *page.State, _ request, _ float64) (fragments, error) {
		st.ToggleMobileNav()
		return fragments{nav: true}, nil
	})
}

// decodeGeometry accepts a JSON body or a "geometry" form field holding JSON.
func decodeGeometry(w http.ResponseWriter, r *http.Request) (page.Geometry, error) {
	var g page.Geometry
	r.Body = http.MaxBytesReader(w, r.Body, maxGeometryBytes)
	if strings.HasPrefix(r.Header.Get("Content-Type"), "application/json") {
		raw, err := io.ReadAll(r.Body)
		if err != nil {
			return g, err
		}
		if err := json.Unmarshal(raw, &g); err != nil {
			return g, err
		}
		return g, nil
	}
	raw := r.FormValue("geometry")
	if raw == "" {
		return g, errors.New("missing geometry")
	}
	if err := json.Unmarshal([]byte(raw), &g); err != nil {
		return g, err
	}
	return g, nil
}

func formFloat(r *http.Request, key string) float64 {
	v, err := strconv.ParseFloat(r.FormValue(key), 64)
	if err != nil || v < 0 {
		return 0
	}
	return v
}

func pathParam(r *http.Request, key string) string {
	raw := chi.URLParam(r, key)
	if v, err := url.PathUnescape(raw); err == nil {
		return v
	}
	return raw
}

func hasCategory(ix content.Index, name string) bool {
	for _, c := range ix.Categories {
		if c.Name == name {
			return true
		}
	}
	return false
}
