package site

import (
	"bytes"
	"embed"
	"fmt"
	"html/template"
	"io/fs"
	"net/http"
	"net/url"
	"strings"

	"github.com/peienli0114/multi-route-portfolio-template/internal/observability"
	"github.com/peienli0114/multi-route-portfolio-template/internal/page"
	"go.uber.org/zap"
)

//go:embed templates/*.tmpl
var templateFS embed.FS

//go:embed static
var staticFS embed.FS

// StaticFS returns the embedded css and js served under /assets.
func StaticFS() fs.FS {
	sub, err := fs.Sub(staticFS, "static")
	if err != nil {
		panic(err)
	}
	return sub
}

var funcMap = template.FuncMap{
	"join":          strings.Join,
	"pathEscape":    url.PathEscape,
	"summaryAnchor": page.SummaryAnchor,
	"detailsAnchor": page.DetailsAnchor,
	"workAnchor":    page.WorkAnchor,
	"pct": func(v float64) string {
		return fmt.Sprintf("%.1f", v)
	},
	"safeJS": func(s string) template.JS {
		// JSON-LD is produced by encoding/json
		return template.JS(s)
	},
}

func parseTemplates(fsys fs.FS) (*template.Template, error) {
	t, err := template.New("_root").Funcs(funcMap).ParseFS(fsys, "templates/*.tmpl")
	if err != nil {
		return nil, fmt.Errorf("parse templates: %w", err)
	}
	return t, nil
}

// renderer executes templates. In dev mode templates are reparsed on each
// request so edits on disk show up without a restart.
type renderer struct {
	fsys  fs.FS
	dev   bool
	cache *template.Template
}

func newRenderer(fsys fs.FS, dev bool) (*renderer, error) {
	if fsys == nil {
		fsys = templateFS
	}
	r := &renderer{fsys: fsys, dev: dev}
	t, err := parseTemplates(fsys)
	if err != nil {
		return nil, err
	}
	r.cache = t
	return r, nil
}

func (rd *renderer) templates() (*template.Template, error) {
	if rd.dev {
		return parseTemplates(rd.fsys)
	}
	return rd.cache, nil
}

// render executes each named template into one buffered response so a failed
// template never produces a partial page.
func (rd *renderer) render(w http.ResponseWriter, r *http.Request, status int, parts ...part) {
	logger := observability.FromContext(r.Context())
	t, err := rd.templates()
	if err != nil {
		logger.Error("template parse failed", zap.Error(err))
		http.Error(w, "template error", http.StatusInternalServerError)
		return
	}
	var buf bytes.Buffer
	for _, p := range parts {
		if err := t.ExecuteTemplate(&buf, p.name, p.data); err != nil {
			logger.Error("template exec failed", zap.String("template", p.name), zap.Error(err))
			http.Error(w, "template error", http.StatusInternalServerError)
			return
		}
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	_, _ = buf.WriteTo(w)
}

type part struct {
	name string
	data any
}
