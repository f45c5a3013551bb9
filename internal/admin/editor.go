package admin

import (
	"bytes"
	"embed"
	"encoding/csv"
	"encoding/json"
	"errors"
	"html/template"
	"net/http"
	"net/url"
	"path"
	"strings"
	"time"

	"github.com/a-h/templ"
	"go.uber.org/zap"

	"github.com/peienli0114/multi-route-portfolio-template/internal/i18n"
	mw "github.com/peienli0114/multi-route-portfolio-template/internal/middleware"
	"github.com/peienli0114/multi-route-portfolio-template/internal/observability"
)

const editorRevisionLimit = 10

type fileEntry struct {
	Name   string
	Label  string
	Active bool
}

type editorPage struct {
	T         i18n.Translator
	CSRF      string
	Headers   string
	Files     []fileEntry
	ListError string
	Selected  string
	Content   string
	ETag      string
	Missing   bool
	Invalid   bool
	Revisions []Revision
}

type saveStatus struct {
	T       i18n.Translator
	OK      bool
	Message string
	ETag    string
	Synced  bool
	Invalid bool
}

// fileLabel returns the friendly name of a data file, or the file name.
func fileLabel(t i18n.Translator, name string) string {
	key := "file." + name
	if v := t.T(key); v != key {
		return v
	}
	return name
}

// validData reports whether content parses as its file type. Other types
// are not checked.
func validData(name string, data []byte) bool {
	switch path.Ext(name) {
	case ".json":
		return json.Valid(data)
	case ".csv":
		_, err := csv.NewReader(bytes.NewReader(data)).ReadAll()
		return err == nil
	}
	return true
}

func (s *Server) translator(r *http.Request) i18n.Translator {
	return s.bundle.For(s.bundle.Resolve(r.Header.Get("Accept-Language")))
}

func (s *Server) handleEditor(w http.ResponseWriter, r *http.Request) {
	logger := observability.FromContext(r.Context())
	t := s.translator(r)
	data := editorPage{T: t, CSRF: mw.CSRFToken(r), Selected: r.URL.Query().Get("file")}

	names, err := s.files.List()
	if err != nil {
		logger.Error("list data files", zap.Error(err))
		data.ListError = "Error reading data directory"
	}
	for _, n := range names {
		data.Files = append(data.Files, fileEntry{Name: n, Label: fileLabel(t, n), Active: n == data.Selected})
	}

	status := http.StatusOK
	if data.Selected != "" {
		f, err := s.files.Read(data.Selected)
		switch {
		case errors.Is(err, ErrInvalidName):
			data.Selected = ""
			status = http.StatusBadRequest
		case errors.Is(err, ErrNotFound):
			data.Missing = true
			status = http.StatusNotFound
		case err != nil:
			logger.Error("read data file", zap.String("file", data.Selected), zap.Error(err))
			data.Missing = true
			status = http.StatusInternalServerError
		default:
			data.Content = string(f.Content)
			data.ETag = f.ETag
			data.Invalid = !validData(f.Name, f.Content)
			revs, err := s.journal.List(r.Context(), f.Name, editorRevisionLimit)
			if err != nil {
				logger.Warn("list revisions", zap.Error(err))
			}
			data.Revisions = revs
		}
	}
	templ.Handler(editorIndex(data), templ.WithStatus(status)).ServeHTTP(w, r)
}

func (s *Server) handleEditorSave(w http.ResponseWriter, r *http.Request) {
	t := s.translator(r)
	name := filenameParam(r)
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	if err := r.ParseForm(); err != nil {
		templ.Handler(saveStatusView(saveStatus{T: t, Message: t.T("admin.failed")}),
			templ.WithStatus(http.StatusBadRequest)).ServeHTTP(w, r)
		return
	}
	body := []byte(r.PostForm.Get("content"))

	res, _, err := s.save(r.Context(), name, body, r.PostForm.Get("etag"))
	if err != nil {
		herr := s.saveError(r.Context(), name, res, err)
		msg := t.T("admin.failed") + ": " + herr.Message
		if errors.Is(err, ErrVersionMismatch) {
			msg = t.T("admin.conflict")
		}
		templ.Handler(saveStatusView(saveStatus{T: t, Message: msg}),
			templ.WithStatus(herr.Status)).ServeHTTP(w, r)
		return
	}
	templ.Handler(saveStatusView(saveStatus{
		T:       t,
		OK:      true,
		Message: t.T("admin.saved"),
		ETag:    res.ETag,
		Synced:  res.MapSynced,
		Invalid: !validData(name, body),
	})).ServeHTTP(w, r)
}

//go:embed templates/*.tmpl
var templateFS embed.FS

var editorTemplates = template.Must(template.New("_root").Funcs(template.FuncMap{
	"pathEscape": url.PathEscape,
	"shortETag":  shortETag,
	"rfc3339":    func(t time.Time) string { return t.Format(time.RFC3339) },
	"localTime":  func(t time.Time) string { return t.Local().Format("2006-01-02 15:04:05") },
}).ParseFS(templateFS, "templates/*.tmpl"))

func editorIndex(p editorPage) templ.Component {
	headers, _ := json.Marshal(map[string]string{mw.CSRFHeader: p.CSRF})
	p.Headers = string(headers)
	return templ.FromGoHTML(editorTemplates.Lookup("editor"), p)
}

func saveStatusView(st saveStatus) templ.Component {
	return templ.FromGoHTML(editorTemplates.Lookup("save-status"), st)
}

// shortETag trims a weak sha256 validator for display.
func shortETag(etag string) string {
	v := strings.Trim(strings.TrimPrefix(etag, "W/"), `"`)
	if len(v) > 12 {
		v = v[:12]
	}
	return v
}
