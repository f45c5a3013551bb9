package admin

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/peienli0114/multi-route-portfolio-template/internal/httpx"
	"github.com/peienli0114/multi-route-portfolio-template/internal/observability"
)

type saveRequest struct {
	Content *string `json:"content"`
}

type saveResponse struct {
	Message   string `json:"message"`
	ETag      string `json:"etag"`
	Revision  string `json:"revision,omitempty"`
	MapSynced bool   `json:"mapSynced,omitempty"`
}

func filenameParam(r *http.Request) string {
	raw := chi.URLParam(r, "filename")
	if v, err := url.PathUnescape(raw); err == nil {
		return v
	}
	return raw
}

func invalidName() httpx.Error {
	return httpx.NewError("invalid_filename", "Invalid filename", http.StatusBadRequest)
}

func (s *Server) handleList(w http.ResponseWriter, r *http.Request) {
	names, err := s.files.List()
	if err != nil {
		observability.FromContext(r.Context()).Error("list data files", zap.Error(err))
		httpx.WriteError(r.Context(), w, httpx.NewError("read_failed", "Error reading data directory", http.StatusInternalServerError))
		return
	}
	httpx.WriteJSON(w, http.StatusOK, names)
}

func (s *Server) handleRead(w http.ResponseWriter, r *http.Request) {
	name := filenameParam(r)
	f, err := s.files.Read(name)
	switch {
	case errors.Is(err, ErrInvalidName):
		httpx.WriteError(r.Context(), w, invalidName())
		return
	case errors.Is(err, ErrNotFound):
		httpx.WriteError(r.Context(), w, httpx.NewError("not_found", "File not found: "+name, http.StatusNotFound))
		return
	case err != nil:
		observability.FromContext(r.Context()).Error("read data file", zap.String("file", name), zap.Error(err))
		httpx.WriteError(r.Context(), w, httpx.NewError("read_failed", "Error reading file "+name, http.StatusInternalServerError))
		return
	}
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.Header().Set("ETag", f.ETag)
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(f.Content)
}

func (s *Server) handleWrite(w http.ResponseWriter, r *http.Request) {
	name := filenameParam(r)
	if err := ValidName(name); err != nil {
		httpx.WriteError(r.Context(), w, invalidName())
		return
	}

	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	var body saveRequest
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			httpx.WriteError(r.Context(), w, httpx.NewError("too_large", "Request body too large", http.StatusRequestEntityTooLarge))
			return
		}
		httpx.WriteError(r.Context(), w, httpx.NewError("invalid_body", "Invalid request body", http.StatusBadRequest))
		return
	}
	if body.Content == nil {
		httpx.WriteError(r.Context(), w, httpx.NewError("invalid_body", "Missing content", http.StatusBadRequest))
		return
	}

	res, rev, err := s.save(r.Context(), name, []byte(*body.Content), r.Header.Get("If-Match"))
	if err != nil {
		httpx.WriteError(r.Context(), w, s.saveError(r.Context(), name, res, err))
		return
	}
	w.Header().Set("ETag", res.ETag)
	httpx.WriteJSON(w, http.StatusOK, saveResponse{
		Message:   name + " updated successfully",
		ETag:      res.ETag,
		Revision:  rev.ID,
		MapSynced: res.MapSynced,
	})
}

// save writes the file and journals the revision. Journal failures are
// logged; the write itself already succeeded.
func (s *Server) save(ctx context.Context, name string, data []byte, ifMatch string) (WriteResult, Revision, error) {
	logger := observability.FromContext(ctx)
	started := time.Now()
	res, err := s.files.Write(ctx, name, data, ifMatch)
	s.metrics.record(ctx, name, started, err)
	if err != nil {
		return res, Revision{}, err
	}
	rev, err := s.journal.Record(ctx, res)
	if err != nil {
		logger.Warn("journal record failed", zap.String("file", name), zap.Error(err))
	}
	logger.Info("data file saved",
		zap.String("file", name),
		zap.Int("size", res.Size),
		zap.String("etag", res.ETag),
		zap.Bool("map_synced", res.MapSynced),
	)
	return res, rev, nil
}

func (s *Server) saveError(ctx context.Context, name string, res WriteResult, err error) httpx.Error {
	switch {
	case errors.Is(err, ErrInvalidName):
		return invalidName()
	case errors.Is(err, ErrVersionMismatch):
		return httpx.NewError("version_mismatch", name+" changed since it was read", http.StatusPreconditionFailed).
			WithDetails(map[string]any{"etag": res.PrevETag})
	default:
		observability.FromContext(ctx).Error("write data file", zap.String("file", name), zap.Error(err))
		return httpx.NewError("write_failed", "Error writing to file "+name, http.StatusInternalServerError)
	}
}

func (s *Server) handleRevisions(w http.ResponseWriter, r *http.Request) {
	file := r.URL.Query().Get("file")
	if file != "" {
		if err := ValidName(file); err != nil {
			httpx.WriteError(r.Context(), w, invalidName())
			return
		}
	}
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	revs, err := s.journal.List(r.Context(), file, limit)
	if err != nil {
		observability.FromContext(r.Context()).Error("list revisions", zap.Error(err))
		httpx.WriteError(r.Context(), w, httpx.NewError("journal_failed", "Error reading revisions", http.StatusInternalServerError))
		return
	}
	httpx.WriteJSON(w, http.StatusOK, revs)
}
