package observability

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func TestNewLoggerWritesStructuredJSON(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "log.json")
	logger, err := newLogger("debug", []string{path})
	require.NoError(t, err)

	logger.Debug("content loaded", zap.String("dir", "work_list"))
	require.NoError(t, logger.Sync())

	raw, err := os.ReadFile(path)
	require.NoError(t, err)

	var entry map[string]any
	require.NoError(t, json.Unmarshal([]byte(strings.TrimSpace(string(raw))), &entry))
	require.Equal(t, "DEBUG", entry["severity"])
	require.Equal(t, "content loaded", entry["message"])
	require.Equal(t, "work_list", entry["dir"])
	require.Contains(t, entry, "timestamp")
}

func TestNewLoggerFallsBackToInfo(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "log.json")
	logger, err := newLogger("chatty", []string{path})
	require.NoError(t, err)
	require.False(t, logger.Core().Enabled(zapcore.DebugLevel))
	require.True(t, logger.Core().Enabled(zapcore.InfoLevel))
}

func TestContextLogger(t *testing.T) {
	t.Parallel()

	require.NotNil(t, FromContext(context.Background()))

	core, logs := observer.New(zapcore.InfoLevel)
	ctx := WithLogger(context.Background(), zap.New(core))
	FromContext(ctx).Info("hello")
	require.Equal(t, 1, logs.Len())

	require.Equal(t, ctx, WithLogger(ctx, nil))
}

func TestRequestLoggerMiddleware(t *testing.T) {
	t.Parallel()

	core, logs := observer.New(zapcore.InfoLevel)
	router := chi.NewRouter()
	router.Use(middleware.RequestID)
	router.Use(InjectLoggerMiddleware(zap.New(core)))
	router.Use(TraceMiddleware("folio-test"))
	router.Use(RequestLoggerMiddleware())
	router.Get("/works/{code}", func(w http.ResponseWriter, r *http.Request) {
		FromContext(r.Context()).Info("handler ran")
		_, _ = w.Write([]byte("ok"))
	})

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/works/mc5", nil))
	require.Equal(t, http.StatusOK, rec.Code)

	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/missing", nil))
	require.Equal(t, http.StatusNotFound, rec.Code)

	handler := logs.FilterMessage("handler ran").All()
	require.Len(t, handler, 1)
	require.Equal(t, "/works/mc5", handler[0].ContextMap()["path"])
	require.NotEmpty(t, handler[0].ContextMap()["request_id"])

	completed := logs.FilterMessage("request completed").All()
	require.Len(t, completed, 2)
	require.Equal(t, zapcore.InfoLevel, completed[0].Level)
	require.EqualValues(t, 200, completed[0].ContextMap()["status"])
	require.EqualValues(t, 2, completed[0].ContextMap()["bytes"])
	require.Equal(t, zapcore.WarnLevel, completed[1].Level)
	require.EqualValues(t, 404, completed[1].ContextMap()["status"])
}

func TestSanitize(t *testing.T) {
	t.Parallel()

	require.Equal(t, "/", SanitizeRoute(""))
	require.Equal(t, "/ab", SanitizeRoute("/a\nb"))
	require.Equal(t, "GET", SanitizeMethod("GET\x00"))
	require.Len(t, SanitizeRoute(strings.Repeat("a", 500)), 180)
}
