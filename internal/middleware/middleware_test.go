package middleware

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"testing/fstest"

	"github.com/stretchr/testify/require"
)

func findCookie(cookies []*http.Cookie, name string) *http.Cookie {
	for _, c := range cookies {
		if c.Name == name {
			return c
		}
	}
	return nil
}

func TestSessionLifecycle(t *testing.T) {
	t.Parallel()

	sessions := NewSessions("test-key", false, nil)
	var seen []SessionData
	handler := sessions.Middleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen = append(seen, *GetSession(r))
		w.WriteHeader(http.StatusNoContent)
	}))

	rec1 := httptest.NewRecorder()
	handler.ServeHTTP(rec1, httptest.NewRequest(http.MethodGet, "/", nil))
	cookie := findCookie(rec1.Result().Cookies(), sessionCookieName)
	require.NotNil(t, cookie, "expected session cookie on first response")
	require.NotEmpty(t, seen[0].ID)
	require.NotEmpty(t, seen[0].CSRFToken)

	req2 := httptest.NewRequest(http.MethodGet, "/", nil)
	req2.AddCookie(cookie)
	rec2 := httptest.NewRecorder()
	handler.ServeHTTP(rec2, req2)
	require.Equal(t, seen[0].ID, seen[1].ID)
	require.Equal(t, seen[0].CSRFToken, seen[1].CSRFToken)
	require.Nil(t, findCookie(rec2.Result().Cookies(), sessionCookieName), "unchanged session must not be rewritten")
}

func TestSessionRejectsForgedCookie(t *testing.T) {
	t.Parallel()

	issuer := NewSessions("key-a", false, nil)
	verifier := NewSessions("key-b", false, nil)

	var first string
	issuer.Middleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		first = GetSession(r).ID
	})).ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/", nil))

	rec := httptest.NewRecorder()
	issuer.Middleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	cookie := findCookie(rec.Result().Cookies(), sessionCookieName)
	require.NotNil(t, cookie)

	var got string
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.AddCookie(cookie)
	verifier.Middleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		got = GetSession(r).ID
	})).ServeHTTP(httptest.NewRecorder(), req)
	require.NotEmpty(t, got)
	require.NotEqual(t, first, got)

	tampered := *cookie
	tampered.Value = strings.Replace(cookie.Value, ".", "x.", 1)
	req = httptest.NewRequest(http.MethodGet, "/", nil)
	req.AddCookie(&tampered)
	rec = httptest.NewRecorder()
	issuer.Middleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})).ServeHTTP(rec, req)
	require.NotNil(t, findCookie(rec.Result().Cookies(), sessionCookieName), "tampered cookie must be replaced")
}

func TestCSRF(t *testing.T) {
	t.Parallel()

	sessions := NewSessions("csrf-key", false, nil)
	ok := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
	handler := sessions.Middleware(HTMX(CSRF(ok)))

	var token string
	rec := httptest.NewRecorder()
	sessions.Middleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		token = CSRFToken(r)
		w.WriteHeader(http.StatusOK)
	})).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	cookie := findCookie(rec.Result().Cookies(), sessionCookieName)
	require.NotNil(t, cookie)

	get := httptest.NewRequest(http.MethodGet, "/", nil)
	get.AddCookie(cookie)
	rec = httptest.NewRecorder()
	handler.ServeHTTP(rec, get)
	require.Equal(t, http.StatusOK, rec.Code)

	missing := httptest.NewRequest(http.MethodPost, "/ui/default/sidebar/toggle", nil)
	missing.AddCookie(cookie)
	missing.Header.Set("HX-Request", "true")
	rec = httptest.NewRecorder()
	handler.ServeHTTP(rec, missing)
	require.Equal(t, http.StatusForbidden, rec.Code)
	require.Contains(t, rec.Header().Get("Content-Type"), "application/json")
	require.Contains(t, rec.Body.String(), "invalid CSRF token")

	good := httptest.NewRequest(http.MethodPost, "/ui/default/sidebar/toggle", nil)
	good.AddCookie(cookie)
	good.Header.Set(CSRFHeader, token)
	rec = httptest.NewRecorder()
	handler.ServeHTTP(rec, good)
	require.Equal(t, http.StatusOK, rec.Code)
}

func TestHTMXContextAndTrigger(t *testing.T) {
	t.Parallel()

	var is bool
	handler := HTMX(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		is = IsHTMX(r.Context())
		TriggerEvent(w, "folio:scroll", map[string]string{"anchor": "portfolio-mc5-summary"})
	}))

	req := httptest.NewRequest(http.MethodPost, "/", nil)
	req.Header.Set("HX-Request", "true")
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	require.True(t, is)
	require.JSONEq(t, `{"folio:scroll":{"anchor":"portfolio-mc5-summary"}}`, rec.Header().Get("HX-Trigger"))
	require.Contains(t, rec.Header().Values("Vary"), "HX-Request")

	handler.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/", nil))
	require.False(t, is)
}

func TestAssetsWithCache(t *testing.T) {
	t.Parallel()

	fsys := fstest.MapFS{
		"css/site.css": {Data: []byte("body{margin:0}")},
	}
	handler := AssetsWithCache(fsys, "")

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/css/site.css", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	etag := rec.Header().Get("ETag")
	require.True(t, strings.HasPrefix(etag, `W/"`), "etag %q", etag)
	require.Contains(t, rec.Header().Get("Cache-Control"), "max-age=604800")
	require.Equal(t, "body{margin:0}", rec.Body.String())

	req := httptest.NewRequest(http.MethodGet, "/css/site.css", nil)
	req.Header.Set("If-None-Match", etag)
	rec = httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	require.Equal(t, http.StatusNotModified, rec.Code)

	rec = httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/css/missing.css", nil))
	require.Equal(t, http.StatusNotFound, rec.Code)
}

func TestNoStoreAndVaryLocale(t *testing.T) {
	t.Parallel()

	handler := NoStore(VaryLocale(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {})))
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	require.Equal(t, "no-store", rec.Header().Get("Cache-Control"))
	require.Contains(t, rec.Header().Values("Vary"), "Accept-Language")
}
