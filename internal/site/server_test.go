package site

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/stretchr/testify/require"

	"github.com/peienli0114/multi-route-portfolio-template/internal/content"
	"github.com/peienli0114/multi-route-portfolio-template/internal/page"
)

const fixtureDir = "../content/testdata/work_list"

func newTestHandler(t *testing.T) http.Handler {
	t.Helper()
	store, err := content.NewStore(context.Background(), fixtureDir, "/assets/cv", nil)
	require.NoError(t, err)
	srv, err := New(Options{
		Content:    store,
		SessionKey: "test-session-key",
		Now:        func() time.Time { return time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC) },
	})
	require.NoError(t, err)
	return srv.Handler()
}

// visitor replays cookies and the page's htmx headers like a browser tab.
type visitor struct {
	t       *testing.T
	h       http.Handler
	cookies map[string]*http.Cookie
	headers map[string]string
}

func newVisitor(t *testing.T, h http.Handler) *visitor {
	return &visitor{t: t, h: h, cookies: map[string]*http.Cookie{}, headers: map[string]string{}}
}

func (v *visitor) do(req *http.Request) *httptest.ResponseRecorder {
	for _, c := range v.cookies {
		req.AddCookie(c)
	}
	rec := httptest.NewRecorder()
	v.h.ServeHTTP(rec, req)
	for _, c := range rec.Result().Cookies() {
		v.cookies[c.Name] = c
	}
	return rec
}

func (v *visitor) get(path string) (*httptest.ResponseRecorder, *goquery.Document) {
	v.t.Helper()
	rec := v.do(httptest.NewRequest(http.MethodGet, path, nil))
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(rec.Body.Bytes()))
	require.NoError(v.t, err)
	if raw, ok := doc.Find("body").Attr("hx-headers"); ok {
		require.NoError(v.t, json.Unmarshal([]byte(raw), &v.headers))
	}
	return rec, doc
}

func (v *visitor) post(path string, form url.Values) (*httptest.ResponseRecorder, *goquery.Document) {
	v.t.Helper()
	req := httptest.NewRequest(http.MethodPost, path, strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	return v.send(req)
}

func (v *visitor) postJSON(path string, body any) (*httptest.ResponseRecorder, *goquery.Document) {
	v.t.Helper()
	raw, err := json.Marshal(body)
	require.NoError(v.t, err)
	req := httptest.NewRequest(http.MethodPost, path, bytes.NewReader(raw))
	req.Header.Set("Content-Type", "application/json")
	return v.send(req)
}

func (v *visitor) send(req *http.Request) (*httptest.ResponseRecorder, *goquery.Document) {
	req.Header.Set("HX-Request", "true")
	for k, val := range v.headers {
		req.Header.Set(k, val)
	}
	rec := v.do(req)
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(rec.Body.Bytes()))
	require.NoError(v.t, err)
	return rec, doc
}

func attrs(sel *goquery.Selection, name string) []string {
	var out []string
	sel.Each(func(_ int, s *goquery.Selection) {
		out = append(out, s.AttrOr(name, ""))
	})
	return out
}

func scrollTrigger(t *testing.T, rec *httptest.ResponseRecorder) string {
	t.Helper()
	raw := rec.Header().Get("HX-Trigger")
	if raw == "" {
		return ""
	}
	var payload map[string]page.Effect
	require.NoError(t, json.Unmarshal([]byte(raw), &payload))
	return payload["folio:scroll"].ScrollTo
}

func TestHealthz(t *testing.T) {
	t.Parallel()

	rec := httptest.NewRecorder()
	newTestHandler(t).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	require.Equal(t, "ok", strings.TrimSpace(rec.Body.String()))
}

func TestHomePageRenders(t *testing.T) {
	t.Parallel()

	v := newVisitor(t, newTestHandler(t))
	rec, doc := v.get("/")
	require.Equal(t, http.StatusOK, rec.Code)
	require.Equal(t, "Pei's Portfolio", doc.Find("title").Text())
	require.Equal(t, "zh-Hant", doc.Find("html").AttrOr("lang", ""))
	require.Equal(t, "PEI", doc.Find(".sidebar__title").Text())
	require.Equal(t, 1, doc.Find("#section-home").Length())
	require.Equal(t, 1, doc.Find("#section-cv").Length())
	require.Equal(t, 1, doc.Find("#section-portfolio").Length())
	require.Equal(t, []string{"Design", "Research", "其他作品專案"}, attrs(doc.Find(".nav-category"), "data-category"))
	require.Equal(t, 0, doc.Find(".nav-work").Length(), "categories start collapsed")
	require.Equal(t, []string{"mc5", "w2", "r1", "ghost", "misc1"}, attrs(doc.Find("article.work"), "data-work"))
	require.Equal(t, "home", doc.Find(".nav-link.is-active").AttrOr("data-section", ""))
	require.Equal(t, 2, doc.Find(`script[type="application/ld+json"]`).Length())
	require.Equal(t, "/assets/cv/cv.pdf", doc.Find(".cv__actions a[download]").AttrOr("href", ""))
	require.NotEmpty(t, v.headers["X-CSRF-Token"])
	require.NotEmpty(t, v.headers[PageHeader])
	_, hasAnchor := doc.Find("body").Attr("data-initial-anchor")
	require.False(t, hasAnchor)
}

func TestDeepLinkExpandsWork(t *testing.T) {
	t.Parallel()

	v := newVisitor(t, newTestHandler(t))
	rec, doc := v.get("/studio/MC5")
	require.Equal(t, http.StatusOK, rec.Code)
	require.Equal(t, "en", doc.Find("html").AttrOr("lang", ""))
	require.Equal(t, "Motion Capture Five | Studio", doc.Find("title").Text())
	require.Equal(t, "http://example.com/studio/mc5", doc.Find(`link[rel="canonical"]`).AttrOr("href", ""))
	require.Equal(t, "portfolio-mc5", doc.Find("body").AttrOr("data-initial-anchor", ""))

	work := doc.Find("#portfolio-mc5")
	require.True(t, work.HasClass("is-expanded"))
	require.True(t, work.HasClass("is-active"))
	require.Equal(t, 1, work.Find("#portfolio-mc5-details").Length())
	require.Equal(t, 1, work.Find("[data-banner-anchor]").Length())
	require.False(t, doc.Find("#portfolio-r1").HasClass("is-expanded"))

	require.Equal(t, "portfolio", doc.Find(".nav-link.is-active").AttrOr("data-section", ""))
	require.True(t, doc.Find(`.nav-category[data-category="Featured"]`).HasClass("is-expanded"))
	require.Equal(t, "mc5", doc.Find(".nav-work.is-active").AttrOr("data-work", ""))
	require.Equal(t, 4, doc.Find(`script[type="application/ld+json"]`).Length())
}

func TestUnknownDeepLinkIgnored(t *testing.T) {
	t.Parallel()

	v := newVisitor(t, newTestHandler(t))
	rec, doc := v.get("/studio/nope")
	require.Equal(t, http.StatusOK, rec.Code)
	require.Equal(t, 0, doc.Find("article.work.is-expanded").Length())
	_, hasAnchor := doc.Find("body").Attr("data-initial-anchor")
	require.False(t, hasAnchor)
	require.Equal(t, "home", doc.Find(".nav-link.is-active").AttrOr("data-section", ""))
}

func TestUnknownRouteUsesDefault(t *testing.T) {
	t.Parallel()

	v := newVisitor(t, newTestHandler(t))
	rec, doc := v.get("/nobody")
	require.Equal(t, http.StatusOK, rec.Code)
	require.Equal(t, "Pei's Portfolio", doc.Find("title").Text())
	require.Equal(t, []string{"Design", "Research", "其他作品專案"}, attrs(doc.Find(".nav-category"), "data-category"))
}

func TestNotFoundIsLocalized(t *testing.T) {
	t.Parallel()

	req := httptest.NewRequest(http.MethodGet, "/a/b/c", nil)
	req.Header.Set("Accept-Language", "en-US,en;q=0.9")
	rec := httptest.NewRecorder()
	newTestHandler(t).ServeHTTP(rec, req)
	require.Equal(t, http.StatusNotFound, rec.Code)
	require.Contains(t, rec.Body.String(), "Page not found.")
}

func TestFragmentsRequireCSRF(t *testing.T) {
	t.Parallel()

	v := newVisitor(t, newTestHandler(t))
	v.get("/")
	delete(v.headers, "X-CSRF-Token")
	rec, _ := v.post("/ui/default/sidebar/toggle", nil)
	require.Equal(t, http.StatusForbidden, rec.Code)
}

func TestToggleWork(t *testing.T) {
	t.Parallel()

	v := newVisitor(t, newTestHandler(t))
	v.get("/")

	rec, doc := v.post("/ui/default/works/W2/toggle", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	work := doc.Find("#portfolio-w2")
	require.Equal(t, "true", work.AttrOr("hx-swap-oob", ""))
	require.True(t, work.HasClass("is-expanded"))
	require.Empty(t, scrollTrigger(t, rec))
	require.Equal(t, 1, doc.Find("#floating-banner").Length())

	rec, doc = v.post("/ui/default/works/w2/toggle", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	require.False(t, doc.Find("#portfolio-w2").HasClass("is-expanded"))
	require.Equal(t, "portfolio-w2-summary", scrollTrigger(t, rec))

	rec, _ = v.post("/ui/default/works/nope/toggle", nil)
	require.Equal(t, http.StatusNotFound, rec.Code)
	require.Contains(t, rec.Body.String(), "unknown_work")
}

func TestSidebarAndMobileNavToggle(t *testing.T) {
	t.Parallel()

	v := newVisitor(t, newTestHandler(t))
	v.get("/")

	_, doc := v.post("/ui/default/sidebar/toggle", nil)
	nav := doc.Find("#sidebar-nav")
	require.Equal(t, "true", nav.AttrOr("hx-swap-oob", ""))
	require.True(t, nav.HasClass("is-collapsed"))

	_, doc = v.post("/ui/default/mobile-nav/toggle", nil)
	require.True(t, doc.Find("#sidebar-nav").HasClass("is-open"))

	_, doc = v.post("/ui/default/categories/"+url.PathEscape("其他作品專案")+"/toggle", nil)
	require.True(t, doc.Find(`.nav-category[data-category="其他作品專案"]`).HasClass("is-expanded"))
	require.Equal(t, []string{"misc1"}, attrs(doc.Find(".nav-work"), "data-work"))

	rec, _ := v.post("/ui/default/categories/Nope/toggle", nil)
	require.Equal(t, http.StatusNotFound, rec.Code)
}

func TestSelectSection(t *testing.T) {
	t.Parallel()

	v := newVisitor(t, newTestHandler(t))
	v.get("/")

	rec, doc := v.post("/ui/default/select/cv", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	require.Equal(t, "cv", doc.Find(".nav-link.is-active").AttrOr("data-section", ""))
	require.Equal(t, "section-cv", scrollTrigger(t, rec))

	rec, _ = v.post("/ui/default/select/portfolio", nil)
	require.Equal(t, "section-portfolio", scrollTrigger(t, rec))

	rec, _ = v.post("/ui/default/select/blog", nil)
	require.Equal(t, http.StatusNotFound, rec.Code)
}

func expandedCategories(doc *goquery.Document) []string {
	return attrs(doc.Find(".nav-category.is-expanded"), "data-category")
}

func TestNavigateAccordionOnDesktopOnly(t *testing.T) {
	t.Parallel()

	h := newTestHandler(t)
	cases := []struct {
		name  string
		width string
		want  []string
	}{
		{name: "desktop", width: "1200", want: []string{"Research"}},
		{name: "breakpoint", width: "768", want: []string{"Design", "Research"}},
		{name: "phone", width: "375", want: []string{"Design", "Research"}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			v := newVisitor(t, h)
			v.get("/")
			form := url.Values{"vw": {tc.width}}

			rec, doc := v.post("/ui/default/navigate/mc5", form)
			require.Equal(t, http.StatusOK, rec.Code)
			require.Equal(t, "portfolio-mc5", scrollTrigger(t, rec))
			require.Equal(t, []string{"Design"}, expandedCategories(doc))

			rec, doc = v.post("/ui/default/navigate/r1", form)
			require.Equal(t, "portfolio-r1", scrollTrigger(t, rec))
			require.Equal(t, tc.want, expandedCategories(doc))
			require.Equal(t, "r1", doc.Find(".nav-work.is-active").AttrOr("data-work", ""))
		})
	}
}

func TestNavigateClosesMobileNav(t *testing.T) {
	t.Parallel()

	v := newVisitor(t, newTestHandler(t))
	v.get("/")
	_, doc := v.post("/ui/default/mobile-nav/toggle", nil)
	require.True(t, doc.Find("#sidebar-nav").HasClass("is-open"))

	_, doc = v.post("/ui/default/navigate/mc5", url.Values{"vw": {"375"}})
	require.False(t, doc.Find("#sidebar-nav").HasClass("is-open"))
}

func studioGeometry(scrollY float64) page.Geometry {
	details := page.Rect{Top: 2300, Left: 300, Width: 700, Height: 1600}
	banner := page.Rect{Top: 2300, Left: 300, Width: 700, Height: 48}
	return page.Geometry{
		Viewport: page.Viewport{ScrollY: scrollY, Width: 1280, Height: 800},
		Sections: []page.SectionRect{
			{Key: content.SectionHome, Top: 0},
			{Key: content.SectionCV, Top: 900},
			{Key: content.SectionPortfolio, Top: 1800},
		},
		Works: []page.WorkRect{
			{Code: "mc5", Top: 2000, SummaryBottom: 2300, Details: &details, Banner: &banner},
			{Code: "r1", Top: 4000, SummaryBottom: 4200},
		},
	}
}

func TestScrollFloatsBanner(t *testing.T) {
	t.Parallel()

	v := newVisitor(t, newTestHandler(t))
	v.get("/studio/mc5")

	rec, doc := v.postJSON("/ui/studio/scroll", studioGeometry(2500))
	require.Equal(t, http.StatusOK, rec.Code)
	banner := doc.Find("#floating-banner")
	require.True(t, banner.HasClass("is-floating"))
	require.Equal(t, "mc5", banner.AttrOr("data-work", ""))
	require.Equal(t, "MC5 Study", banner.Find(".floating-banner__title").Text())
	require.Contains(t, banner.AttrOr("style", ""), "width:700px")
	require.Equal(t, "width:62.5%", banner.Find(".floating-banner__progress span").AttrOr("style", ""))

	// unchanged geometry has nothing to redraw
	rec, _ = v.postJSON("/ui/studio/scroll", studioGeometry(2500))
	require.Equal(t, http.StatusNoContent, rec.Code)

	rec, doc = v.postJSON("/ui/studio/scroll", studioGeometry(4100))
	require.Equal(t, http.StatusOK, rec.Code)
	require.Equal(t, "r1", doc.Find(".nav-work.is-active").AttrOr("data-work", ""))
	_, hidden := doc.Find("#floating-banner").Attr("hidden")
	require.True(t, hidden)
}

func TestScrollAcceptsFormEncodedGeometry(t *testing.T) {
	t.Parallel()

	v := newVisitor(t, newTestHandler(t))
	v.get("/")

	raw, err := json.Marshal(studioGeometry(1000))
	require.NoError(t, err)
	rec, doc := v.post("/ui/default/scroll", url.Values{"geometry": {string(raw)}})
	require.Equal(t, http.StatusOK, rec.Code)
	require.Equal(t, "cv", doc.Find(".nav-link.is-active").AttrOr("data-section", ""))

	rec, _ = v.post("/ui/default/scroll", url.Values{"geometry": {"{"}})
	require.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestPagesKeepSeparateState(t *testing.T) {
	t.Parallel()

	h := newTestHandler(t)
	tab1 := newVisitor(t, h)
	tab1.get("/")
	tab2 := &visitor{t: t, h: h, cookies: tab1.cookies, headers: map[string]string{}}
	tab2.get("/")
	require.NotEqual(t, tab1.headers[PageHeader], tab2.headers[PageHeader])

	_, doc := tab1.post("/ui/default/sidebar/toggle", nil)
	require.True(t, doc.Find("#sidebar-nav").HasClass("is-collapsed"))
	_, doc = tab2.post("/ui/default/mobile-nav/toggle", nil)
	require.False(t, doc.Find("#sidebar-nav").HasClass("is-collapsed"))
}

func TestStaticAssetsCached(t *testing.T) {
	t.Parallel()

	h := newTestHandler(t)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/assets/js/folio.js", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	require.NotEmpty(t, rec.Header().Get("ETag"))

	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/assets/cv/cv.pdf", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	require.Equal(t, "no-store", rec.Header().Get("Cache-Control"))
}
