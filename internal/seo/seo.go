package seo

import (
	"strings"

	"github.com/peienli0114/multi-route-portfolio-template/internal/content"
)

const descriptionLimit = 160

type OpenGraph struct {
	Title       string
	Description string
	Image       string
	Type        string
	Locale      string
}

type Twitter struct {
	Card  string
	Image string
}

type Meta struct {
	Title       string
	Description string
	Canonical   string
	Lang        string
	OG          OpenGraph
	Twitter     Twitter
	// JSONLD holds ready-to-embed schema.org documents.
	JSONLD []string
}

// ForPage builds meta tags for a route page. work is nil unless the URL
// deep-links a portfolio work.
func ForPage(p content.Profile, baseURL, path string, work *content.Item) Meta {
	canonical := absolute(baseURL, path)
	m := Meta{
		Title:       p.SiteTitle,
		Description: homeDescription(p),
		Canonical:   canonical,
		Lang:        htmlLang(p.Lang),
		OG: OpenGraph{
			Type:   "website",
			Locale: ogLocale(p.Lang),
		},
		Twitter: Twitter{Card: "summary"},
	}

	m.JSONLD = append(m.JSONLD,
		JSON(WebSite(p.SiteTitle, absolute(baseURL, routePath(p.RouteKey)))),
		JSON(Person(p.Footer.Title, absolute(baseURL, routePath(p.RouteKey)), p.Footer.Email)),
	)

	if work != nil {
		title := content.WorkHeading(p.Lang, *work)
		m.Title = title + " | " + p.SiteTitle
		if desc := workDescription(p.Lang, *work); desc != "" {
			m.Description = desc
		}
		m.OG.Type = "article"
		if img := strings.TrimSpace(work.Detail.HeadPic); img != "" {
			m.OG.Image = absolute(baseURL, img)
			m.Twitter.Card = "summary_large_image"
			m.Twitter.Image = m.OG.Image
		}
		m.JSONLD = append(m.JSONLD,
			JSON(CreativeWork(title, m.Description, canonical, m.OG.Image, strings.ReplaceAll(content.YearRange(work.Detail), " – ", "/"))),
			JSON(BreadcrumbList([]BreadcrumbItem{
				{Name: p.SiteTitle, Item: absolute(baseURL, routePath(p.RouteKey))},
				{Name: title, Item: canonical},
			})),
		)
	}
	m.OG.Title = m.Title
	m.OG.Description = m.Description
	return m
}

func homeDescription(p content.Profile) string {
	if len(p.Home.Intro) == 0 {
		return ""
	}
	return truncate(content.StripHTML(p.Home.Intro[0]))
}

func workDescription(lang content.Lang, it content.Item) string {
	d := it.Detail
	if intro := content.Localized(lang, d.IntroEn, d.Intro); strings.TrimSpace(intro) != "" {
		return truncate(content.StripHTML(intro))
	}
	if list := content.LocalizedList(lang, d.IntroListEn, d.IntroList); len(list) > 0 {
		return truncate(content.StripHTML(strings.Join(list, " ")))
	}
	return content.PlainSummary(d.Content, descriptionLimit)
}

func truncate(s string) string {
	s = strings.Join(strings.Fields(s), " ")
	r := []rune(s)
	if len(r) <= descriptionLimit {
		return s
	}
	return string(r[:descriptionLimit-1]) + "…"
}

func routePath(key string) string {
	if key == "" || key == "default" {
		return "/"
	}
	return "/" + key
}

func absolute(baseURL, path string) string {
	if strings.HasPrefix(path, "http://") || strings.HasPrefix(path, "https://") {
		return path
	}
	base := strings.TrimRight(baseURL, "/")
	if !strings.HasPrefix(path, "/") {
		path = "/" + path
	}
	return base + path
}

func htmlLang(l content.Lang) string {
	if l == content.LangEN {
		return "en"
	}
	return "zh-Hant"
}

func ogLocale(l content.Lang) string {
	if l == content.LangEN {
		return "en_US"
	}
	return "zh_TW"
}
