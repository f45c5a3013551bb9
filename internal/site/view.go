package site

import (
	"html/template"
	"strings"
	"time"

	"github.com/peienli0114/multi-route-portfolio-template/internal/content"
	"github.com/peienli0114/multi-route-portfolio-template/internal/cvdate"
	"github.com/peienli0114/multi-route-portfolio-template/internal/i18n"
	"github.com/peienli0114/multi-route-portfolio-template/internal/page"
	"github.com/peienli0114/multi-route-portfolio-template/internal/seo"
)

// pageView is the render model of a full page.
type pageView struct {
	Meta          seo.Meta
	T             i18n.Translator
	Route         string
	UI            string
	PageID        string
	CSRF          string
	SiteTitle     string
	Home          content.HomeContent
	Footer        content.FooterContent
	CV            cvView
	Nav           navView
	Works         []workView
	Categories    []categoryView
	Banner        bannerView
	InitialAnchor string
	Assets        string
}

type navSection struct {
	Key    string
	Label  string
	Anchor string
	Active bool
}

type navItem struct {
	Code   string
	Title  string
	Active bool
}

type navCategory struct {
	Name     string
	Expanded bool
	Items    []navItem
}

type navView struct {
	OOB        bool
	T          i18n.Translator
	UI         string
	Title      string
	Collapsed  bool
	MobileOpen bool
	Sections   []navSection
	Categories []navCategory
}

type workView struct {
	OOB       bool
	T         i18n.Translator
	UI        string
	Code      string
	Category  string
	Title     string
	Heading   string
	Years     string
	Intro     string
	IntroList []string
	Tags      []string
	HeadPic   string
	Links     []content.WorkLink
	CoWorkers []content.CoWorker
	Lines     []string
	Expanded  bool
	Active    bool
}

// categoryView groups rendered works under their category heading.
type categoryView struct {
	Name  string
	Works []workView
}

type bannerView struct {
	OOB      bool
	T        i18n.Translator
	UI       string
	Visible  bool
	Code     string
	Title    string
	Style    template.CSS
	Progress float64
}

type experienceItem struct {
	Organisation string
	Role         string
	Description  []string
	Range        string
	Duration     string
	Tags         []string
	Related      []navItem
}

type experienceGroup struct {
	Type  string
	Items []experienceItem
}

type cvView struct {
	DownloadURL  string
	Link         string
	Summary      [][]string
	Experience   []experienceGroup
	Skills       []content.SkillGroup
	Publications []content.PublicationGroup
}

// builder turns a resolved profile and page state into view models.
type builder struct {
	profile content.Profile
	state   page.State
	t       i18n.Translator
	ui      string
	now     time.Time
}

func (b builder) nav(oob bool) navView {
	v := navView{
		OOB:        oob,
		T:          b.t,
		UI:         b.ui,
		Title:      b.profile.SidebarTitle,
		Collapsed:  b.state.SidebarCollapsed,
		MobileOpen: b.state.MobileNavOpen,
	}
	for _, key := range content.Sections {
		v.Sections = append(v.Sections, navSection{
			Key:    string(key),
			Label:  b.t.T("nav." + string(key)),
			Anchor: page.SectionAnchor(key),
			Active: b.state.Selected == key,
		})
	}
	for _, c := range b.profile.Index.Categories {
		nc := navCategory{Name: c.Name, Expanded: b.state.CategoryExpanded(c.Name)}
		for _, it := range c.Items {
			nc.Items = append(nc.Items, navItem{
				Code:   it.Code,
				Title:  content.WorkTitle(b.profile.Lang, it),
				Active: b.state.ActiveWork == it.Code,
			})
		}
		v.Categories = append(v.Categories, nc)
	}
	return v
}

func (b builder) work(it content.Item, oob bool) workView {
	lang := b.profile.Lang
	d := it.Detail
	return workView{
		OOB:       oob,
		T:         b.t,
		UI:        b.ui,
		Code:      it.Code,
		Category:  it.Category,
		Title:     content.WorkTitle(lang, it),
		Heading:   content.WorkHeading(lang, it),
		Years:     content.YearRange(d),
		Intro:     content.Localized(lang, d.IntroEn, d.Intro),
		IntroList: content.LocalizedList(lang, d.IntroListEn, d.IntroList),
		Tags:      content.LocalizedList(lang, d.TagsEn, d.Tags),
		HeadPic:   strings.TrimSpace(d.HeadPic),
		Links:     d.Links,
		CoWorkers: d.CoWorkers,
		Lines:     content.SplitLines(d.Content),
		Expanded:  b.state.WorkExpanded(it.Code),
		Active:    b.state.ActiveWork == it.Code,
	}
}

func (b builder) categories() []categoryView {
	out := make([]categoryView, 0, len(b.profile.Index.Categories))
	for _, c := range b.profile.Index.Categories {
		cv := categoryView{Name: c.Name}
		for _, it := range c.Items {
			cv.Works = append(cv.Works, b.work(it, false))
		}
		out = append(out, cv)
	}
	return out
}

func (b builder) banner(oob bool) bannerView {
	v := bannerView{OOB: oob, T: b.t, UI: b.ui, Progress: b.state.Progress}
	if f := b.state.Banner; f != nil {
		v.Visible = true
		v.Code = f.Code
		v.Title = f.Title
		// built from numbers only
		v.Style = template.CSS(f.Style(b.state.ViewportWidth))
	}
	return v
}

func (b builder) cv() cvView {
	p := b.profile
	v := cvView{
		DownloadURL:  p.CV.DownloadURL,
		Link:         p.CV.Link,
		Summary:      p.CVSummary,
		Skills:       p.Skills,
		Publications: p.Publications,
	}
	for _, g := range p.Experience {
		eg := experienceGroup{Type: g.Type}
		for _, e := range g.Items {
			item := experienceItem{
				Organisation: e.Organisation,
				Role:         e.Role,
				Description:  content.SplitLines(e.Description),
				Range:        cvdate.FormatRange(e.Begin, e.End),
				Tags:         e.Tags,
			}
			if d, ok := cvdate.ComputeDuration(e.Begin, e.End, b.now); ok {
				item.Duration = d
			}
			for _, code := range e.RelatedWorks {
				if it, ok := p.Index.Lookup(code); ok {
					item.Related = append(item.Related, navItem{Code: it.Code, Title: content.WorkTitle(p.Lang, it)})
				}
			}
			eg.Items = append(eg.Items, item)
		}
		v.Experience = append(v.Experience, eg)
	}
	return v
}
