package page

import (
	"slices"

	"github.com/peienli0114/multi-route-portfolio-template/internal/content"
)

// Effect is a follow-up the browser applies after swapping the response in.
// ScrollTo names an element id to bring into view; empty means none.
type Effect struct {
	ScrollTo string `json:"anchor,omitempty"`
}

// None reports whether the effect does nothing.
func (e Effect) None() bool { return e.ScrollTo == "" }

// SummaryAnchor is the element id of a work's summary block.
func SummaryAnchor(code string) string { return "portfolio-" + code + "-summary" }

// DetailsAnchor is the element id of a work's details block.
func DetailsAnchor(code string) string { return "portfolio-" + code + "-details" }

// WorkAnchor is the element id of a work's section.
func WorkAnchor(code string) string { return "portfolio-" + code }

// SectionAnchor is the element id of a top-level section.
func SectionAnchor(key content.ContentKey) string { return "section-" + string(key) }

// Change flags which parts of the page a transition touched.
type Change uint8

const (
	ChangedSection Change = 1 << iota
	ChangedActive
	ChangedWorks
	ChangedCategories
	ChangedBanner
	ChangedNav
)

// Has reports whether c includes flag.
func (c Change) Has(flag Change) bool { return c&flag != 0 }

// State is the interactive state of one page instance.
type State struct {
	Selected           content.ContentKey
	ActiveWork         string
	ExpandedWorks      []string
	ExpandedCategories []string
	MobileNavOpen      bool
	SidebarCollapsed   bool
	Banner             *Frame
	Progress           float64
	// ViewportWidth is the last width reported by the browser.
	ViewportWidth float64

	lastSection     content.ContentKey
	deepLinkHandled bool
}

// NewState returns the state of a freshly loaded page.
func NewState() *State {
	return &State{
		Selected:    content.SectionHome,
		lastSection: content.SectionHome,
	}
}

// Clone returns a deep copy safe to read without the owner's lock.
func (s *State) Clone() State {
	out := *s
	out.ExpandedWorks = slices.Clone(s.ExpandedWorks)
	out.ExpandedCategories = slices.Clone(s.ExpandedCategories)
	if s.Banner != nil {
		b := *s.Banner
		out.Banner = &b
	}
	return out
}

// WorkExpanded reports whether code is expanded.
func (s *State) WorkExpanded(code string) bool {
	return slices.Contains(s.ExpandedWorks, code)
}

// CategoryExpanded reports whether the named sidebar category is open.
func (s *State) CategoryExpanded(name string) bool {
	return slices.Contains(s.ExpandedCategories, name)
}

// ToggleWork expands or collapses a work. Collapsing scrolls its summary back
// into view so the reader is not left in the middle of the page.
func (s *State) ToggleWork(code string) Effect {
	if s.WorkExpanded(code) {
		s.ExpandedWorks = slices.DeleteFunc(s.ExpandedWorks, func(c string) bool { return c == code })
		if s.Banner != nil && s.Banner.Code == code {
			s.Banner = nil
			s.Progress = 0
		}
		return Effect{ScrollTo: SummaryAnchor(code)}
	}
	s.ExpandedWorks = append(s.ExpandedWorks, code)
	return Effect{}
}

// ToggleCategory opens or closes a sidebar category.
func (s *State) ToggleCategory(name string) {
	if s.CategoryExpanded(name) {
		s.ExpandedCategories = slices.DeleteFunc(s.ExpandedCategories, func(n string) bool { return n == name })
		return
	}
	s.ExpandedCategories = append(s.ExpandedCategories, name)
}

// ExpandCategory opens a sidebar category. With collapseOthers it becomes the
// only open one.
func (s *State) ExpandCategory(name string, collapseOthers bool) bool {
	if name == "" {
		return false
	}
	if collapseOthers {
		if len(s.ExpandedCategories) == 1 && s.ExpandedCategories[0] == name {
			return false
		}
		s.ExpandedCategories = []string{name}
		return true
	}
	if s.CategoryExpanded(name) {
		return false
	}
	s.ExpandedCategories = append(s.ExpandedCategories, name)
	return true
}

func (s *State) closeNavOnMobile(viewportWidth float64) {
	if IsMobile(viewportWidth) {
		s.MobileNavOpen = false
	}
}

// NavigatePortfolio selects the portfolio section and, when code is set,
// activates that work and opens its category. On desktop widths the other
// categories close; phone layouts keep them open.
func (s *State) NavigatePortfolio(code string, ix content.Index, viewportWidth float64) Effect {
	s.Selected = content.SectionPortfolio
	s.closeNavOnMobile(viewportWidth)
	if code == "" {
		s.ActiveWork = ""
		return Effect{ScrollTo: SectionAnchor(content.SectionPortfolio)}
	}
	s.ActiveWork = code
	if category, ok := ix.CategoryOf(code); ok {
		s.ExpandCategory(category, !IsMobile(viewportWidth))
	}
	return Effect{ScrollTo: WorkAnchor(code)}
}

// SelectContent jumps to a top-level section.
func (s *State) SelectContent(key content.ContentKey, ix content.Index, viewportWidth float64) Effect {
	if key == content.SectionPortfolio {
		return s.NavigatePortfolio("", ix, viewportWidth)
	}
	s.Selected = key
	s.closeNavOnMobile(viewportWidth)
	s.ActiveWork = ""
	s.Banner = nil
	s.Progress = 0
	return Effect{ScrollTo: SectionAnchor(key)}
}

// ResetForRoute adapts the state to a new route's index: sidebar categories
// close, works that no longer exist are dropped and the deep link may be
// applied again.
func (s *State) ResetForRoute(ix content.Index) {
	exists := func(code string) bool {
		_, ok := ix.Item(code)
		return ok
	}
	s.ExpandedCategories = nil
	s.ExpandedWorks = slices.DeleteFunc(s.ExpandedWorks, func(c string) bool { return !exists(c) })
	if s.Selected != content.SectionPortfolio || !exists(s.ActiveWork) {
		s.ActiveWork = ""
	}
	s.Banner = nil
	s.Progress = 0
	s.deepLinkHandled = false
}

// ApplyDeepLink opens the work named in the URL, once per route. Codes are
// matched case-insensitively; unknown codes are ignored.
func (s *State) ApplyDeepLink(code string, ix content.Index, viewportWidth float64) (Effect, bool) {
	if s.deepLinkHandled || code == "" {
		return Effect{}, false
	}
	item, ok := ix.Lookup(code)
	if !ok {
		return Effect{}, false
	}
	s.deepLinkHandled = true
	eff := s.NavigatePortfolio(item.Code, ix, viewportWidth)
	if !s.WorkExpanded(item.Code) {
		s.ExpandedWorks = append(s.ExpandedWorks, item.Code)
	}
	return eff, true
}

// ToggleSidebar collapses or expands the desktop sidebar.
func (s *State) ToggleSidebar() { s.SidebarCollapsed = !s.SidebarCollapsed }

// ToggleMobileNav opens or closes the phone navigation drawer.
func (s *State) ToggleMobileNav() { s.MobileNavOpen = !s.MobileNavOpen }

// Geometry is one scroll or resize snapshot reported by the browser.
type Geometry struct {
	Viewport        Viewport      `json:"viewport"`
	MobileNavHeight float64       `json:"mobileNavHeight"`
	Sections        []SectionRect `json:"sections"`
	// Works lists rendered works in document order.
	Works []WorkRect `json:"works"`
}

// ObserveScroll applies a geometry snapshot. The section only changes when it
// differs from the previously observed one. Inside the portfolio the active
// work follows the scroll position and its category opens. The floating
// banner and progress bar are recomputed last.
func (s *State) ObserveScroll(g Geometry, ix content.Index, lang content.Lang) Change {
	var changed Change
	s.ViewportWidth = g.Viewport.Width
	offset := NavOffset(g.Viewport.Width, g.MobileNavHeight)

	if section := CurrentSection(g.Sections, g.Viewport, offset); section != s.lastSection {
		s.lastSection = section
		s.Selected = section
		changed |= ChangedSection
	}

	if s.Selected == content.SectionPortfolio {
		next := ""
		if w, ok := ActiveWork(g.Works, g.Viewport, offset); ok {
			next = w.Code
		}
		if next != s.ActiveWork {
			s.ActiveWork = next
			changed |= ChangedActive
			if category, ok := ix.CategoryOf(next); ok && s.ExpandCategory(category, false) {
				changed |= ChangedCategories
			}
		}
	} else if s.ActiveWork != "" {
		s.ActiveWork = ""
		changed |= ChangedActive
	}

	banner, progress := s.placeBanner(g, ix, lang, offset)
	if !s.Banner.Equal(banner) {
		s.Banner = banner
		changed |= ChangedBanner
	}
	if !nearlyEqual(progress, s.Progress) {
		changed |= ChangedBanner
	}
	s.Progress = progress
	return changed
}

func (s *State) placeBanner(g Geometry, ix content.Index, lang content.Lang, offset float64) (*Frame, float64) {
	if s.ActiveWork == "" || !s.WorkExpanded(s.ActiveWork) {
		return nil, 0
	}
	item, ok := ix.Item(s.ActiveWork)
	if !ok {
		return nil, 0
	}
	idx := slices.IndexFunc(g.Works, func(w WorkRect) bool { return w.Code == s.ActiveWork })
	if idx < 0 || g.Works[idx].Details == nil {
		return nil, 0
	}
	w := g.Works[idx]
	progress := Progress(w.Details.Top-g.Viewport.ScrollY, w.Details.Height, g.Viewport.Height)
	if w.Banner == nil {
		return nil, progress
	}
	frame, ok := ComputeBanner(BannerInput{
		Code:          w.Code,
		Title:         content.WorkTitle(lang, item),
		Viewport:      g.Viewport,
		NavOffset:     offset,
		SummaryBottom: w.SummaryBottom,
		DetailsBottom: w.Details.Bottom(),
		Anchor:        *w.Banner,
	})
	if !ok {
		return nil, progress
	}
	return &frame, progress
}
