package content

import (
	"regexp"
	"strings"

	"go.uber.org/zap"
)

// Literal fallbacks used when neither the route nor the default route sets a value.
const (
	FallbackSiteTitle    = "Portfolio"
	FallbackSidebarTitle = "YOUR NAME"
)

// DefaultBlobs decorate the home page when no route configures blobs.
var DefaultBlobs = []BlobConfig{
	{ID: "blob-1", Label: "User\nExperience\nResearch", Size: "large", X: "25%", Y: "10%", Width: "40%", Color: "#fd9225", AnimDuration: seconds(7), AnimDelay: seconds(0)},
	{ID: "blob-2", Label: "Data\nAnalysis", Size: "large", X: "5%", Y: "40%", Width: "40%", Color: "#44acaf", AnimDuration: seconds(8), AnimDelay: seconds(1)},
	{ID: "blob-3", Label: "Design\nDevelopment", Size: "large", X: "40%", Y: "45%", Width: "40%", Color: "#ff6b6b", AnimDuration: seconds(6), AnimDelay: seconds(2)},
	{ID: "blob-4", Label: "Behavior\n&\nNeeds\nAnalysis", Size: "small", X: "15%", Y: "15%", AnimDuration: seconds(9), AnimDelay: seconds(0.5)},
	{ID: "blob-5", Label: "Interactive\nDesign", Size: "small", X: "65%", Y: "25%", AnimDuration: seconds(7.5), AnimDelay: seconds(1.5)},
	{ID: "blob-6", Label: "Visualization\nDashboard", Size: "small", X: "35%", Y: "50%", AnimDuration: seconds(8.5), AnimDelay: seconds(2.5)},
	{ID: "blob-7", Label: "Industrial\nDesign", Size: "small", X: "75%", Y: "40%", AnimDuration: seconds(6.5), AnimDelay: seconds(1.2)},
	{ID: "blob-8", Label: "Modeling\n&\nPrediction", Size: "small", X: "5%", Y: "30%", AnimDuration: seconds(7), AnimDelay: seconds(0.8)},
	{ID: "blob-9", Label: "AI\nApplication", Size: "small", X: "30%", Y: "75%", AnimDuration: seconds(8), AnimDelay: seconds(1.8)},
}

func seconds(v float64) *float64 { return &v }

// FallbackHome is the template home content.
var FallbackHome = HomeContent{
	Badge: "Portfolio Template",
	Title: "Design × Research × Development",
	Intro: []string{
		"Hello! Welcome to this portfolio template. Replace this text in portfolioRoutes.json with your own introduction.",
		"This template supports multiple route configurations, bilingual content (Chinese/English), and customizable project categories.",
	},
	Blobs: DefaultBlobs,
}

// FallbackFooter is the template footer content.
var FallbackFooter = FooterContent{
	Title:   "Your Name",
	Message: "Thank you for reading. Feel free to reach out!",
	Email:   "your.email@example.com",
}

// HomeContent is the resolved home section.
type HomeContent struct {
	Badge string
	Title string
	Intro []string
	Blobs []BlobConfig
}

// FooterContent is the resolved footer.
type FooterContent struct {
	Title   string
	Message string
	Email   string
}

// CVSettings is the resolved CV configuration of a route.
type CVSettings struct {
	DownloadURL string
	Link        string
	// Groups filters visible experience entries; nil shows default entries.
	Groups []string
}

// Profile is the fully merged render model of a route.
type Profile struct {
	RouteKey     string
	Known        bool
	Lang         Lang
	SiteTitle    string
	SidebarTitle string
	Home         HomeContent
	Footer       FooterContent
	CV           CVSettings
	CVSummary    [][]string
	RouteSkills  []SkillGroup
	Skills       []SkillGroup
	Experience   []ExperienceGroup
	Publications []PublicationGroup
	Index        Index
}

// Resolve merges the route's entry with the default route. Unknown route keys
// resolve to an empty entry and therefore inherit everything from default.
func Resolve(snap *Snapshot, routeKey string, logger *zap.Logger) Profile {
	if snap == nil {
		snap = &Snapshot{}
	}
	def := snap.Default()
	entry, known := snap.Routes[routeKey]

	lang := Lang(firstNonBlank(string(entry.Lang), string(def.Lang)))
	if lang != LangEN {
		lang = LangZH
	}

	p := Profile{
		RouteKey: routeKey,
		Known:    known,
		Lang:     lang,
	}

	if lang == LangEN {
		p.SiteTitle = firstNonBlank(entry.SiteTitleEn, entry.SiteTitle, def.SiteTitleEn, def.SiteTitle, FallbackSiteTitle)
		p.SidebarTitle = firstNonBlank(entry.SidebarTitleEn, entry.SidebarTitle, def.SidebarTitleEn, def.SidebarTitle, FallbackSidebarTitle)
	} else {
		p.SiteTitle = firstNonBlank(entry.SiteTitle, def.SiteTitle, FallbackSiteTitle)
		p.SidebarTitle = firstNonBlank(entry.SidebarTitle, def.SidebarTitle, FallbackSidebarTitle)
	}

	defaultHome := normaliseHome(def.Home, FallbackHome, def.Blobs)
	p.Home = normaliseHome(entry.Home, defaultHome, entry.Blobs)
	p.Footer = normaliseFooter(entry.Footer, normaliseFooter(def.Footer, FallbackFooter))
	p.CV = resolveCV(entry.CV, def.CV, snap.CVAssets)

	summary := entry.CVSummary
	if summary == nil {
		summary = def.CVSummary
	}
	for _, block := range summary {
		p.CVSummary = append(p.CVSummary, []string(block))
	}

	routeSkills := entry.Skills
	if len(routeSkills) == 0 {
		routeSkills = def.Skills
	}
	if len(routeSkills) > 0 {
		p.RouteSkills = routeSkills
		p.Skills = NormaliseSkills(routeSkills)
	} else {
		p.Skills = snap.Skills
	}
	p.Experience = GroupExperience(snap.Experience, p.CV.Groups)
	p.Publications = snap.Publications
	p.Index = NewBuilder(snap, logger).Index(entry, def)
	return p
}

var introSplit = regexp.MustCompile(`\n+`)

func normaliseIntro(values TextList) []string {
	var source []string
	if len(values) == 1 {
		source = introSplit.Split(values[0], -1)
	} else {
		source = values
	}
	var out []string
	for _, v := range source {
		v = strings.TrimSpace(strings.ReplaceAll(v, "\r", ""))
		if v != "" {
			out = append(out, v)
		}
	}
	return out
}

func normaliseHome(cfg *HomeConfig, fallback HomeContent, routeBlobs []BlobConfig) HomeContent {
	var c HomeConfig
	if cfg != nil {
		c = *cfg
	}
	out := HomeContent{
		Badge: firstNonBlank(c.Badge, fallback.Badge),
		Title: firstNonBlank(c.Title, fallback.Title),
		Intro: normaliseIntro(c.Intro),
	}
	if len(out.Intro) == 0 {
		out.Intro = fallback.Intro
	}
	switch {
	case len(c.Blobs) > 0:
		out.Blobs = c.Blobs
	case len(routeBlobs) > 0:
		out.Blobs = routeBlobs
	default:
		out.Blobs = fallback.Blobs
	}
	return out
}

func normaliseFooter(cfg *FooterConfig, fallback FooterContent) FooterContent {
	var c FooterConfig
	if cfg != nil {
		c = *cfg
	}
	return FooterContent{
		Title:   firstNonBlank(c.Title, fallback.Title),
		Message: firstNonBlank(c.Message, fallback.Message),
		Email:   firstNonBlank(c.Email, fallback.Email),
	}
}

func resolveCV(current, def *CVRoute, assets map[string]string) CVSettings {
	var cur, d CVRoute
	if current != nil {
		cur = *current
	}
	if def != nil {
		d = *def
	}

	var out CVSettings
	if key := firstNonBlank(cur.Asset, d.Asset); key != "" {
		out.DownloadURL = assets[key]
	}
	out.Link = firstNonBlank(cur.Link, d.Link)

	if groups := cleanGroups(cur); groups != nil {
		out.Groups = groups
	} else {
		out.Groups = cleanGroups(d)
	}
	return out
}

// cleanGroups trims and de-duplicates the route's groups, preserving order.
// It returns nil when no usable group remains.
func cleanGroups(c CVRoute) []string {
	raw, _ := c.Groups()
	seen := map[string]struct{}{}
	var out []string
	for _, g := range raw {
		g = strings.TrimSpace(g)
		if g == "" {
			continue
		}
		if _, ok := seen[g]; ok {
			continue
		}
		seen[g] = struct{}{}
		out = append(out, g)
	}
	return out
}
