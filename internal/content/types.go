package content

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"
)

// ContentKey names a top-level page section.
type ContentKey string

const (
	SectionHome      ContentKey = "home"
	SectionCV        ContentKey = "cv"
	SectionPortfolio ContentKey = "portfolio"
)

// Sections lists the page sections in document order.
var Sections = []ContentKey{SectionHome, SectionCV, SectionPortfolio}

// ParseContentKey validates a section name.
func ParseContentKey(value string) (ContentKey, bool) {
	switch ContentKey(strings.ToLower(strings.TrimSpace(value))) {
	case SectionHome:
		return SectionHome, true
	case SectionCV:
		return SectionCV, true
	case SectionPortfolio:
		return SectionPortfolio, true
	}
	return "", false
}

// Lang is the display language of a route.
type Lang string

const (
	LangZH Lang = "zh"
	LangEN Lang = "en"
)

// WorkLink is an external link attached to a work.
type WorkLink struct {
	Name string `json:"name,omitempty"`
	Link string `json:"link,omitempty"`
}

// CoWorker credits a collaborator.
type CoWorker struct {
	Name string `json:"name,omitempty"`
	Work string `json:"work,omitempty"`
	Link string `json:"link,omitempty"`
}

// WorkDetail is the content of one portfolio work, keyed by its code.
type WorkDetail struct {
	FullName  string     `json:"fullName,omitempty"`
	H2Name    string     `json:"h2Name,omitempty"`
	TableName string     `json:"tableName,omitempty"`
	YearBegin string     `json:"yearBegin,omitempty"`
	YearEnd   string     `json:"yearEnd,omitempty"`
	Intro     string     `json:"intro,omitempty"`
	IntroList []string   `json:"introList,omitempty"`
	HeadPic   string     `json:"headPic,omitempty"`
	Tags      []string   `json:"tags,omitempty"`
	Links     []WorkLink `json:"links,omitempty"`
	CoWorkers []CoWorker `json:"coWorkers,omitempty"`
	Content   string     `json:"content,omitempty"`

	FullNameEn  string   `json:"fullNameEn,omitempty"`
	H2NameEn    string   `json:"h2NameEn,omitempty"`
	TableNameEn string   `json:"tableNameEn,omitempty"`
	IntroEn     string   `json:"introEn,omitempty"`
	IntroListEn []string `json:"introListEn,omitempty"`
	TagsEn      []string `json:"tagsEn,omitempty"`
}

// PlaceholderDetail is rendered for codes without a detail record.
func PlaceholderDetail(name string) WorkDetail {
	return WorkDetail{FullName: name, TableName: name}
}

// BlobConfig is a decorative label on the home page. Positions are CSS
// percentages relative to the blob container.
type BlobConfig struct {
	ID           string   `json:"id"`
	Label        string   `json:"label"`
	Size         string   `json:"size"`
	X            string   `json:"x"`
	Y            string   `json:"y"`
	Width        string   `json:"width,omitempty"`
	Color        string   `json:"color,omitempty"`
	AnimDuration *float64 `json:"animDuration,omitempty"`
	AnimDelay    *float64 `json:"animDelay,omitempty"`
}

// Lines splits the label on newlines.
func (b BlobConfig) Lines() []string { return strings.Split(b.Label, "\n") }

// TextList accepts either a JSON string or a list of strings.
type TextList []string

func (t *TextList) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) == 0 || bytes.Equal(data, []byte("null")) {
		*t = nil
		return nil
	}
	if data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*t = TextList{s}
		return nil
	}
	var list []string
	if err := json.Unmarshal(data, &list); err != nil {
		return err
	}
	*t = list
	return nil
}

// HomeConfig is the optional home section of a route.
type HomeConfig struct {
	Badge string       `json:"badge,omitempty"`
	Title string       `json:"title,omitempty"`
	Intro TextList     `json:"intro,omitempty"`
	Blobs []BlobConfig `json:"blobs,omitempty"`
}

// FooterConfig is the optional footer section of a route.
type FooterConfig struct {
	Title   string `json:"title,omitempty"`
	Message string `json:"message,omitempty"`
	Email   string `json:"email,omitempty"`
}

// CVRoute is either an asset key string or an object with asset, link and
// visible experience groups.
type CVRoute struct {
	Asset      string   `json:"asset,omitempty"`
	Link       string   `json:"link,omitempty"`
	ShowGroups []string `json:"showGroups,omitempty"`
	// ShowTypes is the legacy name of ShowGroups.
	ShowTypes []string `json:"showTypes,omitempty"`
	// hasGroups distinguishes an absent list from an empty one.
	hasGroups bool
}

func (c *CVRoute) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) == 0 || bytes.Equal(data, []byte("null")) {
		*c = CVRoute{}
		return nil
	}
	if data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*c = CVRoute{Asset: s}
		return nil
	}
	type plain CVRoute
	var p plain
	if err := json.Unmarshal(data, &p); err != nil {
		return fmt.Errorf("cv route: %w", err)
	}
	*c = CVRoute(p)
	c.hasGroups = p.ShowGroups != nil || p.ShowTypes != nil
	return nil
}

// Groups returns the configured groups, preferring showGroups.
func (c CVRoute) Groups() ([]string, bool) {
	if c.ShowGroups != nil {
		return c.ShowGroups, true
	}
	if c.ShowTypes != nil {
		return c.ShowTypes, true
	}
	return nil, c.hasGroups
}

// CategoryCodes is one named category in declaration order.
type CategoryCodes struct {
	Name  string
	Codes []string
}

// CategoryList decodes a JSON object of category → codes preserving key order.
type CategoryList []CategoryCodes

func (l *CategoryList) UnmarshalJSON(data []byte) error {
	dec := json.NewDecoder(bytes.NewReader(data))
	tok, err := dec.Token()
	if err != nil {
		return err
	}
	if tok == nil {
		*l = nil
		return nil
	}
	if delim, ok := tok.(json.Delim); !ok || delim != '{' {
		return fmt.Errorf("categories: expected object, got %v", tok)
	}
	out := CategoryList{}
	for dec.More() {
		keyTok, err := dec.Token()
		if err != nil {
			return err
		}
		name, _ := keyTok.(string)
		var raw json.RawMessage
		if err := dec.Decode(&raw); err != nil {
			return fmt.Errorf("categories %q: %w", name, err)
		}
		var codes []string
		if err := json.Unmarshal(raw, &codes); err != nil {
			// non-array values are skipped
			continue
		}
		out = append(out, CategoryCodes{Name: name, Codes: codes})
	}
	*l = out
	return nil
}

func (l CategoryList) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, c := range l {
		if i > 0 {
			buf.WriteByte(',')
		}
		key, err := json.Marshal(c.Name)
		if err != nil {
			return nil, err
		}
		codes := c.Codes
		if codes == nil {
			codes = []string{}
		}
		val, err := json.Marshal(codes)
		if err != nil {
			return nil, err
		}
		buf.Write(key)
		buf.WriteByte(':')
		buf.Write(val)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

// SkillTool is a single tool within a skill category.
type SkillTool struct {
	Name        string `json:"name"`
	Description string `json:"description,omitempty"`
	Image       string `json:"image,omitempty"`
}

// SkillCategory groups tools.
type SkillCategory struct {
	Name  string      `json:"name"`
	Tools []SkillTool `json:"tools"`
}

// SkillGroup is a titled set of skill categories.
type SkillGroup struct {
	Title      string          `json:"title"`
	Categories []SkillCategory `json:"categories"`
}

// RouteEntry is a named profile. Any field may be omitted, in which case the
// default route's value is used.
type RouteEntry struct {
	SiteTitle      string        `json:"siteTitle,omitempty"`
	SidebarTitle   string        `json:"sidebarTitle,omitempty"`
	SiteTitleEn    string        `json:"siteTitleEn,omitempty"`
	SidebarTitleEn string        `json:"sidebarTitleEn,omitempty"`
	Lang           Lang          `json:"lang,omitempty"`
	CV             *CVRoute      `json:"cv,omitempty"`
	Categories     CategoryList  `json:"categories,omitempty"`
	Home           *HomeConfig   `json:"home,omitempty"`
	Blobs          []BlobConfig  `json:"blobs,omitempty"`
	Footer         *FooterConfig `json:"footer,omitempty"`
	CVSummary      []TextList    `json:"cvSummary,omitempty"`
	Skills         []SkillGroup  `json:"skills,omitempty"`
}

// ExperienceEntry is one CV timeline entry.
type ExperienceEntry struct {
	Type         string   `json:"type"`
	Organisation string   `json:"organisation"`
	Role         string   `json:"role"`
	Begin        string   `json:"begin"`
	End          string   `json:"end"`
	Description  string   `json:"description"`
	RelatedWorks []string `json:"relatedWorks"`
	ShowDefault  bool     `json:"showDefault"`
	ShowGroups   []string `json:"showGroups"`
	Tags         []string `json:"tags,omitempty"`
}

// ExperienceDataset is the experience.json document.
type ExperienceDataset struct {
	TypeOrder []string          `json:"typeOrder"`
	Entries   []ExperienceEntry `json:"entries"`
}

// ExperienceGroup is the entries of one type in typeOrder order.
type ExperienceGroup struct {
	Type  string
	Items []ExperienceEntry
}

// PublicationItem is one publication entry.
type PublicationItem struct {
	Title        string   `json:"title"`
	Type         string   `json:"type"`
	Description  string   `json:"description"`
	Link         string   `json:"link,omitempty"`
	RelatedWorks []string `json:"relatedWorks"`
}

// PublicationGroup is a titled list of publications.
type PublicationGroup struct {
	Title string            `json:"title"`
	Items []PublicationItem `json:"items"`
}
