package content

import (
	"strings"

	"go.uber.org/zap"
)

const (
	// TrailingCategory always sorts last regardless of declared order.
	TrailingCategory = "其他作品專案"
	// FallbackCategory holds every known work when no route declares categories.
	FallbackCategory = "作品集"
)

// Item is one work placed in a category.
type Item struct {
	Code     string
	Name     string
	Category string
	Detail   WorkDetail
}

// Category is an ordered list of items with an index by code.
type Category struct {
	Name     string
	Items    []Item
	ItemsMap map[string]Item
}

// Index is the portfolio index of one route.
type Index struct {
	Categories []Category
	// Items is the flattened, de-duplicated item list in display order.
	Items []Item
	// Dropped lists codes skipped because an earlier category held them.
	Dropped []string
}

// CategoryOf returns the name of the category containing code.
func (ix Index) CategoryOf(code string) (string, bool) {
	for _, c := range ix.Categories {
		if _, ok := c.ItemsMap[code]; ok {
			return c.Name, true
		}
	}
	return "", false
}

// Item returns the item for code.
func (ix Index) Item(code string) (Item, bool) {
	for _, it := range ix.Items {
		if it.Code == code {
			return it, true
		}
	}
	return Item{}, false
}

// Lookup resolves a code case-insensitively against the index.
func (ix Index) Lookup(code string) (Item, bool) {
	code = strings.TrimSpace(code)
	for _, it := range ix.Items {
		if strings.EqualFold(it.Code, code) {
			return it, true
		}
	}
	return Item{}, false
}

// Builder builds category indexes against one snapshot's work tables.
type Builder struct {
	details map[string]WorkDetail
	names   map[string]string
	known   map[string]string
	codes   []string
	dropped []string
	logger  *zap.Logger
}

// NewBuilder prepares a Builder for snap.
func NewBuilder(snap *Snapshot, logger *zap.Logger) *Builder {
	if logger == nil {
		logger = zap.NewNop()
	}
	codes := snap.Codes()
	known := make(map[string]string, len(codes))
	for _, c := range codes {
		known[strings.ToLower(c)] = c
	}
	return &Builder{
		details: snap.Works,
		names:   snap.Names,
		known:   known,
		codes:   codes,
		logger:  logger,
	}
}

// DisplayName returns the index name of code: the derived portfolio map
// name, then the detail's table or full name, then the code.
func (b *Builder) DisplayName(code string) string {
	if name := strings.TrimSpace(b.names[code]); name != "" {
		return name
	}
	if d, ok := b.details[code]; ok {
		if name := firstNonBlank(d.TableName, d.FullName); name != "" {
			return collapseNewlines(name)
		}
	}
	return code
}

func (b *Builder) item(code, category string) Item {
	name := b.DisplayName(code)
	detail, ok := b.details[code]
	if !ok {
		detail = PlaceholderDetail(name)
	}
	return Item{Code: code, Name: name, Category: category, Detail: detail}
}

// Build resolves categories into items. Codes are matched case-insensitively
// against known codes; a code already placed in an earlier category is
// dropped. Empty categories are omitted and TrailingCategory moves last.
func (b *Builder) Build(source CategoryList) []Category {
	b.dropped = nil
	seen := map[string]struct{}{}
	out := make([]Category, 0, len(source))
	for _, cat := range source {
		items := make([]Item, 0, len(cat.Codes))
		for _, raw := range cat.Codes {
			trimmed := strings.TrimSpace(raw)
			if trimmed == "" {
				continue
			}
			code, ok := b.known[strings.ToLower(trimmed)]
			if !ok {
				code = trimmed
			}
			if _, dup := seen[code]; dup {
				b.logger.Debug("duplicate work code dropped",
					zap.String("code", code),
					zap.String("category", cat.Name),
				)
				b.dropped = append(b.dropped, code)
				continue
			}
			seen[code] = struct{}{}
			items = append(items, b.item(code, cat.Name))
		}
		if len(items) == 0 {
			continue
		}
		out = append(out, newCategory(cat.Name, items))
	}
	return moveTrailing(out)
}

// Index builds the route's portfolio index: the route's categories, else the
// default route's, else every known work in one FallbackCategory.
func (b *Builder) Index(entry, def RouteEntry) Index {
	cats := b.Build(entry.Categories)
	if len(cats) == 0 {
		cats = b.Build(def.Categories)
	}
	if len(cats) == 0 && len(b.codes) > 0 {
		items := make([]Item, 0, len(b.codes))
		for _, code := range b.codes {
			items = append(items, b.item(code, FallbackCategory))
		}
		cats = []Category{newCategory(FallbackCategory, items)}
	}
	return Index{Categories: cats, Items: flatten(cats), Dropped: b.dropped}
}

func newCategory(name string, items []Item) Category {
	m := make(map[string]Item, len(items))
	for _, it := range items {
		m[it.Code] = it
	}
	return Category{Name: name, Items: items, ItemsMap: m}
}

func moveTrailing(cats []Category) []Category {
	for i, c := range cats {
		if c.Name == TrailingCategory && i != len(cats)-1 {
			out := append(append([]Category{}, cats[:i]...), cats[i+1:]...)
			return append(out, c)
		}
	}
	return cats
}

func flatten(cats []Category) []Item {
	seen := map[string]struct{}{}
	var out []Item
	for _, c := range cats {
		for _, it := range c.Items {
			if _, ok := seen[it.Code]; ok {
				continue
			}
			seen[it.Code] = struct{}{}
			out = append(out, it)
		}
	}
	return out
}
