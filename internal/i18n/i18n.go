package i18n

import (
	"embed"
	"encoding/json"
	"fmt"
	"io/fs"
	"path"

	"golang.org/x/text/language"
)

//go:embed locales/*.json
var embedded embed.FS

// Bundle holds UI strings per language.
type Bundle struct {
	dict     map[string]map[string]string
	fallback string
	order    []string
	matcher  language.Matcher
}

// Load reads <lang>.json for each supported language from dir in fsys. The
// fallback locale must exist; other missing locales are skipped.
func Load(fsys fs.FS, dir, fallback string, supported []string) (*Bundle, error) {
	if len(supported) == 0 {
		supported = []string{fallback}
	}
	b := &Bundle{
		dict:     map[string]map[string]string{},
		fallback: fallback,
	}
	// the fallback leads so the matcher defaults to it
	order := []string{fallback}
	for _, l := range supported {
		if l != fallback {
			order = append(order, l)
		}
	}

	tags := make([]language.Tag, 0, len(order))
	for _, l := range order {
		raw, err := fs.ReadFile(fsys, path.Join(dir, l+".json"))
		if err != nil {
			if l == fallback {
				return nil, fmt.Errorf("load locale %s: %w", l, err)
			}
			continue
		}
		var m map[string]string
		if err := json.Unmarshal(raw, &m); err != nil {
			return nil, fmt.Errorf("unmarshal %s: %w", l, err)
		}
		tag, err := language.Parse(l)
		if err != nil {
			return nil, fmt.Errorf("locale %s: %w", l, err)
		}
		b.dict[l] = m
		b.order = append(b.order, l)
		tags = append(tags, tag)
	}
	b.matcher = language.NewMatcher(tags)
	return b, nil
}

// Default returns the bundle of built-in zh and en strings.
func Default() *Bundle {
	b, err := Load(embedded, "locales", "zh", []string{"zh", "en"})
	if err != nil {
		panic(err)
	}
	return b
}

// Supported lists loaded languages, fallback first.
func (b *Bundle) Supported() []string {
	out := make([]string, len(b.order))
	copy(out, b.order)
	return out
}

// Fallback returns the configured fallback language.
func (b *Bundle) Fallback() string { return b.fallback }

// T returns translation for key in lang, falling back to default and finally key.
func (b *Bundle) T(lang, key string) string {
	if m, ok := b.dict[lang]; ok {
		if v, ok := m[key]; ok {
			return v
		}
	}
	if v, ok := b.dict[b.fallback][key]; ok {
		return v
	}
	return key
}

// Resolve chooses the best loaded language for an Accept-Language header.
func (b *Bundle) Resolve(acceptLang string) string {
	tags, _, err := language.ParseAcceptLanguage(acceptLang)
	if err != nil || len(tags) == 0 {
		return b.fallback
	}
	_, idx, conf := b.matcher.Match(tags...)
	if conf == language.No || idx < 0 || idx >= len(b.order) {
		return b.fallback
	}
	return b.order[idx]
}

// Translator binds a bundle to one language.
type Translator struct {
	bundle *Bundle
	lang   string
}

// For returns a Translator for lang.
func (b *Bundle) For(lang string) Translator {
	return Translator{bundle: b, lang: lang}
}

// T translates key.
func (t Translator) T(key string) string {
	if t.bundle == nil {
		return key
	}
	return t.bundle.T(t.lang, key)
}

// Lang returns the bound language.
func (t Translator) Lang() string { return t.lang }
