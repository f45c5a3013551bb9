package content

import (
	"bytes"
	"html"
	"strings"

	"github.com/microcosm-cc/bluemonday"
	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/ast"
	"github.com/yuin/goldmark/text"
)

func firstNonBlank(values ...string) string {
	for _, v := range values {
		if s := strings.TrimSpace(v); s != "" {
			return s
		}
	}
	return ""
}

func collapseNewlines(s string) string {
	s = strings.ReplaceAll(s, "\r\n", "\n")
	return strings.TrimSpace(strings.ReplaceAll(s, "\n", " "))
}

// Localized picks en for English routes when it is not blank, else zh.
func Localized(lang Lang, en, zh string) string {
	if lang == LangEN && strings.TrimSpace(en) != "" {
		return en
	}
	return zh
}

// LocalizedList is Localized for string lists.
func LocalizedList(lang Lang, en, zh []string) []string {
	if lang == LangEN && len(en) > 0 {
		return en
	}
	return zh
}

// WorkTitle is the short title used in the sidebar and floating banner.
func WorkTitle(lang Lang, it Item) string {
	d := it.Detail
	if lang == LangEN {
		if t := firstNonBlank(d.TableNameEn, d.FullNameEn, d.TableName, d.FullName); t != "" {
			return t
		}
		return it.Name
	}
	if t := firstNonBlank(d.TableName, d.FullName); t != "" {
		return t
	}
	return it.Name
}

// WorkHeading is the full title shown above a work's details.
func WorkHeading(lang Lang, it Item) string {
	d := it.Detail
	if lang == LangEN {
		if t := firstNonBlank(d.FullNameEn, d.FullName); t != "" {
			return t
		}
	} else if t := firstNonBlank(d.FullName); t != "" {
		return t
	}
	return it.Name
}

// YearRange renders "begin – end", or whichever side is set.
func YearRange(d WorkDetail) string {
	start := strings.TrimSpace(d.YearBegin)
	end := strings.TrimSpace(d.YearEnd)
	if start != "" && end != "" && start != end {
		return start + " – " + end
	}
	return firstNonBlank(start, end)
}

// SplitLines splits content on newlines, trimming and dropping blank lines.
func SplitLines(content string) []string {
	var out []string
	for _, line := range strings.Split(strings.ReplaceAll(content, "\r", ""), "\n") {
		if line = strings.TrimSpace(line); line != "" {
			out = append(out, line)
		}
	}
	return out
}

var plainPolicy = bluemonday.StrictPolicy()

// StripHTML removes any markup from s and returns plain, unescaped text.
func StripHTML(s string) string {
	return strings.TrimSpace(html.UnescapeString(plainPolicy.Sanitize(s)))
}

var markdown = goldmark.New()

// PlainSummary returns the text of the first paragraph of a markdown body,
// markup removed and truncated to limit runes.
func PlainSummary(body string, limit int) string {
	src := []byte(body)
	doc := markdown.Parser().Parse(text.NewReader(src))

	var buf bytes.Buffer
	_ = ast.Walk(doc, func(n ast.Node, entering bool) (ast.WalkStatus, error) {
		if !entering {
			return ast.WalkContinue, nil
		}
		if n.Kind() != ast.KindParagraph {
			return ast.WalkContinue, nil
		}
		collectText(&buf, n, src)
		return ast.WalkStop, nil
	})
	summary := collapseNewlines(StripHTML(buf.String()))
	if limit > 0 {
		summary = truncateRunes(summary, limit)
	}
	return summary
}

func collectText(buf *bytes.Buffer, n ast.Node, src []byte) {
	for c := n.FirstChild(); c != nil; c = c.NextSibling() {
		switch t := c.(type) {
		case *ast.Text:
			buf.Write(t.Segment.Value(src))
			if t.SoftLineBreak() || t.HardLineBreak() {
				buf.WriteByte(' ')
			}
		case *ast.String:
			buf.Write(t.Value)
		default:
			collectText(buf, c, src)
		}
	}
}
