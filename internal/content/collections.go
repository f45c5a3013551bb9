package content

import "strings"

// NormaliseSkills trims names and drops untitled groups, unnamed categories,
// unnamed tools and anything left empty.
func NormaliseSkills(groups []SkillGroup) []SkillGroup {
	out := make([]SkillGroup, 0, len(groups))
	for _, g := range groups {
		title := strings.TrimSpace(g.Title)
		if title == "" {
			continue
		}
		var cats []SkillCategory
		for _, c := range g.Categories {
			name := strings.TrimSpace(c.Name)
			if name == "" {
				continue
			}
			var tools []SkillTool
			for _, tool := range c.Tools {
				toolName := strings.TrimSpace(tool.Name)
				if toolName == "" {
					continue
				}
				tools = append(tools, SkillTool{
					Name:        toolName,
					Description: strings.TrimSpace(tool.Description),
					Image:       strings.TrimSpace(tool.Image),
				})
			}
			if len(tools) == 0 {
				continue
			}
			cats = append(cats, SkillCategory{Name: name, Tools: tools})
		}
		if len(cats) == 0 {
			continue
		}
		out = append(out, SkillGroup{Title: title, Categories: cats})
	}
	return out
}

const untitledPublicationRunes = 100

// NormalisePublications trims fields, drops entries with neither title nor
// description and titles untitled entries from their description.
func NormalisePublications(groups []PublicationGroup) []PublicationGroup {
	out := make([]PublicationGroup, 0, len(groups))
	for _, g := range groups {
		title := strings.TrimSpace(g.Title)
		if title == "" {
			continue
		}
		var items []PublicationItem
		for _, it := range g.Items {
			itemTitle := strings.TrimSpace(it.Title)
			desc := strings.TrimSpace(it.Description)
			if itemTitle == "" && desc == "" {
				continue
			}
			if itemTitle == "" {
				itemTitle = truncateRunes(desc, untitledPublicationRunes)
			}
			related := make([]string, 0, len(it.RelatedWorks))
			for _, code := range it.RelatedWorks {
				if strings.TrimSpace(code) != "" {
					related = append(related, code)
				}
			}
			items = append(items, PublicationItem{
				Title:        itemTitle,
				Type:         strings.TrimSpace(it.Type),
				Description:  desc,
				Link:         strings.TrimSpace(it.Link),
				RelatedWorks: related,
			})
		}
		if len(items) == 0 {
			continue
		}
		out = append(out, PublicationGroup{Title: title, Items: items})
	}
	return out
}

func truncateRunes(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n])
}

// GroupExperience returns the entries visible for groups, grouped by type in
// typeOrder order. With no groups, entries flagged showDefault are visible;
// otherwise an entry is visible when it shares at least one group. Types
// missing from typeOrder follow in first-seen order.
func GroupExperience(data ExperienceDataset, groups []string) []ExperienceGroup {
	want := make(map[string]struct{}, len(groups))
	for _, g := range groups {
		want[g] = struct{}{}
	}

	byType := map[string][]ExperienceEntry{}
	var extra []string
	known := make(map[string]struct{}, len(data.TypeOrder))
	for _, t := range data.TypeOrder {
		known[t] = struct{}{}
	}

	for _, e := range data.Entries {
		if !experienceVisible(e, want) {
			continue
		}
		if _, ok := known[e.Type]; !ok {
			if _, seen := byType[e.Type]; !seen {
				extra = append(extra, e.Type)
			}
		}
		byType[e.Type] = append(byType[e.Type], e)
	}

	order := append(append([]string{}, data.TypeOrder...), extra...)
	out := make([]ExperienceGroup, 0, len(order))
	for _, t := range order {
		if items := byType[t]; len(items) > 0 {
			out = append(out, ExperienceGroup{Type: t, Items: items})
		}
	}
	return out
}

func experienceVisible(e ExperienceEntry, want map[string]struct{}) bool {
	if len(want) == 0 {
		return e.ShowDefault
	}
	for _, g := range e.ShowGroups {
		if _, ok := want[strings.TrimSpace(g)]; ok {
			return true
		}
	}
	return false
}
