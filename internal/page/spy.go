package page

import (
	"github.com/peienli0114/multi-route-portfolio-template/internal/content"
)

// activeWorkSlack lets a work become active slightly before its summary
// reaches the top edge.
const activeWorkSlack = 24

// SectionRect is the document top of one top-level section.
type SectionRect struct {
	Key content.ContentKey `json:"key"`
	Top float64            `json:"top"`
}

// WorkRect is the geometry of one rendered work. Details and Banner are only
// present while the work is expanded.
type WorkRect struct {
	Code          string  `json:"code"`
	Top           float64 `json:"top"`
	SummaryBottom float64 `json:"summaryBottom"`
	Details       *Rect   `json:"details,omitempty"`
	Banner        *Rect   `json:"banner,omitempty"`
}

// CurrentSection returns the last section, in home, cv, portfolio order,
// whose top is at or above a reference line a quarter of the way down the
// visible area. Missing sections are skipped; home is the default.
func CurrentSection(sections []SectionRect, vp Viewport, navOffset float64) content.ContentKey {
	tops := make(map[content.ContentKey]float64, len(sections))
	for _, s := range sections {
		tops[s.Key] = s.Top
	}
	reference := vp.ScrollY + navOffset + vp.Height*0.25
	current := content.SectionHome
	for _, key := range content.Sections {
		top, ok := tops[key]
		if !ok {
			continue
		}
		if reference >= top {
			current = key
		}
	}
	return current
}

// ActiveWork returns the last work, in document order, whose top has passed
// the navigation offset.
func ActiveWork(works []WorkRect, vp Viewport, navOffset float64) (WorkRect, bool) {
	threshold := vp.ScrollY + navOffset + activeWorkSlack
	var (
		active WorkRect
		found  bool
	)
	for _, w := range works {
		if w.Top <= threshold {
			active = w
			found = true
		}
	}
	return active, found
}
