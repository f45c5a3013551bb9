// Package page holds the interactive page state of the portfolio site: the
// scroll-spy, the floating work banner and the expand/collapse bookkeeping.
// Everything here is pure computation over plain numeric geometry reported by
// the browser; rendering lives in the site package.
package page

import "math"

// MobileBreakpoint is the widest viewport treated as a phone layout.
const MobileBreakpoint = 768

// Rect is an element box. Top is in document coordinates (viewport top plus
// scroll offset); Left is in viewport coordinates.
type Rect struct {
	Top    float64 `json:"top"`
	Left   float64 `json:"left"`
	Width  float64 `json:"width"`
	Height float64 `json:"height"`
}

// Bottom returns the document coordinate of the box's lower edge.
func (r Rect) Bottom() float64 { return r.Top + r.Height }

// Viewport describes the browser window at one scroll position.
type Viewport struct {
	ScrollY float64 `json:"scrollY"`
	Width   float64 `json:"width"`
	Height  float64 `json:"height"`
}

// IsMobile reports whether width falls in the phone layout.
func IsMobile(width float64) bool {
	return width > 0 && width <= MobileBreakpoint
}

// NavOffset is the height covered by fixed navigation at the top of the
// viewport. Only the phone layout has a fixed nav bar.
func NavOffset(viewportWidth, mobileNavHeight float64) float64 {
	if !IsMobile(viewportWidth) || mobileNavHeight < 0 {
		return 0
	}
	return mobileNavHeight
}

// Progress returns how much of a details block has scrolled into view, as a
// percentage. detailsTop is relative to the viewport.
func Progress(detailsTop, detailsHeight, viewportHeight float64) float64 {
	if detailsHeight <= 0 {
		return 0
	}
	ratio := (viewportHeight - detailsTop) / detailsHeight
	return math.Max(0, math.Min(1, ratio)) * 100
}

func nearlyEqual(a, b float64) bool {
	return math.Abs(a-b) < 0.5
}
