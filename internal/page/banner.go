package page

import (
	"fmt"
	"math"
	"strconv"
)

const (
	bannerMargin   = 16
	bannerMinWidth = 280
	// the banner starts floating a little before the summary leaves the view
	bannerLead = 40
	// the banner stops this far above the end of the details block
	bannerStopGap = 12
	// never stop before the summary plus this gap
	bannerMinStop = 8
)

// BannerInput is the geometry needed to place the floating banner of the
// active, expanded work.
type BannerInput struct {
	Code          string
	Title         string
	Viewport      Viewport
	NavOffset     float64
	SummaryBottom float64
	DetailsBottom float64
	// Anchor is the in-flow banner inside the details block.
	Anchor Rect
}

// Frame is a placed floating banner. Top is relative to the viewport.
type Frame struct {
	Code  string  `json:"code"`
	Title string  `json:"title"`
	Left  float64 `json:"left"`
	Width float64 `json:"width"`
	Top   float64 `json:"top"`
}

// Equal compares frames with a half-pixel tolerance on geometry.
func (f *Frame) Equal(other *Frame) bool {
	if f == nil || other == nil {
		return f == nil && other == nil
	}
	return f.Code == other.Code &&
		f.Title == other.Title &&
		nearlyEqual(f.Left, other.Left) &&
		nearlyEqual(f.Width, other.Width) &&
		nearlyEqual(f.Top, other.Top)
}

// Style renders the frame as inline CSS. Phone layouts span the full width.
func (f Frame) Style(viewportWidth float64) string {
	top := px(f.Top)
	if IsMobile(viewportWidth) {
		return fmt.Sprintf("top:%s;left:0;right:0;width:100%%", top)
	}
	return fmt.Sprintf("top:%s;left:%s;width:%s", top, px(f.Left), px(f.Width))
}

func px(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64) + "px"
}

// ShouldFloat reports whether the banner floats: the summary has scrolled
// past the offset but the end of the details block has not.
func ShouldFloat(in BannerInput) bool {
	floatingTop := in.Viewport.ScrollY + in.NavOffset
	stop := math.Max(in.DetailsBottom-in.Anchor.Height-bannerStopGap, in.SummaryBottom+bannerMinStop)
	return in.Viewport.ScrollY+in.NavOffset+bannerLead > in.SummaryBottom &&
		floatingTop <= stop &&
		floatingTop < in.DetailsBottom-bannerStopGap
}

// ComputeBanner places the floating banner, or reports false when it should
// not be shown.
func ComputeBanner(in BannerInput) (Frame, bool) {
	if !ShouldFloat(in) {
		return Frame{}, false
	}
	left, width := clampBanner(in.Anchor.Left, in.Anchor.Width, in.Viewport.Width)
	return Frame{
		Code:  in.Code,
		Title: in.Title,
		Left:  left,
		Width: width,
		Top:   in.NavOffset,
	}, true
}

// clampBanner keeps the banner inside the viewport with a margin on both
// sides. It shifts left before it shrinks, and shrinking stops at the minimum
// width unless the viewport itself is narrower.
func clampBanner(left, width, viewportWidth float64) (float64, float64) {
	if left < bannerMargin {
		delta := bannerMargin - left
		left = bannerMargin
		width = math.Max(width-delta, bannerMinWidth)
	}

	overflow := left + width + bannerMargin - viewportWidth
	if overflow > 0 {
		if shift := math.Min(overflow, left-bannerMargin); shift > 0 {
			left -= shift
			overflow -= shift
		}
		if overflow > 0 {
			width = math.Max(width-overflow, bannerMinWidth)
		}
	}

	available := viewportWidth - left - bannerMargin
	if available <= 0 {
		left = bannerMargin
		available = math.Max(viewportWidth-bannerMargin*2, 0)
	}
	return left, math.Min(width, available)
}
