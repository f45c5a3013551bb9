// Package cvdate parses the loosely formatted dates used in CV entries
// ("2021/03", "2021年3月", "Mar 2021", "25/03", "Present") and renders
// normalised dates, ranges and durations.
package cvdate

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"golang.org/x/text/width"
)

// Present is the rendered form of an ongoing end date.
const Present = "Present"

// Parts is a parsed date. Month is 0 when the input carries only a year.
type Parts struct {
	Year  int
	Month int
}

// HasMonth reports whether a month was recognised.
func (p Parts) HasMonth() bool { return p.Month != 0 }

// Options tunes the parser.
type Options struct {
	// AmbiguousYears treats a lone two-digit number in [10,30] as a year
	// ("21" → 2021). Day-of-month tokens in that range are misread when
	// enabled, so inputs should prefer explicit separators.
	AmbiguousYears bool
}

// Parser parses CV dates with fixed Options.
type Parser struct {
	opts Options
}

// NewParser returns a Parser using opts.
func NewParser(opts Options) Parser { return Parser{opts: opts} }

// Default keeps the lone-number heuristic enabled for existing content.
var Default = NewParser(Options{AmbiguousYears: true})

var monthNames = map[string]int{
	"jan": 1, "january": 1,
	"feb": 2, "february": 2,
	"mar": 3, "march": 3,
	"apr": 4, "april": 4,
	"may": 5,
	"jun": 6, "june": 6,
	"jul": 7, "july": 7,
	"aug": 8, "august": 8,
	"sep": 9, "sept": 9, "september": 9,
	"oct": 10, "october": 10,
	"nov": 11, "november": 11,
	"dec": 12, "december": 12,
}

var separators = strings.NewReplacer("年", "/", "月", "", ".", "/", "-", "/")

type numToken struct {
	raw   string
	value int
}

// ParseDateParts parses raw with the Default parser.
func ParseDateParts(raw string) (Parts, bool) { return Default.Parse(raw) }

// Parse extracts a year and optional month from raw. It returns false when no
// year can be recognised.
func (p Parser) Parse(raw string) (Parts, bool) {
	trimmed := strings.TrimSpace(width.Fold.String(raw))
	if trimmed == "" {
		return Parts{}, false
	}
	tokens := strings.FieldsFunc(separators.Replace(trimmed), func(r rune) bool {
		return r == '/' || r == ' ' || r == '\t' || r == '\n' || r == ',' || r == '　'
	})
	if len(tokens) == 0 {
		return Parts{}, false
	}

	month := 0
	var nums []numToken
	for _, tok := range tokens {
		if m, ok := monthNames[strings.ToLower(tok)]; ok {
			if month == 0 {
				month = m
			}
			continue
		}
		if v, err := strconv.Atoi(tok); err == nil && v >= 0 {
			nums = append(nums, numToken{raw: tok, value: v})
		}
	}

	yearIdx := -1
	for i, n := range nums {
		if len(n.raw) >= 3 || n.value >= 100 {
			yearIdx = i
			break
		}
	}
	if yearIdx < 0 && len(nums) > 0 {
		twoDigit := len(nums[0].raw) == 2
		switch {
		case len(nums) >= 2 && twoDigit:
			// explicit "YY/MM" form
			yearIdx = 0
		case month != 0 && twoDigit:
			// "Mar 21": the month is spelled out, so the number is the year
			yearIdx = 0
		case p.opts.AmbiguousYears && nums[0].value >= 10 && nums[0].value <= 30:
			yearIdx = 0
		}
	}
	if yearIdx < 0 {
		return Parts{}, false
	}

	if month == 0 {
		for i, n := range nums {
			if i == yearIdx {
				continue
			}
			if n.value >= 1 && n.value <= 12 {
				month = n.value
				break
			}
		}
	}
	return Parts{Year: normaliseYear(nums[yearIdx].value), Month: month}, true
}

func normaliseYear(v int) int {
	if v >= 0 && v < 100 {
		if v >= 50 {
			return 1900 + v
		}
		return 2000 + v
	}
	return v
}

// IsPresent reports whether value spells "present" in any case.
func IsPresent(value string) bool {
	return strings.EqualFold(strings.TrimSpace(value), "present")
}

// FormatDate renders value as "YYYY" or "YYYY/MM". Unparseable input is
// returned trimmed; blank input renders as "".
func FormatDate(value string) string {
	trimmed := strings.TrimSpace(value)
	if trimmed == "" {
		return ""
	}
	if IsPresent(trimmed) {
		return Present
	}
	parts, ok := ParseDateParts(trimmed)
	if !ok {
		return trimmed
	}
	if parts.HasMonth() {
		return fmt.Sprintf("%d/%02d", parts.Year, parts.Month)
	}
	return strconv.Itoa(parts.Year)
}

// FormatRange renders "begin – end". A begin without end is open-ended.
func FormatRange(begin, end string) string {
	b := FormatDate(begin)
	e := FormatDate(end)

	switch {
	case b != "" && e != "" && e != Present:
		if b == e {
			return b
		}
		return b + " – " + e
	case b != "":
		if e == "" {
			e = Present
		}
		return b + " – " + e
	default:
		return e
	}
}

// ComputeDuration returns the span between begin and end as "MMm" or
// "{y}y{MM}m". An empty, unparseable or "present" end is measured up to now.
// It returns false when begin is unparseable or end precedes begin.
func ComputeDuration(begin, end string, now time.Time) (string, bool) {
	start, ok := ParseDateParts(begin)
	if !ok {
		return "", false
	}
	startMonth := start.Month
	if startMonth == 0 {
		startMonth = 1
	}

	endYear, endMonth := now.Year(), int(now.Month())
	if trimmed := strings.TrimSpace(end); trimmed != "" && !IsPresent(trimmed) {
		if parsed, ok := ParseDateParts(trimmed); ok {
			endYear = parsed.Year
			endMonth = parsed.Month
			if endMonth == 0 {
				endMonth = 12
			}
		}
	}

	diff := (endYear*12 + endMonth - 1) - (start.Year*12 + startMonth - 1)
	if diff < 0 {
		return "", false
	}
	years, months := diff/12, diff%12
	if years == 0 {
		return fmt.Sprintf("%02dm", months), true
	}
	return fmt.Sprintf("%dy%02dm", years, months), true
}
