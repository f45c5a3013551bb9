package route

import "strings"

// DefaultKey is the route key used when the URL carries no route segment.
const DefaultKey = "default"

// Info is the route selection derived from a URL.
type Info struct {
	RouteKey string
	// WorkCode is the deep-linked work, empty when the URL names none.
	WorkCode string
}

// HasWork reports whether the URL deep-links to a work.
func (i Info) HasWork() bool { return i.WorkCode != "" }

// Parse resolves the route from a URL hash and path. A hash with at least one
// segment wins; otherwise the path is used after stripping publicPrefix.
func Parse(hash, path, publicPrefix string) Info {
	if segs := segments(strings.TrimPrefix(hash, "#")); len(segs) > 0 {
		return fromSegments(segs)
	}
	if publicPrefix != "" {
		path = strings.Replace(path, publicPrefix, "", 1)
	}
	return fromSegments(segments(path))
}

// FromPath is Parse without a hash.
func FromPath(path, publicPrefix string) Info {
	return Parse("", path, publicPrefix)
}

func fromSegments(segs []string) Info {
	info := Info{RouteKey: DefaultKey}
	if len(segs) > 0 {
		info.RouteKey = strings.ToLower(segs[0])
	}
	if len(segs) > 1 {
		info.WorkCode = strings.ToLower(segs[1])
	}
	return info
}

func segments(value string) []string {
	value = strings.TrimPrefix(value, "#")
	value = strings.Trim(value, "/")
	if value == "" {
		return nil
	}
	parts := strings.Split(value, "/")
	out := parts[:0]
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}

// Path builds the canonical site path for a route and optional work.
func Path(publicPrefix, routeKey, workCode string) string {
	prefix := strings.TrimRight(publicPrefix, "/")
	if routeKey == "" || routeKey == DefaultKey {
		if workCode == "" {
			return prefix + "/"
		}
		routeKey = DefaultKey
	}
	p := prefix + "/" + routeKey
	if workCode != "" {
		p += "/" + workCode
	}
	return p
}
