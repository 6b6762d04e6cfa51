// Package resolver turns persisted route rows into a ready-to-run plan.Detail,
// and caches the result keyed on (method, normalized path).
package resolver

import (
	"regexp"
	"strconv"
	"strings"

	"github.com/agaheman/ReqRepTransformation/reqrep/msgctx"
)

// RouteEntry is one persisted route row: a method-and-path-prefix match
// bound to a single catalog transform.
type RouteEntry struct {
	Method         string // exact HTTP method, or "*" for any method
	Path           string // exact path prefix
	TransformerKey string // catalog key, e.g. "add-header"
	Side           msgctx.Side
	Order          int
	ParamsJSON     string // opaque JSON object; empty/"null" means "no params"
}

// RouteSource supplies the full set of route rows known to the host. A
// typical implementation wraps a database table or a config file; this
// package only depends on the interface, not on any storage technology.
type RouteSource interface {
	Routes() ([]RouteEntry, error)
}

var (
	uuidPattern = regexp.MustCompile(`^[0-9a-fA-F]{8}-[0-9a-fA-F]{4}-[0-9a-fA-F]{4}-[0-9a-fA-F]{4}-[0-9a-fA-F]{12}$`)
)

// normalizePath rewrites any segment that parses as an integer or a UUID to
// the literal "{id}", producing the cache-key form of a path.
func normalizePath(path string) string {
	segments := strings.Split(path, "/")
	for i, seg := range segments {
		if seg == "" {
			continue
		}
		if _, err := strconv.ParseInt(seg, 10, 64); err == nil {
			segments[i] = "{id}"
			continue
		}
		if uuidPattern.MatchString(seg) {
			segments[i] = "{id}"
		}
	}
	return strings.Join(segments, "/")
}

// CacheKey builds the plan-cache key for one (method, path) pair.
func CacheKey(method, path string) string {
	return strings.ToUpper(method) + ":" + normalizePath(path)
}

// matchRows selects the rows that apply to one (method, path) request. A
// route is identified by its path prefix: every row sharing that prefix
// (and side/order/transformer-key) contributes one entry to the resolved
// plan. Exact method matches at the longest matching prefix win outright;
// the "*" wildcard method is only consulted when no exact-method row
// matches any prefix of the path at all.
func matchRows(rows []RouteEntry, method, path string) []RouteEntry {
	method = strings.ToUpper(method)

	if matched := longestPrefixMatch(rows, path, func(r RouteEntry) bool {
		return strings.EqualFold(r.Method, method)
	}); len(matched) > 0 {
		return matched
	}

	return longestPrefixMatch(rows, path, func(r RouteEntry) bool {
		return r.Method == "*"
	})
}

// longestPrefixMatch returns every row satisfying methodMatches whose Path
// is a prefix of path, restricted to the rows sharing the single longest
// such Path.
func longestPrefixMatch(rows []RouteEntry, path string, methodMatches func(RouteEntry) bool) []RouteEntry {
	bestLen := -1
	var bestPath string
	for _, r := range rows {
		if !methodMatches(r) || !strings.HasPrefix(path, r.Path) {
			continue
		}
		if len(r.Path) > bestLen {
			bestLen = len(r.Path)
			bestPath = r.Path
		}
	}
	if bestLen < 0 {
		return nil
	}

	var matched []RouteEntry
	for _, r := range rows {
		if methodMatches(r) && r.Path == bestPath {
			matched = append(matched, r)
		}
	}
	return matched
}
