package routes

import (
	"fmt"
	"regexp"
	"strings"
)

// DataPrefix is the URL prefix under which data endpoints are served.
// A page's JSON counterpart lives at DataPrefix/<buildID><page>.json.
const DataPrefix = "/_kiln/data"

// Reserved page paths that never become routable pages themselves.
const (
	PageApp      = "/_app"
	PageDocument = "/_document"
	PageError    = "/_error"
)

// Page404 is the optional user-defined not-found page. Unlike the
// reserved pages it is classified and exported like any other page,
// with the extra constraint that it must be statically renderable.
const Page404 = "/404"

// paramNameRe constrains parameter names to valid regex group names.
var paramNameRe = regexp.MustCompile(`^[a-zA-Z_][a-zA-Z0-9_]*$`)

// optionalSlashSuffix is the tail of every compiled route pattern. Data
// route derivation replaces it with a literal .json requirement.
const optionalSlashSuffix = `(?:/)?$`

// IsReserved reports whether the page path is one of the framework-owned
// pages (/_app, /_document, /_error) or an API route. Reserved pages are
// never analyzed or exported.
func IsReserved(page string) bool {
	switch page {
	case PageApp, PageDocument, PageError, "/api":
		return true
	}
	return strings.HasPrefix(page, "/api/")
}

// IsDynamic reports whether the page path contains a dynamic segment.
func IsDynamic(page string) bool {
	for _, seg := range splitSegments(page) {
		if strings.HasPrefix(seg, "[") && strings.HasSuffix(seg, "]") {
			return true
		}
	}
	return false
}

// CountDynamicSegments returns the number of dynamic segments in the page
// path. It is the primary sort key for route specificity.
func CountDynamicSegments(page string) int {
	n := 0
	for _, seg := range splitSegments(page) {
		if strings.HasPrefix(seg, "[") && strings.HasSuffix(seg, "]") {
			n++
		}
	}
	return n
}

// CompileRoute compiles a page path to its anchored matcher. The matcher
// tolerates a single trailing slash.
func CompileRoute(page string) (*RouteRegex, error) {
	return compilePattern(page)
}

// DataRoutePath returns the concrete data-endpoint path for a page.
func DataRoutePath(page, buildID string) string {
	if page == "/" {
		page = "/index"
	}
	return DataPrefix + "/" + buildID + page + ".json"
}

// CompileDataRoute compiles the data-endpoint matcher for a page. It is the
// route matcher for DataPrefix/<buildID><page> with the optional trailing
// slash replaced by a literal .json suffix, so the runtime can match data
// requests byte-for-byte.
func CompileDataRoute(page, buildID string) (*RouteRegex, error) {
	source := page
	if source == "/" {
		source = "/index"
	}
	rr, err := compilePattern(DataPrefix + "/" + buildID + source)
	if err != nil {
		return nil, fmt.Errorf("data route for %s: %w", page, err)
	}

	pattern := strings.TrimSuffix(rr.Pattern, optionalSlashSuffix) + `\.json$`
	re, err := regexp.Compile(pattern)
	if err != nil {
		return nil, fmt.Errorf("data route for %s: %w", page, err)
	}

	rr.Page = page
	rr.Pattern = pattern
	rr.re = re
	return rr, nil
}

// compilePattern turns a bracket-grammar path into an anchored regex with
// one named capture group per parameter.
func compilePattern(path string) (*RouteRegex, error) {
	if path == "/" {
		re := regexp.MustCompile(`^/(?:/)?$`)
		return &RouteRegex{Page: path, Pattern: re.String(), Groups: map[string]Group{}, re: re}, nil
	}

	groups := map[string]Group{}
	pos := 0
	var b strings.Builder
	b.WriteString("^")

	for _, seg := range splitSegments(path) {
		switch {
		case strings.HasPrefix(seg, "[[...") && strings.HasSuffix(seg, "]]"):
			name := seg[5 : len(seg)-2]
			if err := checkParamName(name, seg, groups); err != nil {
				return nil, err
			}
			pos++
			groups[name] = Group{Pos: pos, Repeat: true, Optional: true}
			b.WriteString(`(?:/(?P<` + name + `>.+?))?`)

		case strings.HasPrefix(seg, "[...") && strings.HasSuffix(seg, "]"):
			name := seg[4 : len(seg)-1]
			if err := checkParamName(name, seg, groups); err != nil {
				return nil, err
			}
			pos++
			groups[name] = Group{Pos: pos, Repeat: true}
			b.WriteString(`/(?P<` + name + `>.+?)`)

		case strings.HasPrefix(seg, "[") && strings.HasSuffix(seg, "]"):
			name := seg[1 : len(seg)-1]
			if err := checkParamName(name, seg, groups); err != nil {
				return nil, err
			}
			pos++
			groups[name] = Group{Pos: pos}
			b.WriteString(`/(?P<` + name + `>[^/]+?)`)

		case strings.ContainsAny(seg, "[]"):
			return nil, fmt.Errorf("segment %q mixes literal text and brackets", seg)

		default:
			b.WriteString("/" + regexp.QuoteMeta(seg))
		}
	}

	b.WriteString(optionalSlashSuffix)
	pattern := b.String()

	re, err := regexp.Compile(pattern)
	if err != nil {
		return nil, fmt.Errorf("pattern %q does not compile: %w", path, err)
	}

	return &RouteRegex{Page: path, Pattern: pattern, Groups: groups, re: re}, nil
}

func checkParamName(name, segment string, groups map[string]Group) error {
	if !paramNameRe.MatchString(name) {
		return fmt.Errorf("invalid parameter name in segment %q", segment)
	}
	if _, dup := groups[name]; dup {
		return fmt.Errorf("duplicate parameter %q", name)
	}
	return nil
}

// splitSegments splits a path into its segments, dropping empty ones.
func splitSegments(path string) []string {
	parts := strings.Split(strings.Trim(path, "/"), "/")
	segments := parts[:0]
	for _, p := range parts {
		if p != "" {
			segments = append(segments, p)
		}
	}
	return segments
}
