package routes

import "regexp"

// RuleType identifies the kind of a user-declared routing rule.
type RuleType string

const (
	RuleRedirect RuleType = "redirect"
	RuleRewrite  RuleType = "rewrite"
	RuleHeader   RuleType = "header"
)

// Redirect status codes resolved from rule metadata.
const (
	StatusRedirectTemporary = 307
	StatusRedirectPermanent = 308
)

// Header is a single response header attached by a header rule.
type Header struct {
	Key   string `json:"key"`
	Value string `json:"value"`
}

// Rule is a user-declared redirect, rewrite or header rule before
// compilation. Source uses the same bracket grammar as page paths.
type Rule struct {
	// Type is the rule kind.
	Type RuleType

	// Source is the path pattern the rule matches.
	Source string

	// Destination is the target path (redirects and rewrites).
	Destination string

	// Permanent selects a 308 redirect instead of 307.
	Permanent bool

	// StatusCode overrides the redirect status code entirely.
	StatusCode int

	// Headers are the response headers attached by a header rule.
	Headers []Header
}

// RouteDescriptor is a compiled rule: the source pattern plus its anchored,
// case-insensitive matcher. Built once from user configuration; read-only
// thereafter.
type RouteDescriptor struct {
	// Type is the rule kind.
	Type RuleType `json:"-"`

	// Source is the original path pattern.
	Source string `json:"source"`

	// Destination is the target path, if the rule has one.
	Destination string `json:"destination,omitempty"`

	// StatusCode is the resolved redirect status code.
	StatusCode int `json:"statusCode,omitempty"`

	// Headers are the attached response headers, if the rule has any.
	Headers []Header `json:"headers,omitempty"`

	// Regex is the serialized matcher persisted in the routes manifest.
	Regex string `json:"regex"`

	re *regexp.Regexp
}

// Matches reports whether the descriptor's matcher accepts the path.
func (d *RouteDescriptor) Matches(path string) bool {
	return d.re.MatchString(path)
}

// Group describes one captured parameter of a compiled route.
type Group struct {
	// Pos is the 1-based capture group position.
	Pos int

	// Repeat marks a catch-all parameter spanning multiple segments.
	Repeat bool

	// Optional marks a parameter that may be absent entirely.
	Optional bool
}

// RouteRegex is a compiled page-path matcher.
type RouteRegex struct {
	// Page is the page path the matcher was compiled from.
	Page string

	// Pattern is the serialized regex persisted in manifests.
	Pattern string

	// Groups maps parameter names to their capture metadata.
	Groups map[string]Group

	re *regexp.Regexp
}

// MatchString reports whether the path matches the route.
func (r *RouteRegex) MatchString(path string) bool {
	return r.re.MatchString(path)
}

// Params extracts the named parameter values from a matching path.
// The second return is false when the path does not match.
func (r *RouteRegex) Params(path string) (map[string]string, bool) {
	match := r.re.FindStringSubmatch(path)
	if match == nil {
		return nil, false
	}
	params := make(map[string]string, len(r.Groups))
	for name, group := range r.Groups {
		if group.Pos < len(match) {
			params[name] = match[group.Pos]
		}
	}
	return params, true
}

// DynamicRouteEntry pairs a dynamic page with its compiled path matcher and
// the matcher for its data endpoint. The runtime matches entries first-wins,
// so slices of entries are always in specificity order.
type DynamicRouteEntry struct {
	// Page is the dynamic page path.
	Page string `json:"page"`

	// Regex matches request paths for the page.
	Regex string `json:"regex"`

	// DataRouteRegex matches data-endpoint requests for the page.
	DataRouteRegex string `json:"dataRouteRegex"`
}
