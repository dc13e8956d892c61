package routes

import (
	"fmt"
	"regexp"
	"strings"
)

// CompileRule compiles a user-declared rule into a RouteDescriptor. Rule
// matchers are anchored, case-insensitive and strict about trailing
// slashes: /old and /old/ are different sources.
func CompileRule(rule Rule) (*RouteDescriptor, error) {
	if rule.Source == "" || !strings.HasPrefix(rule.Source, "/") {
		return nil, fmt.Errorf("rule source %q must start with /", rule.Source)
	}

	rr, err := compilePattern(rule.Source)
	if err != nil {
		return nil, fmt.Errorf("rule source %q: %w", rule.Source, err)
	}

	pattern := "(?i)" + strings.TrimSuffix(rr.Pattern, optionalSlashSuffix)
	if strings.HasSuffix(rule.Source, "/") && rule.Source != "/" {
		pattern += "/"
	}
	pattern += "$"
	re, err := regexp.Compile(pattern)
	if err != nil {
		return nil, fmt.Errorf("rule source %q: %w", rule.Source, err)
	}

	desc := &RouteDescriptor{
		Type:        rule.Type,
		Source:      rule.Source,
		Destination: rule.Destination,
		Headers:     rule.Headers,
		Regex:       pattern,
		re:          re,
	}

	if rule.Type == RuleRedirect {
		desc.StatusCode = redirectStatus(rule)
	}

	return desc, nil
}

// CompileRules compiles every rule, preserving declaration order. The first
// failing rule aborts compilation; rules are configuration and a bad one is
// fatal.
func CompileRules(rules []Rule) ([]*RouteDescriptor, error) {
	descriptors := make([]*RouteDescriptor, 0, len(rules))
	for _, rule := range rules {
		desc, err := CompileRule(rule)
		if err != nil {
			return nil, err
		}
		descriptors = append(descriptors, desc)
	}
	return descriptors, nil
}

// redirectStatus resolves the status code for a redirect rule. An explicit
// StatusCode wins; Permanent selects 308 over the default 307.
func redirectStatus(rule Rule) int {
	if rule.StatusCode != 0 {
		return rule.StatusCode
	}
	if rule.Permanent {
		return StatusRedirectPermanent
	}
	return StatusRedirectTemporary
}
