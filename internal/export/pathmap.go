package export

import (
	"github.com/kiln-dev/kiln/pkg/routes"
)

// Target is one output path to render.
type Target struct {
	// Page is the page whose server bundle renders the path.
	Page string `json:"page"`

	// AMP renders the AMP variant of a hybrid page.
	AMP bool `json:"amp,omitempty"`

	// Data marks paths with a JSON data companion.
	Data bool `json:"data,omitempty"`
}

// PathMap maps output paths to their render targets.
type PathMap map[string]Target

// Plan describes what the export stage has to render.
type Plan struct {
	// StaticPages render once with no data.
	StaticPages []string

	// SSGPages resolve their data at build time.
	SSGPages []string

	// FallbackPages are the dynamic SSGPages whose bundle is exported as a
	// fallback template for paths outside PrerenderRoutes.
	FallbackPages map[string]bool

	// PrerenderRoutes enumerates the concrete paths of each dynamic SSG
	// page.
	PrerenderRoutes map[string][]string

	// HybridAMPPages render an extra AMP variant per exported path.
	HybridAMPPages map[string]bool

	// Synthesize404 renders /404 from the framework error page.
	Synthesize404 bool
}

// BuildPathMap derives the full set of output paths from the plan. It is a
// pure function of its input.
//
// A dynamic SSG page appears under its own key only when its fallback is
// enabled; its enumerated routes appear regardless. Hybrid AMP targets add
// a .amp twin for every path they render.
func BuildPathMap(plan Plan) PathMap {
	pm := PathMap{}

	add := func(path, page string, data bool) {
		pm[path] = Target{Page: page, Data: data}
		if plan.HybridAMPPages[page] {
			pm[ampPath(path)] = Target{Page: page, AMP: true}
		}
	}

	for _, page := range plan.StaticPages {
		add(page, page, false)
	}

	for _, page := range plan.SSGPages {
		if routes.IsDynamic(page) {
			if plan.FallbackPages[page] {
				add(page, page, false)
			}
			for _, route := range plan.PrerenderRoutes[page] {
				add(route, page, true)
			}
			continue
		}
		add(page, page, true)
	}

	if plan.Synthesize404 {
		pm["/404"] = Target{Page: routes.PageError}
	}

	return pm
}

// ampPath is the output path of a page's AMP variant.
func ampPath(path string) string {
	if path == "/" {
		path = "/index"
	}
	return path + ".amp"
}

// outputFile is the flat file stem an exported path renders to, without
// extension.
func outputFile(path string) string {
	if path == "/" {
		return "/index"
	}
	return path
}
