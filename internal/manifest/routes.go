package manifest

import (
	"path/filepath"
	"sort"

	"github.com/kiln-dev/kiln/pkg/routes"
)

// RoutesManifestName is the file both snapshots serialize to.
const RoutesManifestName = "routes-manifest.json"

// DataRouteEntry maps a page's data endpoint to its matcher.
type DataRouteEntry struct {
	Page           string `json:"page"`
	DataRouteRegex string `json:"dataRouteRegex"`
}

// RoutesManifest is the runtime's routing table: user rules grouped by
// kind, dynamic page matchers in specificity order, and the data routes of
// pages that resolve data after the build.
type RoutesManifest struct {
	Version       int                        `json:"version"`
	Redirects     []*routes.RouteDescriptor  `json:"redirects"`
	Rewrites      []*routes.RouteDescriptor  `json:"rewrites"`
	Headers       []*routes.RouteDescriptor  `json:"headers"`
	DynamicRoutes []routes.DynamicRouteEntry `json:"dynamicRoutes"`
	DataRoutes    []DataRouteEntry           `json:"dataRoutes"`
}

// PrecompileSnapshot assembles the routes manifest that is written before
// compilation, so server bundles can already resolve rewrites. Rule order
// within each kind follows declaration order.
func PrecompileSnapshot(rules []*routes.RouteDescriptor, dynamicRoutes []routes.DynamicRouteEntry) *RoutesManifest {
	m := &RoutesManifest{
		Version:       1,
		Redirects:     []*routes.RouteDescriptor{},
		Rewrites:      []*routes.RouteDescriptor{},
		Headers:       []*routes.RouteDescriptor{},
		DynamicRoutes: dynamicRoutes,
		DataRoutes:    []DataRouteEntry{},
	}
	if m.DynamicRoutes == nil {
		m.DynamicRoutes = []routes.DynamicRouteEntry{}
	}

	for _, rule := range rules {
		switch rule.Type {
		case routes.RuleRedirect:
			m.Redirects = append(m.Redirects, rule)
		case routes.RuleRewrite:
			m.Rewrites = append(m.Rewrites, rule)
		case routes.RuleHeader:
			m.Headers = append(m.Headers, rule)
		}
	}
	return m
}

// FinalSnapshot extends the precompile snapshot with the data routes of
// every page that still resolves data after the build: literal pages
// first, sorted, then dynamic pages in specificity order. Writing it
// replaces the earlier snapshot.
func FinalSnapshot(pre *RoutesManifest, dataPages []string, buildID string) (*RoutesManifest, error) {
	var literal, dynamic []string
	for _, page := range dataPages {
		if routes.IsDynamic(page) {
			dynamic = append(dynamic, page)
		} else {
			literal = append(literal, page)
		}
	}
	sort.Strings(literal)
	routes.SortBySpecificity(dynamic)

	final := *pre
	final.DataRoutes = make([]DataRouteEntry, 0, len(dataPages))
	for _, page := range append(literal, dynamic...) {
		dr, err := routes.CompileDataRoute(page, buildID)
		if err != nil {
			return nil, err
		}
		final.DataRoutes = append(final.DataRoutes, DataRouteEntry{
			Page:           page,
			DataRouteRegex: dr.Pattern,
		})
	}
	return &final, nil
}

// Write serializes the manifest into the dist directory.
func (m *RoutesManifest) Write(distDir string) error {
	return WriteJSON(filepath.Join(distDir, RoutesManifestName), m)
}
