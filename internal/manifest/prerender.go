package manifest

import (
	"fmt"
	"path/filepath"
	"sort"
	"strconv"

	"github.com/kiln-dev/kiln/internal/errors"
	"github.com/kiln-dev/kiln/pkg/routes"
)

// PrerenderManifestName is the prerender manifest's file name.
const PrerenderManifestName = "prerender-manifest.json"

// Revalidate is a prerendered path's revalidation window in seconds.
// RevalidateNever serializes as JSON false.
type Revalidate int64

// RevalidateNever disables revalidation for a path.
const RevalidateNever Revalidate = -1

func (r Revalidate) MarshalJSON() ([]byte, error) {
	if r < 0 {
		return []byte("false"), nil
	}
	return []byte(strconv.FormatInt(int64(r), 10)), nil
}

func (r *Revalidate) UnmarshalJSON(data []byte) error {
	if string(data) == "false" {
		*r = RevalidateNever
		return nil
	}
	n, err := strconv.ParseInt(string(data), 10, 64)
	if err != nil {
		return fmt.Errorf("revalidate must be a number of seconds or false: %w", err)
	}
	*r = Revalidate(n)
	return nil
}

// Fallback names a dynamic route's fallback template file. The empty value
// means fallback is disabled and serializes as JSON false.
type Fallback string

func (f Fallback) MarshalJSON() ([]byte, error) {
	if f == "" {
		return []byte("false"), nil
	}
	return []byte(strconv.Quote(string(f))), nil
}

func (f *Fallback) UnmarshalJSON(data []byte) error {
	if string(data) == "false" {
		*f = ""
		return nil
	}
	s, err := strconv.Unquote(string(data))
	if err != nil {
		return fmt.Errorf("fallback must be a file name or false: %w", err)
	}
	*f = Fallback(s)
	return nil
}

// PrerenderRoute is one concrete prerendered path.
type PrerenderRoute struct {
	// InitialRevalidateSeconds is the revalidation window the page's data
	// hook returned, verbatim.
	InitialRevalidateSeconds Revalidate `json:"initialRevalidateSeconds"`

	// SrcRoute names the dynamic page this path was enumerated from; nil
	// for paths rendered from their own page key.
	SrcRoute *string `json:"srcRoute"`

	// DataRoute is the path's JSON data endpoint.
	DataRoute string `json:"dataRoute"`
}

// PrerenderDynamicRoute is a dynamic SSG page: its matchers and fallback
// behavior for paths that were not enumerated at build time.
type PrerenderDynamicRoute struct {
	RouteRegex     string   `json:"routeRegex"`
	Fallback       Fallback `json:"fallback"`
	DataRoute      string   `json:"dataRoute"`
	DataRouteRegex string   `json:"dataRouteRegex"`
}

// PrerenderManifest records every prerendered path and dynamic SSG page.
// It is written on every build, even when both maps are empty.
type PrerenderManifest struct {
	Version       int                              `json:"version"`
	Routes        map[string]PrerenderRoute        `json:"routes"`
	DynamicRoutes map[string]PrerenderDynamicRoute `json:"dynamicRoutes"`
	Preview       PreviewCredentials               `json:"preview"`
}

// PrerenderInput is the state the prerender manifest derives from.
type PrerenderInput struct {
	// SSGPages are the pages that resolved data at build time.
	SSGPages []string

	// FallbackPages are the dynamic SSGPages with fallback enabled.
	FallbackPages map[string]bool

	// PrerenderRoutes enumerates each dynamic SSG page's concrete paths.
	PrerenderRoutes map[string][]string

	// Revalidate carries each exported path's revalidation window,
	// verbatim from the export stage. Paths without an entry never
	// revalidate.
	Revalidate map[string]int64

	// BuildID namespaces the data routes.
	BuildID string

	// Preview is this build's credential set.
	Preview PreviewCredentials
}

// BuildPrerenderManifest assembles the manifest from the classified sets
// and the export outcome.
func BuildPrerenderManifest(in PrerenderInput) (*PrerenderManifest, error) {
	m := &PrerenderManifest{
		Version:       1,
		Routes:        map[string]PrerenderRoute{},
		DynamicRoutes: map[string]PrerenderDynamicRoute{},
		Preview:       in.Preview,
	}

	revalidate := func(path string) Revalidate {
		if seconds, ok := in.Revalidate[path]; ok {
			return Revalidate(seconds)
		}
		return RevalidateNever
	}

	for _, page := range in.SSGPages {
		if !routes.IsDynamic(page) {
			m.Routes[page] = PrerenderRoute{
				InitialRevalidateSeconds: revalidate(page),
				SrcRoute:                 nil,
				DataRoute:                routes.DataRoutePath(page, in.BuildID),
			}
			continue
		}

		rr, err := routes.CompileRoute(page)
		if err != nil {
			return nil, err
		}
		dr, err := routes.CompileDataRoute(page, in.BuildID)
		if err != nil {
			return nil, err
		}

		var fallback Fallback
		if in.FallbackPages[page] {
			fallback = Fallback(page + ".html")
		}

		m.DynamicRoutes[page] = PrerenderDynamicRoute{
			RouteRegex:     rr.Pattern,
			Fallback:       fallback,
			DataRoute:      routes.DataRoutePath(page, in.BuildID),
			DataRouteRegex: dr.Pattern,
		}

		src := page
		for _, route := range in.PrerenderRoutes[page] {
			m.Routes[route] = PrerenderRoute{
				InitialRevalidateSeconds: revalidate(route),
				SrcRoute:                 &src,
				DataRoute:                routes.DataRoutePath(route, in.BuildID),
			}
		}
	}

	return m, nil
}

// Validate checks referential integrity: every route enumerated from a
// dynamic page must reference a dynamic route that is actually present.
func (m *PrerenderManifest) Validate() error {
	var orphans []string
	for path, route := range m.Routes {
		if route.SrcRoute == nil {
			continue
		}
		if _, ok := m.DynamicRoutes[*route.SrcRoute]; !ok {
			orphans = append(orphans, fmt.Sprintf("%s -> %s", path, *route.SrcRoute))
		}
	}
	if len(orphans) > 0 {
		sort.Strings(orphans)
		return errors.NewList("E241", "Routes referencing missing dynamic routes:", orphans)
	}
	return nil
}

// Write validates and serializes the manifest into the dist directory.
func (m *PrerenderManifest) Write(distDir string) error {
	if err := m.Validate(); err != nil {
		return err
	}
	return WriteJSON(filepath.Join(distDir, PrerenderManifestName), m)
}
