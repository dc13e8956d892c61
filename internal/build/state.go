package build

import (
	"encoding/base64"
	"sort"

	"github.com/google/uuid"

	"github.com/kiln-dev/kiln/internal/manifest"
	"github.com/kiln-dev/kiln/pkg/routes"
)

// PageInfo describes one discovered page and, after the compile stage,
// the bundles it produced.
type PageInfo struct {
	// Page is the page key, e.g. "/blog/[slug]".
	Page string

	// SourceFile is the source path relative to the pages directory.
	SourceFile string

	// ServerBundle is the absolute path of the compiled server bundle.
	ServerBundle string

	// ClientBundle is the absolute path of the compiled client bundle.
	// Empty for pages that compile to server code only.
	ClientBundle string

	// ClientSize is the client bundle size in bytes.
	ClientSize int64

	// ClientGzip is the gzipped client bundle size in bytes.
	ClientGzip int64
}

// BuildState carries everything the pipeline stages accumulate about a
// build. It is created once by the driver and threaded through each
// stage explicitly.
type BuildState struct {
	BuildID string
	Preview manifest.PreviewCredentials

	// Pages holds every discovered page in stable discovery order.
	Pages []PageInfo

	// AppHasDataHook is decided once, before classification fans out.
	// When true, pages whose only claim to prerendering is being
	// computation-free are served per request anyway.
	AppHasDataHook bool

	// HasCustomError reports whether the project defines its own /_error.
	HasCustomError bool

	StaticPages      map[string]bool
	SSGPages         map[string]bool
	SSGFallbackPages map[string]bool
	ServerPropsPages map[string]bool
	HybridAMPPages   map[string]bool
	InvalidPages     []string

	// PrerenderRoutes maps a dynamic SSG page to the concrete paths its
	// build-time enumeration produced.
	PrerenderRoutes map[string][]string

	// Revalidate maps an exported path to its revalidation interval,
	// captured verbatim from the export pass.
	Revalidate map[string]int64

	// UseStatic404 and Synthesized404 record the /404 decision made
	// before export.
	UseStatic404   bool
	Synthesized404 bool

	byPage map[string]int
}

// NewBuildState creates the state for one build run.
func NewBuildState(buildID string, preview manifest.PreviewCredentials, pages []PageInfo) *BuildState {
	s := &BuildState{
		BuildID:          buildID,
		Preview:          preview,
		Pages:            pages,
		StaticPages:      map[string]bool{},
		SSGPages:         map[string]bool{},
		SSGFallbackPages: map[string]bool{},
		ServerPropsPages: map[string]bool{},
		HybridAMPPages:   map[string]bool{},
		PrerenderRoutes:  map[string][]string{},
		Revalidate:       map[string]int64{},
		byPage:           make(map[string]int, len(pages)),
	}
	for i, p := range pages {
		s.byPage[p.Page] = i
	}
	s.HasCustomError = s.HasPage(routes.PageError)
	return s
}

// HasPage reports whether the project defines the given page key.
func (s *BuildState) HasPage(page string) bool {
	_, ok := s.byPage[page]
	return ok
}

// Page returns the info for a page key.
func (s *BuildState) Page(page string) (*PageInfo, bool) {
	i, ok := s.byPage[page]
	if !ok {
		return nil, false
	}
	return &s.Pages[i], true
}

// PageKeys returns every page key in discovery order.
func (s *BuildState) PageKeys() []string {
	keys := make([]string, len(s.Pages))
	for i, p := range s.Pages {
		keys[i] = p.Page
	}
	return keys
}

// EligiblePages returns the pages the classifier analyzes, in discovery
// order. Reserved keys never appear.
func (s *BuildState) EligiblePages() []PageInfo {
	eligible := make([]PageInfo, 0, len(s.Pages))
	for _, p := range s.Pages {
		if routes.IsReserved(p.Page) {
			continue
		}
		eligible = append(eligible, p)
	}
	return eligible
}

// SortedStaticPages returns the static set sorted lexicographically.
func (s *BuildState) SortedStaticPages() []string {
	return sortedKeys(s.StaticPages)
}

// SortedSSGPages returns the SSG set sorted lexicographically.
func (s *BuildState) SortedSSGPages() []string {
	return sortedKeys(s.SSGPages)
}

// SortedFallbackPages returns the fallback subset sorted lexicographically.
func (s *BuildState) SortedFallbackPages() []string {
	return sortedKeys(s.SSGFallbackPages)
}

// SortedHybridAMPPages returns the hybrid AMP set sorted lexicographically.
func (s *BuildState) SortedHybridAMPPages() []string {
	return sortedKeys(s.HybridAMPPages)
}

// DataPages returns the pages that answer data requests: every SSG and
// server-props page, sorted lexicographically.
func (s *BuildState) DataPages() []string {
	pages := make([]string, 0, len(s.SSGPages)+len(s.ServerPropsPages))
	for p := range s.SSGPages {
		pages = append(pages, p)
	}
	for p := range s.ServerPropsPages {
		pages = append(pages, p)
	}
	sort.Strings(pages)
	return pages
}

func sortedKeys(set map[string]bool) []string {
	keys := make([]string, 0, len(set))
	for k := range set {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// NewBuildID returns a fresh URL-safe build identifier.
func NewBuildID() string {
	id := uuid.New()
	return base64.RawURLEncoding.EncodeToString(id[:])
}
