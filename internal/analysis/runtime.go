package analysis

import (
	"context"
	"errors"
	"fmt"
)

// Request identifies one page to analyze.
type Request struct {
	// Page is the page path, e.g. /blog/[slug].
	Page string `json:"page"`

	// ServerBundle is the path to the page's compiled server bundle.
	ServerBundle string `json:"serverBundle"`

	// Env is the runtime environment the bundle is evaluated under.
	Env map[string]string `json:"env,omitempty"`
}

// PageAnalysis is the verdict for one page.
type PageAnalysis struct {
	// IsStatic marks a page with no data requirements at all.
	IsStatic bool `json:"isStatic"`

	// HasStaticProps marks a page that resolves its data at build time.
	HasStaticProps bool `json:"hasStaticProps"`

	// HasServerProps marks a page that resolves its data per request.
	HasServerProps bool `json:"hasServerProps"`

	// IsHybridAMP marks a page that renders an AMP variant next to the
	// standard one.
	IsHybridAMP bool `json:"isHybridAmp"`

	// IsAMPOnly marks a page that renders exclusively as AMP.
	IsAMPOnly bool `json:"isAmpOnly"`

	// PrerenderRoutes are the concrete paths a dynamic build-time page
	// enumerates for prerendering.
	PrerenderRoutes []string `json:"prerenderRoutes,omitempty"`

	// PrerenderFallback allows paths outside PrerenderRoutes to render
	// from the page's bundle on first request.
	PrerenderFallback bool `json:"prerenderFallback"`
}

// InvalidExportError reports a page whose default export is not a
// renderable component. It is the one recoverable analysis failure: the
// pipeline collects every such page and fails once with the full list.
type InvalidExportError struct {
	// Page is the offending page path.
	Page string
}

func (e *InvalidExportError) Error() string {
	return fmt.Sprintf("page %s does not export a component as its default export", e.Page)
}

// IsInvalidExport reports whether err marks a broken default export.
func IsInvalidExport(err error) bool {
	var ie *InvalidExportError
	return errors.As(err, &ie)
}

// Runtime evaluates server bundles in an isolated context. A Runtime is
// reused across requests but never shared between workers.
type Runtime interface {
	Analyze(ctx context.Context, req Request) (*PageAnalysis, error)
	Close() error
}

// RuntimeFactory builds one Runtime per pool worker.
type RuntimeFactory func() (Runtime, error)
