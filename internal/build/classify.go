package build

import (
	"context"
	"sort"

	"golang.org/x/sync/errgroup"

	"github.com/kiln-dev/kiln/internal/analysis"
	"github.com/kiln-dev/kiln/internal/errors"
	"github.com/kiln-dev/kiln/pkg/routes"
)

// classifyOptions configures the classification stage.
type classifyOptions struct {
	// StaticDir is the client output directory. Pages that render
	// exclusively as AMP lose their client bundles there.
	StaticDir string

	// Env is handed to every analysis request.
	Env map[string]string
}

// classifyPages analyzes every eligible page and fills the state's
// classification sets. Submission is unbounded; the pool bounds real
// concurrency, and a single goroutine folds completions into the state
// so every set membership is written exactly once.
//
// Pages whose default export is invalid are collected and reported
// together after the stage settles; any other analysis failure aborts
// immediately.
func classifyPages(ctx context.Context, pool analysis.Pool, state *BuildState, opts classifyOptions) error {
	// The app decision gates how plain static pages classify, so it is
	// made once, before anything runs concurrently.
	if app, ok := state.Page(routes.PageApp); ok {
		res, err := pool.Submit(ctx, analysis.Request{
			Page:         app.Page,
			ServerBundle: app.ServerBundle,
			Env:          opts.Env,
		}).Await(ctx)
		if err != nil {
			return errors.FromError(err, "E200")
		}
		switch {
		case res.Err == nil:
			state.AppHasDataHook = !res.Analysis.IsStatic
		case analysis.IsInvalidExport(res.Err):
			state.InvalidPages = append(state.InvalidPages, res.Page)
		default:
			return analysisError(res.Err)
		}
	}

	fanCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	eligible := state.EligiblePages()
	results := make(chan analysis.Result)
	g, gctx := errgroup.WithContext(fanCtx)
	for _, page := range eligible {
		fut := pool.Submit(gctx, analysis.Request{
			Page:         page.Page,
			ServerBundle: page.ServerBundle,
			Env:          opts.Env,
		})
		g.Go(func() error {
			res, err := fut.Await(gctx)
			if err != nil {
				return err
			}
			select {
			case results <- res:
				return nil
			case <-gctx.Done():
				return gctx.Err()
			}
		})
	}
	go func() {
		g.Wait()
		close(results)
	}()

	var foldErr error
	analyses := make(map[string]*analysis.PageAnalysis, len(eligible))
	for res := range results {
		if foldErr != nil {
			continue
		}
		if foldErr = foldAnalysis(state, res, analyses, opts.StaticDir); foldErr != nil {
			cancel()
		}
	}
	waitErr := g.Wait()

	if foldErr != nil {
		return foldErr
	}
	if waitErr != nil {
		return errors.FromError(waitErr, "E200")
	}

	if len(state.InvalidPages) > 0 {
		sort.Strings(state.InvalidPages)
		items := make([]string, len(state.InvalidPages))
		for i, p := range state.InvalidPages {
			items[i] = "pages" + p
		}
		return errors.NewList("E201", "Found pages without a valid component export:", items)
	}

	return check404(state, analyses)
}

// foldAnalysis records one completed analysis in the state. It runs on
// the aggregator goroutine only.
func foldAnalysis(state *BuildState, res analysis.Result, analyses map[string]*analysis.PageAnalysis, staticDir string) error {
	if res.Err != nil {
		if analysis.IsInvalidExport(res.Err) {
			state.InvalidPages = append(state.InvalidPages, res.Page)
			return nil
		}
		return analysisError(res.Err)
	}

	a := res.Analysis
	analyses[res.Page] = a

	switch {
	case a.HasStaticProps:
		state.SSGPages[res.Page] = true
		if len(a.PrerenderRoutes) > 0 {
			state.PrerenderRoutes[res.Page] = append([]string(nil), a.PrerenderRoutes...)
		}
		if a.PrerenderFallback && routes.IsDynamic(res.Page) {
			state.SSGFallbackPages[res.Page] = true
		}
	case a.HasServerProps:
		state.ServerPropsPages[res.Page] = true
	case a.IsStatic && !state.AppHasDataHook:
		state.StaticPages[res.Page] = true
	}

	if a.IsHybridAMP {
		state.HybridAMPPages[res.Page] = true
	}
	if a.IsAMPOnly {
		if err := analysis.RemoveClientBundles(staticDir, state.BuildID, res.Page); err != nil {
			return errors.FromError(err, "E200")
		}
		if info, ok := state.Page(res.Page); ok {
			info.ClientBundle = ""
			info.ClientSize = 0
			info.ClientGzip = 0
		}
	}
	return nil
}

// check404 enforces that a custom /404 can be served without a
// request-time compute path.
func check404(state *BuildState, analyses map[string]*analysis.PageAnalysis) error {
	if !state.HasPage(routes.Page404) {
		return nil
	}
	if state.StaticPages[routes.Page404] || state.SSGPages[routes.Page404] {
		return nil
	}
	if a := analyses[routes.Page404]; a != nil && a.IsStatic && state.AppHasDataHook {
		// The page itself is hook-less; only the app-level hook keeps it
		// out of the static set.
		return nil
	}
	return errors.New("E213").
		WithDetail("pages/404 cannot be prerendered.").
		WithSuggestion("Fetch the page's data at build time, or remove its per-request hooks")
}

func analysisError(err error) error {
	if err == analysis.ErrPoolClosed {
		return errors.FromError(err, "E202")
	}
	return errors.FromError(err, "E200")
}
