package build

import (
	"context"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"golang.org/x/sync/errgroup"

	"github.com/kiln-dev/kiln/internal/analysis"
	"github.com/kiln-dev/kiln/internal/bundler"
	"github.com/kiln-dev/kiln/internal/config"
	"github.com/kiln-dev/kiln/internal/errors"
	"github.com/kiln-dev/kiln/internal/export"
	"github.com/kiln-dev/kiln/internal/manifest"
	"github.com/kiln-dev/kiln/pkg/routes"
)

// Default collaborator executables. The bundler compiles page sources,
// the analyzer evaluates server bundles, the renderer materializes
// prerendered pages. All three are replaceable through Options.
const (
	defaultBundlerCommand  = "kiln-bundler"
	defaultAnalyzerCommand = "kiln-analyze"
	defaultRendererCommand = "kiln-render"
)

// PageKind labels how a page will be served.
type PageKind string

const (
	KindStatic      PageKind = "static"
	KindSSG         PageKind = "ssg"
	KindServerProps PageKind = "server-props"
	KindServer      PageKind = "server"
)

// PageSummary describes one page in the build result.
type PageSummary struct {
	Page       string
	Kind       PageKind
	ClientSize int64
	ClientGzip int64
}

// Result contains the build output.
type Result struct {
	// Duration is how long the build took.
	Duration time.Duration

	// BuildID identifies this build's output.
	BuildID string

	// Pages summarizes every routable page.
	Pages []PageSummary

	// ExportedPaths are the paths the export stage materialized.
	ExportedPaths []string

	// Warnings are bundler diagnostics that did not fail the build.
	Warnings []string

	// UseStatic404 reports whether /404 is answered from prerendered HTML.
	UseStatic404 bool

	// ClientSize is the combined size of the client bundles.
	ClientSize int64

	// ClientGzipSize is the combined gzipped size of the client bundles.
	ClientGzipSize int64
}

// Options configures the builder.
type Options struct {
	// Bundler compiles page sources into bundles. Defaults to spawning
	// the kiln-bundler executable.
	Bundler bundler.Bundler

	// RuntimeFactory creates the isolated runtimes pages are analyzed
	// in. Defaults to spawning kiln-analyze processes.
	RuntimeFactory analysis.RuntimeFactory

	// Exporter materializes prerendered pages. Defaults to spawning the
	// kiln-render executable.
	Exporter export.Exporter

	// Registry receives the pipeline metrics. Defaults to the global
	// Prometheus registerer.
	Registry prometheus.Registerer

	// OnProgress is called with progress updates.
	OnProgress func(step string)
}

// Builder runs the production build pipeline.
type Builder struct {
	config  *config.Config
	options Options
	tracker *stageTracker
}

// New creates a new builder.
func New(cfg *config.Config, options Options) *Builder {
	if options.Bundler == nil {
		options.Bundler = &bundler.ExecBundler{Command: defaultBundlerCommand}
	}
	if options.RuntimeFactory == nil {
		options.RuntimeFactory = analysis.ExecRuntimeFactory(defaultAnalyzerCommand)
	}
	if options.Exporter == nil {
		options.Exporter = &export.ExecExporter{Command: defaultRendererCommand}
	}

	return &Builder{
		config:  cfg,
		options: options,
		tracker: &stageTracker{
			tracer:     otel.Tracer(tracerName),
			metrics:    getMetrics(options.Registry),
			onProgress: options.OnProgress,
		},
	}
}

// Build performs a production build.
func (b *Builder) Build(ctx context.Context) (_ *Result, err error) {
	start := time.Now()
	defer func() {
		if err != nil {
			b.tracker.metrics.buildsTotal.WithLabelValues("failure").Inc()
		}
	}()

	distDir := b.config.DistPath()
	serverDir := b.config.ServerPath()
	staticDir := b.config.StaticPath()

	b.progress("Preparing output directory...")
	if err := prepareOutputDir(distDir); err != nil {
		return nil, err
	}

	env, err := b.config.RuntimeEnv()
	if err != nil {
		return nil, errors.New("E120").Wrap(err)
	}

	preview, err := manifest.NewPreviewCredentials()
	if err != nil {
		return nil, errors.New("E142").Wrap(err)
	}

	b.progress("Collecting pages...")
	pages, err := DiscoverPages(b.config.PagesPath(), b.config.Build.PageExtensions)
	if err != nil {
		return nil, err
	}
	state := NewBuildState(NewBuildID(), preview, pages)
	result := &Result{BuildID: state.BuildID}

	pageAttrs := []attribute.KeyValue{attribute.Int("kiln.pages", len(pages))}

	var pre *manifest.RoutesManifest
	err = b.tracker.run(ctx, "routes", "Compiling routes...", pageAttrs, func(ctx context.Context) error {
		var rerr error
		pre, rerr = b.compileRoutes(state, distDir)
		return rerr
	})
	if err != nil {
		return nil, err
	}

	err = b.tracker.run(ctx, "compile", "Compiling pages...", pageAttrs, func(ctx context.Context) error {
		warnings, cerr := b.compile(ctx, state, env, serverDir, staticDir)
		result.Warnings = warnings
		return cerr
	})
	if err != nil {
		return nil, err
	}

	err = b.tracker.run(ctx, "scan", "", pageAttrs, func(ctx context.Context) error {
		if serr := ScanOutput(state.Pages, serverDir, staticDir, state.BuildID); serr != nil {
			return serr
		}
		return manifest.BuildPagesManifest(state.PageKeys()).Write(serverDir)
	})
	if err != nil {
		return nil, err
	}

	err = b.tracker.run(ctx, "analyze", "Analyzing pages...", pageAttrs, func(ctx context.Context) error {
		return b.analyze(ctx, state, staticDir, env)
	})
	if err != nil {
		return nil, err
	}
	b.tracker.metrics.recordOutcomes(state)

	static404 := state.StaticPages[routes.Page404] || state.SSGPages[routes.Page404]
	state.UseStatic404 = manifest.UseStatic404(state.AppHasDataHook, state.HasCustomError, static404)
	state.Synthesized404 = state.UseStatic404 && !state.HasPage(routes.Page404)
	result.UseStatic404 = state.UseStatic404

	var exportedPaths []string
	var exportSkipped bool
	err = b.tracker.run(ctx, "export", "Exporting prerendered pages...", []attribute.KeyValue{
		attribute.Int("kiln.static_pages", len(state.StaticPages)),
		attribute.Int("kiln.ssg_pages", len(state.SSGPages)),
	}, func(ctx context.Context) error {
		outcome, xerr := export.Run(ctx, b.options.Exporter, export.Plan{
			StaticPages:     state.SortedStaticPages(),
			SSGPages:        state.SortedSSGPages(),
			FallbackPages:   state.SSGFallbackPages,
			PrerenderRoutes: state.PrerenderRoutes,
			HybridAMPPages:  state.HybridAMPPages,
			Synthesize404:   state.Synthesized404,
		}, export.Dirs{
			Project:     b.config.Dir(),
			Scratch:     b.config.ScratchPath(),
			PagesOut:    filepath.Join(serverDir, "static", state.BuildID, "pages"),
			ServerPages: filepath.Join(serverDir, "pages"),
			BuildID:     state.BuildID,
		})
		if xerr != nil {
			return xerr
		}
		state.Revalidate = outcome.Revalidate
		exportedPaths = outcome.Paths
		exportSkipped = outcome.Skipped
		result.ExportedPaths = outcome.Paths
		b.tracker.metrics.exportedPaths.Add(float64(len(outcome.Paths)))
		return nil
	})
	if err != nil {
		return nil, err
	}

	err = b.tracker.run(ctx, "manifests", "Writing manifests...", nil, func(ctx context.Context) error {
		return b.writeManifests(state, pre, exportedPaths, exportSkipped, distDir, serverDir, staticDir)
	})
	if err != nil {
		return nil, err
	}

	result.Pages = summarize(state)
	for _, p := range result.Pages {
		result.ClientSize += p.ClientSize
		result.ClientGzipSize += p.ClientGzip
	}
	result.Duration = time.Since(start)
	b.tracker.metrics.buildsTotal.WithLabelValues("success").Inc()

	return result, nil
}

// compileRoutes turns the page set and the user rules into matchers,
// rejects pages shadowed by public files and persists the first routes
// manifest snapshot so server bundles compile against the rewrites.
func (b *Builder) compileRoutes(state *BuildState, distDir string) (*manifest.RoutesManifest, error) {
	rules, err := routes.CompileRules(ruleSet(b.config.Routes))
	if err != nil {
		return nil, errors.FromError(err, "E102")
	}

	publicFiles, err := listPublicFiles(b.config.PublicPath())
	if err != nil {
		return nil, errors.New("E142").WithDetail(b.config.PublicPath()).Wrap(err)
	}
	if err := routes.CheckPublicConflicts(state.PageKeys(), publicFiles); err != nil {
		return nil, errors.FromError(err, "E100")
	}

	dynamicRoutes, err := routes.CompileDynamicRoutes(state.PageKeys(), state.BuildID)
	if err != nil {
		return nil, errors.FromError(err, "E101")
	}

	pre := manifest.PrecompileSnapshot(rules, dynamicRoutes)
	if err := pre.Write(distDir); err != nil {
		return nil, err
	}
	return pre, nil
}

// compile runs the client and server bundler passes. They run
// concurrently except under the isolated target, where the server pass
// starts only after a clean client pass.
func (b *Builder) compile(ctx context.Context, state *BuildState, env map[string]string, serverDir, staticDir string) ([]string, error) {
	sources := make(map[string]string, len(state.Pages))
	for _, p := range state.Pages {
		sources[p.Page] = p.SourceFile
	}

	pass := func(ctx context.Context, kind bundler.Kind, outDir string) (*bundler.Result, error) {
		res, err := b.options.Bundler.Compile(ctx, bundler.Config{
			Kind:       kind,
			ProjectDir: b.config.Dir(),
			OutputDir:  outDir,
			BuildID:    state.BuildID,
			Pages:      sources,
			Env:        env,
			Modern:     b.config.Build.Modern,
		})
		if err != nil {
			return nil, err
		}
		if rerr := bundler.ResultError(kind, res); rerr != nil {
			return nil, rerr
		}
		return res, nil
	}

	var client, server *bundler.Result
	if b.config.Build.Target == config.TargetIsolated {
		// The server pass starts only after a clean client pass.
		var err error
		if client, err = pass(ctx, bundler.KindClient, staticDir); err != nil {
			return nil, err
		}
		if server, err = pass(ctx, bundler.KindServer, serverDir); err != nil {
			return nil, err
		}
	} else {
		g, gctx := errgroup.WithContext(ctx)
		g.Go(func() error {
			res, err := pass(gctx, bundler.KindClient, staticDir)
			client = res
			return err
		})
		g.Go(func() error {
			res, err := pass(gctx, bundler.KindServer, serverDir)
			server = res
			return err
		})
		if err := g.Wait(); err != nil {
			return nil, err
		}
	}

	warnings := append([]string(nil), client.Warnings...)
	warnings = append(warnings, server.Warnings...)
	return warnings, nil
}

// analyze classifies every page through a fresh worker pool. The pool is
// always closed before the error, if any, propagates.
func (b *Builder) analyze(ctx context.Context, state *BuildState, staticDir string, env map[string]string) error {
	pool, err := analysis.NewPool(b.config.Build.Workers, b.options.RuntimeFactory)
	if err != nil {
		return errors.FromError(err, "E200")
	}

	cerr := classifyPages(ctx, pool, state, classifyOptions{StaticDir: staticDir, Env: env})
	if err := pool.Close(); err != nil && cerr == nil {
		cerr = errors.FromError(err, "E200")
	}
	return cerr
}

// writeManifests persists every end-of-build manifest.
func (b *Builder) writeManifests(state *BuildState, pre *manifest.RoutesManifest, exportedPaths []string, exportSkipped bool, distDir, serverDir, staticDir string) error {
	final, err := manifest.FinalSnapshot(pre, state.DataPages(), state.BuildID)
	if err != nil {
		return err
	}
	if err := final.Write(distDir); err != nil {
		return err
	}

	prerender, err := manifest.BuildPrerenderManifest(manifest.PrerenderInput{
		SSGPages:        state.SortedSSGPages(),
		FallbackPages:   state.SSGFallbackPages,
		PrerenderRoutes: state.PrerenderRoutes,
		Revalidate:      state.Revalidate,
		BuildID:         state.BuildID,
		Preview:         state.Preview,
	})
	if err != nil {
		return err
	}
	if err := prerender.Write(distDir); err != nil {
		return err
	}

	pm := manifest.BuildPagesManifest(state.PageKeys())
	htmlPages := state.SortedStaticPages()
	if state.Synthesized404 {
		htmlPages = append(htmlPages, routes.Page404)
	}
	pm.PointAtHTML(htmlPages, state.BuildID)
	if err := pm.Write(serverDir); err != nil {
		return err
	}

	if err := manifest.WriteSSGManifest(staticDir, state.BuildID, manifest.SSGPageSet(prerender)); err != nil {
		return err
	}

	if err := manifest.WriteBuildID(distDir, state.BuildID); err != nil {
		return err
	}
	return manifest.WriteExportMarker(distDir, manifest.ExportMarker{
		Version:       1,
		BuildID:       state.BuildID,
		ExportedPaths: len(exportedPaths),
		Skipped:       exportSkipped,
		Static404:     state.UseStatic404,
	})
}

// summarize reduces the state to the per-page summary the CLI renders.
// Framework pages stay out of it; API routes show up as server code.
func summarize(state *BuildState) []PageSummary {
	out := make([]PageSummary, 0, len(state.Pages))
	for _, p := range state.Pages {
		if isFrameworkPage(p.Page) {
			continue
		}
		kind := KindServer
		switch {
		case state.StaticPages[p.Page]:
			kind = KindStatic
		case state.SSGPages[p.Page]:
			kind = KindSSG
		case state.ServerPropsPages[p.Page]:
			kind = KindServerProps
		}
		out = append(out, PageSummary{
			Page:       p.Page,
			Kind:       kind,
			ClientSize: p.ClientSize,
			ClientGzip: p.ClientGzip,
		})
	}
	return out
}

func isFrameworkPage(page string) bool {
	switch page {
	case routes.PageApp, routes.PageDocument, routes.PageError:
		return true
	}
	return false
}

// prepareOutputDir resets the output directory and proves it writable.
func prepareOutputDir(distDir string) error {
	if err := os.RemoveAll(distDir); err != nil {
		return errors.New("E123").WithDetail(distDir).Wrap(err)
	}
	if err := os.MkdirAll(distDir, 0755); err != nil {
		return errors.New("E123").WithDetail(distDir).Wrap(err)
	}
	probe := filepath.Join(distDir, ".kiln-write-check")
	if err := os.WriteFile(probe, []byte("ok"), 0644); err != nil {
		return errors.New("E123").WithDetail(distDir).Wrap(err)
	}
	if err := os.Remove(probe); err != nil {
		return errors.New("E123").WithDetail(distDir).Wrap(err)
	}
	return nil
}

// ruleSet flattens the config rule sections into compile order:
// redirects, rewrites, headers.
func ruleSet(rc config.RoutesConfig) []routes.Rule {
	rules := make([]routes.Rule, 0, len(rc.Redirects)+len(rc.Rewrites)+len(rc.Headers))
	for _, r := range rc.Redirects {
		rules = append(rules, routes.Rule{
			Type:        routes.RuleRedirect,
			Source:      r.Source,
			Destination: r.Destination,
			Permanent:   r.Permanent,
			StatusCode:  r.StatusCode,
		})
	}
	for _, r := range rc.Rewrites {
		rules = append(rules, routes.Rule{
			Type:        routes.RuleRewrite,
			Source:      r.Source,
			Destination: r.Destination,
		})
	}
	for _, r := range rc.Headers {
		headers := make([]routes.Header, len(r.Headers))
		for i, h := range r.Headers {
			headers[i] = routes.Header{Key: h.Key, Value: h.Value}
		}
		rules = append(rules, routes.Rule{
			Type:    routes.RuleHeader,
			Source:  r.Source,
			Headers: headers,
		})
	}
	return rules
}

// listPublicFiles returns the relative paths under the public directory.
// A missing public directory is fine.
func listPublicFiles(publicDir string) ([]string, error) {
	if _, err := os.Stat(publicDir); err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, err
	}

	var files []string
	err := filepath.WalkDir(publicDir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() || strings.HasPrefix(d.Name(), ".") {
			return nil
		}
		rel, err := filepath.Rel(publicDir, path)
		if err != nil {
			return err
		}
		files = append(files, filepath.ToSlash(rel))
		return nil
	})
	if err != nil {
		return nil, err
	}
	return files, nil
}

// progress reports build progress.
func (b *Builder) progress(step string) {
	if b.options.OnProgress != nil {
		b.options.OnProgress(step)
	}
}

// Clean removes the build output directory.
func (b *Builder) Clean() error {
	return os.RemoveAll(b.config.DistPath())
}
