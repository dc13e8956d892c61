// Package build drives the production build pipeline.
//
// A build runs as a fixed sequence of stages: route compilation, page
// bundling, output scanning, page analysis, prerender export and
// manifest assembly. Each stage only starts once the previous one has
// fully succeeded; the bundler passes inside the compile stage are the
// one place work runs concurrently across stages' collaborators.
//
// The pipeline talks to three replaceable collaborators: a bundler that
// compiles page sources, a runtime factory whose runtimes evaluate
// server bundles, and an exporter that materializes prerendered HTML.
// The defaults spawn the kiln-bundler, kiln-analyze and kiln-render
// executables.
//
// # Usage
//
//	builder := build.New(cfg, build.Options{})
//	result, err := builder.Build(ctx)
//	if err != nil {
//	    log.Fatal(err)
//	}
//
//	fmt.Printf("Built in %s\n", result.Duration)
//	fmt.Printf("Build ID: %s\n", result.BuildID)
package build
