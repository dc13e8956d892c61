package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/kiln-dev/kiln/internal/build"
	"github.com/kiln-dev/kiln/internal/config"
)

func buildCmd() *cobra.Command {
	var workers int

	cmd := &cobra.Command{
		Use:   "build",
		Short: "Build for production",
		Long: `Compile, analyze, and prerender the application for production.

This command:
  • Compiles route rules and dynamic page matchers
  • Bundles client and server code in parallel
  • Analyzes every page in an isolated runtime
  • Prerenders static and generated pages to HTML and JSON
  • Assembles the routes, prerender, and pages manifests

Examples:
  kiln build
  kiln build --workers=4`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runBuild(workers)
		},
	}

	cmd.Flags().IntVarP(&workers, "workers", "w", 0, "Analysis workers (default from kiln.json, then NumCPU)")

	return cmd
}

func runBuild(workers int) error {
	// Load config
	cfg, err := config.LoadFromWorkingDir()
	if err != nil {
		return err
	}

	// Apply command-line overrides
	if workers > 0 {
		cfg.Build.Workers = workers
	}

	if err := cfg.Validate(); err != nil {
		return err
	}

	fmt.Println("  Building for production...")
	fmt.Println()

	builder := build.New(cfg, build.Options{
		OnProgress: func(step string) {
			info(step)
		},
	})

	// Handle signals
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		<-sigCh
		cancel()
	}()

	// Build
	result, err := builder.Build(ctx)
	if err != nil {
		return err
	}

	printSummary(result)
	return nil
}

// printSummary renders the per-page build report.
func printSummary(result *build.Result) {
	fmt.Println()
	for _, w := range result.Warnings {
		warn(w)
	}
	if len(result.Warnings) > 0 {
		fmt.Println()
	}

	success("Build %s complete in %s", result.BuildID, result.Duration.Round(time.Millisecond))
	fmt.Println()

	fmt.Println("  Pages:")
	for i, page := range result.Pages {
		branch := "├"
		if i == len(result.Pages)-1 {
			branch = "└"
		}
		size := ""
		if page.ClientSize > 0 {
			size = fmt.Sprintf("  (%s, %s gzipped)", formatBytes(page.ClientSize), formatBytes(page.ClientGzip))
		}
		fmt.Printf("  %s %s %s%s\n", branch, kindGlyph(page.Kind), page.Page, size)
	}
	fmt.Println()
	fmt.Println("  ○ static   ● generated   λ server")
	fmt.Println()

	fmt.Printf("  Client bundles:  %s (%s gzipped)\n", formatBytes(result.ClientSize), formatBytes(result.ClientGzipSize))
	fmt.Printf("  Exported paths:  %d\n", len(result.ExportedPaths))
	if result.UseStatic404 {
		fmt.Println("  404 page:        prerendered")
	}
	fmt.Println()
	fmt.Println("  To inspect:")
	fmt.Println("    kiln preview")
	fmt.Println()
}

// kindGlyph maps a page classification to its report symbol.
func kindGlyph(kind build.PageKind) string {
	switch kind {
	case build.KindStatic:
		return "○"
	case build.KindSSG:
		return "●"
	default:
		return "λ"
	}
}

// formatBytes formats bytes as a human-readable string.
func formatBytes(b int64) string {
	const unit = 1024
	if b < unit {
		return fmt.Sprintf("%d B", b)
	}
	div, exp := int64(unit), 0
	for n := b / unit; n >= unit; n /= unit {
		div *= unit
		exp++
	}
	return fmt.Sprintf("%.1f %cB", float64(b)/float64(div), "KMGTPE"[exp])
}
