package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	kilnerrors "github.com/kiln-dev/kiln/internal/errors"
)

// Version information set at build time.
var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

const banner = `
  ╦╔═╦╦  ╔╗╔
  ╠╩╗║║  ║║║
  ╩ ╩╩╩═╝╝╚╝
`

func main() {
	rootCmd := &cobra.Command{
		Use:   "kiln",
		Short: "Production builds for page-based web applications",
		Long: `Kiln compiles, analyzes, and prerenders page-based web
applications for production.

A build run:

  • Compiles redirect, rewrite, and header rules
  • Bundles client and server code in parallel
  • Classifies every page as static, generated, or server-rendered
  • Prerenders static and generated pages to HTML and JSON
  • Assembles the routes, prerender, and pages manifests`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	rootCmd.AddCommand(
		buildCmd(),
		previewCmd(),
		offloadCmd(),
		versionCmd(),
	)

	if err := rootCmd.Execute(); err != nil {
		kilnerrors.PrintError(err)
		os.Exit(1)
	}
}

// printBanner prints the Kiln ASCII art banner.
func printBanner() {
	fmt.Print(banner)
}

// success prints a success message.
func success(format string, args ...any) {
	fmt.Printf("\033[32m✓\033[0m %s\n", fmt.Sprintf(format, args...))
}

// info prints an info message.
func info(format string, args ...any) {
	fmt.Printf("  %s\n", fmt.Sprintf(format, args...))
}

// warn prints a warning message.
func warn(format string, args ...any) {
	fmt.Printf("\033[33m⚠\033[0m %s\n", fmt.Sprintf(format, args...))
}
