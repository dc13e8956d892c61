package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/kiln-dev/kiln/internal/config"
	"github.com/kiln-dev/kiln/internal/preview"
)

func previewCmd() *cobra.Command {
	var (
		port int
		host string
	)

	cmd := &cobra.Command{
		Use:   "preview",
		Short: "Serve the production build locally",
		Long: `Serve the most recent build output for local inspection.

The preview server maps URLs straight onto the exported files:
pages from the prerendered HTML, data from the exported JSON,
client assets from /_kiln/static/, and everything else from the
public directory.

Examples:
  kiln preview
  kiln preview --port=8080
  kiln preview --host=0.0.0.0`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runPreview(port, host)
		},
	}

	cmd.Flags().IntVarP(&port, "port", "p", 0, "Port to listen on (default from kiln.json)")
	cmd.Flags().StringVarP(&host, "host", "H", "", "Host to bind to (default from kiln.json)")

	return cmd
}

func runPreview(port int, host string) error {
	// Load config
	cfg, err := config.LoadFromWorkingDir()
	if err != nil {
		return err
	}

	// Apply command-line overrides
	if port > 0 {
		cfg.Preview.Port = port
	}
	if host != "" {
		cfg.Preview.Host = host
	}

	if err := cfg.Validate(); err != nil {
		return err
	}

	srv, err := preview.New(cfg)
	if err != nil {
		return err
	}

	printBanner()
	fmt.Println()
	info("Serving build %s", srv.BuildID())
	info("http://%s", cfg.PreviewAddress())
	fmt.Println()

	// Handle signals
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		<-sigCh
		fmt.Println("\n\n  Shutting down...")
		cancel()
	}()

	return srv.ListenAndServe(ctx)
}
