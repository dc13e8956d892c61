package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/kiln-dev/kiln/internal/config"
	"github.com/kiln-dev/kiln/internal/offload"
)

func offloadCmd() *cobra.Command {
	var (
		provider    string
		bucket      string
		concurrency int
	)

	cmd := &cobra.Command{
		Use:   "offload",
		Short: "Upload static assets to object storage",
		Long: `Upload the built client assets and the public directory to an
S3 or MinIO bucket.

Client assets are keyed under the configured prefix and marked
immutable; public files land at the bucket root with a short
cache lifetime.

Credentials come from the environment: AWS_ACCESS_KEY_ID and
AWS_SECRET_ACCESS_KEY for S3, MINIO_ACCESS_KEY and
MINIO_SECRET_KEY for MinIO.

Examples:
  kiln offload
  kiln offload --bucket=my-site-assets
  kiln offload --provider=minio --bucket=assets`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runOffload(provider, bucket, concurrency)
		},
	}

	cmd.Flags().StringVar(&provider, "provider", "", "Object store backend: s3 or minio (default from kiln.json)")
	cmd.Flags().StringVar(&bucket, "bucket", "", "Destination bucket (default from kiln.json)")
	cmd.Flags().IntVar(&concurrency, "concurrency", 0, "Concurrent uploads")

	return cmd
}

func runOffload(provider, bucket string, concurrency int) error {
	// Load config
	cfg, err := config.LoadFromWorkingDir()
	if err != nil {
		return err
	}

	// Apply command-line overrides
	if provider != "" {
		cfg.Offload.Provider = provider
	}
	if bucket != "" {
		cfg.Offload.Bucket = bucket
	}

	if err := cfg.Validate(); err != nil {
		return err
	}

	up, err := offload.NewUploader(cfg.Offload)
	if err != nil {
		return err
	}

	fmt.Println("  Offloading static assets...")
	fmt.Println()

	// Handle signals
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		<-sigCh
		cancel()
	}()

	sum, err := offload.Run(ctx, cfg, up, offload.Options{
		Concurrency: concurrency,
		OnUpload: func(key, url string) {
			info(key)
		},
	})
	if err != nil {
		return err
	}

	fmt.Println()
	success("Uploaded %d files (%s) to %s", sum.Uploaded, formatBytes(sum.Bytes), cfg.Offload.Bucket)
	return nil
}
