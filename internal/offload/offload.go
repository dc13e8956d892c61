// Package offload uploads a build's static output to object storage.
//
// Two trees leave the machine: the client asset directory, whose files
// are namespaced by build ID and therefore immutable, and the public
// directory, whose files keep their names across builds. Keys mirror the
// URL paths the runtime serves them under.
package offload

import (
	"context"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"golang.org/x/sync/errgroup"

	"github.com/kiln-dev/kiln/internal/config"
	"github.com/kiln-dev/kiln/internal/errors"
)

// Cache lifetimes for the two asset classes. Build-ID-namespaced files
// never change; public files may be replaced in place.
const (
	cacheImmutable = "public, max-age=31536000, immutable"
	cachePublic    = "public, max-age=3600"
)

// defaultConcurrency bounds parallel uploads when Options does not.
const defaultConcurrency = 8

// Options tunes an offload run.
type Options struct {
	// Concurrency is the number of parallel uploads.
	Concurrency int

	// OnUpload is called after each object lands, with its key and
	// public URL.
	OnUpload func(key, url string)
}

// Summary reports a finished offload run.
type Summary struct {
	// Uploaded is the number of objects pushed.
	Uploaded int

	// Bytes is their combined size.
	Bytes int64
}

type asset struct {
	localPath    string
	key          string
	cacheControl string
	size         int64
}

// Run uploads the build's static directory and the project's public
// directory. The static directory must exist; a project without a public
// directory simply has nothing extra to push.
func Run(ctx context.Context, cfg *config.Config, up Uploader, opts Options) (*Summary, error) {
	staticDir := cfg.StaticPath()
	if _, err := os.Stat(staticDir); err != nil {
		if os.IsNotExist(err) {
			return nil, errors.New("E262").
				WithDetail("Looked for " + staticDir).
				WithSuggestion("Run `kiln build` before offloading")
		}
		return nil, errors.New("E262").Wrap(err)
	}

	prefix := cfg.Offload.Prefix
	if prefix != "" && !strings.HasSuffix(prefix, "/") {
		prefix += "/"
	}

	assets, err := collectAssets(staticDir, prefix+"static/", cacheImmutable)
	if err != nil {
		return nil, err
	}

	if publicAssets, err := collectAssets(cfg.PublicPath(), "", cachePublic); err == nil {
		assets = append(assets, publicAssets...)
	} else if !errors.IsCode(err, "E262") {
		return nil, err
	}

	concurrency := opts.Concurrency
	if concurrency <= 0 {
		concurrency = defaultConcurrency
	}

	var mu sync.Mutex
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(concurrency)
	for _, a := range assets {
		a := a
		g.Go(func() error {
			url, err := up.Upload(gctx, a.localPath, a.key, a.cacheControl)
			if err != nil {
				return errors.New("E260").WithDetail(a.key).Wrap(err)
			}
			if opts.OnUpload != nil {
				mu.Lock()
				opts.OnUpload(a.key, url)
				mu.Unlock()
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, errors.FromError(err, "E260")
	}

	summary := &Summary{Uploaded: len(assets)}
	for _, a := range assets {
		summary.Bytes += a.size
	}
	return summary, nil
}

// collectAssets lists every file under root as an upload. A missing root
// reports E262; callers decide whether that is fatal.
func collectAssets(root, keyBase, cacheControl string) ([]asset, error) {
	if _, err := os.Stat(root); err != nil {
		if os.IsNotExist(err) {
			return nil, errors.New("E262").WithDetail(root)
		}
		return nil, errors.New("E262").Wrap(err)
	}

	var assets []asset
	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() || strings.HasPrefix(d.Name(), ".") {
			return nil
		}
		rel, err := filepath.Rel(root, path)
		if err != nil {
			return err
		}
		info, err := d.Info()
		if err != nil {
			return err
		}
		assets = append(assets, asset{
			localPath:    path,
			key:          keyBase + filepath.ToSlash(rel),
			cacheControl: cacheControl,
			size:         info.Size(),
		})
		return nil
	})
	if err != nil {
		return nil, errors.New("E262").Wrap(err)
	}
	return assets, nil
}
