package export

import (
	"context"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/kiln-dev/kiln/internal/errors"
)

// Options configures one ExportApp invocation.
type Options struct {
	// OutDir is the scratch directory the collaborator renders into.
	OutDir string `json:"outDir"`

	// PathMap is the full set of paths to render.
	PathMap PathMap `json:"pathMap"`

	// BuildID namespaces the JSON data output.
	BuildID string `json:"buildId"`
}

// Report is the collaborator's outcome.
type Report struct {
	// Revalidate carries each path's revalidation window in seconds,
	// exactly as the page's data hook returned it. -1 means never.
	Revalidate map[string]int64 `json:"revalidate"`
}

// Exporter renders a path map into static files. The production
// implementation lives with the page runtime; the pipeline only depends on
// this seam.
type Exporter interface {
	ExportApp(ctx context.Context, projectDir string, opts Options) (*Report, error)
}

// Dirs locates everything the export stage touches.
type Dirs struct {
	// Project is the project root.
	Project string

	// Scratch is the temporary render directory, removed in every outcome.
	Scratch string

	// PagesOut is the final directory exported HTML and JSON move into.
	PagesOut string

	// ServerPages holds the compiled server bundles.
	ServerPages string

	// BuildID namespaces the JSON data output.
	BuildID string
}

// Outcome summarizes a finished export stage.
type Outcome struct {
	// Paths are the exported output paths, sorted.
	Paths []string

	// Revalidate is the per-path revalidation window, verbatim from the
	// collaborator.
	Revalidate map[string]int64

	// Skipped is set when the plan had nothing to export.
	Skipped bool
}

// Run renders the plan and relocates the results into the build output.
// The scratch directory is removed whether or not anything was exported;
// an absent scratch directory is not an error.
func Run(ctx context.Context, ex Exporter, plan Plan, dirs Dirs) (*Outcome, error) {
	pathMap := BuildPathMap(plan)

	if len(pathMap) == 0 {
		if err := cleanScratch(dirs.Scratch); err != nil {
			return nil, err
		}
		return &Outcome{Skipped: true, Revalidate: map[string]int64{}}, nil
	}

	if err := os.MkdirAll(dirs.Scratch, 0755); err != nil {
		return nil, errors.New("E220").WithDetail(dirs.Scratch).Wrap(err)
	}

	report, err := ex.ExportApp(ctx, dirs.Project, Options{
		OutDir:  dirs.Scratch,
		PathMap: pathMap,
		BuildID: dirs.BuildID,
	})
	if err != nil {
		return nil, errors.FromError(err, "E220")
	}

	paths := make([]string, 0, len(pathMap))
	for path := range pathMap {
		paths = append(paths, path)
	}
	sort.Strings(paths)

	for _, path := range paths {
		if err := relocatePath(path, pathMap[path], dirs); err != nil {
			return nil, err
		}
	}

	if err := removeStaticBundles(plan.StaticPages, dirs.ServerPages); err != nil {
		return nil, err
	}

	if err := cleanScratch(dirs.Scratch); err != nil {
		return nil, err
	}

	out := &Outcome{Paths: paths, Revalidate: map[string]int64{}}
	if report != nil {
		for path, seconds := range report.Revalidate {
			out.Revalidate[path] = seconds
		}
	}
	return out, nil
}

// removeStaticBundles deletes the server bundles of pages whose HTML now
// answers their route. A bundle that is already gone is fine.
func removeStaticBundles(staticPages []string, serverPages string) error {
	for _, page := range staticPages {
		bundle := filepath.Join(serverPages, filepath.FromSlash(strings.TrimPrefix(outputFile(page), "/"))+".js")
		if err := os.Remove(bundle); err != nil && !os.IsNotExist(err) {
			return errors.New("E222").WithDetail(bundle).Wrap(err)
		}
	}
	return nil
}

// cleanScratch removes the scratch directory tree.
func cleanScratch(scratch string) error {
	if err := os.RemoveAll(scratch); err != nil {
		return errors.New("E221").WithDetail(scratch).Wrap(err)
	}
	return nil
}
