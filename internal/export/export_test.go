package export

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"

	kilnerrors "github.com/kiln-dev/kiln/internal/errors"
)

// fakeExporter renders every path-map entry as a small HTML file, plus the
// JSON companion for data targets.
type fakeExporter struct {
	report    *Report
	fail      error
	skipWrite bool
	gotOpts   Options
}

func (f *fakeExporter) ExportApp(ctx context.Context, projectDir string, opts Options) (*Report, error) {
	f.gotOpts = opts
	if f.fail != nil {
		return nil, f.fail
	}

	if !f.skipWrite {
		for path, tgt := range opts.PathMap {
			rel := filepath.FromSlash(strings.TrimPrefix(outputFile(path), "/"))

			html := filepath.Join(opts.OutDir, rel+".html")
			if err := os.MkdirAll(filepath.Dir(html), 0755); err != nil {
				return nil, err
			}
			if err := os.WriteFile(html, []byte("<html>"+path+"</html>"), 0644); err != nil {
				return nil, err
			}

			if tgt.Data {
				data := filepath.Join(opts.OutDir, "_kiln", "data", opts.BuildID, rel+".json")
				if err := os.MkdirAll(filepath.Dir(data), 0755); err != nil {
					return nil, err
				}
				if err := os.WriteFile(data, []byte(fmt.Sprintf("{%q:1}", path)), 0644); err != nil {
					return nil, err
				}
			}
		}
	}

	if f.report != nil {
		return f.report, nil
	}
	return &Report{}, nil
}

func testDirs(t *testing.T) Dirs {
	t.Helper()
	root := t.TempDir()
	return Dirs{
		Project:     root,
		Scratch:     filepath.Join(root, ".kiln", "export"),
		PagesOut:    filepath.Join(root, ".kiln", "server", "static", "bid1", "pages"),
		ServerPages: filepath.Join(root, ".kiln", "server", "pages"),
		BuildID:     "bid1",
	}
}

func writeBundle(t *testing.T, dir, page string) string {
	t.Helper()
	p := filepath.Join(dir, filepath.FromSlash(strings.TrimPrefix(outputFile(page), "/"))+".js")
	if err := os.MkdirAll(filepath.Dir(p), 0755); err != nil {
		t.Fatalf("MkdirAll() error: %v", err)
	}
	if err := os.WriteFile(p, []byte("module.exports = {}"), 0644); err != nil {
		t.Fatalf("WriteFile() error: %v", err)
	}
	return p
}

func TestRunMovesExportedFiles(t *testing.T) {
	dirs := testDirs(t)
	writeBundle(t, dirs.ServerPages, "/about")

	ex := &fakeExporter{report: &Report{Revalidate: map[string]int64{
		"/post/a": 60,
		"/post/b": -1,
	}}}

	plan := Plan{
		StaticPages:     []string{"/", "/about"},
		SSGPages:        []string{"/post/[id]"},
		PrerenderRoutes: map[string][]string{"/post/[id]": {"/post/a", "/post/b"}},
	}

	out, err := Run(context.Background(), ex, plan, dirs)
	if err != nil {
		t.Fatalf("Run() error: %v", err)
	}
	if out.Skipped {
		t.Fatal("Skipped = true, want false")
	}

	for _, rel := range []string{"index.html", "about.html", "post/a.html", "post/a.json", "post/b.html", "post/b.json"} {
		if _, err := os.Stat(filepath.Join(dirs.PagesOut, filepath.FromSlash(rel))); err != nil {
			t.Errorf("missing relocated file %s: %v", rel, err)
		}
	}

	if _, err := os.Stat(dirs.Scratch); !os.IsNotExist(err) {
		t.Error("scratch directory should be removed after export")
	}

	if got := out.Revalidate["/post/a"]; got != 60 {
		t.Errorf("Revalidate[/post/a] = %d, want 60", got)
	}
	if got := out.Revalidate["/post/b"]; got != -1 {
		t.Errorf("Revalidate[/post/b] = %d, want -1", got)
	}

	for i := 1; i < len(out.Paths); i++ {
		if out.Paths[i-1] >= out.Paths[i] {
			t.Errorf("Paths not sorted: %v", out.Paths)
		}
	}
}

func TestRunDeletesStaticBundlesOnly(t *testing.T) {
	dirs := testDirs(t)
	staticBundle := writeBundle(t, dirs.ServerPages, "/about")
	ssgBundle := writeBundle(t, dirs.ServerPages, "/pricing")

	plan := Plan{
		StaticPages: []string{"/about"},
		SSGPages:    []string{"/pricing"},
	}

	if _, err := Run(context.Background(), &fakeExporter{}, plan, dirs); err != nil {
		t.Fatalf("Run() error: %v", err)
	}

	if _, err := os.Stat(staticBundle); !os.IsNotExist(err) {
		t.Error("static page's server bundle should be deleted")
	}
	if _, err := os.Stat(ssgBundle); err != nil {
		t.Error("SSG page's server bundle must survive export")
	}
}

func TestRunSkipsEmptyPlan(t *testing.T) {
	dirs := testDirs(t)

	// Leftover scratch from an earlier run.
	if err := os.MkdirAll(filepath.Join(dirs.Scratch, "stale"), 0755); err != nil {
		t.Fatalf("MkdirAll() error: %v", err)
	}

	ex := &fakeExporter{}
	out, err := Run(context.Background(), ex, Plan{}, dirs)
	if err != nil {
		t.Fatalf("Run() error: %v", err)
	}
	if !out.Skipped {
		t.Error("Skipped = false, want true")
	}
	if _, err := os.Stat(dirs.Scratch); !os.IsNotExist(err) {
		t.Error("scratch directory should be removed even when export is skipped")
	}
	if ex.gotOpts.PathMap != nil {
		t.Error("collaborator should not run for an empty plan")
	}
}

func TestRunSkipsWithAbsentScratch(t *testing.T) {
	dirs := testDirs(t)

	out, err := Run(context.Background(), &fakeExporter{}, Plan{}, dirs)
	if err != nil {
		t.Fatalf("Run() error: %v", err)
	}
	if !out.Skipped {
		t.Error("Skipped = false, want true")
	}
}

func TestRunExporterFailure(t *testing.T) {
	dirs := testDirs(t)
	ex := &fakeExporter{fail: errors.New("renderer crashed")}

	_, err := Run(context.Background(), ex, Plan{StaticPages: []string{"/about"}}, dirs)
	if err == nil {
		t.Fatal("Run() should surface collaborator failures")
	}

	var ke *kilnerrors.KilnError
	if !errors.As(err, &ke) {
		t.Fatalf("error type = %T, want *KilnError", err)
	}
	if ke.Code != "E220" {
		t.Errorf("Code = %q, want E220", ke.Code)
	}
}

func TestRunMissingExportedFile(t *testing.T) {
	dirs := testDirs(t)
	ex := &fakeExporter{skipWrite: true}

	_, err := Run(context.Background(), ex, Plan{StaticPages: []string{"/about"}}, dirs)
	if err == nil {
		t.Fatal("Run() should fail when an exported file never appeared")
	}

	var ke *kilnerrors.KilnError
	if !errors.As(err, &ke) {
		t.Fatalf("error type = %T, want *KilnError", err)
	}
	if ke.Code != "E223" {
		t.Errorf("Code = %q, want E223", ke.Code)
	}
}

func TestMoveFileCreatesDestinationDirs(t *testing.T) {
	root := t.TempDir()
	src := filepath.Join(root, "src.html")
	if err := os.WriteFile(src, []byte("x"), 0644); err != nil {
		t.Fatalf("WriteFile() error: %v", err)
	}

	dest := filepath.Join(root, "deep", "nested", "dest.html")
	if err := moveFile(src, dest); err != nil {
		t.Fatalf("moveFile() error: %v", err)
	}
	if _, err := os.Stat(dest); err != nil {
		t.Errorf("destination missing: %v", err)
	}
	if _, err := os.Stat(src); !os.IsNotExist(err) {
		t.Error("source should be gone after the move")
	}
}

func TestMoveFileMissingSource(t *testing.T) {
	root := t.TempDir()

	err := moveFile(filepath.Join(root, "never-rendered.html"), filepath.Join(root, "out.html"))
	if err == nil {
		t.Fatal("moveFile() should fail for a missing source")
	}

	var ke *kilnerrors.KilnError
	if !errors.As(err, &ke) {
		t.Fatalf("error type = %T, want *KilnError", err)
	}
	if ke.Code != "E223" {
		t.Errorf("Code = %q, want E223", ke.Code)
	}
}
