package analysis

import (
	"os"
	"path/filepath"
	"testing"
)

func TestRemoveClientBundles(t *testing.T) {
	staticDir := t.TempDir()
	pagesDir := filepath.Join(staticDir, "build1", "pages")
	if err := os.MkdirAll(pagesDir, 0755); err != nil {
		t.Fatalf("MkdirAll() error: %v", err)
	}

	bundle := filepath.Join(pagesDir, "amp-first.js")
	modern := filepath.Join(pagesDir, "amp-first.module.js")
	for _, p := range []string{bundle, modern} {
		if err := os.WriteFile(p, []byte("console.log(1)"), 0644); err != nil {
			t.Fatalf("WriteFile() error: %v", err)
		}
	}

	if err := RemoveClientBundles(staticDir, "build1", "/amp-first"); err != nil {
		t.Fatalf("RemoveClientBundles() error: %v", err)
	}

	for _, p := range []string{bundle, modern} {
		if _, err := os.Stat(p); !os.IsNotExist(err) {
			t.Errorf("%s still exists", p)
		}
	}
}

func TestRemoveClientBundlesIdempotent(t *testing.T) {
	staticDir := t.TempDir()

	if err := RemoveClientBundles(staticDir, "build1", "/never-compiled"); err != nil {
		t.Errorf("RemoveClientBundles() = %v, want nil when bundles are absent", err)
	}
	if err := RemoveClientBundles(staticDir, "build1", "/never-compiled"); err != nil {
		t.Errorf("second RemoveClientBundles() = %v, want nil", err)
	}
}

func TestRemoveClientBundlesIndexPage(t *testing.T) {
	staticDir := t.TempDir()
	pagesDir := filepath.Join(staticDir, "build1", "pages")
	if err := os.MkdirAll(pagesDir, 0755); err != nil {
		t.Fatalf("MkdirAll() error: %v", err)
	}

	bundle := filepath.Join(pagesDir, "index.js")
	if err := os.WriteFile(bundle, []byte("x"), 0644); err != nil {
		t.Fatalf("WriteFile() error: %v", err)
	}

	if err := RemoveClientBundles(staticDir, "build1", "/"); err != nil {
		t.Fatalf("RemoveClientBundles() error: %v", err)
	}
	if _, err := os.Stat(bundle); !os.IsNotExist(err) {
		t.Error("index bundle still exists")
	}
}

func TestRemoveClientBundlesSurfacesFilesystemErrors(t *testing.T) {
	staticDir := t.TempDir()

	// A plain remove fails on a non-empty directory.
	trap := filepath.Join(staticDir, "build1", "pages", "about.js")
	if err := os.MkdirAll(filepath.Join(trap, "child"), 0755); err != nil {
		t.Fatalf("MkdirAll() error: %v", err)
	}

	if err := RemoveClientBundles(staticDir, "build1", "/about"); err == nil {
		t.Error("RemoveClientBundles() should surface non-missing filesystem errors")
	}
}
