package manifest

import (
	"path"
	"path/filepath"
	"strings"
)

// PagesManifestName is the pages manifest's file name.
const PagesManifestName = "pages-manifest.json"

// PagesManifest maps page paths to the file that answers them, relative to
// the server directory. Pages start out pointing at their compiled bundle;
// after export, pages answered by static HTML are rewritten to point at it.
type PagesManifest map[string]string

// BuildPagesManifest maps every page to its compiled server bundle.
func BuildPagesManifest(pages []string) PagesManifest {
	m := make(PagesManifest, len(pages))
	for _, page := range pages {
		m[page] = path.Join("pages", pageStem(page)+".js")
	}
	return m
}

// PointAtHTML rewrites the given pages to their exported HTML. The
// synthetic /404 gains an entry even though it never had a bundle.
func (m PagesManifest) PointAtHTML(pages []string, buildID string) {
	for _, page := range pages {
		m[page] = path.Join("static", buildID, "pages", pageStem(page)+".html")
	}
}

// Write serializes the manifest into the server directory.
func (m PagesManifest) Write(serverDir string) error {
	return WriteJSON(filepath.Join(serverDir, PagesManifestName), m)
}

// pageStem is a page path as a relative file stem.
func pageStem(page string) string {
	if page == "/" {
		return "index"
	}
	return strings.TrimPrefix(page, "/")
}
