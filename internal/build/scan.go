package build

import (
	"compress/gzip"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/kiln-dev/kiln/internal/errors"
)

// DiscoverPages walks the pages directory and returns one PageInfo per
// page, sorted by page key. A file maps to its URL path with the
// extension stripped and a trailing "/index" collapsed, so
// pages/blog/index.tsx and pages/blog.tsx both claim /blog; when both
// exist the earlier extension in the configured list wins, then the
// first file encountered.
func DiscoverPages(pagesDir string, extensions []string) ([]PageInfo, error) {
	if _, err := os.Stat(pagesDir); err != nil {
		if os.IsNotExist(err) {
			return nil, errors.New("E145").WithDetail("Looked for " + pagesDir)
		}
		return nil, errors.New("E145").Wrap(err)
	}

	rank := make(map[string]int, len(extensions))
	for i, ext := range extensions {
		rank[ext] = i
	}

	type candidate struct {
		info PageInfo
		rank int
	}
	found := map[string]candidate{}

	err := filepath.WalkDir(pagesDir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if strings.HasPrefix(d.Name(), ".") {
			if d.IsDir() {
				return filepath.SkipDir
			}
			return nil
		}
		if d.IsDir() {
			return nil
		}

		ext := strings.TrimPrefix(filepath.Ext(d.Name()), ".")
		r, ok := rank[ext]
		if !ok {
			return nil
		}

		rel, err := filepath.Rel(pagesDir, path)
		if err != nil {
			return err
		}
		page := pageKey(rel)
		if prev, ok := found[page]; ok && prev.rank <= r {
			return nil
		}
		found[page] = candidate{
			info: PageInfo{Page: page, SourceFile: filepath.ToSlash(rel)},
			rank: r,
		}
		return nil
	})
	if err != nil {
		return nil, errors.FromError(err, "E145")
	}

	pages := make([]PageInfo, 0, len(found))
	for _, c := range found {
		pages = append(pages, c.info)
	}
	sort.Slice(pages, func(i, j int) bool { return pages[i].Page < pages[j].Page })
	return pages, nil
}

// pageKey converts a source path relative to the pages directory into
// its page key.
func pageKey(rel string) string {
	slash := filepath.ToSlash(rel)
	slash = strings.TrimSuffix(slash, filepath.Ext(slash))
	key := "/" + slash
	if key == "/index" {
		return "/"
	}
	return strings.TrimSuffix(key, "/index")
}

// bundleStem returns the path stem a page's bundles use on disk.
func bundleStem(page string) string {
	if page == "/" {
		return "index"
	}
	return strings.TrimPrefix(page, "/")
}

// ScanOutput locates the compiled bundles for every page and records
// their paths and sizes. A missing server bundle means the compile pass
// lied about succeeding and is fatal; pages without client code simply
// have no client bundle.
func ScanOutput(pages []PageInfo, serverDir, staticDir, buildID string) error {
	for i := range pages {
		stem := filepath.FromSlash(bundleStem(pages[i].Page))

		server := filepath.Join(serverDir, "pages", stem+".js")
		if _, err := os.Stat(server); err != nil {
			if os.IsNotExist(err) {
				return errors.New("E164").WithDetail("No server bundle for pages" + pages[i].Page)
			}
			return errors.New("E164").Wrap(err)
		}
		pages[i].ServerBundle = server

		client := filepath.Join(staticDir, buildID, "pages", stem+".js")
		info, err := os.Stat(client)
		if err != nil {
			continue
		}
		pages[i].ClientBundle = client
		pages[i].ClientSize = info.Size()
		if gz, err := gzipSize(client); err == nil {
			pages[i].ClientGzip = gz
		}
	}
	return nil
}

// gzipSize returns the gzipped size of a file.
func gzipSize(path string) (int64, error) {
	f, err := os.Open(path)
	if err != nil {
		return 0, err
	}
	defer f.Close()

	var count countingWriter
	zw := gzip.NewWriter(&count)
	if _, err := io.Copy(zw, f); err != nil {
		return 0, err
	}
	if err := zw.Close(); err != nil {
		return 0, err
	}
	return int64(count), nil
}

type countingWriter int64

func (w *countingWriter) Write(p []byte) (int, error) {
	*w += countingWriter(len(p))
	return len(p), nil
}
