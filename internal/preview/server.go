// Package preview serves a finished build for local inspection. It maps
// URL paths straight onto the exported files; the full routing semantics
// (rewrites, dynamic matching, revalidation) belong to the production
// runtime, not to this server.
package preview

import (
	"context"
	"net/http"
	"os"
	"path"
	"path/filepath"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/kiln-dev/kiln/internal/config"
	"github.com/kiln-dev/kiln/internal/errors"
	"github.com/kiln-dev/kiln/internal/manifest"
)

// Server serves the exported pages, client assets and public files of the
// most recent build.
type Server struct {
	cfg       *config.Config
	buildID   string
	static404 bool

	pagesDir  string
	staticDir string
	publicDir string

	router chi.Router
}

// New locates the build output and assembles the routes. It fails when no
// build has been run in the project.
func New(cfg *config.Config) (*Server, error) {
	distDir := cfg.DistPath()

	buildID, err := manifest.ReadBuildID(distDir)
	if err != nil {
		return nil, errors.New("E144").
			WithDetail("Looked for " + filepath.Join(distDir, manifest.BuildIDName)).
			WithSuggestion("Run `kiln build` first")
	}

	s := &Server{
		cfg:       cfg,
		buildID:   buildID,
		pagesDir:  filepath.Join(cfg.ServerPath(), "static", buildID, "pages"),
		staticDir: cfg.StaticPath(),
		publicDir: cfg.PublicPath(),
	}

	if marker, err := manifest.ReadExportMarker(distDir); err == nil {
		s.static404 = marker.Static404
	}

	r := chi.NewRouter()
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)

	r.Handle("/metrics", promhttp.Handler())
	r.Get("/_kiln/static/*", s.serveStatic)
	r.Head("/_kiln/static/*", s.serveStatic)
	r.Get("/_kiln/data/*", s.serveData)
	r.Get("/*", s.servePage)
	r.Head("/*", s.servePage)

	s.router = r
	return s, nil
}

// BuildID returns the identifier of the build being served.
func (s *Server) BuildID() string {
	return s.buildID
}

// Handler returns the server's HTTP handler.
func (s *Server) Handler() http.Handler {
	return s.router
}

// ListenAndServe serves until the context is canceled.
func (s *Server) ListenAndServe(ctx context.Context) error {
	srv := &http.Server{
		Addr:              s.cfg.PreviewAddress(),
		Handler:           s.router,
		ReadHeaderTimeout: 5 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() { errCh <- srv.ListenAndServe() }()

	select {
	case err := <-errCh:
		return errors.New("E143").Wrap(err)
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	}
}

// serveStatic answers /_kiln/static/* from the client asset directory.
func (s *Server) serveStatic(w http.ResponseWriter, r *http.Request) {
	rel, ok := cleanRelPath(strings.TrimPrefix(r.URL.Path, "/_kiln/static/"))
	if !ok {
		http.NotFound(w, r)
		return
	}
	s.serveFile(w, r, filepath.Join(s.staticDir, filepath.FromSlash(rel)))
}

// serveData answers /_kiln/data/<buildID>/* from the exported JSON.
func (s *Server) serveData(w http.ResponseWriter, r *http.Request) {
	rel, ok := cleanRelPath(strings.TrimPrefix(r.URL.Path, "/_kiln/data/"))
	if !ok || !strings.HasPrefix(rel, s.buildID+"/") {
		http.NotFound(w, r)
		return
	}
	rel = strings.TrimPrefix(rel, s.buildID+"/")
	s.serveFile(w, r, filepath.Join(s.pagesDir, filepath.FromSlash(rel)))
}

// servePage answers a page path with its exported HTML, falling back to
// the public directory, then to the build's 404 page.
func (s *Server) servePage(w http.ResponseWriter, r *http.Request) {
	rel, ok := cleanRelPath(strings.TrimPrefix(r.URL.Path, "/"))
	if !ok {
		s.notFound(w, r)
		return
	}
	if rel == "" || rel == "." {
		rel = "index"
	}

	html := filepath.Join(s.pagesDir, filepath.FromSlash(rel)+".html")
	if fileExists(html) {
		s.serveFile(w, r, html)
		return
	}

	public := filepath.Join(s.publicDir, filepath.FromSlash(rel))
	if fileExists(public) {
		s.serveFile(w, r, public)
		return
	}

	s.notFound(w, r)
}

func (s *Server) notFound(w http.ResponseWriter, r *http.Request) {
	if s.static404 {
		if body, err := os.ReadFile(filepath.Join(s.pagesDir, "404.html")); err == nil {
			w.Header().Set("Content-Type", "text/html; charset=utf-8")
			w.WriteHeader(http.StatusNotFound)
			if r.Method != http.MethodHead {
				w.Write(body)
			}
			return
		}
	}
	http.NotFound(w, r)
}

func (s *Server) serveFile(w http.ResponseWriter, r *http.Request, path string) {
	if !fileExists(path) {
		s.notFound(w, r)
		return
	}
	http.ServeFile(w, r, path)
}

func fileExists(path string) bool {
	info, err := os.Stat(path)
	return err == nil && !info.IsDir()
}

// cleanRelPath sanitizes a slash-relative request path. It rejects
// traversal and absolute-path tricks so file serving cannot escape the
// configured directories.
func cleanRelPath(rel string) (string, bool) {
	if strings.IndexByte(rel, 0) != -1 {
		return "", false
	}
	if strings.Contains(rel, "\\") {
		return "", false
	}
	if strings.HasPrefix(rel, "/") {
		return "", false
	}
	for _, seg := range strings.Split(rel, "/") {
		if seg == ".." {
			return "", false
		}
	}

	clean := path.Clean(rel)
	if clean == ".." || strings.HasPrefix(clean, "../") || strings.HasPrefix(clean, "/") {
		return "", false
	}

	osPath := filepath.FromSlash(clean)
	if filepath.IsAbs(osPath) || filepath.VolumeName(osPath) != "" {
		return "", false
	}

	if clean == "." {
		return "", true
	}
	return clean, true
}
