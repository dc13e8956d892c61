package config

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strings"

	"github.com/kiln-dev/kiln/internal/errors"
)

const (
	// ConfigFileName is the name of the configuration file.
	ConfigFileName = "kiln.json"

	// DefaultDist is the default build output directory.
	DefaultDist = ".kiln"

	// DefaultPagesDir is the default pages source directory.
	DefaultPagesDir = "pages"

	// DefaultPublicDir is the default public assets directory.
	DefaultPublicDir = "public"

	// DefaultPreviewPort is the default preview server port.
	DefaultPreviewPort = 3000

	// DefaultPreviewHost is the default preview server host.
	DefaultPreviewHost = "localhost"

	// TargetServer builds one server bundle set for a long-lived server.
	TargetServer = "server"

	// TargetIsolated builds per-page isolated server bundles; the server
	// compile pass only starts after a clean client pass.
	TargetIsolated = "isolated"
)

// DefaultPageExtensions are the source extensions scanned for pages.
var DefaultPageExtensions = []string{"tsx", "ts", "jsx", "js"}

// Config represents the complete kiln.json configuration.
type Config struct {
	// Name is the project name.
	Name string `json:"name,omitempty"`

	// Version is the project version.
	Version string `json:"version,omitempty"`

	// Paths contains path configuration for project directories.
	Paths PathsConfig `json:"paths,omitempty"`

	// Build contains production build configuration.
	Build BuildConfig `json:"build,omitempty"`

	// Routes contains user-declared redirect, rewrite and header rules.
	Routes RoutesConfig `json:"routes,omitempty"`

	// Preview contains preview server configuration.
	Preview PreviewConfig `json:"preview,omitempty"`

	// Offload contains static asset upload configuration.
	Offload OffloadConfig `json:"offload,omitempty"`

	// configPath stores the path where the config was loaded from.
	configPath string
}

// PathsConfig contains path configuration for project directories.
type PathsConfig struct {
	// Pages is the path to the pages directory.
	Pages string `json:"pages,omitempty"`

	// Public is the path to the public static files directory.
	Public string `json:"public,omitempty"`
}

// BuildConfig contains production build settings.
type BuildConfig struct {
	// Dist is the output directory for builds.
	Dist string `json:"dist,omitempty"`

	// Target selects the server output mode ("server" or "isolated").
	Target string `json:"target,omitempty"`

	// Workers is the number of parallel analysis workers (0 = number of CPUs).
	Workers int `json:"workers,omitempty"`

	// PageExtensions are the source extensions scanned for pages.
	PageExtensions []string `json:"pageExtensions,omitempty"`

	// Modern additionally emits module-format client bundles.
	Modern bool `json:"modern,omitempty"`

	// Minify enables minification of client bundles.
	Minify bool `json:"minify,omitempty"`

	// SourceMaps enables source map generation.
	SourceMaps bool `json:"sourceMaps,omitempty"`
}

// RoutesConfig contains user-declared routing rules.
type RoutesConfig struct {
	// Redirects are rules that answer with a redirect status.
	Redirects []RedirectRule `json:"redirects,omitempty"`

	// Rewrites are rules that internally map one path to another.
	Rewrites []RewriteRule `json:"rewrites,omitempty"`

	// Headers are rules that attach response headers to matching paths.
	Headers []HeaderRule `json:"headers,omitempty"`
}

// RedirectRule declares a redirect from Source to Destination.
type RedirectRule struct {
	Source      string `json:"source"`
	Destination string `json:"destination"`

	// Permanent selects a 308 status code instead of 307.
	Permanent bool `json:"permanent,omitempty"`

	// StatusCode overrides the status code entirely.
	StatusCode int `json:"statusCode,omitempty"`
}

// RewriteRule declares an internal rewrite from Source to Destination.
type RewriteRule struct {
	Source      string `json:"source"`
	Destination string `json:"destination"`
}

// HeaderRule attaches response headers to paths matching Source.
type HeaderRule struct {
	Source  string        `json:"source"`
	Headers []HeaderValue `json:"headers"`
}

// HeaderValue is a single response header key/value pair.
type HeaderValue struct {
	Key   string `json:"key"`
	Value string `json:"value"`
}

// PreviewConfig contains preview server settings.
type PreviewConfig struct {
	// Port is the port to run the preview server on.
	Port int `json:"port,omitempty"`

	// Host is the host to bind to.
	Host string `json:"host,omitempty"`
}

// OffloadConfig contains static asset upload settings.
type OffloadConfig struct {
	// Provider selects the object store backend ("s3" or "minio").
	Provider string `json:"provider,omitempty"`

	// Bucket is the destination bucket name.
	Bucket string `json:"bucket,omitempty"`

	// Prefix is the key prefix for uploaded objects.
	Prefix string `json:"prefix,omitempty"`

	// Endpoint is the object store endpoint (MinIO or S3-compatible stores).
	Endpoint string `json:"endpoint,omitempty"`

	// Region is the bucket region (S3).
	Region string `json:"region,omitempty"`

	// UseSSL enables TLS for MinIO endpoints.
	UseSSL bool `json:"useSSL,omitempty"`
}

// New creates a new Config with default values.
func New() *Config {
	return &Config{
		Version: "0.1.0",
		Paths: PathsConfig{
			Pages:  DefaultPagesDir,
			Public: DefaultPublicDir,
		},
		Build: BuildConfig{
			Dist:           DefaultDist,
			Target:         TargetServer,
			PageExtensions: DefaultPageExtensions,
			Minify:         true,
		},
		Preview: PreviewConfig{
			Port: DefaultPreviewPort,
			Host: DefaultPreviewHost,
		},
	}
}

// Load reads configuration from the specified directory.
// It looks for kiln.json in the directory.
func Load(dir string) (*Config, error) {
	configPath := filepath.Join(dir, ConfigFileName)
	return LoadFile(configPath)
}

// LoadFile reads configuration from the specified file path.
func LoadFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, errors.New("E141").
				WithDetail("No kiln.json found in " + filepath.Dir(path)).
				WithSuggestion("Create a kiln.json in the project root")
		}
		return nil, errors.New("E120").Wrap(err)
	}

	cfg := New()
	if err := json.Unmarshal(data, cfg); err != nil {
		return nil, errors.New("E120").
			WithDetail("Failed to parse kiln.json: " + err.Error()).
			WithSuggestion("Check that kiln.json is valid JSON")
	}

	cfg.configPath = path
	cfg.applyDefaults()

	return cfg, nil
}

// Save writes the configuration to the file it was loaded from.
func (c *Config) Save() error {
	if c.configPath == "" {
		return errors.Newf(errors.CategoryConfig, "no config path set")
	}
	return c.SaveTo(c.configPath)
}

// SaveTo writes the configuration to the specified path.
func (c *Config) SaveTo(path string) error {
	data, err := json.MarshalIndent(c, "", "  ")
	if err != nil {
		return errors.New("E120").Wrap(err)
	}

	// Add newline at end of file
	data = append(data, '\n')

	if err := os.WriteFile(path, data, 0644); err != nil {
		return errors.New("E120").Wrap(err)
	}

	c.configPath = path
	return nil
}

// Path returns the path where the config was loaded from.
func (c *Config) Path() string {
	return c.configPath
}

// Dir returns the directory containing the config file.
func (c *Config) Dir() string {
	if c.configPath == "" {
		return ""
	}
	return filepath.Dir(c.configPath)
}

// applyDefaults fills in default values for empty fields.
func (c *Config) applyDefaults() {
	if c.Paths.Pages == "" {
		c.Paths.Pages = DefaultPagesDir
	}
	if c.Paths.Public == "" {
		c.Paths.Public = DefaultPublicDir
	}

	if c.Build.Dist == "" {
		c.Build.Dist = DefaultDist
	}
	if c.Build.Target == "" {
		c.Build.Target = TargetServer
	}
	if len(c.Build.PageExtensions) == 0 {
		c.Build.PageExtensions = DefaultPageExtensions
	}

	if c.Preview.Port == 0 {
		c.Preview.Port = DefaultPreviewPort
	}
	if c.Preview.Host == "" {
		c.Preview.Host = DefaultPreviewHost
	}

	if c.Offload.Prefix == "" && c.Offload.Bucket != "" {
		c.Offload.Prefix = "_kiln/"
	}
}

// Validate checks if the configuration is valid.
func (c *Config) Validate() error {
	if c.Preview.Port < 0 || c.Preview.Port > 65535 {
		return errors.New("E122").
			WithDetail("Port must be between 0 and 65535")
	}
	if c.Build.Workers < 0 {
		return errors.New("E124").
			WithDetail("build.workers must be zero or positive")
	}
	if c.Build.Target != TargetServer && c.Build.Target != TargetIsolated {
		return errors.New("E120").
			WithDetail("build.target must be \"server\" or \"isolated\", got " + c.Build.Target)
	}
	for _, ext := range c.Build.PageExtensions {
		if ext == "" || strings.HasPrefix(ext, ".") {
			return errors.New("E124").
				WithDetail("build.pageExtensions entries are written without the leading dot")
		}
	}
	for _, r := range c.Routes.Redirects {
		if r.Source == "" || r.Destination == "" {
			return errors.New("E121").
				WithDetail("Redirect rules need both source and destination").
				WithExample(`{ "source": "/old-blog/[slug]", "destination": "/blog/[slug]", "permanent": true }`)
		}
	}
	for _, r := range c.Routes.Rewrites {
		if r.Source == "" || r.Destination == "" {
			return errors.New("E121").
				WithDetail("Rewrite rules need both source and destination").
				WithExample(`{ "source": "/docs/[page]", "destination": "/guides/[page]" }`)
		}
	}
	for _, r := range c.Routes.Headers {
		if r.Source == "" || len(r.Headers) == 0 {
			return errors.New("E121").
				WithDetail("Header rules need a source and at least one header").
				WithExample(`{ "source": "/fonts/[name]", "headers": [{ "key": "Cache-Control", "value": "immutable" }] }`)
		}
	}
	return nil
}

// PreviewAddress returns the address string for the preview server.
func (c *Config) PreviewAddress() string {
	return c.Preview.Host + ":" + itoa(c.Preview.Port)
}

// DistPath returns the absolute path to the build output directory.
func (c *Config) DistPath() string {
	if filepath.IsAbs(c.Build.Dist) {
		return c.Build.Dist
	}
	return filepath.Join(c.Dir(), c.Build.Dist)
}

// PagesPath returns the absolute path to the pages directory.
func (c *Config) PagesPath() string {
	path := c.Paths.Pages
	if path == "" {
		path = DefaultPagesDir
	}
	if filepath.IsAbs(path) {
		return path
	}
	return filepath.Join(c.Dir(), path)
}

// PublicPath returns the absolute path to the public directory.
func (c *Config) PublicPath() string {
	path := c.Paths.Public
	if path == "" {
		path = DefaultPublicDir
	}
	if filepath.IsAbs(path) {
		return path
	}
	return filepath.Join(c.Dir(), path)
}

// ServerPath returns the absolute path to the server bundle directory.
func (c *Config) ServerPath() string {
	return filepath.Join(c.DistPath(), "server")
}

// StaticPath returns the absolute path to the client static directory.
func (c *Config) StaticPath() string {
	return filepath.Join(c.DistPath(), "static")
}

// ScratchPath returns the absolute path to the temporary export directory.
func (c *Config) ScratchPath() string {
	return filepath.Join(c.DistPath(), "export")
}

// Exists checks if a config file exists in the given directory.
func Exists(dir string) bool {
	path := filepath.Join(dir, ConfigFileName)
	_, err := os.Stat(path)
	return err == nil
}

// FindProjectRoot walks up directories to find the project root.
// Returns the directory containing kiln.json, or an error if not found.
func FindProjectRoot(startDir string) (string, error) {
	dir, err := filepath.Abs(startDir)
	if err != nil {
		return "", err
	}

	for {
		if Exists(dir) {
			return dir, nil
		}

		parent := filepath.Dir(dir)
		if parent == dir {
			return "", errors.New("E141").
				WithDetail("No kiln.json found in " + startDir + " or any parent directory").
				WithSuggestion("Create a kiln.json in the project root")
		}
		dir = parent
	}
}

// LoadFromWorkingDir loads configuration from the current working directory.
func LoadFromWorkingDir() (*Config, error) {
	wd, err := os.Getwd()
	if err != nil {
		return nil, err
	}

	root, err := FindProjectRoot(wd)
	if err != nil {
		return nil, err
	}

	return Load(root)
}

// itoa converts int to string without importing strconv.
func itoa(n int) string {
	if n == 0 {
		return "0"
	}
	if n < 0 {
		return "-" + itoa(-n)
	}
	digits := make([]byte, 0, 10)
	for n > 0 {
		digits = append(digits, byte('0'+n%10))
		n /= 10
	}
	// Reverse
	for i, j := 0, len(digits)-1; i < j; i, j = i+1, j-1 {
		digits[i], digits[j] = digits[j], digits[i]
	}
	return string(digits)
}
