package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestNew(t *testing.T) {
	cfg := New()

	if cfg.Paths.Pages != DefaultPagesDir {
		t.Errorf("Paths.Pages = %q, want %q", cfg.Paths.Pages, DefaultPagesDir)
	}
	if cfg.Paths.Public != DefaultPublicDir {
		t.Errorf("Paths.Public = %q, want %q", cfg.Paths.Public, DefaultPublicDir)
	}
	if cfg.Build.Dist != DefaultDist {
		t.Errorf("Build.Dist = %q, want %q", cfg.Build.Dist, DefaultDist)
	}
	if cfg.Build.Target != TargetServer {
		t.Errorf("Build.Target = %q, want %q", cfg.Build.Target, TargetServer)
	}
	if cfg.Preview.Port != DefaultPreviewPort {
		t.Errorf("Preview.Port = %d, want %d", cfg.Preview.Port, DefaultPreviewPort)
	}
	if len(cfg.Build.PageExtensions) == 0 {
		t.Error("Build.PageExtensions should default to a non-empty list")
	}
}

func TestLoad(t *testing.T) {
	tmpDir := t.TempDir()

	// Test loading non-existent config
	_, err := Load(tmpDir)
	if err == nil {
		t.Error("Expected error for missing config")
	}

	// Create a config file
	configPath := filepath.Join(tmpDir, ConfigFileName)
	configJSON := `{
  "name": "docs-site",
  "build": {
    "dist": "build-out",
    "target": "isolated",
    "workers": 4
  },
  "routes": {
    "redirects": [
      { "source": "/old-blog/[slug]", "destination": "/blog/[slug]", "permanent": true }
    ],
    "headers": [
      { "source": "/fonts/[name]", "headers": [{ "key": "Cache-Control", "value": "immutable" }] }
    ]
  },
  "preview": {
    "port": 8080,
    "host": "0.0.0.0"
  }
}
`
	if err := os.WriteFile(configPath, []byte(configJSON), 0644); err != nil {
		t.Fatal(err)
	}

	// Load the config
	cfg, err := Load(tmpDir)
	if err != nil {
		t.Fatalf("Load error: %v", err)
	}

	if cfg.Name != "docs-site" {
		t.Errorf("Name = %q, want %q", cfg.Name, "docs-site")
	}
	if cfg.Build.Dist != "build-out" {
		t.Errorf("Build.Dist = %q, want %q", cfg.Build.Dist, "build-out")
	}
	if cfg.Build.Target != TargetIsolated {
		t.Errorf("Build.Target = %q, want %q", cfg.Build.Target, TargetIsolated)
	}
	if cfg.Build.Workers != 4 {
		t.Errorf("Build.Workers = %d, want %d", cfg.Build.Workers, 4)
	}
	if cfg.Preview.Port != 8080 {
		t.Errorf("Preview.Port = %d, want %d", cfg.Preview.Port, 8080)
	}
	if cfg.Preview.Host != "0.0.0.0" {
		t.Errorf("Preview.Host = %q, want %q", cfg.Preview.Host, "0.0.0.0")
	}

	// Defaults fill in untouched sections
	if cfg.Paths.Pages != DefaultPagesDir {
		t.Errorf("Paths.Pages = %q, want default %q", cfg.Paths.Pages, DefaultPagesDir)
	}

	// Rules survive the round trip
	if len(cfg.Routes.Redirects) != 1 {
		t.Fatalf("Redirects = %d, want 1", len(cfg.Routes.Redirects))
	}
	if cfg.Routes.Redirects[0].Source != "/old-blog/[slug]" {
		t.Errorf("Redirects[0].Source = %q", cfg.Routes.Redirects[0].Source)
	}
	if !cfg.Routes.Redirects[0].Permanent {
		t.Error("Redirects[0].Permanent should be true")
	}
	if len(cfg.Routes.Headers) != 1 || len(cfg.Routes.Headers[0].Headers) != 1 {
		t.Fatalf("Headers rule not loaded: %+v", cfg.Routes.Headers)
	}
	if cfg.Routes.Headers[0].Headers[0].Key != "Cache-Control" {
		t.Errorf("Header key = %q", cfg.Routes.Headers[0].Headers[0].Key)
	}
}

func TestLoadMalformed(t *testing.T) {
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, ConfigFileName)
	if err := os.WriteFile(configPath, []byte("{not json"), 0644); err != nil {
		t.Fatal(err)
	}

	_, err := Load(tmpDir)
	if err == nil {
		t.Fatal("Expected error for malformed config")
	}
	if !strings.Contains(err.Error(), "E120") {
		t.Errorf("error = %v, want E120", err)
	}
}

func TestSaveTo(t *testing.T) {
	tmpDir := t.TempDir()
	cfg := New()
	cfg.Name = "saved"

	path := filepath.Join(tmpDir, ConfigFileName)
	if err := cfg.SaveTo(path); err != nil {
		t.Fatalf("SaveTo error: %v", err)
	}

	loaded, err := LoadFile(path)
	if err != nil {
		t.Fatalf("LoadFile error: %v", err)
	}
	if loaded.Name != "saved" {
		t.Errorf("Name = %q, want %q", loaded.Name, "saved")
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	if !strings.HasSuffix(string(data), "\n") {
		t.Error("Saved config should end with a newline")
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name     string
		mutate   func(*Config)
		wantCode string
	}{
		{
			name:     "valid default",
			mutate:   func(c *Config) {},
			wantCode: "",
		},
		{
			name:     "negative port",
			mutate:   func(c *Config) { c.Preview.Port = -1 },
			wantCode: "E122",
		},
		{
			name:     "port too large",
			mutate:   func(c *Config) { c.Preview.Port = 70000 },
			wantCode: "E122",
		},
		{
			name:     "negative workers",
			mutate:   func(c *Config) { c.Build.Workers = -2 },
			wantCode: "E124",
		},
		{
			name:     "bad target",
			mutate:   func(c *Config) { c.Build.Target = "lambda" },
			wantCode: "E120",
		},
		{
			name: "dotted page extension",
			mutate: func(c *Config) {
				c.Build.PageExtensions = []string{".tsx"}
			},
			wantCode: "E124",
		},
		{
			name: "redirect missing destination",
			mutate: func(c *Config) {
				c.Routes.Redirects = []RedirectRule{{Source: "/a"}}
			},
			wantCode: "E121",
		},
		{
			name: "header rule without headers",
			mutate: func(c *Config) {
				c.Routes.Headers = []HeaderRule{{Source: "/a"}}
			},
			wantCode: "E121",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := New()
			tt.mutate(cfg)
			err := cfg.Validate()
			if tt.wantCode == "" {
				if err != nil {
					t.Errorf("Validate() = %v, want nil", err)
				}
				return
			}
			if err == nil {
				t.Fatalf("Validate() = nil, want %s", tt.wantCode)
			}
			if !strings.Contains(err.Error(), tt.wantCode) {
				t.Errorf("Validate() = %v, want code %s", err, tt.wantCode)
			}
		})
	}
}

func TestPathAccessors(t *testing.T) {
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, ConfigFileName)
	if err := os.WriteFile(configPath, []byte("{}\n"), 0644); err != nil {
		t.Fatal(err)
	}

	cfg, err := Load(tmpDir)
	if err != nil {
		t.Fatal(err)
	}

	if got, want := cfg.PagesPath(), filepath.Join(tmpDir, "pages"); got != want {
		t.Errorf("PagesPath() = %q, want %q", got, want)
	}
	if got, want := cfg.DistPath(), filepath.Join(tmpDir, ".kiln"); got != want {
		t.Errorf("DistPath() = %q, want %q", got, want)
	}
	if got, want := cfg.ServerPath(), filepath.Join(tmpDir, ".kiln", "server"); got != want {
		t.Errorf("ServerPath() = %q, want %q", got, want)
	}
	if got, want := cfg.StaticPath(), filepath.Join(tmpDir, ".kiln", "static"); got != want {
		t.Errorf("StaticPath() = %q, want %q", got, want)
	}
	if got, want := cfg.ScratchPath(), filepath.Join(tmpDir, ".kiln", "export"); got != want {
		t.Errorf("ScratchPath() = %q, want %q", got, want)
	}
}

func TestFindProjectRoot(t *testing.T) {
	tmpDir := t.TempDir()
	nested := filepath.Join(tmpDir, "a", "b", "c")
	if err := os.MkdirAll(nested, 0755); err != nil {
		t.Fatal(err)
	}
	configPath := filepath.Join(tmpDir, ConfigFileName)
	if err := os.WriteFile(configPath, []byte("{}\n"), 0644); err != nil {
		t.Fatal(err)
	}

	root, err := FindProjectRoot(nested)
	if err != nil {
		t.Fatalf("FindProjectRoot error: %v", err)
	}
	// Resolve symlinks so macOS /private/var aliases compare equal.
	wantRoot, _ := filepath.EvalSymlinks(tmpDir)
	gotRoot, _ := filepath.EvalSymlinks(root)
	if gotRoot != wantRoot {
		t.Errorf("FindProjectRoot = %q, want %q", gotRoot, wantRoot)
	}
}

func TestPreviewAddress(t *testing.T) {
	cfg := New()
	cfg.Preview.Host = "127.0.0.1"
	cfg.Preview.Port = 4000
	if got := cfg.PreviewAddress(); got != "127.0.0.1:4000" {
		t.Errorf("PreviewAddress() = %q, want %q", got, "127.0.0.1:4000")
	}
}

func TestLoadRuntimeEnv(t *testing.T) {
	tmpDir := t.TempDir()

	// No env files: empty map, no error
	env, err := LoadRuntimeEnv(tmpDir)
	if err != nil {
		t.Fatalf("LoadRuntimeEnv error: %v", err)
	}
	if len(env) != 0 {
		t.Errorf("env = %v, want empty", env)
	}

	// .env then .env.production overlay
	if err := os.WriteFile(filepath.Join(tmpDir, ".env"), []byte("API_URL=http://localhost\nSHARED=base\n"), 0644); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(tmpDir, ".env.production"), []byte("API_URL=https://api.example.com\n"), 0644); err != nil {
		t.Fatal(err)
	}

	env, err = LoadRuntimeEnv(tmpDir)
	if err != nil {
		t.Fatalf("LoadRuntimeEnv error: %v", err)
	}
	if env["API_URL"] != "https://api.example.com" {
		t.Errorf("API_URL = %q, want production override", env["API_URL"])
	}
	if env["SHARED"] != "base" {
		t.Errorf("SHARED = %q, want %q", env["SHARED"], "base")
	}
}
