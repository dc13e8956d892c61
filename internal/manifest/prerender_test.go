package manifest

import (
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	kilnerrors "github.com/kiln-dev/kiln/internal/errors"
)

func TestRevalidateMarshal(t *testing.T) {
	tests := []struct {
		in   Revalidate
		want string
	}{
		{60, "60"},
		{0, "0"},
		{RevalidateNever, "false"},
		{-5, "false"},
	}

	for _, tt := range tests {
		got, err := json.Marshal(tt.in)
		if err != nil {
			t.Fatalf("Marshal(%d) error: %v", tt.in, err)
		}
		if string(got) != tt.want {
			t.Errorf("Marshal(%d) = %s, want %s", tt.in, got, tt.want)
		}
	}
}

func TestRevalidateUnmarshal(t *testing.T) {
	var r Revalidate
	if err := json.Unmarshal([]byte("false"), &r); err != nil {
		t.Fatalf("Unmarshal(false) error: %v", err)
	}
	if r != RevalidateNever {
		t.Errorf("Unmarshal(false) = %d, want RevalidateNever", r)
	}

	if err := json.Unmarshal([]byte("3600"), &r); err != nil {
		t.Fatalf("Unmarshal(3600) error: %v", err)
	}
	if r != 3600 {
		t.Errorf("Unmarshal(3600) = %d", r)
	}

	if err := json.Unmarshal([]byte(`"soon"`), &r); err == nil {
		t.Error("Unmarshal(string) should fail")
	}
}

func TestFallbackMarshal(t *testing.T) {
	got, err := json.Marshal(Fallback(""))
	if err != nil {
		t.Fatalf("Marshal() error: %v", err)
	}
	if string(got) != "false" {
		t.Errorf("Marshal(empty) = %s, want false", got)
	}

	got, err = json.Marshal(Fallback("/post/[id].html"))
	if err != nil {
		t.Fatalf("Marshal() error: %v", err)
	}
	if string(got) != `"/post/[id].html"` {
		t.Errorf("Marshal(template) = %s", got)
	}
}

func testPreview() PreviewCredentials {
	return PreviewCredentials{
		ID:            "11111111-2222-3333-4444-555555555555",
		SigningKey:    "aa",
		EncryptionKey: "bb",
	}
}

func TestBuildPrerenderManifestFallbackScenario(t *testing.T) {
	m, err := BuildPrerenderManifest(PrerenderInput{
		SSGPages:        []string{"/post/[id]"},
		FallbackPages:   map[string]bool{"/post/[id]": true},
		PrerenderRoutes: map[string][]string{"/post/[id]": {"/post/a", "/post/b"}},
		Revalidate:      map[string]int64{"/post/a": 60, "/post/b": -1},
		BuildID:         "bid1",
		Preview:         testPreview(),
	})
	if err != nil {
		t.Fatalf("BuildPrerenderManifest() error: %v", err)
	}

	routeA, ok := m.Routes["/post/a"]
	if !ok {
		t.Fatal("Routes missing /post/a")
	}
	if routeA.SrcRoute == nil || *routeA.SrcRoute != "/post/[id]" {
		t.Errorf("SrcRoute = %v, want /post/[id]", routeA.SrcRoute)
	}
	if routeA.DataRoute != "/_kiln/data/bid1/post/a.json" {
		t.Errorf("DataRoute = %q", routeA.DataRoute)
	}
	if routeA.InitialRevalidateSeconds != 60 {
		t.Errorf("InitialRevalidateSeconds = %d, want 60", routeA.InitialRevalidateSeconds)
	}

	if m.Routes["/post/b"].InitialRevalidateSeconds != RevalidateNever {
		t.Errorf("/post/b revalidate = %d, want never", m.Routes["/post/b"].InitialRevalidateSeconds)
	}

	dyn, ok := m.DynamicRoutes["/post/[id]"]
	if !ok {
		t.Fatal("DynamicRoutes missing /post/[id]")
	}
	if want := `^/post/(?P<id>[^/]+?)(?:/)?$`; dyn.RouteRegex != want {
		t.Errorf("RouteRegex = %q, want %q", dyn.RouteRegex, want)
	}
	if dyn.Fallback != "/post/[id].html" {
		t.Errorf("Fallback = %q, want /post/[id].html", dyn.Fallback)
	}
	if want := `^/_kiln/data/bid1/post/(?P<id>[^/]+?)\.json$`; dyn.DataRouteRegex != want {
		t.Errorf("DataRouteRegex = %q, want %q", dyn.DataRouteRegex, want)
	}

	if err := m.Validate(); err != nil {
		t.Errorf("Validate() error: %v", err)
	}
}

func TestBuildPrerenderManifestNoFallback(t *testing.T) {
	m, err := BuildPrerenderManifest(PrerenderInput{
		SSGPages:        []string{"/post/[id]"},
		PrerenderRoutes: map[string][]string{"/post/[id]": {"/post/a"}},
		BuildID:         "bid1",
		Preview:         testPreview(),
	})
	if err != nil {
		t.Fatalf("BuildPrerenderManifest() error: %v", err)
	}

	if m.DynamicRoutes["/post/[id]"].Fallback != "" {
		t.Errorf("Fallback = %q, want disabled", m.DynamicRoutes["/post/[id]"].Fallback)
	}

	data, err := json.Marshal(m)
	if err != nil {
		t.Fatalf("Marshal() error: %v", err)
	}
	if !strings.Contains(string(data), `"fallback": false`) && !strings.Contains(string(data), `"fallback":false`) {
		t.Errorf("serialized manifest should carry fallback false: %s", data)
	}
}

func TestBuildPrerenderManifestLiteralSSG(t *testing.T) {
	m, err := BuildPrerenderManifest(PrerenderInput{
		SSGPages:   []string{"/pricing"},
		Revalidate: map[string]int64{"/pricing": 300},
		BuildID:    "bid1",
		Preview:    testPreview(),
	})
	if err != nil {
		t.Fatalf("BuildPrerenderManifest() error: %v", err)
	}

	route, ok := m.Routes["/pricing"]
	if !ok {
		t.Fatal("Routes missing /pricing")
	}
	if route.SrcRoute != nil {
		t.Errorf("SrcRoute = %v, want nil for a page rendered from its own key", *route.SrcRoute)
	}
	if route.InitialRevalidateSeconds != 300 {
		t.Errorf("InitialRevalidateSeconds = %d, want 300", route.InitialRevalidateSeconds)
	}
	if len(m.DynamicRoutes) != 0 {
		t.Errorf("DynamicRoutes = %v, want empty", m.DynamicRoutes)
	}
}

func TestPrerenderManifestWrittenWithZeroSSGPages(t *testing.T) {
	dist := t.TempDir()

	m, err := BuildPrerenderManifest(PrerenderInput{BuildID: "bid1", Preview: testPreview()})
	if err != nil {
		t.Fatalf("BuildPrerenderManifest() error: %v", err)
	}
	if err := m.Write(dist); err != nil {
		t.Fatalf("Write() error: %v", err)
	}

	data, err := os.ReadFile(filepath.Join(dist, PrerenderManifestName))
	if err != nil {
		t.Fatalf("ReadFile() error: %v", err)
	}
	if !strings.Contains(string(data), `"routes": {}`) {
		t.Errorf("manifest should serialize empty routes: %s", data)
	}
	if !strings.Contains(string(data), `"dynamicRoutes": {}`) {
		t.Errorf("manifest should serialize empty dynamicRoutes: %s", data)
	}
	if !strings.Contains(string(data), testPreview().ID) {
		t.Error("manifest should embed the preview credentials")
	}
}

func TestPrerenderManifestIdempotent(t *testing.T) {
	dist := t.TempDir()

	in := PrerenderInput{
		SSGPages:        []string{"/post/[id]", "/pricing"},
		FallbackPages:   map[string]bool{"/post/[id]": true},
		PrerenderRoutes: map[string][]string{"/post/[id]": {"/post/a"}},
		Revalidate:      map[string]int64{"/post/a": 60, "/pricing": -1},
		BuildID:         "bid1",
		Preview:         testPreview(),
	}

	m1, err := BuildPrerenderManifest(in)
	if err != nil {
		t.Fatalf("BuildPrerenderManifest() error: %v", err)
	}
	if err := m1.Write(dist); err != nil {
		t.Fatalf("Write() error: %v", err)
	}
	first, err := os.ReadFile(filepath.Join(dist, PrerenderManifestName))
	if err != nil {
		t.Fatalf("ReadFile() error: %v", err)
	}

	m2, err := BuildPrerenderManifest(in)
	if err != nil {
		t.Fatalf("BuildPrerenderManifest() error: %v", err)
	}
	if err := m2.Write(dist); err != nil {
		t.Fatalf("second Write() error: %v", err)
	}
	second, err := os.ReadFile(filepath.Join(dist, PrerenderManifestName))
	if err != nil {
		t.Fatalf("ReadFile() error: %v", err)
	}

	if string(first) != string(second) {
		t.Error("equal state should serialize to byte-identical manifests")
	}
}

func TestPrerenderManifestValidateOrphans(t *testing.T) {
	ghost := "/ghost/[id]"
	m := &PrerenderManifest{
		Version: 1,
		Routes: map[string]PrerenderRoute{
			"/ghost/a": {SrcRoute: &ghost},
			"/ghost/b": {SrcRoute: &ghost},
		},
		DynamicRoutes: map[string]PrerenderDynamicRoute{},
	}

	err := m.Validate()
	if err == nil {
		t.Fatal("Validate() should reject routes with missing dynamic routes")
	}

	var ke *kilnerrors.KilnError
	if !errors.As(err, &ke) {
		t.Fatalf("error type = %T, want *KilnError", err)
	}
	if ke.Code != "E241" {
		t.Errorf("Code = %q, want E241", ke.Code)
	}
	if !strings.Contains(ke.Detail, "/ghost/a") || !strings.Contains(ke.Detail, "/ghost/b") {
		t.Errorf("Detail should list every orphan: %q", ke.Detail)
	}

	if err := m.Write(t.TempDir()); err == nil {
		t.Error("Write() should refuse a manifest that fails validation")
	}
}
