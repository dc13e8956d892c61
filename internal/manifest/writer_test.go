package manifest

import (
	"os"
	"path/filepath"
	"testing"
)

func TestWriteJSONCreatesDirs(t *testing.T) {
	dir := t.TempDir()
	target := filepath.Join(dir, "server", "nested", "out.json")

	if err := WriteJSON(target, map[string]int{"a": 1}); err != nil {
		t.Fatalf("WriteJSON() error: %v", err)
	}

	data, err := os.ReadFile(target)
	if err != nil {
		t.Fatalf("ReadFile() error: %v", err)
	}
	want := "{\n  \"a\": 1\n}"
	if string(data) != want {
		t.Errorf("WriteJSON() wrote %q, want %q", data, want)
	}
}

func TestBuildIDRoundTrip(t *testing.T) {
	dist := t.TempDir()

	if err := WriteBuildID(dist, "abc123"); err != nil {
		t.Fatalf("WriteBuildID() error: %v", err)
	}
	got, err := ReadBuildID(dist)
	if err != nil {
		t.Fatalf("ReadBuildID() error: %v", err)
	}
	if got != "abc123" {
		t.Errorf("ReadBuildID() = %q, want %q", got, "abc123")
	}
}

func TestWriteExportMarker(t *testing.T) {
	dist := t.TempDir()

	marker := ExportMarker{
		Version:       1,
		BuildID:       "bid1",
		ExportedPaths: 2,
		Static404:     true,
	}
	if err := WriteExportMarker(dist, marker); err != nil {
		t.Fatalf("WriteExportMarker() error: %v", err)
	}

	got, err := ReadExportMarker(dist)
	if err != nil {
		t.Fatalf("ReadExportMarker() error: %v", err)
	}
	if got != marker {
		t.Errorf("ReadExportMarker() = %+v, want %+v", got, marker)
	}
	if _, err := os.Stat(filepath.Join(dist, ExportMarkerName)); err != nil {
		t.Errorf("Stat(%s) error: %v", ExportMarkerName, err)
	}
}
