package manifest

import (
	"encoding/json"
	"os"
	"path/filepath"

	"github.com/kiln-dev/kiln/internal/errors"
)

// BuildIDName is the file holding the build's identifier.
const BuildIDName = "BUILD_ID"

// ExportMarkerName is the export marker's file name.
const ExportMarkerName = "export-marker.json"

// ExportMarker records that the export stage ran and what it produced.
type ExportMarker struct {
	Version       int    `json:"version"`
	BuildID       string `json:"buildId"`
	ExportedPaths int    `json:"exportedPaths"`
	Skipped       bool   `json:"skipped"`
	Static404     bool   `json:"static404"`
}

// WriteBuildID persists the build ID at the root of the dist directory.
func WriteBuildID(distDir, buildID string) error {
	path := filepath.Join(distDir, BuildIDName)
	if err := os.MkdirAll(distDir, 0755); err != nil {
		return errors.New("E240").WithDetail(path).Wrap(err)
	}
	if err := os.WriteFile(path, []byte(buildID), 0644); err != nil {
		return errors.New("E240").WithDetail(path).Wrap(err)
	}
	return nil
}

// ReadBuildID loads a previously persisted build ID.
func ReadBuildID(distDir string) (string, error) {
	data, err := os.ReadFile(filepath.Join(distDir, BuildIDName))
	if err != nil {
		return "", err
	}
	return string(data), nil
}

// WriteExportMarker serializes the marker into the dist directory.
func WriteExportMarker(distDir string, marker ExportMarker) error {
	return WriteJSON(filepath.Join(distDir, ExportMarkerName), marker)
}

// ReadExportMarker loads a previously written export marker.
func ReadExportMarker(distDir string) (ExportMarker, error) {
	var marker ExportMarker
	data, err := os.ReadFile(filepath.Join(distDir, ExportMarkerName))
	if err != nil {
		return marker, err
	}
	if err := json.Unmarshal(data, &marker); err != nil {
		return marker, err
	}
	return marker, nil
}
