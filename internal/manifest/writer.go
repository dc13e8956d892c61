package manifest

import (
	"encoding/json"
	"os"
	"path/filepath"

	"github.com/kiln-dev/kiln/internal/errors"
)

// WriteJSON writes v as indented JSON to path, creating parent directories
// on demand. Map keys serialize sorted, so equal state yields equal bytes.
func WriteJSON(path string, v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return errors.New("E240").WithDetail(path).Wrap(err)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return errors.New("E240").WithDetail(path).Wrap(err)
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return errors.New("E240").WithDetail(path).Wrap(err)
	}
	return nil
}
