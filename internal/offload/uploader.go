package offload

import (
	"context"
	"fmt"
	"sync"

	"github.com/kiln-dev/kiln/internal/config"
	"github.com/kiln-dev/kiln/internal/errors"
)

// Uploader pushes one local file to an object store and returns the
// public URL it is reachable under.
type Uploader interface {
	Upload(ctx context.Context, localPath, remoteKey, cacheControl string) (string, error)
}

// NewUploader builds the uploader named by the offload configuration.
func NewUploader(cfg config.OffloadConfig) (Uploader, error) {
	switch cfg.Provider {
	case "s3", "minio":
	default:
		return nil, errors.New("E261").WithDetail("offload.provider is " + fmt.Sprintf("%q", cfg.Provider))
	}
	if cfg.Bucket == "" {
		return nil, errors.New("E263").
			WithSuggestion("Set offload.bucket in kiln.json or pass --bucket")
	}
	if cfg.Provider == "minio" {
		return NewMinIOUploader(cfg)
	}
	return NewS3Uploader(cfg), nil
}

// MockUploader records uploads instead of performing them. Tests inject it
// through the Uploader seam.
type MockUploader struct {
	// BaseURL prefixes the returned public URLs.
	BaseURL string

	// Fail maps remote keys to the error their upload should return.
	Fail map[string]error

	mu      sync.Mutex
	uploads map[string]string
}

func (m *MockUploader) Upload(ctx context.Context, localPath, remoteKey, cacheControl string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	if err := m.Fail[remoteKey]; err != nil {
		return "", err
	}

	m.mu.Lock()
	if m.uploads == nil {
		m.uploads = map[string]string{}
	}
	m.uploads[remoteKey] = cacheControl
	m.mu.Unlock()

	return m.BaseURL + "/" + remoteKey, nil
}

// Uploaded returns the cache-control header recorded for a key and whether
// the key was uploaded at all.
func (m *MockUploader) Uploaded(key string) (string, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	cc, ok := m.uploads[key]
	return cc, ok
}

// Count returns how many objects were uploaded.
func (m *MockUploader) Count() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.uploads)
}
