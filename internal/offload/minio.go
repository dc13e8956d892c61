package offload

import (
	"context"
	"fmt"
	"mime"
	"path/filepath"
	"strings"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"

	"github.com/kiln-dev/kiln/internal/config"
	"github.com/kiln-dev/kiln/internal/errors"
)

// MinIOUploader uploads to a MinIO deployment. Credentials come from
// MINIO_ACCESS_KEY and MINIO_SECRET_KEY.
type MinIOUploader struct {
	client *minio.Client
	bucket string
	useSSL bool
}

// NewMinIOUploader builds a MinIO client from the offload configuration.
func NewMinIOUploader(cfg config.OffloadConfig) (*MinIOUploader, error) {
	// The MinIO client wants host:port, not a URL.
	endpoint := strings.TrimPrefix(cfg.Endpoint, "https://")
	endpoint = strings.TrimPrefix(endpoint, "http://")

	client, err := minio.New(endpoint, &minio.Options{
		Creds:  credentials.NewEnvMinio(),
		Secure: cfg.UseSSL,
		Region: cfg.Region,
	})
	if err != nil {
		return nil, errors.New("E260").WithDetail(cfg.Endpoint).Wrap(err)
	}

	return &MinIOUploader{client: client, bucket: cfg.Bucket, useSSL: cfg.UseSSL}, nil
}

func (u *MinIOUploader) Upload(ctx context.Context, localPath, remoteKey, cacheControl string) (string, error) {
	contentType := mime.TypeByExtension(filepath.Ext(localPath))
	if contentType == "" {
		contentType = "application/octet-stream"
	}

	_, err := u.client.FPutObject(ctx, u.bucket, remoteKey, localPath, minio.PutObjectOptions{
		ContentType:  contentType,
		CacheControl: cacheControl,
	})
	if err != nil {
		return "", fmt.Errorf("upload object %s: %w", remoteKey, err)
	}

	scheme := "http"
	if u.useSSL {
		scheme = "https"
	}
	return fmt.Sprintf("%s://%s/%s/%s", scheme, u.client.EndpointURL().Host, u.bucket, remoteKey), nil
}
