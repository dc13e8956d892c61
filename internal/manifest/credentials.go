package manifest

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"

	"github.com/google/uuid"
)

// PreviewCredentials authenticate preview-mode requests against the
// runtime. One set is generated per build and embedded unchanged wherever
// it appears.
type PreviewCredentials struct {
	ID            string `json:"previewId"`
	SigningKey    string `json:"previewSigningKey"`
	EncryptionKey string `json:"previewEncryptionKey"`
}

// NewPreviewCredentials generates a fresh credential set: a UUID id and
// two 256-bit random keys.
func NewPreviewCredentials() (PreviewCredentials, error) {
	signing, err := randomHex(32)
	if err != nil {
		return PreviewCredentials{}, err
	}
	encryption, err := randomHex(32)
	if err != nil {
		return PreviewCredentials{}, err
	}
	return PreviewCredentials{
		ID:            uuid.NewString(),
		SigningKey:    signing,
		EncryptionKey: encryption,
	}, nil
}

func randomHex(n int) (string, error) {
	buf := make([]byte, n)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("generate preview key: %w", err)
	}
	return hex.EncodeToString(buf), nil
}
