package minio_storage

import (
	"bytes"
	"context"
	"fmt"
	"mime"
	"path/filepath"
	"strings"

	"github.com/minio/minio-go/v7"
)

// AssetStore re-hosts migrated legacy assets. Keys are derived from the
// legacy asset id so a re-run of the migration lands on the same object.
type AssetStore struct {
	storage       *MinioStorage
	bucket        string
	publicBaseURL string
}

func NewAssetStore(storage *MinioStorage, bucketName, publicBaseURL string) *AssetStore {
	return &AssetStore{
		storage:       storage,
		bucket:        bucketName,
		publicBaseURL: strings.TrimRight(publicBaseURL, "/"),
	}
}

// PublicPrefix is the URL prefix every re-hosted asset lives under; the
// migration engine uses it to recognize already-migrated references.
func (s *AssetStore) PublicPrefix() string {
	return s.publicBaseURL + "/assets/"
}

func (s *AssetStore) Upload(ctx context.Context, assetID string, filename string, data []byte, contentType string) (string, error) {
	ext := filepath.Ext(filename)
	if ext == "" {
		ext = ".bin"
	}
	if contentType == "" {
		contentType = mime.TypeByExtension(ext)
		if contentType == "" {
			contentType = "application/octet-stream"
		}
	}

	objectKey := fmt.Sprintf("assets/%s%s", assetID, ext)
	_, err := s.storage.client.PutObject(
		ctx,
		s.bucket,
		objectKey,
		bytes.NewReader(data),
		int64(len(data)),
		minio.PutObjectOptions{ContentType: contentType},
	)
	if err != nil {
		return "", fmt.Errorf("upload asset %s: %w", assetID, err)
	}
	return s.publicBaseURL + "/" + objectKey, nil
}
