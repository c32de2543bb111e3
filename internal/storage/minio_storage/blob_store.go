package minio_storage

import (
	"CourseVault/internal/app_errors"
	"CourseVault/internal/blobcodec"
	"CourseVault/internal/models"
	"bytes"
	"context"
	"fmt"
	"io"

	"github.com/google/uuid"
	"github.com/minio/minio-go/v7"
)

// BlobStore is the durable, quota-free home of course blobs. Objects are
// write-once: a handle minted at upload is the only way to retrieve a blob,
// there is no listing or query path. Old handles are never deleted.
type BlobStore struct {
	storage *MinioStorage
	bucket  string
	enabled bool
}

func NewBlobStore(storage *MinioStorage, bucketName string, enabled bool) *BlobStore {
	return &BlobStore{storage: storage, bucket: bucketName, enabled: enabled}
}

// Enabled reports whether the blob host is configured. Publishes must
// short-circuit when it is false: there is no secondary path for the
// authoritative blob.
func (s *BlobStore) Enabled() bool {
	return s.enabled
}

func (s *BlobStore) Upload(ctx context.Context, courseID uuid.UUID, blob *models.Blob) (handle string, hash string, err error) {
	if !s.enabled {
		return "", "", app_errors.ErrStorageUnavailable
	}
	data, err := blobcodec.Marshal(blob)
	if err != nil {
		return "", "", err
	}
	hash, err = blobcodec.Hash(blob)
	if err != nil {
		return "", "", err
	}

	handle = fmt.Sprintf("blobs/%s/%s.json", courseID, uuid.New())
	_, err = s.storage.client.PutObject(
		ctx,
		s.bucket,
		handle,
		bytes.NewReader(data),
		int64(len(data)),
		minio.PutObjectOptions{ContentType: "application/json"},
	)
	if err != nil {
		return "", "", fmt.Errorf("upload blob %s: %w", handle, err)
	}
	return handle, hash, nil
}

func (s *BlobStore) Download(ctx context.Context, handle string) (*models.Blob, error) {
	obj, err := s.storage.client.GetObject(ctx, s.bucket, handle, minio.GetObjectOptions{})
	if err != nil {
		return nil, fmt.Errorf("download blob %s: %w", handle, err)
	}
	defer obj.Close()

	data, err := io.ReadAll(obj)
	if err != nil {
		if minio.ToErrorResponse(err).Code == "NoSuchKey" {
			return nil, fmt.Errorf("download blob %s: %w", handle, app_errors.ErrBlobNotFound)
		}
		return nil, fmt.Errorf("download blob %s: %w", handle, err)
	}
	return blobcodec.Unmarshal(data)
}
