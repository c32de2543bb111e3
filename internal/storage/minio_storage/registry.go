package minio_storage

import (
	"CourseVault/internal/models"
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"time"

	"github.com/google/uuid"
	"github.com/minio/minio-go/v7"
)

const registryPrefix = "registry/"

// FallbackRegistry mirrors the pointer record for every course the
// application has touched, as small JSON records in a dedicated bucket. It
// keeps the catalog usable when the primary metadata store is down; it never
// stores blob content, only the pointer and browsing metadata.
type FallbackRegistry struct {
	storage *MinioStorage
	bucket  string
}

func NewFallbackRegistry(storage *MinioStorage, bucketName string) *FallbackRegistry {
	return &FallbackRegistry{storage: storage, bucket: bucketName}
}

func (r *FallbackRegistry) key(courseID uuid.UUID) string {
	return registryPrefix + courseID.String() + ".json"
}

// Get returns nil without error when no mirror exists for the course.
func (r *FallbackRegistry) Get(ctx context.Context, courseID uuid.UUID) (*models.LocalRegistryEntry, error) {
	obj, err := r.storage.client.GetObject(ctx, r.bucket, r.key(courseID), minio.GetObjectOptions{})
	if err != nil {
		return nil, fmt.Errorf("registry get %s: %w", courseID, err)
	}
	defer obj.Close()

	data, err := io.ReadAll(obj)
	if err != nil {
		if minio.ToErrorResponse(err).Code == "NoSuchKey" {
			return nil, nil
		}
		return nil, fmt.Errorf("registry get %s: %w", courseID, err)
	}
	var entry models.LocalRegistryEntry
	if err := json.Unmarshal(data, &entry); err != nil {
		return nil, fmt.Errorf("registry get %s: %w", courseID, err)
	}
	return &entry, nil
}

// Add creates or overwrites the mirror. The entry always lands dirty; only
// MarkSynced clears pending_sync.
func (r *FallbackRegistry) Add(ctx context.Context, courseID uuid.UUID, pointer models.PointerRecord, meta models.CourseMeta, sections []models.SectionIndex) error {
	entry := models.LocalRegistryEntry{
		CourseID:    courseID,
		FileHandle:  pointer.FileHandle,
		Pointer:     pointer,
		Meta:        meta,
		Sections:    sections,
		PendingSync: true,
		CreatedAt:   time.Now().UTC(),
	}
	return r.put(ctx, entry)
}

func (r *FallbackRegistry) MarkSynced(ctx context.Context, courseID uuid.UUID) error {
	entry, err := r.Get(ctx, courseID)
	if err != nil {
		return err
	}
	if entry == nil {
		return nil
	}
	entry.PendingSync = false
	return r.put(ctx, *entry)
}

func (r *FallbackRegistry) put(ctx context.Context, entry models.LocalRegistryEntry) error {
	data, err := json.Marshal(entry)
	if err != nil {
		return fmt.Errorf("registry put %s: %w", entry.CourseID, err)
	}
	_, err = r.storage.client.PutObject(
		ctx,
		r.bucket,
		r.key(entry.CourseID),
		bytes.NewReader(data),
		int64(len(data)),
		minio.PutObjectOptions{ContentType: "application/json"},
	)
	if err != nil {
		return fmt.Errorf("registry put %s: %w", entry.CourseID, err)
	}
	return nil
}

// List returns every mirrored entry. The registry bucket is the one store
// where listing is part of the contract; the sync queue and the stats
// endpoint both ride on it.
func (r *FallbackRegistry) List(ctx context.Context) ([]models.LocalRegistryEntry, error) {
	var entries []models.LocalRegistryEntry
	for obj := range r.storage.client.ListObjects(ctx, r.bucket, minio.ListObjectsOptions{Prefix: registryPrefix}) {
		if obj.Err != nil {
			return nil, fmt.Errorf("registry list: %w", obj.Err)
		}
		reader, err := r.storage.client.GetObject(ctx, r.bucket, obj.Key, minio.GetObjectOptions{})
		if err != nil {
			return nil, fmt.Errorf("registry list: %w", err)
		}
		data, err := io.ReadAll(reader)
		reader.Close()
		if err != nil {
			return nil, fmt.Errorf("registry list: read %s: %w", obj.Key, err)
		}
		var entry models.LocalRegistryEntry
		if err := json.Unmarshal(data, &entry); err != nil {
			return nil, fmt.Errorf("registry list: decode %s: %w", obj.Key, err)
		}
		entries = append(entries, entry)
	}
	return entries, nil
}

func (r *FallbackRegistry) Stats(ctx context.Context) (models.RegistryStats, error) {
	entries, err := r.List(ctx)
	if err != nil {
		return models.RegistryStats{}, err
	}
	stats := models.RegistryStats{Count: len(entries)}
	for _, e := range entries {
		stats.CourseIDs = append(stats.CourseIDs, e.CourseID)
	}
	return stats, nil
}
