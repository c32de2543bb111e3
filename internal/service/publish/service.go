package publish

import (
	"CourseVault/internal/app_errors"
	"CourseVault/internal/blobcodec"
	"CourseVault/internal/models"
	"CourseVault/pkg/logger"
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
)

const DefaultMetaTimeout = 5 * time.Second

type blobStore interface {
	Enabled() bool
	Upload(ctx context.Context, courseID uuid.UUID, blob *models.Blob) (handle string, hash string, err error)
}

type metaStore interface {
	GetPointer(ctx context.Context, courseID uuid.UUID, variant models.Variant) (*models.PointerRecord, error)
	SetPointer(ctx context.Context, courseID uuid.UUID, variant models.Variant, record models.PointerRecord, meta models.CourseMeta, sections []models.SectionIndex) error
}

type pointerCache interface {
	Get(courseID uuid.UUID, variant models.Variant) *models.PointerRecord
	Set(courseID uuid.UUID, variant models.Variant, record models.PointerRecord)
}

type fallbackRegistry interface {
	Add(ctx context.Context, courseID uuid.UUID, pointer models.PointerRecord, meta models.CourseMeta, sections []models.SectionIndex) error
	MarkSynced(ctx context.Context, courseID uuid.UUID) error
}

type searchIndex interface {
	Index(ctx context.Context, courseID uuid.UUID, meta models.CourseMeta) error
}

// Orchestrator drives a single publish or draft save: encode, upload the
// authoritative blob, race a bounded-time metadata write, then bring the
// pointer cache and fallback registry up to date. Only blob upload failure is
// fatal; a metadata store failure downgrades the result and the sync queue
// reconciles later.
//
// Concurrent publishes for the same course are not serialized: the metadata
// write is last-write-wins and the cache may briefly flicker between
// versions.
type Orchestrator struct {
	log         logger.Log
	blobs       blobStore
	meta        metaStore
	cache       pointerCache
	registry    fallbackRegistry
	search      searchIndex
	metaTimeout time.Duration
}

func NewOrchestrator(log logger.Log, blobs blobStore, meta metaStore, cache pointerCache, registry fallbackRegistry, search searchIndex, metaTimeout time.Duration) *Orchestrator {
	if metaTimeout <= 0 {
		metaTimeout = DefaultMetaTimeout
	}
	return &Orchestrator{
		log:         log,
		blobs:       blobs,
		meta:        meta,
		cache:       cache,
		registry:    registry,
		search:      search,
		metaTimeout: metaTimeout,
	}
}

func (s *Orchestrator) Publish(ctx context.Context, course *models.Course, actorID uuid.UUID) (*models.PublishResult, error) {
	return s.publishVariant(ctx, course, actorID, models.VariantPublished)
}

func (s *Orchestrator) SaveDraft(ctx context.Context, course *models.Course, actorID uuid.UUID) (*models.PublishResult, error) {
	return s.publishVariant(ctx, course, actorID, models.VariantDraft)
}

func (s *Orchestrator) publishVariant(ctx context.Context, course *models.Course, actorID uuid.UUID, variant models.Variant) (*models.PublishResult, error) {
	blob, meta, sections, err := blobcodec.Encode(course)
	if err != nil {
		return nil, err
	}

	if !s.blobs.Enabled() {
		return nil, app_errors.ErrStorageUnavailable
	}

	// Authoritative step: once the blob is up, end users can retrieve the
	// content through the handle no matter what the metadata store does.
	handle, hash, err := s.blobs.Upload(ctx, course.ID, blob)
	if err != nil {
		s.log.ErrorErr("publish: blob upload failed", err, "course_id", course.ID)
		return nil, err
	}

	stats, err := blobcodec.Stats(blob)
	if err != nil {
		return nil, err
	}

	metaCtx, cancel := context.WithTimeout(ctx, s.metaTimeout)
	defer cancel()

	version, prevKnown := 0, false
	prev, prevErr := s.meta.GetPointer(metaCtx, course.ID, variant)
	if prevErr == nil {
		prevKnown = true
		if prev != nil {
			version = prev.Version
		}
	} else if cached := s.cache.Get(course.ID, variant); cached != nil {
		// Provisional numbering: not persisted centrally until the sync
		// queue replays the pointer.
		version = cached.Version
	}
	version++

	record := models.PointerRecord{
		FileHandle:  handle,
		Version:     version,
		Hash:        hash,
		LessonCount: stats.LessonCount,
		BlockCount:  stats.BlockCount,
		Timestamp:   time.Now().UTC(),
		ActorID:     actorID,
	}

	metaUpdated := false
	if prevKnown {
		if err := s.meta.SetPointer(metaCtx, course.ID, variant, record, meta, sections); err != nil {
			s.logDegraded(course.ID, err)
		} else {
			metaUpdated = true
		}
	} else {
		s.logDegraded(course.ID, prevErr)
	}

	if variant == models.VariantDraft {
		record.Dirty = !metaUpdated
	}
	s.cache.Set(course.ID, variant, record)

	// The registry mirrors the published track only. A degraded draft save
	// must never leave a replayable entry behind: the sync queue writes
	// registry pointers into the published variant, and draft content may
	// not reach it. A degraded draft stays dirty in its cached pointer.
	if variant == models.VariantPublished {
		if err := s.registry.Add(ctx, course.ID, record, meta, sections); err != nil {
			s.log.ErrorErr("publish: fallback registry update failed", err, "course_id", course.ID)
		} else if metaUpdated {
			if err := s.registry.MarkSynced(ctx, course.ID); err != nil {
				s.log.ErrorErr("publish: mark synced failed", err, "course_id", course.ID)
			}
		}
	}

	if metaUpdated && variant == models.VariantPublished && s.search != nil {
		if err := s.search.Index(ctx, course.ID, meta); err != nil {
			s.log.ErrorErr("publish: catalog indexing failed", err, "course_id", course.ID)
		}
	}

	return &models.PublishResult{
		Version:     version,
		Hash:        hash,
		LessonCount: stats.LessonCount,
		BlockCount:  stats.BlockCount,
		MetaUpdated: metaUpdated,
	}, nil
}

func (s *Orchestrator) logDegraded(courseID uuid.UUID, err error) {
	switch {
	case errors.Is(err, app_errors.ErrQuotaExhausted):
		s.log.Warn("publish: metadata store quota exhausted, deferring to sync queue", "course_id", courseID)
	case errors.Is(err, app_errors.ErrStoreTimeout):
		s.log.Warn("publish: metadata store write timed out, deferring to sync queue", "course_id", courseID)
	default:
		s.log.ErrorErr("publish: metadata store write failed, deferring to sync queue", err, "course_id", courseID)
	}
}
