package query

import (
	"CourseVault/internal/app_errors"
	"CourseVault/internal/blobcodec"
	"CourseVault/internal/models"
	"CourseVault/pkg/logger"
	"context"
	"time"

	"github.com/google/uuid"
)

type blobStore interface {
	Download(ctx context.Context, handle string) (*models.Blob, error)
}

type metaStore interface {
	GetPointer(ctx context.Context, courseID uuid.UUID, variant models.Variant) (*models.PointerRecord, error)
	GetDocument(ctx context.Context, courseID uuid.UUID) (*models.CourseMetaRecord, error)
}

type pointerCache interface {
	Get(courseID uuid.UUID, variant models.Variant) *models.PointerRecord
	Set(courseID uuid.UUID, variant models.Variant, record models.PointerRecord)
}

type fallbackRegistry interface {
	Get(ctx context.Context, courseID uuid.UUID) (*models.LocalRegistryEntry, error)
}

type searchRepo interface {
	Search(ctx context.Context, query string, size int) ([]uuid.UUID, error)
}

// QueryService is the read path: pointer cache, then primary metadata store,
// then fallback registry, falling through on miss or error at each stage; the
// durable blob store resolves whichever pointer wins.
type QueryService struct {
	log         logger.Log
	blobs       blobStore
	meta        metaStore
	cache       pointerCache
	registry    fallbackRegistry
	search      searchRepo
	metaTimeout time.Duration
}

func NewQueryService(log logger.Log, blobs blobStore, meta metaStore, cache pointerCache, registry fallbackRegistry, search searchRepo, metaTimeout time.Duration) *QueryService {
	if metaTimeout <= 0 {
		metaTimeout = 5 * time.Second
	}
	return &QueryService{
		log:         log,
		blobs:       blobs,
		meta:        meta,
		cache:       cache,
		registry:    registry,
		search:      search,
		metaTimeout: metaTimeout,
	}
}

func (s *QueryService) GetCourse(ctx context.Context, courseID uuid.UUID, variant models.Variant) (*models.Course, *models.PointerRecord, error) {
	if !variant.Valid() {
		return nil, nil, app_errors.ErrBadVariant
	}

	ptr := s.resolvePointer(ctx, courseID, variant)
	if ptr == nil {
		return nil, nil, app_errors.ErrCourseNotFound
	}

	blob, err := s.blobs.Download(ctx, ptr.FileHandle)
	if err != nil {
		return nil, nil, err
	}
	course, err := blobcodec.Decode(blob)
	if err != nil {
		return nil, nil, err
	}
	course.ID = courseID
	return course, ptr, nil
}

func (s *QueryService) resolvePointer(ctx context.Context, courseID uuid.UUID, variant models.Variant) *models.PointerRecord {
	if ptr := s.cache.Get(courseID, variant); ptr != nil {
		return ptr
	}

	metaCtx, cancel := context.WithTimeout(ctx, s.metaTimeout)
	ptr, err := s.meta.GetPointer(metaCtx, courseID, variant)
	cancel()
	if err != nil {
		s.log.Warn("read: metadata store unavailable, falling back to registry",
			"course_id", courseID, "error", err.Error())
	} else if ptr != nil {
		s.cache.Set(courseID, variant, *ptr)
		return ptr
	}

	// The registry only mirrors the published track; a store miss falls
	// through just like a store error.
	if variant != models.VariantPublished {
		return nil
	}
	entry, rerr := s.registry.Get(ctx, courseID)
	if rerr != nil {
		s.log.ErrorErr("read: fallback registry lookup failed", rerr, "course_id", courseID)
		return nil
	}
	if entry == nil {
		return nil
	}
	ptr = &entry.Pointer
	s.cache.Set(courseID, variant, *ptr)
	return ptr
}

// SearchCatalog returns course ids plus browsing metadata for catalog search
// hits; metadata failures degrade individual hits, not the whole search.
func (s *QueryService) SearchCatalog(ctx context.Context, queryStr string, size int) ([]models.CatalogHit, error) {
	ids, err := s.search.Search(ctx, queryStr, size)
	if err != nil {
		return nil, err
	}

	hits := make([]models.CatalogHit, 0, len(ids))
	for _, id := range ids {
		hit := models.CatalogHit{CourseID: id}
		metaCtx, cancel := context.WithTimeout(ctx, s.metaTimeout)
		doc, err := s.meta.GetDocument(metaCtx, id)
		cancel()
		if err != nil {
			s.log.ErrorErr("search: failed to load course document", err, "course_id", id)
		} else {
			hit.Meta = doc.Meta
			hit.Status = doc.Status
		}
		hits = append(hits, hit)
	}
	return hits, nil
}
