package syncqueue

import (
	"CourseVault/internal/app_errors"
	"CourseVault/internal/models"
	"CourseVault/pkg/logger"
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
)

type fallbackRegistry interface {
	List(ctx context.Context) ([]models.LocalRegistryEntry, error)
	MarkSynced(ctx context.Context, courseID uuid.UUID) error
}

type metaStore interface {
	SetPointer(ctx context.Context, courseID uuid.UUID, variant models.Variant, record models.PointerRecord, meta models.CourseMeta, sections []models.SectionIndex) error
}

// Service replays dirty fallback-registry entries into the primary metadata
// store. A batch is not atomic: a run cut short simply leaves the remaining
// entries dirty for the next invocation.
type Service struct {
	log         logger.Log
	registry    fallbackRegistry
	meta        metaStore
	metaTimeout time.Duration
}

func New(log logger.Log, registry fallbackRegistry, meta metaStore, metaTimeout time.Duration) *Service {
	if metaTimeout <= 0 {
		metaTimeout = 5 * time.Second
	}
	return &Service{log: log, registry: registry, meta: meta, metaTimeout: metaTimeout}
}

func (s *Service) PendingCount(ctx context.Context) (int, error) {
	entries, err := s.registry.List(ctx)
	if err != nil {
		return 0, err
	}
	count := 0
	for _, e := range entries {
		if e.PendingSync {
			count++
		}
	}
	return count, nil
}

// SyncPending walks every registry entry once. Clean entries count as
// skipped. Quota exhaustion is a global signal from the store: retrying more
// entries in the same pass would fail identically, so the batch
// short-circuits instead of burning further quota.
func (s *Service) SyncPending(ctx context.Context) (models.SyncReport, error) {
	var report models.SyncReport

	entries, err := s.registry.List(ctx)
	if err != nil {
		return report, err
	}

	for _, entry := range entries {
		if !entry.PendingSync {
			report.Skipped++
			continue
		}

		err := s.replay(ctx, entry)
		switch {
		case err == nil:
			if err := s.registry.MarkSynced(ctx, entry.CourseID); err != nil {
				s.log.ErrorErr("sync: mark synced failed", err, "course_id", entry.CourseID)
				report.Failed++
				continue
			}
			report.Synced++
		case errors.Is(err, app_errors.ErrQuotaExhausted):
			s.log.Warn("sync: metadata store quota exhausted, aborting batch",
				"course_id", entry.CourseID, "synced", report.Synced)
			report.QuotaExhausted = true
			return report, nil
		default:
			s.log.ErrorErr("sync: pointer replay failed", err, "course_id", entry.CourseID)
			report.Failed++
		}
	}

	return report, nil
}

func (s *Service) replay(ctx context.Context, entry models.LocalRegistryEntry) error {
	metaCtx, cancel := context.WithTimeout(ctx, s.metaTimeout)
	defer cancel()
	return s.meta.SetPointer(metaCtx, entry.CourseID, models.VariantPublished, entry.Pointer, entry.Meta, entry.Sections)
}
