package migration

import (
	"CourseVault/internal/blobcodec"
	"CourseVault/internal/models"
	"CourseVault/pkg/logger"
	"context"
	"encoding/json"
	"fmt"
	"path"
	"regexp"
	"strings"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"
)

// legacyRefRE matches a path-embedded legacy asset reference. Ids shorter
// than 8 characters are noise from unrelated paths and are ignored.
var legacyRefRE = regexp.MustCompile(`/legacy-assets/([A-Za-z0-9_-]{8,})(\.[A-Za-z0-9]+)?`)

type assetStore interface {
	Upload(ctx context.Context, assetID string, filename string, data []byte, contentType string) (string, error)
	PublicPrefix() string
}

type legacyFetcher interface {
	Fetch(ctx context.Context, ref string) (data []byte, filename string, contentType string, err error)
}

type blobStore interface {
	Upload(ctx context.Context, courseID uuid.UUID, blob *models.Blob) (handle string, hash string, err error)
	Download(ctx context.Context, handle string) (*models.Blob, error)
}

type metaStore interface {
	GetDocument(ctx context.Context, courseID uuid.UUID) (*models.CourseMetaRecord, error)
	SetPointer(ctx context.Context, courseID uuid.UUID, variant models.Variant, record models.PointerRecord, meta models.CourseMeta, sections []models.SectionIndex) error
}

type pointerCache interface {
	Set(courseID uuid.UUID, variant models.Variant, record models.PointerRecord)
}

type fallbackRegistry interface {
	Add(ctx context.Context, courseID uuid.UUID, pointer models.PointerRecord, meta models.CourseMeta, sections []models.SectionIndex) error
	MarkSynced(ctx context.Context, courseID uuid.UUID) error
}

// Stats accumulates reference counters across the concurrent walk. Per-match
// failures land here instead of aborting the migration.
type Stats struct {
	found    atomic.Int64
	migrated atomic.Int64
	failed   atomic.Int64
}

func (s *Stats) Report() models.MigrationReport {
	return models.MigrationReport{
		Found:    int(s.found.Load()),
		Migrated: int(s.migrated.Load()),
		Failed:   int(s.failed.Load()),
	}
}

// Engine walks arbitrarily nested course/blob structures, re-hosts embedded
// legacy asset references and rewrites them in place. Blobs are immutable
// once uploaded, so a patched blob always lands under a new handle with the
// pointer chain updated the same way a publish does.
type Engine struct {
	log         logger.Log
	fetcher     legacyFetcher
	assets      assetStore
	blobs       blobStore
	meta        metaStore
	cache       pointerCache
	registry    fallbackRegistry
	metaTimeout time.Duration
}

func NewEngine(log logger.Log, fetcher legacyFetcher, assets assetStore, blobs blobStore, meta metaStore, cache pointerCache, registry fallbackRegistry, metaTimeout time.Duration) *Engine {
	if metaTimeout <= 0 {
		metaTimeout = 5 * time.Second
	}
	return &Engine{
		log:         log,
		fetcher:     fetcher,
		assets:      assets,
		blobs:       blobs,
		meta:        meta,
		cache:       cache,
		registry:    registry,
		metaTimeout: metaTimeout,
	}
}

// Migrate is polymorphic over the closed set of JSON value shapes. Sibling
// array elements migrate concurrently, order preserved; object keys are
// handled sequentially; scalars pass through untouched.
func (e *Engine) Migrate(ctx context.Context, value any, stats *Stats) any {
	switch v := value.(type) {
	case string:
		return e.migrateString(ctx, v, stats)
	case []any:
		out := make([]any, len(v))
		g, gctx := errgroup.WithContext(ctx)
		for i, item := range v {
			g.Go(func() error {
				out[i] = e.Migrate(gctx, item, stats)
				return nil
			})
		}
		_ = g.Wait()
		return out
	case map[string]any:
		out := make(map[string]any, len(v))
		for k, item := range v {
			out[k] = e.Migrate(ctx, item, stats)
		}
		return out
	default:
		return value
	}
}

func (e *Engine) migrateString(ctx context.Context, s string, stats *Stats) string {
	locs := legacyRefRE.FindAllStringIndex(s, -1)
	if len(locs) == 0 {
		return s
	}

	prefix := e.assets.PublicPrefix()
	seen := make(map[string]bool, len(locs))
	rewritten := make(map[string]string, len(locs))
	for _, loc := range locs {
		ref := s[loc[0]:loc[1]]
		if seen[ref] || alreadyHosted(s, loc[0], prefix) {
			continue
		}
		seen[ref] = true
		stats.found.Add(1)

		assetID := legacyRefRE.FindStringSubmatch(ref)[1]

		data, filename, contentType, err := e.fetcher.Fetch(ctx, ref)
		if err != nil {
			e.log.ErrorErr("migrate: legacy asset fetch failed", err, "ref", ref)
			stats.failed.Add(1)
			continue
		}
		if filename == "" {
			filename = path.Base(ref)
		}
		newURL, err := e.assets.Upload(ctx, assetID, filename, data, contentType)
		if err != nil {
			e.log.ErrorErr("migrate: asset re-host failed", err, "ref", ref)
			stats.failed.Add(1)
			continue
		}
		rewritten[ref] = newURL
		stats.migrated.Add(1)
	}
	if len(rewritten) == 0 {
		return s
	}

	// Span-based substitution: only the exact matched spans are replaced, so
	// a ref that is a strict prefix of a longer sibling ref cannot clobber it.
	var b strings.Builder
	last := 0
	for _, loc := range locs {
		ref := s[loc[0]:loc[1]]
		newURL, ok := rewritten[ref]
		if !ok || alreadyHosted(s, loc[0], prefix) {
			continue
		}
		b.WriteString(s[last:loc[0]])
		b.WriteString(newURL)
		last = loc[1]
	}
	b.WriteString(s[last:])
	return b.String()
}

// alreadyHosted reports whether the match starting at lo sits inside a URL
// token that already lives under the re-host prefix. Such a reference was
// rewritten by an earlier run and must never be migrated twice.
func alreadyHosted(s string, lo int, prefix string) bool {
	if prefix == "" {
		return false
	}
	start := lo
	for start > 0 && !urlBoundary(s[start-1]) {
		start--
	}
	return lo > start && strings.HasPrefix(s[start:], prefix)
}

func urlBoundary(b byte) bool {
	switch b {
	case ' ', '\t', '\n', '\r', '"', '\'', '(', ')', '<', '>', '=', ',':
		return true
	}
	return false
}

// MigrateCourse migrates the browsing metadata in place, then every variant
// blob the pointer chain references. A blob is re-uploaded only when at least
// one reference was rewritten; untouched content means zero uploads, so a
// second run over migrated content is a no-op.
func (e *Engine) MigrateCourse(ctx context.Context, courseID uuid.UUID) (models.MigrationReport, error) {
	metaCtx, cancel := context.WithTimeout(ctx, e.metaTimeout)
	doc, err := e.meta.GetDocument(metaCtx, courseID)
	cancel()
	if err != nil {
		return models.MigrationReport{}, err
	}

	stats := &Stats{}

	meta, metaChanged, err := e.migrateMeta(ctx, doc.Meta, stats)
	if err != nil {
		return stats.Report(), err
	}
	doc.Meta = meta

	uploads := 0
	metaOK := true
	for variant, ptr := range map[models.Variant]*models.PointerRecord{
		models.VariantPublished: doc.Published,
		models.VariantDraft:     doc.DraftSnapshot,
	} {
		if ptr == nil || ptr.FileHandle == "" {
			continue
		}
		changed, ok, err := e.migrateVariant(ctx, courseID, variant, *ptr, doc.Meta, doc.Sections, stats)
		if err != nil {
			e.log.ErrorErr("migrate: variant migration failed", err,
				"course_id", courseID, "variant", string(variant))
			continue
		}
		if changed {
			uploads++
			metaOK = metaOK && ok
			metaChanged = false // pointer write carried the patched meta
		}
	}

	if metaChanged && doc.Published != nil {
		// Only metadata text changed: merge it back under the existing
		// published pointer without bumping any version.
		metaCtx, cancel := context.WithTimeout(ctx, e.metaTimeout)
		err := e.meta.SetPointer(metaCtx, courseID, models.VariantPublished, *doc.Published, doc.Meta, doc.Sections)
		cancel()
		if err != nil {
			e.log.ErrorErr("migrate: metadata merge failed", err, "course_id", courseID)
			metaOK = false
		}
	}

	report := stats.Report()
	report.Uploads = uploads
	report.MetaOK = metaOK
	return report, nil
}

func (e *Engine) migrateMeta(ctx context.Context, meta models.CourseMeta, stats *Stats) (models.CourseMeta, bool, error) {
	raw, err := json.Marshal(meta)
	if err != nil {
		return meta, false, fmt.Errorf("migrate meta: %w", err)
	}
	var generic map[string]any
	if err := json.Unmarshal(raw, &generic); err != nil {
		return meta, false, fmt.Errorf("migrate meta: %w", err)
	}

	before := stats.migrated.Load()
	patched := e.Migrate(ctx, generic, stats)
	if stats.migrated.Load() == before {
		return meta, false, nil
	}

	data, err := json.Marshal(patched)
	if err != nil {
		return meta, false, fmt.Errorf("migrate meta: %w", err)
	}
	var out models.CourseMeta
	if err := json.Unmarshal(data, &out); err != nil {
		return meta, false, fmt.Errorf("migrate meta: %w", err)
	}
	return out, true, nil
}

// migrateVariant returns whether the blob changed and, if it did, whether the
// pointer chain update reached the metadata store.
func (e *Engine) migrateVariant(ctx context.Context, courseID uuid.UUID, variant models.Variant, ptr models.PointerRecord, meta models.CourseMeta, sections []models.SectionIndex, stats *Stats) (bool, bool, error) {
	blob, err := e.blobs.Download(ctx, ptr.FileHandle)
	if err != nil {
		return false, false, err
	}

	raw, err := blobcodec.Marshal(blob)
	if err != nil {
		return false, false, err
	}
	var generic map[string]any
	if err := json.Unmarshal(raw, &generic); err != nil {
		return false, false, fmt.Errorf("migrate blob: %w", err)
	}

	before := stats.migrated.Load()
	patched := e.Migrate(ctx, generic, stats)
	if stats.migrated.Load() == before {
		return false, false, nil
	}

	data, err := json.Marshal(patched)
	if err != nil {
		return false, false, fmt.Errorf("migrate blob: %w", err)
	}
	newBlob, err := blobcodec.Unmarshal(data)
	if err != nil {
		return false, false, err
	}

	handle, hash, err := e.blobs.Upload(ctx, courseID, newBlob)
	if err != nil {
		return false, false, err
	}

	record := ptr
	record.FileHandle = handle
	record.Hash = hash
	record.Version = ptr.Version + 1
	record.Timestamp = time.Now().UTC()

	metaOK := true
	metaCtx, cancel := context.WithTimeout(ctx, e.metaTimeout)
	err = e.meta.SetPointer(metaCtx, courseID, variant, record, meta, sections)
	cancel()
	if err != nil {
		e.log.ErrorErr("migrate: pointer update failed", err,
			"course_id", courseID, "variant", string(variant))
		metaOK = false
	}

	e.cache.Set(courseID, variant, record)
	// Same rule as a publish: the registry mirrors the published track only,
	// so a migrated draft pointer can never be replayed as published.
	if variant == models.VariantPublished {
		if err := e.registry.Add(ctx, courseID, record, meta, sections); err != nil {
			e.log.ErrorErr("migrate: fallback registry update failed", err, "course_id", courseID)
		} else if metaOK {
			if err := e.registry.MarkSynced(ctx, courseID); err != nil {
				e.log.ErrorErr("migrate: mark synced failed", err, "course_id", courseID)
			}
		}
	}

	return true, metaOK, nil
}
